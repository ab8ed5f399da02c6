package statusreport

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// section identifies which table the parser is currently inside.
type section int

const (
	sectionNone section = iota
	sectionOverview
	sectionChannels
	sectionSessions
)

var sectionNamesByHeader = map[string]section{
	"overview": sectionOverview,
	"channels": sectionChannels,
	"sessions": sectionSessions,
}

// Field sub-parsers. The line-level structure is handled by the
// classifier; only value fragments use patterns.
var (
	latencyRe   = regexp.MustCompile(`(\d+)\s*ms`)
	heartbeatRe = regexp.MustCompile(`^(\d+[a-zA-Z]+)`)
	sessionsRe  = regexp.MustCompile(`(?i)sessions?\D{0,3}(\d+)`)
	modelCtxRe  = regexp.MustCompile(`([\w./-]+)\s*\((\d+)(k?)\s*ctx\)`)
	tokensRe    = regexp.MustCompile(`^(\d+(?:\.\d)?)([a-zA-Z]?)/(\d+(?:\.\d)?)([a-zA-Z]?)\s*\((\d+(?:\.\d+)?)%\)$`)
	updateRe    = regexp.MustCompile(`(?i)update available\S*\s*v?(\d+\.\d+(?:\.\d+)?)?`)
)

// Parse converts a status report into a ParsedStatus. It never fails:
// unknown lines are ignored, malformed rows are skipped, and a missing
// section leaves its fields at their zero values. Parsing is a pure
// function of the input text.
func Parse(text string) ParsedStatus {
	var ps ParsedStatus
	cur := sectionNone

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimRight(raw, " \t\r")
		if line == "" || isBorder(line) {
			continue
		}

		if sec, ok := headerSection(line); ok {
			cur = sec
			continue
		}

		cells := splitCells(line)
		if len(cells) == 0 {
			continue
		}

		switch cur {
		case sectionOverview:
			parseOverviewRow(&ps, cells)
		case sectionChannels:
			parseChannelRow(&ps, cells)
		case sectionSessions:
			parseSessionRow(&ps, cells)
		}
	}

	if loc := updateRe.FindStringSubmatch(text); loc != nil {
		ps.UpdateAvailable = true
		ps.LatestVersion = loc[1]
	}

	return ps
}

// isBorder reports whether a line is composed solely of box-drawing
// glyphs (U+2500..U+257F) and whitespace.
func isBorder(line string) bool {
	seen := false
	for _, r := range line {
		if r == ' ' || r == '\t' {
			continue
		}
		if r < 0x2500 || r > 0x257F {
			return false
		}
		seen = true
	}
	return seen
}

// headerSection matches a plain-text section header line, tolerating
// decoration from surrounding box glyphs or punctuation.
func headerSection(line string) (section, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if r >= 0x2500 && r <= 0x257F {
			return -1
		}
		return r
	}, line)
	cleaned = strings.ToLower(strings.Trim(cleaned, " \t:=-"))

	sec, ok := sectionNamesByHeader[cleaned]
	return sec, ok
}

// splitCells breaks a content row on the vertical-bar separators, trims
// each cell, and drops the empty cells produced by the outer borders.
// A line without any separator yields no cells.
func splitCells(line string) []string {
	if !strings.ContainsAny(line, "│|") {
		return nil
	}
	parts := strings.FieldsFunc(line, func(r rune) bool {
		return r == '│' || r == '|'
	})
	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || strings.Trim(p, "-+=") == "" {
			// Empty outer cells and ASCII rule segments.
			continue
		}
		cells = append(cells, p)
	}
	return cells
}

// --- Overview ---

func parseOverviewRow(ps *ParsedStatus, cells []string) {
	if len(cells) < 2 {
		return
	}
	key := strings.ToLower(cells[0])
	value := strings.Join(cells[1:], " ")

	switch {
	case strings.Contains(key, "gateway"):
		parseGatewayValue(ps, value)
	case strings.Contains(key, "memory"):
		parseMemoryValue(ps, value)
	case strings.Contains(key, "heartbeat"):
		if m := heartbeatRe.FindStringSubmatch(strings.TrimSpace(value)); m != nil {
			ps.HeartbeatInterval = m[1]
		}
	case strings.Contains(key, "agent") || strings.Contains(key, "session"):
		parseAgentsValue(ps, value)
	}
}

func parseGatewayValue(ps *ParsedStatus, value string) {
	lower := strings.ToLower(value)
	if strings.Contains(lower, "local") {
		ps.GatewayMode = "local"
	} else if strings.Contains(lower, "remote") {
		ps.GatewayMode = "remote"
	}
	// "unreachable" contains "reachable"; check the negative form first.
	if !strings.Contains(lower, "unreachable") && strings.Contains(lower, "reachable") {
		ps.GatewayReachable = true
	}
	if m := latencyRe.FindStringSubmatch(lower); m != nil {
		if ms, err := strconv.Atoi(m[1]); err == nil {
			ps.GatewayLatencyMS = &ms
		}
	}
}

func parseMemoryValue(ps *ParsedStatus, value string) {
	lower := strings.ToLower(value)
	if strings.Contains(lower, "disabled") {
		ps.MemoryEnabled = false
	} else if strings.Contains(lower, "enabled") {
		ps.MemoryEnabled = true
	}

	// The status token trails the last separator: "enabled · qdrant: ok"
	// reports "ok".
	if idx := strings.LastIndexAny(value, "·:,"); idx >= 0 {
		_, sepLen := utf8.DecodeRuneInString(value[idx:])
		tail := strings.TrimSpace(value[idx+sepLen:])
		ps.MemoryStatus = strings.Trim(tail, " ()")
	} else {
		ps.MemoryStatus = strings.TrimSpace(value)
	}
}

func parseAgentsValue(ps *ParsedStatus, value string) {
	if m := sessionsRe.FindStringSubmatch(value); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			ps.SessionCount = n
		}
	}
	if m := modelCtxRe.FindStringSubmatch(value); m != nil {
		ps.DefaultModel = m[1]
		if n, err := strconv.Atoi(m[2]); err == nil {
			if m[3] == "k" {
				n *= 1000
			}
			ps.DefaultContext = n
		}
	}
}

// --- Channels ---

func parseChannelRow(ps *ParsedStatus, cells []string) {
	if len(cells) < 4 {
		return
	}
	// Skip the column-title row some renderers include.
	if strings.EqualFold(cells[1], "enabled") {
		return
	}
	ps.Channels = append(ps.Channels, Channel{
		Name:    cells[0],
		Enabled: strings.EqualFold(cells[1], "on"),
		State:   cells[2],
		Detail:  strings.Join(cells[3:], " "),
	})
}

// --- Sessions ---

func parseSessionRow(ps *ParsedStatus, cells []string) {
	if len(cells) < 5 {
		return
	}
	used, total, pct, ok := parseTokensCell(cells[4])
	if !ok {
		// Covers column-title rows and malformed token cells alike.
		return
	}
	ps.Sessions = append(ps.Sessions, Session{
		Key:         cells[0],
		Kind:        cells[1],
		Age:         cells[2],
		Model:       cells[3],
		TokensUsed:  used,
		TokensTotal: total,
		TokensPct:   pct,
	})
}

// parseTokensCell parses "<num><unit?>/<num><unit?> (<num>%)" where a
// "k" unit multiplies by 1000 and one decimal digit is allowed, e.g.
// "95k/200k (48%)" or "0.0k/200k (0%)".
func parseTokensCell(cell string) (used, total int, pct float64, ok bool) {
	m := tokensRe.FindStringSubmatch(strings.TrimSpace(cell))
	if m == nil {
		return 0, 0, 0, false
	}
	used, ok = tokenAmount(m[1], m[2])
	if !ok {
		return 0, 0, 0, false
	}
	total, ok = tokenAmount(m[3], m[4])
	if !ok {
		return 0, 0, 0, false
	}
	pct, err := strconv.ParseFloat(m[5], 64)
	if err != nil {
		return 0, 0, 0, false
	}
	return used, total, pct, true
}

func tokenAmount(num, unit string) (int, bool) {
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	if strings.EqualFold(unit, "k") {
		v *= 1000
	}
	return int(v), true
}
