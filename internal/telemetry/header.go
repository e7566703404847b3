package telemetry

import "strings"

// IsHeader reports whether line looks like the column header row: it must
// start with TIME and mention SETT1 and TEMP1 afterwards, case-insensitively.
// The check is loose on purpose so header tweaks across firmware revisions
// still match.
func IsHeader(line string) bool {
	upper := strings.ToUpper(line)
	if !strings.HasPrefix(upper, "TIME") {
		return false
	}
	rest := upper[len("TIME"):]
	return strings.Contains(rest, "SETT1") && strings.Contains(rest, "TEMP1")
}

// sameLayout compares two header lines column by column, ignoring case,
// delimiter style and padding.
func sameLayout(a, b string) bool {
	ca, cb := headerColumns(a), headerColumns(b)
	if len(ca) != len(cb) {
		return false
	}
	for i := range ca {
		if ca[i] != cb[i] {
			return false
		}
	}
	return true
}

func headerColumns(line string) []string {
	tokens := tokenize(line)
	cols := make([]string, 0, len(tokens))
	for _, t := range tokens {
		cols = append(cols, strings.ToUpper(strings.TrimSpace(t)))
	}
	return cols
}
