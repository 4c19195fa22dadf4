package session

import "strings"

// FormatPairingCode reformats a raw pairing code into hyphen-joined groups
// of four characters ("ABCDEFGH" → "ABCD-EFGH"). Codes shorter than one
// full group are returned as-is, as is any input that grouping would
// reduce to nothing.
func FormatPairingCode(raw string) string {
	if len(raw) <= 4 {
		return raw
	}

	var groups []string
	for i := 0; i < len(raw); i += 4 {
		end := i + 4
		if end > len(raw) {
			end = len(raw)
		}
		groups = append(groups, raw[i:end])
	}

	formatted := strings.Join(groups, "-")
	if formatted == "" {
		return raw
	}
	return formatted
}
