package schema

import (
	"strings"
	"unicode"
)

// TabIDFromLabel derives a tab id from a display label by lowercasing it and
// replacing every whitespace run with a single hyphen. Other characters are
// kept as-is, so "Related Records" becomes "related-records".
func TabIDFromLabel(label string) TabID {
	var b strings.Builder
	inSpace := false
	for _, r := range strings.ToLower(label) {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte('-')
				inSpace = true
			}
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return TabID(b.String())
}

// NormalizeFieldType lowercases and trims a field type. Empty values become text;
// unknown values are kept verbatim.
func NormalizeFieldType(value string) FieldType {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" {
		return FieldText
	}
	return FieldType(trimmed)
}
