package analysis

import (
	"encoding/json"
	"strings"
)

// ParseHeaders extracts tab headers from a model reply. A JSON array of
// strings (optionally inside a ```json fence) is used as-is; anything else
// falls back to the keyword allow-list. An empty reply yields no headers.
func ParseHeaders(reply string) []string {
	trimmed := strings.TrimSpace(reply)
	if trimmed == "" {
		return []string{}
	}
	if headers, ok := decodeArray(trimmed); ok {
		return headers
	}
	if fenced, ok := unfence(trimmed); ok {
		if headers, ok := decodeArray(fenced); ok {
			return headers
		}
	}
	return keywordFallback(trimmed)
}

func decodeArray(text string) ([]string, bool) {
	var headers []string
	if err := json.Unmarshal([]byte(text), &headers); err != nil {
		return nil, false
	}
	if headers == nil {
		headers = []string{}
	}
	return headers, true
}

func unfence(text string) (string, bool) {
	start := strings.Index(text, "```")
	if start < 0 {
		return "", false
	}
	rest := text[start+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

func keywordFallback(text string) []string {
	lower := strings.ToLower(text)
	headers := []string{}
	for _, kw := range keywordHeaders {
		if strings.Contains(lower, kw.keyword) {
			headers = append(headers, kw.header)
		}
	}
	return headers
}
