package utils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	fencedJSONRe    = regexp.MustCompile("(?s)```(?:json)?\\s*(.+?)\\s*```")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	bareKeyRe       = regexp.MustCompile(`([{,]\s*)([A-Za-z_]\w*)(\s*:)`)
	controlCharsRe  = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
)

// DecodeToolArguments decodes the arguments string of a model tool call into
// target. Models regularly return arguments that are not strict JSON, so the
// decoder tries, in order:
// - the raw string
// - the body of a markdown code fence
// - the first balanced {...} object in surrounding text
// - a repaired copy (trailing commas, bare keys, single quotes, control chars)
//
// An empty or whitespace-only string decodes as an empty object.
func DecodeToolArguments(raw string, target interface{}) error {
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
	if raw == "" {
		raw = "{}"
	}

	candidates := []string{raw}
	if m := fencedJSONRe.FindStringSubmatch(raw); len(m) > 1 {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	if obj := firstObject(raw); obj != "" {
		candidates = append(candidates, obj)
		candidates = append(candidates, repairJSON(obj))
	}
	candidates = append(candidates, repairJSON(raw))

	for _, c := range candidates {
		if c == "" {
			continue
		}
		if err := json.Unmarshal([]byte(c), target); err == nil {
			return nil
		}
	}
	return fmt.Errorf("invalid tool arguments: %s", truncate(raw, 100))
}

// firstObject returns the first balanced JSON object in s, ignoring braces
// inside string literals.
func firstObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escape := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		switch {
		case escape:
			escape = false
		case ch == '\\' && inString:
			escape = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func repairJSON(s string) string {
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	s = bareKeyRe.ReplaceAllString(s, `$1"$2"$3`)
	s = singleToDoubleQuotes(s)
	return controlCharsRe.ReplaceAllString(s, "")
}

// singleToDoubleQuotes rewrites single-quoted keys and values outside
// double-quoted strings. Apostrophes inside words are left alone.
func singleToDoubleQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inDouble := false
	inSingle := false
	escape := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if escape {
			b.WriteByte(ch)
			escape = false
			continue
		}
		switch {
		case ch == '\\':
			escape = true
			b.WriteByte(ch)
		case ch == '"' && !inSingle:
			inDouble = !inDouble
			b.WriteByte(ch)
		case ch == '"' && inSingle:
			b.WriteString(`\"`)
		case ch == '\'' && !inDouble && !inSingle && opensValue(s, i):
			inSingle = true
			b.WriteByte('"')
		case ch == '\'' && inSingle && closesValue(s, i):
			inSingle = false
			b.WriteByte('"')
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

func opensValue(s string, i int) bool {
	j := i - 1
	for j >= 0 && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n') {
		j--
	}
	return j < 0 || strings.IndexByte(":,[{", s[j]) >= 0
}

func closesValue(s string, i int) bool {
	j := i + 1
	for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n') {
		j++
	}
	return j >= len(s) || strings.IndexByte(":,]}", s[j]) >= 0
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
