package completion

import (
	"encoding/json"
	"strings"
)

// stripFences removes a surrounding markdown code fence.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		// Drop the language tag line, e.g. ```json.
		if tag := strings.TrimSpace(text[:nl]); !strings.ContainsAny(tag, "{[") {
			text = text[nl+1:]
		}
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// balanced returns the first balanced span that opens with open. Brackets
// inside string literals are ignored.
func balanced(text string, open, close byte) (string, bool) {
	start := strings.IndexByte(text, open)
	for start >= 0 {
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(text); i++ {
			ch := text[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case ch == '\\':
					escaped = true
				case ch == '"':
					inString = false
				}
				continue
			}
			switch ch {
			case '"':
				inString = true
			case open:
				depth++
			case close:
				depth--
				if depth == 0 {
					return text[start : i+1], true
				}
			}
		}
		next := strings.IndexByte(text[start+1:], open)
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// DecodeObject decodes the first JSON object found in text into dst.
func DecodeObject(text string, dst any) bool {
	raw, ok := balanced(stripFences(text), '{', '}')
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(raw), dst) == nil
}

// ExtractObject returns the first JSON object found in text.
func ExtractObject(text string) (map[string]any, bool) {
	var out map[string]any
	if !DecodeObject(text, &out) || out == nil {
		return nil, false
	}
	return out, true
}

// DecodeArray decodes the first JSON array found in text into dst.
func DecodeArray(text string, dst any) bool {
	raw, ok := balanced(stripFences(text), '[', ']')
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(raw), dst) == nil
}

// ExtractArray returns the first JSON array of strings found in text.
func ExtractArray(text string) ([]string, bool) {
	var out []string
	if !DecodeArray(text, &out) {
		return nil, false
	}
	return out, true
}
