package triage

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

const summaryMaxChars = 260

// rawJudgment is one loosely-typed oracle decision before normalization.
// Oracles occasionally return numbers as strings or ints as floats, so the
// typed accessors coerce instead of failing.
type rawJudgment map[string]any

func (r rawJudgment) str(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return ""
	}
}

func (r rawJudgment) num(key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func (r rawJudgment) integer(key string) (int, bool) {
	f, ok := r.num(key)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func (r rawJudgment) boolean(key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && b
	default:
		return false
	}
}

// stripCodeFences removes a surrounding markdown code fence, including an
// optional json language tag.
func stripCodeFences(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	parts := strings.Split(t, "```")
	if len(parts) < 2 {
		return t
	}
	t = parts[1]
	if strings.HasPrefix(strings.TrimLeft(t, " \t\r\n"), "json") {
		t = strings.TrimLeft(t, " \t\r\n")[4:]
	}
	return strings.TrimSpace(t)
}

// extractFirstJSONArray returns the first balanced top-level JSON array in
// src, honoring string literals and escapes. Empty when none is found.
func extractFirstJSONArray(src string) string {
	start := strings.IndexByte(src, '[')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(src); i++ {
		ch := src[i]
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
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return src[start : i+1]
			}
		}
	}
	return ""
}

// parseJudgments normalizes an oracle response into a list of judgments.
// It tries the full text first, then the first embedded JSON array, and
// accepts an object wrapping the array under a few conventional keys.
func parseJudgments(content string) ([]rawJudgment, error) {
	text := stripCodeFences(content)
	if text == "" {
		return nil, errors.New("empty oracle output")
	}

	candidates := []string{text}
	if extracted := extractFirstJSONArray(text); extracted != "" && extracted != text {
		candidates = append(candidates, extracted)
	}

	for _, candidate := range candidates {
		var parsed any
		if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
			continue
		}
		switch v := parsed.(type) {
		case []any:
			return toJudgments(v), nil
		case map[string]any:
			for _, key := range []string{"results", "papers", "output", "data"} {
				if list, ok := v[key].([]any); ok {
					return toJudgments(list), nil
				}
			}
		}
	}
	return nil, errors.New("oracle output is not a JSON array")
}

func toJudgments(items []any) []rawJudgment {
	out := make([]rawJudgment, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, rawJudgment(m))
		}
	}
	return out
}

// oneSentenceSummary extracts the first sentence of text, truncated to a
// fixed budget. Sentence ends cover both latin and CJK punctuation.
func oneSentenceSummary(text string) string {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return ""
	}

	sentence := raw
	if idx := strings.IndexByte(sentence, '\n'); idx >= 0 {
		sentence = sentence[:idx]
	}
	sentence = strings.TrimSpace(sentence)
	for _, sep := range []string{"。", "！", "？", ". ", "! ", "? "} {
		if strings.Contains(sentence, sep) {
			sentence = strings.TrimSpace(strings.SplitN(sentence, sep, 2)[0])
			break
		}
	}

	if sentence == "" {
		return ""
	}
	runes := []rune(sentence)
	if len(runes) > summaryMaxChars {
		return strings.TrimRight(string(runes[:summaryMaxChars-3]), " ") + "..."
	}
	return sentence
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
