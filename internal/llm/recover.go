package llm

import "strings"

// JSONKind selects the bracket pair RecoverJSON looks for.
type JSONKind int

const (
	JSONObject JSONKind = iota
	JSONArray
)

func (k JSONKind) brackets() (opening, closing string) {
	if k == JSONArray {
		return "[", "]"
	}
	return "{", "}"
}

// RecoverJSON extracts the best-effort JSON substring from raw model output.
// Models sometimes wrap the payload in prose or a fenced code block even when
// told not to. If the trimmed text already starts and ends with the expected
// bracket pair it is returned unchanged; otherwise the inner content of the
// first fenced block is returned trimmed; otherwise the original text is
// returned untouched so that strict decoding fails downstream.
func RecoverJSON(raw string, kind JSONKind) string {
	trimmed := strings.TrimSpace(raw)
	opening, closing := kind.brackets()

	if strings.HasPrefix(trimmed, opening) && strings.HasSuffix(trimmed, closing) {
		return trimmed
	}

	if inner, ok := fencedBlock(trimmed); ok {
		return inner
	}

	return raw
}

// fencedBlock returns the trimmed content between the first pair of
// triple-backtick markers. An optional language tag after the opening marker
// (```json) is discarded with the rest of that line.
func fencedBlock(s string) (string, bool) {
	start := strings.Index(s, "```")
	if start < 0 {
		return "", false
	}
	rest := s[start+3:]

	// skip the language tag (```json), with or without a newline after it
	rest = strings.TrimLeft(rest, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}
