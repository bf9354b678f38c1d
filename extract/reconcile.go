package extract

import (
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Extraction is the parsed-or-empty result of one model response. A parse
// failure yields empty Fields with Err recording the cause, so callers can
// tell a legitimately empty extraction from a malformed one. Err is never
// propagated to the caller of the endpoint: one prompt's malformed output
// must not discard the other's useful fields.
type Extraction struct {
	Fields map[string]any
	Err    error
}

// ParsePayload parses a raw model payload into an Extraction. Models are
// instructed to return pure JSON but routinely wrap it in markdown fences or
// prose, so the first JSON object found in the payload is accepted. Any
// failure degrades to an empty Extraction; ParsePayload never panics and
// never returns an error to propagate.
func ParsePayload(raw string) Extraction {
	cleaned := stripFences(strings.TrimSpace(raw))

	cleaned, ok := firstJSONObject(cleaned)
	if !ok {
		return Extraction{Fields: map[string]any{}, Err: fmt.Errorf("no JSON object in payload")}
	}

	if !gjson.Valid(cleaned) {
		return Extraction{Fields: map[string]any{}, Err: fmt.Errorf("malformed JSON in payload")}
	}
	parsed := gjson.Parse(cleaned)
	if !parsed.IsObject() {
		return Extraction{Fields: map[string]any{}, Err: fmt.Errorf("payload JSON is not an object")}
	}

	fields := map[string]any{}
	parsed.ForEach(func(key, value gjson.Result) bool {
		fields[key.String()] = value.Value()
		return true
	})
	return Extraction{Fields: fields}
}

// firstJSONObject returns the first brace-balanced object in s, so prose
// after the object (even prose containing stray braces) is ignored. Braces
// inside string values do not count towards the balance.
func firstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag, leaving other payloads untouched.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Merge combines the two partial extractions into one record. The merge
// starts from the descriptive fields and overlays the structural fields, so
// on a key collision the structural extraction wins.
func Merge(structural, descriptive Extraction) map[string]any {
	merged := make(map[string]any, len(structural.Fields)+len(descriptive.Fields))
	for k, v := range descriptive.Fields {
		merged[k] = v
	}
	for k, v := range structural.Fields {
		merged[k] = v
	}
	return merged
}

// FormatProcessingTime renders a request duration as the fixed-precision
// string carried in every successful response, e.g. "0.8421 seconds".
func FormatProcessingTime(d time.Duration) string {
	return fmt.Sprintf("%.4f seconds", d.Seconds())
}
