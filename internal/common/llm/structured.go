package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"sales-orchestrator/internal/common/validation"
)

// Result is the tagged outcome of parsing generated text: either a value or the raw text
// with the reason it was rejected. Call sites pick their default through OrElse.
type Result[T any] struct {
	value T
	raw   string
	err   error
	ok    bool
}

func (r Result[T]) Ok() bool { return r.ok }
func (r Result[T]) Value() T { return r.value }
func (r Result[T]) Raw() string { return r.raw }
func (r Result[T]) Err() error { return r.err }

// OrElse returns the parsed value, or def when parsing failed.
func (r Result[T]) OrElse(def T) T {
	if r.ok {
		return r.value
	}
	return def
}

func okResult[T any](v T, raw string) Result[T] {
	return Result[T]{value: v, raw: raw, ok: true}
}

func errResult[T any](raw string, err error) Result[T] {
	return Result[T]{raw: raw, err: err}
}

// ParseJSON extracts the first JSON object from raw, validates it against schema when one
// is given and decodes it into T.
func ParseJSON[T any](raw string, schema *validation.Schema) Result[T] {
	candidate, ok := ExtractJSONObject(raw)
	if !ok {
		return errResult[T](raw, fmt.Errorf("no json object found"))
	}

	if schema != nil {
		if result := schema.ValidateJSON([]byte(candidate)); !result.Valid {
			return errResult[T](raw, fmt.Errorf("schema validation failed: %s", validation.FormatErrors(result.Errors)))
		}
	}

	var v T
	if err := json.Unmarshal([]byte(candidate), &v); err != nil {
		return errResult[T](raw, fmt.Errorf("decode: %w", err))
	}
	return okResult(v, raw)
}

// ExtractJSONObject returns the first balanced {...} object in text, skipping markdown fences
// and surrounding prose.
func ExtractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	for start >= 0 {
		if end := matchBrace(text, start); end > start {
			candidate := text[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, true
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// matchBrace returns the index of the brace closing the one at open, or -1.
func matchBrace(text string, open int) int {
	depth := 0
	inString := false
	escaped := false

	for i := open; i < len(text); i++ {
		c := text[i]
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
				return i
			}
		}
	}
	return -1
}

// Truncate shortens s to max runes for log output.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
