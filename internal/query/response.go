package query

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ParseResult holds a value parsed from completion text, or the reason it
// could not be parsed
type ParseResult[T any] struct {
	Value T
	Err   error
	Raw   string
}

// OK reports whether parsing succeeded
func (r ParseResult[T]) OK() bool {
	return r.Err == nil
}

// ValueOr returns the parsed value, or fallback when parsing failed
func (r ParseResult[T]) ValueOr(fallback T) T {
	if r.Err != nil {
		return fallback
	}

	return r.Value
}

func parsed[T any](raw string, value T) ParseResult[T] {
	return ParseResult[T]{Value: value, Raw: raw}
}

func parseFailed[T any](raw string, format string, args ...any) ParseResult[T] {
	return ParseResult[T]{Err: fmt.Errorf(format, args...), Raw: raw}
}

// ParseTableList reads a comma-separated list of table names. Names keep
// their case; surrounding whitespace and double quotes are dropped.
func ParseTableList(raw string) ParseResult[[]string] {
	var names []string

	for _, part := range strings.Split(raw, ",") {
		name := strings.Trim(strings.TrimSpace(part), `"`)
		if name != "" {
			names = append(names, name)
		}
	}

	if len(names) == 0 {
		return parseFailed[[]string](raw, "no table names in response")
	}

	return parsed(raw, names)
}

// ParseConfidence reads a score and clamps it into [0, 1]
func ParseConfidence(raw string) ParseResult[float64] {
	score, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return parseFailed[float64](raw, "confidence is not a number: %q", raw)
	}

	if math.IsNaN(score) {
		return parseFailed[float64](raw, "confidence is not a number: %q", raw)
	}

	return parsed(raw, min(max(score, 0), 1))
}

var trailingCommaPattern = regexp.MustCompile(`(?i),(\s*(?:FROM|WHERE|GROUP\s+BY|ORDER\s+BY)\b)`)

// CleanSQL strips code fences and commas left before FROM, WHERE, GROUP BY
// and ORDER BY
func CleanSQL(raw string) ParseResult[string] {
	sql := strings.TrimSpace(raw)
	sql = strings.ReplaceAll(sql, "```sql", "")
	sql = strings.ReplaceAll(sql, "```", "")
	sql = strings.TrimSpace(sql)

	sql = trailingCommaPattern.ReplaceAllString(sql, "${1}")

	if sql == "" {
		return parseFailed[string](raw, "no SQL in response")
	}

	return parsed(raw, sql)
}
