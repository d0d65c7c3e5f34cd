package src

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Shape selects the kind of JSON value ExtractJSON should look for.
type Shape int

const (
	ShapeObject Shape = iota
	ShapeArray
)

func (s Shape) open() byte {
	if s == ShapeArray {
		return '['
	}
	return '{'
}

func (s Shape) close() byte {
	if s == ShapeArray {
		return ']'
	}
	return '}'
}

// ParseError reports why no usable JSON came out of a model response.
// NotFound and Malformed are distinct: the former means no candidate
// substring existed, the latter that the candidate did not parse.
type ParseError struct {
	Kind ParseErrorKind
	Err  error
}

type ParseErrorKind int

const (
	ParseNotFound ParseErrorKind = iota
	ParseMalformed
)

func (e *ParseError) Error() string {
	if e.Kind == ParseNotFound {
		return "no JSON found in response"
	}
	return fmt.Sprintf("malformed JSON in response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var (
	thinkRe             = regexp.MustCompile(`(?s)<think>.*?</think>`)
	fenceMarkerRe       = regexp.MustCompile("```(?:json[c5]?|json5)?\\n?")
	trailingArrayComma  = regexp.MustCompile(`,\s*\]`)
	trailingObjectComma = regexp.MustCompile(`,\s*\}`)
	backtickStringRe    = regexp.MustCompile("`([^`\\\\]*(?:\\\\.[^`\\\\]*)*)`")
)

// ExtractJSON locates the first JSON value of the requested shape inside a
// model response that may be wrapped in reasoning tags, prose, or markdown
// fences. The scan is greedy: first opening bracket to the last closing one.
// It can be fooled by literal braces inside string values; callers treat the
// result as best-effort.
func ExtractJSON(raw string, shape Shape) ([]byte, error) {
	cleaned := strings.TrimSpace(thinkRe.ReplaceAllString(raw, ""))

	candidate, ok := bracketSpan(cleaned, shape)
	if !ok {
		// Fences sometimes hide the brackets from the first pass.
		unfenced := fenceMarkerRe.ReplaceAllString(cleaned, "")
		candidate, ok = bracketSpan(unfenced, shape)
	}
	if !ok {
		return nil, &ParseError{Kind: ParseNotFound}
	}

	jsonStr := strings.TrimSpace(candidate)

	// A span that already parses is returned untouched: code payloads
	// routinely contain backticks and trailing commas inside string values,
	// and rewriting those would corrupt the user's code.
	if json.Valid([]byte(jsonStr)) {
		return []byte(jsonStr), nil
	}

	jsonStr = trailingArrayComma.ReplaceAllString(jsonStr, "]")
	jsonStr = trailingObjectComma.ReplaceAllString(jsonStr, "}")

	// Some providers occasionally use backticks instead of double quotes.
	if strings.Contains(jsonStr, "`") {
		jsonStr = backtickStringRe.ReplaceAllString(jsonStr, "\"$1\"")
	}

	return []byte(jsonStr), nil
}

// UnmarshalShaped extracts a JSON value of the given shape and decodes it
// into v. Extraction misses surface as ParseNotFound, decode failures as
// ParseMalformed.
func UnmarshalShaped(raw string, shape Shape, v any) error {
	data, err := ExtractJSON(raw, shape)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &ParseError{Kind: ParseMalformed, Err: err}
	}
	return nil
}

func bracketSpan(s string, shape Shape) (string, bool) {
	start := strings.IndexByte(s, shape.open())
	if start == -1 {
		return "", false
	}
	end := strings.LastIndexByte(s, shape.close())
	if end == -1 || end < start {
		return "", false
	}
	return s[start : end+1], true
}
