package body

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/akave-ai/returnall/internal/model"
)

// ErrorTypeJSONDecode tags a failed JSON decode in ErrorDetails.
const ErrorTypeJSONDecode = "JSONDecodeError"

const unexpectedEOF = "unexpected end of JSON input"

// Result is the interpretation of a raw request body. When IsValidJSON is
// false, Body holds the compact string and the three error fields are set.
type Result struct {
	Body         any
	IsValidJSON  bool
	JSONError    string
	OriginalBody string
	Details      *model.ErrorDetails
}

// Apply copies the interpretation into rec.
func (r Result) Apply(rec *model.RequestRecord) {
	rec.Body = r.Body
	rec.IsValidJSON = r.IsValidJSON
	if r.IsValidJSON {
		rec.JSONError = ""
		rec.OriginalBody = ""
		rec.ErrorDetails = nil
		return
	}
	rec.JSONError = r.JSONError
	rec.OriginalBody = r.OriginalBody
	rec.ErrorDetails = r.Details
}

// Interpret decodes raw as JSON. A body that is not valid JSON is not an
// error: it comes back as a whitespace-collapsed string together with a
// diagnostic pointing at the first offending character.
func Interpret(raw []byte) Result {
	if len(raw) == 0 {
		return Result{Body: nil, IsValidJSON: true}
	}

	if json.Valid(raw) {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err == nil {
			return Result{Body: v, IsValidJSON: true}
		}
	}

	original := lossyString(raw)
	var v any
	err := json.Unmarshal(raw, &v)
	if err == nil {
		// json.Valid and Unmarshal disagree only on pathological input.
		err = errors.New("invalid JSON")
	}

	details := diagnose(raw, original, err)
	return Result{
		Body:        Compact(original),
		IsValidJSON: false,
		JSONError: fmt.Sprintf("JSON decode error: %s: line %d column %d (char %d)",
			details.Message, details.Line, details.Column, details.Position),
		OriginalBody: original,
		Details:      details,
	}
}

// Compact collapses every run of whitespace to a single space and trims the ends.
func Compact(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// lossyString decodes raw as UTF-8, replacing each invalid byte with U+FFFD.
func lossyString(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	return string([]rune(string(raw)))
}

func diagnose(raw []byte, original string, err error) *model.ErrorDetails {
	d := &model.ErrorDetails{
		ErrorType: ErrorTypeJSONDecode,
		Message:   err.Error(),
	}

	var syntaxErr *json.SyntaxError
	byteOffset := 0
	if errors.As(err, &syntaxErr) {
		byteOffset = int(syntaxErr.Offset)
		// The scanner reports the count of bytes consumed including the
		// offending one, except at end of input.
		if syntaxErr.Error() != unexpectedEOF && byteOffset > 0 {
			byteOffset--
		}
	}
	if byteOffset > len(raw) {
		byteOffset = len(raw)
	}

	runes := []rune(original)
	// Each invalid byte decodes to exactly one rune, so counting runes in
	// the raw prefix gives the offset into original.
	pos := utf8.RuneCount(raw[:byteOffset])
	d.Position = pos
	d.Line, d.Column = lineAndColumn(runes, pos)
	if pos < len(runes) {
		d.ErrorChar = string(runes[pos])
	}

	lines := strings.Split(original, "\n")
	if d.Line >= 1 && d.Line <= len(lines) {
		content := lines[d.Line-1]
		pointer := Pointer(d.Column)
		d.LineContent = &content
		d.Pointer = &pointer
	}
	return d
}

// lineAndColumn returns the 1-based line and column of rune offset pos.
func lineAndColumn(runes []rune, pos int) (line, column int) {
	line = 1
	lineStart := 0
	for i := 0; i < pos && i < len(runes); i++ {
		if runes[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}
	return line, pos - lineStart + 1
}

// Pointer returns column-1 spaces followed by a caret.
func Pointer(column int) string {
	if column < 1 {
		column = 1
	}
	return strings.Repeat(" ", column-1) + "^"
}
