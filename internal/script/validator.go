package script

import (
	"encoding/json"
	"fmt"
)

// ParseError reports model output that is not well-formed JSON. The
// raw text is kept for diagnostics.
type ParseError struct {
	RawText string
	Cause   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("script output is not valid JSON: %v (response was: %s)", e.Cause, e.RawText)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// SchemaError reports well-formed JSON whose shape does not match the
// script schema.
type SchemaError struct {
	Field  string
	Detail string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("script output field %q %s", e.Field, e.Detail)
}

// Validate parses raw model output into a DemoScript and checks its
// shape: title must be present and steps must be present as an array.
// Content of the prose fields is deliberately trusted verbatim; shape
// is this component's contract, content is the model's.
func Validate(rawText string) (*DemoScript, error) {
	// Decode into a loose map first so a missing field is
	// distinguishable from a zero value.
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(rawText), &probe); err != nil {
		return nil, &ParseError{RawText: rawText, Cause: err}
	}

	// json.Unmarshal treats a literal null as a no-op, so null has to
	// be caught explicitly or it would pass for a present field.
	rawTitle, ok := probe["title"]
	if !ok || string(rawTitle) == "null" {
		return nil, &SchemaError{Field: "title", Detail: "is missing"}
	}
	var title string
	if err := json.Unmarshal(rawTitle, &title); err != nil {
		return nil, &SchemaError{Field: "title", Detail: "is not a string"}
	}

	rawSteps, ok := probe["steps"]
	if !ok || string(rawSteps) == "null" {
		return nil, &SchemaError{Field: "steps", Detail: "is missing"}
	}
	var steps []Step
	if err := json.Unmarshal(rawSteps, &steps); err != nil {
		return nil, &SchemaError{Field: "steps", Detail: "is not an array of steps"}
	}

	var s DemoScript
	if err := json.Unmarshal([]byte(rawText), &s); err != nil {
		return nil, &ParseError{RawText: rawText, Cause: err}
	}
	return &s, nil
}
