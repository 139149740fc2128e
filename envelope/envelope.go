// Package envelope decodes the JSON object the analysis agent returns. The
// object carries up to four optional branches (answer, table, bar, line) and
// every present branch is validated before anything is rendered.
package envelope

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	// ErrMalformedEnvelope is returned when the text is not a single JSON
	// object or a branch has the wrong JSON type.
	ErrMalformedEnvelope = errors.New("malformed response envelope")

	// ErrShapeMismatch is returned when a data row does not line up with
	// its columns.
	ErrShapeMismatch = errors.New("row length does not match columns")
)

// Branch names in render order.
const (
	KeyAnswer = "answer"
	KeyTable  = "table"
	KeyBar    = "bar"
	KeyLine   = "line"
)

// Branch is a columns+data block shared by the table, bar and line keys.
type Branch struct {
	Columns []string `json:"columns" validate:"required,min=1"`
	Data    [][]any  `json:"data" validate:"required"`
}

// Envelope is the decoded response. Nil fields were absent.
type Envelope struct {
	Answer *string `json:"answer,omitempty"`
	Table  *Branch `json:"table,omitempty"`
	Bar    *Branch `json:"bar,omitempty"`
	Line   *Branch `json:"line,omitempty"`
}

// Keys lists the present branches in render order.
func (e *Envelope) Keys() []string {
	var keys []string
	if e.Answer != nil {
		keys = append(keys, KeyAnswer)
	}
	if e.Table != nil {
		keys = append(keys, KeyTable)
	}
	if e.Bar != nil {
		keys = append(keys, KeyBar)
	}
	if e.Line != nil {
		keys = append(keys, KeyLine)
	}
	return keys
}

// IsEmpty reports whether no recognized key was present.
func (e *Envelope) IsEmpty() bool {
	return len(e.Keys()) == 0
}

// ShapeError pinpoints the first misaligned row of a branch.
type ShapeError struct {
	Key     string
	Row     int
	Got     int
	Columns int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s.data[%d] has %d values, %s.columns has %d", e.Key, e.Row, e.Got, e.Key, e.Columns)
}

func (e *ShapeError) Unwrap() error { return ErrShapeMismatch }

// Decode parses and validates one envelope. Unknown top-level keys are
// ignored; an object without any recognized key decodes to an empty
// envelope. Numbers are kept as json.Number.
func Decode(text string) (*Envelope, error) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrMalformedEnvelope)
	}
	raw := map[string]json.RawMessage{}
	if err := decodeStrict([]byte(trimmed), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	env := &Envelope{}
	if msg, ok := raw[KeyAnswer]; ok {
		answer, err := decodeAnswer(msg)
		if err != nil {
			return nil, fmt.Errorf("%w: answer: %v", ErrMalformedEnvelope, err)
		}
		env.Answer = &answer
	}

	branches := []struct {
		key     string
		dst     **Branch
		flatRow bool
	}{
		{KeyTable, &env.Table, false},
		{KeyBar, &env.Bar, true},
		{KeyLine, &env.Line, true},
	}
	for _, b := range branches {
		msg, ok := raw[b.key]
		if !ok {
			continue
		}
		branch, err := decodeBranch(msg, b.flatRow)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedEnvelope, b.key, err)
		}
		*b.dst = branch
	}

	if err := validate(env); err != nil {
		return nil, err
	}
	return env, nil
}

// decodeStrict decodes exactly one JSON value into v with UseNumber.
func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("unexpected data after the JSON object")
	}
	return nil
}

// decodeAnswer accepts any JSON scalar and returns its text.
func decodeAnswer(msg json.RawMessage) (string, error) {
	var v any
	if err := decodeStrict(msg, &v); err != nil {
		return "", err
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		return strconv.FormatBool(t), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected a string, got %T", v)
	}
}

type rawBranch struct {
	Columns []json.RawMessage `json:"columns"`
	Data    []json.RawMessage `json:"data"`
}

// decodeBranch decodes columns and data. When flatRow is set and every data
// element is a scalar, data is read as one row (the bar/line shorthand
// {"columns":["A","B"],"data":[1,2]}).
func decodeBranch(msg json.RawMessage, flatRow bool) (*Branch, error) {
	var rb rawBranch
	if err := decodeStrict(msg, &rb); err != nil {
		return nil, err
	}

	b := &Branch{}
	if rb.Columns != nil {
		b.Columns = make([]string, 0, len(rb.Columns))
		for i, c := range rb.Columns {
			name, err := decodeAnswer(c)
			if err != nil {
				return nil, fmt.Errorf("columns[%d]: %v", i, err)
			}
			b.Columns = append(b.Columns, name)
		}
	}
	if rb.Data == nil {
		return b, nil
	}

	if flatRow && len(rb.Data) > 0 && allScalars(rb.Data) {
		row := make([]any, 0, len(rb.Data))
		for _, cell := range rb.Data {
			var v any
			if err := decodeStrict(cell, &v); err != nil {
				return nil, err
			}
			row = append(row, v)
		}
		b.Data = [][]any{row}
		return b, nil
	}

	b.Data = make([][]any, 0, len(rb.Data))
	for i, r := range rb.Data {
		var row []any
		if err := decodeStrict(r, &row); err != nil {
			return nil, fmt.Errorf("data[%d]: expected an array: %v", i, err)
		}
		if row == nil {
			return nil, fmt.Errorf("data[%d]: expected an array, got null", i)
		}
		b.Data = append(b.Data, row)
	}
	return b, nil
}

func allScalars(items []json.RawMessage) bool {
	for _, item := range items {
		trimmed := bytes.TrimSpace(item)
		if len(trimmed) == 0 || trimmed[0] == '[' || trimmed[0] == '{' {
			return false
		}
	}
	return true
}
