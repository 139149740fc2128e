package envelope

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestDecodeAnswerOnly(t *testing.T) {
	env, err := Decode(`{"answer": "42"}`)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if env.Answer == nil || *env.Answer != "42" {
		t.Fatalf("Answer = %v, want 42", env.Answer)
	}
	if got := strings.Join(env.Keys(), ","); got != "answer" {
		t.Errorf("Keys = %s, want answer", got)
	}
}

func TestDecodeAnswerScalars(t *testing.T) {
	tests := map[string]string{
		`{"answer": 42}`:   "42",
		`{"answer": 2.50}`: "2.50",
		`{"answer": true}`: "true",
		`{"answer": null}`: "",
	}
	for in, want := range tests {
		env, err := Decode(in)
		if err != nil {
			t.Errorf("Decode(%s): %v", in, err)
			continue
		}
		if *env.Answer != want {
			t.Errorf("Decode(%s).Answer = %q, want %q", in, *env.Answer, want)
		}
	}
}

func TestDecodeTable(t *testing.T) {
	env, err := Decode(`{"table":{"columns":["name","sales"],"data":[["A",10],["B",20]]}}`)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	f, err := env.Table.Frame(KeyTable)
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if f.NumRows() != 2 || f.NumColumns() != 2 {
		t.Fatalf("frame is %dx%d, want 2x2", f.NumRows(), f.NumColumns())
	}
	if f.Rows[0][0] != "A" || f.Rows[1][0] != "B" {
		t.Errorf("labels = %v %v", f.Rows[0][0], f.Rows[1][0])
	}
	n, ok := f.Rows[1][1].(json.Number)
	if !ok || n.String() != "20" {
		t.Errorf("Rows[1][1] = %#v, want json.Number 20", f.Rows[1][1])
	}
}

func TestDecodeKeepsNumberText(t *testing.T) {
	env, err := Decode(`{"line":{"columns":["x","y"],"data":[[1,1.10],[2,12345678901234567890]]}}`)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := Text(env.Line.Data[0][1]); got != "1.10" {
		t.Errorf("cell = %s, want 1.10", got)
	}
	if got := Text(env.Line.Data[1][1]); got != "12345678901234567890" {
		t.Errorf("cell = %s, want the original digits", got)
	}
}

func TestDecodeMultipleKeys(t *testing.T) {
	env, err := Decode(`{
		"answer": "Sales rose",
		"bar": {"columns": ["month", "sales"], "data": [["Jan", 1], ["Feb", 2]]},
		"line": {"columns": ["month", "sales"], "data": [["Jan", 1], ["Feb", 2]]},
		"table": {"columns": ["month"], "data": [["Jan"]]}
	}`)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := strings.Join(env.Keys(), ","); got != "answer,table,bar,line" {
		t.Errorf("Keys = %s", got)
	}
}

func TestDecodeFlatBarRow(t *testing.T) {
	env, err := Decode(`{"bar":{"columns":["A","B","C"],"data":[25,24,10]}}`)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(env.Bar.Data) != 1 || len(env.Bar.Data[0]) != 3 {
		t.Fatalf("Data = %v, want one row of three", env.Bar.Data)
	}

	if _, err := Decode(`{"table":{"columns":["A","B"],"data":[1,2]}}`); !errors.Is(err, ErrMalformedEnvelope) {
		t.Errorf("flat table data err = %v, want ErrMalformedEnvelope", err)
	}
}

func TestDecodeShapeMismatch(t *testing.T) {
	_, err := Decode(`{"answer":"ok","bar":{"columns":["a","b"],"data":[["x",1],["y"]]}}`)
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("err = %v, want ErrShapeMismatch", err)
	}
	var se *ShapeError
	if !errors.As(err, &se) {
		t.Fatalf("err is %T, want *ShapeError", err)
	}
	if se.Key != KeyBar || se.Row != 1 || se.Got != 1 || se.Columns != 2 {
		t.Errorf("ShapeError = %+v", se)
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not_json", `The answer is 42`},
		{"array", `[1,2,3]`},
		{"null", `null`},
		{"trailing", `{"answer":"a"} extra`},
		{"answer_object", `{"answer":{"x":1}}`},
		{"columns_missing", `{"table":{"data":[[1]]}}`},
		{"columns_empty", `{"table":{"columns":[],"data":[]}}`},
		{"data_missing", `{"bar":{"columns":["a"]}}`},
		{"row_not_array", `{"table":{"columns":["a"],"data":[{"a":1}]}}`},
		{"branch_not_object", `{"line":"oops"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.input); !errors.Is(err, ErrMalformedEnvelope) {
				t.Fatalf("err = %v, want ErrMalformedEnvelope", err)
			}
		})
	}
}

func TestDecodeNoRecognizedKeys(t *testing.T) {
	env, err := Decode(`{"result": "something"}`)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !env.IsEmpty() {
		t.Errorf("expected empty envelope, got keys %v", env.Keys())
	}
}

func TestDecodeEmptyData(t *testing.T) {
	env, err := Decode(`{"table":{"columns":["a"],"data":[]}}`)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	f, err := env.Table.Frame(KeyTable)
	if err != nil || f.NumRows() != 0 {
		t.Errorf("Frame = %v, %v; want zero rows", f, err)
	}
}

func TestNewFrameShapeMismatch(t *testing.T) {
	_, err := NewFrame([]string{"a", "b"}, [][]any{{"x"}})
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("err = %v, want ErrShapeMismatch", err)
	}
}

func TestFloat(t *testing.T) {
	if f, ok := Float(json.Number("2.5")); !ok || f != 2.5 {
		t.Errorf("Float(json.Number) = %v, %v", f, ok)
	}
	if _, ok := Float("north"); ok {
		t.Error("Float(\"north\") reported numeric")
	}
	if _, ok := Float(nil); ok {
		t.Error("Float(nil) reported numeric")
	}
}
