package envelope

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

const rowLenTag = "rowlen"

var (
	validateOnce    sync.Once
	schemaValidator *validator.Validate
)

func schema() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		v.RegisterStructValidation(branchRowLengths, Branch{})
		schemaValidator = v
	})
	return schemaValidator
}

// branchRowLengths reports the first row whose length differs from the
// column count. The row index travels in the error param.
func branchRowLengths(sl validator.StructLevel) {
	b := sl.Current().Interface().(Branch)
	if len(b.Columns) == 0 {
		return
	}
	for i, row := range b.Data {
		if len(row) != len(b.Columns) {
			sl.ReportError(b.Data, "data", "Data", rowLenTag, strconv.Itoa(i))
			return
		}
	}
}

// validate runs the struct schema and maps failures onto the package errors.
func validate(env *Envelope) error {
	err := schema().Struct(env)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	fe := verrs[0]
	key := branchKey(fe.Namespace())
	if fe.Tag() == rowLenTag {
		row, _ := strconv.Atoi(fe.Param())
		b := env.branch(key)
		return &ShapeError{Key: key, Row: row, Got: len(b.Data[row]), Columns: len(b.Columns)}
	}
	return fmt.Errorf("%w: %s.%s failed %q", ErrMalformedEnvelope, key, fe.Field(), fe.Tag())
}

// branchKey extracts "table" from a namespace like "Envelope.table.data".
func branchKey(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) >= 2 {
		return parts[1]
	}
	return namespace
}

func (e *Envelope) branch(key string) *Branch {
	switch key {
	case KeyTable:
		return e.Table
	case KeyBar:
		return e.Bar
	case KeyLine:
		return e.Line
	}
	return nil
}
