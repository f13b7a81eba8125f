package store

import (
	"database/sql/driver"
	"fmt"
)

// ArgKind is the engine storage class an Arg binds as.
type ArgKind int

// Supported argument kinds.
const (
	ArgNull ArgKind = iota
	ArgText
	ArgBool
	ArgReal
)

func (k ArgKind) String() string {
	switch k {
	case ArgText:
		return "text"
	case ArgBool:
		return "bool"
	case ArgReal:
		return "real"
	default:
		return "null"
	}
}

// Arg is one bound statement argument.
//
// Arg implements driver.Valuer so it is handed to the engine as-is:
// text as string, bool as integer 0/1, real as float64, null as nil.
// A bool therefore reads back as an integer.
type Arg struct {
	Kind ArgKind
	Text string
	Bool bool
	Real float64
}

// Text returns a text argument.
func Text(s string) Arg { return Arg{Kind: ArgText, Text: s} }

// Bool returns a boolean argument, bound as integer 1 or 0.
func Bool(b bool) Arg { return Arg{Kind: ArgBool, Bool: b} }

// Real returns a floating-point argument.
func Real(f float64) Arg { return Arg{Kind: ArgReal, Real: f} }

// Null returns a null argument.
func Null() Arg { return Arg{Kind: ArgNull} }

// Value implements driver.Valuer.
func (a Arg) Value() (driver.Value, error) {
	switch a.Kind {
	case ArgText:
		return a.Text, nil
	case ArgBool:
		if a.Bool {
			return int64(1), nil
		}
		return int64(0), nil
	case ArgReal:
		return a.Real, nil
	default:
		return nil, nil
	}
}

// Bind converts caller arguments to engine arguments.
//
// Each argument is dispatched by its runtime type: string binds as text,
// bool as integer 1/0, float64 and float32 as real, and untyped nil as null.
// Arg values pass through unchanged. Any other type, including integers,
// byte slices, and typed nil pointers, fails with a *BindTypeError naming
// the 1-based position. No coercion is attempted.
//
// Bind runs before any statement reaches the engine, so a type error never
// causes partial execution.
func Bind(args []any) ([]Arg, error) {
	bound := make([]Arg, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case nil:
			bound[i] = Null()
		case string:
			bound[i] = Text(v)
		case bool:
			bound[i] = Bool(v)
		case float64:
			bound[i] = Real(v)
		case float32:
			bound[i] = Real(float64(v))
		case Arg:
			bound[i] = v
		default:
			return nil, &BindTypeError{Index: i + 1, Type: fmt.Sprintf("%T", arg)}
		}
	}
	return bound, nil
}

// bindValues binds args and returns them in the form database/sql expects.
func bindValues(args []any) ([]any, error) {
	bound, err := Bind(args)
	if err != nil {
		return nil, err
	}
	values := make([]any, len(bound))
	for i, a := range bound {
		values[i] = a
	}
	return values, nil
}
