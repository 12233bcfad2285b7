package value

import (
	"math"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNone Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindDict
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindDict:
		return "dict"
	default:
		return "unknown"
	}
}

// Value is a template value. The set of implementations is closed: None,
// Bool, Int, Float, String, List and Dict.
type Value interface {
	String() string
	Truth() bool
	Kind() Kind
	sealed()
}

// None represents null or the absence of a value.
type None struct{}

func (None) String() string { return "" }
func (None) Truth() bool    { return false }
func (None) Kind() Kind     { return KindNone }
func (None) sealed()        {}

// Bool wraps a boolean.
type Bool bool

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (b Bool) Truth() bool { return bool(b) }
func (Bool) Kind() Kind    { return KindBool }
func (Bool) sealed()       {}

// Int wraps a 64-bit integer.
type Int int64

func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }
func (i Int) Truth() bool    { return i != 0 }
func (Int) Kind() Kind       { return KindInt }
func (Int) sealed()          {}

// Float wraps a 64-bit float.
type Float float64

func (f Float) String() string {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Truth reports false for zero and NaN.
func (f Float) Truth() bool { return f != 0 && !math.IsNaN(float64(f)) }
func (Float) Kind() Kind    { return KindFloat }
func (Float) sealed()       {}

// String wraps a string.
type String string

func (s String) String() string { return string(s) }
func (s String) Truth() bool    { return len(s) > 0 }
func (String) Kind() Kind       { return KindString }
func (String) sealed()          {}

// List is an ordered sequence of values.
type List []Value

// String joins the elements with a comma.
func (l List) String() string {
	parts := make([]string, len(l))
	for i, v := range l {
		parts[i] = Stringify(v)
	}
	return strings.Join(parts, ",")
}
func (l List) Truth() bool { return len(l) > 0 }
func (List) Kind() Kind    { return KindList }
func (List) sealed()       {}

// Dict is a string-keyed mapping of values.
type Dict map[string]Value

func (Dict) String() string { return "[object Object]" }
func (d Dict) Truth() bool  { return len(d) > 0 }
func (Dict) Kind() Kind     { return KindDict }
func (Dict) sealed()        {}

// Truthy reports whether v counts as true in a conditional. A nil Value is
// false.
func Truthy(v Value) bool {
	if v == nil {
		return false
	}
	return v.Truth()
}

// Stringify returns the canonical text form of v. A nil Value is the empty
// string.
func Stringify(v Value) string {
	if v == nil {
		return ""
	}
	return v.String()
}

// IsNone reports whether v is nil or None.
func IsNone(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(None)
	return ok
}

// Number returns v as a float64 when it is numeric or a string holding a
// number.
func Number(v Value) (float64, bool) {
	switch t := v.(type) {
	case Int:
		return float64(t), true
	case Float:
		return float64(t), true
	case String:
		s := strings.TrimSpace(string(t))
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
