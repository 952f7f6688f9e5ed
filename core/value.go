package core

import (
	"math"
	"strconv"
	"strings"
)

type ValueKind int

const (
	NullValue ValueKind = iota
	BoolValue
	IntValue
	FloatValue
	StringValue
)

// Epsilon is the tolerance used when comparing numeric values. Two numbers
// closer than this are considered equal regardless of their kinds.
const Epsilon = 1e-4

// Value is a closed tagged union of the literal types the engine understands.
// A Value is built once by ParseValue (or one of the constructors) and never
// mutated afterwards.
type Value struct {
	Kind  ValueKind
	Bool  bool
	Int   int64
	Float float64
	Str   string
}

func Null() Value              { return Value{Kind: NullValue} }
func NewBool(b bool) Value     { return Value{Kind: BoolValue, Bool: b} }
func NewInt(i int64) Value     { return Value{Kind: IntValue, Int: i} }
func NewFloat(f float64) Value { return Value{Kind: FloatValue, Float: f} }
func NewString(s string) Value { return Value{Kind: StringValue, Str: s} }

// ParseValue converts a literal token into a typed Value. Surrounding single
// quotes, double quotes, and backticks force a string and are stripped.
// Otherwise NULL, TRUE and FALSE are matched case-insensitively, then integer
// and floating point forms are tried, and anything left over is a string.
func ParseValue(literal string) Value {
	literal = strings.TrimSpace(literal)

	if len(literal) >= 2 {
		first, last := literal[0], literal[len(literal)-1]
		if (first == '\'' && last == '\'') ||
			(first == '"' && last == '"') ||
			(first == '`' && last == '`') {
			return NewString(literal[1 : len(literal)-1])
		}
	}

	switch strings.ToUpper(literal) {
	case "NULL", "":
		return Null()
	case "TRUE":
		return NewBool(true)
	case "FALSE":
		return NewBool(false)
	}

	if i, err := strconv.ParseInt(literal, 10, 64); err == nil {
		return NewInt(i)
	}
	if f, err := strconv.ParseFloat(literal, 64); err == nil {
		return NewFloat(f)
	}

	return NewString(literal)
}

// IsNull reports whether the value is the null literal.
func (v Value) IsNull() bool {
	return v.Kind == NullValue
}

// Numeric returns the value as a float64 when it carries a number.
func (v Value) Numeric() (float64, bool) {
	switch v.Kind {
	case IntValue:
		return float64(v.Int), true
	case FloatValue:
		return v.Float, true
	default:
		return 0, false
	}
}

// Equal implements the engine's type-aware equality: numbers compare within
// Epsilon, strings compare case-insensitively, booleans by identity, and
// null equals only null.
func (v Value) Equal(other Value) bool {
	if a, ok := v.Numeric(); ok {
		if b, ok := other.Numeric(); ok {
			return math.Abs(a-b) <= Epsilon
		}
		return false
	}

	switch v.Kind {
	case NullValue:
		return other.Kind == NullValue
	case BoolValue:
		return other.Kind == BoolValue && v.Bool == other.Bool
	case StringValue:
		return other.Kind == StringValue && strings.EqualFold(v.Str, other.Str)
	default:
		return false
	}
}

// Compare orders two values for the relational operators. When both sides
// are numeric (null counts as zero) the comparison is numeric, otherwise the
// rendered forms are compared lexicographically.
func (v Value) Compare(other Value) int {
	a, aNum := v.Numeric()
	b, bNum := other.Numeric()
	if v.IsNull() {
		a, aNum = 0, true
	}
	if other.IsNull() {
		b, bNum = 0, true
	}

	if aNum && bNum {
		switch {
		case math.Abs(a-b) <= Epsilon:
			return 0
		case a < b:
			return -1
		default:
			return 1
		}
	}

	return strings.Compare(v.String(), other.String())
}

// String renders the value in its wire and storage form. Null renders empty,
// numbers without quoting, booleans as true/false.
func (v Value) String() string {
	switch v.Kind {
	case NullValue:
		return ""
	case BoolValue:
		return strconv.FormatBool(v.Bool)
	case IntValue:
		return strconv.FormatInt(v.Int, 10)
	case FloatValue:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	default:
		return v.Str
	}
}
