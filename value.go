package warpscript

import (
	"fmt"
	"math"
	"strings"
)

// Value is the tagged union pushed and popped on a Stack, per §3: integers
// and doubles are distinct tags (no silent widening), and every concrete
// type below is the only thing allowed to satisfy the interface — callers
// switch on the concrete type rather than probing capability interfaces,
// the way the teacher's Result variants are closed over a small, known set.
type Value interface {
	isValue()
	// String renders the value the way TOSTRING and error messages display it.
	String() string
}

// Int is a 64-bit signed integer value.
type Int int64

func (Int) isValue()        {}
func (v Int) String() string { return fmt.Sprintf("%d", int64(v)) }

// Float is an IEEE-754 double value, kept distinct from Int at all times.
type Float float64

func (Float) isValue() {}
func (v Float) String() string {
	f := float64(v)
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	default:
		return fmt.Sprintf("%g", f)
	}
}

// Bool is a boolean value.
type Bool bool

func (Bool) isValue()         {}
func (v Bool) String() string { return fmt.Sprintf("%t", bool(v)) }

// Str is a UTF-8 string value.
type Str string

func (Str) isValue() {}
func (v Str) String() string { return string(v) }

// Null is the singleton absent/null value.
type Null struct{}

func (Null) isValue()        {}
func (Null) String() string { return "NULL" }

// Nil is the single Null instance; callers compare against it with ==
// (Null carries no fields) or with IsNull.
var Nil = Null{}

// IsNull reports whether v is the null value.
func IsNull(v Value) bool {
	_, ok := v.(Null)
	return ok
}

// Opaque wraps a host-supplied domain object (an aggregator, a context
// snapshot, a geo shape, ...) that the engine itself never inspects, per
// §3's "opaque domain object" variant. Kind is a host-chosen tag used only
// for diagnostics; Data is never touched by the engine.
type Opaque struct {
	Kind string
	Data interface{}
}

func (Opaque) isValue() {}
func (o Opaque) String() string {
	if o.Kind == "" {
		return "<opaque>"
	}
	return fmt.Sprintf("<%s>", o.Kind)
}

// typeName returns the short type tag used in type-mismatch error messages.
func typeName(v Value) string {
	switch v.(type) {
	case Int:
		return "INTEGER"
	case Float:
		return "FLOAT"
	case Bool:
		return "BOOLEAN"
	case Str:
		return "STRING"
	case Null:
		return "NULL"
	case *Macro:
		return "MACRO"
	case *FunctionRef:
		return "FUNCTION"
	case Opaque:
		return "OPAQUE"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// isNumeric reports whether v is an Int or a Float.
func isNumeric(v Value) bool {
	switch v.(type) {
	case Int, Float:
		return true
	}
	return false
}

// asFloat widens an Int or Float to a float64 for comparison purposes.
// It panics if v is not numeric; callers must guard with isNumeric first.
func asFloat(v Value) float64 {
	switch n := v.(type) {
	case Int:
		return float64(n)
	case Float:
		return float64(n)
	}
	panic("asFloat: not numeric")
}

// compareOp identifies which relational operator Compare is evaluating, so
// that the NaN special case (grounded in the original GE.java: NaN,NaN is
// true for reflexive relations but false for strict ones) can be applied
// uniformly across EQ/NE/LT/LE/GT/GE.
type compareOp int

const (
	opEQ compareOp = iota
	opNE
	opLT
	opLE
	opGT
	opGE
)

func (op compareOp) name() string {
	switch op {
	case opEQ:
		return "=="
	case opNE:
		return "!="
	case opLT:
		return "<"
	case opLE:
		return "<="
	case opGT:
		return ">"
	case opGE:
		return ">="
	}
	return "?"
}

// reflexive reports whether op is one where NaN compares equal to itself
// (=, <=, >=), as opposed to strict order relations (<, >) where it never
// does, per the original GE.java's "NaN,NaN -> TRUE but only for this
// specific relation" comment.
func (op compareOp) reflexive() bool {
	switch op {
	case opEQ, opLE, opGE:
		return true
	}
	return false
}

// Compare evaluates a and b under op, per §4.1's homogeneous-comparison
// rule: both operands must be numeric (Int or Float, freely mixed) or both
// must be Str; any other pairing is a type error naming the operator, and
// NaN is handled exactly as the original GE.java does it.
func Compare(op compareOp, a, b Value) (bool, error) {
	switch {
	case isNumeric(a) && isNumeric(b):
		return compareNumeric(op, asFloat(a), asFloat(b)), nil
	case isStr(a) && isStr(b):
		return compareString(op, string(a.(Str)), string(b.(Str))), nil
	default:
		return false, typeErrorf("%s can only operate on homogeneous numeric or string types", op.name())
	}
}

func isStr(v Value) bool {
	_, ok := v.(Str)
	return ok
}

func compareNumeric(op compareOp, a, b float64) bool {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	if aNaN || bNaN {
		if aNaN && bNaN {
			return op.reflexive()
		}
		// Exactly one operand is NaN: every relation is false except !=,
		// which is true (nothing compares equal to NaN but itself).
		return op == opNE
	}
	switch op {
	case opEQ:
		return a == b
	case opNE:
		return a != b
	case opLT:
		return a < b
	case opLE:
		return a <= b
	case opGT:
		return a > b
	case opGE:
		return a >= b
	}
	return false
}

func compareString(op compareOp, a, b string) bool {
	c := strings.Compare(a, b)
	switch op {
	case opEQ:
		return c == 0
	case opNE:
		return c != 0
	case opLT:
		return c < 0
	case opLE:
		return c <= 0
	case opGT:
		return c > 0
	case opGE:
		return c >= 0
	}
	return false
}

// Truthy applies the engine's boolean-coercion rule: only Bool(true) is
// truthy; every other value (including Int/Float, per §3's "no implicit
// numeric truthiness") is falsy unless it is explicitly Bool(true).
func Truthy(v Value) bool {
	b, ok := v.(Bool)
	return ok && bool(b)
}
