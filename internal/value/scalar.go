// Package value implements the runtime value model: the tagged Scalar
// union, its arithmetic/string/comparison operations, and the
// container types (Array, Hash, Code) that own storage a Scalar can
// reference. Both the bytecode interpreter and the native emitter
// operate exclusively through this package, so a Code value backed by
// either mode is indistinguishable to its caller.
package value

import "fmt"

// Kind tags the union stored in a Scalar.
type Kind uint8

const (
	KindUndef Kind = iota
	KindInt
	KindFloat
	KindString
	KindRef
	KindGlob
	KindCode
)

func (k Kind) String() string {
	switch k {
	case KindUndef:
		return "Undef"
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindRef:
		return "Reference"
	case KindGlob:
		return "Glob"
	case KindCode:
		return "Code"
	default:
		return "?"
	}
}

// Scalar is a stack-allocatable tagged union. Int/Float/Bool-ish values
// (bools are represented as Int 0/1, Perl has no dedicated boolean
// kind) never escape to the heap; strings and references carry a
// pointer into heap-owned storage. Copying a Scalar by value copies the
// tag and payload but never the referenced storage — aliasing of
// containers is expressed through Ref/Code, not through Scalar copies.
type Scalar struct {
	kind Kind
	i    int64
	f    float64
	s    *stringData
	ref  *Reference
	glob *Glob
	code *Code
}

// stringData separates the byte payload from the UTF-8 flag so Perl's
// string/bytes duality (a string is either a byte sequence or has been
// upgraded to hold character semantics) is explicit.
type stringData struct {
	bytes []byte
	utf8  bool
}

// Undef is the zero value of Scalar — every freshly declared slot
// starts here, matching Perl's lazy default-to-undef rule.
var Undef = Scalar{kind: KindUndef}

func Int(v int64) Scalar   { return Scalar{kind: KindInt, i: v} }
func Float(v float64) Scalar { return Scalar{kind: KindFloat, f: v} }

func Bool(v bool) Scalar {
	if v {
		return Int(1)
	}
	return Str("")
}

func Str(v string) Scalar {
	return Scalar{kind: KindString, s: &stringData{bytes: []byte(v)}}
}

func StrUTF8(v string) Scalar {
	return Scalar{kind: KindString, s: &stringData{bytes: []byte(v), utf8: true}}
}

func RefOf(r *Reference) Scalar { return Scalar{kind: KindRef, ref: r} }
func GlobOf(g *Glob) Scalar     { return Scalar{kind: KindGlob, glob: g} }
func CodeOf(c *Code) Scalar     { return Scalar{kind: KindCode, code: c} }

func (s Scalar) Kind() Kind   { return s.kind }
func (s Scalar) IsUndef() bool { return s.kind == KindUndef }

// Set mutates the receiver's backing slot in place: callers must hold a pointer to the slot,
// not a copy, for aliasing to be observable. This is how
// STORE_GLOBAL_SCALAR and captured-variable writes stay visible to
// every holder of the slot.
func (dst *Scalar) Set(src Scalar) {
	*dst = src
}

// Int64 returns the value coerced to an integer per Perl's numeric
// coercion rules.
func (s Scalar) Int64() int64 {
	switch s.kind {
	case KindInt:
		return s.i
	case KindFloat:
		return int64(s.f)
	case KindString:
		return parseIntPrefix(string(s.s.bytes))
	case KindUndef:
		return 0
	default:
		return 0
	}
}

func (s Scalar) Float64() float64 {
	switch s.kind {
	case KindInt:
		return float64(s.i)
	case KindFloat:
		return s.f
	case KindString:
		return parseFloatPrefix(string(s.s.bytes))
	case KindUndef:
		return 0
	default:
		return 0
	}
}

// IsTrue implements Perl truthiness: "", "0", undef, and numeric 0 are
// false; everything else (including "0.0" and "00") is true.
func (s Scalar) IsTrue() bool {
	switch s.kind {
	case KindUndef:
		return false
	case KindInt:
		return s.i != 0
	case KindFloat:
		return s.f != 0
	case KindString:
		str := string(s.s.bytes)
		return str != "" && str != "0"
	default:
		return true
	}
}

// String renders the scalar for concatenation/interpolation/printing.
func (s Scalar) String() string {
	switch s.kind {
	case KindUndef:
		return ""
	case KindInt:
		return fmt.Sprintf("%d", s.i)
	case KindFloat:
		return formatFloat(s.f)
	case KindString:
		return string(s.s.bytes)
	case KindRef:
		return s.ref.describe()
	case KindGlob:
		return "*" + s.glob.Name
	case KindCode:
		return "CODE"
	default:
		return ""
	}
}

func formatFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

func parseIntPrefix(s string) int64 {
	var n int64
	neg := false
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		neg = s[i] == '-'
		i++
	}
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		n = n*10 + int64(s[i]-'0')
		i++
	}
	if neg {
		return -n
	}
	return n
}

func parseFloatPrefix(s string) float64 {
	var f float64
	_, _ = fmt.Sscanf(s, "%g", &f)
	return f
}
