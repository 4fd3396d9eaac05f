package value

// OverloadResolver is implemented by the package-namespace environment:
// it knows the class hierarchy and can find a method for a given
// class+operator pair. The value package depends only on this narrow
// interface so arithmetic stays usable from tests with no environment
// wired up at all.
type OverloadResolver interface {
	// ResolveOperator walks the method-resolution order for class,
	// returning the overload method for op, or nil if none applies at
	// any level of the fallback chain.
	ResolveOperator(class, op string) *Code
}

// overloadClass returns the bless tag of obj if it is an overload
// candidate (a blessed, overloading-enabled container), else "".
func overloadClass(s Scalar) (string, bool) {
	if s.kind != KindRef || s.ref == nil {
		return "", false
	}
	switch t := s.ref.Target.(type) {
	case *Array:
		return t.className, t.overload && t.className != ""
	case *Hash:
		return t.className, t.overload && t.className != ""
	case *Code:
		return t.className, t.overload && t.className != ""
	}
	return "", false
}

// stringifyFallbacks/numifyFallbacks/boolifyFallbacks give the fixed
// precedence for implicit conversion: try the exact overload first,
// then fall back through the other conversion operators in the order
// Perl's overload.pm does.
var stringifyFallbacks = []string{`""`, `0+`, `bool`}
var numifyFallbacks = []string{`0+`, `""`, `bool`}
var boolifyFallbacks = []string{`bool`, `""`, `0+`}

// dispatchUnaryConvert tries class's overload chain for a conversion
// op ("" for stringify, "0+" for numify, "bool" for boolify). Returns
// ok=false when nothing in the chain applies, telling the caller to
// fall through to the built-in conversion.
func dispatchUnaryConvert(r OverloadResolver, s Scalar, chain []string) (Scalar, bool) {
	class, ok := overloadClass(s)
	if !ok || r == nil {
		return Undef, false
	}
	for _, op := range chain {
		if m := r.ResolveOperator(class, op); m != nil {
			args := NewArray(s, Undef, Bool(false))
			res, err := m.Call(args, CtxScalar)
			if err != nil || len(res) == 0 {
				return Undef, false
			}
			return res[0], true
		}
	}
	return Undef, false
}

// dispatchBinary tries a's then b's overload chain for a binary
// operator. The third positional argument signals operand order to
// the overload method, matching Perl's overload protocol (a boolean,
// true when operands were swapped).
func dispatchBinary(r OverloadResolver, op string, a, b Scalar) (Scalar, bool) {
	if r == nil {
		return Undef, false
	}
	if class, ok := overloadClass(a); ok {
		if m := r.ResolveOperator(class, op); m != nil {
			res, err := m.Call(NewArray(a, b, Bool(false)), CtxScalar)
			if err == nil && len(res) > 0 {
				return res[0], true
			}
		}
	}
	if class, ok := overloadClass(b); ok {
		if m := r.ResolveOperator(class, op); m != nil {
			res, err := m.Call(NewArray(b, a, Bool(true)), CtxScalar)
			if err == nil && len(res) > 0 {
				return res[0], true
			}
		}
	}
	return Undef, false
}
