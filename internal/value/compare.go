package value

import "strings"

// Cmp implements numeric comparison (<=>) with overload dispatch.
func (o Ops) Cmp(a, b Scalar) int {
	if res, ok := dispatchBinary(o.Resolver, "<=>", a, b); ok {
		return int(res.Int64())
	}
	x, y := a.Float64(), b.Float64()
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

// Lcmp implements lexical comparison (cmp).
func (o Ops) Lcmp(a, b Scalar) int {
	if res, ok := dispatchBinary(o.Resolver, "cmp", a, b); ok {
		return int(res.Int64())
	}
	return strings.Compare(a.String(), b.String())
}

func (o Ops) NumEq(a, b Scalar) bool { return o.Cmp(a, b) == 0 }
func (o Ops) NumNe(a, b Scalar) bool { return o.Cmp(a, b) != 0 }
func (o Ops) NumLt(a, b Scalar) bool { return o.Cmp(a, b) < 0 }
func (o Ops) NumLe(a, b Scalar) bool { return o.Cmp(a, b) <= 0 }
func (o Ops) NumGt(a, b Scalar) bool { return o.Cmp(a, b) > 0 }
func (o Ops) NumGe(a, b Scalar) bool { return o.Cmp(a, b) >= 0 }

func (o Ops) StrEq(a, b Scalar) bool { return o.Lcmp(a, b) == 0 }
func (o Ops) StrNe(a, b Scalar) bool { return o.Lcmp(a, b) != 0 }
func (o Ops) StrLt(a, b Scalar) bool { return o.Lcmp(a, b) < 0 }
func (o Ops) StrLe(a, b Scalar) bool { return o.Lcmp(a, b) <= 0 }
func (o Ops) StrGt(a, b Scalar) bool { return o.Lcmp(a, b) > 0 }
func (o Ops) StrGe(a, b Scalar) bool { return o.Lcmp(a, b) >= 0 }

// Bool converts a to Perl truthiness, consulting an overloaded `bool`
// method first.
func (o Ops) Bool(a Scalar) bool {
	if res, ok := dispatchUnaryConvert(o.Resolver, a, boolifyFallbacks); ok {
		return res.IsTrue()
	}
	return a.IsTrue()
}

// ToStringOverloaded stringifies a, consulting `""` overload first —
// this is what powers "value: $ref" style string interpolation for a
// blessed reference.
func (o Ops) ToStringOverloaded(a Scalar) string {
	if res, ok := dispatchUnaryConvert(o.Resolver, a, stringifyFallbacks); ok {
		return res.String()
	}
	return a.String()
}

func (o Ops) ToNumOverloaded(a Scalar) float64 {
	if res, ok := dispatchUnaryConvert(o.Resolver, a, numifyFallbacks); ok {
		return res.Float64()
	}
	return a.Float64()
}
