package value

import "math"

// Ops bundles the runtime-value operation surface behind a resolver so overload
// dispatch is available wherever a caller has a class
// hierarchy to consult, and absent entirely in tests that only need
// raw arithmetic. The same Ops value is used from both the bytecode
// interpreter and the native emitter, which is what makes their
// observable arithmetic identical.
type Ops struct {
	Resolver OverloadResolver
}

func (o Ops) Add(a, b Scalar) (Scalar, error) { return o.arith("+", a, b) }
func (o Ops) Sub(a, b Scalar) (Scalar, error) { return o.arith("-", a, b) }
func (o Ops) Mul(a, b Scalar) (Scalar, error) { return o.arith("*", a, b) }
func (o Ops) Div(a, b Scalar) (Scalar, error) { return o.arith("/", a, b) }
func (o Ops) Mod(a, b Scalar) (Scalar, error) { return o.arith("%", a, b) }
func (o Ops) Pow(a, b Scalar) (Scalar, error) { return o.arith("**", a, b) }

func (o Ops) arith(op string, a, b Scalar) (Scalar, error) {
	if res, ok := dispatchBinary(o.Resolver, op, a, b); ok {
		return res, nil
	}
	// Integer fast path: overflow promotes to Double rather than
	// wrapping, per.
	if a.kind == KindInt && b.kind == KindInt {
		x, y := a.i, b.i
		switch op {
		case "+":
			if r, ok := addOverflows(x, y); ok {
				return Int(r), nil
			}
			return Float(float64(x) + float64(y)), nil
		case "-":
			if r, ok := subOverflows(x, y); ok {
				return Int(r), nil
			}
			return Float(float64(x) - float64(y)), nil
		case "*":
			if r, ok := mulOverflows(x, y); ok {
				return Int(r), nil
			}
			return Float(float64(x) * float64(y)), nil
		case "/":
			if y == 0 {
				return Undef, ErrDivByZero
			}
			if x%y == 0 {
				return Int(x / y), nil
			}
			return Float(float64(x) / float64(y)), nil
		case "%":
			if y == 0 {
				return Undef, ErrModByZero
			}
			return Int(x % y), nil
		case "**":
			return intPow(x, y), nil
		}
	}
	x, y := a.Float64(), b.Float64()
	switch op {
	case "+":
		return Float(x + y), nil
	case "-":
		return Float(x - y), nil
	case "*":
		return Float(x * y), nil
	case "/":
		if y == 0 {
			return Undef, ErrDivByZero
		}
		return Float(x / y), nil
	case "%":
		if y == 0 {
			return Undef, ErrModByZero
		}
		return Float(math.Mod(x, y)), nil
	case "**":
		if x < 0 && y != math.Trunc(y) {
			return Undef, Errf("**", "domain error raising negative base to fractional power")
		}
		return Float(math.Pow(x, y)), nil
	}
	return Undef, Errf(op, "unsupported operand types")
}

func (o Ops) Negate(a Scalar) (Scalar, error) {
	if res, ok := dispatchUnaryConvert(o.Resolver, a, []string{"neg"}); ok {
		return res, nil
	}
	if a.kind == KindInt {
		if a.i == math.MinInt64 {
			return Float(-float64(a.i)), nil
		}
		return Int(-a.i), nil
	}
	return Float(-a.Float64()), nil
}

// Concat implements Perl's `.` operator; the testable invariant
// length(concat(a,b)) == length(a)+length(b) holds over string length,
// not byte length, for UTF-8 scalars, but both sides of this package
// measure bytes unless the utf8 flag is set — see Length.
func (o Ops) Concat(a, b Scalar) (Scalar, error) {
	if res, ok := dispatchBinary(o.Resolver, ".", a, b); ok {
		return res, nil
	}
	if (a.kind == KindString && a.s.utf8) || (b.kind == KindString && b.s.utf8) {
		return StrUTF8(a.String() + b.String()), nil
	}
	return Str(a.String() + b.String()), nil
}

// Repeat implements the list/string `x` operator for a string operand.
func (o Ops) Repeat(a Scalar, n int64) Scalar {
	if n <= 0 {
		return Str("")
	}
	s := a.String()
	out := make([]byte, 0, len(s)*int(n))
	for i := int64(0); i < n; i++ {
		out = append(out, s...)
	}
	return Str(string(out))
}

func (o Ops) Length(a Scalar) int64 {
	if a.kind == KindString && a.s.utf8 {
		return int64(len([]rune(string(a.s.bytes))))
	}
	return int64(len(a.String()))
}

// Substr implements Perl's three-argument substr; the four-argument
// replacement form and lvalue substr are not implemented.
func (o Ops) Substr(a Scalar, offset, length int) Scalar {
	s := a.String()
	n := len(s)
	if offset < 0 {
		offset += n
	}
	if offset < 0 {
		offset = 0
	}
	if offset > n {
		return Str("")
	}
	end := n
	if length >= 0 {
		if offset+length < end {
			end = offset + length
		}
	} else if n+length > offset {
		end = n + length
	}
	if end < offset {
		end = offset
	}
	return Str(s[offset:end])
}

func addOverflows(a, b int64) (int64, bool) {
	r := a + b
	if (r-b != a) || ((a > 0 && b > 0 && r < 0) || (a < 0 && b < 0 && r > 0)) {
		return 0, false
	}
	return r, true
}

func subOverflows(a, b int64) (int64, bool) {
	r := a - b
	if (r+b != a) || ((a >= 0 && b < 0 && r < 0) || (a < 0 && b > 0 && r > 0)) {
		return 0, false
	}
	return r, true
}

func mulOverflows(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	r := a * b
	if r/b != a {
		return 0, false
	}
	return r, true
}

func intPow(base, exp int64) Scalar {
	if exp < 0 {
		return Float(math.Pow(float64(base), float64(exp)))
	}
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			r, ok := mulOverflows(result, base)
			if !ok {
				return Float(math.Pow(float64(base), float64(exp)))
			}
			result = r
		}
		exp >>= 1
		if exp > 0 {
			b, ok := mulOverflows(base, base)
			if !ok {
				return Float(math.Pow(float64(base), float64(exp)))
			}
			base = b
		}
	}
	return Int(result)
}
