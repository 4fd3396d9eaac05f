package value

import "testing"

func TestArithCommutative(t *testing.T) {
	o := Ops{}
	cases := []struct{ a, b Scalar }{
		{Int(3), Int(4)},
		{Float(1.5), Int(2)},
		{Int(-7), Float(2.25)},
	}
	for _, c := range cases {
		ab, err := o.Add(c.a, c.b)
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		ba, err := o.Add(c.b, c.a)
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		if ab.Float64() != ba.Float64() {
			t.Errorf("add not commutative: %v vs %v", ab, ba)
		}
	}
}

func TestSubNegateRelation(t *testing.T) {
	o := Ops{}
	a, b := Int(10), Int(3)
	ab, _ := o.Sub(a, b)
	ba, _ := o.Sub(b, a)
	negBA, _ := o.Negate(ba)
	if ab.Float64() != negBA.Float64() {
		t.Errorf("sub(a,b) != negate(sub(b,a)): %v vs %v", ab, negBA)
	}
}

func TestConcatLength(t *testing.T) {
	o := Ops{}
	a, b := Str("hello"), Str(" world")
	c, _ := o.Concat(a, b)
	if o.Length(c) != o.Length(a)+o.Length(b) {
		t.Errorf("length(concat) = %d, want %d", o.Length(c), o.Length(a)+o.Length(b))
	}
}

func TestDivByZero(t *testing.T) {
	o := Ops{}
	if _, err := o.Div(Int(1), Int(0)); err == nil {
		t.Fatal("expected division-by-zero error")
	}
}

func TestIntOverflowPromotesToFloat(t *testing.T) {
	o := Ops{}
	big := Int(1<<62 | 1)
	r, err := o.Add(big, big)
	if err != nil {
		t.Fatal(err)
	}
	if r.Kind() != KindFloat {
		t.Errorf("expected overflow to promote to Float, got %v", r.Kind())
	}
}

func TestTruthiness(t *testing.T) {
	cases := []struct {
		s    Scalar
		want bool
	}{
		{Undef, false},
		{Str(""), false},
		{Str("0"), false},
		{Str("0.0"), true},
		{Str("00"), true},
		{Int(0), false},
		{Int(1), true},
	}
	for _, c := range cases {
		if got := c.s.IsTrue(); got != c.want {
			t.Errorf("IsTrue(%v) = %v, want %v", c.s, got, c.want)
		}
	}
}

// fakeResolver implements OverloadResolver for a single class/op pair.
type fakeResolver struct {
	class, op string
	fn        *Code
}

func (f *fakeResolver) ResolveOperator(class, op string) *Code {
	if class == f.class && op == f.op {
		return f.fn
	}
	return nil
}

func TestOverloadStringify(t *testing.T) {
	stringify := &Code{Apply: func(args *Array, ctx CallContext) ([]Scalar, error) {
		return []Scalar{Str("hello")}, nil
	}}
	a := NewArray()
	a.Bless("MyClass", 1, true)
	ref := RefOf(NewRef(a, ObjArray))
	o := Ops{Resolver: &fakeResolver{class: "MyClass", op: `""`, fn: stringify}}
	if got := o.ToStringOverloaded(ref); got != "hello" {
		t.Errorf("ToStringOverloaded = %q, want %q", got, "hello")
	}
}

func TestArraySetSemantics(t *testing.T) {
	a := NewArray(Int(1), Int(2), Int(3))
	slot := a.Slot(1)
	slot.Set(Int(99))
	if a.Get(1).Int64() != 99 {
		t.Errorf("Slot mutation not visible through Array, got %v", a.Get(1))
	}
}

func TestWeakRefAfterClear(t *testing.T) {
	arr := NewArray(Int(1))
	strong := NewRef(arr, ObjArray)
	weak := strong.Weak()
	if _, ok := weak.Deref(); !ok {
		t.Fatal("expected live weak ref")
	}
	weak.Clear()
	if _, ok := weak.Deref(); ok {
		t.Fatal("expected dead weak ref to report false")
	}
}
