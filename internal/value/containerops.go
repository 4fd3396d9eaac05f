package value

// Deref helpers turn a Reference scalar into the concrete container it
// points at, raising the catchable "dereferencing a non-reference"
// error names when the kind doesn't match.

func (o Ops) AsArray(s Scalar) (*Array, error) {
	if s.kind != KindRef {
		return nil, Errf("deref", "not an ARRAY reference")
	}
	a, ok := s.ref.Target.(*Array)
	if !ok {
		return nil, Errf("deref", "not an ARRAY reference")
	}
	return a, nil
}

func (o Ops) AsHash(s Scalar) (*Hash, error) {
	if s.kind != KindRef {
		return nil, Errf("deref", "not a HASH reference")
	}
	h, ok := s.ref.Target.(*Hash)
	if !ok {
		return nil, Errf("deref", "not a HASH reference")
	}
	return h, nil
}

func (o Ops) AsCode(s Scalar) (*Code, error) {
	if s.kind == KindCode {
		return s.code, nil
	}
	if s.kind == KindRef {
		if c, ok := s.ref.Target.(*Code); ok {
			return c, nil
		}
	}
	return nil, ErrNotCallable
}

func (o Ops) AsScalarCell(s Scalar) (*Scalar, error) {
	if s.kind != KindRef {
		return nil, ErrNotRef
	}
	c, ok := s.ref.Target.(*Scalar)
	if !ok {
		return nil, ErrNotRef
	}
	return c, nil
}

// --- Bitwise -----------------------------------------------------------

func (o Ops) Band(a, b Scalar) Scalar { return Int(a.Int64() & b.Int64()) }
func (o Ops) Bor(a, b Scalar) Scalar  { return Int(a.Int64() | b.Int64()) }
func (o Ops) Bxor(a, b Scalar) Scalar { return Int(a.Int64() ^ b.Int64()) }
func (o Ops) Bnot(a Scalar) Scalar    { return Int(^a.Int64()) }
func (o Ops) Shl(a, b Scalar) Scalar  { return Int(a.Int64() << uint(b.Int64())) }
func (o Ops) Shr(a, b Scalar) Scalar  { return Int(a.Int64() >> uint(b.Int64())) }
