package value

import "sync/atomic"

// ObjectType enumerates the container kinds that can be blessed.
type ObjectType uint8

const (
	ObjArray ObjectType = iota
	ObjHash
	ObjCode
	ObjScalarCell
	// ObjControl tags a Reference whose Target is a non-local
	// control-flow marker rather than a real container.
	// It is never blessed and never observable from Perl-level code;
	// it is an implementation channel riding the same Scalar/Reference
	// machinery so a Code.Apply return value can carry either a normal
	// result list or an in-flight last/next/redo/goto/tail-call signal
	// without the value package importing the package that defines the
	// marker shape.
	ObjControl
	// ObjWeak tags a Reference whose Target is a *WeakRef rather than a
	// container directly, the scalar shape \weaken(...) produces.
	ObjWeak
)

// classID is an opaque handle assigned by the environment's
// class-name table; the value package never needs the string.
type classID int32

// blessTag is embedded in every owned container so arbitrary Perl refs
// can be blessed without a separate side table.
type blessTag struct {
	class     classID
	className string // kept alongside the id for cheap Inspect/ref() without a table lookup
	overload  bool   // set when class has overloaded operators
}

func (b *blessTag) Bless(class string, id int32, overloaded bool) {
	b.className = class
	b.class = classID(id)
	b.overload = overloaded
}

func (b *blessTag) ClassName() string { return b.className }
func (b *blessTag) IsBlessed() bool   { return b.className != "" }
func (b *blessTag) Overloaded() bool  { return b.overload }

// Array is an owned, ordered sequence of Scalar — distinct from a
// transient List, which is never separately owned storage.
type Array struct {
	blessTag
	elems []Scalar
}

func NewArray(elems ...Scalar) *Array { return &Array{elems: append([]Scalar(nil), elems...)} }

func (a *Array) Len() int { return len(a.elems) }

func (a *Array) Get(i int) Scalar {
	if i < 0 || i >= len(a.elems) {
		return Undef
	}
	return a.elems[i]
}

// Slot returns a pointer into backing storage so callers can mutate in
// place (value-set semantics) rather than replace the element.
func (a *Array) Slot(i int) *Scalar {
	for i >= len(a.elems) {
		a.elems = append(a.elems, Undef)
	}
	if i < 0 {
		return &Undef
	}
	return &a.elems[i]
}

func (a *Array) Push(vals ...Scalar) { a.elems = append(a.elems, vals...) }

func (a *Array) Pop() Scalar {
	if len(a.elems) == 0 {
		return Undef
	}
	v := a.elems[len(a.elems)-1]
	a.elems = a.elems[:len(a.elems)-1]
	return v
}

func (a *Array) Shift() Scalar {
	if len(a.elems) == 0 {
		return Undef
	}
	v := a.elems[0]
	a.elems = a.elems[1:]
	return v
}

func (a *Array) Unshift(vals ...Scalar) {
	a.elems = append(append([]Scalar(nil), vals...), a.elems...)
}

// Splice mutates the array in place and returns the removed elements,
// matching Perl's splice(@arr, offset, length, replacement...).
func (a *Array) Splice(offset, length int, repl []Scalar) []Scalar {
	if offset < 0 {
		offset += len(a.elems)
	}
	if offset < 0 {
		offset = 0
	}
	if offset > len(a.elems) {
		offset = len(a.elems)
	}
	end := offset + length
	if end > len(a.elems) || length < 0 {
		end = len(a.elems)
	}
	removed := append([]Scalar(nil), a.elems[offset:end]...)
	tail := append([]Scalar(nil), a.elems[end:]...)
	a.elems = append(append(a.elems[:offset], repl...), tail...)
	return removed
}

func (a *Array) Slice(from, to int) []Scalar {
	if from < 0 {
		from = 0
	}
	if to > len(a.elems) {
		to = len(a.elems)
	}
	if from >= to {
		return nil
	}
	return append([]Scalar(nil), a.elems[from:to]...)
}

func (a *Array) Values() []Scalar { return a.elems }

// Hash is an owned string-keyed map. Perl semantics don't require
// iteration order, but insertion order is preserved for stable
// debugging output, same rationale as
type Hash struct {
	blessTag
	keys   []string
	values map[string]*Scalar
}

func NewHash() *Hash { return &Hash{values: make(map[string]*Scalar)} }

func (h *Hash) Get(key string) Scalar {
	if s, ok := h.values[key]; ok {
		return *s
	}
	return Undef
}

func (h *Hash) Exists(key string) bool {
	_, ok := h.values[key]
	return ok
}

// Slot creates the key on demand (with Undef) and returns a pointer to
// its storage, mirroring Array.Slot's in-place-mutation contract.
func (h *Hash) Slot(key string) *Scalar {
	if s, ok := h.values[key]; ok {
		return s
	}
	s := new(Scalar)
	h.values[key] = s
	h.keys = append(h.keys, key)
	return s
}

func (h *Hash) Set(key string, v Scalar) { h.Slot(key).Set(v) }

func (h *Hash) Delete(key string) Scalar {
	s, ok := h.values[key]
	if !ok {
		return Undef
	}
	v := *s
	delete(h.values, key)
	for i, k := range h.keys {
		if k == key {
			h.keys = append(h.keys[:i], h.keys[i+1:]...)
			break
		}
	}
	return v
}

func (h *Hash) Keys() []string { return append([]string(nil), h.keys...) }

func (h *Hash) Len() int { return len(h.keys) }

// Code is an invocable subroutine. The value package never inspects
// how it was compiled, only forwards apply calls through the Apply hook
// that the owning backend installs — this is the keystone that lets the
// interpreter and the native emitter call each other's subs
// transparently.
type Code struct {
	blessTag
	Name string
	// Apply is installed once by whichever backend constructed the
	// Code value. args is an owned Array (the callee may mutate it,
	// e.g. via shift/pop on @_); ctx is the calling context tag.
	Apply func(args *Array, ctx CallContext) ([]Scalar, error)
}

func (c *Code) Call(args *Array, ctx CallContext) ([]Scalar, error) {
	if c.Apply == nil {
		return nil, ErrNotCallable
	}
	return c.Apply(args, ctx)
}

// CallContext mirrors ast.CallContext without importing the ast
// package — the value model must not depend on the tree shape.
type CallContext uint8

const (
	CtxVoid CallContext = iota
	CtxScalar
	CtxList
)

// Glob is a typeglob: the bundle of package-qualified slots sharing one
// name (*Pkg::name). The core only needs enough of it to support
// `\*name` references and glob assignment; full typeglob aliasing
// semantics live with the (out-of-scope) symbol-table machinery.
type Glob struct {
	Name    string
	Package string
}

// Reference is a strong, shared handle to a container (Array, Hash,
// Code, or another Scalar cell). Dereferencing walks through to the
// live container; assigning through a reference mutates shared state.
type Reference struct {
	refs   int32 // informational only; Go's GC owns real lifetime
	Target interface{} // *Array, *Hash, *Code, or *Scalar
	Kind   ObjectType
	weak   bool
}

func NewRef(target interface{}, kind ObjectType) *Reference {
	r := &Reference{Target: target, Kind: kind}
	atomic.AddInt32(&r.refs, 1)
	return r
}

// Weak returns a weak handle that does not count toward reachability:
// once the target is collected, Deref reports ok=false and callers
// must treat the result as Undef.
func (r *Reference) Weak() *WeakRef {
	return &WeakRef{target: r.Target, kind: r.Kind}
}

func (r *Reference) describe() string {
	switch r.Kind {
	case ObjArray:
		return "ARRAY"
	case ObjHash:
		return "HASH"
	case ObjCode:
		return "CODE"
	default:
		return "SCALAR"
	}
}

// AsArray reports whether s holds a reference to an Array, the shape
// every "array register" in the bytecode/interpreter pair uses (an
// @_-style container is always addressed by reference, never copied
// into a register directly).
func (s Scalar) AsArray() (*Array, bool) {
	if s.kind != KindRef || s.ref == nil || s.ref.Kind != ObjArray {
		return nil, false
	}
	a, ok := s.ref.Target.(*Array)
	return a, ok
}

// AsHash mirrors AsArray for hash-register operands.
func (s Scalar) AsHash() (*Hash, bool) {
	if s.kind != KindRef || s.ref == nil || s.ref.Kind != ObjHash {
		return nil, false
	}
	h, ok := s.ref.Target.(*Hash)
	return h, ok
}

// AsCode returns the Code a scalar holds, whether it was loaded
// directly (KindCode, e.g. from a closure's own MAKE_CLOSURE result)
// or reached through a `\&name` reference (KindRef/ObjCode).
func (s Scalar) AsCode() (*Code, bool) {
	if s.kind == KindCode {
		return s.code, s.code != nil
	}
	if s.kind == KindRef && s.ref != nil && s.ref.Kind == ObjCode {
		c, ok := s.ref.Target.(*Code)
		return c, ok
	}
	return nil, false
}

// ArrayRef wraps arr as the Reference-carrying Scalar shape an array
// register holds.
func ArrayRef(arr *Array) Scalar { return RefOf(NewRef(arr, ObjArray)) }

// HashRef mirrors ArrayRef for hash registers.
func HashRef(h *Hash) Scalar { return RefOf(NewRef(h, ObjHash)) }

// Ref exposes the underlying Reference a KindRef scalar holds. Most
// callers want the narrower AsArray/AsHash/AsCode; this is the escape
// hatch OP_MAKE_REF/OP_MAKE_WEAK_REF/OP_DEREF need since they operate
// generically over whatever kind of container the register addresses.
func (s Scalar) Ref() (*Reference, bool) {
	if s.kind != KindRef || s.ref == nil {
		return nil, false
	}
	return s.ref, true
}

// AsWeak returns the WeakRef a scalar holds, if any.
func (s Scalar) AsWeak() (*WeakRef, bool) {
	if s.kind != KindRef || s.ref == nil || s.ref.Kind != ObjWeak {
		return nil, false
	}
	w, ok := s.ref.Target.(*WeakRef)
	return w, ok
}

// WeakRefScalar wraps w as the scalar shape a weakened reference
// holds.
func WeakRefScalar(w *WeakRef) Scalar { return RefOf(NewRef(w, ObjWeak)) }

// WeakRef is a distinct back-reference handle type: it never prevents
// collection, and resolves to (nil, false) once
// its target is gone. Since this package relies on Go's GC rather than
// manual refcounting, "gone" is modeled by an explicit Clear call from
// whatever owns the strong side (e.g. scope-exit teardown of a cyclic
// structure) rather than true collection detection.
type WeakRef struct {
	target interface{}
	kind   ObjectType
	dead   bool
}

func (w *WeakRef) Deref() (interface{}, bool) {
	if w.dead || w.target == nil {
		return nil, false
	}
	return w.target, true
}

func (w *WeakRef) Clear() { w.dead = true }

// ControlMarker wraps an opaque non-local control-flow signal (owned
// and type-asserted by the ctlflow package) in a single-element result
// list, the shape Code.Apply returns for an in-flight last/next/redo/
// goto/tail-call that did not resolve inside the callee.
func ControlMarker(marker interface{}) []Scalar {
	return []Scalar{RefOf(NewRef(marker, ObjControl))}
}

// AsControlMarker reports whether result is exactly the one-element
// marker-carrying shape ControlMarker produces, returning the opaque
// marker value for the caller (ctlflow) to type-assert.
func AsControlMarker(result []Scalar) (interface{}, bool) {
	if len(result) != 1 {
		return nil, false
	}
	s := result[0]
	if s.kind != KindRef || s.ref == nil || s.ref.Kind != ObjControl {
		return nil, false
	}
	return s.ref.Target, true
}
