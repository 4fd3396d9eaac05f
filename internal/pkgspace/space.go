// Package pkgspace implements process-wide package namespaces and the
// persistent-slot mechanism that lets a lexical be shared, by
// identity, between an interpreted closure and a natively compiled
// one.
package pkgspace

import (
	"strings"
	"sync"

	"github.com/fglock/PerlOnJava-sub015/internal/value"
)

// Space is the process-wide store: one store per sigil kind, plus a
// class registry used for overload/method resolution.
type Space struct {
	scalars *store // name -> *value.Scalar
	arrays  *store // name -> *value.Array
	hashes  *store // name -> *value.Hash
	codes   *store // name -> *value.Code

	normCache sync.Map // (name, defaultPkg) -> normalized name

	classes sync.Map // class name -> *Class
}

func New() *Space {
	return &Space{
		scalars: newStore(),
		arrays:  newStore(),
		hashes:  newStore(),
		codes:   newStore(),
	}
}

// forcedMain is the well-defined set of punctuation-prefixed globals
// that are always qualified into main regardless of the caller's
// default package, e.g. $_, @ARGV, %ENV, $@, $0.
var forcedMain = map[string]bool{
	"_": true, "@": true, "0": true, "!": true, "/": true, "\\": true,
	"ARGV": true, "ENV": true, "STDIN": true, "STDOUT": true, "STDERR": true,
	"INC": true,
}

// Normalize qualifies an unqualified name against defaultPackage,
// forcing the punctuation/special names above into main. It is a pure
// function of its inputs, so callers needn't cache the result.
func (s *Space) Normalize(name, defaultPackage string) string {
	if strings.Contains(name, "::") {
		return name
	}
	cacheKey := defaultPackage + "\x00" + name
	if v, ok := s.normCache.Load(cacheKey); ok {
		return v.(string)
	}
	pkg := defaultPackage
	if forcedMain[name] || (len(name) > 0 && !isIdentStart(name[0])) {
		pkg = "main"
	}
	if pkg == "" {
		pkg = "main"
	}
	full := pkg + "::" + name
	s.normCache.Store(cacheKey, full)
	return full
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// --- Scalars -------------------------------------------------------------

func (s *Space) GetGlobalScalar(name string) *value.Scalar {
	return s.scalars.GetOrCreate(name, func() interface{} {
		return new(value.Scalar)
	}).(*value.Scalar)
}

func (s *Space) SetGlobalScalar(name string, v value.Scalar) {
	s.GetGlobalScalar(name).Set(v)
}

// --- Arrays ---------------------------------------------------------------

func (s *Space) GetGlobalArray(name string) *value.Array {
	return s.arrays.GetOrCreate(name, func() interface{} {
		return value.NewArray()
	}).(*value.Array)
}

// --- Hashes -----------------------------------------------------------

func (s *Space) GetGlobalHash(name string) *value.Hash {
	return s.hashes.GetOrCreate(name, func() interface{} {
		return value.NewHash()
	}).(*value.Hash)
}

// --- Code -------------------------------------------------------------

func (s *Space) GetGlobalCode(name string) (*value.Code, bool) {
	v, ok := s.codes.Get(name)
	if !ok {
		return nil, false
	}
	return v.(*value.Code), true
}

func (s *Space) SetGlobalCode(name string, c *value.Code) {
	s.codes.Put(name, c)
}

// --- Persistent slots -----------------------------------------------------

// persistentSlotName builds the stable address
// PerlOnJava::_BEGIN_<id>::name. id scopes the slot to one compilation
// unit so two unrelated `my $x` declarations never collide.
func persistentSlotName(id, name string) string {
	return "PerlOnJava::_BEGIN_" + id + "::" + name
}

// GetPersistentScalar returns the stable, process-lifetime Scalar both
// execution modes bind to for a captured lexical crossing the
// compiler/interpreter boundary. The handle is stable for the life of
// the process once first created.
func (s *Space) GetPersistentScalar(id, name string) *value.Scalar {
	return s.GetGlobalScalar(persistentSlotName(id, name))
}

func (s *Space) GetPersistentArray(id, name string) *value.Array {
	return s.GetGlobalArray(persistentSlotName(id, name))
}

func (s *Space) GetPersistentHash(id, name string) *value.Hash {
	return s.GetGlobalHash(persistentSlotName(id, name))
}
