package interp

import (
	"fmt"
	"sync/atomic"

	"github.com/fglock/PerlOnJava-sub015/internal/bytecode"
	"github.com/fglock/PerlOnJava-sub015/internal/ctlflow"
	"github.com/fglock/PerlOnJava-sub015/internal/diag"
	"github.com/fglock/PerlOnJava-sub015/internal/value"
)

// maxCallDepth bounds purely-interpreted recursion: a non-tail-recursive sub nests one Go
// call per Perl-level call through OP_CALL, so this catches runaway
// recursion well before the real goroutine stack would.
const maxCallDepth = 20000

// frame is one call's register file and program counter. Registers
// are never reclaimed within a frame (internal/bytecode.Compiler's
// allocator never reuses a slot), so the frame is sized exactly once
// from NumRegisters and never grows.
type frame struct {
	bc   *bytecode.Bytecode
	regs []value.Scalar
}

func (ip *Interp) execFrame(bc *bytecode.Bytecode, args *value.Array, ctx value.CallContext) ([]value.Scalar, error) {
	n := bc.NumRegisters
	if n == 0 {
		n = 1
	}
	f := &frame{bc: bc, regs: make([]value.Scalar, n)}
	// Register 0 is @_ by convention in every chunk this compiler
	// produces.
	f.regs[0] = value.ArrayRef(args)
	return ip.run(f)
}

// recoverAt looks for the innermost TryRegion covering pc; if found it
// binds the error (when the catch clause names a variable) and
// reports the pc execution should resume at.
func (f *frame) recoverAt(pc int, err error) (int, bool) {
	r, ok := innermostTryRegion(f.bc.TryRegions, pc)
	if !ok {
		return 0, false
	}
	if r.ErrReg >= 0 {
		f.regs[r.ErrReg] = value.Str(err.Error())
	}
	return r.CatchPC, true
}

func innermostTryRegion(regions []bytecode.TryRegion, pc int) (bytecode.TryRegion, bool) {
	best := -1
	bestLen := 0
	for i, r := range regions {
		if pc >= r.Start && pc < r.End {
			l := r.End - r.Start
			if best == -1 || l < bestLen {
				best, bestLen = i, l
			}
		}
	}
	if best == -1 {
		return bytecode.TryRegion{}, false
	}
	return regions[best], true
}

func innermostLoopRegion(regions []bytecode.LoopRegion, pc int, m *ctlflow.Marker) (bytecode.LoopRegion, bool) {
	best := -1
	bestLen := 0
	for i, r := range regions {
		if pc >= r.Start && pc < r.End && m.MatchLoop(r.Label) {
			l := r.End - r.Start
			if best == -1 || l < bestLen {
				best, bestLen = i, l
			}
		}
	}
	if best == -1 {
		return bytecode.LoopRegion{}, false
	}
	return regions[best], true
}

func readU16(code []byte, at int) uint16 { return uint16(code[at])<<8 | uint16(code[at+1]) }
func readI16(code []byte, at int) int16  { return int16(readU16(code, at)) }

// collapseCallResult turns a callee's raw list result into the single
// Scalar an OP_CALL destination register holds, per the calling
// context — list context keeps every element (wrapped as an array
// register), scalar context keeps only the last, void discards all of
// it. This mirrors how a real `wantarray`-aware sub already shapes its
// own return list; the register here just needs one concrete value.
func collapseCallResult(result []value.Scalar, ctx value.CallContext) value.Scalar {
	switch ctx {
	case value.CtxScalar:
		if len(result) == 0 {
			return value.Undef
		}
		return result[len(result)-1]
	case value.CtxList:
		return value.ArrayRef(value.NewArray(result...))
	default:
		return value.Undef
	}
}

// collapseReturnValue is collapseCallResult's inverse: whatever OP_RETURN's
// source register holds becomes the frame's result list. An array-ref
// register (a call made in list context, or an explicit list literal)
// flattens to its elements; anything else — including a control-marker
// scalar OP_MAKE_MARKER built — becomes a singleton list, which for a
// marker is exactly the shape value.ControlMarker/ctlflow.Unwrap expect.
func collapseReturnValue(v value.Scalar) []value.Scalar {
	if arr, ok := v.AsArray(); ok {
		return arr.Values()
	}
	return []value.Scalar{v}
}

// run is the dispatch loop.
func (ip *Interp) run(f *frame) ([]value.Scalar, error) {
	pc := 0
	for {
		if pc >= len(f.bc.Code) {
			return nil, nil
		}
		op := bytecode.Op(f.bc.Code[pc])
		code := f.bc.Code
		next := pc + 1

		switch op {
		case bytecode.OP_LOAD_CONST:
			r := code[pc+1]
			k := readU16(code, pc+2)
			f.regs[r] = f.bc.Constants[k]
			next = pc + 4
		case bytecode.OP_LOAD_UNDEF:
			r := code[pc+1]
			f.regs[r] = value.Undef
			next = pc + 2
		case bytecode.OP_LOAD_INT_IMM:
			r := code[pc+1]
			imm := readI16(code, pc+2)
			f.regs[r] = value.Int(int64(imm))
			next = pc + 4
		case bytecode.OP_MOVE, bytecode.OP_SET_REF:
			r1, r2 := code[pc+1], code[pc+2]
			f.regs[r1] = f.regs[r2]
			next = pc + 3
		case bytecode.OP_LOAD_GLOBAL_SCALAR:
			r := code[pc+1]
			k := readU16(code, pc+2)
			name := ip.Space.Normalize(f.bc.Constants[k].String(), f.bc.Package)
			f.regs[r] = *ip.Space.GetGlobalScalar(name)
			next = pc + 4
		case bytecode.OP_STORE_GLOBAL_SCALAR:
			r := code[pc+1]
			k := readU16(code, pc+2)
			name := ip.Space.Normalize(f.bc.Constants[k].String(), f.bc.Package)
			ip.Space.GetGlobalScalar(name).Set(f.regs[r])
			next = pc + 4
		case bytecode.OP_LOAD_GLOBAL_ARRAY:
			r := code[pc+1]
			k := readU16(code, pc+2)
			name := ip.Space.Normalize(f.bc.Constants[k].String(), f.bc.Package)
			f.regs[r] = value.ArrayRef(ip.Space.GetGlobalArray(name))
			next = pc + 4
		case bytecode.OP_LOAD_GLOBAL_HASH:
			r := code[pc+1]
			k := readU16(code, pc+2)
			name := ip.Space.Normalize(f.bc.Constants[k].String(), f.bc.Package)
			f.regs[r] = value.HashRef(ip.Space.GetGlobalHash(name))
			next = pc + 4
		case bytecode.OP_LOAD_GLOBAL_CODE:
			r := code[pc+1]
			k := readU16(code, pc+2)
			name := ip.Space.Normalize(f.bc.Constants[k].String(), f.bc.Package)
			if c, ok := ip.Space.GetGlobalCode(name); ok {
				f.regs[r] = value.CodeOf(c)
			} else {
				f.regs[r] = value.Undef
			}
			next = pc + 4
		case bytecode.OP_LOAD_PERSISTENT_SCALAR:
			r := code[pc+1]
			idK := readU16(code, pc+2)
			nameK := readU16(code, pc+4)
			id := f.bc.Constants[idK].String()
			name := f.bc.Constants[nameK].String()
			f.regs[r] = *ip.Space.GetPersistentScalar(id, name)
			next = pc + 6
		case bytecode.OP_STORE_PERSISTENT_SCALAR:
			r := code[pc+1]
			idK := readU16(code, pc+2)
			nameK := readU16(code, pc+4)
			id := f.bc.Constants[idK].String()
			name := f.bc.Constants[nameK].String()
			ip.Space.GetPersistentScalar(id, name).Set(f.regs[r])
			next = pc + 6
		case bytecode.OP_LOAD_CAPTURE:
			// Unused by this compiler (captures are resolved through
			// LOAD_PERSISTENT_SCALAR baked directly into the closure's
			// own bytecode); kept for dispatch completeness and for any
			// future front end that prefers eager capture binding.
			r := code[pc+1]
			f.regs[r] = value.Undef
			next = pc + 3

		case bytecode.OP_ADD, bytecode.OP_SUB, bytecode.OP_MUL, bytecode.OP_DIV, bytecode.OP_MOD, bytecode.OP_POW:
			r, a, b := code[pc+1], code[pc+2], code[pc+3]
			var v value.Scalar
			var err error
			switch op {
			case bytecode.OP_ADD:
				v, err = ip.Ops.Add(f.regs[a], f.regs[b])
			case bytecode.OP_SUB:
				v, err = ip.Ops.Sub(f.regs[a], f.regs[b])
			case bytecode.OP_MUL:
				v, err = ip.Ops.Mul(f.regs[a], f.regs[b])
			case bytecode.OP_DIV:
				v, err = ip.Ops.Div(f.regs[a], f.regs[b])
			case bytecode.OP_MOD:
				v, err = ip.Ops.Mod(f.regs[a], f.regs[b])
			case bytecode.OP_POW:
				v, err = ip.Ops.Pow(f.regs[a], f.regs[b])
			}
			if err != nil {
				if catchPC, ok := f.recoverAt(pc, err); ok {
					pc = catchPC
					continue
				}
				return nil, err
			}
			f.regs[r] = v
			next = pc + 4
		case bytecode.OP_NEG:
			r, a := code[pc+1], code[pc+2]
			v, err := ip.Ops.Negate(f.regs[a])
			if err != nil {
				if catchPC, ok := f.recoverAt(pc, err); ok {
					pc = catchPC
					continue
				}
				return nil, err
			}
			f.regs[r] = v
			next = pc + 3

		case bytecode.OP_ADD_IMM:
			r, a := code[pc+1], code[pc+2]
			imm := readI16(code, pc+3)
			v, err := ip.Ops.Add(f.regs[a], value.Int(int64(imm)))
			if err != nil {
				if catchPC, ok := f.recoverAt(pc, err); ok {
					pc = catchPC
					continue
				}
				return nil, err
			}
			f.regs[r] = v
			next = pc + 5
		case bytecode.OP_INC:
			r := code[pc+1]
			v, _ := ip.Ops.Add(f.regs[r], value.Int(1))
			f.regs[r] = v
			next = pc + 2
		case bytecode.OP_DEC:
			r := code[pc+1]
			v, _ := ip.Ops.Sub(f.regs[r], value.Int(1))
			f.regs[r] = v
			next = pc + 2
		case bytecode.OP_INC_CMP_JMP:
			r, other := code[pc+1], code[pc+2]
			off := readI16(code, pc+3)
			v, _ := ip.Ops.Add(f.regs[r], value.Int(1))
			f.regs[r] = v
			if ip.Ops.NumLt(v, f.regs[other]) {
				next = pc + 3 + int(off)
			} else {
				next = pc + 5
			}

		case bytecode.OP_CONCAT:
			r, a, b := code[pc+1], code[pc+2], code[pc+3]
			v, err := ip.Ops.Concat(f.regs[a], f.regs[b])
			if err != nil {
				if catchPC, ok := f.recoverAt(pc, err); ok {
					pc = catchPC
					continue
				}
				return nil, err
			}
			f.regs[r] = v
			next = pc + 4
		case bytecode.OP_REPEAT:
			r, a, b := code[pc+1], code[pc+2], code[pc+3]
			f.regs[r] = ip.Ops.Repeat(f.regs[a], f.regs[b].Int64())
			next = pc + 4
		case bytecode.OP_LENGTH:
			r, a := code[pc+1], code[pc+2]
			f.regs[r] = value.Int(ip.Ops.Length(f.regs[a]))
			next = pc + 3
		case bytecode.OP_SUBSTR:
			r, a, o, l := code[pc+1], code[pc+2], code[pc+3], code[pc+4]
			f.regs[r] = ip.Ops.Substr(f.regs[a], int(f.regs[o].Int64()), int(f.regs[l].Int64()))
			next = pc + 5

		case bytecode.OP_NUM_EQ, bytecode.OP_NUM_NE, bytecode.OP_NUM_LT, bytecode.OP_NUM_LE,
			bytecode.OP_NUM_GT, bytecode.OP_NUM_GE, bytecode.OP_STR_EQ, bytecode.OP_STR_NE,
			bytecode.OP_STR_LT, bytecode.OP_STR_LE, bytecode.OP_STR_GT, bytecode.OP_STR_GE:
			r, a, b := code[pc+1], code[pc+2], code[pc+3]
			f.regs[r] = value.Bool(compareBool(ip, op, f.regs[a], f.regs[b]))
			next = pc + 4
		case bytecode.OP_NUM_CMP:
			r, a, b := code[pc+1], code[pc+2], code[pc+3]
			f.regs[r] = value.Int(int64(ip.Ops.Cmp(f.regs[a], f.regs[b])))
			next = pc + 4
		case bytecode.OP_STR_CMP:
			r, a, b := code[pc+1], code[pc+2], code[pc+3]
			f.regs[r] = value.Int(int64(ip.Ops.Lcmp(f.regs[a], f.regs[b])))
			next = pc + 4

		case bytecode.OP_NOT:
			r, a := code[pc+1], code[pc+2]
			f.regs[r] = value.Bool(!ip.Ops.Bool(f.regs[a]))
			next = pc + 3
		case bytecode.OP_BOOL:
			r, a := code[pc+1], code[pc+2]
			f.regs[r] = value.Bool(ip.Ops.Bool(f.regs[a]))
			next = pc + 3

		case bytecode.OP_JUMP:
			off := readI16(code, pc+1)
			next = pc + 1 + int(off)
		case bytecode.OP_JUMP_IF_FALSE:
			r := code[pc+1]
			off := readI16(code, pc+2)
			if !ip.Ops.Bool(f.regs[r]) {
				next = pc + 2 + int(off)
			} else {
				next = pc + 4
			}
		case bytecode.OP_JUMP_IF_TRUE:
			r := code[pc+1]
			off := readI16(code, pc+2)
			if ip.Ops.Bool(f.regs[r]) {
				next = pc + 2 + int(off)
			} else {
				next = pc + 4
			}

		case bytecode.OP_CALL:
			rd, rcallee, rargs := code[pc+1], code[pc+2], code[pc+3]
			cctx := value.CallContext(code[pc+4])
			next = pc + 5
			callee, ok := f.regs[rcallee].AsCode()
			if !ok {
				if catchPC, ok := f.recoverAt(pc, value.ErrNotCallable); ok {
					pc = catchPC
					continue
				}
				return nil, value.ErrNotCallable
			}
			argsArr, ok := f.regs[rargs].AsArray()
			if !ok {
				argsArr = value.NewArray()
			}
			depth := atomic.AddInt32(&ip.depth, 1)
			if depth > maxCallDepth {
				atomic.AddInt32(&ip.depth, -1)
				err := diag.Trace(diag.KindStackOverflow,
					fmt.Errorf("max call depth %d exceeded", maxCallDepth), nil)
				if catchPC, ok := f.recoverAt(pc, err); ok {
					pc = catchPC
					continue
				}
				return nil, err
			}
			result, err := callee.Call(argsArr, cctx)
			atomic.AddInt32(&ip.depth, -1)
			if err != nil {
				if catchPC, ok := f.recoverAt(pc, err); ok {
					pc = catchPC
					continue
				}
				return nil, err
			}
			if m, ok := ctlflow.Unwrap(result); ok {
				// A tail-call marker never reaches here: MakeCode's own
				// Apply trampoline already resolved it before returning.
				// Only an escaping last/next/redo/goto can surface.
				if region, ok2 := innermostLoopRegion(f.bc.LoopRegions, pc, m); ok2 {
					switch m.Kind {
					case bytecode.CtlLast:
						next = region.ExitPC
					case bytecode.CtlNext:
						next = region.ContinuePC
					case bytecode.CtlRedo:
						next = region.RedoPC
					default:
						return result, nil
					}
				} else {
					return result, nil
				}
			} else {
				f.regs[rd] = collapseCallResult(result, cctx)
			}
		case bytecode.OP_TAIL_CALL:
			rcallee, rargs := code[pc+1], code[pc+2]
			callee, ok := f.regs[rcallee].AsCode()
			if !ok {
				if catchPC, ok := f.recoverAt(pc, value.ErrNotCallable); ok {
					pc = catchPC
					continue
				}
				return nil, value.ErrNotCallable
			}
			argsArr, ok := f.regs[rargs].AsArray()
			if !ok {
				argsArr = value.NewArray()
			}
			m := &ctlflow.Marker{Kind: bytecode.CtlTailCall, Callee: callee, Args: argsArr}
			return ctlflow.Wrap(m), nil
		case bytecode.OP_RETURN:
			r := code[pc+1]
			return collapseReturnValue(f.regs[r]), nil
		case bytecode.OP_CHECK_MARKER:
			rv, dispIdx := code[pc+1], code[pc+2]
			off := readI16(code, pc+3)
			matched := false
			if m, ok := ctlflow.Unwrap([]value.Scalar{f.regs[rv]}); ok {
				_, matched = ctlflow.ResolveDispatcher(f.bc.Dispatchers[dispIdx], m)
			}
			if matched {
				next = pc + 3 + int(off)
			} else {
				next = pc + 5
			}
		case bytecode.OP_MAKE_MARKER:
			r, kind := code[pc+1], code[pc+2]
			k := readU16(code, pc+3)
			label := f.bc.Constants[k].String()
			m := &ctlflow.Marker{Kind: bytecode.ControlKind(kind), Label: label}
			f.regs[r] = ctlflow.Wrap(m)[0]
			next = pc + 5
		case bytecode.OP_HALT:
			return nil, nil

		case bytecode.OP_MAKE_REF:
			r, a, kind := code[pc+1], code[pc+2], value.ObjectType(code[pc+3])
			if kind == value.ObjScalarCell {
				f.regs[r] = value.RefOf(value.NewRef(&f.regs[a], value.ObjScalarCell))
			} else {
				// Array/hash/code registers are already reference-shaped
				//: taking a reference to one
				// is a plain copy of that shape.
				f.regs[r] = f.regs[a]
			}
			next = pc + 4
		case bytecode.OP_MAKE_WEAK_REF:
			r, a := code[pc+1], code[pc+2]
			if ref, ok := f.regs[a].Ref(); ok {
				f.regs[r] = value.WeakRefScalar(ref.Weak())
			} else {
				f.regs[r] = value.Undef
			}
			next = pc + 3
		case bytecode.OP_DEREF:
			r, a, kind := code[pc+1], code[pc+2], value.ObjectType(code[pc+3])
			f.regs[r] = derefScalar(f.regs[a], kind)
			next = pc + 4

		case bytecode.OP_NEW_ARRAY:
			r := code[pc+1]
			f.regs[r] = value.ArrayRef(value.NewArray())
			next = pc + 2
		case bytecode.OP_ARRAY_PUSH:
			a, v := code[pc+1], code[pc+2]
			if arr, ok := f.regs[a].AsArray(); ok {
				arr.Push(f.regs[v])
			}
			next = pc + 3
		case bytecode.OP_ARRAY_POP:
			r, a := code[pc+1], code[pc+2]
			if arr, ok := f.regs[a].AsArray(); ok {
				f.regs[r] = arr.Pop()
			} else {
				f.regs[r] = value.Undef
			}
			next = pc + 3
		case bytecode.OP_ARRAY_SHIFT:
			r, a := code[pc+1], code[pc+2]
			if arr, ok := f.regs[a].AsArray(); ok {
				f.regs[r] = arr.Shift()
			} else {
				f.regs[r] = value.Undef
			}
			next = pc + 3
		case bytecode.OP_ARRAY_UNSHIFT:
			a, v := code[pc+1], code[pc+2]
			if arr, ok := f.regs[a].AsArray(); ok {
				arr.Unshift(f.regs[v])
			}
			next = pc + 3
		case bytecode.OP_ARRAY_GET:
			r, a, idx := code[pc+1], code[pc+2], code[pc+3]
			if arr, ok := f.regs[a].AsArray(); ok {
				f.regs[r] = arr.Get(int(f.regs[idx].Int64()))
			} else {
				f.regs[r] = value.Undef
			}
			next = pc + 4
		case bytecode.OP_ARRAY_SET:
			a, idx, v := code[pc+1], code[pc+2], code[pc+3]
			if arr, ok := f.regs[a].AsArray(); ok {
				arr.Slot(int(f.regs[idx].Int64())).Set(f.regs[v])
			}
			next = pc + 4
		case bytecode.OP_ARRAY_LEN:
			r, a := code[pc+1], code[pc+2]
			if arr, ok := f.regs[a].AsArray(); ok {
				f.regs[r] = value.Int(int64(arr.Len()))
			} else {
				f.regs[r] = value.Int(0)
			}
			next = pc + 3

		case bytecode.OP_NEW_HASH:
			r := code[pc+1]
			f.regs[r] = value.HashRef(value.NewHash())
			next = pc + 2
		case bytecode.OP_HASH_GET:
			r, h, k := code[pc+1], code[pc+2], code[pc+3]
			if hash, ok := f.regs[h].AsHash(); ok {
				f.regs[r] = hash.Get(f.regs[k].String())
			} else {
				f.regs[r] = value.Undef
			}
			next = pc + 4
		case bytecode.OP_HASH_SET:
			h, k, v := code[pc+1], code[pc+2], code[pc+3]
			if hash, ok := f.regs[h].AsHash(); ok {
				hash.Set(f.regs[k].String(), f.regs[v])
			}
			next = pc + 4
		case bytecode.OP_HASH_DELETE:
			r, h, k := code[pc+1], code[pc+2], code[pc+3]
			if hash, ok := f.regs[h].AsHash(); ok {
				f.regs[r] = hash.Delete(f.regs[k].String())
			} else {
				f.regs[r] = value.Undef
			}
			next = pc + 4
		case bytecode.OP_HASH_EXISTS:
			r, h, k := code[pc+1], code[pc+2], code[pc+3]
			if hash, ok := f.regs[h].AsHash(); ok {
				f.regs[r] = value.Bool(hash.Exists(f.regs[k].String()))
			} else {
				f.regs[r] = value.Bool(false)
			}
			next = pc + 4

		case bytecode.OP_MAKE_CLOSURE:
			r := code[pc+1]
			idx := readU16(code, pc+2)
			proto := f.bc.Protos[idx]
			// proto.Captures records where each free variable lives
			// (Dump lists it); this backend needs none of it: the
			// closure's own body already carries
			// LOAD_PERSISTENT_SCALAR instructions addressing the right
			// slot directly.
			f.regs[r] = value.CodeOf(ip.MakeCode(proto.Name, proto.Body))
			next = pc + 4

		case bytecode.OP_SLOW:
			n, jumpTo, err := ip.execSlow(f, pc)
			if err != nil {
				if catchPC, ok := f.recoverAt(pc, err); ok {
					pc = catchPC
					continue
				}
				return nil, err
			}
			if jumpTo >= 0 {
				next = jumpTo
			} else {
				next = n
			}

		default:
			return nil, diag.OpcodeAbsence(byte(op), pc, "interp")
		}

		pc = next
	}
}

func compareBool(ip *Interp, op bytecode.Op, a, b value.Scalar) bool {
	switch op {
	case bytecode.OP_NUM_EQ:
		return ip.Ops.NumEq(a, b)
	case bytecode.OP_NUM_NE:
		return ip.Ops.NumNe(a, b)
	case bytecode.OP_NUM_LT:
		return ip.Ops.NumLt(a, b)
	case bytecode.OP_NUM_LE:
		return ip.Ops.NumLe(a, b)
	case bytecode.OP_NUM_GT:
		return ip.Ops.NumGt(a, b)
	case bytecode.OP_NUM_GE:
		return ip.Ops.NumGe(a, b)
	case bytecode.OP_STR_EQ:
		return ip.Ops.StrEq(a, b)
	case bytecode.OP_STR_NE:
		return ip.Ops.StrNe(a, b)
	case bytecode.OP_STR_LT:
		return ip.Ops.StrLt(a, b)
	case bytecode.OP_STR_LE:
		return ip.Ops.StrLe(a, b)
	case bytecode.OP_STR_GT:
		return ip.Ops.StrGt(a, b)
	default:
		return ip.Ops.StrGe(a, b)
	}
}

func derefScalar(src value.Scalar, kind value.ObjectType) value.Scalar {
	if kind != value.ObjScalarCell {
		// @{$ref}/%{$ref}/&{$ref}: array/hash/code registers already
		// hold the reference-carrying shape, so dereferencing is a
		// no-op at this representation level.
		return src
	}
	if ref, ok := src.Ref(); ok {
		if sp, ok := ref.Target.(*value.Scalar); ok {
			return *sp
		}
		return value.Undef
	}
	if w, ok := src.AsWeak(); ok {
		if target, live := w.Deref(); live {
			if sp, ok := target.(*value.Scalar); ok {
				return *sp
			}
		}
	}
	return value.Undef
}
