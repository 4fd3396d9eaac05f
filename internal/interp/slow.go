package interp

import (
	"fmt"

	"github.com/fglock/PerlOnJava-sub015/internal/bytecode"
	"github.com/fglock/PerlOnJava-sub015/internal/value"
)

// execSlow handles OP_SLOW, the gateway opcode for operations too rare
// or too operand-hungry for the main dispatch switch. None of these
// are emitted by the current compiler (no pack/unpack/splice/slice/
// sprintf/bitwise syntax reaches bytecode yet), so the operand layout
// below is this package's own invention rather than something decoded
// elsewhere; disasm.go has no opinion on it. pack/unpack are
// implemented against packTemplate/unpackTemplate (pack.go) rather
// than a compiled-in library; see that file's doc comment. It returns
// the pc to resume at (via next) or, for a jumping variant, via
// jumpTo (-1 when unused).
func (ip *Interp) execSlow(f *frame, pc int) (next int, jumpTo int, err error) {
	code := f.bc.Code
	sop := bytecode.SubOp(code[pc+1])
	jumpTo = -1

	switch sop {
	case bytecode.SOP_BAND, bytecode.SOP_BOR, bytecode.SOP_BXOR, bytecode.SOP_SHL, bytecode.SOP_SHR:
		rd, ra, rb := code[pc+2], code[pc+3], code[pc+4]
		x, y := f.regs[ra].Int64(), f.regs[rb].Int64()
		var res int64
		switch sop {
		case bytecode.SOP_BAND:
			res = x & y
		case bytecode.SOP_BOR:
			res = x | y
		case bytecode.SOP_BXOR:
			res = x ^ y
		case bytecode.SOP_SHL:
			res = x << uint(y)
		case bytecode.SOP_SHR:
			res = x >> uint(y)
		}
		f.regs[rd] = value.Int(res)
		next = pc + 5

	case bytecode.SOP_BNOT:
		rd, ra := code[pc+2], code[pc+3]
		f.regs[rd] = value.Int(^f.regs[ra].Int64())
		next = pc + 4

	case bytecode.SOP_SPRINTF:
		rd, rtmpl, rargs := code[pc+2], code[pc+3], code[pc+4]
		template := f.regs[rtmpl].String()
		var goArgs []interface{}
		if argsArr, ok := f.regs[rargs].AsArray(); ok {
			for _, v := range argsArr.Values() {
				goArgs = append(goArgs, scalarToAny(v))
			}
		}
		f.regs[rd] = value.StrUTF8(fmt.Sprintf(template, goArgs...))
		next = pc + 5

	case bytecode.SOP_SLICE:
		rd, ra, rindices := code[pc+2], code[pc+3], code[pc+4]
		out := value.NewArray()
		arr, arrOK := f.regs[ra].AsArray()
		idxArr, idxOK := f.regs[rindices].AsArray()
		if arrOK && idxOK {
			for _, iv := range idxArr.Values() {
				out.Push(arr.Get(int(iv.Int64())))
			}
		}
		f.regs[rd] = value.ArrayRef(out)
		next = pc + 5

	case bytecode.SOP_SPLICE:
		rd, ra, roff, rlen, rrepl := code[pc+2], code[pc+3], code[pc+4], code[pc+5], code[pc+6]
		var removed []value.Scalar
		if arr, ok := f.regs[ra].AsArray(); ok {
			var repl []value.Scalar
			if replArr, ok := f.regs[rrepl].AsArray(); ok {
				repl = replArr.Values()
			}
			removed = arr.Splice(int(f.regs[roff].Int64()), int(f.regs[rlen].Int64()), repl)
		}
		f.regs[rd] = value.ArrayRef(value.NewArray(removed...))
		next = pc + 7

	case bytecode.SOP_PACK:
		rd, rtmpl, rargs := code[pc+2], code[pc+3], code[pc+4]
		tmpl := f.regs[rtmpl].String()
		var args []value.Scalar
		if argsArr, ok := f.regs[rargs].AsArray(); ok {
			args = argsArr.Values()
		}
		packed, err := packTemplate(tmpl, args)
		if err != nil {
			return 0, -1, err
		}
		f.regs[rd] = value.StrUTF8(packed)
		next = pc + 5

	case bytecode.SOP_UNPACK:
		rd, rtmpl, rdata := code[pc+2], code[pc+3], code[pc+4]
		tmpl := f.regs[rtmpl].String()
		data := f.regs[rdata].String()
		vals, err := unpackTemplate(tmpl, data)
		if err != nil {
			return 0, -1, err
		}
		f.regs[rd] = value.ArrayRef(value.NewArray(vals...))
		next = pc + 5

	default:
		next = pc + 2
	}
	return next, jumpTo, nil
}

func scalarToAny(s value.Scalar) interface{} {
	switch s.Kind() {
	case value.KindInt:
		return s.Int64()
	case value.KindFloat:
		return s.Float64()
	default:
		return s.String()
	}
}
