package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble renders b as human-readable text, one instruction per
// line, recursing into nested Protos. It has one case per opcode
//.
func Disassemble(b *Bytecode, name string) string {
	var sb strings.Builder
	disassembleInto(&sb, b, name)
	return sb.String()
}

func disassembleInto(sb *strings.Builder, b *Bytecode, name string) {
	fmt.Fprintf(sb, "== %s ==\n", name)
	offset := 0
	for offset < len(b.Code) {
		offset = disassembleInstr(sb, b, offset)
	}
	for i, p := range b.Protos {
		fmt.Fprintf(sb, "\n-- proto %d: %s/%d --\n", i, p.Name, p.NumParams)
		disassembleInto(sb, p.Body, fmt.Sprintf("%s#%d", name, i))
	}
}

func disassembleInstr(sb *strings.Builder, b *Bytecode, offset int) int {
	op := Op(b.Code[offset])
	line := b.Lines[offset]
	fmt.Fprintf(sb, "%04d %4d %-22s", offset, line, op.Name())

	switch op {
	case OP_LOAD_CONST:
		r := b.Code[offset+1]
		k := b.readU16(offset + 2)
		fmt.Fprintf(sb, "R%d K%d (%v)\n", r, k, b.Constants[k])
		return offset + 4
	case OP_LOAD_UNDEF:
		r := b.Code[offset+1]
		fmt.Fprintf(sb, "R%d\n", r)
		return offset + 2
	case OP_LOAD_INT_IMM:
		r := b.Code[offset+1]
		imm := b.readI16(offset + 2)
		fmt.Fprintf(sb, "R%d #%d\n", r, imm)
		return offset + 4
	case OP_MOVE, OP_SET_REF, OP_NEG, OP_NOT, OP_BOOL, OP_LENGTH,
		OP_ARRAY_POP, OP_ARRAY_SHIFT, OP_ARRAY_LEN,
		OP_MAKE_WEAK_REF:
		r1 := b.Code[offset+1]
		r2 := b.Code[offset+2]
		fmt.Fprintf(sb, "R%d R%d\n", r1, r2)
		return offset + 3
	case OP_INC, OP_DEC:
		r := b.Code[offset+1]
		fmt.Fprintf(sb, "R%d\n", r)
		return offset + 2
	case OP_ARRAY_PUSH, OP_ARRAY_UNSHIFT:
		r1 := b.Code[offset+1]
		r2 := b.Code[offset+2]
		fmt.Fprintf(sb, "R%d R%d\n", r1, r2)
		return offset + 3
	case OP_LOAD_GLOBAL_SCALAR, OP_LOAD_GLOBAL_ARRAY, OP_LOAD_GLOBAL_HASH, OP_LOAD_GLOBAL_CODE:
		r := b.Code[offset+1]
		k := b.readU16(offset + 2)
		fmt.Fprintf(sb, "R%d K%d (%v)\n", r, k, b.Constants[k])
		return offset + 4
	case OP_STORE_GLOBAL_SCALAR:
		r := b.Code[offset+1]
		k := b.readU16(offset + 2)
		fmt.Fprintf(sb, "R%d K%d (%v)\n", r, k, b.Constants[k])
		return offset + 4
	case OP_LOAD_PERSISTENT_SCALAR:
		r := b.Code[offset+1]
		idk := b.readU16(offset + 2)
		namek := b.readU16(offset + 4)
		fmt.Fprintf(sb, "R%d id=K%d name=K%d\n", r, idk, namek)
		return offset + 6
	case OP_STORE_PERSISTENT_SCALAR:
		r := b.Code[offset+1]
		idk := b.readU16(offset + 2)
		namek := b.readU16(offset + 4)
		fmt.Fprintf(sb, "R%d id=K%d name=K%d\n", r, idk, namek)
		return offset + 6
	case OP_LOAD_CAPTURE:
		r := b.Code[offset+1]
		idx := b.Code[offset+2]
		fmt.Fprintf(sb, "R%d capture#%d\n", r, idx)
		return offset + 3
	case OP_ADD, OP_SUB, OP_MUL, OP_DIV, OP_MOD, OP_POW, OP_CONCAT, OP_REPEAT,
		OP_NUM_EQ, OP_NUM_NE, OP_NUM_LT, OP_NUM_LE, OP_NUM_GT, OP_NUM_GE,
		OP_STR_EQ, OP_STR_NE, OP_STR_LT, OP_STR_LE, OP_STR_GT, OP_STR_GE,
		OP_NUM_CMP, OP_STR_CMP, OP_ARRAY_GET, OP_HASH_GET, OP_HASH_EXISTS,
		OP_HASH_DELETE:
		r, a, c := b.Code[offset+1], b.Code[offset+2], b.Code[offset+3]
		fmt.Fprintf(sb, "R%d R%d R%d\n", r, a, c)
		return offset + 4
	case OP_ARRAY_SET, OP_HASH_SET:
		a, idx, v := b.Code[offset+1], b.Code[offset+2], b.Code[offset+3]
		fmt.Fprintf(sb, "R%d R%d R%d\n", a, idx, v)
		return offset + 4
	case OP_ADD_IMM:
		r, a := b.Code[offset+1], b.Code[offset+2]
		imm := b.readI16(offset + 3)
		fmt.Fprintf(sb, "R%d R%d #%d\n", r, a, imm)
		return offset + 5
	case OP_INC_CMP_JMP:
		r, other := b.Code[offset+1], b.Code[offset+2]
		jmp := b.readI16(offset + 3)
		fmt.Fprintf(sb, "R%d R%d -> %d\n", r, other, offset+3+int(jmp))
		return offset + 5
	case OP_SUBSTR:
		r, a, o, l := b.Code[offset+1], b.Code[offset+2], b.Code[offset+3], b.Code[offset+4]
		fmt.Fprintf(sb, "R%d R%d R%d R%d\n", r, a, o, l)
		return offset + 5
	case OP_JUMP:
		off := b.readI16(offset + 1)
		fmt.Fprintf(sb, "-> %d\n", offset+1+int(off))
		return offset + 3
	case OP_JUMP_IF_FALSE, OP_JUMP_IF_TRUE:
		r := b.Code[offset+1]
		off := b.readI16(offset + 2)
		fmt.Fprintf(sb, "R%d -> %d\n", r, offset+2+int(off))
		return offset + 4
	case OP_CALL:
		r, callee, args, ctx := b.Code[offset+1], b.Code[offset+2], b.Code[offset+3], b.Code[offset+4]
		fmt.Fprintf(sb, "R%d callee=R%d args=R%d ctx=%d\n", r, callee, args, ctx)
		return offset + 5
	case OP_TAIL_CALL:
		callee, args := b.Code[offset+1], b.Code[offset+2]
		fmt.Fprintf(sb, "callee=R%d args=R%d\n", callee, args)
		return offset + 3
	case OP_RETURN:
		r, ctx := b.Code[offset+1], b.Code[offset+2]
		fmt.Fprintf(sb, "R%d ctx=%d\n", r, ctx)
		return offset + 3
	case OP_CHECK_MARKER:
		r, disp := b.Code[offset+1], b.Code[offset+2]
		off := b.readI16(offset + 3)
		fmt.Fprintf(sb, "R%d dispatcher#%d -> %d\n", r, disp, offset+3+int(off))
		return offset + 5
	case OP_MAKE_MARKER:
		r, kind := b.Code[offset+1], b.Code[offset+2]
		k := b.readU16(offset + 3)
		fmt.Fprintf(sb, "R%d kind=%s K%d\n", r, ControlKind(kind), k)
		return offset + 5
	case OP_HALT:
		sb.WriteString("\n")
		return offset + 1
	case OP_MAKE_REF, OP_DEREF:
		r, a, kind := b.Code[offset+1], b.Code[offset+2], b.Code[offset+3]
		fmt.Fprintf(sb, "R%d R%d kind=%d\n", r, a, kind)
		return offset + 4
	case OP_NEW_ARRAY, OP_NEW_HASH:
		r := b.Code[offset+1]
		fmt.Fprintf(sb, "R%d\n", r)
		return offset + 2
	case OP_MAKE_CLOSURE:
		r := b.Code[offset+1]
		idx := b.readU16(offset + 2)
		fmt.Fprintf(sb, "R%d proto#%d\n", r, idx)
		return offset + 4
	case OP_SLOW:
		sop := SubOp(b.Code[offset+1])
		fmt.Fprintf(sb, "%s ...\n", sop.Name())
		return offset + 2 // sub-opcode operand layout is SubOp-specific; see internal/interp
	default:
		sb.WriteString("??\n")
		return offset + 1
	}
}
