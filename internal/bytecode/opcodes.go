// Package bytecode implements the register-bytecode compiler and the
// artifact (Bytecode) it produces. The opcode numbering here must
// stay dense and gap-free — the interpreter's dispatch (internal/interp)
// depends on indexing a jump table by opcode value rather than a
// binary search, and NumOpcodes is exercised directly by tests that
// check the space has no holes.
package bytecode

// Op is one main-table instruction. Operands are encoded as fixed-width
// fields following the opcode byte; see disassembleInstr (disasm.go)
// for the decoded shape and Compiler for the encoding.
type Op byte

const (
	// --- constants & literals ---
	OP_LOAD_CONST  Op = iota // Rd, Kidx
	OP_LOAD_UNDEF            // Rd
	OP_LOAD_INT_IMM          // Rd, imm16 (small-int fast path, no constant pool round trip)

	// --- register moves ---
	OP_MOVE     // Rd, Rs  (Set-semantics copy: Rd's slot is overwritten in place)
	OP_SET_REF  // Rd, Rs  (internal/interp executes it as a copy, exactly like OP_MOVE; no aliasing)

	// --- globals / package namespace ---
	OP_LOAD_GLOBAL_SCALAR  // Rd, Kidx(name)
	OP_STORE_GLOBAL_SCALAR // Rs, Kidx(name)
	OP_LOAD_GLOBAL_ARRAY   // Rd, Kidx(name)
	OP_LOAD_GLOBAL_HASH    // Rd, Kidx(name)
	OP_LOAD_GLOBAL_CODE    // Rd, Kidx(name)

	// --- persistent slots ---
	OP_LOAD_PERSISTENT_SCALAR  // Rd, Kidx(id), Kidx(name)
	OP_STORE_PERSISTENT_SCALAR // Rs, Kidx(id), Kidx(name)
	OP_LOAD_CAPTURE            // Rd, CaptureIdx (capture table slot filled at closure creation)

	// --- arithmetic (hot path; overflow/overload handled by internal/value.Ops) ---
	OP_ADD // Rd, Ra, Rb
	OP_SUB
	OP_MUL
	OP_DIV
	OP_MOD
	OP_POW
	OP_NEG // Rd, Ra

	// --- superinstructions ---
	OP_ADD_IMM      // Rd, Ra, imm16      ($x + 1)
	OP_INC          // Rd                 (Rd++ in place, pre/post handled by caller ordering)
	OP_DEC          // Rd
	OP_INC_CMP_JMP  // Rd, Rb, jumpOffset (for(;;i++) style: Rd++; if Rd < Rb jump)

	// --- strings ---
	OP_CONCAT // Rd, Ra, Rb
	OP_REPEAT // Rd, Ra, Rb
	OP_LENGTH // Rd, Ra
	OP_SUBSTR // Rd, Ra, Roffset, Rlen

	// --- comparisons (produce Perl-truthy Int 0/1) ---
	OP_NUM_EQ
	OP_NUM_NE
	OP_NUM_LT
	OP_NUM_LE
	OP_NUM_GT
	OP_NUM_GE
	OP_STR_EQ
	OP_STR_NE
	OP_STR_LT
	OP_STR_LE
	OP_STR_GT
	OP_STR_GE
	OP_NUM_CMP // Rd, Ra, Rb  (<=>)
	OP_STR_CMP // Rd, Ra, Rb  (cmp)

	// --- logic ---
	OP_NOT    // Rd, Ra
	OP_BOOL   // Rd, Ra (normalize to Perl truthiness, used before JUMP_IF_FALSE on a non-comparison value)

	// --- control flow ---
	OP_JUMP            // jumpOffset (signed, relative)
	OP_JUMP_IF_FALSE   // Ra, jumpOffset
	OP_JUMP_IF_TRUE    // Ra, jumpOffset
	OP_CALL            // Rd, Rcallee, Rargs(array), ctxByte
	OP_TAIL_CALL       // Rcallee, Rargs(array)  (trampoline: see internal/native, internal/interp)
	OP_RETURN          // Rargs(array-or-undef), ctxByte
	OP_CHECK_MARKER    // Rv, DispatcherIdx, jumpOffset (branch to jumpOffset if Rv is a matched control marker; see internal/ctlflow)
	OP_MAKE_MARKER     // Rd, kindByte, Kidx(label)
	OP_HALT

	// --- references ---
	OP_MAKE_REF      // Rd, Ra, kindByte
	OP_MAKE_WEAK_REF // Rd, Ra
	OP_DEREF         // Rd, Ra, kindByte

	// --- arrays ---
	OP_NEW_ARRAY    // Rd
	OP_ARRAY_PUSH   // Ra, Rv
	OP_ARRAY_POP    // Rd, Ra
	OP_ARRAY_SHIFT  // Rd, Ra
	OP_ARRAY_UNSHIFT // Ra, Rv
	OP_ARRAY_GET    // Rd, Ra, Ridx
	OP_ARRAY_SET    // Ra, Ridx, Rv
	OP_ARRAY_LEN    // Rd, Ra

	// --- hashes ---
	OP_NEW_HASH    // Rd
	OP_HASH_GET    // Rd, Rh, Rkey
	OP_HASH_SET    // Rh, Rkey, Rv
	OP_HASH_DELETE // Rd, Rh, Rkey
	OP_HASH_EXISTS // Rd, Rh, Rkey

	// --- closures ---
	OP_MAKE_CLOSURE // Rd, ProtoIdx(u16)

	// --- cold-path gateway: a single opcode that keeps
	// the main table's slow/rare operations out of the hot dispatch
	// switch. Its own operand carries the SubOp selecting the real
	// behavior from subOpcodeTable. ---
	OP_SLOW

	// NumOpcodes must stay the first unused value: the disassembler's
	// name table (opNames) sizes itself off it, and a test asserts every
	// value below it has a name and NumOpcodes itself does not decode.
	NumOpcodes
)

var opNames = [NumOpcodes]string{
	OP_LOAD_CONST:              "LOAD_CONST",
	OP_LOAD_UNDEF:              "LOAD_UNDEF",
	OP_LOAD_INT_IMM:            "LOAD_INT_IMM",
	OP_MOVE:                    "MOVE",
	OP_SET_REF:                 "SET_REF",
	OP_LOAD_GLOBAL_SCALAR:      "LOAD_GLOBAL_SCALAR",
	OP_STORE_GLOBAL_SCALAR:     "STORE_GLOBAL_SCALAR",
	OP_LOAD_GLOBAL_ARRAY:       "LOAD_GLOBAL_ARRAY",
	OP_LOAD_GLOBAL_HASH:        "LOAD_GLOBAL_HASH",
	OP_LOAD_GLOBAL_CODE:        "LOAD_GLOBAL_CODE",
	OP_LOAD_PERSISTENT_SCALAR:  "LOAD_PERSISTENT_SCALAR",
	OP_STORE_PERSISTENT_SCALAR: "STORE_PERSISTENT_SCALAR",
	OP_LOAD_CAPTURE:            "LOAD_CAPTURE",
	OP_ADD:                     "ADD",
	OP_SUB:                     "SUB",
	OP_MUL:                     "MUL",
	OP_DIV:                     "DIV",
	OP_MOD:                     "MOD",
	OP_POW:                     "POW",
	OP_NEG:                     "NEG",
	OP_ADD_IMM:                 "ADD_IMM",
	OP_INC:                     "INC",
	OP_DEC:                     "DEC",
	OP_INC_CMP_JMP:             "INC_CMP_JMP",
	OP_CONCAT:                  "CONCAT",
	OP_REPEAT:                  "REPEAT",
	OP_LENGTH:                  "LENGTH",
	OP_SUBSTR:                  "SUBSTR",
	OP_NUM_EQ:                  "NUM_EQ",
	OP_NUM_NE:                  "NUM_NE",
	OP_NUM_LT:                  "NUM_LT",
	OP_NUM_LE:                  "NUM_LE",
	OP_NUM_GT:                  "NUM_GT",
	OP_NUM_GE:                  "NUM_GE",
	OP_STR_EQ:                  "STR_EQ",
	OP_STR_NE:                  "STR_NE",
	OP_STR_LT:                  "STR_LT",
	OP_STR_LE:                  "STR_LE",
	OP_STR_GT:                  "STR_GT",
	OP_STR_GE:                  "STR_GE",
	OP_NUM_CMP:                 "NUM_CMP",
	OP_STR_CMP:                 "STR_CMP",
	OP_NOT:                     "NOT",
	OP_BOOL:                    "BOOL",
	OP_JUMP:                    "JUMP",
	OP_JUMP_IF_FALSE:           "JUMP_IF_FALSE",
	OP_JUMP_IF_TRUE:            "JUMP_IF_TRUE",
	OP_CALL:                    "CALL",
	OP_TAIL_CALL:               "TAIL_CALL",
	OP_RETURN:                  "RETURN",
	OP_CHECK_MARKER:            "CHECK_MARKER",
	OP_MAKE_MARKER:             "MAKE_MARKER",
	OP_HALT:                    "HALT",
	OP_MAKE_REF:                "MAKE_REF",
	OP_MAKE_WEAK_REF:           "MAKE_WEAK_REF",
	OP_DEREF:                   "DEREF",
	OP_NEW_ARRAY:               "NEW_ARRAY",
	OP_ARRAY_PUSH:              "ARRAY_PUSH",
	OP_ARRAY_POP:               "ARRAY_POP",
	OP_ARRAY_SHIFT:             "ARRAY_SHIFT",
	OP_ARRAY_UNSHIFT:           "ARRAY_UNSHIFT",
	OP_ARRAY_GET:               "ARRAY_GET",
	OP_ARRAY_SET:               "ARRAY_SET",
	OP_ARRAY_LEN:               "ARRAY_LEN",
	OP_NEW_HASH:                "NEW_HASH",
	OP_HASH_GET:                "HASH_GET",
	OP_HASH_SET:                "HASH_SET",
	OP_HASH_DELETE:             "HASH_DELETE",
	OP_HASH_EXISTS:             "HASH_EXISTS",
	OP_MAKE_CLOSURE:            "MAKE_CLOSURE",
	OP_SLOW:                    "SLOW",
}

// Name returns op's mnemonic, or "UNKNOWN" for anything at or past
// NumOpcodes (which should never appear in a well-formed Bytecode).
func (op Op) Name() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return "UNKNOWN"
}

// SubOp selects the real operation behind OP_SLOW. This table holds
// the operations that are both rare in typical programs and costly to
// keep in the main dispatch switch: pack/unpack, bit-syntax, and the
// handful of string/number builtins that need more than three
// register operands.
type SubOp byte

const (
	SOP_PACK   SubOp = iota // Rd, Rtmpl(string), Rargs(array)
	SOP_UNPACK              // Rd, Rtmpl(string), Rdata(string)
	SOP_SPLICE // Ra, Roffset, Rlength, Rrepl(array) -> Rd(removed array)
	SOP_SLICE  // Rd, Ra, Rindices(array)
	SOP_SPRINTF
	SOP_BAND
	SOP_BOR
	SOP_BXOR
	SOP_BNOT
	SOP_SHL
	SOP_SHR

	NumSubOps
)

var subOpNames = [NumSubOps]string{
	SOP_PACK:    "PACK",
	SOP_UNPACK:  "UNPACK",
	SOP_SPLICE:  "SPLICE",
	SOP_SLICE:   "SLICE",
	SOP_SPRINTF: "SPRINTF",
	SOP_BAND:    "BAND",
	SOP_BOR:     "BOR",
	SOP_BXOR:    "BXOR",
	SOP_BNOT:    "BNOT",
	SOP_SHL:     "SHL",
	SOP_SHR:     "SHR",
}

func (s SubOp) Name() string {
	if int(s) < len(subOpNames) && subOpNames[s] != "" {
		return subOpNames[s]
	}
	return "UNKNOWN"
}
