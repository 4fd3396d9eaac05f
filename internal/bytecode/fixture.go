package bytecode

import (
	"fmt"

	"github.com/fglock/PerlOnJava-sub015/internal/value"
	"gopkg.in/yaml.v3"
)

// Fixture is the hand-authorable YAML shape cmd/plcore's demo path
// loads (from its positional FIXTURE argument) in place of a
// compiled-from-source program, since this module
// owns no parser. Each instruction is its mnemonic
// followed by its raw operand bytes/words; constants are given as
// Perl-ish scalars translated by parseConstant.
//
// This is deliberately a much plainer format than Dump's debug output:
// Dump is read-only and optimized for a human scanning a trace, while
// Fixture is the minimal shape a test author would actually hand-write.
type Fixture struct {
	Package      string     `yaml:"package"`
	NumRegisters int        `yaml:"registers"`
	Constants    []string   `yaml:"constants"`
	Instructions [][]string `yaml:"instructions"`
}

// LoadFixture parses a YAML fixture and assembles it into an
// executable Bytecode.
func LoadFixture(data []byte) (*Bytecode, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("bytecode: parsing fixture: %w", err)
	}
	b := newBytecode("<fixture>")
	b.Package = f.Package
	b.NumRegisters = f.NumRegisters
	for _, c := range f.Constants {
		b.Constants = append(b.Constants, parseConstant(c))
	}
	nameToOp := map[string]Op{}
	for op := Op(0); op < NumOpcodes; op++ {
		if n := op.Name(); n != "UNKNOWN" {
			nameToOp[n] = op
		}
	}
	for i, instr := range f.Instructions {
		if len(instr) == 0 {
			return nil, fmt.Errorf("bytecode: fixture instruction %d is empty", i)
		}
		op, ok := nameToOp[instr[0]]
		if !ok {
			return nil, fmt.Errorf("bytecode: fixture instruction %d: unknown opcode %q", i, instr[0])
		}
		b.emit(op, 0)
		for _, operand := range instr[1:] {
			n, err := parseOperand(operand)
			if err != nil {
				return nil, fmt.Errorf("bytecode: fixture instruction %d operand %q: %w", i, operand, err)
			}
			if n >= -128 && n <= 255 {
				b.emitByte(byte(n), 0)
			} else {
				b.emitI16(int16(n), 0)
			}
		}
	}
	return b, nil
}

func parseOperand(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}

// parseConstant recognizes a handful of literal shapes a fixture
// author writes directly: bare integers, floats with a decimal point,
// "undef", and everything else as a UTF-8 string.
func parseConstant(s string) value.Scalar {
	if s == "undef" {
		return value.Undef
	}
	var i int64
	if _, err := fmt.Sscanf(s, "%d", &i); err == nil && fmt.Sprintf("%d", i) == s {
		return value.Int(i)
	}
	var f float64
	if _, err := fmt.Sscanf(s, "%g", &f); err == nil && containsDot(s) {
		return value.Float(f)
	}
	return value.StrUTF8(s)
}

func containsDot(s string) bool {
	for _, r := range s {
		if r == '.' {
			return true
		}
	}
	return false
}
