package bytecode

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// dumpInstr and dumpProto are the private, human-readable shape a
// Bytecode serializes to for golden tests and offline debugging.
// This is not a stable interchange format: field names and nesting
// are free to change between versions, unlike the opcode encoding
// itself.
type dumpInstr struct {
	Offset int    `yaml:"offset"`
	Line   int    `yaml:"line"`
	Op     string `yaml:"op"`
	Text   string `yaml:"text"`
}

type dumpProto struct {
	Name      string      `yaml:"name"`
	NumParams int         `yaml:"params"`
	Captures  []string    `yaml:"captures,omitempty"`
	Body      *dumpChunk  `yaml:"body"`
}

type dumpChunk struct {
	SourceFile   string      `yaml:"source,omitempty"`
	Package      string      `yaml:"package,omitempty"`
	NumRegisters int         `yaml:"registers"`
	Constants    []string    `yaml:"constants,omitempty"`
	Instructions []dumpInstr `yaml:"instructions"`
	Protos       []dumpProto `yaml:"protos,omitempty"`
}

// Dump renders b as a YAML document for debugging or for a golden
// test fixture. It is deliberately not round-trippable back into an
// executable Bytecode — LoadFixture (fixture.go) reads its own,
// plainer hand-authored format, enough to drive internal/interp from a
// fixture file, not to losslessly restore an arbitrary compiled chunk.
func Dump(b *Bytecode) ([]byte, error) {
	return yaml.Marshal(toDumpChunk(b))
}

func toDumpChunk(b *Bytecode) *dumpChunk {
	dc := &dumpChunk{
		SourceFile:   b.SourceFile,
		Package:      b.Package,
		NumRegisters: b.NumRegisters,
	}
	for _, k := range b.Constants {
		dc.Constants = append(dc.Constants, k.String())
	}
	offset := 0
	for offset < len(b.Code) {
		op := Op(b.Code[offset])
		line := b.Lines[offset]
		var sb strings.Builder
		next := disassembleInstr(&sb, b, offset)
		dc.Instructions = append(dc.Instructions, dumpInstr{
			Offset: offset, Line: line, Op: op.Name(), Text: strings.TrimSpace(sb.String()),
		})
		offset = next
	}
	for _, p := range b.Protos {
		var caps []string
		for _, cs := range p.Captures {
			caps = append(caps, fmt.Sprintf("%c%s", cs.Sigil, cs.Name))
		}
		dc.Protos = append(dc.Protos, dumpProto{
			Name: p.Name, NumParams: p.NumParams, Captures: caps, Body: toDumpChunk(p.Body),
		})
	}
	return dc
}
