package pipeline

import (
	"github.com/fglock/PerlOnJava-sub015/internal/ast"
	"github.com/fglock/PerlOnJava-sub015/internal/bytecode"
	"github.com/fglock/PerlOnJava-sub015/internal/value"
)

// PipelineContext threads one compile-and-run request through the
// stages cmd/plcore wires up: a fixture load/compile stage followed by
// a backend-execution stage, one Processor at a time.
type PipelineContext struct {
	Source   string
	FilePath string

	// IsEvalMode marks a context built for a dynamic `eval STRING`
	// call site rather than a top-level program. No stage in this repo
	// reads it.
	IsEvalMode bool

	Program  *ast.Program
	Bytecode *bytecode.Bytecode
	Result   []value.Scalar

	// Errors accumulates every stage's failure rather than stopping at
	// the first one, so a caller reporting diagnostics sees all of
	// them instead of just the earliest.
	Errors []error
}

func NewPipelineContext(source string) *PipelineContext {
	return &PipelineContext{Source: source}
}

func (c *PipelineContext) AddError(err error) {
	if err != nil {
		c.Errors = append(c.Errors, err)
	}
}

// Processor is one pipeline stage. It receives the context produced by
// the previous stage and returns the context for the next one —
// usually the same pointer, mutated in place.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}
