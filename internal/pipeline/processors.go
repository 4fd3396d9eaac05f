package pipeline

import (
	"fmt"

	"github.com/fglock/PerlOnJava-sub015/internal/bytecode"
	"github.com/fglock/PerlOnJava-sub015/internal/ctlflow"
	"github.com/fglock/PerlOnJava-sub015/internal/interp"
	"github.com/fglock/PerlOnJava-sub015/internal/native"
	"github.com/fglock/PerlOnJava-sub015/internal/pkgspace"
	"github.com/fglock/PerlOnJava-sub015/internal/value"
)

// FixtureLoadProcessor turns ctx.Source (a YAML-encoded bytecode
// fixture, see bytecode.LoadFixture) into ctx.Bytecode. It stands in
// for the lexer+parser+compiler stages a real front end would run,
// since this repo owns no parser of its own.
type FixtureLoadProcessor struct{}

func (FixtureLoadProcessor) Process(ctx *PipelineContext) *PipelineContext {
	bc, err := bytecode.LoadFixture([]byte(ctx.Source))
	if err != nil {
		ctx.AddError(fmt.Errorf("loading %s: %w", ctx.FilePath, err))
		return ctx
	}
	ctx.Bytecode = bc
	return ctx
}

// CompileProcessor lowers ctx.Program (a hand-built or front-end-supplied
// AST) to ctx.Bytecode, the stage a real parser's output would feed
// into once one exists.
type CompileProcessor struct {
	Package string
}

func (p CompileProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Program == nil {
		ctx.AddError(fmt.Errorf("compiling %s: no program to compile", ctx.FilePath))
		return ctx
	}
	pkg := p.Package
	if pkg == "" {
		pkg = "main"
	}
	ctx.Bytecode = bytecode.CompileProgram(ctx.Program, ctx.FilePath, pkg)
	return ctx
}

// InterpretProcessor runs ctx.Bytecode through the register interpreter
// and stores the result, the fully exercised end of the demo path
// cmd/plcore drives (§6's "flag-accurate, fully exercised path").
type InterpretProcessor struct {
	Space *pkgspace.Space
	Ctx   value.CallContext
}

func (p InterpretProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Bytecode == nil {
		ctx.AddError(fmt.Errorf("running %s: nothing was compiled", ctx.FilePath))
		return ctx
	}
	space := p.Space
	if space == nil {
		space = pkgspace.New()
	}
	ip := interp.New(space)
	result, err := ip.Run(ctx.Bytecode, value.NewArray(), p.Ctx)
	if err != nil {
		ctx.AddError(fmt.Errorf("running %s: %w", ctx.FilePath, err))
		return ctx
	}
	if m, ok := ctlflow.Unwrap(result); ok {
		ctx.AddError(fmt.Errorf("running %s: %s %q escaped the top-level program", ctx.FilePath, m.Kind, m.Label))
		return ctx
	}
	ctx.Result = result
	return ctx
}

// NativeInterpretProcessor runs ctx.Program directly through the
// tree-walking emitter instead of lowering it to bytecode first.
// Neither internal/dynaeval (which calls native.Emitter.Run itself) nor
// cmd/plcore wires it in: unlike
// InterpretProcessor, it consumes ctx.Program and never touches
// ctx.Bytecode, so a single PipelineContext can be driven down either
// path by swapping which Processor runs last.
type NativeInterpretProcessor struct {
	Space   *pkgspace.Space
	Package string
	Ctx     value.CallContext
}

func (p NativeInterpretProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Program == nil {
		ctx.AddError(fmt.Errorf("running %s: no program to run natively", ctx.FilePath))
		return ctx
	}
	space := p.Space
	if space == nil {
		space = pkgspace.New()
	}
	pkg := p.Package
	if pkg == "" {
		pkg = "main"
	}
	em := native.New(space)
	result, err := em.Run(ctx.Program, pkg, value.NewArray(), p.Ctx)
	if err != nil {
		ctx.AddError(fmt.Errorf("running %s: %w", ctx.FilePath, err))
		return ctx
	}
	ctx.Result = result
	return ctx
}
