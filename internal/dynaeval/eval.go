package dynaeval

import (
	"os"

	"github.com/fglock/PerlOnJava-sub015/internal/bytecode"
	"github.com/fglock/PerlOnJava-sub015/internal/config"
	"github.com/fglock/PerlOnJava-sub015/internal/diag"
	"github.com/fglock/PerlOnJava-sub015/internal/frontend"
	"github.com/fglock/PerlOnJava-sub015/internal/interp"
	"github.com/fglock/PerlOnJava-sub015/internal/native"
	"github.com/fglock/PerlOnJava-sub015/internal/pkgspace"
	"github.com/fglock/PerlOnJava-sub015/internal/value"
)

// Eval services one `eval STRING` call site: parse source (via
// parser, since this repo owns no front end of its own), resolve
// which backend config.EvalPolicy selects for a string of this
// length, and run it. pkg is the package in effect where the eval
// statement appears; the parsed program compiles against it unless it
// contains its own `package` declaration.
//
// An interpreter-backend result is never handed back directly: it is
// registered into Shared() and invoked through a Wrapper, exercising
// the same marker-artifact indirection a natively-compiled call site
// would use to reach it. A native-backend result runs straight
// through internal/native, since there the call site already is the
// thing invoking it.
func Eval(parser frontend.Parser, space *pkgspace.Space, source, pkg string, args *value.Array, ctx value.CallContext) ([]value.Scalar, error) {
	policy := config.LoadEvalPolicy()

	prog, err := parser.Parse(source, pkg)
	if err != nil {
		if policy.Verbose {
			diag.PrintVerbose(os.Stderr, err)
		}
		return nil, err
	}

	backend := policy.ResolvedBackend(len(source))

	if backend == config.EvalBackendInterpreter {
		bc := bytecode.CompileProgram(prog, "<eval>", pkg)
		code := interp.New(space).MakeCode("<eval>", bc)
		id := Shared().Register(code)
		result, err := Shared().Wrapper(id).Call(args, ctx)
		if err != nil && policy.Verbose {
			diag.PrintVerbose(os.Stderr, err)
		}
		return result, err
	}

	result, err := native.New(space).Run(prog, pkg, args, ctx)
	if err != nil && policy.Verbose {
		diag.PrintVerbose(os.Stderr, err)
	}
	return result, err
}
