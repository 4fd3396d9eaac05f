package dynaeval

import (
	"os"
	"testing"

	"github.com/fglock/PerlOnJava-sub015/internal/ast"
	"github.com/fglock/PerlOnJava-sub015/internal/pkgspace"
	"github.com/fglock/PerlOnJava-sub015/internal/value"
)

// constParser ignores its source text and always returns `return 7;`,
// standing in for a real front end so Eval's backend-selection and
// marker-artifact wiring can be exercised without one.
type constParser struct{}

func (constParser) Parse(source, pkg string) (*ast.Program, error) {
	return &ast.Program{
		File: "<eval>",
		Body: []ast.Statement{
			&ast.ReturnStatement{Value: &ast.NumberLiteral{Int: 7}},
		},
	}, nil
}

func withEnv(t *testing.T, key, val string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	os.Setenv(key, val)
	t.Cleanup(func() {
		if had {
			os.Setenv(key, old)
		} else {
			os.Unsetenv(key)
		}
	})
}

func TestEvalInterpreterBackendRoutesThroughMarkerArtifact(t *testing.T) {
	withEnv(t, "EVAL_USE_INTERPRETER", "1")
	withEnv(t, "INTERPRETER_ONLY", "")

	space := pkgspace.New()
	before := len(Shared().codes)

	result, err := Eval(constParser{}, space, "7", "main", value.NewArray(), value.CtxScalar)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if len(result) != 1 || result[0].Int64() != 7 {
		t.Fatalf("expected [7], got %v", result)
	}
	if len(Shared().codes) != before+1 {
		t.Fatalf("expected Eval to register one new artifact in the shared table")
	}
}

func TestEvalNativeBackend(t *testing.T) {
	withEnv(t, "EVAL_USE_INTERPRETER", "0")
	withEnv(t, "INTERPRETER_ONLY", "")

	space := pkgspace.New()
	result, err := Eval(constParser{}, space, "7", "main", value.NewArray(), value.CtxScalar)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if len(result) != 1 || result[0].Int64() != 7 {
		t.Fatalf("expected [7], got %v", result)
	}
}
