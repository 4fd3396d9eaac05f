package native

import (
	"fmt"

	"github.com/fglock/PerlOnJava-sub015/internal/ast"
	"github.com/fglock/PerlOnJava-sub015/internal/bytecode"
	"github.com/fglock/PerlOnJava-sub015/internal/ctlflow"
)

// newMarker builds the control-flow marker a last/next/redo/goto
// statement rides out of its originating frame, stamping pos as
// "file:line" (useful for a diagnostic trace, never consulted by
// dispatch itself). The interpreter's OP_MAKE_MARKER leaves Location
// empty.
func newMarker(kind bytecode.ControlKind, label string, pos ast.Pos) *ctlflow.Marker {
	return &ctlflow.Marker{
		Kind:     kind,
		Label:    label,
		Location: fmt.Sprintf("%s:%d", pos.File, pos.Line),
	}
}
