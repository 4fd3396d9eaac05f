package native

import (
	"github.com/fglock/PerlOnJava-sub015/internal/ctlflow"
	"github.com/fglock/PerlOnJava-sub015/internal/value"
)

// signalKind tags what execStmt/execBlock is propagating upward
// instead of falling through to the next statement.
type signalKind int

const (
	sigNone signalKind = iota
	sigReturn
	// sigMarker carries a last/next/redo/goto(&NAME) control marker
	// that hasn't been claimed by a loop yet.
	sigMarker
	// sigGoto carries a same-function `goto LABEL` restart request.
	sigGoto
)

// signal is the tree-walker's analogue of the bytecode backend's
// OP_RETURN/OP_MAKE_MARKER instructions: instead of an instruction
// stream unwinding register by register, a Go return value threads
// the same information back up through execStmt/execBlock.
type signal struct {
	kind signalKind

	retVal []value.Scalar

	marker *ctlflow.Marker
	// hops counts how many more enclosing loop frames (within this
	// function) must see this signal before one of them claims it.
	// -1 means "not yet resolved against a dispatcher": the next loop
	// frame tests marker.MatchLoop directly instead of counting down.
	hops int

	gotoLabel string
}
