package diag

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// PrintVerbose writes err to w (normally os.Stderr) when the
// EVAL_VERBOSE policy (internal/config) is active: eval compile-time
// errors are silent by default and only escalate to stderr under this
// switch. Output is colorized only when w is a real terminal, using
// the same isatty.IsTerminal/IsCygwinTerminal pairing builtins_term.go
// uses to detect an interactive stream.
func PrintVerbose(w io.Writer, err error) {
	if err == nil {
		return
	}
	msg := err.Error()
	if t, ok := err.(*Traced); ok {
		msg = t.Render()
	}
	if f, ok := w.(*os.File); ok && isTerminal(f) {
		fmt.Fprintf(w, "\x1b[31m%s\x1b[0m", msg)
		return
	}
	fmt.Fprint(w, msg)
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
