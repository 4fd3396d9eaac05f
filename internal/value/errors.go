package value

import (
	"errors"
	"fmt"
)

// RuntimeError is a catchable error raised by an undefined operation
// (division by zero, calling an undefined sub, and the like). It is
// deliberately a plain error, not a panic: both the interpreter and
// the native emitter propagate it as a normal Go error return up to
// the nearest try/catch frame rather than unwinding the host stack.
type RuntimeError struct {
	Op      string
	Message string
}

func (e *RuntimeError) Error() string {
	if e.Op != "" {
		return e.Op + ": " + e.Message
	}
	return e.Message
}

func Errf(op, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Op: op, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrDivByZero   = &RuntimeError{Op: "/", Message: "illegal division by zero"}
	ErrModByZero   = &RuntimeError{Op: "%", Message: "illegal modulus zero"}
	ErrNotCallable = errors.New("not a CODE reference")
	ErrNotRef      = errors.New("not a reference")
)
