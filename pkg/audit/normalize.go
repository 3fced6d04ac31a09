package audit

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Normalize converts a raised error into its serializable payload: the
// error's type name, its message, and the stack at the point of handling.
// It is total — a malformed error (e.g. an Error method that panics on a
// nil receiver) degrades to kind "unknown" rather than failing the log
// call. Returns nil for a nil error.
func Normalize(err error) *ErrorPayload {
	if err == nil {
		return nil
	}
	p := &ErrorPayload{Trace: string(debug.Stack())}
	func() {
		defer func() {
			if recover() != nil {
				p.Kind = "unknown"
				// fmt recovers panics from Error methods itself, so this
				// always yields some printable description.
				p.Message = fmt.Sprintf("%v", any(err))
			}
		}()
		p.Message = err.Error()
		p.Kind = errorKind(err)
	}()
	return p
}

func errorKind(err error) string {
	kind := strings.TrimLeft(fmt.Sprintf("%T", err), "*")
	if kind == "errors.errorString" || kind == "fmt.wrapError" {
		kind = "error"
	}
	return kind
}
