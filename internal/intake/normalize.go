// Package intake converts the heterogeneous values a host can throw at the
// pipeline into a single domain.ErrorEvent.
package intake

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/damoang/angple-bugreport/internal/domain"
	pkgerrors "github.com/pkg/errors"
)

// UnknownMessage is used when a value carries no message at all
const UnknownMessage = "Unknown error"

const maxFrames = 32

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// Normalize builds an ErrorEvent from v. Errors keep their message and, when
// created by github.com/pkg/errors, their stack. Any other value is coerced
// to a message-only event.
func Normalize(v any, source domain.ErrorSource, componentContext string) domain.ErrorEvent {
	event := domain.ErrorEvent{
		Source:           source,
		ComponentContext: domain.StringPtr(componentContext),
	}

	switch val := v.(type) {
	case nil:
		event.Message = UnknownMessage
	case error:
		event.Message = val.Error()
		event.Stack = domain.StringPtr(StackOf(val))
	case string:
		event.Message = val
	case fmt.Stringer:
		event.Message = val.String()
	default:
		event.Message = fmt.Sprintf("%v", val)
	}

	if strings.TrimSpace(event.Message) == "" {
		event.Message = UnknownMessage
	}
	return event
}

// NormalizePanic is Normalize for a recovered panic value. When the value
// has no stack of its own, the stack of the panicking goroutine is attached.
// It must be called from the deferred function that recovered.
func NormalizePanic(recovered any, source domain.ErrorSource, componentContext string) domain.ErrorEvent {
	event := Normalize(recovered, source, componentContext)
	if event.Stack == nil {
		event.Stack = domain.StringPtr(callerStack(3))
	}
	return event
}

// StackOf returns the innermost pkg/errors stack in err's chain, formatted
// as "function\n\tfile:line" pairs, or "" when there is none.
func StackOf(err error) string {
	var deepest stackTracer
	for e := err; e != nil; e = errors.Unwrap(e) {
		if st, ok := e.(stackTracer); ok {
			deepest = st
		}
	}
	if deepest == nil {
		return ""
	}
	return strings.TrimLeft(fmt.Sprintf("%+v", deepest.StackTrace()), "\n")
}

func callerStack(skip int) string {
	pcs := make([]uintptr, maxFrames)
	n := runtime.Callers(skip, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var collected []runtime.Frame
	for {
		frame, more := frames.Next()
		// recover 한 defer 함수와 panic 처리 프레임은 버린다
		if frame.Function == "runtime.gopanic" {
			collected = collected[:0]
		} else if frame.Function != "" && !strings.HasPrefix(frame.Function, "runtime.") {
			collected = append(collected, frame)
		}
		if !more {
			break
		}
	}

	var b strings.Builder
	for _, frame := range collected {
		fmt.Fprintf(&b, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
	}
	return strings.TrimRight(b.String(), "\n")
}
