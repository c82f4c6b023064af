package observability

import (
	"fmt"
	"runtime/debug"
)

// RecoverPanic recovers a panic in a defer and logs it with its stack. The
// panic is not re-raised.
func RecoverPanic(logger *Logger, context string) {
	if r := recover(); r != nil {
		logger.WithField("panic", r).
			WithField("stack", string(debug.Stack())).
			WithField("context", context).
			Error("panic recovered")
	}
}

// MustRecover converts a recovered panic value to an error, nil when no
// panic occurred.
func MustRecover(r interface{}) error {
	if r != nil {
		return fmt.Errorf("panic: %v", r)
	}
	return nil
}
