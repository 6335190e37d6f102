// Package result provides Result and Option value types plus the AppError
// contextual error used throughout the client core. Fallible operations
// return a Result instead of a bare error so that failures carry an
// accumulated context chain all the way to the caller.
package result

import (
	"fmt"
	"strings"
)

const chainSeparator = " → "

// AppError is an immutable error value with a root cause and an ordered
// chain of context frames. The chain reads outermost-context-first.
type AppError struct {
	rootCause    string
	contextChain []string
}

// New creates an AppError with the given root cause and no context.
func New(rootCause string) *AppError {
	return &AppError{rootCause: rootCause}
}

// Newf creates an AppError from a format string.
func Newf(format string, args ...any) *AppError {
	return &AppError{rootCause: fmt.Sprintf(format, args...)}
}

// From normalizes any error into an AppError. An existing AppError is
// returned as-is; nil yields nil.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return &AppError{rootCause: err.Error()}
}

// FromValue normalizes an arbitrary value (e.g. a recovered panic) into an
// AppError.
func FromValue(v any) *AppError {
	switch val := v.(type) {
	case *AppError:
		return val
	case error:
		return &AppError{rootCause: val.Error()}
	case string:
		return &AppError{rootCause: val}
	default:
		return &AppError{rootCause: fmt.Sprint(val)}
	}
}

// WithContext returns a new AppError with the given context frame prepended
// to the chain. The receiver is not modified.
func (e *AppError) WithContext(context string) *AppError {
	chain := make([]string, 0, len(e.contextChain)+1)
	chain = append(chain, context)
	chain = append(chain, e.contextChain...)
	return &AppError{rootCause: e.rootCause, contextChain: chain}
}

// RootCause returns the innermost error message.
func (e *AppError) RootCause() string {
	return e.rootCause
}

// ContextChain returns a copy of the context frames, outermost first.
func (e *AppError) ContextChain() []string {
	chain := make([]string, len(e.contextChain))
	copy(chain, e.contextChain)
	return chain
}

// HasContext reports whether any context frames were added.
func (e *AppError) HasContext() bool {
	return len(e.contextChain) > 0
}

// FullMessage renders all context frames followed by the root cause.
func (e *AppError) FullMessage() string {
	if len(e.contextChain) == 0 {
		return e.rootCause
	}
	return strings.Join(e.contextChain, chainSeparator) + chainSeparator + e.rootCause
}

// DisplayMessage is the short user-facing message: the outermost context
// frame, or the root cause when there is none.
func (e *AppError) DisplayMessage() string {
	if len(e.contextChain) > 0 {
		return e.contextChain[0]
	}
	return e.rootCause
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return e.FullMessage()
}
