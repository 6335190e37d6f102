package result

import (
	"context"
	"fmt"
)

// Result holds either a success value or an *AppError. Exactly one side is
// populated; the zero value is Ok with T's zero value, so construct through
// Ok and Err. Results are immutable — every combinator returns a new value.
type Result[T any] struct {
	value T
	err   *AppError
}

// Ok creates a successful Result.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value}
}

// Err creates a failed Result.
func Err[T any](err *AppError) Result[T] {
	return Result[T]{err: err}
}

// Errf creates a failed Result from a format string.
func Errf[T any](format string, args ...any) Result[T] {
	return Result[T]{err: Newf(format, args...)}
}

// IsOk reports whether the Result holds a value.
func (r Result[T]) IsOk() bool {
	return r.err == nil
}

// IsErr reports whether the Result holds an error.
func (r Result[T]) IsErr() bool {
	return r.err != nil
}

// Value returns the success value. Only meaningful when IsOk.
func (r Result[T]) Value() T {
	return r.value
}

// Error returns the error, or nil for Ok.
func (r Result[T]) Error() *AppError {
	return r.err
}

// Get unpacks the Result into Go's conventional (value, error) pair.
func (r Result[T]) Get() (T, *AppError) {
	return r.value, r.err
}

// Context wraps the error with an added context frame. No-op on Ok.
func (r Result[T]) Context(context string) Result[T] {
	if r.err == nil {
		return r
	}
	return Result[T]{err: r.err.WithContext(context)}
}

// MapErr transforms the error channel. No-op on Ok.
func (r Result[T]) MapErr(fn func(*AppError) *AppError) Result[T] {
	if r.err == nil {
		return r
	}
	return Result[T]{err: fn(r.err)}
}

// UnwrapOr returns the value, or the default on Err.
func (r Result[T]) UnwrapOr(defaultValue T) T {
	if r.err != nil {
		return defaultValue
	}
	return r.value
}

// UnwrapOrElse returns the value, or computes a fallback from the error.
func (r Result[T]) UnwrapOrElse(fn func(*AppError) T) T {
	if r.err != nil {
		return fn(r.err)
	}
	return r.value
}

// Map transforms the success value. No-op on Err.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	if r.err != nil {
		return Result[U]{err: r.err}
	}
	return Ok(fn(r.value))
}

// AndThen chains a dependent Result-returning step, short-circuiting on Err.
func AndThen[T, U any](r Result[T], fn func(T) Result[U]) Result[U] {
	if r.err != nil {
		return Result[U]{err: r.err}
	}
	return fn(r.value)
}

// Match consumes the Result exhaustively.
func Match[T, U any](r Result[T], ok func(T) U, errFn func(*AppError) U) U {
	if r.err != nil {
		return errFn(r.err)
	}
	return ok(r.value)
}

// CollectResults aggregates a slice of Results into one, short-circuiting at
// the first Err. Order of collected values is preserved.
func CollectResults[T any](results []Result[T]) Result[[]T] {
	values := make([]T, 0, len(results))
	for _, r := range results {
		if r.err != nil {
			return Err[[]T](r.err)
		}
		values = append(values, r.value)
	}
	return Ok(values)
}

// Try is the approved boundary for converting a fallible Go function into a
// Result. It converts a returned error — and absorbs a panic — into an
// AppError, optionally attaching one context frame.
func Try[T any](fn func() (T, error), contextMsg ...string) (res Result[T]) {
	defer func() {
		if rec := recover(); rec != nil {
			res = errWithOptionalContext[T](FromValue(rec), contextMsg)
		}
	}()

	value, err := fn()
	if err != nil {
		return errWithOptionalContext[T](From(err), contextMsg)
	}
	return Ok(value)
}

// TryCtx is Try for context-aware functions.
func TryCtx[T any](ctx context.Context, fn func(context.Context) (T, error), contextMsg ...string) Result[T] {
	return Try(func() (T, error) { return fn(ctx) }, contextMsg...)
}

func errWithOptionalContext[T any](err *AppError, contextMsg []string) Result[T] {
	if len(contextMsg) > 0 && contextMsg[0] != "" {
		err = err.WithContext(contextMsg[0])
	}
	return Err[T](err)
}

// String implements fmt.Stringer for debug output.
func (r Result[T]) String() string {
	if r.err != nil {
		return fmt.Sprintf("Err(%s)", r.err.FullMessage())
	}
	return fmt.Sprintf("Ok(%v)", r.value)
}
