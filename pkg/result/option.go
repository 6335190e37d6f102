package result

import "fmt"

// Option models a possibly-absent value without nil ambiguity. Exactly one
// variant is populated; construct through Some, None, or FromPtr.
type Option[T any] struct {
	value T
	some  bool
}

// Some creates a present Option.
func Some[T any](value T) Option[T] {
	return Option[T]{value: value, some: true}
}

// None creates an absent Option.
func None[T any]() Option[T] {
	return Option[T]{}
}

// FromPtr converts a nilable pointer into an Option over the pointed-to
// value.
func FromPtr[T any](p *T) Option[T] {
	if p == nil {
		return None[T]()
	}
	return Some(*p)
}

// IsSome reports whether a value is present.
func (o Option[T]) IsSome() bool {
	return o.some
}

// IsNone reports whether the Option is absent.
func (o Option[T]) IsNone() bool {
	return !o.some
}

// Unwrap returns the value and whether it is present.
func (o Option[T]) Unwrap() (T, bool) {
	return o.value, o.some
}

// UnwrapOr returns the value, or the default when absent.
func (o Option[T]) UnwrapOr(defaultValue T) T {
	if !o.some {
		return defaultValue
	}
	return o.value
}

// UnwrapOrElse returns the value, or computes a default when absent.
func (o Option[T]) UnwrapOrElse(fn func() T) T {
	if !o.some {
		return fn()
	}
	return o.value
}

// OkOr converts to a Result, using err for the None case.
func (o Option[T]) OkOr(err *AppError) Result[T] {
	if !o.some {
		return Err[T](err)
	}
	return Ok(o.value)
}

// OkOrElse converts to a Result, computing the error for the None case.
func (o Option[T]) OkOrElse(fn func() *AppError) Result[T] {
	if !o.some {
		return Err[T](fn())
	}
	return Ok(o.value)
}

// Filter keeps the value only when the predicate holds.
func (o Option[T]) Filter(predicate func(T) bool) Option[T] {
	if o.some && predicate(o.value) {
		return o
	}
	return None[T]()
}

// ToPtr converts to a nilable pointer.
func (o Option[T]) ToPtr() *T {
	if !o.some {
		return nil
	}
	v := o.value
	return &v
}

// MapOpt transforms the value if present.
func MapOpt[T, U any](o Option[T], fn func(T) U) Option[U] {
	if !o.some {
		return None[U]()
	}
	return Some(fn(o.value))
}

// AndThenOpt chains a dependent Option-returning step, short-circuiting on
// None.
func AndThenOpt[T, U any](o Option[T], fn func(T) Option[U]) Option[U] {
	if !o.some {
		return None[U]()
	}
	return fn(o.value)
}

// MatchOpt consumes the Option exhaustively.
func MatchOpt[T, U any](o Option[T], some func(T) U, none func() U) U {
	if !o.some {
		return none()
	}
	return some(o.value)
}

// CollectOptions aggregates a slice of Options into one, short-circuiting at
// the first None. Order of collected values is preserved.
func CollectOptions[T any](options []Option[T]) Option[[]T] {
	values := make([]T, 0, len(options))
	for _, o := range options {
		if !o.some {
			return None[[]T]()
		}
		values = append(values, o.value)
	}
	return Some(values)
}

// String implements fmt.Stringer for debug output.
func (o Option[T]) String() string {
	if !o.some {
		return "None"
	}
	return fmt.Sprintf("Some(%v)", o.value)
}
