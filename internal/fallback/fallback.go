// Package fallback wraps calls whose failure must never stop the pipeline.
// A step either produces its own value or a safe default, and the Result
// records which of the two happened.
package fallback

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Path tells how a Result value was produced.
type Path int

const (
	// Success means the wrapped operation produced the value.
	Success Path = iota
	// Fallback means the default value was substituted.
	Fallback
)

func (p Path) String() string {
	switch p {
	case Success:
		return "success"
	case Fallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// ErrNoCredentials is the fallback cause when no model API key is configured.
var ErrNoCredentials = errors.New("language model credentials not configured")

// Result is the outcome of a guarded step. Err is the reason the default was
// used and is nil on Success.
type Result[T any] struct {
	Value T
	Path  Path
	Err   error
}

// FellBack reports whether the default value was substituted.
func (r Result[T]) FellBack() bool {
	return r.Path == Fallback
}

// Ok wraps a value produced by the operation itself.
func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v, Path: Success}
}

// Default wraps a substituted value together with its cause.
func Default[T any](v T, cause error) Result[T] {
	return Result[T]{Value: v, Path: Fallback, Err: cause}
}

// Do runs op and returns its value. On error the failure is logged under
// step and def is returned instead.
func Do[T any](ctx context.Context, log zerolog.Logger, step string, def T, op func(context.Context) (T, error)) Result[T] {
	v, err := op(ctx)
	if err != nil {
		log.Warn().Err(err).Str("step", step).Msg("step failed, using default")
		return Default(def, err)
	}
	return Ok(v)
}
