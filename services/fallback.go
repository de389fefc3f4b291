package services

import (
	"context"
	"errors"
)

// attempt is one entry of a sequential provider chain: a name for logging
// and attribution, and the call itself. Providers signal a useless (but
// non-error) result by returning ok=false.
type attempt[T any] struct {
	name string
	call func(ctx context.Context) (T, bool, error)
}

var errAllAttemptsFailed = errors.New("all providers failed")

// firstAcceptable tries each attempt in order and returns the first
// acceptable result together with the name of the provider that produced it.
// Errors and rejected results both fall through to the next provider.
func firstAcceptable[T any](ctx context.Context, attempts []attempt[T], onFail func(name string, err error)) (T, string, error) {
	var zero T
	for _, a := range attempts {
		v, ok, err := a.call(ctx)
		if err != nil {
			if onFail != nil {
				onFail(a.name, err)
			}
			continue
		}
		if !ok {
			if onFail != nil {
				onFail(a.name, nil)
			}
			continue
		}
		return v, a.name, nil
	}
	return zero, "", errAllAttemptsFailed
}
