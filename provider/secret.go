package provider

import (
	"context"
	"crypto/subtle"
)

// Secret verifies the attempt returned by the consumer's challenge.
type Secret interface {
	Verify(ctx context.Context, attempt string) (bool, error)
}

// SecretString compares in constant time.
type SecretString string

func (s SecretString) Verify(_ context.Context, attempt string) (bool, error) {
	return subtle.ConstantTimeCompare([]byte(s), []byte(attempt)) == 1, nil
}

// SecretFunc delegates verification, for example to a backend.
type SecretFunc func(ctx context.Context, attempt string) (bool, error)

func (f SecretFunc) Verify(ctx context.Context, attempt string) (bool, error) {
	if f == nil {
		return false, nil
	}
	return f(ctx, attempt)
}
