package port

import "context"

type IdempotencyRepository interface {
	// Claim sets a pending key for idempotency check, returns false if already exists
	Claim(ctx context.Context, key string) (bool, error)

	// Complete marks a claimed key as done so it can no longer be released
	Complete(ctx context.Context, key string) error

	// Release removes a pending key so a failed request can be retried
	Release(ctx context.Context, key string) error
}
