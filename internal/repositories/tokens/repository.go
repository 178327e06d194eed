// Package tokens persists the registry of opaque bearer tokens. A token maps
// to exactly one account email. The registry is append-only: no expiry or
// revocation is modeled, so multiple live tokens per account are expected.
package tokens

import "context"

// Repository stores token → email mappings.
type Repository interface {
	// Register appends a mapping. The token must be unique; registering an
	// existing token overwrites its mapping (callers generate tokens from
	// 32 random bytes, so collisions do not occur in practice).
	Register(ctx context.Context, token, email string) error

	// Resolve returns the email a token was issued for, or
	// common.ErrorNotFound.
	Resolve(ctx context.Context, token string) (string, error)
}
