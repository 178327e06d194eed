// Package accounts persists the global registry of user accounts, keyed by
// canonical email.
package accounts

import (
	"context"

	"github.com/incomiq/incomiq/internal/models"
)

// Repository stores accounts. Implementations must guarantee that Create is
// atomic with respect to the duplicate check: under concurrent signups for
// the same email exactly one caller succeeds and the rest get
// common.ErrDuplicateAccount.
type Repository interface {
	// Create stores a new account. Fails with common.ErrDuplicateAccount
	// if the email is already registered.
	Create(ctx context.Context, account *models.Account) error

	// GetByEmail returns the account registered under the canonical email,
	// or common.ErrorNotFound.
	GetByEmail(ctx context.Context, email string) (*models.Account, error)

	// Update replaces the stored account with the same email. Fails with
	// common.ErrorNotFound if the email is not registered.
	Update(ctx context.Context, account *models.Account) error

	// List returns every account, ordered by creation time. Used by the
	// administrative aggregation scan.
	List(ctx context.Context) ([]*models.Account, error)
}
