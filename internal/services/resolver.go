package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/incomiq/incomiq/internal/common"
	"github.com/incomiq/incomiq/internal/logging"
	"github.com/incomiq/incomiq/internal/models"
	"github.com/incomiq/incomiq/internal/repositories/repomanager"
)

// DemoToken is the fixed token of the read-only demo identity. It never
// touches the token registry.
const DemoToken = "demo-token"

// DemoUserID is the account id document operations use for the demo
// identity's seeded data.
const DemoUserID = "demo-user-001"

// minTokenLen rejects anything shorter than a real issued token. Issued
// tokens are 64 hex characters, so 20 leaves ample margin while still
// cutting off garbage input early.
const minTokenLen = 20

// AuthResolver turns bearer tokens into identities.
type AuthResolver struct {
	repos  repomanager.RepositoryManager
	logger logging.Logger
}

// NewAuthResolver constructs an AuthResolver.
func NewAuthResolver(m repomanager.RepositoryManager, logger logging.Logger) *AuthResolver {
	return &AuthResolver{repos: m, logger: logger}
}

func demoIdentity() *models.Identity {
	return &models.Identity{
		ID:       DemoUserID,
		Email:    "rahul@demo.com",
		FullName: "Rahul Kumar",
		IsDemo:   true,
	}
}

// Resolve maps a token to an identity. An empty token is
// common.ErrUnauthenticated; anything else that does not resolve to an
// account is common.ErrInvalidToken. The demo token short-circuits to the
// demo identity.
func (r *AuthResolver) Resolve(ctx context.Context, token string) (*models.Identity, error) {
	if token == "" {
		return nil, common.ErrUnauthenticated
	}
	if token == DemoToken {
		return demoIdentity(), nil
	}
	if len(token) <= minTokenLen {
		return nil, common.ErrInvalidToken
	}

	email, err := r.repos.Tokens().Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error resolving token: %w", err)
	}

	account, err := r.repos.Accounts().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// The token outlived its account.
			r.logger.Warn(ctx, "token resolves to missing account", "email", email)
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error loading account: %w", err)
	}

	return &models.Identity{
		ID:           account.ID,
		Email:        account.Email,
		FullName:     account.FullName,
		IsNewAccount: account.IsNewAccount,
		IsAdmin:      account.IsAdmin,
	}, nil
}
