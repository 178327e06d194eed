// Package repomanager wires a storage backend together: it vends the
// account, token and document repositories and owns backend lifecycle
// concerns such as schema migrations.
package repomanager

import (
	"context"

	"github.com/incomiq/incomiq/internal/repositories/accounts"
	"github.com/incomiq/incomiq/internal/repositories/documents"
	"github.com/incomiq/incomiq/internal/repositories/tokens"
)

// RepositoryManager is what the service layer depends on. Two backends
// exist: JSON files under a data directory (the default) and postgres.
type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Accounts() accounts.Repository
	Tokens() tokens.Repository
	Documents() documents.Store
	Close() error
}
