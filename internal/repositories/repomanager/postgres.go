package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/incomiq/incomiq/internal/migrations"
	"github.com/incomiq/incomiq/internal/repositories/accounts"
	"github.com/incomiq/incomiq/internal/repositories/documents"
	"github.com/incomiq/incomiq/internal/repositories/tokens"
)

// PostgresRepositoryManager backs all repositories with a postgres
// database reached through the pgx stdlib driver.
type PostgresRepositoryManager struct {
	db        *sql.DB
	accounts  *accounts.PostgresRepository
	tokens    *tokens.PostgresRepository
	documents *documents.PostgresStore
}

// NewPostgresRepositoryManager opens the database at dsn and constructs a
// postgres-backed RepositoryManager. Migrations are not run here; call
// RunMigrations before use.
func NewPostgresRepositoryManager(dsn string) (RepositoryManager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	return &PostgresRepositoryManager{
		db:        db,
		accounts:  accounts.NewPostgresRepository(db),
		tokens:    tokens.NewPostgresRepository(db),
		documents: documents.NewPostgresStore(db),
	}, nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and applies
// them.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, m.db, ".")
}

func (m *PostgresRepositoryManager) Accounts() accounts.Repository {
	return m.accounts
}

func (m *PostgresRepositoryManager) Tokens() tokens.Repository {
	return m.tokens
}

func (m *PostgresRepositoryManager) Documents() documents.Store {
	return m.documents
}

func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}
