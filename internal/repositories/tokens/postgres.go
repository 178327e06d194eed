package tokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/incomiq/incomiq/internal/common"
	"github.com/incomiq/incomiq/internal/dbx"
)

// PostgresRepository implements Repository on top of the tokens table.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository returns a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Register implements Repository.
func (r *PostgresRepository) Register(ctx context.Context, token, email string) error {
	query := `
		INSERT INTO tokens (token, email)
		VALUES ($1, $2)
		ON CONFLICT (token) DO UPDATE SET email = excluded.email
	`
	if _, err := r.db.ExecContext(ctx, query, token, email); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Resolve implements Repository.
func (r *PostgresRepository) Resolve(ctx context.Context, token string) (string, error) {
	query := `SELECT email FROM tokens WHERE token = $1`

	var email string
	err := r.db.QueryRowContext(ctx, query, token).Scan(&email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return email, nil
}
