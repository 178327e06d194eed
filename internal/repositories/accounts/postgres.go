package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/incomiq/incomiq/internal/common"
	"github.com/incomiq/incomiq/internal/dbx"
	"github.com/incomiq/incomiq/internal/models"
)

// PostgresRepository implements Repository on top of the accounts table.
// Duplicate arbitration is delegated to the primary key on email.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository returns a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const pgUniqueViolation = "23505"

// Create implements Repository.
func (r *PostgresRepository) Create(ctx context.Context, a *models.Account) error {
	query := `
		INSERT INTO accounts (id, email, full_name, password_hash, password_salt, created_at, is_new_account, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.Email, a.FullName, a.PasswordHash, a.PasswordSalt, a.CreatedAt, a.IsNewAccount, a.IsAdmin)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return common.ErrDuplicateAccount
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByEmail implements Repository.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `
		SELECT id, email, full_name, password_hash, password_salt, created_at, is_new_account, is_admin
		FROM accounts
		WHERE email = $1
	`
	a := &models.Account{}
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&a.ID, &a.Email, &a.FullName, &a.PasswordHash, &a.PasswordSalt, &a.CreatedAt, &a.IsNewAccount, &a.IsAdmin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

// Update implements Repository.
func (r *PostgresRepository) Update(ctx context.Context, a *models.Account) error {
	query := `
		UPDATE accounts
		SET full_name = $2, password_hash = $3, password_salt = $4, is_new_account = $5, is_admin = $6
		WHERE email = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		a.Email, a.FullName, a.PasswordHash, a.PasswordSalt, a.IsNewAccount, a.IsAdmin)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// List implements Repository.
func (r *PostgresRepository) List(ctx context.Context) ([]*models.Account, error) {
	query := `
		SELECT id, email, full_name, password_hash, password_salt, created_at, is_new_account, is_admin
		FROM accounts
		ORDER BY created_at, email
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Account
	for rows.Next() {
		a := &models.Account{}
		if err := rows.Scan(&a.ID, &a.Email, &a.FullName, &a.PasswordHash, &a.PasswordSalt,
			&a.CreatedAt, &a.IsNewAccount, &a.IsAdmin); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
