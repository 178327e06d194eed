package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/incomiq/incomiq/internal/common"
	"github.com/incomiq/incomiq/internal/dbx"
	"github.com/incomiq/incomiq/internal/models"
)

// PostgresStore implements Store on a single documents table with a jsonb
// payload column. Insertion order is kept by a bigserial seq column, and
// per-key serialization of read-modify-write comes from row locks taken
// inside a transaction.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore returns a store bound to the given database.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Incomes implements Store.
func (s *PostgresStore) Incomes() Collection[*models.Income] {
	return &postgresCollection[*models.Income]{db: s.db, name: models.CollectionIncomes}
}

// Expenses implements Store.
func (s *PostgresStore) Expenses() Collection[*models.Expense] {
	return &postgresCollection[*models.Expense]{db: s.db, name: models.CollectionExpenses}
}

// Rules implements Store.
func (s *PostgresStore) Rules() Collection[*models.Rule] {
	return &postgresCollection[*models.Rule]{db: s.db, name: models.CollectionRules}
}

// Goals implements Store.
func (s *PostgresStore) Goals() Collection[*models.Goal] {
	return &postgresCollection[*models.Goal]{db: s.db, name: models.CollectionGoals}
}

type postgresCollection[T models.Document] struct {
	db   *sql.DB
	name string
}

// List implements Collection.
func (c *postgresCollection[T]) List(ctx context.Context, userID string) ([]T, error) {
	query := `
		SELECT payload FROM documents
		WHERE user_id = $1 AND collection = $2
		ORDER BY seq
	`
	rows, err := c.db.QueryContext(ctx, query, userID, c.name)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var recs []T
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		var rec T
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return recs, nil
}

func (c *postgresCollection[T]) insert(ctx context.Context, db dbx.DBTX, userID string, rec T) error {
	stamp(userID, rec)

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	query := `
		INSERT INTO documents (user_id, collection, id, created_at, payload)
		VALUES ($1, $2, $3, $4, $5)
	`
	m := rec.Meta()
	if _, err := db.ExecContext(ctx, query, userID, c.name, m.ID, m.CreatedAt, payload); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Append implements Collection.
func (c *postgresCollection[T]) Append(ctx context.Context, userID string, rec T) (T, error) {
	var zero T
	if err := c.insert(ctx, c.db, userID, rec); err != nil {
		return zero, err
	}
	return rec, nil
}

// AppendBulk implements Collection.
func (c *postgresCollection[T]) AppendBulk(ctx context.Context, userID string, recs []T) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}

	err := dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, rec := range recs {
			if err := c.insert(ctx, tx, userID, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}

// Delete implements Collection.
func (c *postgresCollection[T]) Delete(ctx context.Context, userID, id string) (bool, error) {
	query := `
		DELETE FROM documents
		WHERE user_id = $1 AND collection = $2 AND id = $3
	`
	res, err := c.db.ExecContext(ctx, query, userID, c.name, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

// Update implements Collection.
func (c *postgresCollection[T]) Update(ctx context.Context, userID, id string, mutate func(T) error) (T, error) {
	var rec T

	err := dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		selectQuery := `
			SELECT payload FROM documents
			WHERE user_id = $1 AND collection = $2 AND id = $3
			FOR UPDATE
		`
		var payload []byte
		err := tx.QueryRowContext(ctx, selectQuery, userID, c.name, id).Scan(&payload)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return common.ErrorNotFound
			}
			return fmt.Errorf("db error: %w", err)
		}

		if err := json.Unmarshal(payload, &rec); err != nil {
			return fmt.Errorf("decode document: %w", err)
		}
		if err := mutate(rec); err != nil {
			return err
		}

		updated, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode document: %w", err)
		}

		updateQuery := `
			UPDATE documents SET payload = $1
			WHERE user_id = $2 AND collection = $3 AND id = $4
		`
		if _, err := tx.ExecContext(ctx, updateQuery, updated, userID, c.name, id); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return rec, nil
}
