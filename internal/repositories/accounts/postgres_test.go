package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/incomiq/incomiq/internal/common"
)

func TestPostgresRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO accounts").
		WithArgs("id1", "alice@gmail.com", "Alice", "hash", "salt", sqlmock.AnyArg(), true, false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgresRepository(db)
	a := testAccount("alice@gmail.com")
	a.ID, a.FullName, a.PasswordHash, a.PasswordSalt = "id1", "Alice", "hash", "salt"

	require.NoError(t, repo.Create(context.Background(), a))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_CreateDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO accounts").
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})

	repo := NewPostgresRepository(db)
	err = repo.Create(context.Background(), testAccount("alice@gmail.com"))
	require.ErrorIs(t, err, common.ErrDuplicateAccount)
}

func TestPostgresRepository_GetByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cols := []string{"id", "email", "full_name", "password_hash", "password_salt", "created_at", "is_new_account", "is_admin"}
	mock.ExpectQuery("SELECT (.+) FROM accounts").
		WithArgs("alice@gmail.com").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("id1", "alice@gmail.com", "Alice", "h", "s", time.Now(), true, false))

	repo := NewPostgresRepository(db)
	got, err := repo.GetByEmail(context.Background(), "alice@gmail.com")
	require.NoError(t, err)
	require.Equal(t, "id1", got.ID)
}

func TestPostgresRepository_GetByEmailMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cols := []string{"id", "email", "full_name", "password_hash", "password_salt", "created_at", "is_new_account", "is_admin"}
	mock.ExpectQuery("SELECT (.+) FROM accounts").
		WillReturnRows(sqlmock.NewRows(cols))

	repo := NewPostgresRepository(db)
	_, err = repo.GetByEmail(context.Background(), "ghost@gmail.com")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestPostgresRepository_UpdateMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE accounts").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewPostgresRepository(db)
	err = repo.Update(context.Background(), testAccount("ghost@gmail.com"))
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestPostgresRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cols := []string{"id", "email", "full_name", "password_hash", "password_salt", "created_at", "is_new_account", "is_admin"}
	mock.ExpectQuery("SELECT (.+) FROM accounts").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("id1", "a@gmail.com", "A", "h", "s", time.Now(), false, false).
			AddRow("id2", "b@gmail.com", "B", "h", "s", time.Now(), true, true))

	repo := NewPostgresRepository(db)
	list, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.True(t, list[1].IsAdmin)
}
