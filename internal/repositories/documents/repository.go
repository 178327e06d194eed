// Package documents persists per-user, per-collection document records.
// Every record lives in exactly one (user, collection) partition, and the
// store is the sole writer of that partition.
package documents

import (
	"context"

	"github.com/incomiq/incomiq/internal/models"
)

// Collection gives typed access to one collection across all users.
//
// Implementations must serialize mutations per (user, collection) key so
// that concurrent Append/Delete/Update calls are equivalent to some total
// order and no completed effect is lost. Ordering across different keys is
// not implied.
type Collection[T models.Document] interface {
	// List returns the partition's records in insertion order. A partition
	// that has never been written lists as empty.
	List(ctx context.Context, userID string) ([]T, error)

	// Append stores one record, assigning ID and CreatedAt if absent and
	// forcing UserID to the partition key. Returns the stored record.
	Append(ctx context.Context, userID string, rec T) (T, error)

	// AppendBulk stores records with the same defaulting as Append under a
	// single persist. Returns the number of records stored.
	AppendBulk(ctx context.Context, userID string, recs []T) (int, error)

	// Delete removes exactly one record by id. Returns false when no record
	// with that id exists.
	Delete(ctx context.Context, userID, id string) (bool, error)

	// Update applies mutate to the record with the given id inside the
	// partition's write lock and persists the result. Fails with
	// common.ErrorNotFound if the id is absent.
	Update(ctx context.Context, userID, id string, mutate func(T) error) (T, error)
}

// Store bundles the four document collections.
type Store interface {
	Incomes() Collection[*models.Income]
	Expenses() Collection[*models.Expense]
	Rules() Collection[*models.Rule]
	Goals() Collection[*models.Goal]
}
