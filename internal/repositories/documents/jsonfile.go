package documents

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/incomiq/incomiq/internal/common"
	"github.com/incomiq/incomiq/internal/filex"
	"github.com/incomiq/incomiq/internal/models"
)

// FileStore keeps one JSON array per (user, collection) partition, in files
// named "<userID>_<collection>.json". A per-key mutex registry serializes
// mutations of one partition; every write replaces the file via temp-file +
// rename, so a completed append or delete is never silently lost and a
// crash mid-write never yields a truncated file.
type FileStore struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFileStore stores partitions under dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir, locks: map[string]*sync.Mutex{}}
}

// Incomes implements Store.
func (s *FileStore) Incomes() Collection[*models.Income] {
	return &fileCollection[*models.Income]{store: s, name: models.CollectionIncomes}
}

// Expenses implements Store.
func (s *FileStore) Expenses() Collection[*models.Expense] {
	return &fileCollection[*models.Expense]{store: s, name: models.CollectionExpenses}
}

// Rules implements Store.
func (s *FileStore) Rules() Collection[*models.Rule] {
	return &fileCollection[*models.Rule]{store: s, name: models.CollectionRules}
}

// Goals implements Store.
func (s *FileStore) Goals() Collection[*models.Goal] {
	return &fileCollection[*models.Goal]{store: s, name: models.CollectionGoals}
}

// keyMutex returns the mutex guarding one (user, collection) partition,
// creating it on first use.
func (s *FileStore) keyMutex(userID, collection string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := userID + "/" + collection
	m, ok := s.locks[key]
	if !ok {
		m = &sync.Mutex{}
		s.locks[key] = m
	}
	return m
}

func (s *FileStore) path(userID, collection string) string {
	return filepath.Join(s.dir, userID+"_"+collection+".json")
}

type fileCollection[T models.Document] struct {
	store *FileStore
	name  string
}

// load reads the partition file. Missing file means empty partition; a
// corrupt file is an error so that a later save cannot clobber records
// behind a failed read.
func (c *fileCollection[T]) load(userID string) ([]T, error) {
	path := c.store.path(userID, c.name)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var recs []T
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return recs, nil
}

// save persists the whole partition.
func (c *fileCollection[T]) save(userID string, recs []T) error {
	path := c.store.path(userID, c.name)

	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	return filex.WriteFileAtomic(path, data, 0o660)
}

func stamp[T models.Document](userID string, rec T) {
	m := rec.Meta()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.UserID = userID
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
}

// List implements Collection.
func (c *fileCollection[T]) List(ctx context.Context, userID string) ([]T, error) {
	lock := c.store.keyMutex(userID, c.name)
	lock.Lock()
	defer lock.Unlock()

	return c.load(userID)
}

// Append implements Collection.
func (c *fileCollection[T]) Append(ctx context.Context, userID string, rec T) (T, error) {
	var zero T

	lock := c.store.keyMutex(userID, c.name)
	lock.Lock()
	defer lock.Unlock()

	recs, err := c.load(userID)
	if err != nil {
		return zero, err
	}

	stamp(userID, rec)
	recs = append(recs, rec)

	if err := c.save(userID, recs); err != nil {
		return zero, err
	}
	return rec, nil
}

// AppendBulk implements Collection.
func (c *fileCollection[T]) AppendBulk(ctx context.Context, userID string, newRecs []T) (int, error) {
	if len(newRecs) == 0 {
		return 0, nil
	}

	lock := c.store.keyMutex(userID, c.name)
	lock.Lock()
	defer lock.Unlock()

	recs, err := c.load(userID)
	if err != nil {
		return 0, err
	}

	for _, rec := range newRecs {
		stamp(userID, rec)
		recs = append(recs, rec)
	}

	if err := c.save(userID, recs); err != nil {
		return 0, err
	}
	return len(newRecs), nil
}

// Delete implements Collection.
func (c *fileCollection[T]) Delete(ctx context.Context, userID, id string) (bool, error) {
	lock := c.store.keyMutex(userID, c.name)
	lock.Lock()
	defer lock.Unlock()

	recs, err := c.load(userID)
	if err != nil {
		return false, err
	}

	kept := recs[:0]
	found := false
	for _, rec := range recs {
		if rec.Meta().ID == id {
			found = true
			continue
		}
		kept = append(kept, rec)
	}
	if !found {
		return false, nil
	}

	if err := c.save(userID, kept); err != nil {
		return false, err
	}
	return true, nil
}

// Update implements Collection.
func (c *fileCollection[T]) Update(ctx context.Context, userID, id string, mutate func(T) error) (T, error) {
	var zero T

	lock := c.store.keyMutex(userID, c.name)
	lock.Lock()
	defer lock.Unlock()

	recs, err := c.load(userID)
	if err != nil {
		return zero, err
	}

	for _, rec := range recs {
		if rec.Meta().ID != id {
			continue
		}
		if err := mutate(rec); err != nil {
			return zero, err
		}
		if err := c.save(userID, recs); err != nil {
			return zero, err
		}
		return rec, nil
	}

	return zero, common.ErrorNotFound
}
