package accounts

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/incomiq/incomiq/internal/common"
	"github.com/incomiq/incomiq/internal/filex"
	"github.com/incomiq/incomiq/internal/models"
)

const usersFileName = "users.json"

// FileRepository keeps all accounts in a single JSON object keyed by email.
// One mutex serializes every mutation of the file, so concurrent signups are
// arbitrated here: the first writer registers the email, later writers see
// it during their own locked read-modify-write and fail with
// ErrDuplicateAccount. Writes go through temp-file + rename so a crash never
// leaves a truncated registry.
type FileRepository struct {
	path string
	mu   sync.Mutex
}

// NewFileRepository stores the registry under dir.
func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{path: filepath.Join(dir, usersFileName)}
}

// load reads the registry. A missing file is an empty registry; a corrupt
// file is an error, never silently treated as empty, so a bad read can
// never cause a subsequent save to wipe existing accounts.
func (r *FileRepository) load() (map[string]*models.Account, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*models.Account{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", r.path, err)
	}

	byEmail := map[string]*models.Account{}
	if len(data) == 0 {
		return byEmail, nil
	}
	if err := json.Unmarshal(data, &byEmail); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.path, err)
	}
	return byEmail, nil
}

func (r *FileRepository) save(byEmail map[string]*models.Account) error {
	data, err := json.MarshalIndent(byEmail, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", r.path, err)
	}
	return filex.WriteFileAtomic(r.path, data, 0o660)
}

// Create implements Repository.
func (r *FileRepository) Create(ctx context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byEmail, err := r.load()
	if err != nil {
		return err
	}
	if _, exists := byEmail[account.Email]; exists {
		return common.ErrDuplicateAccount
	}
	byEmail[account.Email] = account
	return r.save(byEmail)
}

// GetByEmail implements Repository.
func (r *FileRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byEmail, err := r.load()
	if err != nil {
		return nil, err
	}
	account, ok := byEmail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return account, nil
}

// Update implements Repository.
func (r *FileRepository) Update(ctx context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byEmail, err := r.load()
	if err != nil {
		return err
	}
	if _, ok := byEmail[account.Email]; !ok {
		return common.ErrorNotFound
	}
	byEmail[account.Email] = account
	return r.save(byEmail)
}

// List implements Repository.
func (r *FileRepository) List(ctx context.Context) ([]*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byEmail, err := r.load()
	if err != nil {
		return nil, err
	}

	result := make([]*models.Account, 0, len(byEmail))
	for _, a := range byEmail {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].Email < result[j].Email
	})
	return result, nil
}
