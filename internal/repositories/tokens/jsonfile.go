package tokens

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/incomiq/incomiq/internal/common"
	"github.com/incomiq/incomiq/internal/filex"
)

const tokensFileName = "tokens.json"

// FileRepository keeps the token registry in a single JSON object. The same
// locked read-modify-write plus atomic-rename discipline as the account
// registry applies: concurrent logins may interleave, but no registered
// token is ever lost and a crash never truncates the file.
type FileRepository struct {
	path string
	mu   sync.Mutex
}

// NewFileRepository stores the registry under dir.
func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{path: filepath.Join(dir, tokensFileName)}
}

func (r *FileRepository) load() (map[string]string, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", r.path, err)
	}

	byToken := map[string]string{}
	if len(data) == 0 {
		return byToken, nil
	}
	if err := json.Unmarshal(data, &byToken); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.path, err)
	}
	return byToken, nil
}

// Register implements Repository.
func (r *FileRepository) Register(ctx context.Context, token, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byToken, err := r.load()
	if err != nil {
		return err
	}
	byToken[token] = email

	data, err := json.MarshalIndent(byToken, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", r.path, err)
	}
	return filex.WriteFileAtomic(r.path, data, 0o660)
}

// Resolve implements Repository.
func (r *FileRepository) Resolve(ctx context.Context, token string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byToken, err := r.load()
	if err != nil {
		return "", err
	}
	email, ok := byToken[token]
	if !ok {
		return "", common.ErrorNotFound
	}
	return email, nil
}
