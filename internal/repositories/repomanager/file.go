package repomanager

import (
	"context"

	"github.com/incomiq/incomiq/internal/filex"
	"github.com/incomiq/incomiq/internal/repositories/accounts"
	"github.com/incomiq/incomiq/internal/repositories/documents"
	"github.com/incomiq/incomiq/internal/repositories/tokens"
)

// FileRepositoryManager backs all repositories with JSON files under a
// single data directory.
type FileRepositoryManager struct {
	dir       string
	accounts  *accounts.FileRepository
	tokens    *tokens.FileRepository
	documents *documents.FileStore
}

// NewFileRepositoryManager constructs a file-backed RepositoryManager
// rooted at dir.
func NewFileRepositoryManager(dir string) (RepositoryManager, error) {
	return &FileRepositoryManager{
		dir:       dir,
		accounts:  accounts.NewFileRepository(dir),
		tokens:    tokens.NewFileRepository(dir),
		documents: documents.NewFileStore(dir),
	}, nil
}

// RunMigrations ensures the data directory exists. The file backend has no
// schema to migrate.
func (m *FileRepositoryManager) RunMigrations(ctx context.Context) error {
	return filex.EnsureDir(m.dir)
}

func (m *FileRepositoryManager) Accounts() accounts.Repository {
	return m.accounts
}

func (m *FileRepositoryManager) Tokens() tokens.Repository {
	return m.tokens
}

func (m *FileRepositoryManager) Documents() documents.Store {
	return m.documents
}

func (m *FileRepositoryManager) Close() error {
	return nil
}
