package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/incomiq/incomiq/internal/common"
	"github.com/incomiq/incomiq/internal/emailpolicy"
	"github.com/incomiq/incomiq/internal/logging"
	"github.com/incomiq/incomiq/internal/repositories/repomanager"
)

func newTestManager(t *testing.T) repomanager.RepositoryManager {
	t.Helper()
	m, err := repomanager.NewFileRepositoryManager(t.TempDir())
	require.NoError(t, err)
	return m
}

func newTestLogger(t *testing.T) logging.Logger {
	t.Helper()
	return logging.NewZapLogger(zaptest.NewLogger(t))
}

func newCredentialService(t *testing.T, m repomanager.RepositoryManager) *CredentialService {
	t.Helper()
	return NewCredentialService(m, emailpolicy.Default(), newTestLogger(t))
}

func TestSignup_Success(t *testing.T) {
	m := newTestManager(t)
	s := newCredentialService(t, m)
	ctx := context.Background()

	account, token, err := s.Signup(ctx, " Alice@Gmail.com ", "secret1", "Alice Kumar")
	require.NoError(t, err)

	assert.Equal(t, "alice@gmail.com", account.Email)
	assert.Equal(t, "Alice Kumar", account.FullName)
	assert.True(t, account.IsNewAccount)
	assert.Len(t, account.ID, 32)
	assert.Greater(t, len(token), 20)

	// The issued token must already be registered.
	email, err := m.Tokens().Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "alice@gmail.com", email)
}

func TestSignup_PasswordNeverStoredPlain(t *testing.T) {
	m := newTestManager(t)
	s := newCredentialService(t, m)

	account, _, err := s.Signup(context.Background(), "alice@gmail.com", "secret1", "Alice Kumar")
	require.NoError(t, err)

	assert.NotContains(t, account.PasswordHash, "secret1")
	assert.NotEmpty(t, account.PasswordSalt)
	assert.NotEqual(t, account.PasswordHash, account.PasswordSalt)
}

func TestSignup_ValidationOrder(t *testing.T) {
	s := newCredentialService(t, newTestManager(t))
	ctx := context.Background()

	_, _, err := s.Signup(ctx, "not-an-email", "secret1", "Alice Kumar")
	assert.ErrorIs(t, err, common.ErrInvalidEmail)

	_, _, err = s.Signup(ctx, "alice@gmail.com", "12345", "Alice Kumar")
	assert.ErrorIs(t, err, common.ErrWeakPassword)

	_, _, err = s.Signup(ctx, "alice@gmail.com", "secret1", " A ")
	assert.ErrorIs(t, err, common.ErrInvalidName)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	s := newCredentialService(t, newTestManager(t))
	ctx := context.Background()

	_, _, err := s.Signup(ctx, "alice@gmail.com", "secret1", "Alice Kumar")
	require.NoError(t, err)

	// Same address with different casing is still a duplicate.
	_, _, err = s.Signup(ctx, "ALICE@gmail.com", "other-password", "Alice Again")
	assert.ErrorIs(t, err, common.ErrDuplicateAccount)
}

func TestLogin_Success(t *testing.T) {
	s := newCredentialService(t, newTestManager(t))
	ctx := context.Background()

	_, signupToken, err := s.Signup(ctx, "alice@gmail.com", "secret1", "Alice Kumar")
	require.NoError(t, err)

	account, loginToken, err := s.Login(ctx, "Alice@Gmail.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice@gmail.com", account.Email)
	assert.NotEqual(t, signupToken, loginToken, "every login must mint a fresh token")
}

func TestLogin_WrongPasswordAndUnknownEmailShareError(t *testing.T) {
	s := newCredentialService(t, newTestManager(t))
	ctx := context.Background()

	_, _, err := s.Signup(ctx, "alice@gmail.com", "secret1", "Alice Kumar")
	require.NoError(t, err)

	_, _, wrongPass := s.Login(ctx, "alice@gmail.com", "wrong")
	_, _, unknown := s.Login(ctx, "nobody@gmail.com", "secret1")

	assert.ErrorIs(t, wrongPass, common.ErrInvalidCredentials)
	assert.ErrorIs(t, unknown, common.ErrInvalidCredentials)
	assert.Equal(t, wrongPass.Error(), unknown.Error())
}

func TestMarkActive_Idempotent(t *testing.T) {
	m := newTestManager(t)
	s := newCredentialService(t, m)
	ctx := context.Background()

	_, _, err := s.Signup(ctx, "alice@gmail.com", "secret1", "Alice Kumar")
	require.NoError(t, err)

	require.NoError(t, s.MarkActive(ctx, "alice@gmail.com"))
	require.NoError(t, s.MarkActive(ctx, "alice@gmail.com"))

	account, err := s.LookupByEmail(ctx, "alice@gmail.com")
	require.NoError(t, err)
	assert.False(t, account.IsNewAccount)
}

func TestEnsureAdmin_CreatesOnce(t *testing.T) {
	s := newCredentialService(t, newTestManager(t))
	ctx := context.Background()

	first, err := s.EnsureAdmin(ctx, "admin@incomiq.com", "admin123", "Admin")
	require.NoError(t, err)
	assert.True(t, first.IsAdmin)
	assert.False(t, first.IsNewAccount)

	second, err := s.EnsureAdmin(ctx, "admin@incomiq.com", "other", "Admin")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.PasswordHash, second.PasswordHash, "existing admin keeps its password")
}

func TestEnsureAdmin_PromotesExistingAccount(t *testing.T) {
	s := newCredentialService(t, newTestManager(t))
	ctx := context.Background()

	created, _, err := s.Signup(ctx, "ops@gmail.com", "secret1", "Ops Person")
	require.NoError(t, err)
	assert.False(t, created.IsAdmin)

	promoted, err := s.EnsureAdmin(ctx, "ops@gmail.com", "ignored", "Ops Person")
	require.NoError(t, err)
	assert.Equal(t, created.ID, promoted.ID)
	assert.True(t, promoted.IsAdmin)
}

func TestCheckPassword_RejectsBadHex(t *testing.T) {
	assert.False(t, checkPassword("secret1", "zz-not-hex", "00"))
	assert.False(t, checkPassword("secret1", "00", "zz-not-hex"))
}
