// Package services contains the business logic: credential management,
// token resolution, document operations, and admin aggregations.
package services

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"github.com/incomiq/incomiq/internal/common"
	"github.com/incomiq/incomiq/internal/emailpolicy"
	"github.com/incomiq/incomiq/internal/logging"
	"github.com/incomiq/incomiq/internal/models"
	"github.com/incomiq/incomiq/internal/repositories/repomanager"
)

const (
	pbkdf2Iterations = 100000
	pbkdf2KeyLen     = 32
	saltLen          = 16
	accountIDLen     = 16
	tokenLen         = 32

	minPasswordLen = 6
	minNameLen     = 2
)

// CredentialService handles signup, login and account bootstrap. Passwords
// are stored as hex-encoded PBKDF2-HMAC-SHA256 hashes with a per-account
// random salt.
type CredentialService struct {
	repos  repomanager.RepositoryManager
	policy emailpolicy.Policy
	logger logging.Logger
}

// NewCredentialService constructs a CredentialService.
func NewCredentialService(m repomanager.RepositoryManager, policy emailpolicy.Policy, logger logging.Logger) *CredentialService {
	return &CredentialService{repos: m, policy: policy, logger: logger}
}

// CanonicalEmail normalizes an email for use as an account key.
func CanonicalEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(password string, salt []byte) string {
	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, pbkdf2KeyLen, sha256.New)
	return hex.EncodeToString(key)
}

// checkPassword compares a candidate against the stored hash in constant
// time over the raw key bytes.
func checkPassword(password, saltHex, hashHex string) bool {
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}
	stored, err := hex.DecodeString(hashHex)
	if err != nil {
		return false
	}
	candidate := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, pbkdf2KeyLen, sha256.New)
	return subtle.ConstantTimeCompare(stored, candidate) == 1
}

func (s *CredentialService) validateSignup(email, password, fullName string) error {
	if err := emailpolicy.Validate(email, s.policy); err != nil {
		return err
	}
	if len(password) < minPasswordLen {
		return common.ErrWeakPassword
	}
	if len(strings.TrimSpace(fullName)) < minNameLen {
		return common.ErrInvalidName
	}
	return nil
}

// Signup validates the input, creates the account and issues a fresh token.
// Validation failures surface the matching sentinel error; a taken email
// yields common.ErrDuplicateAccount.
func (s *CredentialService) Signup(ctx context.Context, email, password, fullName string) (*models.Account, string, error) {
	email = CanonicalEmail(email)

	if err := s.validateSignup(email, password, fullName); err != nil {
		return nil, "", err
	}

	id, err := common.MakeRandHexString(accountIDLen)
	if err != nil {
		return nil, "", common.ErrorInternal
	}
	salt := common.GenerateRandByteArray(saltLen)

	account := &models.Account{
		ID:           id,
		Email:        email,
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: hashPassword(password, salt),
		PasswordSalt: hex.EncodeToString(salt),
		CreatedAt:    time.Now().UTC(),
		IsNewAccount: true,
	}

	if err := s.repos.Accounts().Create(ctx, account); err != nil {
		if errors.Is(err, common.ErrDuplicateAccount) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("error creating account: %w", err)
	}

	token, err := s.issueToken(ctx, email)
	if err != nil {
		return nil, "", err
	}

	s.logger.Info(ctx, "account created", "email", email)
	return account, token, nil
}

// Login verifies credentials and issues a fresh token. Unknown emails and
// wrong passwords both return common.ErrInvalidCredentials so callers
// cannot probe for registered addresses.
func (s *CredentialService) Login(ctx context.Context, email, password string) (*models.Account, string, error) {
	account, err := s.repos.Accounts().GetByEmail(ctx, CanonicalEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, "", common.ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("error loading account: %w", err)
	}

	if !checkPassword(password, account.PasswordSalt, account.PasswordHash) {
		return nil, "", common.ErrInvalidCredentials
	}

	token, err := s.issueToken(ctx, account.Email)
	if err != nil {
		return nil, "", err
	}
	return account, token, nil
}

// issueToken mints an opaque token and registers it. Earlier tokens for the
// same account stay valid.
func (s *CredentialService) issueToken(ctx context.Context, email string) (string, error) {
	token, err := common.MakeRandHexString(tokenLen)
	if err != nil {
		return "", common.ErrorInternal
	}
	if err := s.repos.Tokens().Register(ctx, token, email); err != nil {
		return "", fmt.Errorf("error registering token: %w", err)
	}
	return token, nil
}

// LookupByEmail returns the account for a canonicalized email.
func (s *CredentialService) LookupByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.repos.Accounts().GetByEmail(ctx, CanonicalEmail(email))
}

// MarkActive clears the new-account flag after the first real activity.
// It is a no-op when the flag is already cleared.
func (s *CredentialService) MarkActive(ctx context.Context, email string) error {
	account, err := s.repos.Accounts().GetByEmail(ctx, CanonicalEmail(email))
	if err != nil {
		return err
	}
	if !account.IsNewAccount {
		return nil
	}
	account.IsNewAccount = false
	return s.repos.Accounts().Update(ctx, account)
}

// EnsureAdmin creates the bootstrap admin account if it does not exist yet.
// An existing account keeps its password but is promoted to admin if
// needed. The admin account bypasses the email domain policy.
func (s *CredentialService) EnsureAdmin(ctx context.Context, email, password, fullName string) (*models.Account, error) {
	email = CanonicalEmail(email)

	account, err := s.repos.Accounts().GetByEmail(ctx, email)
	if err == nil {
		if account.IsAdmin {
			return account, nil
		}
		account.IsAdmin = true
		if err := s.repos.Accounts().Update(ctx, account); err != nil {
			return nil, err
		}
		return account, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error loading account: %w", err)
	}

	id, err := common.MakeRandHexString(accountIDLen)
	if err != nil {
		return nil, common.ErrorInternal
	}
	salt := common.GenerateRandByteArray(saltLen)

	account = &models.Account{
		ID:           id,
		Email:        email,
		FullName:     fullName,
		PasswordHash: hashPassword(password, salt),
		PasswordSalt: hex.EncodeToString(salt),
		CreatedAt:    time.Now().UTC(),
		IsNewAccount: false,
		IsAdmin:      true,
	}
	if err := s.repos.Accounts().Create(ctx, account); err != nil {
		return nil, fmt.Errorf("error creating admin account: %w", err)
	}

	s.logger.Info(ctx, "admin account created", "email", email)
	return account, nil
}
