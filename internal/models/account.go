// Package models defines the persisted entities of the Incomiq credential
// and document layers: accounts, identities, and the four document
// collections (incomes, expenses, rules, goals).
package models

import "time"

// Account is a registered user identity with credentials. Accounts are keyed
// by canonical (lower-cased, trimmed) email; ID is an opaque unique string
// that never changes once assigned. The password hash and salt are
// hex-encoded PBKDF2 artifacts.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"password_hash"`
	PasswordSalt string    `json:"password_salt"`
	CreatedAt    time.Time `json:"created_at"`
	IsNewAccount bool      `json:"is_new_account"`
	IsAdmin      bool      `json:"is_admin,omitempty"`
}

// Identity is the resolved, authenticated view of an account exposed to
// request handlers. It never carries credential material.
type Identity struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	FullName     string `json:"full_name"`
	IsDemo       bool   `json:"is_demo"`
	IsNewAccount bool   `json:"is_new_account"`
	IsAdmin      bool   `json:"is_admin"`
}
