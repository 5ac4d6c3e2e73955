// Package auth backs the HTTP façade's optional basic-auth middleware with
// a small SCRAM-SHA-256-style credential store. Per spec.md §1, auth is out
// of scope beyond a thin stub in front of the engine: there is no session
// management, no roles or permissions, and no user-management API — just
// enough to gate requests with a username and password.
package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

// ErrInvalidCredentials is returned when username or password is incorrect.
var ErrInvalidCredentials = errors.New("invalid username or password")

const (
	// SCRAM-SHA-256 parameters
	saltLength     = 16
	iterationCount = 4096
	keyLength      = 32
)

// credential holds one account's SCRAM-SHA-256 key material.
type credential struct {
	salt      []byte
	storedKey []byte
}

// AuthManager is the credential store behind the server's basic-auth
// middleware. It mounts a single default admin account on creation.
type AuthManager struct {
	mu    sync.RWMutex
	users map[string]*credential
}

// NewAuthManager creates a manager with one default admin account
// (password "admin"). In production the default password should be
// changed immediately.
func NewAuthManager() *AuthManager {
	am := &AuthManager{users: make(map[string]*credential)}
	if err := am.addUser("admin", "admin"); err != nil {
		panic(fmt.Sprintf("auth: failed to create default admin user: %v", err))
	}
	return am
}

func (am *AuthManager) addUser(username, password string) error {
	am.mu.Lock()
	defer am.mu.Unlock()

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	saltedPassword := pbkdf2.Key([]byte(password), salt, iterationCount, keyLength, sha256.New)
	clientKey := hmacSHA256(saltedPassword, []byte("Client Key"))
	storedKey := sha256Hash(clientKey)

	am.users[username] = &credential{salt: salt, storedKey: storedKey}
	return nil
}

// Authenticate verifies username and password against the stored
// PBKDF2-derived key.
func (am *AuthManager) Authenticate(username, password string) error {
	am.mu.RLock()
	cred, exists := am.users[username]
	am.mu.RUnlock()
	if !exists {
		return ErrInvalidCredentials
	}

	saltedPassword := pbkdf2.Key([]byte(password), cred.salt, iterationCount, keyLength, sha256.New)
	clientKey := hmacSHA256(saltedPassword, []byte("Client Key"))
	storedKey := sha256Hash(clientKey)

	if !hmac.Equal(storedKey, cred.storedKey) {
		return ErrInvalidCredentials
	}
	return nil
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func sha256Hash(data []byte) []byte {
	h := sha256.Sum256(data)
	return h[:]
}
