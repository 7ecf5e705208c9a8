package secret

import (
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/confhub/confhub/internal/models"
	"github.com/confhub/confhub/pkg/logger"
)

// checkPlaintext is the fixture encrypted into the system state row on first
// initialization. Decrypting it back proves a later key matches the one the
// stored data was written with.
const checkPlaintext = "encryptionCheck"

var (
	ErrSecretNotInitialized = errors.New("encryption key has not been initialized")
	ErrSecretMismatch       = errors.New("encryption key does not match previously used key")
)

// Manager holds the process-wide encryption key. All encrypted values in the
// database share this single key; Initialize must succeed before any
// Encrypt or Decrypt call.
type Manager struct {
	db            *gorm.DB
	mismatchDelay time.Duration

	mu     sync.RWMutex
	cipher *Cipher
}

// NewManager creates an uninitialized manager. mismatchDelay is slept before
// reporting a key mismatch to slow down brute-force attempts.
func NewManager(db *gorm.DB, mismatchDelay time.Duration) *Manager {
	return &Manager{db: db, mismatchDelay: mismatchDelay}
}

// Initialized reports whether a key has been accepted.
func (m *Manager) Initialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cipher != nil
}

// Initialize validates and installs the encryption key.
//
// On first boot the check fixture is encrypted and persisted. On any later
// boot the persisted fixture is decrypted with the candidate key; a failure
// means the key differs from the one the stored secrets were written with,
// so the key is rejected and the manager stays uninitialized.
func (m *Manager) Initialize(key string) error {
	if len(key) != KeyLength {
		return ErrInvalidSecretLength
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	candidate, err := NewCipher([]byte(key))
	if err != nil {
		return err
	}

	var state models.SystemState
	if err := m.db.First(&state).Error; err != nil {
		return err
	}

	if state.EncryptionCheck == "" {
		check, err := candidate.Encrypt(checkPlaintext)
		if err != nil {
			return err
		}
		if err := m.db.Model(&state).Update("encryption_check", check).Error; err != nil {
			return err
		}
		m.cipher = candidate
		logger.Info().Msg("Encryption key initialized")
		return nil
	}

	plain, err := candidate.Decrypt(state.EncryptionCheck)
	if err != nil || plain != checkPlaintext {
		m.cipher = nil
		logger.Warn().Msg("Encryption key rejected, does not match stored check value")
		time.Sleep(m.mismatchDelay)
		return ErrSecretMismatch
	}

	m.cipher = candidate
	logger.Info().Msg("Encryption key verified")
	return nil
}

// Encrypt encrypts value with the installed key.
func (m *Manager) Encrypt(value string) (string, error) {
	m.mu.RLock()
	c := m.cipher
	m.mu.RUnlock()
	if c == nil {
		return "", ErrSecretNotInitialized
	}
	return c.Encrypt(value)
}

// Decrypt decrypts a stored value with the installed key.
func (m *Manager) Decrypt(stored string) (string, error) {
	m.mu.RLock()
	c := m.cipher
	m.mu.RUnlock()
	if c == nil {
		return "", ErrSecretNotInitialized
	}
	return c.Decrypt(stored)
}
