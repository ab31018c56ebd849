package credman

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/restcue/restcue/pkg/logger"
)

const secretBytes = 32

var randRead = rand.Read

// Generate returns a new random hex secret.
func Generate() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := randRead(b); err != nil {
		return "", fmt.Errorf("credman: generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func validSecret(s string) error {
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("credman: invalid secret format: %w", err)
	}
	if len(b) != secretBytes {
		return fmt.Errorf("credman: invalid secret length: expected %d, got %d", secretBytes, len(b))
	}
	return nil
}

// Manager resolves the RPC secret from the keyring first and then the
// file fallback.
type Manager struct {
	primary  SecretStore
	fallback SecretStore
	log      logger.Logger
}

func NewManager(primary, fallback SecretStore, l logger.Logger) *Manager {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Manager{primary: primary, fallback: fallback, log: l}
}

// NewDefaultManager uses the OS keyring backed by a file in configDir.
func NewDefaultManager(configDir string, l logger.Logger) *Manager {
	return NewManager(NewKeyring(), NewFileStore(configDir), l)
}

// Get returns the stored secret without creating one.
func (m *Manager) Get() (string, error) {
	s, err := m.primary.Get()
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, ErrNotFound) {
		m.log.Debug("keyring unavailable, trying file: %v", err)
	}
	return m.fallback.Get()
}

// Ensure returns the stored secret, generating and storing a new one when
// none exists. created reports whether a new secret was made.
func (m *Manager) Ensure() (secret string, created bool, err error) {
	s, err := m.Get()
	if err == nil {
		return s, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", false, err
	}
	s, err = Generate()
	if err != nil {
		return "", false, err
	}
	if err := m.primary.Set(s); err != nil {
		m.log.Warning("keyring unavailable, storing secret in file: %v", err)
		if err := m.fallback.Set(s); err != nil {
			return "", false, err
		}
	}
	return s, true, nil
}

// Rotate replaces the stored secret with a fresh one.
func (m *Manager) Rotate() (string, error) {
	if err := m.Delete(); err != nil {
		return "", err
	}
	s, _, err := m.Ensure()
	return s, err
}

// Delete removes the secret from both stores.
func (m *Manager) Delete() error {
	return errors.Join(m.primary.Delete(), m.fallback.Delete())
}
