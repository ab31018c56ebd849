// Package credman keeps the daemon's RPC bearer secret. The OS keyring is
// preferred; a 0600 file in the config directory is the fallback for
// systems without a keyring service.
package credman

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	// DefaultService is the keyring service name.
	DefaultService = "restcue"
	// DefaultUser is the keyring entry under DefaultService.
	DefaultUser = "rpc-secret"
)

// ErrNotFound is returned when no secret has been stored yet.
var ErrNotFound = errors.New("credman: secret not found")

var (
	keyringSet    = keyring.Set
	keyringGet    = keyring.Get
	keyringDelete = keyring.Delete
)

// SecretStore persists a single secret string.
type SecretStore interface {
	Get() (string, error)
	Set(secret string) error
	Delete() error
}

// Keyring stores the secret in the OS keyring.
type Keyring struct {
	Service string
	User    string
}

func NewKeyring() *Keyring {
	return &Keyring{Service: DefaultService, User: DefaultUser}
}

func (k *Keyring) Get() (string, error) {
	s, err := keyringGet(k.Service, k.User)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("credman: keyring get: %w", err)
	}
	if err := validSecret(s); err != nil {
		return "", err
	}
	return s, nil
}

func (k *Keyring) Set(secret string) error {
	if err := keyringSet(k.Service, k.User, secret); err != nil {
		return fmt.Errorf("credman: keyring set: %w", err)
	}
	return nil
}

func (k *Keyring) Delete() error {
	err := keyringDelete(k.Service, k.User)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
