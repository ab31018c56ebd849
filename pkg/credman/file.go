package credman

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	secretFileName = "rpc.secret"
	secretFileMode = 0600
)

var (
	fileWriteFile = os.WriteFile
	fileReadFile  = os.ReadFile
	fileRemove    = os.Remove
	fileRename    = os.Rename
	fileMkdirAll  = os.MkdirAll
)

// FileStore keeps the secret in <dir>/rpc.secret with 0600 permissions.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (f *FileStore) Path() string {
	return filepath.Join(f.dir, secretFileName)
}

func (f *FileStore) Get() (string, error) {
	data, err := fileReadFile(f.Path())
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("credman: read secret: %w", err)
	}
	s := strings.TrimSpace(string(data))
	if err := validSecret(s); err != nil {
		return "", err
	}
	return s, nil
}

// Set writes the secret atomically through a temp file and rename.
func (f *FileStore) Set(secret string) error {
	if err := fileMkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("credman: create config dir: %w", err)
	}
	tmp := f.Path() + ".tmp"
	if err := fileWriteFile(tmp, []byte(secret), secretFileMode); err != nil {
		return fmt.Errorf("credman: write secret: %w", err)
	}
	if err := fileRename(tmp, f.Path()); err != nil {
		fileRemove(tmp)
		return fmt.Errorf("credman: rename secret file: %w", err)
	}
	return nil
}

func (f *FileStore) Delete() error {
	err := fileRemove(f.Path())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
