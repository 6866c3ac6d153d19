package recovery

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"divimport/internal/fileutil"
)

// Store persists the single recovery session as a JSON file. Writes use the
// write-temp-then-rename discipline so a crash mid-write never leaves a
// half-written record. The stored representation never contains the mnemonic
// or any daemon RPC credential.
type Store struct {
	path string
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the on-disk location of the persisted session.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted session. A missing or corrupt file yields nil
// without error: resume simply is not offered.
func (s *Store) Load() (*Session, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, nil
	}
	if !session.Status.Valid() {
		return nil, nil
	}
	return &session, nil
}

// Save atomically overwrites the persisted session.
func (s *Store) Save(session *Session) error {
	if session == nil {
		return errors.New("session is nil")
	}
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := fileutil.WriteFileAtomic(s.path, data, 0o600); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// Delete removes the persisted session. Deleting an absent record is a no-op.
func (s *Store) Delete() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete session file: %w", err)
	}
	return nil
}
