package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/and161185/eventflow/internal/crypto/clientcrypto"
	"github.com/and161185/eventflow/internal/model"
)

// Store persists the authentication state between runs.
type Store interface {
	// Load returns the persisted state; a missing state is the zero value with nil error.
	Load() (model.AuthState, error)
	// Save replaces the persisted state.
	Save(st model.AuthState) error
	// Clear removes the persisted state.
	Clear() error
}

// persisted is the on-disk shape of AuthState.
type persisted struct {
	Token string         `json:"token"`
	User  *persistedUser `json:"user,omitempty"`
}

type persistedUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

var sealAAD = []byte("eventflow/session/v1")

// FileStore keeps the state sealed under a config directory.
type FileStore struct {
	dir string
}

// NewFileStore returns a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore { return &FileStore{dir: dir} }

func (s *FileStore) keyPath() string  { return filepath.Join(s.dir, "session.key") }
func (s *FileStore) blobPath() string { return filepath.Join(s.dir, "session.bin") }

func (s *FileStore) key() ([]byte, error) {
	master, err := clientcrypto.LoadOrCreateKey(s.keyPath())
	if err != nil {
		return nil, err
	}
	return clientcrypto.DeriveKey(master, sealAAD)
}

// Load implements Store.
func (s *FileStore) Load() (model.AuthState, error) {
	blob, err := os.ReadFile(s.blobPath())
	if errors.Is(err, fs.ErrNotExist) {
		return model.AuthState{}, nil
	}
	if err != nil {
		return model.AuthState{}, fmt.Errorf("read session: %w", err)
	}
	key, err := s.key()
	if err != nil {
		return model.AuthState{}, err
	}
	pt, err := clientcrypto.Open(key, sealAAD, blob)
	if err != nil {
		return model.AuthState{}, fmt.Errorf("open session: %w", err)
	}
	var p persisted
	if err := json.Unmarshal(pt, &p); err != nil {
		return model.AuthState{}, fmt.Errorf("decode session: %w", err)
	}
	st := model.AuthState{Token: p.Token}
	if p.User != nil {
		st.User = &model.User{ID: p.User.ID, Name: p.User.Name, Email: p.User.Email}
	}
	return st, nil
}

// Save implements Store. The blob is written to a temp file and renamed into place.
func (s *FileStore) Save(st model.AuthState) error {
	var p persisted
	p.Token = st.Token
	if st.User != nil {
		p.User = &persistedUser{ID: st.User.ID, Name: st.User.Name, Email: st.User.Email}
	}
	pt, err := json.Marshal(p)
	if err != nil {
		return err
	}
	key, err := s.key()
	if err != nil {
		return err
	}
	blob, err := clientcrypto.Seal(key, sealAAD, pt)
	if err != nil {
		return err
	}
	tmp := s.blobPath() + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return os.Rename(tmp, s.blobPath())
}

// Clear implements Store.
func (s *FileStore) Clear() error {
	err := os.Remove(s.blobPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// MemoryStore keeps the state in memory.
type MemoryStore struct {
	mu      sync.Mutex
	st      model.AuthState
	LoadErr error
	SaveErr error
}

// Load implements Store.
func (m *MemoryStore) Load() (model.AuthState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return model.AuthState{}, m.LoadErr
	}
	return copyState(m.st), nil
}

// Save implements Store.
func (m *MemoryStore) Save(st model.AuthState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.st = copyState(st)
	return nil
}

// Clear implements Store.
func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st = model.AuthState{}
	return nil
}

func copyState(st model.AuthState) model.AuthState {
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}
