package auth

import (
	"encoding/json"
	"errors"
	"os"
	"sync"
)

var ErrNoCredential = errors.New("no stored credential")

// Credentials is the minimal identity the consoles keep between runs: the
// bearer token issued at login plus display info. The Go analog of the
// browser's cookie storage.
type Credentials struct {
	Token    string `json:"token"`
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

// Store persists credentials to a JSON file and serves synchronous reads for
// Authorization headers.
type Store struct {
	filePath string
	mu       sync.Mutex
	creds    *Credentials
}

func NewStore(filePath string) (*Store, error) {
	st := &Store{filePath: filePath}
	return st, st.load()
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	var creds Credentials
	if err := json.NewDecoder(file).Decode(&creds); err != nil {
		return err
	}
	s.creds = &creds
	return nil
}

func (s *Store) Save(creds Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.filePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(creds); err != nil {
		return err
	}
	s.creds = &creds
	return nil
}

// Token returns the stored bearer token, or ErrNoCredential.
func (s *Store) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.creds == nil || s.creds.Token == "" {
		return "", ErrNoCredential
	}
	return s.creds.Token, nil
}

func (s *Store) Credentials() (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.creds == nil {
		return Credentials{}, ErrNoCredential
	}
	return *s.creds, nil
}

// Clear drops the credential both in memory and on disk, as on logout.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.creds = nil
	if err := os.Remove(s.filePath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
