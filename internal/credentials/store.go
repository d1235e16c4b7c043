package credentials

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	go_json "github.com/goccy/go-json"
	"golang.org/x/oauth2"
)

const backupSuffix = ".backup"

// Store persists the credential document on disk. Operator writes through Save
// wake every waiter blocked on Changed.
type Store struct {
	path string

	mu      sync.Mutex
	changed chan struct{}
}

func NewStore(path string) *Store {
	return &Store{
		path:    path,
		changed: make(chan struct{}),
	}
}

func (s *Store) Path() string { return s.path }

func (s *Store) BackupPath() string { return s.path + backupSuffix }

// Changed returns a channel that is closed by the next successful Save.
// Callers grab it before the work whose outcome may require new credentials,
// so a save that lands in between is not missed.
func (s *Store) Changed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}

// Load reads and decodes the credential document. It never caches: every
// call reflects what is on disk.
func (s *Store) Load() (Credentials, error) {
	raw, err := s.read()
	if err != nil {
		return Credentials{}, err
	}
	return decode(raw)
}

// Document returns the stored document re-indented for display.
func (s *Store) Document() ([]byte, error) {
	raw, err := s.read()
	if err != nil {
		return nil, err
	}
	return Pretty(raw)
}

// TemplateDocument is the indented default document.
func TemplateDocument() []byte {
	b, _ := go_json.MarshalIndent(Template(), "", indent)
	return b
}

// Save validates raw, keeps a single-generation backup of the previous file,
// writes the re-indented document and notifies waiters. Invalid JSON leaves
// the store untouched. The written document is returned.
func (s *Store) Save(raw []byte) ([]byte, error) {
	pretty, err := Pretty(raw)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create credentials directory: %w", err)
	}

	prev, err := os.ReadFile(s.path)
	switch {
	case err == nil:
		if err := writeFileAtomic(s.BackupPath(), prev); err != nil {
			return nil, fmt.Errorf("failed to back up credentials: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read existing credentials: %w", err)
	}

	if err := writeFileAtomic(s.path, pretty); err != nil {
		return nil, fmt.Errorf("failed to write credentials: %w", err)
	}

	close(s.changed)
	s.changed = make(chan struct{})

	return pretty, nil
}

// UpdateToken writes refreshed tokens back into the document. Other keys are
// kept. No backup is made and waiters are not notified: this is the vendor
// client persisting its own refresh, not an operator supplying new credentials.
//
// refreshedFrom is the refresh token the refresh was made with. When the stored
// document no longer carries it, the operator has saved newer credentials and
// ErrSuperseded is returned without writing.
func (s *Store) UpdateToken(refreshedFrom string, tok *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.read()
	if err != nil {
		return err
	}

	var doc map[string]go_json.RawMessage
	if err := go_json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to decode credentials: %w", err)
	}

	var stored string
	if rt, ok := doc["refresh_token"]; ok {
		if err := go_json.Unmarshal(rt, &stored); err != nil {
			return fmt.Errorf("failed to decode refresh token: %w", err)
		}
	}
	if stored != refreshedFrom {
		return ErrSuperseded
	}

	access, err := go_json.Marshal(tok.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to encode access token: %w", err)
	}
	doc["access_token"] = access

	if tok.RefreshToken != "" {
		refresh, err := go_json.Marshal(tok.RefreshToken)
		if err != nil {
			return fmt.Errorf("failed to encode refresh token: %w", err)
		}
		doc["refresh_token"] = refresh
	}

	out, err := go_json.MarshalIndent(doc, "", indent)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	if err := writeFileAtomic(s.path, out); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}

func (s *Store) read() ([]byte, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	return raw, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
