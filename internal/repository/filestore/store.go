// Package filestore is the flat-file backend: all state lives in one JSON
// document rewritten atomically (temp file + rename) on every mutation.  A
// single mutex serializes read-modify-write cycles, which gives the same
// at-most-once pairing guarantee as the SQL transactions.
package filestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/iliyamo/signage-pairing/internal/model"
)

const documentName = "smp.json"

type document struct {
	NextPairingID   int64                  `json:"next_pairing_id"`
	Users           []model.User           `json:"users"`
	PairingRequests []model.PairingRequest `json:"pairing_requests"`
	Players         []model.Player         `json:"players"`
}

func (d document) clone() document {
	return document{
		NextPairingID:   d.NextPairingID,
		Users:           append([]model.User(nil), d.Users...),
		PairingRequests: append([]model.PairingRequest(nil), d.PairingRequests...),
		Players:         append([]model.Player(nil), d.Players...),
	}
}

// Store holds the document in memory and owns the file on disk.  Only one
// process may use a data directory at a time.
type Store struct {
	path string
	mu   sync.Mutex
	doc  document
}

// Open loads dir/smp.json, creating the directory when needed.  A missing
// document starts an empty store.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	s := &Store{path: filepath.Join(dir, documentName), doc: document{NextPairingID: 1}}
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if err := json.Unmarshal(raw, &s.doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	if s.doc.NextPairingID < 1 {
		s.doc.NextPairingID = 1
	}
	return s, nil
}

// Users, Pairings and Players expose the store through the per-entity
// contracts the services depend on.
func (s *Store) Users() *Users       { return &Users{s: s} }
func (s *Store) Pairings() *Pairings { return &Pairings{s: s} }
func (s *Store) Players() *Players   { return &Players{s: s} }

// update runs fn on a copy of the document and, when fn succeeds, persists
// the copy before making it current.  A failed fn or a failed write leaves
// both memory and disk untouched.
func (s *Store) update(fn func(d *document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.doc.clone()
	if err := fn(&next); err != nil {
		return err
	}
	if err := s.persist(next); err != nil {
		return err
	}
	s.doc = next
	return nil
}

// view runs fn with the current document under the lock.  fn must not keep
// references to the slices.
func (s *Store) view(fn func(d *document)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.doc)
}

func (s *Store) persist(d document) error {
	raw, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), documentName+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp document: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp document: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp document: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace document: %w", err)
	}
	return nil
}
