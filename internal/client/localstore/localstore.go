// Package localstore keeps small per-user lists that never reach the API,
// such as saved SMS templates and the console's own send history.
package localstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	KeyTemplates = "sms_templates"
	KeyHistory   = "sms_history"

	defaultMaxEntries = 200
)

var (
	ErrNotFound   = errors.New("local entry not found")
	ErrInvalidKey = errors.New("invalid local store key")
)

var safeName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Entry is one stored item. Title is used by templates, Recipients by history.
type Entry struct {
	ID         string    `json:"id"`
	Title      string    `json:"title,omitempty"`
	Body       string    `json:"body"`
	Recipients int       `json:"recipients,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt,omitempty"`
}

// Store writes one JSON array per user and key under dir. Newest entries come
// first and each list is capped; the oldest entries fall off.
type Store struct {
	dir        string
	maxEntries int
	now        func() time.Time

	mu sync.Mutex
}

type Option func(*Store)

func WithMaxEntries(n int) Option {
	return func(s *Store) { s.maxEntries = n }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrapf(err, "creating local store dir %s", dir)
	}
	s := &Store{dir: dir, maxEntries: defaultMaxEntries, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func (s *Store) List(user, key string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(user, key)
}

// Add stores e with a fresh id and creation time and returns it.
func (s *Store) Add(user, key string, e Entry) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(user, key)
	if err != nil {
		return Entry{}, err
	}
	e.ID = uuid.NewString()
	e.CreatedAt = s.now().UTC()
	e.UpdatedAt = time.Time{}
	entries = append([]Entry{e}, entries...)
	if s.maxEntries > 0 && len(entries) > s.maxEntries {
		entries = entries[:s.maxEntries]
	}
	if err := s.save(user, key, entries); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Update replaces the title, body and recipient count of the entry with e.ID.
func (s *Store) Update(user, key string, e Entry) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(user, key)
	if err != nil {
		return Entry{}, err
	}
	for i := range entries {
		if entries[i].ID != e.ID {
			continue
		}
		entries[i].Title = e.Title
		entries[i].Body = e.Body
		entries[i].Recipients = e.Recipients
		entries[i].UpdatedAt = s.now().UTC()
		if err := s.save(user, key, entries); err != nil {
			return Entry{}, err
		}
		return entries[i], nil
	}
	return Entry{}, errors.Wrapf(ErrNotFound, "%s/%s", key, e.ID)
}

func (s *Store) Delete(user, key, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(user, key)
	if err != nil {
		return err
	}
	for i := range entries {
		if entries[i].ID == id {
			entries = append(entries[:i], entries[i+1:]...)
			return s.save(user, key, entries)
		}
	}
	return errors.Wrapf(ErrNotFound, "%s/%s", key, id)
}

func (s *Store) path(user, key string) (string, error) {
	if !safeName.MatchString(user) || !safeName.MatchString(key) {
		return "", errors.Wrapf(ErrInvalidKey, "%q/%q", user, key)
	}
	return filepath.Join(s.dir, user, key+".json"), nil
}

func (s *Store) load(user, key string) ([]Entry, error) {
	p, err := s.path(user, key)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", p)
	}
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", p)
	}
	return entries, nil
}

// save writes through a temp file and a rename so readers never see half a file.
func (s *Store) save(user, key string, entries []Entry) error {
	p, err := s.path(user, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return errors.Wrap(err, "creating user dir")
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return errors.Wrap(err, "encoding entries")
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), key+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "writing %s", tmp.Name())
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "closing %s", tmp.Name())
	}
	return errors.Wrapf(os.Rename(tmp.Name(), p), "replacing %s", p)
}
