package apk

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Artifact describes one stored APK available for install_local_apk.
type Artifact struct {
	Name       string    `json:"name"` // stored name, unique
	Original   string    `json:"original"`
	Size       int64     `json:"size"`
	SHA256     string    `json:"sha256"`
	UploadedAt time.Time `json:"uploadedAt"`
}

var ErrNotFound = errors.New("apk: not found")

// Store keeps uploaded APK artifacts on disk under a configured root.
type Store struct {
	root    string
	maxSize int64

	mu    sync.RWMutex
	index map[string]Artifact // stored name -> artifact
}

func NewStore(root string, maxSizeMB int64) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("apk store: %w", err)
	}
	return &Store{root: root, maxSize: maxSizeMB << 20, index: make(map[string]Artifact)}, nil
}

// Save streams an upload to disk, hashing as it writes. The stored name
// is unique per upload so republishing the same file never clobbers an
// artifact a queued command still references.
func (s *Store) Save(original string, r io.Reader) (Artifact, error) {
	if !strings.HasSuffix(strings.ToLower(original), ".apk") {
		return Artifact{}, errors.New("apk: only .apk files accepted")
	}
	name := uuid.NewString() + ".apk"
	path := filepath.Join(s.root, name)
	f, err := os.Create(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("apk store: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(f, h), io.LimitReader(r, s.maxSize+1))
	if err != nil {
		os.Remove(path)
		return Artifact{}, fmt.Errorf("apk store: write: %w", err)
	}
	if n > s.maxSize {
		os.Remove(path)
		return Artifact{}, fmt.Errorf("apk: exceeds %d byte limit", s.maxSize)
	}

	a := Artifact{
		Name:       name,
		Original:   filepath.Base(original),
		Size:       n,
		SHA256:     hex.EncodeToString(h.Sum(nil)),
		UploadedAt: time.Now(),
	}
	s.mu.Lock()
	s.index[name] = a
	s.mu.Unlock()
	return a, nil
}

// Path resolves a stored name to its on-disk path.
func (s *Store) Path(name string) (string, error) {
	s.mu.RLock()
	_, ok := s.index[name]
	s.mu.RUnlock()
	if !ok || strings.Contains(name, "/") || strings.Contains(name, "..") {
		return "", ErrNotFound
	}
	return filepath.Join(s.root, name), nil
}

// Get returns the artifact record for a stored name.
func (s *Store) Get(name string) (Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.index[name]
	if !ok {
		return Artifact{}, ErrNotFound
	}
	return a, nil
}

// List returns all stored artifacts, newest first.
func (s *Store) List() []Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Artifact, 0, len(s.index))
	for _, a := range s.index {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out
}
