package updater

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"arceus-fleet/backend/app/bus"
	"arceus-fleet/backend/app/events"
	"arceus-fleet/backend/global"
)

// Service holds the currently published manifest and reloads it when
// the release pipeline rewrites the file.
type Service struct {
	mu       sync.RWMutex
	path     string
	manifest *Manifest

	machine *Machine
	bus     *bus.Bus
	watcher *fsnotify.Watcher
}

func NewService(path string, b *bus.Bus) *Service {
	return &Service{path: path, machine: NewMachine(), bus: b}
}

func (s *Service) Machine() *Machine { return s.machine }

// Manifest returns the last successfully loaded manifest, if any.
func (s *Service) Manifest() *Manifest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manifest
}

// Load reads the manifest from disk and publishes an announcement.
func (s *Service) Load() error {
	m, err := LoadManifest(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	prev := s.manifest
	s.manifest = m
	s.mu.Unlock()

	if prev == nil || prev.Version != m.Version {
		global.Logger.Info().Str("version", m.Version).Msg("update manifest loaded")
		if s.bus != nil {
			s.bus.Publish(&events.InfoEvent{Message: fmt.Sprintf("update %s published", m.Version)})
		}
	}
	return nil
}

// Watch reloads the manifest whenever the file is rewritten. Watching
// the parent directory survives the rename-over-the-top publish style.
func (s *Service) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("manifest watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}
	s.watcher = w

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if err := s.Load(); err != nil {
					global.Logger.Warn().Err(err).Msg("manifest reload failed")
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				global.Logger.Warn().Err(err).Msg("manifest watcher error")
			}
		}
	}()
	return nil
}

func (s *Service) Stop() {
	if s.watcher != nil {
		_ = s.watcher.Close()
	}
}
