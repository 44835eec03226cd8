package updater

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// PlatformArtifact is one signed installer referenced by the manifest.
type PlatformArtifact struct {
	Signature string `json:"signature"`
	URL       string `json:"url"`
}

// Manifest is the self-update document published alongside installer
// artifacts, consumed by the desktop shell's own updater.
type Manifest struct {
	Version   string                      `json:"version"`
	Notes     string                      `json:"notes,omitempty"`
	PubDate   time.Time                   `json:"pub_date"`
	Platforms map[string]PlatformArtifact `json:"platforms"`
}

var ErrNoPlatforms = errors.New("manifest has no platforms")

// ParseManifest decodes and validates a manifest document.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Version == "" {
		return nil, errors.New("manifest missing version")
	}
	if len(m.Platforms) == 0 {
		return nil, ErrNoPlatforms
	}
	for id, p := range m.Platforms {
		if p.URL == "" {
			return nil, fmt.Errorf("platform %s missing url", id)
		}
		if p.Signature == "" {
			return nil, fmt.Errorf("platform %s missing signature", id)
		}
	}
	return &m, nil
}

// LoadManifest reads a manifest file from disk.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(data)
}
