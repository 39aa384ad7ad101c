// Package snapshot resolves which dataset version the service reads from.
package snapshot

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloo-solutions/aqacs/internal/domain"
)

// DefaultMarkerPath is where the active snapshot marker lives unless configured.
const DefaultMarkerPath = "./snapshots/active_version.json"

type marker struct {
	SnapshotID string `json:"snapshot_id"`
}

// Resolver reads and writes the active snapshot marker. Resolution order is
// marker file, then the configured default, then PlaceholderSnapshotID.
type Resolver struct {
	markerPath string
	fallback   domain.SnapshotID

	// Debug logs why the marker was skipped.
	Debug bool
}

// NewResolver creates a resolver for the marker at markerPath.
func NewResolver(markerPath string, fallback domain.SnapshotID) *Resolver {
	if markerPath == "" {
		markerPath = DefaultMarkerPath
	}
	return &Resolver{
		markerPath: markerPath,
		fallback:   fallback,
	}
}

// MarkerPath returns the marker file location.
func (r *Resolver) MarkerPath() string {
	return r.markerPath
}

// ActiveID returns the active snapshot id. Marker problems are never returned;
// they only move resolution on to the next source.
func (r *Resolver) ActiveID() domain.SnapshotID {
	if id, err := r.readMarker(); err == nil {
		return id
	} else if r.Debug {
		log.Printf("snapshot marker %s skipped: %v", r.markerPath, err)
	}

	if r.fallback != "" {
		return r.fallback
	}
	return domain.PlaceholderSnapshotID
}

func (r *Resolver) readMarker() (domain.SnapshotID, error) {
	data, err := os.ReadFile(r.markerPath)
	if err != nil {
		return "", err
	}
	var m marker
	if err := json.Unmarshal(data, &m); err != nil {
		return "", fmt.Errorf("parse marker: %w", err)
	}
	id := strings.TrimSpace(m.SnapshotID)
	if id == "" {
		return "", fmt.Errorf("marker has no snapshot_id")
	}
	return domain.SnapshotID(id), nil
}

// SetActive overwrites the marker. The file is written next to the marker and
// renamed over it, so readers never observe a partial write. Concurrent
// writers race and the last rename wins.
func (r *Resolver) SetActive(id domain.SnapshotID) error {
	if err := domain.ValidateSnapshotID(id); err != nil {
		return err
	}

	dir := filepath.Dir(r.markerPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create marker directory: %w", err)
	}

	data, err := json.MarshalIndent(marker{SnapshotID: string(id)}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode marker: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".active_version-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp marker: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp marker: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp marker: %w", err)
	}
	if err := os.Rename(tmpName, r.markerPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace marker: %w", err)
	}
	return nil
}
