package tariff

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/cloo-solutions/aqacs/internal/domain"
)

// Source lists and opens the CSV files of one snapshot.
type Source interface {
	// List returns the snapshot's CSV file names sorted by name.
	List(ctx context.Context, snapshotID domain.SnapshotID) ([]string, error)
	Open(ctx context.Context, snapshotID domain.SnapshotID, name string) (io.ReadCloser, error)
}

// SnapshotPrefix is the slash-separated location of a snapshot's CSV files
// below a source root: us/hts/<snapshot>/csv.
func SnapshotPrefix(snapshotID domain.SnapshotID) string {
	return path.Join("us", "hts", string(snapshotID), "csv")
}

// DirSource reads snapshots from a local directory tree.
type DirSource struct {
	Root string
}

// NewDirSource creates a DirSource rooted at root.
func NewDirSource(root string) *DirSource {
	if root == "" {
		root = "./snapshots"
	}
	return &DirSource{Root: root}
}

func (d *DirSource) dir(snapshotID domain.SnapshotID) string {
	return filepath.Join(d.Root, filepath.FromSlash(SnapshotPrefix(snapshotID)))
}

// List returns the CSV files of the snapshot. A missing directory is an
// empty snapshot.
func (d *DirSource) List(ctx context.Context, snapshotID domain.SnapshotID) ([]string, error) {
	if err := domain.ValidateSnapshotID(snapshotID); err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(filepath.Join(d.dir(snapshotID), "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshot files: %w", err)
	}

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, filepath.Base(m))
	}
	sort.Strings(names)
	return names, nil
}

// Open opens one CSV file of the snapshot.
func (d *DirSource) Open(ctx context.Context, snapshotID domain.SnapshotID, name string) (io.ReadCloser, error) {
	if filepath.Base(name) != name {
		return nil, fmt.Errorf("invalid snapshot file name %q", name)
	}
	f, err := os.Open(filepath.Join(d.dir(snapshotID), name))
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot file: %w", err)
	}
	return f, nil
}
