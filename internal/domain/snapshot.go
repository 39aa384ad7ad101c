package domain

import (
	"fmt"
	"regexp"
)

// SnapshotID names one immutable, point-in-time dataset version.
type SnapshotID string

// PlaceholderSnapshotID is returned when neither a marker nor a default is set.
const PlaceholderSnapshotID SnapshotID = "US-HTS-YYYY-MM-DD"

// DefaultCollectionPrefix prefixes every per-snapshot vector collection.
const DefaultCollectionPrefix = "us_hts"

var snapshotIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

func (s SnapshotID) String() string {
	return string(s)
}

// Collection returns the vector collection name for this snapshot.
func (s SnapshotID) Collection(prefix string) string {
	if prefix == "" {
		prefix = DefaultCollectionPrefix
	}
	return fmt.Sprintf("%s_%s", prefix, s)
}

// ValidateSnapshotID checks that id is safe to use in file paths and
// collection names.
func ValidateSnapshotID(id SnapshotID) error {
	if id == "" {
		return NewDomainError(ErrCodeValidation, "snapshot id is required")
	}
	if !snapshotIDPattern.MatchString(string(id)) || id == "." || id == ".." {
		return ErrInvalidSnapshotID.WithCause(fmt.Errorf("snapshot id %q contains characters outside [A-Za-z0-9._-]", id))
	}
	return nil
}
