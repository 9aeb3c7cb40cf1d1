package dirsnap

import (
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Snapshot is a validated zip + JSON pair found in a vault.
type Snapshot struct {
	Metadata

	MetadataFilename string
	MetadataPath     string
	ZipPath          string
	ZipSize          int64
	Created          time.Time
}

// List returns every valid snapshot in the vault, most recent first.
// Metadata files that fail to parse, lack required fields, or reference a
// missing zip are logged as warnings and skipped. Only a failure to read the
// vault itself is returned.
func (s *Service) List() ([]*Snapshot, error) {
	names, err := s.vault.ListMetadata()
	if err != nil {
		return nil, fmt.Errorf("listing destination: %w", err)
	}

	snapshots := make([]*Snapshot, 0, len(names))
	for _, name := range names {
		snap, err := s.loadSnapshot(name)
		if err != nil {
			s.logger.Warn("snapshot rejected", "file", name, "reason", err.Error())
			continue
		}
		snapshots = append(snapshots, snap)
	}

	sortSnapshots(snapshots)
	s.logger.Debug("snapshots listed", "count", len(snapshots), "candidates", len(names))
	return snapshots, nil
}

// loadSnapshot reads and validates one metadata file and its paired zip.
func (s *Service) loadSnapshot(name string) (*Snapshot, error) {
	path := s.vault.Path(name)

	data, err := s.vault.ReadFile(name)
	if err != nil {
		return nil, NewCatalogEntry(path, "reading metadata", err)
	}

	md, err := DecodeMetadata(data)
	if err != nil {
		return nil, NewCatalogEntry(path, "invalid metadata", err)
	}

	if !isBareFilename(md.ZipFilename) {
		return nil, NewCatalogEntry(path, fmt.Sprintf("zip_filename %q is not a plain filename", md.ZipFilename), nil)
	}

	info, err := s.vault.Stat(md.ZipFilename)
	if err != nil {
		return nil, NewCatalogEntry(path, fmt.Sprintf("paired archive %s not found", md.ZipFilename), err)
	}
	if !info.Mode().IsRegular() {
		return nil, NewCatalogEntry(path, fmt.Sprintf("paired archive %s is not a regular file", md.ZipFilename), nil)
	}

	created, _ := md.CreatedTime() // validated by DecodeMetadata

	return &Snapshot{
		Metadata:         *md,
		MetadataFilename: name,
		MetadataPath:     path,
		ZipPath:          s.vault.Path(md.ZipFilename),
		ZipSize:          info.Size(),
		Created:          created,
	}, nil
}

func isBareFilename(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}

// sortSnapshots orders by creation time descending; equal timestamps fall back
// to metadata filename, also descending, so the listing is deterministic.
func sortSnapshots(snapshots []*Snapshot) {
	slices.SortStableFunc(snapshots, func(a, b *Snapshot) int {
		if c := b.Created.Compare(a.Created); c != 0 {
			return c
		}
		return strings.Compare(b.MetadataFilename, a.MetadataFilename)
	})
}

// Select returns the snapshot at the 1-based position typed by the user.
func Select(snapshots []*Snapshot, input string) (*Snapshot, error) {
	trimmed := strings.TrimSpace(input)
	n, err := strconv.Atoi(trimmed)
	if err != nil || n < 1 || n > len(snapshots) {
		return nil, NewInvalidSelection(trimmed, len(snapshots))
	}
	return snapshots[n-1], nil
}
