package staging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"dirsnap/internal/dirsnap"
)

// DirectoryStagingArea restores into a hidden sibling of the target directory
// and swaps it into place with two renames:
//
//	<parent>/
//	  source/                      (target)
//	  .source.restore-1234567/     (staged, created by Prepare)
//	  .source.old-1a2b3c4d/        (previous contents, only during Commit)
//
// The staged directory must be on the same filesystem as the target.
type DirectoryStagingArea struct {
	// dir overrides the parent of the staging directory; "" means beside the target.
	dir   string
	idgen dirsnap.IDGenerator

	rename    func(oldpath, newpath string) error
	removeAll func(path string) error
}

// NewDirectoryStagingArea creates a staging area. dir may be "" to stage beside
// each target.
func NewDirectoryStagingArea(dir string, idgen dirsnap.IDGenerator) *DirectoryStagingArea {
	return &DirectoryStagingArea{
		dir:       dir,
		idgen:     idgen,
		rename:    os.Rename,
		removeAll: os.RemoveAll,
	}
}

// Prepare creates an empty staging directory for target.
func (s *DirectoryStagingArea) Prepare(target string) (string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return "", fmt.Errorf("stat target: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("target is not a directory: %s", target)
	}

	parent := s.dir
	if parent == "" {
		parent = filepath.Dir(target)
	}
	staged, err := os.MkdirTemp(parent, "."+filepath.Base(target)+".restore-*")
	if err != nil {
		return "", fmt.Errorf("creating staging directory: %w", err)
	}
	return staged, nil
}

// Commit swaps staged into target's place. target keeps its permission bits.
// If the staged directory cannot be moved in, the original target is moved back.
func (s *DirectoryStagingArea) Commit(staged string, target string) error {
	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("stat target: %w", err)
	}
	if err := os.Chmod(staged, info.Mode().Perm()); err != nil {
		return fmt.Errorf("setting staged permissions: %w", err)
	}

	old := s.asidePath(target)
	if err := s.rename(target, old); err != nil {
		return fmt.Errorf("moving target aside: %w", err)
	}

	if err := s.rename(staged, target); err != nil {
		if rbErr := s.rename(old, target); rbErr != nil {
			return fmt.Errorf("moving staged directory into place: %w (previous contents remain at %s: %v)", err, old, rbErr)
		}
		return fmt.Errorf("moving staged directory into place: %w", err)
	}

	if err := s.removeAll(old); err != nil {
		return dirsnap.NewCleanup(old, err)
	}
	return nil
}

// Discard removes a staging directory that will not be committed. A staging
// directory that is already gone is not an error.
func (s *DirectoryStagingArea) Discard(staged string) error {
	if err := s.removeAll(staged); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing staging directory: %w", err)
	}
	return nil
}

// asidePath names the hidden sibling that holds target's previous contents.
func (s *DirectoryStagingArea) asidePath(target string) string {
	id := s.idgen.New()
	if len(id) > 8 {
		id = id[:8]
	}
	return filepath.Join(filepath.Dir(target), "."+filepath.Base(target)+".old-"+id)
}

// Compile-time check that DirectoryStagingArea implements dirsnap.StagingArea interface
var _ dirsnap.StagingArea = (*DirectoryStagingArea)(nil)
