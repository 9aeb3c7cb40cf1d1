package fs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"dirsnap/internal/dirsnap"
)

// Matcher decides whether a path under the source root is ignored.
type Matcher interface {
	Match(rawSource, relativePath string) bool
}

// OSFilesystemManager scans source trees on the real filesystem.
type OSFilesystemManager struct {
	matcher Matcher
}

// NewOSFilesystemManager creates a filesystem manager applying matcher to every
// non-root path it visits.
func NewOSFilesystemManager(matcher Matcher) *OSFilesystemManager {
	return &OSFilesystemManager{matcher: matcher}
}

// Scan walks root depth-first and returns the archive candidates.
//
// A directory whose relative path matches is pruned: nothing beneath it is
// listed, counted or tested. Symlinks and special files are never followed and
// are reported in ScanResult.Skipped. A non-root directory with no candidate
// files and no candidate subdirectories is recorded as an empty directory; its
// parent then counts as non-empty.
func (m *OSFilesystemManager) Scan(root string, rawSource string, progress dirsnap.ScanProgressFunc) (*dirsnap.ScanResult, error) {
	info, err := os.Lstat(root)
	if err != nil {
		return nil, dirsnap.NewScanFailed(root, err)
	}
	if !info.IsDir() {
		return nil, dirsnap.NewScanFailed(root, fmt.Errorf("not a directory"))
	}

	s := &scanner{
		matcher:   m.matcher,
		rawSource: rawSource,
		progress:  progress,
		result: &dirsnap.ScanResult{
			Files:     []dirsnap.ScanEntry{},
			EmptyDirs: []dirsnap.ScanEntry{},
		},
	}
	if _, err := s.walk(root, ""); err != nil {
		return nil, err
	}

	sortEntries(s.result.Files)
	sortEntries(s.result.EmptyDirs)
	sortEntries(s.result.Skipped)
	return s.result, nil
}

type scanner struct {
	matcher   Matcher
	rawSource string
	progress  dirsnap.ScanProgressFunc
	result    *dirsnap.ScanResult
}

// walk visits dir (relative path rel) and reports whether it holds any candidate.
func (s *scanner) walk(dir, rel string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, dirsnap.NewScanFailed(dir, err)
	}
	s.result.DirsScanned++

	found := false
	for _, e := range entries {
		childRel := e.Name()
		if rel != "" {
			childRel = filepath.Join(rel, e.Name())
		}
		childPath := filepath.Join(dir, e.Name())
		typ := e.Type()

		switch {
		case typ&fs.ModeSymlink != 0:
			s.skip(childRel, dirsnap.KindSymlink)

		case typ.IsDir():
			if s.ignored(childRel) {
				continue
			}
			hasCandidates, err := s.walk(childPath, childRel)
			if err != nil {
				return false, err
			}
			if !hasCandidates {
				s.result.EmptyDirs = append(s.result.EmptyDirs, dirsnap.ScanEntry{
					RelativePath: childRel,
					Kind:         dirsnap.KindEmptyDirectory,
				})
			}
			found = true

		case typ.IsRegular():
			if _, err := e.Info(); err != nil {
				return false, dirsnap.NewScanFailed(childPath, err)
			}
			s.result.FilesSeen++
			if s.ignored(childRel) {
				continue
			}
			s.result.Files = append(s.result.Files, dirsnap.ScanEntry{
				RelativePath: childRel,
				Kind:         dirsnap.KindFile,
			})
			found = true

		default:
			s.skip(childRel, dirsnap.KindSpecial)
		}
	}

	if s.progress != nil {
		s.progress(s.result.DirsScanned, s.result.FilesSeen)
	}
	return found, nil
}

// ignored applies the matcher; a nil matcher ignores nothing.
func (s *scanner) ignored(rel string) bool {
	return s.matcher != nil && s.matcher.Match(s.rawSource, rel)
}

func (s *scanner) skip(rel string, kind dirsnap.EntryKind) {
	s.result.Skipped = append(s.result.Skipped, dirsnap.ScanEntry{
		RelativePath: rel,
		Kind:         kind,
	})
}

// sortEntries orders by forward-slash path, the order used in archives and metadata.
func sortEntries(entries []dirsnap.ScanEntry) {
	slices.SortFunc(entries, func(a, b dirsnap.ScanEntry) int {
		return strings.Compare(a.SlashPath(), b.SlashPath())
	})
}

// Compile-time check that OSFilesystemManager implements dirsnap.FilesystemManager interface
var _ dirsnap.FilesystemManager = (*OSFilesystemManager)(nil)
var _ Matcher = (*IgnoreMatcher)(nil)
