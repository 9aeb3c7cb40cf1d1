package dirsnap

import "path/filepath"

// EntryKind classifies a node found under the source root.
type EntryKind int

const (
	KindFile EntryKind = iota
	KindEmptyDirectory
	KindSymlink
	KindSpecial // device, socket, named pipe
)

func (k EntryKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindEmptyDirectory:
		return "empty_directory"
	case KindSymlink:
		return "symlink"
	case KindSpecial:
		return "special"
	default:
		return "unknown"
	}
}

// ScanEntry is one filesystem node under the source root.
// RelativePath uses platform-native separators.
type ScanEntry struct {
	RelativePath string
	Kind         EntryKind
	Ignored      bool
}

// SlashPath returns the relative path with forward slashes, as used in archives and metadata.
func (e ScanEntry) SlashPath() string {
	return filepath.ToSlash(e.RelativePath)
}

// ScanResult is the candidate set produced by a single scan pass.
// Files and EmptyDirs are sorted by relative path.
type ScanResult struct {
	Files     []ScanEntry
	EmptyDirs []ScanEntry
	Skipped   []ScanEntry // symlinks and special files; never archived or counted

	DirsScanned int
	FilesSeen   int
}

// Empty reports whether the scan found nothing to archive.
func (r *ScanResult) Empty() bool {
	return len(r.Files) == 0 && len(r.EmptyDirs) == 0
}

// FilePaths returns the forward-slash relative paths of all candidate files.
func (r *ScanResult) FilePaths() []string {
	return slashPaths(r.Files)
}

// EmptyDirPaths returns the forward-slash relative paths of all empty-directory candidates.
func (r *ScanResult) EmptyDirPaths() []string {
	return slashPaths(r.EmptyDirs)
}

func slashPaths(entries []ScanEntry) []string {
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.SlashPath()
	}
	return paths
}

// ScanProgressFunc receives the running totals once per directory visited.
type ScanProgressFunc func(dirsScanned, filesSeen int)

// ArchiveProgressFunc receives the running count once per file written to an archive.
type ArchiveProgressFunc func(archived, total int)
