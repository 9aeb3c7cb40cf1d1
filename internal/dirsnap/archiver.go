package dirsnap

import "io"

// Archiver abstracts zip container operations.
type Archiver interface {
	// Create streams the given files and empty-directory markers into a zip written to w.
	// files and emptyDirs are forward-slash paths relative to root.
	// progress may be nil.
	Create(w io.Writer, root string, files []string, emptyDirs []string, progress ArchiveProgressFunc) error

	// Verify reads every entry of the archive at zipPath, checking CRC and sizes,
	// and returns the entries it holds. It never writes anything.
	Verify(zipPath string) (*ArchiveManifest, error)

	// Extract materializes every entry of the archive at zipPath under destDir.
	// destDir must exist and be empty.
	Extract(zipPath string, destDir string) error
}

// ArchiveManifest lists the entries found in a verified archive, sorted.
type ArchiveManifest struct {
	Files     []string
	EmptyDirs []string
}
