package dirsnap

import (
	"io"
	"io/fs"
)

// Vault is the destination directory holding snapshot file pairs.
// Filenames are bare names within the destination, never paths.
type Vault interface {
	// Path returns the absolute path of filename inside the vault.
	Path(filename string) string

	// Exists reports whether any entry named filename is present.
	Exists(filename string) (bool, error)

	// Stat returns file info for filename without following symlinks.
	Stat(filename string) (fs.FileInfo, error)

	// Put creates filename with the bytes write produces. Data goes to a temporary
	// file first and is renamed into place only if write succeeds, so a reader never
	// observes a partial file. Put fails if filename already exists.
	Put(filename string, write func(w io.Writer) error) error

	// Remove deletes filename.
	Remove(filename string) error

	// ReadFile returns the contents of filename.
	ReadFile(filename string) ([]byte, error)

	// ListMetadata returns the names of all *.json files in the vault, sorted.
	ListMetadata() ([]string, error)
}
