package vault

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"dirsnap/internal/dirsnap"
)

// tmpPattern names in-progress writes. The ".tmp-" prefix keeps them out of
// metadata listings since they never end in ".json".
const tmpPattern = ".tmp-*"

// FileSystemVault is a flat destination directory holding snapshot pairs:
//
//	<root>/
//	  2024-01-15_10-30-00_nightly.zip
//	  2024-01-15_10-30-00_nightly.json
type FileSystemVault struct {
	root string
}

// NewFileSystemVault opens the destination directory at root, which must exist.
func NewFileSystemVault(root string) (*FileSystemVault, error) {
	v := &FileSystemVault{root: root}
	if err := v.ValidateSetup(); err != nil {
		return nil, err
	}
	return v, nil
}

// Root returns the destination directory.
func (v *FileSystemVault) Root() string {
	return v.root
}

// Path returns the absolute path of filename in the vault.
func (v *FileSystemVault) Path(filename string) string {
	return filepath.Join(v.root, filename)
}

// Exists reports whether anything named filename is present, including dangling symlinks.
func (v *FileSystemVault) Exists(filename string) (bool, error) {
	_, err := os.Lstat(v.Path(filename))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", filename, err)
}

// Stat returns file info for filename without following symlinks.
func (v *FileSystemVault) Stat(filename string) (fs.FileInfo, error) {
	return os.Lstat(v.Path(filename))
}

// Put writes filename atomically. It refuses to replace an existing file.
func (v *FileSystemVault) Put(filename string, write func(w io.Writer) error) error {
	destPath := v.Path(filename)
	exists, err := v.Exists(filename)
	if err != nil {
		return err
	}
	if exists {
		return dirsnap.NewCollision(destPath)
	}
	return v.writeFile(destPath, write)
}

// Remove deletes filename from the vault.
func (v *FileSystemVault) Remove(filename string) error {
	if err := os.Remove(v.Path(filename)); err != nil {
		return fmt.Errorf("removing %s: %w", filename, err)
	}
	return nil
}

// ReadFile returns the contents of filename.
func (v *FileSystemVault) ReadFile(filename string) ([]byte, error) {
	return os.ReadFile(v.Path(filename))
}

// ListMetadata returns the names of all regular-looking *.json entries, sorted.
// Directories named *.json are skipped.
func (v *FileSystemVault) ListMetadata() ([]string, error) {
	entries, err := os.ReadDir(v.root)
	if err != nil {
		return nil, fmt.Errorf("reading destination directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), dirsnap.MetadataExt) {
			continue
		}
		names = append(names, e.Name())
	}
	slices.Sort(names)
	return names, nil
}

// ValidateSetup verifies that the vault directory is accessible.
func (v *FileSystemVault) ValidateSetup() error {
	info, err := os.Stat(v.root)
	if err != nil {
		return fmt.Errorf("destination not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("destination is not a directory: %s", v.root)
	}
	return nil
}

// writeFile streams write's output to a temp file beside destPath, then renames
// it into place. On any failure the temp file is removed and destPath is untouched.
func (v *FileSystemVault) writeFile(destPath string, write func(w io.Writer) error) error {
	// Create temp file in the same directory to ensure atomic rename works
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), tmpPattern)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if err := write(tmpFile); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Compile-time check that FileSystemVault implements dirsnap.Vault interface
var _ dirsnap.Vault = (*FileSystemVault)(nil)
