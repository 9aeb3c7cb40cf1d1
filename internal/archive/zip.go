// Package archive reads and writes snapshot zip containers.
package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/klauspost/compress/zip"

	"dirsnap/internal/dirsnap"
)

// ZipArchiver stores files deflated and empty directories as zero-byte
// entries with a trailing slash. Entry names are forward-slash paths relative
// to the source root.
type ZipArchiver struct{}

// NewZipArchiver creates a new ZipArchiver.
func NewZipArchiver() *ZipArchiver {
	return &ZipArchiver{}
}

// Create writes a zip holding files and emptyDirs, read from beneath root, to w.
func (a *ZipArchiver) Create(w io.Writer, root string, files []string, emptyDirs []string, progress dirsnap.ArchiveProgressFunc) (err error) {
	zw := zip.NewWriter(w)
	defer func() {
		if closeErr := zw.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("finalizing zip: %w", closeErr)
		}
	}()

	for i, rel := range files {
		if err := addFile(zw, root, rel); err != nil {
			return err
		}
		if progress != nil {
			progress(i+1, len(files))
		}
	}

	for _, rel := range emptyDirs {
		if err := addDir(zw, root, rel); err != nil {
			return err
		}
	}
	return nil
}

func addFile(zw *zip.Writer, root, rel string) error {
	p := filepath.Join(root, filepath.FromSlash(rel))

	f, err := os.Open(p)
	if err != nil {
		return fmt.Errorf("opening %s: %w", rel, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", rel, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", rel)
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("creating header for %s: %w", rel, err)
	}
	header.Name = rel
	header.Method = zip.Deflate

	entry, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("creating entry %s: %w", rel, err)
	}
	if _, err := io.Copy(entry, f); err != nil {
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	return nil
}

func addDir(zw *zip.Writer, root, rel string) error {
	info, err := os.Lstat(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return fmt.Errorf("stat %s: %w", rel, err)
	}

	header := &zip.FileHeader{
		Name:     rel + "/",
		Method:   zip.Store,
		Modified: info.ModTime(),
	}
	header.SetMode(info.Mode())

	if _, err := zw.CreateHeader(header); err != nil {
		return fmt.Errorf("creating directory entry %s: %w", rel, err)
	}
	return nil
}

// Verify reads every entry of the archive in full so the CRC-32 and size of
// each one are checked, and rejects names that could escape the extraction
// directory or that appear twice.
func (a *ZipArchiver) Verify(zipPath string) (manifest *dirsnap.ArchiveManifest, err error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, dirsnap.NewIntegrity(zipPath, "opening zip", err)
	}
	defer func() {
		if closeErr := zr.Close(); closeErr != nil && err == nil {
			err = dirsnap.NewIntegrity(zipPath, "closing zip", closeErr)
		}
	}()

	manifest = &dirsnap.ArchiveManifest{Files: []string{}, EmptyDirs: []string{}}
	seen := make(map[string]bool, len(zr.File))

	for _, f := range zr.File {
		name, isDir, err := entryName(f.Name)
		if err != nil {
			return nil, dirsnap.NewIntegrity(zipPath, err.Error(), nil)
		}
		if seen[name] {
			return nil, dirsnap.NewIntegrity(zipPath, fmt.Sprintf("duplicate entry %q", f.Name), nil)
		}
		seen[name] = true

		if isDir {
			manifest.EmptyDirs = append(manifest.EmptyDirs, name)
			continue
		}
		if err := readEntry(f); err != nil {
			return nil, dirsnap.NewIntegrity(zipPath, fmt.Sprintf("entry %q is corrupt", f.Name), err)
		}
		manifest.Files = append(manifest.Files, name)
	}

	slices.Sort(manifest.Files)
	slices.Sort(manifest.EmptyDirs)
	return manifest, nil
}

func readEntry(f *zip.File) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	_, err = io.Copy(io.Discard, rc)
	return err
}

// Extract writes every entry of the archive beneath destDir, restoring file
// modes and modification times.
func (a *ZipArchiver) Extract(zipPath string, destDir string) (err error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("opening zip: %w", err)
	}
	defer func() {
		if closeErr := zr.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for _, f := range zr.File {
		name, isDir, err := entryName(f.Name)
		if err != nil {
			return err
		}
		destPath := filepath.Join(destDir, filepath.FromSlash(name))

		if isDir {
			if err := os.MkdirAll(destPath, 0o755); err != nil {
				return fmt.Errorf("creating directory %s: %w", name, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return fmt.Errorf("creating parent directory of %s: %w", name, err)
		}
		if err := extractFile(f, destPath); err != nil {
			return fmt.Errorf("extracting %s: %w", name, err)
		}
	}
	return nil
}

// extractFile extracts a single file from the archive.
func extractFile(f *zip.File, destPath string) (err error) {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	perm := f.Mode().Perm()
	if perm == 0 {
		perm = 0o644
	}
	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if !f.Modified.IsZero() {
		if err := os.Chtimes(destPath, f.Modified, f.Modified); err != nil {
			return fmt.Errorf("setting modification time: %w", err)
		}
	}
	return nil
}

var errUnsafeName = errors.New("unsafe entry name")

// entryName validates a raw entry name and returns it without the trailing
// slash of a directory entry.
func entryName(raw string) (name string, isDir bool, err error) {
	name = raw
	if strings.HasSuffix(name, "/") {
		isDir = true
		name = strings.TrimSuffix(name, "/")
	}

	switch {
	case name == "":
		return "", false, fmt.Errorf("%w: empty name", errUnsafeName)
	case filepath.Separator == '\\' && strings.Contains(name, `\`):
		// Only a separator where extraction happens; elsewhere a legal filename byte.
		return "", false, fmt.Errorf("%w: %q contains a backslash", errUnsafeName, raw)
	case strings.HasPrefix(name, "/"):
		return "", false, fmt.Errorf("%w: %q is absolute", errUnsafeName, raw)
	case path.Clean(name) != name:
		return "", false, fmt.Errorf("%w: %q is not a clean path", errUnsafeName, raw)
	case !filepath.IsLocal(filepath.FromSlash(name)):
		return "", false, fmt.Errorf("%w: %q escapes the extraction directory", errUnsafeName, raw)
	}
	return name, isDir, nil
}

// Compile-time check that ZipArchiver implements dirsnap.Archiver interface
var _ dirsnap.Archiver = (*ZipArchiver)(nil)
