package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolveDir converts a raw path argument to an absolute path with every
// symlink resolved and checks that it names an existing directory. Scans and
// restores then act on the real directory, never on a link to it.
func ResolveDir(rawPath string) (string, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}
	absPath, err = filepath.EvalSymlinks(absPath)
	if err != nil {
		return "", fmt.Errorf("resolving symlinks: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("stat path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", absPath)
	}
	return absPath, nil
}

// ResolveFile converts a raw path argument to an absolute path and checks that
// it names an existing regular file. An empty argument resolves to "".
func ResolveFile(rawPath string) (string, error) {
	if rawPath == "" {
		return "", nil
	}

	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("stat path: %w", err)
	}

	mode := info.Mode()
	if mode.IsDir() {
		return "", fmt.Errorf("is a directory: %s", absPath)
	}
	if mode&os.ModeDevice != 0 {
		return "", fmt.Errorf("device files not supported: %s", absPath)
	}
	if mode&os.ModeNamedPipe != 0 {
		return "", fmt.Errorf("named pipes not supported: %s", absPath)
	}
	if mode&os.ModeSocket != 0 {
		return "", fmt.Errorf("sockets not supported: %s", absPath)
	}
	return absPath, nil
}

// CheckDisjoint fails if source and destination are the same directory or
// either contains the other. Both must already be absolute. Symlinks are
// resolved before comparing.
func CheckDisjoint(source, destination string) error {
	src, err := filepath.EvalSymlinks(source)
	if err != nil {
		return fmt.Errorf("resolving source: %w", err)
	}
	dst, err := filepath.EvalSymlinks(destination)
	if err != nil {
		return fmt.Errorf("resolving destination: %w", err)
	}

	switch {
	case src == dst:
		return fmt.Errorf("source and destination are the same directory: %s", src)
	case within(dst, src):
		return fmt.Errorf("destination %s is inside source %s", dst, src)
	case within(src, dst):
		return fmt.Errorf("source %s is inside destination %s", src, dst)
	}
	return nil
}

// within reports whether path lies strictly below dir.
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
