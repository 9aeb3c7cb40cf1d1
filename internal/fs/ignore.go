package fs

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"dirsnap/internal/dirsnap"
)

// builtinIgnores are always applied regardless of the ignore file. Each matches
// a path segment exactly, at any depth.
var builtinIgnores = map[string]bool{
	".git":        true,
	".DS_Store":   true,
	"Thumbs.db":   true,
	"desktop.ini": true,
}

// ignoreRule is one compiled pattern and the line it came from.
type ignoreRule struct {
	re   *regexp.Regexp
	line int
}

// IgnoreMatcher decides which paths under a source tree are excluded.
//
// Patterns are Go regular expressions matched anywhere in the target string
// (no implicit anchoring). The target is the source argument as typed, a
// forward slash, and the forward-slash relative path, e.g. "./proj/build/tmp".
type IgnoreMatcher struct {
	rules []ignoreRule
}

// NewIgnoreMatcher compiles lines into an IgnoreMatcher. Lines are trimmed;
// blank lines and lines starting with '#' are skipped. source names the origin
// of the lines in error messages. A pattern that fails to compile fails the
// whole matcher.
func NewIgnoreMatcher(source string, lines []string) (*IgnoreMatcher, error) {
	var rules []ignoreRule
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		re, err := regexp.Compile(line)
		if err != nil {
			return nil, dirsnap.NewInvalidIgnorePattern(source, i+1, line, err)
		}
		rules = append(rules, ignoreRule{re: re, line: i + 1})
	}
	return &IgnoreMatcher{rules: rules}, nil
}

// Len returns the number of compiled patterns, excluding built-ins.
func (m *IgnoreMatcher) Len() int {
	return len(m.rules)
}

// Match reports whether relativePath should be ignored. relativePath may use
// platform separators; it is converted to forward slashes before matching.
func (m *IgnoreMatcher) Match(rawSource, relativePath string) bool {
	rel := filepath.ToSlash(relativePath)

	for _, segment := range strings.Split(rel, "/") {
		if builtinIgnores[segment] {
			return true
		}
	}

	target := rawSource + "/" + rel
	for _, r := range m.rules {
		if r.re.MatchString(target) {
			return true
		}
	}
	return false
}

// LoadIgnoreFile reads the lines of an ignore file. An empty path means no
// ignore file and yields no lines. A named file that does not exist is an error.
func LoadIgnoreFile(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return lines, nil
}

// LoadIgnoreMatcher reads and compiles the ignore file at path; see LoadIgnoreFile.
func LoadIgnoreMatcher(path string) (*IgnoreMatcher, error) {
	lines, err := LoadIgnoreFile(path)
	if err != nil {
		return nil, err
	}
	return NewIgnoreMatcher(path, lines)
}
