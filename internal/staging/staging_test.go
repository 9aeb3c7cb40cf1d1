package staging

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"dirsnap/internal/config"
	"dirsnap/internal/dirsnap"
	"dirsnap/internal/testutil"
)

// helpers

func newTestSA() *DirectoryStagingArea {
	return NewDirectoryStagingArea("", testutil.NewStubIDGenerator())
}

// newTarget creates parent/source holding tree and returns both paths.
func newTarget(t *testing.T, tree map[string]string) (parent, target string) {
	t.Helper()
	parent = t.TempDir()
	target = filepath.Join(parent, "source")
	if err := os.Mkdir(target, 0755); err != nil {
		t.Fatalf("mkdir target: %v", err)
	}
	testutil.WriteTree(t, target, tree)
	return parent, target
}

func siblings(t *testing.T, parent string) []string {
	t.Helper()
	entries, err := os.ReadDir(parent)
	if err != nil {
		t.Fatalf("reading parent: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// Tests

func TestDirectoryStagingArea_Prepare(t *testing.T) {
	t.Run("creates hidden sibling", func(t *testing.T) {
		parent, target := newTarget(t, nil)
		staged, err := newTestSA().Prepare(target)
		if err != nil {
			t.Fatalf("Prepare() error = %v", err)
		}
		if filepath.Dir(staged) != parent {
			t.Errorf("staged dir %s is not beside %s", staged, target)
		}
		if !strings.HasPrefix(filepath.Base(staged), ".source.restore-") {
			t.Errorf("unexpected staged name %s", filepath.Base(staged))
		}
		entries, err := os.ReadDir(staged)
		if err != nil || len(entries) != 0 {
			t.Errorf("staged dir not empty: %v, %v", entries, err)
		}
	})

	t.Run("honors configured dir", func(t *testing.T) {
		_, target := newTarget(t, nil)
		dir := t.TempDir()
		staged, err := NewDirectoryStagingArea(dir, testutil.NewStubIDGenerator()).Prepare(target)
		if err != nil {
			t.Fatalf("Prepare() error = %v", err)
		}
		if filepath.Dir(staged) != dir {
			t.Errorf("staged dir %s not under %s", staged, dir)
		}
	})

	t.Run("missing target", func(t *testing.T) {
		if _, err := newTestSA().Prepare(filepath.Join(t.TempDir(), "nope")); err == nil {
			t.Error("expected error for missing target")
		}
	})
}

func TestDirectoryStagingArea_Commit(t *testing.T) {
	parent, target := newTarget(t, map[string]string{"old.txt": "old", "stale/": ""})
	if err := os.Chmod(target, 0750); err != nil {
		t.Fatalf("chmod: %v", err)
	}

	sa := newTestSA()
	staged, err := sa.Prepare(target)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	testutil.WriteTree(t, staged, map[string]string{"new.txt": "new", "empty/": ""})

	if err := sa.Commit(staged, target); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	want := map[string]string{"new.txt": "new", "empty/": ""}
	if got := testutil.ReadTree(t, target); !reflect.DeepEqual(got, want) {
		t.Errorf("target = %v, want %v", got, want)
	}
	info, err := os.Stat(target)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0750 {
		t.Errorf("target mode = %v, want 0750", info.Mode().Perm())
	}
	if got := siblings(t, parent); !reflect.DeepEqual(got, []string{"source"}) {
		t.Errorf("parent holds %v, want only source", got)
	}
}

func TestDirectoryStagingArea_CommitRollsBack(t *testing.T) {
	_, target := newTarget(t, map[string]string{"keep.txt": "keep"})

	sa := newTestSA()
	staged, err := sa.Prepare(target)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	testutil.WriteTree(t, staged, map[string]string{"new.txt": "new"})

	calls := 0
	sa.rename = func(oldpath, newpath string) error {
		calls++
		if calls == 2 {
			return errors.New("injected rename failure")
		}
		return os.Rename(oldpath, newpath)
	}

	if err := sa.Commit(staged, target); err == nil {
		t.Fatal("expected Commit() error")
	}
	want := map[string]string{"keep.txt": "keep"}
	if got := testutil.ReadTree(t, target); !reflect.DeepEqual(got, want) {
		t.Errorf("target = %v, want original %v", got, want)
	}
	if err := sa.Discard(staged); err != nil {
		t.Errorf("Discard() error = %v", err)
	}
}

func TestDirectoryStagingArea_CommitCleanupFailure(t *testing.T) {
	parent, target := newTarget(t, map[string]string{"old.txt": "old"})

	sa := newTestSA()
	staged, err := sa.Prepare(target)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	testutil.WriteTree(t, staged, map[string]string{"new.txt": "new"})
	sa.removeAll = func(string) error { return errors.New("busy") }

	err = sa.Commit(staged, target)
	if !dirsnap.IsCode(err, dirsnap.CodeCleanup) {
		t.Fatalf("expected CodeCleanup, got %v", err)
	}
	if got := testutil.ReadTree(t, target); !reflect.DeepEqual(got, map[string]string{"new.txt": "new"}) {
		t.Errorf("target not swapped: %v", got)
	}
	found := false
	for _, name := range siblings(t, parent) {
		if strings.HasPrefix(name, ".source.old-") {
			found = true
		}
	}
	if !found {
		t.Error("expected previous contents left beside target")
	}
}

func TestDirectoryStagingArea_Discard(t *testing.T) {
	parent, target := newTarget(t, nil)
	sa := newTestSA()
	staged, err := sa.Prepare(target)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	testutil.WriteTree(t, staged, map[string]string{"partial.txt": "p"})

	if err := sa.Discard(staged); err != nil {
		t.Fatalf("Discard() error = %v", err)
	}
	if got := siblings(t, parent); !reflect.DeepEqual(got, []string{"source"}) {
		t.Errorf("parent holds %v, want only source", got)
	}
	if err := sa.Discard(staged); err != nil {
		t.Errorf("second Discard() error = %v", err)
	}
}

func TestNewStagingAreaFromConfig(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		sa, err := NewStagingAreaFromConfig(config.StagingConfig{}, testutil.NewStubIDGenerator())
		if err != nil {
			t.Fatalf("NewStagingAreaFromConfig() error = %v", err)
		}
		if sa.dir != "" {
			t.Errorf("dir = %q, want empty", sa.dir)
		}
	})

	t.Run("missing dir", func(t *testing.T) {
		cfg := config.StagingConfig{Dir: filepath.Join(t.TempDir(), "nope")}
		if _, err := NewStagingAreaFromConfig(cfg, testutil.NewStubIDGenerator()); err == nil {
			t.Error("expected error for missing staging dir")
		}
	})
}
