package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, mode os.FileMode) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, os.Chmod(path, mode))
}

func violationPaths(violations []Violation) []string {
	paths := make([]string, 0, len(violations))
	for _, v := range violations {
		paths = append(paths, v.Path)
	}
	return paths
}

func TestScanReportsDrift(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Chmod(root, 0o755))

	writeFile(t, filepath.Join(root, "ok.txt"), 0o755)
	writeFile(t, filepath.Join(root, "drifted.txt"), 0o600)
	writeFile(t, filepath.Join(root, "world.txt"), 0o777)

	s := New(0o755, nil)
	violations, err := s.Scan(root)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		filepath.Join(root, "drifted.txt"),
		filepath.Join(root, "world.txt"),
	}, violationPaths(violations))

	for _, v := range violations {
		if v.Path == filepath.Join(root, "drifted.txt") {
			assert.Equal(t, os.FileMode(0o600), v.Mode)
		}
	}
}

func TestScanChecksDirectoriesToo(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Chmod(root, 0o755))

	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.NoError(t, os.Chmod(sub, 0o700))

	s := New(0o755, nil)
	violations, err := s.Scan(root)
	require.NoError(t, err)

	assert.Equal(t, []string{sub}, violationPaths(violations))
}

func TestScanCompliantTreeIsClean(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Chmod(root, 0o755))
	writeFile(t, filepath.Join(root, "a.txt"), 0o755)

	s := New(0o755, nil)
	violations, err := s.Scan(root)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestScanMissingRootFails(t *testing.T) {
	s := New(0o755, nil)
	_, err := s.Scan(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestScanUnlistableRootFails(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}

	root := t.TempDir()
	require.NoError(t, os.Chmod(root, 0o311))
	t.Cleanup(func() { _ = os.Chmod(root, 0o755) })

	s := New(0o755, nil)
	_, err := s.Scan(root)
	assert.Error(t, err)
}

func TestScanUnreadableSubdirIsSkipped(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}

	root := t.TempDir()
	require.NoError(t, os.Chmod(root, 0o755))

	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Mkdir(locked, 0o755))
	writeFile(t, filepath.Join(locked, "hidden.txt"), 0o600)
	writeFile(t, filepath.Join(root, "drifted.txt"), 0o600)
	require.NoError(t, os.Chmod(locked, 0o311))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	s := New(0o755, nil)
	violations, err := s.Scan(root)
	require.NoError(t, err)

	assert.Contains(t, violationPaths(violations), filepath.Join(root, "drifted.txt"))
	assert.NotContains(t, violationPaths(violations), filepath.Join(locked, "hidden.txt"))
}

func TestScanSkipsIgnoredTree(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Chmod(root, 0o755))

	ignored := filepath.Join(root, "ignoreme")
	require.NoError(t, os.Mkdir(ignored, 0o777))
	writeFile(t, filepath.Join(ignored, "bad.txt"), 0o777)
	writeFile(t, filepath.Join(root, "good.txt"), 0o755)

	s := New(0o755, []string{ignored})

	// Repeated scans never report anything under the ignore root.
	for i := 0; i < 3; i++ {
		violations, err := s.Scan(root)
		require.NoError(t, err)
		assert.Empty(t, violations)
	}
}

func TestScanFollowsSymlinks(t *testing.T) {
	root := t.TempDir()
	target := t.TempDir()
	require.NoError(t, os.Chmod(root, 0o755))
	require.NoError(t, os.Chmod(target, 0o755))

	writeFile(t, filepath.Join(target, "linked.txt"), 0o600)
	require.NoError(t, os.Symlink(target, filepath.Join(root, "link")))

	s := New(0o755, nil)
	violations, err := s.Scan(root)
	require.NoError(t, err)

	assert.Contains(t, violationPaths(violations), filepath.Join(root, "link", "linked.txt"))
}

func TestScanSurvivesSymlinkCycle(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Chmod(root, 0o755))

	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.NoError(t, os.Symlink(root, filepath.Join(sub, "loop")))

	s := New(0o755, nil)
	_, err := s.Scan(root)
	require.NoError(t, err)
}

func TestIgnoredMatchesPathComponents(t *testing.T) {
	tests := []struct {
		name    string
		ignores []string
		path    string
		want    bool
	}{
		{"exact ignore root", []string{"/data/skip"}, "/data/skip", true},
		{"file under ignore root", []string{"/data/skip"}, "/data/skip/f.txt", true},
		{"nested under ignore root", []string{"/data/skip"}, "/data/skip/a/b", true},
		{"sibling with common prefix", []string{"/data/skip"}, "/data/skipped", false},
		{"parent of ignore root", []string{"/data/skip"}, "/data", false},
		{"unrelated path", []string{"/data/skip"}, "/other", false},
		{"relative paths", []string{"testdir/ignoreme"}, "testdir/ignoreme/x", true},
		{"relative sibling prefix", []string{"testdir/ignore"}, "testdir/ignoreme", false},
		{"second ignore root matches", []string{"/a", "/b"}, "/b/f", true},
		{"no ignore roots", nil, "/data/f", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(0o644, tt.ignores)
			assert.Equal(t, tt.want, s.Ignored(tt.path))
		})
	}
}
