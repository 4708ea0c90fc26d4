package pathsafe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "github.com/sharedash/sharedash/internal/errors"
)

func newSandbox(t *testing.T) (*Sandbox, string) {
	t.Helper()
	root := t.TempDir()
	sb, err := New(root)
	require.NoError(t, err)
	return sb, sb.Root()
}

func TestNewRejectsMissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestNewRejectsFileRoot(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "afile")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := New(file)
	assert.Error(t, err)
}

func TestResolveValidPaths(t *testing.T) {
	sb, root := newSandbox(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "reports", "q3"), 0o755))

	tests := []struct {
		name string
		rel  string
		want string
	}{
		{"plain file", "notes.txt", filepath.Join(root, "notes.txt")},
		{"nested", "reports/q3/summary.csv", filepath.Join(root, "reports", "q3", "summary.csv")},
		{"redundant segments", "reports/./q3/summary.csv", filepath.Join(root, "reports", "q3", "summary.csv")},
		{"backslash separators", `reports\q3\summary.csv`, filepath.Join(root, "reports", "q3", "summary.csv")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sb.Resolve(tt.rel)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveRejectsTraversal(t *testing.T) {
	sb, _ := newSandbox(t)

	tests := []struct {
		name string
		rel  string
	}{
		{"parent escape", "../outside.txt"},
		{"nested escape", "a/../../outside.txt"},
		{"bare dotdot", ".."},
		{"absolute", "/etc/passwd"},
		{"backslash escape", `..\outside.txt`},
		{"control character", "a\x00b.txt"},
		{"dot only", "."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sb.Resolve(tt.rel)
			require.Error(t, err)
			code := derrors.GetCode(err)
			assert.Contains(t,
				[]string{derrors.ErrCodePathTraversal, derrors.ErrCodeInvalidInput}, code)
		})
	}
}

func TestResolveRejectsEmpty(t *testing.T) {
	sb, _ := newSandbox(t)
	_, err := sb.Resolve("")
	assert.Equal(t, derrors.ErrCodeInvalidInput, derrors.GetCode(err))
}

func TestResolveAllowsNonexistentTarget(t *testing.T) {
	// Paths that do not exist yet must still resolve; creation flows
	// validate before writing.
	sb, root := newSandbox(t)

	got, err := sb.Resolve("new/sub/file.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "new", "sub", "file.txt"), got)
}

func TestResolveRejectsSymlinkEscape(t *testing.T) {
	sb, root := newSandbox(t)
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "link")))

	_, err := sb.Resolve("link/secret.txt")
	assert.Equal(t, derrors.ErrCodePathTraversal, derrors.GetCode(err))
}

func TestResolveAllowsSymlinkInsideRoot(t *testing.T) {
	sb, root := newSandbox(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "real"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "real", "a.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "alias")))

	_, err := sb.Resolve("alias/a.txt")
	assert.NoError(t, err)
}

func TestInvalidatePicksUpRetargetedSymlink(t *testing.T) {
	sb, root := newSandbox(t)
	inside := filepath.Join(root, "inside")
	require.NoError(t, os.MkdirAll(inside, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(inside, "a.txt"), []byte("x"), 0o644))

	link := filepath.Join(root, "link")
	require.NoError(t, os.Symlink(inside, link))

	_, err := sb.Resolve("link/a.txt")
	require.NoError(t, err)

	// Retarget the symlink outside the root; the cached resolution must
	// not survive Invalidate.
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "a.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Remove(link))
	require.NoError(t, os.Symlink(outside, link))

	sb.Invalidate()
	_, err = sb.Resolve("link/a.txt")
	assert.Equal(t, derrors.ErrCodePathTraversal, derrors.GetCode(err))
}
