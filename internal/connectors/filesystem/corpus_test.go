package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pdfOnly(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

func setupCorpus(t *testing.T, files ...string) (*Corpus, string) {
	t.Helper()
	dir := t.TempDir()
	for _, f := range files {
		path := filepath.Join(dir, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("content"), 0o600))
	}
	return New(dir, pdfOnly), dir
}

func TestCorpus_Validate(t *testing.T) {
	c, dir := setupCorpus(t, "a.pdf")
	assert.NoError(t, c.Validate())
	assert.Equal(t, dir, c.Root())

	err := New(filepath.Join(dir, "missing"), nil).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")

	err = New(filepath.Join(dir, "a.pdf"), nil).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestCorpus_List(t *testing.T) {
	c, dir := setupCorpus(t, "b.pdf", "a.pdf", "notes.docx", ".hidden.pdf", "sub/c.pdf")

	files, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.pdf"), filepath.Join(dir, "b.pdf")}, files)
}

func TestCorpus_List_CancelledContext(t *testing.T) {
	c, _ := setupCorpus(t, "a.pdf")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCorpus_Expand(t *testing.T) {
	c, dir := setupCorpus(t, "a.pdf", "b.pdf", "c.txt", "other/d.pdf")
	ctx := context.Background()

	t.Run("directory", func(t *testing.T) {
		got, err := c.Expand(ctx, []string{dir})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("explicit unsupported file is kept", func(t *testing.T) {
		got, err := c.Expand(ctx, []string{filepath.Join(dir, "c.txt")})
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, "c.txt")}, got)
	})

	t.Run("glob filters unsupported", func(t *testing.T) {
		got, err := c.Expand(ctx, []string{filepath.Join(dir, "*")})
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, "a.pdf"), filepath.Join(dir, "b.pdf")}, got)
	})

	t.Run("duplicates removed", func(t *testing.T) {
		got, err := c.Expand(ctx, []string{dir, filepath.Join(dir, "a.pdf"), filepath.Join(dir, "other")})
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(dir, "a.pdf"),
			filepath.Join(dir, "b.pdf"),
			filepath.Join(dir, "other", "d.pdf"),
		}, got)
	})

	t.Run("no match", func(t *testing.T) {
		_, err := c.Expand(ctx, []string{filepath.Join(dir, "nothing-*.pdf")})
		assert.Error(t, err)
	})
}

func TestIsHidden(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{".hidden", true},
		{"/home/user/.ssh/id_rsa", true},
		{".config/.cache/data", true},
		{"file.pdf", false},
		{"path/to/file.pdf", false},
		{".", false},
		{"..", false},
		{"path/../file", false},
		{"", false},
		{"file.hidden", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, isHidden(tt.path))
		})
	}
}

func TestHandleFsEvent(t *testing.T) {
	c, dir := setupCorpus(t, "a.pdf", ".hidden.pdf", "notes.docx")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.pdf"), 0o755))

	tests := []struct {
		name string
		file string
		op   fsnotify.Op
		want bool
	}{
		{"create", "a.pdf", fsnotify.Create, true},
		{"write", "a.pdf", fsnotify.Write, true},
		{"remove", "a.pdf", fsnotify.Remove, false},
		{"rename", "a.pdf", fsnotify.Rename, false},
		{"chmod", "a.pdf", fsnotify.Chmod, false},
		{"hidden", ".hidden.pdf", fsnotify.Create, false},
		{"unsupported", "notes.docx", fsnotify.Write, false},
		{"directory", "sub.pdf", fsnotify.Create, false},
		{"vanished", "gone.pdf", fsnotify.Create, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			got, ok := c.handleFsEvent(fsnotify.Event{Name: path, Op: tt.op})
			assert.Equal(t, tt.want, ok)
			if tt.want {
				assert.Equal(t, path, got)
			}
		})
	}
}

func TestCorpus_Watch(t *testing.T) {
	c, dir := setupCorpus(t)
	c.SetDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := c.Watch(ctx)
	require.NoError(t, err)

	path := filepath.Join(dir, "new.pdf")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0o600))

	select {
	case got := <-changes:
		assert.Equal(t, path, got)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change")
	}

	cancel()
	for range changes {
	}
}

func TestCorpus_Watch_MissingDir(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "missing"), nil)
	_, err := c.Watch(context.Background())
	assert.Error(t, err)
}
