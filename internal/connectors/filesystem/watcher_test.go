package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_HandleEvent(t *testing.T) {
	root := t.TempDir()
	w := NewWatcher(root, Options{}, 0)

	tests := []struct {
		name   string
		file   string
		op     fsnotify.Op
		want   string
		wantOK bool
	}{
		{"create", "main.go", fsnotify.Create, "main.go", true},
		{"write nested", "pkg/a.py", fsnotify.Write, "pkg/a.py", true},
		{"remove", "old.go", fsnotify.Remove, "old.go", true},
		{"rename", "moved.go", fsnotify.Rename, "moved.go", true},
		{"chmod ignored", "main.go", fsnotify.Chmod, "", false},
		{"hidden ignored", ".cache/x.go", fsnotify.Write, "", false},
		{"ignored dir", "node_modules/x.js", fsnotify.Write, "", false},
		{"not code", "image.png", fsnotify.Create, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rel, ok := w.handleEvent(fsnotify.Event{Name: filepath.Join(root, tt.file), Op: tt.op})
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, rel)
		})
	}
}

func TestWatcher_Watch(t *testing.T) {
	root := t.TempDir()
	w := NewWatcher(root, Options{}, 200*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := w.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package a\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.py"), []byte("x = 1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.png"), []byte("x"), 0o644))

	select {
	case batch := <-changes:
		assert.Equal(t, []string{"a.go", "b.py"}, batch)
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for changes")
	}

	cancel()
	select {
	case _, ok := <-changes:
		assert.False(t, ok, "channel closes after cancel")
	case <-time.After(3 * time.Second):
		t.Fatal("channel not closed")
	}
}
