package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func onlySTL(path string) bool {
	return strings.HasSuffix(path, ".stl")
}

type collector struct {
	mu    sync.Mutex
	paths []string
}

func (c *collector) handle(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths = append(c.paths, filepath.Base(path))
}

func (c *collector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.paths...)
}

func startInbox(t *testing.T, dir string) (*collector, func() error) {
	t.Helper()
	in, err := NewInbox(dir, onlySTL, 50*time.Millisecond, zaptest.NewLogger(t))
	require.NoError(t, err)

	c := &collector{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- in.Run(ctx, c.handle) }()

	var once sync.Once
	var runErr error
	stop := func() error {
		once.Do(func() {
			cancel()
			runErr = <-done
		})
		return runErr
	}
	t.Cleanup(func() { _ = stop() })
	return c, stop
}

func TestInboxDeliversSettledFiles(t *testing.T) {
	dir := t.TempDir()
	c, _ := startInbox(t, dir)

	path := filepath.Join(dir, "model.stl")
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", i+1)), 0644))
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".partial.stl"), []byte("x"), 0644))

	assert.Eventually(t, func() bool {
		return len(c.snapshot()) == 1
	}, 2*time.Second, 20*time.Millisecond)

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, []string{"model.stl"}, c.snapshot())
}

func TestInboxStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	c, stop := startInbox(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "late.stl"), []byte("x"), 0644))
	assert.NoError(t, stop())

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, c.snapshot())
}

func TestInboxExisting(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.stl", "a.stl", "c.txt", ".hidden.stl"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.stl"), 0755))

	in, err := NewInbox(dir, onlySTL, time.Millisecond, nil)
	require.NoError(t, err)
	defer in.watcher.Close()

	paths, err := in.Existing()
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, "a.stl", filepath.Base(paths[0]))
	assert.Equal(t, "b.stl", filepath.Base(paths[1]))
}

func TestNewInboxMissingDir(t *testing.T) {
	_, err := NewInbox(filepath.Join(t.TempDir(), "nope"), nil, time.Millisecond, nil)
	assert.Error(t, err)
}
