package janitor

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRecorder struct {
	mu    sync.Mutex
	calls int
	files int
}

func (r *fakeRecorder) RecordSweep(files int, _, _ int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.files += files
}

func (r *fakeRecorder) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func writeAged(t *testing.T, dir, name string, size int, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))
	mtime := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func TestSweepEvictsOldestFirst(t *testing.T) {
	dir := t.TempDir()
	oldest := writeAged(t, dir, "a_model.stl", 400, 3*time.Hour)
	older := writeAged(t, dir, "b_model.stl", 400, 2*time.Hour)
	newest := writeAged(t, dir, "c_model.stl", 400, time.Hour)
	hidden := writeAged(t, dir, ".c_model.stl.123.tmp", 5000, 4*time.Hour)

	rec := &fakeRecorder{}
	result, err := New(dir, 500, zap.NewNop(), rec).Sweep()
	require.NoError(t, err)

	assert.Equal(t, 2, result.Removed)
	assert.Equal(t, int64(800), result.FreedBytes)
	assert.Equal(t, int64(400), result.RemainingBytes)
	assert.NoFileExists(t, oldest)
	assert.NoFileExists(t, older)
	assert.FileExists(t, newest)
	assert.FileExists(t, hidden)
	assert.Equal(t, 1, rec.Calls())
}

func TestSweepUnderQuotaKeepsEverything(t *testing.T) {
	dir := t.TempDir()
	path := writeAged(t, dir, "a.stl", 100, time.Hour)

	result, err := New(dir, 1000, nil, nil).Sweep()
	require.NoError(t, err)
	assert.Zero(t, result.Removed)
	assert.Equal(t, int64(100), result.RemainingBytes)
	assert.FileExists(t, path)
}

func TestSweepDisabledQuota(t *testing.T) {
	dir := t.TempDir()
	writeAged(t, dir, "a.stl", 100, time.Hour)

	result, err := New(dir, 0, nil, nil).Sweep()
	require.NoError(t, err)
	assert.Zero(t, result.Removed)
}

func TestSweepMissingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope"), 10, nil, nil).Sweep()
	assert.NoError(t, err)
}

func TestRunStopsWithContext(t *testing.T) {
	dir := t.TempDir()
	writeAged(t, dir, "a.stl", 100, time.Hour)
	rec := &fakeRecorder{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		New(dir, 50, nil, rec).Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return rec.Calls() >= 2 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.NoFileExists(t, filepath.Join(dir, "a.stl"))
}
