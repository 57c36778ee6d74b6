package filecache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestList_ExcludesDotfilesAndDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "a")
	writeFile(t, dir, ".hidden.yaml", "b")
	writeFile(t, dir, ".git/config", "c")
	writeFile(t, dir, "sub/b.yaml", "d")

	c := New(time.Minute)
	files, err := c.List(dir, true)
	require.NoError(t, err)

	var bases []string
	for _, f := range files {
		bases = append(bases, filepath.Base(f))
	}
	assert.ElementsMatch(t, []string{"a.yaml", "b.yaml"}, bases)
}

func TestList_UnreadableDirIsIOError(t *testing.T) {
	c := New(time.Minute)
	_, err := c.List(filepath.Join(t.TempDir(), "nope"), true)
	require.Error(t, err)
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
}

func TestList_CachesUntilTTLExpires(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "a")

	c := New(50 * time.Millisecond)
	first, err := c.List(dir, true)
	require.NoError(t, err)
	require.Len(t, first, 1)

	writeFile(t, dir, "b.yaml", "b")

	cached, err := c.List(dir, true)
	require.NoError(t, err)
	assert.Len(t, cached, 1, "second file should not be visible until TTL expires")

	time.Sleep(80 * time.Millisecond)
	fresh, err := c.List(dir, true)
	require.NoError(t, err)
	assert.Len(t, fresh, 2)
}

func TestList_BypassCacheWhenRequested(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "a")

	c := New(time.Minute)
	_, err := c.List(dir, true)
	require.NoError(t, err)

	writeFile(t, dir, "b.yaml", "b")
	fresh, err := c.List(dir, false)
	require.NoError(t, err)
	assert.Len(t, fresh, 2)
}

func TestInvalidate_SingleAndAll(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "a")

	c := New(time.Minute)
	_, err := c.List(dir, true)
	require.NoError(t, err)

	writeFile(t, dir, "b.yaml", "b")
	c.Invalidate(dir)
	fresh, err := c.List(dir, true)
	require.NoError(t, err)
	assert.Len(t, fresh, 2)

	writeFile(t, dir, "c.yaml", "c")
	c.Invalidate("")
	fresh2, err := c.List(dir, true)
	require.NoError(t, err)
	assert.Len(t, fresh2, 3)
}

func TestSweep_RemovesExpiredOnly(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	writeFile(t, dirA, "a.yaml", "a")
	writeFile(t, dirB, "b.yaml", "b")

	c := New(30 * time.Millisecond)
	_, err := c.List(dirA, true)
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	_, err = c.List(dirB, true)
	require.NoError(t, err)

	n := c.Sweep()
	assert.Equal(t, 1, n)
}

func TestSweeper_StartStopIsLeakFree(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "a")

	c := New(10 * time.Millisecond)
	_, err := c.List(dir, true)
	require.NoError(t, err)

	swept := make(chan int, 8)
	c.StartSweeper(5*time.Millisecond, func(n int) { swept <- n })
	time.Sleep(40 * time.Millisecond)
	c.StopSweeper()
	c.StopSweeper() // double-stop must be safe
}
