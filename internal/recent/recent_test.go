package recent

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddMovesToFront(t *testing.T) {
	dir := t.TempDir()
	rs := NewStore(dir)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rs.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	rs.Add(a, "text/plain")
	rs.Add(b, "")
	rs.Add(a, "")

	require.Len(t, rs.Files, 2)
	assert.Equal(t, a, rs.Files[0].Location)
	assert.Equal(t, "text/plain", rs.Files[0].MimeType)
	assert.Equal(t, "a.txt", rs.Files[0].Name)
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	rs := NewStore(dir)
	a := filepath.Join(dir, "a.txt")

	rs.Add(a, "")
	assert.True(t, rs.Contains(a))
	rs.Remove("file://" + a)
	assert.False(t, rs.Contains(a))
}

func TestLoadDropsMissingLocalFiles(t *testing.T) {
	dir := t.TempDir()
	kept := filepath.Join(dir, "kept.txt")
	require.NoError(t, os.WriteFile(kept, []byte("x"), 0644))

	rs := NewStore(dir)
	rs.Add(kept, "")
	rs.Add(filepath.Join(dir, "gone.txt"), "")
	rs.Add("sftp://host/remote.txt", "")

	again := NewStore(dir)
	require.NoError(t, again.Load())
	assert.True(t, again.Contains(kept))
	assert.True(t, again.Contains("sftp://host/remote.txt"))
	assert.False(t, again.Contains(filepath.Join(dir, "gone.txt")))
}

func TestAddTrimsToMax(t *testing.T) {
	dir := t.TempDir()
	rs := NewStore(dir)
	for i := 0; i < MaxRecentFiles+5; i++ {
		rs.Add(filepath.Join(dir, string(rune('a'+i%26))+string(rune('a'+i/26))), "")
	}
	assert.Len(t, rs.Files, MaxRecentFiles)
}
