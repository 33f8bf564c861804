package fileio

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ellery/scribe/internal/encoding"
	"github.com/ellery/scribe/internal/loop"
)

type memContent struct {
	text string
	file *File
}

func newMemContent(text string) *memContent {
	return &memContent{text: text, file: NewFile()}
}

func (m *memContent) Text() string        { return m.text }
func (m *memContent) SetText(text string) { m.text = text }
func (m *memContent) File() *File         { return m.file }

// wait flushes the manual loop until the transport reports completion
func wait(t *testing.T, m *loop.Manual, finished *bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !*finished {
		m.Flush()
		if *finished {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("transport never completed")
		}
		time.Sleep(time.Millisecond)
	}
}

func load(t *testing.T, d *Disk, m *loop.Manual, c *memContent, path string, charsets ...string) (Loader, error) {
	t.Helper()
	c.file.SetLocation(path)
	l := d.NewLoader(c, path)
	l.SetCandidateEncodings(encoding.FromCharsets(charsets))
	var err error
	finished := false
	l.Load(context.Background(), nil, func(e error) {
		err = e
		finished = true
	})
	wait(t, m, &finished)
	return l, err
}

func save(t *testing.T, s Saver, m *loop.Manual) error {
	t.Helper()
	var err error
	finished := false
	s.Save(context.Background(), nil, func(e error) {
		err = e
		finished = true
	})
	wait(t, m, &finished)
	return err
}

// =============================================================================
// Errors
// =============================================================================

func TestError_IsMatchesDomainAndCode(t *testing.T) {
	err := newError(DomainSaver, CodeExternallyModified, "/tmp/x", nil)
	wrapped := errors.Join(errors.New("context"), err)

	assert.True(t, errors.Is(wrapped, ErrExternallyModified))
	assert.False(t, errors.Is(wrapped, ErrInvalidChars))
	assert.True(t, InDomain(wrapped, DomainSaver))
	assert.Contains(t, err.Error(), "externally modified")
}

func TestFlags_String(t *testing.T) {
	assert.Equal(t, "none", FlagsNone.String())
	assert.Equal(t, "create-backup|ignore-modification-time", (FlagCreateBackup | FlagIgnoreModificationTime).String())
}

// =============================================================================
// Loading
// =============================================================================

func TestLoad_UTF8WithCRLF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\r\ntwo\r\n"), 0644))

	m := loop.NewManual()
	c := newMemContent("")
	l, err := load(t, NewDisk(m), m, c, path, "UTF-8")
	require.NoError(t, err)

	assert.Equal(t, "one\ntwo\n", c.text)
	assert.Equal(t, NewlineCRLF, c.file.NewlineType())
	assert.True(t, l.Encoding().IsUTF8())
	assert.False(t, c.file.ModTime().IsZero())
}

func TestLoad_FallsThroughCandidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latin.txt")
	require.NoError(t, os.WriteFile(path, []byte{'c', 'a', 'f', 0xe9}, 0644))

	m := loop.NewManual()
	c := newMemContent("")
	l, err := load(t, NewDisk(m), m, c, path, "UTF-8", "ISO-8859-1")
	require.NoError(t, err)
	assert.Equal(t, "café", c.text)
	assert.Equal(t, "ISO-8859-1", l.Encoding().Charset())
	assert.Equal(t, "ISO-8859-1", c.file.Encoding().Charset())
}

func TestLoad_ConversionFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.txt")
	require.NoError(t, os.WriteFile(path, []byte{'o', 'k', 0xff, 0xfe, 'x'}, 0644))

	m := loop.NewManual()
	c := newMemContent("")
	_, err := load(t, NewDisk(m), m, c, path, "UTF-8")
	assert.True(t, errors.Is(err, ErrConversionFallback))
	assert.True(t, strings.HasPrefix(c.text, "ok"))
}

func TestLoad_NoCandidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	m := loop.NewManual()
	_, err := load(t, NewDisk(m), m, newMemContent(""), path)
	assert.True(t, errors.Is(err, ErrEncodingAutoDetectionFailed))
}

func TestLoad_NotFound(t *testing.T) {
	m := loop.NewManual()
	_, err := load(t, NewDisk(m), m, newMemContent(""), filepath.Join(t.TempDir(), "missing"), "UTF-8")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLoad_Cancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0644))

	m := loop.NewManual()
	c := newMemContent("keep")
	l := NewDisk(m).NewLoader(c, path)
	l.SetCandidateEncodings([]*encoding.Encoding{encoding.UTF8()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var err error
	finished := false
	l.Load(ctx, nil, func(e error) { err, finished = e, true })
	wait(t, m, &finished)

	assert.True(t, errors.Is(err, ErrCancelled))
	assert.Equal(t, "keep", c.text)
}

func TestLoad_TooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.txt")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("x"), 2048), 0644))

	m := loop.NewManual()
	d := NewDisk(m)
	d.MaxSize = 1024
	_, err := load(t, d, m, newMemContent(""), path, "UTF-8")
	fe, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, CodeTooLarge, fe.Code)
	assert.Contains(t, err.Error(), "kB")
}

func TestLoad_StreamReportsProgress(t *testing.T) {
	m := loop.NewManual()
	d := NewDisk(m)
	d.ChunkSize = 4
	c := newMemContent("")
	l := d.NewStreamLoader(c, strings.NewReader("hello world"))
	l.SetCandidateEncodings([]*encoding.Encoding{encoding.UTF8()})

	var seen []int64
	finished := false
	l.Load(context.Background(), func(done, total int64) {
		seen = append(seen, done)
		assert.Zero(t, total)
	}, func(err error) {
		assert.NoError(t, err)
		finished = true
	})
	wait(t, m, &finished)

	assert.Equal(t, "hello world", c.text)
	assert.Equal(t, "", c.file.Location())
	require.NotEmpty(t, seen)
	assert.Equal(t, int64(11), seen[len(seen)-1])
}

func TestLoad_Gzip(t *testing.T) {
	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	zw.Write([]byte("compressed\n"))
	require.NoError(t, zw.Close())
	path := filepath.Join(t.TempDir(), "a.txt.gz")
	require.NoError(t, os.WriteFile(path, gz.Bytes(), 0644))

	m := loop.NewManual()
	c := newMemContent("")
	_, err := load(t, NewDisk(m), m, c, path, "UTF-8")
	require.NoError(t, err)
	assert.Equal(t, "compressed\n", c.text)
	assert.Equal(t, CompressionGzip, c.file.CompressionType())
}

// =============================================================================
// Saving
// =============================================================================

func TestSave_NewFileAndBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	m := loop.NewManual()
	d := NewDisk(m)

	c := newMemContent("first\n")
	require.NoError(t, save(t, d.NewSaver(c, path), m))
	assert.Equal(t, path, c.file.Location())

	c.text = "second\n"
	s := d.NewSaver(c, path)
	s.SetFlags(FlagCreateBackup)
	require.NoError(t, save(t, s, m))

	got, _ := os.ReadFile(path)
	backup, _ := os.ReadFile(path + "~")
	assert.Equal(t, "second\n", string(got))
	assert.Equal(t, "first\n", string(backup))
}

func TestSave_ExternallyModified(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("disk\n"), 0644))

	m := loop.NewManual()
	d := NewDisk(m)
	c := newMemContent("")
	_, err := load(t, d, m, c, path, "UTF-8")
	require.NoError(t, err)

	later := c.file.ModTime().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	modified, deleted := c.file.CheckFileOnDisk()
	assert.True(t, modified)
	assert.False(t, deleted)

	c.text = "mine\n"
	err = save(t, d.NewSaver(c, path), m)
	assert.True(t, errors.Is(err, ErrExternallyModified))

	s := d.NewSaver(c, path)
	s.SetFlags(FlagIgnoreModificationTime)
	require.NoError(t, save(t, s, m))
	modified, _ = c.file.CheckFileOnDisk()
	assert.False(t, modified)
}

func TestSave_InvalidChars(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	m := loop.NewManual()
	d := NewDisk(m)
	latin, _ := encoding.Get("ISO-8859-1")

	c := newMemContent("price: €5\n")
	s := d.NewSaver(c, path)
	s.SetEncoding(latin)
	err := save(t, s, m)
	assert.True(t, errors.Is(err, ErrInvalidChars))

	s.SetFlags(FlagIgnoreInvalidChars)
	require.NoError(t, save(t, s, m))
	assert.Equal(t, "ISO-8859-1", c.file.Encoding().Charset())
}

func TestSave_KeepsNewlineType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	m := loop.NewManual()
	c := newMemContent("a\nb\n")
	s := NewDisk(m).NewSaver(c, path)
	s.SetNewlineType(NewlineCRLF)
	require.NoError(t, save(t, s, m))

	got, _ := os.ReadFile(path)
	assert.Equal(t, "a\r\nb\r\n", string(got))
}

func TestSameLocation(t *testing.T) {
	assert.True(t, SameLocation("/tmp/a/../b.txt", "file:///tmp/b.txt"))
	assert.False(t, SameLocation("/tmp/a.txt", ""))
	assert.True(t, SameLocation("sftp://host/x", "sftp://host/x"))
	assert.False(t, IsLocalLocation("sftp://host/x"))
}

func TestDisplayLocation(t *testing.T) {
	home, err := homedir.Dir()
	require.NoError(t, err)

	assert.Equal(t, "~", DisplayLocation(home))
	assert.Equal(t, "~/notes/a.txt", DisplayLocation("file://"+filepath.Join(home, "notes", "a.txt")))
	assert.Equal(t, "sftp://host/x", DisplayLocation("sftp://host/x"))
}
