// Package document holds the text of one open file together with its
// on-disk description and per-file metadata.
package document

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/ellery/scribe/internal/fileio"
	"github.com/ellery/scribe/internal/signal"
)

// MetaStore persists metadata of documents that have a location
type MetaStore interface {
	Get(location, key string) (string, error)
	Set(location, key, value string) error
}

var (
	untitledMu   sync.Mutex
	untitledUsed = map[int]bool{}
)

func takeUntitledNumber() int {
	untitledMu.Lock()
	defer untitledMu.Unlock()
	for n := 1; ; n++ {
		if !untitledUsed[n] {
			untitledUsed[n] = true
			return n
		}
	}
}

func releaseUntitledNumber(n int) {
	untitledMu.Lock()
	defer untitledMu.Unlock()
	delete(untitledUsed, n)
}

// Buffer is an in-memory document
type Buffer struct {
	id       string
	text     string
	diskText string
	file     *fileio.File
	modified bool
	cursor   int
	create   bool
	untitled int
	mimeType string

	meta    MetaStore
	memMeta map[string]string

	// Load and Save fire when an operation starts; Loaded and Saved
	// when it finished, carrying its error
	Load     signal.Signal[struct{}]
	Loaded   signal.Signal[error]
	Save     signal.Signal[struct{}]
	Saved    signal.Signal[error]
	Modified signal.Signal[bool]
	Changed  signal.Signal[struct{}]
}

// New creates an empty untitled buffer. meta may be nil.
func New(meta MetaStore) *Buffer {
	return &Buffer{
		id:       uuid.New().String(),
		file:     fileio.NewFile(),
		untitled: takeUntitledNumber(),
		meta:     meta,
		memMeta:  make(map[string]string),
		mimeType: "text/plain",
	}
}

// ID is unique per buffer for the life of the process
func (b *Buffer) ID() string { return b.id }

// Close releases the untitled number
func (b *Buffer) Close() {
	if b.untitled != 0 {
		releaseUntitledNumber(b.untitled)
		b.untitled = 0
	}
}

func (b *Buffer) File() *fileio.File { return b.file }

func (b *Buffer) Location() string { return b.file.Location() }

// Text returns the whole content
func (b *Buffer) Text() string { return b.text }

// SetText replaces the content with text read from disk. The buffer is
// unmodified afterwards and the cursor goes back to the start.
func (b *Buffer) SetText(text string) {
	b.text = text
	b.diskText = text
	b.cursor = 0
	b.mimeType = sniffMime(b.file.Location(), text)
	b.setModified(false)
	b.Changed.Emit(struct{}{})
}

// Insert adds s at the rune offset and moves the cursor after it
func (b *Buffer) Insert(offset int, s string) {
	i := b.byteIndex(offset)
	b.text = b.text[:i] + s + b.text[i:]
	b.cursor = offset + utf8.RuneCountInString(s)
	b.setModified(true)
	b.Changed.Emit(struct{}{})
}

// Delete removes n runes starting at offset
func (b *Buffer) Delete(offset, n int) {
	if n <= 0 {
		return
	}
	i := b.byteIndex(offset)
	j := b.byteIndex(offset + n)
	b.text = b.text[:i] + b.text[j:]
	b.cursor = offset
	b.setModified(true)
	b.Changed.Emit(struct{}{})
}

func (b *Buffer) byteIndex(offset int) int {
	if offset <= 0 {
		return 0
	}
	i := 0
	for n := 0; n < offset && i < len(b.text); n++ {
		_, size := utf8.DecodeRuneInString(b.text[i:])
		i += size
	}
	return i
}

// CharCount is the length in runes
func (b *Buffer) CharCount() int { return utf8.RuneCountInString(b.text) }

// LineCount counts lines, an empty buffer has one
func (b *Buffer) LineCount() int { return strings.Count(b.text, "\n") + 1 }

func (b *Buffer) IsModified() bool { return b.modified }

// ModifiedChanged is the Modified signal, for consumers holding the
// buffer behind an interface
func (b *Buffer) ModifiedChanged() *signal.Signal[bool] { return &b.Modified }

func (b *Buffer) LoadedSignal() *signal.Signal[error] { return &b.Loaded }

func (b *Buffer) SavedSignal() *signal.Signal[error] { return &b.Saved }

// SetModified lets the controller mark untitled stream loads as modified
func (b *Buffer) SetModified(m bool) { b.setModified(m) }

func (b *Buffer) setModified(m bool) {
	if b.modified == m {
		return
	}
	b.modified = m
	b.Modified.Emit(m)
}

// IsUntitled reports whether the buffer was never saved
func (b *Buffer) IsUntitled() bool { return b.file.Location() == "" }

func (b *Buffer) IsLocal() bool { return b.file.IsLocal() }

func (b *Buffer) IsReadOnly() bool { return b.file.IsReadOnly() }

// Create reports whether a missing file should become a new document
func (b *Buffer) Create() bool { return b.create }

func (b *Buffer) SetCreate(create bool) { b.create = create }

// CheckExternallyModified stats the file and reports a change on disk
func (b *Buffer) CheckExternallyModified() bool {
	modified, _ := b.file.CheckFileOnDisk()
	return modified
}

// IsDeleted reports a file that disappeared from disk
func (b *Buffer) IsDeleted() bool {
	_, deleted := b.file.CheckFileOnDisk()
	return deleted
}

// NeedsSaving reports unsaved edits, or a file that changed or vanished
// on disk since it was loaded
func (b *Buffer) NeedsSaving() bool {
	if b.modified {
		return true
	}
	if b.IsUntitled() {
		return false
	}
	modified, deleted := b.file.CheckFileOnDisk()
	return modified || deleted
}

// ShortName is the base name, or "Untitled Document N"
func (b *Buffer) ShortName() string {
	if loc := b.file.Location(); loc != "" {
		return filepath.Base(fileio.LocalPath(loc))
	}
	return fmt.Sprintf("Untitled Document %d", b.untitled)
}

// MimeType is sniffed from the location and content on load
func (b *Buffer) MimeType() string { return b.mimeType }

// ContentType describes the MIME type for humans
func (b *Buffer) ContentType() string { return describeMime(b.mimeType) }

// Cursor is the insertion offset in runes
func (b *Buffer) Cursor() int { return b.cursor }

// SetCursor clamps offset into the buffer
func (b *Buffer) SetCursor(offset int) {
	if offset < 0 {
		offset = 0
	}
	if n := b.CharCount(); offset > n {
		offset = n
	}
	b.cursor = offset
}

// GotoLine moves to a 1-based line and column. Out of range lines land on
// the last line; the return value says whether the target existed.
func (b *Buffer) GotoLine(line, column int) bool {
	if line < 1 {
		line = 1
	}
	if column < 1 {
		column = 1
	}
	lines := strings.Split(b.text, "\n")
	ok := line <= len(lines)
	if !ok {
		line = len(lines)
	}
	offset := 0
	for i := 0; i < line-1; i++ {
		offset += utf8.RuneCountInString(lines[i]) + 1
	}
	width := utf8.RuneCountInString(lines[line-1])
	if column-1 > width {
		column = width + 1
		ok = false
	}
	b.cursor = offset + column - 1
	return ok
}

// CursorLineColumn returns the 1-based position of the cursor
func (b *Buffer) CursorLineColumn() (int, int) {
	line, col := 1, 1
	n := 0
	for _, r := range b.text {
		if n == b.cursor {
			break
		}
		if r == '\n' {
			line++
			col = 1
		} else {
			col++
		}
		n++
	}
	return line, col
}

// Metadata returns a stored value. Untitled buffers keep metadata in memory.
func (b *Buffer) Metadata(key string) string {
	loc := b.file.Location()
	if loc == "" || b.meta == nil {
		return b.memMeta[key]
	}
	v, err := b.meta.Get(loc, key)
	if err != nil {
		log.Printf("SCRIBE Document: metadata %s for %s: %v", key, loc, err)
		return ""
	}
	return v
}

// SetMetadata stores a value, an empty value removes it
func (b *Buffer) SetMetadata(key, value string) {
	loc := b.file.Location()
	if loc == "" || b.meta == nil {
		if value == "" {
			delete(b.memMeta, key)
		} else {
			b.memMeta[key] = value
		}
		return
	}
	if err := b.meta.Set(loc, key, value); err != nil {
		log.Printf("SCRIBE Document: set metadata %s for %s: %v", key, loc, err)
	}
}

// NotifyLoad and the other Notify methods are called by the controller
// around transport operations
func (b *Buffer) NotifyLoad() { b.Load.Emit(struct{}{}) }

func (b *Buffer) NotifyLoaded(err error) {
	b.Loaded.Emit(err)
}

func (b *Buffer) NotifySave() { b.Save.Emit(struct{}{}) }

// NotifySaved marks the buffer clean when the save succeeded
func (b *Buffer) NotifySaved(err error) {
	if err == nil {
		b.diskText = b.text
		b.mimeType = sniffMime(b.file.Location(), b.text)
		b.setModified(false)
	}
	b.Saved.Emit(err)
}

// ChangeSummary counts lines added and removed since the last load or save
func (b *Buffer) ChangeSummary() (added, removed int) {
	if b.text == b.diskText {
		return 0, 0
	}
	dmp := diffmatchpatch.New()
	a, c, lines := dmp.DiffLinesToChars(b.diskText, b.text)
	diffs := dmp.DiffMain(a, c, false)
	for _, d := range dmp.DiffCharsToLines(diffs, lines) {
		n := strings.Count(d.Text, "\n")
		if !strings.HasSuffix(d.Text, "\n") {
			n++
		}
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += n
		case diffmatchpatch.DiffDelete:
			removed += n
		}
	}
	return added, removed
}
