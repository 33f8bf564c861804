package fileio

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	humanize "github.com/dustin/go-humanize"
	xenc "golang.org/x/text/encoding"

	"github.com/ellery/scribe/internal/encoding"
	"github.com/ellery/scribe/internal/loop"
)

const defaultChunkSize = 64 * 1024

// Disk is the local filesystem transport. Reads and writes run on their
// own goroutine; progress and completion are posted back to the loop.
type Disk struct {
	sched loop.Scheduler

	// MaxSize refuses loads of bigger files. 0 means no limit.
	MaxSize   int64
	ChunkSize int
}

// NewDisk creates a disk transport reporting to sched
func NewDisk(sched loop.Scheduler) *Disk {
	return &Disk{sched: sched, ChunkSize: defaultChunkSize}
}

func (d *Disk) chunk() int {
	if d.ChunkSize <= 0 {
		return defaultChunkSize
	}
	return d.ChunkSize
}

func (d *Disk) report(progress Progress) func(done, total int64) {
	return func(done, total int64) {
		if progress != nil {
			d.sched.Post(func() { progress(done, total) })
		}
	}
}

// NewLoader reads location into c
func (d *Disk) NewLoader(c Content, location string) Loader {
	return &diskLoader{disk: d, content: c, location: location}
}

// NewStreamLoader reads r into c. The document keeps no location.
func (d *Disk) NewStreamLoader(c Content, r io.Reader) Loader {
	return &diskLoader{disk: d, content: c, stream: r}
}

// NewSaver writes c to location using the file's current encoding,
// newline and compression unless told otherwise
func (d *Disk) NewSaver(c Content, location string) Saver {
	f := c.File()
	enc := f.Encoding()
	if enc == nil {
		enc = encoding.UTF8()
	}
	return &diskSaver{
		disk:        d,
		content:     c,
		location:    location,
		enc:         enc,
		newline:     f.NewlineType(),
		compression: f.CompressionType(),
	}
}

type loadResult struct {
	text     string
	enc      *encoding.Encoding
	newline  NewlineType
	comp     CompressionType
	modTime  time.Time
	readOnly bool
	fallback bool
}

type diskLoader struct {
	disk       *Disk
	content    Content
	location   string
	stream     io.Reader
	candidates []*encoding.Encoding
	used       *encoding.Encoding
}

func (l *diskLoader) SetCandidateEncodings(encs []*encoding.Encoding) {
	l.candidates = encoding.Dedup(encs)
}

func (l *diskLoader) Encoding() *encoding.Encoding { return l.used }

func (l *diskLoader) Location() string { return l.location }

func (l *diskLoader) Load(ctx context.Context, progress Progress, done func(error)) {
	candidates := l.candidates
	go func() {
		res, err := l.read(ctx, candidates, l.disk.report(progress))
		l.disk.sched.Post(func() { l.finish(res, err, done) })
	}()
}

func (l *diskLoader) finish(res *loadResult, err error, done func(error)) {
	if res != nil {
		l.used = res.enc
		l.content.SetText(res.text)
		l.content.File().apply(res.enc, res.newline, res.comp, res.modTime, res.readOnly)
		if res.fallback {
			err = newError(DomainLoader, CodeConversionFallback, l.location, nil)
		}
	}
	done(err)
}

func (l *diskLoader) open() (io.ReadCloser, int64, os.FileInfo, error) {
	if l.stream != nil {
		return io.NopCloser(l.stream), 0, nil, nil
	}
	if !IsLocalLocation(l.location) {
		return nil, 0, nil, newError(DomainIO, CodeNotSupported, l.location, nil)
	}
	path := LocalPath(l.location)
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, nil, ioError(l.location, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, nil, ioError(l.location, err)
	}
	switch {
	case info.IsDir():
		f.Close()
		return nil, 0, nil, newError(DomainIO, CodeIsDirectory, l.location, nil)
	case !info.Mode().IsRegular():
		f.Close()
		return nil, 0, nil, newError(DomainIO, CodeNotRegularFile, l.location, nil)
	case l.disk.MaxSize > 0 && info.Size() > l.disk.MaxSize:
		f.Close()
		return nil, 0, nil, newError(DomainIO, CodeTooLarge, l.location,
			fmt.Errorf("%s exceeds the %s limit", humanize.Bytes(uint64(info.Size())), humanize.Bytes(uint64(l.disk.MaxSize))))
	}
	return f, info.Size(), info, nil
}

func (l *diskLoader) read(ctx context.Context, candidates []*encoding.Encoding, progress func(done, total int64)) (*loadResult, error) {
	r, total, info, err := l.open()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var raw bytes.Buffer
	buf := make([]byte, l.disk.chunk())
	for {
		if ctx.Err() != nil {
			return nil, newError(DomainIO, CodeCancelled, l.location, ctx.Err())
		}
		n, rerr := r.Read(buf)
		raw.Write(buf[:n])
		if n > 0 {
			progress(int64(raw.Len()), total)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, ioError(l.location, rerr)
		}
	}

	data := raw.Bytes()
	res := &loadResult{}
	if info != nil {
		res.modTime = info.ModTime()
		res.readOnly = info.Mode().Perm()&0222 == 0
	}

	if len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, newError(DomainIO, CodeInvalidData, l.location, err)
		}
		plain, err := io.ReadAll(zr)
		if err != nil {
			return nil, newError(DomainIO, CodeInvalidData, l.location, err)
		}
		data = plain
		res.comp = CompressionGzip
	}

	if len(candidates) == 0 {
		return nil, newError(DomainLoader, CodeEncodingAutoDetectionFailed, l.location, nil)
	}

	var text string
	decoded := false
	for _, enc := range candidates {
		if t, ok := decode(enc, data); ok {
			text, res.enc, decoded = t, enc, true
			break
		}
	}
	if !decoded {
		text = strings.ToValidUTF8(string(data), string(utf8.RuneError))
		res.enc = encoding.UTF8()
		res.fallback = true
	}

	res.newline = detectNewline(text)
	res.text = normalizeNewlines(text)
	return res, nil
}

// decode converts data with enc, failing on any byte sequence the
// encoding cannot map
func decode(enc *encoding.Encoding, data []byte) (string, bool) {
	if enc.IsUTF8() {
		data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
		if !utf8.Valid(data) {
			return "", false
		}
		return string(data), true
	}
	out, err := enc.Decoder().Bytes(data)
	if err != nil || bytes.ContainsRune(out, utf8.RuneError) {
		return "", false
	}
	return string(out), true
}

type diskSaver struct {
	disk        *Disk
	content     Content
	location    string
	enc         *encoding.Encoding
	newline     NewlineType
	compression CompressionType
	flags       Flags
}

func (s *diskSaver) Location() string                     { return s.location }
func (s *diskSaver) SetEncoding(enc *encoding.Encoding)   { s.enc = enc }
func (s *diskSaver) Encoding() *encoding.Encoding         { return s.enc }
func (s *diskSaver) SetNewlineType(n NewlineType)         { s.newline = n }
func (s *diskSaver) SetCompressionType(c CompressionType) { s.compression = c }
func (s *diskSaver) SetFlags(f Flags)                     { s.flags = f }
func (s *diskSaver) Flags() Flags                         { return s.flags }

func (s *diskSaver) Save(ctx context.Context, progress Progress, done func(error)) {
	text := s.content.Text()
	file := s.content.File()
	var expected time.Time
	if SameLocation(file.Location(), s.location) {
		expected = file.ModTime()
	}
	job := saveJob{
		location: s.location,
		text:     text,
		enc:      s.enc,
		newline:  s.newline,
		comp:     s.compression,
		flags:    s.flags,
		expected: expected,
		chunk:    s.disk.chunk(),
	}
	go func() {
		mod, err := job.run(ctx, s.disk.report(progress))
		s.disk.sched.Post(func() {
			if err == nil {
				file.SetLocation(s.location)
				file.apply(s.enc, s.newline, s.compression, mod, false)
			}
			done(err)
		})
	}()
}

type saveJob struct {
	location string
	text     string
	enc      *encoding.Encoding
	newline  NewlineType
	comp     CompressionType
	flags    Flags
	expected time.Time
	chunk    int
}

func (j *saveJob) encode() ([]byte, error) {
	text := applyNewlines(j.text, j.newline)
	ignore := j.flags.Has(FlagIgnoreInvalidChars)

	if !ignore && strings.ContainsRune(text, utf8.RuneError) {
		return nil, newError(DomainSaver, CodeInvalidChars, j.location, nil)
	}
	if j.enc.IsUTF8() {
		return []byte(text), nil
	}
	out, err := j.enc.Encoder().Bytes([]byte(text))
	if err == nil {
		return out, nil
	}
	if !ignore {
		return nil, newError(DomainSaver, CodeInvalidChars, j.location, err)
	}
	out, err = xenc.ReplaceUnsupported(j.enc.Encoder()).Bytes([]byte(text))
	if err != nil {
		return nil, newError(DomainConvert, CodeFailed, j.location, err)
	}
	return out, nil
}

func (j *saveJob) run(ctx context.Context, progress func(done, total int64)) (time.Time, error) {
	if !IsLocalLocation(j.location) {
		return time.Time{}, newError(DomainIO, CodeNotSupported, j.location, nil)
	}
	path := LocalPath(j.location)

	info, statErr := os.Stat(path)
	exists := statErr == nil
	if exists && info.IsDir() {
		return time.Time{}, newError(DomainIO, CodeIsDirectory, j.location, nil)
	}
	if exists && !j.flags.Has(FlagIgnoreModificationTime) && !j.expected.IsZero() && !info.ModTime().Equal(j.expected) {
		return time.Time{}, newError(DomainSaver, CodeExternallyModified, j.location, nil)
	}

	data, err := j.encode()
	if err != nil {
		return time.Time{}, err
	}
	if j.comp == CompressionGzip {
		var gz bytes.Buffer
		zw := gzip.NewWriter(&gz)
		zw.Write(data)
		if err := zw.Close(); err != nil {
			return time.Time{}, newError(DomainIO, CodeFailed, j.location, err)
		}
		data = gz.Bytes()
	}

	perm := os.FileMode(0644)
	if exists {
		perm = info.Mode().Perm()
		if j.flags.Has(FlagCreateBackup) {
			if err := copyFile(path, path+"~", perm); err != nil {
				return time.Time{}, newError(DomainIO, CodeCantCreateBackup, j.location, err)
			}
		}
	}

	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".scribe-*")
	if err != nil {
		return time.Time{}, ioError(j.location, err)
	}
	tmpName := tmp.Name()
	fail := func(e error) (time.Time, error) {
		tmp.Close()
		os.Remove(tmpName)
		return time.Time{}, e
	}

	total := int64(len(data))
	var written int64
	for written < total {
		if ctx.Err() != nil {
			return fail(newError(DomainIO, CodeCancelled, j.location, ctx.Err()))
		}
		end := written + int64(j.chunk)
		if end > total {
			end = total
		}
		n, err := tmp.Write(data[written:end])
		written += int64(n)
		if err != nil {
			return fail(ioError(j.location, err))
		}
		progress(written, total)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fail(ioError(j.location, err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return time.Time{}, ioError(j.location, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return time.Time{}, ioError(j.location, err)
	}

	after, err := os.Stat(path)
	if err != nil {
		return time.Time{}, ioError(j.location, err)
	}
	return after.ModTime(), nil
}

func copyFile(src, dst string, perm os.FileMode) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, perm)
}

// ioError maps an os error onto an IO domain Error
func ioError(location string, err error) *Error {
	code := CodeFailed
	switch {
	case errors.Is(err, os.ErrNotExist):
		code = CodeNotFound
	case errors.Is(err, os.ErrPermission):
		code = CodePermissionDenied
	case errors.Is(err, os.ErrExist):
		code = CodeExists
	case errors.Is(err, syscall.ENOSPC):
		code = CodeNoSpace
	case errors.Is(err, syscall.EISDIR):
		code = CodeIsDirectory
	}
	return newError(DomainIO, code, location, err)
}
