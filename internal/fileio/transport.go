package fileio

import (
	"context"
	"io"

	"github.com/ellery/scribe/internal/encoding"
)

// Progress receives (bytes done, bytes total). Total is 0 when unknown.
type Progress func(done, total int64)

// Content is the text a loader fills and a saver writes
type Content interface {
	Text() string
	SetText(text string)
	File() *File
}

// Loader reads one file or stream into a Content. The done callback runs
// on the loop exactly once; on success the File has been updated.
type Loader interface {
	SetCandidateEncodings(encs []*encoding.Encoding)
	Load(ctx context.Context, progress Progress, done func(error))
	// Encoding is the encoding actually used, valid after done
	Encoding() *encoding.Encoding
	Location() string
}

// Saver writes a Content to a location
type Saver interface {
	Location() string
	SetEncoding(enc *encoding.Encoding)
	Encoding() *encoding.Encoding
	SetNewlineType(n NewlineType)
	SetCompressionType(c CompressionType)
	SetFlags(f Flags)
	Flags() Flags
	Save(ctx context.Context, progress Progress, done func(error))
}

// Transport creates loaders and savers
type Transport interface {
	NewLoader(c Content, location string) Loader
	NewStreamLoader(c Content, r io.Reader) Loader
	NewSaver(c Content, location string) Saver
}
