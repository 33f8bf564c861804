package fileio

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"

	"github.com/ellery/scribe/internal/encoding"
)

// File describes where a document lives and how it was last read or
// written. Loaders and savers update it when they finish.
type File struct {
	location    string
	encoding    *encoding.Encoding
	newline     NewlineType
	compression CompressionType
	modTime     time.Time
	readOnly    bool
}

// NewFile returns a File with no location
func NewFile() *File {
	return &File{}
}

// Location returns the path or URI, empty for untitled documents
func (f *File) Location() string { return f.location }

// SetLocation changes the location. The remembered state of the old file
// no longer applies.
func (f *File) SetLocation(location string) {
	if location == f.location {
		return
	}
	f.location = location
	f.modTime = time.Time{}
	f.readOnly = false
}

// Encoding is nil until a load or save negotiated one
func (f *File) Encoding() *encoding.Encoding { return f.encoding }

func (f *File) NewlineType() NewlineType { return f.newline }

func (f *File) CompressionType() CompressionType { return f.compression }

// ModTime is the modification time seen by the last load or save
func (f *File) ModTime() time.Time { return f.modTime }

func (f *File) IsReadOnly() bool { return f.readOnly }

// IsLocal reports whether the location is on the local filesystem
func (f *File) IsLocal() bool {
	return f.location != "" && IsLocalLocation(f.location)
}

// Path returns the filesystem path of a local location
func (f *File) Path() string {
	return LocalPath(f.location)
}

// CheckFileOnDisk stats the file and reports whether it changed since the
// last load or save, and whether it is gone
func (f *File) CheckFileOnDisk() (modified, deleted bool) {
	if !f.IsLocal() || f.modTime.IsZero() {
		return false, false
	}
	info, err := os.Stat(f.Path())
	if err != nil {
		return false, os.IsNotExist(err)
	}
	return !info.ModTime().Equal(f.modTime), false
}

func (f *File) apply(enc *encoding.Encoding, nl NewlineType, comp CompressionType, mod time.Time, ro bool) {
	f.encoding = enc
	f.newline = nl
	f.compression = comp
	f.modTime = mod
	f.readOnly = ro
}

// IsLocalLocation reports whether loc is a plain path or a file:// URI
func IsLocalLocation(loc string) bool {
	i := strings.Index(loc, "://")
	if i < 0 {
		return true
	}
	return strings.EqualFold(loc[:i], "file")
}

// LocalPath strips a file:// scheme
func LocalPath(loc string) string {
	if len(loc) >= 7 && strings.EqualFold(loc[:7], "file://") {
		return loc[7:]
	}
	return loc
}

// SameLocation compares two locations after cleaning local paths
func SameLocation(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if IsLocalLocation(a) && IsLocalLocation(b) {
		pa, errA := filepath.Abs(LocalPath(a))
		pb, errB := filepath.Abs(LocalPath(b))
		if errA == nil && errB == nil {
			return pa == pb
		}
		return filepath.Clean(LocalPath(a)) == filepath.Clean(LocalPath(b))
	}
	return a == b
}

// DisplayLocation formats a location for messages, with the home
// directory shown as ~
func DisplayLocation(loc string) string {
	if !IsLocalLocation(loc) {
		return loc
	}
	p := LocalPath(loc)
	home, err := homedir.Dir()
	if err != nil || home == "" {
		return p
	}
	if p == home {
		return "~"
	}
	if strings.HasPrefix(p, home+string(filepath.Separator)) {
		return "~" + p[len(home):]
	}
	return p
}
