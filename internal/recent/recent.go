package recent

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ellery/scribe/internal/fileio"
)

const (
	// MaxRecentFiles is the maximum number of recent files to store
	MaxRecentFiles = 50

	// RecentFileName is the name of the recent files file
	RecentFileName = "recent.json"
)

// File is a recently opened or saved document
type File struct {
	Location   string    `json:"location"`
	Name       string    `json:"name"`
	MimeType   string    `json:"mime_type,omitempty"`
	LastOpened time.Time `json:"last_opened"`
}

// Store manages persistent storage of recent files
type Store struct {
	Files []File `json:"files"`

	path string
	now  func() time.Time
}

// NewStore creates a store backed by dir/recent.json
func NewStore(dir string) *Store {
	return &Store{
		Files: make([]File, 0),
		path:  filepath.Join(dir, RecentFileName),
		now:   time.Now,
	}
}

// Load reads recent files from disk
func (rs *Store) Load() error {
	data, err := os.ReadFile(rs.path)
	if err != nil {
		if os.IsNotExist(err) {
			// No recent file yet, that's fine
			return nil
		}
		log.Printf("SCRIBE Recent: Failed to read recent.json: %v", err)
		return err
	}

	if err := json.Unmarshal(data, rs); err != nil {
		log.Printf("SCRIBE Recent: Failed to parse recent.json: %v", err)
		return err
	}

	rs.cleanup()
	return nil
}

// Save writes recent files to disk
func (rs *Store) Save() error {
	if err := os.MkdirAll(filepath.Dir(rs.path), 0755); err != nil {
		log.Printf("SCRIBE Recent: Failed to create config dir: %v", err)
		return err
	}

	data, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		log.Printf("SCRIBE Recent: Failed to marshal recent.json: %v", err)
		return err
	}

	if err := os.WriteFile(rs.path, data, 0644); err != nil {
		log.Printf("SCRIBE Recent: Failed to write recent.json: %v", err)
		return err
	}

	return nil
}

func normalize(location string) string {
	if !fileio.IsLocalLocation(location) {
		return location
	}
	abs, err := filepath.Abs(fileio.LocalPath(location))
	if err != nil {
		return location
	}
	return abs
}

// Add moves location to the front of the list
func (rs *Store) Add(location, mimeType string) {
	if location == "" {
		return
	}
	loc := normalize(location)

	for i, f := range rs.Files {
		if f.Location == loc {
			rs.Files[i].LastOpened = rs.now()
			if mimeType != "" {
				rs.Files[i].MimeType = mimeType
			}
			rs.sort()
			rs.Save()
			return
		}
	}

	rs.Files = append([]File{{
		Location:   loc,
		Name:       filepath.Base(fileio.LocalPath(loc)),
		MimeType:   mimeType,
		LastOpened: rs.now(),
	}}, rs.Files...)

	if len(rs.Files) > MaxRecentFiles {
		rs.Files = rs.Files[:MaxRecentFiles]
	}

	rs.Save()
}

// Remove drops location from the list
func (rs *Store) Remove(location string) {
	loc := normalize(location)
	for i, f := range rs.Files {
		if f.Location == loc {
			rs.Files = append(rs.Files[:i], rs.Files[i+1:]...)
			rs.Save()
			return
		}
	}
}

// Contains reports whether location is in the list
func (rs *Store) Contains(location string) bool {
	loc := normalize(location)
	for _, f := range rs.Files {
		if f.Location == loc {
			return true
		}
	}
	return false
}

// sort orders files by last opened time (most recent first)
func (rs *Store) sort() {
	sort.SliceStable(rs.Files, func(i, j int) bool {
		return rs.Files[i].LastOpened.After(rs.Files[j].LastOpened)
	})
}

// cleanup removes local entries that no longer exist on disk
func (rs *Store) cleanup() {
	valid := make([]File, 0, len(rs.Files))

	for _, f := range rs.Files {
		if !fileio.IsLocalLocation(f.Location) {
			valid = append(valid, f)
			continue
		}
		if _, err := os.Stat(fileio.LocalPath(f.Location)); err == nil {
			valid = append(valid, f)
		}
	}

	if len(valid) != len(rs.Files) {
		rs.Files = valid
		rs.Save()
	}
}
