package main

import (
	"log"
	"os"
	"sync"
)

const maxLogSize = 10 * 1024 * 1024 // 10MB

// NullWriter simply sends writes into the void
type NullWriter struct{}

// Write is empty
func (NullWriter) Write(data []byte) (n int, err error) {
	return 0, nil
}

// RotatingWriter appends to a log file and moves it to path.1 once it
// grows past maxSize
type RotatingWriter struct {
	path    string
	file    *os.File
	size    int64
	maxSize int64
	mu      sync.Mutex
}

// NewRotatingWriter opens path for appending
func NewRotatingWriter(path string, maxSize int64) (*RotatingWriter, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}
	return &RotatingWriter{path: path, file: f, size: size, maxSize: maxSize}, nil
}

func (w *RotatingWriter) rotate() error {
	w.file.Close()
	backup := w.path + ".1"
	os.Remove(backup)
	os.Rename(w.path, backup)

	f, err := os.OpenFile(w.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	w.file = f
	w.size = 0
	return nil
}

// Write implements io.Writer
func (w *RotatingWriter) Write(data []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.size+int64(len(data)) > w.maxSize {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}
	n, err = w.file.Write(data)
	w.size += int64(n)
	return n, err
}

// Close closes the current file
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// InitLog sends the log to path when debug is on and drops it otherwise.
// The returned func closes the log file.
func InitLog(debug bool, path string) func() {
	if !debug {
		log.SetOutput(NullWriter{})
		return func() {}
	}
	writer, err := NewRotatingWriter(path, maxLogSize)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	log.SetOutput(writer)
	log.Println("SCRIBE started with logging enabled")
	return func() { writer.Close() }
}
