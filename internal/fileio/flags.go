package fileio

import "strings"

// Flags tune a save
type Flags uint

const (
	FlagCreateBackup Flags = 1 << iota
	FlagIgnoreInvalidChars
	FlagIgnoreModificationTime

	FlagsNone Flags = 0
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

func (f Flags) String() string {
	var parts []string
	if f.Has(FlagCreateBackup) {
		parts = append(parts, "create-backup")
	}
	if f.Has(FlagIgnoreInvalidChars) {
		parts = append(parts, "ignore-invalid-chars")
	}
	if f.Has(FlagIgnoreModificationTime) {
		parts = append(parts, "ignore-modification-time")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// NewlineType is the line terminator written on save
type NewlineType int

const (
	NewlineLF NewlineType = iota
	NewlineCR
	NewlineCRLF
)

func (n NewlineType) String() string {
	switch n {
	case NewlineCR:
		return "\r"
	case NewlineCRLF:
		return "\r\n"
	}
	return "\n"
}

// CompressionType is the on-disk compression of a file
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionGzip
)

// detectNewline picks the first terminator in text, LF when there is none
func detectNewline(text string) NewlineType {
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			return NewlineLF
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				return NewlineCRLF
			}
			return NewlineCR
		}
	}
	return NewlineLF
}

// normalizeNewlines converts every terminator to \n
func normalizeNewlines(text string) string {
	if !strings.Contains(text, "\r") {
		return text
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

func applyNewlines(text string, n NewlineType) string {
	if n == NewlineLF {
		return text
	}
	return strings.ReplaceAll(text, "\n", n.String())
}
