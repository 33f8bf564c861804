package infobar

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/ellery/scribe/internal/encoding"
	"github.com/ellery/scribe/internal/fileio"
)

// MaxMessageLength bounds progress messages, in cells
const MaxMessageLength = 100

// TruncateMiddle shortens s to width cells, replacing the middle with an
// ellipsis
func TruncateMiddle(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	const ellipsis = "…"
	if width <= 1 {
		return runewidth.Truncate(s, width, "")
	}
	keep := width - runewidth.StringWidth(ellipsis)
	head := (keep + 1) / 2
	tail := keep - head

	left := runewidth.Truncate(s, head, "")
	runes := []rune(s)
	right := ""
	w := 0
	for i := len(runes) - 1; i >= 0; i-- {
		rw := runewidth.RuneWidth(runes[i])
		if w+rw > tail {
			break
		}
		w += rw
		right = string(runes[i]) + right
	}
	return left + ellipsis + right
}

func displayName(location string) string {
	return fileio.DisplayLocation(location)
}

func button(label string, r Response) Button {
	return Button{Label: label, Response: r}
}

// ProgressMessage formats "VERB NAME PREP DIR". Long names and
// directories are truncated so the whole line fits MaxMessageLength.
func ProgressMessage(verb, prep, name, dir string) string {
	name = TruncateMiddle(name, MaxMessageLength)
	if dir == "" {
		return fmt.Sprintf("%s %s", verb, name)
	}
	width := MaxMessageLength - runewidth.StringWidth(name)
	if width < 20 {
		width = 20
	}
	return fmt.Sprintf("%s %s %s %s", verb, name, prep, TruncateMiddle(dir, width))
}

// NewLoading is the progress bar of a load or revert
func NewLoading(location, shortName string, reverting bool) *Bar {
	dir := ""
	if location != "" {
		dir = filepath.Dir(displayName(location))
	}
	verb, icon := "Loading", "document-open"
	if reverting {
		verb, icon = "Reverting", "document-revert"
	}
	return NewProgress(icon, ProgressMessage(verb, "from", shortName, dir), true)
}

// NewSaving is the progress bar of a save. It cannot be cancelled.
func NewSaving(location, shortName string) *Bar {
	dest := ""
	if location != "" {
		dest = filepath.Dir(displayName(location))
	}
	return NewProgress("document-save", ProgressMessage("Saving", "to", shortName, dest), false)
}

// NewPrinting is the progress bar of a print job. It starts hidden and
// empty; the job fills in its status.
func NewPrinting() *Bar {
	return NewProgress("document-print", "", true)
}

func loadChoices() []*encoding.Encoding {
	return append([]*encoding.Encoding{nil}, encoding.All()...)
}

// explain turns a transport error into a sentence for the user
func explain(location string, err error) string {
	name := displayName(location)
	e, ok := fileio.AsError(err)
	if !ok {
		if err == nil {
			return ""
		}
		return err.Error()
	}
	switch e.Code {
	case fileio.CodeNotFound:
		return "Please check that you typed the location correctly and try again."
	case fileio.CodePermissionDenied:
		return "You do not have the permissions necessary to access the file."
	case fileio.CodeIsDirectory:
		return fmt.Sprintf("%s is a directory.", name)
	case fileio.CodeNotRegularFile:
		return fmt.Sprintf("%s is not a regular file.", name)
	case fileio.CodeNotSupported:
		scheme := location
		if i := strings.Index(location, "://"); i >= 0 {
			scheme = location[:i]
		}
		return fmt.Sprintf("Unable to handle %q locations.", scheme)
	case fileio.CodeHostNotFound:
		return "Host could not be found. Please check that your network settings are correct and try again."
	case fileio.CodeTooLarge:
		if e.Err != nil {
			return e.Err.Error() + "."
		}
		return "The file is too big."
	case fileio.CodeNoSpace:
		return "There is not enough disk space to save the file. Please free some disk space and try again."
	case fileio.CodeExists:
		return "A file with the same name already exists. Please use a different name."
	}
	if e.Err != nil {
		return "Unexpected error: " + e.Err.Error()
	}
	return "Unexpected error: " + e.Error()
}

// NewIOLoadingError reports a failed load. Conversion problems offer a
// retry with another encoding; a fallback conversion also offers editing
// the damaged text anyway. Every other error can only be dismissed.
func NewIOLoadingError(location string, enc *encoding.Encoding, err error) *Bar {
	name := displayName(location)
	switch {
	case errors.Is(err, fileio.ErrConversionFallback):
		b := New(MessageWarning,
			fmt.Sprintf("There was a problem opening the file %s.", name),
			"The file you opened has some invalid characters. If you continue editing this file you could corrupt it. You can also choose another character encoding and try again.",
			button("Retry", ResponseOK),
			button("Edit Anyway", ResponseYes),
			button("Cancel", ResponseCancel))
		b.setChoices(loadChoices(), nil)
		return b
	case errors.Is(err, fileio.ErrEncodingAutoDetectionFailed):
		b := New(MessageError,
			fmt.Sprintf("Could not open the file %s.", name),
			"Unable to detect the character encoding. Please check that you are not trying to open a binary file. Select a character encoding from the menu and try again.",
			button("Retry", ResponseOK),
			button("Cancel", ResponseCancel))
		b.setChoices(loadChoices(), nil)
		return b
	case fileio.InDomain(err, fileio.DomainConvert),
		errors.Is(err, fileio.ErrInvalidData),
		errors.Is(err, fileio.ErrPartialInput):
		encName := "the selected"
		if enc != nil {
			encName = "the " + enc.String()
		}
		b := New(MessageError,
			fmt.Sprintf("Could not open the file %s using %s character encoding.", name, encName),
			"Please check that you are not trying to open a binary file. Select a different character encoding from the menu and try again.",
			button("Retry", ResponseOK),
			button("Cancel", ResponseCancel))
		b.setChoices(loadChoices(), enc)
		return b
	}
	return New(MessageError,
		fmt.Sprintf("Could not open the file %s.", name),
		explain(location, err),
		button("Close", ResponseCancel))
}

// NewUnrecoverableReverting reports a failed revert
func NewUnrecoverableReverting(location string, err error) *Bar {
	return New(MessageError,
		fmt.Sprintf("Could not revert the file %s.", displayName(location)),
		explain(location, err),
		button("Close", ResponseCancel))
}

// NewFileAlreadyOpen warns that another tab shows the same file
func NewFileAlreadyOpen(location string) *Bar {
	return New(MessageWarning,
		fmt.Sprintf("This file (%s) is already open in another tab.", displayName(location)),
		"This instance of the file was opened in a non-editable way. Do you want to edit it anyway?",
		button("Edit Anyway", ResponseYes),
		button("Don't Edit", ResponseCancel))
}

// NewExternallyModified asks whether to reload a file that changed on disk
func NewExternallyModified(location string, documentModified bool) *Bar {
	secondary := "Do you want to reload the file?"
	label := "Reload"
	if documentModified {
		secondary = "Do you want to drop your changes and reload the file?"
		label = "Drop Changes and Reload"
	}
	return New(MessageWarning,
		fmt.Sprintf("The file %s changed on disk.", displayName(location)),
		secondary,
		button(label, ResponseOK),
		button("Ignore", ResponseCancel))
}

// NewExternallyModifiedSaving offers to overwrite external changes
func NewExternallyModifiedSaving(location string, err error) *Bar {
	return New(MessageWarning,
		fmt.Sprintf("The file %s has been modified since reading it.", displayName(location)),
		"If you save it, all the external changes could be lost. Save it anyway?",
		button("Save Anyway", ResponseYes),
		button("Don't Save", ResponseCancel))
}

// NewNoBackupSaving offers to save without the backup copy
func NewNoBackupSaving(location string, err error) *Bar {
	return New(MessageWarning,
		fmt.Sprintf("Could not create a backup file while saving %s", displayName(location)),
		"Could not back up the old copy of the file before saving the new one. You can ignore this warning and save the file anyway, but if an error occurs while saving, you could lose the old copy of the file. Save anyway?",
		button("Save Anyway", ResponseYes),
		button("Don't Save", ResponseCancel))
}

// NewInvalidCharacter offers to save text the encoding cannot represent
func NewInvalidCharacter(location string) *Bar {
	return New(MessageWarning,
		fmt.Sprintf("Some invalid chars have been detected while saving %s", displayName(location)),
		"If you continue saving this file you can corrupt the document. Save anyway?",
		button("Save Anyway", ResponseYes),
		button("Don't Save", ResponseCancel))
}

// NewUnrecoverableSaving reports a save that cannot be retried
func NewUnrecoverableSaving(location string, err error) *Bar {
	return New(MessageError,
		fmt.Sprintf("Could not save the file %s.", displayName(location)),
		explain(location, err),
		button("Close", ResponseCancel))
}

// NewConversionErrorWhileSaving offers a retry with another encoding
func NewConversionErrorWhileSaving(location string, enc *encoding.Encoding, err error) *Bar {
	encName := "the selected"
	if enc != nil {
		encName = "the " + enc.String()
	}
	b := New(MessageError,
		fmt.Sprintf("Could not save the file %s using %s character encoding.", displayName(location), encName),
		"The document contains one or more characters that cannot be encoded using the specified character encoding. Select a different character encoding from the menu and try again.",
		button("Retry", ResponseOK),
		button("Don't Save", ResponseCancel))
	b.setChoices(encoding.All(), enc)
	return b
}

// NewNetworkUnavailable tells that a remote document cannot be reached
func NewNetworkUnavailable(location string) *Bar {
	return New(MessageWarning,
		"The location of the file cannot be accessed.",
		fmt.Sprintf("Cannot access %s. Check your network connection.", displayName(location)),
		button("Close", ResponseClose))
}
