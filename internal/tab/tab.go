// Package tab is the controller of one open document: it drives loads,
// saves, auto-saves and print jobs through a state machine and mediates
// every recoverable error through an info bar.
package tab

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ellery/scribe/internal/config"
	"github.com/ellery/scribe/internal/encoding"
	"github.com/ellery/scribe/internal/fileio"
	"github.com/ellery/scribe/internal/infobar"
	"github.com/ellery/scribe/internal/loop"
	"github.com/ellery/scribe/internal/metadata"
	"github.com/ellery/scribe/internal/printing"
	"github.com/ellery/scribe/internal/signal"
)

var (
	ErrWrongState      = errors.New("operation not allowed in this state")
	ErrLoadInProgress  = errors.New("a load is already in progress")
	ErrSaveInProgress  = errors.New("a save is already in progress")
	ErrPrintInProgress = errors.New("a print job is already running")
	ErrUntitled        = errors.New("document has no location")
	ErrLockedDown      = errors.New("disabled by lockdown policy")
	ErrNoEncoding      = errors.New("no encoding given")
	ErrBadInterval     = errors.New("auto-save interval must be positive")
)

// nameMaxWidth bounds the tab label, in cells
const nameMaxWidth = 40

// autoSaveRetry is the delay before an auto-save that found the tab busy
// tries again
const autoSaveRetry = 30 * time.Second

// remainingThreshold is how long an operation must still need before its
// progress bar appears
const remainingThreshold = 3 * time.Second

// Document is the buffer a tab controls
type Document interface {
	fileio.Content
	Location() string
	IsModified() bool
	SetModified(m bool)
	ModifiedChanged() *signal.Signal[bool]
	IsUntitled() bool
	IsLocal() bool
	IsReadOnly() bool
	Create() bool
	SetCreate(create bool)
	CheckExternallyModified() bool
	NeedsSaving() bool
	ShortName() string
	MimeType() string
	ContentType() string
	Cursor() int
	SetCursor(offset int)
	GotoLine(line, column int) bool
	Metadata(key string) string
	SetMetadata(key, value string)
	NotifyLoad()
	NotifyLoaded(err error)
	NotifySave()
	NotifySaved(err error)
	Close()
}

// View is the editing surface of a tab
type View interface {
	SetEditable(editable bool)
	SetCursorVisible(visible bool)
	SetHighlightCurrentLine(highlight bool)
	// SetVisible shows or hides the text frame
	SetVisible(visible bool)
	SetBusy(busy bool)
	ScrollToCursor()
	GrabFocus()
	DroppedURIs() *signal.Signal[[]string]
}

// Preferences are the user settings a tab reads
type Preferences interface {
	CreateBackups() bool
	AutoSaveDefaults() (enabled bool, minutes int)
	RestoreCursorPosition() bool
	HighlightLine() bool
	EncodingCandidates() []string
	AutoSaveExcluded(path string) bool
}

// Recents is the recently used files list
type Recents interface {
	Add(location, mimeType string)
	Remove(location string)
}

// Container is whatever holds the tab, usually a notebook pane
type Container interface {
	RemoveTab(t *Tab)
}

// Deps are the collaborators shared by every tab
type Deps struct {
	Sched         loop.Scheduler
	Transport     fileio.Transport
	Prefs         Preferences
	Lockdown      config.Lockdown
	Recents       Recents
	Printer       printing.Printer
	PrintDefaults printing.Defaults
	// OpenDocuments lists every open document, for the already-open check
	OpenDocuments func() []Document
}

// Tab controls one document and its view
type Tab struct {
	id   string
	doc  Document
	view View
	deps Deps

	container Container
	state     State
	bars      infobar.Slot

	loader        fileio.Loader
	cancelLoad    context.CancelFunc
	userEncoding  bool
	tmpLine       int
	tmpCol        int
	progressStart time.Time
	timing        bool

	saveTask  *SaveTask
	saveFlags fileio.Flags

	printJob printing.Job
	preview  *printing.Preview

	autoSave         bool
	autoSaveInterval int
	autoSaveTimer    loop.Timer

	editable                bool
	askIfExternallyModified bool
	watched                 bool
	changedOnDisk           bool
	disposed                bool

	modifiedID signal.HandlerID
	droppedID  signal.HandlerID

	// StateChanged fires after every transition
	StateChanged signal.Signal[State]
	// NameChanged fires when Name or Tooltip may have changed
	NameChanged signal.Signal[struct{}]
	// CanCloseChanged fires when CanClose may have changed
	CanCloseChanged signal.Signal[struct{}]
	// DropURIs re-emits files dropped on the view
	DropURIs signal.Signal[[]string]
}

var byDocument = map[Document]*Tab{}

// FromDocument returns the tab controlling doc
func FromDocument(doc Document) *Tab {
	return byDocument[doc]
}

// New creates an idle tab in the Normal state
func New(doc Document, view View, deps Deps) *Tab {
	t := &Tab{
		id:                      uuid.New().String(),
		doc:                     doc,
		view:                    view,
		deps:                    deps,
		state:                   StateNormal,
		editable:                true,
		askIfExternallyModified: true,
	}
	enabled, minutes := deps.Prefs.AutoSaveDefaults()
	t.autoSave = enabled && !deps.Lockdown.SaveToDisk
	t.autoSaveInterval = minutes

	t.modifiedID = doc.ModifiedChanged().Connect(func(bool) {
		t.NameChanged.Emit(struct{}{})
		t.CanCloseChanged.Emit(struct{}{})
	})
	t.droppedID = view.DroppedURIs().Connect(func(uris []string) {
		t.DropURIs.Emit(uris)
	})

	byDocument[doc] = t
	t.applyViewState()
	t.updateAutoSaveTimeout()
	return t
}

// NewFromLocation creates a tab and starts loading location
func NewFromLocation(doc Document, view View, deps Deps, location string, enc *encoding.Encoding, line, col int, create bool) *Tab {
	t := New(doc, view, deps)
	if err := t.Load(location, enc, line, col, create); err != nil {
		log.Printf("SCRIBE Tab: WARNING: load %s: %v", location, err)
	}
	return t
}

func (t *Tab) ID() string { return t.id }

func (t *Tab) Document() Document { return t.doc }

func (t *Tab) View() View { return t.view }

func (t *Tab) State() State { return t.state }

// SetContainer records the pane holding the tab
func (t *Tab) SetContainer(c Container) { t.container = c }

func (t *Tab) Container() Container { return t.container }

// Editable is the tab's own editability, independent of state
func (t *Tab) Editable() bool { return t.editable }

// InfoBars exposes the info bar slot for rendering
func (t *Tab) InfoBars() *infobar.Slot { return &t.bars }

// InfoBar is the bar on display, nil when there is none
func (t *Tab) InfoBar() *infobar.Bar { return t.bars.Current() }

// SetInfoBar shows an application-provided bar
func (t *Tab) SetInfoBar(bar *infobar.Bar) {
	t.setInfoBar(bar, infobar.ResponseNone)
}

func (t *Tab) setInfoBar(bar *infobar.Bar, def infobar.Response) {
	if bar == nil {
		t.bars.Clear()
		return
	}
	t.bars.Show(bar, def)
}

// Preview is the print preview on display, if any
func (t *Tab) Preview() *printing.Preview { return t.preview }

// PendingSave is the save in flight, nil when there is none
func (t *Tab) PendingSave() *SaveTask { return t.saveTask }

// SaveFlags are the flags kept across saves of this tab
func (t *Tab) SaveFlags() fileio.Flags { return t.saveFlags }

func warn(format string, args ...interface{}) {
	log.Printf("SCRIBE Tab: WARNING: "+format, args...)
}

func (t *Tab) setState(s State) {
	if t.state == s {
		return
	}
	t.state = s
	t.applyViewState()
	t.updateAutoSaveTimeout()
	t.StateChanged.Emit(s)
	t.NameChanged.Emit(struct{}{})
	t.CanCloseChanged.Emit(struct{}{})
}

func (t *Tab) applyViewState() {
	s := t.state
	t.view.SetEditable(s == StateNormal && t.editable)
	cursor := s != StateLoading && s != StateClosing
	t.view.SetCursorVisible(cursor)
	t.view.SetHighlightCurrentLine(cursor && t.deps.Prefs.HighlightLine())

	if s == StateLoadingError || s == StateShowingPrintPreview {
		t.view.SetVisible(false)
	} else if t.preview == nil {
		t.view.SetVisible(true)
	}
	t.view.SetBusy(s.busy())
}

// Name is the tab label: the short name, with a * when modified
func (t *Tab) Name() string {
	name := infobar.TruncateMiddle(t.doc.ShortName(), nameMaxWidth)
	if t.doc.IsModified() {
		return "*" + name
	}
	return name
}

// Tooltip describes the document, or the error the tab is showing
func (t *Tab) Tooltip() string {
	ruri := t.doc.ShortName()
	if loc := t.doc.Location(); loc != "" {
		ruri = fileio.DisplayLocation(loc)
	}
	switch t.state {
	case StateLoadingError:
		return fmt.Sprintf("Error opening file %s", ruri)
	case StateRevertingError:
		return fmt.Sprintf("Error reverting file %s", ruri)
	case StateSavingError:
		return fmt.Sprintf("Error saving file %s", ruri)
	}

	mime := t.doc.MimeType()
	mimeText := mime
	if desc := t.doc.ContentType(); desc != "" && desc != mime {
		mimeText = fmt.Sprintf("%s (%s)", desc, mime)
	}
	enc := t.doc.File().Encoding()
	if enc == nil {
		enc = encoding.UTF8()
	}
	return fmt.Sprintf("Name: %s\n\nMIME Type: %s\nEncoding: %s", ruri, mimeText, enc.String())
}

// Icon names the state icon, empty when the tab needs none
func (t *Tab) Icon() string {
	switch {
	case t.state == StatePrinting:
		return "printer-printing"
	case t.state == StatePrintPreviewing, t.state == StateShowingPrintPreview:
		return "printer"
	case t.state.IsError():
		return "dialog-error"
	case t.state == StateExternallyModifiedNotification:
		return "dialog-warning"
	}
	return ""
}

// CanClose reports whether the tab may go away without losing work
func (t *Tab) CanClose() bool {
	switch t.state {
	case StateLoading, StateLoadingError, StateReverting, StateRevertingError:
		return true
	case StateSavingError:
		return false
	}
	return !t.doc.NeedsSaving()
}

// MarkForClosing moves a Normal tab to Closing
func (t *Tab) MarkForClosing() error {
	if t.state != StateNormal {
		warn("mark for closing in state %s", t.state)
		return ErrWrongState
	}
	t.setState(StateClosing)
	return nil
}

// ViewFocusedIn checks for changes on disk when the view gains focus.
// Watched tabs only check after the watcher reported a change.
func (t *Tab) ViewFocusedIn() {
	if t.state != StateNormal || !t.askIfExternallyModified {
		return
	}
	if t.doc.IsUntitled() || !t.doc.IsLocal() {
		return
	}
	if t.watched && !t.changedOnDisk {
		return
	}
	t.changedOnDisk = false
	if !t.doc.CheckExternallyModified() {
		return
	}
	t.setState(StateExternallyModifiedNotification)
	bar := infobar.NewExternallyModified(t.doc.Location(), t.doc.IsModified())
	bar.Responded.Connect(t.externallyModifiedNotificationResponse)
	t.setInfoBar(bar, infobar.ResponseOK)
}

func (t *Tab) externallyModifiedNotificationResponse(r infobar.Response) {
	t.setInfoBar(nil, infobar.ResponseNone)
	if r == infobar.ResponseOK {
		if err := t.Revert(); err != nil {
			warn("revert: %v", err)
		}
	} else {
		t.askIfExternallyModified = false
		t.setState(StateNormal)
	}
	t.view.GrabFocus()
}

// SetWatched tells the tab a file watcher reports changes of its file
func (t *Tab) SetWatched(watched bool) { t.watched = watched }

// NotifyChangedOnDisk records a change reported by the file watcher
func (t *Tab) NotifyChangedOnDisk() { t.changedOnDisk = true }

// SetNetworkAvailable shows or clears the network warning of a remote
// document
func (t *Tab) SetNetworkAvailable(available bool) {
	loc := t.doc.Location()
	if loc == "" || fileio.IsLocalLocation(loc) {
		return
	}
	if available {
		t.setInfoBar(nil, infobar.ResponseNone)
		return
	}
	bar := infobar.NewNetworkUnavailable(loc)
	bar.Responded.Connect(func(r infobar.Response) {
		if r == infobar.ResponseClose {
			bar.Hide()
		}
	})
	t.setInfoBar(bar, infobar.ResponseClose)
}

func (t *Tab) removeFromContainer() {
	if t.container == nil {
		warn("tab %s has no container to leave", t.id)
		return
	}
	t.container.RemoveTab(t)
}

func (t *Tab) removeFromRecentsIfLocal(location string) {
	if location != "" && fileio.IsLocalLocation(location) && t.deps.Recents != nil {
		t.deps.Recents.Remove(location)
	}
}

// Dispose stops everything the tab runs and releases its document. The
// cursor position is remembered for the next load.
func (t *Tab) Dispose() {
	if t.disposed {
		return
	}
	t.disposed = true
	if t.cancelLoad != nil {
		t.cancelLoad()
		t.cancelLoad = nil
	}
	t.removeAutoSaveTimeout()
	// the saver's result no longer reaches this tab
	t.finishSave(false)
	if t.printJob != nil {
		t.printJob.Events().Done.DisconnectAll()
		t.printJob.Cancel()
		t.printJob = nil
	}
	if !t.doc.IsUntitled() && t.state != StateLoading && t.state != StateLoadingError {
		t.doc.SetMetadata(metadata.KeyPosition, strconv.Itoa(t.doc.Cursor()))
	}
	t.bars.Clear()
	if h := t.bars.Hiding(); h != nil {
		h.Destroy()
	}
	t.doc.ModifiedChanged().Disconnect(t.modifiedID)
	t.view.DroppedURIs().Disconnect(t.droppedID)
	delete(byDocument, t.doc)
	t.doc.Close()
}
