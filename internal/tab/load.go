package tab

import (
	"context"
	"errors"
	"io"
	"strconv"

	"github.com/ellery/scribe/internal/encoding"
	"github.com/ellery/scribe/internal/fileio"
	"github.com/ellery/scribe/internal/infobar"
	"github.com/ellery/scribe/internal/metadata"
)

// Load reads location into the document. enc forces an encoding; nil
// tries the candidate list. line and col are 1-based, 0 meaning unset.
// With create set, a missing local file becomes an empty new document.
func (t *Tab) Load(location string, enc *encoding.Encoding, line, col int, create bool) error {
	if t.state != StateNormal {
		warn("load %s in state %s", location, t.state)
		return ErrWrongState
	}
	t.setState(StateLoading)
	if t.loader != nil {
		warn("file loader already exists")
	}
	t.doc.File().SetLocation(location)
	t.loader = t.deps.Transport.NewLoader(t.doc, location)
	t.doc.SetCreate(create)
	t.load(enc, line, col)
	return nil
}

// LoadStream reads r into an untitled document
func (t *Tab) LoadStream(r io.Reader, enc *encoding.Encoding, line, col int) error {
	if t.state != StateNormal {
		warn("load stream in state %s", t.state)
		return ErrWrongState
	}
	t.setState(StateLoading)
	if t.loader != nil {
		warn("file loader already exists")
	}
	t.doc.File().SetLocation("")
	t.loader = t.deps.Transport.NewStreamLoader(t.doc, r)
	t.doc.SetCreate(false)
	t.load(enc, line, col)
	return nil
}

// Revert reloads the document from its location, dropping any edits
func (t *Tab) Revert() error {
	if t.state != StateNormal && t.state != StateExternallyModifiedNotification {
		warn("revert in state %s", t.state)
		return ErrWrongState
	}
	if t.state == StateExternallyModifiedNotification {
		t.setInfoBar(nil, infobar.ResponseNone)
	}
	location := t.doc.Location()
	if location == "" {
		return ErrUntitled
	}
	t.setState(StateReverting)
	if t.loader != nil {
		warn("file loader already exists")
	}
	t.loader = t.deps.Transport.NewLoader(t.doc, location)
	t.load(nil, 0, 0)
	return nil
}

// candidateEncodings orders the encodings a load tries
func (t *Tab) candidateEncodings() []*encoding.Encoding {
	return encoding.Candidates(
		t.deps.Prefs.EncodingCandidates(),
		t.doc.Metadata(metadata.KeyEncoding),
		t.doc.File().Encoding(),
	)
}

func (t *Tab) load(enc *encoding.Encoding, line, col int) {
	if enc != nil {
		t.userEncoding = true
		t.loader.SetCandidateEncodings([]*encoding.Encoding{enc})
	} else {
		t.userEncoding = false
		t.loader.SetCandidateEncodings(t.candidateEncodings())
	}
	t.tmpLine = line
	t.tmpCol = col

	if t.cancelLoad != nil {
		t.cancelLoad()
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.cancelLoad = cancel

	t.doc.NotifyLoad()
	t.timing = false
	loader := t.loader
	loader.Load(ctx, t.loaderProgress, func(err error) {
		if t.disposed || t.loader != loader {
			return
		}
		t.loadDone(err)
	})
}

func (t *Tab) clearLoading() {
	t.loader = nil
	if t.cancelLoad != nil {
		t.cancelLoad()
		t.cancelLoad = nil
	}
}

// trackProgress starts the clock on the first report and tells whether
// the operation will probably run long enough to deserve a progress bar
func (t *Tab) trackProgress(done, total int64) bool {
	now := t.deps.Sched.Now()
	if !t.timing {
		t.timing = true
		t.progressStart = now
	}
	if done <= 0 {
		return false
	}
	elapsed := now.Sub(t.progressStart)
	totalTime := float64(elapsed) * float64(total) / float64(done)
	remaining := totalTime - float64(elapsed)
	return remaining > float64(remainingThreshold)
}

func (t *Tab) setProgress(done, total int64) {
	bar := t.bars.Current()
	if bar == nil || !bar.IsProgress() {
		return
	}
	bar.SetProgress(done, total)
}

func (t *Tab) loaderProgress(done, total int64) {
	if t.state != StateLoading && t.state != StateReverting {
		return
	}
	if t.trackProgress(done, total) {
		t.showLoadingInfoBar()
	}
	t.setProgress(done, total)
}

func (t *Tab) showLoadingInfoBar() {
	if t.bars.Current() != nil {
		return
	}
	bar := infobar.NewLoading(t.doc.Location(), t.doc.ShortName(), t.state == StateReverting)
	bar.Responded.Connect(func(r infobar.Response) {
		if r == infobar.ResponseCancel && t.cancelLoad != nil {
			t.cancelLoad()
		}
	})
	t.setInfoBar(bar, infobar.ResponseNone)
}

// gotoLine places the cursor after a load: the requested line, else the
// remembered position, else the start
func (t *Tab) gotoLine() {
	switch {
	case t.tmpLine > 0:
		col := t.tmpCol
		if col < 1 {
			col = 1
		}
		t.doc.GotoLine(t.tmpLine, col)
	case t.deps.Prefs.RestoreCursorPosition():
		pos, err := strconv.Atoi(t.doc.Metadata(metadata.KeyPosition))
		if err != nil || pos < 0 {
			pos = 0
		}
		t.doc.SetCursor(pos)
	default:
		t.doc.SetCursor(0)
	}
}

func (t *Tab) loadDone(err error) {
	t.timing = false
	t.setInfoBar(nil, infobar.ResponseNone)

	fallback := errors.Is(err, fileio.ErrConversionFallback)
	if err == nil || fallback {
		if t.userEncoding && t.loader.Encoding() != nil {
			t.doc.SetMetadata(metadata.KeyEncoding, t.loader.Encoding().Charset())
		}
		t.gotoLine()
	}

	location := t.doc.Location()
	createNamedNew := t.doc.Create() &&
		errors.Is(err, fileio.ErrNotFound) &&
		location != "" && fileio.IsLocalLocation(location)

	if err != nil && !fallback && !createNamedNew {
		if t.state == StateLoading {
			t.setState(StateLoadingError)
		} else {
			t.setState(StateRevertingError)
		}

		if errors.Is(err, fileio.ErrCancelled) {
			t.clearLoading()
			t.removeFromContainer()
			return
		}

		t.removeFromRecentsIfLocal(location)

		var bar *infobar.Bar
		if t.state == StateLoadingError {
			bar = infobar.NewIOLoadingError(location, t.loader.Encoding(), err)
			bar.Responded.Connect(func(r infobar.Response) { t.ioLoadingErrorResponse(bar, r) })
		} else {
			bar = infobar.NewUnrecoverableReverting(location, err)
			bar.Responded.Connect(t.unrecoverableRevertingResponse)
		}
		t.setInfoBar(bar, infobar.ResponseCancel)
		return
	}

	if location != "" && !createNamedNew && t.deps.Recents != nil {
		t.deps.Recents.Add(location, t.doc.MimeType())
	}

	if fallback {
		t.editable = false
		bar := infobar.NewIOLoadingError(location, t.loader.Encoding(), err)
		bar.Responded.Connect(func(r infobar.Response) { t.ioLoadingErrorResponse(bar, r) })
		t.setInfoBar(bar, infobar.ResponseCancel)
	}

	t.deps.Sched.Post(func() {
		if !t.disposed {
			t.view.ScrollToCursor()
		}
	})

	if !t.doc.IsReadOnly() && location != "" && t.openElsewhere(location) {
		t.editable = false
		bar := infobar.NewFileAlreadyOpen(location)
		bar.Responded.Connect(t.fileAlreadyOpenResponse)
		t.setInfoBar(bar, infobar.ResponseCancel)
	}

	t.setState(StateNormal)

	if location == "" {
		t.doc.SetModified(true)
	}
	t.askIfExternallyModified = true
	t.changedOnDisk = false

	if err == nil {
		t.clearLoading()
	}
	if createNamedNew {
		err = nil
	}
	t.doc.NotifyLoaded(err)
}

func (t *Tab) openElsewhere(location string) bool {
	if t.deps.OpenDocuments == nil {
		return false
	}
	for _, d := range t.deps.OpenDocuments() {
		if d != t.doc && fileio.SameLocation(d.Location(), location) {
			return true
		}
	}
	return false
}

func (t *Tab) ioLoadingErrorResponse(bar *infobar.Bar, r infobar.Response) {
	// a reload or close must not start under a running save
	if t.saveTask != nil || (t.state != StateNormal && t.state != StateLoadingError) {
		warn("loading error answered in state %s", t.state)
		return
	}
	switch r {
	case infobar.ResponseOK:
		enc := bar.SelectedEncoding()
		t.setInfoBar(nil, infobar.ResponseNone)
		t.setState(StateLoading)
		if t.loader == nil {
			t.loader = t.deps.Transport.NewLoader(t.doc, t.doc.Location())
		}
		t.load(enc, t.tmpLine, t.tmpCol)
	case infobar.ResponseYes:
		t.editable = true
		t.view.SetEditable(t.state == StateNormal)
		t.setInfoBar(nil, infobar.ResponseNone)
		t.clearLoading()
	default:
		t.removeFromRecentsIfLocal(t.doc.Location())
		t.removeFromContainer()
	}
}

func (t *Tab) unrecoverableRevertingResponse(infobar.Response) {
	t.setState(StateNormal)
	t.setInfoBar(nil, infobar.ResponseNone)
	t.clearLoading()
	t.view.GrabFocus()
}

func (t *Tab) fileAlreadyOpenResponse(r infobar.Response) {
	if r == infobar.ResponseYes {
		t.editable = true
		t.view.SetEditable(t.state == StateNormal)
	}
	t.setInfoBar(nil, infobar.ResponseNone)
	t.view.GrabFocus()
}
