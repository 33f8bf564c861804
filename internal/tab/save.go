package tab

import (
	"context"
	"errors"
	"time"

	"github.com/ellery/scribe/internal/encoding"
	"github.com/ellery/scribe/internal/fileio"
	"github.com/ellery/scribe/internal/infobar"
)

// SaveTask is the pending result of a save. It resolves once, when the
// save succeeds or the user gives up on it.
type SaveTask struct {
	ctx           context.Context
	saver         fileio.Saver
	forceNoBackup bool
	done          chan struct{}
	ok            bool
	callbacks     []func(ok bool)
}

func newSaveTask(ctx context.Context) *SaveTask {
	if ctx == nil {
		ctx = context.Background()
	}
	return &SaveTask{ctx: ctx, done: make(chan struct{})}
}

// Done is closed when the task resolves
func (s *SaveTask) Done() <-chan struct{} { return s.done }

// Succeeded is the outcome, valid after Done is closed
func (s *SaveTask) Succeeded() bool { return s.ok }

// Then runs fn on the loop when the task resolves, immediately if it
// already has
func (s *SaveTask) Then(fn func(ok bool)) {
	select {
	case <-s.done:
		fn(s.ok)
	default:
		s.callbacks = append(s.callbacks, fn)
	}
}

// Saver is the transport saver of this task
func (s *SaveTask) Saver() fileio.Saver { return s.saver }

func (s *SaveTask) resolve(ok bool) {
	select {
	case <-s.done:
		return
	default:
	}
	s.ok = ok
	close(s.done)
	for _, fn := range s.callbacks {
		fn(ok)
	}
	s.callbacks = nil
}

// initialSaveFlags starts from the persisted flags. Auto-saves never ask
// for a backup, so the one from the last manual save survives.
func (t *Tab) initialSaveFlags(autoSave bool) fileio.Flags {
	flags := t.saveFlags
	if t.deps.Prefs.CreateBackups() && !autoSave {
		flags |= fileio.FlagCreateBackup
	}
	return flags
}

func (t *Tab) checkCanSave() error {
	if t.deps.Lockdown.SaveToDisk {
		return ErrLockedDown
	}
	switch t.state {
	case StateNormal, StateExternallyModifiedNotification, StateShowingPrintPreview:
	default:
		warn("save in state %s", t.state)
		return ErrWrongState
	}
	if t.saveTask != nil {
		warn("file saver already exists")
		return ErrSaveInProgress
	}
	return nil
}

// Save writes the document to its location. A print preview on display
// is closed first.
func (t *Tab) Save(ctx context.Context) (*SaveTask, error) {
	if err := t.checkCanSave(); err != nil {
		return nil, err
	}
	if t.state == StateShowingPrintPreview {
		t.closePrinting()
	}
	if t.doc.IsUntitled() {
		return nil, ErrUntitled
	}

	task := newSaveTask(ctx)
	flags := t.initialSaveFlags(false)
	if t.state == StateExternallyModifiedNotification {
		// the user already saw the change on disk
		t.setInfoBar(nil, infobar.ResponseNone)
		flags |= fileio.FlagIgnoreModificationTime
	}
	task.saver = t.deps.Transport.NewSaver(t.doc, t.doc.Location())
	task.saver.SetFlags(flags)

	t.saveTask = task
	t.save()
	return task, nil
}

// SaveAs writes the document to a new location with the given encoding,
// newline type and compression. Persisted flags are reset.
func (t *Tab) SaveAs(ctx context.Context, location string, enc *encoding.Encoding, newline fileio.NewlineType, compression fileio.CompressionType) (*SaveTask, error) {
	if err := t.checkCanSave(); err != nil {
		return nil, err
	}
	if location == "" {
		return nil, ErrUntitled
	}
	if enc == nil {
		return nil, ErrNoEncoding
	}
	if t.state == StateShowingPrintPreview {
		t.closePrinting()
	}

	task := newSaveTask(ctx)
	t.saveFlags = fileio.FlagsNone
	flags := t.initialSaveFlags(false)
	if t.state == StateExternallyModifiedNotification {
		t.setInfoBar(nil, infobar.ResponseNone)
		flags |= fileio.FlagIgnoreModificationTime
	}
	task.saver = t.deps.Transport.NewSaver(t.doc, location)
	task.saver.SetEncoding(enc)
	task.saver.SetNewlineType(newline)
	task.saver.SetCompressionType(compression)
	task.saver.SetFlags(flags)

	t.saveTask = task
	t.save()
	return task, nil
}

func (t *Tab) save() {
	task := t.saveTask
	t.setState(StateSaving)
	t.doc.NotifySave()
	t.timing = false
	task.saver.Save(task.ctx, t.saverProgress, func(err error) {
		if t.disposed || t.saveTask != task {
			return
		}
		t.saveDone(err)
	})
}

func (t *Tab) saverProgress(done, total int64) {
	if t.state != StateSaving {
		return
	}
	if t.trackProgress(done, total) {
		t.showSavingInfoBar()
	}
	t.setProgress(done, total)
}

func (t *Tab) showSavingInfoBar() {
	if t.bars.Current() != nil || t.saveTask == nil {
		return
	}
	bar := infobar.NewSaving(t.saveTask.saver.Location(), t.doc.ShortName())
	t.setInfoBar(bar, infobar.ResponseNone)
}

// finishSave resolves the pending task and forgets it
func (t *Tab) finishSave(ok bool) {
	task := t.saveTask
	if task == nil {
		return
	}
	t.saveTask = nil
	task.resolve(ok)
}

// saveErrorBar picks the bar for a failed save. Recoverable errors come
// first, in order: external modification, backup failure, invalid chars.
// Conversion problems offer another encoding; everything else is final.
func (t *Tab) saveErrorBar(location string, err error) *infobar.Bar {
	var bar *infobar.Bar
	switch {
	case errors.Is(err, fileio.ErrExternallyModified):
		bar = infobar.NewExternallyModifiedSaving(location, err)
		bar.Responded.Connect(t.externallyModifiedErrorResponse)
	case errors.Is(err, fileio.ErrCantCreateBackup):
		bar = infobar.NewNoBackupSaving(location, err)
		bar.Responded.Connect(t.noBackupErrorResponse)
	case errors.Is(err, fileio.ErrInvalidChars):
		bar = infobar.NewInvalidCharacter(location)
		bar.Responded.Connect(t.invalidCharacterResponse)
	case unrecoverableSaveError(err):
		t.removeFromRecentsIfLocal(location)
		bar = infobar.NewUnrecoverableSaving(location, err)
		bar.Responded.Connect(t.unrecoverableSavingErrorResponse)
	default:
		bar = infobar.NewConversionErrorWhileSaving(location, t.saveTask.saver.Encoding(), err)
		bar.Responded.Connect(func(r infobar.Response) { t.recoverableSavingErrorResponse(bar, r) })
	}
	return bar
}

func unrecoverableSaveError(err error) bool {
	if fileio.InDomain(err, fileio.DomainSaver) {
		return true
	}
	if fileio.InDomain(err, fileio.DomainIO) {
		return !errors.Is(err, fileio.ErrInvalidData) && !errors.Is(err, fileio.ErrPartialInput)
	}
	// anything that is not a transport error cannot be retried either
	return !fileio.InDomain(err, fileio.DomainConvert)
}

func (t *Tab) saveDone(err error) {
	t.timing = false
	t.setInfoBar(nil, infobar.ResponseNone)
	location := t.saveTask.saver.Location()

	if err != nil {
		t.setState(StateSavingError)
		bar := t.saveErrorBar(location, err)
		t.setInfoBar(bar, infobar.ResponseCancel)
		return
	}

	if t.deps.Recents != nil {
		t.deps.Recents.Add(location, t.doc.MimeType())
	}
	t.setState(StateNormal)
	t.askIfExternallyModified = true
	t.changedOnDisk = false
	t.doc.NotifySaved(nil)
	t.finishSave(true)
}

// setRetryFlags recomputes the backup bit of a retried save
func (t *Tab) setRetryFlags(flags fileio.Flags) {
	if t.deps.Prefs.CreateBackups() && !t.saveTask.forceNoBackup {
		flags |= fileio.FlagCreateBackup
	} else {
		flags &^= fileio.FlagCreateBackup
	}
	t.saveTask.saver.SetFlags(flags)
}

func (t *Tab) unrecoverableSavingErrorResponse(infobar.Response) {
	t.setState(StateNormal)
	t.setInfoBar(nil, infobar.ResponseNone)
	t.finishSave(false)
	t.view.GrabFocus()
}

func (t *Tab) externallyModifiedErrorResponse(r infobar.Response) {
	if r != infobar.ResponseYes {
		t.unrecoverableSavingErrorResponse(r)
		return
	}
	t.setInfoBar(nil, infobar.ResponseNone)
	// only this save ignores the modification time
	saver := t.saveTask.saver
	saver.SetFlags(saver.Flags() | fileio.FlagIgnoreModificationTime)
	t.save()
}

func (t *Tab) noBackupErrorResponse(r infobar.Response) {
	if r != infobar.ResponseYes {
		t.unrecoverableSavingErrorResponse(r)
		return
	}
	t.setInfoBar(nil, infobar.ResponseNone)
	t.saveTask.forceNoBackup = true
	t.setRetryFlags(t.saveTask.saver.Flags())
	t.save()
}

func (t *Tab) invalidCharacterResponse(r infobar.Response) {
	if r != infobar.ResponseYes {
		t.unrecoverableSavingErrorResponse(r)
		return
	}
	t.setInfoBar(nil, infobar.ResponseNone)
	t.saveFlags |= fileio.FlagIgnoreInvalidChars
	t.setRetryFlags(t.saveTask.saver.Flags() | fileio.FlagIgnoreInvalidChars)
	t.save()
}

func (t *Tab) recoverableSavingErrorResponse(bar *infobar.Bar, r infobar.Response) {
	if r != infobar.ResponseOK {
		t.unrecoverableSavingErrorResponse(r)
		return
	}
	enc := bar.SelectedEncoding()
	t.setInfoBar(nil, infobar.ResponseNone)
	if enc != nil {
		t.saveTask.saver.SetEncoding(enc)
	}
	t.save()
}

// AutoSaveEnabled reports whether the periodic save is on
func (t *Tab) AutoSaveEnabled() bool { return t.autoSave }

// SetAutoSaveEnabled turns the periodic save on or off. Lockdown forces it
// off. No timer runs for untitled or read-only documents.
func (t *Tab) SetAutoSaveEnabled(enable bool) {
	if t.deps.Lockdown.SaveToDisk {
		enable = false
	}
	if t.autoSave != enable {
		t.autoSave = enable
		t.updateAutoSaveTimeout()
	}
}

// AutoSaveInterval is the period in minutes
func (t *Tab) AutoSaveInterval() int { return t.autoSaveInterval }

func (t *Tab) SetAutoSaveInterval(minutes int) error {
	if minutes <= 0 {
		return ErrBadInterval
	}
	if t.autoSaveInterval != minutes {
		t.autoSaveInterval = minutes
		t.removeAutoSaveTimeout()
		t.updateAutoSaveTimeout()
	}
	return nil
}

// AutoSaveScheduled reports whether an auto-save timer is installed
func (t *Tab) AutoSaveScheduled() bool { return t.autoSaveTimer != nil }

func (t *Tab) installAutoSaveTimeout() {
	if t.autoSaveTimer != nil {
		return
	}
	d := time.Duration(t.autoSaveInterval) * time.Minute
	t.autoSaveTimer = t.deps.Sched.Every(d, t.autoSaveTick)
}

func (t *Tab) removeAutoSaveTimeout() {
	if t.autoSaveTimer != nil {
		t.autoSaveTimer.Stop()
		t.autoSaveTimer = nil
	}
}

func (t *Tab) updateAutoSaveTimeout() {
	if t.state == StateNormal && t.autoSave && !t.doc.IsUntitled() &&
		!t.doc.IsReadOnly() && !t.deps.Prefs.AutoSaveExcluded(fileio.LocalPath(t.doc.Location())) {
		t.installAutoSaveTimeout()
	} else {
		t.removeAutoSaveTimeout()
	}
}

// autoSaveTick runs from the auto-save timer and reports whether the
// timer should keep running
func (t *Tab) autoSaveTick() bool {
	if t.doc.IsUntitled() || t.doc.IsReadOnly() {
		warn("auto-save of an untitled or read-only document")
		t.autoSaveTimer = nil
		return false
	}
	if !t.doc.IsModified() {
		return true
	}
	if t.state != StateNormal {
		// the regular timer is dropped; this retry takes its place
		t.autoSaveTimer = t.deps.Sched.Every(autoSaveRetry, t.autoSaveTick)
		return false
	}
	t.autoSaveTimer = nil
	if t.saveTask != nil {
		warn("file saver already exists")
		return false
	}

	task := newSaveTask(context.Background())
	task.saver = t.deps.Transport.NewSaver(t.doc, t.doc.Location())
	task.saver.SetFlags(t.initialSaveFlags(true))
	t.saveTask = task
	t.save()
	return false
}
