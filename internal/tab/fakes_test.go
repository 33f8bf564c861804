package tab

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/ellery/scribe/internal/config"
	"github.com/ellery/scribe/internal/document"
	"github.com/ellery/scribe/internal/encoding"
	"github.com/ellery/scribe/internal/fileio"
	"github.com/ellery/scribe/internal/loop"
	"github.com/ellery/scribe/internal/printing"
	"github.com/ellery/scribe/internal/signal"
)

// =============================================================================
// Document and view
// =============================================================================

type fakeDoc struct {
	*document.Buffer
	readOnly           bool
	externallyModified bool
}

func newFakeDoc() *fakeDoc {
	return &fakeDoc{Buffer: document.New(nil)}
}

func (d *fakeDoc) IsReadOnly() bool { return d.readOnly }

func (d *fakeDoc) CheckExternallyModified() bool { return d.externallyModified }

type fakeView struct {
	editable      bool
	cursorVisible bool
	highlight     bool
	visible       bool
	busy          bool
	scrolls       int
	focus         int
	dropped       signal.Signal[[]string]
}

func (v *fakeView) SetEditable(e bool)                    { v.editable = e }
func (v *fakeView) SetCursorVisible(c bool)               { v.cursorVisible = c }
func (v *fakeView) SetHighlightCurrentLine(h bool)        { v.highlight = h }
func (v *fakeView) SetVisible(vis bool)                   { v.visible = vis }
func (v *fakeView) SetBusy(b bool)                        { v.busy = b }
func (v *fakeView) ScrollToCursor()                       { v.scrolls++ }
func (v *fakeView) GrabFocus()                            { v.focus++ }
func (v *fakeView) DroppedURIs() *signal.Signal[[]string] { return &v.dropped }

// =============================================================================
// Transport
// =============================================================================

type fakeLoader struct {
	content    fileio.Content
	location   string
	candidates []*encoding.Encoding
	used       *encoding.Encoding
	ctx        context.Context
	progress   fileio.Progress
	done       func(error)
}

func (l *fakeLoader) SetCandidateEncodings(encs []*encoding.Encoding) { l.candidates = encs }
func (l *fakeLoader) Encoding() *encoding.Encoding                    { return l.used }
func (l *fakeLoader) Location() string                                { return l.location }

func (l *fakeLoader) Load(ctx context.Context, progress fileio.Progress, done func(error)) {
	l.ctx = ctx
	l.progress = progress
	l.done = done
}

// finish completes the load as the transport would
func (l *fakeLoader) finish(text string, err error) {
	if err == nil || errors.Is(err, fileio.ErrConversionFallback) {
		l.content.SetText(text)
		if len(l.candidates) > 0 {
			l.used = l.candidates[0]
		}
	}
	l.done(err)
}

type fakeSaver struct {
	content     fileio.Content
	location    string
	enc         *encoding.Encoding
	newline     fileio.NewlineType
	compression fileio.CompressionType
	flags       fileio.Flags
	saves       []fileio.Flags
	progress    fileio.Progress
	done        func(error)
}

func (s *fakeSaver) Location() string                            { return s.location }
func (s *fakeSaver) SetEncoding(enc *encoding.Encoding)          { s.enc = enc }
func (s *fakeSaver) Encoding() *encoding.Encoding                { return s.enc }
func (s *fakeSaver) SetNewlineType(n fileio.NewlineType)         { s.newline = n }
func (s *fakeSaver) SetCompressionType(c fileio.CompressionType) { s.compression = c }
func (s *fakeSaver) SetFlags(f fileio.Flags)                     { s.flags = f }
func (s *fakeSaver) Flags() fileio.Flags                         { return s.flags }

func (s *fakeSaver) Save(ctx context.Context, progress fileio.Progress, done func(error)) {
	s.saves = append(s.saves, s.flags)
	s.progress = progress
	s.done = done
}

func (s *fakeSaver) finish(err error) {
	if err == nil {
		s.content.File().SetLocation(s.location)
	}
	s.done(err)
}

type fakeTransport struct {
	loaders []*fakeLoader
	savers  []*fakeSaver
}

func (tr *fakeTransport) NewLoader(c fileio.Content, location string) fileio.Loader {
	l := &fakeLoader{content: c, location: location}
	tr.loaders = append(tr.loaders, l)
	return l
}

func (tr *fakeTransport) NewStreamLoader(c fileio.Content, r io.Reader) fileio.Loader {
	l := &fakeLoader{content: c}
	tr.loaders = append(tr.loaders, l)
	return l
}

func (tr *fakeTransport) NewSaver(c fileio.Content, location string) fileio.Saver {
	s := &fakeSaver{content: c, location: location, enc: encoding.UTF8()}
	tr.savers = append(tr.savers, s)
	return s
}

func (tr *fakeTransport) lastLoader() *fakeLoader { return tr.loaders[len(tr.loaders)-1] }

func (tr *fakeTransport) lastSaver() *fakeSaver { return tr.savers[len(tr.savers)-1] }

// =============================================================================
// Preferences, recents, container
// =============================================================================

type fakePrefs struct {
	createBackup bool
	autoSave     bool
	interval     int
	restore      bool
	highlight    bool
	encodings    []string
	excluded     string
}

func (p *fakePrefs) CreateBackups() bool                 { return p.createBackup }
func (p *fakePrefs) AutoSaveDefaults() (bool, int)       { return p.autoSave, p.interval }
func (p *fakePrefs) RestoreCursorPosition() bool         { return p.restore }
func (p *fakePrefs) HighlightLine() bool                 { return p.highlight }
func (p *fakePrefs) EncodingCandidates() []string        { return p.encodings }
func (p *fakePrefs) AutoSaveExcluded(path string) bool   { return p.excluded != "" && path == p.excluded }

type fakeRecents struct {
	added   []string
	removed []string
}

func (r *fakeRecents) Add(location, mimeType string) { r.added = append(r.added, location) }
func (r *fakeRecents) Remove(location string)        { r.removed = append(r.removed, location) }

type fakeContainer struct {
	removed []*Tab
}

func (c *fakeContainer) RemoveTab(t *Tab) {
	c.removed = append(c.removed, t)
	t.Dispose()
}

// =============================================================================
// Printing
// =============================================================================

type fakeJob struct {
	events    printing.Events
	action    printing.Action
	settings  printing.Settings
	setup     *printing.PageSetup
	status    string
	progress  float64
	startErr  error
	cancelled bool
}

func (j *fakeJob) Events() *printing.Events         { return &j.events }
func (j *fakeJob) Cancel()                          { j.cancelled = true }
func (j *fakeJob) StatusString() string             { return j.status }
func (j *fakeJob) Progress() float64                { return j.progress }
func (j *fakeJob) Settings() printing.Settings      { return j.settings }
func (j *fakeJob) PageSetup() *printing.PageSetup   { return j.setup }

func (j *fakeJob) Print(action printing.Action, setup *printing.PageSetup, settings printing.Settings) error {
	if j.startErr != nil {
		return j.startErr
	}
	j.action = action
	j.setup = setup
	j.settings = settings
	return nil
}

type fakePrinter struct {
	jobs     []*fakeJob
	startErr error
}

func (p *fakePrinter) NewJob(title, text string) printing.Job {
	j := &fakeJob{startErr: p.startErr}
	p.jobs = append(p.jobs, j)
	return j
}

type memDefaults struct {
	setup    *printing.PageSetup
	settings printing.Settings
}

func (d *memDefaults) PageSetup() *printing.PageSetup        { return d.setup.Copy() }
func (d *memDefaults) PrintSettings() printing.Settings      { return d.settings.Copy() }
func (d *memDefaults) SetPageSetup(p *printing.PageSetup)    { d.setup = p.Copy() }
func (d *memDefaults) SetPrintSettings(s printing.Settings)  { d.settings = s.Copy() }

// =============================================================================
// Fixture
// =============================================================================

type fixture struct {
	sched     *loop.Manual
	transport *fakeTransport
	prefs     *fakePrefs
	recents   *fakeRecents
	container *fakeContainer
	printer   *fakePrinter
	defaults  *memDefaults
	others    []Document
	doc       *fakeDoc
	view      *fakeView
	tab       *Tab
}

func newFixture(t *testing.T, opts ...func(*fixture, *Deps)) *fixture {
	t.Helper()
	f := &fixture{
		sched:     loop.NewManual(),
		transport: &fakeTransport{},
		prefs:     &fakePrefs{createBackup: true, autoSave: true, interval: 1, highlight: true},
		recents:   &fakeRecents{},
		container: &fakeContainer{},
		printer:   &fakePrinter{},
		defaults:  &memDefaults{setup: printing.DefaultPageSetup(), settings: printing.Settings{}},
		doc:       newFakeDoc(),
		view:      &fakeView{},
	}
	deps := Deps{
		Sched:         f.sched,
		Transport:     f.transport,
		Prefs:         f.prefs,
		Recents:       f.recents,
		Printer:       f.printer,
		PrintDefaults: f.defaults,
		OpenDocuments: func() []Document { return f.others },
	}
	for _, o := range opts {
		o(f, &deps)
	}
	f.tab = New(f.doc, f.view, deps)
	f.tab.SetContainer(f.container)
	t.Cleanup(func() { f.tab.Dispose() })
	return f
}

func withLockdown(l config.Lockdown) func(*fixture, *Deps) {
	return func(_ *fixture, d *Deps) { d.Lockdown = l }
}

// loaded brings the tab to Normal with path loaded and the text unmodified
func (f *fixture) loaded(t *testing.T, path, text string) {
	t.Helper()
	if err := f.tab.Load(path, nil, 0, 0, false); err != nil {
		t.Fatalf("load: %v", err)
	}
	f.transport.lastLoader().finish(text, nil)
	f.sched.Flush()
	if f.tab.State() != StateNormal {
		t.Fatalf("state after load = %s", f.tab.State())
	}
}
