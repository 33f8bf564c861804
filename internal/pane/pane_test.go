package pane

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ellery/scribe/internal/document"
	"github.com/ellery/scribe/internal/encoding"
	"github.com/ellery/scribe/internal/fileio"
	"github.com/ellery/scribe/internal/loop"
	"github.com/ellery/scribe/internal/signal"
	"github.com/ellery/scribe/internal/tab"
)

type stubView struct {
	focus   int
	dropped signal.Signal[[]string]
}

func (v *stubView) SetEditable(bool)                      {}
func (v *stubView) SetCursorVisible(bool)                 {}
func (v *stubView) SetHighlightCurrentLine(bool)          {}
func (v *stubView) SetVisible(bool)                       {}
func (v *stubView) SetBusy(bool)                          {}
func (v *stubView) ScrollToCursor()                       {}
func (v *stubView) GrabFocus()                            { v.focus++ }
func (v *stubView) DroppedURIs() *signal.Signal[[]string] { return &v.dropped }

type stubPrefs struct{}

func (stubPrefs) CreateBackups() bool              { return false }
func (stubPrefs) AutoSaveDefaults() (bool, int)    { return false, 10 }
func (stubPrefs) RestoreCursorPosition() bool      { return false }
func (stubPrefs) HighlightLine() bool              { return false }
func (stubPrefs) EncodingCandidates() []string     { return nil }
func (stubPrefs) AutoSaveExcluded(path string) bool { return false }

// instantLoader finishes every load on the spot with empty text
type instantLoader struct {
	content fileio.Content
	enc     *encoding.Encoding
}

func (l *instantLoader) SetCandidateEncodings(encs []*encoding.Encoding) { l.enc = encs[0] }
func (l *instantLoader) Encoding() *encoding.Encoding                    { return l.enc }
func (l *instantLoader) Location() string                                { return l.content.File().Location() }

func (l *instantLoader) Load(ctx context.Context, progress fileio.Progress, done func(error)) {
	l.content.SetText("")
	done(nil)
}

// heldSaver keeps the save pending until release is called
type heldSaver struct {
	location string
	flags    fileio.Flags
	done     func(error)
}

func (s *heldSaver) Location() string                          { return s.location }
func (s *heldSaver) SetEncoding(*encoding.Encoding)            {}
func (s *heldSaver) Encoding() *encoding.Encoding              { return encoding.UTF8() }
func (s *heldSaver) SetNewlineType(fileio.NewlineType)         {}
func (s *heldSaver) SetCompressionType(fileio.CompressionType) {}
func (s *heldSaver) SetFlags(f fileio.Flags)                   { s.flags = f }
func (s *heldSaver) Flags() fileio.Flags                       { return s.flags }

func (s *heldSaver) Save(ctx context.Context, progress fileio.Progress, done func(error)) {
	s.done = done
}

func (s *heldSaver) release(err error) { s.done(err) }

type stubTransport struct {
	savers []*heldSaver
}

func (tr *stubTransport) NewLoader(c fileio.Content, location string) fileio.Loader {
	return &instantLoader{content: c}
}

func (tr *stubTransport) NewStreamLoader(c fileio.Content, r io.Reader) fileio.Loader {
	return &instantLoader{content: c}
}

func (tr *stubTransport) NewSaver(c fileio.Content, location string) fileio.Saver {
	s := &heldSaver{location: location}
	tr.savers = append(tr.savers, s)
	return s
}

type env struct {
	sched     *loop.Manual
	transport *stubTransport
	m         *Manager
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{sched: loop.NewManual(), transport: &stubTransport{}}
	e.m = NewManager(e.newTab)
	t.Cleanup(e.m.CloseAllTabs)
	return e
}

func (e *env) newTab() *tab.Tab {
	return tab.New(document.New(nil), &stubView{}, tab.Deps{
		Sched:     e.sched,
		Transport: e.transport,
		Prefs:     stubPrefs{},
	})
}

// open adds a fresh tab to nb
func (e *env) open(nb *Notebook) *tab.Tab {
	t := e.newTab()
	nb.AddTab(t, -1, true)
	return t
}

func sumTabs(m *Manager) int {
	n := 0
	for _, nb := range m.Notebooks() {
		n += nb.Len()
	}
	return n
}

// =============================================================================
// Notebook
// =============================================================================

func TestNotebook_AddAndRemove(t *testing.T) {
	e := newEnv(t)
	nb := e.m.ActiveNotebook()
	a := e.open(nb)
	b := e.open(nb)
	c := e.open(nb)

	assert.Equal(t, 3, nb.Len())
	assert.Same(t, c, nb.Current())
	assert.Equal(t, tab.Container(nb), a.Container())

	nb.SetCurrent(1)
	nb.RemoveTab(b)
	assert.Equal(t, []*tab.Tab{a, c}, nb.Tabs())
	assert.Same(t, c, nb.Current())
	assert.Nil(t, b.Container())
	assert.Nil(t, tab.FromDocument(b.Document()))
}

func TestNotebook_InsertBeforeCurrentKeepsSelection(t *testing.T) {
	e := newEnv(t)
	nb := e.m.ActiveNotebook()
	a := e.open(nb)
	b := e.newTab()
	nb.AddTab(b, 0, false)
	assert.Same(t, a, nb.Current())
	assert.Equal(t, 1, nb.CurrentIndex())
}

func TestNotebook_Reorder(t *testing.T) {
	e := newEnv(t)
	nb := e.m.ActiveNotebook()
	a := e.open(nb)
	b := e.open(nb)
	c := e.open(nb)
	var reordered int
	e.m.TabsReordered.Connect(func(struct{}) { reordered++ })

	nb.Reorder(c, 0)
	assert.Equal(t, []*tab.Tab{c, a, b}, nb.Tabs())
	assert.Same(t, c, nb.Current())
	assert.Equal(t, 1, reordered)
}

func TestNotebook_DetachKeepsTabAlive(t *testing.T) {
	e := newEnv(t)
	nb := e.m.ActiveNotebook()
	a := e.open(nb)
	var detached []TabEvent
	e.m.TabDetached.Connect(func(ev TabEvent) { detached = append(detached, ev) })

	nb.Detach(a)
	require.Len(t, detached, 1)
	assert.Same(t, nb, detached[0].Notebook)
	assert.Same(t, a, tab.FromDocument(a.Document()))
	assert.Equal(t, 0, e.m.TabCount())
	a.Dispose()
}

// =============================================================================
// Manager
// =============================================================================

func TestManager_TabCountMatchesNotebooks(t *testing.T) {
	e := newEnv(t)
	main := e.m.ActiveNotebook()
	check := func() {
		t.Helper()
		assert.Equal(t, sumTabs(e.m), e.m.TabCount())
	}
	e.m.TabAdded.Connect(func(TabEvent) { check() })
	e.m.TabRemoved.Connect(func(TabEvent) { check() })

	a := e.open(main)
	e.open(main)
	second := e.m.AddNewNotebook(Horizontal)
	x := e.open(second)
	third := e.m.AddNewNotebook(Vertical)
	e.open(third)
	check()
	assert.Equal(t, 6, e.m.TabCount())

	e.m.CloseTabs([]*tab.Tab{a, x})
	check()
	e.m.CloseAllTabs()
	check()
	assert.Equal(t, 0, e.m.TabCount())
	assert.Equal(t, 1, e.m.NotebookCount())
	assert.Nil(t, e.m.ActiveTab())
}

func TestManager_LastTabOfSplitRemovesIt(t *testing.T) {
	e := newEnv(t)
	main := e.m.ActiveNotebook()
	a := e.open(main)
	second := e.m.AddNewNotebook(Horizontal)
	require.Equal(t, 2, e.m.NotebookCount())
	require.Same(t, second, e.m.ActiveNotebook())

	var removed []*Notebook
	e.m.NotebookRemoved.Connect(func(nb *Notebook) { removed = append(removed, nb) })

	second.RemoveTab(second.Current())
	assert.Equal(t, []*Notebook{second}, removed)
	assert.Equal(t, 1, e.m.NotebookCount())
	assert.Same(t, main, e.m.ActiveNotebook())
	assert.Same(t, a, e.m.ActiveTab())
	assert.True(t, e.m.Root().IsLeaf())
	assert.Same(t, main, e.m.Root().Notebook())
}

func TestManager_LastTabOfSolePaneKeepsPane(t *testing.T) {
	e := newEnv(t)
	main := e.m.ActiveNotebook()
	a := e.open(main)
	var active []*tab.Tab
	e.m.ActiveTabChanged.Connect(func(t *tab.Tab) { active = append(active, t) })

	main.RemoveTab(a)
	assert.Equal(t, 1, e.m.NotebookCount())
	assert.Nil(t, e.m.ActiveTab())
	assert.Equal(t, []*tab.Tab{nil}, active)
}

func TestManager_MainNotebookIsNeverRemoved(t *testing.T) {
	e := newEnv(t)
	main := e.m.ActiveNotebook()
	e.m.RemoveNotebook(main)
	assert.Equal(t, 1, e.m.NotebookCount())

	e.open(main)
	e.m.RemoveNotebook(main)
	assert.Equal(t, 1, e.m.NotebookCount())
	assert.Equal(t, 1, main.Len())
}

func TestManager_RemoveNotebookClosesItsTabsAndFocusesNext(t *testing.T) {
	e := newEnv(t)
	main := e.m.ActiveNotebook()
	e.open(main)
	second := e.m.AddNewNotebook(Horizontal)
	e.open(second)
	third := e.m.AddNewNotebook(Horizontal)

	// removing the middle one focuses the one after it
	var tabsRemoved int
	e.m.TabRemoved.Connect(func(TabEvent) { tabsRemoved++ })
	main.GrabFocus()
	e.m.RemoveNotebook(second)
	assert.Equal(t, 2, tabsRemoved)
	assert.Equal(t, []*Notebook{main, third}, e.m.Notebooks())
	assert.Same(t, third, e.m.ActiveNotebook())
	assert.Same(t, third.Current(), e.m.ActiveTab())
	assert.Equal(t, 2, e.m.TabCount())

	// the last one wraps to the main notebook
	e.m.RemoveNotebook(third)
	assert.Same(t, main, e.m.ActiveNotebook())
	assert.Same(t, main.Current(), e.m.ActiveTab())
}

func TestManager_GlobalIndexRoundTrip(t *testing.T) {
	e := newEnv(t)
	main := e.m.ActiveNotebook()
	e.open(main)
	e.open(main)
	second := e.m.AddNewNotebook(Horizontal)
	e.open(second)
	main.GrabFocus()
	third := e.m.AddNewNotebook(Vertical)
	e.open(third)
	e.open(third)

	for i, tb := range e.m.AllTabs() {
		g := e.m.PageNum(tb)
		assert.Equal(t, i, g)
		nb, local := e.m.Locate(g)
		assert.Same(t, e.m.NotebookOf(tb), nb)
		assert.Same(t, tb, nb.Tab(local))
	}
	nb, local := e.m.Locate(e.m.TabCount())
	assert.Nil(t, nb)
	assert.Equal(t, -1, local)
}

func TestManager_SplitScenario(t *testing.T) {
	e := newEnv(t)
	main := e.m.ActiveNotebook()
	first := e.open(main)

	second := e.m.AddNewNotebook(Horizontal)
	assert.Equal(t, 2, e.m.NotebookCount())
	nb, _ := e.m.Locate(0)
	assert.Same(t, main, nb)
	assert.Equal(t, 0, e.m.PageNum(first))

	before := e.m.TabCount()
	added := e.open(second)
	assert.Equal(t, before+1, e.m.TabCount())
	assert.Equal(t, second.IndexOf(added)+main.Len(), e.m.PageNum(added))
}

func TestManager_AddNewTabBlocksEarlyFocus(t *testing.T) {
	e := newEnv(t)
	main := e.m.ActiveNotebook()
	e.open(main)

	var notebooks []*Notebook
	var tabs []*tab.Tab
	e.m.ActiveNotebookChanged.Connect(func(nb *Notebook) { notebooks = append(notebooks, nb) })
	e.m.ActiveTabChanged.Connect(func(t *tab.Tab) { tabs = append(tabs, t) })

	tb := e.m.AddNewTab(true, Horizontal)
	second := e.m.ActiveNotebook()
	assert.NotSame(t, main, second)
	assert.Equal(t, []*Notebook{second}, notebooks)
	assert.Equal(t, []*tab.Tab{tb}, tabs)
	assert.Same(t, tb, e.m.ActiveTab())

	// without a split the tab lands in the active notebook
	tb2 := e.m.AddNewTab(false, Horizontal)
	assert.Same(t, second, e.m.NotebookOf(tb2))
	assert.Same(t, tb2, e.m.ActiveTab())
}

func TestManager_SwitchIsIdempotent(t *testing.T) {
	e := newEnv(t)
	main := e.m.ActiveNotebook()
	e.open(main)
	b := e.open(main)
	var changes int
	e.m.ActiveTabChanged.Connect(func(*tab.Tab) { changes++ })

	main.SetCurrent(1)
	main.SetCurrent(1)
	assert.Equal(t, 0, changes)
	assert.Same(t, b, e.m.ActiveTab())

	main.SetCurrent(0)
	main.SetCurrent(0)
	assert.Equal(t, 1, changes)
}

func TestManager_SetActiveTabAcrossNotebooks(t *testing.T) {
	e := newEnv(t)
	main := e.m.ActiveNotebook()
	a := e.open(main)
	e.open(main)
	second := e.m.AddNewNotebook(Horizontal)

	e.m.SetActiveTab(a)
	assert.Same(t, main, e.m.ActiveNotebook())
	assert.Same(t, a, e.m.ActiveTab())

	e.m.SetCurrentPage(2)
	assert.Same(t, second, e.m.ActiveNotebook())
	assert.Same(t, second.Current(), e.m.ActiveTab())
}

func TestManager_PreviousNextWrap(t *testing.T) {
	e := newEnv(t)
	main := e.m.ActiveNotebook()
	e.open(main)
	second := e.m.AddNewNotebook(Horizontal)
	third := e.m.AddNewNotebook(Horizontal)

	e.m.NextNotebook()
	assert.Same(t, main, e.m.ActiveNotebook())
	e.m.PreviousNotebook()
	assert.Same(t, third, e.m.ActiveNotebook())
	e.m.PreviousNotebook()
	assert.Same(t, second, e.m.ActiveNotebook())
}

func TestManager_ForwardsNotebookEvents(t *testing.T) {
	e := newEnv(t)
	main := e.m.ActiveNotebook()
	a := e.open(main)

	var closeReq []TabEvent
	var popups []PopupEvent
	e.m.TabCloseRequest.Connect(func(ev TabEvent) { closeReq = append(closeReq, ev) })
	e.m.ShowPopupMenu.Connect(func(ev PopupEvent) { popups = append(popups, ev) })

	main.RequestClose(a)
	main.ShowPopupMenu(3, 4)
	assert.Equal(t, []TabEvent{{main, a}}, closeReq)
	assert.Equal(t, []PopupEvent{{3, 4}}, popups)

	// a removed notebook no longer forwards
	second := e.m.AddNewNotebook(Horizontal)
	e.m.RemoveNotebook(second)
	second.ShowPopupMenu(1, 1)
	assert.Len(t, popups, 1)
}

func TestManager_CloseTabWaitsForSave(t *testing.T) {
	e := newEnv(t)
	main := e.m.ActiveNotebook()
	a := e.open(main)
	require.NoError(t, a.Load("/tmp/notes.txt", nil, 0, 0, false))
	e.sched.Flush()
	require.Equal(t, tab.StateNormal, a.State())

	_, err := a.Save(context.Background())
	require.NoError(t, err)
	e.m.CloseTab(a)
	assert.Equal(t, 1, main.Len())

	e.transport.savers[0].release(nil)
	assert.Equal(t, 0, main.Len())
}

func TestManager_CloseAllTabsWaitsForSave(t *testing.T) {
	e := newEnv(t)
	main := e.m.ActiveNotebook()
	a := e.open(main)
	e.open(main)
	require.NoError(t, a.Load("/tmp/notes.txt", nil, 0, 0, false))
	e.sched.Flush()
	split := e.m.AddNewNotebook(Horizontal)
	e.open(split)

	task, err := a.Save(context.Background())
	require.NoError(t, err)
	e.m.CloseAllTabs()
	assert.Equal(t, 1, e.m.NotebookCount())
	assert.Equal(t, []*tab.Tab{a}, main.Tabs())

	e.transport.savers[0].release(nil)
	<-task.Done()
	assert.True(t, task.Succeeded())
	assert.Equal(t, 0, main.Len())
}

func TestManager_RemoveActiveNotebookWaitsForSave(t *testing.T) {
	e := newEnv(t)
	e.open(e.m.ActiveNotebook())
	split := e.m.AddNewNotebook(Horizontal)
	a := e.open(split)
	require.NoError(t, a.Load("/tmp/notes.txt", nil, 0, 0, false))
	e.sched.Flush()
	require.Same(t, split, e.m.ActiveNotebook())

	_, err := a.Save(context.Background())
	require.NoError(t, err)
	e.m.RemoveActiveNotebook()
	assert.Equal(t, 2, e.m.NotebookCount())

	e.transport.savers[0].release(nil)
	assert.Equal(t, 1, e.m.NotebookCount())
	assert.Equal(t, 1, sumTabs(e.m))
}

func TestManager_FindTabs(t *testing.T) {
	e := newEnv(t)
	main := e.m.ActiveNotebook()
	a := e.open(main)
	b := e.open(main)
	require.NoError(t, a.Load("/tmp/readme.md", nil, 0, 0, false))
	require.NoError(t, b.Load("/tmp/main.go", nil, 0, 0, false))

	found := e.m.FindTabs("rdm")
	require.NotEmpty(t, found)
	assert.Same(t, a, found[0])
	assert.Len(t, e.m.FindTabs(""), 2)
}

// =============================================================================
// Split tree
// =============================================================================

func TestSplitLayout(t *testing.T) {
	e := newEnv(t)
	main := e.m.ActiveNotebook()
	e.open(main)
	right := e.m.AddNewNotebook(Horizontal)
	bottom := e.m.AddNewNotebook(Vertical)

	regions, dividers := e.m.Root().Layout(Rect{0, 0, 81, 21})
	assert.Equal(t, Rect{0, 0, 40, 21}, regions[main])
	assert.Equal(t, Rect{41, 0, 40, 10}, regions[right])
	assert.Equal(t, Rect{41, 11, 40, 10}, regions[bottom])
	assert.Len(t, dividers, 2)
	assert.Equal(t, Divider{X: 40, Y: 0, Len: 21, Vertical: true}, dividers[0])
	assert.Equal(t, []*Notebook{main, right, bottom}, e.m.Root().Leaves())

	// removing the top right half promotes the bottom one
	e.m.RemoveNotebook(right)
	regions, _ = e.m.Root().Layout(Rect{0, 0, 81, 21})
	assert.Equal(t, Rect{41, 0, 40, 21}, regions[bottom])
	assert.Equal(t, []*Notebook{main, bottom}, e.m.Root().Leaves())
}
