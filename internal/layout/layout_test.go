package layout

import (
	"strings"
	"testing"

	"github.com/micro-editor/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ellery/scribe/internal/config"
	"github.com/ellery/scribe/internal/document"
	"github.com/ellery/scribe/internal/encoding"
	"github.com/ellery/scribe/internal/fileio"
	"github.com/ellery/scribe/internal/infobar"
	"github.com/ellery/scribe/internal/loop"
	"github.com/ellery/scribe/internal/pane"
	"github.com/ellery/scribe/internal/printing"
	"github.com/ellery/scribe/internal/tab"
)

type stubPrefs struct{}

func (stubPrefs) CreateBackups() bool               { return false }
func (stubPrefs) AutoSaveDefaults() (bool, int)     { return false, 10 }
func (stubPrefs) RestoreCursorPosition() bool       { return false }
func (stubPrefs) HighlightLine() bool               { return false }
func (stubPrefs) EncodingCandidates() []string      { return nil }
func (stubPrefs) AutoSaveExcluded(path string) bool { return false }

type env struct {
	screen tcell.SimulationScreen
	panes  *pane.Manager
	lm     *LayoutManager
}

func newEnv(t *testing.T, w, h int) *env {
	t.Helper()
	config.InitColorscheme(nil)
	s := tcell.NewSimulationScreen("")
	require.NoError(t, s.Init())
	s.SetSize(w, h)
	t.Cleanup(s.Fini)

	sched := loop.NewManual()
	e := &env{screen: s}
	e.panes = pane.NewManager(func() *tab.Tab {
		doc := document.New(nil)
		return tab.New(doc, NewTextView(doc), tab.Deps{Sched: sched, Prefs: stubPrefs{}})
	})
	t.Cleanup(e.panes.CloseAllTabs)
	e.lm = NewLayoutManager(e.panes)
	e.lm.Resize(w, h)
	return e
}

// open adds a tab showing location and text to nb
func (e *env) open(nb *pane.Notebook, location, text string) *tab.Tab {
	doc := document.New(nil)
	doc.File().SetLocation(location)
	doc.SetText(text)
	tb := tab.New(doc, NewTextView(doc), tab.Deps{Sched: loop.NewManual(), Prefs: stubPrefs{}})
	nb.AddTab(tb, -1, true)
	return tb
}

func (e *env) render() {
	e.lm.Render(e.screen)
}

func (e *env) row(y int) string {
	w, _ := e.screen.Size()
	var sb strings.Builder
	for x := 0; x < w; x++ {
		r, _, _, _ := e.screen.GetContent(x, y)
		if r == 0 {
			r = ' '
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func key(k tcell.Key) *tcell.EventKey {
	return tcell.NewEventKey(k, 0, tcell.ModNone, "")
}

func runeKey(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone, "")
}

func click(x, y int) *tcell.EventMouse {
	return tcell.NewEventMouse(x, y, tcell.Button1, tcell.ModNone, "")
}

// =============================================================================
// Tab strip
// =============================================================================

func TestTabBar_LabelsAndHits(t *testing.T) {
	e := newEnv(t, 60, 10)
	main := e.panes.ActiveNotebook()
	a := e.open(main, "/tmp/a.txt", "alpha")
	e.open(main, "/tmp/b.txt", "beta")
	e.render()

	// one blank cell separates the labels
	assert.True(t, strings.HasPrefix(e.row(0), " a.txt ×   b.txt × "), e.row(0))

	strip := e.lm.view(main).strip
	i, closeHit := strip.TabAt(1, 0)
	assert.Equal(t, 0, i)
	assert.False(t, closeHit)
	i, closeHit = strip.TabAt(7, 0)
	assert.Equal(t, 0, i)
	assert.True(t, closeHit)
	i, _ = strip.TabAt(9, 0)
	assert.Equal(t, -1, i)
	i, _ = strip.TabAt(10, 0)
	assert.Equal(t, 1, i)
	i, _ = strip.TabAt(12, 0)
	assert.Equal(t, 1, i)
	i, _ = strip.TabAt(50, 0)
	assert.Equal(t, -1, i)

	// clicking a label selects it
	require.True(t, e.lm.HandleEvent(click(2, 0)))
	assert.Same(t, a, e.panes.ActiveTab())
}

func TestTabBar_ModifiedAndIcon(t *testing.T) {
	e := newEnv(t, 60, 10)
	main := e.panes.ActiveNotebook()
	a := e.open(main, "/tmp/a.txt", "alpha")
	a.Document().SetModified(true)
	e.render()
	assert.True(t, strings.HasPrefix(e.row(0), " *a.txt × "))
}

func TestTabBar_CloseButtonRequestsClose(t *testing.T) {
	e := newEnv(t, 60, 10)
	main := e.panes.ActiveNotebook()
	a := e.open(main, "/tmp/a.txt", "alpha")
	e.render()

	var requested []*tab.Tab
	e.panes.TabCloseRequest.Connect(func(ev pane.TabEvent) { requested = append(requested, ev.Tab) })
	require.True(t, e.lm.HandleEvent(click(7, 0)))
	assert.Equal(t, []*tab.Tab{a}, requested)
}

func TestTabBar_RightClickShowsPopup(t *testing.T) {
	e := newEnv(t, 60, 10)
	e.open(e.panes.ActiveNotebook(), "/tmp/a.txt", "alpha")
	e.render()

	var popups []pane.PopupEvent
	e.panes.ShowPopupMenu.Connect(func(ev pane.PopupEvent) { popups = append(popups, ev) })
	require.True(t, e.lm.HandleEvent(tcell.NewEventMouse(3, 0, tcell.Button3, tcell.ModNone, "")))
	assert.Equal(t, []pane.PopupEvent{{X: 3, Y: 0}}, popups)
}

// =============================================================================
// Splits
// =============================================================================

func TestLayout_SplitRegionsAndDividers(t *testing.T) {
	e := newEnv(t, 81, 22)
	main := e.panes.ActiveNotebook()
	e.open(main, "/tmp/a.txt", "alpha")
	right := e.panes.AddNewNotebook(pane.Horizontal)
	e.render()

	assert.Equal(t, pane.Rect{X: 0, Y: 0, W: 40, H: 21}, e.lm.Region(main))
	assert.Equal(t, pane.Rect{X: 41, Y: 0, W: 40, H: 21}, e.lm.Region(right))
	assert.Equal(t, pane.Rect{X: 0, Y: 1, W: 40, H: 20}, e.lm.TextRegion(main))

	r, _, _, _ := e.screen.GetContent(40, 5)
	assert.Equal(t, '│', r)
	assert.Equal(t, "alpha", strings.TrimSpace(e.row(1)[:40]))

	// a click in the other notebook focuses it
	e.lm.HandleEvent(click(5, 5))
	assert.Same(t, main, e.panes.ActiveNotebook())
	assert.Same(t, main, e.lm.NotebookAt(5, 5))
	assert.Nil(t, e.lm.NotebookAt(40, 25))
}

func TestLayout_RemovedNotebookForgetsItsView(t *testing.T) {
	e := newEnv(t, 80, 20)
	e.open(e.panes.ActiveNotebook(), "/tmp/a.txt", "alpha")
	right := e.panes.AddNewNotebook(pane.Vertical)
	e.render()
	require.Contains(t, e.lm.views, right)

	e.panes.RemoveNotebook(right)
	assert.NotContains(t, e.lm.views, right)
}

// =============================================================================
// Info bar
// =============================================================================

func TestInfoBar_HeightAndButtons(t *testing.T) {
	e := newEnv(t, 80, 20)
	tb := e.open(e.panes.ActiveNotebook(), "/tmp/a.txt", "alpha")

	bar := infobar.New(infobar.MessageError, "Could not open the file", "Permission denied",
		infobar.Button{Label: "Retry", Response: infobar.ResponseOK},
		infobar.Button{Label: "Cancel", Response: infobar.ResponseCancel})
	var got []infobar.Response
	bar.Responded.Connect(func(r infobar.Response) { got = append(got, r) })
	tb.SetInfoBar(bar)
	bar.SetDefaultResponse(infobar.ResponseOK)
	assert.Equal(t, 2, Height(bar))

	e.render()
	assert.Contains(t, e.row(1), "Could not open the file")
	assert.Contains(t, e.row(1), "[Retry] [Cancel]")
	assert.Contains(t, e.row(2), "Permission denied")
	assert.Equal(t, pane.Rect{X: 0, Y: 3, W: 80, H: 16}, e.lm.TextRegion(e.panes.ActiveNotebook()))

	x := strings.Index(e.row(1), "[Cancel]")
	require.True(t, e.lm.HandleEvent(click(x+1, 1)))
	require.True(t, e.lm.HandleEvent(key(tcell.KeyEnter)))
	require.True(t, e.lm.HandleEvent(key(tcell.KeyEscape)))
	assert.Equal(t, []infobar.Response{infobar.ResponseCancel, infobar.ResponseOK, infobar.ResponseCancel}, got)
}

func TestInfoBar_EncodingChoiceAndProgress(t *testing.T) {
	bar := infobar.NewIOLoadingError("/tmp/a.txt", encoding.UTF8(), fileio.ErrEncodingAutoDetectionFailed)
	bar.Show()
	require.True(t, bar.HasEncodingChoice())
	before := bar.SelectedEncoding()
	assert.Nil(t, before)
	assert.Equal(t, 3, Height(bar))
	v := &InfoBarView{Region: pane.Rect{W: 80, H: Height(bar)}}
	require.True(t, v.HandleEvent(bar, key(tcell.KeyDown)))
	assert.NotEqual(t, before, bar.SelectedEncoding())
	require.True(t, v.HandleEvent(bar, key(tcell.KeyUp)))
	assert.Equal(t, before, bar.SelectedEncoding())

	p := infobar.NewProgress("document-open", "Loading", true)
	p.Show()
	assert.Equal(t, 2, Height(p))
	assert.Equal(t, 0, Height(nil))
}

func TestInfoBar_ProgressGauge(t *testing.T) {
	e := newEnv(t, 40, 10)
	bar := infobar.NewProgress("document-open", "Loading a.txt", true)
	bar.Show()
	bar.SetFraction(0.5)
	v := &InfoBarView{Region: pane.Rect{X: 0, Y: 0, W: 40, H: Height(bar)}}
	v.Render(e.screen, bar)

	assert.Contains(t, e.row(0), "↓ Loading a.txt")
	gauge := e.row(1)
	assert.Equal(t, 19, strings.Count(gauge, "█"))
}

// =============================================================================
// Text view
// =============================================================================

func TestTextView_Editing(t *testing.T) {
	doc := document.New(nil)
	v := NewTextView(doc)

	for _, r := range "hi" {
		require.True(t, v.HandleEvent(runeKey(r)))
	}
	v.HandleEvent(key(tcell.KeyEnter))
	v.HandleEvent(runeKey('x'))
	assert.Equal(t, "hi\nx", doc.Text())

	v.HandleEvent(key(tcell.KeyBackspace2))
	assert.Equal(t, "hi\n", doc.Text())
	v.HandleEvent(key(tcell.KeyUp))
	line, col := doc.CursorLineColumn()
	assert.Equal(t, 1, line)
	assert.Equal(t, 1, col)
	v.HandleEvent(key(tcell.KeyEnd))
	_, col = doc.CursorLineColumn()
	assert.Equal(t, 3, col)

	// delete at the end of the text changes nothing
	doc.SetCursor(doc.CharCount())
	v.HandleEvent(key(tcell.KeyDelete))
	assert.Equal(t, "hi\n", doc.Text())
}

func TestTextView_ReadOnlyAndBusy(t *testing.T) {
	doc := document.New(nil)
	doc.SetText("text")
	v := NewTextView(doc)

	v.SetEditable(false)
	assert.False(t, v.HandleEvent(runeKey('a')))
	assert.True(t, v.HandleEvent(key(tcell.KeyRight)))
	assert.Equal(t, "text", doc.Text())

	v.SetBusy(true)
	assert.False(t, v.HandleEvent(key(tcell.KeyRight)))
}

func TestTextView_ScrollsToCursor(t *testing.T) {
	e := newEnv(t, 20, 6)
	doc := document.New(nil)
	doc.SetText(strings.Repeat("line\n", 30) + "last")
	v := NewTextView(doc)
	v.GrabFocus()
	doc.GotoLine(31, 1)
	v.Render(e.screen, pane.Rect{W: 20, H: 5})

	assert.Equal(t, 26, v.Top())
	assert.Equal(t, "last", strings.TrimSpace(e.row(4)))
}

func TestTextView_HiddenDrawsNothing(t *testing.T) {
	e := newEnv(t, 20, 4)
	doc := document.New(nil)
	doc.SetText("secret")
	v := NewTextView(doc)
	v.SetVisible(false)
	v.Render(e.screen, pane.Rect{W: 20, H: 3})
	assert.Equal(t, "", strings.TrimSpace(e.row(0)))
}

func TestTextView_Drop(t *testing.T) {
	v := NewTextView(document.New(nil))
	var got [][]string
	v.DroppedURIs().Connect(func(uris []string) { got = append(got, uris) })
	v.Drop(nil)
	v.Drop([]string{"file:///tmp/a.txt"})
	assert.Equal(t, [][]string{{"file:///tmp/a.txt"}}, got)
}

// =============================================================================
// Status line and modals
// =============================================================================

func TestStatusLine(t *testing.T) {
	e := newEnv(t, 80, 10)
	tb := e.open(e.panes.ActiveNotebook(), "/tmp/a.txt", "one\ntwo")
	tb.Document().GotoLine(2, 2)
	s := e.lm.Status

	assert.Equal(t, " a.txt", s.Left(tb))
	assert.Contains(t, s.Right(tb), "Ln 2, Col 2")
	assert.Equal(t, " No document", s.Left(nil))

	e.render()
	assert.True(t, strings.HasPrefix(e.row(9), " a.txt"))
}

func TestConfirmModal(t *testing.T) {
	e := newEnv(t, 80, 20)
	var answers []bool
	e.lm.ShowConfirmModal("Close", "Close a.txt?", "Unsaved changes will be lost", func(ok bool) {
		answers = append(answers, ok)
	})
	e.render()
	assert.True(t, e.lm.HandleModalEvent(click(0, 0)))
	assert.True(t, e.lm.HandleModalEvent(runeKey('y')))
	assert.False(t, e.lm.ConfirmModal.Active)
	assert.False(t, e.lm.HandleModalEvent(runeKey('y')))

	e.lm.ShowConfirmModal("Close", "Close a.txt?", "", func(ok bool) { answers = append(answers, ok) })
	e.lm.HandleModalEvent(key(tcell.KeyEscape))
	assert.Equal(t, []bool{true, false}, answers)
}

func TestInputModal(t *testing.T) {
	e := newEnv(t, 80, 20)
	var got string
	canceled := true
	e.lm.ShowInputModal("Save As", "Location:", "/tmp/ä", func(v string, c bool) {
		got, canceled = v, c
	})
	e.lm.HandleModalEvent(runeKey('b'))
	e.lm.HandleModalEvent(key(tcell.KeyLeft))
	e.lm.HandleModalEvent(key(tcell.KeyBackspace2))
	assert.Equal(t, "/tmp/b", e.lm.InputModal.Value())
	e.render()
	e.lm.HandleModalEvent(key(tcell.KeyEnter))
	assert.False(t, canceled)
	assert.Equal(t, "/tmp/b", got)
}

func TestQuickFind_SelectsTab(t *testing.T) {
	e := newEnv(t, 80, 24)
	main := e.panes.ActiveNotebook()
	readme := e.open(main, "/tmp/readme.md", "")
	e.open(main, "/tmp/main.go", "")
	require.NotSame(t, readme, e.panes.ActiveTab())

	e.lm.ShowQuickFind()
	assert.Len(t, e.lm.QuickFind.Results, 2)
	for _, r := range "rdm" {
		e.lm.HandleModalEvent(runeKey(r))
	}
	require.Len(t, e.lm.QuickFind.Results, 1)
	e.render()
	e.lm.HandleModalEvent(key(tcell.KeyEnter))
	assert.False(t, e.lm.QuickFind.Active)
	assert.Same(t, readme, e.panes.ActiveTab())
}

func TestShortcuts(t *testing.T) {
	e := newEnv(t, 80, 30)
	e.lm.ShowShortcuts(config.Bindings(nil))
	e.render()
	found := false
	for y := 0; y < 30; y++ {
		if strings.Contains(e.row(y), "Key Bindings") {
			found = true
		}
	}
	assert.True(t, found)
	e.lm.HandleModalEvent(key(tcell.KeyEscape))
	assert.False(t, e.lm.Shortcuts.Active)
}

func TestPreviewPane_EmptyPreview(t *testing.T) {
	e := newEnv(t, 60, 10)
	pp := &PreviewPane{Region: pane.Rect{W: 60, H: 10}}
	p := &printing.Preview{}
	pp.Render(e.screen, p)
	assert.Contains(t, e.row(0), "Page 1 of 0")
	assert.True(t, pp.HandleEvent(p, key(tcell.KeyPgDn)))
	assert.True(t, pp.HandleEvent(p, runeKey('p')))
	assert.True(t, pp.HandleEvent(p, key(tcell.KeyEscape)))
	assert.False(t, pp.HandleEvent(p, runeKey('z')))
}
