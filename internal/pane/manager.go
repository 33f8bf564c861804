package pane

import (
	"log"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/ellery/scribe/internal/signal"
	"github.com/ellery/scribe/internal/tab"
)

// TabEvent carries a tab and the notebook it happened in
type TabEvent struct {
	Notebook *Notebook
	Tab      *tab.Tab
}

// links are the manager's handlers on one notebook
type links struct {
	focus     signal.HandlerID
	added     signal.HandlerID
	removed   signal.HandlerID
	switched  signal.HandlerID
	reordered signal.HandlerID
	detached  signal.HandlerID
	closeReq  signal.HandlerID
	popup     signal.HandlerID
}

// removal marks a notebook removal in progress. Tabs removed while it is
// held never remove their notebook themselves.
type removal struct {
	notebook *Notebook
}

// Manager owns the notebooks of a window. The first notebook is the main
// one and is never removed.
type Manager struct {
	notebooks []*Notebook
	active    *Notebook
	activeTab *tab.Tab
	totalTabs int
	root      *Node
	links     map[*Notebook]*links
	removing  *removal
	newTab    func() *tab.Tab

	NotebookAdded   signal.Signal[*Notebook]
	NotebookRemoved signal.Signal[*Notebook]
	TabAdded        signal.Signal[TabEvent]
	TabRemoved      signal.Signal[TabEvent]
	TabCloseRequest signal.Signal[TabEvent]
	TabDetached     signal.Signal[TabEvent]
	TabsReordered   signal.Signal[struct{}]
	ShowPopupMenu   signal.Signal[PopupEvent]

	// ActiveNotebookChanged and ActiveTabChanged fire after the active
	// notebook or tab changed. The tab is nil when no tab is left.
	ActiveNotebookChanged signal.Signal[*Notebook]
	ActiveTabChanged      signal.Signal[*tab.Tab]
}

// NewManager creates a manager with an empty main notebook. newTab builds
// the empty tab of a new split.
func NewManager(newTab func() *tab.Tab) *Manager {
	m := &Manager{
		links:  make(map[*Notebook]*links),
		newTab: newTab,
	}
	main := NewNotebook()
	m.active = main
	m.addNotebook(main, true, Horizontal)
	return m
}

func (m *Manager) addNotebook(nb *Notebook, main bool, o Orientation) {
	if main {
		m.root = newLeaf(nb)
	} else {
		leaf := m.root.find(m.active)
		if leaf == nil {
			log.Printf("SCRIBE Panes: active notebook %s is not in the layout", m.active.ID())
			return
		}
		leaf.split(nb, o)
	}
	m.notebooks = append(m.notebooks, nb)
	m.connect(nb)
	m.NotebookAdded.Emit(nb)
}

func (m *Manager) connect(nb *Notebook) {
	l := &links{}
	l.focus = nb.FocusIn.Connect(func(struct{}) { m.setFocus(nb) })
	l.added = nb.PageAdded.Connect(func(t *tab.Tab) { m.pageAdded(nb, t) })
	l.removed = nb.PageRemoved.Connect(func(t *tab.Tab) { m.pageRemoved(nb, t) })
	l.switched = nb.SwitchPage.Connect(func(t *tab.Tab) { m.switchPage(t) })
	l.reordered = nb.TabsReordered.Connect(func(struct{}) { m.TabsReordered.Emit(struct{}{}) })
	l.detached = nb.TabDetached.Connect(func(t *tab.Tab) { m.TabDetached.Emit(TabEvent{nb, t}) })
	l.closeReq = nb.TabCloseRequest.Connect(func(t *tab.Tab) { m.TabCloseRequest.Emit(TabEvent{nb, t}) })
	l.popup = nb.PopupMenu.Connect(func(e PopupEvent) { m.ShowPopupMenu.Emit(e) })
	m.links[nb] = l
}

func (m *Manager) disconnect(nb *Notebook) {
	l, ok := m.links[nb]
	if !ok {
		return
	}
	nb.FocusIn.Disconnect(l.focus)
	nb.PageAdded.Disconnect(l.added)
	nb.PageRemoved.Disconnect(l.removed)
	nb.SwitchPage.Disconnect(l.switched)
	nb.TabsReordered.Disconnect(l.reordered)
	nb.TabDetached.Disconnect(l.detached)
	nb.TabCloseRequest.Disconnect(l.closeReq)
	nb.PopupMenu.Disconnect(l.popup)
	delete(m.links, nb)
}

func (m *Manager) pageAdded(nb *Notebook, t *tab.Tab) {
	m.totalTabs++
	m.TabAdded.Emit(TabEvent{nb, t})
}

func (m *Manager) pageRemoved(nb *Notebook, t *tab.Tab) {
	m.totalTabs--
	if m.totalTabs == 0 {
		m.activeTab = nil
		m.ActiveTabChanged.Emit(nil)
	}

	// the last tab of a split takes the split with it
	if nb.Len() == 0 && m.removing == nil && len(m.notebooks) > 1 && nb != m.notebooks[0] {
		m.RemoveNotebook(nb)
	}
	if m.activeTab == t && m.removing == nil {
		m.refreshActiveTab()
	}

	m.TabRemoved.Emit(TabEvent{nb, t})
}

// refreshActiveTab replaces an active tab that left while other tabs
// remain: the active notebook's current tab, else the first notebook
// that has one
func (m *Manager) refreshActiveTab() {
	if cur := m.active.Current(); cur != nil {
		m.switchPage(cur)
		return
	}
	for _, nb := range m.notebooks {
		if nb.Len() > 0 {
			nb.GrabFocus()
			return
		}
	}
}

func (m *Manager) switchPage(t *tab.Tab) {
	// a switch is often reported twice
	if t == m.activeTab {
		return
	}
	m.activeTab = t
	m.ActiveTabChanged.Emit(t)
}

func (m *Manager) setFocus(nb *Notebook) {
	if nb == m.active {
		return
	}
	m.active = nb
	if cur := nb.Current(); cur != nil {
		m.switchPage(cur)
	}
	m.ActiveNotebookChanged.Emit(nb)
}

// RemoveNotebook removes a split. The main notebook always stays. Tabs
// still in nb are closed and the focus goes to the next notebook.
func (m *Manager) RemoveNotebook(nb *Notebook) {
	idx := m.indexOf(nb)
	if idx < 0 {
		log.Printf("SCRIBE Panes: notebook %s is not managed", nb.ID())
		return
	}
	if idx == 0 {
		log.Printf("SCRIBE Panes: WARNING: refusing to remove the main notebook")
		return
	}
	if m.removing != nil {
		log.Printf("SCRIBE Panes: notebook %s is already being removed", m.removing.notebook.ID())
		return
	}
	successor := m.notebooks[(idx+1)%len(m.notebooks)]

	m.removing = &removal{notebook: nb}
	nb.RemoveAllTabs()
	m.notebooks = append(m.notebooks[:idx], m.notebooks[idx+1:]...)
	m.removing = nil

	successor.GrabFocus()
	if m.activeTab != nil && m.NotebookOf(m.activeTab) == nil {
		m.refreshActiveTab()
	}

	if leaf := m.root.find(nb); leaf != nil {
		m.root = leaf.remove()
	}
	m.disconnect(nb)
	m.NotebookRemoved.Emit(nb)
}

func (m *Manager) indexOf(nb *Notebook) int {
	for i, x := range m.notebooks {
		if x == nb {
			return i
		}
	}
	return -1
}

// AddNewTab creates an empty tab in the active notebook, or in a new
// split of it when split is set, and makes it active
func (m *Manager) AddNewTab(split bool, o Orientation) *tab.Tab {
	nb := m.active
	if split {
		nb = NewNotebook()
		m.addNotebook(nb, false, o)
	}
	t := m.newTab()

	// inserting selects and focuses the tab before it is wired up; the
	// manager catches up once it is in place
	l := m.links[nb]
	nb.FocusIn.Block(l.focus)
	nb.SwitchPage.Block(l.switched)
	nb.AddTab(t, -1, true)
	nb.SwitchPage.Unblock(l.switched)
	nb.FocusIn.Unblock(l.focus)

	if nb == m.active {
		m.switchPage(t)
	} else {
		m.setFocus(nb)
	}
	return t
}

// AddNewNotebook splits the active notebook and opens an empty tab in
// the new half
func (m *Manager) AddNewNotebook(o Orientation) *Notebook {
	m.AddNewTab(true, o)
	return m.active
}

// RemoveActiveNotebook closes every tab of the active notebook, which
// removes it unless it is the main one
func (m *Manager) RemoveActiveNotebook() {
	m.CloseTabs(m.active.Tabs())
}

func (m *Manager) ActiveNotebook() *Notebook { return m.active }

// ActiveTab is nil only when no tab is open
func (m *Manager) ActiveTab() *tab.Tab { return m.activeTab }

func (m *Manager) NotebookCount() int { return len(m.notebooks) }

// Notebook returns the i-th notebook in creation order
func (m *Manager) Notebook(i int) *Notebook {
	if i < 0 || i >= len(m.notebooks) {
		return nil
	}
	return m.notebooks[i]
}

// Notebooks returns a copy of the notebook list
func (m *Manager) Notebooks() []*Notebook {
	out := make([]*Notebook, len(m.notebooks))
	copy(out, m.notebooks)
	return out
}

// TabCount is the number of tabs across all notebooks
func (m *Manager) TabCount() int { return m.totalTabs }

// Root is the split tree, for layout
func (m *Manager) Root() *Node { return m.root }

// NotebookOf returns the notebook holding t
func (m *Manager) NotebookOf(t *tab.Tab) *Notebook {
	for _, nb := range m.notebooks {
		if nb.IndexOf(t) >= 0 {
			return nb
		}
	}
	return nil
}

// PageNum returns the global index of t: the tabs of the notebooks before
// its own plus its position there. It is -1 for an unknown tab.
func (m *Manager) PageNum(t *tab.Tab) int {
	n := 0
	for _, nb := range m.notebooks {
		if i := nb.IndexOf(t); i >= 0 {
			return n + i
		}
		n += nb.Len()
	}
	return -1
}

// Locate maps a global index to its notebook and local index
func (m *Manager) Locate(global int) (*Notebook, int) {
	if global < 0 {
		return nil, -1
	}
	pages := 0
	for _, nb := range m.notebooks {
		if pages+nb.Len() > global {
			return nb, global - pages
		}
		pages += nb.Len()
	}
	return nil, -1
}

// SetActiveTab selects t in its notebook and focuses that notebook
func (m *Manager) SetActiveTab(t *tab.Tab) {
	nb := m.NotebookOf(t)
	if nb == nil {
		log.Printf("SCRIBE Panes: tab %s is not managed", t.ID())
		return
	}
	nb.SetCurrent(nb.IndexOf(t))
	if nb != m.active {
		nb.GrabFocus()
	}
}

// SetCurrentPage selects the tab at a global index
func (m *Manager) SetCurrentPage(global int) {
	nb, i := m.Locate(global)
	if nb == nil {
		return
	}
	if nb != m.active {
		nb.GrabFocus()
	}
	nb.SetCurrent(i)
}

// AllTabs lists every tab in global index order
func (m *Manager) AllTabs() []*tab.Tab {
	var out []*tab.Tab
	for _, nb := range m.notebooks {
		out = append(out, nb.tabs...)
	}
	return out
}

// CloseTabs closes each tab, last first. A tab with a pending save
// stays until the save is over.
func (m *Manager) CloseTabs(tabs []*tab.Tab) {
	for i := len(tabs) - 1; i >= 0; i-- {
		m.CloseTab(tabs[i])
	}
}

// CloseAllTabs empties every notebook. Emptied splits go away on the way.
func (m *Manager) CloseAllTabs() {
	for _, nb := range m.Notebooks() {
		m.CloseTabs(nb.Tabs())
	}
}

// CloseTab removes t once its pending save, if any, is over
func (m *Manager) CloseTab(t *tab.Tab) {
	if task := t.PendingSave(); task != nil {
		task.Then(func(bool) { m.removeTab(t) })
		return
	}
	m.removeTab(t)
}

func (m *Manager) removeTab(t *tab.Tab) {
	if nb := m.NotebookOf(t); nb != nil {
		nb.RemoveTab(t)
	}
}

// PreviousNotebook focuses the notebook before the active one, wrapping
func (m *Manager) PreviousNotebook() {
	i := m.indexOf(m.active)
	if i < 0 {
		return
	}
	m.notebooks[(i-1+len(m.notebooks))%len(m.notebooks)].GrabFocus()
}

// NextNotebook focuses the notebook after the active one, wrapping
func (m *Manager) NextNotebook() {
	i := m.indexOf(m.active)
	if i < 0 {
		return
	}
	m.notebooks[(i+1)%len(m.notebooks)].GrabFocus()
}

func (m *Manager) ForeachNotebook(fn func(*Notebook)) {
	for _, nb := range m.Notebooks() {
		fn(nb)
	}
}

func (m *Manager) ForeachTab(fn func(*tab.Tab)) {
	for _, t := range m.AllTabs() {
		fn(t)
	}
}

// FindTabs fuzzy-matches query against the tab names, best match first
func (m *Manager) FindTabs(query string) []*tab.Tab {
	tabs := m.AllTabs()
	if query == "" {
		return tabs
	}
	names := make([]string, len(tabs))
	for i, t := range tabs {
		names[i] = strings.TrimPrefix(t.Name(), "*")
	}
	matches := fuzzy.Find(query, names)
	out := make([]*tab.Tab, 0, len(matches))
	for _, match := range matches {
		out = append(out, tabs[match.Index])
	}
	return out
}
