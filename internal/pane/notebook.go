// Package pane arranges tabs in notebooks and notebooks in a split tree.
package pane

import (
	"log"

	"github.com/google/uuid"

	"github.com/ellery/scribe/internal/signal"
	"github.com/ellery/scribe/internal/tab"
)

// PopupEvent is a right click on a notebook's tab strip, in screen cells
type PopupEvent struct {
	X, Y int
}

// Notebook is an ordered list of tabs with one current tab
type Notebook struct {
	id      string
	tabs    []*tab.Tab
	current int

	// PageAdded and PageRemoved fire after the tab list changed
	PageAdded   signal.Signal[*tab.Tab]
	PageRemoved signal.Signal[*tab.Tab]
	// SwitchPage fires with the new current tab
	SwitchPage      signal.Signal[*tab.Tab]
	TabsReordered   signal.Signal[struct{}]
	TabDetached     signal.Signal[*tab.Tab]
	TabCloseRequest signal.Signal[*tab.Tab]
	// FocusIn fires when the notebook or one of its tabs takes the focus
	FocusIn   signal.Signal[struct{}]
	PopupMenu signal.Signal[PopupEvent]
}

// NewNotebook returns an empty notebook
func NewNotebook() *Notebook {
	return &Notebook{id: uuid.New().String(), current: -1}
}

func (nb *Notebook) ID() string { return nb.id }

// Len returns the number of tabs
func (nb *Notebook) Len() int { return len(nb.tabs) }

// Tabs returns a copy of the tab list in display order
func (nb *Notebook) Tabs() []*tab.Tab {
	out := make([]*tab.Tab, len(nb.tabs))
	copy(out, nb.tabs)
	return out
}

// Tab returns the tab at i, nil when out of range
func (nb *Notebook) Tab(i int) *tab.Tab {
	if i < 0 || i >= len(nb.tabs) {
		return nil
	}
	return nb.tabs[i]
}

// IndexOf returns the position of t, -1 when t is not here
func (nb *Notebook) IndexOf(t *tab.Tab) int {
	for i, x := range nb.tabs {
		if x == t {
			return i
		}
	}
	return -1
}

// CurrentIndex is -1 for an empty notebook
func (nb *Notebook) CurrentIndex() int { return nb.current }

// Current returns the selected tab
func (nb *Notebook) Current() *tab.Tab { return nb.Tab(nb.current) }

// SetCurrent selects the tab at i
func (nb *Notebook) SetCurrent(i int) {
	if i < 0 || i >= len(nb.tabs) {
		return
	}
	nb.current = i
	nb.SwitchPage.Emit(nb.tabs[i])
}

// AddTab inserts t at pos (-1 appends). With jumpTo the new tab becomes
// current.
func (nb *Notebook) AddTab(t *tab.Tab, pos int, jumpTo bool) {
	if pos < 0 || pos > len(nb.tabs) {
		pos = len(nb.tabs)
	}
	nb.tabs = append(nb.tabs, nil)
	copy(nb.tabs[pos+1:], nb.tabs[pos:])
	nb.tabs[pos] = t
	t.SetContainer(nb)

	if nb.current >= pos {
		nb.current++
	}
	nb.PageAdded.Emit(t)
	if jumpTo || nb.current < 0 {
		nb.SetCurrent(pos)
		nb.GrabFocus()
	}
}

// take removes t from the list and selects a neighbour when t was current
func (nb *Notebook) take(t *tab.Tab) bool {
	i := nb.IndexOf(t)
	if i < 0 {
		log.Printf("SCRIBE Notebook: tab %s is not in notebook %s", t.ID(), nb.id)
		return false
	}
	wasCurrent := i == nb.current
	nb.tabs = append(nb.tabs[:i], nb.tabs[i+1:]...)
	t.SetContainer(nil)

	switch {
	case len(nb.tabs) == 0:
		nb.current = -1
	case i < nb.current:
		nb.current--
	case wasCurrent:
		if i >= len(nb.tabs) {
			i = len(nb.tabs) - 1
		}
		nb.SetCurrent(i)
	}
	return true
}

// RemoveTab closes t: it leaves the notebook and is disposed
func (nb *Notebook) RemoveTab(t *tab.Tab) {
	if !nb.take(t) {
		return
	}
	nb.PageRemoved.Emit(t)
	t.Dispose()
}

// RemoveAllTabs closes every tab, last first
func (nb *Notebook) RemoveAllTabs() {
	tabs := nb.Tabs()
	for i := len(tabs) - 1; i >= 0; i-- {
		nb.RemoveTab(tabs[i])
	}
}

// Detach moves t out of the notebook without disposing it, so it can be
// added elsewhere
func (nb *Notebook) Detach(t *tab.Tab) {
	if !nb.take(t) {
		return
	}
	nb.PageRemoved.Emit(t)
	nb.TabDetached.Emit(t)
}

// Reorder moves t to pos
func (nb *Notebook) Reorder(t *tab.Tab, pos int) {
	i := nb.IndexOf(t)
	if i < 0 || pos < 0 || pos >= len(nb.tabs) || pos == i {
		return
	}
	cur := nb.Current()
	nb.tabs = append(nb.tabs[:i], nb.tabs[i+1:]...)
	nb.tabs = append(nb.tabs[:pos], append([]*tab.Tab{t}, nb.tabs[pos:]...)...)
	nb.current = nb.IndexOf(cur)
	nb.TabsReordered.Emit(struct{}{})
}

// RequestClose asks the owner to close t, typically after checking
// whether it can close
func (nb *Notebook) RequestClose(t *tab.Tab) {
	if nb.IndexOf(t) >= 0 {
		nb.TabCloseRequest.Emit(t)
	}
}

// GrabFocus moves the focus into the notebook
func (nb *Notebook) GrabFocus() {
	nb.FocusIn.Emit(struct{}{})
	if t := nb.Current(); t != nil {
		t.View().GrabFocus()
	}
}

// ShowPopupMenu reports a right click at x, y
func (nb *Notebook) ShowPopupMenu(x, y int) {
	nb.PopupMenu.Emit(PopupEvent{X: x, Y: y})
}
