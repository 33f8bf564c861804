package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/micro-editor/tcell/v2"
	homedir "github.com/mitchellh/go-homedir"

	"github.com/ellery/scribe/internal/config"
	"github.com/ellery/scribe/internal/document"
	"github.com/ellery/scribe/internal/encoding"
	"github.com/ellery/scribe/internal/fileio"
	"github.com/ellery/scribe/internal/filewatch"
	"github.com/ellery/scribe/internal/hooks"
	"github.com/ellery/scribe/internal/infobar"
	"github.com/ellery/scribe/internal/layout"
	"github.com/ellery/scribe/internal/loop"
	"github.com/ellery/scribe/internal/metadata"
	"github.com/ellery/scribe/internal/pane"
	"github.com/ellery/scribe/internal/printing"
	"github.com/ellery/scribe/internal/recent"
	"github.com/ellery/scribe/internal/signal"
	"github.com/ellery/scribe/internal/tab"
)

// metadataRetentionDays is how long cursor positions and encodings of
// files that were not opened again are kept
const metadataRetentionDays = 90

// tracking is what the app hooked onto one tab
type tracking struct {
	watched string
	detach  func()
	loaded  signal.HandlerID
	saved   signal.HandlerID
	dropped signal.HandlerID
}

// app wires the tabs, panes and layout to the screen and the stores in
// the config directory. Everything runs on the loop goroutine.
type app struct {
	screen   tcell.Screen
	loop     *loop.Loop
	settings *config.Settings
	bindings map[string]string
	actions  map[string]func() bool

	panes  *pane.Manager
	layout *layout.LayoutManager
	deps   tab.Deps

	meta          document.MetaStore
	store         *metadata.Store
	recents       *recent.Store
	printDefaults *printing.FileDefaults
	watcher       *filewatch.Watcher
	hooks         *hooks.Runtime

	tracked map[*tab.Tab]*tracking
	quit    bool
	closed  bool
}

// newApp builds the editor on screen. config.InitConfigDir must have run.
func newApp(screen tcell.Screen) *app {
	a := &app{
		screen:  screen,
		loop:    loop.New(0),
		tracked: make(map[*tab.Tab]*tracking),
	}

	a.settings = config.LoadSettings(config.GetSettingsFilePath())
	config.InitColorscheme(a.settings.Colors)
	a.bindings = config.Bindings(a.settings.Bindings)

	a.recents = recent.NewStore(config.ConfigDir)
	if err := a.recents.Load(); err != nil {
		log.Printf("SCRIBE: Recent files unavailable: %v", err)
	}
	if store, err := metadata.NewStore(config.ConfigDir); err != nil {
		log.Printf("SCRIBE: Document metadata disabled: %v", err)
	} else {
		a.store = store
		a.meta = store
		if n, err := store.Prune(metadataRetentionDays); err == nil && n > 0 {
			log.Printf("SCRIBE: Pruned metadata of %d files", n)
		}
	}
	a.printDefaults = printing.LoadDefaults(config.ConfigDir)

	a.deps = tab.Deps{
		Sched:         a.loop,
		Transport:     fileio.NewDisk(a.loop),
		Prefs:         a.settings,
		Lockdown:      a.settings.Lockdown,
		Recents:       a.recents,
		Printer:       printing.NewCommandPrinter(a.loop, a.settings.PrintCommand),
		PrintDefaults: a.printDefaults,
		OpenDocuments: a.openDocuments,
	}

	rt, err := hooks.Load(config.Path(hooks.FileName))
	if err != nil {
		log.Printf("SCRIBE: %s: %v", hooks.FileName, err)
	}
	a.hooks = rt

	if w, err := filewatch.New(a.loop); err != nil {
		log.Printf("SCRIBE: File watching disabled: %v", err)
	} else {
		a.watcher = w
		w.Start()
	}

	a.panes = pane.NewManager(a.newTab)
	a.layout = layout.NewLayoutManager(a.panes)
	a.connect()
	a.actions = a.buildActions()
	for key, action := range a.bindings {
		if _, ok := a.actions[action]; !ok {
			log.Printf("SCRIBE: WARNING: %s is bound to unknown action %q", key, action)
		}
	}

	w, h := screen.Size()
	a.layout.Resize(w, h)
	return a
}

func (a *app) newTab() *tab.Tab {
	doc := document.New(a.meta)
	return tab.New(doc, layout.NewTextView(doc), a.deps)
}

func (a *app) openDocuments() []tab.Document {
	tabs := a.panes.AllTabs()
	docs := make([]tab.Document, len(tabs))
	for i, t := range tabs {
		docs[i] = t.Document()
	}
	return docs
}

func (a *app) connect() {
	a.panes.TabAdded.Connect(func(ev pane.TabEvent) { a.track(ev.Tab) })
	a.panes.TabRemoved.Connect(func(ev pane.TabEvent) { a.untrack(ev.Tab) })
	a.panes.TabCloseRequest.Connect(func(ev pane.TabEvent) { a.closeTab(ev.Tab) })
	a.panes.ShowPopupMenu.Connect(func(pane.PopupEvent) { a.layout.ShowQuickFind() })
	a.panes.ActiveTabChanged.Connect(func(t *tab.Tab) {
		if t != nil {
			t.ViewFocusedIn()
		}
	})
	if a.watcher != nil {
		a.watcher.Changed.Connect(func(string) {
			if t := a.panes.ActiveTab(); t != nil {
				t.ViewFocusedIn()
			}
		})
	}
}

// track attaches the hooks, the watcher and drop handling to a new tab
func (a *app) track(t *tab.Tab) {
	if _, ok := a.tracked[t]; ok {
		return
	}
	tr := &tracking{}
	a.tracked[t] = tr
	if doc, ok := t.Document().(hooks.Document); ok {
		tr.detach = a.hooks.Attach(doc)
		tr.loaded = doc.LoadedSignal().Connect(func(error) { a.rewatch(t) })
		tr.saved = doc.SavedSignal().Connect(func(error) { a.rewatch(t) })
	}
	tr.dropped = t.DropURIs.Connect(func(uris []string) {
		for _, u := range uris {
			a.open(fileArg{Path: fileio.LocalPath(u)})
		}
	})
	a.rewatch(t)
}

func (a *app) untrack(t *tab.Tab) {
	tr, ok := a.tracked[t]
	if !ok {
		return
	}
	delete(a.tracked, t)
	if a.watcher != nil && tr.watched != "" {
		a.watcher.Unwatch(tr.watched, t)
	}
	if doc, ok := t.Document().(hooks.Document); ok {
		doc.LoadedSignal().Disconnect(tr.loaded)
		doc.SavedSignal().Disconnect(tr.saved)
	}
	t.DropURIs.Disconnect(tr.dropped)
	if tr.detach != nil {
		tr.detach()
	}
}

// rewatch follows the tab's location after loads and saves
func (a *app) rewatch(t *tab.Tab) {
	tr := a.tracked[t]
	if tr == nil || a.watcher == nil {
		return
	}
	path := ""
	if loc := t.Document().Location(); loc != "" && fileio.IsLocalLocation(loc) {
		path = fileio.LocalPath(loc)
	}
	if path == tr.watched {
		return
	}
	if tr.watched != "" {
		a.watcher.Unwatch(tr.watched, t)
		tr.watched = ""
	}
	if path != "" && a.watcher.Watch(path, t) == nil {
		tr.watched = path
	}
}

// open shows f in a tab. An open document is selected instead of loaded
// twice; an untouched untitled tab is reused.
func (a *app) open(f fileArg) *tab.Tab {
	path, err := filepath.Abs(f.Path)
	if err != nil {
		a.message("Cannot open %s: %v", f.Path, err)
		return nil
	}
	for _, t := range a.panes.AllTabs() {
		if fileio.SameLocation(t.Document().Location(), path) {
			a.panes.SetActiveTab(t)
			if f.Line > 0 {
				t.Document().GotoLine(f.Line, f.Col)
				t.View().ScrollToCursor()
			}
			return t
		}
	}

	t := a.panes.ActiveTab()
	if t == nil || !t.Document().IsUntitled() || t.Document().IsModified() || t.State() != tab.StateNormal {
		t = a.newTab()
		a.panes.ActiveNotebook().AddTab(t, -1, true)
	}
	if err := t.Load(path, nil, f.Line, f.Col, true); err != nil {
		a.message("Cannot open %s: %v", path, err)
	}
	return t
}

// openStream reads r into a new untitled tab
func (a *app) openStream(r io.Reader) *tab.Tab {
	t := a.newTab()
	a.panes.ActiveNotebook().AddTab(t, -1, true)
	if err := t.LoadStream(r, nil, 0, 0); err != nil {
		a.message("Cannot read input: %v", err)
	}
	return t
}

// openInitial opens the command line files, or stdin when it is piped,
// or an empty document
func (a *app) openInitial(files []fileArg, stdin io.Reader) {
	for _, f := range files {
		a.open(f)
	}
	if len(files) > 0 {
		return
	}
	if stdin != nil {
		a.openStream(stdin)
		return
	}
	a.panes.AddNewTab(false, pane.Horizontal)
}

// message shows a one-shot note on the status line
func (a *app) message(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Printf("SCRIBE: %s", msg)
	a.layout.Status.Message = msg
}

// closeTab closes t, asking first when it has unsaved changes
func (a *app) closeTab(t *tab.Tab) {
	if t.CanClose() {
		a.closeNow(t)
		return
	}
	a.layout.ShowConfirmModal("Close Document",
		fmt.Sprintf("Close %s without saving?", strings.TrimPrefix(t.Name(), "*")),
		"Unsaved changes will be lost",
		func(ok bool) {
			if ok {
				a.closeNow(t)
			}
		})
}

func (a *app) closeNow(t *tab.Tab) {
	if t.State() == tab.StateNormal {
		t.MarkForClosing()
	}
	a.panes.CloseTab(t)
}

// closeActiveNotebook closes the tabs of the active notebook, asking
// once if any has unsaved changes
func (a *app) closeActiveNotebook() {
	nb := a.panes.ActiveNotebook()
	dirty := 0
	for _, t := range nb.Tabs() {
		if !t.CanClose() {
			dirty++
		}
	}
	if dirty == 0 {
		a.panes.RemoveActiveNotebook()
		return
	}
	a.layout.ShowConfirmModal("Close Pane",
		fmt.Sprintf("Close this pane with %d unsaved documents?", dirty),
		"Unsaved changes will be lost",
		func(ok bool) {
			if ok {
				a.panes.CloseTabs(nb.Tabs())
			}
		})
}

func (a *app) requestQuit() {
	var dirty []string
	for _, t := range a.panes.AllTabs() {
		if !t.CanClose() {
			dirty = append(dirty, strings.TrimPrefix(t.Name(), "*"))
		}
	}
	if len(dirty) == 0 {
		a.quit = true
		return
	}
	a.layout.ShowConfirmModal("Quit",
		"Quit without saving "+strings.Join(dirty, ", ")+"?",
		"Unsaved changes will be lost",
		func(ok bool) { a.quit = ok })
}

func (a *app) save(t *tab.Tab) {
	if t.Document().IsUntitled() {
		a.saveAs(t)
		return
	}
	if _, err := t.Save(context.Background()); err != nil {
		a.message("Cannot save %s: %v", t.Name(), err)
	}
}

func (a *app) saveAs(t *tab.Tab) {
	def := ""
	if loc := t.Document().Location(); loc != "" && fileio.IsLocalLocation(loc) {
		def = fileio.LocalPath(loc)
	} else if wd, err := os.Getwd(); err == nil {
		def = filepath.Join(wd, t.Document().ShortName())
	}
	a.layout.ShowInputModal("Save As", "Save the document to:", def, func(value string, canceled bool) {
		value = strings.TrimSpace(value)
		if canceled || value == "" {
			return
		}
		path, err := expandPath(value)
		if err != nil {
			a.message("Cannot save to %s: %v", value, err)
			return
		}
		f := t.Document().File()
		enc := f.Encoding()
		if enc == nil {
			enc = encoding.UTF8()
		}
		if _, err := t.SaveAs(context.Background(), path, enc, f.NewlineType(), f.CompressionType()); err != nil {
			a.message("Cannot save to %s: %v", path, err)
		}
	})
}

func (a *app) promptOpen() {
	def := ""
	if wd, err := os.Getwd(); err == nil {
		def = wd + string(filepath.Separator)
	}
	a.layout.ShowInputModal("Open", "Open the file:", def, func(value string, canceled bool) {
		value = strings.TrimSpace(value)
		if canceled || value == "" {
			return
		}
		path, err := expandPath(value)
		if err != nil {
			a.message("Cannot open %s: %v", value, err)
			return
		}
		a.open(fileArg{Path: path})
	})
}

func expandPath(p string) (string, error) {
	p, err := homedir.Expand(p)
	if err != nil {
		return "", err
	}
	return filepath.Abs(p)
}

func (a *app) revert(t *tab.Tab) {
	if t.Document().IsUntitled() {
		return
	}
	if !t.Document().IsModified() {
		if err := t.Revert(); err != nil {
			a.message("Cannot revert %s: %v", t.Name(), err)
		}
		return
	}
	a.layout.ShowConfirmModal("Revert",
		fmt.Sprintf("Revert unsaved changes to %s?", strings.TrimPrefix(t.Name(), "*")),
		"Changes made to the document will be permanently lost",
		func(ok bool) {
			if !ok {
				return
			}
			if err := t.Revert(); err != nil {
				a.message("Cannot revert %s: %v", t.Name(), err)
			}
		})
}

// respond answers the active tab's info bar with the first of rs it
// offers
func (a *app) respond(rs ...infobar.Response) bool {
	t := a.panes.ActiveTab()
	if t == nil || t.InfoBar() == nil {
		return false
	}
	bar := t.InfoBar()
	for _, r := range rs {
		if bar.HasResponse(r) {
			bar.Respond(r)
			return true
		}
	}
	return false
}

func (a *app) cycleTab(delta int) {
	nb := a.panes.ActiveNotebook()
	if n := nb.Len(); n > 1 {
		nb.SetCurrent(((nb.CurrentIndex()+delta)%n + n) % n)
	}
}

// buildActions maps action names to what they do. An action that
// returns false lets the key through to the tab.
func (a *app) buildActions() map[string]func() bool {
	// withTab runs fn on the active tab, if there is one
	withTab := func(fn func(t *tab.Tab)) func() bool {
		return func() bool {
			t := a.panes.ActiveTab()
			if t == nil {
				return false
			}
			fn(t)
			return true
		}
	}
	always := func(fn func()) func() bool {
		return func() bool { fn(); return true }
	}

	return map[string]func() bool{
		"Save":   withTab(a.save),
		"SaveAs": withTab(a.saveAs),
		"Revert": withTab(a.revert),
		"Print": withTab(func(t *tab.Tab) {
			if err := t.Print(); err != nil {
				a.message("Cannot print %s: %v", t.Name(), err)
			}
		}),
		"PrintPreview": withTab(func(t *tab.Tab) {
			if err := t.PrintPreview(); err != nil {
				a.message("Cannot preview %s: %v", t.Name(), err)
			}
		}),
		"Open":          always(a.promptOpen),
		"CloseTab":      withTab(a.closeTab),
		"NewTab":        always(func() { a.panes.AddNewTab(false, pane.Horizontal) }),
		"SplitPane":     always(func() { a.panes.AddNewTab(true, pane.Horizontal) }),
		"UnsplitPane":   always(a.closeActiveNotebook),
		"NextPane":      always(a.panes.NextNotebook),
		"PreviousPane":  always(a.panes.PreviousNotebook),
		"NextTab":       always(func() { a.cycleTab(1) }),
		"PreviousTab":   always(func() { a.cycleTab(-1) }),
		"GotoTab":       always(a.layout.ShowQuickFind),
		"ShowShortcuts": always(func() { a.layout.ShowShortcuts(a.bindings) }),
		"ToggleAutoSave": withTab(func(t *tab.Tab) {
			t.SetAutoSaveEnabled(!t.AutoSaveEnabled())
			if t.AutoSaveEnabled() {
				a.message("Auto-save every %d minutes", t.AutoSaveInterval())
			} else {
				a.message("Auto-save off")
			}
		}),
		"Quit": always(a.requestQuit),
		"InfoBarDefault": func() bool {
			t := a.panes.ActiveTab()
			if t == nil || t.InfoBar() == nil || t.InfoBar().DefaultResponse() == infobar.ResponseNone {
				return false
			}
			t.InfoBar().ActivateDefault()
			return true
		},
		"InfoBarCancel": func() bool { return a.respond(infobar.ResponseCancel, infobar.ResponseClose) },
		"InfoBarYes":    func() bool { return a.respond(infobar.ResponseYes) },
		"InfoBarOK":     func() bool { return a.respond(infobar.ResponseOK) },
		"InfoBarNo":     func() bool { return a.respond(infobar.ResponseNo) },
	}
}

// handleEvent routes one terminal event: modals first, then key
// bindings, then the layout
func (a *app) handleEvent(event tcell.Event) {
	switch ev := event.(type) {
	case *tcell.EventResize:
		w, h := ev.Size()
		a.layout.Resize(w, h)
		a.screen.Sync()
	case *tcell.EventKey:
		a.layout.Status.Message = ""
		if a.layout.HandleModalEvent(ev) {
			return
		}
		if action, ok := a.bindings[keyName(ev)]; ok {
			if fn := a.actions[action]; fn != nil && fn() {
				return
			}
		}
		a.layout.HandleEvent(ev)
	case *tcell.EventMouse:
		if a.layout.HandleModalEvent(ev) {
			return
		}
		a.layout.HandleEvent(ev)
	case *tcell.EventError:
		log.Printf("SCRIBE: tcell event error: %v", ev)
	}
}

func (a *app) draw() {
	a.screen.Fill(' ', config.DefStyle)
	a.layout.Render(a.screen)
	a.screen.Show()
}

// run draws and handles events until Quit or ctx ends. Loop jobs are
// drained between events.
func (a *app) run(ctx context.Context) error {
	events := make(chan tcell.Event)
	go func() {
		defer close(events)
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	for !a.quit {
		a.draw()
		select {
		case fn := <-a.loop.Jobs():
			fn()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			a.handleEvent(ev)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// shutdownTimeout bounds the wait for saves still running at exit
const shutdownTimeout = 10 * time.Second

// shutdown closes every tab and flushes the stores
func (a *app) shutdown() {
	if a.closed {
		return
	}
	a.closed = true
	a.panes.CloseAllTabs()
	a.waitForSaves(shutdownTimeout)
	if err := a.recents.Save(); err != nil {
		log.Printf("SCRIBE: Failed to save recent files: %v", err)
	}
	if err := a.printDefaults.Save(); err != nil {
		log.Printf("SCRIBE: Failed to save print defaults: %v", err)
	}
	if a.watcher != nil {
		a.watcher.Stop()
	}
	a.hooks.Close()
	if a.store != nil {
		a.store.Close()
	}
}

// waitForSaves runs loop jobs until the tabs kept open by a pending save
// are gone
func (a *app) waitForSaves(timeout time.Duration) {
	deadline := time.After(timeout)
	for a.panes.TabCount() > 0 {
		select {
		case fn := <-a.loop.Jobs():
			fn()
		case <-deadline:
			log.Printf("SCRIBE: WARNING: %d tabs still saving at exit", a.panes.TabCount())
			return
		}
	}
}
