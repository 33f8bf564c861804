package config

import (
	"strings"
)

// DefaultBindings maps key names, as tcell prints them, to actions
var DefaultBindings = map[string]string{
	"Ctrl+S":     "Save",
	"Alt+s":      "SaveAs",
	"Ctrl+R":     "Revert",
	"Ctrl+P":     "Print",
	"Alt+p":      "PrintPreview",
	"Ctrl+O":     "Open",
	"Ctrl+G":     "GotoTab",
	"F1":         "ShowShortcuts",
	"Ctrl+W":     "CloseTab",
	"Ctrl+N":     "NewTab",
	"Ctrl+T":     "SplitPane",
	"Ctrl+U":     "UnsplitPane",
	"Alt+Right":  "NextPane",
	"Alt+Left":   "PreviousPane",
	"Ctrl+Right": "NextTab",
	"Ctrl+Left":  "PreviousTab",
	"Ctrl+E":     "ToggleAutoSave",
	"Ctrl+Q":     "Quit",
	"Enter":      "InfoBarDefault",
	"Esc":        "InfoBarCancel",
	"Alt+y":      "InfoBarYes",
	"Alt+o":      "InfoBarOK",
	"Alt+n":      "InfoBarNo",
}

// Bindings resolves the active key map. Overrides win; an override to
// "None" unbinds the key.
func Bindings(overrides map[string]string) map[string]string {
	out := make(map[string]string, len(DefaultBindings)+len(overrides))
	for k, v := range DefaultBindings {
		out[k] = v
	}
	for k, v := range overrides {
		if strings.EqualFold(v, "None") {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}
