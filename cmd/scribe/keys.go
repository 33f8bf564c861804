package main

import (
	"github.com/micro-editor/tcell/v2"
)

// keyName spells a key event the way settings.json binds it: modifiers
// in Ctrl, Alt, Shift order joined with "+", then the key. Runes keep
// their case, so "Alt+s" and "Alt+S" differ.
func keyName(ev *tcell.EventKey) string {
	k := ev.Key()
	mods := ev.Modifiers()

	prefix := ""
	if k == tcell.KeyRune {
		if mods&tcell.ModAlt != 0 {
			prefix = "Alt+"
		}
		return prefix + string(ev.Rune())
	}

	// control letters carry the Ctrl in the key itself; Backspace, Tab
	// and Enter share their codes with Ctrl+H, Ctrl+I and Ctrl+M
	if k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ &&
		k != tcell.KeyBackspace && k != tcell.KeyTab && k != tcell.KeyEnter {
		prefix = "Ctrl+"
		if mods&tcell.ModAlt != 0 {
			prefix += "Alt+"
		}
		return prefix + string(rune('A'+k-tcell.KeyCtrlA))
	}

	name, ok := tcell.KeyNames[k]
	if !ok {
		return ev.Name()
	}
	if mods&tcell.ModCtrl != 0 {
		prefix += "Ctrl+"
	}
	if mods&tcell.ModAlt != 0 {
		prefix += "Alt+"
	}
	if mods&tcell.ModShift != 0 {
		prefix += "Shift+"
	}
	return prefix + name
}
