package config

import (
	"strconv"
	"strings"

	"github.com/micro-editor/tcell/v2"
)

// DefStyle is the style cells fall back to
var DefStyle tcell.Style = tcell.StyleDefault

// Colorscheme maps style groups such as "tab.active" to styles
var Colorscheme map[string]tcell.Style

// defaultColors is the built-in theme; settings.json "colors" overrides it
var defaultColors = map[string]string{
	"tabbar":           "white,black",
	"tab":              "white,black",
	"tab.active":       "bold black,white",
	"tab.inactivepane": "brightblack,black",
	"infobar":          "black,cyan",
	"infobar.info":     "black,cyan",
	"infobar.warning":  "black,yellow",
	"infobar.error":    "bold white,red",
	"infobar.question": "black,green",
	"progress":         "black,blue",
	"divider":          "brightblack,black",
	"statusline":       "black,white",
	"preview":          "black,white",
	"busy":             "brightblack,default",
	"current-line":     "default,236",
	"modal":            "white,black",
	"modal.border":     "bold 205,black",
	"modal.danger":     "bold 196,black",
	"modal.hint":       "51,black",
	"modal.selected":   "bold black,226",
}

// InitColorscheme builds Colorscheme from the defaults plus overrides
func InitColorscheme(overrides map[string]string) {
	Colorscheme = make(map[string]tcell.Style)
	DefStyle = tcell.StyleDefault
	for group, value := range defaultColors {
		Colorscheme[group] = StringToStyle(value)
	}
	for group, value := range overrides {
		Colorscheme[group] = StringToStyle(value)
	}
}

// GetColor returns the style for a group. Dotted groups inherit from their
// prefixes, so "infobar.error" falls back to "infobar".
func GetColor(color string) tcell.Style {
	st := DefStyle
	if color == "" {
		return st
	}
	groups := strings.Split(color, ".")
	curGroup := ""
	for i, g := range groups {
		if i != 0 {
			curGroup += "."
		}
		curGroup += g
		if style, ok := Colorscheme[curGroup]; ok {
			st = style
		}
	}
	return st
}

// ValidStyle reports whether every color in str parses
func ValidStyle(str string) bool {
	spaceSplit := strings.Split(str, " ")
	for _, c := range strings.Split(spaceSplit[len(spaceSplit)-1], ",") {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := StringToColor(c); !ok {
			return false
		}
	}
	return true
}

// StringToStyle returns a style from a string
// The strings must be in the format "extra foregroundcolor,backgroundcolor"
// The 'extra' can be bold, reverse, italic or underline
func StringToStyle(str string) tcell.Style {
	var fg, bg string
	spaceSplit := strings.Split(str, " ")
	split := strings.Split(spaceSplit[len(spaceSplit)-1], ",")
	if len(split) > 1 {
		fg, bg = split[0], split[1]
	} else {
		fg = split[0]
	}
	fg = strings.TrimSpace(fg)
	bg = strings.TrimSpace(bg)

	defFg, defBg, _ := DefStyle.Decompose()
	fgColor, ok := StringToColor(fg)
	if !ok || fg == "" {
		fgColor = defFg
	}
	bgColor, ok := StringToColor(bg)
	if !ok || bg == "" {
		bgColor = defBg
	}

	style := DefStyle.Foreground(fgColor).Background(bgColor)
	if strings.Contains(str, "bold") {
		style = style.Bold(true)
	}
	if strings.Contains(str, "italic") {
		style = style.Italic(true)
	}
	if strings.Contains(str, "reverse") {
		style = style.Reverse(true)
	}
	if strings.Contains(str, "underline") {
		style = style.Underline(true)
	}
	return style
}

// StringToColor returns a tcell color from a string representation of a color
// We accept either bright... or light... to mean the brighter version of a color
func StringToColor(str string) (tcell.Color, bool) {
	switch str {
	case "black":
		return tcell.ColorBlack, true
	case "red":
		return tcell.ColorMaroon, true
	case "green":
		return tcell.ColorGreen, true
	case "yellow":
		return tcell.ColorOlive, true
	case "blue":
		return tcell.ColorNavy, true
	case "magenta":
		return tcell.ColorPurple, true
	case "cyan":
		return tcell.ColorTeal, true
	case "white":
		return tcell.ColorSilver, true
	case "brightblack", "lightblack":
		return tcell.ColorGray, true
	case "brightred", "lightred":
		return tcell.ColorRed, true
	case "brightgreen", "lightgreen":
		return tcell.ColorLime, true
	case "brightyellow", "lightyellow":
		return tcell.ColorYellow, true
	case "brightblue", "lightblue":
		return tcell.ColorBlue, true
	case "brightmagenta", "lightmagenta":
		return tcell.ColorFuchsia, true
	case "brightcyan", "lightcyan":
		return tcell.ColorAqua, true
	case "brightwhite", "lightwhite":
		return tcell.ColorWhite, true
	case "default":
		return tcell.ColorDefault, true
	default:
		// Check if this is a 256 color
		if num, err := strconv.Atoi(str); err == nil {
			return GetColor256(num), true
		}
		// Check if this is a truecolor hex value
		if len(str) == 7 && str[0] == '#' {
			return tcell.GetColor(str), true
		}
		return tcell.ColorDefault, false
	}
}

// GetColor256 returns the tcell color for a number between 0 and 255
func GetColor256(color int) tcell.Color {
	if color == 0 {
		return tcell.ColorDefault
	}
	return tcell.PaletteColor(color)
}
