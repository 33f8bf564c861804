// Package infobar models the transient message bars a tab shows above its
// text: a message, a set of response buttons, an optional encoding choice
// and an optional progress indicator. Rendering lives in layout.
package infobar

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/ellery/scribe/internal/encoding"
	"github.com/ellery/scribe/internal/signal"
)

// Response is the answer a bar reports to its owner
type Response int

const (
	ResponseNone Response = iota
	ResponseOK
	ResponseYes
	ResponseNo
	ResponseCancel
	ResponseClose
	ResponseHelp
)

func (r Response) String() string {
	switch r {
	case ResponseNone:
		return "none"
	case ResponseOK:
		return "ok"
	case ResponseYes:
		return "yes"
	case ResponseNo:
		return "no"
	case ResponseCancel:
		return "cancel"
	case ResponseClose:
		return "close"
	case ResponseHelp:
		return "help"
	}
	return fmt.Sprintf("response(%d)", int(r))
}

// MessageType selects the color group of a bar
type MessageType int

const (
	MessageInfo MessageType = iota
	MessageWarning
	MessageQuestion
	MessageError
	MessageOther
)

// ColorGroup is the colorscheme group used to draw the bar
func (m MessageType) ColorGroup() string {
	switch m {
	case MessageWarning:
		return "infobar.warning"
	case MessageQuestion:
		return "infobar.question"
	case MessageError:
		return "infobar.error"
	case MessageInfo:
		return "infobar.info"
	}
	return "infobar"
}

// Button is one labelled response
type Button struct {
	Label    string
	Response Response
}

// Bar is a single message bar. It is not safe for concurrent use.
type Bar struct {
	msgType   MessageType
	icon      string
	primary   string
	secondary string
	buttons   []Button

	// encoding choice; a nil entry means automatic detection
	choices  []*encoding.Encoding
	selected int

	progress bool
	fraction float64
	pulses   int
	detail   string

	visible   bool
	destroyed bool
	def       Response

	// Responded fires when the user picks a button
	Responded signal.Signal[Response]
}

// New creates a hidden bar
func New(msgType MessageType, primary, secondary string, buttons ...Button) *Bar {
	return &Bar{
		msgType:   msgType,
		primary:   primary,
		secondary: secondary,
		buttons:   buttons,
		def:       ResponseNone,
	}
}

// NewProgress creates a bar with a progress indicator. A cancelable bar
// carries a Cancel button.
func NewProgress(icon, text string, cancelable bool) *Bar {
	b := New(MessageInfo, text, "")
	b.icon = icon
	b.progress = true
	if cancelable {
		b.buttons = []Button{{Label: "Cancel", Response: ResponseCancel}}
	}
	return b
}

func (b *Bar) Type() MessageType { return b.msgType }

// Icon names the symbol drawn in front of a progress bar
func (b *Bar) Icon() string { return b.icon }

func (b *Bar) Primary() string { return b.primary }

func (b *Bar) Secondary() string { return b.secondary }

// SetText replaces the primary text
func (b *Bar) SetText(text string) { b.primary = text }

func (b *Bar) Buttons() []Button { return b.buttons }

// HasResponse reports whether one of the buttons answers r
func (b *Bar) HasResponse(r Response) bool {
	for _, btn := range b.buttons {
		if btn.Response == r {
			return true
		}
	}
	return false
}

// Respond emits r. Destroyed bars ignore responses.
func (b *Bar) Respond(r Response) {
	if b.destroyed {
		return
	}
	b.Responded.Emit(r)
}

// DefaultResponse is what Enter answers
func (b *Bar) DefaultResponse() Response { return b.def }

func (b *Bar) SetDefaultResponse(r Response) { b.def = r }

// ActivateDefault answers the default response, if any
func (b *Bar) ActivateDefault() {
	if b.def != ResponseNone {
		b.Respond(b.def)
	}
}

func (b *Bar) Visible() bool { return b.visible && !b.destroyed }

func (b *Bar) Show() { b.visible = true }

func (b *Bar) Hide() { b.visible = false }

// Destroy hides the bar for good and drops its handlers
func (b *Bar) Destroy() {
	b.visible = false
	b.destroyed = true
	b.Responded.DisconnectAll()
}

func (b *Bar) Destroyed() bool { return b.destroyed }

// setChoices installs the encoding menu and preselects sel
func (b *Bar) setChoices(choices []*encoding.Encoding, sel *encoding.Encoding) {
	b.choices = choices
	b.selected = 0
	for i, e := range choices {
		if e == sel {
			b.selected = i
			break
		}
	}
}

// HasEncodingChoice reports whether the bar offers an encoding menu
func (b *Bar) HasEncodingChoice() bool { return len(b.choices) > 0 }

// Choices lists the encoding menu. A nil entry is automatic detection.
func (b *Bar) Choices() []*encoding.Encoding { return b.choices }

// SelectedEncoding returns the chosen encoding, nil for automatic
// detection or when the bar has no menu
func (b *Bar) SelectedEncoding() *encoding.Encoding {
	if len(b.choices) == 0 {
		return nil
	}
	return b.choices[b.selected]
}

// SelectEncoding moves the selection to enc; it reports false when enc is
// not in the menu
func (b *Bar) SelectEncoding(enc *encoding.Encoding) bool {
	for i, e := range b.choices {
		if e == enc {
			b.selected = i
			return true
		}
	}
	return false
}

// CycleEncoding moves the selection by delta, wrapping around
func (b *Bar) CycleEncoding(delta int) {
	n := len(b.choices)
	if n == 0 {
		return
	}
	b.selected = ((b.selected+delta)%n + n) % n
}

// ChoiceLabel is the menu text of one entry
func ChoiceLabel(e *encoding.Encoding) string {
	if e == nil {
		return "Automatically Detected"
	}
	return e.String()
}

// IsProgress reports whether the bar carries a progress indicator
func (b *Bar) IsProgress() bool { return b.progress }

// Fraction is the completed share, in [0, 1]
func (b *Bar) Fraction() float64 { return b.fraction }

// Pulses counts Pulse calls since the last fraction was set
func (b *Bar) Pulses() int { return b.pulses }

// Detail is the human readable amount moved so far
func (b *Bar) Detail() string { return b.detail }

func (b *Bar) SetFraction(f float64) {
	if f < 0 {
		f = 0
	} else if f > 1 {
		f = 1
	}
	b.fraction = f
	b.pulses = 0
}

// Pulse shows activity when the total is unknown
func (b *Bar) Pulse() { b.pulses++ }

// SetProgress reports done of total bytes. An unknown total pulses once
// something moved, and shows an empty bar otherwise.
func (b *Bar) SetProgress(done, total int64) {
	if total == 0 {
		if done != 0 {
			b.Pulse()
			b.detail = humanize.Bytes(uint64(done))
		} else {
			b.SetFraction(0)
			b.detail = ""
		}
		return
	}
	b.SetFraction(float64(done) / float64(total))
	b.detail = fmt.Sprintf("%s of %s", humanize.Bytes(uint64(done)), humanize.Bytes(uint64(total)))
}

// Slot holds the bar a tab is showing plus the one most recently
// dismissed, which stays alive hidden until the next change.
type Slot struct {
	current *Bar
	hiding  *Bar

	// Changed fires with the new current bar, nil when cleared
	Changed signal.Signal[*Bar]
}

// Current is the bar on display, nil when there is none
func (s *Slot) Current() *Bar { return s.current }

// Hiding is the dismissed bar waiting to be destroyed
func (s *Slot) Hiding() *Bar { return s.hiding }

// Show replaces the current bar. Both the current and the hiding bar are
// destroyed. def becomes the bar's default response unless it is
// ResponseNone.
func (s *Slot) Show(bar *Bar, def Response) {
	if bar == nil {
		s.Clear()
		return
	}
	if s.current == bar {
		return
	}
	if s.current != nil {
		s.current.Destroy()
	}
	if s.hiding != nil {
		s.hiding.Destroy()
		s.hiding = nil
	}
	s.current = bar
	if def != ResponseNone {
		bar.SetDefaultResponse(def)
	}
	bar.Show()
	s.Changed.Emit(bar)
}

// Clear hides the current bar. It moves to the hiding slot, destroying
// any bar that was already there.
func (s *Slot) Clear() {
	if s.current == nil {
		return
	}
	if s.hiding != nil {
		s.hiding.Destroy()
	}
	s.hiding = s.current
	s.hiding.Hide()
	s.current = nil
	s.Changed.Emit(nil)
}
