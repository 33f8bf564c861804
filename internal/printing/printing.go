// Package printing runs print jobs for documents: paginating the text,
// handing it to the configured print command or showing a preview, and
// remembering the settings used last.
package printing

import (
	"math"
	"sort"

	"gopkg.in/yaml.v2"

	"github.com/ellery/scribe/internal/signal"
)

// Settings keys understood by the command job
const (
	KeyOutputURI      = "output-uri"
	KeyOutputBasename = "output-basename"
	KeyNCopies        = "n-copies"
	KeyPrinter        = "printer"
)

// Settings are free-form print options
type Settings map[string]string

// Copy returns an independent copy; a nil receiver yields an empty map
func (s Settings) Copy() Settings {
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func (s Settings) Get(key string) string { return s[key] }

// Set stores value; an empty value unsets the key
func (s Settings) Set(key, value string) {
	if value == "" {
		delete(s, key)
		return
	}
	s[key] = value
}

func (s Settings) Unset(key string) { delete(s, key) }

// Keys lists the keys in sorted order
func (s Settings) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarshalSettings encodes settings for storage in document metadata
func MarshalSettings(s Settings) (string, error) {
	data, err := yaml.Marshal(map[string]string(s))
	return string(data), err
}

// UnmarshalSettings is the inverse of MarshalSettings
func UnmarshalSettings(data string) (Settings, error) {
	s := Settings{}
	if err := yaml.Unmarshal([]byte(data), &s); err != nil {
		return nil, err
	}
	return s, nil
}

// Paper sizes in millimetres
var paperSizes = map[string][2]float64{
	"a4":     {210, 297},
	"a5":     {148, 210},
	"letter": {215.9, 279.4},
	"legal":  {215.9, 355.6},
}

// lineHeight is the height of one printed line in millimetres
const lineHeight = 4.5

// PageSetup describes the page geometry
type PageSetup struct {
	Paper        string  `yaml:"paper"`
	Orientation  string  `yaml:"orientation"`
	MarginTop    float64 `yaml:"margin_top"`
	MarginBottom float64 `yaml:"margin_bottom"`
	MarginLeft   float64 `yaml:"margin_left"`
	MarginRight  float64 `yaml:"margin_right"`
}

// DefaultPageSetup is A4 portrait with 25 mm margins
func DefaultPageSetup() *PageSetup {
	return &PageSetup{
		Paper:        "a4",
		Orientation:  "portrait",
		MarginTop:    25,
		MarginBottom: 25,
		MarginLeft:   25,
		MarginRight:  25,
	}
}

func (p *PageSetup) Copy() *PageSetup {
	if p == nil {
		return DefaultPageSetup()
	}
	c := *p
	return &c
}

func (p *PageSetup) size() (w, h float64) {
	size, ok := paperSizes[p.Paper]
	if !ok {
		size = paperSizes["a4"]
	}
	w, h = size[0], size[1]
	if p.Orientation == "landscape" {
		w, h = h, w
	}
	return w, h
}

// LinesPerPage is how many text lines fit between the margins
func (p *PageSetup) LinesPerPage() int {
	_, h := p.size()
	n := int(math.Floor((h - p.MarginTop - p.MarginBottom) / lineHeight))
	if n < 1 {
		n = 1
	}
	return n
}

// MarshalPageSetup encodes a page setup for document metadata
func MarshalPageSetup(p *PageSetup) (string, error) {
	data, err := yaml.Marshal(p)
	return string(data), err
}

// UnmarshalPageSetup is the inverse of MarshalPageSetup
func UnmarshalPageSetup(data string) (*PageSetup, error) {
	p := DefaultPageSetup()
	if err := yaml.Unmarshal([]byte(data), p); err != nil {
		return nil, err
	}
	return p, nil
}

// Action says what a job does once started
type Action int

const (
	// ActionPrintDialog prints with the stored settings; a terminal has
	// no dialog to show
	ActionPrintDialog Action = iota
	ActionPrint
	ActionPreview
)

// Result is the outcome reported by Done
type Result int

const (
	ResultOK Result = iota
	ResultCancel
	ResultError
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultCancel:
		return "cancel"
	}
	return "error"
}

// Done is the payload of the Done event
type Done struct {
	Result Result
	Err    error
}

// Events are the notifications of one job. They are emitted on the loop.
type Events struct {
	// Printing fires whenever the status or progress changes
	Printing signal.Signal[struct{}]
	// ShowPreview fires once the preview is ready
	ShowPreview signal.Signal[*Preview]
	Done        signal.Signal[Done]
}

// Job is one print operation
type Job interface {
	Events() *Events
	// Print starts the job. An error means it could not start at all and
	// no event will follow.
	Print(action Action, setup *PageSetup, settings Settings) error
	Cancel()
	StatusString() string
	Progress() float64
	Settings() Settings
	PageSetup() *PageSetup
}

// Printer creates jobs
type Printer interface {
	NewJob(title, text string) Job
}

// Defaults hands out and records application-wide print defaults
type Defaults interface {
	PageSetup() *PageSetup
	PrintSettings() Settings
	SetPageSetup(p *PageSetup)
	SetPrintSettings(s Settings)
}
