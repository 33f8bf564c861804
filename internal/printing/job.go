package printing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"log"
	"math"
	"os/exec"
	"strings"

	"github.com/kballard/go-shellquote"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ellery/scribe/internal/loop"
)

// ErrJobRunning is returned when Print is called twice on one job
var ErrJobRunning = errors.New("print job already started")

// ErrNoCommand is returned when the print command is empty
var ErrNoCommand = errors.New("no print command configured")

// RunFunc executes the print command with the document on stdin
type RunFunc func(ctx context.Context, args []string, input io.Reader) error

// CommandPrinter prints by piping text to an external command such as
// lpr. The placeholders {title}, {copies} and {printer} in the command are
// replaced from the job settings.
type CommandPrinter struct {
	sched   loop.Scheduler
	Command string
	Run     RunFunc
}

// NewCommandPrinter returns a printer running command through exec
func NewCommandPrinter(sched loop.Scheduler, command string) *CommandPrinter {
	return &CommandPrinter{sched: sched, Command: command, Run: runCommand}
}

func runCommand(ctx context.Context, args []string, input io.Reader) error {
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdin = input
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return fmt.Errorf("%s: %w: %s", args[0], err, msg)
		}
		return fmt.Errorf("%s: %w", args[0], err)
	}
	return nil
}

func (p *CommandPrinter) NewJob(title, text string) Job {
	return &commandJob{printer: p, title: title, text: text}
}

// args splits the command and fills in the placeholders
func (p *CommandPrinter) args(title string, s Settings) ([]string, error) {
	args, err := shellquote.Split(p.Command)
	if err != nil {
		return nil, fmt.Errorf("print command: %w", err)
	}
	if len(args) == 0 {
		return nil, ErrNoCommand
	}
	if name := s.Get(KeyOutputBasename); name != "" {
		title = name
	}
	copies := s.Get(KeyNCopies)
	if copies == "" {
		copies = "1"
	}
	r := strings.NewReplacer("{title}", title, "{copies}", copies, "{printer}", s.Get(KeyPrinter))
	for i, a := range args {
		args[i] = r.Replace(a)
	}
	return args, nil
}

type commandJob struct {
	printer  *CommandPrinter
	title    string
	text     string
	events   Events
	status   string
	progress float64
	settings Settings
	setup    *PageSetup
	cancel   context.CancelFunc
	started  bool
	finished bool
}

func (j *commandJob) Events() *Events { return &j.events }

func (j *commandJob) StatusString() string { return j.status }

func (j *commandJob) Progress() float64 { return j.progress }

func (j *commandJob) Settings() Settings { return j.settings }

func (j *commandJob) PageSetup() *PageSetup { return j.setup }

func (j *commandJob) Cancel() {
	if j.cancel != nil {
		j.cancel()
	}
}

func (j *commandJob) Print(action Action, setup *PageSetup, settings Settings) error {
	if j.started {
		return ErrJobRunning
	}
	j.setup = setup.Copy()
	j.settings = settings.Copy()

	args, err := j.printer.args(j.title, j.settings)
	if err != nil {
		return err
	}

	j.started = true
	ctx, cancel := context.WithCancel(context.Background())
	j.cancel = cancel
	pages := Paginate(j.text, j.setup.LinesPerPage())

	if action == ActionPreview {
		preview := &Preview{job: j, pages: pages, setup: j.setup, ctx: ctx, args: args}
		j.printer.sched.Post(func() {
			j.update("Preparing preview", 0)
			j.events.ShowPreview.Emit(preview)
		})
		return nil
	}

	go j.send(ctx, pages, args)
	return nil
}

// update runs on the loop
func (j *commandJob) update(status string, progress float64) {
	if j.finished {
		return
	}
	j.status = status
	j.progress = progress
	j.events.Printing.Emit(struct{}{})
}

func (j *commandJob) post(status string, progress float64) {
	j.printer.sched.Post(func() { j.update(status, progress) })
}

func (j *commandJob) finish(result Result, err error) {
	j.printer.sched.Post(func() { j.done(result, err) })
}

func (j *commandJob) done(result Result, err error) {
	if j.finished {
		return
	}
	j.finished = true
	if j.cancel != nil {
		j.cancel()
	}
	j.events.Done.Emit(Done{Result: result, Err: err})
}

// send runs off the loop
func (j *commandJob) send(ctx context.Context, pages [][]string, args []string) {
	var buf bytes.Buffer
	n := len(pages)
	for i, page := range pages {
		if ctx.Err() != nil {
			j.finish(ResultCancel, nil)
			return
		}
		j.post(fmt.Sprintf("Rendering page %d of %d...", i+1, n), 0.5*float64(i+1)/float64(n))
		if i > 0 {
			buf.WriteByte('\f')
		}
		buf.WriteString(strings.Join(page, "\n"))
	}
	buf.WriteByte('\n')

	j.post("Sending to printer...", 0.75)
	err := j.printer.Run(ctx, args, &buf)
	switch {
	case ctx.Err() != nil:
		j.finish(ResultCancel, nil)
	case err != nil:
		log.Printf("SCRIBE Print: %s: %v", j.title, err)
		j.finish(ResultError, err)
	default:
		j.post("Finished", 1)
		j.finish(ResultOK, nil)
	}
}

// Paginate splits text into pages of at most perPage lines. Form feeds
// start a new page. There is always at least one page.
func Paginate(text string, perPage int) [][]string {
	if perPage < 1 {
		perPage = 1
	}
	var pages [][]string
	for _, chunk := range strings.Split(text, "\f") {
		lines := strings.Split(strings.TrimSuffix(chunk, "\n"), "\n")
		for len(lines) > perPage {
			pages = append(pages, lines[:perPage])
			lines = lines[perPage:]
		}
		pages = append(pages, lines)
	}
	return pages
}

// Preview pages through a job before it is printed. Close ends the job
// without printing; Print sends it.
type Preview struct {
	job   *commandJob
	pages [][]string
	page  int
	setup *PageSetup
	ctx   context.Context
	args  []string
	ended bool
}

func (p *Preview) PageCount() int { return len(p.pages) }

// Page is the 0-based page on display
func (p *Preview) Page() int { return p.page }

// Lines returns the text of the page on display
func (p *Preview) Lines() []string { return p.pages[p.page] }

func (p *Preview) NextPage() {
	if p.page < len(p.pages)-1 {
		p.page++
	}
}

func (p *Preview) PreviousPage() {
	if p.page > 0 {
		p.page--
	}
}

// Print sends the previewed document to the printer
func (p *Preview) Print() {
	if p.ended || p.job == nil {
		return
	}
	p.ended = true
	go p.job.send(p.ctx, p.pages, p.args)
}

// Close dismisses the preview and ends the job
func (p *Preview) Close() {
	if p.ended || p.job == nil {
		return
	}
	p.ended = true
	p.job.done(ResultCancel, nil)
}

// pixelsPerMM scales pages so a text line matches the 13 px font
const pixelsPerMM = 3

// lineStep is the distance between baselines in a rendered page
func lineStep() int {
	h := lineHeight * pixelsPerMM
	return int(math.Round(h))
}

// Render draws one page as an image
func (p *Preview) Render(page int) image.Image {
	w, h := p.setup.size()
	img := image.NewRGBA(image.Rect(0, 0, int(w*pixelsPerMM), int(h*pixelsPerMM)))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	if page < 0 || page >= len(p.pages) {
		return img
	}

	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Src: image.Black, Face: face}
	x := int(p.setup.MarginLeft * pixelsPerMM)
	y := int(p.setup.MarginTop*pixelsPerMM) + face.Ascent
	step := lineStep()
	for _, line := range p.pages[page] {
		d.Dot = fixed.P(x, y)
		d.DrawString(strings.ReplaceAll(line, "\t", "    "))
		y += step
	}
	return img
}

// WritePNG encodes one page as PNG
func (p *Preview) WritePNG(w io.Writer, page int) error {
	return png.Encode(w, p.Render(page))
}
