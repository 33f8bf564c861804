package tab

import (
	"log"

	"github.com/ellery/scribe/internal/infobar"
	"github.com/ellery/scribe/internal/metadata"
	"github.com/ellery/scribe/internal/printing"
)

// Print sends the document to the printer
func (t *Tab) Print() error {
	return t.startPrint(printing.ActionPrintDialog, StatePrinting)
}

// PrintPreview prepares a preview that replaces the view until it is
// closed or printed
func (t *Tab) PrintPreview() error {
	return t.startPrint(printing.ActionPreview, StatePrintPreviewing)
}

func (t *Tab) startPrint(action printing.Action, state State) error {
	if t.deps.Lockdown.Printing {
		return ErrLockedDown
	}
	// one print operation at a time
	if t.state == StateShowingPrintPreview {
		t.closePrinting()
	}
	if t.printJob != nil {
		warn("print job already exists")
		return ErrPrintInProgress
	}
	if t.state != StateNormal {
		warn("print in state %s", t.state)
		return ErrWrongState
	}

	job := t.deps.Printer.NewJob(t.doc.ShortName(), t.doc.Text())
	t.printJob = job

	bar := infobar.NewPrinting()
	bar.Responded.Connect(func(infobar.Response) {
		if t.printJob != nil {
			t.printJob.Cancel()
		}
	})
	t.setInfoBar(bar, infobar.ResponseNone)
	// hidden until printing starts
	bar.Hide()

	ev := job.Events()
	ev.Printing.Connect(func(struct{}) { t.printingProgress(job) })
	ev.ShowPreview.Connect(t.showPreview)
	ev.Done.Connect(t.donePrinting)

	t.setState(state)

	if err := job.Print(action, t.pageSetup(), t.printSettings()); err != nil {
		log.Printf("SCRIBE Tab: print of %s failed to start: %v", t.doc.ShortName(), err)
		t.closePrinting()
		return err
	}
	return nil
}

func (t *Tab) pageSetup() *printing.PageSetup {
	if data := t.doc.Metadata(metadata.KeyPageSetup); data != "" {
		if p, err := printing.UnmarshalPageSetup(data); err == nil {
			return p
		}
	}
	if t.deps.PrintDefaults != nil {
		return t.deps.PrintDefaults.PageSetup()
	}
	return printing.DefaultPageSetup()
}

// printSettings are the settings for the next job. The output file is
// named after the document.
func (t *Tab) printSettings() printing.Settings {
	var settings printing.Settings
	if data := t.doc.Metadata(metadata.KeyPrintSettings); data != "" {
		if s, err := printing.UnmarshalSettings(data); err == nil {
			settings = s
		}
	}
	if settings == nil {
		if t.deps.PrintDefaults != nil {
			settings = t.deps.PrintDefaults.PrintSettings()
		} else {
			settings = printing.Settings{}
		}
	}
	settings.Unset(printing.KeyOutputURI)
	settings.Set(printing.KeyOutputBasename, t.doc.ShortName())
	return settings
}

func (t *Tab) printingProgress(job printing.Job) {
	bar := t.bars.Current()
	if bar == nil || !bar.IsProgress() {
		return
	}
	bar.Show()
	bar.SetText(job.StatusString())
	bar.SetFraction(job.Progress())
}

func (t *Tab) showPreview(p *printing.Preview) {
	if t.preview != nil {
		return
	}
	t.setInfoBar(nil, infobar.ResponseNone)
	t.preview = p
	t.setState(StateShowingPrintPreview)
}

// storePrintSettings remembers the options of a finished job for this
// document and as the new defaults. The number of copies is not kept.
func (t *Tab) storePrintSettings(job printing.Job) {
	settings := job.Settings().Copy()
	settings.Unset(printing.KeyNCopies)
	if data, err := printing.MarshalSettings(settings); err == nil {
		t.doc.SetMetadata(metadata.KeyPrintSettings, data)
	}
	setup := job.PageSetup()
	if data, err := printing.MarshalPageSetup(setup); err == nil {
		t.doc.SetMetadata(metadata.KeyPageSetup, data)
	}
	if t.deps.PrintDefaults != nil {
		t.deps.PrintDefaults.SetPrintSettings(settings)
		t.deps.PrintDefaults.SetPageSetup(setup)
	}
}

func (t *Tab) donePrinting(d printing.Done) {
	switch t.state {
	case StatePrinting, StatePrintPreviewing, StateShowingPrintPreview:
	default:
		warn("print job done in state %s", t.state)
		return
	}
	if d.Result == printing.ResultOK {
		t.storePrintSettings(t.printJob)
	}
	// print errors are only logged; the tab goes back to Normal
	if d.Err != nil {
		log.Printf("SCRIBE Tab: printing error: %v", d.Err)
	}
	t.closePrinting()
	t.view.GrabFocus()
}

func (t *Tab) closePrinting() {
	if t.printJob != nil {
		ev := t.printJob.Events()
		ev.Printing.DisconnectAll()
		ev.ShowPreview.DisconnectAll()
		ev.Done.DisconnectAll()
	}
	if t.preview != nil {
		t.preview.Close()
	}
	t.printJob = nil
	t.preview = nil
	t.setInfoBar(nil, infobar.ResponseNone)
	t.setState(StateNormal)
}
