package tab

import "fmt"

// State is the lifecycle state of a tab. Exactly one holds at a time.
type State int

const (
	StateNormal State = iota
	StateLoading
	StateReverting
	StateSaving
	StatePrinting
	StatePrintPreviewing
	StateShowingPrintPreview
	StateLoadingError
	StateRevertingError
	StateSavingError
	StateGenericError
	StateExternallyModifiedNotification
	StateClosing
)

var stateNames = [...]string{
	StateNormal:                         "normal",
	StateLoading:                        "loading",
	StateReverting:                      "reverting",
	StateSaving:                         "saving",
	StatePrinting:                       "printing",
	StatePrintPreviewing:                "print-previewing",
	StateShowingPrintPreview:            "showing-print-preview",
	StateLoadingError:                   "loading-error",
	StateRevertingError:                 "reverting-error",
	StateSavingError:                    "saving-error",
	StateGenericError:                   "generic-error",
	StateExternallyModifiedNotification: "externally-modified-notification",
	StateClosing:                        "closing",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// busy states show a busy cursor over the view
func (s State) busy() bool {
	switch s {
	case StateLoading, StateReverting, StateSaving, StatePrinting,
		StatePrintPreviewing, StateClosing:
		return true
	}
	return false
}

// IsError reports the states that show an error icon
func (s State) IsError() bool {
	switch s {
	case StateLoadingError, StateRevertingError, StateSavingError, StateGenericError:
		return true
	}
	return false
}
