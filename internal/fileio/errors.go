package fileio

import (
	"errors"
	"fmt"
)

// Domain says which layer raised an Error
type Domain int

const (
	DomainIO Domain = iota
	DomainConvert
	DomainLoader
	DomainSaver
)

func (d Domain) String() string {
	switch d {
	case DomainIO:
		return "io"
	case DomainConvert:
		return "convert"
	case DomainLoader:
		return "loader"
	case DomainSaver:
		return "saver"
	}
	return fmt.Sprintf("domain(%d)", int(d))
}

// Code is the error condition within a Domain
type Code int

const (
	CodeFailed Code = iota
	CodeNotFound
	CodeExists
	CodeIsDirectory
	CodeNotRegularFile
	CodePermissionDenied
	CodeTooLarge
	CodeNotSupported
	CodeHostNotFound
	CodeCancelled
	CodeCantCreateBackup
	CodeInvalidData
	CodePartialInput
	CodeNoSpace

	// DomainLoader
	CodeConversionFallback
	CodeEncodingAutoDetectionFailed

	// DomainSaver
	CodeExternallyModified
	CodeInvalidChars
)

var codeNames = map[Code]string{
	CodeFailed:                      "failed",
	CodeNotFound:                    "not found",
	CodeExists:                      "exists",
	CodeIsDirectory:                 "is a directory",
	CodeNotRegularFile:              "not a regular file",
	CodePermissionDenied:            "permission denied",
	CodeTooLarge:                    "too large",
	CodeNotSupported:                "not supported",
	CodeHostNotFound:                "host not found",
	CodeCancelled:                   "cancelled",
	CodeCantCreateBackup:            "cannot create backup",
	CodeInvalidData:                 "invalid data",
	CodePartialInput:                "partial input",
	CodeNoSpace:                     "no space left",
	CodeConversionFallback:          "conversion fallback",
	CodeEncodingAutoDetectionFailed: "encoding auto-detection failed",
	CodeExternallyModified:          "externally modified",
	CodeInvalidChars:                "invalid characters",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// Error is a typed transport error. Location is the file the operation
// was about and may be empty for stream loads.
type Error struct {
	Domain   Domain
	Code     Code
	Location string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Domain.String() + ": " + e.Code.String()
	if e.Location != "" {
		msg += ": " + e.Location
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same domain and code, so the
// sentinels below work with errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Domain == e.Domain && t.Code == e.Code
}

var (
	ErrNotFound                    = &Error{Domain: DomainIO, Code: CodeNotFound}
	ErrCancelled                   = &Error{Domain: DomainIO, Code: CodeCancelled}
	ErrCantCreateBackup            = &Error{Domain: DomainIO, Code: CodeCantCreateBackup}
	ErrInvalidData                 = &Error{Domain: DomainIO, Code: CodeInvalidData}
	ErrPartialInput                = &Error{Domain: DomainIO, Code: CodePartialInput}
	ErrConversionFallback          = &Error{Domain: DomainLoader, Code: CodeConversionFallback}
	ErrEncodingAutoDetectionFailed = &Error{Domain: DomainLoader, Code: CodeEncodingAutoDetectionFailed}
	ErrExternallyModified          = &Error{Domain: DomainSaver, Code: CodeExternallyModified}
	ErrInvalidChars                = &Error{Domain: DomainSaver, Code: CodeInvalidChars}
)

// AsError extracts the *Error in err's chain
func AsError(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// InDomain reports whether err carries a transport error of domain d
func InDomain(err error, d Domain) bool {
	fe, ok := AsError(err)
	return ok && fe.Domain == d
}

func newError(d Domain, c Code, location string, err error) *Error {
	return &Error{Domain: d, Code: c, Location: location, Err: err}
}
