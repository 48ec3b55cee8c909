package convert

import (
	"errors"
	"fmt"
)

// Kind classifies a conversion failure.
type Kind int

// Failure kinds. SequenceRangeExceeded is only ever reported as a warning.
const (
	CannotOpenInput Kind = iota
	CannotOpenOutput
	CannotOpenSlate
	ReadFailure
	WriteFailure
	UnsupportedFormat
	SequenceRangeExceeded
)

// Sentinel errors matching each Kind through errors.Is.
var (
	ErrCannotOpenInput       = errors.New("cannot open input")
	ErrCannotOpenOutput      = errors.New("cannot open output")
	ErrCannotOpenSlate       = errors.New("cannot open slate")
	ErrReadFailure           = errors.New("cannot read input")
	ErrWriteFailure          = errors.New("cannot write output")
	ErrUnsupportedFormat     = errors.New("unsupported format")
	ErrSequenceRangeExceeded = errors.New("sequence range exceeded")
)

// ErrInvalidOptions indicates conversion options that cannot be run
var ErrInvalidOptions = errors.New("invalid conversion options")

var kindErrors = [...]error{
	CannotOpenInput:       ErrCannotOpenInput,
	CannotOpenOutput:      ErrCannotOpenOutput,
	CannotOpenSlate:       ErrCannotOpenSlate,
	ReadFailure:           ErrReadFailure,
	WriteFailure:          ErrWriteFailure,
	UnsupportedFormat:     ErrUnsupportedFormat,
	SequenceRangeExceeded: ErrSequenceRangeExceeded,
}

// Err returns the sentinel for k.
func (k Kind) Err() error {
	if k < 0 || int(k) >= len(kindErrors) {
		return fmt.Errorf("kind %d", int(k))
	}
	return kindErrors[k]
}

func (k Kind) String() string {
	return k.Err().Error()
}

// Error is a conversion failure with the file involved.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %q", e.Kind, e.Path)
	}
	return fmt.Sprintf("%s: %q: %v", e.Kind, e.Path, e.Err)
}

// Unwrap exposes both the kind sentinel and the underlying codec error.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.Err()}
	}
	return []error{e.Kind.Err(), e.Err}
}

// NewError creates an Error.
func NewError(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}
