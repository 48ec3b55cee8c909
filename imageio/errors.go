package imageio

import (
	"errors"
	"fmt"
)

// Format errors.
var (
	// ErrUnsupportedFormat indicates no plugin handles the file extension
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrBadMagic indicates the file does not start with a known signature
	ErrBadMagic = errors.New("bad magic number")

	// ErrUnsupportedFile indicates a recognized file uses features the codec
	// cannot decode
	ErrUnsupportedFile = errors.New("unsupported file")

	// ErrIncompleteFile indicates the file is shorter than its header claims
	ErrIncompleteFile = errors.New("incomplete file")
)

// Stream errors.
var (
	// ErrFrameOrder indicates a frame was written out of order
	ErrFrameOrder = errors.New("frames must be written in increasing order")

	// ErrClosed indicates use of a closed reader or writer
	ErrClosed = errors.New("closed")

	// ErrNotSeekable indicates a codec needs to seek back into an output
	// that does not support it
	ErrNotSeekable = errors.New("output is not seekable")
)

// Option errors.
var (
	// ErrUnknownOption indicates a plugin option name is not recognized
	ErrUnknownOption = errors.New("unknown option")

	// ErrInvalidOption indicates a plugin option value could not be parsed
	ErrInvalidOption = errors.New("invalid option value")

	// ErrDuplicatePlugin indicates two plugins claim the same name or
	// extension
	ErrDuplicatePlugin = errors.New("duplicate plugin")
)

// Error records a codec failure with the operation and file involved.
type Error struct {
	Op   string // operation that failed, e.g. "open", "read", "write"
	Path string // file path if relevant
	Err  error  // underlying error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error.
func NewError(op, path string, err error) *Error {
	return &Error{Op: op, Path: path, Err: err}
}
