// Package cli holds the argument and logging helpers shared by the djv
// command line tools.
package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrHelp is returned by parsers when -h or -help was given
	ErrHelp = errors.New("help requested")

	// ErrMissingValue indicates a flag at the end of the arguments
	ErrMissingValue = errors.New("missing value")

	// ErrBadValue indicates a flag value that cannot be parsed
	ErrBadValue = errors.New("bad value")

	// ErrUnknownFlag indicates an unrecognized flag
	ErrUnknownFlag = errors.New("unknown option")
)

// Args walks a command line one token at a time. Flags take their values
// from the following tokens, djv style: "-crop 0 0 100 50".
type Args struct {
	list []string
	pos  int
}

// NewArgs wraps the arguments after the program name.
func NewArgs(list []string) *Args {
	return &Args{list: list}
}

// Next returns the next token.
func (a *Args) Next() (string, bool) {
	if a.pos >= len(a.list) {
		return "", false
	}
	s := a.list[a.pos]
	a.pos++
	return s, true
}

// String returns the value following flag.
func (a *Args) String(flag string) (string, error) {
	s, ok := a.Next()
	if !ok {
		return "", fmt.Errorf("%s: %w", flag, ErrMissingValue)
	}
	return s, nil
}

// Int returns the integer following flag.
func (a *Args) Int(flag string) (int, error) {
	s, err := a.String(flag)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w: %q", flag, ErrBadValue, s)
	}
	return v, nil
}

// Float returns the number following flag.
func (a *Args) Float(flag string) (float64, error) {
	s, err := a.String(flag)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w: %q", flag, ErrBadValue, s)
	}
	return v, nil
}

// Bool returns the boolean following flag. "on" and "off" are accepted
// alongside the strconv spellings.
func (a *Args) Bool(flag string) (bool, error) {
	s, err := a.String(flag)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(s) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%s: %w: %q", flag, ErrBadValue, s)
	}
	return v, nil
}

// Ints reads n integers following flag.
func (a *Args) Ints(flag string, n int) ([]int, error) {
	out := make([]int, n)
	for i := range out {
		v, err := a.Int(flag)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Floats reads n numbers following flag.
func (a *Args) Floats(flag string, n int) ([]float64, error) {
	out := make([]float64, n)
	for i := range out {
		v, err := a.Float(flag)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// IsHelp reports whether s asks for usage.
func IsHelp(s string) bool {
	return s == "-h" || s == "-help" || s == "--help"
}

// IsFlag reports whether s looks like an option rather than a path. A
// lone "-" and negative numbers are not flags.
func IsFlag(s string) bool {
	if len(s) < 2 || s[0] != '-' {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err != nil
}
