package fileinfo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/opd-ai/djv/sequence"
	"github.com/sirupsen/logrus"
)

// Type classifies a FileInfo.
type Type int

const (
	// File is a single file.
	File Type = iota
	// Sequence is a set of numbered files.
	Sequence
	// Directory is a directory.
	Directory
)

// String returns the type label.
func (t Type) String() string {
	switch t {
	case Sequence:
		return "Sequence"
	case Directory:
		return "Directory"
	default:
		return "File"
	}
}

// FileInfo is a path split into sequence components.
type FileInfo struct {
	Dir      string
	Base     string
	Number   string
	Ext      string
	Type     Type
	Sequence sequence.Sequence

	// Size and ModTime are filled in by directory listings. For sequences
	// they are the total size and the newest modification time.
	Size    int64
	ModTime time.Time
}

// Parse splits path into its components. When sequencing is true and the
// name carries a frame number or range, the result is a Sequence.
func Parse(path string, sequencing bool) FileInfo {
	dir, name := splitDir(path)
	fi := FileInfo{Dir: dir, Type: File}

	rest := name
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		fi.Ext = name[i:]
		rest = name[:i]
	}
	fi.Base, fi.Number = splitNumber(rest)
	if fi.Number == "" && fi.Ext != "" && isNumberToken(fi.Ext[1:]) {
		// "render.0001" has a number but no extension.
		fi.Base, fi.Number = rest+".", fi.Ext[1:]
		fi.Ext = ""
	}

	if sequencing && fi.Number != "" {
		fi.applySequence()
	}
	return fi
}

func (fi *FileInfo) applySequence() {
	if fi.IsSequenceWildcard() {
		fi.Type = Sequence
		return
	}
	frames, pad, err := sequence.Expand(fi.Number)
	if err != nil || len(frames) == 0 {
		logrus.WithFields(logrus.Fields{
			"function": "FileInfo.applySequence",
			"number":   fi.Number,
		}).Debug("Name number is not a frame range, treating as a file")
		return
	}
	fi.Type = Sequence
	fi.Sequence = newSequence(frames, pad)
}

func newSequence(frames []int64, pad int) sequence.Sequence {
	contiguous := true
	for i := 1; i < len(frames); i++ {
		if frames[i] != frames[i-1]+1 {
			contiguous = false
			break
		}
	}
	if contiguous {
		return sequence.NewRange(frames[0], frames[len(frames)-1], pad, sequence.DefaultSpeed)
	}
	return sequence.NewFrames(frames, pad, sequence.DefaultSpeed)
}

// IsSequenceWildcard reports whether the number is made of '#' characters.
func (fi FileInfo) IsSequenceWildcard() bool {
	if fi.Number == "" {
		return false
	}
	return strings.Trim(fi.Number, "#") == ""
}

// Path returns the path as given, without frame substitution.
func (fi FileInfo) Path() string {
	return fi.Dir + fi.Base + fi.Number + fi.Ext
}

// Name returns the file name without the directory.
func (fi FileInfo) Name() string {
	return fi.Base + fi.Number + fi.Ext
}

// FileName returns the path of one frame. Non-sequences return Path.
func (fi FileInfo) FileName(frame int64) string {
	if fi.Type != Sequence {
		return fi.Path()
	}
	return fi.Dir + fi.Base + formatFrame(frame, fi.Sequence.Pad) + fi.Ext
}

// Extension returns the lowercase extension including the dot.
func (fi FileInfo) Extension() string {
	return strings.ToLower(fi.Ext)
}

// IsHidden reports whether the file name starts with a dot.
func (fi FileInfo) IsHidden() bool {
	return strings.HasPrefix(fi.Name(), ".")
}

// String returns the path.
func (fi FileInfo) String() string {
	return fi.Path()
}

// SetSequence replaces the sequence and rewrites the number to match.
func (fi *FileInfo) SetSequence(seq sequence.Sequence) {
	fi.Sequence = seq
	fi.Number = seq.String()
	fi.Type = Sequence
}

// ExpandSequence lists the file name of every frame. Non-sequences yield
// their own path.
func ExpandSequence(fi FileInfo) []string {
	if fi.Type != Sequence || fi.IsSequenceWildcard() {
		return []string{fi.Path()}
	}
	frames := fi.Sequence.List()
	out := make([]string, len(frames))
	for i, f := range frames {
		out[i] = fi.FileName(f)
	}
	return out
}

// SequenceWildcardMatch returns the first entry of list sharing the base
// name and extension of in, or in itself.
func SequenceWildcardMatch(in FileInfo, list []FileInfo) FileInfo {
	for _, item := range list {
		if item.Type == Sequence && item.Base == in.Base && item.Extension() == in.Extension() {
			return item
		}
	}
	return in
}

// Resolve parses path and consults the file system: directories become
// Directory entries and wildcards are matched against the directory
// listing.
func Resolve(path string, sequencing bool) (FileInfo, error) {
	if st, err := os.Stat(path); err == nil && st.IsDir() {
		dir := filepath.Clean(path)
		return FileInfo{
			Dir:     filepath.Dir(dir) + string(filepath.Separator),
			Base:    filepath.Base(dir),
			Type:    Directory,
			ModTime: st.ModTime(),
		}, nil
	}
	fi := Parse(path, sequencing)
	if sequencing && fi.IsSequenceWildcard() {
		dir := fi.Dir
		if dir == "" {
			dir = "."
		}
		list, err := List(dir, ListOptions{Sequencing: true})
		if err != nil {
			return fi, fmt.Errorf("resolve %s: %w", path, err)
		}
		match := SequenceWildcardMatch(fi, list)
		if match.IsSequenceWildcard() {
			return fi, fmt.Errorf("resolve %s: %w", path, os.ErrNotExist)
		}
		match.Dir = fi.Dir
		return match, nil
	}
	return fi, nil
}

func splitDir(path string) (string, string) {
	i := strings.LastIndexAny(path, `/\`)
	if i < 0 {
		return "", path
	}
	return path[:i+1], path[i+1:]
}

// splitNumber separates the trailing frame token from a name. A token may
// contain digits, '#', ',' and '-' but must start and end with a digit or
// '#'.
func splitNumber(s string) (string, string) {
	i := len(s)
	for i > 0 && isNumberChar(s[i-1]) {
		i--
	}
	for i < len(s) && (s[i] == '-' || s[i] == ',') {
		i++
	}
	if i == len(s) {
		return s, ""
	}
	last := s[len(s)-1]
	if !isDigit(last) && last != '#' {
		return s, ""
	}
	return s[:i], s[i:]
}

func isNumberToken(s string) bool {
	if s == "" {
		return false
	}
	_, number := splitNumber(s)
	return number == s
}

func isNumberChar(c byte) bool {
	return isDigit(c) || c == '#' || c == '-' || c == ','
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func formatFrame(frame int64, pad int) string {
	if frame < 0 {
		return fmt.Sprintf("-%0*d", pad, -frame)
	}
	return fmt.Sprintf("%0*d", pad, frame)
}
