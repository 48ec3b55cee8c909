package fileinfo

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/opd-ai/djv/sequence"
)

// SortKey selects the directory listing order.
type SortKey int

const (
	// SortName orders by file name.
	SortName SortKey = iota
	// SortType orders by type, then name.
	SortType
	// SortSize orders by size, then name.
	SortSize
	// SortTime orders by modification time, then name.
	SortTime
)

var sortLabels = [...]string{"name", "type", "size", "time"}

// String returns the sort key label.
func (k SortKey) String() string {
	if k < SortName || k > SortTime {
		return "name"
	}
	return sortLabels[k]
}

// ParseSortKey parses "name", "type", "size" or "time".
func ParseSortKey(s string) (SortKey, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for i, label := range sortLabels {
		if label == key {
			return SortKey(i), nil
		}
	}
	return SortName, fmt.Errorf("invalid sort %q", s)
}

// ListOptions configures List.
type ListOptions struct {
	Sequencing bool
	Hidden     bool
}

// List reads a directory and groups numbered files that share a base name
// and extension into Sequence entries. Entries are returned in name order.
func List(dir string, opts ListOptions) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	prefix := dir
	if !strings.HasSuffix(prefix, "/") && !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}

	type group struct {
		index    int
		frames   []int64
		pad      int
		shortest int
	}
	var (
		out    []FileInfo
		groups = map[string]*group{}
	)
	for _, entry := range entries {
		name := entry.Name()
		if !opts.Hidden && strings.HasPrefix(name, ".") {
			continue
		}
		st, err := entry.Info()
		if err != nil {
			continue
		}
		if entry.IsDir() {
			out = append(out, FileInfo{Dir: prefix, Base: name, Type: Directory, ModTime: st.ModTime()})
			continue
		}

		fi := Parse(prefix+name, false)
		fi.Size = st.Size()
		fi.ModTime = st.ModTime()
		if !opts.Sequencing || fi.Number == "" || strings.ContainsAny(fi.Number, ",-#") {
			out = append(out, fi)
			continue
		}
		frames, pad, err := sequence.Expand(fi.Number)
		if err != nil || len(frames) != 1 {
			out = append(out, fi)
			continue
		}

		key := fi.Base + "\x00" + fi.Extension()
		g, ok := groups[key]
		if !ok {
			g = &group{index: len(out)}
			groups[key] = g
			fi.Type = Sequence
			out = append(out, fi)
		} else {
			item := &out[g.index]
			item.Size += fi.Size
			if fi.ModTime.After(item.ModTime) {
				item.ModTime = fi.ModTime
			}
		}
		if pad > g.pad {
			g.pad = pad
		} else if pad == 0 && (g.shortest == 0 || len(fi.Number) < g.shortest) {
			g.shortest = len(fi.Number)
		}
		g.frames = append(g.frames, frames[0])
	}

	for _, g := range groups {
		sort.Slice(g.frames, func(i, j int) bool { return g.frames[i] < g.frames[j] })
		frames := dedup(g.frames)
		// An unpadded number shorter than the padding means the files do
		// not share one width.
		pad := g.pad
		if g.shortest != 0 && g.shortest < pad {
			pad = 0
		}
		item := &out[g.index]
		item.SetSequence(newSequence(frames, pad))
	}

	Sort(out, SortName, false)
	return out, nil
}

// Sort orders a listing in place. Directories are not treated specially;
// see SortDirectoriesFirst.
func Sort(items []FileInfo, key SortKey, reverse bool) {
	less := func(a, b FileInfo) bool {
		switch key {
		case SortType:
			if a.Type != b.Type {
				return a.Type < b.Type
			}
		case SortSize:
			if a.Size != b.Size {
				return a.Size < b.Size
			}
		case SortTime:
			if !a.ModTime.Equal(b.ModTime) {
				return a.ModTime.Before(b.ModTime)
			}
		}
		return a.Name() < b.Name()
	}
	sort.SliceStable(items, func(i, j int) bool {
		if reverse {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})
}

// SortDirectoriesFirst moves directories ahead of files, keeping the
// existing order within each group.
func SortDirectoriesFirst(items []FileInfo) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Type == Directory && items[j].Type != Directory
	})
}

func dedup(frames []int64) []int64 {
	if len(frames) < 2 {
		return frames
	}
	out := frames[:1]
	for _, f := range frames[1:] {
		if f != out[len(out)-1] {
			out = append(out, f)
		}
	}
	return out
}
