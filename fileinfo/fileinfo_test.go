package fileinfo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/opd-ai/djv/sequence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		path   string
		dir    string
		base   string
		number string
		ext    string
		typ    Type
	}{
		{"render.0001-0100.dpx", "", "render.", "0001-0100", ".dpx", Sequence},
		{"shot/render.1-3,5.dpx", "shot/", "render.", "1-3,5", ".dpx", Sequence},
		{"/abs/path/plate.0042.exr", "/abs/path/", "plate.", "0042", ".exr", Sequence},
		{"shot-0001.dpx", "", "shot-", "0001", ".dpx", Sequence},
		{"render.####.dpx", "", "render.", "####", ".dpx", Sequence},
		{"image.png", "", "image", "", ".png", File},
		{"render.0001", "", "render.", "0001", "", Sequence},
		{"archive.7z", "", "archive", "", ".7z", File},
		{"noext", "", "noext", "", "", File},
		{".hidden", "", ".hidden", "", "", File},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			fi := Parse(tt.path, true)
			assert.Equal(t, tt.dir, fi.Dir)
			assert.Equal(t, tt.base, fi.Base)
			assert.Equal(t, tt.number, fi.Number)
			assert.Equal(t, tt.ext, fi.Ext)
			assert.Equal(t, tt.typ, fi.Type)
			assert.Equal(t, tt.path, fi.Path())
		})
	}
}

func TestParseWithoutSequencing(t *testing.T) {
	fi := Parse("render.0001-0100.dpx", false)
	assert.Equal(t, File, fi.Type)
	assert.Equal(t, "render.0001-0100.dpx", fi.FileName(5))
}

func TestParseSequenceRange(t *testing.T) {
	fi := Parse("render.0001-0100.dpx", true)
	assert.Equal(t, int64(1), fi.Sequence.Start)
	assert.Equal(t, int64(100), fi.Sequence.End)
	assert.Equal(t, 4, fi.Sequence.Pad)
	assert.Equal(t, 100, fi.Sequence.Len())
	assert.Equal(t, "render.0042.dpx", fi.FileName(42))

	fi = Parse("plate.1-3,7.exr", true)
	assert.Equal(t, []int64{1, 2, 3, 7}, fi.Sequence.List())
	assert.Equal(t, "plate.7.exr", fi.FileName(7))
}

func TestExtensionIsLowercase(t *testing.T) {
	fi := Parse("IMG.0001.DPX", true)
	assert.Equal(t, ".dpx", fi.Extension())
	assert.Equal(t, ".DPX", fi.Ext)
}

func TestExpandSequence(t *testing.T) {
	fi := Parse("a.8-10.ppm", true)
	assert.Equal(t, []string{"a.8.ppm", "a.9.ppm", "a.10.ppm"}, ExpandSequence(fi))

	single := Parse("a.ppm", true)
	assert.Equal(t, []string{"a.ppm"}, ExpandSequence(single))
}

func TestSetSequence(t *testing.T) {
	fi := Parse("out.0001.dpx", true)
	fi.SetSequence(sequence.NewRange(1, 7, 4, sequence.FPS24))
	assert.Equal(t, "out.0001-0007.dpx", fi.Path())
	assert.Equal(t, "out.0007.dpx", fi.FileName(7))
}

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"render.0001.dpx", "render.0002.dpx", "render.0003.dpx", "render.0005.dpx",
		"comp.10.png", "comp.11.png",
		"notes.txt", ".hidden",
	)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	items, err := List(dir, ListOptions{Sequencing: true})
	require.NoError(t, err)

	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Name()
	}
	assert.Equal(t, []string{"comp.10-11.png", "notes.txt", "render.0001-0003,0005.dpx", "sub"}, names)

	render := items[2]
	assert.Equal(t, Sequence, render.Type)
	assert.Equal(t, []int64{1, 2, 3, 5}, render.Sequence.List())
	assert.Equal(t, 4, render.Sequence.Pad)
	assert.Equal(t, int64(4), render.Size)
	assert.Equal(t, Directory, items[3].Type)

	items, err = List(dir, ListOptions{Sequencing: false, Hidden: true})
	require.NoError(t, err)
	assert.Len(t, items, 9)
}

func TestListMixedPadding(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.0999.dpx", "a.1000.dpx")

	items, err := List(dir, ListOptions{Sequencing: true})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 4, items[0].Sequence.Pad)
	assert.Equal(t, filepath.Join(dir, "a.0999.dpx"), items[0].FileName(999))
}

func TestResolveWildcard(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "shot.0010.dpx", "shot.0011.dpx", "shot.0012.dpx")

	fi, err := Resolve(filepath.Join(dir, "shot.####.dpx"), true)
	require.NoError(t, err)
	assert.Equal(t, Sequence, fi.Type)
	assert.Equal(t, []int64{10, 11, 12}, fi.Sequence.List())
	assert.Equal(t, filepath.Join(dir, "shot.0011.dpx"), fi.FileName(11))

	_, err = Resolve(filepath.Join(dir, "missing.#.dpx"), true)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestResolveDirectory(t *testing.T) {
	dir := t.TempDir()
	fi, err := Resolve(dir, true)
	require.NoError(t, err)
	assert.Equal(t, Directory, fi.Type)
}

func TestSort(t *testing.T) {
	items := []FileInfo{
		{Base: "b", Size: 1},
		{Base: "a", Size: 3},
		{Base: "c", Size: 2},
	}
	Sort(items, SortSize, false)
	assert.Equal(t, "b", items[0].Base)
	assert.Equal(t, "a", items[2].Base)

	Sort(items, SortName, true)
	assert.Equal(t, "c", items[0].Base)

	items = append(items, FileInfo{Base: "z", Type: Directory})
	SortDirectoriesFirst(items)
	assert.Equal(t, "z", items[0].Base)

	key, err := ParseSortKey("TIME")
	require.NoError(t, err)
	assert.Equal(t, SortTime, key)
}
