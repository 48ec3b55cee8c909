package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opd-ai/djv/fileinfo"
	"github.com/opd-ai/djv/internal/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
}

func fixtureDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.0001.exr"), 10)
	touch(t, filepath.Join(dir, "a.0002.exr"), 10)
	touch(t, filepath.Join(dir, "a.0003.exr"), 10)
	touch(t, filepath.Join(dir, "big.mov"), 3000)
	touch(t, filepath.Join(dir, ".hidden"), 1)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "zsub"), 0o755))
	touch(t, filepath.Join(dir, "zsub", "inner.png"), 5)
	return dir
}

func lines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

func TestRunNames(t *testing.T) {
	dir := fixtureDir(t)
	var stdout, stderr bytes.Buffer
	code := run([]string{"-x_info", dir}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	assert.Equal(t, []string{
		dir + ":",
		"zsub" + string(os.PathSeparator),
		"a.0001-0003.exr",
		"big.mov",
	}, lines(stdout.String()))
}

func TestRunSortAndOptions(t *testing.T) {
	dir := fixtureDir(t)
	var stdout, stderr bytes.Buffer
	code := run([]string{"-x_info", "-xsd", "-sort", "size", "-reverse_sort", "-hidden", dir}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	got := lines(stdout.String())
	require.NotEmpty(t, got)
	assert.Equal(t, "big.mov", got[1])
	assert.Contains(t, got, ".hidden")

	stdout.Reset()
	code = run([]string{"-x_info", "-seq", "false", dir}, &stdout, &stderr)
	require.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "a.0002.exr\n")
}

func TestRunLongFormat(t *testing.T) {
	dir := fixtureDir(t)
	var stdout, stderr bytes.Buffer
	code := run([]string{"-recurse", dir}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	out := stdout.String()
	assert.Regexp(t, `a\.0001-0003\.exr\s+Sequence\s+30B `, out)
	assert.Regexp(t, `big\.mov\s+File\s+2\.93KB `, out)
	assert.Contains(t, out, filepath.Join(dir, "zsub")+":\n")
	assert.Contains(t, out, "inner.png")
}

func TestRunFileArgument(t *testing.T) {
	dir := fixtureDir(t)
	var stdout, stderr bytes.Buffer
	code := run([]string{"-x_info", "-file_path", filepath.Join(dir, "big.mov")}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, filepath.Join(dir, "big.mov")+"\n", stdout.String())
}

func TestRunFailures(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, run([]string{filepath.Join(t.TempDir(), "missing")}, &stdout, &stderr))
	assert.Equal(t, 1, run([]string{"-sort", "color"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "bad value")
	assert.Equal(t, 0, run([]string{"-help"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "-x_sort_dirs")
}

func TestParseArgs(t *testing.T) {
	cfg, err := parseArgs([]string{"-s", "time", "-rs", "-r", "one", "two"})
	require.NoError(t, err)
	assert.Equal(t, fileinfo.SortTime, cfg.sort)
	assert.True(t, cfg.reverseSort)
	assert.True(t, cfg.recurse)
	assert.True(t, cfg.dirsFirst)
	assert.Equal(t, []string{"one", "two"}, cfg.inputs)

	_, err = parseArgs([]string{"-bogus"})
	assert.ErrorIs(t, err, cli.ErrUnknownFlag)
	_, err = parseArgs([]string{"-sort"})
	assert.ErrorIs(t, err, cli.ErrMissingValue)
}
