// Command djv_ls lists directories, grouping numbered files into
// sequences.
//
//	djv_ls [options] [file|directory]...
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/opd-ai/djv"
	"github.com/opd-ai/djv/fileinfo"
	"github.com/opd-ai/djv/internal/cli"
	"github.com/sirupsen/logrus"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type config struct {
	inputs      []string
	xInfo       bool
	filePath    bool
	sequencing  bool
	recurse     bool
	hidden      bool
	sort        fileinfo.SortKey
	reverseSort bool
	dirsFirst   bool
	log         cli.LogOptions
}

type lister struct {
	cfg    *config
	out    io.Writer
	errOut io.Writer
	failed bool
}

func run(args []string, stdout, stderr io.Writer) int {
	cli.ConfigureLogging(cli.LogOptions{}, stderr)
	cfg, err := parseArgs(args)
	if err != nil {
		if errors.Is(err, cli.ErrHelp) {
			printUsage(stdout)
			return 0
		}
		fmt.Fprintf(stderr, "djv_ls: %v\n", err)
		fmt.Fprintln(stderr, "Use -help for usage.")
		return 1
	}
	cli.ConfigureLogging(cfg.log, stderr)

	l := &lister{cfg: cfg, out: stdout, errOut: stderr}
	var files []fileinfo.FileInfo
	var dirs []string
	for _, input := range cfg.inputs {
		fi, err := fileinfo.Resolve(input, cfg.sequencing)
		if err != nil {
			l.fail(input, err)
			continue
		}
		if fi.Type == fileinfo.Directory {
			dirs = append(dirs, fi.Path())
			continue
		}
		st, err := os.Stat(fi.FileName(fi.Sequence.Frame(0)))
		if err != nil {
			l.fail(input, err)
			continue
		}
		fi.Size, fi.ModTime = st.Size(), st.ModTime()
		files = append(files, fi)
	}

	l.printItems(files)
	for i, dir := range dirs {
		if i > 0 || len(files) > 0 {
			fmt.Fprintln(stdout)
		}
		l.printDirectory(dir)
	}
	if l.failed {
		return 1
	}
	return 0
}

func parseArgs(list []string) (*config, error) {
	cfg := &config{sequencing: true, dirsFirst: true}
	args := cli.NewArgs(list)
	for {
		arg, ok := args.Next()
		if !ok {
			break
		}
		if cli.IsHelp(arg) {
			return nil, cli.ErrHelp
		}
		if !cli.IsFlag(arg) {
			cfg.inputs = append(cfg.inputs, arg)
			continue
		}
		if handled, err := cfg.log.ParseFlag(arg, args); handled {
			if err != nil {
				return nil, err
			}
			continue
		}
		var err error
		switch arg {
		case "-x_info":
			cfg.xInfo = true
		case "-file_path":
			cfg.filePath = true
		case "-seq", "-q":
			cfg.sequencing, err = args.Bool(arg)
		case "-recurse", "-r":
			cfg.recurse = true
		case "-hidden":
			cfg.hidden = true
		case "-sort", "-s":
			var s string
			if s, err = args.String(arg); err == nil {
				if cfg.sort, err = fileinfo.ParseSortKey(s); err != nil {
					err = fmt.Errorf("%s: %w: %v", arg, cli.ErrBadValue, err)
				}
			}
		case "-reverse_sort", "-rs":
			cfg.reverseSort = true
		case "-x_sort_dirs", "-xsd":
			cfg.dirsFirst = false
		default:
			err = fmt.Errorf("%w: %s", cli.ErrUnknownFlag, arg)
		}
		if err != nil {
			return nil, err
		}
	}
	if len(cfg.inputs) == 0 {
		cfg.inputs = []string{"."}
	}
	return cfg, nil
}

func (l *lister) fail(input string, err error) {
	l.failed = true
	fmt.Fprintf(l.errOut, "djv_ls: %s: %v\n", input, err)
}

func (l *lister) printDirectory(dir string) {
	items, err := fileinfo.List(dir, fileinfo.ListOptions{
		Sequencing: l.cfg.sequencing,
		Hidden:     l.cfg.hidden,
	})
	if err != nil {
		l.fail(dir, err)
		return
	}
	fmt.Fprintf(l.out, "%s:\n", strings.TrimSuffix(dir, string(os.PathSeparator)))
	l.printItems(items)

	logrus.WithFields(logrus.Fields{
		"function": "lister.printDirectory",
		"dir":      dir,
		"items":    len(items),
	}).Debug("Listed directory")

	if !l.cfg.recurse {
		return
	}
	for _, fi := range items {
		if fi.Type == fileinfo.Directory {
			fmt.Fprintln(l.out)
			l.printDirectory(fi.Path())
		}
	}
}

func (l *lister) printItems(items []fileinfo.FileInfo) {
	fileinfo.Sort(items, l.cfg.sort, l.cfg.reverseSort)
	if l.cfg.dirsFirst {
		fileinfo.SortDirectoriesFirst(items)
	}
	for _, fi := range items {
		name := fi.Name()
		if l.cfg.filePath {
			name = fi.Path()
		}
		if fi.Type == fileinfo.Directory {
			name += string(os.PathSeparator)
		}
		if l.cfg.xInfo {
			fmt.Fprintln(l.out, name)
			continue
		}
		fmt.Fprintf(l.out, "%-40s %-9s %10s %s\n",
			name, fi.Type, formatSize(fi), fi.ModTime.Format(time.ANSIC))
	}
}

// formatSize prints a byte count in binary units. Directories show "-".
func formatSize(fi fileinfo.FileInfo) string {
	if fi.Type == fileinfo.Directory {
		return "-"
	}
	const unit = 1024
	if fi.Size < unit {
		return fmt.Sprintf("%dB", fi.Size)
	}
	div, exp := int64(unit), 0
	for n := fi.Size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f%cB", float64(fi.Size)/float64(div), "KMGTPE"[exp])
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `djv_ls %s

List directories, grouping numbered files into sequences.

Usage:
  djv_ls [options] [file|directory]...

Options:
  -x_info                Only print file names.
  -file_path             Print the full path of each file.
  -seq, -q value         File sequencing. Default: true.
  -recurse, -r           Descend into sub directories.
  -hidden                Show hidden files.
  -sort, -s value        Sort by name, type, size or time. Default: name.
  -reverse_sort, -rs     Reverse the sort order.
  -x_sort_dirs, -xsd     Do not list directories first.
  -log_level value       debug, info, warn or error. Default: %s.
  -log_json              Log in JSON.
  -h, -help              Show this message.
`, djv.Version, cli.DefaultLogLevel)
}
