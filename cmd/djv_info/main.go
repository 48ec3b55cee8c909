// Command djv_info prints the size, pixel type, duration and speed of
// images, sequences and movies.
//
//	djv_info [options] [file|directory]...
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/opd-ai/djv"
	"github.com/opd-ai/djv/fileinfo"
	"github.com/opd-ai/djv/imageio"
	"github.com/opd-ai/djv/internal/cli"
	"github.com/opd-ai/djv/limits"
	"github.com/opd-ai/djv/pixel"
	"github.com/opd-ai/djv/sequence"
	"github.com/sirupsen/logrus"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type config struct {
	inputs     []string
	xInfo      bool
	verbose    bool
	filePath   bool
	sequencing bool
	recurse    bool
	hash       bool
	log        cli.LogOptions
}

type app struct {
	cfg      *config
	registry *imageio.Registry
	out      io.Writer
	errOut   io.Writer
	failed   bool
}

func run(args []string, stdout, stderr io.Writer) int {
	cli.ConfigureLogging(cli.LogOptions{}, stderr)
	limits.ApplyEnvironmentOverrides()

	registry, err := djv.NewRegistry()
	if err != nil {
		fmt.Fprintf(stderr, "djv_info: %v\n", err)
		return 1
	}
	cfg, err := parseArgs(args, registry)
	if err != nil {
		if errors.Is(err, cli.ErrHelp) {
			printUsage(stdout)
			return 0
		}
		fmt.Fprintf(stderr, "djv_info: %v\n", err)
		fmt.Fprintln(stderr, "Use -help for usage.")
		return 1
	}
	cli.ConfigureLogging(cfg.log, stderr)

	a := &app{cfg: cfg, registry: registry, out: stdout, errOut: stderr}
	for _, input := range cfg.inputs {
		fi, err := fileinfo.Resolve(input, cfg.sequencing)
		if err != nil {
			a.fail(input, err)
			continue
		}
		if fi.Type == fileinfo.Directory {
			a.printDirectory(fi.Path())
			continue
		}
		if err := a.printFile(fi); err != nil {
			a.fail(input, err)
		}
	}
	if a.failed {
		return 1
	}
	return 0
}

func parseArgs(list []string, registry *imageio.Registry) (*config, error) {
	cfg := &config{sequencing: true}
	args := cli.NewArgs(list)
	pluginFlags := map[string]bool{}
	for _, f := range registry.OptionFlags() {
		pluginFlags["-"+f] = true
	}
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
		switch {
		case arg == "-x_info":
			cfg.xInfo = true
		case arg == "-verbose", arg == "-v":
			cfg.verbose = true
		case arg == "-file_path":
			cfg.filePath = true
		case arg == "-seq", arg == "-q":
			cfg.sequencing, err = args.Bool(arg)
		case arg == "-recurse", arg == "-r":
			cfg.recurse = true
		case arg == "-hash":
			cfg.hash = true
		case pluginFlags[arg]:
			var value string
			if value, err = args.String(arg); err == nil {
				if err = registry.SetOption(arg, value); err != nil {
					err = fmt.Errorf("%s: %w", arg, err)
				}
			}
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

func (a *app) fail(input string, err error) {
	a.failed = true
	fmt.Fprintf(a.errOut, "djv_info: %s: %v\n", input, err)
}

func (a *app) name(fi fileinfo.FileInfo) string {
	if a.cfg.filePath {
		return fi.Path()
	}
	return fi.Name()
}

// printFile prints "name WxH:aspect pixel duration@speed". Files with
// several layers print the duration on the first line and one line per
// layer below it.
func (a *app) printFile(fi fileinfo.FileInfo) error {
	r, info, err := a.registry.OpenRead(fi)
	if err != nil {
		return err
	}
	defer r.Close()

	name := a.name(fi)
	switch {
	case a.cfg.xInfo:
		fmt.Fprintln(a.out, name)
	case info.LayerCount() == 1:
		fmt.Fprintf(a.out, "%s %s\n", name, imageio.Label(info.Layer(0), info.Sequence))
	default:
		fmt.Fprintf(a.out, "%s %s@%.6g\n", name,
			sequence.FrameToString(int64(info.Sequence.Len()), info.Sequence.Speed),
			info.Sequence.Speed.Float())
		for i, layer := range info.Layers {
			fmt.Fprintf(a.out, "    %d. %s\n", i, layerLabel(layer))
		}
	}

	if a.cfg.verbose {
		for _, key := range info.Tags.Keys() {
			fmt.Fprintf(a.out, "    %s = %s\n", key, info.Tags.Get(key))
		}
	}
	if a.cfg.hash {
		for _, frame := range info.Sequence.List() {
			img, err := r.ReadFrame(imageio.FrameInfo{Frame: frame})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "    %s %s\n", sequence.FrameToString(frame, info.Sequence.Speed), imageio.Digest(img))
		}
	}
	logrus.WithFields(logrus.Fields{
		"function":  "app.printFile",
		"file_name": fi.Path(),
		"layers":    info.LayerCount(),
	}).Debug("Printed file information")
	return nil
}

func layerLabel(layer pixel.Info) string {
	label := fmt.Sprintf("%dx%d:%.2f %s", layer.Size.W, layer.Size.H, layer.Size.Aspect(), layer.Type)
	if layer.Name != "" {
		label = layer.Name + " " + label
	}
	return label
}

// printDirectory prints every readable entry of dir, descending into sub
// directories when recursing.
func (a *app) printDirectory(dir string) {
	items, err := fileinfo.List(dir, fileinfo.ListOptions{Sequencing: a.cfg.sequencing})
	if err != nil {
		a.fail(dir, err)
		return
	}
	fmt.Fprintf(a.out, "%s:\n", strings.TrimSuffix(dir, string(os.PathSeparator)))

	var dirs []string
	for _, fi := range items {
		if fi.Type == fileinfo.Directory {
			dirs = append(dirs, fi.Path())
			continue
		}
		if _, err := a.registry.Lookup(fi); err != nil {
			continue
		}
		if err := a.printFile(fi); err != nil {
			a.fail(fi.Path(), err)
		}
	}
	if !a.cfg.recurse {
		return
	}
	for _, sub := range dirs {
		fmt.Fprintln(a.out)
		a.printDirectory(sub)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `djv_info %s

Print information about images, sequences and movies.

Usage:
  djv_info [options] [file|directory]...

Options:
  -x_info                Only print file names.
  -verbose, -v           Print image tags.
  -file_path             Print the full path of each file.
  -seq, -q value         File sequencing. Default: true.
  -recurse, -r           Descend into sub directories.
  -hash                  Print a BLAKE2b digest of every frame.
  -log_level value       debug, info, warn or error. Default: %s.
  -log_json              Log in JSON.
  -h, -help              Show this message.

Plugin options such as -dpx_input_color_profile are accepted as in djv_convert.
`, djv.Version, cli.DefaultLogLevel)
}
