// Command djv_convert converts images, sequences and movies between
// formats, optionally scaling, cropping and retagging every frame.
//
//	djv_convert [options] input output
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/opd-ai/djv"
	"github.com/opd-ai/djv/convert"
	"github.com/opd-ai/djv/imageio"
	"github.com/opd-ai/djv/internal/cli"
	"github.com/opd-ai/djv/limits"
	"github.com/opd-ai/djv/pixel"
	"github.com/opd-ai/djv/sequence"
	"github.com/opd-ai/djv/transform"
	"github.com/sirupsen/logrus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type config struct {
	opts  *convert.Options
	log   cli.LogOptions
	quiet bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cli.ConfigureLogging(cli.LogOptions{}, stderr)
	limits.ApplyEnvironmentOverrides()

	registry, err := djv.NewRegistry()
	if err != nil {
		fmt.Fprintf(stderr, "djv_convert: %v\n", err)
		return 1
	}

	cfg := &config{opts: convert.NewOptions()}
	cfg.opts.ApplyEnvironmentOverrides()
	if err := parseArgs(args, cfg, registry); err != nil {
		if errors.Is(err, cli.ErrHelp) {
			printUsage(stdout, registry)
			return 0
		}
		fmt.Fprintf(stderr, "djv_convert: %v\n", err)
		fmt.Fprintln(stderr, "Use -help for usage.")
		return 1
	}
	cli.ConfigureLogging(cfg.log, stderr)

	var observer convert.Observer = convert.NewPrintObserver(stdout)
	if cfg.quiet {
		observer = convert.NopObserver{}
	}
	converter := convert.NewConverter(registry, convert.WithObserver(observer))
	result, err := converter.Run(ctx, cfg.opts)
	if err != nil {
		fmt.Fprintf(stderr, "djv_convert: %v\n", err)
		return 1
	}
	logrus.WithFields(logrus.Fields{
		"function": "run",
		"job_id":   result.JobID.String(),
		"copies":   result.Copies,
	}).Debug("Conversion finished")
	return 0
}

func parseArgs(list []string, cfg *config, registry *imageio.Registry) error {
	o := cfg.opts
	args := cli.NewArgs(list)
	pluginFlags := map[string]bool{}
	for _, f := range registry.OptionFlags() {
		pluginFlags["-"+f] = true
	}

	var positional []string
	for {
		arg, ok := args.Next()
		if !ok {
			break
		}
		if cli.IsHelp(arg) {
			return cli.ErrHelp
		}
		if !cli.IsFlag(arg) {
			positional = append(positional, arg)
			continue
		}
		if handled, err := cfg.log.ParseFlag(arg, args); handled {
			if err != nil {
				return err
			}
			continue
		}
		if pluginFlags[arg] {
			value, err := args.String(arg)
			if err != nil {
				return err
			}
			if err := registry.SetOption(arg, value); err != nil {
				return fmt.Errorf("%s: %w", arg, err)
			}
			continue
		}
		if err := parseFlag(arg, args, cfg); err != nil {
			return err
		}
	}

	if len(positional) != 2 {
		return fmt.Errorf("expected input and output, got %d arguments", len(positional))
	}
	o.Input.File, o.Output.File = positional[0], positional[1]
	return o.Validate()
}

func parseFlag(flag string, args *cli.Args, cfg *config) error {
	o := cfg.opts
	var err error
	switch flag {
	case "-mirror_h":
		o.Mirror.X = true
	case "-mirror_v":
		o.Mirror.Y = true
	case "-scale":
		var s float64
		if s, err = args.Float(flag); err == nil {
			o.Scale = transform.Vec{X: s, Y: s}
		}
	case "-scale_separate":
		var v []float64
		if v, err = args.Floats(flag, 2); err == nil {
			o.Scale = transform.Vec{X: v[0], Y: v[1]}
		}
	case "-resize":
		var v []int
		if v, err = args.Ints(flag, 2); err == nil {
			o.Size = pixel.Size{W: v[0], H: v[1]}
		}
	case "-width":
		o.Size.H = 0
		o.Size.W, err = args.Int(flag)
	case "-height":
		o.Size.W = 0
		o.Size.H, err = args.Int(flag)
	case "-crop":
		var v []int
		if v, err = args.Ints(flag, 4); err == nil {
			o.Crop = convert.Box{X: v[0], Y: v[1], W: v[2], H: v[3]}
		}
	case "-crop_percent":
		var v []float64
		if v, err = args.Floats(flag, 4); err == nil {
			o.CropPercent = convert.BoxF{X: v[0], Y: v[1], W: v[2], H: v[3]}
		}
	case "-channel":
		var s string
		if s, err = args.String(flag); err == nil {
			o.Channel, err = transform.ParseChannel(s)
			err = valueError(flag, err)
		}
	case "-filter":
		var s string
		if s, err = args.String(flag); err == nil {
			o.Filter, err = transform.ParseFilter(s)
			err = valueError(flag, err)
		}
	case "-seq", "-q":
		o.Sequencing, err = args.Bool(flag)
	case "-quiet":
		cfg.quiet = true

	case "-layer":
		o.Input.Layer, err = args.Int(flag)
	case "-proxy":
		var s string
		if s, err = args.String(flag); err == nil {
			o.Input.Proxy, err = pixel.ParseProxy(s)
			err = valueError(flag, err)
		}
	case "-time":
		if o.Input.Start, err = args.String(flag); err == nil {
			o.Input.End, err = args.String(flag)
		}
	case "-slate":
		if o.Input.Slate, err = args.String(flag); err == nil {
			o.Input.SlateFrames, err = args.Int(flag)
		}
	case "-timeout":
		o.Input.Timeout, err = args.Int(flag)

	case "-pixel":
		var s string
		if s, err = args.String(flag); err == nil {
			var t pixel.Type
			if t, err = pixel.ParseType(s); err == nil {
				o.Output.Pixel = &t
			}
			err = valueError(flag, err)
		}
	case "-speed":
		var s string
		if s, err = args.String(flag); err == nil {
			var sp sequence.Speed
			if sp, err = sequence.ParseSpeed(s); err == nil {
				o.Output.Speed = &sp
			}
			err = valueError(flag, err)
		}
	case "-tag":
		var name, value string
		if name, err = args.String(flag); err == nil {
			if value, err = args.String(flag); err == nil {
				o.Output.Tags[name] = value
			}
		}
	case "-tags_auto":
		o.Output.TagsAuto, err = args.Bool(flag)

	default:
		return fmt.Errorf("%w: %s", cli.ErrUnknownFlag, flag)
	}
	return err
}

// valueError names the flag whose value failed to parse.
func valueError(flag string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", flag, err)
}

func printUsage(w io.Writer, registry *imageio.Registry) {
	fmt.Fprintf(w, `djv_convert %s

Convert images, sequences and movies.

Usage:
  djv_convert [options] input output

Transform options:
  -mirror_h, -mirror_v        Mirror the image horizontally or vertically.
  -scale value                Scale the image.
  -scale_separate x y         Scale the width and height separately.
  -resize width height        Resize the image.
  -width value                Resize the width, keeping the aspect ratio.
  -height value               Resize the height, keeping the aspect ratio.
  -crop x y width height      Crop the image in pixels.
  -crop_percent x y w h       Crop the image in percent.
  -channel value              Show only one channel: %s.
  -filter value               Scaling filter: nearest, linear. Default: linear.
  -seq, -q value              File sequencing. Default: true.
  -quiet                      Do not print progress.

Input options:
  -layer value                Input layer.
  -proxy value                Input proxy scale: none, 1/2, 1/4, 1/8.
  -time start end             Start and end frame or timecode.
  -slate input frames         Add a slate of the given length.
  -timeout value              Seconds to wait for input files. Default: %d.

Output options:
  -pixel value                Output pixel type, for example "rgb u16".
  -speed value                Output speed, for example 24 or 30000/1001.
  -tag name value             Set an output image tag.
  -tags_auto value            Write creator, time and timecode tags. Default: %t.

Logging:
  -log_level value            debug, info, warn or error. Default: %s.
  -log_json                   Log in JSON.

Plugin options:
  %s

  -h, -help                   Show this message.
`,
		djv.Version,
		"red, green, blue, alpha",
		convert.NewOptions().Input.Timeout,
		convert.NewOptions().Output.TagsAuto,
		cli.DefaultLogLevel,
		strings.Join(prefixed(registry.OptionFlags()), " "))
}

func prefixed(flags []string) []string {
	out := make([]string, len(flags))
	for i, f := range flags {
		out[i] = "-" + f
	}
	return out
}
