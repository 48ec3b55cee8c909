package convert

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/user"
	"time"

	"github.com/google/uuid"
	"github.com/opd-ai/djv/fileinfo"
	"github.com/opd-ai/djv/imageio"
	"github.com/opd-ai/djv/limits"
	"github.com/opd-ai/djv/pixel"
	"github.com/opd-ai/djv/sequence"
	"github.com/opd-ai/djv/transform"
	"github.com/sirupsen/logrus"
)

// DefaultRetryInterval is the time unit slept between retries.
const DefaultRetryInterval = time.Second

// progressInterval is the minimum wall time between progress reports.
const progressInterval = 3 * time.Second

// Result summarizes a conversion. It is returned alongside errors so
// callers can inspect how far a failed job got.
type Result struct {
	JobID      uuid.UUID
	InputInfo  imageio.Info
	OutputInfo imageio.Info
	// SlateFrames and Frames count the slate and source frames written.
	SlateFrames int
	Frames      int
	// Copies counts frames that went through a pixel copy.
	Copies       int
	OpenRetries  int
	ReadRetries  int
	WriteRetries int
	// Truncated is set when the input exceeded the sequence ceiling.
	Truncated bool
	Elapsed   time.Duration
}

// Converter runs conversions against a codec registry.
type Converter struct {
	registry *imageio.Registry
	time     TimeProvider
	observer Observer
	interval time.Duration
	user     string
}

// ConverterOption configures a Converter.
type ConverterOption func(*Converter)

// WithTimeProvider replaces the clock used for retries and progress.
func WithTimeProvider(tp TimeProvider) ConverterOption {
	return func(c *Converter) {
		if tp != nil {
			c.time = tp
		}
	}
}

// WithObserver receives user facing events.
func WithObserver(o Observer) ConverterOption {
	return func(c *Converter) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithRetryInterval sets the time unit slept between retries.
func WithRetryInterval(d time.Duration) ConverterOption {
	return func(c *Converter) {
		if d >= 0 {
			c.interval = d
		}
	}
}

// WithUser sets the Creator written by automatic tags.
func WithUser(name string) ConverterOption {
	return func(c *Converter) {
		c.user = name
	}
}

// NewConverter creates a Converter reading and writing through registry.
func NewConverter(registry *imageio.Registry, opts ...ConverterOption) *Converter {
	c := &Converter{
		registry: registry,
		time:     DefaultTimeProvider{},
		observer: NopObserver{},
		interval: DefaultRetryInterval,
		user:     currentUser(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func currentUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}

// job holds the state of one Run.
type job struct {
	c    *Converter
	opts *Options
	res  *Result
	log  *logrus.Entry
	pool *imageio.ThreadPool

	inFI   fileinfo.FileInfo
	reader imageio.Reader
	frames []int64

	outFI        fileinfo.FileInfo
	writer       imageio.Writer
	writerClosed bool
	outSeq       sequence.Sequence
	next         int

	target   pixel.Info
	scaled   pixel.Size
	position transform.Vec
}

// Run converts o.Input into o.Output. Frames are read, transformed and
// written one at a time. ctx is checked before each frame; a cancelled
// job closes the output and returns ctx.Err().
func (c *Converter) Run(ctx context.Context, o *Options) (*Result, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	j := &job{
		c:    c,
		opts: o,
		res:  &Result{JobID: uuid.New()},
		pool: imageio.AcquireThreadPool(0),
	}
	defer j.pool.Release()
	j.log = logrus.WithFields(logrus.Fields{
		"job_id": j.res.JobID.String(),
		"input":  o.Input.File,
		"output": o.Output.File,
	})

	start := c.time.Now()
	err := j.run(ctx)
	j.res.Elapsed = c.time.Since(start)
	if err != nil {
		j.log.WithFields(logrus.Fields{
			"function": "Converter.Run",
			"error":    err.Error(),
			"frames":   j.res.Frames,
		}).Error("Conversion failed")
		return j.res, err
	}

	j.log.WithFields(logrus.Fields{
		"function":      "Converter.Run",
		"frames":        j.res.Frames,
		"slate_frames":  j.res.SlateFrames,
		"copies":        j.res.Copies,
		"read_retries":  j.res.ReadRetries,
		"write_retries": j.res.WriteRetries,
		"elapsed":       j.res.Elapsed.String(),
	}).Info("Conversion complete")
	c.observer.OnDone(j.res)
	return j.res, nil
}

func (j *job) run(ctx context.Context) error {
	if err := j.openInput(ctx); err != nil {
		return err
	}
	defer j.reader.Close()

	j.determineRange()

	if err := j.openOutput(); err != nil {
		return err
	}
	defer func() {
		if j.writerClosed {
			return
		}
		if err := j.writer.Close(); err != nil {
			j.log.WithFields(logrus.Fields{
				"function": "job.run",
				"error":    err.Error(),
			}).Warn("Failed to close output after error")
		}
	}()

	if err := j.slate(ctx); err != nil {
		return err
	}
	if err := j.convertFrames(ctx); err != nil {
		return err
	}

	j.writerClosed = true
	if err := j.writer.Close(); err != nil {
		return NewError(WriteFailure, j.outFI.Path(), err)
	}
	return nil
}

// retry calls fn until it succeeds or the timeout budget is spent, sleeping
// one interval between attempts.
func (j *job) retry(ctx context.Context, op, path string, counter *int, fn func() error) error {
	budget := j.opts.Input.Timeout
	for {
		err := fn()
		if err == nil {
			return nil
		}
		if budget <= 0 || ctx.Err() != nil {
			return err
		}
		budget--
		*counter++
		j.log.WithFields(logrus.Fields{
			"function":  "job.retry",
			"operation": op,
			"file_name": path,
			"remaining": budget,
			"error":     err.Error(),
		}).Warn("Retrying after failure")
		j.c.time.Sleep(j.c.interval)
	}
}

func (j *job) openInput(ctx context.Context) error {
	o := j.opts
	j.inFI = fileinfo.Parse(o.Input.File, o.Sequencing)
	plugin, err := j.c.registry.Lookup(j.inFI)
	if err != nil {
		return NewError(UnsupportedFormat, o.Input.File, err)
	}

	var info imageio.Info
	err = j.retry(ctx, "open", o.Input.File, &j.res.OpenRetries, func() error {
		fi := j.inFI
		if fi.IsSequenceWildcard() {
			resolved, err := fileinfo.Resolve(o.Input.File, true)
			if err != nil {
				return err
			}
			fi = resolved
		}
		r, i, err := plugin.OpenRead(fi)
		if err != nil {
			return err
		}
		j.inFI, j.reader, info = fi, r, i
		return nil
	})
	if err != nil {
		return NewError(CannotOpenInput, o.Input.File, err)
	}
	j.res.InputInfo = info

	j.log.WithFields(logrus.Fields{
		"function":   "job.openInput",
		"plugin":     plugin.Name(),
		"file_name":  j.inFI.Path(),
		"layers":     info.LayerCount(),
		"pixel_type": info.Layer(o.Input.Layer).Type.String(),
		"size":       info.Layer(o.Input.Layer).Size.String(),
	}).Info("Opened input")
	return nil
}

// determineRange narrows the input sequence to the start and end options,
// snapping each to the nearest existing frame.
func (j *job) determineRange() {
	o := j.opts
	seq := j.res.InputInfo.Sequence
	if _, err := limits.CheckFrameCount(rawLength(seq)); err != nil {
		j.res.Truncated = true
		j.log.WithFields(logrus.Fields{
			"function": "job.determineRange",
			"kind":     SequenceRangeExceeded.String(),
			"error":    err.Error(),
		}).Warn("Truncating input sequence")
	}

	frames := seq.List()
	first, last := 0, len(frames)-1
	if o.Input.Start != "" {
		f, _ := sequence.StringToFrame(o.Input.Start, seq.Speed)
		first = sequence.FindClosest(f, frames)
	}
	if o.Input.End != "" {
		f, _ := sequence.StringToFrame(o.Input.End, seq.Speed)
		last = sequence.FindClosest(f, frames)
	}
	seq = seq.Slice(first, last)
	j.res.InputInfo.Sequence = seq
	j.frames = seq.List()

	j.c.observer.OnInput(j.inFI.Path(), j.res.InputInfo, o.Input.Layer)
	j.log.WithFields(logrus.Fields{
		"function": "job.determineRange",
		"range":    seq.String(),
		"frames":   len(j.frames),
	}).Debug("Determined frame range")
}

func rawLength(seq sequence.Sequence) int64 {
	if seq.Frames != nil {
		return int64(len(seq.Frames))
	}
	n := seq.End - seq.Start
	if n < 0 {
		n = -n
	}
	return n + 1
}

func (j *job) openOutput() error {
	o := j.opts
	in := j.res.InputInfo
	layer := in.Layer(o.Input.Layer)

	j.outFI = fileinfo.Parse(o.Output.File, o.Sequencing)
	plugin, err := j.c.registry.Lookup(j.outFI)
	if err != nil {
		return NewError(UnsupportedFormat, o.Output.File, err)
	}

	size := j.geometry(pixel.ProxyScale(layer.Size, o.Input.Proxy))
	t := layer.Type
	if o.Output.Pixel != nil {
		t = *o.Output.Pixel
	}
	j.target = pixel.NewInfo(size, imageio.WriteType(plugin, t))
	j.target.Name = layer.Name

	speed := in.Sequence.Speed
	if o.Output.Speed != nil {
		speed = *o.Output.Speed
	}
	j.outSeq = j.outputSequence(plugin, speed, o.Input.SlateFrames+len(j.frames))
	if j.outFI.Type == fileinfo.Sequence && !plugin.Capabilities().OneShot {
		j.outFI.SetSequence(j.outSeq)
	}

	info := imageio.NewInfo(j.outFI.Path(), j.target)
	info.Sequence = j.outSeq
	info.Tags = in.Tags.Merge(o.Output.Tags)
	j.res.OutputInfo = info

	w, err := plugin.OpenWrite(j.outFI, info)
	if err != nil {
		return NewError(CannotOpenOutput, j.outFI.Path(), err)
	}
	j.writer = w

	j.c.observer.OnOutput(j.outFI.Path(), info)
	j.log.WithFields(logrus.Fields{
		"function":   "job.openOutput",
		"plugin":     plugin.Name(),
		"file_name":  j.outFI.Path(),
		"pixel_type": j.target.Type.String(),
		"size":       size.String(),
		"sequence":   j.outSeq.String(),
	}).Info("Opened output")
	return nil
}

// outputSequence numbers the output frames. Single container outputs count
// from zero, numbered outputs start at their own number and wildcards at
// the first input frame.
func (j *job) outputSequence(plugin imageio.Plugin, speed sequence.Speed, total int) sequence.Sequence {
	var start int64
	pad := 0
	switch {
	case plugin.Capabilities().OneShot:
	case j.outFI.IsSequenceWildcard():
		pad = len(j.outFI.Number)
		if len(j.frames) > 0 {
			start = j.frames[0]
		}
	case j.outFI.Type == fileinfo.Sequence:
		start = j.outFI.Sequence.Start
		pad = j.outFI.Sequence.Pad
	}
	if total < 1 {
		total = 1
	}
	return sequence.NewRange(start, start+int64(total)-1, pad, speed)
}

// geometry resolves scale, resize and crop against the source size. It
// records the scaled size and crop offset used for every frame and returns
// the output size.
func (j *job) geometry(src pixel.Size) pixel.Size {
	o := j.opts
	size := src
	if o.Scale.X != 1 || o.Scale.Y != 1 {
		size = pixel.Size{
			W: roundSize(float64(src.W) * o.Scale.X),
			H: roundSize(float64(src.H) * o.Scale.Y),
		}
	}
	switch aspect := src.Aspect(); {
	case o.Size.W > 0 && o.Size.H > 0:
		size = o.Size
	case o.Size.W > 0:
		size = pixel.Size{W: o.Size.W, H: roundSize(float64(o.Size.W) / aspect)}
	case o.Size.H > 0:
		size = pixel.Size{W: roundSize(float64(o.Size.H) * aspect), H: o.Size.H}
	}
	j.scaled = size
	j.position = transform.Vec{}

	switch {
	case o.Crop.IsValid():
		j.position = transform.Vec{X: -float64(o.Crop.X), Y: -float64(o.Crop.Y)}
		return pixel.Size{W: o.Crop.W, H: o.Crop.H}
	case o.CropPercent.IsValid():
		c := o.CropPercent
		x := math.Ceil(float64(size.W) * c.X / 100)
		y := math.Ceil(float64(size.H) * c.Y / 100)
		j.position = transform.Vec{X: -x, Y: -y}
		return pixel.Size{
			W: roundSize(math.Ceil(float64(size.W) * c.W / 100)),
			H: roundSize(math.Ceil(float64(size.H) * c.H / 100)),
		}
	}
	return size
}

func roundSize(v float64) int {
	n := int(math.Round(v))
	if n < 1 {
		return 1
	}
	return n
}

// slate loads the slate image, fits it to the output once and writes it
// SlateFrames times.
func (j *job) slate(ctx context.Context) error {
	o := j.opts
	if o.Input.Slate == "" || o.Input.SlateFrames == 0 {
		return nil
	}
	j.c.observer.OnSlate(o.Input.Slate)

	img, err := j.loadSlate()
	if err != nil {
		return NewError(CannotOpenSlate, o.Input.Slate, err)
	}
	for i := 0; i < o.Input.SlateFrames; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := j.write(ctx, img); err != nil {
			return err
		}
		j.res.SlateFrames++
	}
	j.log.WithFields(logrus.Fields{
		"function": "job.slate",
		"slate":    o.Input.Slate,
		"frames":   j.res.SlateFrames,
	}).Info("Wrote slate")
	return nil
}

func (j *job) loadSlate() (*pixel.Image, error) {
	fi := fileinfo.Parse(j.opts.Input.Slate, false)
	r, info, err := j.c.registry.OpenRead(fi)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	img, err := r.ReadFrame(imageio.FrameInfo{Frame: info.Sequence.Frame(0)})
	if err != nil {
		return nil, err
	}

	dst := pixel.NewImage(j.target)
	opts := transform.DefaultOptions()
	opts.Scale = transform.Vec{
		X: float64(dst.Size.W) / float64(img.Size.W),
		Y: float64(dst.Size.H) / float64(img.Size.H),
	}
	opts.Filter = j.opts.Filter
	if err := j.copy(img, dst, opts); err != nil {
		return nil, err
	}
	dst.Tags = img.Tags.Merge(j.opts.Output.Tags)
	return dst, nil
}

func (j *job) convertFrames(ctx context.Context) error {
	o := j.opts
	n := len(j.frames)
	start := j.c.time.Now()
	last := start
	for i, frame := range j.frames {
		if err := ctx.Err(); err != nil {
			return err
		}

		var img *pixel.Image
		fr := imageio.FrameInfo{Frame: frame, Layer: o.Input.Layer, Proxy: o.Input.Proxy}
		err := j.retry(ctx, "read", j.inFI.FileName(frame), &j.res.ReadRetries, func() error {
			var err error
			img, err = j.reader.ReadFrame(fr)
			return err
		})
		if err != nil {
			return NewError(ReadFailure, j.inFI.FileName(frame), err)
		}

		out, err := j.prepare(img, j.outSeq.Frame(j.next))
		if err != nil {
			return NewError(ReadFailure, j.inFI.FileName(frame), err)
		}
		if err := j.write(ctx, out); err != nil {
			return err
		}
		j.res.Frames++

		if n > 1 && j.c.time.Since(last) >= progressInterval {
			last = j.c.time.Now()
			j.c.observer.OnProgress(progress(i+1, n, j.c.time.Since(start)))
		}
	}
	return nil
}

func progress(done, total int, elapsed time.Duration) Progress {
	p := Progress{Frame: done, Frames: total}
	if done > 0 {
		p.Estimate = elapsed / time.Duration(done) * time.Duration(total-done)
	}
	if s := elapsed.Seconds(); s > 0 {
		p.FramesPerSecond = float64(done) / s
	}
	return p
}

// prepare merges tags and copies img into the target layout when it does
// not already match.
func (j *job) prepare(img *pixel.Image, outFrame int64) (*pixel.Image, error) {
	tags := img.Tags.Clone()
	if j.opts.Output.TagsAuto {
		tags = tags.Merge(j.autoTags(outFrame))
	}
	tags = tags.Merge(j.opts.Output.Tags)

	opts := transform.Options{
		Position:     j.position,
		Scale:        transform.Vec{X: 1, Y: 1},
		Mirror:       j.opts.Mirror,
		Channel:      j.opts.Channel,
		ColorProfile: true,
		Filter:       j.opts.Filter,
	}
	if img.Size != j.scaled {
		opts.Scale = transform.Vec{
			X: float64(j.scaled.W) / float64(img.Size.W),
			Y: float64(j.scaled.H) / float64(img.Size.H),
		}
	}
	if !opts.NeedsCopy(img.Info, img.ColorProfile, j.target) {
		img.Tags = tags
		return img, nil
	}

	dst := pixel.NewImage(j.target)
	if err := j.copy(img, dst, opts); err != nil {
		return nil, err
	}
	dst.Tags = tags
	return dst, nil
}

func (j *job) copy(src, dst *pixel.Image, opts transform.Options) error {
	copier, err := transform.NewCopier(src, dst, opts)
	if err != nil {
		return err
	}
	j.pool.Rows(dst.Size.H, copier.Rows)
	j.res.Copies++
	return nil
}

func (j *job) autoTags(outFrame int64) pixel.Tags {
	tags := pixel.Tags{
		pixel.TagCreator: j.c.user,
		pixel.TagTime:    j.c.time.Now().Format(time.ANSIC),
	}
	if sequence.TimecodeFits(outFrame, j.outSeq.Speed) {
		tc := sequence.FrameToTimecode(outFrame, j.outSeq.Speed)
		tags[pixel.TagTimecode] = sequence.TimecodeToString(tc)
	}
	return tags
}

// write stores img as the next output frame, retrying within the timeout
// budget.
func (j *job) write(ctx context.Context, img *pixel.Image) error {
	frame := j.outSeq.Frame(j.next)
	path := j.outFI.FileName(frame)
	fr := imageio.FrameInfo{Frame: frame}
	err := j.retry(ctx, "write", path, &j.res.WriteRetries, func() error {
		return j.writer.WriteFrame(img, fr)
	})
	if err != nil {
		return NewError(WriteFailure, path, err)
	}
	j.next++
	j.log.WithFields(logrus.Fields{
		"function":  "job.write",
		"frame":     frame,
		"file_name": path,
	}).Debug("Wrote frame")
	return nil
}

// String describes the result in one line.
func (r *Result) String() string {
	return fmt.Sprintf("%s: %d frames (%d slate) in %s", r.JobID, r.Frames+r.SlateFrames, r.SlateFrames, r.Elapsed)
}
