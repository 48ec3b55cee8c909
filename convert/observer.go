package convert

import (
	"fmt"
	"io"
	"time"

	"github.com/opd-ai/djv/imageio"
	"github.com/opd-ai/djv/sequence"
)

// Progress is a periodic report while frames are converted.
type Progress struct {
	// Frame counts the source frames converted so far.
	Frame  int
	Frames int
	// Estimate is the expected time to finish.
	Estimate time.Duration
	// FramesPerSecond is the mean rate since the job started.
	FramesPerSecond float64
}

// Percent returns the completed share, rounded down.
func (p Progress) Percent() int {
	if p.Frames == 0 {
		return 0
	}
	return p.Frame * 100 / p.Frames
}

// Observer receives user facing events from a conversion. Methods are
// called from the goroutine running the conversion.
type Observer interface {
	// OnInput receives the opened input and the index of the layer being
	// converted.
	OnInput(path string, info imageio.Info, layer int)
	OnOutput(path string, info imageio.Info)
	OnSlate(path string)
	OnProgress(p Progress)
	OnDone(r *Result)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) OnInput(string, imageio.Info, int) {}
func (NopObserver) OnOutput(string, imageio.Info)     {}
func (NopObserver) OnSlate(string)                    {}
func (NopObserver) OnProgress(Progress)               {}
func (NopObserver) OnDone(*Result)                    {}

type printObserver struct {
	w io.Writer
}

// NewPrintObserver returns an Observer writing one line per event to w:
//
//	input.1-100.dpx 2048x1556:1.32 RGB U10 100@24
//	output.1.png 1024x778:1.32 RGB U16 100@24
//	[ 40%] Estimated = 00:00:12 (8.33 Frames/Second)
//	[100%] Elapsed = 00:00:20
func NewPrintObserver(w io.Writer) Observer {
	return &printObserver{w: w}
}

func (o *printObserver) OnInput(path string, info imageio.Info, layer int) {
	l := info.Layer(layer)
	if l.Name != "" && info.LayerCount() > 1 {
		path += ":" + l.Name
	}
	fmt.Fprintf(o.w, "%s %s\n", path, imageio.Label(l, info.Sequence))
}

// OnOutput labels the only layer an output carries.
func (o *printObserver) OnOutput(path string, info imageio.Info) {
	fmt.Fprintf(o.w, "%s %s\n", path, imageio.Label(info.Layer(0), info.Sequence))
}

func (o *printObserver) OnSlate(string) {
	fmt.Fprintln(o.w, "Slating...")
}

func (o *printObserver) OnProgress(p Progress) {
	fmt.Fprintf(o.w, "[%3d%%] Estimated = %s (%.2f Frames/Second)\n",
		p.Percent(), sequence.LabelTime(p.Estimate.Seconds()), p.FramesPerSecond)
}

func (o *printObserver) OnDone(r *Result) {
	if r.Frames > 1 {
		fmt.Fprint(o.w, "[100%] ")
	}
	fmt.Fprintf(o.w, "Elapsed = %s\n", sequence.LabelTime(r.Elapsed.Seconds()))
}
