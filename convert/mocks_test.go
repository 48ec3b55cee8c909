package convert

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/opd-ai/djv/fileinfo"
	"github.com/opd-ai/djv/imageio"
	"github.com/opd-ai/djv/pixel"
	"github.com/opd-ai/djv/sequence"
)

var errInjected = errors.New("injected failure")

// mockTimeProvider advances only when Sleep or advance is called.
type mockTimeProvider struct {
	mu          sync.Mutex
	currentTime time.Time
	sleeps      []time.Duration
}

func newMockTimeProvider() *mockTimeProvider {
	return &mockTimeProvider{
		currentTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *mockTimeProvider) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentTime
}

func (m *mockTimeProvider) Since(t time.Time) time.Duration {
	return m.Now().Sub(t)
}

func (m *mockTimeProvider) Sleep(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sleeps = append(m.sleeps, d)
	m.currentTime = m.currentTime.Add(d)
}

func (m *mockTimeProvider) advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentTime = m.currentTime.Add(d)
}

// memoryPlugin keeps images in a map keyed by frame path. Counters inject
// failures: a positive count fails that many calls, -1 fails every call.
type memoryPlugin struct {
	mu      sync.Mutex
	name    string
	exts    []string
	oneShot bool
	files   map[string]*pixel.Image

	openFailures      int
	readFailures      int
	writeFailures     int
	openWriteFailures int
	onRead            func()
	// infoSequence replaces the sequence reported by OpenRead.
	infoSequence *sequence.Sequence
	// extraLayers are reported after the layer of the stored image.
	extraLayers []pixel.Info
	layersRead  []int

	readers []*memoryReader
	writers []*memoryWriter
}

func newMemoryPlugin(name string, exts ...string) *memoryPlugin {
	return &memoryPlugin{name: name, exts: exts, files: map[string]*pixel.Image{}}
}

func fail(counter *int) bool {
	switch {
	case *counter < 0:
		return true
	case *counter > 0:
		*counter--
		return true
	}
	return false
}

func (p *memoryPlugin) Name() string         { return p.name }
func (p *memoryPlugin) Extensions() []string { return p.exts }
func (p *memoryPlugin) Capabilities() imageio.Capabilities {
	return imageio.Capabilities{RandomAccess: true, OneShot: p.oneShot}
}
func (p *memoryPlugin) Probe(path string) bool { return imageio.HasExtension(path, p.exts) }

func (p *memoryPlugin) OpenRead(fi fileinfo.FileInfo) (imageio.Reader, imageio.Info, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fail(&p.openFailures) {
		return nil, imageio.Info{}, imageio.NewError("open", fi.Path(), errInjected)
	}
	seq := sequence.NewRange(0, 0, 0, sequence.DefaultSpeed)
	if fi.Type == fileinfo.Sequence {
		seq = fi.Sequence
	}
	first, ok := p.files[fi.FileName(seq.Frame(0))]
	if !ok {
		return nil, imageio.Info{}, imageio.NewError("open", fi.Path(), os.ErrNotExist)
	}
	info := imageio.NewInfo(fi.Path(), first.Info)
	info.Sequence = seq
	if p.infoSequence != nil {
		info.Sequence = *p.infoSequence
	}
	info.Layers = append(info.Layers, p.extraLayers...)
	r := &memoryReader{plugin: p, fi: fi}
	p.readers = append(p.readers, r)
	return r, info, nil
}

func (p *memoryPlugin) OpenWrite(fi fileinfo.FileInfo, info imageio.Info) (imageio.Writer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fail(&p.openWriteFailures) {
		return nil, imageio.NewError("write", fi.Path(), errInjected)
	}
	w := &memoryWriter{plugin: p, fi: fi, info: info}
	p.writers = append(p.writers, w)
	return w, nil
}

func (p *memoryPlugin) lastWriter() *memoryWriter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.writers) == 0 {
		return nil
	}
	return p.writers[len(p.writers)-1]
}

type memoryReader struct {
	plugin *memoryPlugin
	fi     fileinfo.FileInfo
	reads  int
	closed bool
}

func (r *memoryReader) ReadFrame(fr imageio.FrameInfo) (*pixel.Image, error) {
	p := r.plugin
	if p.onRead != nil {
		p.onRead()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	r.reads++
	p.layersRead = append(p.layersRead, fr.Layer)
	if r.closed {
		return nil, imageio.ErrClosed
	}
	if fail(&p.readFailures) {
		return nil, imageio.NewError("read", r.fi.FileName(fr.Frame), errInjected)
	}
	img, ok := p.files[r.fi.FileName(fr.Frame)]
	if !ok {
		return nil, imageio.NewError("read", r.fi.FileName(fr.Frame), os.ErrNotExist)
	}
	return img, nil
}

func (r *memoryReader) Close() error {
	r.closed = true
	return nil
}

type writtenFrame struct {
	frame int64
	path  string
	img   *pixel.Image
}

type memoryWriter struct {
	plugin  *memoryPlugin
	fi      fileinfo.FileInfo
	info    imageio.Info
	guard   imageio.WriteGuard
	written []writtenFrame
	closes  int
}

func (w *memoryWriter) WriteFrame(img *pixel.Image, fr imageio.FrameInfo) error {
	p := w.plugin
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := w.guard.Next(fr.Frame); err != nil {
		return err
	}
	if fail(&p.writeFailures) {
		w.guard.Undo()
		return imageio.NewError("write", w.fi.FileName(fr.Frame), errInjected)
	}
	path := w.fi.FileName(fr.Frame)
	p.files[path] = img
	w.written = append(w.written, writtenFrame{frame: fr.Frame, path: path, img: img})
	return nil
}

func (w *memoryWriter) Close() error {
	w.closes++
	w.guard.Close()
	return nil
}

func (w *memoryWriter) closed() bool {
	return w.guard.Closed()
}

// recordingObserver keeps every event.
type recordingObserver struct {
	inputs   []string
	layers   []int
	outputs  []string
	slates   []string
	progress []Progress
	done     []*Result
}

func (o *recordingObserver) OnInput(path string, _ imageio.Info, layer int) {
	o.inputs = append(o.inputs, path)
	o.layers = append(o.layers, layer)
}
func (o *recordingObserver) OnOutput(path string, _ imageio.Info) {
	o.outputs = append(o.outputs, path)
}
func (o *recordingObserver) OnSlate(path string)   { o.slates = append(o.slates, path) }
func (o *recordingObserver) OnProgress(p Progress) { o.progress = append(o.progress, p) }
func (o *recordingObserver) OnDone(r *Result)      { o.done = append(o.done, r) }

func solidImage(w, h int, t pixel.Type, c pixel.Color) *pixel.Image {
	img := pixel.NewImage(pixel.NewInfo(pixel.Size{W: w, H: h}, t))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetPixel(x, y, c)
		}
	}
	return img
}

// grey returns an opaque grey of level v/255.
func grey(v int) pixel.Color {
	f := float32(v) / 255
	return pixel.Color{f, f, f, 1}
}
