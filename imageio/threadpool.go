package imageio

import (
	"os"
	"runtime"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
)

// EnvThreads names the environment variable sizing the decode pool.
const EnvThreads = "DJV_THREADS"

// ThreadPool is the process wide pool codecs use to decode scanlines in
// parallel. It is reference counted: the first acquirer sizes it and later
// acquirers share it unchanged.
type ThreadPool struct {
	workers int
}

var shared struct {
	mu   sync.Mutex
	pool *ThreadPool
	refs int
}

// AcquireThreadPool returns the shared pool, creating it with n workers if
// no one holds it. n <= 0 uses DJV_THREADS or the CPU count.
func AcquireThreadPool(n int) *ThreadPool {
	shared.mu.Lock()
	defer shared.mu.Unlock()

	if shared.pool == nil {
		if n <= 0 {
			n = defaultThreadCount()
		}
		shared.pool = &ThreadPool{workers: n}
		logrus.WithFields(logrus.Fields{
			"function": "AcquireThreadPool",
			"workers":  n,
		}).Debug("Created decode thread pool")
	}
	shared.refs++
	return shared.pool
}

// Release drops one reference. The pool is discarded with the last one.
func (p *ThreadPool) Release() {
	shared.mu.Lock()
	defer shared.mu.Unlock()

	if shared.pool != p || shared.refs == 0 {
		return
	}
	shared.refs--
	if shared.refs == 0 {
		shared.pool = nil
	}
}

// Workers returns the pool size.
func (p *ThreadPool) Workers() int {
	return p.workers
}

// Rows splits [0, height) into contiguous bands and calls fn for each band
// on the pool workers. It returns when every band is done.
func (p *ThreadPool) Rows(height int, fn func(y0, y1 int)) {
	workers := p.workers
	if workers > height {
		workers = height
	}
	if workers <= 1 {
		if height > 0 {
			fn(0, height)
		}
		return
	}

	type band struct{ y0, y1 int }
	jobs := make(chan band, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range jobs {
				fn(b.y0, b.y1)
			}
		}()
	}

	step := (height + workers - 1) / workers
	for y := 0; y < height; y += step {
		end := y + step
		if end > height {
			end = height
		}
		jobs <- band{y, end}
	}
	close(jobs)
	wg.Wait()
}

func defaultThreadCount() int {
	if value := os.Getenv(EnvThreads); value != "" {
		n, err := strconv.Atoi(value)
		if err == nil && n > 0 {
			return n
		}
		logrus.WithFields(logrus.Fields{
			"function":    "defaultThreadCount",
			"env_var":     EnvThreads,
			"value":       value,
			"using_value": runtime.NumCPU(),
		}).Warn("Invalid DJV_THREADS environment variable, using CPU count")
	}
	return runtime.NumCPU()
}

// threadPoolRefs reports the current reference count.
func threadPoolRefs() int {
	shared.mu.Lock()
	defer shared.mu.Unlock()
	return shared.refs
}
