package imageio

import (
	"sync"
	"testing"

	"github.com/opd-ai/djv/pixel"
	"github.com/stretchr/testify/assert"
)

func TestThreadPoolReferenceCount(t *testing.T) {
	first := AcquireThreadPool(3)
	second := AcquireThreadPool(8)
	assert.Same(t, first, second)
	assert.Equal(t, 3, second.Workers(), "later acquirers must not resize the pool")

	first.Release()
	second.Release()
	assert.Equal(t, 0, threadPoolRefs())

	third := AcquireThreadPool(2)
	defer third.Release()
	assert.Equal(t, 2, third.Workers())
}

func TestThreadPoolRowsCoversEveryRow(t *testing.T) {
	pool := AcquireThreadPool(4)
	defer pool.Release()

	for _, height := range []int{0, 1, 3, 4, 17, 100} {
		var mu sync.Mutex
		seen := make([]int, height)
		pool.Rows(height, func(y0, y1 int) {
			mu.Lock()
			defer mu.Unlock()
			for y := y0; y < y1; y++ {
				seen[y]++
			}
		})
		for y, n := range seen {
			assert.Equal(t, 1, n, "height %d row %d", height, y)
		}
	}
}

func TestThreadPoolEnvironment(t *testing.T) {
	t.Setenv(EnvThreads, "5")
	assert.Equal(t, 5, defaultThreadCount())

	t.Setenv(EnvThreads, "many")
	assert.Greater(t, defaultThreadCount(), 0)
}

func TestProxyReduceAverages(t *testing.T) {
	img := pixel.NewImage(pixel.NewInfo(pixel.Size{W: 2, H: 2}, pixel.LU8))
	img.Data = []byte{0, 255, 255, 0}

	out := ProxyReduce(img, pixel.Proxy1_2, nil)
	assert.Equal(t, pixel.Size{W: 1, H: 1}, out.Size)
	assert.Equal(t, []byte{128}, out.Data)

	assert.Same(t, img, ProxyReduce(img, pixel.ProxyNone, nil))
}

func TestDigest(t *testing.T) {
	a := solidImage(2, 2, pixel.RGBU8, pixel.Color{1, 0, 0, 1})
	b := solidImage(2, 2, pixel.RGBU8, pixel.Color{1, 0, 0, 1})
	c := solidImage(2, 2, pixel.RGBU8, pixel.Color{0, 1, 0, 1})

	assert.Equal(t, Digest(a), Digest(b))
	assert.NotEqual(t, Digest(a), Digest(c))
	assert.Len(t, Digest(a), 64)
}
