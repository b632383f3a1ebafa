package render

import (
	"math"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameBufferDepthStartsEmpty(t *testing.T) {
	fb := NewFrameBuffer(8, 8)
	for y := range 8 {
		for x := range 8 {
			assert.True(t, math.IsInf(fb.DepthAt(x, y), 1), "pixel (%d,%d)", x, y)
		}
	}
}

func TestTryDepth(t *testing.T) {
	fb := NewFrameBuffer(4, 4)
	idx := fb.Index(1, 1)
	require.GreaterOrEqual(t, idx, 0)

	assert.True(t, fb.TryDepth(idx, 5), "first write into empty cell wins")
	assert.True(t, fb.TryDepth(idx, 2), "closer depth wins")
	assert.False(t, fb.TryDepth(idx, 3), "farther depth loses")
	assert.False(t, fb.TryDepth(idx, 2), "equal depth keeps the incumbent")
	assert.Equal(t, 2.0, fb.DepthAt(1, 1))
}

func TestTryDepthConcurrentMinimum(t *testing.T) {
	fb := NewFrameBuffer(1, 1)
	idx := fb.Index(0, 0)

	// Many goroutines race distinct depths; the smallest must survive.
	var wg sync.WaitGroup
	for i := 1; i <= 64; i++ {
		wg.Add(1)
		go func(z float64) {
			defer wg.Done()
			fb.TryDepth(idx, z)
		}(float64(i))
	}
	wg.Wait()

	assert.Equal(t, 1.0, fb.DepthAt(0, 0))
}

func TestIndexOutOfBounds(t *testing.T) {
	fb := NewFrameBuffer(4, 4)
	for _, p := range [][2]int{{-1, 0}, {0, -1}, {4, 0}, {0, 4}} {
		assert.Equal(t, -1, fb.Index(p[0], p[1]))
	}
	assert.True(t, math.IsInf(fb.DepthAt(-1, -1), 1))
	assert.Equal(t, Color{}, fb.ColorAt(99, 99))
}

func TestClearGradient(t *testing.T) {
	fb := NewFrameBuffer(4, 8)
	set := DefaultSettings()
	set.Multithreaded = false
	set.Background = BackgroundGradient
	set.BackgroundTop = RGB(200, 0, 0)
	set.BackgroundBottom = RGB(0, 0, 200)
	set.GroundPlane = false

	fb.Clear(set)

	assert.Equal(t, RGB(200, 0, 0), fb.ColorAt(0, 0))
	assert.Equal(t, RGB(0, 0, 200), fb.ColorAt(0, 7))

	mid := fb.ColorAt(0, 4)
	assert.Less(t, mid.R, uint8(200))
	assert.Greater(t, mid.B, uint8(0))
}

func TestClearParallelMatchesSerial(t *testing.T) {
	set := DefaultSettings()
	set.Background = BackgroundGradient
	set.GroundPlane = true
	set.GroundHeight = 0.3

	serial := NewFrameBuffer(33, 21)
	set.Multithreaded = false
	serial.Clear(set)

	parallel := NewFrameBuffer(33, 21)
	set.Multithreaded = true
	set.Workers = 4
	parallel.Clear(set)

	assert.Equal(t, serial.ColorBytes(), parallel.ColorBytes())
}

func TestClearResetsDepth(t *testing.T) {
	fb := NewFrameBuffer(4, 4)
	fb.TryDepth(fb.Index(2, 2), 1.5)

	set := DefaultSettings()
	set.Multithreaded = false
	fb.Clear(set)

	assert.True(t, math.IsInf(fb.DepthAt(2, 2), 1))
}

func TestSavePNG(t *testing.T) {
	fb := NewFrameBuffer(8, 8)
	set := DefaultSettings()
	set.Multithreaded = false
	set.Background = BackgroundSolid
	set.BackgroundTop = RGB(10, 20, 30)
	set.GroundPlane = false
	fb.Clear(set)

	dir := t.TempDir()
	require.NoError(t, fb.SavePNG(filepath.Join(dir, "out.png")))

	fb.TryDepth(fb.Index(3, 3), 2)
	require.NoError(t, fb.SaveDepthPNG(filepath.Join(dir, "depth.png")))
}
