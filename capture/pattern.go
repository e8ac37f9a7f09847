package capture

import (
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"

	"golang.org/x/image/draw"

	"github.com/richinsley/goshaderfilter/inputs"
)

// Bars are the colours of the test pattern, left to right.
var Bars = []color.RGBA{
	{R: 192, G: 192, B: 192, A: 255},
	{R: 192, G: 192, B: 0, A: 255},
	{R: 0, G: 192, B: 192, A: 255},
	{R: 0, G: 192, B: 0, A: 255},
	{R: 192, G: 0, B: 192, A: 255},
	{R: 192, G: 0, B: 0, A: 255},
	{R: 0, G: 0, B: 192, A: 255},
}

// TestPattern renders colour bars over a luma ramp with a bar sweeping
// across, so every filter has something to act on without a camera.
type TestPattern struct {
	width, height int
	fps           int
	mirror        bool
	now           func() time.Time

	mu     sync.Mutex
	stopCh chan struct{}
	done   chan struct{}
	start  time.Time
}

func NewTestPattern(width, height, fps int) *TestPattern {
	return &TestPattern{width: width, height: height, fps: fps, now: time.Now}
}

func (p *TestPattern) Name() string {
	return fmt.Sprintf("pattern %dx%d@%d", p.width, p.height, p.fps)
}

func (p *TestPattern) Start() (<-chan *inputs.Frame, error) {
	if p.width <= 0 || p.height <= 0 {
		return nil, fmt.Errorf("invalid pattern size %dx%d", p.width, p.height)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopCh != nil {
		return nil, fmt.Errorf("%s already started", p.Name())
	}

	out := make(chan *inputs.Frame, 1)
	stop := make(chan struct{})
	done := make(chan struct{})
	p.stopCh, p.done = stop, done
	p.start = p.now()

	go func() {
		defer close(done)
		defer close(out)
		ticker := time.NewTicker(frameInterval(p.fps))
		defer ticker.Stop()
		for {
			if !send(out, p.Render(p.now().Sub(p.start)), stop) {
				return
			}
			select {
			case <-ticker.C:
			case <-stop:
				return
			}
		}
	}()
	return out, nil
}

func (p *TestPattern) Stop() error {
	p.mu.Lock()
	stop, done := p.stopCh, p.done
	p.stopCh, p.done = nil, nil
	p.mu.Unlock()
	if stop == nil {
		return nil
	}
	close(stop)
	<-done
	return nil
}

// Next returns the mirrored pattern, standing in for a second camera.
func (p *TestPattern) Next() (Producer, error) {
	n := NewTestPattern(p.width, p.height, p.fps)
	n.mirror = !p.mirror
	n.now = p.now
	return n, nil
}

// Render draws the pattern at time t since start.
func (p *TestPattern) Render(t time.Duration) *inputs.Frame {
	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	barsBottom := p.height * 2 / 3

	for i, c := range Bars {
		x0 := i * p.width / len(Bars)
		x1 := (i + 1) * p.width / len(Bars)
		draw.Draw(img, image.Rect(x0, 0, x1, barsBottom), image.NewUniform(c), image.Point{}, draw.Src)
	}

	// Luma ramp, black to white.
	for x := 0; x < p.width; x++ {
		v := uint8(x * 255 / max(p.width-1, 1))
		draw.Draw(img, image.Rect(x, barsBottom, x+1, p.height), image.NewUniform(color.RGBA{v, v, v, 255}), image.Point{}, draw.Src)
	}

	// Sweep bar, one pass every two seconds.
	period := 2 * time.Second
	sweepW := max(p.width/40, 1)
	x := int((t % period) * time.Duration(p.width) / period)
	draw.Draw(img, image.Rect(x, 0, x+sweepW, p.height), image.White, image.Point{}, draw.Src)

	return &inputs.Frame{
		Width:     p.width,
		Height:    p.height,
		Pix:       img.Pix,
		Transform: frameTransform(p.mirror),
		Timestamp: p.start.Add(t),
	}
}
