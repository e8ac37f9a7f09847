package inputs

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/richinsley/goshaderfilter/graphics"
)

// StreamOptions configures a StreamChannel.
type StreamOptions struct {
	// Filter is "linear" (default) or "nearest".
	Filter string
	// Wrap is "clamp" (default) or "repeat".
	Wrap string
}

// StreamStats counts frames through a StreamChannel.
type StreamStats struct {
	Delivered uint64
	Promoted  uint64
	Dropped   uint64
}

// StreamChannel is a streaming texture fed by a producer goroutine.
//
// Producers call Deliver from any goroutine. The frame lands in a single-slot
// mailbox, newer frames replacing older ones, and the frame-available listener
// fires. The GL goroutine calls Latest once per draw, which uploads the
// pending frame and adopts its transform in one step, so a draw never pairs a
// texture with another frame's transform.
type StreamChannel struct {
	opts StreamOptions

	// Owned by the GL goroutine.
	dev       graphics.Device
	texture   uint32
	width     int
	height    int
	transform Transform

	ready     atomic.Bool
	readyCh   chan struct{}
	readyOnce sync.Once
	released  atomic.Bool
	done      chan struct{}

	mu       sync.Mutex
	pending  *Frame
	listener func()

	delivered atomic.Uint64
	promoted  atomic.Uint64
	dropped   atomic.Uint64
}

var _ IChannel = (*StreamChannel)(nil)

// NewStreamChannel creates the endpoint. No GPU work happens until Init.
func NewStreamChannel(opts StreamOptions) *StreamChannel {
	return &StreamChannel{
		opts:      opts,
		transform: IdentityTransform,
		readyCh:   make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (c *StreamChannel) GetCType() string { return "stream" }

func (c *StreamChannel) GetTarget() uint32 { return graphics.StreamTarget }

func (c *StreamChannel) GetSamplerType() string {
	return graphics.SamplerType(graphics.StreamTarget)
}

// GetTextureID returns the streaming texture. GL goroutine only.
func (c *StreamChannel) GetTextureID() uint32 { return c.texture }

// ChannelRes returns the size of the current frame. GL goroutine only.
func (c *StreamChannel) ChannelRes() [3]float32 {
	return [3]float32{float32(c.width), float32(c.height), 1}
}

// Init allocates the streaming texture as 1x1 opaque black and publishes the
// ready flag. Calling it again after success is a no-op.
func (c *StreamChannel) Init(dev graphics.Device) error {
	if c.released.Load() {
		return ErrReleased
	}
	if c.ready.Load() {
		return nil
	}

	target := c.GetTarget()
	minFilter, magFilter := getFilterMode(c.opts.Filter)
	wrap := getWrapMode(c.opts.Wrap)

	tex := dev.GenTexture()
	dev.BindTexture(target, tex)
	dev.TexParameteri(target, graphics.TEXTURE_MIN_FILTER, minFilter)
	dev.TexParameteri(target, graphics.TEXTURE_MAG_FILTER, magFilter)
	dev.TexParameteri(target, graphics.TEXTURE_WRAP_S, wrap)
	dev.TexParameteri(target, graphics.TEXTURE_WRAP_T, wrap)
	dev.TexImage2D(target, 1, 1, []byte{0, 0, 0, 255})
	dev.BindTexture(target, 0)
	if e := dev.GetError(); e != graphics.NO_ERROR {
		dev.DeleteTexture(tex)
		return fmt.Errorf("failed to allocate stream texture: GL error 0x%x", e)
	}

	c.dev = dev
	c.texture = tex
	c.width, c.height = 1, 1

	c.ready.Store(true)
	c.readyOnce.Do(func() { close(c.readyCh) })
	log.WithField("texture", tex).Debug("Stream channel ready")
	return nil
}

// Ready reports whether Init has completed.
func (c *StreamChannel) Ready() bool {
	return c.ready.Load()
}

// WaitUntilReady blocks until Init has published the texture. It returns
// ctx.Err() if ctx ends first and ErrReleased if the channel is released
// before it ever became ready.
func (c *StreamChannel) WaitUntilReady(ctx context.Context) error {
	select {
	case <-c.readyCh:
		return nil
	default:
	}
	select {
	case <-c.readyCh:
		return nil
	case <-c.done:
		return ErrReleased
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetFrameAvailableListener registers the callback raised after each Deliver.
// It runs on the delivering goroutine and must not touch GL state.
func (c *StreamChannel) SetFrameAvailableListener(fn func()) {
	c.mu.Lock()
	c.listener = fn
	c.mu.Unlock()
}

// Deliver hands f to the channel. A frame still pending from an earlier
// Deliver is replaced and counted as dropped.
func (c *StreamChannel) Deliver(f *Frame) error {
	if f == nil {
		return fmt.Errorf("nil frame")
	}
	if c.released.Load() {
		return ErrReleased
	}
	if !c.ready.Load() {
		return ErrNotReady
	}

	c.mu.Lock()
	if c.pending != nil {
		c.dropped.Add(1)
	}
	c.pending = f
	listener := c.listener
	c.mu.Unlock()

	c.delivered.Add(1)
	if listener != nil {
		listener()
	}
	return nil
}

// Latest promotes the pending frame, if any, and returns the texture with the
// transform of the frame it now holds. With nothing pending the current pair
// is returned unchanged. Failures are reported as *FrameUpdateError.
func (c *StreamChannel) Latest() (uint32, Transform, error) {
	if c.released.Load() {
		return 0, Transform{}, &FrameUpdateError{Err: ErrReleased}
	}
	if !c.ready.Load() {
		return 0, Transform{}, &FrameUpdateError{Err: ErrNotReady}
	}

	c.mu.Lock()
	f := c.pending
	c.pending = nil
	c.mu.Unlock()

	if f == nil {
		return c.texture, c.transform, nil
	}
	if err := f.Validate(); err != nil {
		return c.texture, c.transform, &FrameUpdateError{Err: err}
	}

	target := c.GetTarget()
	c.dev.BindTexture(target, c.texture)
	if f.Width != c.width || f.Height != c.height {
		c.dev.TexImage2D(target, int32(f.Width), int32(f.Height), f.Pix)
	} else {
		c.dev.TexSubImage2D(target, int32(f.Width), int32(f.Height), f.Pix)
	}
	c.dev.BindTexture(target, 0)
	if e := c.dev.GetError(); e != graphics.NO_ERROR {
		// The texture contents are undefined now; force a reallocation next time.
		c.width, c.height = 0, 0
		return c.texture, c.transform, &FrameUpdateError{Err: fmt.Errorf("GL error 0x%x after texture upload", e)}
	}

	c.width, c.height = f.Width, f.Height
	c.transform = f.Transform
	c.promoted.Add(1)
	return c.texture, c.transform, nil
}

// Stats returns frame counters. Safe from any goroutine.
func (c *StreamChannel) Stats() StreamStats {
	return StreamStats{
		Delivered: c.delivered.Load(),
		Promoted:  c.promoted.Load(),
		Dropped:   c.dropped.Load(),
	}
}

// Release drops any pending frame and deletes the texture. GL goroutine only;
// later calls are no-ops.
func (c *StreamChannel) Release() {
	if c.released.Swap(true) {
		return
	}
	c.mu.Lock()
	c.pending = nil
	c.listener = nil
	c.mu.Unlock()

	if c.dev != nil && c.texture != 0 {
		c.dev.DeleteTexture(c.texture)
	}
	c.texture = 0
	close(c.done)
	log.WithFields(log.Fields{
		"delivered": c.delivered.Load(),
		"promoted":  c.promoted.Load(),
		"dropped":   c.dropped.Load(),
	}).Info("Stream channel released")
}

// Destroy implements IChannel.
func (c *StreamChannel) Destroy() {
	c.Release()
}
