package renderer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/richinsley/goshaderfilter/filter"
	"github.com/richinsley/goshaderfilter/graphics"
	"github.com/richinsley/goshaderfilter/inputs"
)

// State is the controller's lifecycle stage.
type State int32

const (
	Uninitialized State = iota
	SurfaceReady
	Rendering
	Released
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case SurfaceReady:
		return "surface-ready"
	case Rendering:
		return "rendering"
	case Released:
		return "released"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

const eventQueueSize = 64

// Stats counts completed and skipped draws.
type Stats struct {
	Draws   uint64
	Skipped uint64
}

// Controller drives render-on-demand drawing on a single GL goroutine.
//
// RequestRender, QueueEvent, SetFilter, SetIntensity and AdjustIntensity may be called from any
// goroutine. The On* surface callbacks and Run belong to the GL goroutine.
type Controller struct {
	surface   graphics.Context
	newDevice func() (graphics.Device, error)
	channel   inputs.IChannel
	cfg       PipelineConfig
	desired   *stateCell

	// ErrorHandler receives recoverable frame-update failures, once per
	// failure episode. Set it before Run.
	ErrorHandler func(error)

	state       atomic.Int32
	redraw      chan struct{}
	events      chan func()
	done        chan struct{}
	releaseOnce sync.Once

	// GL goroutine only.
	dev           graphics.Device
	pipeline      *Pipeline
	drawing       bool
	errorReported bool
	lastState     filter.State

	draws   atomic.Uint64
	skipped atomic.Uint64
}

// NewController wires a surface, a device constructor and a frame channel.
// newDevice runs on the GL goroutine once the surface's context is current.
func NewController(surface graphics.Context, newDevice func() (graphics.Device, error), channel inputs.IChannel, cfg PipelineConfig) *Controller {
	return &Controller{
		surface:   surface,
		newDevice: newDevice,
		channel:   channel,
		cfg:       cfg,
		desired:   newStateCell(cfg.Initial),
		redraw:    make(chan struct{}, 1),
		events:    make(chan func(), eventQueueSize),
		done:      make(chan struct{}),
	}
}

// State returns the current lifecycle stage.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Stats returns draw counters.
func (c *Controller) Stats() Stats {
	return Stats{Draws: c.draws.Load(), Skipped: c.skipped.Load()}
}

// RequestRender arms a redraw. Requests made before the pending one is served
// coalesce into it. No-op after release.
func (c *Controller) RequestRender() {
	if c.State() == Released {
		return
	}
	select {
	case c.redraw <- struct{}{}:
	default:
	}
}

// QueueEvent schedules fn on the GL goroutine ahead of the next draw. It
// reports false when the controller is released or the queue is full.
func (c *Controller) QueueEvent(fn func()) bool {
	if c.State() == Released {
		return false
	}
	select {
	case c.events <- fn:
		return true
	case <-c.done:
		return false
	default:
		log.Warn("Render event queue full, dropping event")
		return false
	}
}

// SetFilter publishes a new filter selection and requests a redraw.
func (c *Controller) SetFilter(t filter.Type) {
	c.desired.update(func(s filter.State) filter.State { return s.WithType(t) })
	c.RequestRender()
}

// SetIntensity publishes a new clamped intensity and requests a redraw.
func (c *Controller) SetIntensity(v float32) {
	c.desired.update(func(s filter.State) filter.State { return s.WithIntensity(v) })
	c.RequestRender()
}

// AdjustIntensity adds delta to the current intensity in one atomic step, so
// concurrent adjustments are never lost, and requests a redraw.
func (c *Controller) AdjustIntensity(delta float32) {
	c.desired.update(func(s filter.State) filter.State { return s.WithIntensity(s.Intensity + delta) })
	c.RequestRender()
}

// FilterState returns the selection the next draw will use.
func (c *Controller) FilterState() filter.State {
	return c.desired.load()
}

// OnSurfaceCreated builds the pipeline and initializes the frame channel.
// Errors are fatal for the controller and returned to the caller.
func (c *Controller) OnSurfaceCreated() error {
	switch c.State() {
	case Released:
		return ErrReleased
	case SurfaceReady, Rendering:
		return fmt.Errorf("surface already created")
	}

	dev, err := c.newDevice()
	if err != nil {
		return err
	}
	pipeline, err := newPipeline(dev, c.cfg, c.channel, c.desired)
	if err != nil {
		return fmt.Errorf("failed to create filter pipeline: %w", err)
	}
	if err := c.channel.Init(dev); err != nil {
		pipeline.Release()
		return fmt.Errorf("failed to initialize frame source: %w", err)
	}

	c.dev = dev
	c.pipeline = pipeline
	c.state.Store(int32(SurfaceReady))
	log.WithField("state", SurfaceReady).Info("Surface created")
	c.RequestRender()
	return nil
}

// OnSurfaceResized updates the viewport and requests a redraw.
func (c *Controller) OnSurfaceResized(width, height int) {
	if c.dev == nil || c.State() == Released {
		return
	}
	c.dev.Viewport(0, 0, int32(width), int32(height))
	log.WithFields(log.Fields{"width": width, "height": height}).Debug("Surface resized")
	c.RequestRender()
}

// OnDrawRequested performs one draw: promote the latest frame, load the
// desired filter state once, draw and present. A call made while a draw is in
// progress only re-arms the pending redraw.
func (c *Controller) OnDrawRequested() {
	switch c.State() {
	case Uninitialized, Released:
		return
	}
	if c.drawing {
		c.RequestRender()
		return
	}
	c.drawing = true
	defer func() { c.drawing = false }()
	c.state.Store(int32(Rendering))

	tex, transform, err := c.channel.Latest()
	if err != nil {
		c.skipped.Add(1)
		if !c.errorReported {
			c.errorReported = true
			c.reportError(err)
		}
		return
	}
	c.errorReported = false

	state := c.desired.load()
	if err := c.pipeline.Bind(tex, transform, state); err != nil {
		c.skipped.Add(1)
		return
	}
	c.surface.SwapBuffers()
	c.draws.Add(1)

	if state != c.lastState {
		log.WithFields(log.Fields{
			"filter":    state.Type.String(),
			"intensity": state.Intensity,
		}).Info("Filter changed")
		c.lastState = state
	}
}

func (c *Controller) reportError(err error) {
	if c.ErrorHandler != nil {
		c.ErrorHandler(err)
		return
	}
	log.WithError(err).Warn("Skipping draw")
}

// OnReleased frees the channel, program and geometry exactly once. Pending
// redraws and events become no-ops.
func (c *Controller) OnReleased() {
	c.releaseOnce.Do(func() {
		c.state.Store(int32(Released))
		close(c.done)
		if c.pipeline != nil {
			c.pipeline.Release()
		}
		c.channel.Destroy()
		log.WithFields(log.Fields{
			"draws":   c.draws.Load(),
			"skipped": c.skipped.Load(),
		}).Info("Renderer released")
	})
}

// Run owns the GL goroutine: it makes the surface current, creates the
// pipeline, then serves events and redraws until ctx ends. Callers must lock
// the goroutine to its OS thread. Resources are released before Run returns.
//
// Run never queries the surface size. The initial viewport arrives like any
// later resize, as an OnSurfaceResized event queued from the thread that owns
// the window.
func (c *Controller) Run(ctx context.Context) error {
	c.surface.MakeCurrent()
	defer c.surface.DetachCurrent()
	defer c.OnReleased()

	if err := c.OnSurfaceCreated(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case fn := <-c.events:
			fn()
		case <-c.redraw:
			c.drainEvents()
			c.OnDrawRequested()
		}
	}
}

// drainEvents runs queued events so they take effect before the draw.
func (c *Controller) drainEvents() {
	for {
		select {
		case fn := <-c.events:
			fn()
		default:
			return
		}
	}
}
