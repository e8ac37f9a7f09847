package renderer

import (
	"context"
	"errors"
	"math"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/goshaderfilter/filter"
	"github.com/richinsley/goshaderfilter/graphics"
	"github.com/richinsley/goshaderfilter/inputs"
	"github.com/richinsley/goshaderfilter/internal/gltest"
	"github.com/richinsley/goshaderfilter/shader"
)

type fakeSurface struct {
	current atomic.Bool
	swaps   atomic.Int32
	sizes   atomic.Int32
}

func (s *fakeSurface) MakeCurrent()                   { s.current.Store(true) }
func (s *fakeSurface) DetachCurrent()                 { s.current.Store(false) }
func (s *fakeSurface) SwapBuffers()                   { s.swaps.Add(1) }
func (s *fakeSurface) ShouldClose() bool              { return false }
func (s *fakeSurface) GetFramebufferSize() (int, int) { s.sizes.Add(1); return 640, 480 }
func (s *fakeSurface) Shutdown()                      {}

func testConfig() PipelineConfig {
	cfg := DefaultPipelineConfig()
	cfg.Translate = false
	return cfg
}

func newTestPipeline(t *testing.T) (*Pipeline, *gltest.Device, *inputs.StreamChannel) {
	t.Helper()
	dev := gltest.New()
	ch := inputs.NewStreamChannel(inputs.StreamOptions{})
	if err := ch.Init(dev); err != nil {
		t.Fatalf("channel Init: %v", err)
	}
	p, err := NewPipeline(dev, testConfig(), ch)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p, dev, ch
}

func newTestController(t *testing.T) (*Controller, *gltest.Device, *inputs.StreamChannel, *fakeSurface) {
	t.Helper()
	dev := gltest.New()
	ch := inputs.NewStreamChannel(inputs.StreamOptions{})
	surface := &fakeSurface{}
	c := NewController(surface, func() (graphics.Device, error) { return dev, nil }, ch, testConfig())
	ch.SetFrameAvailableListener(c.RequestRender)
	return c, dev, ch, surface
}

// serve runs pending redraws the way Run would, without a goroutine.
func serve(c *Controller) {
	for {
		select {
		case <-c.redraw:
			c.drainEvents()
			c.OnDrawRequested()
		default:
			return
		}
	}
}

func frameWith(tr inputs.Transform) *inputs.Frame {
	return &inputs.Frame{Width: 2, Height: 2, Pix: make([]byte, 16), Transform: tr, Timestamp: time.Now()}
}

func translation(x float32) inputs.Transform {
	return inputs.TransformFromMat4(mgl32.Translate3D(x, 0, 0))
}

func TestQuadGeometry(t *testing.T) {
	dev := gltest.New()
	q, err := NewQuad(dev, 0, 1)
	if err != nil {
		t.Fatalf("NewQuad: %v", err)
	}
	if q.VertexCount() != 4 {
		t.Errorf("VertexCount = %d", q.VertexCount())
	}
	var uploads [][]float32
	for _, c := range dev.Calls() {
		if c.Name == "BufferData" {
			uploads = append(uploads, c.Args[1].([]float32))
		}
	}
	if len(uploads) != 2 {
		t.Fatalf("BufferData calls = %d, want 2", len(uploads))
	}
	if !reflect.DeepEqual(uploads[0], quadPositions) || !reflect.DeepEqual(uploads[1], quadTexCoords) {
		t.Errorf("uploaded %v", uploads)
	}
	q.Delete()
	q.Delete()
	if dev.Live("buffer") != 0 || dev.Live("vertexarray") != 0 {
		t.Error("quad objects leaked")
	}
}

func TestBindOrder(t *testing.T) {
	p, dev, ch := newTestPipeline(t)
	dev.Reset()
	if err := p.Draw(ch.GetTextureID(), inputs.IdentityTransform); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	want := []string{
		"UseProgram",
		"ActiveTexture",
		"BindTexture",
		"Uniform1i",
		"UniformMatrix4fv",
		"Uniform1i",
		"Uniform1f",
		"ClearColor",
		"Clear",
		"BindVertexArray",
		"EnableVertexAttribArray",
		"EnableVertexAttribArray",
		"DrawArrays",
		"DisableVertexAttribArray",
		"DisableVertexAttribArray",
		"BindVertexArray",
		"BindTexture",
	}
	if got := dev.CallNames(); !reflect.DeepEqual(got, want) {
		t.Fatalf("calls =\n%v\nwant\n%v", got, want)
	}
	calls := dev.Calls()
	if calls[1].Args[0] != uint32(graphics.TEXTURE0) {
		t.Errorf("ActiveTexture(%v)", calls[1].Args[0])
	}
	if calls[2].Args[0] != uint32(graphics.StreamTarget) {
		t.Errorf("BindTexture target %v", calls[2].Args[0])
	}
	if draw := calls[12]; !reflect.DeepEqual(draw.Args, []any{uint32(graphics.TRIANGLE_STRIP), int32(0), int32(4)}) {
		t.Errorf("DrawArrays%v", draw.Args)
	}
	for i := uint32(0); i < 2; i++ {
		if dev.AttribEnabled(i) {
			t.Errorf("attribute %d left enabled", i)
		}
	}
}

func TestBindUploadsState(t *testing.T) {
	p, dev, ch := newTestPipeline(t)
	p.SetFilter(filter.Sepia)
	p.SetIntensity(0.5)

	tr := inputs.FlipVertical()
	if err := p.Draw(ch.GetTextureID(), tr); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if v, _ := dev.Int(shader.UniformFilterType); v != int32(filter.Sepia) {
		t.Errorf("uFilterType = %d", v)
	}
	if v, _ := dev.Float(shader.UniformIntensity); v != 0.5 {
		t.Errorf("uIntensity = %v", v)
	}
	if v, _ := dev.Int(shader.UniformTexture); v != 0 {
		t.Errorf("uTexture = %d", v)
	}
	if m, _ := dev.Matrix(shader.UniformTransform); m != [16]float32(tr) {
		t.Errorf("uTransformMatrix = %v", m)
	}
	for _, c := range dev.Calls() {
		if c.Name == "UniformMatrix4fv" && c.Args[1] != true {
			t.Error("row-major transform uploaded without transpose")
		}
	}

	got := p.State().Apply(mgl32.Vec4{1, 0, 0, 1})
	want := mgl32.Vec4{0.6965, 0.1745, 0.136, 1}
	if !got.ApproxEqualThreshold(want, 1e-5) {
		t.Errorf("sepia@0.5 = %v, want %v", got, want)
	}
}

func TestSetIntensityClamps(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	p.SetIntensity(1.5)
	if got := p.State().Intensity; got != 1 {
		t.Errorf("SetIntensity(1.5) -> %v", got)
	}
	p.SetIntensity(-0.2)
	if got := p.State().Intensity; got != 0 {
		t.Errorf("SetIntensity(-0.2) -> %v", got)
	}
	p.SetFilter(filter.Type(99))
	if got := p.State().Type; got != filter.Identity {
		t.Errorf("SetFilter(99) -> %s", got)
	}
}

func TestPipelineRelease(t *testing.T) {
	p, dev, ch := newTestPipeline(t)
	p.Release()
	p.Release()
	if n := dev.Count("DeleteProgram"); n != 1 {
		t.Errorf("DeleteProgram called %d times", n)
	}
	if dev.Live("program") != 0 || dev.Live("buffer") != 0 || dev.Live("vertexarray") != 0 {
		t.Error("pipeline objects leaked")
	}
	dev.Reset()
	if err := p.Draw(ch.GetTextureID(), inputs.IdentityTransform); !errors.Is(err, ErrReleased) {
		t.Errorf("Draw after release = %v", err)
	}
	if n := len(dev.Calls()); n != 0 {
		t.Errorf("%d GL calls after release", n)
	}
}

func TestPipelineConstructionErrors(t *testing.T) {
	dev := gltest.New()
	dev.CompileFailures[graphics.FRAGMENT_SHADER] = "bad"
	ch := inputs.NewStreamChannel(inputs.StreamOptions{})
	_, err := NewPipeline(dev, testConfig(), ch)
	var ce *shader.CompileError
	if !errors.As(err, &ce) || ce.Stage != shader.StageFragment {
		t.Fatalf("err = %v, want fragment CompileError", err)
	}

	cfg := testConfig()
	cfg.Table = nil
	if _, err := NewPipeline(gltest.New(), cfg, ch); err == nil {
		t.Fatal("empty filter table accepted")
	}
}

func TestControllerLifecycle(t *testing.T) {
	c, dev, ch, surface := newTestController(t)
	if c.State() != Uninitialized {
		t.Fatalf("initial state %s", c.State())
	}
	c.OnDrawRequested()
	if n := len(dev.Calls()); n != 0 {
		t.Fatalf("draw before surface creation issued %d calls", n)
	}

	if err := c.OnSurfaceCreated(); err != nil {
		t.Fatalf("OnSurfaceCreated: %v", err)
	}
	if c.State() != SurfaceReady || !ch.Ready() {
		t.Fatalf("state %s ready %v", c.State(), ch.Ready())
	}
	if err := c.OnSurfaceCreated(); err == nil {
		t.Error("second OnSurfaceCreated succeeded")
	}

	c.OnSurfaceResized(800, 600)
	found := false
	for _, call := range dev.Calls() {
		if call.Name == "Viewport" && reflect.DeepEqual(call.Args, []any{int32(0), int32(0), int32(800), int32(600)}) {
			found = true
		}
	}
	if !found {
		t.Error("resize did not set the viewport")
	}

	serve(c)
	if c.State() != Rendering {
		t.Errorf("state after draw %s", c.State())
	}
	if got := c.Stats().Draws; got != 1 {
		t.Errorf("draws = %d, want 1 (create and resize coalesce)", got)
	}
	if surface.swaps.Load() != 1 {
		t.Errorf("swaps = %d", surface.swaps.Load())
	}

	c.OnReleased()
	c.OnReleased()
	if c.State() != Released {
		t.Errorf("state %s", c.State())
	}
	if n := dev.Count("DeleteProgram"); n != 1 {
		t.Errorf("DeleteProgram called %d times", n)
	}
	if n := dev.Count("DeleteTexture"); n != 1 {
		t.Errorf("DeleteTexture called %d times", n)
	}
	if err := c.OnSurfaceCreated(); !errors.Is(err, ErrReleased) {
		t.Errorf("OnSurfaceCreated after release = %v", err)
	}
}

func TestControllerSurfaceCreatedError(t *testing.T) {
	c, dev, ch, _ := newTestController(t)
	dev.Missing[shader.UniformFilterType] = true
	err := c.OnSurfaceCreated()
	var me *shader.MissingUniformError
	if !errors.As(err, &me) || me.Name != shader.UniformFilterType {
		t.Fatalf("err = %v, want MissingUniformError", err)
	}
	if c.State() != Uninitialized || ch.Ready() {
		t.Errorf("state %s ready %v after failure", c.State(), ch.Ready())
	}
}

func TestRedrawCoalescing(t *testing.T) {
	c, dev, ch, _ := newTestController(t)
	if err := c.OnSurfaceCreated(); err != nil {
		t.Fatal(err)
	}
	serve(c)
	before := c.Stats().Draws

	const n = 10
	for i := 1; i <= n; i++ {
		if err := ch.Deliver(frameWith(translation(float32(i)))); err != nil {
			t.Fatal(err)
		}
	}
	if pending := len(c.redraw); pending != 1 {
		t.Fatalf("pending redraws = %d, want 1", pending)
	}
	serve(c)

	draws := c.Stats().Draws - before
	if draws < 1 || draws > n {
		t.Fatalf("draws = %d, want between 1 and %d", draws, n)
	}
	if m, _ := dev.Matrix(shader.UniformTransform); m != [16]float32(translation(n)) {
		t.Errorf("last draw sampled %v, want the newest frame", m)
	}
}

func TestControllerConcurrentProducer(t *testing.T) {
	c, dev, ch, _ := newTestController(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- c.Run(ctx) }()

	if err := ch.WaitUntilReady(ctx); err != nil {
		t.Fatalf("WaitUntilReady: %v", err)
	}
	const n = 200
	for i := 1; i <= n; i++ {
		if err := ch.Deliver(frameWith(translation(float32(i)))); err != nil {
			t.Fatalf("Deliver: %v", err)
		}
		if i%50 == 0 {
			c.SetFilter(filter.Type(i % 7))
		}
	}

	want := [16]float32(translation(n))
	deadline := time.Now().Add(5 * time.Second)
	for {
		if m, _ := dev.Matrix(shader.UniformTransform); m == want {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("newest frame never drawn")
		}
		time.Sleep(time.Millisecond)
	}
	if d := c.Stats().Draws; d < 1 {
		t.Errorf("draws = %d", d)
	}

	cancel()
	if err := <-errc; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if c.State() != Released {
		t.Errorf("state after Run = %s", c.State())
	}
}

func TestAdjustIntensityConcurrent(t *testing.T) {
	c, _, _, _ := newTestController(t)
	c.SetIntensity(0)

	const workers, steps = 20, 5
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < steps; j++ {
				c.AdjustIntensity(0.005)
			}
		}()
	}
	wg.Wait()

	if got := c.FilterState().Intensity; math.Abs(float64(got)-0.5) > 1e-4 {
		t.Errorf("intensity = %g, want 0.5 with no lost updates", got)
	}
	c.AdjustIntensity(2)
	if got := c.FilterState().Intensity; got != 1 {
		t.Errorf("intensity = %g, want clamped to 1", got)
	}
}

func TestRunTakesInitialSizeFromQueue(t *testing.T) {
	c, dev, _, surface := newTestController(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Queued before Run, as the main thread does after creating the window.
	resized := make(chan struct{})
	if !c.QueueEvent(func() {
		c.OnSurfaceResized(1024, 768)
		close(resized)
	}) {
		t.Fatal("QueueEvent refused before Run")
	}

	errc := make(chan error, 1)
	go func() { errc <- c.Run(ctx) }()

	select {
	case <-resized:
	case <-time.After(5 * time.Second):
		t.Fatal("queued resize never ran")
	}
	cancel()
	if err := <-errc; err != nil {
		t.Fatalf("Run: %v", err)
	}

	if n := surface.sizes.Load(); n != 0 {
		t.Errorf("Run queried the framebuffer size %d times from the render goroutine", n)
	}
	found := false
	for _, call := range dev.Calls() {
		if call.Name == "Viewport" && reflect.DeepEqual(call.Args, []any{int32(0), int32(0), int32(1024), int32(768)}) {
			found = true
		}
	}
	if !found {
		t.Error("queued resize did not set the viewport")
	}
}

func TestFrameUpdateErrorReportedOncePerEpisode(t *testing.T) {
	c, _, ch, surface := newTestController(t)
	var reports []error
	c.ErrorHandler = func(err error) { reports = append(reports, err) }
	if err := c.OnSurfaceCreated(); err != nil {
		t.Fatal(err)
	}
	serve(c)

	bad := func() *inputs.Frame { return &inputs.Frame{Width: 2, Height: 2, Pix: make([]byte, 3)} }
	for i := 0; i < 3; i++ {
		if err := ch.Deliver(bad()); err != nil {
			t.Fatal(err)
		}
		serve(c)
	}
	if len(reports) != 1 {
		t.Fatalf("reports = %d, want 1", len(reports))
	}
	var fe *inputs.FrameUpdateError
	if !errors.As(reports[0], &fe) {
		t.Fatalf("report = %v, want FrameUpdateError", reports[0])
	}
	if got := c.Stats().Skipped; got != 3 {
		t.Errorf("skipped = %d", got)
	}
	swaps := surface.swaps.Load()

	if err := ch.Deliver(frameWith(inputs.IdentityTransform)); err != nil {
		t.Fatal(err)
	}
	serve(c)
	if surface.swaps.Load() != swaps+1 {
		t.Error("good frame was not drawn")
	}

	if err := ch.Deliver(bad()); err != nil {
		t.Fatal(err)
	}
	serve(c)
	if len(reports) != 2 {
		t.Errorf("reports = %d, want 2 after a new episode", len(reports))
	}
}

func TestQueueEventRunsBeforeDraw(t *testing.T) {
	c, dev, _, _ := newTestController(t)
	if err := c.OnSurfaceCreated(); err != nil {
		t.Fatal(err)
	}
	var ran bool
	if !c.QueueEvent(func() {
		ran = true
		c.SetFilter(filter.Invert)
	}) {
		t.Fatal("QueueEvent refused")
	}
	serve(c)
	if !ran {
		t.Fatal("event did not run")
	}
	if v, _ := dev.Int(shader.UniformFilterType); v != int32(filter.Invert) {
		t.Errorf("uFilterType = %d", v)
	}
}

func TestReleaseThenRedrawIsNoop(t *testing.T) {
	c, dev, _, surface := newTestController(t)
	if err := c.OnSurfaceCreated(); err != nil {
		t.Fatal(err)
	}
	c.RequestRender()
	c.OnReleased()
	dev.Reset()
	swaps := surface.swaps.Load()

	c.RequestRender()
	c.OnDrawRequested()
	serve(c)
	c.SetIntensity(0.3)
	if c.QueueEvent(func() { t.Error("event ran after release") }) {
		t.Error("QueueEvent accepted after release")
	}
	serve(c)

	if n := len(dev.Calls()); n != 0 {
		t.Errorf("%d GL calls after release: %v", n, dev.CallNames())
	}
	if surface.swaps.Load() != swaps {
		t.Error("swap after release")
	}
}
