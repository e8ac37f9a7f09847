package renderer

import (
	"errors"
	"fmt"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/richinsley/goshaderfilter/filter"
	"github.com/richinsley/goshaderfilter/graphics"
	"github.com/richinsley/goshaderfilter/inputs"
	"github.com/richinsley/goshaderfilter/shader"
	xlate "github.com/richinsley/goshaderfilter/translator"
)

// ErrReleased is returned when drawing with a released pipeline.
var ErrReleased = errors.New("pipeline released")

// PipelineConfig is everything that shapes the generated program.
type PipelineConfig struct {
	// Table lists the filters compiled into the fragment stage.
	Table filter.Table
	// Translate authors the shaders as WebGL2 and runs them through the translator.
	Translate bool
	// GLES targets ESSL instead of desktop GLSL 4.10.
	GLES bool
	// Initial is the filter state before any update.
	Initial filter.State
	// ClearColor fills the surface before every draw.
	ClearColor [4]float32
}

// DefaultPipelineConfig draws the built-in filters on a black background.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Table:      filter.DefaultTable(),
		Translate:  true,
		Initial:    filter.DefaultState,
		ClearColor: [4]float32{0, 0, 0, 1},
	}
}

// stateCell is the single-slot handoff for the desired filter state. Writers
// publish a fresh immutable State; the GL goroutine loads it once per draw.
type stateCell struct {
	p atomic.Pointer[filter.State]
}

func newStateCell(s filter.State) *stateCell {
	c := &stateCell{}
	s = filter.NewState(s.Type, s.Intensity)
	c.p.Store(&s)
	return c
}

func (c *stateCell) load() filter.State {
	return *c.p.Load()
}

func (c *stateCell) update(fn func(filter.State) filter.State) filter.State {
	for {
		old := c.p.Load()
		next := fn(*old)
		if c.p.CompareAndSwap(old, &next) {
			return next
		}
	}
}

// Pipeline binds the filter program, the channel texture and the quad, and
// issues one draw per call.
type Pipeline struct {
	dev     graphics.Device
	program *shader.Program
	quad    *Quad
	channel inputs.IChannel
	desired *stateCell
	clear   [4]float32

	textureLoc    int32
	transformLoc  int32
	filterTypeLoc int32
	intensityLoc  int32

	released bool
}

// NewPipeline builds the program and geometry for channel. Must be called on
// the GL goroutine. Shader failures surface as *shader.CompileError,
// *shader.LinkError or *shader.MissingUniformError.
func NewPipeline(dev graphics.Device, cfg PipelineConfig, channel inputs.IChannel) (*Pipeline, error) {
	return newPipeline(dev, cfg, channel, newStateCell(cfg.Initial))
}

func newPipeline(dev graphics.Device, cfg PipelineConfig, channel inputs.IChannel, desired *stateCell) (*Pipeline, error) {
	src, err := buildSource(cfg, channel.GetSamplerType())
	if err != nil {
		return nil, err
	}

	program, err := shader.NewProgram(dev, src, shader.DefaultLayout())
	if err != nil {
		return nil, err
	}

	posAttrib, _ := program.Attrib(shader.AttribPosition)
	texAttrib, _ := program.Attrib(shader.AttribTexCoord)
	quad, err := NewQuad(dev, posAttrib, texAttrib)
	if err != nil {
		program.Delete()
		return nil, err
	}

	p := &Pipeline{
		dev:           dev,
		program:       program,
		quad:          quad,
		channel:       channel,
		desired:       desired,
		clear:         cfg.ClearColor,
		textureLoc:    program.Uniform(shader.UniformTexture),
		transformLoc:  program.Uniform(shader.UniformTransform),
		filterTypeLoc: program.Uniform(shader.UniformFilterType),
		intensityLoc:  program.Uniform(shader.UniformIntensity),
	}
	log.WithFields(log.Fields{
		"filters":   len(cfg.Table),
		"translate": cfg.Translate,
		"gles":      cfg.GLES,
		"channel":   channel.GetCType(),
		"sampler":   channel.GetSamplerType(),
	}).Info("Filter pipeline created")
	return p, nil
}

// buildSource generates the shader pair for cfg. With translation enabled both
// stages are authored in WebGL2 so varyings are renamed consistently.
func buildSource(cfg PipelineConfig, samplerType string) (shader.Source, error) {
	if !cfg.Translate {
		dialect := shader.GL410
		if cfg.GLES {
			dialect = shader.WebGL2
		}
		fs, err := shader.GenerateFragmentShader(cfg.Table, samplerType, dialect)
		if err != nil {
			return shader.Source{}, fmt.Errorf("failed to generate fragment shader: %w", err)
		}
		return shader.Source{Vertex: shader.GenerateVertexShader(dialect), Fragment: fs}, nil
	}

	fs, err := shader.GenerateFragmentShader(cfg.Table, samplerType, shader.WebGL2)
	if err != nil {
		return shader.Source{}, fmt.Errorf("failed to generate fragment shader: %w", err)
	}
	vsOut, err := xlate.Translate(shader.GenerateVertexShader(shader.WebGL2), "vertex", cfg.GLES)
	if err != nil {
		return shader.Source{}, err
	}
	fsOut, err := xlate.Translate(fs, "fragment", cfg.GLES)
	if err != nil {
		return shader.Source{}, err
	}

	names := make(map[string]string, len(vsOut.Names)+len(fsOut.Names))
	for k, v := range vsOut.Names {
		names[k] = v
	}
	for k, v := range fsOut.Names {
		names[k] = v
	}
	return shader.Source{Vertex: vsOut.Code, Fragment: fsOut.Code, Names: names}, nil
}

// SetFilter selects the filter used from the next draw on. Out-of-range values
// select Identity. Safe from any goroutine.
func (p *Pipeline) SetFilter(t filter.Type) {
	p.desired.update(func(s filter.State) filter.State { return s.WithType(t) })
}

// SetIntensity sets the blend strength, clamped to [0,1], used from the next
// draw on. Safe from any goroutine.
func (p *Pipeline) SetIntensity(v float32) {
	p.desired.update(func(s filter.State) filter.State { return s.WithIntensity(v) })
}

// State returns the filter state the next draw will use.
func (p *Pipeline) State() filter.State {
	return p.desired.load()
}

// Draw renders tex with the desired filter state, read once up front.
func (p *Pipeline) Draw(tex uint32, transform inputs.Transform) error {
	return p.Bind(tex, transform, p.desired.load())
}

// Bind sets up program, texture unit, uniforms and attributes for one draw,
// draws the quad and leaves no attribute or texture bound.
func (p *Pipeline) Bind(tex uint32, transform inputs.Transform, state filter.State) error {
	if p.released {
		return ErrReleased
	}
	target := p.channel.GetTarget()

	p.program.Use()
	p.dev.ActiveTexture(graphics.TEXTURE0)
	p.dev.BindTexture(target, tex)
	p.dev.Uniform1i(p.textureLoc, 0)
	p.dev.UniformMatrix4fv(p.transformLoc, true, (*[16]float32)(&transform))
	p.dev.Uniform1i(p.filterTypeLoc, int32(state.Type.Normalize()))
	p.dev.Uniform1f(p.intensityLoc, filter.ClampIntensity(state.Intensity))

	p.dev.ClearColor(p.clear[0], p.clear[1], p.clear[2], p.clear[3])
	p.dev.Clear(graphics.COLOR_BUFFER_BIT)

	p.quad.Bind()
	p.quad.Draw()
	p.quad.Unbind()
	p.dev.BindTexture(target, 0)
	return nil
}

// Release deletes the program and geometry. The channel is left to its owner.
// Further calls are no-ops.
func (p *Pipeline) Release() {
	if p.released {
		return
	}
	p.released = true
	p.quad.Delete()
	p.program.Delete()
	log.Debug("Filter pipeline released")
}
