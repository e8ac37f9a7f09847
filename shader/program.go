// Package shader generates the filter GLSL and turns vertex/fragment source
// pairs into linked programs with every host-bound slot resolved up front.
package shader

import (
	log "github.com/sirupsen/logrus"

	"github.com/richinsley/goshaderfilter/graphics"
)

// Source is a vertex/fragment pair ready for the driver.
type Source struct {
	Vertex   string
	Fragment string
	// Names maps declared identifiers to the ones the translator emitted.
	// Names absent from the map are used as declared.
	Names map[string]string
}

// Mapped returns the identifier the compiled program knows name by.
func (s Source) Mapped(name string) string {
	if m, ok := s.Names[name]; ok && m != "" {
		return m
	}
	return name
}

// Layout lists the attributes and uniforms the host binds.
type Layout struct {
	Attributes []string
	Uniforms   []string
}

// DefaultLayout is the filter pipeline's binding contract.
func DefaultLayout() Layout {
	return Layout{
		Attributes: []string{AttribPosition, AttribTexCoord},
		Uniforms:   []string{UniformTransform, UniformTexture, UniformFilterType, UniformIntensity},
	}
}

// Program is a linked shader program and its cached slots.
// All methods must be called on the goroutine that owns the GL context.
type Program struct {
	dev      graphics.Device
	handle   uint32
	attribs  map[string]uint32
	uniforms map[string]int32
}

// NewProgram compiles both stages, links them and resolves every name in
// layout. On any failure the GPU objects created so far are deleted and a
// *CompileError, *LinkError or *MissingUniformError is returned.
func NewProgram(dev graphics.Device, src Source, layout Layout) (*Program, error) {
	vs, err := compileShader(dev, src.Vertex, graphics.VERTEX_SHADER, StageVertex)
	if err != nil {
		return nil, err
	}
	fs, err := compileShader(dev, src.Fragment, graphics.FRAGMENT_SHADER, StageFragment)
	if err != nil {
		dev.DeleteShader(vs)
		return nil, err
	}

	handle := dev.CreateProgram()
	dev.AttachShader(handle, vs)
	dev.AttachShader(handle, fs)
	ok, infoLog := dev.LinkProgram(handle)

	dev.DeleteShader(vs)
	dev.DeleteShader(fs)

	if !ok {
		dev.DeleteProgram(handle)
		return nil, &LinkError{Log: infoLog}
	}

	p := &Program{
		dev:      dev,
		handle:   handle,
		attribs:  make(map[string]uint32, len(layout.Attributes)),
		uniforms: make(map[string]int32, len(layout.Uniforms)),
	}
	for _, name := range layout.Attributes {
		loc := dev.GetAttribLocation(handle, src.Mapped(name))
		if loc < 0 {
			p.Delete()
			return nil, &MissingUniformError{Name: name, Kind: "attribute"}
		}
		p.attribs[name] = uint32(loc)
	}
	for _, name := range layout.Uniforms {
		loc := dev.GetUniformLocation(handle, src.Mapped(name))
		if loc < 0 {
			p.Delete()
			return nil, &MissingUniformError{Name: name, Kind: "uniform"}
		}
		p.uniforms[name] = loc
	}

	log.WithFields(log.Fields{
		"program":    handle,
		"attributes": p.attribs,
		"uniforms":   p.uniforms,
	}).Debug("Shader program linked")
	return p, nil
}

func compileShader(dev graphics.Device, source string, kind uint32, stage Stage) (uint32, error) {
	s := dev.CreateShader(kind)
	if ok, infoLog := dev.CompileShader(s, source); !ok {
		dev.DeleteShader(s)
		return 0, &CompileError{Stage: stage, Log: infoLog}
	}
	return s, nil
}

// Handle returns the GL program name, or 0 after Delete.
func (p *Program) Handle() uint32 {
	return p.handle
}

// Attrib returns the resolved index of a layout attribute.
func (p *Program) Attrib(name string) (uint32, bool) {
	loc, ok := p.attribs[name]
	return loc, ok
}

// Uniform returns the resolved location of a layout uniform, or -1 which GL ignores.
func (p *Program) Uniform(name string) int32 {
	if loc, ok := p.uniforms[name]; ok {
		return loc
	}
	return -1
}

// Use makes the program current.
func (p *Program) Use() {
	p.dev.UseProgram(p.handle)
}

// Delete frees the program. Further calls are no-ops.
func (p *Program) Delete() {
	if p.handle == 0 {
		return
	}
	p.dev.DeleteProgram(p.handle)
	p.handle = 0
}
