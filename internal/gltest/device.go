// Package gltest provides a recording graphics.Device for tests that run without a GPU.
package gltest

import (
	"fmt"
	"sync"

	"github.com/richinsley/goshaderfilter/graphics"
)

// Call is one recorded Device invocation.
type Call struct {
	Name string
	Args []any
}

func (c Call) String() string {
	return fmt.Sprintf("%s%v", c.Name, c.Args)
}

// Device records every call and keeps enough GL state to answer queries.
// It is safe for concurrent use so tests can assert that no calls happen from
// the wrong goroutine.
type Device struct {
	mu sync.Mutex

	// CompileFailures maps a shader kind to the info log reported when compiling it.
	CompileFailures map[uint32]string
	// LinkFailure, when non-empty, makes LinkProgram fail with this log.
	LinkFailure string
	// Missing lists attribute and uniform names that resolve to -1.
	Missing map[string]bool
	// PendingError is returned once by the next GetError call.
	PendingError uint32

	calls     []Call
	nextName  uint32
	kinds     map[uint32]uint32
	live      map[uint32]string
	locations map[string]int32
	locNames  map[int32]string
	ints      map[string]int32
	floats    map[string]float32
	matrices  map[string][16]float32
	enabled   map[uint32]bool
	texSizes  map[uint32][2]int32
	bound     map[uint32]uint32
}

var _ graphics.Device = (*Device)(nil)

// New returns an empty recording device.
func New() *Device {
	return &Device{
		CompileFailures: map[uint32]string{},
		Missing:         map[string]bool{},
		kinds:           map[uint32]uint32{},
		live:            map[uint32]string{},
		locations:       map[string]int32{},
		locNames:        map[int32]string{},
		ints:            map[string]int32{},
		floats:          map[string]float32{},
		matrices:        map[string][16]float32{},
		enabled:         map[uint32]bool{},
		texSizes:        map[uint32][2]int32{},
		bound:           map[uint32]uint32{},
	}
}

func (d *Device) record(name string, args ...any) {
	d.calls = append(d.calls, Call{Name: name, Args: args})
}

func (d *Device) alloc(kind string) uint32 {
	d.nextName++
	d.live[d.nextName] = kind
	return d.nextName
}

func (d *Device) free(name uint32) {
	delete(d.live, name)
}

// Calls returns a copy of the recorded calls.
func (d *Device) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// CallNames returns the recorded call names in order.
func (d *Device) CallNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, len(d.calls))
	for i, c := range d.calls {
		names[i] = c.Name
	}
	return names
}

// Count returns how many times the named call was recorded.
func (d *Device) Count(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

// Reset forgets recorded calls but keeps object and uniform state.
func (d *Device) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = nil
}

// Live returns how many objects of a kind ("shader", "program", "texture",
// "buffer", "vertexarray") exist.
func (d *Device) Live(kind string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, k := range d.live {
		if k == kind {
			n++
		}
	}
	return n
}

// Int returns the last value set for an integer uniform.
func (d *Device) Int(name string) (int32, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.ints[name]
	return v, ok
}

// Float returns the last value set for a float uniform.
func (d *Device) Float(name string) (float32, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.floats[name]
	return v, ok
}

// Matrix returns the last value set for a mat4 uniform.
func (d *Device) Matrix(name string) ([16]float32, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.matrices[name]
	return v, ok
}

// AttribEnabled reports whether a vertex attribute index is currently enabled.
func (d *Device) AttribEnabled(index uint32) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled[index]
}

// TextureSize returns the allocated size of a texture.
func (d *Device) TextureSize(tex uint32) (int32, int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.texSizes[tex]
	return s[0], s[1]
}

// Location returns the location handed out for name, or -1.
func (d *Device) Location(name string) int32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if loc, ok := d.locations[name]; ok {
		return loc
	}
	return -1
}

func (d *Device) CreateShader(kind uint32) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.alloc("shader")
	d.kinds[s] = kind
	d.record("CreateShader", kind)
	return s
}

func (d *Device) CompileShader(shader uint32, source string) (bool, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CompileShader", shader)
	if msg, ok := d.CompileFailures[d.kinds[shader]]; ok {
		return false, msg
	}
	return true, ""
}

func (d *Device) DeleteShader(shader uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DeleteShader", shader)
	d.free(shader)
}

func (d *Device) CreateProgram() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	p := d.alloc("program")
	d.record("CreateProgram")
	return p
}

func (d *Device) AttachShader(program, shader uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("AttachShader", program, shader)
}

func (d *Device) LinkProgram(program uint32) (bool, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("LinkProgram", program)
	if d.LinkFailure != "" {
		return false, d.LinkFailure
	}
	return true, ""
}

func (d *Device) DeleteProgram(program uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DeleteProgram", program)
	d.free(program)
}

func (d *Device) UseProgram(program uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("UseProgram", program)
}

func (d *Device) location(name string) int32 {
	if d.Missing[name] {
		return -1
	}
	if loc, ok := d.locations[name]; ok {
		return loc
	}
	loc := int32(len(d.locations))
	d.locations[name] = loc
	d.locNames[loc] = name
	return loc
}

func (d *Device) GetAttribLocation(program uint32, name string) int32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("GetAttribLocation", program, name)
	return d.location(name)
}

func (d *Device) GetUniformLocation(program uint32, name string) int32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("GetUniformLocation", program, name)
	return d.location(name)
}

func (d *Device) GenTexture() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	t := d.alloc("texture")
	d.record("GenTexture")
	return t
}

func (d *Device) DeleteTexture(texture uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DeleteTexture", texture)
	d.free(texture)
}

func (d *Device) ActiveTexture(unit uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("ActiveTexture", unit)
}

func (d *Device) BindTexture(target, texture uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("BindTexture", target, texture)
	d.bound[target] = texture
}

func (d *Device) TexParameteri(target, pname uint32, param int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("TexParameteri", target, pname, param)
}

func (d *Device) TexImage2D(target uint32, width, height int32, pixels []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("TexImage2D", target, width, height, len(pixels))
	d.texSizes[d.bound[target]] = [2]int32{width, height}
}

func (d *Device) TexSubImage2D(target uint32, width, height int32, pixels []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("TexSubImage2D", target, width, height, len(pixels))
}

func (d *Device) GenBuffer() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	b := d.alloc("buffer")
	d.record("GenBuffer")
	return b
}

func (d *Device) DeleteBuffer(buffer uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DeleteBuffer", buffer)
	d.free(buffer)
}

func (d *Device) BindBuffer(target, buffer uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("BindBuffer", target, buffer)
}

func (d *Device) BufferData(target uint32, data []float32, usage uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("BufferData", target, append([]float32(nil), data...), usage)
}

func (d *Device) GenVertexArray() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	v := d.alloc("vertexarray")
	d.record("GenVertexArray")
	return v
}

func (d *Device) DeleteVertexArray(vao uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DeleteVertexArray", vao)
	d.free(vao)
}

func (d *Device) BindVertexArray(vao uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("BindVertexArray", vao)
}

func (d *Device) VertexAttribPointer(index uint32, size int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("VertexAttribPointer", index, size)
}

func (d *Device) EnableVertexAttribArray(index uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("EnableVertexAttribArray", index)
	d.enabled[index] = true
}

func (d *Device) DisableVertexAttribArray(index uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DisableVertexAttribArray", index)
	delete(d.enabled, index)
}

func (d *Device) Uniform1i(location int32, v int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Uniform1i", location, v)
	d.ints[d.locNames[location]] = v
}

func (d *Device) Uniform1f(location int32, v float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Uniform1f", location, v)
	d.floats[d.locNames[location]] = v
}

func (d *Device) UniformMatrix4fv(location int32, transpose bool, m *[16]float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("UniformMatrix4fv", location, transpose)
	d.matrices[d.locNames[location]] = *m
}

func (d *Device) Viewport(x, y, width, height int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Viewport", x, y, width, height)
}

func (d *Device) ClearColor(r, g, b, a float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("ClearColor", r, g, b, a)
}

func (d *Device) Clear(mask uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Clear", mask)
}

func (d *Device) DrawArrays(mode uint32, first, count int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DrawArrays", mode, first, count)
}

func (d *Device) GetError() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("GetError")
	e := d.PendingError
	d.PendingError = graphics.NO_ERROR
	return e
}
