//go:build !gles

// Package glbackend implements graphics.Device on the go-gl bindings: OpenGL
// 4.1 core by default, OpenGL ES 3 when built with the gles tag. Only one set
// of bindings can be linked into a binary.
package glbackend

import (
	"fmt"
	"strings"
	"sync"
	"unsafe"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	log "github.com/sirupsen/logrus"

	"github.com/richinsley/goshaderfilter/graphics"
)

// GLES reports whether this build loads OpenGL ES entry points.
const GLES = false

// Make sure gl.Init() is called only once per process.
var glInitOnce sync.Once

// GL issues calls through the go-gl function pointers loaded for the current context.
type GL struct{}

var _ graphics.Device = (*GL)(nil)

// New loads the OpenGL function pointers. The caller's context must be current.
func New() (*GL, error) {
	var initErr error
	glInitOnce.Do(func() {
		initErr = gl.Init()
		if initErr == nil {
			log.WithFields(log.Fields{
				"version":  gl.GoStr(gl.GetString(gl.VERSION)),
				"renderer": gl.GoStr(gl.GetString(gl.RENDERER)),
			}).Info("OpenGL initialized")
		}
	})
	if initErr != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", initErr)
	}
	return &GL{}, nil
}

func (*GL) CreateShader(kind uint32) uint32 {
	return gl.CreateShader(kind)
}

func (*GL) CompileShader(shader uint32, source string) (bool, string) {
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(logText))
		return false, strings.TrimRight(logText, "\x00")
	}
	return true, ""
}

func (*GL) DeleteShader(shader uint32) {
	gl.DeleteShader(shader)
}

func (*GL) CreateProgram() uint32 {
	return gl.CreateProgram()
}

func (*GL) AttachShader(program, shader uint32) {
	gl.AttachShader(program, shader)
}

func (*GL) LinkProgram(program uint32) (bool, string) {
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(logText))
		return false, strings.TrimRight(logText, "\x00")
	}
	return true, ""
}

func (*GL) DeleteProgram(program uint32) {
	gl.DeleteProgram(program)
}

func (*GL) UseProgram(program uint32) {
	gl.UseProgram(program)
}

func (*GL) GetAttribLocation(program uint32, name string) int32 {
	return gl.GetAttribLocation(program, gl.Str(name+"\x00"))
}

func (*GL) GetUniformLocation(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

func (*GL) GenTexture() uint32 {
	var texture uint32
	gl.GenTextures(1, &texture)
	return texture
}

func (*GL) DeleteTexture(texture uint32) {
	gl.DeleteTextures(1, &texture)
}

func (*GL) ActiveTexture(unit uint32) {
	gl.ActiveTexture(unit)
}

func (*GL) BindTexture(target, texture uint32) {
	gl.BindTexture(target, texture)
}

func (*GL) TexParameteri(target, pname uint32, param int32) {
	gl.TexParameteri(target, pname, param)
}

func (*GL) TexImage2D(target uint32, width, height int32, pixels []byte) {
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(target, 0, gl.RGBA8, width, height, 0, gl.RGBA, gl.UNSIGNED_BYTE, pixelPtr(pixels))
}

func (*GL) TexSubImage2D(target uint32, width, height int32, pixels []byte) {
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexSubImage2D(target, 0, 0, 0, width, height, gl.RGBA, gl.UNSIGNED_BYTE, pixelPtr(pixels))
}

func (*GL) GenBuffer() uint32 {
	var buffer uint32
	gl.GenBuffers(1, &buffer)
	return buffer
}

func (*GL) DeleteBuffer(buffer uint32) {
	gl.DeleteBuffers(1, &buffer)
}

func (*GL) BindBuffer(target, buffer uint32) {
	gl.BindBuffer(target, buffer)
}

func (*GL) BufferData(target uint32, data []float32, usage uint32) {
	gl.BufferData(target, len(data)*4, gl.Ptr(data), usage)
}

func (*GL) GenVertexArray() uint32 {
	var vao uint32
	gl.GenVertexArrays(1, &vao)
	return vao
}

func (*GL) DeleteVertexArray(vao uint32) {
	gl.DeleteVertexArrays(1, &vao)
}

func (*GL) BindVertexArray(vao uint32) {
	gl.BindVertexArray(vao)
}

func (*GL) VertexAttribPointer(index uint32, size int32) {
	gl.VertexAttribPointer(index, size, gl.FLOAT, false, size*4, gl.PtrOffset(0))
}

func (*GL) EnableVertexAttribArray(index uint32) {
	gl.EnableVertexAttribArray(index)
}

func (*GL) DisableVertexAttribArray(index uint32) {
	gl.DisableVertexAttribArray(index)
}

func (*GL) Uniform1i(location int32, v int32) {
	gl.Uniform1i(location, v)
}

func (*GL) Uniform1f(location int32, v float32) {
	gl.Uniform1f(location, v)
}

func (*GL) UniformMatrix4fv(location int32, transpose bool, m *[16]float32) {
	gl.UniformMatrix4fv(location, 1, transpose, &m[0])
}

func (*GL) Viewport(x, y, width, height int32) {
	gl.Viewport(x, y, width, height)
}

func (*GL) ClearColor(r, g, b, a float32) {
	gl.ClearColor(r, g, b, a)
}

func (*GL) Clear(mask uint32) {
	gl.Clear(mask)
}

func (*GL) DrawArrays(mode uint32, first, count int32) {
	gl.DrawArrays(mode, first, count)
}

func (*GL) GetError() uint32 {
	return gl.GetError()
}

func pixelPtr(pixels []byte) unsafe.Pointer {
	if len(pixels) == 0 {
		return nil
	}
	return gl.Ptr(pixels)
}
