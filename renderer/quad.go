package renderer

import (
	"fmt"

	"github.com/richinsley/goshaderfilter/graphics"
)

// Full-viewport triangle strip: bottom-left, bottom-right, top-left, top-right.
var quadPositions = []float32{
	-1, -1,
	1, -1,
	-1, 1,
	1, 1,
}

// Texture coordinates as (s, t, 0, 1) so the vertex stage can multiply them
// by the sampling transform.
var quadTexCoords = []float32{
	0, 0, 0, 1,
	1, 0, 0, 1,
	0, 1, 0, 1,
	1, 1, 0, 1,
}

const (
	positionComponents = 2
	texCoordComponents = 4
)

// Quad owns the vertex array and the two static buffers of the full-screen
// quad. The data never changes after NewQuad.
type Quad struct {
	dev       graphics.Device
	vao       uint32
	positions uint32
	texCoords uint32
	attribs   [2]uint32
	count     int32
}

// NewQuad uploads the quad and records the attribute layout in a vertex array.
func NewQuad(dev graphics.Device, positionAttrib, texCoordAttrib uint32) (*Quad, error) {
	n := len(quadPositions) / positionComponents
	if n != len(quadTexCoords)/texCoordComponents {
		return nil, fmt.Errorf("quad has %d positions but %d texture coordinates", n, len(quadTexCoords)/texCoordComponents)
	}

	q := &Quad{
		dev:     dev,
		attribs: [2]uint32{positionAttrib, texCoordAttrib},
		count:   int32(n),
	}
	q.vao = dev.GenVertexArray()
	dev.BindVertexArray(q.vao)

	q.positions = dev.GenBuffer()
	dev.BindBuffer(graphics.ARRAY_BUFFER, q.positions)
	dev.BufferData(graphics.ARRAY_BUFFER, quadPositions, graphics.STATIC_DRAW)
	dev.VertexAttribPointer(positionAttrib, positionComponents)

	q.texCoords = dev.GenBuffer()
	dev.BindBuffer(graphics.ARRAY_BUFFER, q.texCoords)
	dev.BufferData(graphics.ARRAY_BUFFER, quadTexCoords, graphics.STATIC_DRAW)
	dev.VertexAttribPointer(texCoordAttrib, texCoordComponents)

	dev.BindBuffer(graphics.ARRAY_BUFFER, 0)
	dev.BindVertexArray(0)

	if e := dev.GetError(); e != graphics.NO_ERROR {
		q.Delete()
		return nil, fmt.Errorf("failed to upload quad geometry: GL error 0x%x", e)
	}
	return q, nil
}

// VertexCount is the number of strip vertices.
func (q *Quad) VertexCount() int32 {
	return q.count
}

// Bind makes the quad's vertex array current and enables its attributes.
func (q *Quad) Bind() {
	q.dev.BindVertexArray(q.vao)
	for _, a := range q.attribs {
		q.dev.EnableVertexAttribArray(a)
	}
}

// Draw issues the strip. The quad must be bound.
func (q *Quad) Draw() {
	q.dev.DrawArrays(graphics.TRIANGLE_STRIP, 0, q.count)
}

// Unbind disables the attributes and unbinds the vertex array so no enabled
// vertex state leaks into the next draw.
func (q *Quad) Unbind() {
	for _, a := range q.attribs {
		q.dev.DisableVertexAttribArray(a)
	}
	q.dev.BindVertexArray(0)
}

// Delete frees the buffers and vertex array. Further calls are no-ops.
func (q *Quad) Delete() {
	if q.vao == 0 {
		return
	}
	q.dev.DeleteBuffer(q.positions)
	q.dev.DeleteBuffer(q.texCoords)
	q.dev.DeleteVertexArray(q.vao)
	q.vao, q.positions, q.texCoords = 0, 0, 0
}
