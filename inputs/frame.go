package inputs

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// Transform is a row-major 4x4 matrix mapping unit texture coordinates onto
// the delivered frame. Row-major means element (row r, column c) is at r*4+c.
type Transform [16]float32

// IdentityTransform samples the frame as uploaded.
var IdentityTransform = TransformFromMat4(mgl32.Ident4())

// TransformFromMat4 converts a column-major mathgl matrix.
func TransformFromMat4(m mgl32.Mat4) Transform {
	var t Transform
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			t[r*4+c] = m.At(r, c)
		}
	}
	return t
}

// Mat4 converts t to a column-major mathgl matrix.
func (t Transform) Mat4() mgl32.Mat4 {
	var m mgl32.Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			m.Set(r, c, t[r*4+c])
		}
	}
	return m
}

// Mul returns t·o.
func (t Transform) Mul(o Transform) Transform {
	return TransformFromMat4(t.Mat4().Mul4(o.Mat4()))
}

// Apply maps a texture coordinate (s,t,0,1) and returns the sampled (s,t).
func (t Transform) Apply(s, tc float32) (float32, float32) {
	v := t.Mat4().Mul4x1(mgl32.Vec4{s, tc, 0, 1})
	return v.X(), v.Y()
}

// FlipVertical maps t to 1-t. Frames whose first row is the top of the
// picture need it because GL textures start at the bottom row.
func FlipVertical() Transform {
	return TransformFromMat4(mgl32.Translate3D(0, 1, 0).Mul4(mgl32.Scale3D(1, -1, 1)))
}

// MirrorHorizontal maps s to 1-s, used for front-facing cameras.
func MirrorHorizontal() Transform {
	return TransformFromMat4(mgl32.Translate3D(1, 0, 0).Mul4(mgl32.Scale3D(-1, 1, 1)))
}

// Frame is one picture delivered by a producer. Pix holds Width*Height
// tightly packed RGBA8 pixels. Ownership passes to the channel on Deliver.
type Frame struct {
	Width     int
	Height    int
	Pix       []byte
	Transform Transform
	Timestamp time.Time
}

// Validate checks that the pixel buffer matches the frame size.
func (f *Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", f.Width, f.Height)
	}
	if want := f.Width * f.Height * 4; len(f.Pix) != want {
		return fmt.Errorf("frame %dx%d has %d bytes, want %d", f.Width, f.Height, len(f.Pix), want)
	}
	return nil
}
