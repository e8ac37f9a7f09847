package filter

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Rec.601 luma weights.
var lumaWeights = mgl32.Vec3{0.299, 0.587, 0.114}

var sepiaMatrix = mgl32.Mat3FromRows(
	mgl32.Vec3{0.393, 0.769, 0.189},
	mgl32.Vec3{0.349, 0.686, 0.168},
	mgl32.Vec3{0.272, 0.534, 0.131},
)

// Luma returns the weighted brightness of an RGBA colour.
func Luma(c mgl32.Vec4) float32 {
	return c.Vec3().Dot(lumaWeights)
}

func grayscale(c mgl32.Vec4) mgl32.Vec4 {
	l := Luma(c)
	return mgl32.Vec4{l, l, l, c.W()}
}

// sepia is not clamped; the framebuffer saturates on write.
func sepia(c mgl32.Vec4) mgl32.Vec4 {
	return sepiaMatrix.Mul3x1(c.Vec3()).Vec4(c.W())
}

func warmShift(c mgl32.Vec4) mgl32.Vec4 {
	return mgl32.Vec4{min(c.X()+0.1, 1), min(c.Y()+0.05, 1), c.Z(), c.W()}
}

func coolShift(c mgl32.Vec4) mgl32.Vec4 {
	return mgl32.Vec4{c.X(), c.Y(), min(c.Z()+0.1, 1), c.W()}
}

func invert(c mgl32.Vec4) mgl32.Vec4 {
	return mgl32.Vec4{1 - c.X(), 1 - c.Y(), 1 - c.Z(), c.W()}
}

func posterize2(c mgl32.Vec4) mgl32.Vec4 {
	var v float32
	if Luma(c) >= 0.5 {
		v = 1
	}
	return mgl32.Vec4{v, v, v, c.W()}
}

// Apply runs the pure filter transform f(c). Unknown selectors return c.
func Apply(t Type, c mgl32.Vec4) mgl32.Vec4 {
	switch t {
	case Grayscale:
		return grayscale(c)
	case Sepia:
		return sepia(c)
	case WarmShift:
		return warmShift(c)
	case CoolShift:
		return coolShift(c)
	case Invert:
		return invert(c)
	case Posterize2:
		return posterize2(c)
	}
	return c
}

// Blend returns mix(c, f(c), intensity) with the intensity clamped to [0,1].
// A zero intensity and the Identity filter both return c unchanged.
func Blend(c mgl32.Vec4, t Type, intensity float32) mgl32.Vec4 {
	i := ClampIntensity(intensity)
	if i == 0 || t.Normalize() == Identity {
		return c
	}
	f := Apply(t, c)
	return c.Mul(1 - i).Add(f.Mul(i))
}

// Apply blends c through the state's filter.
func (s State) Apply(c mgl32.Vec4) mgl32.Vec4 {
	return Blend(c, s.Type, s.Intensity)
}
