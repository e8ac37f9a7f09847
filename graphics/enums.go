package graphics

// OpenGL enum values shared by the desktop and ES profiles. They are kept here so
// packages that only drive a Device do not need the cgo bindings.
const (
	NO_ERROR = 0

	VERTEX_SHADER   = 0x8b31
	FRAGMENT_SHADER = 0x8b30

	TEXTURE_2D           = 0x0de1
	TEXTURE_EXTERNAL_OES = 0x8d65
	TEXTURE0             = 0x84c0
	TEXTURE_MIN_FILTER   = 0x2801
	TEXTURE_MAG_FILTER   = 0x2800
	TEXTURE_WRAP_S       = 0x2802
	TEXTURE_WRAP_T       = 0x2803
	LINEAR               = 0x2601
	NEAREST              = 0x2600
	CLAMP_TO_EDGE        = 0x812f
	REPEAT               = 0x2901

	ARRAY_BUFFER = 0x8892
	STATIC_DRAW  = 0x88e4

	TRIANGLE_STRIP   = 0x0005
	COLOR_BUFFER_BIT = 0x4000
)

// StreamTarget is the texture target streaming frames are bound to. Desktop core
// profiles have no external-image target, so the stream is a 2D texture whose
// contents are replaced from the render goroutine.
const StreamTarget = TEXTURE_2D

// SamplerType returns the GLSL sampler declaration matching a texture target.
func SamplerType(target uint32) string {
	switch target {
	case TEXTURE_EXTERNAL_OES:
		return "samplerExternalOES"
	default:
		return "sampler2D"
	}
}
