package inputs

import (
	"github.com/richinsley/goshaderfilter/graphics"
)

// Helper to convert a wrap option to its OpenGL constant.
func getWrapMode(wrap string) int32 {
	switch wrap {
	case "repeat":
		return graphics.REPEAT
	default:
		return graphics.CLAMP_TO_EDGE
	}
}

// Helper to convert a filter option to OpenGL min/mag constants.
func getFilterMode(filter string) (minFilter, magFilter int32) {
	switch filter {
	case "nearest":
		return graphics.NEAREST, graphics.NEAREST
	default:
		return graphics.LINEAR, graphics.LINEAR
	}
}
