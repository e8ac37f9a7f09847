package inputs

import (
	"github.com/richinsley/goshaderfilter/graphics"
)

// IChannel is a texture source the filter pipeline samples from.
type IChannel interface {
	// GetCType returns the kind of input, e.g. "stream".
	GetCType() string

	// Init allocates the channel's GPU objects. Called on the GL goroutine.
	Init(dev graphics.Device) error

	// Latest promotes the newest delivered frame and returns the texture
	// together with the sampling transform of that same frame. It is called on
	// the GL goroutine once per draw.
	Latest() (uint32, Transform, error)

	// GetTextureID returns the OpenGL texture ID that should be bound.
	GetTextureID() uint32

	// GetTarget returns the texture target the channel binds to.
	GetTarget() uint32

	// ChannelRes returns the resolution of the current frame as a vec3.
	ChannelRes() [3]float32

	// GetSamplerType returns the GLSL sampler type for the channel's target.
	GetSamplerType() string

	// Destroy releases any resources held by the channel.
	Destroy()
}
