package graphics

// Context defines the interface for an OpenGL surface and the context bound to it.
//
// MakeCurrent, DetachCurrent and SwapBuffers are called from the render goroutine.
// ShouldClose, GetFramebufferSize and Shutdown belong to the thread that owns the
// window (the main thread for GLFW).
type Context interface {
	MakeCurrent()
	DetachCurrent()
	SwapBuffers()
	ShouldClose() bool
	GetFramebufferSize() (int, int)
	Shutdown()
}
