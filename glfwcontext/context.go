package glfwcontext

import (
	"runtime"
	"sync"
	"time"

	glfw "github.com/go-gl/glfw/v3.3/glfw"
	log "github.com/sirupsen/logrus"
)

// Config describes the window to open.
type Config struct {
	Width  int
	Height int
	Title  string
	// GLES requests an OpenGL ES 3.0 context instead of desktop 4.1 core.
	GLES bool
}

// Context is a GLFW window whose GL context is made current on the render
// goroutine while its events are pumped on the main thread.
type Context struct {
	window *glfw.Window
	gles   bool

	mu           sync.Mutex
	keyCallbacks map[glfw.Key]func()
	onResize     func(width, height int)
	onClose      func()
}

// New creates the window. Must be called from the main thread after InitGraphics.
func New(cfg Config) (*Context, error) {
	glfw.DefaultWindowHints()
	if cfg.GLES {
		glfw.WindowHint(glfw.ClientAPI, glfw.OpenGLESAPI)
		glfw.WindowHint(glfw.ContextVersionMajor, 3)
		glfw.WindowHint(glfw.ContextVersionMinor, 0)
	} else {
		glfw.WindowHint(glfw.ContextVersionMajor, 4)
		glfw.WindowHint(glfw.ContextVersionMinor, 1)
		glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
		glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	}
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		return nil, err
	}

	c := &Context{
		window:       win,
		gles:         cfg.GLES,
		keyCallbacks: make(map[glfw.Key]func()),
	}
	win.SetKeyCallback(c.glfwKeyCallback)
	win.SetFramebufferSizeCallback(c.glfwFramebufferSizeCallback)
	win.SetCloseCallback(c.glfwCloseCallback)

	log.WithFields(log.Fields{
		"width":  cfg.Width,
		"height": cfg.Height,
		"gles":   cfg.GLES,
	}).Info("Window created")
	return c, nil
}

// RegisterKeyCallback runs f on the main thread whenever key is pressed.
func (c *Context) RegisterKeyCallback(key glfw.Key, f func()) {
	c.mu.Lock()
	c.keyCallbacks[key] = f
	c.mu.Unlock()
}

// SetResizeCallback runs f with the new framebuffer size after every resize.
func (c *Context) SetResizeCallback(f func(width, height int)) {
	c.mu.Lock()
	c.onResize = f
	c.mu.Unlock()
}

// SetCloseCallback runs f when the user asks to close the window.
func (c *Context) SetCloseCallback(f func()) {
	c.mu.Lock()
	c.onClose = f
	c.mu.Unlock()
}

func (c *Context) glfwKeyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action != glfw.Press && action != glfw.Repeat {
		return
	}
	if key == glfw.KeyEscape && action == glfw.Press {
		w.SetShouldClose(true)
		c.glfwCloseCallback(w)
		return
	}
	c.mu.Lock()
	callback, ok := c.keyCallbacks[key]
	c.mu.Unlock()
	if ok {
		callback()
	}
}

func (c *Context) glfwFramebufferSizeCallback(w *glfw.Window, width, height int) {
	c.mu.Lock()
	f := c.onResize
	c.mu.Unlock()
	if f != nil && width > 0 && height > 0 {
		f(width, height)
	}
}

func (c *Context) glfwCloseCallback(w *glfw.Window) {
	c.mu.Lock()
	f := c.onClose
	c.mu.Unlock()
	if f != nil {
		f()
	}
}

// MakeCurrent makes the context current for the calling goroutine.
func (c *Context) MakeCurrent() {
	c.window.MakeContextCurrent()
}

// DetachCurrent makes no context current on the calling thread.
func (c *Context) DetachCurrent() {
	glfw.DetachCurrentContext()
}

func (c *Context) SwapBuffers() {
	c.window.SwapBuffers()
}

func (c *Context) ShouldClose() bool {
	return c.window.ShouldClose()
}

func (c *Context) GetFramebufferSize() (int, int) {
	return c.window.GetFramebufferSize()
}

func (c *Context) IsGLES() bool {
	return c.gles
}

// Shutdown destroys the window. Must be called from the main thread.
func (c *Context) Shutdown() {
	c.window.Destroy()
}

// glfwState tracks whether GLFW is usable. Wake can race with
// TerminateGraphics from worker goroutines, and GLFW panics when called
// while not initialized.
var glfwState struct {
	sync.RWMutex
	initialized bool
}

// InitGraphics initializes GLFW. Must be called from the main thread.
func InitGraphics() error {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return err
	}
	glfwState.Lock()
	glfwState.initialized = true
	glfwState.Unlock()
	log.Info("GLFW initialized")
	return nil
}

// TerminateGraphics shuts GLFW down. Must be called from the main thread.
func TerminateGraphics() {
	glfwState.Lock()
	defer glfwState.Unlock()
	if !glfwState.initialized {
		return
	}
	glfwState.initialized = false
	glfw.Terminate()
	log.Info("GLFW terminated")
}

// WaitEvents blocks the main thread until an event arrives or timeout passes,
// then dispatches callbacks.
func WaitEvents(timeout time.Duration) {
	glfw.WaitEventsTimeout(timeout.Seconds())
}

// Wake unblocks WaitEvents from any goroutine. It does nothing before
// InitGraphics or after TerminateGraphics.
func Wake() {
	glfwState.RLock()
	defer glfwState.RUnlock()
	if glfwState.initialized {
		glfw.PostEmptyEvent()
	}
}
