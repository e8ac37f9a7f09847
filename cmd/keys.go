package main

import (
	"unicode"

	glfw "github.com/go-gl/glfw/v3.3/glfw"
	log "github.com/sirupsen/logrus"

	"github.com/richinsley/goshaderfilter/control"
	"github.com/richinsley/goshaderfilter/glfwcontext"
)

// glfwKey maps a binding rune to its GLFW key. GLFW letter and digit keys
// share their code with the upper-case ASCII character.
func glfwKey(r rune) (glfw.Key, bool) {
	switch {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return glfw.Key(unicode.ToUpper(r)), true
	case r == '=':
		return glfw.KeyEqual, true
	case r == '-':
		return glfw.KeyMinus, true
	case r == '+':
		return glfw.KeyKPAdd, true
	}
	return glfw.KeyUnknown, false
}

func bindKeys(window *glfwcontext.Context, target control.Target) {
	register := func(key glfw.Key, a control.Action) {
		window.RegisterKeyCallback(key, func() {
			if a.Command == control.SwitchSource {
				// Restarting a camera can take a while; keep events flowing.
				go apply(a, target)
				return
			}
			apply(a, target)
		})
	}

	for _, b := range control.Bindings() {
		if key, ok := glfwKey(b.Key); ok {
			register(key, b.Action)
		}
	}
	register(glfw.KeyRight, control.Do(control.NextFilter))
	register(glfw.KeyLeft, control.Do(control.PrevFilter))
	register(glfw.KeyUp, control.Do(control.IntensityUp))
	register(glfw.KeyDown, control.Do(control.IntensityDown))
	register(glfw.KeyKPSubtract, control.Do(control.IntensityDown))
}

func apply(a control.Action, target control.Target) {
	if err := a.Apply(target); err != nil {
		log.WithError(err).WithField("command", a.Command).Warn("Key command failed")
	}
}
