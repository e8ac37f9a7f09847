package main

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/richinsley/goshaderfilter/capture"
	"github.com/richinsley/goshaderfilter/filter"
	"github.com/richinsley/goshaderfilter/glfwcontext"
	"github.com/richinsley/goshaderfilter/renderer"
)

// app is the control target: filter changes go to the render controller and
// source switches to the capture session.
type app struct {
	ctrl    *renderer.Controller
	session *capture.Session
	cancel  context.CancelFunc
}

func (a *app) SetFilter(t filter.Type) {
	a.ctrl.SetFilter(t)
}

func (a *app) SetIntensity(v float32) {
	a.ctrl.SetIntensity(v)
}

func (a *app) AdjustIntensity(delta float32) {
	a.ctrl.AdjustIntensity(delta)
}

func (a *app) Filter() filter.Type {
	return a.ctrl.FilterState().Type
}

func (a *app) Intensity() float32 {
	return a.ctrl.FilterState().Intensity
}

func (a *app) SwitchSource() error {
	if err := a.session.SwitchNext(); err != nil {
		return err
	}
	if p := a.session.Producer(); p != nil {
		log.WithField("producer", p.Name()).Info("Source switched")
	}
	return nil
}

// Quit ends the session and wakes the main loop.
func (a *app) Quit() {
	a.cancel()
	glfwcontext.Wake()
}
