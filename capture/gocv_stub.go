//go:build !gocv

package capture

import (
	"errors"

	"github.com/richinsley/goshaderfilter/inputs"
)

// GoCVAvailable reports whether OpenCV capture was compiled in.
const GoCVAvailable = false

var errNoGoCV = errors.New("built without OpenCV support (rebuild with -tags gocv)")

// GoCVCamera is unavailable in this build; Start always fails.
type GoCVCamera struct {
	cfg CameraConfig
}

func NewGoCVCamera(cfg CameraConfig) *GoCVCamera {
	return &GoCVCamera{cfg: cfg}
}

func (c *GoCVCamera) Name() string { return "gocv camera" }

func (c *GoCVCamera) Start() (<-chan *inputs.Frame, error) { return nil, errNoGoCV }

func (c *GoCVCamera) Stop() error { return nil }

func (c *GoCVCamera) Next() (Producer, error) { return nil, errNoGoCV }
