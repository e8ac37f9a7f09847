// Package capture produces frames for a stream channel: an animated test
// pattern, still images, ffmpeg camera and file input, and OpenCV cameras.
package capture

import (
	"errors"
	"time"

	"github.com/richinsley/goshaderfilter/inputs"
)

// ErrStopped is returned when using a stopped producer or session.
var ErrStopped = errors.New("capture stopped")

// A Producer delivers frames from one source.
type Producer interface {
	// Start begins capture and returns the frame channel. The channel is
	// closed when the producer stops or its source ends. A stopped producer
	// may be started again.
	Start() (<-chan *inputs.Frame, error)
	// Stop ends capture and closes the frame channel.
	Stop() error
	// Name identifies the source in logs.
	Name() string
}

// A Switcher is a producer with an alternative source, such as the other
// camera. Next returns an unstarted producer for it.
type Switcher interface {
	Producer
	Next() (Producer, error)
}

// CameraConfig selects a camera by index.
type CameraConfig struct {
	Device int
	// Cameras is how many devices Next cycles through. Defaults to 2.
	Cameras       int
	Width, Height int
	FPS           int
	Mirror        bool
}

// frameTransform is the sampling transform for top-down RGBA rows, mirrored
// horizontally when requested.
func frameTransform(mirror bool) inputs.Transform {
	t := inputs.FlipVertical()
	if mirror {
		t = inputs.MirrorHorizontal().Mul(t)
	}
	return t
}

// frameInterval converts a frame rate to a tick period. Rates below one fall
// back to 30 fps.
func frameInterval(fps int) time.Duration {
	if fps < 1 {
		fps = 30
	}
	return time.Second / time.Duration(fps)
}

// send hands f to out unless stop closes first.
func send(out chan<- *inputs.Frame, f *inputs.Frame, stop <-chan struct{}) bool {
	select {
	case out <- f:
		return true
	case <-stop:
		return false
	}
}
