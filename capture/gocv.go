//go:build gocv

package capture

import (
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/richinsley/goshaderfilter/inputs"
)

// GoCVAvailable reports whether OpenCV capture was compiled in.
const GoCVAvailable = true

// GoCVCamera captures from a camera through OpenCV.
type GoCVCamera struct {
	cfg CameraConfig

	mu     sync.Mutex
	stopCh chan struct{}
	done   chan struct{}
}

func NewGoCVCamera(cfg CameraConfig) *GoCVCamera {
	if cfg.Cameras < 1 {
		cfg.Cameras = 2
	}
	return &GoCVCamera{cfg: cfg}
}

func (c *GoCVCamera) Name() string {
	return fmt.Sprintf("gocv camera %d", c.cfg.Device)
}

func (c *GoCVCamera) Start() (<-chan *inputs.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopCh != nil {
		return nil, fmt.Errorf("%s already started", c.Name())
	}

	webcam, err := gocv.OpenVideoCapture(c.cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %d: %w", c.cfg.Device, err)
	}
	if !webcam.IsOpened() {
		webcam.Close()
		return nil, fmt.Errorf("camera %d is not available", c.cfg.Device)
	}
	if c.cfg.Width > 0 && c.cfg.Height > 0 {
		webcam.Set(gocv.VideoCaptureFrameWidth, float64(c.cfg.Width))
		webcam.Set(gocv.VideoCaptureFrameHeight, float64(c.cfg.Height))
	}
	if c.cfg.FPS > 0 {
		webcam.Set(gocv.VideoCaptureFPS, float64(c.cfg.FPS))
	}
	log.WithFields(log.Fields{
		"device": c.cfg.Device,
		"width":  webcam.Get(gocv.VideoCaptureFrameWidth),
		"height": webcam.Get(gocv.VideoCaptureFrameHeight),
	}).Info("Camera opened")

	out := make(chan *inputs.Frame, 1)
	stop := make(chan struct{})
	done := make(chan struct{})
	c.stopCh, c.done = stop, done
	transform := frameTransform(c.cfg.Mirror)

	go func() {
		defer close(done)
		defer close(out)
		defer webcam.Close()

		bgr := gocv.NewMat()
		defer bgr.Close()
		rgba := gocv.NewMat()
		defer rgba.Close()

		misses := 0
		for {
			select {
			case <-stop:
				return
			default:
			}
			if ok := webcam.Read(&bgr); !ok || bgr.Empty() {
				misses++
				if misses > 100 {
					log.WithField("device", c.cfg.Device).Warn("Camera stopped delivering frames")
					return
				}
				time.Sleep(10 * time.Millisecond)
				continue
			}
			misses = 0
			if err := gocv.CvtColor(bgr, &rgba, gocv.ColorBGRToRGBA); err != nil {
				log.WithError(err).Warn("Camera frame conversion failed")
				continue
			}
			f := &inputs.Frame{
				Width:     rgba.Cols(),
				Height:    rgba.Rows(),
				Pix:       rgba.ToBytes(),
				Transform: transform,
				Timestamp: time.Now(),
			}
			if !send(out, f, stop) {
				return
			}
		}
	}()
	return out, nil
}

func (c *GoCVCamera) Stop() error {
	c.mu.Lock()
	stop, done := c.stopCh, c.done
	c.stopCh, c.done = nil, nil
	c.mu.Unlock()
	if stop == nil {
		return nil
	}
	close(stop)
	<-done
	return nil
}

// Next returns the next camera with the mirror toggled.
func (c *GoCVCamera) Next() (Producer, error) {
	cfg := c.cfg
	cfg.Device = (cfg.Device + 1) % cfg.Cameras
	cfg.Mirror = !cfg.Mirror
	return NewGoCVCamera(cfg), nil
}
