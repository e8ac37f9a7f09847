package capture

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/richinsley/goshaderfilter/inputs"
)

// StillImage delivers one decoded picture. Images larger than the bound are
// scaled down keeping their aspect ratio.
type StillImage struct {
	path      string
	maxWidth  int
	maxHeight int
	mirror    bool

	mu     sync.Mutex
	stopCh chan struct{}
	done   chan struct{}
}

// NewStillImage loads path on Start. A zero bound leaves that axis unlimited.
func NewStillImage(path string, maxWidth, maxHeight int, mirror bool) *StillImage {
	return &StillImage{path: path, maxWidth: maxWidth, maxHeight: maxHeight, mirror: mirror}
}

func (s *StillImage) Name() string {
	return "image " + filepath.Base(s.path)
}

func (s *StillImage) Start() (<-chan *inputs.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh != nil {
		return nil, fmt.Errorf("%s already started", s.Name())
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	frame, err := DecodeFrame(f, s.maxWidth, s.maxHeight, s.mirror)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", s.path, err)
	}
	log.WithFields(log.Fields{
		"path":   s.path,
		"width":  frame.Width,
		"height": frame.Height,
	}).Info("Image loaded")

	out := make(chan *inputs.Frame, 1)
	stop := make(chan struct{})
	done := make(chan struct{})
	s.stopCh, s.done = stop, done
	go func() {
		defer close(done)
		defer close(out)
		if send(out, frame, stop) {
			<-stop
		}
	}()
	return out, nil
}

func (s *StillImage) Stop() error {
	s.mu.Lock()
	stop, done := s.stopCh, s.done
	s.stopCh, s.done = nil, nil
	s.mu.Unlock()
	if stop == nil {
		return nil
	}
	close(stop)
	<-done
	return nil
}

// DecodeFrame decodes any registered image format into an RGBA frame.
func DecodeFrame(r io.Reader, maxWidth, maxHeight int, mirror bool) (*inputs.Frame, error) {
	src, format, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	b := src.Bounds()
	w, h := fitSize(b.Dx(), b.Dy(), maxWidth, maxHeight)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	}
	log.WithFields(log.Fields{
		"format": format,
		"source": fmt.Sprintf("%dx%d", b.Dx(), b.Dy()),
		"frame":  fmt.Sprintf("%dx%d", w, h),
	}).Debug("Image decoded")

	return &inputs.Frame{
		Width:     w,
		Height:    h,
		Pix:       dst.Pix,
		Transform: frameTransform(mirror),
		Timestamp: time.Now(),
	}, nil
}

// fitSize scales w x h down to fit within maxW x maxH, keeping the aspect
// ratio. Zero bounds do not constrain.
func fitSize(w, h, maxW, maxH int) (int, int) {
	scale := 1.0
	if maxW > 0 && w > maxW {
		scale = float64(maxW) / float64(w)
	}
	if maxH > 0 && h > maxH {
		scale = min(scale, float64(maxH)/float64(h))
	}
	if scale == 1 {
		return w, h
	}
	return max(int(float64(w)*scale+0.5), 1), max(int(float64(h)*scale+0.5), 1)
}
