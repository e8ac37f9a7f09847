package capture

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/richinsley/goshaderfilter/inputs"
)

// FFmpegConfig selects what an FFmpegSource decodes.
type FFmpegConfig struct {
	// Input is a file, URL or device name. Empty selects camera Device with
	// the platform's capture format.
	Input string
	// Format forces the ffmpeg input format.
	Format string
	// Device is the camera index used when Input is empty.
	Device int
	// Cameras is how many devices Next cycles through. Defaults to 2.
	Cameras int
	// Width and Height are the output frame size. For files they default to
	// the probed stream size, for cameras to 640x480.
	Width, Height int
	FPS           int
	Mirror        bool
	// Loop restarts file input at its end.
	Loop       bool
	FFmpegPath string
}

// FFmpegSource runs ffmpeg and reads raw RGBA frames from its stdout.
type FFmpegSource struct {
	cfg FFmpegConfig

	mu     sync.Mutex
	cmd    *exec.Cmd
	pipe   *io.PipeReader
	stderr *io.PipeWriter
	stopCh chan struct{}
	done   chan struct{}
}

func NewFFmpegSource(cfg FFmpegConfig) *FFmpegSource {
	if cfg.Cameras < 1 {
		cfg.Cameras = 2
	}
	return &FFmpegSource{cfg: cfg}
}

func (s *FFmpegSource) isCamera() bool {
	return s.cfg.Input == ""
}

func (s *FFmpegSource) Name() string {
	if s.isCamera() {
		return fmt.Sprintf("ffmpeg camera %d", s.cfg.Device)
	}
	return "ffmpeg " + s.cfg.Input
}

// inputArgs resolves the ffmpeg input and its options.
func (s *FFmpegSource) inputArgs() (string, ffmpeg.KwArgs, error) {
	args := ffmpeg.KwArgs{}
	input := s.cfg.Input

	if s.isCamera() {
		args["fflags"] = "nobuffer"
		switch runtime.GOOS {
		case "darwin":
			args["f"] = "avfoundation"
			input = strconv.Itoa(s.cfg.Device)
		case "linux":
			args["f"] = "v4l2"
			input = fmt.Sprintf("/dev/video%d", s.cfg.Device)
		case "windows":
			return "", nil, fmt.Errorf("dshow capture needs an explicit input such as video=<device name>")
		default:
			return "", nil, fmt.Errorf("unsupported OS for camera capture: %s", runtime.GOOS)
		}
		if s.cfg.FPS > 0 {
			args["framerate"] = strconv.Itoa(s.cfg.FPS)
		}
	} else {
		// Decode files at their native rate instead of as fast as possible.
		args["re"] = ""
		if s.cfg.Loop {
			args["stream_loop"] = "-1"
		}
	}
	if s.cfg.Format != "" {
		args["f"] = s.cfg.Format
	}
	return input, args, nil
}

// frameSize returns the output size, probing files when none is configured.
func (s *FFmpegSource) frameSize() (int, int, error) {
	if s.cfg.Width > 0 && s.cfg.Height > 0 {
		return s.cfg.Width, s.cfg.Height, nil
	}
	if s.isCamera() || s.cfg.Format != "" {
		return 640, 480, nil
	}
	out, err := ffmpeg.Probe(s.cfg.Input)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to probe %s: %w", s.cfg.Input, err)
	}
	return parseProbe(out)
}

type probeResult struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// parseProbe returns the size of the first video stream in ffprobe's JSON.
func parseProbe(out string) (int, int, error) {
	var res probeResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		return 0, 0, fmt.Errorf("failed to parse probe output: %w", err)
	}
	for _, st := range res.Streams {
		if st.CodecType == "video" && st.Width > 0 && st.Height > 0 {
			return st.Width, st.Height, nil
		}
	}
	return 0, 0, errors.New("no video stream found")
}

func (s *FFmpegSource) Start() (<-chan *inputs.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh != nil {
		return nil, fmt.Errorf("%s already started", s.Name())
	}

	input, inArgs, err := s.inputArgs()
	if err != nil {
		return nil, err
	}
	width, height, err := s.frameSize()
	if err != nil {
		return nil, err
	}
	outArgs := ffmpeg.KwArgs{
		"f":       "rawvideo",
		"pix_fmt": "rgba",
		"s":       fmt.Sprintf("%dx%d", width, height),
	}
	if s.cfg.FPS > 0 {
		outArgs["r"] = strconv.Itoa(s.cfg.FPS)
	}

	pipeReader, pipeWriter := io.Pipe()
	stderr := log.StandardLogger().WriterLevel(log.DebugLevel)
	stream := ffmpeg.Input(input, inArgs).
		Output("pipe:", outArgs).
		WithOutput(pipeWriter).
		WithErrorOutput(stderr)
	if s.cfg.FFmpegPath != "" {
		stream = stream.SetFfmpegPath(s.cfg.FFmpegPath)
	}

	cmd := stream.Compile()
	if err := cmd.Start(); err != nil {
		pipeWriter.Close()
		stderr.Close()
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	log.WithFields(log.Fields{
		"input":  input,
		"width":  width,
		"height": height,
	}).Debug("ffmpeg started: ", cmd.String())

	go func() {
		err := cmd.Wait()
		pipeWriter.CloseWithError(err)
	}()

	out := make(chan *inputs.Frame, 1)
	stop := make(chan struct{})
	done := make(chan struct{})
	s.cmd, s.pipe, s.stderr = cmd, pipeReader, stderr
	s.stopCh, s.done = stop, done

	transform := frameTransform(s.cfg.Mirror)
	go func() {
		defer close(done)
		defer close(out)
		frameBytes := width * height * 4
		for {
			buf := make([]byte, frameBytes)
			if _, err := io.ReadFull(pipeReader, buf); err != nil {
				select {
				case <-stop:
				default:
					log.WithError(err).WithField("input", input).Info("ffmpeg stream ended")
				}
				return
			}
			f := &inputs.Frame{
				Width:     width,
				Height:    height,
				Pix:       buf,
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

func (s *FFmpegSource) Stop() error {
	s.mu.Lock()
	stop, done, cmd, pipe, stderr := s.stopCh, s.done, s.cmd, s.pipe, s.stderr
	s.stopCh, s.done, s.cmd, s.pipe, s.stderr = nil, nil, nil, nil, nil
	s.mu.Unlock()
	if stop == nil {
		return nil
	}

	close(stop)
	var err error
	if cmd != nil && cmd.Process != nil {
		err = cmd.Process.Kill()
	}
	pipe.Close()
	<-done
	stderr.Close()
	if errors.Is(err, os.ErrProcessDone) {
		err = nil
	}
	return err
}

// Next returns a source for the next camera with the mirror toggled, the way
// a front and a back camera differ. File input has no alternative.
func (s *FFmpegSource) Next() (Producer, error) {
	if !s.isCamera() {
		return nil, fmt.Errorf("%s has no alternative source", s.Name())
	}
	cfg := s.cfg
	cfg.Device = (cfg.Device + 1) % cfg.Cameras
	cfg.Mirror = !cfg.Mirror
	return NewFFmpegSource(cfg), nil
}
