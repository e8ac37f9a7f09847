package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/richinsley/goshaderfilter/capture"
	"github.com/richinsley/goshaderfilter/control"
	"github.com/richinsley/goshaderfilter/filter"
	"github.com/richinsley/goshaderfilter/glbackend"
	"github.com/richinsley/goshaderfilter/glfwcontext"
	"github.com/richinsley/goshaderfilter/graphics"
	"github.com/richinsley/goshaderfilter/inputs"
	"github.com/richinsley/goshaderfilter/options"
	"github.com/richinsley/goshaderfilter/renderer"
)

func init() {
	runtime.LockOSThread()
}

func initLogger(debug, jsonOutput bool) {
	log.SetOutput(os.Stdout)
	switch {
	case debug:
		log.SetLevel(log.DebugLevel)
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
		log.Debug("Debug logging enabled")
	case jsonOutput:
		log.SetLevel(log.InfoLevel)
		log.SetFormatter(&log.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05"})
	default:
		log.SetLevel(log.InfoLevel)
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func main() {
	opts, err := options.Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *opts.Help {
		fmt.Println("Real-time shader filter viewer")
		flag.PrintDefaults()
		fmt.Println("\nKeys:")
		fmt.Print(control.Help())
		return
	}
	initLogger(*opts.Debug, *opts.LogJSON)

	if err := opts.Validate(); err != nil {
		log.Fatalf("%v", err)
	}
	if err := run(opts); err != nil {
		log.Fatalf("%v", err)
	}
}

// newProducer builds the frame source selected by the options.
func newProducer(opts *options.FilterOptions) capture.Producer {
	switch *opts.Source {
	case options.SourceImage:
		return capture.NewStillImage(*opts.Input, *opts.Width, *opts.Height, *opts.Mirror)
	case options.SourceFFmpeg:
		return capture.NewFFmpegSource(capture.FFmpegConfig{
			Input:      *opts.Input,
			Format:     *opts.InputFormat,
			Device:     *opts.Device,
			FPS:        *opts.FPS,
			Mirror:     *opts.Mirror,
			Loop:       true,
			FFmpegPath: opts.FFmpegPath(),
		})
	case options.SourceCamera:
		cfg := capture.CameraConfig{
			Device: *opts.Device,
			FPS:    *opts.FPS,
			Mirror: *opts.Mirror,
		}
		if capture.GoCVAvailable {
			return capture.NewGoCVCamera(cfg)
		}
		log.Info("OpenCV support not built in, capturing the camera through ffmpeg")
		return capture.NewFFmpegSource(capture.FFmpegConfig{
			Device:     cfg.Device,
			FPS:        cfg.FPS,
			Mirror:     cfg.Mirror,
			FFmpegPath: opts.FFmpegPath(),
		})
	}
	return capture.NewTestPattern(*opts.Width, *opts.Height, *opts.FPS)
}

func run(opts *options.FilterOptions) error {
	initial, err := opts.FilterType()
	if err != nil {
		return err
	}

	if err := glfwcontext.InitGraphics(); err != nil {
		return fmt.Errorf("failed to initialize GLFW: %w", err)
	}
	defer glfwcontext.TerminateGraphics()

	gles := *opts.GLES
	switch {
	case gles && !glbackend.GLES:
		return fmt.Errorf("-gles needs a binary built with -tags gles")
	case !gles && glbackend.GLES:
		log.Info("Built with OpenGL ES bindings, requesting an ES context")
		gles = true
	}

	window, err := glfwcontext.New(glfwcontext.Config{
		Width:  *opts.Width,
		Height: *opts.Height,
		Title:  *opts.Title,
		GLES:   gles,
	})
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}
	defer window.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	channel := inputs.NewStreamChannel(inputs.StreamOptions{Filter: *opts.TextureFilter})
	cfg := renderer.DefaultPipelineConfig()
	cfg.Translate = *opts.Translate
	cfg.GLES = window.IsGLES()
	cfg.Initial = filter.NewState(initial, opts.InitialIntensity())
	ctrl := renderer.NewController(window, func() (graphics.Device, error) {
		dev, err := glbackend.New()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
		}
		return dev, nil
	}, channel, cfg)
	ctrl.ErrorHandler = func(err error) {
		log.WithError(err).Warn("Frame update failed, skipping draws until the next good frame")
	}
	channel.SetFrameAvailableListener(ctrl.RequestRender)

	session := capture.NewSession(channel)
	a := &app{ctrl: ctrl, session: session, cancel: cancel}

	onResize := func(width, height int) {
		ctrl.QueueEvent(func() { ctrl.OnSurfaceResized(width, height) })
	}
	window.SetResizeCallback(onResize)
	// The framebuffer size is only readable here on the main thread; the
	// render goroutine picks it up after creating the pipeline.
	onResize(window.GetFramebufferSize())
	window.SetCloseCallback(a.Quit)
	bindKeys(window, a)

	renderErr := make(chan error, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		err := ctrl.Run(ctx)
		// Wake the main loop before handing over the result; main may
		// terminate GLFW as soon as it receives it.
		a.Quit()
		renderErr <- err
	}()

	go func() {
		if err := session.Start(ctx, newProducer(opts)); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("Failed to start frame source")
			a.Quit()
		}
	}()

	if *opts.Terminal {
		term := control.NewTerminal(a, os.Stdin)
		if err := term.Start(); err != nil {
			log.WithError(err).Warn("Terminal control unavailable")
		} else {
			defer term.Stop()
		}
	}
	if *opts.Script != "" {
		go func() {
			err := control.NewScript(a).RunFile(ctx, *opts.Script)
			if err != nil && ctx.Err() == nil {
				log.WithError(err).Error("Control script failed")
			}
		}()
	}

	log.WithFields(log.Fields{
		"source":    *opts.Source,
		"gles":      cfg.GLES,
		"filter":    cfg.Initial.Type.String(),
		"intensity": cfg.Initial.Intensity,
	}).Info("Running")

	for ctx.Err() == nil && !window.ShouldClose() {
		glfwcontext.WaitEvents(100 * time.Millisecond)
	}
	cancel()

	session.Stop()
	err = <-renderErr

	stats := ctrl.Stats()
	frames := channel.Stats()
	log.WithFields(log.Fields{
		"draws":     stats.Draws,
		"skipped":   stats.Skipped,
		"delivered": frames.Delivered,
		"promoted":  frames.Promoted,
		"dropped":   frames.Dropped,
	}).Info("Session finished")
	return err
}
