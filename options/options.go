package options

import (
	"flag"
	"fmt"
	"math"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/richinsley/goshaderfilter/filter"
)

// FFmpegEnv names the environment variable consulted when no ffmpeg path is given.
const FFmpegEnv = "GOSHADERFILTER_FFMPEG"

// Source kinds.
const (
	SourcePattern = "pattern"
	SourceImage   = "image"
	SourceFFmpeg  = "ffmpeg"
	SourceCamera  = "camera"
)

type FilterOptions struct {
	Help          *bool
	Config        *string // TOML file merged under explicitly set flags
	Width         *int
	Height        *int
	Title         *string
	GLES          *bool   // request an OpenGL ES 3 context
	Source        *string // pattern, image, ffmpeg or camera
	Input         *string // image or video path, or an ffmpeg device name
	InputFormat   *string // ffmpeg -f for Input; empty lets ffmpeg probe
	Device        *int    // camera index for camera and ffmpeg device capture
	Mirror        *bool   // mirror horizontally, as for a front-facing camera
	FPS           *int
	Filter        *string
	Intensity     *float64
	Translate     *bool   // author shaders as WebGL2 and translate them
	TextureFilter *string // linear or nearest
	Script        *string // Lua control script
	Terminal      *bool   // read control keys from a raw-mode terminal
	FFMPEGPath    *string
	Debug         *bool
	LogJSON       *bool
}

// Bind registers every option on fs with its default.
func Bind(fs *flag.FlagSet) *FilterOptions {
	return &FilterOptions{
		Help:          fs.Bool("help", false, "Show help message"),
		Config:        fs.String("config", "", "TOML configuration file"),
		Width:         fs.Int("width", 1280, "Window width"),
		Height:        fs.Int("height", 720, "Window height"),
		Title:         fs.String("title", "goshaderfilter", "Window title"),
		GLES:          fs.Bool("gles", false, "Use an OpenGL ES 3 context (binary built with -tags gles)"),
		Source:        fs.String("source", SourcePattern, "Frame source: pattern, image, ffmpeg or camera"),
		Input:         fs.String("input", "", "Image or video file, or ffmpeg device name"),
		InputFormat:   fs.String("format", "", "ffmpeg input format (e.g. v4l2, avfoundation, dshow)"),
		Device:        fs.Int("device", 0, "Camera index"),
		Mirror:        fs.Bool("mirror", false, "Mirror the source horizontally"),
		FPS:           fs.Int("fps", 30, "Producer frame rate"),
		Filter:        fs.String("filter", filter.Identity.String(), "Initial filter"),
		Intensity:     fs.Float64("intensity", 1.0, "Initial filter intensity, clamped to [0,1]"),
		Translate:     fs.Bool("translate", true, "Translate WebGL2 shaders for the current context"),
		TextureFilter: fs.String("texture-filter", "linear", "Stream texture filtering: linear or nearest"),
		Script:        fs.String("script", "", "Lua control script"),
		Terminal:      fs.Bool("terminal", false, "Read control keys from the terminal"),
		FFMPEGPath:    fs.String("ffmpeg", "", "Path to ffmpeg executable (from "+FFmpegEnv+" if not set)"),
		Debug:         fs.Bool("debug", false, "Enable debug logging"),
		LogJSON:       fs.Bool("log-json", false, "Log as JSON"),
	}
}

// FilterType returns the parsed initial filter.
func (o *FilterOptions) FilterType() (filter.Type, error) {
	return filter.ParseType(*o.Filter)
}

// InitialIntensity returns the starting intensity clamped to [0,1].
func (o *FilterOptions) InitialIntensity() float32 {
	v := *o.Intensity
	if v < 0 || v > 1 {
		clamped := filter.ClampIntensity(float32(v))
		log.WithFields(log.Fields{"intensity": v, "clamped": clamped}).Warn("Intensity outside [0,1], clamping")
		return clamped
	}
	return float32(v)
}

// FFmpegPath returns the ffmpeg executable, falling back to the environment.
func (o *FilterOptions) FFmpegPath() string {
	if o.FFMPEGPath != nil && *o.FFMPEGPath != "" {
		return *o.FFMPEGPath
	}
	return os.Getenv(FFmpegEnv)
}

// Validate reports every problem found in the options.
func (o *FilterOptions) Validate() error {
	var problems []string
	if *o.Width <= 0 || *o.Height <= 0 {
		problems = append(problems, fmt.Sprintf("invalid window size %dx%d", *o.Width, *o.Height))
	}
	if *o.FPS <= 0 || *o.FPS > 240 {
		problems = append(problems, fmt.Sprintf("fps %d out of range (1-240)", *o.FPS))
	}
	switch *o.Source {
	case SourcePattern, SourceCamera:
	case SourceImage:
		if *o.Input == "" {
			problems = append(problems, "source image needs -input")
		}
	case SourceFFmpeg:
		if *o.Input == "" && *o.InputFormat == "" {
			problems = append(problems, "source ffmpeg needs -input or -format")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown source %q", *o.Source))
	}
	if *o.Device < 0 {
		problems = append(problems, fmt.Sprintf("invalid device index %d", *o.Device))
	}
	if _, err := o.FilterType(); err != nil {
		problems = append(problems, err.Error())
	}
	if math.IsNaN(*o.Intensity) {
		problems = append(problems, "intensity is not a number")
	}
	switch *o.TextureFilter {
	case "linear", "nearest":
	default:
		problems = append(problems, fmt.Sprintf("unknown texture filter %q", *o.TextureFilter))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid options: %s", strings.Join(problems, "; "))
	}
	return nil
}
