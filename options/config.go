package options

import (
	"flag"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileConfig mirrors FilterOptions as a TOML document. Absent keys stay nil
// and leave the flag default untouched.
//
//	[window]
//	width = 1280
//	height = 720
//	gles = false
//
//	[source]
//	kind = "ffmpeg"
//	input = "/dev/video0"
//	format = "v4l2"
//
//	[filter]
//	name = "sepia"
//	intensity = 0.5
type FileConfig struct {
	Window  WindowConfig  `toml:"window"`
	Source  SourceConfig  `toml:"source"`
	Filter  FilterConfig  `toml:"filter"`
	Control ControlConfig `toml:"control"`
	Log     LogConfig     `toml:"log"`
}

type WindowConfig struct {
	Width  *int    `toml:"width"`
	Height *int    `toml:"height"`
	Title  *string `toml:"title"`
	GLES   *bool   `toml:"gles"`
}

type SourceConfig struct {
	Kind       *string `toml:"kind"`
	Input      *string `toml:"input"`
	Format     *string `toml:"format"`
	Device     *int    `toml:"device"`
	Mirror     *bool   `toml:"mirror"`
	FPS        *int    `toml:"fps"`
	FFmpegPath *string `toml:"ffmpeg"`
}

type FilterConfig struct {
	Name          *string  `toml:"name"`
	Intensity     *float64 `toml:"intensity"`
	Translate     *bool    `toml:"translate"`
	TextureFilter *string  `toml:"texture_filter"`
}

type ControlConfig struct {
	Script   *string `toml:"script"`
	Terminal *bool   `toml:"terminal"`
}

type LogConfig struct {
	Debug *bool `toml:"debug"`
	JSON  *bool `toml:"json"`
}

// LoadFile decodes path. Unknown keys are an error so typos do not go unnoticed.
func LoadFile(path string) (*FileConfig, error) {
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("unknown keys in config %s: %s", path, strings.Join(keys, ", "))
	}
	return &cfg, nil
}

// Merge copies file values into o for every option not set explicitly on fs.
func (o *FilterOptions) Merge(fs *flag.FlagSet, cfg *FileConfig) {
	if cfg == nil {
		return
	}
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	mergeValue(set, "width", o.Width, cfg.Window.Width)
	mergeValue(set, "height", o.Height, cfg.Window.Height)
	mergeValue(set, "title", o.Title, cfg.Window.Title)
	mergeValue(set, "gles", o.GLES, cfg.Window.GLES)

	mergeValue(set, "source", o.Source, cfg.Source.Kind)
	mergeValue(set, "input", o.Input, cfg.Source.Input)
	mergeValue(set, "format", o.InputFormat, cfg.Source.Format)
	mergeValue(set, "device", o.Device, cfg.Source.Device)
	mergeValue(set, "mirror", o.Mirror, cfg.Source.Mirror)
	mergeValue(set, "fps", o.FPS, cfg.Source.FPS)
	mergeValue(set, "ffmpeg", o.FFMPEGPath, cfg.Source.FFmpegPath)

	mergeValue(set, "filter", o.Filter, cfg.Filter.Name)
	mergeValue(set, "intensity", o.Intensity, cfg.Filter.Intensity)
	mergeValue(set, "translate", o.Translate, cfg.Filter.Translate)
	mergeValue(set, "texture-filter", o.TextureFilter, cfg.Filter.TextureFilter)

	mergeValue(set, "script", o.Script, cfg.Control.Script)
	mergeValue(set, "terminal", o.Terminal, cfg.Control.Terminal)

	mergeValue(set, "debug", o.Debug, cfg.Log.Debug)
	mergeValue(set, "log-json", o.LogJSON, cfg.Log.JSON)
}

func mergeValue[T any](set map[string]bool, name string, dst, src *T) {
	if src == nil || dst == nil || set[name] {
		return
	}
	*dst = *src
}

// Parse binds the options on fs, parses args and merges the -config file if
// one is named.
func Parse(fs *flag.FlagSet, args []string) (*FilterOptions, error) {
	o := Bind(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *o.Config != "" {
		cfg, err := LoadFile(*o.Config)
		if err != nil {
			return nil, err
		}
		o.Merge(fs, cfg)
	}
	return o, nil
}
