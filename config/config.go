// Package config loads vellum settings from YAML layered over embedded defaults.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ByLCY/vellum/host/rodhost"
	"github.com/ByLCY/vellum/layout"
	"github.com/ByLCY/vellum/renderer"
	canvasrenderer "github.com/ByLCY/vellum/renderer/canvas"
	"github.com/ByLCY/vellum/renderer/slides"
)

//go:embed default.yaml
var defaultYAML []byte

type PageConfig struct {
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	Margin float64 `yaml:"margin"`
}

type PaginationConfig struct {
	SinglePage bool `yaml:"single_page"`
	MaxPages   int  `yaml:"max_pages"`
}

type ExtractionConfig struct {
	Gradient   string  `yaml:"gradient"`
	MergeGapEm float64 `yaml:"merge_gap_em"`
	MaxImagePx int     `yaml:"max_image_px"`
}

type HostConfig struct {
	ControlURL   string        `yaml:"control_url"`
	Bin          string        `yaml:"bin"`
	LoadTimeout  time.Duration `yaml:"load_timeout"`
	FrameTimeout time.Duration `yaml:"frame_timeout"`
	FontsTimeout time.Duration `yaml:"fonts_timeout"`
	ImageTimeout time.Duration `yaml:"image_timeout"`
}

type OutputConfig struct {
	Format       string            `yaml:"format"`
	NameTemplate string            `yaml:"name_template"`
	Creator      string            `yaml:"creator"`
	Fonts        map[string]string `yaml:"fonts"`
}

type Config struct {
	Page       PageConfig       `yaml:"page"`
	Pagination PaginationConfig `yaml:"pagination"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Host       HostConfig       `yaml:"host"`
	Output     OutputConfig     `yaml:"output"`
	Logging    LoggingConfig    `yaml:"logging"`
}

func unmarshalConfig(data []byte, cfg *Config) (*Config, error) {
	// only fields we know about, a typo in a user file should not pass silently
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	return cfg, nil
}

// Load reads the file at path on top of the embedded defaults and validates
// the result. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg, err := unmarshalConfig(defaultYAML, &Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to process default configuration: %w", err)
	}
	if len(path) > 0 {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if len(bytes.TrimSpace(data)) > 0 {
			if cfg, err = unmarshalConfig(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to process configuration file: %w", err)
			}
		}
		// font files are relative to the configuration that names them
		base := filepath.Dir(path)
		for name, file := range cfg.Output.Fonts {
			if file != "" && !filepath.IsAbs(file) {
				cfg.Output.Fonts[name] = filepath.Join(base, file)
			}
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the embedded default configuration as written.
func Default() []byte {
	return bytes.Clone(defaultYAML)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}

// Validate reports every invalid value at once.
func (c *Config) Validate() error {
	var err error
	if c.Page.Width <= 0 || c.Page.Height <= 0 {
		err = multierr.Append(err, fmt.Errorf("page size must be positive, got %dx%d", c.Page.Width, c.Page.Height))
	}
	if c.Page.Margin < 0 || 2*c.Page.Margin >= float64(min(c.Page.Width, c.Page.Height)) {
		err = multierr.Append(err, fmt.Errorf("page margin %v does not fit the page", c.Page.Margin))
	}
	if c.Pagination.MaxPages < 0 {
		err = multierr.Append(err, fmt.Errorf("max_pages must not be negative, got %d", c.Pagination.MaxPages))
	}
	switch c.Extraction.Gradient {
	case "solid", "raster":
	default:
		err = multierr.Append(err, fmt.Errorf("unknown gradient mode %q", c.Extraction.Gradient))
	}
	if c.Extraction.MaxImagePx <= 0 {
		err = multierr.Append(err, fmt.Errorf("max_image_px must be positive, got %d", c.Extraction.MaxImagePx))
	}
	if _, e := renderer.ParseFormat(c.Output.Format); e != nil {
		err = multierr.Append(err, e)
	}
	err = multierr.Append(err, c.Logging.validate())
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// BuildOptions maps extraction settings to layout options. Geometry and
// assets are per document and left to the caller.
func (c *Config) BuildOptions(log *zap.Logger) layout.BuildOptions {
	opts := layout.DefaultBuildOptions()
	opts.Logger = log
	opts.SinglePage = c.Pagination.SinglePage
	opts.MaxPages = c.Pagination.MaxPages
	opts.MarginPx = c.Page.Margin
	opts.GradientMode = layout.ParseGradientMode(c.Extraction.Gradient)
	opts.RunMergeGapEm = c.Extraction.MergeGapEm
	opts.MaxImagePx = c.Extraction.MaxImagePx
	return opts
}

func (c *Config) HostOptions(log *zap.Logger) rodhost.Options {
	return rodhost.Options{
		ControlURL:   c.Host.ControlURL,
		Bin:          c.Host.Bin,
		Width:        c.Page.Width,
		Height:       c.Page.Height,
		LoadTimeout:  c.Host.LoadTimeout,
		FrameTimeout: c.Host.FrameTimeout,
		FontsTimeout: c.Host.FontsTimeout,
		ImageTimeout: c.Host.ImageTimeout,
		Logger:       log,
	}
}

// Renderer returns the encoder for the given format, falling back to the
// configured one when format is empty.
func (c *Config) Renderer(format string, log *zap.Logger) (renderer.Renderer, renderer.Format, error) {
	if format == "" {
		format = c.Output.Format
	}
	f, err := renderer.ParseFormat(format)
	if err != nil {
		return nil, "", err
	}
	switch f {
	case renderer.FormatPPTX:
		return slides.NewRenderer(slides.Options{Creator: c.Output.Creator, Logger: log}), f, nil
	default:
		fonts := make(map[string]canvasrenderer.Resource, len(c.Output.Fonts))
		for name, path := range c.Output.Fonts {
			fonts[name] = canvasrenderer.Resource{Path: path}
		}
		return canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{
			Fonts:   fonts,
			Creator: c.Output.Creator,
			Logger:  log,
		}), f, nil
	}
}
