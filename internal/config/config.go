// Package config loads and validates the optional fbe2json YAML config file
// and merges command-line overrides into it.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"fbe2json/internal/extracthtml"

	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
	DefaultBackend    = "none"
	DefaultJob        = "fbe2json"
	DefaultFlushEvery = 60 * time.Second
	DefaultIndent     = 4
)

// ErrInvalid marks configuration that failed validation.
var ErrInvalid = errors.New("invalid config")

type Config struct {
	Log       Log                   `yaml:"log"`
	Metrics   Metrics               `yaml:"metrics"`
	Output    Output                `yaml:"output"`
	Landmarks extracthtml.Landmarks `yaml:"landmarks"` // overrides; unset selectors keep their defaults
}

type Log struct {
	Level  string `yaml:"level"`  // debug|info|warn|error|none
	Format string `yaml:"format"` // text|json
}

type Metrics struct {
	Backend    string        `yaml:"backend"` // none|datadog
	Job        string        `yaml:"job"`
	Tags       []string      `yaml:"tags"`
	FlushEvery time.Duration `yaml:"flush_every"`
}

type Output struct {
	Indent *int `yaml:"indent"`
}

// Overrides are values given on the command line or through the
// environment. Empty fields leave the config file value in place.
type Overrides struct {
	LogLevel       string
	LogFormat      string
	MetricsBackend string
	MetricsTags    []string
	Indent         string
}

// Default returns a validated Config with every default applied.
func Default() *Config {
	c := &Config{}
	_ = c.Validate()
	return c
}

// Load reads the YAML file at path and validates it. An empty path yields
// Default(). Unknown keys are rejected so a misspelt landmark is not
// silently ignored.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	c, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

func decode(r io.Reader) (*Config, error) {
	var c Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unmarshal: %v", ErrInvalid, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Apply merges o into c and validates the result.
func (c *Config) Apply(o Overrides) error {
	if v := strings.TrimSpace(o.LogLevel); v != "" {
		c.Log.Level = v
	}
	if v := strings.TrimSpace(o.LogFormat); v != "" {
		c.Log.Format = v
	}
	if v := strings.TrimSpace(o.MetricsBackend); v != "" {
		c.Metrics.Backend = v
	}
	if len(o.MetricsTags) > 0 {
		c.Metrics.Tags = append(c.Metrics.Tags, o.MetricsTags...)
	}
	if v := strings.TrimSpace(o.Indent); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: indent %q is not an integer", ErrInvalid, o.Indent)
		}
		c.Output.Indent = &n
	}
	return c.Validate()
}

// Validate fills defaults and rejects values the command cannot honour.
func (c *Config) Validate() error {
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch c.Log.Level {
	case "":
		c.Log.Level = DefaultLogLevel
	case "debug", "info", "warn", "warning", "error", "none", "silent", "off":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalid, c.Log.Level)
	}

	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	switch c.Log.Format {
	case "":
		c.Log.Format = DefaultLogFormat
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q (want text or json)", ErrInvalid, c.Log.Format)
	}

	c.Metrics.Backend = strings.ToLower(strings.TrimSpace(c.Metrics.Backend))
	switch c.Metrics.Backend {
	case "":
		c.Metrics.Backend = DefaultBackend
	case "none", "datadog":
	default:
		return fmt.Errorf("%w: unknown metrics backend %q (want none or datadog)", ErrInvalid, c.Metrics.Backend)
	}
	if c.Metrics.Job == "" {
		c.Metrics.Job = DefaultJob
	}
	if c.Metrics.FlushEvery < 0 {
		return fmt.Errorf("%w: metrics.flush_every must be >= 0", ErrInvalid)
	}
	if c.Metrics.FlushEvery == 0 {
		c.Metrics.FlushEvery = DefaultFlushEvery
	}

	if c.Output.Indent == nil {
		n := DefaultIndent
		c.Output.Indent = &n
	}
	if *c.Output.Indent < 0 {
		return fmt.Errorf("%w: output.indent must be >= 0", ErrInvalid)
	}

	c.Landmarks = extracthtml.DefaultLandmarks().Merge(c.Landmarks)
	if err := c.Landmarks.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// IndentString returns the JSON indent unit.
func (c *Config) IndentString() string {
	return strings.Repeat(" ", *c.Output.Indent)
}
