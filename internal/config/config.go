// Package config loads the YAML configuration of the webity server.
//
// Example webity.yaml:
//
//	views: views
//	addr: ":3000"
//	log:
//	  level: debug
//	  format: text
//	ignore:
//	  - "**/partials"
//	routes:
//	  - path: /
//	    method: GET
//	    locals:
//	      site: Example
//	  - path: /blog
//	    map:
//	      blog: { title: Blog }
//	      "blog/{slug}": { title: Post }
package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Common errors for configuration loading.
var (
	ErrFileNotFound = errors.New("configuration file not found")
	ErrInvalidYAML  = errors.New("invalid YAML syntax")
	ErrEmptyFile    = errors.New("configuration file is empty")
)

// Config is the server configuration.
type Config struct {
	// Views is the directory holding the page tree.
	Views string `yaml:"views"`

	// Addr is the listen address.
	Addr string `yaml:"addr"`

	Log LogConfig `yaml:"log"`

	// Ignore lists doublestar globs of directories route discovery skips.
	Ignore []string `yaml:"ignore"`

	// Routes registers page trees. Without routes the whole views tree is
	// served with GET and no locals.
	Routes []Route `yaml:"routes"`
}

// LogConfig selects the log level and format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Route registers every page below Path, which is relative to Views.
type Route struct {
	Path   string                 `yaml:"path"`
	Method string                 `yaml:"method"`
	Locals map[string]interface{} `yaml:"locals"`

	// Map gives locals per page keyed by its directory relative to
	// Views. When set, Locals is ignored.
	Map map[string]map[string]interface{} `yaml:"map"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Views: "views",
		Addr:  ":3000",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads and validates a configuration file. Unset fields keep their
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	for i := range cfg.Routes {
		if cfg.Routes[i].Method == "" {
			cfg.Routes[i].Method = http.MethodGet
		}
		cfg.Routes[i].Method = strings.ToUpper(cfg.Routes[i].Method)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var methods = map[string]bool{
	http.MethodGet:    true,
	http.MethodHead:   true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// Validate checks the configuration for values the server cannot use.
func (c *Config) Validate() error {
	var errs []error
	if c.Views == "" {
		errs = append(errs, errors.New("views must not be empty"))
	}
	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	for _, pattern := range c.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			errs = append(errs, fmt.Errorf("ignore: invalid pattern %q", pattern))
		}
	}
	for i, route := range c.Routes {
		if route.Path == "" {
			errs = append(errs, fmt.Errorf("routes[%d]: path must not be empty", i))
		}
		if !methods[route.Method] {
			errs = append(errs, fmt.Errorf("routes[%d]: unsupported method %q", i, route.Method))
		}
	}
	return errors.Join(errs...)
}
