// Package config loads and validates the process-level configuration:
// topology shape source, plugin search path, provider boot order, log
// verbosity, and the MCP surface's transport settings. Loading and
// validation are split so CLI flag overrides can be applied between the
// two.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/geopm-project/platformio-go/pkg/logging"
)

// Transport names the MCP surface's wire transport.
type Transport string

const (
	TransportStdio          Transport = "stdio"
	TransportStreamableHTTP Transport = "streamable-http"
)

// Config is the top-level process configuration, normally loaded from a
// YAML file at startup and overridden by CLI flags.
type Config struct {
	// TopologyShapeFile points at a YAML Shape document (topology.Shape);
	// empty means DefaultShape.
	TopologyShapeFile string `yaml:"topology_shape_file,omitempty"`
	// PluginSearchPath is the directory internal/plugin watches for
	// provider manifests.
	PluginSearchPath string `yaml:"plugin_search_path,omitempty"`
	// ProviderOrder pins registration order for built-in providers that
	// would otherwise register in the default built-in order; providers not
	// listed register after all listed ones, in their natural order.
	ProviderOrder []string `yaml:"provider_order,omitempty"`
	// Verbosity is one of "debug", "info", "warn", "error".
	Verbosity string `yaml:"verbosity,omitempty"`

	MCP MCPConfig `yaml:"mcp,omitempty"`
}

// MCPConfig configures the internal/mcpsurface server.
type MCPConfig struct {
	Transport Transport `yaml:"transport,omitempty"`
	Host      string    `yaml:"host,omitempty"`
	Port      int       `yaml:"port,omitempty"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		PluginSearchPath: "",
		Verbosity:        "info",
		MCP: MCPConfig{
			Transport: TransportStdio,
			Host:      "localhost",
			Port:      8092,
		},
	}
}

// Load reads a Config from path, filling unset fields from Default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every configuration problem found, collected rather
// than failing on the first.
func (c Config) Validate() error {
	var errs ValidationErrors

	if err := ValidateOneOf("verbosity", c.Verbosity, []string{"debug", "info", "warn", "error"}); c.Verbosity != "" && err != nil {
		errs = append(errs, err.(ValidationError))
	}
	if err := ValidateOneOf("mcp.transport", string(c.MCP.Transport), []string{string(TransportStdio), string(TransportStreamableHTTP)}); c.MCP.Transport != "" && err != nil {
		errs = append(errs, err.(ValidationError))
	}
	if c.MCP.Transport == TransportStreamableHTTP && c.MCP.Port <= 0 {
		errs.Add("mcp.port", "must be positive when transport is streamable-http", c.MCP.Port)
	}
	seen := make(map[string]bool)
	for _, name := range c.ProviderOrder {
		if seen[name] {
			errs.Add("provider_order", fmt.Sprintf("duplicate entry %q", name), name)
		}
		seen[name] = true
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// ParseVerbosity converts Verbosity to a logging.Level, defaulting to
// LevelInfo for an empty or unrecognized string.
func (c Config) ParseVerbosity() logging.Level {
	switch c.Verbosity {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

// OrderProviders sorts names into order's sequence, with any name
// not mentioned in order appended afterward in its original
// relative order (a stable partition, not a total sort).
func OrderProviders(order []string, names []string) []string {
	rank := make(map[string]int, len(order))
	for i, n := range order {
		rank[n] = i
	}
	listed := make([]string, 0, len(names))
	unlisted := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := rank[n]; ok {
			listed = append(listed, n)
		} else {
			unlisted = append(unlisted, n)
		}
	}
	// stable sort of listed by rank
	for i := 1; i < len(listed); i++ {
		for j := i; j > 0 && rank[listed[j-1]] > rank[listed[j]]; j-- {
			listed[j-1], listed[j] = listed[j], listed[j-1]
		}
	}
	return append(listed, unlisted...)
}
