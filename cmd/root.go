// Package cmd implements the platformctl CLI: enumeration, one-shot
// reads and writes, batched sampling and adjustment, save/restore, an
// interactive shell, and the long-running serve daemon exposing the
// orchestrator over MCP.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/geopm-project/platformio-go/internal/config"
	"github.com/geopm-project/platformio-go/pkg/logging"
)

var (
	rootConfigPath   string
	rootVerbosity    string
	rootTopologyFile string
	rootPluginPath   string
)

// rootCmd is the base command; every subcommand builds its own
// orchestrator via bootstrap (CLI invocations are independent processes,
// so batch state never spans two commands).
var rootCmd = &cobra.Command{
	Use:   "platformctl",
	Short: "Read hardware telemetry and apply hardware controls",
	Long: `platformctl is the operator CLI for the platform telemetry and control
plane. It composes the registered providers (MSR, cpufreq sysfs, GPU
management libraries, constant tables) behind one uniform namespace of
signals and controls, resolved against the host topology.`,
	SilenceUsage: true,
}

// SetVersion injects the build-time version into the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the CLI. Called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "platformctl version %s\n" .Version}}`)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configured YAML (if any), applies CLI flag
// overrides, and initializes logging at the resulting verbosity.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if rootConfigPath != "" {
		loaded, err := config.Load(rootConfigPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if rootVerbosity != "" {
		cfg.Verbosity = rootVerbosity
	}
	if rootTopologyFile != "" {
		cfg.TopologyShapeFile = rootTopologyFile
	}
	if rootPluginPath != "" {
		cfg.PluginSearchPath = rootPluginPath
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	logging.Init(cfg.ParseVerbosity(), os.Stderr)
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", "", "Path to a platformio config YAML")
	rootCmd.PersistentFlags().StringVar(&rootVerbosity, "verbosity", "", "Log verbosity: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&rootTopologyFile, "topology-file", "", "Path to a topology shape YAML (defaults to probing the host)")
	rootCmd.PersistentFlags().StringVar(&rootPluginPath, "plugin-path", "", "Directory of provider manifest files to load")
}
