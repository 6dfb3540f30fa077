package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/geopm-project/platformio-go/internal/config"
	"github.com/geopm-project/platformio-go/internal/orchestrator"
	"github.com/geopm-project/platformio-go/internal/plugin"
	"github.com/geopm-project/platformio-go/internal/provider"
	"github.com/geopm-project/platformio-go/internal/provider/cpuinfo"
	"github.com/geopm-project/platformio-go/internal/provider/gpu"
	"github.com/geopm-project/platformio-go/internal/provider/msr"
	"github.com/geopm-project/platformio-go/internal/provider/sysfs"
	"github.com/geopm-project/platformio-go/internal/topology"
	"github.com/geopm-project/platformio-go/pkg/logging"
)

// bootstrap builds the orchestrator every subcommand runs against:
// topology oracle first, then the built-in providers in configured order,
// then any plugin-discovered providers (registered last, so they take
// resolution priority over the built-ins they override).
func bootstrap(ctx context.Context, cfg config.Config) (*orchestrator.Orchestrator, *plugin.Loader, error) {
	shape := topology.DefaultShape()
	if cfg.TopologyShapeFile != "" {
		loaded, err := topology.LoadShape(cfg.TopologyShapeFile)
		if err != nil {
			return nil, nil, err
		}
		shape = loaded
	}
	oracle := topology.NewProcOracle("/sys", shape)
	orch := orchestrator.New(oracle)

	numCPU, err := oracle.Count(topology.DomainCPU)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: cpu count: %w", err)
	}

	builders := map[string]func() (provider.Provider, error){
		"MSR": func() (provider.Provider, error) {
			return msr.New(numCPU), nil
		},
		"CPUFREQ_SYSFS": func() (provider.Provider, error) {
			return sysfs.New("")
		},
		"CPUINFO": func() (provider.Provider, error) {
			return cpuinfo.New("", ""), nil
		},
		"NVML": func() (provider.Provider, error) {
			return gpu.NVML(), nil
		},
		"DCGM": func() (provider.Provider, error) {
			return gpu.DCGM(), nil
		},
	}
	// Registration order doubles as resolution priority (last wins), so
	// the configured provider order is applied to the full built-in set.
	names := config.OrderProviders(cfg.ProviderOrder, []string{
		"CPUINFO", "CPUFREQ_SYSFS", "MSR", "DCGM", "NVML",
	})
	for _, name := range names {
		p, err := builders[name]()
		if err != nil {
			// A provider that cannot load (no sysfs tree, no GPU library)
			// is skipped, not fatal; whether that is reported is the
			// verbosity setting's job.
			logging.Warn("Bootstrap", "provider %s unavailable: %v", name, err)
			continue
		}
		if err := orch.RegisterProvider(p); err != nil {
			return nil, nil, err
		}
	}

	var loader *plugin.Loader
	if cfg.PluginSearchPath != "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "localhost"
		}
		loader = plugin.NewLoader(cfg.PluginSearchPath, hostname, orch)
		if err := loader.LoadExisting(ctx); err != nil {
			return nil, nil, fmt.Errorf("bootstrap: plugin discovery: %w", err)
		}
	}
	return orch, loader, nil
}
