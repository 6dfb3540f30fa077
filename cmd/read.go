package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/geopm-project/platformio-go/internal/topology"
)

// parseTuple converts the NAME DOMAIN IDX argument triple shared by read,
// write, sample, and adjust.
func parseTuple(args []string) (string, topology.Domain, int, error) {
	domain, err := topology.ParseDomain(args[1])
	if err != nil {
		return "", topology.DomainInvalid, 0, err
	}
	idx, err := strconv.Atoi(args[2])
	if err != nil {
		return "", topology.DomainInvalid, 0, fmt.Errorf("bad domain index %q: %w", args[2], err)
	}
	return args[0], domain, idx, nil
}

var readCmd = &cobra.Command{
	Use:   "read NAME DOMAIN IDX",
	Short: "Read one signal immediately",
	Long: `Read one signal value without registering a batch slot. A domain
coarser than the signal's native domain is aggregated on the fly with the
signal's declared aggregation function.

Examples:
  platformctl read MSR::PERF_STATUS:FREQ cpu 2
  platformctl read MSR::PERF_STATUS:FREQ package 0`,
	Args: cobra.ExactArgs(3),
	RunE: runRead,
}

func runRead(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	orch, _, err := bootstrap(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	name, domain, idx, err := parseTuple(args)
	if err != nil {
		return err
	}
	v, err := orch.ReadSignal(name, domain, idx)
	if err != nil {
		return err
	}
	format, err := orch.FormatterOf(name)
	if err != nil {
		return err
	}
	fmt.Println(format(v))
	return nil
}

func init() {
	rootCmd.AddCommand(readCmd)
}
