package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var writeCmd = &cobra.Command{
	Use:   "write NAME DOMAIN IDX VALUE",
	Short: "Write one control immediately",
	Long: `Write one control setting without registering a batch slot. A domain
coarser than the control's native domain is disaggregated on the fly: a
sum-aggregated control divides the setting evenly across the nested
domain instances, any other control applies it unchanged to each.

Examples:
  platformctl write MSR::PERF_CTL:FREQ cpu 2 2.0e9
  platformctl write GPU_POWER_LIMIT_CONTROL gpu 0 250`,
	Args: cobra.ExactArgs(4),
	RunE: runWrite,
}

func runWrite(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	orch, _, err := bootstrap(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	name, domain, idx, err := parseTuple(args[:3])
	if err != nil {
		return err
	}
	value, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		return fmt.Errorf("bad setting %q: %w", args[3], err)
	}
	return orch.WriteControl(name, domain, idx, value)
}

func init() {
	rootCmd.AddCommand(writeCmd)
}
