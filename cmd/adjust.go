package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var adjustCmd = &cobra.Command{
	Use:   "adjust NAME DOMAIN IDX VALUE",
	Short: "Adjust one control through the batch path",
	Long: `Push one control as a batch slot, stage the setting with adjust, and
flush it with write_batch. This exercises the same code path an embedded
runtime uses, including cross-domain disaggregation when DOMAIN is
coarser than the control's native domain.

Examples:
  platformctl adjust MSR::PERF_CTL:FREQ package 0 2.0e9`,
	Args: cobra.ExactArgs(4),
	RunE: runAdjust,
}

func runAdjust(cmd *cobra.Command, args []string) error {
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

	handle, err := orch.PushControl(name, domain, idx)
	if err != nil {
		return err
	}
	if err := orch.Adjust(handle, value); err != nil {
		return err
	}
	return orch.WriteBatch()
}

func init() {
	rootCmd.AddCommand(adjustCmd)
}
