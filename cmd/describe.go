package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var describeCmd = &cobra.Command{
	Use:   "describe NAME",
	Short: "Show a signal's or control's domain, behavior, and description",
	Long: `Look NAME up among the registered providers' signals first, then their
controls, and print its native domain and description. Signals also show
their behavior class; controls show whether a coarse-domain setting is
divided across, or applied unchanged to, the nested instances.

Examples:
  platformctl describe MSR::PERF_STATUS:FREQ
  platformctl describe GPU_POWER_LIMIT_CONTROL`,
	Args: cobra.ExactArgs(1),
	RunE: runDescribe,
}

func runDescribe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	orch, _, err := bootstrap(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	name := args[0]

	if domain, err := orch.SignalDomain(name); err == nil {
		desc, _ := orch.DescribeSignal(name)
		behavior, _ := orch.BehaviorOf(name)
		fmt.Printf("signal   %s\ndomain   %s\nbehavior %s\n%s\n", name, domain, behavior, desc)
		return nil
	}
	domain, err := orch.ControlDomain(name)
	if err != nil {
		return err
	}
	desc, _ := orch.DescribeControl(name)
	same, _ := orch.IsAdjustSame(name)
	disagg := "divided across nested instances"
	if same {
		disagg = "applied unchanged to nested instances"
	}
	fmt.Printf("control  %s\ndomain   %s\ncoarse-domain setting %s\n%s\n", name, domain, disagg, desc)
	return nil
}

func init() {
	rootCmd.AddCommand(describeCmd)
}
