package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	sampleCount  int
	samplePeriod time.Duration
)

var sampleCmd = &cobra.Command{
	Use:   "sample NAME DOMAIN IDX",
	Short: "Sample one signal through the batch path",
	Long: `Push one signal as a batch slot, then repeatedly run read_batch and
print the sampled value. This exercises the same code path an embedded
runtime uses, including cross-domain aggregation when DOMAIN is coarser
than the signal's native domain.

Examples:
  platformctl sample MSR::PERF_STATUS:FREQ package 0
  platformctl sample GPU_POWER gpu 0 --count 10 --period 500ms`,
	Args: cobra.ExactArgs(3),
	RunE: runSample,
}

func runSample(cmd *cobra.Command, args []string) error {
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
	handle, err := orch.PushSignal(name, domain, idx)
	if err != nil {
		return err
	}
	format, err := orch.FormatterOf(name)
	if err != nil {
		return err
	}

	for i := 0; i < sampleCount; i++ {
		if i > 0 {
			select {
			case <-cmd.Context().Done():
				return nil
			case <-time.After(samplePeriod):
			}
		}
		if err := orch.ReadBatch(); err != nil {
			return err
		}
		v, err := orch.Sample(handle)
		if err != nil {
			return err
		}
		fmt.Println(format(v))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(sampleCmd)
	sampleCmd.Flags().IntVar(&sampleCount, "count", 1, "Number of samples to take")
	sampleCmd.Flags().DurationVar(&samplePeriod, "period", time.Second, "Delay between samples")
}
