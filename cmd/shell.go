package cmd

import (
	"github.com/spf13/cobra"

	"github.com/geopm-project/platformio-go/internal/shell"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Open an interactive console on the orchestrator",
	Long: `Start a readline console for manual push/read/sample/adjust against the
registered providers. Batch state lives for the life of the shell, so
pushed handles stay valid across commands, the closest a human gets to
driving the orchestrator the way an embedded runtime does.`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

func runShell(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	orch, _, err := bootstrap(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	return shell.New(orch).Run()
}

func init() {
	rootCmd.AddCommand(shellCmd)
}
