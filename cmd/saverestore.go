package cmd

import (
	"github.com/spf13/cobra"

	"github.com/geopm-project/platformio-go/pkg/logging"
)

var saveCmd = &cobra.Command{
	Use:   "save DIR",
	Short: "Save every provider's control settings to a directory",
	Long: `Write one <provider>-save-control.json file per provider under DIR.
The files are the authoritative record: a later 'platformctl restore DIR'
applies them in a fresh process, with no in-process save state involved.

Example:
  platformctl save /run/platformio/saved`,
	Args: cobra.ExactArgs(1),
	RunE: runSave,
}

func runSave(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	orch, _, err := bootstrap(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	if err := orch.SaveControlsTo(args[0]); err != nil {
		logging.Audit(logging.AuditEvent{Action: "save_controls", Outcome: "failure", Target: args[0], Error: err.Error()})
		return err
	}
	logging.Audit(logging.AuditEvent{Action: "save_controls", Outcome: "success", Target: args[0]})
	return nil
}

var restoreCmd = &cobra.Command{
	Use:   "restore DIR",
	Short: "Restore control settings from a directory of save files",
	Long: `Apply every record in DIR's <provider>-save-control.json files via the
owning provider's immediate write path, in reverse registration order.
Providers with no save file under DIR are skipped.

Example:
  platformctl restore /run/platformio/saved`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func runRestore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	orch, _, err := bootstrap(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	if err := orch.RestoreControlsFrom(args[0]); err != nil {
		logging.Audit(logging.AuditEvent{Action: "restore_controls", Outcome: "failure", Target: args[0], Error: err.Error()})
		return err
	}
	logging.Audit(logging.AuditEvent{Action: "restore_controls", Outcome: "success", Target: args[0]})
	return nil
}

func init() {
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(restoreCmd)
}
