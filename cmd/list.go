package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/geopm-project/platformio-go/internal/orchestrator"
)

var (
	listOutputFormat string
	listQuiet        bool
)

var listCmd = &cobra.Command{
	Use:   "list signals|controls",
	Short: "List every signal or control name the registered providers expose",
	Long: `List the union of every registered provider's signal or control names,
with each name's native domain and description, plus the behavior class
for signals (the behavior column is empty for controls).

Examples:
  platformctl list signals
  platformctl list controls --output json`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"signals", "controls"},
	RunE:      runList,
}

// nameInfo is one row of list output.
type nameInfo struct {
	Name        string `json:"name" yaml:"name"`
	Domain      string `json:"domain" yaml:"domain"`
	Behavior    string `json:"behavior" yaml:"behavior"`
	Description string `json:"description" yaml:"description"`
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var s *spinner.Spinner
	if !listQuiet && listOutputFormat == "table" {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Suffix = " discovering providers..."
		s.Start()
	}
	orch, _, err := bootstrap(cmd.Context(), cfg)
	if s != nil {
		s.Stop()
	}
	if err != nil {
		return err
	}

	rows, err := collectNames(orch, args[0])
	if err != nil {
		return err
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })

	switch listOutputFormat {
	case "json":
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	case "yaml":
		data, err := yaml.Marshal(rows)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
	default:
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"NAME", "DOMAIN", "BEHAVIOR", "DESCRIPTION"})
		for _, r := range rows {
			desc := r.Description
			if len(desc) > 60 {
				desc = desc[:57] + "..."
			}
			t.AppendRow(table.Row{r.Name, r.Domain, r.Behavior, desc})
		}
		t.Render()
		if !listQuiet {
			fmt.Printf("\nTotal: %d %s\n", len(rows), args[0])
		}
	}
	return nil
}

func collectNames(orch *orchestrator.Orchestrator, kind string) ([]nameInfo, error) {
	var rows []nameInfo
	switch kind {
	case "signals":
		for _, name := range orch.EnumerateSignals() {
			domain, err := orch.SignalDomain(name)
			if err != nil {
				return nil, err
			}
			desc, _ := orch.DescribeSignal(name)
			behavior, _ := orch.BehaviorOf(name)
			rows = append(rows, nameInfo{
				Name: name, Domain: domain.String(),
				Behavior: behavior.String(), Description: desc,
			})
		}
	case "controls":
		for _, name := range orch.EnumerateControls() {
			domain, err := orch.ControlDomain(name)
			if err != nil {
				return nil, err
			}
			desc, _ := orch.DescribeControl(name)
			rows = append(rows, nameInfo{
				Name: name, Domain: domain.String(), Description: desc,
			})
		}
	default:
		return nil, fmt.Errorf("unknown resource type %q, expected signals or controls", kind)
	}
	return rows, nil
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVarP(&listOutputFormat, "output", "o", "table", "Output format (table, json, yaml)")
	listCmd.Flags().BoolVarP(&listQuiet, "quiet", "q", false, "Suppress non-essential output")
}
