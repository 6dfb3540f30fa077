// Package shell implements the interactive operator console: a readline
// REPL over one orchestrator, with prefix completion and history, for
// manual push/read/sample/adjust while bringing a node up or debugging a
// provider.
package shell

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/geopm-project/platformio-go/internal/orchestrator"
	"github.com/geopm-project/platformio-go/internal/topology"
)

// errExit is the sentinel a command handler returns to terminate the loop.
var errExit = fmt.Errorf("exit")

// Shell is the interactive console over one orchestrator.
type Shell struct {
	orch *orchestrator.Orchestrator
	out  io.Writer
}

// New builds a Shell over orch, writing command output to stdout.
func New(orch *orchestrator.Orchestrator) *Shell {
	return &Shell{orch: orch, out: os.Stdout}
}

// Run drives the REPL until the user exits with "exit", Ctrl+D, or an
// unrecoverable readline error.
func (s *Shell) Run() error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "platformio> ",
		HistoryFile:     filepath.Join(os.TempDir(), ".platformctl_history"),
		AutoComplete:    s.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("shell: create readline: %w", err)
	}
	defer rl.Close()

	fmt.Fprintln(s.out, "platformio shell. Type 'help' for commands, TAB to complete, 'exit' to leave.")
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				continue
			}
		} else if err == io.EOF {
			return nil
		} else if err != nil {
			return fmt.Errorf("shell: readline: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if err := s.execute(input); err != nil {
			if err == errExit {
				return nil
			}
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	}
}

func (s *Shell) completer() readline.AutoCompleter {
	signalNames := func(string) []string { return s.orch.EnumerateSignals() }
	controlNames := func(string) []string { return s.orch.EnumerateControls() }
	return readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("signals"),
		readline.PcItem("controls"),
		readline.PcItem("domain", readline.PcItemDynamic(signalNames)),
		readline.PcItem("describe", readline.PcItemDynamic(signalNames)),
		readline.PcItem("push",
			readline.PcItem("signal", readline.PcItemDynamic(signalNames)),
			readline.PcItem("control", readline.PcItemDynamic(controlNames)),
		),
		readline.PcItem("read", readline.PcItemDynamic(signalNames)),
		readline.PcItem("write", readline.PcItemDynamic(controlNames)),
		readline.PcItem("batch", readline.PcItem("read"), readline.PcItem("write")),
		readline.PcItem("sample"),
		readline.PcItem("adjust"),
		readline.PcItem("save"),
		readline.PcItem("restore"),
		readline.PcItem("exit"),
	)
}

// execute parses and dispatches one input line.
func (s *Shell) execute(input string) error {
	fields := strings.Fields(input)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "help":
		return s.cmdHelp()
	case "signals":
		return s.cmdNames(s.orch.EnumerateSignals())
	case "controls":
		return s.cmdNames(s.orch.EnumerateControls())
	case "domain":
		return s.cmdDomain(args)
	case "describe":
		return s.cmdDescribe(args)
	case "push":
		return s.cmdPush(args)
	case "read":
		return s.cmdRead(args)
	case "write":
		return s.cmdWrite(args)
	case "batch":
		return s.cmdBatch(args)
	case "sample":
		return s.cmdSample(args)
	case "adjust":
		return s.cmdAdjust(args)
	case "save":
		return s.cmdSave(args)
	case "restore":
		return s.cmdRestore(args)
	case "exit", "quit":
		return errExit
	default:
		return fmt.Errorf("unknown command %q, try 'help'", cmd)
	}
}

func (s *Shell) cmdHelp() error {
	fmt.Fprint(s.out, `Commands:
  signals                              list signal names
  controls                             list control names
  domain <name>                        native domain of a signal or control
  describe <name>                      description and behavior of a name
  push signal|control <name> <domain> <idx>   register a batch slot, print handle
  read <name> <domain> <idx>           one-shot signal read
  write <name> <domain> <idx> <value>  one-shot control write
  batch read|write                     run read_batch / write_batch
  sample <handle>                      sample a pushed signal
  adjust <handle> <value>              stage a setting on a pushed control
  save [dir]                           save controls (to dir if given)
  restore [dir]                        restore controls (from dir if given)
  exit                                 leave the shell
`)
	return nil
}

func (s *Shell) cmdNames(names []string) error {
	for _, n := range names {
		fmt.Fprintln(s.out, n)
	}
	return nil
}

func (s *Shell) cmdDomain(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: domain <name>")
	}
	if d, err := s.orch.SignalDomain(args[0]); err == nil {
		fmt.Fprintf(s.out, "signal %s: %s\n", args[0], d)
		return nil
	}
	d, err := s.orch.ControlDomain(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "control %s: %s\n", args[0], d)
	return nil
}

func (s *Shell) cmdDescribe(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: describe <name>")
	}
	name := args[0]
	if desc, err := s.orch.DescribeSignal(name); err == nil {
		behavior, _ := s.orch.BehaviorOf(name)
		fmt.Fprintf(s.out, "%s [%s]: %s\n", name, behavior, desc)
		return nil
	}
	desc, err := s.orch.DescribeControl(name)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s: %s\n", name, desc)
	return nil
}

func (s *Shell) parseTuple(args []string) (string, topology.Domain, int, error) {
	if len(args) != 3 {
		return "", topology.DomainInvalid, 0, fmt.Errorf("expected <name> <domain> <idx>")
	}
	domain, err := topology.ParseDomain(args[1])
	if err != nil {
		return "", topology.DomainInvalid, 0, err
	}
	idx, err := strconv.Atoi(args[2])
	if err != nil {
		return "", topology.DomainInvalid, 0, fmt.Errorf("bad index %q: %w", args[2], err)
	}
	return args[0], domain, idx, nil
}

func (s *Shell) cmdPush(args []string) error {
	if len(args) != 4 || (args[0] != "signal" && args[0] != "control") {
		return fmt.Errorf("usage: push signal|control <name> <domain> <idx>")
	}
	name, domain, idx, err := s.parseTuple(args[1:])
	if err != nil {
		return err
	}
	var handle int
	if args[0] == "signal" {
		handle, err = s.orch.PushSignal(name, domain, idx)
	} else {
		handle, err = s.orch.PushControl(name, domain, idx)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "handle %d\n", handle)
	return nil
}

func (s *Shell) cmdRead(args []string) error {
	name, domain, idx, err := s.parseTuple(args)
	if err != nil {
		return fmt.Errorf("usage: read <name> <domain> <idx>: %w", err)
	}
	v, err := s.orch.ReadSignal(name, domain, idx)
	if err != nil {
		return err
	}
	format, err := s.orch.FormatterOf(name)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, format(v))
	return nil
}

func (s *Shell) cmdWrite(args []string) error {
	if len(args) != 4 {
		return fmt.Errorf("usage: write <name> <domain> <idx> <value>")
	}
	name, domain, idx, err := s.parseTuple(args[:3])
	if err != nil {
		return err
	}
	value, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		return fmt.Errorf("bad value %q: %w", args[3], err)
	}
	return s.orch.WriteControl(name, domain, idx, value)
}

func (s *Shell) cmdBatch(args []string) error {
	if len(args) != 1 || (args[0] != "read" && args[0] != "write") {
		return fmt.Errorf("usage: batch read|write")
	}
	if args[0] == "read" {
		return s.orch.ReadBatch()
	}
	return s.orch.WriteBatch()
}

func (s *Shell) cmdSample(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: sample <handle>")
	}
	handle, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("bad handle %q: %w", args[0], err)
	}
	v, err := s.orch.Sample(handle)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%g\n", v)
	return nil
}

func (s *Shell) cmdAdjust(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: adjust <handle> <value>")
	}
	handle, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("bad handle %q: %w", args[0], err)
	}
	value, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("bad value %q: %w", args[1], err)
	}
	return s.orch.Adjust(handle, value)
}

func (s *Shell) cmdSave(args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("usage: save [dir]")
	}
	if len(args) == 1 {
		return s.orch.SaveControlsTo(args[0])
	}
	return s.orch.SaveControls()
}

func (s *Shell) cmdRestore(args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("usage: restore [dir]")
	}
	if len(args) == 1 {
		return s.orch.RestoreControlsFrom(args[0])
	}
	return s.orch.RestoreControls()
}
