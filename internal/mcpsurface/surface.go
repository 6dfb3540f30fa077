// Package mcpsurface exposes the orchestrator's operations as MCP tools,
// so the agents, controllers, and policy engines the platform serves can
// drive telemetry and controls over the Model Context Protocol instead of
// linking the Go API. One tool is declared per operation; handlers render
// results as text and turn every orchestrator error into a tool error
// rather than a protocol error.
package mcpsurface

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/geopm-project/platformio-go/internal/orchestrator"
	"github.com/geopm-project/platformio-go/internal/topology"
	"github.com/geopm-project/platformio-go/pkg/logging"
)

// Surface owns the MCP server wrapping one orchestrator. The orchestrator
// itself is single-caller; MCP transports may run handlers concurrently,
// so Surface serializes every tool call on one mutex. It is the external
// synchronization the orchestrator contract requires of its embedder.
type Surface struct {
	mu   sync.Mutex
	orch *orchestrator.Orchestrator
	mcp  *server.MCPServer
}

// New builds the surface over orch, registering one tool per operation.
func New(orch *orchestrator.Orchestrator, version string) *Surface {
	s := &Surface{
		orch: orch,
		mcp: server.NewMCPServer(
			"platformio",
			version,
			server.WithToolCapabilities(false),
		),
	}
	s.registerTools()
	return s
}

// ServeStdio runs the MCP server over stdin/stdout until the peer closes
// the stream. This is the transport AI-assistant embeddings use.
func (s *Surface) ServeStdio(ctx context.Context) error {
	logging.Info("MCPSurface", "serving MCP over stdio")
	return server.ServeStdio(s.mcp)
}

// ServeListener runs the streamable-HTTP transport on l, which the serve
// daemon obtains from systemd socket activation or a direct bind
// (internal/batchserver).
func (s *Surface) ServeListener(l net.Listener) error {
	logging.Info("MCPSurface", "serving MCP over streamable HTTP on %s", l.Addr())
	httpServer := server.NewStreamableHTTPServer(s.mcp)
	return http.Serve(l, httpServer)
}

func (s *Surface) registerTools() {
	s.mcp.AddTool(mcp.NewTool("enumerate_signals",
		mcp.WithDescription("List every signal name any registered provider supports"),
	), s.handleEnumerateSignals)

	s.mcp.AddTool(mcp.NewTool("enumerate_controls",
		mcp.WithDescription("List every control name any registered provider supports"),
	), s.handleEnumerateControls)

	s.mcp.AddTool(mcp.NewTool("signal_domain",
		mcp.WithDescription("Report the native topology domain of a signal"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Signal name")),
	), s.handleSignalDomain)

	s.mcp.AddTool(mcp.NewTool("control_domain",
		mcp.WithDescription("Report the native topology domain of a control"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Control name")),
	), s.handleControlDomain)

	s.mcp.AddTool(mcp.NewTool("push_signal",
		mcp.WithDescription("Register a signal as a batch slot and return its handle"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Signal name")),
		mcp.WithString("domain", mcp.Required(), mcp.Description("Topology domain (board, package, core, cpu, memory, gpu, gpu_chip)")),
		mcp.WithNumber("idx", mcp.Required(), mcp.Description("Domain index")),
	), s.handlePushSignal)

	s.mcp.AddTool(mcp.NewTool("push_control",
		mcp.WithDescription("Register a control as a batch slot and return its handle"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Control name")),
		mcp.WithString("domain", mcp.Required(), mcp.Description("Topology domain")),
		mcp.WithNumber("idx", mcp.Required(), mcp.Description("Domain index")),
	), s.handlePushControl)

	s.mcp.AddTool(mcp.NewTool("read_batch",
		mcp.WithDescription("Refresh every pushed signal's sampled value"),
	), s.handleReadBatch)

	s.mcp.AddTool(mcp.NewTool("write_batch",
		mcp.WithDescription("Flush every adjusted control setting to hardware"),
	), s.handleWriteBatch)

	s.mcp.AddTool(mcp.NewTool("sample",
		mcp.WithDescription("Return a pushed signal's most recent batch-read value"),
		mcp.WithNumber("handle", mcp.Required(), mcp.Description("Handle returned by push_signal")),
	), s.handleSample)

	s.mcp.AddTool(mcp.NewTool("adjust",
		mcp.WithDescription("Stage a setting on a pushed control; write_batch applies it"),
		mcp.WithNumber("handle", mcp.Required(), mcp.Description("Handle returned by push_control")),
		mcp.WithNumber("setting", mcp.Required(), mcp.Description("Value to stage")),
	), s.handleAdjust)

	s.mcp.AddTool(mcp.NewTool("read_signal",
		mcp.WithDescription("Read one signal immediately, without touching batch state"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Signal name")),
		mcp.WithString("domain", mcp.Required(), mcp.Description("Topology domain")),
		mcp.WithNumber("idx", mcp.Required(), mcp.Description("Domain index")),
	), s.handleReadSignal)

	s.mcp.AddTool(mcp.NewTool("write_control",
		mcp.WithDescription("Write one control immediately, without touching batch state"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Control name")),
		mcp.WithString("domain", mcp.Required(), mcp.Description("Topology domain")),
		mcp.WithNumber("idx", mcp.Required(), mcp.Description("Domain index")),
		mcp.WithNumber("setting", mcp.Required(), mcp.Description("Value to write")),
	), s.handleWriteControl)

	s.mcp.AddTool(mcp.NewTool("save_controls",
		mcp.WithDescription("Snapshot every provider's control settings for a later restore_controls"),
	), s.handleSaveControls)

	s.mcp.AddTool(mcp.NewTool("restore_controls",
		mcp.WithDescription("Write back the settings captured by the last save_controls"),
	), s.handleRestoreControls)

	s.mcp.AddTool(mcp.NewTool("save_controls_to",
		mcp.WithDescription("Write one save-control JSON file per provider under a directory"),
		mcp.WithString("dir", mcp.Required(), mcp.Description("Directory to write save files into")),
	), s.handleSaveControlsTo)

	s.mcp.AddTool(mcp.NewTool("restore_controls_from",
		mcp.WithDescription("Apply previously saved control settings from a directory of save files"),
		mcp.WithString("dir", mcp.Required(), mcp.Description("Directory holding save files")),
	), s.handleRestoreControlsFrom)

	s.mcp.AddTool(mcp.NewTool("describe_signal",
		mcp.WithDescription("Return a signal's description, domain, and behavior class"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Signal name")),
	), s.handleDescribeSignal)

	s.mcp.AddTool(mcp.NewTool("describe_control",
		mcp.WithDescription("Return a control's description and domain"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Control name")),
	), s.handleDescribeControl)

	s.mcp.AddTool(mcp.NewTool("behavior_of",
		mcp.WithDescription("Return a name's behavior class: Constant, Monotone, Variable, or Label"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Signal or control name")),
	), s.handleBehaviorOf)
}

// stringArg extracts a required string argument.
func stringArg(request mcp.CallToolRequest, key string) (string, error) {
	v, ok := request.GetArguments()[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%s parameter is required", key)
	}
	return v, nil
}

// numberArg extracts a required numeric argument. JSON numbers always
// arrive as float64.
func numberArg(request mcp.CallToolRequest, key string) (float64, error) {
	v, ok := request.GetArguments()[key].(float64)
	if !ok {
		return 0, fmt.Errorf("%s parameter is required and must be a number", key)
	}
	return v, nil
}

// tupleArgs extracts the (name, domain, idx) triple most tools take.
func tupleArgs(request mcp.CallToolRequest) (string, topology.Domain, int, error) {
	name, err := stringArg(request, "name")
	if err != nil {
		return "", topology.DomainInvalid, 0, err
	}
	domainStr, err := stringArg(request, "domain")
	if err != nil {
		return "", topology.DomainInvalid, 0, err
	}
	domain, err := topology.ParseDomain(domainStr)
	if err != nil {
		return "", topology.DomainInvalid, 0, err
	}
	idx, err := numberArg(request, "idx")
	if err != nil {
		return "", topology.DomainInvalid, 0, err
	}
	return name, domain, int(idx), nil
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Surface) handleEnumerateSignals(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return jsonResult(s.orch.EnumerateSignals())
}

func (s *Surface) handleEnumerateControls(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return jsonResult(s.orch.EnumerateControls())
}

func (s *Surface) handleSignalDomain(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := stringArg(request, "name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.orch.SignalDomain(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(d.String()), nil
}

func (s *Surface) handleControlDomain(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := stringArg(request, "name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.orch.ControlDomain(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(d.String()), nil
}

func (s *Surface) handlePushSignal(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, domain, idx, err := tupleArgs(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	handle, err := s.orch.PushSignal(name, domain, idx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%d", handle)), nil
}

func (s *Surface) handlePushControl(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, domain, idx, err := tupleArgs(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	handle, err := s.orch.PushControl(name, domain, idx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%d", handle)), nil
}

func (s *Surface) handleReadBatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.orch.ReadBatch(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("ok"), nil
}

func (s *Surface) handleWriteBatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.orch.WriteBatch(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("ok"), nil
}

func (s *Surface) handleSample(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	handle, err := numberArg(request, "handle")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.orch.Sample(int(handle))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%g", v)), nil
}

func (s *Surface) handleAdjust(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	handle, err := numberArg(request, "handle")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	setting, err := numberArg(request, "setting")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.orch.Adjust(int(handle), setting); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("ok"), nil
}

func (s *Surface) handleReadSignal(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, domain, idx, err := tupleArgs(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.orch.ReadSignal(name, domain, idx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	format, err := s.orch.FormatterOf(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(format(v)), nil
}

func (s *Surface) handleWriteControl(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, domain, idx, err := tupleArgs(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	setting, err := numberArg(request, "setting")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.orch.WriteControl(name, domain, idx, setting); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("ok"), nil
}

func (s *Surface) handleSaveControls(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.orch.SaveControls(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("ok"), nil
}

func (s *Surface) handleRestoreControls(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.orch.RestoreControls(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("ok"), nil
}

func (s *Surface) handleSaveControlsTo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir, err := stringArg(request, "dir")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.orch.SaveControlsTo(dir); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("ok"), nil
}

func (s *Surface) handleRestoreControlsFrom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir, err := stringArg(request, "dir")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.orch.RestoreControlsFrom(dir); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("ok"), nil
}

// describeInfo is the JSON shape describe_signal/describe_control render.
type describeInfo struct {
	Name        string `json:"name"`
	Domain      string `json:"domain"`
	Behavior    string `json:"behavior,omitempty"`
	Description string `json:"description"`
}

func (s *Surface) handleDescribeSignal(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := stringArg(request, "name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	desc, err := s.orch.DescribeSignal(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	domain, err := s.orch.SignalDomain(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	behavior, _ := s.orch.BehaviorOf(name)
	return jsonResult(describeInfo{
		Name:        name,
		Domain:      domain.String(),
		Behavior:    behavior.String(),
		Description: desc,
	})
}

func (s *Surface) handleDescribeControl(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := stringArg(request, "name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	desc, err := s.orch.DescribeControl(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	domain, err := s.orch.ControlDomain(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(describeInfo{
		Name:        name,
		Domain:      domain.String(),
		Description: desc,
	})
}

func (s *Surface) handleBehaviorOf(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := stringArg(request, "name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.orch.BehaviorOf(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}
