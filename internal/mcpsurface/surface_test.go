package mcpsurface

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geopm-project/platformio-go/internal/orchestrator"
	"github.com/geopm-project/platformio-go/internal/provider/providertest"
	"github.com/geopm-project/platformio-go/internal/topology"
)

func newSurface(t *testing.T) (*Surface, *providertest.Fixture) {
	t.Helper()
	oracle := topology.NewStaticOracle(topology.Shape{
		Boards: 1, PackagesPerBoard: 2, CoresPerPackage: 2, ThreadsPerCore: 1,
		GPUsPerBoard: 1, GPUChipsPerGPU: 1, MemoryPerBoard: 1,
	})
	orch := orchestrator.New(oracle)
	fx := providertest.NewConstant("P1", "TEMP", topology.DomainBoard, 42, "POWER_CAP")
	require.NoError(t, orch.RegisterProvider(fx))
	return New(orch, "test"), fx
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok)
	return tc.Text
}

func TestHandleReadSignal(t *testing.T) {
	s, _ := newSurface(t)
	res, err := s.handleReadSignal(context.Background(), callRequest(map[string]interface{}{
		"name": "TEMP", "domain": "board", "idx": float64(0),
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "42", resultText(t, res))
}

func TestHandleReadSignalUnknownNameIsToolError(t *testing.T) {
	s, _ := newSurface(t)
	res, err := s.handleReadSignal(context.Background(), callRequest(map[string]interface{}{
		"name": "NOPE", "domain": "board", "idx": float64(0),
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandlePushThenSample(t *testing.T) {
	s, _ := newSurface(t)

	res, err := s.handlePushSignal(context.Background(), callRequest(map[string]interface{}{
		"name": "TEMP", "domain": "board", "idx": float64(0),
	}))
	require.NoError(t, err)
	assert.Equal(t, "0", resultText(t, res))

	res, err = s.handleReadBatch(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	res, err = s.handleSample(context.Background(), callRequest(map[string]interface{}{
		"handle": float64(0),
	}))
	require.NoError(t, err)
	assert.Equal(t, "42", resultText(t, res))
}

func TestHandleSampleBeforeReadBatchIsToolError(t *testing.T) {
	s, _ := newSurface(t)
	res, err := s.handleSample(context.Background(), callRequest(map[string]interface{}{
		"handle": float64(0),
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandleWriteControlAndSaveRestore(t *testing.T) {
	s, fx := newSurface(t)

	res, err := s.handleSaveControls(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	res, err = s.handleWriteControl(context.Background(), callRequest(map[string]interface{}{
		"name": "POWER_CAP", "domain": "board", "idx": float64(0), "setting": float64(150),
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	res, err = s.handleRestoreControls(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	writes := fx.Writes()
	require.NotEmpty(t, writes)
	assert.Equal(t, 150.0, writes[0].Value)
	assert.Equal(t, 42.0, writes[len(writes)-1].Value)
}

func TestHandleDescribeSignal(t *testing.T) {
	s, _ := newSurface(t)
	res, err := s.handleDescribeSignal(context.Background(), callRequest(map[string]interface{}{
		"name": "TEMP",
	}))
	require.NoError(t, err)
	text := resultText(t, res)
	assert.Contains(t, text, `"board"`)
	assert.Contains(t, text, "fixture signal")
}

func TestHandleMissingArgument(t *testing.T) {
	s, _ := newSurface(t)
	res, err := s.handleSignalDomain(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandleBadDomainName(t *testing.T) {
	s, _ := newSurface(t)
	res, err := s.handlePushSignal(context.Background(), callRequest(map[string]interface{}{
		"name": "TEMP", "domain": "rack", "idx": float64(0),
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
