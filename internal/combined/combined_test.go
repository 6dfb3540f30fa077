package combined

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geopm-project/platformio-go/internal/provider"
)

func TestSignalSample(t *testing.T) {
	cases := []struct {
		name     string
		agg      provider.AggKind
		operands []float64
		want     float64
	}{
		{"sum", provider.AggSum, []float64{1, 2, 3}, 6},
		{"average", provider.AggAverage, []float64{2, 4}, 3},
		{"min", provider.AggMin, []float64{5, 1, 9}, 1},
		{"max", provider.AggMax, []float64{5, 1, 9}, 9},
		{"select_first", provider.AggSelectFirst, []float64{7, 8}, 7},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSignal(tc.agg)
			assert.Equal(t, tc.want, s.Sample(tc.operands))
		})
	}
}

func TestControlAdjustSame(t *testing.T) {
	c, err := NewControl(4, true)
	require.NoError(t, err)
	assert.Equal(t, 2.2e9, c.Adjust(2.2e9))
	assert.Equal(t, 4, c.NumSubControls())
}

func TestControlAdjustScaled(t *testing.T) {
	c, err := NewControl(4, false)
	require.NoError(t, err)
	assert.Equal(t, 50.0, c.Adjust(200))
}

func TestNewControlRejectsZero(t *testing.T) {
	_, err := NewControl(0, false)
	assert.Error(t, err)
}
