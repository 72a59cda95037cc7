package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemoTurnScansAndReports(t *testing.T) {
	ctx := context.Background()

	var emitted int
	res, err := NewDemo().Turn(ctx, &TurnRequest{
		Tools: &Toolset{
			Scan: func(ctx context.Context, target, kind string) (string, error) {
				return "No findings.\n", nil
			},
		},
		ContinuationToken: "tok-9",
		Emit:              func(raw any) { emitted++ },
	})
	require.NoError(t, err)
	assert.Equal(t, "No findings.\n", res.FinalText)
	assert.Equal(t, "tok-9", res.ContinuationToken)
	assert.Equal(t, 2, emitted)
}

func TestDemoTurnWithoutEmitter(t *testing.T) {
	ctx := context.Background()

	// Emit is nil on turns with no event consumer; the turn must still run.
	res, err := NewDemo().Turn(ctx, &TurnRequest{
		Tools: &Toolset{
			Scan: func(ctx context.Context, target, kind string) (string, error) {
				return "No findings.\n", nil
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "No findings.\n", res.FinalText)
}

func TestDemoTurnRequiresScanTool(t *testing.T) {
	_, err := NewDemo().Turn(context.Background(), &TurnRequest{})
	require.Error(t, err)
}
