package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mukhil0212/Sentinel-RAG/internal/stream"
)

func TestScriptedRunsTurnsInOrder(t *testing.T) {
	p := NewScripted(
		func(ctx context.Context, req *TurnRequest) (*TurnResult, error) {
			EmitEvent(req, stream.Reasoning("looking at the scan report"))
			return &TurnResult{FinalText: "first", ContinuationToken: "tok-1"}, nil
		},
		func(ctx context.Context, req *TurnRequest) (*TurnResult, error) {
			assert.Equal(t, "tok-1", req.ContinuationToken)
			return &TurnResult{FinalText: "second", ContinuationToken: "tok-2"}, nil
		},
	)

	var emitted []any
	req := &TurnRequest{Message: "fix my bucket", Emit: func(raw any) { emitted = append(emitted, raw) }}

	res, err := p.Turn(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "first", res.FinalText)
	require.Len(t, emitted, 1)

	ev, ok := stream.Normalize(emitted[0])
	require.True(t, ok)
	assert.Equal(t, stream.EventReasoning, ev.Type)

	res, err = p.Turn(context.Background(), &TurnRequest{ContinuationToken: res.ContinuationToken})
	require.NoError(t, err)
	assert.Equal(t, "second", res.FinalText)
	assert.Zero(t, p.Remaining())
}

func TestScriptedExhausted(t *testing.T) {
	p := NewScripted()
	_, err := p.Turn(context.Background(), &TurnRequest{})
	assert.Error(t, err)
}
