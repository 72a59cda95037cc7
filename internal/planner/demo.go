package planner

import (
	"context"
	"fmt"

	"github.com/mukhil0212/Sentinel-RAG/internal/stream"
)

// Demo is the built-in planner used when no external reasoning engine is
// wired in. Every turn runs a scan and reports the findings; it never
// proposes patches, so the approval flow stays inert until a real planner
// is configured.
type Demo struct{}

// NewDemo creates the demo planner.
func NewDemo() *Demo { return &Demo{} }

// Turn scans the sandbox and answers with the formatted report.
func (d *Demo) Turn(ctx context.Context, req *TurnRequest) (*TurnResult, error) {
	if req.Tools == nil || req.Tools.Scan == nil {
		return nil, fmt.Errorf("demo planner requires the scan tool")
	}

	EmitEvent(req, stream.ToolCalled("scan_tool", "{}"))
	report, err := req.Tools.Scan(ctx, "", "")
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	EmitEvent(req, stream.ToolOutput("scan_tool", report))

	return &TurnResult{
		FinalText:         report,
		ContinuationToken: req.ContinuationToken,
	}, nil
}
