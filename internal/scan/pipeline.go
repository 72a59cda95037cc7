package scan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mukhil0212/Sentinel-RAG/internal/runner"
	"github.com/mukhil0212/Sentinel-RAG/internal/sanitize"
)

const instrumentationName = "github.com/mukhil0212/Sentinel-RAG/internal/scan"

// Options narrows one pipeline run.
type Options struct {
	// Target filters findings to paths containing this substring and
	// narrows adapter invocations where the tool supports it.
	Target string

	// Kind is an optional caller-supplied project-type hint. When it is
	// not in the allowlist the pipeline falls back to auto-detection and
	// records a note.
	Kind string
}

// Pipeline orchestrates all configured scanner adapters against a sandbox
// and merges their findings into one deduplicated, severity-ranked report.
// For a fixed sandbox state and adapter set the output is deterministic.
type Pipeline struct {
	scanners []Scanner
	logger   *zap.Logger

	tracer         trace.Tracer
	meter          metric.Meter
	runCounter     metric.Int64Counter
	findingCounter metric.Int64Counter
}

// NewPipeline creates a pipeline over the given adapters, in order.
func NewPipeline(scanners []Scanner, logger *zap.Logger) (*Pipeline, error) {
	if len(scanners) == 0 {
		return nil, errors.New("at least one scanner is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pipeline{
		scanners: scanners,
		logger:   logger,
		tracer:   otel.Tracer(instrumentationName),
		meter:    otel.Meter(instrumentationName),
	}
	p.initMetrics()
	return p, nil
}

// initMetrics initializes OpenTelemetry counters.
func (p *Pipeline) initMetrics() {
	var err error

	p.runCounter, err = p.meter.Int64Counter(
		"sentinel.scan.runs_total",
		metric.WithDescription("Total number of pipeline runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		p.logger.Warn("failed to create run counter", zap.Error(err))
	}

	p.findingCounter, err = p.meter.Int64Counter(
		"sentinel.scan.findings_total",
		metric.WithDescription("Total number of findings reported"),
		metric.WithUnit("{finding}"),
	)
	if err != nil {
		p.logger.Warn("failed to create finding counter", zap.Error(err))
	}
}

// Run executes every applicable adapter sequentially, concatenates their
// findings, deduplicates by finding ID (first occurrence wins), optionally
// filters to the requested target, and sorts by severity rank.
func (p *Pipeline) Run(ctx context.Context, root string, opts Options) (*Report, error) {
	ctx, span := p.tracer.Start(ctx, "scan.pipeline.run",
		trace.WithAttributes(attribute.String("scan.target", opts.Target)))
	defer span.End()

	if root == "" {
		return nil, errors.New("sandbox root is required")
	}

	var notes []string
	kinds := DetectKinds(root)
	if opts.Kind != "" {
		if k, ok := ParseKind(opts.Kind); ok {
			kinds = []ProjectKind{k}
		} else {
			notes = append(notes, "Unrecognized project kind '"+opts.Kind+"'. Falling back to auto-detection.")
		}
	}

	req := Request{Root: root, Target: targetDir(root, opts.Target), Kinds: kinds}

	var findings []Finding
	for _, s := range p.scanners {
		outcome := s.Scan(ctx, req)
		notes = append(notes, outcome.Notes...)
		findings = append(findings, outcome.Findings...)

		if outcome.Result.ExitCode == runner.ExitNotFound {
			p.logger.Warn("scanner binary not found",
				zap.String("scanner", s.Name()),
				zap.Strings("command", outcome.Result.Command))
		}

		p.logger.Debug("scanner finished",
			zap.String("scanner", s.Name()),
			zap.Int("findings", len(outcome.Findings)),
			zap.Int("exit_code", outcome.Result.ExitCode),
			zap.Bool("skipped", outcome.Skipped),
			zap.Bool("timed_out", outcome.Result.TimedOut))
	}

	if opts.Target != "" {
		filtered := findings[:0]
		for _, f := range findings {
			if f.FilePath != "" && strings.Contains(f.FilePath, opts.Target) {
				filtered = append(filtered, f)
			}
		}
		findings = filtered
	}

	findings = dedupe(findings)
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Severity.Rank() != findings[j].Severity.Rank() {
			return findings[i].Severity.Rank() < findings[j].Severity.Rank()
		}
		return findings[i].ID < findings[j].ID
	})

	if p.runCounter != nil {
		p.runCounter.Add(ctx, 1)
	}
	if p.findingCounter != nil {
		p.findingCounter.Add(ctx, int64(len(findings)))
	}

	return &Report{Target: opts.Target, Kinds: kinds, Findings: findings, Notes: notes}, nil
}

// dedupe keeps the first occurrence of each finding ID.
func dedupe(findings []Finding) []Finding {
	seen := make(map[string]bool, len(findings))
	unique := findings[:0]
	for _, f := range findings {
		if seen[f.ID] {
			continue
		}
		seen[f.ID] = true
		unique = append(unique, f)
	}
	return unique
}

// targetDir passes the target through to adapters only when it is a safe
// relative path naming a directory; whole-sandbox scans are preferred for
// cross-file checks, with file filtering applied afterwards.
func targetDir(root, target string) string {
	if target == "" {
		return ""
	}
	rel, err := sanitize.ValidateRelative(target)
	if err != nil {
		return ""
	}
	if info, err := os.Stat(filepath.Join(root, rel)); err == nil && info.IsDir() {
		return rel
	}
	return ""
}
