package scan

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/zricethezav/gitleaks/v8/detect"
)

const gitleaksMaxFileSize = 1 << 20 // 1MB; larger files are skipped

// Gitleaks detects hardcoded secrets using the Gitleaks SDK in-process.
// Unlike the subprocess adapters there is no external binary to resolve:
// the default ruleset (800+ patterns) ships with the library.
type Gitleaks struct {
	detector *detect.Detector
}

// NewGitleaks creates the adapter with the default Gitleaks configuration.
func NewGitleaks() (*Gitleaks, error) {
	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, err
	}
	return &Gitleaks{detector: detector}, nil
}

// Name implements Scanner.
func (g *Gitleaks) Name() string { return "gitleaks" }

// Scan implements Scanner. Secrets apply to every project kind, so the
// adapter never skips. Each text file under the root is scanned
// individually so findings carry sandbox-relative paths.
func (g *Gitleaks) Scan(ctx context.Context, req Request) Outcome {
	var out Outcome

	_ = filepath.WalkDir(req.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if skipDetectDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if info, err := d.Info(); err != nil || info.Size() > gitleaksMaxFileSize {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil || bytes.ContainsRune(content, 0) {
			return nil
		}

		rel, err := filepath.Rel(req.Root, path)
		if err != nil {
			return nil
		}

		for _, f := range g.detector.DetectString(string(content)) {
			out.Findings = append(out.Findings, Finding{
				ID:             FindingID("gitleaks", f.RuleID, rel, f.StartLine),
				Tool:           "gitleaks",
				Severity:       SeverityHigh,
				Title:          "gitleaks: " + f.RuleID,
				Description:    f.Description,
				Recommendation: "Remove the secret from source and rotate the exposed credential.",
				FilePath:       rel,
				Line:           f.StartLine,
				Raw:            map[string]any{"rule_id": f.RuleID, "match": f.Match},
			})
		}
		return nil
	})

	if err := ctx.Err(); err != nil {
		out.Notes = append(out.Notes, "gitleaks scan cancelled: "+err.Error())
	}
	return out
}
