// Sentinel is the command-line companion to sentineld. It runs the scanner
// pipeline directly against a local directory, without sandboxes or
// sessions, for use in CI and quick local checks.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mukhil0212/Sentinel-RAG/internal/logging"
	"github.com/mukhil0212/Sentinel-RAG/internal/scan"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sentinel",
		Short:         "IaC security scanning and remediation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newScanCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("sentinel %s (%s)\n", version, gitCommit)
		},
	}
}

func newScanCmd() *cobra.Command {
	var (
		target     string
		kind       string
		checkovBin string
		tflintBin  string
		timeout    time.Duration
		gitleaks   bool
	)

	cmd := &cobra.Command{
		Use:   "scan [dir]",
		Short: "Run the scanner pipeline against a directory",
		Long: `Scan runs every applicable security scanner against the given
directory (default: current directory) and prints a merged,
severity-ranked report. The exit code is 1 when findings exist.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			abs, err := os.Stat(dir)
			if err != nil {
				return fmt.Errorf("cannot scan %s: %w", dir, err)
			}
			if !abs.IsDir() {
				return fmt.Errorf("cannot scan %s: not a directory", dir)
			}

			scanners := []scan.Scanner{
				&scan.Checkov{BinOverride: checkovBin, Timeout: timeout},
				&scan.TFLint{BinOverride: tflintBin, Timeout: timeout},
			}
			if gitleaks {
				gl, err := scan.NewGitleaks()
				if err != nil {
					return fmt.Errorf("failed to initialize gitleaks: %w", err)
				}
				scanners = append(scanners, gl)
			}

			logger := logging.NewNop()
			pipeline, err := scan.NewPipeline(scanners, logger.Underlying())
			if err != nil {
				return err
			}

			report, err := pipeline.Run(cmd.Context(), dir, scan.Options{Target: target, Kind: kind})
			if err != nil {
				return err
			}

			fmt.Print(report.Format())
			if len(report.Findings) > 0 {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "filter findings to paths containing this substring")
	cmd.Flags().StringVar(&kind, "kind", "", "project kind hint (terraform, kubernetes, ...)")
	cmd.Flags().StringVar(&checkovBin, "checkov-bin", "", "path to the checkov binary")
	cmd.Flags().StringVar(&tflintBin, "tflint-bin", "", "path to the tflint binary")
	cmd.Flags().DurationVar(&timeout, "timeout", 120*time.Second, "per-scanner timeout")
	cmd.Flags().BoolVar(&gitleaks, "gitleaks", true, "enable the in-process secrets scanner")
	return cmd
}
