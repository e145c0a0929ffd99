package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mfellner/squeezeoff/internal/config"
	"github.com/mfellner/squeezeoff/internal/isolate"
	"github.com/mfellner/squeezeoff/internal/report"
	"github.com/mfellner/squeezeoff/internal/runner"
	"github.com/mfellner/squeezeoff/internal/submission"
	"github.com/spf13/cobra"
)

var (
	flagRequired []string
	flagOutput   string
	flagParallel int
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <submission> [image...]",
		Short: "Evaluate a submission against the competition images",
		Long: "Evaluate a codec submission. Images named with --required must pass " +
			"for the run to succeed; positional images are evaluated and reported " +
			"but cannot fail the run.",
		Args: cobra.MinimumNArgs(1),
		RunE: runEvaluation,
	}
	cmd.Flags().StringArrayVar(&flagRequired, "required", nil, "image which must pass (repeatable)")
	cmd.Flags().StringVar(&flagOutput, "output", "", "directory to write results to (default <submission dir>/outputs)")
	cmd.Flags().IntVar(&flagParallel, "parallel", 0, "max concurrent encode workers (overrides config)")
	return cmd
}

func runEvaluation(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if flagParallel > 0 {
		cfg.Parallel = flagParallel
	}

	subPath := args[0]
	extraIDs := args[1:]

	// Fail fast on a broken submission, before any image is touched.
	if _, err := submission.Load(subPath); err != nil {
		return fmt.Errorf("loading submission: %w", err)
	}

	outDir := resolveOutputDir(subPath, flagOutput)
	if info, err := os.Stat(outDir); err != nil || !info.IsDir() {
		return fmt.Errorf("cannot find output directory %q", outDir)
	}

	opts := &runner.EvalOpts{
		Submission: subPath,
		Executor:   buildExecutor(cfg),
		Parallel:   cfg.Parallel,
		Logger:     logger,
	}
	ctx := context.Background()

	reqRecords, err := runner.Evaluate(ctx, opts, flagRequired)
	if err != nil {
		return err
	}
	extraRecords, err := runner.Evaluate(ctx, opts, extraIDs)
	if err != nil {
		return err
	}

	ci := &report.CISink{Enabled: os.Getenv("GITHUB_ACTIONS") != "", W: os.Stdout}
	summary, err := report.Render(outDir, reqRecords, extraRecords, ci, logger)
	if err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	fmt.Println("\n--- Results ---")
	if err := report.Generate(outDir, "table", os.Stdout); err != nil {
		return err
	}
	if summary.Failed {
		return fmt.Errorf("some images failed the tests")
	}
	return nil
}

// resolveOutputDir applies the default of an outputs directory next to the
// submission.
func resolveOutputDir(subPath, flag string) string {
	if flag != "" {
		return flag
	}
	dir := filepath.Dir(subPath)
	if info, err := os.Stat(subPath); err == nil && info.IsDir() {
		dir = subPath
	}
	return filepath.Join(dir, "outputs")
}

func buildExecutor(cfg *config.Config) isolate.Executor {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if cfg.Isolation == "docker" {
		return &isolate.DockerExecutor{
			Image:       cfg.Docker.Image,
			Timeout:     timeout,
			CPULimit:    cfg.Docker.CPULimit,
			MemoryLimit: cfg.Docker.MemoryLimitMB << 20,
		}
	}
	return &isolate.ProcessExecutor{Timeout: timeout}
}
