package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dao-governance-scorer/internal/governance"
	"dao-governance-scorer/internal/scoring/config"
	"dao-governance-scorer/pkg/digest"
	"dao-governance-scorer/pkg/logger"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type evaluateOptions struct {
	configPath string
	limit      int
	format     string
	logLevel   string
}

// batchFile is the on-disk input: either a document with a proposals list or a bare list.
type batchFile struct {
	Proposals []governance.ProposalSignals `json:"proposals" yaml:"proposals"`
	Limit     int                          `json:"limit" yaml:"limit"`
}

func newEvaluateCmd() *cobra.Command {
	opts := &evaluateOptions{}
	cmd := &cobra.Command{
		Use:   "evaluate <batch.yaml|batch.json>",
		Short: "Score a batch of proposal signals and print the leaderboard and alerts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to the configuration file (defaults are used when empty)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum leaderboard entries (0 uses the file's limit or the whole batch)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text or json")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "Log level written to stderr")
	return cmd
}

func runEvaluate(ctx context.Context, out io.Writer, path string, opts *evaluateOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("unknown format %q", opts.format)
	}

	scoring, thresholds, workers, err := engineSettings(opts.configPath)
	if err != nil {
		return err
	}

	appLogger, err := logger.New(opts.logLevel, "console")
	if err != nil {
		return err
	}
	defer func() { _ = appLogger.Sync() }()

	batch, err := loadBatch(path)
	if err != nil {
		return err
	}

	limit := batch.Limit
	if opts.limit > 0 {
		limit = opts.limit
	}
	if limit <= 0 {
		limit = len(batch.Proposals)
	}

	engine, err := governance.NewEngine(scoring, thresholds, workers, appLogger)
	if err != nil {
		return err
	}
	result, err := engine.EvaluateBatch(ctx, batch.Proposals, limit)
	if err != nil {
		return err
	}

	if opts.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	_, err = io.WriteString(out, renderText(result, time.Now()))
	return err
}

func engineSettings(path string) (governance.ScoringConfig, governance.AlertThresholds, int, error) {
	if path == "" {
		return governance.DefaultScoringConfig(), governance.DefaultAlertThresholds(), 0, nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return governance.ScoringConfig{}, governance.AlertThresholds{}, 0, err
	}
	return cfg.Scoring, cfg.Alerts, cfg.Evaluation.Workers, nil
}

func loadBatch(path string) (*batchFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}

	var batch batchFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if strings.HasPrefix(strings.TrimSpace(string(data)), "[") {
			err = json.Unmarshal(data, &batch.Proposals)
		} else {
			err = json.Unmarshal(data, &batch)
		}
	case ".yaml", ".yml":
		var node yaml.Node
		if err = yaml.Unmarshal(data, &node); err == nil && len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
			err = node.Decode(&batch.Proposals)
		} else if err == nil {
			err = node.Decode(&batch)
		}
	default:
		return nil, fmt.Errorf("unsupported batch file extension %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode batch file: %w", err)
	}
	if len(batch.Proposals) == 0 {
		return nil, fmt.Errorf("%w: batch file has no proposals", governance.ErrInvalidInput)
	}
	return &batch, nil
}

func renderText(result governance.BatchResult, now time.Time) string {
	var b strings.Builder
	b.WriteString(digest.FormatLeaderboard(result.Leaderboard, now))
	b.WriteString("\n")

	for _, score := range result.Leaderboard {
		b.WriteString(digest.FormatScore(score))
		b.WriteString("\n")
	}

	var alerts []governance.Alert
	for _, eval := range result.Evaluations {
		alerts = append(alerts, eval.Alerts...)
	}
	for _, part := range digest.FormatAlerts(alerts, 0) {
		b.WriteString(part)
	}

	if len(result.Omitted) > 0 {
		b.WriteString("\nOmitted:\n")
		for _, o := range result.Omitted {
			id := o.ProposalID
			if id == "" {
				id = fmt.Sprintf("#%d", o.Index)
			}
			b.WriteString(fmt.Sprintf("  %s: %s (%s)\n", id, o.Reason, o.Error))
		}
	}
	return b.String()
}
