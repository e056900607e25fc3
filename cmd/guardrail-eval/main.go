// Command guardrail-eval runs a guardrail rule set against a corpus of
// labeled threat prompts and writes a markdown effectiveness report.
// With -job it first downloads the scan report archive the corpus came
// from.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/modelrelay/modelrelay/internal/guardrail"
	"github.com/modelrelay/modelrelay/internal/recon"
)

func main() {
	promptsPath := flag.String("prompts", "", "path to threat prompts JSON file (required)")
	rulesPath := flag.String("rules", "", "path to rules JSON file (built-in rules when empty)")
	reportPath := flag.String("report", "guardrail_report.md", "output path for the markdown report")
	resultsPath := flag.String("results", "", "optional output path for raw results JSON")
	jobID := flag.String("job", "", "scan job ID to download the report archive for")
	reconURL := flag.String("recon-url", os.Getenv("MODELRELAY_RECON__BASE_URL"), "scan service base URL")
	reconToken := flag.String("recon-token", os.Getenv("MODELRELAY_RECON__API_TOKEN"), "scan service API token")
	format := flag.String("format", "all", "report archive format: all, csv, or json")
	outputDir := flag.String("output-dir", ".", "directory for downloaded report archives")
	flag.Parse()

	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *promptsPath, *rulesPath, *reportPath, *resultsPath,
		*jobID, *reconURL, *reconToken, *format, *outputDir); err != nil {
		logger.Error("evaluation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, promptsPath, rulesPath, reportPath, resultsPath,
	jobID, reconURL, reconToken, format, outputDir string) error {

	if jobID != "" {
		if reconURL == "" || reconToken == "" {
			return fmt.Errorf("-job requires -recon-url and -recon-token")
		}
		client := recon.NewClient(reconURL, reconToken)

		status, err := client.GetJobStatus(ctx, jobID)
		if err != nil {
			return fmt.Errorf("fetch job status: %w", err)
		}
		logger.Info("scan job",
			slog.String("name", status.Name),
			slog.String("model", status.ModelName),
			slog.String("status", status.Status),
			slog.Int("threats", status.TotalThreats),
			slog.Int("goals_achieved", status.TotalGoalsAchieved),
		)
		if !status.Successful() {
			logger.Warn("scan found no threats, nothing to evaluate against")
		}

		path, err := client.DownloadReport(ctx, jobID, format, outputDir)
		if err != nil {
			return fmt.Errorf("download report: %w", err)
		}
		logger.Info("report archive downloaded", slog.String("path", path))
	}

	if promptsPath == "" {
		return fmt.Errorf("-prompts is required")
	}

	prompts, err := loadPrompts(promptsPath)
	if err != nil {
		return err
	}
	logger.Info("loaded threat prompts", slog.Int("count", len(prompts)))

	rules := guardrail.DefaultRules()
	if rulesPath != "" {
		if rules, err = loadRules(rulesPath); err != nil {
			return err
		}
	}

	screener, err := guardrail.NewScreener(rules)
	if err != nil {
		return fmt.Errorf("compile rules: %w", err)
	}

	results, err := guardrail.Evaluate(ctx, screener, prompts, logger)
	if err != nil {
		return err
	}

	f, err := os.Create(reportPath)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()
	if err := guardrail.WriteReport(f, results); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	logger.Info("report written",
		slog.String("path", reportPath),
		slog.String("block_rate", fmt.Sprintf("%.2f%%", results.BlockRate())),
	)

	if resultsPath != "" {
		raw, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal results: %w", err)
		}
		if err := os.WriteFile(resultsPath, raw, 0o644); err != nil {
			return fmt.Errorf("write results: %w", err)
		}
		logger.Info("raw results written", slog.String("path", resultsPath))
	}
	return nil
}

func loadPrompts(path string) ([]guardrail.ThreatPrompt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts: %w", err)
	}
	var prompts []guardrail.ThreatPrompt
	if err := json.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}
	if len(prompts) == 0 {
		return nil, fmt.Errorf("prompts file %s is empty", path)
	}
	return prompts, nil
}

func loadRules(path string) ([]guardrail.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	var rules []guardrail.Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("rules file %s is empty", path)
	}
	return rules, nil
}
