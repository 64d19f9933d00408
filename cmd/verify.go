package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/airframesio/split-verify/cmd/sources"
	"github.com/airframesio/split-verify/cmd/verifier"
)

// runVerify loads both inputs, compares them and writes the report.
// stdout receives the report unless config.OutputFile is set.
func runVerify(ctx context.Context, config *Config, logger *slog.Logger, stdout io.Writer) (verifier.Outcome, error) {
	logger.Info(fmt.Sprintf("🔍 Split Verify v%s", Version))
	printVerifyConfig(config, logger)

	opener := sources.NewOpener(config.S3, logger)

	orig, err := loadDataset(ctx, opener, config.OrigPath, logger)
	if err != nil {
		return verifier.OutcomeClean, fmt.Errorf("failed to load original CSV: %w", err)
	}
	updated, err := loadDataset(ctx, opener, config.NewPath, logger)
	if err != nil {
		return verifier.OutcomeClean, fmt.Errorf("failed to load transformed CSV: %w", err)
	}

	logger.Debug("Comparing datasets...")
	summary, diffs, err := verifier.Compare(orig, updated, config.Options())
	if err != nil {
		return verifier.OutcomeClean, fmt.Errorf("comparison failed: %w", err)
	}

	outcome := verifier.Evaluate(summary, diffs)
	if err := writeReport(config, stdout, &Report{Summary: summary, Diffs: diffs, Outcome: outcome}); err != nil {
		return verifier.OutcomeClean, err
	}

	switch outcome {
	case verifier.OutcomeClean:
		logger.Info("✅ " + outcome.Message())
	default:
		logger.Warn("⚠️  " + outcome.Message())
	}
	return outcome, nil
}

// loadDataset opens location and reads it as a CSV dataset.
func loadDataset(ctx context.Context, opener *sources.Opener, location string, logger *slog.Logger) (*verifier.Dataset, error) {
	rc, err := opener.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	ds, err := verifier.Load(location, rc)
	if err != nil {
		return nil, err
	}

	logger.Info(fmt.Sprintf("Loaded %s: %d rows, %d columns", location, len(ds.Rows), len(ds.Header)))
	return ds, nil
}

// printVerifyConfig logs the resolved configuration at debug level
func printVerifyConfig(config *Config, logger *slog.Logger) {
	logger.Debug("📋 Configuration:")
	logger.Debug(fmt.Sprintf("    Original:          %s", config.OrigPath))
	logger.Debug(fmt.Sprintf("    Transformed:       %s", config.NewPath))
	logger.Debug(fmt.Sprintf("    Max Diffs:         %d", config.MaxDiffs))
	logger.Debug(fmt.Sprintf("    ID Column:         %s", config.IDColumn))
	logger.Debug(fmt.Sprintf("    Blob Column:       %s", config.BlobColumn))
	logger.Debug(fmt.Sprintf("    Split Prefix:      %s", config.SplitPrefix))
	logger.Debug(fmt.Sprintf("    Expected Keys:     %v", config.ExpectedKeys))
	logger.Debug(fmt.Sprintf("    Output Format:     %s", config.OutputFormat))
	if config.OutputFile != "" {
		logger.Debug(fmt.Sprintf("    Output File:       %s", config.OutputFile))
	} else {
		logger.Debug("    Output File:       stdout")
	}
	if sources.IsS3(config.OrigPath) || sources.IsS3(config.NewPath) {
		logger.Debug(fmt.Sprintf("    S3 Endpoint:       %s", config.S3.Endpoint))
		logger.Debug(fmt.Sprintf("    S3 Region:         %s", config.S3.Region))
		logger.Debug(fmt.Sprintf("    S3 Access Key:     %s", maskString(config.S3.AccessKey)))
	}
}

// maskString hides all but the first two characters of a secret
func maskString(s string) string {
	if len(s) <= 2 {
		return "***"
	}
	return s[:2] + "***"
}

// openReportWriter returns where the report goes and a cleanup function.
func openReportWriter(config *Config, stdout io.Writer) (io.Writer, func() error, error) {
	if config.OutputFile == "" {
		return stdout, func() error { return nil }, nil
	}
	file, err := os.Create(config.OutputFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return file, file.Close, nil
}
