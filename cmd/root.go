package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/airframesio/split-verify/cmd/verifier"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version information - set via ldflags during build
	// Example: go build -ldflags "-X github.com/airframesio/split-verify/cmd.Version=1.2.3"
	Version = "dev"

	cfgFile       string
	configReadErr error
	debug         bool
	logFormat     string
	origPath      string
	newPath       string
	maxDiffs      int
	idColumn      string
	blobColumn    string
	splitPrefix   string
	expectedKeys  []string
	reportFormat  string
	reportFile    string
	s3Endpoint    string
	s3Region      string
	s3AccessKey   string
	s3SecretKey   string

	// exitCode is the outcome of the last successful run
	exitCode int

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true).
			Underline(true)

	logger *slog.Logger
)

// textOnlyHandler is a custom slog handler that outputs human-readable text
// without key=value pairs, suitable for interactive terminal usage
type textOnlyHandler struct {
	opts   slog.HandlerOptions
	writer io.Writer
}

func newTextOnlyHandler(w io.Writer, opts *slog.HandlerOptions) *textOnlyHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &textOnlyHandler{
		opts:   *opts,
		writer: w,
	}
}

func (h *textOnlyHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *textOnlyHandler) Handle(_ context.Context, r slog.Record) error {
	// Format: YYYY-MM-DD HH:MM:SS LEVEL message
	_, err := fmt.Fprintf(h.writer, "%s %s %s\n", r.Time.Format("2006-01-02 15:04:05"), r.Level.String(), r.Message)
	return err
}

func (h *textOnlyHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *textOnlyHandler) WithGroup(_ string) slog.Handler {
	return h
}

// newLogger builds the slog logger for the debug flag and log format.
// Logs go to w, which is stderr in the CLI so the report owns stdout.
func newLogger(isDebug bool, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if isDebug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "logfmt":
		handler = slog.NewTextHandler(w, opts)
	default: // "text" or anything else
		handler = newTextOnlyHandler(w, opts)
	}

	return slog.New(handler)
}

var rootCmd = &cobra.Command{
	Use:     "split-verify",
	Version: Version,
	Short:   "Verify a CSV whose JSON blob column was split into flat columns",
	Long: titleStyle.Render("Split Verify") + `

Compares an original CSV holding a JSON blob column against the transformed CSV
in which that blob was split into one column per key. Checks that no rows were
lost or added, that every other column is unchanged, and that the split columns
reproduce the blob's values.

Exit codes: 0 = clean, 2 = field-level diffs found, 3 = only the ID sets differ,
1 = the inputs could not be compared.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if configReadErr != nil {
			return configReadErr
		}

		config := newConfig(viper.GetViper())
		logger = newLogger(config.Debug, config.LogFormat, os.Stderr)

		logger.Debug("Validating configuration...")
		if err := config.Validate(); err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		outcome, err := runVerify(cmd.Context(), config, logger, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		exitCode = int(outcome)
		return nil
	},
}

// Execute runs the CLI and returns the process exit code. A non-nil error
// means the comparison could not be carried out and the code is 1.
func Execute() (int, error) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exitCode = 0
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return 1, err
	}
	return exitCode, nil
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.split-verify.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, logfmt, json)")

	rootCmd.Flags().StringVar(&origPath, "orig", defaultOrigPath, "original CSV (local path or s3://bucket/key, .gz/.zst/.lz4 accepted)")
	rootCmd.Flags().StringVar(&newPath, "new", defaultNewPath, "transformed CSV (local path or s3://bucket/key, .gz/.zst/.lz4 accepted)")
	rootCmd.Flags().IntVar(&maxDiffs, "max-diffs", verifier.DefaultMaxDiffs, "stop after collecting this many diffs")
	rootCmd.Flags().StringVar(&idColumn, "id-column", verifier.DefaultIDColumn, "unique row identifier column")
	rootCmd.Flags().StringVar(&blobColumn, "blob-column", verifier.DefaultBlobColumn, "JSON blob column in the original CSV")
	rootCmd.Flags().StringVar(&splitPrefix, "split-prefix", verifier.DefaultSplitPrefix, "prefix of the split columns in the transformed CSV")
	rootCmd.Flags().StringSliceVar(&expectedKeys, "expected-keys", verifier.DefaultExpectedKeys, "blob keys expected as split columns")
	rootCmd.Flags().StringVar(&reportFormat, "output-format", "text", "report format: text, json")
	rootCmd.Flags().StringVar(&reportFile, "output-file", "", "report file path (default: stdout)")

	rootCmd.Flags().StringVar(&s3Endpoint, "s3-endpoint", "", "S3-compatible endpoint URL for s3:// inputs")
	rootCmd.Flags().StringVar(&s3Region, "s3-region", "auto", "S3 region")
	rootCmd.Flags().StringVar(&s3AccessKey, "s3-access-key", "", "S3 access key")
	rootCmd.Flags().StringVar(&s3SecretKey, "s3-secret-key", "", "S3 secret key")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))

	_ = viper.BindPFlag("orig", rootCmd.Flags().Lookup("orig"))
	_ = viper.BindPFlag("new", rootCmd.Flags().Lookup("new"))
	_ = viper.BindPFlag("max_diffs", rootCmd.Flags().Lookup("max-diffs"))
	_ = viper.BindPFlag("id_column", rootCmd.Flags().Lookup("id-column"))
	_ = viper.BindPFlag("blob_column", rootCmd.Flags().Lookup("blob-column"))
	_ = viper.BindPFlag("split_prefix", rootCmd.Flags().Lookup("split-prefix"))
	_ = viper.BindPFlag("expected_keys", rootCmd.Flags().Lookup("expected-keys"))
	_ = viper.BindPFlag("output_format", rootCmd.Flags().Lookup("output-format"))
	_ = viper.BindPFlag("output_file", rootCmd.Flags().Lookup("output-file"))
	_ = viper.BindPFlag("s3.endpoint", rootCmd.Flags().Lookup("s3-endpoint"))
	_ = viper.BindPFlag("s3.region", rootCmd.Flags().Lookup("s3-region"))
	_ = viper.BindPFlag("s3.access_key", rootCmd.Flags().Lookup("s3-access-key"))
	_ = viper.BindPFlag("s3.secret_key", rootCmd.Flags().Lookup("s3-secret-key"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".split-verify")
	}

	viper.SetEnvPrefix("SPLITVERIFY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// A missing default config file is fine; an explicit one must load.
	if err := viper.ReadInConfig(); err != nil && cfgFile != "" {
		configReadErr = fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
	}
}
