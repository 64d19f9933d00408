package cmd

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/airframesio/split-verify/cmd/sources"
	"github.com/airframesio/split-verify/cmd/verifier"
	"github.com/spf13/viper"
)

// Static errors for configuration validation
var (
	ErrOrigPathRequired        = errors.New("original CSV path is required")
	ErrNewPathRequired         = errors.New("transformed CSV path is required")
	ErrMaxDiffsInvalid         = errors.New("max diffs must be at least 1")
	ErrIDColumnRequired        = errors.New("id column is required")
	ErrBlobColumnRequired      = errors.New("blob column is required")
	ErrSplitPrefixRequired     = errors.New("split prefix is required")
	ErrSplitPrefixIsBlobColumn = errors.New("split prefix must differ from the blob column")
	ErrExpectedKeysRequired    = errors.New("at least one expected blob key is required")
	ErrExpectedKeyDuplicate    = errors.New("expected blob keys must be unique")
	ErrOutputFormatInvalid     = errors.New("output format must be one of: text, json")
	ErrLogFormatInvalid        = errors.New("log format must be one of: text, logfmt, json")
	ErrS3CredentialsIncomplete = errors.New("S3 access key and secret key must be set together")
	ErrS3RegionInvalid         = errors.New("S3 region contains invalid characters or is too long")
)

const (
	regionAuto      = "auto"
	defaultOrigPath = "thematic_sessions_submissions.csv"
	defaultNewPath  = "new.csv"
)

type Config struct {
	Debug        bool
	LogFormat    string
	OrigPath     string
	NewPath      string
	MaxDiffs     int
	IDColumn     string
	BlobColumn   string
	SplitPrefix  string
	ExpectedKeys []string
	OutputFormat string // text, json
	OutputFile   string // empty = stdout
	S3           sources.S3Config
}

// newConfig reads the resolved configuration from v. Flags, environment
// variables (SPLITVERIFY_*) and the config file have already been merged by viper.
func newConfig(v *viper.Viper) *Config {
	return &Config{
		Debug:        v.GetBool("debug"),
		LogFormat:    v.GetString("log_format"),
		OrigPath:     v.GetString("orig"),
		NewPath:      v.GetString("new"),
		MaxDiffs:     v.GetInt("max_diffs"),
		IDColumn:     v.GetString("id_column"),
		BlobColumn:   v.GetString("blob_column"),
		SplitPrefix:  v.GetString("split_prefix"),
		ExpectedKeys: splitKeys(v.GetStringSlice("expected_keys")),
		OutputFormat: v.GetString("output_format"),
		OutputFile:   v.GetString("output_file"),
		S3: sources.S3Config{
			Endpoint:  v.GetString("s3.endpoint"),
			Region:    v.GetString("s3.region"),
			AccessKey: v.GetString("s3.access_key"),
			SecretKey: v.GetString("s3.secret_key"),
		},
	}
}

// splitKeys flattens comma separated entries, which is how environment
// variables and single-string config values arrive.
func splitKeys(values []string) []string {
	var keys []string
	for _, value := range values {
		for _, key := range strings.Split(value, ",") {
			if key = strings.TrimSpace(key); key != "" {
				keys = append(keys, key)
			}
		}
	}
	return keys
}

// Options converts the configuration into comparison options.
func (c *Config) Options() verifier.Options {
	return verifier.Options{
		MaxDiffs:     c.MaxDiffs,
		IDColumn:     c.IDColumn,
		BlobColumn:   c.BlobColumn,
		SplitPrefix:  c.SplitPrefix,
		ExpectedKeys: c.ExpectedKeys,
	}
}

// isValidRegion validates that an S3 region is reasonable
func isValidRegion(region string) bool {
	if region == "" || len(region) > 50 {
		return false
	}

	// Region should only contain alphanumeric, dash, and underscore
	matched, _ := regexp.MatchString(`^[a-zA-Z0-9_-]+$`, region)
	return matched
}

// isValidOutputFormat validates the report format
func isValidOutputFormat(format string) bool {
	validFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	return validFormats[format]
}

// isValidLogFormat validates the log format
func isValidLogFormat(format string) bool {
	validFormats := map[string]bool{
		"text":   true,
		"logfmt": true,
		"json":   true,
	}
	return validFormats[format]
}

func (c *Config) Validate() error {
	if c.OrigPath == "" {
		return ErrOrigPathRequired
	}
	if c.NewPath == "" {
		return ErrNewPathRequired
	}

	if c.MaxDiffs < 1 {
		return fmt.Errorf("%w, got %d", ErrMaxDiffsInvalid, c.MaxDiffs)
	}

	if c.IDColumn == "" {
		return ErrIDColumnRequired
	}
	if c.BlobColumn == "" {
		return ErrBlobColumnRequired
	}
	if c.SplitPrefix == "" {
		return ErrSplitPrefixRequired
	}
	if c.SplitPrefix == c.BlobColumn {
		return fmt.Errorf("%w: '%s'", ErrSplitPrefixIsBlobColumn, c.SplitPrefix)
	}

	if len(c.ExpectedKeys) == 0 {
		return ErrExpectedKeysRequired
	}
	seen := make(map[string]bool, len(c.ExpectedKeys))
	for _, key := range c.ExpectedKeys {
		if seen[key] {
			return fmt.Errorf("%w: '%s'", ErrExpectedKeyDuplicate, key)
		}
		seen[key] = true
	}

	if !isValidOutputFormat(c.OutputFormat) {
		return fmt.Errorf("%w: '%s'", ErrOutputFormatInvalid, c.OutputFormat)
	}
	if c.LogFormat != "" && !isValidLogFormat(c.LogFormat) {
		return fmt.Errorf("%w: '%s'", ErrLogFormatInvalid, c.LogFormat)
	}

	// S3 settings only matter for s3:// inputs
	if sources.IsS3(c.OrigPath) || sources.IsS3(c.NewPath) {
		if c.S3.Endpoint == "" {
			return sources.ErrS3EndpointRequired
		}
		if (c.S3.AccessKey == "") != (c.S3.SecretKey == "") {
			return ErrS3CredentialsIncomplete
		}
		if c.S3.Region != "" && c.S3.Region != regionAuto && !isValidRegion(c.S3.Region) {
			return fmt.Errorf("%w: %s", ErrS3RegionInvalid, c.S3.Region)
		}
	}

	return nil
}
