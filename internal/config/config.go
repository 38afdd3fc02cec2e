// Package config loads ccmaid settings from cascading TOML files:
// ~/.ccmaid.toml first, then ./.ccmaid.toml on top, with CLI flags
// overriding both.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/maidkit/ccmaid/internal/policy"
)

const configFileName = ".ccmaid.toml"

// Config is the complete ccmaid configuration.
type Config struct {
	CLI         CLIConfig         `mapstructure:"cli"`
	Claude      ClaudeConfig      `mapstructure:"claude"`
	Iterations  IterationsConfig  `mapstructure:"iterations"`
	Directories DirectoriesConfig `mapstructure:"directories"`
	Maid        MaidConfig        `mapstructure:"maid"`
}

// CLIConfig controls the command-line surface.
type CLIConfig struct {
	// LogLevel is one of debug, info, warn, error
	LogLevel string `mapstructure:"log_level"`
	// RetryMode is the default retry behavior when no retry flag is passed:
	// disabled, auto, or confirm
	RetryMode string `mapstructure:"retry_mode"`
	// MockMode answers every generation with a canned response instead of
	// spawning the agent CLI
	MockMode bool `mapstructure:"mock_mode"`
}

// ClaudeConfig controls the agent CLI subprocess.
type ClaudeConfig struct {
	// Command is the agent binary to spawn
	Command string `mapstructure:"command"`
	// Model passed via --model; empty uses the CLI's default
	Model string `mapstructure:"model"`
	// TimeoutSeconds bounds one generation call
	TimeoutSeconds int `mapstructure:"timeout"`
	// BypassPermissions passes --permission-mode bypassPermissions
	BypassPermissions bool `mapstructure:"bypass_permissions"`
}

// IterationsConfig bounds each phase loop.
type IterationsConfig struct {
	MaxPlanning       int `mapstructure:"max_planning_iterations"`
	MaxImplementation int `mapstructure:"max_implementation_iterations"`
	MaxRefinement     int `mapstructure:"max_refinement_iterations"`
	MaxRefactoring    int `mapstructure:"max_refactoring_iterations"`
}

// DirectoriesConfig names the working directories.
type DirectoriesConfig struct {
	ManifestDir string `mapstructure:"manifest_dir"`
	TestDir     string `mapstructure:"test_dir"`
}

// MaidConfig controls the manifest validation tool.
type MaidConfig struct {
	// Command is the validator binary to spawn
	Command string `mapstructure:"command"`
	// UseManifestChain passes --use-manifest-chain to manifest validation
	UseManifestChain bool `mapstructure:"use_manifest_chain"`
}

// Timeout returns the agent call timeout as a duration.
func (c *ClaudeConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		CLI: CLIConfig{
			LogLevel:  "info",
			RetryMode: policy.RetryDisabled.String(),
			MockMode:  false,
		},
		Claude: ClaudeConfig{
			Command:           "claude",
			Model:             "claude-sonnet-4-5-20250929",
			TimeoutSeconds:    300,
			BypassPermissions: false,
		},
		Iterations: IterationsConfig{
			MaxPlanning:       10,
			MaxImplementation: 20,
			MaxRefinement:     5,
			MaxRefactoring:    10,
		},
		Directories: DirectoriesConfig{
			ManifestDir: "manifests",
			TestDir:     "tests",
		},
		Maid: MaidConfig{
			Command:          "maid",
			UseManifestChain: true,
		},
	}
}

// SetDefaults registers all default values with viper. Must be called before
// Load so missing keys resolve to defaults.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("cli.log_level", defaults.CLI.LogLevel)
	viper.SetDefault("cli.retry_mode", defaults.CLI.RetryMode)
	viper.SetDefault("cli.mock_mode", defaults.CLI.MockMode)

	viper.SetDefault("claude.command", defaults.Claude.Command)
	viper.SetDefault("claude.model", defaults.Claude.Model)
	viper.SetDefault("claude.timeout", defaults.Claude.TimeoutSeconds)
	viper.SetDefault("claude.bypass_permissions", defaults.Claude.BypassPermissions)

	viper.SetDefault("iterations.max_planning_iterations", defaults.Iterations.MaxPlanning)
	viper.SetDefault("iterations.max_implementation_iterations", defaults.Iterations.MaxImplementation)
	viper.SetDefault("iterations.max_refinement_iterations", defaults.Iterations.MaxRefinement)
	viper.SetDefault("iterations.max_refactoring_iterations", defaults.Iterations.MaxRefactoring)

	viper.SetDefault("directories.manifest_dir", defaults.Directories.ManifestDir)
	viper.SetDefault("directories.test_dir", defaults.Directories.TestDir)

	viper.SetDefault("maid.command", defaults.Maid.Command)
	viper.SetDefault("maid.use_manifest_chain", defaults.Maid.UseManifestChain)
}

// ReadFiles merges the config file cascade into viper: the user-level file
// first, then the project-level file on top. Missing files are ignored;
// unreadable or malformed files are ignored too so a broken config never
// blocks a run.
func ReadFiles() {
	viper.SetConfigType("toml")

	for _, path := range configPaths() {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		_ = viper.MergeConfig(f)
		f.Close()
	}
}

func configPaths() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, configFileName))
	}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, configFileName))
	}
	return paths
}

// Load reads the merged configuration out of viper and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

// ValidationError is a single invalid config value.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is every problem found in one pass.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the accepted log_level values.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.CLI.LogLevel)) {
		errs = append(errs, ValidationError{
			Field:   "cli.log_level",
			Value:   c.CLI.LogLevel,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if _, err := policy.ParseRetryMode(c.CLI.RetryMode); err != nil {
		errs = append(errs, ValidationError{
			Field:   "cli.retry_mode",
			Value:   c.CLI.RetryMode,
			Message: "must be one of: disabled, auto, confirm",
		})
	}

	if c.Claude.Command == "" {
		errs = append(errs, ValidationError{
			Field:   "claude.command",
			Value:   c.Claude.Command,
			Message: "must not be empty",
		})
	}
	if c.Claude.TimeoutSeconds <= 0 {
		errs = append(errs, ValidationError{
			Field:   "claude.timeout",
			Value:   c.Claude.TimeoutSeconds,
			Message: "must be positive",
		})
	}

	for _, bound := range []struct {
		field string
		value int
	}{
		{"iterations.max_planning_iterations", c.Iterations.MaxPlanning},
		{"iterations.max_implementation_iterations", c.Iterations.MaxImplementation},
		{"iterations.max_refinement_iterations", c.Iterations.MaxRefinement},
		{"iterations.max_refactoring_iterations", c.Iterations.MaxRefactoring},
	} {
		if bound.value < 1 {
			errs = append(errs, ValidationError{
				Field:   bound.field,
				Value:   bound.value,
				Message: "must be at least 1",
			})
		}
	}

	if c.Directories.ManifestDir == "" {
		errs = append(errs, ValidationError{
			Field:   "directories.manifest_dir",
			Value:   c.Directories.ManifestDir,
			Message: "must not be empty",
		})
	}
	if c.Maid.Command == "" {
		errs = append(errs, ValidationError{
			Field:   "maid.command",
			Value:   c.Maid.Command,
			Message: "must not be empty",
		})
	}

	return errs
}
