package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/maidkit/ccmaid/internal/agent/claudecli"
	"github.com/maidkit/ccmaid/internal/backup"
	"github.com/maidkit/ccmaid/internal/config"
	"github.com/maidkit/ccmaid/internal/errors"
	"github.com/maidkit/ccmaid/internal/logging"
	"github.com/maidkit/ccmaid/internal/manifest"
	"github.com/maidkit/ccmaid/internal/policy"
	"github.com/maidkit/ccmaid/internal/safepath"
	"github.com/maidkit/ccmaid/internal/validate"
	"github.com/maidkit/ccmaid/internal/workflow"
)

// app bundles everything a subcommand needs to run a phase loop.
type app struct {
	cfg    *config.Config
	log    *logging.Logger
	client claudecli.Client
	runner *validate.Runner
	loop   *workflow.Loop
	guard  *safepath.Guard
	root   string
}

// newApp loads config, builds the logger, the agent client, and the loop.
// The returned cleanup closes the log file and must run before exit.
func newApp(cmd *cobra.Command) (*app, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	log, err := buildLogger(cmd, cfg)
	if err != nil {
		return nil, nil, err
	}

	root, err := os.Getwd()
	if err != nil {
		log.Close()
		return nil, nil, err
	}
	guard, err := safepath.NewGuard(root)
	if err != nil {
		log.Close()
		return nil, nil, err
	}

	bypass, _ := cmd.Flags().GetBool("bypass-permissions")
	a := &app{
		cfg:    cfg,
		log:    log,
		client: buildClient(cfg, bypass, log),
		runner: validate.NewRunner(root, log),
		guard:  guard,
		root:   root,
	}
	a.runner.MaidCommand = cfg.Maid.Command
	a.loop = workflow.NewLoop(guard, backup.New(log), nil, nil, log)
	return a, func() { log.Close() }, nil
}

func buildLogger(cmd *cobra.Command, cfg *config.Config) (*logging.Logger, error) {
	level := cfg.CLI.LogLevel
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		level = "debug"
	}
	if q, _ := cmd.Flags().GetBool("quiet"); q {
		level = "error"
	}
	if explicit, _ := cmd.Flags().GetString("log-level"); explicit != "" {
		level = explicit
	}
	logFile, _ := cmd.Flags().GetString("log-file")
	return logging.NewLogger(logFile, level)
}

func buildClient(cfg *config.Config, bypass bool, log *logging.Logger) claudecli.Client {
	if cfg.CLI.MockMode {
		return claudecli.NewMockClient()
	}
	return claudecli.NewCLIClient(claudecli.Options{
		Command:           cfg.Claude.Command,
		Model:             cfg.Claude.Model,
		Timeout:           cfg.Claude.Timeout(),
		BypassPermissions: bypass || cfg.Claude.BypassPermissions,
	}, log)
}

// addPhaseFlags registers the flags shared by every loop-running subcommand.
func addPhaseFlags(cmd *cobra.Command) {
	cmd.Flags().Int("max-iterations", 0, "maximum loop iterations (0 uses the config default)")
	cmd.Flags().Bool("no-retry", false, "stop after the first failed iteration (default)")
	cmd.Flags().Bool("auto-retry", false, "retry failed iterations until the budget runs out")
	cmd.Flags().Bool("confirm-retry", false, "ask before each retry")
	cmd.Flags().Bool("fresh-start", false, "restore pristine file state before each retry")
	cmd.Flags().String("instructions", "", "additional instructions passed to the agent")
	cmd.Flags().Bool("bypass-permissions", false, "pass --permission-mode bypassPermissions to the agent CLI")
}

// retryModeFrom resolves the retry flags, falling back to the configured
// default (cli.retry_mode, "disabled" out of the box) when none is passed.
func retryModeFrom(cmd *cobra.Command, configured string) (policy.RetryMode, error) {
	noRetry, _ := cmd.Flags().GetBool("no-retry")
	autoRetry, _ := cmd.Flags().GetBool("auto-retry")
	confirmRetry, _ := cmd.Flags().GetBool("confirm-retry")
	set := 0
	for _, b := range []bool{noRetry, autoRetry, confirmRetry} {
		if b {
			set++
		}
	}
	switch {
	case set > 1:
		return "", errors.New("--no-retry, --auto-retry and --confirm-retry are mutually exclusive")
	case noRetry:
		return policy.RetryDisabled, nil
	case autoRetry:
		return policy.RetryAuto, nil
	case confirmRetry:
		return policy.RetryConfirm, nil
	default:
		return policy.ParseRetryMode(configured)
	}
}

func contextModeFrom(cmd *cobra.Command) policy.ErrorContextMode {
	if fresh, _ := cmd.Flags().GetBool("fresh-start"); fresh {
		return policy.ContextFreshStart
	}
	return policy.ContextIncremental
}

func maxIterationsFrom(cmd *cobra.Command, configDefault int) int {
	if n, _ := cmd.Flags().GetInt("max-iterations"); n > 0 {
		return n
	}
	return configDefault
}

// behavioralValidator gates on the manifest's validation command alone.
func (a *app) behavioralValidator() workflow.Validator {
	return workflow.ValidatorFunc(func(ctx context.Context, manifestPath string) validate.Result {
		return a.runner.RunBehavioralTests(ctx, manifestPath)
	})
}

// fullValidator gates on the behavioral tests and then manifest compliance;
// both must pass.
func (a *app) fullValidator() workflow.Validator {
	return workflow.ValidatorFunc(func(ctx context.Context, manifestPath string) validate.Result {
		tests := a.runner.RunBehavioralTests(ctx, manifestPath)
		if !tests.Success {
			return tests
		}
		return a.runner.ValidateManifest(ctx, manifestPath, validate.ModeFull, a.cfg.Maid.UseManifestChain)
	})
}

// planValidator gates planning output: the manifest must parse, its file
// categorization must hold, and it must pass structural validation in
// behavioral mode. The implementation does not exist at planning time, so
// the gate only demands that the tests use the declared artifacts.
func (a *app) planValidator() workflow.Validator {
	return workflow.ValidatorFunc(func(ctx context.Context, manifestPath string) validate.Result {
		m, err := manifest.Load(manifestPath)
		if err != nil {
			return validate.Result{Stderr: err.Error(), Errors: []string{err.Error()}}
		}
		if _, err := m.Check(a.root); err != nil {
			return validate.Result{Stderr: err.Error(), Errors: []string{err.Error()}}
		}
		return a.runner.ValidateManifest(ctx, manifestPath, validate.ModeBehavioral, a.cfg.Maid.UseManifestChain)
	})
}

// reportFailure prints the failure with a category-appropriate suggestion
// and returns a silent error carrying exit status 1.
func reportFailure(message string, err error) error {
	details := ""
	suggestion := "Try running with --verbose to see detailed logs"
	if err != nil {
		we := errors.Categorize(err)
		details = we.Message
		if we.Suggestion != "" {
			suggestion = we.Suggestion
		}
	}
	printError(message, details, suggestion)
	return errExit
}

// errExit signals a failed run that has already been reported to the user.
var errExit = errors.New("")

// manifestArg validates the positional manifest path.
func manifestArg(args []string) (string, error) {
	path := args[0]
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", errors.Wrap(errors.CategoryFilesystem,
			"manifest not found: "+path, errors.ErrManifestNotFound)
	}
	return path, nil
}
