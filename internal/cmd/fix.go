package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maidkit/ccmaid/internal/agent"
	"github.com/maidkit/ccmaid/internal/manifest"
	"github.com/maidkit/ccmaid/internal/workflow"
)

var fixCmd = &cobra.Command{
	Use:   "fix <manifest>",
	Short: "Repair an implementation that fails validation or tests",
	Args:  cobra.ExactArgs(1),
	RunE:  runFix,
}

func init() {
	rootCmd.AddCommand(fixCmd)
	addPhaseFlags(fixCmd)
}

func runFix(cmd *cobra.Command, args []string) error {
	a, cleanup, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	manifestPath, err := manifestArg(args)
	if err != nil {
		printError(err.Error(), "", "Ensure the manifest file exists and the path is correct")
		return errExit
	}
	retryMode, err := retryModeFrom(cmd, a.cfg.CLI.RetryMode)
	if err != nil {
		return err
	}
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return err
	}
	instructions, _ := cmd.Flags().GetString("instructions")

	result := a.loop.Run(cmd.Context(), workflow.Spec{
		Phase:         "fix",
		ManifestPath:  manifestPath,
		Instructions:  instructions,
		Producer:      agent.NewFixer(a.client, a.root, a.log),
		Validator:     a.fullValidator(),
		MaxIterations: maxIterationsFrom(cmd, a.cfg.Iterations.MaxRefinement),
		RetryMode:     retryMode,
		ContextMode:   contextModeFrom(cmd),
		BackupFiles:   m.ModifiableFiles(),
		RedPhase:      true,
	})
	if !result.Success {
		return reportFailure(
			fmt.Sprintf("Fix failed after %d iteration(s)", result.Iterations),
			result.Err)
	}

	printSuccess(
		fmt.Sprintf("Fix complete in %d iteration(s)", result.Iterations),
		map[string]string{"Files modified": strings.Join(result.FilesModified, ", ")},
		"Files modified")
	return nil
}
