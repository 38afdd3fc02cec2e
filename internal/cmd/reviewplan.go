package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maidkit/ccmaid/internal/agent"
	"github.com/maidkit/ccmaid/internal/manifest"
	"github.com/maidkit/ccmaid/internal/workflow"
)

var reviewPlanCmd = &cobra.Command{
	Use:   "review-plan <manifest>",
	Short: "Audit a manifest and its tests before implementation",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewPlan,
}

func init() {
	rootCmd.AddCommand(reviewPlanCmd)
	addPhaseFlags(reviewPlanCmd)
}

func runReviewPlan(cmd *cobra.Command, args []string) error {
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

	planFiles := append([]string{manifestPath}, testFilesIn(m)...)

	result := a.loop.Run(cmd.Context(), workflow.Spec{
		Phase:         "plan review",
		ManifestPath:  manifestPath,
		Instructions:  instructions,
		Producer:      agent.NewPlanReviewer(a.client, a.root, a.log),
		Validator:     a.planValidator(),
		MaxIterations: maxIterationsFrom(cmd, 1),
		RetryMode:     retryMode,
		ContextMode:   contextModeFrom(cmd),
		BackupFiles:   planFiles,
	})
	if !result.Success {
		return reportFailure(
			fmt.Sprintf("Plan review failed after %d iteration(s)", result.Iterations),
			result.Err)
	}

	printSuccess(
		fmt.Sprintf("Plan review complete in %d iteration(s)", result.Iterations),
		map[string]string{"Files modified": strings.Join(result.FilesModified, ", ")},
		"Files modified")
	printNotes("Findings", result.Notes)
	return nil
}
