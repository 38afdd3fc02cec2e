package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maidkit/ccmaid/internal/agent"
	"github.com/maidkit/ccmaid/internal/manifest"
	"github.com/maidkit/ccmaid/internal/workflow"
)

var refineCmd = &cobra.Command{
	Use:   "refine <manifest>",
	Short: "Improve a manifest and its behavioral tests toward a goal",
	Args:  cobra.ExactArgs(1),
	RunE:  runRefine,
}

func init() {
	rootCmd.AddCommand(refineCmd)
	addPhaseFlags(refineCmd)
	refineCmd.Flags().String("goal", "", "what to improve about the plan (required)")
	_ = refineCmd.MarkFlagRequired("goal")
}

func runRefine(cmd *cobra.Command, args []string) error {
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
	goal, _ := cmd.Flags().GetString("goal")
	instructions, _ := cmd.Flags().GetString("instructions")

	// Refinement rewrites the plan itself, so the manifest and its tests are
	// what gets backed up.
	planFiles := append([]string{manifestPath}, testFilesIn(m)...)

	result := a.loop.Run(cmd.Context(), workflow.Spec{
		Phase:         "refinement",
		ManifestPath:  manifestPath,
		Instructions:  instructions,
		Producer:      agent.NewRefiner(a.client, goal, a.root, a.log),
		Validator:     a.planValidator(),
		MaxIterations: maxIterationsFrom(cmd, a.cfg.Iterations.MaxRefinement),
		RetryMode:     retryMode,
		ContextMode:   contextModeFrom(cmd),
		BackupFiles:   planFiles,
	})
	if !result.Success {
		return reportFailure(
			fmt.Sprintf("Refinement failed after %d iteration(s)", result.Iterations),
			result.Err)
	}

	printSuccess(
		fmt.Sprintf("Refinement complete in %d iteration(s)", result.Iterations),
		map[string]string{"Files modified": strings.Join(result.FilesModified, ", ")},
		"Files modified")
	printNotes("Improvements", result.Notes)
	return nil
}

func testFilesIn(m *manifest.Manifest) []string {
	var paths []string
	for _, f := range m.ReadonlyFiles {
		if strings.Contains(f, "test_") {
			paths = append(paths, f)
		}
	}
	return paths
}
