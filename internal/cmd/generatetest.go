package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maidkit/ccmaid/internal/agent"
	"github.com/maidkit/ccmaid/internal/workflow"
)

var generateTestCmd = &cobra.Command{
	Use:   "generate-test <manifest>",
	Short: "Generate behavioral tests for an existing implementation",
	Long: `Reverse workflow: the implementation already exists and the manifest
describes it; generate-test writes behavioral tests that exercise every
declared artifact, replacing stub test files.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerateTest,
}

func init() {
	rootCmd.AddCommand(generateTestCmd)
	addPhaseFlags(generateTestCmd)
}

func runGenerateTest(cmd *cobra.Command, args []string) error {
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
	instructions, _ := cmd.Flags().GetString("instructions")

	result := a.loop.Run(cmd.Context(), workflow.Spec{
		Phase:         "test generation",
		ManifestPath:  manifestPath,
		Instructions:  instructions,
		Producer:      agent.NewTestGenerator(a.client, a.root, a.log),
		Validator:     a.behavioralValidator(),
		MaxIterations: maxIterationsFrom(cmd, a.cfg.Iterations.MaxRefinement),
		RetryMode:     retryMode,
		ContextMode:   contextModeFrom(cmd),
	})
	if !result.Success {
		return reportFailure(
			fmt.Sprintf("Test generation failed after %d iteration(s)", result.Iterations),
			result.Err)
	}

	printSuccess(
		fmt.Sprintf("Test generation complete in %d iteration(s)", result.Iterations),
		map[string]string{"Tests": strings.Join(result.FilesModified, ", ")},
		"Tests")
	return nil
}
