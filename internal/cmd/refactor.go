package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maidkit/ccmaid/internal/agent"
	"github.com/maidkit/ccmaid/internal/manifest"
	"github.com/maidkit/ccmaid/internal/workflow"
)

var refactorCmd = &cobra.Command{
	Use:   "refactor <manifest>",
	Short: "Improve code quality while keeping the tests green",
	Args:  cobra.ExactArgs(1),
	RunE:  runRefactor,
}

func init() {
	rootCmd.AddCommand(refactorCmd)
	addPhaseFlags(refactorCmd)
}

func runRefactor(cmd *cobra.Command, args []string) error {
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

	spec, err := a.refactoringSpec(cmd, manifestPath)
	if err != nil {
		return err
	}

	result := a.loop.Run(cmd.Context(), spec)
	if !result.Success {
		return reportFailure(
			fmt.Sprintf("Refactoring failed after %d iteration(s)", result.Iterations),
			result.Err)
	}

	printSuccess(
		fmt.Sprintf("Refactoring complete in %d iteration(s)", result.Iterations),
		map[string]string{"Files modified": strings.Join(result.FilesModified, ", ")},
		"Files modified")
	printNotes("Improvements", result.Notes)
	return nil
}

// refactoringSpec builds the refactoring loop spec shared by refactor and
// run. Refactoring must not break the tests, so failed iterations restore
// the backed-up files by default.
func (a *app) refactoringSpec(cmd *cobra.Command, manifestPath string) (workflow.Spec, error) {
	retryMode, err := retryModeFrom(cmd, a.cfg.CLI.RetryMode)
	if err != nil {
		return workflow.Spec{}, err
	}
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return workflow.Spec{}, err
	}
	instructions, _ := cmd.Flags().GetString("instructions")

	return workflow.Spec{
		Phase:         "refactoring",
		ManifestPath:  manifestPath,
		Instructions:  instructions,
		Producer:      agent.NewRefactorer(a.client, a.root, a.log),
		Validator:     a.fullValidator(),
		MaxIterations: maxIterationsFrom(cmd, a.cfg.Iterations.MaxRefactoring),
		RetryMode:     retryMode,
		ContextMode:   contextModeFrom(cmd),
		BackupFiles:   m.ModifiableFiles(),
	}, nil
}
