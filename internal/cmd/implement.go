package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maidkit/ccmaid/internal/agent"
	"github.com/maidkit/ccmaid/internal/manifest"
	"github.com/maidkit/ccmaid/internal/workflow"
)

var implementCmd = &cobra.Command{
	Use:   "implement <manifest>",
	Short: "Generate code until the manifest's behavioral tests pass",
	Args:  cobra.ExactArgs(1),
	RunE:  runImplement,
}

func init() {
	rootCmd.AddCommand(implementCmd)
	addPhaseFlags(implementCmd)
}

func runImplement(cmd *cobra.Command, args []string) error {
	a, cleanup, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	manifestPath, err := manifestArg(args)
	if err != nil {
		printError(err.Error(), "",
			`Make sure the manifest exists. Try running: ccmaid plan "<your goal>" first`)
		return errExit
	}

	spec, err := a.implementationSpec(cmd, manifestPath)
	if err != nil {
		return err
	}

	result := a.loop.Run(cmd.Context(), spec)
	if !result.Success {
		return reportFailure(
			fmt.Sprintf("Implementation failed after %d iteration(s)", result.Iterations),
			result.Err)
	}

	printSuccess(
		fmt.Sprintf("Implementation complete in %d iteration(s)", result.Iterations),
		map[string]string{"Files modified": strings.Join(result.FilesModified, ", ")},
		"Files modified")
	return nil
}

// implementationSpec builds the implementation loop spec shared by implement
// and run. The loop starts with a red-phase test run and backs up the
// manifest's modifiable files so retries can restore pristine state.
func (a *app) implementationSpec(cmd *cobra.Command, manifestPath string) (workflow.Spec, error) {
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
		Phase:         "implementation",
		ManifestPath:  manifestPath,
		Instructions:  instructions,
		Producer:      agent.NewDeveloper(a.client, a.root, a.log),
		Validator:     a.fullValidator(),
		MaxIterations: maxIterationsFrom(cmd, a.cfg.Iterations.MaxImplementation),
		RetryMode:     retryMode,
		ContextMode:   contextModeFrom(cmd),
		BackupFiles:   m.ModifiableFiles(),
		RedPhase:      true,
	}, nil
}
