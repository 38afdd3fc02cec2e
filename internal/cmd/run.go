package cmd

import (
	"github.com/spf13/cobra"

	"github.com/maidkit/ccmaid/internal/workflow"
)

var runCmd = &cobra.Command{
	Use:   "run <goal>",
	Short: "Run the full workflow: plan, implement, refactor",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addPhaseFlags(runCmd)
	runCmd.Flags().Bool("skip-refactor", false, "stop after the implementation phase")
}

func runRun(cmd *cobra.Command, args []string) error {
	a, cleanup, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	goal := args[0]
	// The spec builders share the per-phase flag handling, so flag problems
	// surface before the first phase starts.
	if _, err := retryModeFrom(cmd, a.cfg.CLI.RetryMode); err != nil {
		return err
	}

	driver := workflow.NewDriver(a.loop, a.log)
	driver.PlanningSpec = func() workflow.Spec {
		spec, _ := a.planningSpec(cmd, goal)
		spec.MaxIterations = maxIterationsFrom(cmd, a.cfg.Iterations.MaxPlanning)
		return spec
	}
	driver.ImplementationSpec = func(manifestPath string) workflow.Spec {
		spec, err := a.implementationSpec(cmd, manifestPath)
		if err != nil {
			// An unreadable manifest fails the phase through an empty spec;
			// the loop reports the producer error.
			a.log.Error("building implementation spec", "error", err)
		}
		spec.MaxIterations = maxIterationsFrom(cmd, a.cfg.Iterations.MaxImplementation)
		return spec
	}
	if skip, _ := cmd.Flags().GetBool("skip-refactor"); !skip {
		driver.RefactoringSpec = func(manifestPath string) workflow.Spec {
			spec, err := a.refactoringSpec(cmd, manifestPath)
			if err != nil {
				a.log.Error("building refactoring spec", "error", err)
			}
			spec.MaxIterations = maxIterationsFrom(cmd, a.cfg.Iterations.MaxRefactoring)
			return spec
		}
	}

	result := driver.Run(cmd.Context())
	if !result.Success {
		return reportFailure(result.Message, nil)
	}

	printSuccess(result.Message,
		map[string]string{"Manifest": result.ManifestPath},
		"Manifest")
	return nil
}
