package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maidkit/ccmaid/internal/agent"
	"github.com/maidkit/ccmaid/internal/manifest"
	"github.com/maidkit/ccmaid/internal/workflow"
)

var planCmd = &cobra.Command{
	Use:   "plan <goal>",
	Short: "Create a task manifest and behavioral tests from a goal",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
	addPhaseFlags(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	a, cleanup, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	goal := args[0]
	spec, err := a.planningSpec(cmd, goal)
	if err != nil {
		return err
	}

	result := a.loop.Run(cmd.Context(), spec)
	if !result.Success {
		return reportFailure(
			fmt.Sprintf("Planning failed after %d iteration(s)", result.Iterations),
			result.Err)
	}

	printSuccess(
		fmt.Sprintf("Planning complete in %d iteration(s)", result.Iterations),
		map[string]string{
			"Manifest": planManifestPath(result),
			"Tests":    strings.Join(testPathsOf(result), ", "),
		},
		"Manifest", "Tests")
	return nil
}

// planningSpec builds the planning loop spec shared by plan and run.
func (a *app) planningSpec(cmd *cobra.Command, goal string) (workflow.Spec, error) {
	retryMode, err := retryModeFrom(cmd, a.cfg.CLI.RetryMode)
	if err != nil {
		return workflow.Spec{}, err
	}
	instructions, _ := cmd.Flags().GetString("instructions")

	manifestDir := a.cfg.Directories.ManifestDir
	taskNumber := manifest.NextTaskNumber(manifestDir)
	planner := agent.NewPlanner(a.client, goal, manifestDir, taskNumber, a.log)

	return workflow.Spec{
		Phase:         "planning",
		ManifestPath:  filepath.Join(manifestDir, manifest.TaskFileName(taskNumber, goal)),
		Instructions:  instructions,
		Producer:      planner,
		Validator:     a.planValidator(),
		MaxIterations: maxIterationsFrom(cmd, a.cfg.Iterations.MaxPlanning),
		RetryMode:     retryMode,
		ContextMode:   contextModeFrom(cmd),
	}, nil
}

func planManifestPath(r workflow.Result) string {
	for _, f := range r.FilesModified {
		if strings.HasSuffix(f, ".manifest.json") {
			return f
		}
	}
	return ""
}

func testPathsOf(r workflow.Result) []string {
	var paths []string
	for _, f := range r.FilesModified {
		if !strings.HasSuffix(f, ".manifest.json") {
			paths = append(paths, f)
		}
	}
	return paths
}
