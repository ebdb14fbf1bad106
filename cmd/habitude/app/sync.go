package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/obriencj/koji-habitude-go/pkg/cli/render"
	"github.com/obriencj/koji-habitude-go/pkg/metrics"
	"github.com/obriencj/koji-habitude-go/pkg/theme"
	"github.com/obriencj/koji-habitude-go/pkg/workflow"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync [paths...]",
		Short: "Converge the hub toward the declared state, applying changes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflow(cmd, workflow.ModeSync, args)
		},
	}
}

func newCompareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare [paths...]",
		Short: "Report what sync would change, without applying anything",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflow(cmd, workflow.ModeCompare, args)
		},
	}
}

// diff is an alias for compare per SPEC_FULL.md's folded original
// subcommand set; the underlying semantics are identical.
func newDiffCmd() *cobra.Command {
	c := newCompareCmd()
	c.Use = "diff [paths...]"
	c.Short = "Alias for compare"
	return c
}

func runWorkflow(cmd *cobra.Command, mode workflow.Mode, dataPaths []string) error {
	sf := readSharedFlags()

	var reg *metrics.Registry
	if sf.metricsAddr != "" {
		reg = metrics.New(prometheus.DefaultRegisterer)
		go serveMetrics(sf.metricsAddr)
	}

	cfg := buildWorkflowConfig(mode, sf, dataPaths, reg)
	wf := workflow.New(cfg)

	if err := wf.Run(cmd.Context()); err != nil {
		return err
	}

	th := theme.Select()
	if err := render.ChangeSummary(cmd.OutOrStdout(), wf.Processor().Reports(), th, sf.showUnchanged); err != nil {
		return err
	}
	return render.Summary(cmd.OutOrStdout(), wf.Processor().Summarize())
}
