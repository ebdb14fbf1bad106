// Package app wires the koji-habitude CLI surface: sync, compare,
// diff, expand, fetch, dump, and the template subcommand group,
// grounded on the teacher's cmd/thv/app/commands.go cobra+viper
// persistent-flag binding.
package app

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/obriencj/koji-habitude-go/pkg/logger"
)

// NewRootCmd builds the root cobra command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "habitude",
		DisableAutoGenTag: true,
		Short:             "Declarative YAML-to-Koji-hub synchronization",
		Long: `koji-habitude converges a Koji build hub toward a declarative YAML
description of its tags, targets, users, groups, hosts, channels, and
related objects, computing the minimal set of hub calls needed.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if viper.GetBool("debug") && os.Getenv("LOGLEVEL") == "" {
				_ = os.Setenv("LOGLEVEL", "debug")
			}
			logger.Initialize()
		},
	}

	rootCmd.PersistentFlags().String("profile", "", "named hub connection profile")
	rootCmd.PersistentFlags().StringSlice("templates", nil, "template directories to load before data paths")
	rootCmd.PersistentFlags().Bool("show-unchanged", false, "include objects with no pending changes in summaries")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("metrics-addr", "", "expose Prometheus metrics on this address (empty disables)")

	for _, name := range []string{"profile", "templates", "show-unchanged", "debug", "metrics-addr"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}

	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newCompareCmd())
	rootCmd.AddCommand(newDiffCmd())
	rootCmd.AddCommand(newExpandCmd())
	rootCmd.AddCommand(newFetchCmd())
	rootCmd.AddCommand(newDumpCmd())
	rootCmd.AddCommand(newTemplateCmd())

	return rootCmd
}
