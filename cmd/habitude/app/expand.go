package app

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/obriencj/koji-habitude-go/pkg/loader"
	"github.com/obriencj/koji-habitude-go/pkg/namespace"
)

// newExpandCmd loads and expands the given paths without a hub
// session, printing every resolved authored object's key - useful for
// inspecting template expansion in isolation (spec.md section 4.3).
func newExpandCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expand [paths...]",
		Short: "Load and expand YAML without contacting the hub, listing resolved objects",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sf := readSharedFlags()

			templateNS := namespace.New(namespace.RedefinitionError)
			templateNS.OnWarn(logWarn)
			for _, dir := range sf.templates {
				if err := loader.LoadPath(dir, templateNS); err != nil {
					return err
				}
			}
			if err := templateNS.Expand(); err != nil {
				return err
			}

			dataNS := namespace.New(namespace.RedefinitionError)
			dataNS.OnWarn(logWarn)
			dataNS.SeedTemplates(templateNS)
			for _, path := range args {
				if err := loader.LoadPath(path, dataNS); err != nil {
					return err
				}
			}
			if err := dataNS.Expand(); err != nil {
				return err
			}

			keys := make([]string, 0, len(dataNS.Objects()))
			for k := range dataNS.Objects() {
				keys = append(keys, k.String())
			}
			sort.Strings(keys)
			out := cmd.OutOrStdout()
			for _, k := range keys {
				if _, err := out.Write([]byte(k + "\n")); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
