package app

import (
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/obriencj/koji-habitude-go/pkg/cli/render"
	"github.com/obriencj/koji-habitude-go/pkg/errors"
	"github.com/obriencj/koji-habitude-go/pkg/key"
	"github.com/obriencj/koji-habitude-go/pkg/loader"
	"github.com/obriencj/koji-habitude-go/pkg/model"
	"github.com/obriencj/koji-habitude-go/pkg/namespace"
	"github.com/obriencj/koji-habitude-go/pkg/processor"
	"github.com/obriencj/koji-habitude-go/pkg/resolver"
	"github.com/obriencj/koji-habitude-go/pkg/solver"
	"github.com/obriencj/koji-habitude-go/pkg/template"
	"github.com/obriencj/koji-habitude-go/pkg/theme"
	"github.com/obriencj/koji-habitude-go/pkg/workflow"
)

// newTemplateCmd folds in the original's cli/template_cmd.py: list,
// show, expand, compare, and apply operating on a template-only
// namespace. compare/apply delegate to the same workflow machinery as
// the top-level subcommands, scoped to one template's invocations.
func newTemplateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Inspect and operate on registered templates",
	}
	cmd.AddCommand(newTemplateListCmd())
	cmd.AddCommand(newTemplateShowCmd())
	cmd.AddCommand(newTemplateExpandCmd())
	cmd.AddCommand(newTemplateCompareCmd())
	cmd.AddCommand(newTemplateApplyCmd())
	return cmd
}

func loadTemplateNamespace(templateDirs []string) (*namespace.Namespace, error) {
	ns := namespace.New(namespace.RedefinitionError)
	ns.OnWarn(logWarn)
	for _, dir := range templateDirs {
		if err := loader.LoadPath(dir, ns); err != nil {
			return nil, err
		}
	}
	if err := ns.Expand(); err != nil {
		return nil, err
	}
	return ns, nil
}

func newTemplateListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every registered template name",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sf := readSharedFlags()
			ns, err := loadTemplateNamespace(sf.templates)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(ns.Templates()))
			for name := range ns.Templates() {
				names = append(names, name)
			}
			sort.Strings(names)
			out := cmd.OutOrStdout()
			for _, n := range names {
				if _, err := out.Write([]byte(n + "\n")); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newTemplateShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [name]",
		Short: "Show a template's parameter schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sf := readSharedFlags()
			ns, err := loadTemplateNamespace(sf.templates)
			if err != nil {
				return err
			}
			tmpl, ok := ns.Templates()[args[0]]
			if !ok {
				return errors.NewValidationError("no such template "+args[0], nil)
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()
			return enc.Encode(map[string]any{
				"name":     tmpl.Name,
				"required": tmpl.Required,
				"defaults": tmpl.Defaults,
				"file":     tmpl.File,
				"line":     tmpl.Line,
			})
		},
	}
}

func newTemplateExpandCmd() *cobra.Command {
	var params map[string]string
	c := &cobra.Command{
		Use:   "expand [name]",
		Short: "Render one template invocation in isolation and print the resulting documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sf := readSharedFlags()
			ns, err := loadTemplateNamespace(sf.templates)
			if err != nil {
				return err
			}
			tmpl, ok := ns.Templates()[args[0]]
			if !ok {
				return errors.NewValidationError("no such template "+args[0], nil)
			}

			inv := template.Invocation{TemplateName: tmpl.Name, Params: map[string]any{}}
			for k, v := range params {
				inv.Params[k] = v
			}

			docs, err := tmpl.Render(inv)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()
			for _, d := range docs {
				if err := enc.Encode(map[string]any{"type": d.Type, "name": d.Name, "fields": d.Fields}); err != nil {
					return err
				}
			}
			return nil
		},
	}
	c.Flags().StringToStringVar(&params, "param", nil, "template parameter as key=value, repeatable")
	return c
}

func newTemplateCompareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare [name] [paths...]",
		Short: "Compare only the objects one template renders",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTemplateScoped(cmd, workflow.ModeCompare, args[0], args[1:])
		},
	}
}

func newTemplateApplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply [name] [paths...]",
		Short: "Apply only the changes for objects one template renders",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTemplateScoped(cmd, workflow.ModeSync, args[0], args[1:])
		},
	}
}

// runTemplateScoped loads+expands dataPaths like a normal workflow but
// restricts the solver's work-key set to objects whose expansion trace
// names templateName, folding the original's "template compare|apply"
// scoping into this module's resolver/solver/processor pipeline.
func runTemplateScoped(cmd *cobra.Command, mode workflow.Mode, templateName string, dataPaths []string) error {
	sf := readSharedFlags()

	templateNS, err := loadTemplateNamespace(sf.templates)
	if err != nil {
		return err
	}

	dataNS := namespace.New(namespace.RedefinitionError)
	dataNS.OnWarn(logWarn)
	dataNS.SeedTemplates(templateNS)
	for _, path := range dataPaths {
		if err := loader.LoadPath(path, dataNS); err != nil {
			return err
		}
	}
	if err := dataNS.Expand(); err != nil {
		return err
	}

	var workKeys []key.Key
	for k, obj := range dataNS.Objects() {
		if renderedBy(obj, templateName) {
			workKeys = append(workKeys, k)
		}
	}
	if len(workKeys) == 0 {
		return errors.NewValidationError("no objects were rendered by template "+templateName, nil)
	}

	res := resolver.New(dataNS)
	solved, err := solver.Solve(res, workKeys)
	if err != nil {
		return err
	}

	transport, err := connectTransport(cmd.Context(), mode, sf)
	if err != nil {
		return err
	}

	var proc *processor.Processor
	if mode == workflow.ModeCompare {
		proc = processor.NewCompareOnly(transport, res, solved)
	} else {
		proc = processor.New(transport, res, solved)
	}
	if err := proc.Run(cmd.Context(), nil); err != nil {
		return err
	}

	th := theme.Select()
	if err := render.ChangeSummary(cmd.OutOrStdout(), proc.Reports(), th, sf.showUnchanged); err != nil {
		return err
	}
	return render.Summary(cmd.OutOrStdout(), proc.Summarize())
}

func renderedBy(obj model.Object, templateName string) bool {
	for _, t := range obj.Provenance().Trace {
		if t.Template == templateName {
			return true
		}
	}
	return false
}
