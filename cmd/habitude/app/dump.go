package app

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/obriencj/koji-habitude-go/pkg/key"
	"github.com/obriencj/koji-habitude-go/pkg/loader"
	"github.com/obriencj/koji-habitude-go/pkg/model"
	"github.com/obriencj/koji-habitude-go/pkg/namespace"
)

// newDumpCmd folds in the original's cli/dump.py: load and expand a
// namespace without a hub session and print one YAML record per
// resolved authored object, holding its type, name, file, line and
// dependency keys. The per-kind fields are not included in the record.
func newDumpCmd() *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "dump [paths...]",
		Short: "Load and expand YAML, dumping every resolved object's identity and provenance",
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

			keys := make([]key.Key, 0, len(dataNS.Objects()))
			for k := range dataNS.Objects() {
				keys = append(keys, k)
			}
			sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

			if query != "" {
				return dumpQuery(cmd, dataNS, keys, query)
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()
			for _, k := range keys {
				obj := dataNS.Objects()[k]
				if err := enc.Encode(dumpRecord(k, obj)); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "gjson path to extract from each dumped record instead of printing it whole (e.g. depends.0)")
	return cmd
}

// dumpQuery prints one gjson match per object, in place of the full YAML
// record, for ad-hoc inspection (e.g. "habitude dump --query depends.0 .").
func dumpQuery(cmd *cobra.Command, ns *namespace.Namespace, keys []key.Key, query string) error {
	out := cmd.OutOrStdout()
	for _, k := range keys {
		obj := ns.Objects()[k]
		b, err := json.Marshal(dumpRecord(k, obj))
		if err != nil {
			return err
		}
		result := gjson.GetBytes(b, query)
		if _, err := fmt.Fprintf(out, "%s: %s\n", k.String(), result.String()); err != nil {
			return err
		}
	}
	return nil
}

func dumpRecord(k key.Key, obj model.Object) map[string]any {
	prov := obj.Provenance()
	return map[string]any{
		"type":    k.TypeTag,
		"name":    k.Name,
		"file":    prov.File,
		"line":    prov.Line,
		"depends": dependencyStrings(obj),
	}
}

func dependencyStrings(obj model.Object) []string {
	deps := obj.DependencyKeys()
	out := make([]string, 0, len(deps))
	for _, d := range deps {
		out = append(out, d.String())
	}
	return out
}
