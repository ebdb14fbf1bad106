package app

import (
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/obriencj/koji-habitude-go/pkg/errors"
	"github.com/obriencj/koji-habitude-go/pkg/hub"
	"github.com/obriencj/koji-habitude-go/pkg/workflow"
)

// fetchMethods maps a type-tag to the hub method that retrieves one
// object by name (spec.md section 6's fixed vocabulary).
var fetchMethods = map[string]string{
	"tag":           hub.MethodGetTag,
	"target":        hub.MethodGetBuildTarget,
	"user":          hub.MethodGetUser,
	"host":          hub.MethodGetHost,
	"channel":       hub.MethodGetChannel,
	"external-repo": hub.MethodGetExternalRepo,
}

// newFetchCmd folds in the original's cli/fetch.py: query the hub for
// one or more keys (type-tag:name) and dump the remote-shaped record,
// independent of any local YAML.
func newFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch [type:name...]",
		Short: "Query the hub for one or more objects and dump the remote record",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sf := readSharedFlags()
			transport, err := connectTransport(cmd.Context(), workflow.ModeCompare, sf)
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()

			for _, arg := range args {
				typeTag, name, err := splitFetchArg(arg)
				if err != nil {
					return err
				}
				method, ok := fetchMethods[typeTag]
				if !ok {
					return errors.NewValidationError("fetch does not support type "+typeTag, nil)
				}
				value, err := transport.Call(cmd.Context(), hub.Call{
					Method: method,
					Args:   []any{name},
				})
				if err != nil {
					return err
				}
				if err := enc.Encode(map[string]any{"type": typeTag, "name": name, "remote": value}); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func splitFetchArg(arg string) (string, string, error) {
	idx := strings.Index(arg, ":")
	if idx <= 0 || idx == len(arg)-1 {
		return "", "", errors.NewValidationError("fetch argument "+arg+" must be type:name", nil)
	}
	return arg[:idx], arg[idx+1:], nil
}
