package app

import (
	"context"
	"net/http"

	"github.com/spf13/viper"

	"github.com/obriencj/koji-habitude-go/pkg/config"
	"github.com/obriencj/koji-habitude-go/pkg/errors"
	"github.com/obriencj/koji-habitude-go/pkg/hub"
	"github.com/obriencj/koji-habitude-go/pkg/logger"
	"github.com/obriencj/koji-habitude-go/pkg/metrics"
	"github.com/obriencj/koji-habitude-go/pkg/namespace"
	"github.com/obriencj/koji-habitude-go/pkg/workflow"
)

func logWarn(msg string) {
	logger.Warn(msg)
}

// sharedFlags is every persistent flag value a subcommand needs,
// collected once via viper so subcommands don't repeat flag lookups.
type sharedFlags struct {
	profile       string
	templates     []string
	showUnchanged bool
	metricsAddr   string
}

func readSharedFlags() sharedFlags {
	return sharedFlags{
		profile:       viper.GetString("profile"),
		templates:     viper.GetStringSlice("templates"),
		showUnchanged: viper.GetBool("show-unchanged"),
		metricsAddr:   viper.GetString("metrics-addr"),
	}
}

// connectTransport resolves the active profile and builds a
// hub.Transport, authenticating it for sync mode.
func connectTransport(_ context.Context, mode workflow.Mode, sf sharedFlags) (hub.Transport, error) {
	cfgFile, err := config.Load(config.DefaultPath())
	if err != nil {
		return nil, err
	}
	profile, _, err := cfgFile.Resolve(sf.profile)
	if err != nil {
		return nil, err
	}

	t := hub.NewXMLRPCTransport(profile.HubURL, http.DefaultClient)
	if mode == workflow.ModeSync {
		if profile.AuthMethod == "" || profile.AuthMethod == "noauth" {
			return nil, errors.NewAuthError("sync requires an authenticated profile; "+profile.HubURL+" has auth_method=noauth", nil)
		}
		// Credential acquisition itself (SSL cert handshake, Kerberos
		// ticket) is out of scope (spec.md section 1); this records the
		// principal the profile declares as already-authenticated.
		t.Authenticate(hub.CurrentUser{Name: profile.Principal})
	}
	return t, nil
}

// buildWorkflowConfig assembles a workflow.Config from shared flags and
// the subcommand's positional data paths.
func buildWorkflowConfig(mode workflow.Mode, sf sharedFlags, dataPaths []string, metricsReg *metrics.Registry) workflow.Config {
	return workflow.Config{
		Mode:         mode,
		TemplateDirs: sf.templates,
		DataPaths:    dataPaths,
		RedefPolicy:  namespace.RedefinitionError,
		Metrics:      metricsReg,
		ConnectTransport: func(ctx context.Context, m workflow.Mode) (hub.Transport, error) {
			return connectTransport(ctx, m, sf)
		},
		OnWarn: logWarn,
	}
}
