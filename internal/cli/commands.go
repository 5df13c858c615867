package cli

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Luna-Sites/lunasites-platform/internal/common/logtrace"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/config"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/db"
	dbconfig "github.com/Luna-Sites/lunasites-platform/internal/sitesrv/db/config"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/provision"
)

var configFile string

func addCommands(cmd *cobra.Command) {
	cmd.AddCommand(createCmd)
	cmd.AddCommand(rebootstrapCmd)
	cmd.AddCommand(teardownCmd)
	cmd.AddCommand(statusCmd)
	cmd.AddCommand(listCmd)
}

// setup loads config and returns a context carrying the platform database
// facade. Callers must Close the returned facade.
func setup() (context.Context, db.DB_, error) {
	logtrace.InitLogger()
	if err := config.LoadConfig(configFile); err != nil {
		return nil, nil, err
	}
	dbconfig.Apply(config.Config())

	ctx := db.ConnCtx(log.Logger.WithContext(context.Background()))
	platform := db.DB(ctx)
	if platform == nil {
		return nil, nil, errPlatformUnavailable
	}
	if err := platform.EnsureRegistrySchema(ctx); err != nil {
		platform.Close(ctx)
		return nil, nil, err
	}
	return ctx, platform, nil
}

// newProvisioner builds a provisioner over the configured profiles directory.
func newProvisioner() *provision.Provisioner {
	cfg := config.Config()
	return provision.NewProvisioner(os.DirFS(cfg.ProfilesDir), []string{cfg.DefaultProfile})
}
