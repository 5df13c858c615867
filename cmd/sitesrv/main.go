package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/Luna-Sites/lunasites-platform/internal/common/logtrace"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/config"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/db"
	dbconfig "github.com/Luna-Sites/lunasites-platform/internal/sitesrv/db/config"
	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/provision"
)

const defaultConfigFile = "/etc/lunasites/sitesrv.conf"

func init() {
	logtrace.InitLogger()
}

type cmdoptions struct {
	configFile *string
}

func main() {
	slog := log.With().Str("state", "init").Logger()
	opt := parseFlags()

	slog.Info().Str("config_file", *opt.configFile).Msg("loading config file")
	if err := config.LoadConfig(*opt.configFile); err != nil {
		slog.Error().Str("config_file", *opt.configFile).Err(err).Msg("unable to load config file")
		os.Exit(1)
	}
	dbconfig.Apply(config.Config())

	ctx := db.ConnCtx(log.Logger.WithContext(context.Background()))
	platform := db.DB(ctx)
	if platform == nil {
		slog.Error().Msg("unable to reach platform database")
		os.Exit(1)
	}
	if err := platform.EnsureRegistrySchema(ctx); err != nil {
		slog.Error().Err(err).Msg("unable to ensure registry schema")
		os.Exit(1)
	}
	platform.Close(ctx)

	dispatcher := provision.NewDispatcher(config.Config().WorkerCount)
	defer dispatcher.Shutdown()
	slog.Info().Int("workers", config.Config().WorkerCount).Msg("provisioning workers started")

	// The request layer that feeds provisioning requests lives outside this
	// service; sitesrv runs the data plane and waits for shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info().Str("signal", sig.String()).Msg("shutting down")
}

func parseFlags() cmdoptions {
	var opt cmdoptions
	opt.configFile = flag.String("config", defaultConfigFile, "Path to the config file")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	return opt
}
