package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/akave-ai/returnall/internal/config"
	"github.com/akave-ai/returnall/internal/logger"
	"github.com/akave-ai/returnall/internal/logsink"
	"github.com/akave-ai/returnall/internal/observability"
	"github.com/akave-ai/returnall/internal/server"
)

const appName = "returnall"

var app = &cli.App{
	Name:        appName,
	Usage:       "echo every HTTP request back to the caller",
	Description: "returnall captures method, URL, parameters, headers, client address and body of each request, returns them as JSON and records them to a log file.",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:        "env-file",
			Usage:       "Load environment variables from this file before reading configuration.",
			Value:       ".env",
			Destination: &opts.envFile,
		},
		&cli.StringFlag{
			Name:        "port",
			Usage:       "Port to listen on. Overrides RETURNALL_SERVER__PORT.",
			Destination: &opts.port,
		},
		&cli.StringFlag{
			Name:        "log-path",
			Usage:       "Append captured requests to this file. Overrides RETURNALL_LOG__PATH.",
			Destination: &opts.logPath,
		},
	},
	Action: run,
}

var opts struct {
	envFile string
	port    string
	logPath string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		l := zerolog.New(os.Stderr).With().Timestamp().Logger()
		l.Error().Err(err).Msg("returnall exited")
		os.Exit(1)
	}
}

func run(cc *cli.Context) error {
	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return err
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if opts.port != "" {
		cfg.Server.Port = opts.port
	}
	if opts.logPath != "" {
		cfg.Log.Path = opts.logPath
	}

	log := logger.New(cfg.Observability)

	sink, err := logsink.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("log sink: %w", err)
	}
	defer sink.Close()

	nrApp, err := observability.NewApplication(cfg.Observability)
	if err != nil {
		// APM is optional; keep serving without it.
		log.Warn().Err(err).Msg("new relic disabled")
	}
	defer observability.Shutdown(nrApp, 5*time.Second)

	log.Info().
		Str("env", cfg.Primary.Env).
		Str("log_path", cfg.Log.Path).
		Bool("metrics", cfg.Observability.Metrics.Enabled).
		Bool("new_relic", nrApp != nil).
		Msg("starting returnall")

	srv := server.New(cfg, log, sink, nrApp)
	return srv.Run(cc.Context)
}
