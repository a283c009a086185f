package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/polaris/internal/app"
	"github.com/dmitrijs2005/polaris/internal/buildinfo"
	"github.com/dmitrijs2005/polaris/internal/cli"
	"github.com/dmitrijs2005/polaris/internal/config"
	"github.com/dmitrijs2005/polaris/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}

	ctx, stop := app.NotifyContext(context.Background())
	defer stop()

	a, err := app.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			logger.Error(ctx, "close vault", "error", err)
		}
	}()

	if err := a.Initialize(ctx); err != nil {
		logger.Error(ctx, "initialize vault", "error", err)
		return
	}

	cli.NewConsole(a, os.Stdin, os.Stdout).Run(ctx)
}
