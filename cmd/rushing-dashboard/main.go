package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/tyler180/nfl-rushing-stats/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := NewRunner(RunnerOpts{})
	app := &cli.Command{
		Name:     "rushing-dashboard",
		Usage:    "Explore pro-football-reference rushing stats by season, team and position",
		Commands: r.register(),
	}

	if err := app.Run(ctx, os.Args); err != nil {
		config.NewLogger(nil, false).Error("application error", "err", err)
		os.Exit(1)
	}
}
