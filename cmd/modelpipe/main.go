package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := newApp(logger)
	if err := app.RunContext(ctx, os.Args); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newApp(logger *slog.Logger) *cli.App {
	cmds := &commands{logger: logger}
	return &cli.App{
		Name:            "modelpipe",
		Usage:           "stage data, train, publish, deploy, and score models on the ML platform",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "modelpipe.yaml",
				Usage:   "path to the pipeline configuration file",
			},
		},
		Commands: []*cli.Command{
			cmds.cmdRun(),
			cmds.cmdStage(),
			cmds.cmdTrain(),
			cmds.cmdStatus(),
			cmds.cmdCancel(),
			cmds.cmdPublish(),
			cmds.cmdDeploy(),
			cmds.cmdScore(),
		},
	}
}
