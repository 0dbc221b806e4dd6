package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:                  "pipeboard",
		Usage:                 "Synchronize and inspect pipeline canvases",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "Connect to a canvas and follow its live graph",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Usage:   "Path to the pipeboard.yaml config file",
						Value:   "pipeboard.yaml",
						Sources: cli.EnvVars("PIPEBOARD_CONFIG"),
					},
					&cli.StringFlag{
						Name:    "server",
						Usage:   "Canvas server base URL (overrides config)",
						Sources: cli.EnvVars("PIPEBOARD_SERVER_URL"),
					},
					&cli.StringFlag{
						Name:    "canvas",
						Usage:   "Canvas id to watch (overrides config)",
						Sources: cli.EnvVars("PIPEBOARD_CANVAS_ID"),
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runWatch(ctx, cmd)
				},
			},
			{
				Name:  "simulate",
				Usage: "Run a local canvas backend with a scripted event feed",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "listen",
						Usage:   "Address for the simulated backend",
						Value:   ":8080",
						Sources: cli.EnvVars("PIPEBOARD_LISTEN"),
					},
					&cli.DurationFlag{
						Name:  "interval",
						Usage: "Delay between scripted feed ticks",
						Value: defaultFeedInterval,
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runSimulate(ctx, cmd)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
