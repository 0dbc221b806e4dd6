package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	pblog "github.com/pipeboard/pipeboard/pkg/log"
	"github.com/pipeboard/pipeboard/pkg/simulator"
)

const defaultFeedInterval = 10 * time.Second

func runSimulate(ctx context.Context, cmd *cli.Command) error {
	pblog.Setup("debug")
	logger := pblog.WithModule("simulate")

	sim := simulator.New()

	server := &http.Server{
		Addr:              cmd.String("listen"),
		Handler:           sim.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sim.Feed(ctx, cmd.Duration("interval"))

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("simulated canvas backend listening",
		"addr", server.Addr,
		"canvas_id", sim.CanvasID())
	logger.Info("watch it with",
		"command", "pipeboard watch --server http://localhost"+server.Addr+" --canvas "+sim.CanvasID())

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
