package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"

	"github.com/pipeboard/pipeboard/pkg/api"
	"github.com/pipeboard/pipeboard/pkg/canvas"
	"github.com/pipeboard/pipeboard/pkg/config"
	pblog "github.com/pipeboard/pipeboard/pkg/log"
	"github.com/pipeboard/pipeboard/pkg/store"
	"github.com/pipeboard/pipeboard/pkg/ws"
)

const graphPrintInterval = 5 * time.Second

func runWatch(ctx context.Context, cmd *cli.Command) error {
	cfg := config.LoadOrDefault(cmd.String("config"))

	if server := cmd.String("server"); server != "" {
		cfg.ServerURL = server
	}

	if canvasID := cmd.String("canvas"); canvasID != "" {
		cfg.CanvasID = canvasID
	}

	if cfg.CanvasID == "" {
		return fmt.Errorf("no canvas id: set canvas_id in the config file or pass --canvas")
	}

	pblog.Setup(cfg.LogLevel)
	logger := pblog.WithModule("watch")

	session := buildSession(cfg)
	defer session.Dispose()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := session.Load(ctx); err != nil {
		return fmt.Errorf("initial load failed: %w", err)
	}

	printGraph(session)

	watchDone := make(chan error, 1)

	go func() {
		watchDone <- session.Watch(ctx)
	}()

	ticker := time.NewTicker(graphPrintInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-watchDone:
			return err
		case <-ticker.C:
			logger.Info("stream", "status", session.ConnectionStatus())
			printGraph(session)
		}
	}
}

func buildSession(cfg config.Config) *canvas.Session {
	var clientOpts []api.Option
	if cfg.APIToken != "" {
		clientOpts = append(clientOpts, api.WithToken(cfg.APIToken))
	}

	client := api.NewClient(cfg.ServerURL, clientOpts...)

	sessionOpts := []canvas.Option{
		canvas.WithStream(ws.NewSubscriber(cfg.WebSocketURL(), cfg.CanvasID)),
	}

	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		positions := store.NewRedisPositionCache(redisClient, cfg.CanvasID)
		sessionOpts = append(sessionOpts, canvas.WithStore(store.NewWithPositionCache(positions)))
	}

	return canvas.NewSession(client, cfg.CanvasID, sessionOpts...)
}

func printGraph(session *canvas.Session) {
	logger := pblog.WithModule("watch")

	for _, node := range session.Nodes() {
		switch {
		case node.Stage != nil:
			logger.Info("stage node",
				"id", node.ID,
				"label", node.Stage.Label,
				"queued", len(node.Stage.Queue),
				"x", int(node.Position.X),
				"y", int(node.Position.Y))
		case node.EventSource != nil:
			logger.Info("event source node",
				"id", node.ID,
				"name", node.EventSource.Name,
				"last_event", node.EventSource.LastEventAt,
				"x", int(node.Position.X),
				"y", int(node.Position.Y))
		}
	}

	for _, edge := range session.Edges() {
		logger.Info("edge", "id", edge.ID, "source", edge.Source, "target", edge.Target)
	}
}
