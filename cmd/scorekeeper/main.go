// Command scorekeeper is a courtside client: it connects to the venue
// server's websocket hub, follows one tournament and prints every event it
// receives. Score mutations published while the venue network is down are
// queued and, if a database is configured, persisted for redelivery.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/courtsync/courtsync/config"
	"github.com/courtsync/courtsync/db"
	"github.com/courtsync/courtsync/models"
	"github.com/courtsync/courtsync/realtime"
	"github.com/courtsync/courtsync/repositories"
)

func main() {
	var (
		url          = flag.String("url", "ws://localhost:8080/ws/tournaments/", "websocket base URL")
		tournamentID = flag.String("tournament", "", "tournament to follow")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if *tournamentID == "" {
		logger.Error("missing -tournament flag")
		os.Exit(1)
	}

	socketCfg := realtime.SocketConfig{
		URL:    *url + *tournamentID,
		Logger: logger,
	}
	if cfg, err := config.Load(); err == nil {
		socketCfg.BaseDelay = cfg.WSBaseDelay
		socketCfg.MaxDelay = cfg.WSMaxDelay
		socketCfg.MaxRetries = cfg.WSMaxRetries
		socketCfg.QueueSize = cfg.WSQueueSize

		if dbConn, dbErr := db.Connect(cfg.DatabaseURL, 5*time.Second); dbErr == nil {
			defer dbConn.Close()
			socketCfg.Outbox = repositories.NewPostgresEventOutboxRepository(dbConn)
			logger.Info("offline events will be persisted to the outbox")
		} else {
			logger.Warn("running without an outbox", slog.Any("error", dbErr))
		}
	}

	transport := realtime.NewSocketTransport(socketCfg)
	ctx := context.Background()
	if err := transport.Connect(ctx); err != nil {
		logger.Error("failed to connect", slog.Any("error", err))
		os.Exit(1)
	}

	_, err := transport.Subscribe(*tournamentID, func(ev models.TournamentEvent) {
		if ev.Type == models.EventConnectionFailed {
			logger.Error("connection lost for good, restart to reconnect")
			return
		}
		matchID := ""
		if ev.MatchID != nil {
			matchID = *ev.MatchID
		}
		fmt.Printf("%s  %-22s  %s\n", ev.Timestamp.Format(time.TimeOnly), ev.Type, matchID)
	})
	if err != nil {
		logger.Error("failed to subscribe", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("following tournament", slog.String("tournament_id", *tournamentID))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	if err := transport.Disconnect(ctx); err != nil {
		logger.Error("disconnect failed", slog.Any("error", err))
	}
}
