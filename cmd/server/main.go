package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomz197/spacewars/internal/config"
	"github.com/tomz197/spacewars/internal/console"
	"github.com/tomz197/spacewars/internal/logging"
	gameconfig "github.com/tomz197/spacewars/internal/loop/config"
	"github.com/tomz197/spacewars/internal/loop/server"
	"github.com/tomz197/spacewars/internal/spectator"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		// No logger yet; the log file location may come from .env.
		logging.New(logging.Options{Stderr: true}).Fatalf("load .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		logging.New(logging.Options{Stderr: true}).Fatalf("load settings: %v", err)
	}

	log := logging.New(logging.Options{File: cfg.LogFile, Stderr: cfg.LogStderr})
	defer logging.Sync(log)
	log.Infow("settings loaded",
		"port", cfg.Port,
		"universe_size", cfg.Game.UniverseSize,
		"ms_per_frame", cfg.Game.MSPerFrame,
		"teams", cfg.Game.Teams,
		"stars", len(cfg.Game.Stars),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gameServer := server.New(cfg.Game, log)
	if _, err := gameServer.Listen(ctx, cfg.ListenAddr()); err != nil {
		log.Fatalf("cannot serve: %v", err)
	}
	runDone := make(chan struct{})
	go func() {
		gameServer.Run(ctx)
		close(runDone)
	}()
	log.Infow("game server started", "addr", cfg.ListenAddr())

	var httpServer *http.Server
	if cfg.HTTPAddr != "" {
		hub := spectator.New(gameServer, cfg.Game.TickInterval(), log)
		go hub.Run(ctx)
		httpServer = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           hub.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Infow("spectator listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("spectator: %v", err)
			}
		}()
	}

	var operator *console.Console
	if cfg.SSHAddr != "" {
		operator, err = console.New(gameServer, cfg.SSHAddr, cfg.SSHHostKey, log)
		if err != nil {
			log.Fatalf("console: %v", err)
		}
		go func() {
			if err := operator.ListenAndServe(); err != nil {
				log.Fatalf("console: %v", err)
			}
		}()
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-done
	log.Info("shutting down")

	gameServer.Shutdown(gameconfig.ShutdownTimeout)
	cancel()
	<-runDone

	shutdownCtx, stop := context.WithTimeout(context.Background(), gameconfig.ShutdownTimeout)
	defer stop()
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warnw("spectator shutdown", "err", err)
		}
	}
	if operator != nil {
		if err := operator.Shutdown(shutdownCtx); err != nil {
			log.Warnw("console shutdown", "err", err)
		}
	}
	log.Info("server stopped")
}
