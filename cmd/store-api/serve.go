package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"store-backend/internal/api"
	"store-backend/internal/config"
	"store-backend/internal/obs"
	"store-backend/internal/reactions"
	"store-backend/internal/store"
	"store-backend/middleware/pipeline"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.ListenAddr = addr
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides LISTEN_ADDR)")
	return cmd
}

func runServe(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	log := obs.NewLogger(cfg.LogLevel, os.Stdout)
	gin.SetMode(gin.ReleaseMode)

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	notifier, err := buildNotifier(ctx, cfg, log)
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.DatabasePath, store.WithHooks(reactions.Hooks(notifier, log)))
	if err != nil {
		return err
	}
	defer st.Close()

	var rdb redis.UniversalClient
	if cfg.UsesRedis() {
		c, err := newRedis(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()
		rdb = c
	}

	pol := buildPolicy(cfg, rdb)
	sink := obs.NewLogSink(log)
	p := pipeline.New(pipeline.Options{
		Stages:    buildStages(cfg, pol, sink, log),
		ClientKey: pipeline.DefaultClientKey(cfg.RateKeyHeader, cfg.TrustXFF),
		RemoteIP:  pipeline.PeerAddress(cfg.TrustedProxies),
		Identify:  api.Identify(st),
		Sink:      sink,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           p.Handler(api.NewServer(st, log).Router()),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	log.WithFields(logrus.Fields{
		"addr":      cfg.ListenAddr,
		"stages":    p.StageNames(),
		"algorithm": cfg.RateAlgorithm,
		"store":     cfg.RateStore,
		"max":       cfg.RateMaxRequests,
		"window":    cfg.RateWindow.String(),
		"blocked":   len(cfg.BlockedIPs),
	}).Info("store api listening")

	g, gctx := errgroup.WithContext(ctx)
	if pol.janitor != nil {
		pol.janitor.StartJanitor(gctx)
	}
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	pol.logStats(log)
	if err != nil {
		log.WithError(err).Error("server stopped")
		return err
	}
	log.Info("server stopped")
	return nil
}
