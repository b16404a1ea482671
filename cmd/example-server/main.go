package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"store-backend/internal/obs"
	"store-backend/middleware/activity"
	"store-backend/middleware/ipblock"
	"store-backend/middleware/perfmon"
	"store-backend/middleware/pipeline"
	"store-backend/middleware/ratelimit"
	"store-backend/middleware/ratelimit/infra"
)

func main() {
	// Exemplo: o pipeline direto num ServeMux, sem banco nem API.
	log := obs.NewLogger(os.Getenv("LOG_LEVEL"), os.Stdout)
	sink := obs.NewLogSink(log)
	store := infra.NewWindowStore(5, time.Minute)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	store.StartJanitor(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/dummy", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"Dummy view response"}`))
	})
	mux.HandleFunc("/error", func(w http.ResponseWriter, r *http.Request) {
		// falha não tratada: a fronteira devolve o 500 genérico
		pipeline.RaiseFault(r.Context(), errors.New("This is a test exception"))
	})
	mux.HandleFunc("/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	p := pipeline.New(pipeline.Options{
		Stages: []pipeline.Stage{
			activity.New(sink),
			ipblock.New([]string{"123.45.67.89"}),
			ratelimit.New(ratelimit.Options{
				Store:               store,
				AddRateLimitHeaders: true,
				Log:                 log,
			}),
			perfmon.New(sink),
		},
		// X-User-Id simula um usuário autenticado
		Identify: func(r *http.Request) (pipeline.Identity, error) {
			return pipeline.Identity{UserID: r.Header.Get("X-User-Id")}, nil
		},
		// X-Api-Key/X-Forwarded-For só particionam o rate limit; o bloqueio
		// usa o endereço do par
		ClientKey:  pipeline.DefaultClientKey("X-Api-Key", true),
		RemoteIP:   pipeline.PeerAddress(nil),
		Sink:       sink,
		WithStacks: true,
	})

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           p.Handler(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", addr).Info("example server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server error")
	}
}
