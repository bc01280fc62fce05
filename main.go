// FILE: main.go
// Package main – Program entrypoint and HTTP/metrics server.
//
// Boot sequence:
//   1) loadBotEnv()              – read .env (no shell exports required)
//   2) loadInfraConfigFromEnv()  – store DSN, notifier transport, metrics port
//   3) wire StateStore/Notifier
//   4) start the Prometheus /metrics server
//   5) BotWorker.Run(ctx) — blocks until shutdown or startup failure
//
// Flags:
//   --bot-id <ID>   Bot id to load from the StateStore (required)
//
// Example:
//   bot-runner --bot-id 64f0c2...
//
// Carries forward the teacher's own flag-based main.go / signal-driven
// shutdown / promhttp.Handler() wiring, generalized from the single
// hardcoded Trader to BotWorker's store-driven wiring (spec.md §6).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	var botID string
	flag.StringVar(&botID, "bot-id", "", "Bot id from the database (required)")
	flag.Parse()

	if botID == "" {
		fmt.Fprintln(os.Stderr, "missing required flag: --bot-id")
		os.Exit(2)
	}

	loadBotEnv()
	infra := loadInfraConfigFromEnv()

	store, err := newGormStore(infra.StoreDSN)
	if err != nil {
		log.Fatalf("store init: %v", err)
	}
	notifier := newNotifier(infra)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", infra.MetricsPort), Handler: mux}
	go func() {
		log.Printf("serving metrics on :%d/metrics", infra.MetricsPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics server: %v", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	worker := newBotWorker(botID, store, notifier)
	runErr := worker.Run(ctx)

	shutdownCtx, c := context.WithTimeout(context.Background(), 2*time.Second)
	defer c()
	_ = srv.Shutdown(shutdownCtx)

	if runErr != nil {
		os.Exit(1)
	}
}
