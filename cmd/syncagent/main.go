package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Atabia1/athlete-genesis-ai-sub005/internal/api"
	"github.com/Atabia1/athlete-genesis-ai-sub005/internal/config"
	"github.com/Atabia1/athlete-genesis-ai-sub005/internal/netmon"
	"github.com/Atabia1/athlete-genesis-ai-sub005/internal/plans"
	"github.com/Atabia1/athlete-genesis-ai-sub005/internal/queue"
	"github.com/Atabia1/athlete-genesis-ai-sub005/internal/remote"
	"github.com/Atabia1/athlete-genesis-ai-sub005/internal/store"
	"github.com/Atabia1/athlete-genesis-ai-sub005/internal/store/sqlite"
	"github.com/Atabia1/athlete-genesis-ai-sub005/internal/syncer"
	httptransport "github.com/Atabia1/athlete-genesis-ai-sub005/internal/transport/http"
)

func main() {
	cfg := config.LoadAgent()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitor := netmon.NewMonitor(cfg.ProbeURL, cfg.ProbeInterval, cfg.ProbeTimeout)

	q := queue.NewQueue(
		queue.WithActionTimeout(cfg.ActionTimeout),
		queue.WithDefaultMaxAttempts(cfg.MaxAttempts),
		queue.WithOnlineCheck(monitor.IsOnline),
	)

	coordinator := syncer.NewCoordinator(q, monitor,
		syncer.WithStabilizationDelay(cfg.StabilizationDelay),
		syncer.WithIdleResetDelay(cfg.IdleResetDelay),
	)

	var offlineStore store.Store
	if cfg.StorePath == "" {
		offlineStore = store.NewMemoryStore()
	} else {
		durable, err := sqlite.Open(ctx, cfg.StorePath)
		if err != nil {
			log.Printf("offline storage unavailable, falling back to in-memory store: %v", err)
			offlineStore = store.NewMemoryStore()
		} else {
			defer durable.Close()
			offlineStore = durable
		}
	}

	client := remote.NewClient(cfg.PlanServerURL, cfg.PlanServerToken)
	planService := plans.NewService(client, offlineStore, q, monitor)

	go monitor.Run(ctx)
	go coordinator.Run(ctx)

	handler := api.NewHandler(coordinator, q, planService, monitor)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	logger := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("%s %s", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, logger(mux))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("sync agent listening on %s", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
