package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alvozedd/ClinicManagementSystem-sub003/internal/apiclient"
	"github.com/alvozedd/ClinicManagementSystem-sub003/internal/config"
	"github.com/alvozedd/ClinicManagementSystem-sub003/internal/directory"
	"github.com/alvozedd/ClinicManagementSystem-sub003/internal/queue"
	"github.com/alvozedd/ClinicManagementSystem-sub003/internal/telemetry"
	"github.com/alvozedd/ClinicManagementSystem-sub003/internal/termapi"
)

func main() {
	cfg := config.Load()
	shutdownTelemetry := telemetry.Setup("frontdesk")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	client := apiclient.New(cfg.BackendURL)
	coordinator := queue.NewCoordinator(client, queue.Options{
		PollInterval: cfg.PollInterval,
		Snapshot:     queue.NewSnapshot(cfg.SnapshotDir),
	})
	resolver := directory.NewResolver(client)

	pollCtx, stopPolling := context.WithCancel(context.Background())
	go coordinator.Run(pollCtx)

	handler := termapi.NewHandler(coordinator, resolver)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("frontdesk terminal listening on %s, backend %s", server.Addr, cfg.BackendURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	stopPolling()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	coordinator.Flush()
}
