// Device Admission API Server
// HTTP API managing device authorization sets and their admission status
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/northgrid/admitd/internal/admission"
	"github.com/northgrid/admitd/internal/api"
	"github.com/northgrid/admitd/internal/config"
	"github.com/northgrid/admitd/internal/version"
	"github.com/northgrid/admitd/pkg/devauth"
	"github.com/northgrid/admitd/pkg/store"
)

var (
	listenAddr = flag.String("listen", "", "HTTP listen address (default: :8080 or ADMITD_LISTEN)")
	dataDir    = flag.String("data", "", "Data directory for tenant databases (default: ADMITD_DATA_DIR)")
	devauthURL = flag.String("devauth", "", "Device authentication service URL (default: ADMITD_DEVAUTH_URL)")
)

func main() {
	flag.CommandLine.SetOutput(os.Stdout)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *listenAddr != "" {
		cfg.Listen = *listenAddr
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *devauthURL != "" {
		cfg.DevAuthURL = *devauthURL
	}

	log.Printf("Device admission API v%s starting...", version.Version)

	tenants := store.NewRegistry(cfg.DataDir)
	defer tenants.Close()

	// Open the default namespace up front so configuration problems
	// surface at start, not on the first request.
	if _, err := tenants.Namespace(""); err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	gateway := devauth.NewClient(devauth.Config{
		BaseURL: cfg.DevAuthURL,
		Timeout: cfg.DevAuthTimeout,
	})

	app := admission.NewAdmitter(tenants, gateway)
	server := api.NewServerWithConfig(app, api.ServerConfig{
		PageSize:    cfg.PageSize,
		TokenSecret: cfg.TokenSecret,
	})

	mux := http.NewServeMux()
	server.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:    cfg.Listen,
		Handler: api.LoggingMiddleware(mux),
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			httpServer.Close()
		}
	}()

	log.Printf("HTTP server listening on %s", cfg.Listen)
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("HTTP server error: %v", err)
	}

	log.Println("API server stopped")
}
