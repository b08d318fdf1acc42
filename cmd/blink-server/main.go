// Command blink-server serves stored blink analysis runs over HTTP.
//
// It exposes a JSON API for runs, events, and EAR samples, HTML chart
// pages rendered with go-echarts, and admin debugging routes backed by
// tailsql.
//
// Usage:
//
//	go run ./cmd/blink-server [flags]
//
// Flags:
//
//	-listen   Listen address (default: :8080)
//	-db       Path to the analysis SQLite database (default: blink.db)
//	-version  Print version and exit
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/blink.report/internal/api"
	"github.com/banshee-data/blink.report/internal/db"
	"github.com/banshee-data/blink.report/internal/version"
)

var (
	listen      = flag.String("listen", ":8080", "Listen address")
	dbPath      = flag.String("db", "blink.db", "Path to the analysis SQLite database")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("blink-server %s\n", version.String())
		return
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()

	// mount the admin debugging routes (accessible only in dev mode or
	// over Tailscale)
	database.AttachAdminRoutes(mux)

	apiMux := api.NewServer(database).ServeMux()
	mux.Handle("/", apiMux)

	server := &http.Server{
		Addr:    *listen,
		Handler: api.LoggingMiddleware(mux),
	}

	go func() {
		log.Printf("Listening on %s", *listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
}
