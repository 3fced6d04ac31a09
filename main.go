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

	"github.com/hazyhaar/devaudit/internal/auth"
	"github.com/hazyhaar/devaudit/internal/config"
	"github.com/hazyhaar/devaudit/internal/httpapi"
	"github.com/hazyhaar/devaudit/internal/storage"
	"github.com/hazyhaar/devaudit/pkg/audit"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "token":
		cmdToken(os.Args[2:])
	case "version":
		fmt.Printf("devaudit %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`devaudit — developer operation audit log

Usage:
  devaudit serve [--config config.toml] [--addr :8080]
  devaudit token --dev <developer_id> [--config config.toml]
  devaudit version
  devaudit help

Commands:
  serve     Start the HTTP ingest/query server
  token     Mint a bearer token for a developer
  version   Print version
  help      Show this help`)
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config.toml")
	addr := fs.String("addr", "", "listen address (overrides config)")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	backend, err := storage.Open(cfg.Storage)
	if err != nil {
		log.Fatalf("opening storage backend: %v", err)
	}
	defer backend.Close()

	engine := audit.NewEngine(audit.Config{
		Backend:              backend,
		AuthorizedDevelopers: cfg.Auth.AuthorizedDevelopers,
		QueueSize:            cfg.Engine.QueueSize,
	})

	a := auth.New(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiryMin)
	apiHandler := httpapi.New(engine, a, nil)

	mux := http.NewServeMux()
	apiHandler.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: httpapi.SecurityHeaders(mux),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("devaudit %s listening on %s", version, cfg.Server.Addr)
	log.Printf("storage: %s", cfg.Storage.Type)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}

	// Drain pending writes before the process exits.
	if err := engine.Close(); err != nil {
		log.Printf("engine close: %v", err)
	}
	if n := engine.Failed(); n > 0 {
		log.Printf("warning: %d audit writes failed during this run", n)
	}
}

func cmdToken(args []string) {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config.toml")
	dev := fs.String("dev", "", "developer ID to embed in the token")
	fs.Parse(args)

	if *dev == "" {
		log.Fatal("token: --dev is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	a := auth.New(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiryMin)
	token, err := a.GenerateToken(*dev)
	if err != nil {
		log.Fatalf("generating token: %v", err)
	}
	fmt.Println(token)
}
