package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"tailscale.com/tsnet"

	"github.com/claude/futurecoach/internal/api"
	"github.com/claude/futurecoach/internal/coach"
	"github.com/claude/futurecoach/internal/config"
	"github.com/claude/futurecoach/internal/identity"
	"github.com/claude/futurecoach/internal/logging"
	coachmcp "github.com/claude/futurecoach/internal/mcp"
	"github.com/claude/futurecoach/internal/metrics"
	"github.com/claude/futurecoach/internal/planner"
	"github.com/claude/futurecoach/internal/server"
	"github.com/claude/futurecoach/internal/tracker"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", os.Getenv("COACH_CONFIG"), "path to config file")
	envFile := flag.String("env-file", ".env", "dotenv file read before the environment")
	webDir := flag.String("web", "", "directory holding a built front-end")
	withMCP := flag.Bool("mcp", true, "serve MCP over streamable HTTP at /mcp")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log, closeLog, err := logging.New(logging.Options{
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
		Console: os.Stdout,
	})
	if err != nil {
		slog.Error("failed to set up logging", "error", err)
		os.Exit(1)
	}
	defer closeLog()
	log.Info("coach-server starting", "version", Version, "backend", cfg.Backend.BaseURL)

	var (
		m   *metrics.Manager
		reg *prometheus.Registry
	)
	clientOpts := []api.Option{
		api.WithHTTPClient(&http.Client{Timeout: cfg.Backend.Timeout}),
		api.WithLogger(log),
	}
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewBuildInfoCollector(),
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.NewManager("coach", "server", reg)
		clientOpts = append(clientOpts, api.WithRecorder(m))
	}
	client := api.New(cfg.Backend.BaseURL, clientOpts...)

	store, err := identity.OpenStore(cfg.State.Dir)
	if err != nil {
		log.Error("failed to open state store", "dir", cfg.State.Dir, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	user, err := identity.NewResolver(client, store, client.BaseURL(), cfg.Identity.UsernamePrefix, log).Resolve(ctx)
	if err != nil {
		log.Error("failed to resolve user", "error", err)
		os.Exit(1)
	}
	log.Info("acting as", "user_id", user.UserID, "username", user.Username)

	journal := tracker.Journals{store}
	if m != nil {
		journal = append(journal, m)
	}

	p := planner.New(client, user, planner.WithLogger(log), planner.WithJournal(journal))
	if _, err := p.LoadWeek(ctx); err != nil {
		log.Warn("initial week load failed", "error", err)
	}
	chat := coach.New(client, user.UserID, coach.WithLogger(log))
	tasks := coach.NewTasks(client, user.UserID)

	opts := []server.Option{server.WithLogger(log)}
	if m != nil {
		opts = append(opts, server.WithMetrics(m, reg))
	}
	if *withMCP {
		mcpSrv := coachmcp.New(coachmcp.Deps{
			Backend: client,
			User:    user,
			Journal: journal,
			Log:     log,
		}, Version)
		opts = append(opts, server.WithMCP(mcpserver.NewStreamableHTTPServer(mcpSrv)))
	}

	// tsnet or plain HTTP
	var listener net.Listener
	if cfg.Tailscale.Enabled {
		tsServer := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		lc, err := tsServer.LocalClient()
		if err != nil {
			log.Error("tsnet local client failed", "error", err)
			os.Exit(1)
		}
		opts = append(opts, server.WithTailscale(lc))

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := cfg.Server.Addr()
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	srv := server.New(p, chat, tasks, client, opts...)
	if *webDir != "" {
		srv.SetFrontend(os.DirFS(*webDir))
		log.Info("serving front-end", "dir", *webDir)
	}

	httpSrv := &http.Server{Handler: srv, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}
