package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"quartermaster/internal/api"
	"quartermaster/internal/auth"
	"quartermaster/internal/config"
	"quartermaster/internal/db"
	"quartermaster/internal/engine"
	"quartermaster/internal/esi"
	"quartermaster/internal/logger"
	"quartermaster/internal/zkillboard"
)

var version = "dev"

func main() {
	addr := flag.String("addr", "", "HTTP listen address (overrides QUARTERMASTER_LISTEN_ADDR)")
	flag.Parse()

	logger.Banner(version)
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Config", err.Error())
		os.Exit(1)
	}
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		logger.Warn("Config", err.Error())
	}
	if err := cfg.Validate(); err != nil {
		// Everything except login works without a client ID.
		logger.Warn("Config", err.Error())
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("DB", fmt.Sprintf("Failed to open database: %v", err))
		os.Exit(1)
	}
	defer database.Close()

	esiClient := esi.NewClient(cfg.ESIBaseURL, cfg.Datasource, cfg.UserAgent)
	zkbClient := zkillboard.NewClient(zkillboard.Options{
		BaseURL:   cfg.ZKillboardBaseURL,
		UserAgent: cfg.UserAgent,
		RPS:       cfg.ZKillboardRPS,
		Thresholds: zkillboard.DangerThresholds{
			MediumAbove:  cfg.DangerMediumAbove,
			HighAbove:    cfg.DangerHighAbove,
			ExtremeAbove: cfg.DangerExtremeAbove,
		},
		Concurrency: cfg.ZKillboardConcurrency,
	})

	advisor := engine.NewRouteAdvisor(esiClient, zkbClient)
	advisor.Policy = engine.RiskPolicy{
		HighSystemsAbove:   cfg.RiskHighSystemsAbove,
		MediumSystemsAbove: cfg.RiskMediumSystemsAbove,
	}
	advisor.SecondsPerJump = cfg.SecondsPerJump

	sso := auth.NewSSOConfig(cfg)
	sessions := auth.NewSessions(database, sso)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv := api.NewServer(api.Deps{
		ESI:      esiClient,
		Kills:    zkbClient,
		Profiles: database,
		SSO:      sso,
		Sessions: sessions,
		Advisor:  advisor,
		Metrics:  api.NewMetrics(reg),
		Gatherer: reg,
		Version:  version,
	})

	logger.Section("Danger policy")
	logger.Stats("Window", zkillboard.DangerWindow)
	logger.Stats("Thresholds", fmt.Sprintf(">%d medium, >%d high, >%d extreme",
		cfg.DangerMediumAbove, cfg.DangerHighAbove, cfg.DangerExtremeAbove))
	logger.Stats("zKillboard", fmt.Sprintf("%g req/s, %d concurrent", cfg.ZKillboardRPS, cfg.ZKillboardConcurrency))

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	logger.Server(cfg.ListenAddr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server", fmt.Sprintf("Failed: %v", err))
		os.Exit(1)
	}
	logger.Info("Server", "Stopped")
}
