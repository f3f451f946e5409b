package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/liuhaoran/daybrief/app/aggregate"
	"github.com/liuhaoran/daybrief/app/api"
	"github.com/liuhaoran/daybrief/app/browser"
	"github.com/liuhaoran/daybrief/app/cfg"
	"github.com/liuhaoran/daybrief/app/database"
	"github.com/liuhaoran/daybrief/app/enrich"
	"github.com/liuhaoran/daybrief/app/feed"
	"github.com/liuhaoran/daybrief/app/harvest"
	"github.com/liuhaoran/daybrief/app/progress"
	"github.com/liuhaoran/daybrief/app/scheduler"
	"github.com/liuhaoran/daybrief/app/store"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting daybrief", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "migration_version", version, "dirty", dirty)

	fetchLog := database.NewFetchLogRepository(db)
	readRepo := database.NewReadStatusRepository(db)

	sources := store.NewSourceStore(filepath.Join(appCfg.DataDir, "sources.json"))
	topics := store.NewTopicStore(filepath.Join(appCfg.DataDir, "topics.json"))
	reports := store.NewReportStore(filepath.Join(appCfg.DataDir, "reports"))

	if err := sources.SeedFromYAML(appCfg.SourcesSeedFile); err != nil {
		slog.Warn("Failed to seed sources", "file", appCfg.SourcesSeedFile, "error", err)
	}

	location, err := time.LoadLocation(appCfg.Timezone)
	if err != nil {
		slog.Warn("Invalid timezone, using system default", "timezone", appCfg.Timezone, "error", err)
		location = time.Local
	}

	recorder := func(url string, attempt feed.Attempt) {
		errMsg := ""
		if attempt.Err != nil {
			errMsg = attempt.Err.Error()
		}
		if err := fetchLog.RecordAttempt(url, attempt.Tier, attempt.Err == nil, errMsg, attempt.Duration); err != nil {
			slog.Debug("Failed to record fetch attempt", "url", url, "error", err)
		}
	}

	renderer := browser.NewRenderer(appCfg.UserAgent)
	retriever := feed.NewRetriever(appCfg.UserAgent, renderer, recorder)
	harvester := harvest.New(retriever, appCfg.ItemsPerSource, nil)

	tracker := progress.NewTracker()

	var completer enrich.Completer
	if provider := enrich.ResolveProvider(appCfg.KimiAPIKey, appCfg.OpenAIAPIKey); provider != nil {
		slog.Info("LLM provider configured", "provider", provider.Name, "model", provider.Model)
		completer = enrich.NewChatClient(*provider)
	} else {
		slog.Warn("No LLM credential configured, items will not be enriched")
	}
	enricher := enrich.New(completer, enrich.NewArticleFetcher(appCfg.UserAgent), appCfg.TranslateBatch, tracker)

	orchestrator := aggregate.New(harvester, enricher, sources, topics, reports, tracker, location)

	var sched *scheduler.Scheduler
	if appCfg.SchedulerEnabled {
		runner := scheduler.RunnerFunc(func(ctx context.Context, date string) error {
			_, err := orchestrator.Run(ctx, date)
			return err
		})
		sched = scheduler.New(runner, strings.Split(appCfg.ScheduleTimes, ","), location)
		sched.Start()
		defer sched.Stop()
	}

	handler := api.NewHandler(orchestrator, reports, sources, topics, tracker, readRepo, fetchLog)
	engine := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("HTTP server error", "error", err)
	}

	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
