package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tytsxai/longbridge-terminal/internal/app"
	"github.com/tytsxai/longbridge-terminal/internal/domain"
	"github.com/tytsxai/longbridge-terminal/internal/ingest"
	"github.com/tytsxai/longbridge-terminal/internal/render"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	// 1. Pprof Server (for performance profiling)
	go func() {
		// Localhost only for security
		slog.Info("🕵️ Pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("Pprof server failed", slog.Any("error", err))
		}
	}()

	// 2. System Bootstrapping
	configPath := os.Getenv("LONGBRIDGE_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(configPath); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Restore workspace + background instrument sync
	ws := bootstrap.Workspace.Load()
	slog.Info("Workspace restored",
		slog.String("view", ws.LastView),
		slog.String("period", string(ws.CandlePeriod)))
	go bootstrap.SyncInstruments(ctx)

	// 5. Render Scheduler. The drawing layer is a plug-in consumer; it
	// reads the market store for whatever regions are dirty.
	market := bootstrap.Market
	notes := market.Subscribe(1024)
	minInterval := time.Duration(bootstrap.Config.Render.MinIntervalMS) * time.Millisecond
	scheduler := render.NewScheduler(notes, render.RendererFunc(func(regions render.Region) {
		slog.Debug("Redraw", slog.String("regions", regions.String()))
	}), minInterval)
	go scheduler.Run(ctx)
	slog.InfoContext(ctx, "✅ Render scheduler started")

	// 6. Push stream + ingestion loop (alert evaluation runs inline)
	if err := bootstrap.Stream.Connect(ctx, bootstrap.Instruments); err != nil {
		slog.Error("Failed to start push stream", slog.Any("error", err))
		os.Exit(1)
	}
	loop := ingest.NewLoop(bootstrap.Stream, market, bootstrap.Alerts)
	ingestErr := make(chan error, 1)
	go func() {
		ingestErr <- loop.Run(ctx)
	}()
	slog.InfoContext(ctx, "✅ Ingestion loop started", slog.Int("instruments", len(bootstrap.Instruments)))

	// 7. Surface fired alerts to the UI
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-bootstrap.Alerts.Events():
				slog.Info("🔔 Alert",
					slog.String("instrument", ev.Instrument.String()),
					slog.String("kind", string(ev.Kind)),
					slog.String("value", ev.Value.String()))
				scheduler.Mark(render.RegionStatus)
			}
		}
	}()

	slog.InfoContext(ctx, "✨ Longbridge Terminal fully operational. Press Ctrl+C to exit.")

	// Wait for shutdown signal or fatal data-layer loss. The render
	// scheduler and alert engine keep serving last-known state either
	// way until the process exits.
	exitCode := 0
	select {
	case <-ctx.Done():
	case err := <-ingestErr:
		if err != nil && errors.Is(err, domain.ErrStreamClosed) {
			slog.Error("❌ Push stream lost, shutting down", slog.Any("error", err))
			exitCode = 1
		}
	}
	stop()
	bootstrap.Stream.Disconnect()

	// 8. Persist workspace (best-effort, bounded)
	saveCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(bootstrap.Config.Workspace.SaveTimeoutMS)*time.Millisecond)
	defer cancel()
	if err := bootstrap.Workspace.Save(saveCtx, ws); err != nil {
		slog.Warn("Workspace save failed", slog.Any("error", err))
	}

	slog.Info("👋 Shutting down gracefully...")
	os.Exit(exitCode)
}
