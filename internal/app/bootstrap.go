package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/tytsxai/longbridge-terminal/internal/alert"
	"github.com/tytsxai/longbridge-terminal/internal/domain"
	"github.com/tytsxai/longbridge-terminal/internal/gateway"
	"github.com/tytsxai/longbridge-terminal/internal/infra"
	"github.com/tytsxai/longbridge-terminal/internal/infra/storage"
	"github.com/tytsxai/longbridge-terminal/internal/store"
	"github.com/tytsxai/longbridge-terminal/internal/workspace"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config      *infra.Config
	Storage     *storage.Storage
	Limiter     *gateway.Limiter
	Client      *gateway.Client
	Stream      *gateway.Stream
	Market      *store.MarketStore
	Alerts      *alert.Engine
	Workspace   *workspace.Store
	Instruments []domain.Instrument
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, logger, DB,
// gateway, engines). Network work is deferred to SyncInstruments.
func (b *Bootstrap) Initialize(configPath string) error {
	slog.Info("🚀 Bootstrapping Longbridge Terminal...")

	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// 3. Parse watched instruments
	for _, raw := range cfg.API.Instruments {
		inst, err := domain.ParseInstrument(raw)
		if err != nil {
			return &domain.ConfigError{Field: "api.instruments", Err: err}
		}
		b.Instruments = append(b.Instruments, inst)
	}

	// 4. Initialize Storage (DB)
	db, err := storage.NewStorage()
	if err != nil {
		return err
	}
	b.Storage = db
	slog.Info("✅ Database initialized")

	// 5. Rate governor + OpenAPI gateway. One limiter gates every
	// outbound call, queries and subscriptions alike.
	b.Limiter = gateway.NewLimiter(cfg.RateLimit.TokensPerSecond, cfg.RateLimit.Burst)
	b.Client = gateway.NewClient(cfg.API.RestURL, cfg.Credentials, b.Limiter)
	b.Stream = gateway.NewStream(cfg.API.QuoteWSURL, b.Limiter)

	// 6. Market state store
	b.Market = store.NewMarketStore()

	// 7. Alert engine
	rulesFile, err := alert.NewRulesFile(cfg.Alerts.RulesFile)
	if err != nil {
		return err
	}
	b.Alerts = alert.NewEngine(rulesFile, b.Storage, cfg.Alerts.CooldownSeconds)
	if err := b.Alerts.Load(); err != nil {
		return err
	}
	slog.Info("✅ Alert engine ready")

	// 8. Workspace persistence
	ws, err := workspace.NewStore(cfg.Workspace.File)
	if err != nil {
		return err
	}
	b.Workspace = ws

	return nil
}

// SyncInstruments fetches static info and full quote snapshots in the
// background (the loading-screen work): metadata lands in sqlite,
// names and prev_close seed the market store so percent-change rules
// evaluate correctly from the first push.
func (b *Bootstrap) SyncInstruments(ctx context.Context) {
	slog.Info("🔄 Starting instrument synchronization...", slog.Int("count", len(b.Instruments)))

	infos, err := b.Client.QueryStaticInfo(ctx, b.Instruments)
	if err != nil {
		slog.Warn("Static info sync failed", slog.Any("error", err))
	}
	for _, info := range infos {
		inst, err := domain.ParseInstrument(info.Symbol)
		if err != nil {
			continue
		}
		b.Market.SetName(inst, info.NameEn)

		rec := &domain.InstrumentInfo{
			Symbol:       inst.String(),
			Name:         info.NameEn,
			LotSize:      info.LotSize,
			LastSyncedAt: time.Now(),
		}
		// Preserve the user's favorites flag across syncs
		if existing, _ := b.Storage.GetInstrument(inst.String()); existing != nil {
			rec.IsFavorite = existing.IsFavorite
			rec.CreatedAt = existing.CreatedAt
		}
		if err := b.Storage.UpsertInstrument(rec); err != nil {
			slog.Error("Failed to upsert instrument", slog.String("symbol", inst.String()), slog.Any("error", err))
		}
	}

	quotes, err := b.Client.QueryQuotes(ctx, b.Instruments)
	if err != nil {
		slog.Warn("Quote snapshot sync failed", slog.Any("error", err))
		return
	}
	for _, payload := range quotes {
		inst, err := domain.ParseInstrument(payload.Symbol)
		if err != nil {
			continue
		}
		q, err := payload.ToQuote()
		if err != nil {
			slog.Warn("Skipping malformed quote snapshot",
				slog.String("symbol", payload.Symbol), slog.Any("error", err))
			continue
		}
		b.Market.UpdateQuote(inst, q)
	}

	slog.Info("✨ Instrument synchronization completed",
		slog.Int("instruments", b.Market.Len()))
}
