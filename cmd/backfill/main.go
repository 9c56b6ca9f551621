package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/salespipe/backend/internal/application/syncengine"
	"github.com/salespipe/backend/internal/domain/calendar"
	domainchannel "github.com/salespipe/backend/internal/domain/channel"
	"github.com/salespipe/backend/internal/domain/warehouse"
	infrachannel "github.com/salespipe/backend/internal/infrastructure/channel"
	"github.com/salespipe/backend/internal/infrastructure/config"
	"github.com/salespipe/backend/internal/infrastructure/logger"
	"github.com/salespipe/backend/internal/infrastructure/persistence"
	"github.com/salespipe/backend/internal/infrastructure/runlock"
)

// Backfill walks a historical date range in fixed-size chunks and runs
// the regular incremental sync over each chunk, oldest first. Dedup in
// the sink makes re-running a range safe.
func main() {
	var (
		since    string
		until    string
		channels string
		logLevel string
	)

	flag.StringVar(&since, "since", "", "Oldest order date to backfill, YYYY-MM-DD (required)")
	flag.StringVar(&until, "until", "", "Newest order date to backfill, YYYY-MM-DD (default: today)")
	flag.StringVar(&channels, "channels", "all", "Channels to backfill: \"all\" or a comma list")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	if since == "" {
		fmt.Fprintln(os.Stderr, "backfill: -since is required")
		flag.Usage()
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	start, err := time.Parse(calendar.DateLayout, since)
	if err != nil {
		log.Fatal("Invalid -since date", zap.String("value", since), zap.Error(err))
	}
	end := time.Now().UTC()
	if until != "" {
		end, err = time.Parse(calendar.DateLayout, until)
		if err != nil {
			log.Fatal("Invalid -until date", zap.String("value", until), zap.Error(err))
		}
	}
	if end.Before(start) {
		log.Fatal("Range is inverted", zap.String("since", since), zap.String("until", until))
	}

	chunkDays := cfg.Sync.BackfillChunkDays
	if chunkDays <= 0 {
		chunkDays = 90
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(logLevel))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	sink := persistence.NewGormWarehouseStore(db.DB)
	registry := buildRegistry(cfg, log)
	sync := syncengine.NewSalesSyncService(sink, registry, syncengine.SyncOptions{
		DefaultWindowDays: cfg.Sync.DefaultWindowDays,
		// One sort at the end instead of per chunk
		SortAfterAppend: false,
	})

	// Hold the run lock for the whole walk so the scheduler and HTTP
	// triggers stay out of the way.
	var lock runlock.RunLock
	if cfg.Redis.Enabled {
		lock, err = runlock.NewRedisRunLock(runlock.RedisLockConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Sync.LockTTL)
		if err != nil {
			log.Fatal("Failed to connect run lock to Redis", zap.Error(err))
		}
	} else {
		lock = runlock.NewMemoryRunLock(cfg.Sync.LockTTL)
	}

	ctx, log := logger.WithRunID(context.Background(), log, uuid.NewString())
	release, err := lock.Acquire(ctx)
	if err != nil {
		log.Fatal("Could not acquire run lock", zap.Error(err))
	}
	defer release()

	log.Info("Backfill starting",
		zap.String("since", start.Format(calendar.DateLayout)),
		zap.String("until", end.Format(calendar.DateLayout)),
		zap.Int("chunk_days", chunkDays),
	)

	var totalFetched, totalAppended, totalDuplicates int
	for chunkStart := start; !chunkStart.After(end); chunkStart = chunkStart.AddDate(0, 0, chunkDays) {
		chunkEnd := chunkStart.AddDate(0, 0, chunkDays-1)
		if chunkEnd.After(end) {
			chunkEnd = end
		}

		result, err := sync.Run(ctx, syncengine.SyncRequest{
			Start:    chunkStart.Format(calendar.DateLayout),
			End:      chunkEnd.Format(calendar.DateLayout),
			Channels: channels,
		})
		if err != nil {
			log.Fatal("Backfill chunk failed",
				zap.String("start", chunkStart.Format(calendar.DateLayout)),
				zap.String("end", chunkEnd.Format(calendar.DateLayout)),
				zap.Error(err),
			)
		}

		totalFetched += result.Fetched
		totalAppended += result.Appended
		totalDuplicates += result.Duplicates
		log.Info("Backfill chunk complete",
			zap.String("start", result.WindowStart),
			zap.String("end", result.WindowEnd),
			zap.Int("fetched", result.Fetched),
			zap.Int("appended", result.Appended),
			zap.Int("duplicates", result.Duplicates),
		)
		for _, outcome := range result.Channels {
			if outcome.Error != "" {
				log.Warn("Channel failed in chunk",
					zap.String("channel", string(outcome.Channel)),
					zap.String("error", outcome.Error),
				)
			}
		}
	}

	if cfg.Sync.SortAfterAppend {
		if err := sink.SortTable(ctx, warehouse.SalesFactTable, "date", true); err != nil {
			log.Warn("Final sort failed", zap.Error(err))
		}
	}

	log.Info("Backfill finished",
		zap.Int("fetched", totalFetched),
		zap.Int("appended", totalAppended),
		zap.Int("duplicates", totalDuplicates),
	)
}

func buildRegistry(cfg *config.Config, log *zap.Logger) *domainchannel.Registry {
	var adapters []domainchannel.Adapter

	shopifyCfg := infrachannel.NewShopifyConfig(cfg.Shopify.ShopDomain, cfg.Shopify.AccessToken)
	if shopify, err := infrachannel.NewShopifyAdapter(shopifyCfg); err == nil {
		adapters = append(adapters, shopify)
	} else {
		log.Warn("Shopify adapter not configured", zap.Error(err))
	}

	amazonCfg := infrachannel.NewAmazonConfig(
		cfg.Amazon.RefreshToken, cfg.Amazon.ClientID, cfg.Amazon.ClientSecret, cfg.Amazon.MarketplaceID)
	amazonCfg.AccessKeyID = cfg.Amazon.AccessKeyID
	amazonCfg.SecretAccessKey = cfg.Amazon.SecretAccessKey
	if cfg.Amazon.ItemConcurrency > 0 {
		amazonCfg.ItemConcurrency = cfg.Amazon.ItemConcurrency
	}
	if amazon, err := infrachannel.NewAmazonAdapter(amazonCfg); err == nil {
		adapters = append(adapters, amazon)
	} else {
		log.Warn("Amazon adapter not configured", zap.Error(err))
	}

	return domainchannel.NewRegistry(adapters...)
}
