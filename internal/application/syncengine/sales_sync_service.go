// Package syncengine holds the application services of the ETL pipeline:
// incremental sales sync, profitability recompute, inventory feed refresh,
// and cost table maintenance.
package syncengine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/salespipe/backend/internal/domain/calendar"
	"github.com/salespipe/backend/internal/domain/channel"
	"github.com/salespipe/backend/internal/domain/warehouse"
	"github.com/salespipe/backend/internal/infrastructure/logger"
	"github.com/salespipe/backend/internal/infrastructure/telemetry"
)

// ErrAllChannelsFailed indicates that every requested channel failed to
// fetch, so the run produced nothing to append.
var ErrAllChannelsFailed = errors.New("sync: all requested channels failed")

// SyncOptions tunes the sales sync run
type SyncOptions struct {
	// DefaultWindowDays is the lookback applied when a request names
	// neither an explicit window nor a day count
	DefaultWindowDays int
	// SortAfterAppend enables the best-effort date sort after appending
	SortAfterAppend bool
	// Now is overridable for tests
	Now func() time.Time
}

func (o *SyncOptions) normalize() {
	if o.DefaultWindowDays <= 0 {
		o.DefaultWindowDays = 30
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// SalesSyncService runs the incremental sales sync: fetch from the
// requested channels, drop records already present in the warehouse,
// append the rest.
//
// Run is not internally serialized; the caller holds the run lock.
type SalesSyncService struct {
	sink     warehouse.Sink
	registry *channel.Registry
	opts     SyncOptions
}

// NewSalesSyncService creates a new SalesSyncService
func NewSalesSyncService(sink warehouse.Sink, registry *channel.Registry, opts SyncOptions) *SalesSyncService {
	opts.normalize()
	return &SalesSyncService{sink: sink, registry: registry, opts: opts}
}

// Run executes one sync pass for the requested window and channels
func (s *SalesSyncService) Run(ctx context.Context, req SyncRequest) (result *SyncResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "sync.run",
		telemetry.WithAttribute("sync.channels", req.Channels))
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()
	log := logger.L(ctx)

	win, err := calendar.ResolveWindow(s.opts.Now(), req.Start, req.End, req.Days, s.opts.DefaultWindowDays)
	if err != nil {
		return nil, err
	}
	adapters, err := s.resolveAdapters(req.Channels)
	if err != nil {
		return nil, err
	}

	result = &SyncResult{
		WindowStart: win.Start.Format(calendar.DateLayout),
		WindowEnd:   win.End.Format(calendar.DateLayout),
	}
	log.Info("sync run starting",
		zap.String("window_start", result.WindowStart),
		zap.String("window_end", result.WindowEnd),
		zap.Int("channels", len(adapters)))

	records, outcomes := s.fetchAll(ctx, adapters, win)
	result.Channels = outcomes
	result.Fetched = len(records)

	if len(result.Failed()) == len(adapters) && len(adapters) > 0 {
		return result, ErrAllChannelsFailed
	}

	existing, err := s.loadExistingKeys(ctx)
	if err != nil {
		return result, fmt.Errorf("sync: load dedup keys: %w", err)
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		key := rec.DedupKey()
		if existing[key] {
			result.Duplicates++
			continue
		}
		existing[key] = true
		rows = append(rows, rec.Row())
	}

	if err := s.sink.AppendRows(ctx, warehouse.SalesFactTable, rows); err != nil {
		return result, fmt.Errorf("sync: append: %w", err)
	}
	result.Appended = len(rows)

	if s.opts.SortAfterAppend && result.Appended > 0 {
		if err := s.sink.SortTable(ctx, warehouse.SalesFactTable, "date", true); err != nil {
			log.Warn("post-append sort failed", zap.Error(err))
		}
	}

	log.Info("sync run finished",
		zap.Int("fetched", result.Fetched),
		zap.Int("appended", result.Appended),
		zap.Int("duplicates", result.Duplicates))
	return result, nil
}

// resolveAdapters maps the channel selector to adapters. The implicit
// "all" means every registered channel; an explicit selection must name
// registered channels only.
func (s *SalesSyncService) resolveAdapters(selector string) ([]channel.Adapter, error) {
	channels, err := warehouse.ParseChannels(selector)
	if err != nil {
		return nil, err
	}
	trimmed := strings.ToLower(strings.TrimSpace(selector))
	if trimmed == "" || trimmed == "all" {
		channels = s.registry.Channels()
	}
	return s.registry.Resolve(channels)
}

// fetchAll fetches every channel concurrently. A channel failure is
// recorded in its outcome and does not abort the others.
func (s *SalesSyncService) fetchAll(ctx context.Context, adapters []channel.Adapter, win calendar.Window) ([]*warehouse.LineItemRecord, []ChannelOutcome) {
	perChannel := make([][]*warehouse.LineItemRecord, len(adapters))
	outcomes := make([]ChannelOutcome, len(adapters))

	var wg sync.WaitGroup
	for i, adapter := range adapters {
		wg.Add(1)
		go func(i int, adapter channel.Adapter) {
			defer wg.Done()
			ch := adapter.Channel()
			outcomes[i].Channel = ch

			chCtx, chLog := logger.WithChannel(ctx, logger.FromContext(ctx), string(ch))
			records, err := adapter.FetchLineItems(chCtx, win)
			if err != nil {
				outcomes[i].Error = err.Error()
				chLog.Error("channel fetch failed", zap.Error(err))
				return
			}
			perChannel[i] = records
			outcomes[i].Fetched = len(records)
			chLog.Info("channel fetch finished", zap.Int("records", len(records)))
		}(i, adapter)
	}
	wg.Wait()

	// Flatten in adapter order so output is deterministic
	var records []*warehouse.LineItemRecord
	for _, batch := range perChannel {
		records = append(records, batch...)
	}
	return records, outcomes
}

// loadExistingKeys reads the identity columns of Sales_Fact once and zips
// them into the dedup key set.
func (s *SalesSyncService) loadExistingKeys(ctx context.Context) (map[string]bool, error) {
	channels, err := s.sink.ReadColumn(ctx, warehouse.SalesFactTable, "channel")
	if err != nil {
		return nil, err
	}
	orderIDs, err := s.sink.ReadColumn(ctx, warehouse.SalesFactTable, "order_id")
	if err != nil {
		return nil, err
	}
	lineIDs, err := s.sink.ReadColumn(ctx, warehouse.SalesFactTable, "line_id")
	if err != nil {
		return nil, err
	}

	keys := make(map[string]bool, len(channels))
	for i := range channels {
		if i >= len(orderIDs) || i >= len(lineIDs) {
			break
		}
		keys[warehouse.MakeDedupKey(channels[i], orderIDs[i], lineIDs[i])] = true
	}
	return keys, nil
}
