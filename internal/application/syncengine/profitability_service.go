package syncengine

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/salespipe/backend/internal/domain/warehouse"
	"github.com/salespipe/backend/internal/infrastructure/logger"
	"github.com/salespipe/backend/internal/infrastructure/telemetry"
)

var hundred = decimal.NewFromInt(100)

// ProfitabilityService recomputes the Model_Profitability table from the
// current Sales_Fact and Model_Costs contents. The rewrite is
// deterministic: the same inputs always produce the same table.
type ProfitabilityService struct {
	sink warehouse.Sink
}

// NewProfitabilityService creates a new ProfitabilityService
func NewProfitabilityService(sink warehouse.Sink) *ProfitabilityService {
	return &ProfitabilityService{sink: sink}
}

// Recompute rebuilds Model_Profitability and returns an aggregate report
func (s *ProfitabilityService) Recompute(ctx context.Context) (report *ProfitabilityReport, err error) {
	ctx, span := telemetry.StartSpan(ctx, "profitability.recompute")
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()
	log := logger.L(ctx)

	costRows, err := s.sink.ReadRows(ctx, warehouse.ModelCostsTable)
	if err != nil {
		return nil, fmt.Errorf("profitability: read costs: %w", err)
	}
	costs := warehouse.CostTableFromRows(costRows)

	factRows, err := s.sink.ReadRows(ctx, warehouse.SalesFactTable)
	if err != nil {
		return nil, fmt.Errorf("profitability: read sales: %w", err)
	}

	records := make([]warehouse.ProfitabilityRecord, 0, len(factRows))
	rows := make([][]string, 0, len(factRows))
	for i, cells := range factRows {
		item, err := warehouse.LineItemFromRow(cells)
		if err != nil {
			log.Warn("skipping malformed sales row", zap.Int("row", i), zap.Error(err))
			continue
		}
		rec := warehouse.ComputeProfitability(item, costs)
		records = append(records, rec)
		rows = append(rows, rec.Row())
	}

	if err := s.sink.ClearTable(ctx, warehouse.ModelProfitabilityTable); err != nil {
		return nil, fmt.Errorf("profitability: clear: %w", err)
	}
	if err := s.sink.AppendRows(ctx, warehouse.ModelProfitabilityTable, rows); err != nil {
		return nil, fmt.Errorf("profitability: write: %w", err)
	}

	report = buildProfitabilityReport(records)
	log.Info("profitability recomputed",
		zap.Int("rows", report.Rows),
		zap.Int("unknown_cost_skus", report.UnknownCostSKU),
		zap.String("revenue", report.Revenue.StringFixed(2)),
		zap.String("net_profit", report.NetProfit.StringFixed(2)))
	return report, nil
}

func buildProfitabilityReport(records []warehouse.ProfitabilityRecord) *ProfitabilityReport {
	summary := warehouse.SummarizeProfitability(records)
	report := &ProfitabilityReport{
		Rows:           summary.Rows,
		UnknownCostSKU: summary.UnknownCostSKU,
		Revenue:        summary.Revenue,
		TotalCost:      summary.TotalCost,
		TotalFees:      summary.TotalFees,
		NetProfit:      summary.NetProfit,
	}

	byChannel := make(map[warehouse.Channel]*ChannelProfitability)
	for _, rec := range records {
		agg, ok := byChannel[rec.Channel]
		if !ok {
			agg = &ChannelProfitability{Channel: rec.Channel}
			byChannel[rec.Channel] = agg
		}
		agg.Rows++
		agg.Revenue = agg.Revenue.Add(rec.Revenue)
		agg.TotalFees = agg.TotalFees.Add(rec.TotalFees)
		agg.NetProfit = agg.NetProfit.Add(rec.NetProfit)
	}

	for _, agg := range byChannel {
		if !agg.Revenue.IsZero() {
			agg.MarginPct = agg.NetProfit.Div(agg.Revenue).Mul(hundred).Round(2)
		}
		report.ByChannel = append(report.ByChannel, *agg)
	}
	sort.Slice(report.ByChannel, func(i, j int) bool {
		return report.ByChannel[i].Channel < report.ByChannel[j].Channel
	})
	return report
}
