package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/salespipe/backend/internal/domain/calendar"
	"github.com/salespipe/backend/internal/domain/channel"
	"github.com/salespipe/backend/internal/domain/warehouse"
	"github.com/salespipe/backend/internal/infrastructure/logger"
)

// AmazonAdapter implements the channel.Adapter interface for the Amazon
// Selling Partner API. It also provides FBA inventory snapshots.
type AmazonAdapter struct {
	config     *AmazonConfig
	httpClient *http.Client
	auth       *amazonAuthenticator
}

// NewAmazonAdapter creates a new Amazon adapter with the given configuration
func NewAmazonAdapter(config *AmazonConfig) (*AmazonAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	httpClient := &http.Client{
		Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
	}
	return &AmazonAdapter{
		config:     config,
		httpClient: httpClient,
		auth:       newAmazonAuthenticator(config, httpClient),
	}, nil
}

// Channel returns the sales channel this adapter serves
func (a *AmazonAdapter) Channel() warehouse.Channel {
	return warehouse.ChannelAmazon
}

// FetchLineItems pulls every order created inside the window, then loads
// each order's items and financial events. Per-order calls run through a
// worker pool capped by ItemConcurrency, default 1: the order-items and
// finances APIs throttle aggressively and parallel calls trip their rate
// limits. A failure on one order is logged and that order skipped, so a
// single bad order cannot abort the whole channel fetch.
func (a *AmazonAdapter) FetchLineItems(ctx context.Context, win calendar.Window) ([]*warehouse.LineItemRecord, error) {
	orders, err := a.fetchOrders(ctx, win)
	if err != nil {
		return nil, err
	}

	perOrder := make([][]*warehouse.LineItemRecord, len(orders))
	sem := make(chan struct{}, a.config.ItemConcurrency)
	var wg sync.WaitGroup

	for i := range orders {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			order := &orders[i]

			items, err := a.fetchOrderItems(ctx, order.AmazonOrderID)
			if err != nil {
				logger.L(ctx).Warn("skipping amazon order, item fetch failed",
					zap.String("order_id", order.AmazonOrderID),
					zap.Error(err))
				return
			}

			fees, refunds, err := a.fetchOrderFinances(ctx, order.AmazonOrderID)
			if err != nil {
				logger.L(ctx).Warn("skipping amazon order, finances fetch failed",
					zap.String("order_id", order.AmazonOrderID),
					zap.Error(err))
				return
			}

			perOrder[i] = a.normalizeOrder(ctx, order, items, fees, refunds)
		}(i)
	}
	wg.Wait()

	var records []*warehouse.LineItemRecord
	for _, recs := range perOrder {
		records = append(records, recs...)
	}
	return records, nil
}

// fetchOrders pages through the Orders API for the window
func (a *AmazonAdapter) fetchOrders(ctx context.Context, win calendar.Window) ([]AmazonOrder, error) {
	var orders []AmazonOrder
	nextToken := ""

	for {
		params := url.Values{}
		if nextToken != "" {
			params.Set("NextToken", nextToken)
		} else {
			params.Set("MarketplaceIds", a.config.MarketplaceID)
			params.Set("CreatedAfter", win.Start.Format(time.RFC3339))
			params.Set("CreatedBefore", win.End.Format(time.RFC3339))
			params.Set("MaxResultsPerPage", strconv.Itoa(a.config.PageSize))
		}

		body, err := a.doRequest(ctx, "/orders/v0/orders", params)
		if err != nil {
			return nil, err
		}

		var page AmazonOrdersResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("%w: amazon orders: %v", channel.ErrInvalidResponse, err)
		}

		orders = append(orders, page.Payload.Orders...)
		nextToken = page.Payload.NextToken
		if nextToken == "" {
			return orders, nil
		}
	}
}

// fetchOrderItems pages through one order's items
func (a *AmazonAdapter) fetchOrderItems(ctx context.Context, orderID string) ([]AmazonOrderItem, error) {
	var items []AmazonOrderItem
	nextToken := ""

	for {
		params := url.Values{}
		if nextToken != "" {
			params.Set("NextToken", nextToken)
		}

		path := fmt.Sprintf("/orders/v0/orders/%s/orderItems", url.PathEscape(orderID))
		body, err := a.doRequest(ctx, path, params)
		if err != nil {
			return nil, err
		}

		var page AmazonOrderItemsResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("%w: amazon order items: %v", channel.ErrInvalidResponse, err)
		}

		items = append(items, page.Payload.OrderItems...)
		nextToken = page.Payload.NextToken
		if nextToken == "" {
			return items, nil
		}
	}
}

// fetchOrderFinances loads the order's fee breakdown and refund totals from
// the Finances API. Pages are paced by the configured delay because this
// API has the tightest rate limit of the three.
func (a *AmazonAdapter) fetchOrderFinances(ctx context.Context, orderID string) (warehouse.FeeBreakdown, map[string]decimal.Decimal, error) {
	var fees warehouse.FeeBreakdown
	refunds := make(map[string]decimal.Decimal)
	nextToken := ""
	first := true

	for {
		if !first {
			if err := sleepCtx(ctx, a.config.PageDelay); err != nil {
				return fees, refunds, err
			}
		}
		first = false

		params := url.Values{}
		if nextToken != "" {
			params.Set("NextToken", nextToken)
		}

		path := fmt.Sprintf("/finances/v0/orders/%s/financialEvents", url.PathEscape(orderID))
		body, err := a.doRequest(ctx, path, params)
		if err != nil {
			return fees, refunds, err
		}

		var page AmazonFinancialEventsResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return fees, refunds, fmt.Errorf("%w: amazon finances: %v", channel.ErrInvalidResponse, err)
		}

		for _, event := range page.Payload.FinancialEvents.ShipmentEventList {
			for _, item := range event.ShipmentItemList {
				accumulateFees(&fees, item.ItemFeeList)
			}
		}
		for _, event := range page.Payload.FinancialEvents.RefundEventList {
			for _, item := range event.ShipmentItemAdjustmentList {
				amount := decimal.Zero
				for _, charge := range item.ItemChargeList {
					amount = amount.Add(warehouse.ParseDecimal(charge.ChargeAmount.Amount).Abs())
				}
				refunds[item.OrderItemID] = refunds[item.OrderItemID].Add(amount)
			}
		}

		nextToken = page.Payload.NextToken
		if nextToken == "" {
			return fees, refunds, nil
		}
	}
}

// accumulateFees folds fee entries into the breakdown by category.
// Magnitudes are absolute: Amazon reports fees as negative amounts.
func accumulateFees(fees *warehouse.FeeBreakdown, entries []AmazonFeeEntry) {
	for _, entry := range entries {
		amount := warehouse.ParseDecimal(entry.FeeAmount.Amount).Abs()
		switch categorizeFee(entry.FeeType) {
		case "fulfillment":
			fees.Fulfillment = fees.Fulfillment.Add(amount)
		case "referral":
			fees.Referral = fees.Referral.Add(amount)
		case "storage":
			fees.Storage = fees.Storage.Add(amount)
		default:
			fees.Other = fees.Other.Add(amount)
		}
	}
}

// categorizeFee maps an Amazon fee type name to a fee category
func categorizeFee(feeType string) string {
	switch {
	case strings.Contains(feeType, "FBA"), strings.Contains(feeType, "Fulfillment"):
		return "fulfillment"
	case strings.Contains(feeType, "Commission"), strings.Contains(feeType, "Referral"):
		return "referral"
	case strings.Contains(feeType, "Storage"):
		return "storage"
	default:
		return "other"
	}
}

// normalizeOrder converts one Amazon order into canonical line-item records.
// Order-level fees are allocated to lines proportionally by gross share.
// Customer identity fields stay empty: Amazon withholds buyer PII, so only
// the shipping address contributes attributes.
func (a *AmazonAdapter) normalizeOrder(ctx context.Context, order *AmazonOrder, items []AmazonOrderItem, fees warehouse.FeeBreakdown, refunds map[string]decimal.Decimal) []*warehouse.LineItemRecord {
	orderDate, ok := calendar.ParseOrderDate(order.PurchaseDate)
	if !ok {
		orderDate = time.Now().UTC()
		logger.L(ctx).Warn("amazon order has unparseable purchase date, using today",
			zap.String("order_id", order.AmazonOrderID),
			zap.String("purchase_date", order.PurchaseDate))
	}

	currency := "USD"
	if order.OrderTotal != nil {
		currency = warehouse.NormalizeCurrency(order.OrderTotal.CurrencyCode)
	}

	region := "US"
	customer := warehouse.CustomerAttrs{}
	if addr := order.ShippingAddress; addr != nil {
		if addr.CountryCode != "" {
			region = addr.CountryCode
		}
		customer.City = addr.City
		customer.Region = addr.StateOrRegion
		customer.Country = addr.CountryCode
		customer.Zip = addr.PostalCode
	}

	orderGross := decimal.Zero
	lineGross := make([]decimal.Decimal, len(items))
	for i := range items {
		lineGross[i] = moneyAmount(items[i].ItemPrice)
		orderGross = orderGross.Add(lineGross[i])
	}

	records := make([]*warehouse.LineItemRecord, 0, len(items))
	for i := range items {
		item := &items[i]

		share := decimal.Zero
		if !orderGross.IsZero() {
			share = lineGross[i].Div(orderGross)
		}

		if item.ItemPrice != nil && item.ItemPrice.CurrencyCode != "" {
			currency = warehouse.NormalizeCurrency(item.ItemPrice.CurrencyCode)
		}

		rec := &warehouse.LineItemRecord{
			Channel:      warehouse.ChannelAmazon,
			OrderID:      order.AmazonOrderID,
			LineID:       item.OrderItemID,
			SKU:          item.SellerSKU,
			Title:        item.Title,
			Qty:          item.QuantityOrdered,
			ItemGross:    lineGross[i],
			ItemDiscount: moneyAmount(item.PromotionDiscount),
			Shipping:     moneyAmount(item.ShippingPrice),
			Tax:          moneyAmount(item.ItemTax).Add(moneyAmount(item.ShippingTax)),
			Refund:       refunds[item.OrderItemID],
			Fees:         fees.Scale(share),
			Currency:     currency,
			Region:       region,
			Customer:     customer,
		}
		rec.SetDate(orderDate)
		records = append(records, rec)
	}
	return records
}

// FetchInventory pages through the FBA inventory summaries for the
// configured marketplace.
func (a *AmazonAdapter) FetchInventory(ctx context.Context) ([]*warehouse.InventoryRecord, error) {
	var records []*warehouse.InventoryRecord
	snapshot := time.Now().UTC()
	nextToken := ""
	first := true

	for {
		if !first {
			if err := sleepCtx(ctx, a.config.PageDelay); err != nil {
				return nil, err
			}
		}
		first = false

		params := url.Values{}
		params.Set("granularityType", "Marketplace")
		params.Set("granularityId", a.config.MarketplaceID)
		params.Set("marketplaceIds", a.config.MarketplaceID)
		params.Set("details", "true")
		if nextToken != "" {
			params.Set("nextToken", nextToken)
		}

		body, err := a.doRequest(ctx, "/fba/inventory/v1/summaries", params)
		if err != nil {
			return nil, err
		}

		var page AmazonInventoryResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("%w: amazon inventory: %v", channel.ErrInvalidResponse, err)
		}

		for _, summary := range page.Payload.InventorySummaries {
			rec := &warehouse.InventoryRecord{
				SnapshotDate: snapshot,
				SKU:          summary.SellerSKU,
				ASIN:         summary.ASIN,
				FNSKU:        summary.FNSKU,
				ProductName:  summary.ProductName,
				Condition:    summary.Condition,
				TotalQty:     summary.TotalQuantity,
			}
			if d := summary.InventoryDetails; d != nil {
				rec.FulfillableQty = d.FulfillableQuantity
				rec.InboundQty = d.InboundWorkingQuantity + d.InboundShippedQuantity
				if d.ReservedQuantity != nil {
					rec.ReservedQty = d.ReservedQuantity.TotalReservedQuantity
				}
			}
			records = append(records, rec)
		}

		if page.Pagination == nil || page.Pagination.NextToken == "" {
			return records, nil
		}
		nextToken = page.Pagination.NextToken
	}
}

// doRequest performs a GET against the SP-API and returns the body
func (a *AmazonAdapter) doRequest(ctx context.Context, path string, params url.Values) ([]byte, error) {
	requestURL := a.config.Endpoint + path
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("amazon: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	if err := a.auth.Authorize(ctx, req); err != nil {
		return nil, err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", channel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("amazon: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d on %s", channel.ErrRequestFailed, resp.StatusCode, path)
	}

	return body, nil
}

// moneyAmount returns the absolute amount of an optional money value
func moneyAmount(m *AmazonMoney) decimal.Decimal {
	if m == nil {
		return decimal.Zero
	}
	return warehouse.ParseDecimal(m.Amount).Abs()
}

// sleepCtx pauses for d or until the context is cancelled
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Ensure AmazonAdapter implements the channel interfaces
var (
	_ channel.Adapter           = (*AmazonAdapter)(nil)
	_ channel.InventoryProvider = (*AmazonAdapter)(nil)
)
