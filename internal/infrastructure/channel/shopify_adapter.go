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
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/salespipe/backend/internal/domain/calendar"
	"github.com/salespipe/backend/internal/domain/channel"
	"github.com/salespipe/backend/internal/domain/warehouse"
	"github.com/salespipe/backend/internal/infrastructure/logger"
)

// maxResponseSize is the maximum allowed response size from a channel API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// ShopifyAdapter implements the channel.Adapter interface for Shopify
type ShopifyAdapter struct {
	config     *ShopifyConfig
	httpClient *http.Client
}

// NewShopifyAdapter creates a new Shopify adapter with the given configuration
func NewShopifyAdapter(config *ShopifyConfig) (*ShopifyAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &ShopifyAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// Channel returns the sales channel this adapter serves
func (a *ShopifyAdapter) Channel() warehouse.Channel {
	return warehouse.ChannelShopify
}

// FetchLineItems pulls every order created inside the window and normalizes
// each order line into a canonical record. Pagination follows the Link
// header's page_info cursor to exhaustion.
func (a *ShopifyAdapter) FetchLineItems(ctx context.Context, win calendar.Window) ([]*warehouse.LineItemRecord, error) {
	var records []*warehouse.LineItemRecord

	params := url.Values{}
	params.Set("status", "any")
	params.Set("limit", strconv.Itoa(a.config.PageSize))
	params.Set("created_at_min", win.Start.Format(time.RFC3339))
	params.Set("created_at_max", win.End.Format(time.RFC3339))

	requestURL := a.config.ordersURL() + "?" + params.Encode()

	for requestURL != "" {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, linkHeader, err := a.doRequest(ctx, requestURL)
		if err != nil {
			return nil, err
		}

		var page ShopifyOrdersResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("%w: shopify orders: %v", channel.ErrInvalidResponse, err)
		}

		for i := range page.Orders {
			records = append(records, a.normalizeOrder(ctx, &page.Orders[i])...)
		}

		requestURL = nextPageURL(linkHeader)
	}

	return records, nil
}

// doRequest performs a GET against the Admin API and returns the body and
// the Link header used for cursor pagination.
func (a *ShopifyAdapter) doRequest(ctx context.Context, requestURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("shopify: failed to create request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", a.config.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", channel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, "", fmt.Errorf("shopify: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, "", fmt.Errorf("%w: HTTP %d", channel.ErrRequestFailed, resp.StatusCode)
	}

	return body, resp.Header.Get("Link"), nil
}

// nextPageURL extracts the rel="next" URL from a Shopify Link header,
// returning "" on the last page.
func nextPageURL(linkHeader string) string {
	for _, part := range strings.Split(linkHeader, ",") {
		section := strings.Split(part, ";")
		if len(section) < 2 {
			continue
		}
		if !strings.Contains(section[1], `rel="next"`) {
			continue
		}
		link := strings.TrimSpace(section[0])
		link = strings.TrimPrefix(link, "<")
		link = strings.TrimSuffix(link, ">")
		return link
	}
	return ""
}

// normalizeOrder converts one Shopify order into canonical line-item records.
// Order-level tax and shipping are replicated onto every line rather than
// allocated, so each row carries the full order amounts.
func (a *ShopifyAdapter) normalizeOrder(ctx context.Context, order *ShopifyOrder) []*warehouse.LineItemRecord {
	orderDate, ok := calendar.ParseOrderDate(order.CreatedAt)
	if !ok {
		orderDate = time.Now().UTC()
		logger.L(ctx).Warn("shopify order has unparseable created_at, using today",
			zap.Int64("order_id", order.ID),
			zap.String("created_at", order.CreatedAt))
	}

	currency := warehouse.NormalizeCurrency(order.Currency)

	orderGross := decimal.Zero
	lineGross := make([]decimal.Decimal, len(order.LineItems))
	for i := range order.LineItems {
		line := &order.LineItems[i]
		lineGross[i] = warehouse.ParseDecimal(line.Price).Mul(decimal.NewFromInt(line.Quantity))
		orderGross = orderGross.Add(lineGross[i])
	}

	orderTax := warehouse.ParseDecimal(order.TotalTax).Abs()

	orderShipping := decimal.Zero
	if order.TotalShippingPriceSet != nil {
		orderShipping = warehouse.ParseDecimal(order.TotalShippingPriceSet.ShopMoney.Amount).Abs()
	}
	if orderShipping.IsZero() {
		for _, s := range order.ShippingLines {
			orderShipping = orderShipping.Add(warehouse.ParseDecimal(s.Price).Abs())
		}
	}

	// Estimated payment-processing fee for the whole order, allocated to
	// lines by gross share below
	orderFee := a.config.FeeRate.Mul(orderGross).Add(a.config.FeeFixed)
	if orderGross.IsZero() {
		orderFee = decimal.Zero
	}

	refundByLine := make(map[int64]decimal.Decimal)
	for _, refund := range order.Refunds {
		for _, rl := range refund.RefundLineItems {
			amount := warehouse.ParseDecimal(rl.Subtotal).Abs().
				Add(warehouse.ParseDecimal(rl.TotalTax).Abs())
			refundByLine[rl.LineItemID] = refundByLine[rl.LineItemID].Add(amount)
		}
	}

	region := "US"
	customer := warehouse.CustomerAttrs{}
	address := order.ShippingAddress
	if address == nil {
		address = order.BillingAddress
	}
	if address != nil {
		if address.CountryCode != "" {
			region = address.CountryCode
		}
		customer.City = address.City
		customer.Region = address.Province
		customer.Country = address.CountryCode
		customer.Zip = address.Zip
	}
	if order.Customer != nil {
		customer.ID = strconv.FormatInt(order.Customer.ID, 10)
		customer.Email = order.Customer.Email
		customer.Name = strings.TrimSpace(order.Customer.FirstName + " " + order.Customer.LastName)
	}

	records := make([]*warehouse.LineItemRecord, 0, len(order.LineItems))
	for i := range order.LineItems {
		line := &order.LineItems[i]

		discount := decimal.Zero
		for _, alloc := range line.DiscountAllocations {
			discount = discount.Add(warehouse.ParseDecimal(alloc.Amount).Abs())
		}
		if discount.IsZero() {
			discount = warehouse.ParseDecimal(line.TotalDiscount).Abs()
		}

		share := decimal.Zero
		if !orderGross.IsZero() {
			share = lineGross[i].Div(orderGross)
		}

		rec := &warehouse.LineItemRecord{
			Channel:      warehouse.ChannelShopify,
			OrderID:      strconv.FormatInt(order.ID, 10),
			LineID:       strconv.FormatInt(line.ID, 10),
			SKU:          line.SKU,
			Title:        line.Title,
			Qty:          line.Quantity,
			ItemGross:    lineGross[i],
			ItemDiscount: discount,
			Shipping:     orderShipping,
			Tax:          orderTax,
			Refund:       refundByLine[line.ID],
			Fees: warehouse.FeeBreakdown{
				Transaction: orderFee.Mul(share),
			},
			Currency: currency,
			Region:   region,
			Customer: customer,
		}
		rec.SetDate(orderDate)
		records = append(records, rec)
	}

	return records
}

// Ensure ShopifyAdapter implements the channel adapter interface
var _ channel.Adapter = (*ShopifyAdapter)(nil)
