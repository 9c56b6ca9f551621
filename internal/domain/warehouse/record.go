package warehouse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/salespipe/backend/internal/domain/calendar"
)

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

var (
	// ErrUnknownChannel indicates a channel name that is not Shopify or Amazon
	ErrUnknownChannel = errors.New("warehouse: unknown sales channel")
	// ErrInvalidRecord indicates a line-item record that fails validation
	ErrInvalidRecord = errors.New("warehouse: invalid line item record")
	// ErrMalformedRow indicates a sink row that cannot be decoded into a record
	ErrMalformedRow = errors.New("warehouse: malformed sink row")
)

// ---------------------------------------------------------------------------
// Channel
// ---------------------------------------------------------------------------

// Channel identifies the sales source a record originated from
type Channel string

const (
	// ChannelShopify is the Shopify storefront
	ChannelShopify Channel = "Shopify"
	// ChannelAmazon is the Amazon marketplace
	ChannelAmazon Channel = "Amazon"
)

// IsValid returns true if the channel is a known sales source
func (c Channel) IsValid() bool {
	switch c {
	case ChannelShopify, ChannelAmazon:
		return true
	default:
		return false
	}
}

// String returns the string representation of Channel
func (c Channel) String() string {
	return string(c)
}

// AllChannels returns every supported sales channel
func AllChannels() []Channel {
	return []Channel{ChannelShopify, ChannelAmazon}
}

// ParseChannels resolves a channel selector ("all" or a comma-separated
// list, case-insensitive) into a channel set.
func ParseChannels(selector string) ([]Channel, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" || strings.EqualFold(selector, "all") {
		return AllChannels(), nil
	}

	seen := make(map[Channel]bool)
	var channels []Channel
	for _, part := range strings.Split(selector, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var ch Channel
		switch strings.ToLower(part) {
		case "shopify":
			ch = ChannelShopify
		case "amazon":
			ch = ChannelAmazon
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, part)
		}
		if !seen[ch] {
			seen[ch] = true
			channels = append(channels, ch)
		}
	}
	if len(channels) == 0 {
		return AllChannels(), nil
	}
	return channels, nil
}

// NormalizeCurrency validates a currency code against ISO 4217 and returns
// the canonical upper-case form. Absent or unknown codes become "USD".
func NormalizeCurrency(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return "USD"
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "USD"
	}
	return unit.String()
}

// ---------------------------------------------------------------------------
// Fee breakdown
// ---------------------------------------------------------------------------

// FeeBreakdown holds per-line marketplace fees by category. All magnitudes
// are non-negative regardless of the sign the source reported.
type FeeBreakdown struct {
	Fulfillment decimal.Decimal
	Referral    decimal.Decimal
	Transaction decimal.Decimal
	Storage     decimal.Decimal
	Other       decimal.Decimal
}

// Total returns the sum of the five fee categories
func (f FeeBreakdown) Total() decimal.Decimal {
	return f.Fulfillment.Add(f.Referral).Add(f.Transaction).Add(f.Storage).Add(f.Other)
}

// Scale returns a copy of the breakdown with every category multiplied by
// ratio. Used to allocate an order-level breakdown across its lines.
func (f FeeBreakdown) Scale(ratio decimal.Decimal) FeeBreakdown {
	return FeeBreakdown{
		Fulfillment: f.Fulfillment.Mul(ratio),
		Referral:    f.Referral.Mul(ratio),
		Transaction: f.Transaction.Mul(ratio),
		Storage:     f.Storage.Mul(ratio),
		Other:       f.Other.Mul(ratio),
	}
}

// ---------------------------------------------------------------------------
// Customer attributes
// ---------------------------------------------------------------------------

// CustomerAttrs holds optional, channel-dependent customer fields.
// Amazon never supplies identity fields; only the address-derived ones
// are populated for Amazon records.
type CustomerAttrs struct {
	ID      string
	Email   string
	Name    string
	City    string
	Region  string
	Country string
	Zip     string
}

// ---------------------------------------------------------------------------
// LineItemRecord
// ---------------------------------------------------------------------------

// LineItemRecord is the canonical unit of sale: one row per order line item,
// normalized across channels.
type LineItemRecord struct {
	// Date is the calendar date derived from the order's creation timestamp
	Date time.Time
	// Channel identifies the sales source
	Channel Channel
	// OrderID and LineID are source-native identifiers coerced to strings
	OrderID string
	LineID  string

	SKU   string
	Title string
	Qty   int64

	// Monetary fields in the order's native currency, all non-negative
	ItemGross    decimal.Decimal
	ItemDiscount decimal.Decimal
	Shipping     decimal.Decimal
	Tax          decimal.Decimal
	Refund       decimal.Decimal

	Fees FeeBreakdown

	// Currency is an ISO 4217 code, "USD" when the source omits one
	Currency string
	// Region is the customer-facing country code, "US" when absent
	Region string

	// Time-partition fields, always derived from Date
	ISOWeek  int
	ISOYear  int
	YearWeek string
	Quarter  int

	Customer CustomerAttrs
}

// SetDate assigns the record's calendar date and recomputes the derived
// time-partition fields from it.
func (r *LineItemRecord) SetDate(t time.Time) {
	r.Date = t
	r.ISOYear, r.ISOWeek = calendar.ISOWeek(t)
	r.YearWeek = calendar.YearWeek(t)
	r.Quarter = calendar.Quarter(t)
}

// TotalFees returns the eagerly-computed sum of the five fee categories
func (r *LineItemRecord) TotalFees() decimal.Decimal {
	return r.Fees.Total()
}

// DedupKey returns the stable identity of this record. The tuple
// (channel, orderId, lineId) is globally unique and survives repeated
// syncs of overlapping windows.
func (r *LineItemRecord) DedupKey() string {
	return MakeDedupKey(string(r.Channel), r.OrderID, r.LineID)
}

// MakeDedupKey builds a dedup key from its raw components
func MakeDedupKey(channel, orderID, lineID string) string {
	return channel + "|" + orderID + "|" + lineID
}

// Validate checks the structural invariants of a record
func (r *LineItemRecord) Validate() error {
	if !r.Channel.IsValid() {
		return fmt.Errorf("%w: channel %q", ErrInvalidRecord, r.Channel)
	}
	if r.OrderID == "" || r.LineID == "" {
		return fmt.Errorf("%w: missing order or line identifier", ErrInvalidRecord)
	}
	if r.Qty < 0 {
		return fmt.Errorf("%w: negative quantity", ErrInvalidRecord)
	}
	if r.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidRecord)
	}
	return nil
}

// Row serializes the record in SalesFactTable column order
func (r *LineItemRecord) Row() []string {
	return []string{
		r.Date.Format(calendar.DateLayout),
		string(r.Channel),
		r.OrderID,
		r.LineID,
		r.SKU,
		r.Title,
		strconv.FormatInt(r.Qty, 10),
		money(r.ItemGross),
		money(r.ItemDiscount),
		money(r.Shipping),
		money(r.Tax),
		money(r.Refund),
		money(r.Fees.Fulfillment),
		money(r.Fees.Referral),
		money(r.Fees.Transaction),
		money(r.Fees.Storage),
		money(r.Fees.Other),
		money(r.TotalFees()),
		r.Currency,
		r.Region,
		strconv.Itoa(r.ISOWeek),
		strconv.Itoa(r.ISOYear),
		r.YearWeek,
		strconv.Itoa(r.Quarter),
		r.Customer.ID,
		r.Customer.Email,
		r.Customer.Name,
		r.Customer.City,
		r.Customer.Region,
		r.Customer.Country,
		r.Customer.Zip,
	}
}

// LineItemFromRow decodes a SalesFactTable row back into a record.
// Unparseable numeric cells decode as zero; the row is rejected only when
// it is too short or its identity columns are empty.
func LineItemFromRow(cells []string) (*LineItemRecord, error) {
	if len(cells) < len(SalesFactTable.Columns) {
		return nil, fmt.Errorf("%w: expected %d cells, got %d", ErrMalformedRow, len(SalesFactTable.Columns), len(cells))
	}

	r := &LineItemRecord{
		Channel: Channel(cells[1]),
		OrderID: cells[2],
		LineID:  cells[3],
		SKU:     cells[4],
		Title:   cells[5],
	}
	if r.OrderID == "" || r.LineID == "" {
		return nil, fmt.Errorf("%w: empty identity columns", ErrMalformedRow)
	}

	if t, ok := calendar.ParseOrderDate(cells[0]); ok {
		r.SetDate(t)
	}
	r.Qty, _ = strconv.ParseInt(cells[6], 10, 64)
	r.ItemGross = ParseDecimal(cells[7])
	r.ItemDiscount = ParseDecimal(cells[8])
	r.Shipping = ParseDecimal(cells[9])
	r.Tax = ParseDecimal(cells[10])
	r.Refund = ParseDecimal(cells[11])
	r.Fees = FeeBreakdown{
		Fulfillment: ParseDecimal(cells[12]),
		Referral:    ParseDecimal(cells[13]),
		Transaction: ParseDecimal(cells[14]),
		Storage:     ParseDecimal(cells[15]),
		Other:       ParseDecimal(cells[16]),
	}
	r.Currency = NormalizeCurrency(cells[18])
	r.Region = cells[19]
	r.Customer = CustomerAttrs{
		ID:      cells[24],
		Email:   cells[25],
		Name:    cells[26],
		City:    cells[27],
		Region:  cells[28],
		Country: cells[29],
		Zip:     cells[30],
	}
	return r, nil
}

// ParseDecimal parses a monetary cell, returning zero for anything that is
// not a valid number.
func ParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// money formats a decimal for the sink with two fractional digits
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
