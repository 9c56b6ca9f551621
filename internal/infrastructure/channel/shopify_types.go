package channel

// ShopifyOrdersResponse is the body of GET /admin/api/{version}/orders.json
type ShopifyOrdersResponse struct {
	Orders []ShopifyOrder `json:"orders"`
}

// ShopifyOrder is one order as returned by the Admin REST API
type ShopifyOrder struct {
	ID                    int64                 `json:"id"`
	Name                  string                `json:"name"`
	CreatedAt             string                `json:"created_at"`
	Currency              string                `json:"currency"`
	TotalDiscounts        string                `json:"total_discounts"`
	TotalTax              string                `json:"total_tax"`
	TotalShippingPriceSet *ShopifyPriceSet      `json:"total_shipping_price_set"`
	LineItems             []ShopifyLineItem     `json:"line_items"`
	ShippingLines         []ShopifyShippingLine `json:"shipping_lines"`
	Refunds               []ShopifyRefund       `json:"refunds"`
	Customer              *ShopifyCustomer      `json:"customer"`
	ShippingAddress       *ShopifyAddress       `json:"shipping_address"`
	BillingAddress        *ShopifyAddress       `json:"billing_address"`
}

// ShopifyPriceSet wraps an amount in shop and presentment currencies
type ShopifyPriceSet struct {
	ShopMoney ShopifyMoney `json:"shop_money"`
}

// ShopifyMoney is a money value from a price set
type ShopifyMoney struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currency_code"`
}

// ShopifyLineItem is one line of an order
type ShopifyLineItem struct {
	ID                  int64                       `json:"id"`
	SKU                 string                      `json:"sku"`
	Title               string                      `json:"title"`
	Quantity            int64                       `json:"quantity"`
	Price               string                      `json:"price"`
	TotalDiscount       string                      `json:"total_discount"`
	DiscountAllocations []ShopifyDiscountAllocation `json:"discount_allocations"`
}

// ShopifyDiscountAllocation is a discount amount applied to a line item
type ShopifyDiscountAllocation struct {
	Amount string `json:"amount"`
}

// ShopifyShippingLine is one shipping charge on an order
type ShopifyShippingLine struct {
	Title string `json:"title"`
	Price string `json:"price"`
}

// ShopifyRefund groups refunded line items
type ShopifyRefund struct {
	ID              int64                   `json:"id"`
	RefundLineItems []ShopifyRefundLineItem `json:"refund_line_items"`
}

// ShopifyRefundLineItem is one refunded line with its amounts
type ShopifyRefundLineItem struct {
	LineItemID int64  `json:"line_item_id"`
	Quantity   int64  `json:"quantity"`
	Subtotal   string `json:"subtotal"`
	TotalTax   string `json:"total_tax"`
}

// ShopifyCustomer is the order's customer record
type ShopifyCustomer struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// ShopifyAddress is a customer address on an order
type ShopifyAddress struct {
	City        string `json:"city"`
	Province    string `json:"province_code"`
	CountryCode string `json:"country_code"`
	Zip         string `json:"zip"`
}
