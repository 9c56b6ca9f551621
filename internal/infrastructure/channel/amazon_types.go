package channel

// AmazonOrdersResponse is the body of GET /orders/v0/orders
type AmazonOrdersResponse struct {
	Payload AmazonOrdersPayload `json:"payload"`
}

// AmazonOrdersPayload carries one page of orders and the pagination cursor
type AmazonOrdersPayload struct {
	Orders    []AmazonOrder `json:"Orders"`
	NextToken string        `json:"NextToken"`
}

// AmazonOrder is one order as returned by the Orders API
type AmazonOrder struct {
	AmazonOrderID   string              `json:"AmazonOrderId"`
	PurchaseDate    string              `json:"PurchaseDate"`
	OrderStatus     string              `json:"OrderStatus"`
	MarketplaceID   string              `json:"MarketplaceId"`
	OrderTotal      *AmazonMoney        `json:"OrderTotal"`
	ShippingAddress *AmazonAddress      `json:"ShippingAddress"`
	BuyerInfo       *AmazonBuyerInfo    `json:"BuyerInfo"`
}

// AmazonMoney is an amount with its currency code
type AmazonMoney struct {
	CurrencyCode string `json:"CurrencyCode"`
	Amount       string `json:"Amount"`
}

// AmazonAddress is the order's shipping destination. Amazon redacts street
// level fields; only locality fields are available.
type AmazonAddress struct {
	City          string `json:"City"`
	StateOrRegion string `json:"StateOrRegion"`
	PostalCode    string `json:"PostalCode"`
	CountryCode   string `json:"CountryCode"`
}

// AmazonBuyerInfo is the limited buyer information the API exposes
type AmazonBuyerInfo struct {
	BuyerEmail string `json:"BuyerEmail"`
}

// AmazonOrderItemsResponse is the body of GET /orders/v0/orders/{id}/orderItems
type AmazonOrderItemsResponse struct {
	Payload AmazonOrderItemsPayload `json:"payload"`
}

// AmazonOrderItemsPayload carries one page of order items and the cursor
type AmazonOrderItemsPayload struct {
	AmazonOrderID string            `json:"AmazonOrderId"`
	OrderItems    []AmazonOrderItem `json:"OrderItems"`
	NextToken     string            `json:"NextToken"`
}

// AmazonOrderItem is one line of an order
type AmazonOrderItem struct {
	OrderItemID       string       `json:"OrderItemId"`
	SellerSKU         string       `json:"SellerSKU"`
	ASIN              string       `json:"ASIN"`
	Title             string       `json:"Title"`
	QuantityOrdered   int64        `json:"QuantityOrdered"`
	ItemPrice         *AmazonMoney `json:"ItemPrice"`
	ItemTax           *AmazonMoney `json:"ItemTax"`
	ShippingPrice     *AmazonMoney `json:"ShippingPrice"`
	ShippingTax       *AmazonMoney `json:"ShippingTax"`
	PromotionDiscount *AmazonMoney `json:"PromotionDiscount"`
}

// AmazonFinancialEventsResponse is the body of GET /finances/v0/orders/{id}/financialEvents
type AmazonFinancialEventsResponse struct {
	Payload AmazonFinancialEventsPayload `json:"payload"`
}

// AmazonFinancialEventsPayload carries the order's financial event groups
type AmazonFinancialEventsPayload struct {
	FinancialEvents AmazonFinancialEvents `json:"FinancialEvents"`
	NextToken       string                `json:"NextToken"`
}

// AmazonFinancialEvents holds shipment and refund event lists
type AmazonFinancialEvents struct {
	ShipmentEventList []AmazonShipmentEvent `json:"ShipmentEventList"`
	RefundEventList   []AmazonShipmentEvent `json:"RefundEventList"`
}

// AmazonShipmentEvent is one shipment- or refund-level financial event
type AmazonShipmentEvent struct {
	AmazonOrderID       string                 `json:"AmazonOrderId"`
	ShipmentItemList    []AmazonShipmentItem   `json:"ShipmentItemList"`
	ShipmentItemAdjustmentList []AmazonShipmentItem `json:"ShipmentItemAdjustmentList"`
}

// AmazonShipmentItem is one item's charges and fees within a shipment event
type AmazonShipmentItem struct {
	SellerSKU      string            `json:"SellerSKU"`
	OrderItemID    string            `json:"OrderItemId"`
	ItemChargeList []AmazonCharge    `json:"ItemChargeList"`
	ItemFeeList    []AmazonFeeEntry  `json:"ItemFeeList"`
}

// AmazonCharge is one named charge component
type AmazonCharge struct {
	ChargeType   string      `json:"ChargeType"`
	ChargeAmount AmazonMoney `json:"ChargeAmount"`
}

// AmazonFeeEntry is one named fee component
type AmazonFeeEntry struct {
	FeeType   string      `json:"FeeType"`
	FeeAmount AmazonMoney `json:"FeeAmount"`
}

// AmazonInventoryResponse is the body of GET /fba/inventory/v1/summaries
type AmazonInventoryResponse struct {
	Payload    AmazonInventoryPayload `json:"payload"`
	Pagination *AmazonPagination      `json:"pagination"`
}

// AmazonPagination carries the inventory API cursor
type AmazonPagination struct {
	NextToken string `json:"nextToken"`
}

// AmazonInventoryPayload carries one page of inventory summaries
type AmazonInventoryPayload struct {
	InventorySummaries []AmazonInventorySummary `json:"inventorySummaries"`
}

// AmazonInventorySummary is one SKU's FBA inventory position
type AmazonInventorySummary struct {
	ASIN             string                   `json:"asin"`
	FNSKU            string                   `json:"fnSku"`
	SellerSKU        string                   `json:"sellerSku"`
	Condition        string                   `json:"condition"`
	ProductName      string                   `json:"productName"`
	TotalQuantity    int64                    `json:"totalQuantity"`
	InventoryDetails *AmazonInventoryDetails  `json:"inventoryDetails"`
}

// AmazonInventoryDetails breaks the total quantity into buckets
type AmazonInventoryDetails struct {
	FulfillableQuantity  int64                    `json:"fulfillableQuantity"`
	InboundWorkingQuantity int64                  `json:"inboundWorkingQuantity"`
	InboundShippedQuantity int64                  `json:"inboundShippedQuantity"`
	ReservedQuantity     *AmazonReservedQuantity  `json:"reservedQuantity"`
}

// AmazonReservedQuantity is inventory reserved for orders or transfers
type AmazonReservedQuantity struct {
	TotalReservedQuantity int64 `json:"totalReservedQuantity"`
}
