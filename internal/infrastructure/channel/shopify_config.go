package channel

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ShopifyConfig holds configuration for the Shopify Admin REST API
type ShopifyConfig struct {
	// ShopDomain is the myshopify domain, e.g. "acme.myshopify.com"
	ShopDomain string
	// AccessToken is the Admin API access token
	AccessToken string
	// APIVersion is the Admin API version, e.g. "2024-01"
	APIVersion string
	// PageSize is the orders page size, capped at 250 by Shopify
	PageSize int
	// FeeRate and FeeFixed estimate the payment-processing fee for an
	// order: FeeRate times the order gross plus FeeFixed, allocated
	// across the order's lines by gross share
	FeeRate  decimal.Decimal
	FeeFixed decimal.Decimal
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// BaseURL overrides the https://<shop domain> base; used in tests
	BaseURL string
}

// Errors for Shopify configuration
var (
	ErrShopifyConfigMissingDomain = errors.New("shopify: shop domain is required")
	ErrShopifyConfigMissingToken  = errors.New("shopify: access token is required")
)

// NewShopifyConfig creates a new Shopify configuration with defaults
func NewShopifyConfig(shopDomain, accessToken string) *ShopifyConfig {
	return &ShopifyConfig{
		ShopDomain:     shopDomain,
		AccessToken:    accessToken,
		APIVersion:     "2024-01",
		PageSize:       250,
		FeeRate:        decimal.NewFromFloat(0.029),
		FeeFixed:       decimal.NewFromFloat(0.30),
		TimeoutSeconds: 30,
	}
}

// Validate validates the Shopify configuration
func (c *ShopifyConfig) Validate() error {
	if c.ShopDomain == "" {
		return ErrShopifyConfigMissingDomain
	}
	if c.AccessToken == "" {
		return ErrShopifyConfigMissingToken
	}
	if c.APIVersion == "" {
		c.APIVersion = "2024-01"
	}
	if c.PageSize <= 0 || c.PageSize > 250 {
		c.PageSize = 250
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}

// apiBaseURL returns the Admin API base URL
func (c *ShopifyConfig) apiBaseURL() string {
	if c.BaseURL != "" {
		return strings.TrimSuffix(c.BaseURL, "/")
	}
	return fmt.Sprintf("https://%s", c.ShopDomain)
}

// ordersURL returns the orders collection endpoint
func (c *ShopifyConfig) ordersURL() string {
	return fmt.Sprintf("%s/admin/api/%s/orders.json", c.apiBaseURL(), c.APIVersion)
}
