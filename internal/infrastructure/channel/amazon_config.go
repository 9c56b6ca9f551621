package channel

import (
	"fmt"
	"strings"
	"time"
)

// AmazonConfig holds configuration for the Amazon Selling Partner API
type AmazonConfig struct {
	// RefreshToken, ClientID and ClientSecret are the LWA credentials
	RefreshToken string
	ClientID     string
	ClientSecret string
	// MarketplaceID scopes order and inventory queries to one marketplace
	MarketplaceID string
	// Endpoint is the SP-API base URL for the seller's region
	Endpoint string
	// TokenURL is the LWA token exchange endpoint
	TokenURL string
	// Region is the SigV4 signing region
	Region string
	// AccessKeyID and SecretAccessKey enable SigV4 request signing; when
	// empty, requests carry the LWA bearer token alone
	AccessKeyID     string
	SecretAccessKey string
	// PageDelay is the pause between pages of the finances and inventory
	// APIs, which have stricter rate limits than the orders API
	PageDelay time.Duration
	// PageSize is the orders page size, capped at 100 by the API
	PageSize int
	// ItemConcurrency caps how many orders have their items and finances
	// fetched at once. The default of 1 keeps calls sequential since both
	// APIs throttle aggressively.
	ItemConcurrency int
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// DefaultAmazonEndpoint is the North America SP-API endpoint
const DefaultAmazonEndpoint = "https://sellingpartnerapi-na.amazon.com"

// DefaultAmazonTokenURL is the LWA token exchange endpoint
const DefaultAmazonTokenURL = "https://api.amazon.com/auth/o2/token"

// NewAmazonConfig creates a new Amazon configuration with defaults
func NewAmazonConfig(refreshToken, clientID, clientSecret, marketplaceID string) *AmazonConfig {
	return &AmazonConfig{
		RefreshToken:    refreshToken,
		ClientID:        clientID,
		ClientSecret:    clientSecret,
		MarketplaceID:   marketplaceID,
		Endpoint:        DefaultAmazonEndpoint,
		TokenURL:        DefaultAmazonTokenURL,
		Region:          "us-east-1",
		PageDelay:       500 * time.Millisecond,
		PageSize:        100,
		ItemConcurrency: 1,
		TimeoutSeconds:  30,
	}
}

// Validate returns an error naming every missing required credential
func (c *AmazonConfig) Validate() error {
	var missing []string
	if c.RefreshToken == "" {
		missing = append(missing, "refresh token")
	}
	if c.ClientID == "" {
		missing = append(missing, "client ID")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "client secret")
	}
	if c.MarketplaceID == "" {
		missing = append(missing, "marketplace ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("amazon: missing credentials: %s", strings.Join(missing, ", "))
	}

	if c.Endpoint == "" {
		c.Endpoint = DefaultAmazonEndpoint
	}
	c.Endpoint = strings.TrimSuffix(c.Endpoint, "/")
	if c.TokenURL == "" {
		c.TokenURL = DefaultAmazonTokenURL
	}
	if c.Region == "" {
		c.Region = "us-east-1"
	}
	if c.PageSize <= 0 || c.PageSize > 100 {
		c.PageSize = 100
	}
	if c.ItemConcurrency <= 0 {
		c.ItemConcurrency = 1
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}

// SignsRequests reports whether SigV4 signing credentials are configured
func (c *AmazonConfig) SignsRequests() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}
