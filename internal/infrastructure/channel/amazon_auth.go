package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/salespipe/backend/internal/domain/channel"
)

// emptyPayloadHash is the SHA-256 of an empty body, used to sign GET requests
const emptyPayloadHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

// tokenExpirySlack renews the LWA token this long before it actually expires
const tokenExpirySlack = 60 * time.Second

// lwaTokenResponse is the body of the LWA token exchange endpoint
type lwaTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// amazonAuthenticator exchanges the LWA refresh token for access tokens and
// optionally signs requests with SigV4. Tokens are cached until shortly
// before expiry.
type amazonAuthenticator struct {
	config     *AmazonConfig
	httpClient *http.Client

	signer      *v4.Signer
	credentials aws.CredentialsProvider

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

// newAmazonAuthenticator creates an authenticator for the given configuration
func newAmazonAuthenticator(config *AmazonConfig, httpClient *http.Client) *amazonAuthenticator {
	auth := &amazonAuthenticator{
		config:     config,
		httpClient: httpClient,
	}
	if config.SignsRequests() {
		auth.signer = v4.NewSigner()
		auth.credentials = credentials.NewStaticCredentialsProvider(
			config.AccessKeyID, config.SecretAccessKey, "")
	}
	return auth
}

// AccessToken returns a valid LWA access token, exchanging the refresh token
// when the cached one is absent or near expiry.
func (a *amazonAuthenticator) AccessToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.accessToken != "" && time.Now().Before(a.expiresAt) {
		return a.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", a.config.RefreshToken)
	form.Set("client_id", a.config.ClientID)
	form.Set("client_secret", a.config.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("amazon: failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: LWA token exchange: %v", channel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("amazon: failed to read token response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%w: LWA token exchange: HTTP %d", channel.ErrRequestFailed, resp.StatusCode)
	}

	var token lwaTokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return "", fmt.Errorf("%w: LWA token exchange: %v", channel.ErrInvalidResponse, err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("%w: LWA token exchange returned no access token", channel.ErrInvalidResponse)
	}

	a.accessToken = token.AccessToken
	a.expiresAt = time.Now().Add(time.Duration(token.ExpiresIn)*time.Second - tokenExpirySlack)
	return a.accessToken, nil
}

// Authorize attaches the LWA access token and, when signing credentials are
// configured, a SigV4 signature to the request.
func (a *amazonAuthenticator) Authorize(ctx context.Context, req *http.Request) error {
	token, err := a.AccessToken(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("x-amz-access-token", token)

	if a.signer == nil {
		return nil
	}

	creds, err := a.credentials.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("amazon: retrieving signing credentials: %w", err)
	}
	if err := a.signer.SignHTTP(ctx, creds, req, emptyPayloadHash,
		"execute-api", a.config.Region, time.Now()); err != nil {
		return fmt.Errorf("amazon: signing request: %w", err)
	}
	return nil
}
