package amazon

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ahmtersoy23-ui/databridge/internal/clients"
)

// Credentials are the LWA application and seller credentials
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	SellerID     string
	Region       string // na, eu, fe
}

// APIError is returned for non-2xx SP-API responses
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Amazon API error (status %d): %s", e.StatusCode, e.Body)
}

// Client is an SP-API client for one credential
type Client struct {
	httpClient  *http.Client
	baseURL     string
	tokenURL    string
	creds       Credentials
	rateLimiter *rate.Limiter
	retrier     *clients.Retrier
	breaker     *clients.CircuitBreaker

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL overrides the regional endpoint
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithTokenURL overrides the LWA token endpoint
func WithTokenURL(u string) Option {
	return func(c *Client) { c.tokenURL = u }
}

// WithHTTPClient overrides the HTTP client
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithRateLimit sets the sustained request rate
func WithRateLimit(perSecond int) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.rateLimiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithRetrier replaces the default retrier
func WithRetrier(r *clients.Retrier) Option {
	return func(c *Client) { c.retrier = r }
}

// NewClient creates a new Amazon SP-API client
func NewClient(creds Credentials, opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		baseURL:     getRegionalEndpoint(creds.Region),
		tokenURL:    lwaTokenEndpoint,
		creds:       creds,
		rateLimiter: rate.NewLimiter(rate.Limit(5), 1),
		retrier:     clients.NewRetrier(clients.DefaultRetryPolicy()),
		breaker:     clients.NewCircuitBreaker(5, time.Minute),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RefreshToken exchanges the refresh token for an access token
func (c *Client) RefreshToken(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshLocked(ctx)
}

func (c *Client) refreshLocked(ctx context.Context) error {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", c.creds.RefreshToken)
	data.Set("client_id", c.creds.ClientID)
	data.Set("client_secret", c.creds.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("token refresh failed: %s", string(body))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return err
	}

	c.accessToken = tokenResp.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	return nil
}

// token returns a valid access token, refreshing 5 minutes before expiry
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accessToken == "" || time.Now().After(c.tokenExpiry.Add(-5*time.Minute)) {
		if err := c.refreshLocked(ctx); err != nil {
			return "", fmt.Errorf("token refresh failed: %w", err)
		}
	}
	return c.accessToken, nil
}

// GetInventorySummaries fetches one page of FBA inventory summaries
func (c *Client) GetInventorySummaries(ctx context.Context, marketplaceID, nextToken string) (*InventorySummariesResponse, error) {
	params := url.Values{}
	params.Set("details", "true")
	params.Set("granularityType", "Marketplace")
	params.Set("granularityId", marketplaceID)
	params.Set("marketplaceIds", marketplaceID)
	if nextToken != "" {
		params.Set("nextToken", nextToken)
	}

	body, err := c.doRequest(ctx, http.MethodGet, "/fba/inventory/v1/summaries", params, nil)
	if err != nil {
		return nil, err
	}

	var response InventorySummariesResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to decode inventory summaries: %w", err)
	}
	return &response, nil
}

// CreateReport requests an asynchronous report and returns its id
func (c *Client) CreateReport(ctx context.Context, reportType, marketplaceID string, start, end time.Time) (string, error) {
	reqBody := createReportRequest{
		ReportType:     reportType,
		MarketplaceIDs: []string{marketplaceID},
		DataStartTime:  start.UTC().Format(time.RFC3339),
		DataEndTime:    end.UTC().Format(time.RFC3339),
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/reports/2021-06-30/reports", nil, reqBody)
	if err != nil {
		return "", err
	}

	var response createReportResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to decode createReport response: %w", err)
	}
	return response.ReportID, nil
}

// GetReport returns the processing status of a report
func (c *Client) GetReport(ctx context.Context, reportID string) (*Report, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/reports/2021-06-30/reports/"+url.PathEscape(reportID), nil, nil)
	if err != nil {
		return nil, err
	}

	var report Report
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &report, nil
}

// GetReportDocument returns the download location of a finished report
func (c *Client) GetReportDocument(ctx context.Context, documentID string) (*ReportDocument, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/reports/2021-06-30/documents/"+url.PathEscape(documentID), nil, nil)
	if err != nil {
		return nil, err
	}

	var doc ReportDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode report document: %w", err)
	}
	return &doc, nil
}

// Download fetches a report document body, decompressing it when needed.
// The document URL is presigned and takes no SP-API auth header.
func (c *Client) Download(ctx context.Context, doc *ReportDocument) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, doc.URL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("report download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var reader io.Reader = resp.Body
	if strings.EqualFold(doc.CompressionAlgorithm, "GZIP") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip report: %w", err)
		}
		defer gz.Close()
		reader = gz
	}
	return io.ReadAll(reader)
}

// doRequest performs an authenticated HTTP request to the Amazon SP-API
func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, body interface{}) ([]byte, error) {
	if !c.breaker.Allow() {
		return nil, clients.ErrCircuitOpen
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, err
		}
	}

	fullURL := c.baseURL + path
	if params != nil {
		fullURL += "?" + params.Encode()
	}

	resp, err := c.retrier.Do(ctx, func(ctx context.Context) (*http.Response, error) {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
		accessToken, err := c.token(ctx)
		if err != nil {
			return nil, err
		}

		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("x-amz-access-token", accessToken)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return c.httpClient.Do(req)
	})
	if err != nil {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, err
	}

	if resp.StatusCode >= 400 {
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			c.breaker.RecordFailure()
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	c.breaker.RecordSuccess()
	return respBody, nil
}
