package amazon

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmtersoy23-ui/databridge/internal/models"
)

type fakeSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

type staticProvider struct {
	client *Client
}

func (p staticProvider) ClientFor(context.Context, models.MarketplaceConfig) (*Client, error) {
	return p.client, nil
}

// spAPIServer fakes the LWA token endpoint and the SP-API routes under test
type spAPIServer struct {
	*httptest.Server
	mu      sync.Mutex
	handler map[string]http.HandlerFunc
	calls   map[string]int
}

func newSPAPIServer(t *testing.T) *spAPIServer {
	s := &spAPIServer{handler: map[string]http.HandlerFunc{}, calls: map[string]int{}}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.URL.Path]++
		h, ok := s.handler[r.URL.Path]
		s.mu.Unlock()

		if r.URL.Path == "/token" {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "Atza|test", "expires_in": 3600})
			return
		}
		if !ok {
			http.NotFound(w, r)
			return
		}
		if r.URL.Path != "/download" {
			assert.Equal(t, "Atza|test", r.Header.Get("x-amz-access-token"))
		}
		h(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *spAPIServer) on(path string, h http.HandlerFunc) {
	s.mu.Lock()
	s.handler[path] = h
	s.mu.Unlock()
}

func (s *spAPIServer) count(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

func (s *spAPIServer) fetcher(opts ...FetcherOption) *Fetcher {
	client := NewClient(Credentials{ClientID: "id", ClientSecret: "secret", RefreshToken: "refresh", Region: "eu"},
		WithBaseURL(s.URL), WithTokenURL(s.URL+"/token"), WithRateLimit(1000))
	return NewFetcher(staticProvider{client: client}, nil, opts...)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

var aeMarketplace = models.MarketplaceConfig{
	MarketplaceID:  "A2VIGQ35RCS4UG",
	CountryCode:    "AE",
	Channel:        "ae",
	Warehouse:      "AE",
	Region:         "EU",
	TimezoneOffset: 4,
	IsActive:       true,
}

func gzipped(t *testing.T, s string) []byte {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestFetchOrders_PollsUntilDoneAndParsesReport(t *testing.T) {
	srv := newSPAPIServer(t)

	report := strings.Join([]string{
		"amazon-order-id\tpurchase-date\tsales-channel\tsku\tasin\tquantity\titem-price\tcurrency\torder-status\tfulfillment-channel",
		"402-1\t2025-03-01T22:30:00+00:00\tAmazon.ae\tSKU-A\tB0001\t2\t19.90\tAED\tShipped\tAmazon",
		"402-2\t2025-03-01T22:30:00+00:00\tAmazon.sa\tSKU-B\tB0002\t1\t5.00\tSAR\tShipped\tAmazon",
		"402-3\tnot-a-date\tAmazon.ae\tSKU-C\tB0003\t1\t1.00\tAED\tShipped\tAmazon",
		"402-4\t2025-03-01T10:00:00+00:00\tAmazon.ae\tSKU-D\tB0004\t0\t0\tAED\tCancelled\tAmazon",
	}, "\n")

	srv.on("/reports/2021-06-30/reports", func(w http.ResponseWriter, r *http.Request) {
		var body createReportRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, OrdersReportType, body.ReportType)
		assert.Equal(t, []string{"A2VIGQ35RCS4UG"}, body.MarketplaceIDs)
		writeJSON(w, map[string]string{"reportId": "R1"})
	})
	polls := 0
	srv.on("/reports/2021-06-30/reports/R1", func(w http.ResponseWriter, r *http.Request) {
		polls++
		status := ReportStatusInProgress
		if polls == 3 {
			status = ReportStatusDone
		}
		writeJSON(w, Report{ReportID: "R1", ProcessingStatus: status, ReportDocumentID: "D1"})
	})
	srv.on("/reports/2021-06-30/documents/D1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, ReportDocument{ReportDocumentID: "D1", URL: srv.URL + "/download", CompressionAlgorithm: "GZIP"})
	})
	srv.on("/download", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(gzipped(t, report))
	})

	sleeper := &fakeSleeper{}
	f := srv.fetcher(WithSleeper(sleeper))

	start := time.Date(2025, 2, 27, 0, 0, 0, 0, time.UTC)
	orders, err := f.FetchOrders(context.Background(), aeMarketplace, start, start.AddDate(0, 0, 3))
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{10 * time.Second, 15 * time.Second}, sleeper.delays)
	require.Len(t, orders, 2)

	assert.Equal(t, "ae", orders[0].Channel)
	assert.Equal(t, "2025-03-02", orders[0].PurchaseDateLocal.Format("2006-01-02"))
	assert.Equal(t, "19.9", orders[0].ItemPrice.String())
	assert.Equal(t, 2, orders[0].Quantity)

	// AE and SA share a report; the row decides channel and offset
	assert.Equal(t, "sa", orders[1].Channel)
	assert.Equal(t, "2025-03-02", orders[1].PurchaseDateLocal.Format("2006-01-02"))
	assert.Equal(t, "A2VIGQ35RCS4UG", orders[1].MarketplaceID)
}

func TestFetchOrders_TimesOutAfterMaxAttempts(t *testing.T) {
	srv := newSPAPIServer(t)
	srv.on("/reports/2021-06-30/reports", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"reportId": "R2"})
	})
	srv.on("/reports/2021-06-30/reports/R2", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, Report{ReportID: "R2", ProcessingStatus: ReportStatusInQueue})
	})

	sleeper := &fakeSleeper{}
	f := srv.fetcher(WithSleeper(sleeper))

	_, err := f.FetchOrders(context.Background(), aeMarketplace, time.Now().Add(-time.Hour), time.Now())
	require.ErrorIs(t, err, ErrReportTimeout)

	assert.Equal(t, 30, srv.count("/reports/2021-06-30/reports/R2"))
	require.Len(t, sleeper.delays, 30)
	assert.Equal(t, 10*time.Second, sleeper.delays[0])
	assert.Equal(t, 15*time.Second, sleeper.delays[1])
	for _, d := range sleeper.delays {
		assert.LessOrEqual(t, d, 60*time.Second)
	}
	assert.Equal(t, 60*time.Second, sleeper.delays[29])
}

func TestFetchOrders_FailedReport(t *testing.T) {
	for _, status := range []string{ReportStatusCancelled, ReportStatusFatal} {
		t.Run(status, func(t *testing.T) {
			srv := newSPAPIServer(t)
			srv.on("/reports/2021-06-30/reports", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, map[string]string{"reportId": "R3"})
			})
			srv.on("/reports/2021-06-30/reports/R3", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, Report{ReportID: "R3", ProcessingStatus: status})
			})

			sleeper := &fakeSleeper{}
			_, err := srv.fetcher(WithSleeper(sleeper)).FetchOrders(context.Background(), aeMarketplace, time.Now(), time.Now())
			require.ErrorIs(t, err, ErrReportFailed)
			assert.Empty(t, sleeper.delays)
		})
	}
}

func TestFetchOrders_MissingReportID(t *testing.T) {
	srv := newSPAPIServer(t)
	srv.on("/reports/2021-06-30/reports", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{})
	})

	_, err := srv.fetcher().FetchOrders(context.Background(), aeMarketplace, time.Now(), time.Now())
	assert.ErrorContains(t, err, "empty report id")
}

func TestFetchOrders_CancelledContextStopsPolling(t *testing.T) {
	srv := newSPAPIServer(t)
	srv.on("/reports/2021-06-30/reports", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"reportId": "R4"})
	})
	srv.on("/reports/2021-06-30/reports/R4", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, Report{ReportID: "R4", ProcessingStatus: ReportStatusInProgress})
	})

	ctx, cancel := context.WithCancel(context.Background())
	f := srv.fetcher(WithSleeper(sleeperFunc(func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	})))

	_, err := f.FetchOrders(ctx, aeMarketplace, time.Now(), time.Now())
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, srv.count("/reports/2021-06-30/reports/R4"))
}

type sleeperFunc func(ctx context.Context, d time.Duration) error

func (f sleeperFunc) Sleep(ctx context.Context, d time.Duration) error { return f(ctx, d) }

func TestFetchInventorySnapshot_FollowsEveryTokenLocation(t *testing.T) {
	srv := newSPAPIServer(t)

	var tokens []string
	srv.on("/fba/inventory/v1/summaries", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "true", q.Get("details"))
		assert.Equal(t, "Marketplace", q.Get("granularityType"))
		assert.Equal(t, "A1PA6795UKMFR9", q.Get("granularityId"))
		tokens = append(tokens, q.Get("nextToken"))

		switch q.Get("nextToken") {
		case "":
			writeJSON(w, map[string]interface{}{
				"payload": map[string]interface{}{"inventorySummaries": []map[string]interface{}{
					{"sellerSku": "S1", "asin": "A1", "fnSku": "F1", "inventoryDetails": map[string]interface{}{
						"fulfillableQuantity": 4,
						"reservedQuantity":    map[string]interface{}{"totalReservedQuantity": 2, "fcProcessingQuantity": 1},
					}},
				}},
				"nextToken": "t1",
			})
		case "t1":
			writeJSON(w, map[string]interface{}{
				"inventorySummaries": []map[string]interface{}{{"sellerSku": "S2", "asin": "A2", "fnSku": "F2"}},
				"pagination":         map[string]string{"nextToken": "t2"},
			})
		case "t2":
			writeJSON(w, map[string]interface{}{
				"payload": map[string]interface{}{
					"inventorySummaries": []map[string]interface{}{{"sellerSku": "S3", "inventoryDetails": map[string]interface{}{"inboundShippedQuantity": 7}}},
					"pagination":         map[string]string{"nextToken": "t3"},
				},
			})
		default:
			writeJSON(w, map[string]interface{}{"payload": map[string]interface{}{"inventorySummaries": []interface{}{}}})
		}
	})

	de := models.MarketplaceConfig{MarketplaceID: "A1PA6795UKMFR9", CountryCode: "DE", Channel: "de", Warehouse: "EU", Region: "EU"}
	items, err := srv.fetcher().FetchInventorySnapshot(context.Background(), de)
	require.NoError(t, err)

	assert.Equal(t, []string{"", "t1", "t2", "t3"}, tokens)
	require.Len(t, items, 3)
	assert.Equal(t, "EU", items[0].Warehouse)
	assert.Equal(t, 4, items[0].FulfillableQuantity)
	assert.Equal(t, 2, items[0].TotalReservedQuantity)
	assert.Equal(t, 1, items[0].FCProcessingQuantity)
	assert.Equal(t, 0, items[1].FulfillableQuantity)
	assert.Equal(t, 7, items[2].InboundShippedQuantity)
	assert.Nil(t, items[2].Iwasku)
}

func TestFetchInventorySnapshot_APIError(t *testing.T) {
	srv := newSPAPIServer(t)
	srv.on("/fba/inventory/v1/summaries", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"errors":[{"code":"Unauthorized"}]}`))
	})

	_, err := srv.fetcher().FetchInventorySnapshot(context.Background(), aeMarketplace)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
}

func TestDefaultPollPolicy(t *testing.T) {
	p := DefaultPollPolicy()
	assert.Equal(t, 30, p.MaxAttempts)
	assert.Equal(t, 10*time.Second, p.Delay(0))
	assert.Equal(t, 20*time.Second, p.Delay(2))
	assert.Equal(t, 60*time.Second, p.Delay(10))
	assert.Equal(t, 60*time.Second, p.Delay(100))
}
