package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ahmtersoy23-ui/databridge/internal/models"
)

type MockMappingSource struct {
	mock.Mock
}

var _ MappingSource = (*MockMappingSource)(nil)

func (m *MockMappingSource) LoadAmazonMappings(ctx context.Context) ([]models.SkuMapping, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]models.SkuMapping)
	return rows, args.Error(1)
}

func masterRows() []models.SkuMapping {
	return []models.SkuMapping{
		{SKU: "MUG-1", Iwasku: "IW-GENERIC", ASIN: "B001", CountryCode: "US"},
		{SKU: "MUG-1", Iwasku: "IW-DE", ASIN: "B001", CountryCode: "DE"},
		{SKU: "MUG-1", Iwasku: "IW-LATER", ASIN: "B001", CountryCode: "FR"},
		{SKU: "CUP-9", Iwasku: "IW-CUP", ASIN: "B009", CountryCode: "UK"},
		{SKU: "OTHER", Iwasku: "IW-ASIN-FIRST", ASIN: "B777", CountryCode: "IT"},
		{SKU: "OTHER-2", Iwasku: "IW-ASIN-SECOND", ASIN: "B777", CountryCode: "IT"},
	}
}

func TestSkuResolver_Precedence(t *testing.T) {
	src := new(MockMappingSource)
	src.On("LoadAmazonMappings", mock.Anything).Return(masterRows(), nil).Once()
	r := NewSkuResolver(src, time.Hour, nil)

	got, err := r.ResolveBulk(context.Background(), []SkuLookup{
		{SKU: "MUG-1", CountryCode: "de"},
		{SKU: "CUP-9", CountryCode: "CA"},
		{SKU: "UNKNOWN", CountryCode: "IT", ASIN: "B777"},
		{SKU: "GHOST", CountryCode: "IT", ASIN: "B000"},
	})
	require.NoError(t, err)

	// sku+country beats sku alone
	require.NotNil(t, got["MUG-1"])
	assert.Equal(t, "IW-DE", *got["MUG-1"])
	// sku alone when no country row exists
	require.NotNil(t, got["CUP-9"])
	assert.Equal(t, "IW-CUP", *got["CUP-9"])
	// asin+country, first row wins
	require.NotNil(t, got["UNKNOWN"])
	assert.Equal(t, "IW-ASIN-FIRST", *got["UNKNOWN"])
	// miss is nil, not an error
	assert.Contains(t, got, "GHOST")
	assert.Nil(t, got["GHOST"])

	src.AssertExpectations(t)
}

func TestSkuResolver_SkuAloneFirstRowWins(t *testing.T) {
	src := new(MockMappingSource)
	src.On("LoadAmazonMappings", mock.Anything).Return(masterRows(), nil)
	r := NewSkuResolver(src, time.Hour, nil)

	iw, err := r.Resolve(context.Background(), "MUG-1", "AU", "")
	require.NoError(t, err)
	require.NotNil(t, iw)
	assert.Equal(t, "IW-GENERIC", *iw)
}

func TestSkuResolver_CachesUntilTTLOrInvalidate(t *testing.T) {
	src := new(MockMappingSource)
	src.On("LoadAmazonMappings", mock.Anything).Return(masterRows(), nil)

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	r := NewSkuResolver(src, time.Hour, nil)
	r.now = func() time.Time { return now }

	ctx := context.Background()
	_, err := r.Resolve(ctx, "MUG-1", "US", "")
	require.NoError(t, err)
	now = now.Add(30 * time.Minute)
	_, err = r.Resolve(ctx, "MUG-1", "US", "")
	require.NoError(t, err)
	src.AssertNumberOfCalls(t, "LoadAmazonMappings", 1)

	now = now.Add(31 * time.Minute)
	_, err = r.Resolve(ctx, "MUG-1", "US", "")
	require.NoError(t, err)
	src.AssertNumberOfCalls(t, "LoadAmazonMappings", 2)

	r.Invalidate()
	_, err = r.Resolve(ctx, "MUG-1", "US", "")
	require.NoError(t, err)
	src.AssertNumberOfCalls(t, "LoadAmazonMappings", 3)
}

func TestSkuResolver_LoadError(t *testing.T) {
	src := new(MockMappingSource)
	src.On("LoadAmazonMappings", mock.Anything).Return(nil, errors.New("shared db down"))
	r := NewSkuResolver(src, 0, nil)

	_, err := r.ResolveBulk(context.Background(), []SkuLookup{{SKU: "X"}})
	assert.ErrorContains(t, err, "shared db down")
	assert.Equal(t, DefaultSkuCacheTTL, r.ttl)
}
