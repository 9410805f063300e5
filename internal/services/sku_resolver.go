package services

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ahmtersoy23-ui/databridge/internal/models"
)

// DefaultSkuCacheTTL is how long a loaded sku_master index is served
const DefaultSkuCacheTTL = time.Hour

// SkuLookup is one item to resolve to an internal product key
type SkuLookup struct {
	SKU         string
	CountryCode string
	ASIN        string
}

// MappingSource loads the product master
type MappingSource interface {
	LoadAmazonMappings(ctx context.Context) ([]models.SkuMapping, error)
}

type skuIndex struct {
	bySkuCountry  map[string]string
	bySku         map[string]string
	byAsinCountry map[string]string
	loadedAt      time.Time
}

func buildSkuIndex(rows []models.SkuMapping, now time.Time) *skuIndex {
	idx := &skuIndex{
		bySkuCountry:  make(map[string]string, len(rows)),
		bySku:         make(map[string]string, len(rows)),
		byAsinCountry: make(map[string]string, len(rows)),
		loadedAt:      now,
	}
	for _, r := range rows {
		if r.Iwasku == "" {
			continue
		}
		country := strings.ToUpper(r.CountryCode)
		if r.SKU != "" {
			idx.bySkuCountry[r.SKU+"|"+country] = r.Iwasku
			if _, ok := idx.bySku[r.SKU]; !ok {
				idx.bySku[r.SKU] = r.Iwasku
			}
		}
		if r.ASIN != "" {
			key := r.ASIN + "|" + country
			if _, ok := idx.byAsinCountry[key]; !ok {
				idx.byAsinCountry[key] = r.Iwasku
			}
		}
	}
	return idx
}

func (idx *skuIndex) lookup(l SkuLookup) *string {
	country := strings.ToUpper(l.CountryCode)
	if v, ok := idx.bySkuCountry[l.SKU+"|"+country]; ok {
		return &v
	}
	if v, ok := idx.bySku[l.SKU]; ok {
		return &v
	}
	if l.ASIN != "" {
		if v, ok := idx.byAsinCountry[l.ASIN+"|"+country]; ok {
			return &v
		}
	}
	return nil
}

// SkuResolver maps marketplace SKUs to iwasku through a cached sku_master index.
// The index is immutable once built and replaced wholesale on reload.
type SkuResolver struct {
	source  MappingSource
	ttl     time.Duration
	current atomic.Pointer[skuIndex]
	now     func() time.Time
	logger  *logrus.Entry
}

// NewSkuResolver creates a resolver; ttl <= 0 uses DefaultSkuCacheTTL
func NewSkuResolver(source MappingSource, ttl time.Duration, logger *logrus.Logger) *SkuResolver {
	if ttl <= 0 {
		ttl = DefaultSkuCacheTTL
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &SkuResolver{
		source: source,
		ttl:    ttl,
		now:    time.Now,
		logger: logger.WithField("component", "sku-resolver"),
	}
}

func (r *SkuResolver) getOrReload(ctx context.Context) (*skuIndex, error) {
	if idx := r.current.Load(); idx != nil && r.now().Sub(idx.loadedAt) < r.ttl {
		return idx, nil
	}

	rows, err := r.source.LoadAmazonMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sku_master: %w", err)
	}
	idx := buildSkuIndex(rows, r.now())
	r.current.Store(idx)

	r.logger.WithFields(logrus.Fields{
		"rows":        len(rows),
		"sku_country": len(idx.bySkuCountry),
		"asin":        len(idx.byAsinCountry),
	}).Info("SKU index loaded")
	return idx, nil
}

// ResolveBulk resolves every item; a miss maps to nil
func (r *SkuResolver) ResolveBulk(ctx context.Context, items []SkuLookup) (map[string]*string, error) {
	idx, err := r.getOrReload(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*string, len(items))
	for _, it := range items {
		if _, seen := out[it.SKU]; seen {
			continue
		}
		out[it.SKU] = idx.lookup(it)
	}
	return out, nil
}

// Resolve looks up a single SKU
func (r *SkuResolver) Resolve(ctx context.Context, sku, country, asin string) (*string, error) {
	idx, err := r.getOrReload(ctx)
	if err != nil {
		return nil, err
	}
	return idx.lookup(SkuLookup{SKU: sku, CountryCode: country, ASIN: asin}), nil
}

// Invalidate drops the cached index so the next call reloads
func (r *SkuResolver) Invalidate() {
	r.current.Store(nil)
}
