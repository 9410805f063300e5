package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/ahmtersoy23-ui/databridge/internal/models"
)

// ErrMarketplaceNotFound is returned when no marketplace has the country code
var ErrMarketplaceNotFound = errors.New("marketplace not found")

// MarketplaceRepository reads the marketplace reference table
type MarketplaceRepository struct {
	db *gorm.DB
}

// NewMarketplaceRepository creates a new marketplace repository
func NewMarketplaceRepository(db *gorm.DB) *MarketplaceRepository {
	return &MarketplaceRepository{db: db}
}

// ListEligible returns active marketplaces whose linked credential is active
func (r *MarketplaceRepository) ListEligible(ctx context.Context) ([]models.MarketplaceConfig, error) {
	var mps []models.MarketplaceConfig
	err := r.db.WithContext(ctx).
		Table("marketplace_config AS m").
		Select("m.*").
		Joins("JOIN sp_api_credentials c ON c.id = m.credential_id AND c.is_active = true").
		Where("m.is_active = ?", true).
		Order("m.country_code").
		Scan(&mps).Error
	return mps, err
}

// GetByCountryCode looks a marketplace up by its upper-cased country code
func (r *MarketplaceRepository) GetByCountryCode(ctx context.Context, code string) (*models.MarketplaceConfig, error) {
	var mp models.MarketplaceConfig
	err := r.db.WithContext(ctx).
		Where("country_code = ?", strings.ToUpper(code)).
		First(&mp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMarketplaceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &mp, nil
}

// List returns every marketplace ordered by country code
func (r *MarketplaceRepository) List(ctx context.Context) ([]models.MarketplaceConfig, error) {
	var mps []models.MarketplaceConfig
	err := r.db.WithContext(ctx).Order("country_code").Find(&mps).Error
	return mps, err
}
