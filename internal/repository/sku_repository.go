package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ahmtersoy23-ui/databridge/internal/models"
)

// SkuRepository reads the product master in the shared database
type SkuRepository struct {
	db *gorm.DB
}

// NewSkuRepository creates a new SKU repository over the shared database
func NewSkuRepository(sharedDB *gorm.DB) *SkuRepository {
	return &SkuRepository{db: sharedDB}
}

// LoadAmazonMappings returns every Amazon row of sku_master in storage order
func (r *SkuRepository) LoadAmazonMappings(ctx context.Context) ([]models.SkuMapping, error) {
	var rows []models.SkuMapping
	err := r.db.WithContext(ctx).
		Select("sku", "iwasku", "asin", "country_code").
		Where("marketplace = ?", "amazon").
		Find(&rows).Error
	return rows, err
}
