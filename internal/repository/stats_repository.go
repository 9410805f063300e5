package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ahmtersoy23-ui/databridge/internal/models"
)

// StatsRepository reports operational store volume
type StatsRepository struct {
	db *gorm.DB
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db *gorm.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// DataCounts returns row and distinct-key counts for orders and inventory
func (r *StatsRepository) DataCounts(ctx context.Context) (*models.DataCounts, error) {
	var counts models.DataCounts
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			(SELECT COUNT(*) FROM raw_orders) AS total_orders,
			(SELECT COUNT(*) FROM fba_inventory) AS total_inventory,
			(SELECT COUNT(DISTINCT channel) FROM raw_orders) AS channels_with_data,
			(SELECT COUNT(DISTINCT warehouse) FROM fba_inventory) AS warehouses_with_data
	`).Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return &counts, nil
}
