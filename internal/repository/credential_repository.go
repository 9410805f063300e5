package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ahmtersoy23-ui/databridge/internal/models"
)

// ErrCredentialNotFound is returned when no credential has the id
var ErrCredentialNotFound = errors.New("credential not found")

// CredentialRepository handles SP-API credential rows
type CredentialRepository struct {
	db *gorm.DB
}

// NewCredentialRepository creates a new credential repository
func NewCredentialRepository(db *gorm.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// List returns every credential ordered by region
func (r *CredentialRepository) List(ctx context.Context) ([]models.Credential, error) {
	var creds []models.Credential
	err := r.db.WithContext(ctx).Order("region, id").Find(&creds).Error
	return creds, err
}

// GetActiveByID returns the credential if it exists and is active, nil otherwise
func (r *CredentialRepository) GetActiveByID(ctx context.Context, id uint) (*models.Credential, error) {
	var cred models.Credential
	err := r.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

// FirstActiveByRegion returns the oldest active credential of a region, nil if none
func (r *CredentialRepository) FirstActiveByRegion(ctx context.Context, region string) (*models.Credential, error) {
	var cred models.Credential
	err := r.db.WithContext(ctx).
		Where("UPPER(region) = UPPER(?) AND is_active = ?", region, true).
		Order("id").
		First(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

// Create inserts a credential
func (r *CredentialRepository) Create(ctx context.Context, cred *models.Credential) error {
	return r.db.WithContext(ctx).Create(cred).Error
}

// Update sets the given columns and returns the updated row
func (r *CredentialRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) (*models.Credential, error) {
	updates["updated_at"] = time.Now()

	var cred models.Credential
	result := r.db.WithContext(ctx).
		Model(&cred).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrCredentialNotFound
	}
	return &cred, nil
}

// Toggle flips is_active and returns the updated row
func (r *CredentialRepository) Toggle(ctx context.Context, id uint) (*models.Credential, error) {
	var cred models.Credential
	result := r.db.WithContext(ctx).
		Model(&cred).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  gorm.Expr("NOT is_active"),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrCredentialNotFound
	}
	return &cred, nil
}

// Deactivate marks a credential inactive. Rows are never deleted.
func (r *CredentialRepository) Deactivate(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Credential{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now()}).Error
}

// StatusByRegion counts credentials per region
func (r *CredentialRepository) StatusByRegion(ctx context.Context) ([]models.RegionCredentialStatus, error) {
	var out []models.RegionCredentialStatus
	err := r.db.WithContext(ctx).Raw(`
		SELECT region, COUNT(*) AS count, bool_or(is_active) AS has_active
		FROM sp_api_credentials
		GROUP BY region
		ORDER BY region
	`).Scan(&out).Error
	return out, err
}
