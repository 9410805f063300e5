package models

import (
	"strings"
	"time"
)

// Region is an SP-API endpoint grouping. One credential serves one region.
type Region string

const (
	RegionNA Region = "NA"
	RegionEU Region = "EU"
	RegionFE Region = "FE"
)

// ValidRegion reports whether r is a known SP-API region
func ValidRegion(r string) bool {
	switch Region(strings.ToUpper(r)) {
	case RegionNA, RegionEU, RegionFE:
		return true
	}
	return false
}

// MarketplaceConfig is the static reference row for one Amazon marketplace
type MarketplaceConfig struct {
	MarketplaceID  string `gorm:"type:varchar(20);primaryKey" json:"marketplace_id"`
	CountryCode    string `gorm:"type:varchar(5);not null;uniqueIndex:idx_marketplace_config_country" json:"country_code"`
	Channel        string `gorm:"type:varchar(10);not null" json:"channel"`
	Warehouse      string `gorm:"type:varchar(10);not null" json:"warehouse"`
	Region         string `gorm:"type:varchar(5);not null" json:"region"`
	TimezoneOffset int    `gorm:"not null;default:0" json:"timezone_offset"`
	IsActive       bool   `gorm:"not null;default:false" json:"is_active"`
	CredentialID   *uint  `gorm:"index" json:"credential_id"`
}

// TableName specifies the table name for GORM
func (MarketplaceConfig) TableName() string {
	return "marketplace_config"
}

// Credential holds SP-API application credentials for one seller account.
// When SecretName is set the secret fields are read from GCP Secret Manager
// instead of the row itself.
type Credential struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Region       string    `gorm:"type:varchar(5);not null;index" json:"region"`
	SellerID     string    `gorm:"type:varchar(100);not null" json:"seller_id"`
	AccountName  string    `gorm:"type:varchar(255);not null;default:''" json:"account_name"`
	RefreshToken string    `gorm:"type:text" json:"-"`
	ClientID     string    `gorm:"type:varchar(255)" json:"-"`
	ClientSecret string    `gorm:"type:text" json:"-"`
	SecretName   string    `gorm:"type:varchar(500)" json:"secret_name,omitempty"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Credential) TableName() string {
	return "sp_api_credentials"
}

// CredentialView is the masked representation returned by the API
type CredentialView struct {
	ID                  uint      `json:"id"`
	Region              string    `json:"region"`
	SellerID            string    `json:"seller_id"`
	AccountName         string    `json:"account_name"`
	IsActive            bool      `json:"is_active"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
	RefreshTokenPreview string    `json:"refresh_token_preview"`
	ClientIDPreview     string    `json:"client_id_preview"`
}

// View masks the secret parts of the credential
func (c *Credential) View() CredentialView {
	return CredentialView{
		ID:                  c.ID,
		Region:              c.Region,
		SellerID:            c.SellerID,
		AccountName:         c.AccountName,
		IsActive:            c.IsActive,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
		RefreshTokenPreview: preview(c.RefreshToken, 8),
		ClientIDPreview:     preview(c.ClientID, 12),
	}
}

func preview(s string, n int) string {
	if len(s) > n {
		s = s[:n]
	}
	return s + "..."
}

// RegionCredentialStatus summarizes credentials for one region
type RegionCredentialStatus struct {
	Region    string `json:"region"`
	Count     int64  `json:"count"`
	HasActive bool   `json:"has_active"`
}
