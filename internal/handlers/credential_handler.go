package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ahmtersoy23-ui/databridge/internal/models"
	"github.com/ahmtersoy23-ui/databridge/internal/repository"
)

// CredentialStore persists SP-API credentials
type CredentialStore interface {
	List(ctx context.Context) ([]models.Credential, error)
	Create(ctx context.Context, cred *models.Credential) error
	Update(ctx context.Context, id uint, updates map[string]interface{}) (*models.Credential, error)
	Toggle(ctx context.Context, id uint) (*models.Credential, error)
	Deactivate(ctx context.Context, id uint) error
}

// ClientCacheClearer drops cached SP-API clients after a credential change
type ClientCacheClearer interface {
	Clear()
}

// CreateCredentialRequest is the body of POST /credentials.
// Either SecretName or the three secret fields must be set.
type CreateCredentialRequest struct {
	Region       string `json:"region" binding:"required,oneof=NA EU FE"`
	SellerID     string `json:"seller_id" binding:"required"`
	RefreshToken string `json:"refresh_token"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	SecretName   string `json:"secret_name"`
	AccountName  string `json:"account_name"`
}

// UpdateCredentialRequest is the body of PUT /credentials/:id; empty fields are ignored
type UpdateCredentialRequest struct {
	Region       string `json:"region" binding:"omitempty,oneof=NA EU FE"`
	SellerID     string `json:"seller_id"`
	RefreshToken string `json:"refresh_token"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	SecretName   string `json:"secret_name"`
	AccountName  string `json:"account_name"`
}

func (r UpdateCredentialRequest) updates() map[string]interface{} {
	out := map[string]interface{}{}
	set := func(col, v string) {
		if v != "" {
			out[col] = v
		}
	}
	set("region", r.Region)
	set("seller_id", r.SellerID)
	set("refresh_token", r.RefreshToken)
	set("client_id", r.ClientID)
	set("client_secret", r.ClientSecret)
	set("secret_name", r.SecretName)
	set("account_name", r.AccountName)
	return out
}

// CredentialHandler manages SP-API credentials
type CredentialHandler struct {
	store  CredentialStore
	cache  ClientCacheClearer
	logger *logrus.Entry
}

// NewCredentialHandler creates a new credential handler
func NewCredentialHandler(store CredentialStore, cache ClientCacheClearer, logger *logrus.Logger) *CredentialHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &CredentialHandler{
		store:  store,
		cache:  cache,
		logger: logger.WithField("component", "credentials"),
	}
}

// List returns every credential with secrets masked
func (h *CredentialHandler) List(c *gin.Context) {
	creds, err := h.store.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	views := make([]models.CredentialView, 0, len(creds))
	for i := range creds {
		views = append(views, creds[i].View())
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": views})
}

// Create stores a new credential
func (h *CredentialHandler) Create(c *gin.Context) {
	var req CreateCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if req.SecretName == "" && (req.RefreshToken == "" || req.ClientID == "" || req.ClientSecret == "") {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "refresh_token, client_id and client_secret are required unless secret_name is set",
		})
		return
	}

	cred := &models.Credential{
		Region:       strings.ToUpper(req.Region),
		SellerID:     req.SellerID,
		AccountName:  req.AccountName,
		RefreshToken: req.RefreshToken,
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
		SecretName:   req.SecretName,
		IsActive:     true,
	}
	if err := h.store.Create(c.Request.Context(), cred); err != nil {
		h.logger.WithError(err).Error("Failed to save credential")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	h.cache.Clear()

	h.logger.WithFields(logrus.Fields{"region": cred.Region, "account": cred.AccountName}).Info("Credential added")
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": cred.View()})
}

// Update changes the provided fields of a credential
func (h *CredentialHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	updates := req.updates()
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No fields to update"})
		return
	}

	cred, err := h.store.Update(c.Request.Context(), id, updates)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.cache.Clear()

	h.logger.WithField("id", id).Info("Credential updated")
	c.JSON(http.StatusOK, gin.H{"success": true, "data": cred.View()})
}

// Toggle flips a credential's active flag
func (h *CredentialHandler) Toggle(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	cred, err := h.store.Toggle(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.cache.Clear()

	h.logger.WithFields(logrus.Fields{"id": id, "is_active": cred.IsActive}).Info("Credential toggled")
	c.JSON(http.StatusOK, gin.H{"success": true, "data": cred.View()})
}

// Deactivate marks a credential inactive
func (h *CredentialHandler) Deactivate(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.store.Deactivate(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	h.cache.Clear()
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Credentials deactivated"})
}

func (h *CredentialHandler) writeError(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrCredentialNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Credential not found"})
		return
	}
	h.logger.WithError(err).Error("Credential update failed")
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}
