package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ahmtersoy23-ui/databridge/internal/models"
	"github.com/ahmtersoy23-ui/databridge/internal/repository"
)

func newCredentialRouter(store *MockCredentialStore, cache *countingCache) *gin.Engine {
	h := NewCredentialHandler(store, cache, nil)
	r := gin.New()
	r.GET("/credentials", h.List)
	r.POST("/credentials", h.Create)
	r.PUT("/credentials/:id", h.Update)
	r.PATCH("/credentials/:id/toggle", h.Toggle)
	r.DELETE("/credentials/:id", h.Deactivate)
	return r
}

func TestCredentials_ListMasksSecrets(t *testing.T) {
	store := new(MockCredentialStore)
	store.On("List", mock.Anything).Return([]models.Credential{{
		ID:           1,
		Region:       "EU",
		SellerID:     "A2SELLER",
		RefreshToken: "Atzr|IwEBIabcdefghijkl",
		ClientID:     "amzn1.application-oa2-client.123456",
		ClientSecret: "super-secret",
		IsActive:     true,
	}}, nil)

	w := doJSON(newCredentialRouter(store, &countingCache{}), http.MethodGet, "/credentials", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"refresh_token_preview":"Atzr|IwE..."`)
	assert.Contains(t, body, `"client_id_preview":"amzn1.applic..."`)
	assert.NotContains(t, body, "super-secret")
	assert.NotContains(t, body, "IwEBIabcdefghijkl")
}

func TestCredentials_CreateValidation(t *testing.T) {
	cases := []struct {
		name string
		body map[string]interface{}
	}{
		{"bad region", map[string]interface{}{"region": "XX", "seller_id": "S", "refresh_token": "r", "client_id": "c", "client_secret": "s"}},
		{"missing seller", map[string]interface{}{"region": "NA", "refresh_token": "r", "client_id": "c", "client_secret": "s"}},
		{"missing secrets", map[string]interface{}{"region": "NA", "seller_id": "S", "client_id": "c"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := new(MockCredentialStore)
			cache := &countingCache{}
			w := doJSON(newCredentialRouter(store, cache), http.MethodPost, "/credentials", tc.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			assert.Zero(t, cache.clears)
		})
	}
}

func TestCredentials_CreateWithSecretName(t *testing.T) {
	store := new(MockCredentialStore)
	store.On("Create", mock.Anything, mock.MatchedBy(func(c *models.Credential) bool {
		return c.Region == "FE" && c.SecretName == "amazon-fe" && c.IsActive
	})).Return(nil)
	cache := &countingCache{}

	w := doJSON(newCredentialRouter(store, cache), http.MethodPost, "/credentials", map[string]interface{}{
		"region":      "FE",
		"seller_id":   "A3FE",
		"secret_name": "amazon-fe",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, cache.clears)
	store.AssertExpectations(t)
}

func TestCredentials_UpdateRequiresFields(t *testing.T) {
	store := new(MockCredentialStore)
	w := doJSON(newCredentialRouter(store, &countingCache{}), http.MethodPut, "/credentials/3", map[string]interface{}{"account_name": ""})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No fields to update", decode(w)["error"])
}

func TestCredentials_UpdateNotFound(t *testing.T) {
	store := new(MockCredentialStore)
	store.On("Update", mock.Anything, uint(9), map[string]interface{}{"account_name": "Main"}).
		Return(nil, repository.ErrCredentialNotFound)
	cache := &countingCache{}

	w := doJSON(newCredentialRouter(store, cache), http.MethodPut, "/credentials/9", map[string]interface{}{"account_name": "Main"})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Zero(t, cache.clears)
}

func TestCredentials_MutationsClearClientCache(t *testing.T) {
	store := new(MockCredentialStore)
	store.On("Toggle", mock.Anything, uint(2)).Return(&models.Credential{ID: 2, Region: "NA", IsActive: false}, nil)
	store.On("Deactivate", mock.Anything, uint(2)).Return(nil)
	cache := &countingCache{}
	r := newCredentialRouter(store, cache)

	toggled := doJSON(r, http.MethodPatch, "/credentials/2/toggle", nil)
	assert.Equal(t, http.StatusOK, toggled.Code)

	deleted := doJSON(r, http.MethodDelete, "/credentials/2", nil)
	assert.Equal(t, http.StatusOK, deleted.Code)
	assert.Equal(t, "Credentials deactivated", decode(deleted)["message"])

	assert.Equal(t, 2, cache.clears)
}

func TestCredentials_InvalidID(t *testing.T) {
	w := doJSON(newCredentialRouter(new(MockCredentialStore), &countingCache{}), http.MethodPatch, "/credentials/abc/toggle", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
