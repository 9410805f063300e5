package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const userContextKey = "ssoUser"

// User is the identity returned by the SSO verify endpoint
type User struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type verifyRequest struct {
	Token   string `json:"token"`
	AppCode string `json:"appCode"`
}

type verifyResponse struct {
	Success bool `json:"success"`
	Data    *struct {
		User *User `json:"user"`
	} `json:"data"`
}

// SSOVerifier checks bearer tokens against the SSO service
type SSOVerifier struct {
	verifyURL  string
	appCode    string
	httpClient *http.Client
	logger     *logrus.Entry
}

// NewSSOVerifier creates a verifier with a 5s request timeout
func NewSSOVerifier(verifyURL, appCode string, logger *logrus.Logger) *SSOVerifier {
	if logger == nil {
		logger = logrus.New()
	}
	return &SSOVerifier{
		verifyURL:  verifyURL,
		appCode:    appCode,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     logger.WithField("component", "auth"),
	}
}

// Verify returns the user for a valid token, or nil when the SSO service rejects it
func (v *SSOVerifier) Verify(ctx context.Context, token string) (*User, error) {
	body, err := json.Marshal(verifyRequest{Token: token, AppCode: v.appCode})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("verify token: sso returned %d", resp.StatusCode)
	}

	var out verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, nil
	}
	if !out.Success || out.Data == nil || out.Data.User == nil {
		return nil, nil
	}
	return out.Data.User, nil
}

// RequireAuth rejects requests without a bearer token the SSO service accepts
func RequireAuth(v *SSOVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "No token provided"})
			return
		}

		user, err := v.Verify(c.Request.Context(), token)
		if err != nil {
			v.logger.WithError(err).Error("SSO verification failed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Authentication failed"})
			return
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid token"})
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}
