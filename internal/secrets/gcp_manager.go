package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretmanagerpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// AmazonCredentials is the JSON payload of an SP-API credential secret
type AmazonCredentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RefreshToken string `json:"refresh_token"`
	SellerID     string `json:"seller_id,omitempty"`
}

// secretAccessor is the subset of the Secret Manager client in use
type secretAccessor interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

type gcpAccessor struct {
	client *secretmanager.Client
}

func (a gcpAccessor) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	return a.client.AccessSecretVersion(ctx, req)
}

func (a gcpAccessor) Close() error {
	return a.client.Close()
}

// cacheEntry represents a cached secret with expiration
type cacheEntry struct {
	creds     *AmazonCredentials
	expiresAt time.Time
}

// GCPSecretManager reads SP-API credential secrets from Google Cloud Secret Manager
type GCPSecretManager struct {
	client    secretAccessor
	projectID string
	cache     map[string]*cacheEntry
	cacheMu   sync.RWMutex
	cacheTTL  time.Duration
}

// NewGCPSecretManager creates a new GCP Secret Manager client
func NewGCPSecretManager(ctx context.Context, projectID string) (*GCPSecretManager, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}
	return newManager(gcpAccessor{client: client}, projectID), nil
}

func newManager(client secretAccessor, projectID string) *GCPSecretManager {
	return &GCPSecretManager{
		client:    client,
		projectID: projectID,
		cache:     make(map[string]*cacheEntry),
		cacheTTL:  5 * time.Minute,
	}
}

// Close closes the Secret Manager client
func (sm *GCPSecretManager) Close() error {
	if sm.client != nil {
		return sm.client.Close()
	}
	return nil
}

// BuildSecretName qualifies a bare secret id with the project.
// Fully qualified names are returned unchanged.
func (sm *GCPSecretManager) BuildSecretName(name string) string {
	if strings.HasPrefix(name, "projects/") {
		return name
	}
	return fmt.Sprintf("projects/%s/secrets/%s", sm.projectID, sanitizeSecretID(name))
}

// GetAmazonCredentials loads the latest version of an SP-API credential secret
func (sm *GCPSecretManager) GetAmazonCredentials(ctx context.Context, name string) (*AmazonCredentials, error) {
	secretName := sm.BuildSecretName(name)

	sm.cacheMu.RLock()
	if entry, ok := sm.cache[secretName]; ok && time.Now().Before(entry.expiresAt) {
		sm.cacheMu.RUnlock()
		return entry.creds, nil
	}
	sm.cacheMu.RUnlock()

	result, err := sm.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName + "/versions/latest",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access secret: %w", err)
	}

	var creds AmazonCredentials
	if err := json.Unmarshal(result.GetPayload().GetData(), &creds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal secret: %w", err)
	}
	if creds.RefreshToken == "" || creds.ClientID == "" {
		return nil, fmt.Errorf("secret %s is missing client_id or refresh_token", extractSecretID(secretName))
	}

	sm.cacheMu.Lock()
	sm.cache[secretName] = &cacheEntry{creds: &creds, expiresAt: time.Now().Add(sm.cacheTTL)}
	sm.cacheMu.Unlock()

	return &creds, nil
}

// ClearCache removes all secrets from the cache
func (sm *GCPSecretManager) ClearCache() {
	sm.cacheMu.Lock()
	sm.cache = make(map[string]*cacheEntry)
	sm.cacheMu.Unlock()
}

// sanitizeSecretID replaces characters GCP does not accept in secret ids
func sanitizeSecretID(input string) string {
	var result strings.Builder
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			result.WriteRune(r)
		} else {
			result.WriteRune('-')
		}
	}
	return result.String()
}

// extractSecretID extracts the secret ID from the full secret name
func extractSecretID(secretName string) string {
	parts := strings.Split(secretName, "/")
	if len(parts) >= 4 {
		return parts[3]
	}
	return secretName
}
