package amazon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ahmtersoy23-ui/databridge/internal/models"
	"github.com/ahmtersoy23-ui/databridge/internal/secrets"
)

// ErrNoCredentials is returned when no active credential serves a marketplace
var ErrNoCredentials = errors.New("no active SP-API credentials")

// CredentialSource looks up active credential rows
type CredentialSource interface {
	GetActiveByID(ctx context.Context, id uint) (*models.Credential, error)
	FirstActiveByRegion(ctx context.Context, region string) (*models.Credential, error)
}

// SecretSource resolves credentials kept in a secret store
type SecretSource interface {
	GetAmazonCredentials(ctx context.Context, name string) (*secrets.AmazonCredentials, error)
}

type cachedClient struct {
	client    *Client
	expiresAt time.Time
}

// ClientCache keeps one Client per credential for TTL
type ClientCache struct {
	creds   CredentialSource
	secrets SecretSource
	ttl     time.Duration
	opts    []Option
	logger  *logrus.Entry

	mu      sync.Mutex
	clients map[uint]cachedClient
}

// NewClientCache creates a client cache. secretSource may be nil when
// credentials are stored only in the database.
func NewClientCache(creds CredentialSource, secretSource SecretSource, ttl time.Duration, logger *logrus.Logger, opts ...Option) *ClientCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &ClientCache{
		creds:   creds,
		secrets: secretSource,
		ttl:     ttl,
		opts:    opts,
		logger:  logger.WithField("component", "sp-api-clients"),
		clients: make(map[uint]cachedClient),
	}
}

// ClientFor returns the client for the marketplace's linked credential,
// falling back to the first active credential of its region
func (c *ClientCache) ClientFor(ctx context.Context, mp models.MarketplaceConfig) (*Client, error) {
	if mp.CredentialID != nil {
		if client, ok := c.lookup(*mp.CredentialID); ok {
			return client, nil
		}
		cred, err := c.creds.GetActiveByID(ctx, *mp.CredentialID)
		if err != nil {
			return nil, fmt.Errorf("credential %d: %w", *mp.CredentialID, err)
		}
		if cred == nil {
			return nil, fmt.Errorf("credential %d: %w", *mp.CredentialID, ErrNoCredentials)
		}
		return c.build(ctx, cred)
	}

	cred, err := c.creds.FirstActiveByRegion(ctx, mp.Region)
	if err != nil {
		return nil, fmt.Errorf("region %s: %w", mp.Region, err)
	}
	if cred == nil {
		return nil, fmt.Errorf("region %s: %w", mp.Region, ErrNoCredentials)
	}
	if client, ok := c.lookup(cred.ID); ok {
		return client, nil
	}
	return c.build(ctx, cred)
}

// Clear drops every cached client, and the cached secrets when the source keeps any
func (c *ClientCache) Clear() {
	c.mu.Lock()
	c.clients = make(map[uint]cachedClient)
	c.mu.Unlock()

	if s, ok := c.secrets.(interface{ ClearCache() }); ok {
		s.ClearCache()
	}
}

func (c *ClientCache) lookup(id uint) (*Client, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.clients[id]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.client, true
}

func (c *ClientCache) build(ctx context.Context, cred *models.Credential) (*Client, error) {
	creds := Credentials{
		ClientID:     cred.ClientID,
		ClientSecret: cred.ClientSecret,
		RefreshToken: cred.RefreshToken,
		SellerID:     cred.SellerID,
		Region:       strings.ToLower(cred.Region),
	}

	if cred.SecretName != "" {
		if c.secrets == nil {
			return nil, fmt.Errorf("credential %d references secret %q but Secret Manager is not configured", cred.ID, cred.SecretName)
		}
		stored, err := c.secrets.GetAmazonCredentials(ctx, cred.SecretName)
		if err != nil {
			return nil, fmt.Errorf("credential %d: %w", cred.ID, err)
		}
		creds.ClientID = stored.ClientID
		creds.ClientSecret = stored.ClientSecret
		creds.RefreshToken = stored.RefreshToken
		if stored.SellerID != "" {
			creds.SellerID = stored.SellerID
		}
	}

	client := NewClient(creds, c.opts...)

	c.mu.Lock()
	c.clients[cred.ID] = cachedClient{client: client, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()

	name := cred.AccountName
	if name == "" {
		name = cred.Region
	}
	c.logger.Infof("Client created for credential id: %d (%s)", cred.ID, name)
	return client, nil
}
