package sentinel

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/forest-guardian/ndsi-salinity-cli/internal/cache"
	"github.com/forest-guardian/ndsi-salinity-cli/internal/properties"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	catalogSearchPath = "/api/v1/catalog/1.0.0/search"
	processPath       = "/api/v1/process"
)

var (
	ErrMissingCredentials = errors.New("missing required environment variables: COPERNICUS_CLIENT_ID, COPERNICUS_CLIENT_SECRET, or COPERNICUS_TOKEN_URL")
	ErrUnauthorized       = errors.New("unauthorized access, check your client ID and secret")
)

type Config struct {
	BaseURL       string
	ClientIDs     []string
	ClientSecrets []string
	TokenURL      string
	// HTTPClient replaces the OAuth2 clients, mainly for tests.
	HTTPClient  *http.Client
	Retries     int
	RetryDelay  time.Duration
	ImageDir    string
	CatalogDir  string
	CatalogTTL  time.Duration
	Concurrency int
}

// ConfigFromEnv builds the client configuration from the environment.
func ConfigFromEnv() Config {
	return Config{
		BaseURL:       properties.SentinelHubURL(),
		ClientIDs:     properties.CopernicusClientIDs(),
		ClientSecrets: properties.CopernicusClientSecrets(),
		TokenURL:      properties.CopernicusTokenURL(),
		Retries:       properties.MaxRetries(),
		RetryDelay:    5 * time.Second,
		ImageDir:      properties.DataPath("images"),
		CatalogDir:    properties.DataPath("catalog"),
		CatalogTTL:    24 * time.Hour,
		Concurrency:   properties.SceneConcurrency(),
	}
}

// Client talks to the Sentinel Hub catalog and process APIs.
type Client struct {
	baseURL     string
	clients     []*http.Client
	retries     int
	retryDelay  time.Duration
	imageDir    string
	concurrency int
	catalog     cache.CacheService[[]Scene]
	log         *logrus.Entry
}

func NewClient(cfg Config) (*Client, error) {
	var clients []*http.Client
	if cfg.HTTPClient != nil {
		clients = []*http.Client{cfg.HTTPClient}
	} else {
		if len(cfg.ClientIDs) == 0 || len(cfg.ClientSecrets) == 0 || cfg.TokenURL == "" {
			return nil, ErrMissingCredentials
		}
		if len(cfg.ClientIDs) != len(cfg.ClientSecrets) {
			return nil, errors.Errorf("mismatched number of client IDs (%d) and secrets (%d)", len(cfg.ClientIDs), len(cfg.ClientSecrets))
		}
		for i, clientID := range cfg.ClientIDs {
			config := &clientcredentials.Config{
				ClientID:     clientID,
				ClientSecret: cfg.ClientSecrets[i],
				TokenURL:     cfg.TokenURL,
			}
			clients = append(clients, config.Client(context.Background()))
		}
	}

	if cfg.Retries < 1 {
		cfg.Retries = 1
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	client := &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		clients:     clients,
		retries:     cfg.Retries,
		retryDelay:  cfg.RetryDelay,
		imageDir:    cfg.ImageDir,
		concurrency: cfg.Concurrency,
		log:         logrus.WithField("component", "sentinel"),
	}
	if cfg.CatalogDir != "" {
		client.catalog = cache.NewFileCache[[]Scene](cfg.CatalogDir, cfg.CatalogTTL)
	}
	return client, nil
}

// Concurrency is the number of scene rasters that may be requested at once.
func (c *Client) Concurrency() int {
	return c.concurrency
}

// post sends a JSON payload, retrying transient failures and moving on to
// the next credential pair when one is rejected.
func (c *Client) post(ctx context.Context, path, accept string, payload interface{}) ([]byte, error) {
	requestBody, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request payload")
	}

	url := c.baseURL + path
	var lastErr error
	for _, httpClient := range c.clients {
		body, err := c.postWithRetry(ctx, httpClient, url, accept, requestBody)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !errors.Is(err, ErrUnauthorized) {
			return nil, err
		}
		c.log.Warn("credential rejected, trying the next one")
	}
	return nil, lastErr
}

func (c *Client) postWithRetry(ctx context.Context, httpClient *http.Client, url, accept string, requestBody []byte) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBody))
		if err != nil {
			return nil, errors.Wrap(err, "failed to build request")
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", accept)

		response, err := httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			body, readErr := io.ReadAll(response.Body)
			response.Body.Close()
			switch {
			case readErr != nil:
				lastErr = errors.Wrap(readErr, "failed to read response body")
			case response.StatusCode == http.StatusOK:
				return body, nil
			case response.StatusCode == http.StatusUnauthorized || response.StatusCode == http.StatusForbidden:
				return nil, errors.Wrapf(ErrUnauthorized, "status %d: %s", response.StatusCode, string(body))
			case response.StatusCode == http.StatusTooManyRequests || response.StatusCode >= 500:
				lastErr = errors.Errorf("status %d: %s", response.StatusCode, string(body))
			default:
				return nil, errors.Errorf("request to %s failed with status %d: %s", url, response.StatusCode, string(body))
			}
		}

		c.log.WithFields(logrus.Fields{"attempt": attempt, "url": url}).Warnf("request failed: %v", lastErr)
		if attempt == c.retries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.retryDelay):
		}
	}
	return nil, errors.Wrapf(lastErr, "failed after %d attempts", c.retries)
}
