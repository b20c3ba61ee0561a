package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gameforge-server/internal/models"

	"go.uber.org/zap"
)

// Creator is the identity service's view of a platform account.
type Creator struct {
	FID      int64   `json:"fid"`
	Username string  `json:"username"`
	Score    float64 `json:"score"`
}

// IdentityClient fetches creator profiles and reputation scores.
type IdentityClient interface {
	GetCreator(ctx context.Context, fid int64) (*Creator, error)
}

var _ IdentityClient = (*HTTPIdentityClient)(nil)

type HTTPIdentityClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPIdentityClient creates a new HTTP client for the identity service.
func NewHTTPIdentityClient(baseURL, apiKey string, logger *zap.Logger) *HTTPIdentityClient {
	return &HTTPIdentityClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		logger: logger.Named("HTTPIdentityClient"),
	}
}

// GetCreator fetches one creator by FID. A 404 from the identity service
// maps to ErrCreatorNotFound.
func (c *HTTPIdentityClient) GetCreator(ctx context.Context, fid int64) (*Creator, error) {
	log := c.logger.With(zap.Int64("fid", fid))

	endpointURL := fmt.Sprintf("%s/v1/creators/%d", c.baseURL, fid)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpointURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity service request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("Failed to execute request to identity service", zap.Error(err))
		return nil, fmt.Errorf("failed to execute request to identity service: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		log.Debug("Creator not found in identity service")
		return nil, models.ErrCreatorNotFound
	default:
		log.Error("Identity service returned non-OK status", zap.Int("statusCode", resp.StatusCode))
		return nil, &models.UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("identity service returned status %d", resp.StatusCode),
		}
	}

	var creator Creator
	if err := json.NewDecoder(resp.Body).Decode(&creator); err != nil {
		log.Error("Failed to decode identity service response", zap.Error(err))
		return nil, fmt.Errorf("failed to decode identity service response: %w", err)
	}
	return &creator, nil
}
