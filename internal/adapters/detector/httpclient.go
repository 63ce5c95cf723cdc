package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"time"

	"github.com/okian/leap/internal/domain/model"
)

// Default HTTP client configuration constants.
const (
	defaultInferenceTimeout = 10 * time.Second

	healthPath = "/healthz"
	posePath   = "/v1/pose"
)

// HTTPClient calls a pose-estimation service over HTTP. The service
// accepts a PNG-encoded frame and returns the detected keypoints as
// JSON; it owns the model, so no explicit inference timeout is imposed
// beyond the transport-level one.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// HTTPOption applies a configuration option to the HTTPClient.
type HTTPOption func(*HTTPClient)

// WithTimeout bounds a single detector round-trip.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		if timeout > 0 {
			c.client.Timeout = timeout
		}
	}
}

// WithHTTPClient replaces the underlying transport, mainly for tests.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(c *HTTPClient) {
		if hc != nil {
			c.client = hc
		}
	}
}

// NewHTTPClient creates a client for the pose service at baseURL.
func NewHTTPClient(baseURL string, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultInferenceTimeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Load verifies the service is reachable and its model is ready.
func (c *HTTPClient) Load(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health check returned %s", ErrUnavailable, resp.Status)
	}
	return nil
}

// keypointResponse mirrors the pose service's per-landmark JSON shape.
type keypointResponse struct {
	Name       string  `json:"name"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
}

// Estimate sends one frame for inference and decodes the keypoints.
func (c *HTTPClient) Estimate(ctx context.Context, frame image.Image) ([]model.Keypoint, error) {
	var body bytes.Buffer
	if err := png.Encode(&body, frame); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+posePath, &body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "image/png")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: inference returned %s", ErrUnavailable, resp.Status)
	}

	var decoded []keypointResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrUnavailable, err)
	}

	keypoints := make([]model.Keypoint, len(decoded))
	for i, k := range decoded {
		keypoints[i] = model.Keypoint{
			Name:       k.Name,
			X:          k.X,
			Y:          k.Y,
			Confidence: k.Confidence,
		}
	}
	return keypoints, nil
}
