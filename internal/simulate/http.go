package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// heightTolerance is the acceptable difference between the expected and
// reported height, wide enough to absorb the service's rounding.
const heightTolerance = 0.06

// HTTPClient wraps http.Client with a request timeout.
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with the given timeout.
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{Timeout: timeout},
	}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

type manualRequest struct {
	SubjectID      string  `json:"subject_id"`
	TakeoffSeconds float64 `json:"takeoff_seconds"`
	PeakSeconds    float64 `json:"peak_seconds"`
}

// submitJumps posts the generated jumps concurrently using a worker pool.
func submitJumps(ctx context.Context, config *Config, jumps []Jump, stats *Stats) error {
	log.Printf("submitting %d jumps with %d workers...", len(jumps), config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/measurements/manual"

	var (
		successful int64
		mismatched int64
		failed     int64
		submitted  int64
	)

	jumpChan := make(chan Jump, config.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for jump := range jumpChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				result := submitSingleJump(ctx, client, url, jump, config.Verbose)

				atomic.AddInt64(&submitted, 1)
				switch result {
				case "success":
					atomic.AddInt64(&successful, 1)
				case "mismatch":
					atomic.AddInt64(&mismatched, 1)
				case "failed":
					atomic.AddInt64(&failed, 1)
				}
			}
		}()
	}

	go func() {
		defer close(jumpChan)
		for _, jump := range jumps {
			select {
			case <-ctx.Done():
				return
			case jumpChan <- jump:
			}
		}
	}()

	wg.Wait()

	stats.JumpsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.JumpsSuccessful = int(atomic.LoadInt64(&successful))
	stats.JumpsMismatched = int(atomic.LoadInt64(&mismatched))
	stats.JumpsFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`jump submission completed:
   Successful: %d
   Mismatched: %d
   Failed: %d
`, stats.JumpsSuccessful, stats.JumpsMismatched, stats.JumpsFailed)

	return nil
}

// submitSingleJump posts one jump and checks the measurement the
// service computed against the locally expected values.
func submitSingleJump(ctx context.Context, client *HTTPClient, url string, jump Jump, verbose bool) string {
	req := manualRequest{
		SubjectID:      jump.SubjectID,
		TakeoffSeconds: jump.TakeoffSeconds,
		PeakSeconds:    jump.PeakSeconds,
	}

	resp, err := client.Post(ctx, url, req)
	if err != nil {
		return "failed"
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return "failed"
	}

	if resp.StatusCode != http.StatusCreated {
		if verbose {
			log.Printf("submit failed for %s: HTTP %d: %s", jump.SubjectID, resp.StatusCode, string(body))
		}
		return "failed"
	}

	var m MeasurementResponse
	if err := json.Unmarshal(body, &m); err != nil {
		return "failed"
	}

	if math.Abs(m.HeightCm-jump.ExpectedHeightCm) > heightTolerance || m.Category != jump.ExpectedCategory {
		if verbose {
			log.Printf("mismatch for %s: got %.1fcm %s, expected %.1fcm %s",
				jump.SubjectID, m.HeightCm, m.Category, jump.ExpectedHeightCm, jump.ExpectedCategory)
		}
		return "mismatch"
	}

	return "success"
}
