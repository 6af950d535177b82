package hardware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Command is what the GPIO device receives. Pin and Action are passed through
// unvalidated.
type Command struct {
	Pin    int    `json:"pin"`
	Action string `json:"action"`
}

type Controller interface {
	Control(ctx context.Context, cmd Command) error
}

// HTTPController posts commands to the device's control endpoint.
type HTTPController struct {
	endpoint   string
	httpClient *http.Client
}

// NewHTTPController builds a controller for endpoint. A zero timeout means
// the call waits for the device as long as it takes.
func NewHTTPController(endpoint string, timeout time.Duration) *HTTPController {
	return &HTTPController{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (h *HTTPController) Control(ctx context.Context, cmd Command) error {
	body, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gpio control failed with status: %d", resp.StatusCode)
	}
	return nil
}
