package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sigrank/internal/logger"
	"sigrank/internal/pkg/circuit"
)

const maxPayloadBytes = 512 << 20

// Client downloads the raw miner feed. The feed expects the API key in a JSON body on GET.
type Client struct {
	endpoint   *url.URL
	apiKey     string
	httpClient *http.Client
	breaker    *circuit.CircuitBreaker
	now        func() time.Time
}

func NewClient(endpoint, apiKey string, timeout time.Duration, breaker *circuit.CircuitBreaker) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("snapshot endpoint cannot be empty")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot endpoint: %w", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint:   u,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
		now:        time.Now,
	}, nil
}

func (c *Client) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.httpClient = client
	}
}

// Fetch downloads one payload and returns it with the time the response arrived.
func (c *Client) Fetch(ctx context.Context) ([]byte, time.Time, error) {
	if c == nil {
		return nil, time.Time{}, fmt.Errorf("snapshot client not initialised")
	}
	var (
		raw []byte
		at  time.Time
	)
	call := func(ctx context.Context) error {
		var err error
		raw, err = c.doRequest(ctx)
		at = c.now().UTC()
		return err
	}
	var err error
	if c.breaker != nil {
		err = c.breaker.Do(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, time.Time{}, err
	}
	logger.Debugf("snapshot: fetched %d bytes from %s", len(raw), c.endpoint.Host)
	return raw, at, nil
}

func (c *Client) doRequest(ctx context.Context) ([]byte, error) {
	body, err := json.Marshal(map[string]string{"api_key": c.apiKey})
	if err != nil {
		return nil, fmt.Errorf("encode request failed: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if len(data) == 0 {
			return nil, fmt.Errorf("snapshot source returned %s", resp.Status)
		}
		return nil, fmt.Errorf("snapshot source returned %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("read snapshot body failed: %w", err)
	}
	return raw, nil
}
