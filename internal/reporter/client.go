package reporter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tckz/portfolio-visits/internal/visits"
)

var _ VisitsAPI = (*Client)(nil)

// Client calls the visits resource of a server.
type Client struct {
	baseURL string
	client  *http.Client
}

type StatusError struct {
	Method     string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status=%d", e.Method, visits.Path, e.StatusCode)
}

func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), client: hc}
}

func (c *Client) Get(ctx context.Context) (int64, error) {
	return c.do(ctx, http.MethodGet)
}

func (c *Client) Up(ctx context.Context) (int64, error) {
	return c.do(ctx, http.MethodPost)
}

func (c *Client) do(ctx context.Context, method string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+visits.Path, nil)
	if err != nil {
		return 0, fmt.Errorf("http.NewRequest: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		io.Copy(io.Discard, res.Body)
		return 0, &StatusError{Method: method, StatusCode: res.StatusCode}
	}

	var body visits.Response
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("json.Decode: %w", err)
	}
	return body.Count, nil
}
