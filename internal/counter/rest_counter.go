package counter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

var _ Counter = (*RESTCounter)(nil)

// RESTCounter talks to a Redis-over-REST service (Upstash style):
//
//	GET  {base}/get/{key}  -> {"result": "12"} or {"result": null}
//	POST {base}/incr/{key} -> {"result": 13}
//
// The token is sent as a bearer credential.
type RESTCounter struct {
	baseURL string
	key     string
	client  *http.Client
}

type restReply struct {
	Result json.RawMessage `json:"result"`
}

// NewRESTCounter builds the counter. base is used as the underlying HTTP
// client and may be nil.
func NewRESTCounter(ctx context.Context, baseURL, token, key string, base *http.Client) *RESTCounter {
	if base == nil {
		base = &http.Client{Timeout: 5 * time.Second}
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})

	cl := oauth2.NewClient(ctx, ts)
	cl.Timeout = base.Timeout

	return &RESTCounter{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		client:  cl,
	}
}

func (c *RESTCounter) Get(ctx context.Context) (int64, error) {
	rep, err := c.do(ctx, http.MethodGet, "get")
	if err != nil {
		return 0, err
	}

	raw := bytes.TrimSpace(rep.Result)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return parseCount(s), nil
	}
	return parseCount(string(raw)), nil
}

func (c *RESTCounter) Up(ctx context.Context) (int64, error) {
	rep, err := c.do(ctx, http.MethodPost, "incr")
	if err != nil {
		return 0, err
	}

	var n json.Number
	if err := json.Unmarshal(rep.Result, &n); err != nil {
		return 0, fmt.Errorf("incr: result=%s, %w", rep.Result, ErrNoResult)
	}
	v, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("incr: result=%s, %w", rep.Result, ErrNoResult)
	}
	return v, nil
}

func (c *RESTCounter) do(ctx context.Context, method, command string) (*restReply, error) {
	u := c.baseURL + "/" + command + "/" + url.PathEscape(c.key)
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("http.NewRequest: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, command, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		io.Copy(io.Discard, res.Body)
		return nil, fmt.Errorf("%s %s: status=%d, %w", method, command, res.StatusCode, ErrUnexpectedStatus)
	}

	var rep restReply
	if err := json.NewDecoder(res.Body).Decode(&rep); err != nil {
		return nil, fmt.Errorf("json.Decode: %w", err)
	}
	return &rep, nil
}
