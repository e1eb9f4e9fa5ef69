package counter

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeREST mimics the get/incr commands of a Redis-over-REST service.
type fakeREST struct {
	mu     sync.Mutex
	token  string
	values map[string]int64
	status int
}

func (f *fakeREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer "+f.token {
		http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
		return
	}
	if f.status != 0 {
		http.Error(w, `{"error":"boom"}`, f.status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && len(r.URL.Path) > len("/get/") && r.URL.Path[:5] == "/get/":
		v, ok := f.values[r.URL.Path[5:]]
		if !ok {
			fmt.Fprint(w, `{"result":null}`)
			return
		}
		fmt.Fprintf(w, `{"result":%q}`, strconv.FormatInt(v, 10))
	case r.Method == http.MethodPost && len(r.URL.Path) > len("/incr/") && r.URL.Path[:6] == "/incr/":
		key := r.URL.Path[6:]
		f.values[key]++
		fmt.Fprintf(w, `{"result":%d}`, f.values[key])
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeREST) value(key string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[key]
}

func newFakeREST(token string) *fakeREST {
	return &fakeREST{token: token, values: map[string]int64{}}
}

func TestRESTCounter_GetAbsentIsZero(t *testing.T) {
	f := newFakeREST("secret")
	ts := httptest.NewServer(f)
	defer ts.Close()

	c := NewRESTCounter(context.Background(), ts.URL, "secret", "portfolio:visits", ts.Client())

	n, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestRESTCounter_UpThenGet(t *testing.T) {
	f := newFakeREST("secret")
	ts := httptest.NewServer(f)
	defer ts.Close()

	ctx := context.Background()
	c := NewRESTCounter(ctx, ts.URL+"/", "secret", "portfolio:visits", ts.Client())

	for i := int64(1); i <= 3; i++ {
		n, err := c.Up(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	n, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, int64(3), f.value("portfolio:visits"))
}

func TestRESTCounter_WrongTokenIsAnError(t *testing.T) {
	ts := httptest.NewServer(newFakeREST("secret"))
	defer ts.Close()

	c := NewRESTCounter(context.Background(), ts.URL, "guess", "portfolio:visits", ts.Client())

	_, err := c.Get(context.Background())
	require.ErrorIs(t, err, ErrUnexpectedStatus)
	_, err = c.Up(context.Background())
	require.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestRESTCounter_MalformedValues(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodGet {
			fmt.Fprint(w, `{"result":"not-a-number"}`)
			return
		}
		fmt.Fprint(w, `{"result":"OK"}`)
	}))
	defer ts.Close()

	c := NewRESTCounter(context.Background(), ts.URL, "t", "k", ts.Client())

	n, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	_, err = c.Up(context.Background())
	require.ErrorIs(t, err, ErrNoResult)
}

func TestRESTCounter_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := NewRESTCounter(context.Background(), url, "t", "k", nil)

	_, err := c.Get(context.Background())
	require.Error(t, err)
}

func TestRESTCounter_ServerError(t *testing.T) {
	f := newFakeREST("secret")
	f.status = http.StatusServiceUnavailable
	ts := httptest.NewServer(f)
	defer ts.Close()

	c := NewRESTCounter(context.Background(), ts.URL, "secret", "portfolio:visits", ts.Client())

	_, err := c.Up(context.Background())
	require.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Equal(t, int64(0), f.value("portfolio:visits"))
}
