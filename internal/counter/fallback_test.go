package counter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCounter struct {
	count    int64
	err      error
	gets     int
	ups      int
	noResult bool
}

func (c *stubCounter) Get(ctx context.Context) (int64, error) {
	c.gets++
	if c.err != nil {
		return 0, c.err
	}
	return c.count, nil
}

func (c *stubCounter) Up(ctx context.Context) (int64, error) {
	c.ups++
	if c.noResult {
		c.count++
		return 0, ErrNoResult
	}
	if c.err != nil {
		return 0, c.err
	}
	c.count++
	return c.count, nil
}

func TestFallbackCounter_PrimaryHealthy(t *testing.T) {
	ctx := context.Background()
	primary := &stubCounter{count: 100}
	local := &LocalCounter{}
	c := NewFallbackCounter(primary, local)

	n, err := c.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(101), n)

	n, err = c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(101), n)

	v, _ := local.Get(ctx)
	assert.Equal(t, int64(0), v, "local count is untouched while primary is healthy")
	assert.Equal(t, 1, primary.ups)
	assert.Equal(t, 1, primary.gets)
}

func TestFallbackCounter_PrimaryDown(t *testing.T) {
	ctx := context.Background()
	primary := &stubCounter{err: errors.New("connection refused")}
	c := NewFallbackCounter(primary, nil)

	n, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = c.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = c.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestFallbackCounter_NoResultDoesNotIncrementLocal(t *testing.T) {
	ctx := context.Background()
	local := &LocalCounter{}
	_, _ = local.Up(ctx)
	c := NewFallbackCounter(&stubCounter{noResult: true}, local)

	n, err := c.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	v, _ := local.Get(ctx)
	assert.Equal(t, int64(1), v)
}

func TestFallbackCounter_Strict(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	local := &LocalCounter{}
	c := NewFallbackCounter(&stubCounter{err: boom}, local, WithStrict(true))

	_, err := c.Get(ctx)
	require.ErrorIs(t, err, boom)
	_, err = c.Up(ctx)
	require.ErrorIs(t, err, boom)

	v, _ := local.Get(ctx)
	assert.Equal(t, int64(0), v)
}
