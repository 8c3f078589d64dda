package app

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloseStack_ClosesInReverseOrder(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	var order []string
	var s closeStack
	s.push("tracer", func() error { order = append(order, "tracer"); return nil })
	s.push("postgres", func() error { order = append(order, "postgres"); return errors.New("already closed") })
	s.push("redis", func() error { order = append(order, "redis"); return nil })

	s.closeAll(logger)

	assert.Equal(t, []string{"redis", "postgres", "tracer"}, order)
	assert.Contains(t, buf.String(), `"component":"postgres"`)
	assert.Empty(t, s)

	s.closeAll(logger)
	assert.Len(t, order, 3)
}

func TestCloseStack_ReleasesRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	var s closeStack
	s.push("redis", client.Close)
	s.closeAll(slog.Default())

	assert.ErrorIs(t, client.Close(), redis.ErrClosed)
	require.Error(t, client.Ping(t.Context()).Err())
}
