package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestConnectWithRetrySucceedsEventually(t *testing.T) {
	calls := 0
	err := connectWithRetry(context.Background(), discard, "store", 5, time.Millisecond, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestConnectWithRetryGivesUp(t *testing.T) {
	refused := errors.New("connection refused")
	calls := 0
	err := connectWithRetry(context.Background(), discard, "store", 4, time.Millisecond, func(context.Context) error {
		calls++
		return refused
	})
	require.ErrorIs(t, err, refused)
	require.ErrorContains(t, err, "after 4 attempts")
	require.Equal(t, 4, calls)
}

func TestConnectWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := connectWithRetry(ctx, discard, "store", 10, time.Hour, func(context.Context) error {
		calls++
		cancel()
		return errors.New("down")
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}
