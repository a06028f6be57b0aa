package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func fastConfig() Config {
	return Config{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestWithBackoffSucceedsAfterRetries(t *testing.T) {
	calls := 0
	err := WithBackoff(context.Background(), fastConfig(), zaptest.NewLogger(t), "op", func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithBackoffExhaustsRetries(t *testing.T) {
	calls := 0
	err := WithBackoff(context.Background(), fastConfig(), zaptest.NewLogger(t), "op", func() error {
		calls++
		return errors.New("persistent")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, calls)
}

func TestWithBackoffHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WithBackoff(ctx, fastConfig(), zaptest.NewLogger(t), "op", func() error {
		return errors.New("never retried")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
