package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func flakyConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      time.Millisecond,
		BackoffFactor: 1.0,
		RetryableErrors: func(_ error) bool {
			return true
		},
	}
}

func TestRetryNodeExecute(t *testing.T) {
	t.Run("Recovers From Transient Failures", func(t *testing.T) {
		attempts := 0
		node := Node{
			Name: "flaky",
			Function: func(ctx context.Context, state any) (any, error) {
				attempts++
				if attempts < 3 {
					return nil, errors.New("transient")
				}
				return "done", nil
			},
		}

		result, err := NewRetryNode(node, flakyConfig()).Execute(context.Background(), nil)
		assert.NoError(t, err)
		assert.Equal(t, "done", result)
		assert.Equal(t, 3, attempts)
	})

	t.Run("Failure Names The Node", func(t *testing.T) {
		node := Node{
			Name: "broken",
			Function: func(ctx context.Context, state any) (any, error) {
				return nil, errors.New("always")
			},
		}

		_, err := NewRetryNode(node, flakyConfig()).Execute(context.Background(), nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "broken")
	})
}

func TestAddNodeWithRetry(t *testing.T) {
	g := NewStateGraph()
	g.SetSchema(&countingSchema{})

	attempts := 0
	g.AddNodeWithRetry("fetch", "flaky fetch", func(ctx context.Context, state any) (any, error) {
		attempts++
		if attempts < 2 {
			return nil, errors.New("transient")
		}
		return map[string]any{"fetched": true}, nil
	}, flakyConfig())
	g.AddEdge("fetch", END)
	g.SetEntryPoint("fetch")

	runnable, err := g.Compile()
	assert.NoError(t, err)

	state, err := runnable.Invoke(context.Background(), nil)
	assert.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, true, state.(map[string]any)["fetched"])
}

func TestTimeoutNode(t *testing.T) {
	t.Run("Fast Node Passes Through", func(t *testing.T) {
		node := Node{
			Name: "quick",
			Function: func(ctx context.Context, state any) (any, error) {
				return "ok", nil
			},
		}

		result, err := NewTimeoutNode(node, time.Second).Execute(context.Background(), nil)
		assert.NoError(t, err)
		assert.Equal(t, "ok", result)
	})

	t.Run("Slow Node Times Out", func(t *testing.T) {
		node := Node{
			Name: "slow",
			Function: func(ctx context.Context, state any) (any, error) {
				select {
				case <-time.After(time.Second):
					return "too late", nil
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			},
		}

		_, err := NewTimeoutNode(node, 5*time.Millisecond).Execute(context.Background(), nil)
		assert.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Contains(t, err.Error(), "slow")
	})
}

func TestRetryConfigPerAttemptTimeout(t *testing.T) {
	cfg := flakyConfig()
	cfg.MaxAttempts = 2
	cfg.Timeout = 5 * time.Millisecond

	attempts := 0
	err := cfg.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		<-ctx.Done()
		return ctx.Err()
	})
	assert.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, attempts, "each attempt gets a fresh deadline")
}
