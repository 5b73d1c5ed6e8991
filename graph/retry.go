package graph

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig configures retry behavior for nodes and capability calls
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	Timeout         time.Duration    // Per-attempt deadline, 0 means none
	RetryableErrors func(error) bool // Determines if an error should trigger retry
}

// DefaultRetryConfig returns a default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		Timeout:       30 * time.Second,
		RetryableErrors: func(_ error) bool {
			return true
		},
	}
}

// Do runs fn with exponential backoff according to the config. The context
// is checked before each attempt and during backoff sleeps.
func (c *RetryConfig) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	delay := c.InitialDelay

	for attempt := 1; attempt <= c.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		default:
		}

		err := c.attempt(ctx, fn)
		if err == nil {
			return nil
		}
		lastErr = err

		if c.RetryableErrors != nil && !c.RetryableErrors(err) {
			return err
		}

		if attempt < c.MaxAttempts {
			select {
			case <-time.After(delay):
				delay = min(time.Duration(float64(delay)*c.BackoffFactor), c.MaxDelay)
			case <-ctx.Done():
				return fmt.Errorf("retry cancelled during backoff: %w", ctx.Err())
			}
		}
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", c.MaxAttempts, lastErr)
}

// attempt runs one call under the per-attempt deadline. A timed-out
// attempt surfaces context.DeadlineExceeded from fn and retries like
// any other failure.
func (c *RetryConfig) attempt(ctx context.Context, fn func(ctx context.Context) error) error {
	if c.Timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	return fn(attemptCtx)
}

// RetryNode wraps a node with retry logic
type RetryNode struct {
	node   Node
	config *RetryConfig
}

// NewRetryNode creates a new retry node
func NewRetryNode(node Node, config *RetryConfig) *RetryNode {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &RetryNode{
		node:   node,
		config: config,
	}
}

// Execute runs the node with retry logic
func (rn *RetryNode) Execute(ctx context.Context, state any) (any, error) {
	var result any
	err := rn.config.Do(ctx, func(ctx context.Context) error {
		var execErr error
		result, execErr = rn.node.Function(ctx, state)
		return execErr
	})
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", rn.node.Name, err)
	}
	return result, nil
}

// AddNodeWithRetry adds a node with retry logic
func (g *StateGraph) AddNodeWithRetry(
	name string,
	description string,
	fn func(context.Context, any) (any, error),
	config *RetryConfig,
) {
	node := Node{
		Name:        name,
		Description: description,
		Function:    fn,
	}
	retryNode := NewRetryNode(node, config)
	g.AddNode(name, description, retryNode.Execute)
}

// TimeoutNode wraps a node with timeout logic
type TimeoutNode struct {
	node    Node
	timeout time.Duration
}

// NewTimeoutNode creates a new timeout node
func NewTimeoutNode(node Node, timeout time.Duration) *TimeoutNode {
	return &TimeoutNode{
		node:    node,
		timeout: timeout,
	}
}

// Execute runs the node with a per-call deadline
func (tn *TimeoutNode) Execute(ctx context.Context, state any) (any, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, tn.timeout)
	defer cancel()

	type outcome struct {
		result any
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		res, err := tn.node.Function(timeoutCtx, state)
		done <- outcome{result: res, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-timeoutCtx.Done():
		return nil, fmt.Errorf("node %s timed out after %v: %w", tn.node.Name, tn.timeout, timeoutCtx.Err())
	}
}
