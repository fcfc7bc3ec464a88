package stream

import (
	"context"
	"sync"

	rferrors "github.com/vnykmshr/reactflow/pkg/common/errors"
)

// collector records the outcome of a blocking subscription.
type collector[T any] struct {
	mu         sync.Mutex
	onValue    func(T) bool
	err        error
	terminated bool
	stop       func()
}

func (c *collector[T]) OnValue(v T) {
	c.mu.Lock()
	more := c.onValue(v)
	c.mu.Unlock()
	if !more && c.stop != nil {
		c.stop()
	}
}

func (c *collector[T]) OnError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
	c.terminated = true
}

func (c *collector[T]) OnComplete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.terminated = true
}

// await subscribes c to s and blocks until the subscription is done. A
// cancelled subscription reports the context error, or ErrCancelled when
// onValue stopped it.
func await[T any](ctx context.Context, s Stream[T], c *collector[T]) error {
	if ctx == nil {
		ctx = context.Background()
	}
	parent := ctx
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	c.stop = cancel

	sub := s.Subscribe(ctx, c)
	<-sub.Done()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.terminated {
		return c.err
	}
	if err := parent.Err(); err != nil {
		return err
	}
	return rferrors.ErrCancelled
}

// Block subscribes to s and waits for its value. ok is false when s completed
// without a value.
func (s Single[T]) Block(ctx context.Context) (value T, ok bool, err error) {
	c := &collector[T]{onValue: func(v T) bool {
		value, ok = v, true
		return true
	}}
	err = await[T](ctx, s, c)
	c.mu.Lock()
	defer c.mu.Unlock()
	return value, ok, err
}

// ToSlice subscribes to m and waits for all of its values.
func (m Many[T]) ToSlice(ctx context.Context) ([]T, error) {
	var values []T
	c := &collector[T]{onValue: func(v T) bool {
		values = append(values, v)
		return true
	}}
	err := await[T](ctx, m, c)
	c.mu.Lock()
	defer c.mu.Unlock()
	return values, err
}

// ForEach calls fn for every value of m and waits for termination. fn
// returning false cancels the subscription; ForEach then reports
// ErrCancelled.
func (m Many[T]) ForEach(ctx context.Context, fn func(T) bool) error {
	return await[T](ctx, m, &collector[T]{onValue: fn})
}
