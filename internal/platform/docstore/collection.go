// Package docstore keeps JSON documents in Redis. Each collection stores one
// string key per document plus a sorted-set index ordered by creation time, and
// publishes change events on a per-document Pub/Sub channel.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrNotFound = errors.New("document not found")
	// ErrConflict is returned when an optimistic update keeps losing the race.
	ErrConflict = errors.New("document update conflict")
)

const (
	defaultMaxRetries   = 16
	defaultRetryBackoff = 2 * time.Millisecond
	maxRetryBackoff     = 100 * time.Millisecond
	listBatchSize       = 200
)

type Option func(*options)

type options struct {
	maxRetries int
	backoff    time.Duration
	onRetry    func(collection string)
}

// WithMaxRetries bounds the WATCH/MULTI retry loop used by Update.
func WithMaxRetries(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxRetries = n
		}
	}
}

// WithRetryBackoff sets the base delay between optimistic update attempts.
// The delay doubles per attempt up to a cap and is jittered. Zero disables it.
func WithRetryBackoff(base time.Duration) Option {
	return func(o *options) {
		if base >= 0 {
			o.backoff = base
		}
	}
}

// WithRetryHook is called each time an optimistic update has to be retried.
func WithRetryHook(fn func(collection string)) Option {
	return func(o *options) { o.onRetry = fn }
}

type Collection[T any] struct {
	client *redis.Client
	prefix string
	name   string
	opts   options
}

func NewCollection[T any](client *redis.Client, prefix, name string, opts ...Option) *Collection[T] {
	o := options{maxRetries: defaultMaxRetries, backoff: defaultRetryBackoff}
	for _, opt := range opts {
		opt(&o)
	}
	return &Collection[T]{client: client, prefix: prefix, name: name, opts: o}
}

func (c *Collection[T]) Name() string { return c.name }

// Create stores doc under id and indexes it by createdAt.
func (c *Collection[T]) Create(ctx context.Context, id string, doc *T, createdAt time.Time) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal %s document: %w", c.name, err)
	}

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, c.docKey(id), data, 0)
		pipe.ZAdd(ctx, c.indexKey(), redis.Z{Score: float64(createdAt.UnixNano()), Member: id})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create %s document: %w", c.name, err)
	}
	return nil
}

func (c *Collection[T]) Get(ctx context.Context, id string) (*T, error) {
	data, err := c.client.Get(ctx, c.docKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s document: %w", c.name, err)
	}

	var doc T
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s document: %w", c.name, err)
	}
	return &doc, nil
}

// List returns every document accepted by keep, newest first. A nil keep accepts all.
func (c *Collection[T]) List(ctx context.Context, keep func(*T) bool) ([]*T, error) {
	ids, err := c.client.ZRevRange(ctx, c.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list %s index: %w", c.name, err)
	}

	out := make([]*T, 0, len(ids))
	for start := 0; start < len(ids); start += listBatchSize {
		end := min(start+listBatchSize, len(ids))
		keys := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			keys = append(keys, c.docKey(id))
		}

		vals, err := c.client.MGet(ctx, keys...).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to load %s documents: %w", c.name, err)
		}

		for _, v := range vals {
			raw, ok := v.(string)
			if !ok {
				// index entry outlived its document
				continue
			}
			var doc T
			if err := json.Unmarshal([]byte(raw), &doc); err != nil {
				return nil, fmt.Errorf("failed to unmarshal %s document: %w", c.name, err)
			}
			if keep == nil || keep(&doc) {
				out = append(out, &doc)
			}
		}
	}
	return out, nil
}

// Update runs mutate against the current document inside a WATCH/MULTI
// transaction and retries when another writer commits first. An error from
// mutate aborts the update and is returned unchanged.
func (c *Collection[T]) Update(ctx context.Context, id string, mutate func(*T) error) (*T, error) {
	key := c.docKey(id)
	var updated *T

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get %s document: %w", c.name, err)
		}

		var doc T
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("failed to unmarshal %s document: %w", c.name, err)
		}
		if err := mutate(&doc); err != nil {
			return err
		}

		next, err := json.Marshal(&doc)
		if err != nil {
			return fmt.Errorf("failed to marshal %s document: %w", c.name, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		if err == nil {
			updated = &doc
		}
		return err
	}

	for attempt := 0; attempt < c.opts.maxRetries; attempt++ {
		err := c.client.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}
		if c.opts.onRetry != nil {
			c.opts.onRetry(c.name)
		}
		if attempt == c.opts.maxRetries-1 {
			break
		}
		if err := sleepCtx(ctx, backoffDelay(c.opts.backoff, attempt)); err != nil {
			return nil, err
		}
	}
	return nil, ErrConflict
}

// backoffDelay returns a delay in [ceil/2, ceil] where ceil is base doubled
// attempt times and capped at maxRetryBackoff.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	ceil := maxRetryBackoff
	if attempt < 16 {
		if d := base << attempt; d > 0 && d < ceil {
			ceil = d
		}
	}
	half := ceil / 2
	return half + rand.N(ceil-half+1)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, c.docKey(id))
		pipe.ZRem(ctx, c.indexKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s document: %w", c.name, err)
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *Collection[T]) Count(ctx context.Context) (int64, error) {
	n, err := c.client.ZCard(ctx, c.indexKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count %s documents: %w", c.name, err)
	}
	return n, nil
}

// Publish sends event as JSON on the document's change channel.
func (c *Collection[T]) Publish(ctx context.Context, id string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", c.name, err)
	}
	return c.client.Publish(ctx, c.EventChannel(id), data).Err()
}

// Subscribe listens on the document's change channel. Callers must Close the result.
func (c *Collection[T]) Subscribe(ctx context.Context, id string) *redis.PubSub {
	return c.client.Subscribe(ctx, c.EventChannel(id))
}

func (c *Collection[T]) EventChannel(id string) string {
	return fmt.Sprintf("%s:events:%s:%s", c.prefix, c.name, id)
}

func (c *Collection[T]) docKey(id string) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, c.name, id)
}

func (c *Collection[T]) indexKey() string {
	return fmt.Sprintf("%s:%s:index", c.prefix, c.name)
}
