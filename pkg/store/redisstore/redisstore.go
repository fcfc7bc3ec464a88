package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	rferrors "github.com/vnykmshr/reactflow/pkg/common/errors"
	"github.com/vnykmshr/reactflow/pkg/common/validation"
	"github.com/vnykmshr/reactflow/pkg/store"
	"github.com/vnykmshr/reactflow/pkg/streaming/stream"
)

// Config holds configuration for the Redis document store.
type Config struct {
	// Redis client used for all operations
	Redis redis.UniversalClient

	// Prefix is prepended to every key
	Prefix string

	// Timeout bounds each store operation
	Timeout time.Duration

	// BatchSize is the number of documents fetched per round trip
	BatchSize int
}

// DefaultConfig returns a default Redis store configuration.
func DefaultConfig() Config {
	return Config{
		Prefix:    "reactflow",
		Timeout:   2 * time.Second,
		BatchSize: 100,
	}
}

// Store is a Redis-backed document store. Each document is a JSON string
// key; a sorted set keeps insertion order and one set per indexed field
// value holds the matching ids.
type Store struct {
	config     Config
	saveScript *redis.Script
}

// New creates a Store. Zero-valued optional fields take their defaults.
func New(config Config) (*Store, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return &Store{
		config:     applyConfigDefaults(config),
		saveScript: redis.NewScript(luaSave),
	}, nil
}

func validateConfig(config Config) error {
	if config.Redis == nil {
		return rferrors.NewValidationError("redisstore", "redis", nil, "client is required")
	}
	if config.Timeout != 0 {
		if err := validation.ValidatePositiveDuration("redisstore", "timeout", config.Timeout); err != nil {
			return err
		}
	}
	if config.BatchSize != 0 {
		if err := validation.ValidatePositive("redisstore", "batchSize", config.BatchSize); err != nil {
			return err
		}
	}
	return nil
}

func applyConfigDefaults(config Config) Config {
	defaults := DefaultConfig()
	if config.Prefix == "" {
		config.Prefix = defaults.Prefix
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	if config.BatchSize == 0 {
		config.BatchSize = defaults.BatchSize
	}
	return config
}

// Ping implements store.Pinger.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()
	return rferrors.Persistence("ping", s.config.Redis.Ping(ctx).Err())
}

// Collection is a typed collection stored in Redis. Equality filters on
// indexed fields read the index; other fields are filtered by a scan.
type Collection[T store.Document[T]] struct {
	store   *Store
	name    string
	keys    map[string]string
	indexed map[string]bool
}

// NewCollection returns the collection called name, maintaining secondary
// indexes for the given JSON field names.
func NewCollection[T store.Document[T]](s *Store, name string, indexes ...string) *Collection[T] {
	indexed := make(map[string]bool, len(indexes))
	for _, f := range indexes {
		indexed[f] = true
	}
	return &Collection[T]{
		store:   s,
		name:    name,
		keys:    collectionKeys(s.config.Prefix, name),
		indexed: indexed,
	}
}

func (c *Collection[T]) Name() string {
	return c.name
}

// Ping implements store.Pinger.
func (c *Collection[T]) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}

func (c *Collection[T]) Save(doc T) stream.Single[T] {
	return stream.FromCallable(func(ctx context.Context) (T, error) {
		ctx, cancel := context.WithTimeout(ctx, c.store.config.Timeout)
		defer cancel()

		doc := store.AssignID(doc)
		id := doc.DocumentID()

		data, err := json.Marshal(doc)
		if err != nil {
			return doc, c.failure("save", fmt.Errorf("encode document: %w", err))
		}
		indexKeys, err := c.indexKeys(data)
		if err != nil {
			return doc, c.failure("save", err)
		}

		keys := append([]string{c.docKey(id), c.keys["ids"], c.keys["seq"], c.refsKey(id)}, indexKeys...)
		if err := c.store.saveScript.Run(ctx, c.store.config.Redis, keys, id, data).Err(); err != nil {
			return doc, c.failure("save", err)
		}
		return doc, nil
	})
}

func (c *Collection[T]) FindAll() stream.Many[T] {
	return stream.Create(func(ctx context.Context, sink stream.Sink[T]) error {
		ctx, cancel := context.WithTimeout(ctx, c.store.config.Timeout)
		defer cancel()
		return c.scan(ctx, "findAll", sink, nil)
	})
}

func (c *Collection[T]) FindWhere(field string, value any) stream.Many[T] {
	return stream.Create(func(ctx context.Context, sink stream.Sink[T]) error {
		ctx, cancel := context.WithTimeout(ctx, c.store.config.Timeout)
		defer cancel()

		encoded, err := store.EncodeValue(value)
		if err != nil {
			return c.failure("findWhere", err)
		}
		match := func(data []byte) (bool, error) {
			return store.Matches(data, field, encoded)
		}

		switch {
		case field == store.IDField:
			var id string
			if err := json.Unmarshal(encoded, &id); err != nil {
				return nil
			}
			_, err := c.emit(ctx, "findWhere", sink, []string{id}, match)
			return err
		case c.indexed[field]:
			ids, err := c.store.config.Redis.SMembers(ctx, c.indexKey(field, encoded)).Result()
			if err != nil {
				return c.failure("findWhere", err)
			}
			ids, err = c.inInsertionOrder(ctx, ids)
			if err != nil {
				return c.failure("findWhere", err)
			}
			for start := 0; start < len(ids); start += c.store.config.BatchSize {
				end := min(start+c.store.config.BatchSize, len(ids))
				more, err := c.emit(ctx, "findWhere", sink, ids[start:end], match)
				if err != nil || !more {
					return err
				}
			}
			return nil
		default:
			return c.scan(ctx, "findWhere", sink, match)
		}
	})
}

func (c *Collection[T]) FindOneWhere(field string, value any) stream.Single[T] {
	return stream.First[T](c.FindWhere(field, value))
}

// scan walks the collection in insertion order, one batch per round trip.
func (c *Collection[T]) scan(ctx context.Context, op string, sink stream.Sink[T], match func([]byte) (bool, error)) error {
	batch := int64(c.store.config.BatchSize)
	for start := int64(0); ; start += batch {
		ids, err := c.store.config.Redis.ZRange(ctx, c.keys["ids"], start, start+batch-1).Result()
		if err != nil {
			return c.failure(op, err)
		}
		if len(ids) == 0 {
			return nil
		}
		more, err := c.emit(ctx, op, sink, ids, match)
		if err != nil || !more {
			return err
		}
		if int64(len(ids)) < batch {
			return nil
		}
	}
}

// emit loads ids with one MGET and pushes the matching documents. It reports
// false once the sink stopped accepting values.
func (c *Collection[T]) emit(ctx context.Context, op string, sink stream.Sink[T], ids []string, match func([]byte) (bool, error)) (bool, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.docKey(id)
	}

	values, err := c.store.config.Redis.MGet(ctx, keys...).Result()
	if err != nil {
		return false, c.failure(op, err)
	}

	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		data := []byte(raw)
		if match != nil {
			ok, err := match(data)
			if err != nil {
				return false, c.failure(op, err)
			}
			if !ok {
				continue
			}
		}

		var doc T
		if err := json.Unmarshal(data, &doc); err != nil {
			return false, c.failure(op, fmt.Errorf("decode document: %w", err))
		}
		if !sink.Next(doc) {
			return false, nil
		}
	}
	return true, nil
}

func (c *Collection[T]) inInsertionOrder(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) < 2 {
		return ids, nil
	}

	pipe := c.store.config.Redis.Pipeline()
	cmds := make([]*redis.FloatCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.ZScore(ctx, c.keys["ids"], id)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	scores := make(map[string]float64, len(ids))
	for i, cmd := range cmds {
		scores[ids[i]] = cmd.Val()
	}
	sort.SliceStable(ids, func(i, j int) bool { return scores[ids[i]] < scores[ids[j]] })
	return ids, nil
}

func (c *Collection[T]) indexKeys(data []byte) ([]string, error) {
	if len(c.indexed) == 0 {
		return nil, nil
	}
	fields, err := store.Fields(data)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(c.indexed))
	for field := range c.indexed {
		if raw, ok := fields[field]; ok {
			keys = append(keys, c.indexKey(field, raw))
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (c *Collection[T]) failure(op string, err error) error {
	return rferrors.Persistence(op+" "+c.name, err)
}
