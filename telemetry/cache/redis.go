package cache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/yavuzelcil/rustyflow-iot/core/logger"
	"github.com/yavuzelcil/rustyflow-iot/telemetry"
)

// Redis is the expiring remote cache backend. It uses one auto-reconnecting
// client; every entry is written with a fixed TTL so stale devices age out
// on their own.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to the redis server at the given URL and probes it with
// a short ping. A failed probe returns an error so the caller can select
// the in-memory backend instead; the choice is made once, at startup.
func NewRedis(url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	logger.Default().Infoln("sensor cache backed by redis")
	return &Redis{client: client}, nil
}

// Close releases the redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Write upserts the record under sensor:<device>:<kind> with the fixed TTL.
func (r *Redis) Write(ctx context.Context, record telemetry.SensorRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := r.client.Set(ctx, keyPrefix+record.Key(), body, entryTTL).Err(); err != nil {
		return classify(err)
	}
	return nil
}

// List scans all sensor keys and fetches each entry individually. The scan
// and the fetches are not atomic: entries may expire or appear in between.
// A failed fetch skips that key, it does not fail the listing.
func (r *Redis) List(ctx context.Context) ([]telemetry.SensorRecord, error) {
	rlog := logger.FromContext(ctx)
	keys, err := r.client.Keys(ctx, keyPrefix+"*").Result()
	if err != nil {
		return nil, classify(err)
	}
	records := make([]telemetry.SensorRecord, 0, len(keys))
	for _, key := range keys {
		body, err := r.client.Get(ctx, key).Bytes()
		if err != nil {
			// expired between scan and fetch, or a transient error
			rlog.Debugf("skipping cache key %s: %v", key, err)
			continue
		}
		var record telemetry.SensorRecord
		if err := json.Unmarshal(body, &record); err != nil {
			rlog.Warnf("corrupt cache entry at %s: %v", key, err)
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// classify separates "backend cannot be reached" from other errors so
// handlers can answer 503 instead of 500.
func classify(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, redis.ErrClosed) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
