// Package cache provides the latest-value store for ingested sensor
// records. Two backends implement the same contract: an expiring remote
// store on redis and a plain in-memory map. The backend is chosen once at
// process start; callers never branch on which one is active.
//
// The backends intentionally differ in retention: redis entries expire
// after a fixed TTL, in-memory entries never do.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/yavuzelcil/rustyflow-iot/telemetry"
)

// Store is the ingestion cache. It keeps exactly one record per device and
// sensor kind; a write replaces the previous record atomically.
type Store interface {
	// Write upserts the record at its (device, sensor kind) key.
	Write(ctx context.Context, record telemetry.SensorRecord) error
	// List returns all currently live records, in unspecified order.
	List(ctx context.Context) ([]telemetry.SensorRecord, error)
}

// ErrUnavailable is returned when the backing store cannot be reached at
// all. Handlers map it to http.StatusServiceUnavailable; other write errors
// map to http.StatusInternalServerError.
var ErrUnavailable = errors.New("cache backend unavailable")

// all remote cache keys carry this prefix
const keyPrefix = "sensor:"

// entryTTL is how long the remote backend keeps a record. The in-memory
// backend has no expiry.
const entryTTL = time.Hour
