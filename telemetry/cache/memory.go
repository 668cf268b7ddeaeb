package cache

import (
	"context"
	"sync"

	"github.com/yavuzelcil/rustyflow-iot/telemetry"
)

// Memory is the in-memory cache backend: one shared map guarded by a
// reader/writer lock. Entries never expire and are lost when the process
// exits.
type Memory struct {
	mu      sync.RWMutex
	records map[string]telemetry.SensorRecord
}

// NewMemory returns an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]telemetry.SensorRecord)}
}

// Write upserts the record. It never fails.
func (m *Memory) Write(ctx context.Context, record telemetry.SensorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.Key()] = record
	return nil
}

// List returns a snapshot of all records, taken under the read lock.
func (m *Memory) List(ctx context.Context) ([]telemetry.SensorRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	records := make([]telemetry.SensorRecord, 0, len(m.records))
	for _, record := range m.records {
		records = append(records, record)
	}
	return records, nil
}
