package cache

import (
	"context"
	"testing"

	"github.com/yavuzelcil/rustyflow-iot/telemetry"
)

func TestMemoryWriteAndList(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	records, err := m.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Fatal("fresh cache not empty:", records)
	}

	a := telemetry.SensorRecord{DeviceID: "edge-01", SensorType: "temperature", Value: 24.1, Unit: "°C"}
	b := telemetry.SensorRecord{DeviceID: "edge-01", SensorType: "humidity", Value: 55.0, Unit: "%"}
	if err := m.Write(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := m.Write(ctx, b); err != nil {
		t.Fatal(err)
	}

	records, err = m.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatal("expected 2 records, got", len(records))
	}
}

func TestMemoryUpsertKeepsOneRecordPerKey(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	first := telemetry.SensorRecord{DeviceID: "edge-01", SensorType: "temperature", Value: 22.0}
	second := telemetry.SensorRecord{DeviceID: "edge-01", SensorType: "temperature", Value: 24.1}
	m.Write(ctx, first)
	m.Write(ctx, second)

	records, err := m.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatal("expected 1 record after overwrite, got", len(records))
	}
	if records[0].Value != 24.1 {
		t.Fatal("overwrite did not keep the latest value:", records[0].Value)
	}
}

func TestMemoryListReturnsSnapshot(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	m.Write(ctx, telemetry.SensorRecord{DeviceID: "edge-01", SensorType: "motion"})
	snapshot, err := m.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	m.Write(ctx, telemetry.SensorRecord{DeviceID: "edge-02", SensorType: "motion"})

	if len(snapshot) != 1 {
		t.Fatal("snapshot changed after a later write:", snapshot)
	}
}
