// Package telemetry defines the wire types shared by the edge agent, the
// MQTT gateway and the API server: the sensor reading produced at the edge,
// the transport envelope carried over MQTT, and the canonical record stored
// by the ingestion cache.
package telemetry

import (
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// sensor kinds known to the pipeline
const (
	KindTemperature = "temperature"
	KindHumidity    = "humidity"
	KindMotion      = "motion"
)

// Reading is a single timestamped sensor measurement. The sensor ID is
// fixed per sensor instance, not per reading. The value is textual on the
// wire; readings that could not be taken properly carry is_valid=false.
type Reading struct {
	SensorID  uuid.UUID       `json:"sensor_id"`
	Value     string          `json:"value"`
	Timestamp time.Time       `json:"timestamp"`
	IsValid   bool            `json:"is_valid"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// Envelope is the transport wrapper published to the MQTT broker. The
// payload is an opaque JSON document, typically a Reading. QoS 0 means
// best-effort delivery without acknowledgement.
type Envelope struct {
	MessageType string          `json:"message_type"`
	Payload     json.RawMessage `json:"payload"`
	Timestamp   time.Time       `json:"timestamp"`
	DeviceID    uuid.UUID       `json:"device_id"`
	QoS         byte            `json:"qos"`
}

// SensorRecord is the canonical record stored by the ingestion cache and
// served to polling clients.
type SensorRecord struct {
	DeviceID   string          `json:"device_id"`
	SensorType string          `json:"sensor_type"`
	Value      float64         `json:"value"`
	Unit       string          `json:"unit"`
	Timestamp  string          `json:"timestamp"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
}

// Key returns the cache key of the record. The cache keeps exactly one
// record per device and sensor kind.
func (r SensorRecord) Key() string {
	return r.DeviceID + ":" + r.SensorType
}

// NewEnvelope wraps a reading of the given sensor kind into a transport
// envelope with message type "<kind>_reading" and QoS 0.
func NewEnvelope(kind string, reading Reading, deviceID uuid.UUID) (Envelope, error) {
	payload, err := json.Marshal(reading)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal reading: %w", err)
	}
	return Envelope{
		MessageType: kind + "_reading",
		Payload:     payload,
		Timestamp:   time.Now().UTC(),
		DeviceID:    deviceID,
		QoS:         0,
	}, nil
}

// Topic returns the MQTT topic for readings of the given sensor kind,
// sensors/<device_name>/<kind>.
func Topic(deviceName, kind string) string {
	return "sensors/" + deviceName + "/" + kind
}

// UnitFor maps a sensor kind to the display unit stored in the canonical
// record. Unknown kinds map to the empty unit.
func UnitFor(kind string) string {
	switch kind {
	case KindTemperature:
		return "°C"
	case KindHumidity:
		return "%"
	case KindMotion:
		return "bool"
	default:
		return ""
	}
}

// ParseValue converts the textual value of a reading into a number.
// Unparseable values soft-fail to 0.
func ParseValue(value string) float64 {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0.0
	}
	return v
}
