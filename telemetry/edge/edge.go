// Package edge implements the publisher side of the telemetry pipeline. The
// agent drives the synthetic sensors on a fixed period and publishes one
// envelope per reading to the broker, fire and forget.
package edge

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/yavuzelcil/rustyflow-iot/core/logger"
	"github.com/yavuzelcil/rustyflow-iot/telemetry"
	"github.com/yavuzelcil/rustyflow-iot/telemetry/sensor"
)

// Publisher publishes a payload to an MQTT topic with QoS 0. The
// implementation must be safe for concurrent use.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Agent is the periodic sensor publisher of one device.
type Agent struct {
	deviceID   uuid.UUID
	deviceName string
	interval   time.Duration
	sensors    *sensor.Controller
	publisher  Publisher
}

// Builder is a builder helper for the Agent.
type Builder struct {
	// DeviceID is the unique ID of this device. This is mandatory.
	DeviceID uuid.UUID
	// DeviceName is the human-readable device name used in topics. This is mandatory.
	DeviceName string
	// Interval is the sensor read period. Defaults to 5 seconds.
	Interval time.Duration
	// Sensors is the sensor controller. Defaults to a fresh controller.
	Sensors *sensor.Controller
	// Publisher submits envelopes to the broker. This is mandatory.
	Publisher Publisher
}

// MustNewAgent returns a new agent. The agent does not publish anything
// until you call Run().
func MustNewAgent(b *Builder) *Agent {
	if b.DeviceID == uuid.Nil {
		panic("DeviceID is missing")
	}
	if len(b.DeviceName) == 0 {
		panic("DeviceName is missing")
	}
	if b.Publisher == nil {
		panic("Publisher is missing")
	}
	interval := b.Interval
	if interval == 0 {
		interval = 5 * time.Second
	}
	sensors := b.Sensors
	if sensors == nil {
		sensors = sensor.NewController()
	}
	return &Agent{
		deviceID:   b.DeviceID,
		deviceName: b.DeviceName,
		interval:   interval,
		sensors:    sensors,
		publisher:  b.Publisher,
	}
}

// Run reads and publishes all sensors on every tick until the context is
// cancelled. Publish failures are logged and do not delay the next tick.
func (a *Agent) Run(ctx context.Context) {
	rlog := logger.Default()
	rlog.Infof("edge agent ready, device %s (%s), interval %s", a.deviceName, a.deviceID, a.interval)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			rlog.Infoln("edge agent stopping:", ctx.Err())
			return
		case <-ticker.C:
			a.tick()
		}
	}
}

func (a *Agent) tick() {
	rlog := logger.Default()
	for _, data := range a.sensors.ReadAll() {
		env, err := telemetry.NewEnvelope(data.SensorType, data.Reading, a.deviceID)
		if err != nil {
			rlog.Errorln("serialize reading:", err)
			continue
		}
		payload, err := json.Marshal(env)
		if err != nil {
			rlog.Errorln("serialize envelope:", err)
			continue
		}
		topic := telemetry.Topic(a.deviceName, data.SensorType)
		if err := a.publisher.Publish(topic, payload); err != nil {
			rlog.Warnf("publish to %s failed: %v", topic, err)
			continue
		}
		rlog.Debugf("published %s = %s %s to %s",
			data.SensorType, data.Reading.Value, data.Unit, topic)
	}
}
