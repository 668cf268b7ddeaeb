// Package sensor implements the synthetic sensor sources of the edge agent.
// Each generator produces a random walk (or a Bernoulli trial for motion)
// shaped to look like a real sensor; on a device with real hardware these
// would be replaced by GPIO reads.
package sensor

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/yavuzelcil/rustyflow-iot/telemetry"
)

// Data is one reading together with its kind and edge-side unit.
type Data struct {
	Reading    telemetry.Reading
	SensorType string
	Unit       string
}

func newRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Temperature simulates a room temperature sensor. Values take a random
// walk of at most ±2°C per reading, clamped to [18,30].
type Temperature struct {
	sensorID uuid.UUID
	last     float64
	rng      *rand.Rand
}

// NewTemperature returns a temperature sensor starting at room temperature.
func NewTemperature() *Temperature {
	return &Temperature{sensorID: uuid.New(), last: 22.0, rng: newRand()}
}

// Read produces the next temperature reading and advances the walk.
func (s *Temperature) Read() Data {
	change := s.rng.Float64()*4.0 - 2.0
	s.last = clamp(s.last+change, 18.0, 30.0)
	return Data{
		Reading: telemetry.Reading{
			SensorID:  s.sensorID,
			Value:     fmt.Sprintf("%.2f", s.last),
			Timestamp: time.Now().UTC(),
			IsValid:   true,
		},
		SensorType: telemetry.KindTemperature,
		Unit:       "celsius",
	}
}

// Humidity simulates a relative humidity sensor. Values take a random walk
// of at most ±5% per reading, clamped to [30,80].
type Humidity struct {
	sensorID uuid.UUID
	last     float64
	rng      *rand.Rand
}

// NewHumidity returns a humidity sensor starting at a middling humidity.
func NewHumidity() *Humidity {
	return &Humidity{sensorID: uuid.New(), last: 55.0, rng: newRand()}
}

// Read produces the next humidity reading and advances the walk.
func (s *Humidity) Read() Data {
	change := s.rng.Float64()*10.0 - 5.0
	s.last = clamp(s.last+change, 30.0, 80.0)
	return Data{
		Reading: telemetry.Reading{
			SensorID:  s.sensorID,
			Value:     fmt.Sprintf("%.1f", s.last),
			Timestamp: time.Now().UTC(),
			IsValid:   true,
		},
		SensorType: telemetry.KindHumidity,
		Unit:       "percent",
	}
}

// Motion simulates a PIR motion sensor. Each reading detects motion with
// probability 0.2. Detections carry an event marker in the metadata,
// readings without motion carry none.
type Motion struct {
	sensorID uuid.UUID
	rng      *rand.Rand
}

// NewMotion returns a motion sensor.
func NewMotion() *Motion {
	return &Motion{sensorID: uuid.New(), rng: newRand()}
}

// Read produces the next motion reading, "1" for motion and "0" for none.
func (s *Motion) Read() Data {
	detected := s.rng.Float64() < 0.2
	reading := telemetry.Reading{
		SensorID:  s.sensorID,
		Value:     "0",
		Timestamp: time.Now().UTC(),
		IsValid:   true,
	}
	if detected {
		reading.Value = "1"
		reading.Metadata = json.RawMessage(`{"event":"motion_detected"}`)
	}
	return Data{
		Reading:    reading,
		SensorType: telemetry.KindMotion,
		Unit:       "boolean",
	}
}

// Controller owns the three sensors of a device.
type Controller struct {
	Temperature *Temperature
	Humidity    *Humidity
	Motion      *Motion
}

// NewController returns a controller with one sensor per kind.
func NewController() *Controller {
	return &Controller{
		Temperature: NewTemperature(),
		Humidity:    NewHumidity(),
		Motion:      NewMotion(),
	}
}

// ReadAll reads every sensor once and returns exactly one reading per kind,
// timestamped at call time. Reading advances the temperature and humidity
// walks as a side effect.
func (c *Controller) ReadAll() []Data {
	return []Data{
		c.Temperature.Read(),
		c.Humidity.Read(),
		c.Motion.Read(),
	}
}
