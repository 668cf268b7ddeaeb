package sensor

import (
	"strconv"
	"strings"
	"testing"

	"github.com/yavuzelcil/rustyflow-iot/telemetry"
)

func TestReadAllOnePerKind(t *testing.T) {
	c := NewController()
	data := c.ReadAll()
	if len(data) != 3 {
		t.Fatal("expected exactly 3 readings, got", len(data))
	}
	seen := map[string]bool{}
	for _, d := range data {
		seen[d.SensorType] = true
		if d.Reading.Timestamp.IsZero() {
			t.Fatal("reading without timestamp:", d.SensorType)
		}
		if !d.Reading.IsValid {
			t.Fatal("reading not valid:", d.SensorType)
		}
	}
	for _, kind := range []string{telemetry.KindTemperature, telemetry.KindHumidity, telemetry.KindMotion} {
		if !seen[kind] {
			t.Fatal("missing reading for kind", kind)
		}
	}
}

func TestTemperatureBounds(t *testing.T) {
	s := NewTemperature()
	for i := 0; i < 1000; i++ {
		data := s.Read()
		v, err := strconv.ParseFloat(data.Reading.Value, 64)
		if err != nil {
			t.Fatal("value not a float:", data.Reading.Value)
		}
		if v < 18.0 || v > 30.0 {
			t.Fatal("temperature out of bounds:", v)
		}
		if data.Unit != "celsius" {
			t.Fatal("unexpected unit:", data.Unit)
		}
		// two decimal places
		if dot := strings.IndexByte(data.Reading.Value, '.'); dot < 0 ||
			len(data.Reading.Value)-dot-1 != 2 {
			t.Fatal("unexpected value format:", data.Reading.Value)
		}
	}
}

func TestHumidityBounds(t *testing.T) {
	s := NewHumidity()
	for i := 0; i < 1000; i++ {
		data := s.Read()
		v, err := strconv.ParseFloat(data.Reading.Value, 64)
		if err != nil {
			t.Fatal("value not a float:", data.Reading.Value)
		}
		if v < 30.0 || v > 80.0 {
			t.Fatal("humidity out of bounds:", v)
		}
		if data.Unit != "percent" {
			t.Fatal("unexpected unit:", data.Unit)
		}
	}
}

func TestMotionValuesAndMetadata(t *testing.T) {
	s := NewMotion()
	detections := 0
	for i := 0; i < 1000; i++ {
		data := s.Read()
		switch data.Reading.Value {
		case "1":
			detections++
			if string(data.Reading.Metadata) != `{"event":"motion_detected"}` {
				t.Fatal("detection without event metadata:", string(data.Reading.Metadata))
			}
		case "0":
			if data.Reading.Metadata != nil {
				t.Fatal("no detection but metadata set:", string(data.Reading.Metadata))
			}
		default:
			t.Fatal("unexpected motion value:", data.Reading.Value)
		}
		if data.Unit != "boolean" {
			t.Fatal("unexpected unit:", data.Unit)
		}
	}
	// p = 0.2, so 1000 trials virtually never miss entirely nor always hit
	if detections == 0 || detections == 1000 {
		t.Fatal("implausible detection count:", detections)
	}
}

func TestSensorIDsAreStable(t *testing.T) {
	c := NewController()
	first := c.ReadAll()
	second := c.ReadAll()
	for i := range first {
		if first[i].Reading.SensorID != second[i].Reading.SensorID {
			t.Fatal("sensor ID changed between reads for kind", first[i].SensorType)
		}
	}
}
