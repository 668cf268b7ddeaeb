package gateway

import (
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/yavuzelcil/rustyflow-iot/telemetry"
)

type captureSink struct {
	mu     sync.Mutex
	bodies [][]byte
	status int
}

func (s *captureSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.bodies = append(s.bodies, body)
	s.mu.Unlock()
	status := s.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bodies)
}

func newTestGateway(t *testing.T, sink *captureSink) *Gateway {
	t.Helper()
	server := httptest.NewServer(sink)
	t.Cleanup(server.Close)
	return MustNewGateway(&Builder{SinkURL: server.URL})
}

func envelopePayload(t *testing.T, kind, value string, ts time.Time) []byte {
	t.Helper()
	reading := telemetry.Reading{
		SensorID:  uuid.New(),
		Value:     value,
		Timestamp: ts,
		IsValid:   true,
	}
	env, err := telemetry.NewEnvelope(kind, reading, uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	payload, err := json.Marshal(env)
	if err != nil {
		t.Fatal(err)
	}
	return payload
}

func TestHandleMessageForwardsCanonicalRecord(t *testing.T) {
	sink := &captureSink{}
	gw := newTestGateway(t, sink)

	ts := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	payload := envelopePayload(t, telemetry.KindTemperature, "24.10", ts)
	gw.handleMessage("sensors/edge-01/temperature", payload)

	if sink.count() != 1 {
		t.Fatal("expected exactly one forward, got", sink.count())
	}
	var record telemetry.SensorRecord
	if err := json.Unmarshal(sink.bodies[0], &record); err != nil {
		t.Fatal(err)
	}
	expected := telemetry.SensorRecord{
		DeviceID:   "edge-01",
		SensorType: "temperature",
		Value:      24.1,
		Unit:       "°C",
		Timestamp:  "2026-08-23T12:00:00Z",
	}
	if !reflect.DeepEqual(record, expected) {
		t.Fatalf("unexpected record: %+v", record)
	}
}

func TestHandleMessageDropsGarbage(t *testing.T) {
	sink := &captureSink{}
	gw := newTestGateway(t, sink)

	// none of these may reach the sink, and none may panic
	gw.handleMessage("sensors/edge-01/temperature", []byte("not json at all"))
	gw.handleMessage("sensors/edge-01/temperature", []byte{0xff, 0xfe, 0x00})
	gw.handleMessage("sensors/edge-01/temperature", []byte(`{"foo":"bar"}`))
	gw.handleMessage("sensors/edge-01/temperature", []byte(`{"message_type":"temperature_reading","payload":"oops"}`))

	if sink.count() != 0 {
		t.Fatal("garbage reached the sink,", sink.count(), "forwards")
	}
}

func TestHandleMessageNonNumericValue(t *testing.T) {
	sink := &captureSink{}
	gw := newTestGateway(t, sink)

	payload := envelopePayload(t, telemetry.KindMotion, "definitely not a number", time.Now().UTC())
	gw.handleMessage("sensors/edge-01/motion", payload)

	if sink.count() != 1 {
		t.Fatal("expected one forward, got", sink.count())
	}
	var record telemetry.SensorRecord
	if err := json.Unmarshal(sink.bodies[0], &record); err != nil {
		t.Fatal(err)
	}
	if record.Value != 0.0 {
		t.Fatal("non-numeric value must map to 0.0, got", record.Value)
	}
}

func TestHandleMessageUnknownKind(t *testing.T) {
	sink := &captureSink{}
	gw := newTestGateway(t, sink)

	payload := envelopePayload(t, "pressure", "1013.25", time.Now().UTC())
	gw.handleMessage("sensors/edge-01/pressure", payload)

	if sink.count() != 1 {
		t.Fatal("expected one forward, got", sink.count())
	}
	var record telemetry.SensorRecord
	if err := json.Unmarshal(sink.bodies[0], &record); err != nil {
		t.Fatal(err)
	}
	if record.SensorType != "pressure" || record.Unit != "" {
		t.Fatalf("unexpected record: %+v", record)
	}
}

func TestHandleMessageSinkFailure(t *testing.T) {
	sink := &captureSink{status: http.StatusInternalServerError}
	gw := newTestGateway(t, sink)

	// the record is dropped, the handler must not panic or retry
	payload := envelopePayload(t, telemetry.KindHumidity, "55.0", time.Now().UTC())
	gw.handleMessage("sensors/edge-01/humidity", payload)

	if sink.count() != 1 {
		t.Fatal("expected a single attempt, got", sink.count())
	}
}

func TestConvertDeviceFromEnvelopeFallback(t *testing.T) {
	deviceID := uuid.New()
	env := telemetry.Envelope{DeviceID: deviceID}
	reading := telemetry.Reading{Value: "1", Timestamp: time.Now().UTC()}

	record := convert("telemetry/motion", env, reading)
	if record.DeviceID != deviceID.String() {
		t.Fatal("expected envelope device ID fallback, got", record.DeviceID)
	}

	record = convert("telemetry/motion", telemetry.Envelope{}, reading)
	if record.DeviceID != "" {
		t.Fatal("expected empty device for nil envelope ID, got", record.DeviceID)
	}
}

func TestSplitFilters(t *testing.T) {
	testCases := []struct {
		in       string
		expected []string
	}{
		{"sensors/#", []string{"sensors/#"}},
		{"sensors/#, actuators/#", []string{"sensors/#", "actuators/#"}},
		{" a , ,b,", []string{"a", "b"}},
		{"", nil},
	}
	for _, tc := range testCases {
		if got := SplitFilters(tc.in); !reflect.DeepEqual(got, tc.expected) {
			t.Fatalf("SplitFilters(%q) = %v, expected %v", tc.in, got, tc.expected)
		}
	}
}
