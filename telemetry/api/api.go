// Package api provides the HTTP ingestion and read endpoints for sensor
// telemetry. The gateway posts canonical records here; polling clients read
// the latest values back.
package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/xeipuuv/gojsonschema"

	"github.com/yavuzelcil/rustyflow-iot/core/logger"
	"github.com/yavuzelcil/rustyflow-iot/telemetry"
	"github.com/yavuzelcil/rustyflow-iot/telemetry/cache"
	"github.com/yavuzelcil/rustyflow-iot/telemetry/notification"
)

// recordSchemaJSON validates posted sensor records before they are decoded.
var recordSchemaJSON = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["device_id", "sensor_type", "value", "unit", "timestamp"],
	"properties": {
		"device_id": {"type": "string", "minLength": 1},
		"sensor_type": {"type": "string", "minLength": 1},
		"value": {"type": "number"},
		"unit": {"type": "string"},
		"timestamp": {"type": "string"}
	}
}`

// Service is the REST interface for sensor telemetry.
type Service struct {
	store    cache.Store
	notifier *notification.Notifier
	schema   *gojsonschema.Schema
}

// Builder is a builder helper for the telemetry API.
type Builder struct {
	// Store is the ingestion cache, chosen at startup. This is mandatory.
	Store cache.Store
	// Router is a mux router. This is mandatory.
	Router *mux.Router
	// Notifier publishes ingested records to downstream consumers. This is optional.
	Notifier *notification.Notifier
}

// MustNewAPI returns a new telemetry API and adds its routes to the router.
func MustNewAPI(b *Builder) *Service {
	if b.Store == nil {
		panic("Store is missing")
	}
	if b.Router == nil {
		panic("Router is missing")
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(recordSchemaJSON))
	if err != nil {
		panic(err)
	}
	s := &Service{
		store:    b.Store,
		notifier: b.Notifier,
		schema:   schema,
	}
	s.handleRoutes(b.Router)
	return s
}

func (s *Service) handleRoutes(router *mux.Router) {
	logger.Default().Infoln("telemetry: handle route /api/sensors GET,POST")
	router.HandleFunc("/api/sensors", s.addSensorData).Methods(http.MethodPost)
	router.HandleFunc("/api/sensors", s.listSensors).Methods(http.MethodGet)
}

// addSensorData upserts one canonical record into the cache.
func (s *Service) addSensorData(w http.ResponseWriter, r *http.Request) {
	rlog := logger.FromContext(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "cannot read body", http.StatusBadRequest)
		return
	}
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		rlog.Debugln("invalid sensor record:", err)
		http.Error(w, "invalid sensor record", http.StatusBadRequest)
		return
	}
	if !result.Valid() {
		rlog.Debugln("invalid sensor record:", result.Errors())
		http.Error(w, "invalid sensor record", http.StatusBadRequest)
		return
	}
	var record telemetry.SensorRecord
	if err := json.Unmarshal(body, &record); err != nil {
		http.Error(w, "invalid sensor record", http.StatusBadRequest)
		return
	}

	if err := s.store.Write(r.Context(), record); err != nil {
		if errors.Is(err, cache.ErrUnavailable) {
			rlog.Errorln("cache backend unavailable:", err)
			http.Error(w, "cache backend unavailable", http.StatusServiceUnavailable)
			return
		}
		rlog.Errorln("cache write failed:", err)
		http.Error(w, "cache write failed", http.StatusInternalServerError)
		return
	}
	rlog.Debugf("cached %s/%s", record.DeviceID, record.SensorType)

	if s.notifier != nil {
		s.notifier.Notify(r.Context(), record)
	}
	w.WriteHeader(http.StatusOK)
}

// listSensors returns all live records. A backend failure is logged and
// yields an empty array, never an error status.
func (s *Service) listSensors(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.List(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Warnln("cache list failed, returning empty list:", err)
		records = nil
	}
	if records == nil {
		records = []telemetry.SensorRecord{}
	}
	w.Header().Set("Content-Type", "application/json")
	encoder := json.NewEncoder(w)
	if err := encoder.Encode(records); err != nil {
		logger.FromContext(r.Context()).Errorln("encode response:", err)
	}
}
