// Package sys provides the liveness, readiness and configuration endpoints
// of the API server.
package sys

import (
	"net/http"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/yavuzelcil/rustyflow-iot/core/csql"
	"github.com/yavuzelcil/rustyflow-iot/core/logger"
)

// Config is the sanitized server configuration reported by /v1/config.
// Connection strings are reduced to present/absent so no credentials leak.
type Config struct {
	AppPort        int    `json:"app_port"`
	HasDatabaseURL bool   `json:"has_database_url"`
	HasRedisURL    bool   `json:"has_redis_url"`
	LogLevel       string `json:"log_level"`
}

// Service serves the system endpoints.
type Service struct {
	config Config
	db     *csql.DB
}

// Builder is a builder helper for the system service.
type Builder struct {
	// Config is the sanitized configuration to report. This is mandatory.
	Config Config
	// DB is the postgres database, used by the database health probe. Optional.
	DB *csql.DB
	// Router is a mux router. This is mandatory.
	Router *mux.Router
}

type health struct {
	Status string `json:"status"`
}

type dbHealth struct {
	DB string `json:"db"`
}

// MustNewService returns a new system service and adds its routes to the router.
func MustNewService(b *Builder) *Service {
	if b.Router == nil {
		panic("Router is missing")
	}
	s := &Service{config: b.Config, db: b.DB}
	s.handleRoutes(b.Router)
	return s
}

func (s *Service) handleRoutes(router *mux.Router) {
	logger.Default().Infoln("sys: handle routes /, /health, /ready, /v1/config, /db/health")
	router.HandleFunc("/", s.root).Methods(http.MethodGet)
	router.HandleFunc("/health", s.health).Methods(http.MethodGet)
	router.HandleFunc("/ready", s.ready).Methods(http.MethodGet)
	router.HandleFunc("/v1/config", s.sanitizedConfig).Methods(http.MethodGet)
	router.HandleFunc("/db/health", s.dbHealth).Methods(http.MethodGet)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.FromContext(r.Context()).Errorln("encode response:", err)
	}
}

func (s *Service) root(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("RustyFlow API is running"))
}

func (s *Service) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, health{Status: "ok"})
}

func (s *Service) ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, health{Status: "ready"})
}

func (s *Service) sanitizedConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.config)
}

func (s *Service) dbHealth(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeJSON(w, r, http.StatusNotImplemented, dbHealth{DB: "disabled"})
		return
	}
	var one int
	if err := s.db.QueryRowContext(r.Context(), "SELECT 1").Scan(&one); err != nil {
		logger.FromContext(r.Context()).Warnln("database health check failed:", err)
		writeJSON(w, r, http.StatusServiceUnavailable, dbHealth{DB: "down"})
		return
	}
	writeJSON(w, r, http.StatusOK, dbHealth{DB: "up"})
}
