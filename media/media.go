// Package media implements the media metadata store: plain CRUD over REST,
// backed by postgres when a database is configured and by an in-memory map
// otherwise. The backend is chosen once at startup.
package media

import (
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/yavuzelcil/rustyflow-iot/core/csql"
	"github.com/yavuzelcil/rustyflow-iot/core/logger"
)

// Media is the stored representation of one media object.
type Media struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewMedia is the request body for creating a media object.
type NewMedia struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
}

// UpdateMedia is the request body for a partial update. Nil fields keep
// their current value.
type UpdateMedia struct {
	Name      *string `json:"name"`
	Path      *string `json:"path"`
	MimeType  *string `json:"mime_type"`
	SizeBytes *int64  `json:"size_bytes"`
}

// Service is the REST interface for media objects.
type Service struct {
	db *csql.DB

	mu    sync.RWMutex
	items map[uuid.UUID]Media
}

// Builder is a builder helper for the media service.
type Builder struct {
	// DB is the postgres database. Optional; without it the service keeps
	// all media in memory.
	DB *csql.DB
	// Router is a mux router. This is mandatory.
	Router *mux.Router
}

// MustNewService returns a new media service and adds its routes to the
// router. With a database it creates the media table if it does not exist.
func MustNewService(b *Builder) *Service {
	if b.Router == nil {
		panic("Router is missing")
	}
	s := &Service{
		db:    b.DB,
		items: make(map[uuid.UUID]Media),
	}
	if s.db != nil {
		// poor man's database migrations
		_, err := s.db.Exec(
			`CREATE TABLE IF NOT EXISTS media
(id uuid PRIMARY KEY,
name varchar NOT NULL,
path varchar NOT NULL,
mime_type varchar NOT NULL,
size_bytes bigint NOT NULL,
created_at timestamptz NOT NULL,
updated_at timestamptz NOT NULL
);`)
		if err != nil {
			panic(err)
		}
	}
	s.handleRoutes(b.Router)
	return s
}

func (s *Service) handleRoutes(router *mux.Router) {
	logger.Default().Infoln("media: handle route /v1/media GET,POST")
	logger.Default().Infoln("media: handle route /v1/media/{id} GET,PUT,DELETE")
	router.HandleFunc("/v1/media", s.create).Methods(http.MethodPost)
	router.HandleFunc("/v1/media", s.list).Methods(http.MethodGet)
	router.HandleFunc("/v1/media/{id}", s.get).Methods(http.MethodGet)
	router.HandleFunc("/v1/media/{id}", s.update).Methods(http.MethodPut)
	router.HandleFunc("/v1/media/{id}", s.delete).Methods(http.MethodDelete)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	if err := encoder.Encode(body); err != nil {
		logger.FromContext(r.Context()).Errorln("encode response:", err)
	}
}

func idFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid media id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (s *Service) create(w http.ResponseWriter, r *http.Request) {
	var body NewMedia
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	now := time.Now().UTC()
	item := Media{
		ID:        uuid.New(),
		Name:      body.Name,
		Path:      body.Path,
		MimeType:  body.MimeType,
		SizeBytes: body.SizeBytes,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if s.db != nil {
		_, err := s.db.ExecContext(r.Context(),
			`INSERT INTO media (id, name, path, mime_type, size_bytes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7);`,
			item.ID, item.Name, item.Path, item.MimeType, item.SizeBytes, item.CreatedAt, item.UpdatedAt)
		if err != nil {
			logger.FromContext(r.Context()).Errorln("insert media:", err)
			http.Error(w, "database error", http.StatusInternalServerError)
			return
		}
	} else {
		s.mu.Lock()
		s.items[item.ID] = item
		s.mu.Unlock()
	}
	writeJSON(w, r, http.StatusCreated, item)
}

func (s *Service) list(w http.ResponseWriter, r *http.Request) {
	items := []Media{}

	if s.db != nil {
		rows, err := s.db.QueryContext(r.Context(),
			`SELECT id, name, path, mime_type, size_bytes, created_at, updated_at
FROM media ORDER BY created_at;`)
		if err != nil {
			logger.FromContext(r.Context()).Errorln("select media:", err)
			http.Error(w, "database error", http.StatusInternalServerError)
			return
		}
		defer rows.Close()
		for rows.Next() {
			var item Media
			err := rows.Scan(&item.ID, &item.Name, &item.Path, &item.MimeType,
				&item.SizeBytes, &item.CreatedAt, &item.UpdatedAt)
			if err != nil {
				logger.FromContext(r.Context()).Errorln("scan media:", err)
				continue
			}
			items = append(items, item)
		}
	} else {
		s.mu.RLock()
		for _, item := range s.items {
			items = append(items, item)
		}
		s.mu.RUnlock()
	}
	writeJSON(w, r, http.StatusOK, items)
}

func (s *Service) get(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromRequest(w, r)
	if !ok {
		return
	}
	item, status := s.load(r, id)
	if status != http.StatusOK {
		http.Error(w, "no such media", status)
		return
	}
	writeJSON(w, r, http.StatusOK, item)
}

func (s *Service) update(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromRequest(w, r)
	if !ok {
		return
	}
	var body UpdateMedia
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	now := time.Now().UTC()

	if s.db != nil {
		// single statement so concurrent partial updates cannot lose fields
		var item Media
		err := s.db.QueryRowContext(r.Context(),
			`UPDATE media SET
name=COALESCE($2, name),
path=COALESCE($3, path),
mime_type=COALESCE($4, mime_type),
size_bytes=COALESCE($5, size_bytes),
updated_at=$6
WHERE id=$1
RETURNING id, name, path, mime_type, size_bytes, created_at, updated_at;`,
			id, body.Name, body.Path, body.MimeType, body.SizeBytes, now).
			Scan(&item.ID, &item.Name, &item.Path, &item.MimeType,
				&item.SizeBytes, &item.CreatedAt, &item.UpdatedAt)
		if err == csql.ErrNoRows {
			http.Error(w, "no such media", http.StatusNotFound)
			return
		}
		if err != nil {
			logger.FromContext(r.Context()).Errorln("update media:", err)
			http.Error(w, "database error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, r, http.StatusOK, item)
		return
	}

	s.mu.Lock()
	item, found := s.items[id]
	if !found {
		s.mu.Unlock()
		http.Error(w, "no such media", http.StatusNotFound)
		return
	}
	if body.Name != nil {
		item.Name = *body.Name
	}
	if body.Path != nil {
		item.Path = *body.Path
	}
	if body.MimeType != nil {
		item.MimeType = *body.MimeType
	}
	if body.SizeBytes != nil {
		item.SizeBytes = *body.SizeBytes
	}
	item.UpdatedAt = now
	s.items[id] = item
	s.mu.Unlock()
	writeJSON(w, r, http.StatusOK, item)
}

func (s *Service) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromRequest(w, r)
	if !ok {
		return
	}

	if s.db != nil {
		res, err := s.db.ExecContext(r.Context(), `DELETE FROM media WHERE id=$1;`, id)
		if err != nil {
			logger.FromContext(r.Context()).Errorln("delete media:", err)
			http.Error(w, "database error", http.StatusInternalServerError)
			return
		}
		count, _ := res.RowsAffected()
		if count == 0 {
			http.Error(w, "no such media", http.StatusNotFound)
			return
		}
	} else {
		s.mu.Lock()
		_, found := s.items[id]
		delete(s.items, id)
		s.mu.Unlock()
		if !found {
			http.Error(w, "no such media", http.StatusNotFound)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// load fetches one media object from the active backend. It returns the
// http status for the lookup: 200, 404 or 500.
func (s *Service) load(r *http.Request, id uuid.UUID) (Media, int) {
	if s.db != nil {
		var item Media
		err := s.db.QueryRowContext(r.Context(),
			`SELECT id, name, path, mime_type, size_bytes, created_at, updated_at
FROM media WHERE id=$1;`, id).
			Scan(&item.ID, &item.Name, &item.Path, &item.MimeType,
				&item.SizeBytes, &item.CreatedAt, &item.UpdatedAt)
		if err == csql.ErrNoRows {
			return Media{}, http.StatusNotFound
		}
		if err != nil {
			logger.FromContext(r.Context()).Errorln("select media:", err)
			return Media{}, http.StatusInternalServerError
		}
		return item, http.StatusOK
	}

	s.mu.RLock()
	item, found := s.items[id]
	s.mu.RUnlock()
	if !found {
		return Media{}, http.StatusNotFound
	}
	return item, http.StatusOK
}
