package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"tenant-auth-plane/internal/db/pool"
	"tenant-auth-plane/internal/records/domain"
	"tenant-auth-plane/internal/records/repository"
	"tenant-auth-plane/internal/server/middleware"
)

// Records serves the tenant-scoped record endpoints. Every query runs on the
// request's tenant-bound lease; the database policies scope the rows, so the
// handlers never filter by tenant themselves.
type Records struct {
	logger *slog.Logger
}

func NewRecords(logger *slog.Logger) *Records {
	return &Records{logger: logger}
}

type recordResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type createRecordRequest struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (h *Records) repo(r *http.Request) (*repository.PostgresRepository, *pool.Lease) {
	lease := middleware.LeaseFromRequest(r)
	if lease == nil {
		return nil, nil
	}
	return repository.NewPostgresRepository(lease), lease
}

// List returns the records visible on the request's tenant connection.
func (h *Records) List(w http.ResponseWriter, r *http.Request) {
	repo, _ := h.repo(r)
	if repo == nil {
		writeJSONError(w, http.StatusForbidden, "tenant_unresolved", "")
		return
	}
	records, err := repo.List(r.Context())
	if err != nil {
		h.logger.Error("list records failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal", "")
		return
	}
	out := make([]recordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, recordView(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": out})
}

// Create inserts a record for the request's tenant.
func (h *Records) Create(w http.ResponseWriter, r *http.Request) {
	repo, _ := h.repo(r)
	if repo == nil {
		writeJSONError(w, http.StatusForbidden, "tenant_unresolved", "")
		return
	}
	var req createRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}

	tc := middleware.TenantFrom(r.Context())
	rec := &domain.Record{
		ID:       uuid.New(),
		TenantID: tc.ID,
		Name:     req.Name,
		Payload:  req.Payload,
	}
	if err := repo.Create(r.Context(), rec); err != nil {
		h.logger.Error("create record failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal", "")
		return
	}
	writeJSON(w, http.StatusCreated, recordView(rec))
}

func recordView(rec *domain.Record) recordResponse {
	return recordResponse{
		ID:        rec.ID.String(),
		Name:      rec.Name,
		Payload:   rec.Payload,
		CreatedAt: rec.CreatedAt,
	}
}
