package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alvozedd/ClinicManagementSystem-sub003/internal/models"
	"github.com/alvozedd/ClinicManagementSystem-sub003/internal/store"
)

type Handler struct {
	store store.QueueStore
}

func NewHandler(store store.QueueStore) *Handler {
	return &Handler{store: store}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/api/queue", h.handleQueue)
	mux.HandleFunc("/api/queue/stats", h.handleStats)
	mux.HandleFunc("/api/queue/actions/reorder", h.handleReorder)
	mux.HandleFunc("/api/queue/actions/clear-completed", h.handleClearCompleted)
	mux.HandleFunc("/api/queue/", h.handleEntry)
	mux.HandleFunc("/api/patients/", h.handlePatient)
	mux.HandleFunc("/api/appointments/", h.handleAppointment)
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleQueue(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleList(w, r)
	case http.MethodPost:
		h.handleCreate(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.ListEntries(r.Context())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, models.QueueList{Source: models.SourceLive, Entries: entries})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type createEntryRequest struct {
	RequestID     string `json:"request_id"`
	PatientID     string `json:"patient_id"`
	AppointmentID string `json:"appointment_id"`
	IsWalkIn      bool   `json:"is_walk_in"`
	Notes         string `json:"notes"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.RequestID = strings.TrimSpace(req.RequestID)
	req.PatientID = strings.TrimSpace(req.PatientID)
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)

	if req.RequestID == "" || req.PatientID == "" {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "request_id and patient_id are required")
		return
	}
	if !isValidUUID(req.RequestID) || !isValidUUID(req.PatientID) {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "request_id and patient_id must be UUIDs")
		return
	}
	if req.AppointmentID != "" && !isValidUUID(req.AppointmentID) {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "appointment_id must be a UUID when provided")
		return
	}
	if req.IsWalkIn && req.AppointmentID != "" {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "a walk-in cannot reference an appointment")
		return
	}
	if !req.IsWalkIn && req.AppointmentID == "" {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "appointment_id is required unless is_walk_in is set")
		return
	}

	entry, _, err := h.store.CreateEntry(r.Context(), store.CreateEntryInput{
		RequestID:     req.RequestID,
		PatientID:     req.PatientID,
		AppointmentID: req.AppointmentID,
		IsWalkIn:      req.IsWalkIn,
		Notes:         req.Notes,
		CheckInTime:   time.Now().UTC(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, req.RequestID, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

type updateEntryRequest struct {
	Status *models.Status `json:"status"`
	Notes  *string        `json:"notes"`
}

func (h *Handler) handleEntry(w http.ResponseWriter, r *http.Request) {
	entryID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/queue/"), "/")
	if entryID == "" || strings.Contains(entryID, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if !isValidUUID(entryID) {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "entry_id must be a UUID")
		return
	}

	switch r.Method {
	case http.MethodGet:
		entry, found, err := h.store.GetEntry(r.Context(), entryID)
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, "", status, code, msg)
			return
		}
		if !found {
			writeError(w, "", http.StatusNotFound, "entry_not_found", "entry not found")
			return
		}
		writeJSON(w, http.StatusOK, entry)
	case http.MethodPost:
		h.handleUpdate(w, r, entryID)
	case http.MethodDelete:
		if err := h.store.RemoveEntry(r.Context(), entryID); err != nil {
			status, code, msg := mapError(err)
			writeError(w, "", status, code, msg)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request, entryID string) {
	var req updateEntryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, "", http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	if req.Status == nil && req.Notes == nil {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "nothing to update")
		return
	}
	if req.Status != nil && !req.Status.Valid() {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "unknown status")
		return
	}

	entry, err := h.store.UpdateEntry(r.Context(), store.UpdateEntryInput{
		EntryID: entryID,
		Status:  req.Status,
		Notes:   req.Notes,
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

type reorderRequest struct {
	Order []models.QueuePosition `json:"order"`
}

func (h *Handler) handleReorder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req reorderRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, "", http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	if len(req.Order) == 0 {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "order is required")
		return
	}
	for _, position := range req.Order {
		if !isValidUUID(position.EntryID) || position.Position <= 0 {
			writeError(w, "", http.StatusBadRequest, "invalid_request", "order items need a UUID entry_id and positive position")
			return
		}
	}

	if err := h.store.Reorder(r.Context(), req.Order); err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleClearCompleted(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	removed, err := h.store.ClearCompleted(r.Context())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (h *Handler) handlePatient(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	patientID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/patients/"), "/")
	if !isValidUUID(patientID) {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "patient_id must be a UUID")
		return
	}
	summary, found, err := h.store.FindPatient(r.Context(), patientID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}
	if !found {
		writeError(w, "", http.StatusNotFound, "patient_not_found", "patient not found")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleAppointment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	appointmentID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/appointments/"), "/")
	if !isValidUUID(appointmentID) {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "appointment_id must be a UUID")
		return
	}
	summary, found, err := h.store.FindAppointment(r.Context(), appointmentID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}
	if !found {
		writeError(w, "", http.StatusNotFound, "appointment_not_found", "appointment not found")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func isValidUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, store.ErrEntryNotFound):
		return http.StatusNotFound, "entry_not_found", "entry not found"
	case errors.Is(err, store.ErrPatientNotFound):
		return http.StatusNotFound, "patient_not_found", "patient not found"
	case errors.Is(err, store.ErrAppointmentNotFound):
		return http.StatusNotFound, "appointment_not_found", "appointment not found"
	case errors.Is(err, store.ErrAlreadyQueued):
		return http.StatusConflict, "already_queued", "appointment is already in today's queue"
	case errors.Is(err, store.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition", "entry status does not allow this change"
	case errors.Is(err, store.ErrReorderScope):
		return http.StatusConflict, "reorder_scope", "only waiting entries can be reordered"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

type errorResponse struct {
	RequestID string        `json:"request_id"`
	Error     responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, requestID string, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		RequestID: requestID,
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
