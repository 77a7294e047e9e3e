package termapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/alvozedd/ClinicManagementSystem-sub003/internal/apiclient"
	"github.com/alvozedd/ClinicManagementSystem-sub003/internal/directory"
	"github.com/alvozedd/ClinicManagementSystem-sub003/internal/models"
	"github.com/alvozedd/ClinicManagementSystem-sub003/internal/queue"
)

// Handler is the local surface the thin terminal UI talks to. Both
// reorder styles (drag handle submitting a full order, up/down buttons
// submitting single moves) land on the same coordinator.
type Handler struct {
	coord    *queue.Coordinator
	resolver *directory.Resolver
	now      func() time.Time
}

func NewHandler(coord *queue.Coordinator, resolver *directory.Resolver) *Handler {
	return &Handler{coord: coord, resolver: resolver, now: time.Now}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/api/view", h.handleView)
	mux.HandleFunc("/api/checkin/walkin", h.handleWalkIn)
	mux.HandleFunc("/api/checkin/appointment", h.handleAppointment)
	mux.HandleFunc("/api/entries/", h.handleEntry)
	mux.HandleFunc("/api/queue/actions/reorder", h.handleReorder)
	mux.HandleFunc("/api/queue/actions/clear-completed", h.handleClearCompleted)
	mux.HandleFunc("/api/cache/purge", h.handlePurge)
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type displayEntry struct {
	EntryID         string        `json:"entry_id"`
	TicketNumber    int           `json:"ticket_number"`
	PatientName     string        `json:"patient_name"`
	PatientPhone    string        `json:"patient_phone,omitempty"`
	AppointmentType string        `json:"appointment_type,omitempty"`
	Reason          string        `json:"reason,omitempty"`
	IsWalkIn        bool          `json:"is_walk_in"`
	Status          models.Status `json:"status"`
	CheckInTime     time.Time     `json:"check_in_time"`
	WaitingSeconds  int           `json:"waiting_seconds"`
	Notes           string        `json:"notes,omitempty"`
}

type displayGroup struct {
	Status  models.Status  `json:"status"`
	Label   string         `json:"label"`
	Entries []displayEntry `json:"entries"`
}

type viewResponse struct {
	Source   string            `json:"source"`
	Degraded bool              `json:"degraded"`
	Stats    models.QueueStats `json:"stats"`
	Groups   []displayGroup    `json:"groups"`
}

var groupLabels = []struct {
	status models.Status
	label  string
}{
	{models.StatusWaiting, "Waiting"},
	{models.StatusInProgress, "With Doctor"},
	{models.StatusCompleted, "Completed"},
	{models.StatusNoShow, "No Show"},
	{models.StatusCancelled, "Cancelled"},
}

func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	view := h.coord.View()
	now := h.now()
	response := viewResponse{
		Source:   view.Source,
		Degraded: view.Degraded,
		Stats:    view.Stats,
		Groups:   make([]displayGroup, 0, len(groupLabels)),
	}

	byStatus := make(map[models.Status][]displayEntry)
	for _, entry := range view.Entries {
		patient, err := h.resolver.Patient(r.Context(), entry.Patient)
		if err != nil {
			writeError(w, http.StatusBadGateway, "lookup_failed", "patient lookup failed")
			return
		}
		appointment, err := h.resolver.Appointment(r.Context(), entry.Appointment)
		if err != nil {
			writeError(w, http.StatusBadGateway, "lookup_failed", "appointment lookup failed")
			return
		}
		waiting := int(now.Sub(entry.CheckInTime).Seconds())
		if waiting < 0 {
			waiting = 0
		}
		byStatus[entry.Status] = append(byStatus[entry.Status], displayEntry{
			EntryID:         entry.EntryID,
			TicketNumber:    entry.TicketNumber,
			PatientName:     patient.Name,
			PatientPhone:    patient.Phone,
			AppointmentType: appointment.Type,
			Reason:          appointment.Reason,
			IsWalkIn:        entry.IsWalkIn,
			Status:          entry.Status,
			CheckInTime:     entry.CheckInTime,
			WaitingSeconds:  waiting,
			Notes:           entry.Notes,
		})
	}
	for _, group := range groupLabels {
		entries := byStatus[group.status]
		if entries == nil {
			entries = []displayEntry{}
		}
		response.Groups = append(response.Groups, displayGroup{Status: group.status, Label: group.label, Entries: entries})
	}

	writeJSON(w, http.StatusOK, response)
}

type walkInRequest struct {
	PatientID string `json:"patient_id"`
	Notes     string `json:"notes"`
}

func (h *Handler) handleWalkIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req walkInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	entry, err := h.coord.CheckInWalkIn(r.Context(), req.PatientID, req.Notes)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	// Returned straight away so the desk can print the ticket.
	writeJSON(w, http.StatusOK, entry)
}

type appointmentCheckInRequest struct {
	AppointmentID string `json:"appointment_id"`
	PatientID     string `json:"patient_id"`
	Notes         string `json:"notes"`
}

func (h *Handler) handleAppointment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req appointmentCheckInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	entry, err := h.coord.CheckInAppointment(r.Context(), queue.CheckInAppointmentInput{
		AppointmentID: req.AppointmentID,
		PatientID:     req.PatientID,
		Notes:         req.Notes,
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) handleEntry(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/entries/"), "/")
	parts := strings.Split(path, "/")

	switch {
	case len(parts) == 1 && r.Method == http.MethodDelete:
		if err := h.coord.Remove(r.Context(), parts[0]); err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case len(parts) == 2 && parts[1] == "status" && r.Method == http.MethodPost:
		h.handleStatusChange(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "move" && r.Method == http.MethodPost:
		h.handleMove(w, r, parts[0])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type statusChangeRequest struct {
	Status models.Status `json:"status"`
}

func (h *Handler) handleStatusChange(w http.ResponseWriter, r *http.Request, entryID string) {
	var req statusChangeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	if !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_request", "unknown status")
		return
	}
	if err := h.coord.UpdateStatus(r.Context(), entryID, req.Status); err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type moveRequest struct {
	Direction string `json:"direction"`
}

func (h *Handler) handleMove(w http.ResponseWriter, r *http.Request, entryID string) {
	var req moveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	if req.Direction != queue.MoveUp && req.Direction != queue.MoveDown {
		writeError(w, http.StatusBadRequest, "invalid_request", "direction must be up or down")
		return
	}
	if err := h.coord.MoveWaiting(r.Context(), entryID, req.Direction); err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type reorderRequest struct {
	Order []string `json:"order"`
}

func (h *Handler) handleReorder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req reorderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	if err := h.coord.Reorder(r.Context(), req.Order); err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleClearCompleted(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := h.coord.ClearCompleted(r.Context()); err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handlePurge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	h.coord.PurgeCache()
	w.WriteHeader(http.StatusNoContent)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return err
	}
	return nil
}

func mapError(err error) (int, string, string) {
	var apiErr *apiclient.APIError
	switch {
	case errors.Is(err, queue.ErrNoPatient):
		return http.StatusBadRequest, "invalid_request", "patient_id is required"
	case errors.Is(err, queue.ErrNoAppointment):
		return http.StatusBadRequest, "invalid_request", "appointment_id is required"
	case errors.Is(err, queue.ErrAlreadyQueued):
		return http.StatusConflict, "already_queued", "appointment is already in today's queue"
	case errors.Is(err, queue.ErrEntryNotFound):
		return http.StatusNotFound, "entry_not_found", "entry not found"
	case errors.Is(err, queue.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition", "entry status does not allow this change"
	case errors.Is(err, queue.ErrReorderScope):
		return http.StatusBadRequest, "reorder_scope", "reorder must cover exactly the waiting entries"
	case errors.As(err, &apiErr):
		return http.StatusBadGateway, "backend_error", apiErr.Message
	default:
		return http.StatusBadGateway, "backend_error", "queue backend unavailable"
	}
}

type errorResponse struct {
	Error responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: responseError{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
