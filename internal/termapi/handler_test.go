package termapi

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alvozedd/ClinicManagementSystem-sub003/internal/directory"
	"github.com/alvozedd/ClinicManagementSystem-sub003/internal/models"
	"github.com/alvozedd/ClinicManagementSystem-sub003/internal/queue"
)

type fakeService struct {
	listFn    func(ctx context.Context) (models.QueueList, error)
	addFn     func(ctx context.Context, input queue.AddEntryInput) (models.QueueEntry, error)
	reorderFn func(ctx context.Context, positions []models.QueuePosition) error
}

func (f *fakeService) ListEntries(ctx context.Context) (models.QueueList, error) {
	if f.listFn == nil {
		return models.QueueList{Source: models.SourceLive}, nil
	}
	return f.listFn(ctx)
}

func (f *fakeService) GetStats(ctx context.Context) (models.QueueStats, error) {
	return models.QueueStats{}, nil
}

func (f *fakeService) AddEntry(ctx context.Context, input queue.AddEntryInput) (models.QueueEntry, error) {
	if f.addFn == nil {
		return models.QueueEntry{}, nil
	}
	return f.addFn(ctx, input)
}

func (f *fakeService) UpdateEntry(ctx context.Context, entryID string, input queue.UpdateEntryInput) (models.QueueEntry, error) {
	return models.QueueEntry{}, nil
}

func (f *fakeService) RemoveEntry(ctx context.Context, entryID string) error {
	return nil
}

func (f *fakeService) Reorder(ctx context.Context, positions []models.QueuePosition) error {
	if f.reorderFn == nil {
		return nil
	}
	return f.reorderFn(ctx, positions)
}

func (f *fakeService) ClearCompleted(ctx context.Context) (int, error) {
	return 0, nil
}

type fakeDirectory struct{}

func (fakeDirectory) FindPatientByID(ctx context.Context, patientID string) (*models.PatientSummary, error) {
	return &models.PatientSummary{PatientID: patientID, Name: "Looked Up"}, nil
}

func (fakeDirectory) FindAppointmentByID(ctx context.Context, appointmentID string) (*models.AppointmentSummary, error) {
	return &models.AppointmentSummary{AppointmentID: appointmentID, Type: "consultation"}, nil
}

func newTestHandler(t *testing.T, service queue.Service) (*Handler, *queue.Coordinator) {
	t.Helper()
	coord := queue.NewCoordinator(service, queue.Options{Logger: log.New(io.Discard, "", 0)})
	handler := NewHandler(coord, directory.NewResolver(fakeDirectory{}))
	handler.now = func() time.Time { return time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC) }
	return handler, coord
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func seedEntries() []models.QueueEntry {
	checkIn := time.Date(2026, 8, 31, 9, 45, 0, 0, time.UTC)
	return []models.QueueEntry{
		{
			EntryID:      "w-1",
			TicketNumber: 1,
			Position:     1,
			Patient:      models.EmbeddedPatient("p-1", "Jane Roe", "555-0100"),
			IsWalkIn:     true,
			Status:       models.StatusWaiting,
			CheckInTime:  checkIn,
		},
		{
			EntryID:      "w-2",
			TicketNumber: 2,
			Position:     2,
			Patient:      models.PatientID("p-2"),
			Appointment:  models.AppointmentID("a-2"),
			IsWalkIn:     false,
			Status:       models.StatusWaiting,
			CheckInTime:  checkIn,
		},
		{
			EntryID:      "d-3",
			TicketNumber: 3,
			Position:     3,
			Patient:      models.EmbeddedPatient("p-3", "Sam Poe", ""),
			IsWalkIn:     true,
			Status:       models.StatusInProgress,
			CheckInTime:  checkIn,
		},
	}
}

func TestViewGroupsAndResolvesEntries(t *testing.T) {
	service := &fakeService{
		listFn: func(ctx context.Context) (models.QueueList, error) {
			return models.QueueList{Source: models.SourceLive, Entries: seedEntries()}, nil
		},
	}
	handler, coord := newTestHandler(t, service)
	if err := coord.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	rec := doRequest(t, handler.Routes(), http.MethodGet, "/api/view", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}

	var view viewResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Source != models.SourceLive || view.Degraded {
		t.Fatalf("view flags: %+v", view)
	}
	if view.Stats.Waiting != 2 || view.Stats.InProgress != 1 || view.Stats.Total != 3 {
		t.Fatalf("stats=%+v", view.Stats)
	}
	if len(view.Groups) != 5 {
		t.Fatalf("groups=%d, want 5", len(view.Groups))
	}
	if view.Groups[0].Label != "Waiting" || len(view.Groups[0].Entries) != 2 {
		t.Fatalf("waiting group: %+v", view.Groups[0])
	}
	if view.Groups[1].Label != "With Doctor" || len(view.Groups[1].Entries) != 1 {
		t.Fatalf("in-progress group: %+v", view.Groups[1])
	}
	if view.Groups[2].Entries == nil {
		t.Fatalf("empty groups must encode as [], not null")
	}

	waiting := view.Groups[0].Entries
	if waiting[0].PatientName != "Jane Roe" {
		t.Fatalf("embedded ref resolution: %+v", waiting[0])
	}
	if waiting[1].PatientName != "Looked Up" || waiting[1].AppointmentType != "consultation" {
		t.Fatalf("bare ref resolution: %+v", waiting[1])
	}
	if waiting[0].WaitingSeconds != 900 {
		t.Fatalf("waiting_seconds=%d, want 900", waiting[0].WaitingSeconds)
	}
}

func TestWalkInCheckInReturnsTicket(t *testing.T) {
	service := &fakeService{
		addFn: func(ctx context.Context, input queue.AddEntryInput) (models.QueueEntry, error) {
			return models.QueueEntry{
				EntryID:      "e-new",
				TicketNumber: 14,
				Position:     14,
				Patient:      models.PatientID(input.PatientID),
				IsWalkIn:     true,
				Status:       models.StatusWaiting,
				CheckInTime:  time.Now(),
			}, nil
		},
	}
	handler, _ := newTestHandler(t, service)

	rec := doRequest(t, handler.Routes(), http.MethodPost, "/api/checkin/walkin", `{"patient_id": "p-9"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var entry models.QueueEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry.TicketNumber != 14 {
		t.Fatalf("ticket=%d, want 14", entry.TicketNumber)
	}

	rec = doRequest(t, handler.Routes(), http.MethodPost, "/api/checkin/walkin", `{"patient_id": ""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty patient: status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestAppointmentCheckInConflict(t *testing.T) {
	service := &fakeService{
		listFn: func(ctx context.Context) (models.QueueList, error) {
			return models.QueueList{Source: models.SourceLive, Entries: seedEntries()}, nil
		},
	}
	handler, coord := newTestHandler(t, service)
	if err := coord.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	body := `{"appointment_id": "a-2", "patient_id": "p-2"}`
	rec := doRequest(t, handler.Routes(), http.MethodPost, "/api/checkin/appointment", body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestStatusChangeAndMove(t *testing.T) {
	service := &fakeService{
		listFn: func(ctx context.Context) (models.QueueList, error) {
			return models.QueueList{Source: models.SourceLive, Entries: seedEntries()}, nil
		},
	}
	handler, coord := newTestHandler(t, service)
	if err := coord.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	routes := handler.Routes()

	rec := doRequest(t, routes, http.MethodPost, "/api/entries/w-1/status", `{"status": "in_progress"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status change: %d body=%s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, routes, http.MethodPost, "/api/entries/w-1/status", `{"status": "resting"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown status: %d body=%s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, routes, http.MethodPost, "/api/entries/missing/status", `{"status": "in_progress"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing entry: %d body=%s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, routes, http.MethodPost, "/api/entries/w-2/move", `{"direction": "sideways"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad direction: %d body=%s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, routes, http.MethodPost, "/api/entries/w-2/move", `{"direction": "up"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("move: %d body=%s", rec.Code, rec.Body.String())
	}
	coord.Flush()
}

func TestRemoveEntry(t *testing.T) {
	service := &fakeService{
		listFn: func(ctx context.Context) (models.QueueList, error) {
			return models.QueueList{Source: models.SourceLive, Entries: seedEntries()}, nil
		},
	}
	handler, coord := newTestHandler(t, service)
	if err := coord.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	rec := doRequest(t, handler.Routes(), http.MethodDelete, "/api/entries/w-1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("remove: %d body=%s", rec.Code, rec.Body.String())
	}
	coord.Flush()

	if view := coord.View(); len(view.Entries) != 2 {
		t.Fatalf("entries=%d, want 2", len(view.Entries))
	}
}

func TestReorderEndpoint(t *testing.T) {
	service := &fakeService{
		listFn: func(ctx context.Context) (models.QueueList, error) {
			return models.QueueList{Source: models.SourceLive, Entries: seedEntries()}, nil
		},
	}
	handler, coord := newTestHandler(t, service)
	if err := coord.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	routes := handler.Routes()

	rec := doRequest(t, routes, http.MethodPost, "/api/queue/actions/reorder", `{"order": ["w-2", "w-1"]}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("reorder: %d body=%s", rec.Code, rec.Body.String())
	}
	coord.Flush()

	rec = doRequest(t, routes, http.MethodPost, "/api/queue/actions/reorder", `{"order": ["w-2", "d-3"]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("out-of-scope reorder: %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestPurgeEndpoint(t *testing.T) {
	service := &fakeService{
		listFn: func(ctx context.Context) (models.QueueList, error) {
			return models.QueueList{Source: models.SourceLive, Entries: seedEntries()}, nil
		},
	}
	handler, coord := newTestHandler(t, service)
	if err := coord.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	rec := doRequest(t, handler.Routes(), http.MethodPost, "/api/cache/purge", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("purge: %d body=%s", rec.Code, rec.Body.String())
	}
	if view := coord.View(); len(view.Entries) != 0 {
		t.Fatalf("view not emptied: %+v", view.Entries)
	}
}
