package queue

import (
	"context"
	"errors"

	"github.com/alvozedd/ClinicManagementSystem-sub003/internal/models"
)

var (
	ErrNoPatient         = errors.New("patient is required")
	ErrNoAppointment     = errors.New("appointment is required")
	ErrAlreadyQueued     = errors.New("appointment already in queue")
	ErrEntryNotFound     = errors.New("entry not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrReorderScope      = errors.New("reorder must cover exactly the waiting entries")
)

type AddEntryInput struct {
	RequestID     string `json:"request_id"`
	PatientID     string `json:"patient_id"`
	AppointmentID string `json:"appointment_id,omitempty"`
	IsWalkIn      bool   `json:"is_walk_in"`
	Notes         string `json:"notes,omitempty"`
}

type UpdateEntryInput struct {
	Status *models.Status `json:"status,omitempty"`
	Notes  *string        `json:"notes,omitempty"`
}

// Service is the backend collaborator the coordinator reconciles
// against. The backend owns the durable record; the coordinator owns
// only the in-memory view.
type Service interface {
	ListEntries(ctx context.Context) (models.QueueList, error)
	GetStats(ctx context.Context) (models.QueueStats, error)
	AddEntry(ctx context.Context, input AddEntryInput) (models.QueueEntry, error)
	UpdateEntry(ctx context.Context, entryID string, input UpdateEntryInput) (models.QueueEntry, error)
	RemoveEntry(ctx context.Context, entryID string) error
	Reorder(ctx context.Context, positions []models.QueuePosition) error
	ClearCompleted(ctx context.Context) (int, error)
}
