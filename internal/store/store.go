package store

import (
	"context"
	"time"

	"github.com/alvozedd/ClinicManagementSystem-sub003/internal/models"
)

type CreateEntryInput struct {
	RequestID     string
	PatientID     string
	AppointmentID string
	IsWalkIn      bool
	Notes         string
	CheckInTime   time.Time
}

type UpdateEntryInput struct {
	EntryID string
	Status  *models.Status
	Notes   *string
}

// QueueStore owns the durable record of today's queue. All operations
// are scoped to the current day; ticket numbers are assigned from a
// per-day counter and never reused, even after removal.
type QueueStore interface {
	CreateEntry(ctx context.Context, input CreateEntryInput) (models.QueueEntry, bool, error)
	GetEntry(ctx context.Context, entryID string) (models.QueueEntry, bool, error)
	ListEntries(ctx context.Context) ([]models.QueueEntry, error)
	Stats(ctx context.Context) (models.QueueStats, error)
	UpdateEntry(ctx context.Context, input UpdateEntryInput) (models.QueueEntry, error)
	RemoveEntry(ctx context.Context, entryID string) error
	Reorder(ctx context.Context, positions []models.QueuePosition) error
	ClearCompleted(ctx context.Context) (int, error)
	AutoNoShow(ctx context.Context, grace time.Duration, batchSize int) (int, error)
	FindPatient(ctx context.Context, patientID string) (models.PatientSummary, bool, error)
	FindAppointment(ctx context.Context, appointmentID string) (models.AppointmentSummary, bool, error)
}
