package directory

import (
	"context"
	"sync"

	"github.com/alvozedd/ClinicManagementSystem-sub003/internal/models"
)

// Directory is the read-only lookup collaborator used to enrich queue
// entries that carry bare ids instead of embedded summaries. A nil
// result with a nil error means the record does not exist.
type Directory interface {
	FindPatientByID(ctx context.Context, patientID string) (*models.PatientSummary, error)
	FindAppointmentByID(ctx context.Context, appointmentID string) (*models.AppointmentSummary, error)
}

// Resolver is the one place a queue entry's references are turned into
// display data. Embedded refs short-circuit; bare ids go through the
// directory once and are cached for the rest of the day's session.
type Resolver struct {
	dir Directory

	mu           sync.Mutex
	patients     map[string]models.PatientSummary
	appointments map[string]models.AppointmentSummary
}

func NewResolver(dir Directory) *Resolver {
	return &Resolver{
		dir:          dir,
		patients:     make(map[string]models.PatientSummary),
		appointments: make(map[string]models.AppointmentSummary),
	}
}

func (r *Resolver) Patient(ctx context.Context, ref models.PatientRef) (models.PatientSummary, error) {
	if ref.Embedded() {
		return models.PatientSummary{PatientID: ref.ID, Name: ref.Name, Phone: ref.Phone}, nil
	}

	r.mu.Lock()
	cached, ok := r.patients[ref.ID]
	r.mu.Unlock()
	if ok {
		return cached, nil
	}

	summary, err := r.dir.FindPatientByID(ctx, ref.ID)
	if err != nil {
		return models.PatientSummary{PatientID: ref.ID}, err
	}
	if summary == nil {
		return models.PatientSummary{PatientID: ref.ID}, nil
	}

	r.mu.Lock()
	r.patients[ref.ID] = *summary
	r.mu.Unlock()
	return *summary, nil
}

func (r *Resolver) Appointment(ctx context.Context, ref *models.AppointmentRef) (models.AppointmentSummary, error) {
	if ref == nil {
		return models.AppointmentSummary{}, nil
	}
	if ref.Embedded() {
		return models.AppointmentSummary{AppointmentID: ref.ID, Type: ref.Type, Reason: ref.Reason, Status: ref.Status}, nil
	}

	r.mu.Lock()
	cached, ok := r.appointments[ref.ID]
	r.mu.Unlock()
	if ok {
		return cached, nil
	}

	summary, err := r.dir.FindAppointmentByID(ctx, ref.ID)
	if err != nil {
		return models.AppointmentSummary{AppointmentID: ref.ID}, err
	}
	if summary == nil {
		return models.AppointmentSummary{AppointmentID: ref.ID}, nil
	}

	r.mu.Lock()
	r.appointments[ref.ID] = *summary
	r.mu.Unlock()
	return *summary, nil
}
