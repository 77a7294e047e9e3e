package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/alvozedd/ClinicManagementSystem-sub003/internal/models"
)

type fakeDirectory struct {
	patientFn func(ctx context.Context, patientID string) (*models.PatientSummary, error)
	apptFn    func(ctx context.Context, appointmentID string) (*models.AppointmentSummary, error)
}

func (f *fakeDirectory) FindPatientByID(ctx context.Context, patientID string) (*models.PatientSummary, error) {
	if f.patientFn == nil {
		return nil, nil
	}
	return f.patientFn(ctx, patientID)
}

func (f *fakeDirectory) FindAppointmentByID(ctx context.Context, appointmentID string) (*models.AppointmentSummary, error) {
	if f.apptFn == nil {
		return nil, nil
	}
	return f.apptFn(ctx, appointmentID)
}

func TestPatientEmbeddedShortCircuits(t *testing.T) {
	called := false
	resolver := NewResolver(&fakeDirectory{
		patientFn: func(ctx context.Context, patientID string) (*models.PatientSummary, error) {
			called = true
			return nil, nil
		},
	})

	summary, err := resolver.Patient(context.Background(), models.EmbeddedPatient("p-1", "Jane Roe", "555-0100"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if summary.Name != "Jane Roe" || summary.Phone != "555-0100" {
		t.Fatalf("summary=%+v", summary)
	}
	if called {
		t.Fatalf("embedded refs must not hit the directory")
	}
}

func TestPatientBareIDCachesLookup(t *testing.T) {
	calls := 0
	resolver := NewResolver(&fakeDirectory{
		patientFn: func(ctx context.Context, patientID string) (*models.PatientSummary, error) {
			calls++
			return &models.PatientSummary{PatientID: patientID, Name: "John Doe"}, nil
		},
	})

	for i := 0; i < 3; i++ {
		summary, err := resolver.Patient(context.Background(), models.PatientID("p-1"))
		if err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
		if summary.Name != "John Doe" {
			t.Fatalf("summary=%+v", summary)
		}
	}
	if calls != 1 {
		t.Fatalf("directory called %d times, want 1", calls)
	}
}

func TestPatientAbsentYieldsIDOnly(t *testing.T) {
	resolver := NewResolver(&fakeDirectory{})

	summary, err := resolver.Patient(context.Background(), models.PatientID("p-404"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if summary.PatientID != "p-404" || summary.Name != "" {
		t.Fatalf("summary=%+v", summary)
	}
}

func TestPatientLookupErrorIsNotCached(t *testing.T) {
	calls := 0
	resolver := NewResolver(&fakeDirectory{
		patientFn: func(ctx context.Context, patientID string) (*models.PatientSummary, error) {
			calls++
			if calls == 1 {
				return nil, errors.New("backend down")
			}
			return &models.PatientSummary{PatientID: patientID, Name: "John Doe"}, nil
		},
	})

	if _, err := resolver.Patient(context.Background(), models.PatientID("p-1")); err == nil {
		t.Fatalf("expected a lookup error")
	}
	summary, err := resolver.Patient(context.Background(), models.PatientID("p-1"))
	if err != nil || summary.Name != "John Doe" {
		t.Fatalf("summary=%+v err=%v", summary, err)
	}
}

func TestAppointmentNilRef(t *testing.T) {
	called := false
	resolver := NewResolver(&fakeDirectory{
		apptFn: func(ctx context.Context, appointmentID string) (*models.AppointmentSummary, error) {
			called = true
			return nil, nil
		},
	})

	summary, err := resolver.Appointment(context.Background(), nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if summary != (models.AppointmentSummary{}) || called {
		t.Fatalf("nil ref must resolve to zero without a lookup: %+v", summary)
	}
}

func TestAppointmentBareIDResolves(t *testing.T) {
	resolver := NewResolver(&fakeDirectory{
		apptFn: func(ctx context.Context, appointmentID string) (*models.AppointmentSummary, error) {
			return &models.AppointmentSummary{AppointmentID: appointmentID, Type: "consultation"}, nil
		},
	})

	summary, err := resolver.Appointment(context.Background(), models.AppointmentID("a-1"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if summary.Type != "consultation" {
		t.Fatalf("summary=%+v", summary)
	}
}
