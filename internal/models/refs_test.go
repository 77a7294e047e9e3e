package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestPatientRefDualShape(t *testing.T) {
	var bare PatientRef
	if err := json.Unmarshal([]byte(`"p-1"`), &bare); err != nil {
		t.Fatalf("unmarshal bare id: %v", err)
	}
	if bare.Embedded() || bare.ID != "p-1" {
		t.Fatalf("unexpected bare ref: %+v", bare)
	}

	var embedded PatientRef
	payload := `{"patient_id":"p-2","name":"Jane Doe","phone":"0712345678"}`
	if err := json.Unmarshal([]byte(payload), &embedded); err != nil {
		t.Fatalf("unmarshal embedded: %v", err)
	}
	if !embedded.Embedded() || embedded.Name != "Jane Doe" || embedded.Phone != "0712345678" {
		t.Fatalf("unexpected embedded ref: %+v", embedded)
	}

	out, err := json.Marshal(bare)
	if err != nil || string(out) != `"p-1"` {
		t.Fatalf("bare ref must marshal back to a string, got %s (%v)", out, err)
	}
	out, err = json.Marshal(embedded)
	if err != nil {
		t.Fatalf("marshal embedded: %v", err)
	}
	var roundTrip PatientRef
	if err := json.Unmarshal(out, &roundTrip); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if !roundTrip.Embedded() || roundTrip != embedded {
		t.Fatalf("embedded ref changed across round trip: %+v", roundTrip)
	}
}

func TestAppointmentRefDualShape(t *testing.T) {
	var bare AppointmentRef
	if err := json.Unmarshal([]byte(`"a-1"`), &bare); err != nil {
		t.Fatalf("unmarshal bare id: %v", err)
	}
	if bare.Embedded() || bare.ID != "a-1" {
		t.Fatalf("unexpected bare ref: %+v", bare)
	}

	var embedded AppointmentRef
	payload := `{"appointment_id":"a-2","type":"consultation","reason":"follow up"}`
	if err := json.Unmarshal([]byte(payload), &embedded); err != nil {
		t.Fatalf("unmarshal embedded: %v", err)
	}
	if !embedded.Embedded() || embedded.Type != "consultation" || embedded.Reason != "follow up" {
		t.Fatalf("unexpected embedded ref: %+v", embedded)
	}
}

func TestQueueEntryValidate(t *testing.T) {
	entry := QueueEntry{
		EntryID:      "e-1",
		TicketNumber: 1,
		Patient:      PatientID("p-1"),
		IsWalkIn:     true,
		Status:       StatusWaiting,
		CheckInTime:  time.Now(),
	}
	if err := entry.Validate(); err != nil {
		t.Fatalf("walk-in without appointment must validate: %v", err)
	}

	entry.Appointment = AppointmentID("a-1")
	if err := entry.Validate(); !errors.Is(err, ErrWalkInHasAppointment) {
		t.Fatalf("expected ErrWalkInHasAppointment, got %v", err)
	}

	entry.IsWalkIn = false
	if err := entry.Validate(); err != nil {
		t.Fatalf("appointment entry must validate: %v", err)
	}

	entry.Appointment = nil
	if err := entry.Validate(); !errors.Is(err, ErrMissingAppointment) {
		t.Fatalf("expected ErrMissingAppointment, got %v", err)
	}
}

func TestStatsFor(t *testing.T) {
	entries := []QueueEntry{
		{Status: StatusWaiting},
		{Status: StatusWaiting},
		{Status: StatusInProgress},
		{Status: StatusCompleted},
		{Status: StatusNoShow},
		{Status: StatusCancelled},
	}
	stats := StatsFor(entries)
	if stats.Total != 6 {
		t.Fatalf("total=%d, want 6", stats.Total)
	}
	if sum := stats.Waiting + stats.InProgress + stats.Completed + stats.NoShow + stats.Cancelled; sum != stats.Total {
		t.Fatalf("bucket sum %d != total %d", sum, stats.Total)
	}
	if stats.Waiting != 2 || stats.InProgress != 1 || stats.Completed != 1 || stats.NoShow != 1 || stats.Cancelled != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
