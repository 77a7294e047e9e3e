package models

import (
	"errors"
	"time"
)

var (
	ErrWalkInHasAppointment = errors.New("walk-in entry cannot reference an appointment")
	ErrMissingAppointment   = errors.New("non walk-in entry must reference an appointment")
)

// QueueEntry is a patient's position in today's waiting room.
type QueueEntry struct {
	EntryID      string          `json:"entry_id"`
	RequestID    string          `json:"request_id,omitempty"`
	TicketNumber int             `json:"ticket_number"`
	Position     int             `json:"position"`
	Patient      PatientRef      `json:"patient"`
	Appointment  *AppointmentRef `json:"appointment,omitempty"`
	IsWalkIn     bool            `json:"is_walk_in"`
	Status       Status          `json:"status"`
	CheckInTime  time.Time       `json:"check_in_time"`
	Notes        string          `json:"notes,omitempty"`
}

// Validate enforces walk-in / appointment mutual exclusivity.
func (e QueueEntry) Validate() error {
	if e.IsWalkIn && e.Appointment != nil {
		return ErrWalkInHasAppointment
	}
	if !e.IsWalkIn && e.Appointment == nil {
		return ErrMissingAppointment
	}
	return nil
}

type QueueStats struct {
	Total      int `json:"total"`
	Waiting    int `json:"waiting"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	NoShow     int `json:"no_show"`
	Cancelled  int `json:"cancelled"`
}

// StatsFor derives the day's stats from an entry slice. The counts are
// never stored independently; total always equals the bucket sum.
func StatsFor(entries []QueueEntry) QueueStats {
	stats := QueueStats{Total: len(entries)}
	for _, entry := range entries {
		switch entry.Status {
		case StatusWaiting:
			stats.Waiting++
		case StatusInProgress:
			stats.InProgress++
		case StatusCompleted:
			stats.Completed++
		case StatusNoShow:
			stats.NoShow++
		case StatusCancelled:
			stats.Cancelled++
		}
	}
	return stats
}

const (
	SourceLive  = "live"
	SourceCache = "cache"
)

// QueueList is the list response from the backend. Source marks whether
// the entries are authoritative; backends that predate the flag leave it
// empty and the client falls back to the synthetic-id heuristic.
type QueueList struct {
	Source  string       `json:"source,omitempty"`
	Entries []QueueEntry `json:"entries"`
}

type QueuePosition struct {
	EntryID  string `json:"entry_id"`
	Position int    `json:"position"`
}
