package store

import "errors"

var (
	ErrEntryNotFound       = errors.New("entry not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrAlreadyQueued       = errors.New("appointment already queued today")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrReorderScope        = errors.New("reorder outside waiting entries")
)
