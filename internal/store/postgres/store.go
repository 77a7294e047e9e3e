package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alvozedd/ClinicManagementSystem-sub003/internal/models"
	"github.com/alvozedd/ClinicManagementSystem-sub003/internal/store"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const entryColumns = `
	e.entry_id, e.request_id, e.ticket_number, e.position, e.is_walk_in,
	e.status, e.check_in_time, e.notes,
	e.patient_id, p.name, p.phone,
	e.appointment_id, a.visit_type, a.reason, a.status
`

const entryJoins = `
	FROM queue_entries e
	LEFT JOIN patients p ON p.patient_id = e.patient_id
	LEFT JOIN appointments a ON a.appointment_id = e.appointment_id
`

func (s *Store) CreateEntry(ctx context.Context, input store.CreateEntryInput) (models.QueueEntry, bool, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.QueueEntry{}, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	existing, found, err := findEntryByRequestID(ctx, tx, input.RequestID)
	if err != nil {
		return models.QueueEntry{}, false, err
	}
	if found {
		if err = tx.Commit(ctx); err != nil {
			return models.QueueEntry{}, false, err
		}
		return existing, false, nil
	}

	var exists bool
	if err = tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM patients WHERE patient_id = $1)`, input.PatientID).Scan(&exists); err != nil {
		return models.QueueEntry{}, false, err
	}
	if !exists {
		err = store.ErrPatientNotFound
		return models.QueueEntry{}, false, err
	}

	if input.AppointmentID != "" {
		if err = tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM appointments WHERE appointment_id = $1)`, input.AppointmentID).Scan(&exists); err != nil {
			return models.QueueEntry{}, false, err
		}
		if !exists {
			err = store.ErrAppointmentNotFound
			return models.QueueEntry{}, false, err
		}
		if err = tx.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM queue_entries
				WHERE appointment_id = $1 AND queue_date = CURRENT_DATE
			)`, input.AppointmentID).Scan(&exists); err != nil {
			return models.QueueEntry{}, false, err
		}
		if exists {
			err = store.ErrAlreadyQueued
			return models.QueueEntry{}, false, err
		}
	}

	ticketNumber, err := nextTicketNumber(ctx, tx)
	if err != nil {
		return models.QueueEntry{}, false, err
	}

	entryID := uuid.NewString()
	checkInTime := input.CheckInTime
	if checkInTime.IsZero() {
		checkInTime = time.Now().UTC()
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO queue_entries (
			entry_id, request_id, queue_date, ticket_number, position,
			patient_id, appointment_id, is_walk_in, status, check_in_time, notes
		) VALUES ($1, $2, CURRENT_DATE, $3, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (request_id) DO NOTHING
	`, entryID, input.RequestID, ticketNumber, input.PatientID, nullIfEmpty(input.AppointmentID), input.IsWalkIn, models.StatusWaiting, checkInTime, input.Notes)
	if err != nil {
		return models.QueueEntry{}, false, err
	}

	entry, found, err := findEntry(ctx, tx, entryID)
	if err != nil {
		return models.QueueEntry{}, false, err
	}
	if !found {
		err = store.ErrEntryNotFound
		return models.QueueEntry{}, false, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.QueueEntry{}, false, err
	}
	return entry, true, nil
}

// nextTicketNumber advances the per-day counter. Numbers only ever move
// forward, so a removed entry's ticket is never handed out again.
func nextTicketNumber(ctx context.Context, tx pgx.Tx) (int, error) {
	var number int
	err := tx.QueryRow(ctx, `
		INSERT INTO ticket_counters (queue_date, last_number)
		VALUES (CURRENT_DATE, 1)
		ON CONFLICT (queue_date) DO UPDATE SET last_number = ticket_counters.last_number + 1
		RETURNING last_number
	`).Scan(&number)
	if err != nil {
		return 0, err
	}
	return number, nil
}

func (s *Store) GetEntry(ctx context.Context, entryID string) (models.QueueEntry, bool, error) {
	return findEntry(ctx, s.pool, entryID)
}

func (s *Store) ListEntries(ctx context.Context) ([]models.QueueEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+entryColumns+entryJoins+`
		WHERE e.queue_date = CURRENT_DATE
		ORDER BY e.position ASC, e.ticket_number ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.QueueEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Store) Stats(ctx context.Context) (models.QueueStats, error) {
	var stats models.QueueStats
	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'waiting'),
			COUNT(*) FILTER (WHERE status = 'in_progress'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'no_show'),
			COUNT(*) FILTER (WHERE status = 'cancelled')
		FROM queue_entries
		WHERE queue_date = CURRENT_DATE
	`).Scan(&stats.Total, &stats.Waiting, &stats.InProgress, &stats.Completed, &stats.NoShow, &stats.Cancelled)
	if err != nil {
		return models.QueueStats{}, err
	}
	return stats, nil
}

func (s *Store) UpdateEntry(ctx context.Context, input store.UpdateEntryInput) (models.QueueEntry, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.QueueEntry{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var current models.Status
	err = tx.QueryRow(ctx, `
		SELECT status FROM queue_entries
		WHERE entry_id = $1 AND queue_date = CURRENT_DATE
		FOR UPDATE
	`, input.EntryID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrEntryNotFound
		}
		return models.QueueEntry{}, err
	}

	sets := []string{}
	args := []interface{}{input.EntryID}
	if input.Status != nil {
		if !models.ValidTransition(current, *input.Status) {
			err = store.ErrInvalidTransition
			return models.QueueEntry{}, err
		}
		args = append(args, string(*input.Status))
		sets = append(sets, "status = $"+strconv.Itoa(len(args)))
	}
	if input.Notes != nil {
		args = append(args, *input.Notes)
		sets = append(sets, "notes = $"+strconv.Itoa(len(args)))
	}
	if len(sets) > 0 {
		_, err = tx.Exec(ctx, `UPDATE queue_entries SET `+strings.Join(sets, ", ")+` WHERE entry_id = $1`, args...)
		if err != nil {
			return models.QueueEntry{}, err
		}
	}

	entry, found, err := findEntry(ctx, tx, input.EntryID)
	if err != nil {
		return models.QueueEntry{}, err
	}
	if !found {
		err = store.ErrEntryNotFound
		return models.QueueEntry{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.QueueEntry{}, err
	}
	return entry, nil
}

func (s *Store) RemoveEntry(ctx context.Context, entryID string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM queue_entries
		WHERE entry_id = $1 AND queue_date = CURRENT_DATE
	`, entryID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrEntryNotFound
	}
	return nil
}

// Reorder rewrites the manual positions of waiting entries. An id that
// is missing or no longer waiting fails the whole batch.
func (s *Store) Reorder(ctx context.Context, positions []models.QueuePosition) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	for _, position := range positions {
		var tag pgconn.CommandTag
		tag, err = tx.Exec(ctx, `
			UPDATE queue_entries SET position = $2
			WHERE entry_id = $1 AND queue_date = CURRENT_DATE AND status = 'waiting'
		`, position.EntryID, position.Position)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			err = store.ErrReorderScope
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *Store) ClearCompleted(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM queue_entries
		WHERE queue_date = CURRENT_DATE AND status = 'completed'
	`)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) AutoNoShow(ctx context.Context, grace time.Duration, batchSize int) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE queue_entries SET status = 'no_show'
		WHERE entry_id IN (
			SELECT entry_id FROM queue_entries
			WHERE queue_date = CURRENT_DATE
			  AND status = 'waiting'
			  AND check_in_time < now() - make_interval(secs => $1)
			ORDER BY check_in_time ASC
			LIMIT $2
		)
	`, grace.Seconds(), batchSize)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) FindPatient(ctx context.Context, patientID string) (models.PatientSummary, bool, error) {
	var summary models.PatientSummary
	err := s.pool.QueryRow(ctx, `
		SELECT patient_id, name, COALESCE(phone, '') FROM patients WHERE patient_id = $1
	`, patientID).Scan(&summary.PatientID, &summary.Name, &summary.Phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.PatientSummary{}, false, nil
		}
		return models.PatientSummary{}, false, err
	}
	return summary, true, nil
}

func (s *Store) FindAppointment(ctx context.Context, appointmentID string) (models.AppointmentSummary, bool, error) {
	var summary models.AppointmentSummary
	err := s.pool.QueryRow(ctx, `
		SELECT appointment_id, visit_type, COALESCE(reason, ''), status
		FROM appointments WHERE appointment_id = $1
	`, appointmentID).Scan(&summary.AppointmentID, &summary.Type, &summary.Reason, &summary.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.AppointmentSummary{}, false, nil
		}
		return models.AppointmentSummary{}, false, err
	}
	return summary, true, nil
}

type queryer interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func findEntryByRequestID(ctx context.Context, q queryer, requestID string) (models.QueueEntry, bool, error) {
	row := q.QueryRow(ctx, `
		SELECT `+entryColumns+entryJoins+`
		WHERE e.request_id = $1
	`, requestID)
	return scanEntryRow(row)
}

func findEntry(ctx context.Context, q queryer, entryID string) (models.QueueEntry, bool, error) {
	row := q.QueryRow(ctx, `
		SELECT `+entryColumns+entryJoins+`
		WHERE e.entry_id = $1 AND e.queue_date = CURRENT_DATE
	`, entryID)
	return scanEntryRow(row)
}

func scanEntryRow(row pgx.Row) (models.QueueEntry, bool, error) {
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.QueueEntry{}, false, nil
		}
		return models.QueueEntry{}, false, err
	}
	return entry, true, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanEntry builds the dual-shape references the clients expect: an
// embedded summary when the joined record exists, a bare id when it
// does not.
func scanEntry(row rowScanner) (models.QueueEntry, error) {
	var entry models.QueueEntry
	var notes sql.NullString
	var patientID string
	var patientName, patientPhone sql.NullString
	var appointmentID, visitType, reason, apptStatus sql.NullString

	err := row.Scan(
		&entry.EntryID, &entry.RequestID, &entry.TicketNumber, &entry.Position, &entry.IsWalkIn,
		&entry.Status, &entry.CheckInTime, &notes,
		&patientID, &patientName, &patientPhone,
		&appointmentID, &visitType, &reason, &apptStatus,
	)
	if err != nil {
		return models.QueueEntry{}, err
	}

	entry.Notes = notes.String
	if patientName.Valid {
		entry.Patient = models.EmbeddedPatient(patientID, patientName.String, patientPhone.String)
	} else {
		entry.Patient = models.PatientID(patientID)
	}
	if appointmentID.Valid {
		if visitType.Valid {
			entry.Appointment = models.EmbeddedAppointment(appointmentID.String, visitType.String, reason.String, apptStatus.String)
		} else {
			entry.Appointment = models.AppointmentID(appointmentID.String)
		}
	}
	return entry, nil
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

