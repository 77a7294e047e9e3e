package queue

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alvozedd/ClinicManagementSystem-sub003/internal/models"
)

const defaultPollInterval = 30 * time.Second

type Options struct {
	PollInterval time.Duration
	Snapshot     *Snapshot
	Logger       *log.Logger
}

// Coordinator keeps the terminal's ordered view of today's queue. All
// mutations are applied locally first and persisted in the background;
// a failed write is never rolled back, the next refresh reconciles it.
// Last writer wins across terminals, which a single clinic queue
// tolerates.
type Coordinator struct {
	service  Service
	snapshot *Snapshot
	logger   *log.Logger
	interval time.Duration

	mu       sync.Mutex
	entries  []models.QueueEntry
	stats    models.QueueStats
	source   string
	degraded bool
	// seq counts local mutations; a refresh started before the latest
	// mutation is discarded so a stale response cannot overwrite newer
	// local state.
	seq     uint64
	pending map[string]models.Status

	inflight  sync.WaitGroup
	refreshCh chan struct{}
}

func NewCoordinator(service Service, options Options) *Coordinator {
	interval := options.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	logger := options.Logger
	if logger == nil {
		logger = log.Default()
	}
	c := &Coordinator{
		service:   service,
		snapshot:  options.Snapshot,
		logger:    logger,
		interval:  interval,
		source:    models.SourceLive,
		pending:   make(map[string]models.Status),
		refreshCh: make(chan struct{}, 1),
	}
	if c.snapshot != nil {
		entries, ok, err := c.snapshot.Load()
		if err != nil {
			logger.Printf("queue snapshot load failed: %v", err)
		} else if ok {
			sortEntries(entries)
			c.entries = entries
			c.stats = models.StatsFor(entries)
			c.source = models.SourceCache
		}
	}
	return c
}

// Run polls the backend until the context ends. Failed writes schedule
// an extra reconciling refresh between ticks.
func (c *Coordinator) Run(ctx context.Context) {
	_ = c.Refresh(ctx)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-c.refreshCh:
		}
		_ = c.Refresh(ctx)
	}
}

// Flush waits for in-flight background persists.
func (c *Coordinator) Flush() {
	c.inflight.Wait()
}

// Refresh replaces the view with the backend's authoritative list. On a
// transient failure the previous view is kept so staff keep seeing the
// last known queue.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.mu.Lock()
	seq := c.seq
	c.mu.Unlock()

	list, err := c.service.ListEntries(ctx)
	if err != nil {
		c.logger.Printf("queue refresh failed: %v", err)
		return err
	}

	if isFallback(list) {
		c.logger.Printf("queue refresh returned fallback data (%d entries), purging cached state", len(list.Entries))
		c.purge(true)
		return nil
	}

	if stats, err := c.service.GetStats(ctx); err != nil {
		c.logger.Printf("queue stats fetch failed: %v", err)
	} else if derived := models.StatsFor(list.Entries); stats != derived {
		c.logger.Printf("queue stats drift: server=%+v derived=%+v", stats, derived)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seq != seq {
		c.logger.Printf("queue refresh discarded: view mutated during fetch")
		return nil
	}

	entries := append([]models.QueueEntry(nil), list.Entries...)
	// Writes still in flight have not necessarily been committed by the
	// backend; keep their optimistic statuses until the persist returns.
	for i := range entries {
		if status, ok := c.pending[entries[i].EntryID]; ok {
			entries[i].Status = status
		}
	}
	sortEntries(entries)
	c.entries = entries
	c.stats = models.StatsFor(entries)
	c.source = models.SourceLive
	c.degraded = false
	if c.snapshot != nil {
		if err := c.snapshot.Save(entries); err != nil {
			c.logger.Printf("queue snapshot save failed: %v", err)
		}
	}
	return nil
}

// CheckInWalkIn creates a walk-in entry. Nothing is mutated locally if
// the create fails; the returned entry carries the ticket number for
// immediate printing.
func (c *Coordinator) CheckInWalkIn(ctx context.Context, patientID, notes string) (models.QueueEntry, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return models.QueueEntry{}, ErrNoPatient
	}

	entry, err := c.service.AddEntry(ctx, AddEntryInput{
		RequestID: uuid.NewString(),
		PatientID: patientID,
		IsWalkIn:  true,
		Notes:     notes,
	})
	if err != nil {
		return models.QueueEntry{}, err
	}

	c.insert(entry)
	return entry, nil
}

type CheckInAppointmentInput struct {
	AppointmentID string
	PatientID     string
	Notes         string
}

// CheckInAppointment queues a booked appointment, rejecting ids that
// already appear among existing entries' appointment references.
func (c *Coordinator) CheckInAppointment(ctx context.Context, input CheckInAppointmentInput) (models.QueueEntry, error) {
	input.AppointmentID = strings.TrimSpace(input.AppointmentID)
	input.PatientID = strings.TrimSpace(input.PatientID)
	if input.PatientID == "" {
		return models.QueueEntry{}, ErrNoPatient
	}
	if input.AppointmentID == "" {
		return models.QueueEntry{}, ErrNoAppointment
	}

	c.mu.Lock()
	for _, entry := range c.entries {
		if entry.Appointment != nil && entry.Appointment.ID == input.AppointmentID {
			c.mu.Unlock()
			return models.QueueEntry{}, ErrAlreadyQueued
		}
	}
	c.mu.Unlock()

	entry, err := c.service.AddEntry(ctx, AddEntryInput{
		RequestID:     uuid.NewString(),
		PatientID:     input.PatientID,
		AppointmentID: input.AppointmentID,
		IsWalkIn:      false,
		Notes:         input.Notes,
	})
	if err != nil {
		return models.QueueEntry{}, err
	}

	c.insert(entry)
	return entry, nil
}

func (c *Coordinator) insert(entry models.QueueEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	for _, existing := range c.entries {
		if existing.EntryID == entry.EntryID {
			return
		}
	}
	c.entries = append(c.entries, entry)
	sortEntries(c.entries)
	c.stats = models.StatsFor(c.entries)
}

// UpdateStatus applies the new status immediately and persists it in
// the background; the caller never waits on the network round trip.
func (c *Coordinator) UpdateStatus(ctx context.Context, entryID string, status models.Status) error {
	c.mu.Lock()
	idx := c.indexOf(entryID)
	if idx < 0 {
		c.mu.Unlock()
		return ErrEntryNotFound
	}
	from := c.entries[idx].Status
	if !models.ValidTransition(from, status) {
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	c.entries[idx].Status = status
	sortEntries(c.entries)
	c.stats = models.StatsFor(c.entries)
	c.pending[entryID] = status
	c.seq++
	c.mu.Unlock()

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		persisted := status
		_, err := c.service.UpdateEntry(context.WithoutCancel(ctx), entryID, UpdateEntryInput{Status: &persisted})
		c.mu.Lock()
		if c.pending[entryID] == persisted {
			delete(c.pending, entryID)
		}
		c.mu.Unlock()
		if err != nil {
			c.logger.Printf("persist status %s for entry %s failed: %v", status, entryID, err)
			c.scheduleRefresh()
		}
	}()
	return nil
}

// Remove drops the entry from the view at once. The UI already shows
// the removal, so a failed delete is not rolled back; the next refresh
// reconciles.
func (c *Coordinator) Remove(ctx context.Context, entryID string) error {
	c.mu.Lock()
	idx := c.indexOf(entryID)
	if idx < 0 {
		c.mu.Unlock()
		return ErrEntryNotFound
	}
	c.entries = append(c.entries[:idx], c.entries[idx+1:]...)
	c.stats = models.StatsFor(c.entries)
	delete(c.pending, entryID)
	c.seq++
	c.mu.Unlock()

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		if err := c.service.RemoveEntry(context.WithoutCancel(ctx), entryID); err != nil {
			c.logger.Printf("remove entry %s failed: %v", entryID, err)
			c.scheduleRefresh()
		}
	}()
	return nil
}

// Reorder accepts a permutation of exactly the waiting subset. Entries
// in other status groups keep their relative order; an identity
// permutation is a no-op.
func (c *Coordinator) Reorder(ctx context.Context, orderedIDs []string) error {
	c.mu.Lock()
	current := waitingIDs(c.entries)
	if !samePermutation(current, orderedIDs) {
		c.mu.Unlock()
		return ErrReorderScope
	}
	if equalOrder(current, orderedIDs) {
		c.mu.Unlock()
		return nil
	}

	positions := make([]models.QueuePosition, len(orderedIDs))
	for i, id := range orderedIDs {
		positions[i] = models.QueuePosition{EntryID: id, Position: i + 1}
		if idx := c.indexOf(id); idx >= 0 {
			c.entries[idx].Position = i + 1
		}
	}
	sortEntries(c.entries)
	c.seq++
	c.mu.Unlock()

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		if err := c.service.Reorder(context.WithoutCancel(ctx), positions); err != nil {
			c.logger.Printf("reorder persist failed: %v", err)
			c.scheduleRefresh()
		}
	}()
	return nil
}

const (
	MoveUp   = "up"
	MoveDown = "down"
)

// MoveWaiting is the up/down-button reorder variant. It is expressed as
// a plain Reorder call so both UI styles share one implementation.
func (c *Coordinator) MoveWaiting(ctx context.Context, entryID, direction string) error {
	c.mu.Lock()
	ids := waitingIDs(c.entries)
	c.mu.Unlock()

	idx := -1
	for i, id := range ids {
		if id == entryID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrEntryNotFound
	}

	switch direction {
	case MoveUp:
		if idx == 0 {
			return nil
		}
		ids[idx-1], ids[idx] = ids[idx], ids[idx-1]
	case MoveDown:
		if idx == len(ids)-1 {
			return nil
		}
		ids[idx], ids[idx+1] = ids[idx+1], ids[idx]
	default:
		return ErrReorderScope
	}

	return c.Reorder(ctx, ids)
}

// ClearCompleted removes every completed entry. A second call with no
// completed entries left is a local no-op and makes no backend call.
func (c *Coordinator) ClearCompleted(ctx context.Context) error {
	c.mu.Lock()
	kept := c.entries[:0]
	removed := 0
	for _, entry := range c.entries {
		if entry.Status == models.StatusCompleted {
			removed++
			delete(c.pending, entry.EntryID)
			continue
		}
		kept = append(kept, entry)
	}
	if removed == 0 {
		c.mu.Unlock()
		return nil
	}
	c.entries = kept
	c.stats = models.StatsFor(c.entries)
	c.seq++
	c.mu.Unlock()

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		if _, err := c.service.ClearCompleted(context.WithoutCancel(ctx)); err != nil {
			c.logger.Printf("clear completed failed: %v", err)
			c.scheduleRefresh()
		}
	}()
	return nil
}

type View struct {
	Entries  []models.QueueEntry
	Stats    models.QueueStats
	Source   string
	Degraded bool
}

func (c *Coordinator) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return View{
		Entries:  append([]models.QueueEntry(nil), c.entries...),
		Stats:    c.stats,
		Source:   c.source,
		Degraded: c.degraded,
	}
}

// PurgeCache is the staff-facing one-click purge: drop the snapshot and
// any local state, then start over from the next refresh.
func (c *Coordinator) PurgeCache() {
	c.purge(false)
	c.scheduleRefresh()
}

func (c *Coordinator) purge(degraded bool) {
	if c.snapshot != nil {
		if err := c.snapshot.Purge(); err != nil {
			c.logger.Printf("queue snapshot purge failed: %v", err)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
	c.stats = models.QueueStats{}
	c.pending = make(map[string]models.Status)
	c.degraded = degraded
	if degraded {
		c.source = models.SourceCache
	} else {
		c.source = models.SourceLive
	}
	c.seq++
}

func (c *Coordinator) scheduleRefresh() {
	select {
	case c.refreshCh <- struct{}{}:
	default:
	}
}

func (c *Coordinator) indexOf(entryID string) int {
	for i, entry := range c.entries {
		if entry.EntryID == entryID {
			return i
		}
	}
	return -1
}

// isFallback detects a backend serving stale fallback data instead of
// the live queue. Backends that set the source flag are trusted; older
// ones are judged by the synthetic id prefixes their fallback generator
// used.
func isFallback(list models.QueueList) bool {
	if len(list.Entries) == 0 {
		return false
	}
	if list.Source != "" {
		return list.Source == models.SourceCache
	}
	for _, entry := range list.Entries {
		if syntheticID(entry.EntryID) {
			return true
		}
	}
	return false
}

func syntheticID(id string) bool {
	return strings.HasPrefix(id, "local-") || strings.HasPrefix(id, "fallback-")
}

func samePermutation(current, proposed []string) bool {
	if len(current) != len(proposed) {
		return false
	}
	seen := make(map[string]int, len(current))
	for _, id := range current {
		seen[id]++
	}
	for _, id := range proposed {
		if seen[id] == 0 {
			return false
		}
		seen[id]--
	}
	return true
}

func equalOrder(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
