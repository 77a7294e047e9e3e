package queue

import (
	"sort"

	"github.com/alvozedd/ClinicManagementSystem-sub003/internal/models"
)

// sortEntries applies the canonical visible order: status priority
// first, then manual position within the group, then ticket number.
// Position defaults to the ticket number at creation, so an untouched
// queue is plain ticket order.
func sortEntries(entries []models.QueueEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Status.Priority() != b.Status.Priority() {
			return a.Status.Priority() < b.Status.Priority()
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.TicketNumber < b.TicketNumber
	})
}

func waitingIDs(entries []models.QueueEntry) []string {
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Status == models.StatusWaiting {
			ids = append(ids, entry.EntryID)
		}
	}
	return ids
}
