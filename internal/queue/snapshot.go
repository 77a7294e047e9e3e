package queue

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/alvozedd/ClinicManagementSystem-sub003/internal/models"
)

const snapshotFile = "queue-snapshot.json"

// Snapshot persists the last live queue list so a restarted terminal
// can show something while the backend is unreachable. It is the state
// the poisoned-cache purge deletes.
type Snapshot struct {
	path string
}

func NewSnapshot(dir string) *Snapshot {
	return &Snapshot{path: filepath.Join(dir, snapshotFile)}
}

func (s *Snapshot) Load() ([]models.QueueEntry, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var entries []models.QueueEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, false, err
	}
	return entries, true, nil
}

func (s *Snapshot) Save(entries []models.QueueEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

func (s *Snapshot) Purge() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
