package history

import (
	"fmt"
)

// DefaultKeepCount is the default number of entries to retain.
const DefaultKeepCount = 50

// PruneResult contains information about what was pruned.
type PruneResult struct {
	Deleted Entries `json:"deleted" yaml:"deleted"`
	Kept    int     `json:"kept" yaml:"kept"`
}

func (r PruneResult) String() string {
	return fmt.Sprintf("pruned %d entries, kept %d", len(r.Deleted), r.Kept)
}

// Prune removes old entries, keeping only the most recent keep entries.
func (m *Manager) Prune(keep int) (*PruneResult, error) {
	if keep < 0 {
		return nil, fmt.Errorf("keep count must be non-negative")
	}

	entries, err := m.List()
	if err != nil {
		return nil, err
	}

	result := &PruneResult{Deleted: Entries{}}

	// Entries are already sorted newest first
	if len(entries) <= keep {
		result.Kept = len(entries)
		return result, nil
	}

	result.Kept = keep
	for _, e := range entries[keep:] {
		if err := m.Delete(e.ID); err != nil {
			return nil, fmt.Errorf("failed to delete history entry %s: %w", e.ID, err)
		}
		result.Deleted = append(result.Deleted, e)
	}

	return result, nil
}
