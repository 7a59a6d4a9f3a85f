package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// SeenStore is file-based bookkeeping of processed message IDs so reruns
// do not insert the same events twice.
type SeenStore struct {
	path string
	ids  map[string]bool
}

// NewSeenStore creates a store backed by the JSON file at path.
func NewSeenStore(path string) *SeenStore {
	return &SeenStore{path: path, ids: make(map[string]bool)}
}

// Load reads the store from disk. A missing file is not an error, it just
// means nothing has been processed yet.
func (s *SeenStore) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read seen file: %w", err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return fmt.Errorf("failed to parse seen file: %w", err)
	}
	for _, id := range ids {
		s.ids[id] = true
	}
	return nil
}

// Seen reports whether the message ID was already processed.
func (s *SeenStore) Seen(id string) bool {
	return s.ids[id]
}

// Mark records the message ID and persists the store.
func (s *SeenStore) Mark(id string) error {
	s.ids[id] = true

	ids := make([]string, 0, len(s.ids))
	for k := range s.ids {
		ids = append(ids, k)
	}
	sort.Strings(ids)

	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to marshal seen file: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write seen file: %w", err)
	}
	return nil
}
