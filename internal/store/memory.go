package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"tripplanner/internal/domain"
	"tripplanner/internal/models"
)

type record map[string]any

// MemoryStore is an in-process record store with the same filter and
// id semantics as the HTTP backend. Filters match on the string form of
// a field, so "7" matches both 7 and "7".
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]record
	nextID      map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string][]record),
		nextID:      make(map[string]int64),
	}
}

// Seed appends records to a collection, assigning ids to records without one.
func (s *MemoryStore) Seed(collection string, records any) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return err
	}
	var rows []record
	if err := json.Unmarshal(raw, &rows); err != nil {
		return fmt.Errorf("seed %s: %w", collection, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		s.insertLocked(collection, row)
	}
	return nil
}

func (s *MemoryStore) Fetch(_ context.Context, collection string, filter domain.Filter, out any) error {
	s.mu.RLock()
	matches := make([]record, 0)
	for _, row := range s.collections[collection] {
		if matchesFilter(row, filter) {
			matches = append(matches, row)
		}
	}
	raw, err := json.Marshal(matches)
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (s *MemoryStore) Create(_ context.Context, collection string, rec any, out any) error {
	row, err := toRecord(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	stored := s.insertLocked(collection, row)
	raw, err := json.Marshal(stored)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return decodeOptional(raw, out)
}

func (s *MemoryStore) Update(_ context.Context, collection string, id models.ID, patch any, out any) error {
	changes, err := toRecord(patch)
	if err != nil {
		return err
	}

	s.mu.Lock()
	idx := s.indexLocked(collection, id)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s/%s", domain.ErrNotFound, collection, id)
	}
	row := s.collections[collection][idx]
	for k, v := range changes {
		if k == "id" {
			continue
		}
		row[k] = v
	}
	raw, err := json.Marshal(row)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return decodeOptional(raw, out)
}

func (s *MemoryStore) Delete(_ context.Context, collection string, id models.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(collection, id)
	if idx < 0 {
		return fmt.Errorf("%w: %s/%s", domain.ErrNotFound, collection, id)
	}
	rows := s.collections[collection]
	s.collections[collection] = append(rows[:idx], rows[idx+1:]...)
	return nil
}

// Len returns the number of records in collection.
func (s *MemoryStore) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

func (s *MemoryStore) insertLocked(collection string, row record) record {
	id, err := models.ParseID(fieldString(row["id"]))
	if err != nil || id == 0 {
		s.nextID[collection]++
		id = models.ID(s.nextID[collection])
	} else if int64(id) > s.nextID[collection] {
		s.nextID[collection] = int64(id)
	}
	row["id"] = int64(id)
	s.collections[collection] = append(s.collections[collection], row)
	return row
}

func (s *MemoryStore) indexLocked(collection string, id models.ID) int {
	for i, row := range s.collections[collection] {
		if fieldString(row["id"]) == id.String() {
			return i
		}
	}
	return -1
}

func matchesFilter(row record, filter domain.Filter) bool {
	for k, want := range filter {
		if fieldString(row[k]) != want {
			return false
		}
	}
	return true
}

func fieldString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

func toRecord(v any) (record, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var row record
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, fmt.Errorf("record must be a JSON object: %w", err)
	}
	if row == nil {
		row = record{}
	}
	return row, nil
}
