package workflow

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

// Store holds run traces keyed by workflow id. It is safe for concurrent use
// by distinct workflows; writes to a given id come only from the single
// execution owning it. Retention is capacity-bounded: least-recently-used
// terminal runs are evicted first once the store is full.
type Store struct {
	mu       sync.RWMutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
}

type storeEntry struct {
	id  string
	run *Run
}

// NewStore creates a store retaining at most capacity runs. A non-positive
// capacity falls back to a default of 1024.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Store{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Begin registers a new run for the workflow id with an initial "started"
// step. It fails if a non-terminal run already exists for the id: the ticket
// creation step is not idempotent, so the id doubles as a dedup key. A
// terminal run for the same id is replaced.
func (s *Store) Begin(id string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.entries[id]; ok {
		existing := elem.Value.(*storeEntry).run
		if !existing.Status.Terminal() {
			return nil, fmt.Errorf("workflow %s is already running", id)
		}
		s.order.Remove(elem)
		delete(s.entries, id)
	}

	now := time.Now().UTC()
	run := &Run{
		ID:        id,
		Status:    StatusStarted,
		StartedAt: now,
		Steps:     []StepRecord{{Status: StatusStarted, Timestamp: now}},
	}

	s.insert(id, run)
	return run, nil
}

// Append records a step transition for the run. Appends to a terminal run
// are rejected.
func (s *Store) Append(id string, status Status, data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("workflow %s not found", id)
	}
	run := elem.Value.(*storeEntry).run
	if run.Status.Terminal() {
		return fmt.Errorf("workflow %s is already %s", id, run.Status)
	}

	run.Steps = append(run.Steps, StepRecord{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Data:      copyData(data),
	})
	run.Status = status
	s.order.MoveToFront(elem)
	return nil
}

// Get returns a snapshot of the run, or nil if unknown. The snapshot is
// isolated: later appends do not mutate it, and reading never mutates the
// stored trace.
func (s *Store) Get(id string) *Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	elem, ok := s.entries[id]
	if !ok {
		return nil
	}
	return snapshot(elem.Value.(*storeEntry).run)
}

// Len returns the number of retained runs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// insert adds a run, evicting if over capacity. Eviction prefers the
// least-recently-used terminal run; an in-flight run is evicted only when
// every retained run is in flight.
func (s *Store) insert(id string, run *Run) {
	for len(s.entries) >= s.capacity {
		victim := s.evictionVictim()
		if victim == nil {
			break
		}
		entry := victim.Value.(*storeEntry)
		s.order.Remove(victim)
		delete(s.entries, entry.id)
	}

	elem := s.order.PushFront(&storeEntry{id: id, run: run})
	s.entries[id] = elem
}

func (s *Store) evictionVictim() *list.Element {
	for elem := s.order.Back(); elem != nil; elem = elem.Prev() {
		if elem.Value.(*storeEntry).run.Status.Terminal() {
			return elem
		}
	}
	return s.order.Back()
}

func snapshot(run *Run) *Run {
	out := &Run{
		ID:        run.ID,
		Status:    run.Status,
		StartedAt: run.StartedAt,
		Steps:     make([]StepRecord, len(run.Steps)),
	}
	for i, step := range run.Steps {
		out.Steps[i] = StepRecord{
			Status:    step.Status,
			Timestamp: step.Timestamp,
			Data:      copyData(step.Data),
		}
	}
	return out
}

func copyData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
