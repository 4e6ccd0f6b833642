// Package store provides in-memory implementations of the collaborator
// contracts in generic, for tests and tools that run without a database.
package store

import (
	"context"
	"sync"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements generic.LedgerStore, generic.HistoryLog and
// generic.Notifier. Setting Err makes every write fail with it.
type Memory struct {
	mu            sync.RWMutex
	entries       map[key][]generic.LedgerEntry
	history       map[string][]generic.HistoryEntry
	notifications []generic.Notification

	Err error
}

type key struct {
	OfficerID string
	Year      int
}

var (
	_ generic.LedgerStore = (*Memory)(nil)
	_ generic.HistoryLog  = (*Memory)(nil)
	_ generic.Notifier    = (*Memory)(nil)
)

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[key][]generic.LedgerEntry),
		history: make(map[string][]generic.HistoryEntry),
	}
}

// AppendEntry adds a single ledger entry. Append-only.
func (m *Memory) AppendEntry(_ context.Context, e generic.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	k := key{OfficerID: e.OfficerID, Year: e.Year}
	m.entries[k] = append(m.entries[k], e)
	return nil
}

// Entries returns the entries for officer+year in insertion order.
func (m *Memory) Entries(_ context.Context, officerID string, year int) ([]generic.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.entries[key{OfficerID: officerID, Year: year}]
	out := make([]generic.LedgerEntry, len(src))
	copy(out, src)
	return out, nil
}

func (m *Memory) Record(_ context.Context, h generic.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.history[h.SubjectID] = append(m.history[h.SubjectID], h)
	return nil
}

func (m *Memory) History(_ context.Context, subjectID string) ([]generic.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.history[subjectID]
	out := make([]generic.HistoryEntry, len(src))
	copy(out, src)
	return out, nil
}

func (m *Memory) Notify(_ context.Context, n generic.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.notifications = append(m.notifications, n)
	return nil
}

// Sent returns the notifications delivered to userID, oldest first.
// An empty userID returns all of them.
func (m *Memory) Sent(userID string) []generic.Notification {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []generic.Notification
	for _, n := range m.notifications {
		if userID == "" || n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}
