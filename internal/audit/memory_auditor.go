package audit

import (
	"sync"

	"github.com/darmiel/fxrelay/internal/core"
)

var _ core.Auditor = (*InMemoryAuditor)(nil)

// InMemoryAuditor keeps the most recent audit entries in memory.
type InMemoryAuditor struct {
	mu         sync.Mutex
	entries    []core.AuditEntry
	maxEntries int
}

func NewInMemoryAuditor(maxEntries int) *InMemoryAuditor {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &InMemoryAuditor{
		entries:    make([]core.AuditEntry, 0),
		maxEntries: maxEntries,
	}
}

func (i *InMemoryAuditor) Log(entry core.AuditEntry) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.entries = append(i.entries, entry)
	if over := len(i.entries) - i.maxEntries; over > 0 {
		i.entries = append(i.entries[:0:0], i.entries[over:]...)
	}
	return nil
}

func (i *InMemoryAuditor) GetRecent(limit int) []core.AuditEntry {
	i.mu.Lock()
	defer i.mu.Unlock()

	if limit > len(i.entries) || limit <= 0 {
		limit = len(i.entries)
	}
	start := len(i.entries) - limit
	entries := make([]core.AuditEntry, limit)
	copy(entries, i.entries[start:])
	return entries
}

func (i *InMemoryAuditor) Find(filter func(entry core.AuditEntry) bool) []core.AuditEntry {
	i.mu.Lock()
	defer i.mu.Unlock()

	var matches []core.AuditEntry
	for _, entry := range i.entries {
		if filter(entry) {
			matches = append(matches, entry)
		}
	}
	return matches
}

func (i *InMemoryAuditor) Close() error {
	return nil // nothing to close :)
}
