package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xhad/glance/internal/models"
)

// Memory keeps history in insertion order in process memory. Used when no
// database is configured; entries vanish on restart.
type Memory struct {
	mu      sync.RWMutex
	entries []models.Entry
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Add(ctx context.Context, entry models.Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

// List returns entries newest first. A limit of 0 returns everything.
func (m *Memory) List(ctx context.Context, limit int) ([]models.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 || limit > len(m.entries) {
		limit = len(m.entries)
	}

	out := make([]models.Entry, 0, limit)
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

func (m *Memory) Close() {}
