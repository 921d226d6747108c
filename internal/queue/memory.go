package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/darmiel/fxrelay/internal/core"
)

type MemoryConfig struct {
	VisibilityTimeout time.Duration `mapstructure:"visibility_timeout"`
	MaxReceives       int           `mapstructure:"max_receives"`

	// RetryDelay hides a negatively acknowledged message. Zero uses the visibility timeout.
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

type memoryItem struct {
	id             string
	body           []byte
	receives       int
	invisibleUntil time.Time
}

// Memory is an in-process queue. It only connects a gateway and a consumer running
// in the same process.
type Memory struct {
	visibility  time.Duration
	retryDelay  time.Duration
	maxReceives int
	now         func() time.Time

	mu     sync.Mutex
	items  []*memoryItem
	dead   [][]byte
	closed bool
}

var _ core.Queue = (*Memory)(nil)

func NewMemory(cfg MemoryConfig) *Memory {
	visibility, maxReceives := withDefaults(cfg.VisibilityTimeout, cfg.MaxReceives)
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = visibility
	}
	return &Memory{
		visibility:  visibility,
		retryDelay:  retryDelay,
		maxReceives: maxReceives,
		now:         time.Now,
	}
}

func (m *Memory) Send(_ context.Context, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.items = append(m.items, &memoryItem{
		id:   uuid.NewString(),
		body: append([]byte(nil), body...),
	})
	return nil
}

func (m *Memory) Receive(_ context.Context, max int) ([]core.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}

	if max <= 0 {
		max = 1
	}
	now := m.now()
	var out []core.Message
	kept := m.items[:0]
	for _, item := range m.items {
		if len(out) >= max || now.Before(item.invisibleUntil) {
			kept = append(kept, item)
			continue
		}
		item.receives++
		if exhausted(item.receives, m.maxReceives) {
			m.dead = append(m.dead, item.body)
			continue
		}
		item.invisibleUntil = now.Add(m.visibility)
		kept = append(kept, item)
		out = append(out, core.Message{
			ID:           item.id,
			Body:         item.body,
			ReceiveCount: item.receives,
		})
	}
	m.items = kept
	return out, nil
}

func (m *Memory) Ack(_ context.Context, msgs ...core.Message) error {
	ids := make(map[string]struct{}, len(msgs))
	for _, msg := range msgs {
		ids[msg.ID] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.items[:0]
	for _, item := range m.items {
		if _, ok := ids[item.id]; !ok {
			kept = append(kept, item)
		}
	}
	m.items = kept
	return nil
}

// Nack makes the message visible again after the retry delay.
func (m *Memory) Nack(_ context.Context, msg core.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.id == msg.ID {
			item.invisibleUntil = m.now().Add(m.retryDelay)
			break
		}
	}
	return nil
}

// Len returns the number of messages not yet acknowledged.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Dead returns the bodies of dead-lettered messages.
func (m *Memory) Dead() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.dead...)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
