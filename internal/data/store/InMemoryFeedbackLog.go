package store

import (
	"context"
	"sync"
)

// InMemoryFeedbackLog is the fallback audit trail when Redis is offline.
// Entries do not survive a restart.
type InMemoryFeedbackLog struct {
	mu         *sync.RWMutex
	directives []string
}

func InitInMemoryFeedbackLog() *InMemoryFeedbackLog {
	return &InMemoryFeedbackLog{
		mu: new(sync.RWMutex),
	}
}

func (l *InMemoryFeedbackLog) AppendFeedback(ctx context.Context, directive string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.directives = append(l.directives, directive)
	return nil
}

func (l *InMemoryFeedbackLog) RecentFeedback(ctx context.Context, limit int) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if limit <= 0 || len(l.directives) == 0 {
		return []string{}, nil
	}
	start := len(l.directives) - limit
	if start < 0 {
		start = 0
	}
	out := make([]string, len(l.directives)-start)
	copy(out, l.directives[start:])
	return out, nil
}
