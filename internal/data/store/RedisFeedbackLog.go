package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rodrigocampos/knowledge-base-rag/internal/config"
	"github.com/rodrigocampos/knowledge-base-rag/internal/data/redisStore"
	"github.com/rodrigocampos/knowledge-base-rag/pkg/logger_i"
)

// RedisFeedbackLog keeps an audit trail of every feedback directive that
// was applied to the answer manifest, newest last.
type RedisFeedbackLog struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

type feedbackEntry struct {
	Directive string    `json:"directive"`
	AppliedAt time.Time `json:"applied_at"`
}

func GetRedisFeedbackLog(ctx context.Context) *RedisFeedbackLog {
	backing := redisStore.GetRedisStore(ctx, config.RedisFeedbackLog)
	if backing == nil {
		return nil
	}
	return &RedisFeedbackLog{
		store:  backing,
		logger: logger_i.NewLogger("FeedbackLog"),
	}
}

func (s *RedisFeedbackLog) AppendFeedback(ctx context.Context, directive string) error {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	data, err := json.Marshal(feedbackEntry{Directive: directive, AppliedAt: time.Now().UTC()})
	if err != nil {
		return err
	}

	if err := s.store.ListPush(ctx, config.FeedbackLogKey, data); err != nil {
		log.Error("error recording feedback", "error", err)
		return err
	}
	if err := s.store.Expire(ctx, config.FeedbackLogKey, config.RedisFeedbackLogTTL); err != nil {
		log.Error("error refreshing feedback log ttl", "error", err)
	}
	log.Debug("Recorded feedback directive")
	return nil
}

// RecentFeedback returns up to limit directives, oldest first.
func (s *RedisFeedbackLog) RecentFeedback(ctx context.Context, limit int) ([]string, error) {
	raw, err := s.store.ListTail(ctx, config.FeedbackLogKey, int64(limit))
	if err != nil {
		s.logger.Error("error reading feedback log", "error", err)
		return nil, err
	}

	directives := make([]string, 0, len(raw))
	for _, item := range raw {
		var entry feedbackEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			s.logger.Error("skipping malformed feedback entry", "error", err)
			continue
		}
		directives = append(directives, entry.Directive)
	}
	return directives, nil
}

func TestFeedbackLog(store *redisStore.Store) *RedisFeedbackLog {
	return &RedisFeedbackLog{
		store:  store,
		logger: logger_i.NewLogger("test feedback log"),
	}
}
