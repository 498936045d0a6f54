package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Event types published after pipeline transitions.
const (
	EventShortlisted        = "application.shortlisted"
	EventLetterGenerated    = "application.letter_generated"
	EventStatusChanged      = "application.status_changed"
	EventInterviewScheduled = "application.interview_scheduled"
)

const defaultChannelPrefix = "applyflow"

// Event is the JSON message sent to subscribers.
type Event struct {
	Type           string    `json:"type"`
	ApplicationID  string    `json:"application_id"`
	PostingID      string    `json:"posting_id"`
	CandidateID    string    `json:"candidate_id"`
	TenantID       string    `json:"tenant_id,omitempty"`
	JobTitle       string    `json:"job_title,omitempty"`
	Status         string    `json:"status,omitempty"`
	MatchScore     int       `json:"match_score"`
	SchedulingLink string    `json:"scheduling_link,omitempty"`
	CorrelationID  string    `json:"correlation_id,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Publisher sends events over Redis pub/sub, one channel per candidate.
type Publisher struct {
	client publisher
	prefix string
	logger *zap.Logger
	now    func() time.Time
}

// NewPublisher returns a Publisher using client. An empty prefix defaults to
// "applyflow".
func NewPublisher(client *redis.Client, prefix string, logger *zap.Logger) *Publisher {
	return newPublisher(client, prefix, logger)
}

func newPublisher(client publisher, prefix string, logger *zap.Logger) *Publisher {
	prefix = strings.Trim(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = defaultChannelPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{client: client, prefix: prefix, logger: logger, now: time.Now}
}

// Channel returns the channel an event is published on.
func (p *Publisher) Channel(evt Event) string {
	return fmt.Sprintf("%s:candidate:%s", p.prefix, evt.CandidateID)
}

func (p *Publisher) Publish(ctx context.Context, evt Event) error {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = p.now().UTC()
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", evt.Type, err)
	}

	channel := p.Channel(evt)
	receivers, err := p.client.Publish(ctx, channel, payload).Result()
	if err != nil {
		return fmt.Errorf("publish %s event: %w", evt.Type, err)
	}

	p.logger.Debug("published pipeline event",
		zap.String("event", evt.Type),
		zap.String("channel", channel),
		zap.Int64("receivers", receivers),
	)
	return nil
}

// Nop drops every event. Used when Redis is disabled.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
