package main

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/castaway-social/indexer/models"
)

const (
	EventCastAdd            = "CAST_ADD"
	EventCastRemove         = "CAST_REMOVE"
	EventReactionAdd        = "REACTION_ADD"
	EventReactionRemove     = "REACTION_REMOVE"
	EventLinkAdd            = "LINK_ADD"
	EventLinkRemove         = "LINK_REMOVE"
	EventVerificationAdd    = "VERIFICATION_ADD"
	EventVerificationRemove = "VERIFICATION_REMOVE"
	EventUserDataAdd        = "USER_DATA_ADD"
	EventUsernameProofAdd   = "USERNAME_PROOF_ADD"
)

// DomainEvent is the normalized event republished after each successful state
// transition. Exactly one payload field is set, matching Type. Remove events
// carry the pre-deletion record so subscribers can act on what was removed.
type DomainEvent struct {
	Type      string    `json:"type"`
	Fid       uint64    `json:"fid"`
	Timestamp time.Time `json:"timestamp"`

	Cast          *models.Cast          `json:"cast,omitempty"`
	Reaction      *models.CastReaction  `json:"reaction,omitempty"`
	URLReaction   *models.URLReaction   `json:"urlReaction,omitempty"`
	Link          *models.Link          `json:"link,omitempty"`
	Verification  *models.Verification  `json:"verification,omitempty"`
	UserData      *models.UserData      `json:"userData,omitempty"`
	UsernameProof *models.UsernameProof `json:"usernameProof,omitempty"`
}

// Publisher hands normalized events to downstream consumers. At-least-once;
// ordering across partitions is not guaranteed.
type Publisher interface {
	Publish(ctx context.Context, ev *DomainEvent, highPriority bool) error
}

var eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "domain_events_published",
	Help: "Domain events published downstream, by event type",
}, []string{"type"})

// RedisPublisher writes domain events onto redis streams, one for normal and
// one for high-priority traffic.
type RedisPublisher struct {
	rdb            *redis.Client
	stream         string
	priorityStream string
	maxLen         int64
}

func NewRedisPublisher(rdb *redis.Client, stream, priorityStream string) *RedisPublisher {
	return &RedisPublisher{
		rdb:            rdb,
		stream:         stream,
		priorityStream: priorityStream,
		maxLen:         10_000_000,
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, ev *DomainEvent, highPriority bool) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	stream := p.stream
	if highPriority {
		stream = p.priorityStream
	}

	if err := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{"event": b},
	}).Err(); err != nil {
		return err
	}

	eventsPublished.WithLabelValues(ev.Type).Inc()
	return nil
}
