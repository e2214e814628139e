package incident

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
	"github.com/synaptica-ai/genomics/pkg/common/models"
)

// EventType tags incident notifications on the alert topic.
const EventType = "genomic_incident"

// Notification is what an alerting sink receives for one incident.
type Notification struct {
	IncidentID       uint
	SourceJobRunID   *uint
	Code             string
	Message          string
	ManifestFileName string
}

// Sink delivers incident notifications to the alert channel.
type Sink interface {
	Notify(ctx context.Context, n Notification) error
}

// publisher is the part of kafka.Producer the sink needs.
type publisher interface {
	PublishEvent(ctx context.Context, key, eventType, source string, data map[string]interface{}) error
}

// KafkaSink publishes notifications on the incident topic, keyed by code so
// alerts of one kind stay ordered.
type KafkaSink struct {
	pub    publisher
	source string
}

func NewKafkaSink(pub publisher, source string) *KafkaSink {
	return &KafkaSink{pub: pub, source: source}
}

func (s *KafkaSink) Notify(ctx context.Context, n Notification) error {
	data := models.IncidentNotification{
		Slack:            true,
		SourceJobRunID:   n.SourceJobRunID,
		Code:             n.Code,
		Message:          n.Message,
		ManifestFileName: n.ManifestFileName,
	}.AsMap()
	data["incident_id"] = n.IncidentID
	if err := s.pub.PublishEvent(ctx, n.Code, EventType, s.source, data); err != nil {
		return fmt.Errorf("publish incident %d: %w", n.IncidentID, err)
	}
	return nil
}

// Gate decides whether a notification should go out. Allow returns false
// for a repeat inside the suppression window.
type Gate interface {
	Allow(ctx context.Context, n Notification) (bool, error)
}

type setNXer interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// RedisGate lets one notification per code and message through per TTL.
type RedisGate struct {
	client setNXer
	ttl    time.Duration
	prefix string
}

func NewRedisGate(client setNXer, ttl time.Duration) *RedisGate {
	return &RedisGate{client: client, ttl: ttl, prefix: "genomics:incident:alert:"}
}

func (g *RedisGate) Key(n Notification) string {
	return g.prefix + n.Code + ":" + strconv.FormatUint(xxhash.Sum64String(n.Message), 16)
}

func (g *RedisGate) Allow(ctx context.Context, n Notification) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.Key(n), n.IncidentID, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("alert gate: %w", err)
	}
	return ok, nil
}

// OpenGate allows every notification. Used when Redis is unavailable.
type OpenGate struct{}

func (OpenGate) Allow(context.Context, Notification) (bool, error) { return true, nil }
