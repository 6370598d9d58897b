package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-rubric-api/internal/observability"
)

const reconciledEventName = "metrics.reconciled"

// MetricsReconciledEvent announces a change to an exam's metrics.
type MetricsReconciledEvent struct {
	Source            string    `json:"source"`
	ExamID            uint      `json:"exam_id"`
	Policy            string    `json:"policy"`
	Token             string    `json:"token,omitempty"`
	Inserted          int       `json:"inserted"`
	Deleted           int       `json:"deleted"`
	SkippedDuplicates int       `json:"skipped_duplicates"`
	ActorID           uint      `json:"actor_id"`
	CorrelationID     string    `json:"correlation_id,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
}

// RubricEventPublisher fans reconciliation events out to the brokers.
type RubricEventPublisher interface {
	PublishReconciled(ctx context.Context, event MetricsReconciledEvent) error
}

type brokerEventPublisher struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	nodeID       string
	logger       zerolog.Logger
}

// NewRubricEventPublisher publishes to Redis pub/sub and NATS. Either client may be nil.
func NewRubricEventPublisher(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) RubricEventPublisher {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":" + reconciledEventName
		subject = strings.ReplaceAll(channelBase, ":", ".") + "." + reconciledEventName
	}

	return &brokerEventPublisher{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		nodeID:       uuid.NewString(),
		logger:       logger.With().Str("component", "rubric_events").Logger(),
	}
}

func (p *brokerEventPublisher) PublishReconciled(ctx context.Context, event MetricsReconciledEvent) error {
	event.Source = p.nodeID
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	var errs []error
	if p.redis != nil && p.redisChannel != "" {
		if err := p.redis.Publish(ctx, p.redisChannel, payload).Err(); err != nil {
			observability.EventPublishFailures().WithLabelValues("redis").Inc()
			errs = append(errs, err)
		}
	}

	if p.nats != nil && p.natsSubject != "" {
		if err := p.nats.Publish(p.natsSubject, payload); err != nil {
			observability.EventPublishFailures().WithLabelValues("nats").Inc()
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	p.logger.Debug().Uint("exam_id", event.ExamID).Str("policy", event.Policy).Msg("reconciliation event published")
	return nil
}
