package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRubricEventPublisherPublishesToRedis(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := client.Subscribe(ctx, "gema:rubric:metrics.reconciled")
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	publisher := NewRubricEventPublisher(client, nil, "gema:rubric", testLogger())
	require.NoError(t, publisher.PublishReconciled(ctx, MetricsReconciledEvent{ExamID: 4, Policy: "replace_all", Inserted: 3, Deleted: 2}))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var event MetricsReconciledEvent
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
	require.Equal(t, uint(4), event.ExamID)
	require.Equal(t, "replace_all", event.Policy)
	require.Equal(t, 2, event.Deleted)
	require.NotEmpty(t, event.Source)
	require.False(t, event.OccurredAt.IsZero())
}

func TestRubricEventPublisherReportsBrokerFailure(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr(), MaxRetries: -1})
	defer client.Close()
	mini.Close()

	publisher := NewRubricEventPublisher(client, nil, "gema:rubric", testLogger())
	require.Error(t, publisher.PublishReconciled(context.Background(), MetricsReconciledEvent{ExamID: 1}))
}

func TestRubricEventPublisherWithoutBrokers(t *testing.T) {
	publisher := NewRubricEventPublisher(nil, nil, "gema:rubric", testLogger())
	require.NoError(t, publisher.PublishReconciled(context.Background(), MetricsReconciledEvent{ExamID: 1}))
}
