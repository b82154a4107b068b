//go:build integration

package publisher_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"croptrace/pkg/platform/eventlog"
	"croptrace/pkg/platform/eventlog/publisher"
	"croptrace/pkg/testutil/containers"
)

func TestKafkaPublishConsumeRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	redpanda := containers.NewRedpandaContainer(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	const topic = "croptrace.custody.events.test"

	pub, err := publisher.New(ctx, redpanda.Brokers, topic, logger)
	require.NoError(t, err)
	defer pub.Close()

	event := eventlog.UnitMinted(3, "lot 9", "farmer-alba", time.Now().UTC(), "req-1")
	event.Seq = 1
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	require.NoError(t, pub.Publish(ctx, "3", payload))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(redpanda.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "3", string(records[0].Key))

	var got eventlog.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.Equal(t, eventlog.KindUnitMinted, got.Kind)
	assert.Equal(t, event.Seq, got.Seq)
}
