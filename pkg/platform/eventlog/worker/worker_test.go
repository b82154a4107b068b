package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"croptrace/pkg/platform/eventlog"
)

type capturingPublisher struct {
	mu       sync.Mutex
	payloads [][]byte
	keys     []string
	fail     bool
}

func (p *capturingPublisher) Publish(_ context.Context, key string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.keys = append(p.keys, key)
	p.payloads = append(p.payloads, payload)
	return nil
}

func (p *capturingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.payloads)
}

func TestStreamRelayForwardsEvents(t *testing.T) {
	log := eventlog.NewLog()
	pub := &capturingPublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	relay := NewStreamRelay(log, pub, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = relay.Run(ctx)
	}()

	// Give the relay time to subscribe before appending.
	time.Sleep(20 * time.Millisecond)

	appended, err := log.Append(ctx, eventlog.UnitMinted(3, "lot 9", "farmer-alba", time.Now(), "req-1"))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return pub.count() == 1 },
		time.Second, 10*time.Millisecond)

	var got eventlog.Event
	require.NoError(t, json.Unmarshal(pub.payloads[0], &got))
	assert.Equal(t, appended.Seq, got.Seq)
	assert.Equal(t, eventlog.KindUnitMinted, got.Kind)
	assert.Equal(t, "3", pub.keys[0])

	cancel()
	<-done
}

func TestStreamRelaySkipsFailedPublishes(t *testing.T) {
	log := eventlog.NewLog()
	pub := &capturingPublisher{fail: true}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	relay := NewStreamRelay(log, pub, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = relay.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	_, err := log.Append(ctx, eventlog.UnitMinted(1, "", "farmer-alba", time.Now(), ""))
	require.NoError(t, err)

	// The relay must keep running after a failure.
	time.Sleep(50 * time.Millisecond)
	pub.mu.Lock()
	pub.fail = false
	pub.mu.Unlock()

	_, err = log.Append(ctx, eventlog.UnitMinted(2, "", "farmer-alba", time.Now(), ""))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return pub.count() == 1 },
		time.Second, 10*time.Millisecond)
}
