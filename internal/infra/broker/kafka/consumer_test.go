package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	sarama.ConsumerGroupSession
	ctx context.Context

	mu     sync.Mutex
	marked []int64
}

func (s *fakeSession) Context() context.Context { return s.ctx }

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, msg.Offset)
}

func (s *fakeSession) offsets() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.marked...)
}

type fakeClaim struct {
	sarama.ConsumerGroupClaim
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func claimOf(offsets ...int64) *fakeClaim {
	ch := make(chan *sarama.ConsumerMessage, len(offsets))
	for _, o := range offsets {
		ch <- &sarama.ConsumerMessage{Topic: "venue.events", Partition: 0, Offset: o}
	}
	close(ch)
	return &fakeClaim{messages: ch}
}

// scriptedHandler fails the listed offsets a fixed number of times.
type scriptedHandler struct {
	mu       sync.Mutex
	failures map[int64]int
	err      error
	calls    []int64
}

func (h *scriptedHandler) Handle(_ context.Context, msg *sarama.ConsumerMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, msg.Offset)
	if h.failures[msg.Offset] > 0 {
		h.failures[msg.Offset]--
		return h.err
	}
	return nil
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestTransientFailureIsRetriedBeforeLaterOffsets(t *testing.T) {
	h := &scriptedHandler{failures: map[int64]int{10: 2}, err: errors.New("store unavailable")}
	group := consumerGroupHandler{handler: h, logger: quietLogger(), backoff: []time.Duration{time.Millisecond}}
	sess := &fakeSession{ctx: context.Background()}

	require.NoError(t, group.ConsumeClaim(sess, claimOf(10, 11)))

	assert.Equal(t, []int64{10, 11}, sess.offsets())
	assert.Equal(t, []int64{10, 10, 10, 11}, h.calls)
}

func TestPoisonMessageIsMarkedAndSkipped(t *testing.T) {
	h := &scriptedHandler{failures: map[int64]int{10: 1}, err: ErrPoisonMessage}
	group := consumerGroupHandler{handler: h, logger: quietLogger(), backoff: []time.Duration{time.Millisecond}}
	sess := &fakeSession{ctx: context.Background()}

	require.NoError(t, group.ConsumeClaim(sess, claimOf(10, 11)))

	assert.Equal(t, []int64{10, 11}, sess.offsets())
	assert.Equal(t, []int64{10, 11}, h.calls)
}

func TestSessionEndLeavesFailedOffsetUnmarked(t *testing.T) {
	h := &scriptedHandler{failures: map[int64]int{10: 1 << 30}, err: errors.New("store unavailable")}
	group := consumerGroupHandler{handler: h, logger: quietLogger(), backoff: []time.Duration{time.Millisecond}}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	sess := &fakeSession{ctx: ctx}

	require.NoError(t, group.ConsumeClaim(sess, claimOf(10, 11)))

	assert.Empty(t, sess.offsets())
	assert.NotContains(t, h.calls, int64(11))
}

func TestRetryAfterRepeatsLastBackoff(t *testing.T) {
	group := consumerGroupHandler{backoff: []time.Duration{time.Second, 5 * time.Second}}
	assert.Equal(t, time.Second, group.retryAfter(0))
	assert.Equal(t, 5*time.Second, group.retryAfter(1))
	assert.Equal(t, 5*time.Second, group.retryAfter(7))
	assert.Equal(t, time.Second, consumerGroupHandler{}.retryAfter(0))
}
