package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/srgjo27/ticket_admission/internal/core/domain"
	"github.com/srgjo27/ticket_admission/internal/core/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func sampleOffer() domain.OfferIssued {
	return domain.OfferIssued{
		EntryID:   uuid.New(),
		EventID:   uuid.New(),
		UserID:    "user-a",
		Quantity:  2,
		ExpiresAt: time.Date(2026, 3, 1, 12, 15, 0, 0, time.UTC),
		At:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestKafkaNotifier_KeysByEntry(t *testing.T) {
	writer := &recordingWriter{}
	n := &KafkaNotifier{writer: writer}
	offer := sampleOffer()

	require.NoError(t, n.Notify(context.Background(), offer))
	require.Len(t, writer.msgs, 1)

	msg := writer.msgs[0]
	assert.Equal(t, offer.EntryID.String(), string(msg.Key))
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, "offer.issued", string(msg.Headers[0].Value))

	var decoded struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "offer.issued", decoded.Type)
	assert.Equal(t, "2026-03-01T12:15:00Z", decoded.Payload["expiresAt"])
	assert.Equal(t, float64(2), decoded.Payload["quantity"])
}

func TestPubNubNotifier_PublishesToUserChannel(t *testing.T) {
	var channel string
	var message any
	n := &PubNubNotifier{publish: func(ch string, msg any) error {
		channel, message = ch, msg
		return nil
	}}

	require.NoError(t, n.Notify(context.Background(), domain.OfferExpired{EntryID: uuid.New(), UserID: "42"}))

	assert.Equal(t, "user-42", channel)
	body, ok := message.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, domain.EventOfferExpired, body["type"])
}

func TestFanout_DeliversToAllSinks(t *testing.T) {
	failing := mocks.NewNotifier(t)
	healthy := mocks.NewNotifier(t)
	offer := sampleOffer()

	failing.On("Notify", mock.Anything, offer).Return(errors.New("broker down")).Once()
	healthy.On("Notify", mock.Anything, offer).Return(nil).Once()

	err := NewFanout(Sink{Name: "kafka", Notifier: failing}, Sink{Name: "pubnub", Notifier: healthy}).
		Notify(context.Background(), offer)

	assert.ErrorContains(t, err, "kafka: broker down")
}

func TestBreaker_TripsAndRecovers(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b := NewBreaker(2, time.Minute)
	b.now = func() time.Time { return now }

	boom := errors.New("boom")
	assert.ErrorIs(t, b.Execute(func() error { return boom }), boom)
	assert.Equal(t, BreakerClosed, b.State())
	assert.ErrorIs(t, b.Execute(func() error { return boom }), boom)
	assert.Equal(t, BreakerOpen, b.State())

	called := false
	assert.ErrorIs(t, b.Execute(func() error { called = true; return nil }), ErrBreakerOpen)
	assert.False(t, called)

	now = now.Add(time.Minute)
	assert.Equal(t, BreakerHalfOpen, b.State())
	assert.ErrorIs(t, b.Execute(func() error { return boom }), boom)
	assert.Equal(t, BreakerOpen, b.State(), "failed trial call reopens")

	now = now.Add(time.Minute)
	assert.NoError(t, b.Execute(func() error { return nil }))
	assert.Equal(t, BreakerClosed, b.State())
}

func TestAsync_DeliversInBackground(t *testing.T) {
	next := mocks.NewNotifier(t)
	offer := sampleOffer()
	next.On("Notify", mock.Anything, offer).Return(nil).Once()

	a := NewAsync(next, NewBreaker(3, time.Minute), 4, 1, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, a.Notify(context.Background(), offer))
	a.Close()
}

func TestAsync_RejectsWhenQueueFull(t *testing.T) {
	block := make(chan struct{})
	next := mocks.NewNotifier(t)
	next.On("Notify", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-block }).
		Return(nil)

	a := NewAsync(next, NewBreaker(3, time.Minute), 1, 1, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx := context.Background()
	require.NoError(t, a.Notify(ctx, sampleOffer()))

	// The worker holds the first event; one more fits the buffer.
	require.Eventually(t, func() bool { return a.Notify(ctx, sampleOffer()) == nil }, time.Second, time.Millisecond)
	assert.ErrorIs(t, a.Notify(ctx, sampleOffer()), ErrQueueFull)

	close(block)
	a.Close()
}

func TestAsync_NotifyAfterClose(t *testing.T) {
	next := mocks.NewNotifier(t)
	a := NewAsync(next, NewBreaker(3, time.Minute), 4, 1, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	a.Close()

	assert.NotPanics(t, func() {
		assert.ErrorIs(t, a.Notify(context.Background(), sampleOffer()), ErrClosed)
	})
	a.Close()
}
