package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darmiel/fxrelay/internal/core"
)

// fakeBroker is a single-partition topic log shared by the fake reader and writer.
type fakeBroker struct {
	mu        sync.Mutex
	topics    map[string][]kafka.Message
	cursor    int
	committed []int64
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{topics: map[string][]kafka.Message{}}
}

type fakeReader struct {
	b     *fakeBroker
	topic string
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.b.mu.Lock()
	msgs := r.b.topics[r.topic]
	if r.b.cursor < len(msgs) {
		m := msgs[r.b.cursor]
		r.b.cursor++
		r.b.mu.Unlock()
		return m, nil
	}
	r.b.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	for _, m := range msgs {
		r.b.committed = append(r.b.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

type fakeWriter struct {
	b *fakeBroker

	// err fails every write while set
	err error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.b.mu.Lock()
	defer w.b.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	for _, m := range msgs {
		m.Offset = int64(len(w.b.topics[m.Topic]))
		w.b.topics[m.Topic] = append(w.b.topics[m.Topic], m)
	}
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func newFakeKafka(maxReceives int) (*Kafka, *fakeBroker, *fakeWriter) {
	b := newFakeBroker()
	w := &fakeWriter{b: b}
	cfg := KafkaConfig{Topic: "events", MaxReceives: maxReceives, RetryDelay: time.Minute}
	return newKafka(&fakeReader{b: b, topic: "events"}, w, cfg), b, w
}

func TestKafka_SendReceiveAck(t *testing.T) {
	ctx := context.Background()
	q, b, _ := newFakeKafka(0)

	require.NoError(t, q.Send(ctx, []byte("a")))
	require.NoError(t, q.Send(ctx, []byte("b")))

	msgs, err := q.Receive(ctx, 25)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "a", string(msgs[0].Body))
	assert.Equal(t, 1, msgs[0].ReceiveCount)
	assert.Equal(t, "events/0/1", msgs[1].ID)

	require.NoError(t, q.Ack(ctx, msgs...))
	assert.Equal(t, []int64{0, 1}, b.committed)
}

func TestKafka_NackAndDeadLetter(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	q, b, _ := newFakeKafka(2)
	q.now = func() time.Time { return now }

	require.NoError(t, q.Send(ctx, []byte("a")))

	msgs, err := q.Receive(ctx, 25)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.NoError(t, q.Nack(ctx, msgs[0]))

	// the republished copy is held back until the retry delay passed
	msgs, err = q.Receive(ctx, 25)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	now = now.Add(time.Minute)
	msgs, err = q.Receive(ctx, 25)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, 2, msgs[0].ReceiveCount)
	require.NoError(t, q.Nack(ctx, msgs[0]))

	// third delivery is dead-lettered
	now = now.Add(time.Minute)
	msgs, err = q.Receive(ctx, 25)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	dead := b.topics["events.dead"]
	require.Len(t, dead, 1)
	assert.Equal(t, "a", string(dead[0].Value))
	assert.Equal(t, 2, receiveCount(dead[0]))
	assert.Equal(t, []int64{0, 1, 2}, b.committed)
}

func TestKafka_FailedNackHoldsCommits(t *testing.T) {
	ctx := context.Background()
	q, b, w := newFakeKafka(0)

	require.NoError(t, q.Send(ctx, []byte("a")))
	require.NoError(t, q.Send(ctx, []byte("b")))
	require.NoError(t, q.Send(ctx, []byte("c")))

	msgs, err := q.Receive(ctx, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	w.err = errors.New("broker unavailable")
	require.Error(t, q.Nack(ctx, msgs[0]))
	w.err = nil

	// committing offset 1 would commit offset 0, which was never republished
	err = q.Ack(ctx, msgs[1])
	require.ErrorIs(t, err, ErrCommitHeld)
	assert.Empty(t, b.committed)

	rest, err := q.Receive(ctx, 25)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.ErrorIs(t, q.Ack(ctx, rest[0]), ErrCommitHeld)
	assert.Empty(t, b.committed)
	assert.Len(t, b.topics["events"], 3)
}

func TestKafka_FailedDeadLetterHoldsCommits(t *testing.T) {
	ctx := context.Background()
	q, b, w := newFakeKafka(1)

	require.NoError(t, q.Send(ctx, []byte("a")))
	msgs, err := q.Receive(ctx, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	q.retryDelay = time.Nanosecond
	require.NoError(t, q.Nack(ctx, msgs[0]))
	assert.Equal(t, []int64{0}, b.committed)
	require.NoError(t, q.Send(ctx, []byte("b")))

	// the republished copy at offset 1 is exhausted but cannot be dead-lettered
	time.Sleep(time.Millisecond)
	w.err = errors.New("broker unavailable")
	_, err = q.Receive(ctx, 25)
	require.Error(t, err)
	w.err = nil

	msgs, err = q.Receive(ctx, 25)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "b", string(msgs[0].Body))
	require.ErrorIs(t, q.Ack(ctx, msgs[0]), ErrCommitHeld)
	assert.Equal(t, []int64{0}, b.committed)
}

func TestKafka_ForeignMessage(t *testing.T) {
	q, _, _ := newFakeKafka(0)
	foreign := core.Message{ID: "x", Body: []byte("a")}

	require.Error(t, q.Ack(context.Background(), foreign))
	require.Error(t, q.Nack(context.Background(), foreign))
}

func TestReceiveCount(t *testing.T) {
	tests := []struct {
		name    string
		headers []kafka.Header
		want    int
	}{
		{name: "Missing", want: 0},
		{name: "Set", headers: []kafka.Header{{Key: receiveCountHeader, Value: []byte("3")}}, want: 3},
		{name: "Garbage", headers: []kafka.Header{{Key: receiveCountHeader, Value: []byte("x")}}, want: 0},
		{name: "Negative", headers: []kafka.Header{{Key: receiveCountHeader, Value: []byte("-2")}}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, receiveCount(kafka.Message{Headers: tt.headers}))
		})
	}
}

func TestNewKafka_RequiresBrokers(t *testing.T) {
	_, err := NewKafka(KafkaConfig{})
	require.Error(t, err)
}

func TestNotBefore(t *testing.T) {
	due := time.UnixMilli(1767225600000)
	assert.True(t, notBefore(kafka.Message{}).IsZero())
	assert.True(t, notBefore(kafka.Message{Headers: []kafka.Header{{Key: notBeforeHeader, Value: []byte("soon")}}}).IsZero())
	assert.True(t, due.Equal(notBefore(kafka.Message{Headers: []kafka.Header{{Key: notBeforeHeader, Value: []byte("1767225600000")}}})))
}
