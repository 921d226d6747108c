package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/darmiel/fxrelay/internal/core"
	"github.com/darmiel/fxrelay/internal/logging"
)

const (
	DefaultKafkaTopic   = "fxrelay-events"
	DefaultKafkaGroupID = "fxrelay"

	// receiveCountHeader counts deliveries across republished copies of a message.
	receiveCountHeader = "fxrelay-receive-count"

	// notBeforeHeader holds the unix milliseconds before which a republished copy is not delivered.
	notBeforeHeader = "fxrelay-not-before"
)

// ErrCommitHeld is returned when offsets were not committed because an earlier offset of
// the same partition could not be settled. They are delivered again after a restart.
var ErrCommitHeld = errors.New("commit held back behind an unsettled offset")

type KafkaConfig struct {
	Brokers     []string      `mapstructure:"brokers"`
	Topic       string        `mapstructure:"topic"`
	GroupID     string        `mapstructure:"group_id"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
	MaxReceives int           `mapstructure:"max_receives"`

	// RetryDelay postpones the redelivery of a negatively acknowledged message.
	// Zero uses the default visibility timeout.
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

type kafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka is a queue on a kafka topic. Kafka has no per-message redelivery, so a negatively
// acknowledged message is republished with an increased receive count and a not-before
// time, and its offset is committed. A fetched copy that is not due yet is held back and
// blocks the reader until it is. Exhausted messages are published to "<topic>.dead".
//
// Committing an offset commits every lower offset of its partition. If a message can
// neither be republished nor dead-lettered, no offset at or past it is committed again by
// this process.
type Kafka struct {
	reader      kafkaReader
	writer      kafkaWriter
	topic       string
	dead        string
	pollTimeout time.Duration
	retryDelay  time.Duration
	maxReceives int
	now         func() time.Time

	recvMu  sync.Mutex
	delayed *kafka.Message

	mu   sync.Mutex
	held map[int]int64 // partition -> lowest unsettled offset
}

var _ core.Queue = (*Kafka)(nil)

func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka queue requires at least one broker")
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultKafkaTopic
	}
	if cfg.GroupID == "" {
		cfg.GroupID = DefaultKafkaGroupID
	}

	zlog := log.With().Str("queue", "kafka").Logger()
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
		Logger:      logging.NewPrintfLogger(zlog, zerolog.DebugLevel),
		ErrorLogger: logging.NewPrintfLogger(zlog, zerolog.ErrorLevel),
	})
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		RequiredAcks: kafka.RequireAll,
		Balancer:     &kafka.Hash{},
		ErrorLogger:  logging.NewPrintfLogger(zlog, zerolog.ErrorLevel),
	}
	return newKafka(reader, writer, cfg), nil
}

func newKafka(reader kafkaReader, writer kafkaWriter, cfg KafkaConfig) *Kafka {
	if cfg.Topic == "" {
		cfg.Topic = DefaultKafkaTopic
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 250 * time.Millisecond
	}
	retryDelay, maxReceives := withDefaults(cfg.RetryDelay, cfg.MaxReceives)
	return &Kafka{
		reader:      reader,
		writer:      writer,
		topic:       cfg.Topic,
		dead:        cfg.Topic + ".dead",
		pollTimeout: cfg.PollTimeout,
		retryDelay:  retryDelay,
		maxReceives: maxReceives,
		now:         time.Now,
		held:        make(map[int]int64),
	}
}

func (k *Kafka) Send(ctx context.Context, body []byte) error {
	return k.publish(ctx, k.topic, body, 0, time.Time{})
}

func (k *Kafka) publish(ctx context.Context, topic string, body []byte, receives int, notBefore time.Time) error {
	headers := []kafka.Header{
		{Key: receiveCountHeader, Value: []byte(strconv.Itoa(receives))},
	}
	if !notBefore.IsZero() {
		headers = append(headers, kafka.Header{
			Key:   notBeforeHeader,
			Value: []byte(strconv.FormatInt(notBefore.UnixMilli(), 10)),
		})
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Topic:   topic,
		Key:     []byte(uuid.NewString()),
		Value:   body,
		Time:    k.now().UTC(),
		Headers: headers,
	})
}

func (k *Kafka) Receive(ctx context.Context, max int) ([]core.Message, error) {
	if max <= 0 {
		max = 1
	}
	k.recvMu.Lock()
	defer k.recvMu.Unlock()

	out := make([]core.Message, 0, max)
	for len(out) < max {
		km, ok, err := k.next(ctx)
		if err != nil || !ok {
			return out, err
		}
		if k.now().Before(notBefore(km)) {
			k.delayed = &km
			return out, nil
		}

		receives := receiveCount(km) + 1
		if exhausted(receives, k.maxReceives) {
			if err := k.deadLetter(ctx, km); err != nil {
				return out, err
			}
			continue
		}
		out = append(out, core.Message{
			ID:           fmt.Sprintf("%s/%d/%d", km.Topic, km.Partition, km.Offset),
			Body:         km.Value,
			ReceiveCount: receives,
			Handle:       km,
		})
	}
	return out, nil
}

// next returns the held back message, or fetches one. ok is false if the poll timed out.
func (k *Kafka) next(ctx context.Context) (kafka.Message, bool, error) {
	if k.delayed != nil {
		km := *k.delayed
		k.delayed = nil
		return km, true, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, k.pollTimeout)
	km, err := k.reader.FetchMessage(fetchCtx)
	cancel()
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return km, false, nil
		case errors.Is(err, context.Canceled):
			return km, false, ctx.Err()
		default:
			return km, false, fmt.Errorf("fetching from '%s': %w", k.topic, err)
		}
	}
	return km, true, nil
}

func (k *Kafka) deadLetter(ctx context.Context, km kafka.Message) error {
	log.Ctx(ctx).Warn().
		Str("topic", k.topic).
		Int64("offset", km.Offset).
		Msg("message exceeded max receives, moving to dead-letter topic")

	if err := k.publish(ctx, k.dead, km.Value, receiveCount(km), time.Time{}); err != nil {
		k.hold(ctx, km)
		return fmt.Errorf("dead-lettering offset %d: %w", km.Offset, err)
	}
	if err := k.commit(ctx, km); err != nil && !errors.Is(err, ErrCommitHeld) {
		return fmt.Errorf("committing dead-lettered offset %d: %w", km.Offset, err)
	}
	return nil
}

func (k *Kafka) Ack(ctx context.Context, msgs ...core.Message) error {
	kms := make([]kafka.Message, 0, len(msgs))
	for _, m := range msgs {
		km, ok := m.Handle.(kafka.Message)
		if !ok {
			return fmt.Errorf("message '%s' was not received from kafka", m.ID)
		}
		kms = append(kms, km)
	}
	return k.commit(ctx, kms...)
}

// Nack republishes the message with its receive count and commits the original.
// If republishing fails, the partition is held at the message's offset.
func (k *Kafka) Nack(ctx context.Context, msg core.Message) error {
	km, ok := msg.Handle.(kafka.Message)
	if !ok {
		return fmt.Errorf("message '%s' was not received from kafka", msg.ID)
	}
	if err := k.publish(ctx, k.topic, km.Value, msg.ReceiveCount, k.now().Add(k.retryDelay)); err != nil {
		k.hold(ctx, km)
		return fmt.Errorf("republishing '%s': %w", msg.ID, err)
	}
	return k.commit(ctx, km)
}

// hold stops commits at or past km's offset in its partition.
func (k *Kafka) hold(ctx context.Context, km kafka.Message) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if offset, ok := k.held[km.Partition]; ok && offset <= km.Offset {
		return
	}
	k.held[km.Partition] = km.Offset
	log.Ctx(ctx).Warn().
		Str("topic", km.Topic).
		Int("partition", km.Partition).
		Int64("offset", km.Offset).
		Msg("holding back commits behind unsettled message")
}

// commit commits the messages below their partition's held offset.
func (k *Kafka) commit(ctx context.Context, kms ...kafka.Message) error {
	k.mu.Lock()
	allowed := make([]kafka.Message, 0, len(kms))
	for _, km := range kms {
		if offset, ok := k.held[km.Partition]; ok && km.Offset >= offset {
			continue
		}
		allowed = append(allowed, km)
	}
	k.mu.Unlock()

	if len(allowed) > 0 {
		if err := k.reader.CommitMessages(ctx, allowed...); err != nil {
			return err
		}
	}
	if held := len(kms) - len(allowed); held > 0 {
		return fmt.Errorf("%w: %d message(s) of '%s'", ErrCommitHeld, held, k.topic)
	}
	return nil
}

func (k *Kafka) Close() error {
	return errors.Join(k.reader.Close(), k.writer.Close())
}

// notBefore returns when a republished copy is due. The zero time means right away.
func notBefore(km kafka.Message) time.Time {
	for _, h := range km.Headers {
		if h.Key == notBeforeHeader {
			ms, err := strconv.ParseInt(string(h.Value), 10, 64)
			if err != nil {
				return time.Time{}
			}
			return time.UnixMilli(ms)
		}
	}
	return time.Time{}
}

// receiveCount returns how often a message was delivered before it was republished.
func receiveCount(km kafka.Message) int {
	for _, h := range km.Headers {
		if h.Key == receiveCountHeader {
			n, err := strconv.Atoi(string(h.Value))
			if err != nil || n < 0 {
				return 0
			}
			return n
		}
	}
	return 0
}
