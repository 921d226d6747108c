package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/darmiel/fxrelay/internal/core"
)

// sqsMaxBatch is the most messages SQS receives or deletes per call.
const sqsMaxBatch = 10

type SQSConfig struct {
	QueueURL          string        `mapstructure:"queue_url"`
	Region            string        `mapstructure:"region"`
	Endpoint          string        `mapstructure:"endpoint"`
	WaitTime          time.Duration `mapstructure:"wait_time"`
	VisibilityTimeout time.Duration `mapstructure:"visibility_timeout"`

	// RetryDelay makes a negatively acknowledged message visible again after the delay.
	// Zero leaves it to the queue's visibility timeout.
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput,
		optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput,
		optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessageBatch(ctx context.Context, params *sqs.DeleteMessageBatchInput,
		optFns ...func(*sqs.Options)) (*sqs.DeleteMessageBatchOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput,
		optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
}

// SQS is a queue on AWS SQS. Dead-lettering is done by the queue's redrive policy.
type SQS struct {
	client     sqsAPI
	queueURL   string
	waitTime   time.Duration
	visibility time.Duration
	retryDelay time.Duration
}

var _ core.Queue = (*SQS)(nil)

func NewSQS(ctx context.Context, cfg SQSConfig) (*SQS, error) {
	if cfg.QueueURL == "" {
		return nil, fmt.Errorf("sqs queue requires 'queue_url'")
	}
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	client := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newSQS(client, cfg), nil
}

func newSQS(client sqsAPI, cfg SQSConfig) *SQS {
	if cfg.WaitTime <= 0 {
		cfg.WaitTime = time.Second
	}
	return &SQS{
		client:     client,
		queueURL:   cfg.QueueURL,
		waitTime:   cfg.WaitTime,
		visibility: cfg.VisibilityTimeout,
		retryDelay: cfg.RetryDelay,
	}
}

func (s *SQS) Send(ctx context.Context, body []byte) error {
	_, err := s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("sending to sqs: %w", err)
	}
	return nil
}

// Receive long-polls once and keeps receiving without waiting until max messages
// are collected or the queue returns nothing.
func (s *SQS) Receive(ctx context.Context, max int) ([]core.Message, error) {
	if max <= 0 {
		max = 1
	}
	var out []core.Message
	wait := int32(s.waitTime / time.Second)
	for len(out) < max {
		input := &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(s.queueURL),
			MaxNumberOfMessages: int32(min(max-len(out), sqsMaxBatch)),
			WaitTimeSeconds:     wait,
			MessageSystemAttributeNames: []types.MessageSystemAttributeName{
				types.MessageSystemAttributeNameApproximateReceiveCount,
			},
		}
		if s.visibility > 0 {
			input.VisibilityTimeout = int32(s.visibility / time.Second)
		}
		res, err := s.client.ReceiveMessage(ctx, input)
		if err != nil {
			return out, fmt.Errorf("receiving from sqs: %w", err)
		}
		if len(res.Messages) == 0 {
			break
		}
		for _, m := range res.Messages {
			out = append(out, core.Message{
				ID:           aws.ToString(m.MessageId),
				Body:         []byte(aws.ToString(m.Body)),
				ReceiveCount: approximateReceiveCount(m),
				Handle:       aws.ToString(m.ReceiptHandle),
			})
		}
		wait = 0
	}
	return out, nil
}

func (s *SQS) Ack(ctx context.Context, msgs ...core.Message) error {
	var errs []error
	for start := 0; start < len(msgs); start += sqsMaxBatch {
		chunk := msgs[start:min(start+sqsMaxBatch, len(msgs))]
		entries := make([]types.DeleteMessageBatchRequestEntry, len(chunk))
		for i, m := range chunk {
			handle, _ := m.Handle.(string)
			entries[i] = types.DeleteMessageBatchRequestEntry{
				Id:            aws.String(strconv.Itoa(i)),
				ReceiptHandle: aws.String(handle),
			}
		}
		res, err := s.client.DeleteMessageBatch(ctx, &sqs.DeleteMessageBatchInput{
			QueueUrl: aws.String(s.queueURL),
			Entries:  entries,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("deleting from sqs: %w", err))
			continue
		}
		for _, f := range res.Failed {
			errs = append(errs, fmt.Errorf("deleting entry %s from sqs: %s: %s",
				aws.ToString(f.Id), aws.ToString(f.Code), aws.ToString(f.Message)))
		}
	}
	return errors.Join(errs...)
}

func (s *SQS) Nack(ctx context.Context, msg core.Message) error {
	if s.retryDelay <= 0 {
		return nil
	}
	handle, _ := msg.Handle.(string)
	_, err := s.client.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(s.queueURL),
		ReceiptHandle:     aws.String(handle),
		VisibilityTimeout: int32(s.retryDelay / time.Second),
	})
	if err != nil {
		return fmt.Errorf("changing visibility of '%s': %w", msg.ID, err)
	}
	return nil
}

func (s *SQS) Close() error {
	return nil
}

func approximateReceiveCount(m types.Message) int {
	n, err := strconv.Atoi(m.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)])
	if err != nil {
		return 1
	}
	return n
}
