package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"casedesk/internal/apperr"
	"casedesk/internal/config"
)

// SQSPublisher publishes work messages to the configured SQS queue.
type SQSPublisher struct {
	client   *sqs.Client
	queueURL string
}

// NewSQSPublisher constructs the publisher once at startup. Missing
// deployment configuration fails with MISSING_AWS_CONFIG so operators
// can tell it apart from logic bugs.
func NewSQSPublisher(ctx context.Context, cfg config.AWSConfig) (*SQSPublisher, error) {
	if cfg.Region == "" {
		return nil, apperr.MissingAWSConfig("region")
	}
	if cfg.QueueURL == "" {
		return nil, apperr.MissingAWSConfig("queue_url")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SQSPublisher{
		client:   sqs.NewFromConfig(awsCfg),
		queueURL: cfg.QueueURL,
	}, nil
}

// Publish sends one JSON work message. No retry; a failure propagates to
// the caller and the already-persisted job stays queued (orphan).
func (p *SQSPublisher) Publish(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}
