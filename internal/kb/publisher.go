// Package kb publishes candidate bundles to the knowledge-base ingestion queue.
package kb

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/verifit/interview-runner/internal/interview"
)

// ingestMessage is the queue payload. The consumer side dedupes on the
// (job_posting_id, applicant_id) pair, so re-publishing the same bundle is
// harmless.
type ingestMessage struct {
	JobPostingID string `json:"job_posting_id"`
	ApplicantID  string `json:"applicant_id"`
	FullText     string `json:"full_text"`
	BehaviorText string `json:"behavior_text"`
	Big5Text     string `json:"big5_text"`
	AIQAText     string `json:"aiqa_text,omitempty"`
}

// Publisher sends ingestion requests over AMQP. It implements
// interview.Ingestor.
type Publisher struct {
	conn   *amqp.Connection
	queue  string
	logger *zap.Logger

	mu      sync.Mutex
	channel *amqp.Channel
}

// NewPublisher connects to the broker and declares the ingestion queue.
func NewPublisher(url, queue string, logger *zap.Logger) (*Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	return &Publisher{
		conn:    conn,
		queue:   queue,
		logger:  logger,
		channel: ch,
	}, nil
}

// Ingest publishes one candidate bundle keyed by posting and applicant.
func (p *Publisher) Ingest(ctx context.Context, postingID, applicantID string, profile *interview.Profile) error {
	body, err := json.Marshal(ingestMessage{
		JobPostingID: postingID,
		ApplicantID:  applicantID,
		FullText:     profile.FullText,
		BehaviorText: profile.BehaviorText,
		Big5Text:     profile.Big5Text,
		AIQAText:     profile.AIQAText,
	})
	if err != nil {
		return fmt.Errorf("encode ingest message: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", p.queue, err)
	}

	p.logger.Debug("published knowledge-base ingest request",
		zap.String("job_posting_id", postingID),
		zap.String("applicant_id", applicantID),
	)

	return nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		p.channel.Close()
		p.channel = nil
	}
	return p.conn.Close()
}
