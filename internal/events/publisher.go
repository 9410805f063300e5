package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/ahmtersoy23-ui/databridge/internal/models"
)

const (
	// StreamName is the JetStream stream carrying every databridge subject
	StreamName = "DATABRIDGE"

	subjectSyncPrefix       = "databridge.sync."
	subjectProjectionPrefix = "databridge.projection."
)

// SyncJobEvent is published when a sync job reaches a terminal status
type SyncJobEvent struct {
	EventType        string     `json:"event_type"`
	JobID            string     `json:"job_id"`
	JobType          string     `json:"job_type"`
	Marketplace      string     `json:"marketplace"`
	Status           string     `json:"status"`
	RecordsProcessed int        `json:"records_processed"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	Timestamp        time.Time  `json:"timestamp"`
}

// ProjectionEvent is published after a projection refresh
type ProjectionEvent struct {
	EventType string    `json:"event_type"`
	Kind      string    `json:"kind"`
	Rows      int       `json:"rows"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher sends sync and projection events to NATS JetStream.
// A Publisher without a connection drops events.
type Publisher struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	logger *logrus.Entry
}

// NewPublisher connects to natsURL; an empty URL yields a no-op publisher
func NewPublisher(natsURL string, logger *logrus.Logger) (*Publisher, error) {
	if logger == nil {
		logger = logrus.New()
	}
	p := &Publisher{logger: logger.WithField("component", "events.publisher")}
	if natsURL == "" {
		p.logger.Info("NATS_URL not set, events disabled")
		return p, nil
	}

	conn, err := nats.Connect(natsURL,
		nats.Name("databridge-publisher"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open JetStream context: %w", err)
	}

	if _, err := js.StreamInfo(StreamName); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:     StreamName,
			Subjects: []string{"databridge.>"},
			MaxAge:   7 * 24 * time.Hour,
		})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create stream %s: %w", StreamName, err)
		}
	}

	p.conn = conn
	p.js = js
	return p, nil
}

// Enabled reports whether events are actually sent
func (p *Publisher) Enabled() bool {
	return p != nil && p.js != nil
}

// Close closes the NATS connection
func (p *Publisher) Close() {
	if p != nil && p.conn != nil {
		p.conn.Close()
	}
}

// PublishSyncJob publishes databridge.sync.<job_type>
func (p *Publisher) PublishSyncJob(ctx context.Context, job *models.SyncJob) {
	if !p.Enabled() || job == nil {
		return
	}
	event := SyncJobEvent{
		EventType:        subjectSyncPrefix + string(job.JobType),
		JobID:            job.ID.String(),
		JobType:          string(job.JobType),
		Marketplace:      job.Marketplace,
		Status:           string(job.Status),
		RecordsProcessed: job.RecordsProcessed,
		StartedAt:        job.StartedAt,
		CompletedAt:      job.CompletedAt,
		Timestamp:        time.Now().UTC(),
	}
	if job.ErrorMessage != nil {
		event.ErrorMessage = *job.ErrorMessage
	}
	p.publish(ctx, event.EventType, event)
}

// PublishProjectionRefreshed publishes databridge.projection.<kind>
func (p *Publisher) PublishProjectionRefreshed(ctx context.Context, kind string, rows int) {
	if !p.Enabled() {
		return
	}
	event := ProjectionEvent{
		EventType: subjectProjectionPrefix + kind,
		Kind:      kind,
		Rows:      rows,
		Timestamp: time.Now().UTC(),
	}
	p.publish(ctx, event.EventType, event)
}

// publish sends asynchronously with its own 10s timeout
func (p *Publisher) publish(_ context.Context, subject string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.WithError(err).WithField("subject", subject).Error("Failed to marshal event")
		return
	}

	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if _, err := p.js.Publish(subject, data, nats.Context(pubCtx)); err != nil {
			p.logger.WithError(err).WithField("subject", subject).Error("Failed to publish event")
			return
		}
		p.logger.WithField("subject", subject).Debug("Event published")
	}()
}
