// Package kafka publishes batch sync reports to a Kafka topic so downstream
// consumers (alerting, analytics) can observe sync health without polling
// the API.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"nestegg/internal/domain/sync"
)

// ReportPublisher emits one message per completed batch sync run
type ReportPublisher struct {
	writer *kafka.Writer
}

// NewReportPublisher creates a publisher for the given brokers and topic
func NewReportPublisher(brokers []string, topic string) *ReportPublisher {
	return &ReportPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Publish serializes the batch result and writes it to the report topic.
// The message key is the run's start time, so log-compacted topics keep
// one entry per run.
func (p *ReportPublisher) Publish(ctx context.Context, result *sync.BatchResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal batch report: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(result.StartedAt.UTC().Format(time.RFC3339)),
		Value: data,
	})
	if err != nil {
		return fmt.Errorf("failed to publish batch report: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer
func (p *ReportPublisher) Close() error {
	return p.writer.Close()
}
