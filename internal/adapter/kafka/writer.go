package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/bird-observation-dashboard/internal/config"
	"github.com/couchcryptid/bird-observation-dashboard/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces one message per cleaned observation to the snapshot topic.
// It implements pipeline.Publisher.
type Publisher struct {
	writer    messageWriter
	batchSize int
	logger    *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured snapshot topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		BatchSize:              cfg.KafkaBatchSize,
		AllowAutoTopicCreation: true,
	}
	return newPublisher(w, cfg.KafkaBatchSize, logger)
}

func newPublisher(w messageWriter, batchSize int, logger *slog.Logger) *Publisher {
	return &Publisher{writer: w, batchSize: max(batchSize, 1), logger: logger}
}

// Publish serializes every observation in the table and writes them in
// batches of the configured size. Messages are keyed by observation ID so a
// re-published table lands on the same partitions.
func (p *Publisher) Publish(ctx context.Context, table *domain.Table, loadedAt time.Time) error {
	if table.Len() == 0 {
		return nil
	}

	batch := make([]kafkago.Message, 0, min(p.batchSize, table.Len()))
	written := 0
	for i := range table.Observations {
		msg, err := serializeToMessage(table.Observations[i], loadedAt)
		if err != nil {
			return err
		}
		batch = append(batch, msg)
		if len(batch) == p.batchSize {
			if err := p.writer.WriteMessages(ctx, batch...); err != nil {
				return fmt.Errorf("write observation batch after %d messages: %w", written, err)
			}
			written += len(batch)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := p.writer.WriteMessages(ctx, batch...); err != nil {
			return fmt.Errorf("write observation batch after %d messages: %w", written, err)
		}
		written += len(batch)
	}

	p.logger.Debug("snapshot published", "messages", written, "loaded_at", loadedAt)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// observationMessage is the JSON payload of a snapshot message.
type observationMessage struct {
	ID string `json:"id"`
	domain.Observation
	LoadedAt time.Time `json:"loaded_at"`
}

// serializeToMessage marshals an Observation into a Kafka message.
func serializeToMessage(obs domain.Observation, loadedAt time.Time) (kafkago.Message, error) {
	id := obs.ID()
	data, err := json.Marshal(observationMessage{ID: id, Observation: obs, LoadedAt: loadedAt.UTC()})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize observation: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(id),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "scientific_name", Value: []byte(obs.ScientificName)},
			{Key: "loaded_at", Value: []byte(loadedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
