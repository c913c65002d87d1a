package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/farm-survey-etl/internal/config"
	"github.com/couchcryptid/farm-survey-etl/internal/domain"
)

// Publisher produces aggregated station means to a Kafka topic.
// It implements pipeline.MeansPublisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured sink topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishMeans serializes every populated (station, measurement) cell and
// publishes the batch in a single WriteMessages call. Keying on the station ID
// keeps one station's readings on one partition.
func (p *Publisher) PublishMeans(ctx context.Context, means *domain.StationMeans) error {
	cells := means.Cells()
	if len(cells) == 0 {
		p.logger.Warn("no mean cells to publish")
		return nil
	}

	processedAt := means.ComputedAt.Format(time.RFC3339)
	msgs := make([]kafkago.Message, len(cells))
	for i, cell := range cells {
		msg, err := serializeToMessage(cell, processedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish station means: %w", err)
	}
	p.logger.Info("station means published", "cells", len(cells), "topic", p.writer.Topic)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals one mean cell into a Kafka message.
func serializeToMessage(cell domain.MeanCell, processedAt string) (kafkago.Message, error) {
	data, err := json.Marshal(cell)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize mean cell %s/%s: %w", cell.Station, cell.Measurement, err)
	}
	return kafkago.Message{
		Key:   []byte(cell.Station),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "measurement", Value: []byte(cell.Measurement)},
			{Key: "processed_at", Value: []byte(processedAt)},
		},
	}, nil
}
