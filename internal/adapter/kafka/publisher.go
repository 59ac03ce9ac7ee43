// Package kafka publishes reached stage thresholds to a Kafka topic for
// downstream alerting. Publishing is optional; the service runs without it.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/agroclim/gdd-tracker/internal/config"
	"github.com/agroclim/gdd-tracker/internal/domain"
)

// StageEvent is the wire form of one reached stage threshold.
type StageEvent struct {
	RunID     string  `json:"run_id"`
	Threshold float64 `json:"threshold"`
	Date      string  `json:"date"` // YYYY-MM-DD
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	GDDCum    float64 `json:"gdd_cum"`
}

// Publisher produces stage-crossing events to the configured topic.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the stage-event topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaStageTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishStages publishes one message per reached stage in a single
// WriteMessages call. Unreached stages are skipped; an all-unreached result
// publishes nothing.
func (p *Publisher) PublishStages(ctx context.Context, runID string, cfg domain.SimulationConfig, res domain.Result) error {
	msgs := make([]kafkago.Message, 0, len(res.Stages))
	for _, st := range res.Stages {
		if !st.Reached {
			continue
		}
		msg, err := serializeStage(runID, cfg, res, st)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) == 0 {
		return nil
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeStage marshals one reached stage into a Kafka message keyed by run ID.
func serializeStage(runID string, cfg domain.SimulationConfig, res domain.Result, st domain.Stage) (kafkago.Message, error) {
	event := StageEvent{
		RunID:     runID,
		Threshold: st.Threshold,
		Date:      st.Date.Format(time.DateOnly),
		Lat:       cfg.Lat,
		Lon:       cfg.Lon,
		GDDCum:    res.CumulativeGDD(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize stage event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(runID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "threshold", Value: []byte(fmt.Sprintf("%g", st.Threshold))},
			{Key: "date", Value: []byte(event.Date)},
		},
	}, nil
}
