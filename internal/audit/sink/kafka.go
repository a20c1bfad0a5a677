// Package sink streams written audit records to Kafka for downstream
// consumers (SIEM, warehousing). It sits outside the synchronous recording
// path: the recorder's store write never waits on the broker.
package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"audittrail/internal/audit"
)

// Worker drains a record channel into a Kafka topic. Records are keyed by
// subject so one subject's history stays ordered within a partition.
type Worker struct {
	client *kgo.Client
	topic  string
	inbox  <-chan audit.Record
	logger *slog.Logger
}

func NewWorker(ctx context.Context, brokers []string, topic string, inbox <-chan audit.Record, logger *slog.Logger) (*Worker, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	if err := ensureTopic(ctx, client, topic); err != nil {
		client.Close()
		return nil, err
	}
	return &Worker{client: client, topic: topic, inbox: inbox, logger: logger}, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, 1, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, result := range resp {
		// An existing topic is fine; anything else is fatal.
		if result.Err != nil && !errors.Is(result.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", topic, result.Err)
		}
	}
	return nil
}

// Run consumes until the context is cancelled. Produce failures are logged
// and skipped: the store remains the source of truth, the stream is a feed.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec := <-w.inbox:
			w.produce(ctx, rec)
		}
	}
}

func (w *Worker) produce(ctx context.Context, rec audit.Record) {
	value, err := json.Marshal(rec)
	if err != nil {
		w.logger.ErrorContext(ctx, "marshal audit record for kafka", "error", err, "record_id", rec.ID)
		return
	}
	record := &kgo.Record{
		Topic: w.topic,
		Key:   []byte(rec.SubjectModel + "/" + rec.SubjectID),
		Value: value,
	}
	if err := w.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		w.logger.ErrorContext(ctx, "produce audit record", "error", err, "record_id", rec.ID)
	}
}

func (w *Worker) Close() {
	w.client.Close()
}
