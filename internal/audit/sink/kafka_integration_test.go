//go:build integration

package sink_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"audittrail/internal/audit"
	"audittrail/internal/audit/sink"
	"audittrail/pkg/testutil/containers"
)

const testTopic = "audit-records-test"

type KafkaSinkSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
}

func TestKafkaSinkSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaSinkSuite))
}

func (s *KafkaSinkSuite) SetupSuite() {
	s.redpanda = containers.NewRedpandaContainer(s.T())
}

func (s *KafkaSinkSuite) TearDownSuite() {
	if s.redpanda != nil {
		_ = s.redpanda.Container.Terminate(context.Background())
	}
}

func (s *KafkaSinkSuite) TestForwardsRecords() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	inbox := make(chan audit.Record, 8)
	worker, err := sink.NewWorker(ctx, s.redpanda.Brokers, testTopic, inbox, slog.Default())
	s.Require().NoError(err)
	defer worker.Close()

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = worker.Run(runCtx)
	}()

	rec := audit.Record{
		ID:              uuid.New(),
		SubjectModel:    "invoice",
		SubjectID:       "i-1",
		Type:            audit.TypeCreated,
		RenderedMessage: "created Invoice",
		CreatedAt:       time.Now().UTC(),
	}
	inbox <- rec

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Brokers...),
		kgo.ConsumeTopics(testTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().NoError(fetches.Err())

	records := fetches.Records()
	s.Require().Len(records, 1)
	s.Equal("invoice/i-1", string(records[0].Key))

	var decoded audit.Record
	s.Require().NoError(json.Unmarshal(records[0].Value, &decoded))
	s.Equal(rec.ID, decoded.ID)
	s.Equal("created Invoice", decoded.RenderedMessage)

	stop()
	<-done
}
