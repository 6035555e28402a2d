//go:build integration

package notify_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"chatguard/internal/moderation/models"
	"chatguard/internal/moderation/notify"
	"chatguard/internal/moderation/ports"
	"chatguard/internal/platform/config"
	"chatguard/internal/platform/kafka"
	id "chatguard/pkg/domain"
	"chatguard/pkg/testutil/containers"
)

type KafkaDispatcherSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
	client   *kgo.Client
	topic    string
}

func TestKafkaDispatcherSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaDispatcherSuite))
}

func (s *KafkaDispatcherSuite) SetupSuite() {
	ctx := context.Background()
	s.redpanda = containers.GetManager().GetRedpanda(s.T())
	s.topic = "notices-" + uuid.NewString()

	var err error
	s.client, err = kafka.New(ctx, config.KafkaConfig{
		Brokers:     []string{s.redpanda.Broker},
		ClientID:    "chatguard-test",
		NoticeTopic: s.topic,
	})
	s.Require().NoError(err)
	s.Require().NoError(kafka.EnsureTopic(ctx, s.client, s.topic, 1))
}

func (s *KafkaDispatcherSuite) TearDownSuite() {
	if s.client != nil {
		s.client.Close()
	}
}

func (s *KafkaDispatcherSuite) TestNoticeIsConsumable() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dispatcher, err := notify.NewKafka(s.client, s.topic)
	s.Require().NoError(err)

	notice := ports.Notice{
		Type:          models.NoticeSuspensionFinal,
		UserID:        id.UserID(uuid.New()),
		ViolationID:   id.NewViolationID(),
		ViolationType: models.CategoryPhoneNumber,
		StrikeNumber:  models.StrikeFinal,
		Final:         true,
		Timestamp:     time.Now().UTC(),
	}
	s.Require().NoError(dispatcher.Dispatch(ctx, notice))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Broker),
		kgo.ConsumeTopics(s.topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().Empty(fetches.Errors())
	records := fetches.Records()
	s.Require().Len(records, 1)

	var got ports.Notice
	s.Require().NoError(json.Unmarshal(records[0].Value, &got))
	s.Equal(notice.UserID, got.UserID)
	s.Equal(notice.ViolationID, got.ViolationID)
	s.True(got.Final)
}
