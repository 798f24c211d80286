package producers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockTopicAdmin struct {
	mock.Mock
}

func (m *mockTopicAdmin) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	args := m.Called(topics)
	partitions, _ := args.Get(0).([]kafka.Partition)
	return partitions, args.Error(1)
}

func (m *mockTopicAdmin) CreateTopics(topics ...kafka.TopicConfig) error {
	args := m.Called(topics)
	return args.Error(0)
}

func TestTopicConfig(t *testing.T) {
	assert.Equal(t, kafka.TopicConfig{Topic: "jobs", NumPartitions: 1, ReplicationFactor: 1}, topicConfig("jobs", 0, 0))
	assert.Equal(t, kafka.TopicConfig{Topic: "jobs", NumPartitions: 6, ReplicationFactor: 3}, topicConfig("jobs", 6, 3))
}

func TestEnsureTopic(t *testing.T) {
	topicRetryDelay = 0
	ctx := context.Background()
	cfg := topicConfig("recon.jobs", 3, 1)

	t.Run("ExistingTopic", func(t *testing.T) {
		admin := new(mockTopicAdmin)
		admin.On("ReadPartitions", []string{"recon.jobs"}).Return([]kafka.Partition{{Topic: "recon.jobs"}}, nil).Once()

		assert.NoError(t, ensureTopic(ctx, admin, cfg, testLogger()))
		admin.AssertNotCalled(t, "CreateTopics", mock.Anything)
	})

	t.Run("MissingTopicIsCreated", func(t *testing.T) {
		admin := new(mockTopicAdmin)
		admin.On("ReadPartitions", []string{"recon.jobs"}).Return(nil, nil).Once()
		admin.On("CreateTopics", []kafka.TopicConfig{cfg}).Return(nil).Once()

		assert.NoError(t, ensureTopic(ctx, admin, cfg, testLogger()))
		admin.AssertExpectations(t)
	})

	t.Run("ReadErrorsRetriedThenCreate", func(t *testing.T) {
		admin := new(mockTopicAdmin)
		admin.On("ReadPartitions", []string{"recon.jobs"}).Return(nil, errors.New("leader not available")).Times(topicReadAttempts)
		admin.On("CreateTopics", []kafka.TopicConfig{cfg}).Return(nil).Once()

		assert.NoError(t, ensureTopic(ctx, admin, cfg, testLogger()))
		admin.AssertExpectations(t)
	})

	t.Run("CreateFailure", func(t *testing.T) {
		admin := new(mockTopicAdmin)
		admin.On("ReadPartitions", []string{"recon.jobs"}).Return(nil, nil).Once()
		admin.On("CreateTopics", []kafka.TopicConfig{cfg}).Return(errors.New("not authorized")).Once()

		err := ensureTopic(ctx, admin, cfg, testLogger())
		assert.ErrorContains(t, err, "failed to create kafka topic recon.jobs")
	})

	t.Run("CancelledWhileRetrying", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		admin := new(mockTopicAdmin)
		admin.On("ReadPartitions", []string{"recon.jobs"}).Return(nil, errors.New("broker down"))

		topicRetryDelay = time.Hour
		defer func() { topicRetryDelay = 0 }()
		assert.ErrorIs(t, ensureTopic(cancelled, admin, cfg, testLogger()), context.Canceled)
		admin.AssertNotCalled(t, "CreateTopics", mock.Anything)
	})
}
