package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"tutor-service/common/logger"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafkaPublisher_Publish(t *testing.T) {
	ownerID := uuid.New()
	event := NewEvent(StudentCreated, uuid.New(), ownerID, map[string]string{"name": "Alice"})

	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != ownerID.String() {
			return errors.New("message must be keyed by owner id")
		}

		value, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var decoded Event
		if err := json.Unmarshal(value, &decoded); err != nil {
			return err
		}
		if decoded.Type != StudentCreated {
			return errors.New("unexpected event type " + string(decoded.Type))
		}
		return nil
	})

	p := newKafkaPublisher(producer, "tutor-events", logger.Discard())
	require.NoError(t, p.Publish(context.Background(), event))
	require.NoError(t, p.Close())
}

func TestKafkaPublisher_PublishError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := newKafkaPublisher(producer, "tutor-events", logger.Discard())
	err := p.Publish(context.Background(), NewEvent(LessonDeleted, uuid.New(), uuid.New(), nil))

	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	assert.Equal(t, "kafka", p.Driver())
	require.NoError(t, p.Close())
}
