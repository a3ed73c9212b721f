package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	eventkafka "event-in/internal/kafka"
	"event-in/internal/logger"
	"event-in/internal/models"
	"event-in/internal/notify"
)

type MockWriter struct {
	mock.Mock
}

func (m *MockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockWriter) Close() error {
	return m.Called().Error(0)
}

type MockReader struct {
	mock.Mock
}

func (m *MockReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	args := m.Called(ctx)
	return args.Get(0).(kafka.Message), args.Error(1)
}

func (m *MockReader) Close() error {
	return m.Called().Error(0)
}

func TestTopics(t *testing.T) {
	assert.Equal(t, []string{
		"event-in.event.created",
		"event-in.event.updated",
		"event-in.event.deleted",
	}, eventkafka.Topics("event-in"))
	assert.Equal(t, "event.deleted", eventkafka.TopicName("", notify.EventDeleted))
}

func TestProducerNotify(t *testing.T) {
	writer := new(MockWriter)
	p := &eventkafka.Producer{Writer: writer, TopicPrefix: "event-in", Logger: logger.NewNopLogger()}

	ev := &models.Event{ID: 42, Name: "Standup"}
	change := notify.NewChange(notify.EventCreated, 42, ev)

	writer.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
		if len(msgs) != 1 {
			return false
		}
		msg := msgs[0]
		var decoded notify.Change
		if err := json.Unmarshal(msg.Value, &decoded); err != nil {
			return false
		}
		return msg.Topic == "event-in.event.created" &&
			string(msg.Key) == "42" &&
			decoded.ID == change.ID &&
			decoded.Event != nil && decoded.Event.Name == "Standup"
	})).Return(nil).Once()

	require.NoError(t, p.Notify(context.Background(), change))
	writer.AssertExpectations(t)
}

func TestProducerNotifyError(t *testing.T) {
	writer := new(MockWriter)
	p := &eventkafka.Producer{Writer: writer, TopicPrefix: "event-in", Logger: logger.NewNopLogger()}

	errBroker := errors.New("broker unavailable")
	writer.On("WriteMessages", mock.Anything, mock.Anything).Return(errBroker)

	err := p.Notify(context.Background(), notify.NewChange(notify.EventDeleted, 3, nil))

	assert.ErrorIs(t, err, errBroker)
	assert.Contains(t, err.Error(), "event-in.event.deleted")
}

func TestConsumerStart(t *testing.T) {
	reader := new(MockReader)
	c := &eventkafka.Consumer{Reader: reader, Logger: logger.NewNopLogger()}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	good, err := json.Marshal(notify.NewChange(notify.EventUpdated, 9, nil))
	require.NoError(t, err)

	reader.On("ReadMessage", mock.Anything).Return(kafka.Message{Topic: "event-in.event.updated", Value: []byte("not json")}, nil).Once()
	reader.On("ReadMessage", mock.Anything).Return(kafka.Message{Topic: "event-in.event.updated", Value: good}, nil).Once()
	reader.On("ReadMessage", mock.Anything).Run(func(mock.Arguments) { cancel() }).Return(kafka.Message{}, context.Canceled).Once()

	var got []notify.Change
	err = c.Start(ctx, func(change notify.Change) {
		got = append(got, change)
	})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, notify.EventUpdated, got[0].Type)
	assert.Equal(t, int64(9), got[0].EventID)
	reader.AssertExpectations(t)
}

func TestConsumerReadError(t *testing.T) {
	reader := new(MockReader)
	c := &eventkafka.Consumer{Reader: reader, Logger: logger.NewNopLogger()}

	reader.On("ReadMessage", mock.Anything).Return(kafka.Message{}, errors.New("connection reset"))

	err := c.Start(context.Background(), func(notify.Change) {})

	assert.ErrorContains(t, err, "connection reset")
}
