package kafka

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
	"expensetracker/internal/events"
	"expensetracker/internal/log"
)

type fakeWriter struct {
	err    error
	msgs   []kafka.Message
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestNewPublisherRequiresBrokersAndTopic(t *testing.T) {
	logger := log.New(log.Config{Output: &bytes.Buffer{}})

	_, err := NewPublisher(Config{Topic: "expenses"}, logger)
	assert.Error(t, err)
	_, err = NewPublisher(Config{Brokers: []string{"localhost:9092"}}, logger)
	assert.Error(t, err)

	p, err := NewPublisher(Config{Brokers: []string{"localhost:9092"}, Topic: "expenses"}, logger)
	require.NoError(t, err)
	w := p.writer.(*kafka.Writer)
	assert.Equal(t, "expenses", w.Topic)
	assert.Equal(t, kafka.RequireOne, w.RequiredAcks)
	assert.False(t, w.Async)
}

func TestRequiredAcks(t *testing.T) {
	assert.Equal(t, kafka.RequireNone, requiredAcks("none"))
	assert.Equal(t, kafka.RequireAll, requiredAcks("all"))
	assert.Equal(t, kafka.RequireOne, requiredAcks(""))
}

func TestPublish(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{writer: w, topic: "expenses"}
	at := time.Date(2017, 6, 12, 10, 0, 0, 0, time.UTC)

	ev := events.NewExpenseRecorded(417, "2017-06-12", core.Expense{"payee": "Starbucks"}, at)
	require.NoError(t, p.Publish(context.Background(), ev))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, []byte("417"), msg.Key)
	assert.Equal(t, at, msg.Time)
	assert.Equal(t, []byte(events.TypeExpenseRecorded), msg.Headers[0].Value)

	got, err := events.UnmarshalExpenseRecorded(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, "Starbucks", got.Expense["payee"])
}

func TestPublishWrapsWriterError(t *testing.T) {
	boom := errors.New("leader not available")
	p := &Publisher{writer: &fakeWriter{err: boom}, topic: "expenses"}

	err := p.Publish(context.Background(), events.NewExpenseRecorded(1, "2017-06-12", nil, time.Now()))
	assert.ErrorIs(t, err, boom)
}

func TestCloseClosesWriter(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{writer: w}
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}
