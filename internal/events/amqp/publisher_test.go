package amqp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
	"expensetracker/internal/events"
)

type fakeChannel struct {
	exchangeErr error
	publishErr  error

	exchanges []string
	queues    []string
	bindings  [][3]string
	published []amqp091.Publishing
	keys      []string
	closed    bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error {
	f.exchanges = append(f.exchanges, name+":"+kind)
	return f.exchangeErr
}

func (f *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error) {
	f.queues = append(f.queues, name)
	return amqp091.Queue{Name: name}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp091.Table) error {
	f.bindings = append(f.bindings, [3]string{name, key, exchange})
	return nil
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.keys = append(f.keys, exchange+"/"+key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestSetupDeclaresTopology(t *testing.T) {
	ch := &fakeChannel{}
	_, err := newPublisher(ch, "expenses", "expenses.recorded")
	require.NoError(t, err)

	assert.Equal(t, []string{"expenses:direct"}, ch.exchanges)
	assert.Equal(t, []string{"expenses.recorded"}, ch.queues)
	assert.Equal(t, [][3]string{{"expenses.recorded", events.TypeExpenseRecorded, "expenses"}}, ch.bindings)
}

func TestSetupWithoutQueueOnlyDeclaresExchange(t *testing.T) {
	ch := &fakeChannel{}
	_, err := newPublisher(ch, "expenses", "")
	require.NoError(t, err)
	assert.Empty(t, ch.queues)
	assert.Empty(t, ch.bindings)
}

func TestSetupFailureClosesChannel(t *testing.T) {
	ch := &fakeChannel{exchangeErr: errors.New("access refused")}
	_, err := newPublisher(ch, "expenses", "q")
	require.Error(t, err)
	assert.True(t, ch.closed)
}

func TestPublish(t *testing.T) {
	ch := &fakeChannel{}
	p, err := newPublisher(ch, "expenses", "q")
	require.NoError(t, err)
	now := time.Date(2017, 6, 12, 10, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	ev := events.NewExpenseRecorded(417, "2017-06-12", core.Expense{"payee": "Starbucks"}, now)
	require.NoError(t, p.Publish(context.Background(), ev))

	require.Len(t, ch.published, 1)
	msg := ch.published[0]
	assert.Equal(t, "expenses/"+events.TypeExpenseRecorded, ch.keys[0])
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp091.Persistent, msg.DeliveryMode)
	assert.Equal(t, "417", msg.MessageId)
	assert.Equal(t, now, msg.Timestamp)

	decoded, err := events.UnmarshalExpenseRecorded(msg.Body)
	require.NoError(t, err)
	assert.Equal(t, int64(417), decoded.ExpenseID)
}

func TestPublishError(t *testing.T) {
	ch := &fakeChannel{}
	p, err := newPublisher(ch, "expenses", "")
	require.NoError(t, err)
	ch.publishErr = amqp091.ErrClosed

	err = p.Publish(context.Background(), events.NewExpenseRecorded(1, "2017-06-12", nil, time.Now()))
	assert.ErrorIs(t, err, amqp091.ErrClosed)
}
