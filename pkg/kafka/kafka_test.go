package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	applogger "TradeSense/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestProducerPublishEncodes(t *testing.T) {
	w := &fakeWriter{}
	reg := prometheus.NewRegistry()
	p := newProducer(w, "events", "snappy", reg)

	err := p.Publish(context.Background(),
		Message{Key: []byte("k1"), Value: map[string]int{"a": 1}},
		Message{Key: []byte("k2"), Value: "raw"},
		Message{Value: []byte("bytes")},
	)
	require.NoError(t, err)
	require.Len(t, w.msgs, 3)
	assert.JSONEq(t, `{"a":1}`, string(w.msgs[0].Value))
	assert.Equal(t, "raw", string(w.msgs[1].Value))
	assert.Equal(t, "bytes", string(w.msgs[2].Value))
	assert.Equal(t, "k1", string(w.msgs[0].Key))

	assert.Equal(t, float64(3), testutil.ToFloat64(p.metrics.msgs.WithLabelValues("events", "snappy", "ok")))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducerPublishError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := newProducer(w, "events", "snappy", prometheus.NewRegistry())

	err := p.Publish(context.Background(), Message{Value: "x"})
	assert.Error(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(p.metrics.msgs.WithLabelValues("events", "snappy", "error")))
	assert.NoError(t, p.Publish(context.Background()))
}

func TestNewProducerRequiresBrokersAndTopic(t *testing.T) {
	_, err := NewProducer(WithTopic("x"))
	assert.Error(t, err)
	_, err = NewProducer(WithBrokers([]string{"localhost:9092"}))
	assert.Error(t, err)
}

type flakyHandler struct {
	fails int
	calls int
	panic bool
}

func (h *flakyHandler) Topic() string { return "events" }

func (h *flakyHandler) Handle(context.Context, []byte) error {
	h.calls++
	if h.panic {
		panic("boom")
	}
	if h.calls <= h.fails {
		return errors.New("transient")
	}
	return nil
}

func testConsumer(retries int) *Consumer {
	return newConsumer(&ConsumerConfig{
		WorkerCount: 1,
		BufferSize:  1,
		RetryMax:    retries,
		BackoffMin:  time.Millisecond,
		BackoffMax:  2 * time.Millisecond,
		Registerer:  prometheus.NewRegistry(),
		Logger:      applogger.Nop(),
	})
}

func TestHandleWithRetry(t *testing.T) {
	c := testConsumer(3)

	h := &flakyHandler{fails: 2}
	stopped, err := c.handleWithRetry(h, nil)
	assert.False(t, stopped)
	assert.NoError(t, err)
	assert.Equal(t, 3, h.calls)

	h = &flakyHandler{fails: 10}
	_, err = c.handleWithRetry(h, nil)
	assert.Error(t, err)
	assert.Equal(t, 4, h.calls)

	h = &flakyHandler{panic: true}
	_, err = c.handleWithRetry(h, nil)
	assert.ErrorContains(t, err, "panic")
}

func TestProcessDeadLetters(t *testing.T) {
	c := testConsumer(0)
	dlq := &fakeWriter{}
	c.dlq = dlq
	c.RegisterHandler(&flakyHandler{fails: 1})

	c.process(&message{topic: "events", km: kafka.Message{Key: []byte("id"), Value: []byte(`{}`)}})

	require.Len(t, dlq.msgs, 1)
	assert.Equal(t, "id", string(dlq.msgs[0].Key))
	assert.Equal(t, "source_topic", dlq.msgs[0].Headers[0].Key)
}

func TestBackoffWithJitterBounds(t *testing.T) {
	for attempt := 1; attempt < 40; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 100*time.Millisecond, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 100*time.Millisecond)
	}
}
