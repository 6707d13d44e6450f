package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	v1 "github.com/storefront-lab/orders/internal/api/v1"
	"github.com/storefront-lab/orders/internal/core/storage"
)

const defaultQueuePrefix = "orders.intake"

// Options holds the broker settings for the AMQP intake queue.
type Options struct {
	URL         string
	QueuePrefix string
	Partitions  int
}

// connection is the subset of *amqp.Connection the queue uses.
type connection interface {
	IsClosed() bool
	Close() error
}

// consumerChannel is the subset of *amqp.Channel a partition consumer uses.
type consumerChannel interface {
	Get(queue string, autoAck bool) (amqp.Delivery, bool, error)
	NotifyClose(c chan *amqp.Error) chan *amqp.Error
	Close() error
}

// publishChannel is a channel in confirm mode.
type publishChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	publish(ctx context.Context, key string, msg amqp.Publishing) (confirmation, error)
	NotifyClose(c chan *amqp.Error) chan *amqp.Error
	Close() error
}

// confirmation is the broker's pending answer to one publish.
type confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

// confirmChannel publishes with publisher confirms.
type confirmChannel struct {
	*amqp.Channel
}

func newConfirmChannel(ch *amqp.Channel) (*confirmChannel, error) {
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}
	return &confirmChannel{Channel: ch}, nil
}

func (c *confirmChannel) publish(ctx context.Context, key string, msg amqp.Publishing) (confirmation, error) {
	dc, err := c.PublishWithDeferredConfirmWithContext(ctx,
		"",    // default exchange
		key,   // routing key
		false, // mandatory
		false, // immediate
		msg,
	)
	if err != nil {
		return nil, err
	}
	if dc == nil {
		return nil, errors.New("publish channel is not in confirm mode")
	}
	return dc, nil
}

// Queue implements storage.OrderQueue on one durable RabbitMQ queue per partition.
//
// Enqueue waits for the broker's publisher confirm. A dequeued delivery stays
// unacknowledged until the worker transaction finishes: it is acked after commit
// and nacked with requeue on rollback. A crash between commit and ack redelivers
// the order, which the statistics guard absorbs.
//
// A channel closed by the broker is reported by Ping and reopened on next use
// while the connection is up. A lost connection needs a restart.
type Queue struct {
	conn   connection
	prefix string

	openConsumer  func() (consumerChannel, error)
	openPublisher func() (publishChannel, error)

	// publishMu serialises publishes on the shared channel.
	publishMu sync.Mutex

	mu          sync.Mutex
	publishCh   publishChannel
	publishDown error
	// consumers holds one channel per partition; each is used by a single worker.
	consumers    []consumerChannel
	consumerDown []error
}

// NewQueue dials the broker, opens the channels and declares every partition queue.
func NewQueue(opts Options) (*Queue, error) {
	if opts.Partitions <= 0 {
		return nil, fmt.Errorf("amqp queue: partitions must be > 0, got %d", opts.Partitions)
	}

	conn, err := amqp.Dial(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w: %w", storage.ErrStoreUnavailable, err)
	}

	openConsumer := func() (consumerChannel, error) {
		ch, err := conn.Channel()
		if err != nil {
			return nil, err
		}
		return ch, nil
	}
	openPublisher := func() (publishChannel, error) {
		ch, err := conn.Channel()
		if err != nil {
			return nil, err
		}
		return newConfirmChannel(ch)
	}

	publish, err := openPublisher()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open publish channel: %w", err)
	}

	consumers := make([]consumerChannel, opts.Partitions)
	for i := range consumers {
		ch, err := openConsumer()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to open channel for partition %d: %w", i, err)
		}
		consumers[i] = ch
	}

	q, err := newQueue(conn, publish, consumers, opts.QueuePrefix)
	if err != nil {
		conn.Close()
		return nil, err
	}
	q.openConsumer = openConsumer
	q.openPublisher = openPublisher

	slog.Info("[AMQPQueue] Connected", "prefix", q.prefix, "partitions", opts.Partitions)
	return q, nil
}

func newQueue(conn connection, publish publishChannel, consumers []consumerChannel, prefix string) (*Queue, error) {
	if prefix == "" {
		prefix = defaultQueuePrefix
	}
	q := &Queue{
		conn:         conn,
		prefix:       prefix,
		publishCh:    publish,
		consumers:    consumers,
		consumerDown: make([]error, len(consumers)),
	}

	for i := range consumers {
		_, err := publish.QueueDeclare(
			q.queueName(i),
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			return nil, fmt.Errorf("failed to declare queue %s: %w", q.queueName(i), err)
		}
	}

	q.watchPublisher(publish)
	for i, ch := range consumers {
		q.watchConsumer(i, ch)
	}
	return q, nil
}

func (q *Queue) queueName(partition int) string {
	return fmt.Sprintf("%s.%d", q.prefix, partition)
}

func (q *Queue) checkPartition(partition int) error {
	if partition < 0 || partition >= len(q.consumers) {
		return fmt.Errorf("amqp queue: partition %d out of range [0, %d)", partition, len(q.consumers))
	}
	return nil
}

// watchConsumer records the broker closing ch. A stale watcher never marks a reopened channel.
func (q *Queue) watchConsumer(partition int, ch consumerChannel) {
	notify := ch.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		reason := closeReason(notify)
		q.mu.Lock()
		defer q.mu.Unlock()
		if q.consumers[partition] == ch {
			q.consumerDown[partition] = reason
			slog.Warn("[AMQPQueue] Consumer channel closed", "partition", partition, "error", reason)
		}
	}()
}

func (q *Queue) watchPublisher(ch publishChannel) {
	notify := ch.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		reason := closeReason(notify)
		q.mu.Lock()
		defer q.mu.Unlock()
		if q.publishCh == ch {
			q.publishDown = reason
			slog.Warn("[AMQPQueue] Publish channel closed", "error", reason)
		}
	}()
}

func closeReason(notify chan *amqp.Error) error {
	if err, ok := <-notify; ok && err != nil {
		return err
	}
	return amqp.ErrClosed
}

// consumer returns the partition's channel, reopening it if the broker closed it.
func (q *Queue) consumer(partition int) (consumerChannel, error) {
	if err := q.checkPartition(partition); err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	down := q.consumerDown[partition]
	if down == nil {
		return q.consumers[partition], nil
	}
	if q.openConsumer == nil || q.conn.IsClosed() {
		return nil, fmt.Errorf("consumer channel %d closed: %w: %w", partition, storage.ErrStoreUnavailable, down)
	}

	ch, err := q.openConsumer()
	if err != nil {
		return nil, fmt.Errorf("reopen consumer channel %d: %w: %w", partition, storage.ErrStoreUnavailable, err)
	}
	q.consumers[partition] = ch
	q.consumerDown[partition] = nil
	q.watchConsumer(partition, ch)

	slog.Info("[AMQPQueue] Reopened consumer channel", "partition", partition)
	return ch, nil
}

func (q *Queue) publisher() (publishChannel, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	down := q.publishDown
	if down == nil {
		return q.publishCh, nil
	}
	if q.openPublisher == nil || q.conn.IsClosed() {
		return nil, fmt.Errorf("publish channel closed: %w: %w", storage.ErrStoreUnavailable, down)
	}

	ch, err := q.openPublisher()
	if err != nil {
		return nil, fmt.Errorf("reopen publish channel: %w: %w", storage.ErrStoreUnavailable, err)
	}
	q.publishCh = ch
	q.publishDown = nil
	q.watchPublisher(ch)

	slog.Info("[AMQPQueue] Reopened publish channel")
	return ch, nil
}

// Enqueue publishes the order as a persistent message and waits for the broker to confirm it.
// A negative confirm is reported as storage.ErrStoreUnavailable.
func (q *Queue) Enqueue(ctx context.Context, partition int, order *v1.Order) error {
	if err := q.checkPartition(partition); err != nil {
		return err
	}

	body, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}

	pub, err := q.publisher()
	if err != nil {
		return err
	}

	q.publishMu.Lock()
	confirm, err := pub.publish(ctx, q.queueName(partition), amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    order.ID.String(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	q.publishMu.Unlock()
	if err != nil {
		return fmt.Errorf("publish order: %w: %w", storage.ErrStoreUnavailable, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("await publish confirm: %w: %w", storage.ErrStoreUnavailable, err)
	}
	if !acked {
		return fmt.Errorf("broker rejected order %s: %w", order.ID, storage.ErrStoreUnavailable)
	}

	slog.Debug("[AMQPQueue] Enqueued order", "order_id", order.ID, "partition", partition)
	return nil
}

// Dequeue fetches the head delivery of the partition and ties its acknowledgement to tx.
func (q *Queue) Dequeue(ctx context.Context, tx *storage.Tx, partition int) (*v1.Order, error) {
	ch, err := q.consumer(partition)
	if err != nil {
		return nil, err
	}

	msg, ok, err := ch.Get(q.queueName(partition), false)
	if err != nil {
		return nil, fmt.Errorf("get delivery: %w: %w", storage.ErrStoreUnavailable, err)
	}
	if !ok {
		return nil, nil
	}

	var order v1.Order
	if err := json.Unmarshal(msg.Body, &order); err != nil {
		// Dropped on commit; requeued only if the drop itself is abandoned.
		tx.OnCommit(func(context.Context) error {
			return msg.Reject(false)
		})
		tx.OnRollback(func(context.Context) {
			nack(msg)
		})
		return nil, fmt.Errorf("%w: delivery %d: %w", storage.ErrMalformedOrder, msg.DeliveryTag, err)
	}

	tx.OnCommit(func(context.Context) error {
		if err := msg.Ack(false); err != nil {
			return fmt.Errorf("ack order %s: %w", order.ID, err)
		}
		return nil
	})
	tx.OnRollback(func(context.Context) {
		nack(msg)
	})

	return &order, nil
}

func nack(msg amqp.Delivery) {
	if err := msg.Nack(false, true); err != nil {
		slog.Warn("[AMQPQueue] Failed to requeue delivery", "tag", msg.DeliveryTag, "error", err)
	}
}

// Ping reports whether the connection and every channel are open.
func (q *Queue) Ping(ctx context.Context) error {
	if q.conn.IsClosed() {
		return fmt.Errorf("amqp connection closed: %w", storage.ErrStoreUnavailable)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.publishDown != nil {
		return fmt.Errorf("amqp publish channel closed: %w: %w", storage.ErrStoreUnavailable, q.publishDown)
	}
	for i, down := range q.consumerDown {
		if down != nil {
			return fmt.Errorf("amqp consumer channel %d closed: %w: %w", i, storage.ErrStoreUnavailable, down)
		}
	}
	return nil
}

// Close closes every channel and the connection.
func (q *Queue) Close() error {
	q.mu.Lock()
	consumers := append([]consumerChannel(nil), q.consumers...)
	publish := q.publishCh
	q.mu.Unlock()

	for _, ch := range consumers {
		ch.Close()
	}
	publish.Close()
	return q.conn.Close()
}
