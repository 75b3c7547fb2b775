package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	EventQueueUpdated = "queueUpdated"

	// Redis pub/sub channel carrying queue events between instances
	QueueEventsChannel = "queue-events"
)

// QueuePayload is the body delivered to queue subscribers.
type QueuePayload struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Date     string    `json:"date"`
}

// QueueEvent is published on the channel of one doctor's day.
type QueueEvent struct {
	Channel string       `json:"channel"`
	Event   string       `json:"event"`
	Payload QueuePayload `json:"payload"`
}

// QueueChannel returns the channel key subscribers of a doctor's day join.
func QueueChannel(doctorID uuid.UUID, queueDate string) string {
	return doctorID.String() + ":" + queueDate
}

// NewQueueUpdatedEvent builds the event emitted after the queue advances.
func NewQueueUpdatedEvent(doctorID uuid.UUID, queueDate string) QueueEvent {
	return QueueEvent{
		Channel: QueueChannel(doctorID, queueDate),
		Event:   EventQueueUpdated,
		Payload: QueuePayload{DoctorID: doctorID, Date: queueDate},
	}
}

// QueueNotifier publishes queue events. Delivery is at-most-once and best
// effort; callers log failures and carry on.
type QueueNotifier interface {
	Publish(ctx context.Context, event QueueEvent) error
}

// QueueEventSink receives relayed events, typically the websocket hub.
type QueueEventSink interface {
	Broadcast(channel string, event QueueEvent)
}

type redisQueueNotifier struct {
	redisClient *redis.Client
	log         *logrus.Logger
}

func NewRedisQueueNotifier(redisClient *redis.Client, log *logrus.Logger) QueueNotifier {
	return &redisQueueNotifier{
		redisClient: redisClient,
		log:         log,
	}
}

func (n *redisQueueNotifier) Publish(ctx context.Context, event QueueEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal queue event: %w", err)
	}

	if err := n.redisClient.Publish(ctx, QueueEventsChannel, data).Err(); err != nil {
		return fmt.Errorf("publish queue event to %s: %w", QueueEventsChannel, err)
	}

	n.log.Debugf("Published %s on %s", event.Event, event.Channel)
	return nil
}

// QueueEventRelay forwards events from the redis channel to a local sink so
// every instance reaches its own websocket clients.
type QueueEventRelay struct {
	redisClient *redis.Client
	sink        QueueEventSink
	log         *logrus.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewQueueEventRelay(redisClient *redis.Client, sink QueueEventSink, log *logrus.Logger) *QueueEventRelay {
	return &QueueEventRelay{
		redisClient: redisClient,
		sink:        sink,
		log:         log,
	}
}

// Start subscribes and relays in the background until Stop is called.
func (r *QueueEventRelay) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	sub := r.redisClient.Subscribe(ctx, QueueEventsChannel)

	// Wait for the subscription to be confirmed before returning
	if _, err := sub.Receive(ctx); err != nil {
		cancel()
		sub.Close()
		return fmt.Errorf("subscribe %s: %w", QueueEventsChannel, err)
	}

	r.cancel = cancel
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer sub.Close()
		r.relay(ctx, sub.Channel())
	}()

	r.log.Infof("Listening for queue events on %s", QueueEventsChannel)
	return nil
}

func (r *QueueEventRelay) relay(ctx context.Context, ch <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.handle(msg.Payload)
		}
	}
}

func (r *QueueEventRelay) handle(payload string) {
	var event QueueEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		r.log.Warnf("Failed to parse queue event: %+v", err)
		return
	}
	r.sink.Broadcast(event.Channel, event)
}

// Stop ends the subscription and waits for the relay goroutine.
func (r *QueueEventRelay) Stop() {
	if r.cancel != nil {
		r.cancel()
		r.wg.Wait()
		r.log.Info("QueueEventRelay stopped")
	}
}
