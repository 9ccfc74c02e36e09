package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codegrade-api/internal/dto"
	"github.com/noah-isme/codegrade-api/internal/observability"
)

const paymentEventBufferSize = 16

// PaymentEventPublisher broadcasts payment status changes.
type PaymentEventPublisher interface {
	Publish(ctx context.Context, event dto.PaymentStatusEvent)
}

// PaymentEventHub streams payment status changes to subscribed users across nodes.
type PaymentEventHub interface {
	PaymentEventPublisher
	Subscribe(userID string) (<-chan dto.PaymentStatusEvent, func())
	Start(ctx context.Context)
}

type paymentEventHub struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	broker       *paymentBroker
	nodeID       string
}

type paymentEnvelope struct {
	Source string                 `json:"source"`
	Event  dto.PaymentStatusEvent `json:"event"`
	SentAt time.Time              `json:"sent_at"`
}

type paymentBroker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan dto.PaymentStatusEvent]struct{}
}

// NewPaymentEventHub constructs the hub. NATS is preferred for cross-node delivery when both brokers are set;
// with neither, events only reach subscribers on this node.
func NewPaymentEventHub(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) PaymentEventHub {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":status"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".status"
	}

	return &paymentEventHub{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "payment_events").Logger(),
		broker: &paymentBroker{
			subscribers: make(map[string]map[chan dto.PaymentStatusEvent]struct{}),
		},
		nodeID: uuid.NewString(),
	}
}

func (h *paymentEventHub) useNATS() bool {
	return h.nats != nil && h.natsSubject != ""
}

func (h *paymentEventHub) useRedis() bool {
	return !h.useNATS() && h.redis != nil && h.redisChannel != ""
}

func (h *paymentEventHub) Start(ctx context.Context) {
	switch {
	case h.useNATS():
		h.consumeNATS(ctx)
	case h.useRedis():
		go h.consumeRedis(ctx)
	}
}

func (h *paymentEventHub) Publish(ctx context.Context, event dto.PaymentStatusEvent) {
	h.broker.broadcast(event.UserID, event)

	if err := h.publish(ctx, event); err != nil {
		h.logger.Warn().Err(err).Str("payment_id", event.PaymentID).Msg("failed to publish payment event to broker")
	}
}

func (h *paymentEventHub) Subscribe(userID string) (<-chan dto.PaymentStatusEvent, func()) {
	channel := make(chan dto.PaymentStatusEvent, paymentEventBufferSize)

	h.broker.subscribe(userID, channel)
	observability.PaymentStreamClients().Inc()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			h.broker.unsubscribe(userID, channel)
			observability.PaymentStreamClients().Dec()
		})
	}

	return channel, cleanup
}

func (h *paymentEventHub) publish(ctx context.Context, event dto.PaymentStatusEvent) error {
	if !h.useNATS() && !h.useRedis() {
		return nil
	}

	payload, err := json.Marshal(paymentEnvelope{
		Source: h.nodeID,
		Event:  event,
		SentAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	if h.useNATS() {
		return h.nats.Publish(h.natsSubject, payload)
	}
	return h.redis.Publish(ctx, h.redisChannel, payload).Err()
}

func (h *paymentEventHub) consumeRedis(ctx context.Context) {
	pubsub := h.redis.Subscribe(ctx, h.redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			h.logger.Error().Err(err).Msg("payment event redis subscription closed")
			return
		}
		h.handleEnvelope([]byte(msg.Payload))
	}
}

// Every node must receive every event, so no queue group.
func (h *paymentEventHub) consumeNATS(ctx context.Context) {
	sub, err := h.nats.Subscribe(h.natsSubject, func(msg *nats.Msg) {
		h.handleEnvelope(msg.Data)
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to subscribe to nats payment subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			h.logger.Warn().Err(err).Msg("failed to drain payment nats subscription")
		}
	}()
}

func (h *paymentEventHub) handleEnvelope(payload []byte) {
	var envelope paymentEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		h.logger.Warn().Err(err).Msg("invalid payment event payload")
		return
	}

	if envelope.Source == h.nodeID || envelope.Event.UserID == "" {
		return
	}

	h.broker.broadcast(envelope.Event.UserID, envelope.Event)
}

func (b *paymentBroker) subscribe(userID string, ch chan dto.PaymentStatusEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[userID]; !exists {
		b.subscribers[userID] = make(map[chan dto.PaymentStatusEvent]struct{})
	}
	b.subscribers[userID][ch] = struct{}{}
}

func (b *paymentBroker) unsubscribe(userID string, ch chan dto.PaymentStatusEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[userID]; ok {
		if _, present := subscribers[ch]; !present {
			return
		}
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(b.subscribers, userID)
		}
	}
}

// broadcast drops events for subscribers whose buffer is full.
func (b *paymentBroker) broadcast(userID string, event dto.PaymentStatusEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[userID] {
		select {
		case ch <- event:
		default:
		}
	}
}
