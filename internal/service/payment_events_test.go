package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/codegrade-api/internal/dto"
)

func receive(t *testing.T, ch <-chan dto.PaymentStatusEvent) dto.PaymentStatusEvent {
	t.Helper()
	select {
	case event := <-ch:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for payment event")
		return dto.PaymentStatusEvent{}
	}
}

func requireSilent(t *testing.T, ch <-chan dto.PaymentStatusEvent) {
	t.Helper()
	select {
	case event := <-ch:
		t.Fatalf("unexpected payment event: %+v", event)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPaymentEventHubDeliversOnlyToOwner(t *testing.T) {
	hub := NewPaymentEventHub(nil, nil, "codegrade:payments", zerolog.Nop())

	mine, cancelMine := hub.Subscribe(ownerID)
	defer cancelMine()
	theirs, cancelTheirs := hub.Subscribe(strangerID)
	defer cancelTheirs()

	hub.Publish(context.Background(), dto.PaymentStatusEvent{PaymentID: "pay-1", UserID: ownerID, From: "pending", To: "paid"})

	event := receive(t, mine)
	require.Equal(t, "pay-1", event.PaymentID)
	requireSilent(t, theirs)
}

func TestPaymentEventHubCleanupIsIdempotent(t *testing.T) {
	hub := NewPaymentEventHub(nil, nil, "", zerolog.Nop())

	ch, cancel := hub.Subscribe(ownerID)
	cancel()
	cancel()

	_, open := <-ch
	require.False(t, open)
	require.NotPanics(t, func() {
		hub.Publish(context.Background(), dto.PaymentStatusEvent{UserID: ownerID})
	})
}

func TestPaymentEventHubFansOutAcrossNodesViaRedis(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	nodeA := NewPaymentEventHub(redis.NewClient(&redis.Options{Addr: mini.Addr()}), nil, "codegrade:payments", zerolog.Nop())
	nodeB := NewPaymentEventHub(redis.NewClient(&redis.Options{Addr: mini.Addr()}), nil, "codegrade:payments", zerolog.Nop())
	nodeA.Start(ctx)
	nodeB.Start(ctx)

	require.Eventually(t, func() bool {
		return mini.PubSubNumSub("codegrade:payments:status")["codegrade:payments:status"] == 2
	}, 2*time.Second, 10*time.Millisecond)

	onA, cancelA := nodeA.Subscribe(ownerID)
	defer cancelA()
	onB, cancelB := nodeB.Subscribe(ownerID)
	defer cancelB()

	nodeA.Publish(ctx, dto.PaymentStatusEvent{PaymentID: "pay-2", UserID: ownerID, From: "pending", To: "failed"})

	require.Equal(t, "pay-2", receive(t, onA).PaymentID)
	require.Equal(t, "pay-2", receive(t, onB).PaymentID)
	requireSilent(t, onA)
}
