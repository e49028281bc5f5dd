package listeners

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"property-desk/internal/dto"
	"property-desk/internal/entities"
	"property-desk/internal/infrastructure/pubsub"
	"property-desk/pkg/constants"
	"property-desk/pkg/eventbus"
	"property-desk/pkg/telegram"
)

type sentMessage struct {
	chatID int64
	text   string
}

type fakeSender struct {
	sent chan sentMessage
	err  error
}

func (s *fakeSender) SendMessage(_ context.Context, chatID int64, text string, _ ...telegram.MessageOption) error {
	s.sent <- sentMessage{chatID: chatID, text: text}
	return s.err
}

func manualReviewTicket(id uint64) entities.Ticket {
	reason := null.StringFrom("Automated resolution unavailable")
	address := "221B Baker Street"
	return entities.Ticket{
		ID:              id,
		Title:           "Boiler <broken>",
		Status:          constants.TicketStatusNeedsManualReview,
		Priority:        constants.TicketPriorityUrgent,
		PropertyAddress: &address,
		Metadata:        entities.Metadata{ManualReviewReason: &reason},
	}
}

func waitSent(t *testing.T, sender *fakeSender) sentMessage {
	t.Helper()
	select {
	case msg := <-sender.sent:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("оповещение не отправлено")
		return sentMessage{}
	}
}

func TestManualReviewAlertListener_AlertsOncePerEntry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notifier := pubsub.NewBusNotifier(eventbus.New(zap.NewNop()))
	sender := &fakeSender{sent: make(chan sentMessage, 8)}
	listener := NewManualReviewAlertListener(notifier, sender, 77, zap.NewNop())
	require.NoError(t, listener.Start(ctx))

	ticket := manualReviewTicket(3)
	require.NoError(t, notifier.Publish(ctx, constants.TopicTicketUpdated, ticket))

	first := waitSent(t, sender)
	assert.Equal(t, int64(77), first.chatID)
	assert.Contains(t, first.text, "#3")
	assert.Contains(t, first.text, "Boiler &lt;broken&gt;")
	assert.Contains(t, first.text, "221B Baker Street")
	assert.Contains(t, first.text, "Automated resolution unavailable")

	// повтор того же статуса молчит, выход из статуса сбрасывает отметку
	require.NoError(t, notifier.Publish(ctx, constants.TopicTicketUpdated, ticket))
	reopened := ticket
	reopened.Status = constants.TicketStatusOpen
	require.NoError(t, notifier.Publish(ctx, constants.TopicTicketUpdated, reopened))
	require.NoError(t, notifier.Publish(ctx, constants.TopicTicketUpdated, ticket))

	waitSent(t, sender)
	assert.Len(t, sender.sent, 0)

	cancel()
	listener.Wait()
}

func TestManualReviewAlertListener_DeleteForgetsTicket(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notifier := pubsub.NewBusNotifier(eventbus.New(zap.NewNop()))
	sender := &fakeSender{sent: make(chan sentMessage, 8)}
	listener := NewManualReviewAlertListener(notifier, sender, 1, zap.NewNop())
	require.NoError(t, listener.Start(ctx))

	ticket := manualReviewTicket(9)
	require.NoError(t, notifier.Publish(ctx, constants.TopicTicketUpdated, ticket))
	waitSent(t, sender)

	require.NoError(t, notifier.Publish(ctx, constants.TopicTicketDeleted, dto.DeleteTicketResultDTO{ID: 9, Success: true}))
	// удаление и обновление идут разными топиками, ждём, пока отметка снимется
	require.Eventually(t, func() bool {
		listener.mu.Lock()
		defer listener.mu.Unlock()
		_, ok := listener.alerted[9]
		return !ok
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, notifier.Publish(ctx, constants.TopicTicketUpdated, ticket))
	waitSent(t, sender)
}

func TestManualReviewAlertListener_RetriesAfterSendFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notifier := pubsub.NewBusNotifier(eventbus.New(zap.NewNop()))
	sender := &fakeSender{sent: make(chan sentMessage, 8), err: errors.New("telegram down")}
	listener := NewManualReviewAlertListener(notifier, sender, 1, zap.NewNop())
	require.NoError(t, listener.Start(ctx))

	ticket := manualReviewTicket(4)
	require.NoError(t, notifier.Publish(ctx, constants.TopicTicketUpdated, ticket))
	waitSent(t, sender)
	require.NoError(t, notifier.Publish(ctx, constants.TopicTicketUpdated, ticket))
	waitSent(t, sender)
}
