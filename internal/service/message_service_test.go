package service

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/dormdesk/maintenance-service/internal/events"
)

func TestPostAndListMessages(t *testing.T) {
	f := newTicketFixture(t)
	messages := newFakeMessageRepo(f.users)
	dispatcher := &recordingDispatcher{}
	svc := NewMessageService(messages, f.tickets, dispatcher)
	ctx := context.Background()

	ticket := f.newTicket(t)

	first, err := svc.Post(ctx, f.resident, ticket.ID, "  is anyone coming today?  ")
	require.NoError(t, err)
	require.Equal(t, "is anyone coming today?", first.Body)
	require.Equal(t, "Dana", first.SenderName)

	second, err := svc.Post(ctx, f.technician, ticket.ID, "on my way")
	require.NoError(t, err)
	require.Equal(t, "Theo", second.SenderName)

	listed, err := svc.List(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	require.Equal(t, first.ID, listed[0].ID)
	require.Equal(t, second.ID, listed[1].ID)

	posted := dispatcher.ofType(events.EventMessagePosted)
	require.Len(t, posted, 2)
	require.NotEmpty(t, posted[0].ID)
	require.False(t, posted[0].Timestamp.IsZero())
	require.Equal(t, f.resident.ID, posted[0].ActorID)
	require.Equal(t, f.technician.ID, posted[1].ActorID)
}

func TestBodyPreviewKeepsRunesIntact(t *testing.T) {
	long := strings.Repeat("น้ำรั่วในห้องน้ำ ", 20)

	preview := bodyPreview(long, 120)
	require.True(t, utf8.ValidString(preview))
	require.LessOrEqual(t, len([]rune(preview)), 120)
	require.True(t, strings.HasSuffix(preview, "..."))

	require.Equal(t, "สั้น", bodyPreview("สั้น", 120))
	require.Equal(t, "น้ำ", bodyPreview("น้ำรั่ว", 3))
}

func TestPostMessageValidation(t *testing.T) {
	f := newTicketFixture(t)
	svc := NewMessageService(newFakeMessageRepo(f.users), f.tickets, nil)
	ctx := context.Background()

	ticket := f.newTicket(t)

	_, err := svc.Post(ctx, f.resident, ticket.ID, "   ")
	requireCode(t, err, "VALIDATION_FAILED")

	_, err = svc.Post(ctx, f.resident, 9999, "hello?")
	requireCode(t, err, "NOT_FOUND")

	_, err = svc.List(ctx, 9999)
	requireCode(t, err, "NOT_FOUND")
}
