package services_test

import (
	"context"
	"testing"

	"famhub-backend/application/ports"
	"famhub-backend/application/services"
	"famhub-backend/domain/keys"
	"famhub-backend/infrastructure/persistence/memory"
	apperrors "famhub-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newConversationService(store *memory.Store, objects *fakeObjectStore) *services.ConversationService {
	return services.NewConversationService(store, objects, zap.NewNop()).
		WithClock(testClock(testStart), testIDs())
}

func TestDirectConversationIDIsDeterministic(t *testing.T) {
	store := memory.NewStore()
	svc := newConversationService(store, &fakeObjectStore{})
	ctx := context.Background()

	first, err := svc.CreateConversation(ctx, "alice", []string{"bob"}, "", "")
	require.NoError(t, err)

	second, err := svc.CreateConversation(ctx, "bob", []string{"alice"}, "", "")
	require.NoError(t, err)

	assert.Equal(t, first.ConversationID, second.ConversationID)
	assert.Equal(t, keys.DirectConversationID("bob", "alice"), first.ConversationID)
}

func TestCreateConversationDenormalizesNamesAndUnread(t *testing.T) {
	store := memory.NewStore()
	svc := newConversationService(store, &fakeObjectStore{})
	ctx := context.Background()
	putProfile(t, store, "alice", "Alice")
	putProfile(t, store, "bob", "Bob")

	conversation, err := svc.CreateConversation(ctx, "alice", []string{"bob"}, "", "hello bob")
	require.NoError(t, err)

	creator := getMembership(t, store, "alice", conversation.ConversationID)
	assert.Equal(t, 0, creator.UnreadCount)
	assert.Equal(t, "Alice", creator.ParticipantNames["alice"])
	assert.Equal(t, "Bob", creator.ParticipantNames["bob"])

	other := getMembership(t, store, "bob", conversation.ConversationID)
	assert.Equal(t, 1, other.UnreadCount, "initial message is unread for everyone but the creator")

	messages, err := svc.ListMessages(ctx, "alice", conversation.ConversationID, ports.PageOptions{})
	require.NoError(t, err)
	require.Len(t, messages.Messages, 1)
	assert.Equal(t, "hello bob", messages.Messages[0].Text)
	assert.Equal(t, "alice", messages.Messages[0].SenderID)
}

func TestSendMessageFansOutUnreadCounts(t *testing.T) {
	store := memory.NewStore()
	svc := newConversationService(store, &fakeObjectStore{})
	ctx := context.Background()

	conversation, err := svc.CreateConversation(ctx, "alice", []string{"bob", "carol"}, "family", "")
	require.NoError(t, err)
	require.Equal(t, 3, len(conversation.ParticipantIDs))

	_, err = svc.SendMessage(ctx, "alice", conversation.ConversationID, "dinner at 7", nil)
	require.NoError(t, err)

	assert.Equal(t, 0, getMembership(t, store, "alice", conversation.ConversationID).UnreadCount)
	assert.Equal(t, 1, getMembership(t, store, "bob", conversation.ConversationID).UnreadCount)
	assert.Equal(t, 1, getMembership(t, store, "carol", conversation.ConversationID).UnreadCount)

	_, err = svc.SendMessage(ctx, "bob", conversation.ConversationID, "works for me", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, getMembership(t, store, "alice", conversation.ConversationID).UnreadCount)
	assert.Equal(t, 0, getMembership(t, store, "bob", conversation.ConversationID).UnreadCount)
	assert.Equal(t, 2, getMembership(t, store, "carol", conversation.ConversationID).UnreadCount)
}

func TestSendMessageRequiresMembership(t *testing.T) {
	store := memory.NewStore()
	svc := newConversationService(store, &fakeObjectStore{})
	ctx := context.Background()

	conversation, err := svc.CreateConversation(ctx, "alice", []string{"bob"}, "", "")
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, "mallory", conversation.ConversationID, "let me in", nil)
	assert.True(t, apperrors.IsForbidden(err))
}

func TestMarkRead(t *testing.T) {
	store := memory.NewStore()
	svc := newConversationService(store, &fakeObjectStore{})
	ctx := context.Background()

	conversation, err := svc.CreateConversation(ctx, "alice", []string{"bob"}, "", "")
	require.NoError(t, err)
	for _, text := range []string{"one", "two"} {
		_, err := svc.SendMessage(ctx, "alice", conversation.ConversationID, text, nil)
		require.NoError(t, err)
	}
	require.Equal(t, 2, getMembership(t, store, "bob", conversation.ConversationID).UnreadCount)

	require.NoError(t, svc.MarkRead(ctx, "bob", conversation.ConversationID))
	assert.Equal(t, 0, getMembership(t, store, "bob", conversation.ConversationID).UnreadCount)

	err = svc.MarkRead(ctx, "mallory", conversation.ConversationID)
	assert.True(t, apperrors.IsForbidden(err), "missing membership is a permission problem")
}

func TestListConversationsOrdersByRecency(t *testing.T) {
	store := memory.NewStore()
	svc := newConversationService(store, &fakeObjectStore{})
	ctx := context.Background()

	older, err := svc.CreateConversation(ctx, "alice", []string{"bob"}, "", "")
	require.NoError(t, err)
	newer, err := svc.CreateConversation(ctx, "alice", []string{"bob", "carol"}, "group", "")
	require.NoError(t, err)

	page, err := svc.ListConversations(ctx, "alice", ports.PageOptions{})
	require.NoError(t, err)
	require.Len(t, page.Memberships, 2)
	assert.Equal(t, newer.ConversationID, page.Memberships[0].ConversationID)

	// Activity in the older conversation moves it back to the top.
	_, err = svc.SendMessage(ctx, "bob", older.ConversationID, "ping", nil)
	require.NoError(t, err)

	page, err = svc.ListConversations(ctx, "alice", ports.PageOptions{})
	require.NoError(t, err)
	require.Len(t, page.Memberships, 2)
	assert.Equal(t, older.ConversationID, page.Memberships[0].ConversationID)
}

func TestListMessagesPaginatesNewestFirst(t *testing.T) {
	store := memory.NewStore()
	svc := newConversationService(store, &fakeObjectStore{})
	ctx := context.Background()

	conversation, err := svc.CreateConversation(ctx, "alice", []string{"bob"}, "", "")
	require.NoError(t, err)
	texts := []string{"m1", "m2", "m3", "m4", "m5"}
	for _, text := range texts {
		_, err := svc.SendMessage(ctx, "alice", conversation.ConversationID, text, nil)
		require.NoError(t, err)
	}

	var walked []string
	cursor := ""
	for {
		page, err := svc.ListMessages(ctx, "bob", conversation.ConversationID, ports.PageOptions{Limit: 2, Cursor: cursor})
		require.NoError(t, err)
		for _, m := range page.Messages {
			walked = append(walked, m.Text)
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	assert.Equal(t, []string{"m5", "m4", "m3", "m2", "m1"}, walked)

	_, err = svc.ListMessages(ctx, "mallory", conversation.ConversationID, ports.PageOptions{})
	assert.True(t, apperrors.IsForbidden(err))
}

func TestDeleteConversationCreatorOnly(t *testing.T) {
	store := memory.NewStore()
	objects := &fakeObjectStore{}
	svc := newConversationService(store, objects)
	ctx := context.Background()

	conversation, err := svc.CreateConversation(ctx, "alice", []string{"bob", "carol"}, "group", "hello")
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, "bob", conversation.ConversationID, "with attachment",
		[]string{"messages/attachments/bob/att-1_photo.jpg"})
	require.NoError(t, err)

	err = svc.DeleteConversation(ctx, "bob", conversation.ConversationID)
	assert.True(t, apperrors.IsForbidden(err))

	require.NoError(t, svc.DeleteConversation(ctx, "alice", conversation.ConversationID))

	assert.Equal(t, 0, store.Len(), "meta, messages and memberships all removed")
	assert.Equal(t, []string{"messages/attachments/bob/att-1_photo.jpg"}, objects.deletedKeys())

	err = svc.DeleteConversation(ctx, "alice", conversation.ConversationID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDeleteMessageSenderOnly(t *testing.T) {
	store := memory.NewStore()
	objects := &fakeObjectStore{}
	svc := newConversationService(store, objects)
	ctx := context.Background()

	conversation, err := svc.CreateConversation(ctx, "alice", []string{"bob"}, "", "")
	require.NoError(t, err)
	message, err := svc.SendMessage(ctx, "alice", conversation.ConversationID, "oops",
		[]string{"messages/attachments/alice/att-2_doc.pdf"})
	require.NoError(t, err)

	err = svc.DeleteMessage(ctx, "bob", conversation.ConversationID, message.MessageID)
	assert.True(t, apperrors.IsForbidden(err))

	require.NoError(t, svc.DeleteMessage(ctx, "alice", conversation.ConversationID, message.MessageID))
	assert.Equal(t, []string{"messages/attachments/alice/att-2_doc.pdf"}, objects.deletedKeys())

	err = svc.DeleteMessage(ctx, "alice", conversation.ConversationID, message.MessageID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestFanOutFailuresDoNotLoseTheMessage(t *testing.T) {
	store := memory.NewStore()
	svc := newConversationService(store, &fakeObjectStore{})
	ctx := context.Background()

	conversation, err := svc.CreateConversation(ctx, "alice", []string{"bob"}, "", "")
	require.NoError(t, err)

	// Bob's membership projection is missing; his fan-out update fails but
	// the send still succeeds.
	require.NoError(t, store.Delete(ctx, keys.MembershipKey("bob", conversation.ConversationID)))

	message, err := svc.SendMessage(ctx, "alice", conversation.ConversationID, "still delivered", nil)
	require.NoError(t, err)

	messages, err := svc.ListMessages(ctx, "alice", conversation.ConversationID, ports.PageOptions{})
	require.NoError(t, err)
	require.Len(t, messages.Messages, 1)
	assert.Equal(t, message.MessageID, messages.Messages[0].MessageID)
}

func TestCreateConversationValidation(t *testing.T) {
	svc := newConversationService(memory.NewStore(), &fakeObjectStore{})

	_, err := svc.CreateConversation(context.Background(), "alice", nil, "", "")
	assert.True(t, apperrors.IsValidation(err))
}
