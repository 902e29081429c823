package services

import (
	"context"
	"sort"
	"time"

	"famhub-backend/application/ports"
	"famhub-backend/domain/keys"
	"famhub-backend/domain/model"
	apperrors "famhub-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	maxMessageLength = 10000

	// fanoutConcurrency bounds the parallel per-participant membership
	// updates after a message send.
	fanoutConcurrency = 5
)

// ConversationService implements ports.ConversationRepository. A membership
// record is both a user's inbox projection of the conversation and their
// authorization to read and post in it. Fan-out after a send updates each
// participant independently; a partial failure leaves unread counters stale
// for some participants but never loses the message.
type ConversationService struct {
	store   ports.ItemStore
	objects ports.ObjectStore
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string
}

// NewConversationService creates the conversation service.
func NewConversationService(store ports.ItemStore, objects ports.ObjectStore, logger *zap.Logger) *ConversationService {
	return &ConversationService{
		store:   store,
		objects: objects,
		logger:  logger.Named("conversations"),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// WithClock replaces the time and id sources, for tests.
func (s *ConversationService) WithClock(now func() time.Time, newID func() string) *ConversationService {
	s.now = now
	s.newID = newID
	return s
}

// CreateConversation writes the canonical metadata record plus one
// membership per participant, batched. Two-party conversations get a
// deterministic id derived from the participant pair, so creating the same
// direct conversation twice lands on the same records without a lookup.
func (s *ConversationService) CreateConversation(ctx context.Context, creatorID string, participantIDs []string, title, initialMessage string) (*model.Conversation, error) {
	participants := normalizeParticipants(creatorID, participantIDs)
	if len(participants) < 2 {
		return nil, apperrors.NewValidationError("a conversation needs at least two participants")
	}
	if len(initialMessage) > maxMessageLength {
		return nil, apperrors.NewValidationError("message text too long")
	}

	var conversationID, convType string
	if len(participants) == 2 {
		conversationID = keys.DirectConversationID(participants[0], participants[1])
		convType = model.ConversationTypeDirect
	} else {
		conversationID = keys.GroupConversationID(s.newID())
		convType = model.ConversationTypeGroup
	}

	now := s.now()
	names := s.lookupDisplayNames(ctx, participants)

	metaKey := keys.ConversationMetaKey(conversationID)
	conversation := model.Conversation{
		PK:             metaKey.PK,
		SK:             metaKey.SK,
		EntityType:     model.EntityTypeConversation,
		ConversationID: conversationID,
		CreatorID:      creatorID,
		ParticipantIDs: participants,
		Type:           convType,
		Title:          title,
		CreatedAt:      now,
	}

	puts := make([]map[string]types.AttributeValue, 0, len(participants)+1)
	metaItem, err := attributevalue.MarshalMap(conversation)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal conversation")
	}
	puts = append(puts, metaItem)

	for _, userID := range participants {
		unread := 0
		if userID != creatorID && initialMessage != "" {
			unread = 1
		}
		membershipKey := keys.MembershipKey(userID, conversationID)
		gsiPK, gsiSK := keys.MembershipRecencyGSI(userID, now)
		membership := model.ConversationMembership{
			PK:               membershipKey.PK,
			SK:               membershipKey.SK,
			GSI1PK:           gsiPK,
			GSI1SK:           gsiSK,
			EntityType:       model.EntityTypeMembership,
			UserID:           userID,
			ConversationID:   conversationID,
			CreatorID:        creatorID,
			Type:             convType,
			Title:            title,
			ParticipantIDs:   participants,
			ParticipantNames: names,
			LastMessageAt:    now,
			CreatedAt:        now,
			UnreadCount:      unread,
		}
		item, err := attributevalue.MarshalMap(membership)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to marshal membership")
		}
		puts = append(puts, item)
	}

	if err := s.store.BatchWrite(ctx, puts, nil); err != nil {
		return nil, err
	}

	if initialMessage != "" {
		if err := s.putMessage(ctx, conversationID, creatorID, initialMessage, nil, participants, now); err != nil {
			return nil, err
		}
	}
	return &conversation, nil
}

// SendMessage writes the message, then fans the recency and unread updates
// out to every participant's membership. The sender must hold a membership;
// that lookup is the authorization check.
func (s *ConversationService) SendMessage(ctx context.Context, senderID, conversationID, text string, attachmentKeys []string) (*model.Message, error) {
	if text == "" && len(attachmentKeys) == 0 {
		return nil, apperrors.NewValidationError("message needs text or attachments")
	}
	if len(text) > maxMessageLength {
		return nil, apperrors.NewValidationError("message text too long")
	}

	membership, err := s.requireMembership(ctx, senderID, conversationID)
	if err != nil {
		return nil, err
	}

	participants := membership.ParticipantIDs
	if len(participants) == 0 {
		participants = []string{senderID}
	}

	now := s.now()
	messageID := keys.NewMessageID(now, s.newID())
	messageKey := keys.MessageKey(conversationID, messageID)
	message := model.Message{
		PK:             messageKey.PK,
		SK:             messageKey.SK,
		EntityType:     model.EntityTypeMessage,
		ConversationID: conversationID,
		MessageID:      messageID,
		SenderID:       senderID,
		Text:           text,
		AttachmentKeys: attachmentKeys,
		Participants:   participants,
		CreatedAt:      now,
	}
	item, err := attributevalue.MarshalMap(message)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal message")
	}
	if err := s.store.Put(ctx, item, nil); err != nil {
		return nil, err
	}

	s.fanOut(ctx, conversationID, senderID, participants, now)
	return &message, nil
}

// fanOut refreshes every participant's membership after a send. Each update
// is independent; failures are logged and the rest proceed.
func (s *ConversationService) fanOut(ctx context.Context, conversationID, senderID string, participants []string, sentAt time.Time) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fanoutConcurrency)

	for _, userID := range participants {
		userID := userID
		g.Go(func() error {
			gsiPK, gsiSK := keys.MembershipRecencyGSI(userID, sentAt)
			update := ports.UpdateInput{
				Key: keys.MembershipKey(userID, conversationID),
				Set: map[string]types.AttributeValue{
					"LastMessageAt": timeValue(sentAt),
					"GSI1PK":        stringValue(gsiPK),
					"GSI1SK":        stringValue(gsiSK),
				},
				Condition: ports.ItemExists(),
			}
			if userID != senderID {
				update.Add = map[string]int{"UnreadCount": 1}
			}
			if _, err := s.store.Update(ctx, update); err != nil {
				s.logger.Warn("membership fan-out update failed",
					zap.String("conversation_id", conversationID),
					zap.String("user_id", userID),
					zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

// MarkRead zeroes the caller's own unread counter. A missing membership means
// the caller is not a participant, which is a permission problem rather than
// a missing resource.
func (s *ConversationService) MarkRead(ctx context.Context, userID, conversationID string) error {
	_, err := s.store.Update(ctx, ports.UpdateInput{
		Key:       keys.MembershipKey(userID, conversationID),
		Set:       map[string]types.AttributeValue{"UnreadCount": numberValue(0)},
		Condition: ports.ItemExists(),
	})
	if apperrors.IsConflict(err) {
		return apperrors.NewForbiddenError("not a participant in this conversation")
	}
	return err
}

// ListConversations pages through the caller's memberships, most recent
// activity first.
func (s *ConversationService) ListConversations(ctx context.Context, userID string, page ports.PageOptions) (*ports.MembershipPage, error) {
	result, err := s.store.Query(ctx, ports.QueryInput{
		Partition:  keys.UserPartition(userID),
		SortPrefix: keys.RecencyPrefix,
		IndexName:  ports.GSI1IndexName,
		Limit:      page.Limit,
		Cursor:     page.Cursor,
		Descending: true,
	})
	if err != nil {
		return nil, err
	}

	out := &ports.MembershipPage{NextCursor: result.NextCursor}
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &out.Memberships); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal memberships")
	}
	return out, nil
}

// ListMessages pages through a conversation the caller participates in,
// newest first.
func (s *ConversationService) ListMessages(ctx context.Context, userID, conversationID string, page ports.PageOptions) (*ports.MessagePage, error) {
	if _, err := s.requireMembership(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	result, err := s.store.Query(ctx, ports.QueryInput{
		Partition:  keys.ConversationPartition(conversationID),
		SortPrefix: keys.MessagePrefix,
		Limit:      page.Limit,
		Cursor:     page.Cursor,
		Descending: true,
	})
	if err != nil {
		return nil, err
	}

	out := &ports.MessagePage{NextCursor: result.NextCursor}
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &out.Messages); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal messages")
	}
	return out, nil
}

// DeleteConversation removes the metadata record, every message and every
// membership. Only the creator may delete; the creator is resolved from the
// metadata record, falling back to the caller's membership for conversations
// that predate metadata records. Attachment objects are removed best-effort.
func (s *ConversationService) DeleteConversation(ctx context.Context, callerID, conversationID string) error {
	conversation, membership, err := s.resolveForDelete(ctx, callerID, conversationID)
	if err != nil {
		return err
	}

	creatorID := membership.CreatorID
	participants := membership.ParticipantIDs
	if conversation != nil {
		creatorID = conversation.CreatorID
		participants = conversation.ParticipantIDs
	}
	if callerID != creatorID {
		return apperrors.NewForbiddenError("only the creator may delete a conversation")
	}

	deletes, attachments, err := s.collectConversationRows(ctx, conversationID)
	if err != nil {
		return err
	}
	for _, userID := range participants {
		deletes = append(deletes, keys.MembershipKey(userID, conversationID))
	}

	if err := s.store.BatchWrite(ctx, nil, deletes); err != nil {
		return err
	}
	s.deleteObjects(ctx, attachments)
	return nil
}

// DeleteMessage removes one message. Only the sender may delete it.
func (s *ConversationService) DeleteMessage(ctx context.Context, callerID, conversationID, messageID string) error {
	key := keys.MessageKey(conversationID, messageID)
	item, err := s.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if item == nil {
		return apperrors.NewNotFoundError("message")
	}

	var message model.Message
	if err := attributevalue.UnmarshalMap(item, &message); err != nil {
		return apperrors.Wrap(err, "failed to unmarshal message")
	}
	if message.SenderID != callerID {
		return apperrors.NewForbiddenError("only the sender may delete a message")
	}

	if err := s.store.Delete(ctx, key); err != nil {
		return err
	}
	s.deleteObjects(ctx, message.AttachmentKeys)
	return nil
}

func (s *ConversationService) putMessage(ctx context.Context, conversationID, senderID, text string, attachmentKeys, participants []string, sentAt time.Time) error {
	messageID := keys.NewMessageID(sentAt, s.newID())
	messageKey := keys.MessageKey(conversationID, messageID)
	message := model.Message{
		PK:             messageKey.PK,
		SK:             messageKey.SK,
		EntityType:     model.EntityTypeMessage,
		ConversationID: conversationID,
		MessageID:      messageID,
		SenderID:       senderID,
		Text:           text,
		AttachmentKeys: attachmentKeys,
		Participants:   participants,
		CreatedAt:      sentAt,
	}
	item, err := attributevalue.MarshalMap(message)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal message")
	}
	return s.store.Put(ctx, item, nil)
}

func (s *ConversationService) requireMembership(ctx context.Context, userID, conversationID string) (*model.ConversationMembership, error) {
	item, err := s.store.Get(ctx, keys.MembershipKey(userID, conversationID))
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperrors.NewForbiddenError("not a participant in this conversation")
	}

	var membership model.ConversationMembership
	if err := attributevalue.UnmarshalMap(item, &membership); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal membership")
	}
	return &membership, nil
}

func (s *ConversationService) resolveForDelete(ctx context.Context, callerID, conversationID string) (*model.Conversation, *model.ConversationMembership, error) {
	metaItem, err := s.store.Get(ctx, keys.ConversationMetaKey(conversationID))
	if err != nil {
		return nil, nil, err
	}

	var conversation *model.Conversation
	if metaItem != nil {
		conversation = &model.Conversation{}
		if err := attributevalue.UnmarshalMap(metaItem, conversation); err != nil {
			return nil, nil, apperrors.Wrap(err, "failed to unmarshal conversation")
		}
	}

	membershipItem, err := s.store.Get(ctx, keys.MembershipKey(callerID, conversationID))
	if err != nil {
		return nil, nil, err
	}
	if conversation == nil && membershipItem == nil {
		return nil, nil, apperrors.NewNotFoundError("conversation")
	}

	membership := &model.ConversationMembership{}
	if membershipItem != nil {
		if err := attributevalue.UnmarshalMap(membershipItem, membership); err != nil {
			return nil, nil, apperrors.Wrap(err, "failed to unmarshal membership")
		}
	}
	return conversation, membership, nil
}

// collectConversationRows scans the conversation partition and returns the
// keys of every row in it plus all attachment keys referenced by messages.
func (s *ConversationService) collectConversationRows(ctx context.Context, conversationID string) ([]keys.Key, []string, error) {
	var rowKeys []keys.Key
	var attachments []string
	cursor := ""
	for {
		result, err := s.store.Query(ctx, ports.QueryInput{
			Partition: keys.ConversationPartition(conversationID),
			Limit:     ports.MaxQueryLimit,
			Cursor:    cursor,
		})
		if err != nil {
			return nil, nil, err
		}
		for _, item := range result.Items {
			pk, okPK := item["PK"].(*types.AttributeValueMemberS)
			sk, okSK := item["SK"].(*types.AttributeValueMemberS)
			if !okPK || !okSK {
				continue
			}
			rowKeys = append(rowKeys, keys.Key{PK: pk.Value, SK: sk.Value})

			var message model.Message
			if err := attributevalue.UnmarshalMap(item, &message); err == nil && message.EntityType == model.EntityTypeMessage {
				attachments = append(attachments, message.AttachmentKeys...)
			}
		}
		if result.NextCursor == "" {
			return rowKeys, attachments, nil
		}
		cursor = result.NextCursor
	}
}

// lookupDisplayNames denormalizes participant display names into membership
// records. Best effort: a failed profile lookup just leaves names out.
func (s *ConversationService) lookupDisplayNames(ctx context.Context, participants []string) map[string]string {
	profileKeys := make([]keys.Key, 0, len(participants))
	for _, userID := range participants {
		profileKeys = append(profileKeys, keys.UserProfileKey(userID))
	}

	items, err := s.store.BatchGet(ctx, profileKeys)
	if err != nil {
		s.logger.Warn("profile lookup for participant names failed", zap.Error(err))
		return nil
	}

	names := make(map[string]string, len(items))
	for _, item := range items {
		var profile model.UserProfile
		if err := attributevalue.UnmarshalMap(item, &profile); err != nil {
			continue
		}
		if profile.DisplayName != "" {
			names[profile.UserID] = profile.DisplayName
		}
	}
	return names
}

func (s *ConversationService) deleteObjects(ctx context.Context, objectKeys []string) {
	if s.objects == nil {
		return
	}
	for _, key := range objectKeys {
		if key == "" {
			continue
		}
		if err := s.objects.DeleteObject(ctx, key); err != nil {
			s.logger.Warn("attachment delete failed", zap.String("object_key", key), zap.Error(err))
		}
	}
}

// normalizeParticipants dedupes the participant set, guarantees the creator
// is in it and returns it sorted for deterministic direct-conversation ids.
func normalizeParticipants(creatorID string, participantIDs []string) []string {
	seen := map[string]bool{creatorID: true}
	participants := []string{creatorID}
	for _, id := range participantIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		participants = append(participants, id)
	}
	sort.Strings(participants)
	return participants
}
