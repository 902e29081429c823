package model

import "time"

// Conversation types.
const (
	ConversationTypeDirect = "direct"
	ConversationTypeGroup  = "group"
)

// Conversation is the canonical metadata record for a conversation. Direct
// conversations have deterministic ids derived from the two participant ids.
type Conversation struct {
	PK             string    `dynamodbav:"PK"`
	SK             string    `dynamodbav:"SK"`
	EntityType     string    `dynamodbav:"EntityType"`
	ConversationID string    `dynamodbav:"ConversationID"`
	CreatorID      string    `dynamodbav:"CreatorID"`
	ParticipantIDs []string  `dynamodbav:"ParticipantIDs"`
	Type           string    `dynamodbav:"Type"`
	Title          string    `dynamodbav:"Title,omitempty"`
	CreatedAt      time.Time `dynamodbav:"CreatedAt"`
}

// ConversationMembership is the per-participant projection of a
// conversation. Holding a membership record is what authorizes a user to
// read and post; there is no separate ACL. The membership set for a
// conversation should equal its ParticipantIDs, maintained best-effort by
// the fan-out engine.
type ConversationMembership struct {
	PK               string            `dynamodbav:"PK"`
	SK               string            `dynamodbav:"SK"`
	GSI1PK           string            `dynamodbav:"GSI1PK,omitempty"`
	GSI1SK           string            `dynamodbav:"GSI1SK,omitempty"`
	EntityType       string            `dynamodbav:"EntityType"`
	UserID           string            `dynamodbav:"UserID"`
	ConversationID   string            `dynamodbav:"ConversationID"`
	CreatorID        string            `dynamodbav:"CreatorID"`
	Type             string            `dynamodbav:"Type"`
	Title            string            `dynamodbav:"Title,omitempty"`
	ParticipantIDs   []string          `dynamodbav:"ParticipantIDs"`
	ParticipantNames map[string]string `dynamodbav:"ParticipantNames,omitempty"`
	LastMessageAt    time.Time         `dynamodbav:"LastMessageAt"`
	UnreadCount      int               `dynamodbav:"UnreadCount"`
	CreatedAt        time.Time         `dynamodbav:"CreatedAt"`
}

// Message is a single message in a conversation. The sort key doubles as the
// message id and embeds the send timestamp.
type Message struct {
	PK             string    `dynamodbav:"PK"`
	SK             string    `dynamodbav:"SK"`
	EntityType     string    `dynamodbav:"EntityType"`
	ConversationID string    `dynamodbav:"ConversationID"`
	MessageID      string    `dynamodbav:"MessageID"`
	SenderID       string    `dynamodbav:"SenderID"`
	Text           string    `dynamodbav:"Text"`
	AttachmentKeys []string  `dynamodbav:"AttachmentKeys,omitempty"`
	Participants   []string  `dynamodbav:"Participants"`
	CreatedAt      time.Time `dynamodbav:"CreatedAt"`
}
