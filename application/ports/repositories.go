package ports

import (
	"context"
	"time"

	"famhub-backend/domain/model"
	"famhub-backend/pkg/common"
)

// PageOptions carries cursor pagination parameters through repository list
// operations.
type PageOptions struct {
	Limit      int32
	Cursor     string
	Descending bool
}

// CommentPage is one page of comments.
type CommentPage struct {
	Comments   []model.Comment
	NextCursor string
}

// ReactionPage is one page of reactions on a comment.
type ReactionPage struct {
	Reactions  []model.Reaction
	NextCursor string
}

// MembershipPage is one page of a user's conversation memberships.
type MembershipPage struct {
	Memberships []model.ConversationMembership
	NextCursor  string
}

// MessagePage is one page of messages in a conversation.
type MessagePage struct {
	Messages   []model.Message
	NextCursor string
}

// LetterVersionPage is one page of letter version snapshots, newest first.
type LetterVersionPage struct {
	Versions   []model.LetterVersion
	NextCursor string
}

// CommentRepository owns comments, their reactions and the denormalized
// reaction counter.
type CommentRepository interface {
	CreateComment(ctx context.Context, itemID, authorID, text string) (*model.Comment, error)
	GetComment(ctx context.Context, itemID, commentID string) (*model.Comment, error)
	ListComments(ctx context.Context, itemID string, page PageOptions) (*CommentPage, error)
	UpdateComment(ctx context.Context, caller common.Identity, itemID, commentID, text string) (*model.Comment, error)
	DeleteComment(ctx context.Context, caller common.Identity, itemID, commentID string) error
	HardDeleteComment(ctx context.Context, caller common.Identity, itemID, commentID string) error

	// ToggleReaction flips the caller's reaction on a comment and keeps the
	// comment's reaction counter consistent with it. Returns the resulting
	// state and counter value.
	ToggleReaction(ctx context.Context, userID, itemID, commentID string) (reacted bool, count int, err error)
	ListReactions(ctx context.Context, itemID, commentID string, page PageOptions) (*ReactionPage, error)

	// PreviousCommenters returns the distinct author ids that have commented
	// on an item, across both key variants.
	PreviousCommenters(ctx context.Context, itemID string) ([]string, error)
}

// ConversationRepository owns conversations, memberships, messages and the
// per-participant unread counters.
type ConversationRepository interface {
	CreateConversation(ctx context.Context, creatorID string, participantIDs []string, title, initialMessage string) (*model.Conversation, error)
	SendMessage(ctx context.Context, senderID, conversationID, text string, attachmentKeys []string) (*model.Message, error)
	MarkRead(ctx context.Context, userID, conversationID string) error
	ListConversations(ctx context.Context, userID string, page PageOptions) (*MembershipPage, error)
	ListMessages(ctx context.Context, userID, conversationID string, page PageOptions) (*MessagePage, error)
	DeleteConversation(ctx context.Context, callerID, conversationID string) error
	DeleteMessage(ctx context.Context, callerID, conversationID, messageID string) error
}

// LetterRepository owns letters and their append-only version chains.
type LetterRepository interface {
	GetLetter(ctx context.Context, letterID string) (*model.Letter, error)
	UpdateLetter(ctx context.Context, editorID, letterID, title, content, pdfKey string) (*model.Letter, error)
	RevertToVersion(ctx context.Context, editorID, letterID, versionSK string) (*model.Letter, error)
	ListVersions(ctx context.Context, letterID string, page PageOptions) (*LetterVersionPage, error)
}

// ProfileUpdate carries the mutable profile fields; nil means unchanged.
type ProfileUpdate struct {
	DisplayName *string
	Bio         *string
	PhotoKey    *string
	IsPrivate   *bool
}

// ProfileRepository owns user profiles and their activity counters.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (*model.UserProfile, error)

	// EnsureProfile creates the profile if absent and returns the stored
	// one either way; losing the creation race is treated as success.
	EnsureProfile(ctx context.Context, profile model.UserProfile) (*model.UserProfile, error)
	UpdateProfile(ctx context.Context, caller common.Identity, userID string, upd ProfileUpdate) (*model.UserProfile, error)
	DeactivateProfile(ctx context.Context, caller common.Identity, userID string) error

	IncrementCommentCount(ctx context.Context, userID string) error
	IncrementMediaUploadCount(ctx context.Context, userID string) error
	RecordActivity(ctx context.Context, userID string, at time.Time) error
}
