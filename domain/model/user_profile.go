package model

import "time"

// Entity type tags stored on every item so heterogeneous rows in the shared
// table stay distinguishable.
const (
	EntityTypeUserProfile   = "USER_PROFILE"
	EntityTypeComment       = "COMMENT"
	EntityTypeReaction      = "REACTION"
	EntityTypeConversation  = "CONVERSATION"
	EntityTypeMembership    = "MEMBERSHIP"
	EntityTypeMessage       = "MESSAGE"
	EntityTypeLetter        = "LETTER"
	EntityTypeLetterVersion = "LETTER_VERSION"
	EntityTypeRateLimit     = "RATE_LIMIT"
)

// Profile status values. Profiles are never hard-deleted.
const (
	ProfileStatusActive      = "active"
	ProfileStatusDeactivated = "deactivated"
)

// UserProfile is the profile item, created lazily on first approved-group
// request or explicit update.
type UserProfile struct {
	PK               string    `dynamodbav:"PK"`
	SK               string    `dynamodbav:"SK"`
	EntityType       string    `dynamodbav:"EntityType"`
	UserID           string    `dynamodbav:"UserID"`
	DisplayName      string    `dynamodbav:"DisplayName"`
	Email            string    `dynamodbav:"Email"`
	Bio              string    `dynamodbav:"Bio,omitempty"`
	PhotoKey         string    `dynamodbav:"PhotoKey,omitempty"`
	IsPrivate        bool      `dynamodbav:"IsPrivate"`
	Status           string    `dynamodbav:"Status"`
	CommentCount     int       `dynamodbav:"CommentCount"`
	MediaUploadCount int       `dynamodbav:"MediaUploadCount"`
	CreatedAt        time.Time `dynamodbav:"CreatedAt"`
	UpdatedAt        time.Time `dynamodbav:"UpdatedAt"`
	LastActiveAt     time.Time `dynamodbav:"LastActiveAt,omitempty"`
}
