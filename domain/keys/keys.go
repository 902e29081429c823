// Package keys owns the mapping from entity kinds and natural identifiers to
// partition/sort key pairs for the single table. Every other component must
// build keys through this package; duplicating key formats elsewhere is how
// the legacy comment-key problem happened in the first place.
package keys

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Key is the two-part primary key of the single table.
type Key struct {
	PK string
	SK string
}

// TimestampLayout is the fixed-width timestamp embedded in sort keys.
// Fixed width keeps lexicographic order equal to chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Sort key sentinels and prefixes.
const (
	SKProfile      = "PROFILE"
	SKMeta         = "META"
	SKCurrent      = "CURRENT"
	ReactionPrefix = "REACTION#"
	MessagePrefix  = "MSG#"
	VersionPrefix  = "VERSION#"
	ConvPrefix     = "CONV#"
	RatePrefix     = "RATE#"
	RecencyPrefix  = "CONVTS#"
	directIDPrefix = "DIRECT#"
	groupIDPrefix  = "GROUP#"
	userPartPrefix = "USER#"
	commPartPrefix = "COMMENT#"
	convPartPrefix = "CONV#"
	letterPrefix   = "LETTER#"
	commentGSIPfx  = "COMMENT#"
)

// FormatTimestamp renders a caller-supplied time in the sort-key layout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// UserPartition returns the partition key shared by a user's profile,
// conversation memberships and rate-limit counters.
func UserPartition(userID string) string {
	return userPartPrefix + userID
}

// UserProfileKey maps a user id to its profile item.
func UserProfileKey(userID string) Key {
	return Key{PK: UserPartition(userID), SK: SKProfile}
}

// CommentPartition returns the current-format partition for an item's
// comments and reactions.
func CommentPartition(itemID string) string {
	return commPartPrefix + itemID
}

// LegacyCommentPartition returns the pre-migration partition variant, which
// URL-encoded the item id before embedding it.
func LegacyCommentPartition(itemID string) string {
	return commPartPrefix + url.QueryEscape(itemID)
}

// CommentPartitionCandidates returns the ordered candidate partitions tried
// when reading comments and reactions: current format first, then the legacy
// URL-encoded variant. The list is bounded to these two; new entity kinds
// must not grow it.
//
// If both variants independently hold data (possible after a partial
// migration) the legacy rows stay shadowed behind the first non-empty
// result. That behavior is inherited from the original system and is left
// as is.
func CommentPartitionCandidates(itemID string) []string {
	current := CommentPartition(itemID)
	legacy := LegacyCommentPartition(itemID)
	if legacy == current {
		return []string{current}
	}
	return []string{current, legacy}
}

// NewCommentID builds a comment id from a caller-supplied timestamp and
// uuid. The embedded timestamp makes comment sort keys chronological.
func NewCommentID(createdAt time.Time, id string) string {
	return FormatTimestamp(createdAt) + "#" + id
}

// CommentKey maps (itemID, commentID) to the comment item under the
// current-format partition. Writes always use this key.
func CommentKey(itemID, commentID string) Key {
	return Key{PK: CommentPartition(itemID), SK: commentID}
}

// CommentKeyIn places a comment under an explicitly resolved partition,
// used when a read resolved the legacy variant.
func CommentKeyIn(partition, commentID string) Key {
	return Key{PK: partition, SK: commentID}
}

// ReactionKey maps (itemID, commentID, userID) to the reaction item. One
// reaction per user per comment is structural: the key is unique.
func ReactionKey(itemID, commentID, userID string) Key {
	return Key{PK: CommentPartition(itemID), SK: ReactionSK(commentID, userID)}
}

// ReactionSK builds the reaction sort key.
func ReactionSK(commentID, userID string) string {
	return ReactionPrefix + commentID + "#" + userID
}

// ReactionsPrefix is the sort-key prefix covering all reactions on a comment.
func ReactionsPrefix(commentID string) string {
	return ReactionPrefix + commentID + "#"
}

// CommentAuthorGSI returns the secondary-index key pair for by-user comment
// queries.
func CommentAuthorGSI(authorID string, createdAt time.Time) (pk, sk string) {
	return UserPartition(authorID), commentGSIPfx + FormatTimestamp(createdAt)
}

// DirectConversationID derives the deterministic id for a two-party
// conversation by sorting and joining the participant ids. Creating the same
// direct conversation twice, in either order, yields the same id.
func DirectConversationID(userA, userB string) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return directIDPrefix + userA + "_" + userB
}

// GroupConversationID wraps a caller-supplied random id for group
// conversations.
func GroupConversationID(id string) string {
	return groupIDPrefix + id
}

// IsDirectConversation reports whether an id was derived deterministically.
func IsDirectConversation(conversationID string) bool {
	return strings.HasPrefix(conversationID, directIDPrefix)
}

// MembershipKey maps (userID, conversationID) to the per-participant
// membership projection.
func MembershipKey(userID, conversationID string) Key {
	return Key{PK: UserPartition(userID), SK: ConvPrefix + conversationID}
}

// MembershipRecencyGSI returns the secondary-index key pair that orders a
// user's conversations by last activity.
func MembershipRecencyGSI(userID string, lastMessageAt time.Time) (pk, sk string) {
	return UserPartition(userID), RecencyPrefix + FormatTimestamp(lastMessageAt)
}

// ConversationPartition returns the partition holding a conversation's
// metadata and messages.
func ConversationPartition(conversationID string) string {
	return convPartPrefix + conversationID
}

// ConversationMetaKey maps a conversation id to its canonical metadata item.
func ConversationMetaKey(conversationID string) Key {
	return Key{PK: ConversationPartition(conversationID), SK: SKMeta}
}

// NewMessageID builds a message sort key from a caller-supplied timestamp
// and uuid.
func NewMessageID(createdAt time.Time, id string) string {
	return MessagePrefix + FormatTimestamp(createdAt) + "#" + id
}

// MessageKey maps (conversationID, messageID) to the message item.
func MessageKey(conversationID, messageID string) Key {
	return Key{PK: ConversationPartition(conversationID), SK: messageID}
}

// LetterKey maps a date-derived slug to the current letter item.
func LetterKey(letterID string) Key {
	return Key{PK: letterPrefix + letterID, SK: SKCurrent}
}

// LetterVersionKey maps (letterID, snapshot time) to an append-only version
// snapshot.
func LetterVersionKey(letterID string, snapshotAt time.Time) Key {
	return Key{PK: letterPrefix + letterID, SK: VersionPrefix + FormatTimestamp(snapshotAt)}
}

// RateLimitKey maps (userID, action) to the fixed-window counter item.
func RateLimitKey(userID, action string) Key {
	return Key{PK: UserPartition(userID), SK: RatePrefix + action}
}

// String renders a key for log fields.
func (k Key) String() string {
	return fmt.Sprintf("%s|%s", k.PK, k.SK)
}
