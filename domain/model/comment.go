package model

import "time"

// EditHistoryLimit bounds the ring of prior texts kept on a comment.
const EditHistoryLimit = 5

// Comment is a comment on a shared item (photo, letter, media). The sort key
// doubles as the comment id and embeds the creation timestamp so range
// queries return comments chronologically.
type Comment struct {
	PK            string    `dynamodbav:"PK"`
	SK            string    `dynamodbav:"SK"`
	GSI1PK        string    `dynamodbav:"GSI1PK,omitempty"`
	GSI1SK        string    `dynamodbav:"GSI1SK,omitempty"`
	EntityType    string    `dynamodbav:"EntityType"`
	ItemID        string    `dynamodbav:"ItemID"`
	CommentID     string    `dynamodbav:"CommentID"`
	AuthorID      string    `dynamodbav:"AuthorID"`
	Text          string    `dynamodbav:"Text"`
	ReactionCount int       `dynamodbav:"ReactionCount"`
	EditHistory   []string  `dynamodbav:"EditHistory,omitempty"`
	Deleted       bool      `dynamodbav:"Deleted"`
	CreatedAt     time.Time `dynamodbav:"CreatedAt"`
	UpdatedAt     time.Time `dynamodbav:"UpdatedAt"`
}

// PushEditHistory prepends the current text to the edit history, dropping
// the oldest entry beyond the limit.
func (c *Comment) PushEditHistory(priorText string) {
	history := append([]string{priorText}, c.EditHistory...)
	if len(history) > EditHistoryLimit {
		history = history[:EditHistoryLimit]
	}
	c.EditHistory = history
}

// Reaction records a single user's reaction to a comment. Its key is unique
// per (item, comment, user), so uniqueness is structural. The set of live
// reactions is the authoritative source for Comment.ReactionCount.
type Reaction struct {
	PK         string    `dynamodbav:"PK"`
	SK         string    `dynamodbav:"SK"`
	EntityType string    `dynamodbav:"EntityType"`
	ItemID     string    `dynamodbav:"ItemID"`
	CommentID  string    `dynamodbav:"CommentID"`
	UserID     string    `dynamodbav:"UserID"`
	CreatedAt  time.Time `dynamodbav:"CreatedAt"`
}
