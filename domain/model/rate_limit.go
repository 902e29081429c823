package model

import "time"

// RateLimitCounter is the ephemeral fixed-window counter for one (user,
// action) pair. TTL lets the backing store expire it on its own.
type RateLimitCounter struct {
	PK          string    `dynamodbav:"PK"`
	SK          string    `dynamodbav:"SK"`
	EntityType  string    `dynamodbav:"EntityType"`
	UserID      string    `dynamodbav:"UserID"`
	Action      string    `dynamodbav:"Action"`
	Count       int       `dynamodbav:"Count"`
	WindowStart time.Time `dynamodbav:"WindowStart"`
	TTL         int64     `dynamodbav:"TTL"`
}
