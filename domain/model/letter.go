package model

import "time"

// Letter is the current state of a versioned letter, keyed by a
// date-derived slug. VersionCount only ever grows.
type Letter struct {
	PK           string    `dynamodbav:"PK"`
	SK           string    `dynamodbav:"SK"`
	EntityType   string    `dynamodbav:"EntityType"`
	LetterID     string    `dynamodbav:"LetterID"`
	Title        string    `dynamodbav:"Title"`
	Content      string    `dynamodbav:"Content"`
	PdfKey       string    `dynamodbav:"PdfKey,omitempty"`
	VersionCount int       `dynamodbav:"VersionCount"`
	LastEditedBy string    `dynamodbav:"LastEditedBy"`
	CreatedAt    time.Time `dynamodbav:"CreatedAt"`
	UpdatedAt    time.Time `dynamodbav:"UpdatedAt"`
}

// LetterVersion is an append-only snapshot of a letter taken immediately
// before an overwrite. Versions are never mutated or deleted.
type LetterVersion struct {
	PK         string    `dynamodbav:"PK"`
	SK         string    `dynamodbav:"SK"`
	EntityType string    `dynamodbav:"EntityType"`
	LetterID   string    `dynamodbav:"LetterID"`
	Title      string    `dynamodbav:"Title"`
	Content    string    `dynamodbav:"Content"`
	PdfKey     string    `dynamodbav:"PdfKey,omitempty"`
	Version    int       `dynamodbav:"Version"`
	EditedBy   string    `dynamodbav:"EditedBy"`
	SnapshotAt time.Time `dynamodbav:"SnapshotAt"`
}
