package main

import (
	"context"
	"testing"
	"time"

	"famhub-backend/application/services"
	"famhub-backend/domain/model"
	"famhub-backend/infrastructure/persistence/memory"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupAggregator(t *testing.T) *services.ProfileService {
	t.Helper()
	svc := services.NewProfileService(memory.NewStore(), zap.NewNop())
	profiles = svc
	logger = zap.NewNop()
	return svc
}

func insertRecord(entityType string, attrs map[string]string) awsevents.DynamoDBEventRecord {
	image := map[string]awsevents.DynamoDBAttributeValue{
		"EntityType": awsevents.NewStringAttribute(entityType),
	}
	for name, value := range attrs {
		image[name] = awsevents.NewStringAttribute(value)
	}
	return awsevents.DynamoDBEventRecord{
		EventName: "INSERT",
		Change:    awsevents.DynamoDBStreamRecord{NewImage: image},
	}
}

func TestProcessInsertCommentBumpsAuthor(t *testing.T) {
	svc := setupAggregator(t)
	ctx := context.Background()
	_, err := svc.EnsureProfile(ctx, model.UserProfile{UserID: "alice", DisplayName: "Alice"})
	require.NoError(t, err)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	record := insertRecord(model.EntityTypeComment, map[string]string{
		"AuthorID":  "alice",
		"CreatedAt": at.Format(time.RFC3339Nano),
	})
	require.NoError(t, processInsert(ctx, record))

	profile, err := svc.GetProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, profile.CommentCount)
	assert.True(t, profile.LastActiveAt.Equal(at))
}

func TestProcessInsertReactionRecordsActivity(t *testing.T) {
	svc := setupAggregator(t)
	ctx := context.Background()
	_, err := svc.EnsureProfile(ctx, model.UserProfile{UserID: "bob", DisplayName: "Bob"})
	require.NoError(t, err)

	at := time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)
	record := insertRecord(model.EntityTypeReaction, map[string]string{
		"UserID":    "bob",
		"CreatedAt": at.Format(time.RFC3339Nano),
	})
	require.NoError(t, processInsert(ctx, record))

	profile, err := svc.GetProfile(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 0, profile.CommentCount, "reactions do not count as comments")
	assert.True(t, profile.LastActiveAt.Equal(at))
}

func TestProcessInsertMessageRecordsActivity(t *testing.T) {
	svc := setupAggregator(t)
	ctx := context.Background()
	_, err := svc.EnsureProfile(ctx, model.UserProfile{UserID: "carol", DisplayName: "Carol"})
	require.NoError(t, err)

	at := time.Date(2024, 5, 3, 18, 15, 0, 0, time.UTC)
	record := insertRecord(model.EntityTypeMessage, map[string]string{
		"SenderID":  "carol",
		"CreatedAt": at.Format(time.RFC3339Nano),
	})
	require.NoError(t, processInsert(ctx, record))

	profile, err := svc.GetProfile(ctx, "carol")
	require.NoError(t, err)
	assert.True(t, profile.LastActiveAt.Equal(at))
}

func TestProcessInsertIgnoresOtherEntities(t *testing.T) {
	setupAggregator(t)

	record := insertRecord(model.EntityTypeUserProfile, map[string]string{"UserID": "dave"})
	assert.NoError(t, processInsert(context.Background(), record))
}
