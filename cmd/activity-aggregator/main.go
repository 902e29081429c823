// Package main implements the Lambda handler that aggregates user activity
// from the table's change stream. New comments, reactions and messages bump
// the acting user's activity counters on their profile.
package main

import (
	"context"
	"log"
	"time"

	"famhub-backend/application/ports"
	"famhub-backend/domain/model"
	"famhub-backend/infrastructure/di"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"
)

var (
	profiles ports.ProfileRepository
	logger   *zap.Logger
)

func init() {
	ctx := context.Background()

	cfg, err := di.ProvideConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger, _, err = di.ProvideLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	awsCfg, err := di.ProvideAWSConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to load AWS configuration: %v", err)
	}

	store := di.ProvideItemStore(di.ProvideDynamoDBClient(awsCfg), cfg, di.ProvideTracer(cfg), logger)
	profiles = di.ProvideProfileRepository(store, logger)

	log.Println("Activity aggregator initialized")
}

// handler processes one batch of stream records. Failures on individual
// records are logged and skipped so a bad record cannot wedge the stream.
func handler(ctx context.Context, event awsevents.DynamoDBEvent) error {
	for _, record := range event.Records {
		if record.EventName != "INSERT" {
			continue
		}
		if err := processInsert(ctx, record); err != nil {
			logger.Warn("failed to process stream record",
				zap.String("event_id", record.EventID),
				zap.Error(err))
		}
	}
	return nil
}

func processInsert(ctx context.Context, record awsevents.DynamoDBEventRecord) error {
	image := record.Change.NewImage
	entityType := stringAttr(image, "EntityType")

	switch entityType {
	case model.EntityTypeComment:
		authorID := stringAttr(image, "AuthorID")
		if authorID == "" {
			return nil
		}
		if err := profiles.IncrementCommentCount(ctx, authorID); err != nil {
			return err
		}
		return profiles.RecordActivity(ctx, authorID, recordTime(image, "CreatedAt"))

	case model.EntityTypeReaction:
		userID := stringAttr(image, "UserID")
		if userID == "" {
			return nil
		}
		return profiles.RecordActivity(ctx, userID, recordTime(image, "CreatedAt"))

	case model.EntityTypeMessage:
		senderID := stringAttr(image, "SenderID")
		if senderID == "" {
			return nil
		}
		return profiles.RecordActivity(ctx, senderID, recordTime(image, "CreatedAt"))
	}

	return nil
}

func stringAttr(image map[string]awsevents.DynamoDBAttributeValue, name string) string {
	attr, ok := image[name]
	if !ok || attr.DataType() != awsevents.DataTypeString {
		return ""
	}
	return attr.String()
}

func recordTime(image map[string]awsevents.DynamoDBAttributeValue, name string) time.Time {
	raw := stringAttr(image, name)
	if raw != "" {
		if at, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return at
		}
	}
	return time.Now().UTC()
}

func main() {
	lambda.Start(handler)
}
