//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers.
var SuperSet = wire.NewSet(
	ProvideConfig,
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideCloudWatchClient,
	ProvideS3Client,
	ProvideTracer,
	ProvideMetrics,
	ProvideItemStore,
	ProvideObjectStore,
	ProvideCommentRepository,
	ProvideConversationRepository,
	ProvideLetterRepository,
	ProvideProfileRepository,
	ProvideRateLimiter,
	ProvideJWTValidator,
	ProvideCommentHandler,
	ProvideConversationHandler,
	ProvideLetterHandler,
	ProvideProfileHandler,
	ProvideHandler,
	wire.Struct(new(Application), "*"),
)

// InitializeApplication creates a fully wired application.
func InitializeApplication(ctx context.Context) (*Application, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil // Wire will replace this
}
