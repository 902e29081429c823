// Package di wires the application together with google/wire.
package di

import (
	"context"
	"net/http"

	"famhub-backend/application/ports"
	"famhub-backend/application/services"
	"famhub-backend/infrastructure/config"
	"famhub-backend/infrastructure/objectstore"
	"famhub-backend/infrastructure/persistence/dynamodb"
	"famhub-backend/interfaces/http/rest"
	"famhub-backend/interfaces/http/rest/handlers"
	"famhub-backend/pkg/auth"
	"famhub-backend/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// devJWTSecret keeps local development working without a configured secret.
// LoadConfig rejects this fallback outside development.
const devJWTSecret = "local-development-secret"

// Application bundles everything a binary needs to serve traffic.
type Application struct {
	Config  *config.Config
	Logger  *zap.Logger
	Handler http.Handler
}

// ProvideConfig loads and validates configuration from the environment.
func ProvideConfig() (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger creates the root logger. The returned cleanup flushes
// buffered entries.
func ProvideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	var logger *zap.Logger
	var err error

	if cfg.IsProduction() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		_ = logger.Sync()
	}
	return logger, cleanup, nil
}

// ProvideAWSConfig creates the shared AWS configuration.
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client.
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client.
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideS3Client creates an S3 client.
func ProvideS3Client(awsCfg aws.Config) *awss3.Client {
	return awss3.NewFromConfig(awsCfg)
}

// ProvideTracer creates the tracer; disabled outside Lambda deployments.
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	return observability.NewTracer(cfg.EnableTracing)
}

// ProvideMetrics creates the metrics sink. When metrics are disabled the
// sink is constructed without a client and drops everything.
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config, logger *zap.Logger) *observability.Metrics {
	if !cfg.EnableMetrics {
		return observability.NewMetrics(nil, cfg.MetricNamespace, logger)
	}
	return observability.NewMetrics(client, cfg.MetricNamespace, logger)
}

// ProvideItemStore creates the single-table item store.
func ProvideItemStore(client *awsdynamodb.Client, cfg *config.Config, tracer *observability.Tracer, logger *zap.Logger) ports.ItemStore {
	return dynamodb.NewStore(client, cfg.DynamoDBTable, tracer, logger)
}

// ProvideObjectStore creates the media object store.
func ProvideObjectStore(client *awss3.Client, cfg *config.Config, logger *zap.Logger) ports.ObjectStore {
	return objectstore.NewS3Store(client, cfg.MediaBucket, logger)
}

// ProvideCommentRepository creates the comment service.
func ProvideCommentRepository(store ports.ItemStore, logger *zap.Logger) ports.CommentRepository {
	return services.NewCommentService(store, logger)
}

// ProvideConversationRepository creates the conversation service.
func ProvideConversationRepository(store ports.ItemStore, objects ports.ObjectStore, logger *zap.Logger) ports.ConversationRepository {
	return services.NewConversationService(store, objects, logger)
}

// ProvideLetterRepository creates the letter service.
func ProvideLetterRepository(store ports.ItemStore, logger *zap.Logger) ports.LetterRepository {
	return services.NewLetterService(store, logger)
}

// ProvideProfileRepository creates the profile service.
func ProvideProfileRepository(store ports.ItemStore, logger *zap.Logger) ports.ProfileRepository {
	return services.NewProfileService(store, logger)
}

// ProvideRateLimiter creates the fixed-window rate limiter backed by the
// same table as everything else.
func ProvideRateLimiter(store ports.ItemStore, metrics *observability.Metrics, logger *zap.Logger) *auth.RateLimiter {
	return auth.NewRateLimiter(store, metrics, logger)
}

// ProvideJWTValidator creates the token validator. Development deployments
// fall back to a fixed secret so the stack runs without configuration.
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	secret := cfg.JWTSecret
	if secret == "" && !cfg.IsProduction() {
		secret = devJWTSecret
	}
	return auth.NewJWTValidator(secret, cfg.JWTIssuer)
}

// ProvideCommentHandler creates the comment handler with its rate limit.
func ProvideCommentHandler(comments ports.CommentRepository, limiter *auth.RateLimiter, cfg *config.Config, logger *zap.Logger) *handlers.CommentHandler {
	limit := auth.Limit{MaxRequests: cfg.CommentRateLimit, Window: cfg.RateLimitWindow}
	return handlers.NewCommentHandler(comments, limiter, limit, logger)
}

// ProvideConversationHandler creates the conversation handler with its
// message rate limit.
func ProvideConversationHandler(conversations ports.ConversationRepository, limiter *auth.RateLimiter, cfg *config.Config, logger *zap.Logger) *handlers.ConversationHandler {
	limit := auth.Limit{MaxRequests: cfg.MessageRateLimit, Window: cfg.RateLimitWindow}
	return handlers.NewConversationHandler(conversations, limiter, limit, logger)
}

// ProvideLetterHandler creates the letter handler.
func ProvideLetterHandler(letters ports.LetterRepository, logger *zap.Logger) *handlers.LetterHandler {
	return handlers.NewLetterHandler(letters, logger)
}

// ProvideProfileHandler creates the profile handler.
func ProvideProfileHandler(profiles ports.ProfileRepository, logger *zap.Logger) *handlers.ProfileHandler {
	return handlers.NewProfileHandler(profiles, logger)
}

// ProvideHandler assembles the HTTP router.
func ProvideHandler(
	cfg *config.Config,
	validator *auth.JWTValidator,
	comments *handlers.CommentHandler,
	conversations *handlers.ConversationHandler,
	letters *handlers.LetterHandler,
	profiles *handlers.ProfileHandler,
	logger *zap.Logger,
) http.Handler {
	return rest.NewRouter(cfg, validator, comments, conversations, letters, profiles, logger).Setup()
}
