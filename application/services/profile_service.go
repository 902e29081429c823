package services

import (
	"context"
	"time"

	"famhub-backend/application/ports"
	"famhub-backend/domain/keys"
	"famhub-backend/domain/model"
	"famhub-backend/pkg/common"
	apperrors "famhub-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const (
	maxDisplayNameLength = 100
	maxBioLength         = 1000
)

// ProfileService implements ports.ProfileRepository. Profiles are created
// lazily and never hard-deleted; deactivation flips the status. The activity
// counters are maintained by the change-stream aggregator, not by the
// request path.
type ProfileService struct {
	store  ports.ItemStore
	logger *zap.Logger
	now    func() time.Time
}

// NewProfileService creates the profile service.
func NewProfileService(store ports.ItemStore, logger *zap.Logger) *ProfileService {
	return &ProfileService{
		store:  store,
		logger: logger.Named("profiles"),
		now:    time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (s *ProfileService) WithClock(now func() time.Time) *ProfileService {
	s.now = now
	return s
}

// GetProfile returns one profile.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	if userID == "" {
		return nil, apperrors.NewValidationError("user id is required")
	}

	item, err := s.store.Get(ctx, keys.UserProfileKey(userID))
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperrors.NewNotFoundError("profile")
	}

	var profile model.UserProfile
	if err := attributevalue.UnmarshalMap(item, &profile); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal profile")
	}
	return &profile, nil
}

// EnsureProfile creates the profile if absent and returns the stored one
// either way. Losing the creation race to a concurrent request is success.
func (s *ProfileService) EnsureProfile(ctx context.Context, profile model.UserProfile) (*model.UserProfile, error) {
	if profile.UserID == "" {
		return nil, apperrors.NewValidationError("user id is required")
	}

	now := s.now()
	key := keys.UserProfileKey(profile.UserID)
	profile.PK = key.PK
	profile.SK = key.SK
	profile.EntityType = model.EntityTypeUserProfile
	if profile.Status == "" {
		profile.Status = model.ProfileStatusActive
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	item, err := attributevalue.MarshalMap(profile)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal profile")
	}

	err = s.store.Put(ctx, item, ports.ItemNotExists())
	if apperrors.IsConflict(err) {
		return s.GetProfile(ctx, profile.UserID)
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile mutates the caller's own profile, or any profile for admins.
func (s *ProfileService) UpdateProfile(ctx context.Context, caller common.Identity, userID string, upd ports.ProfileUpdate) (*model.UserProfile, error) {
	if userID == "" {
		return nil, apperrors.NewValidationError("user id is required")
	}
	if caller.UserID != userID && !caller.IsAdmin() {
		return nil, apperrors.NewForbiddenError("cannot modify another user's profile")
	}

	set := map[string]types.AttributeValue{}
	if upd.DisplayName != nil {
		if *upd.DisplayName == "" || len(*upd.DisplayName) > maxDisplayNameLength {
			return nil, apperrors.NewValidationError("invalid display name")
		}
		set["DisplayName"] = stringValue(*upd.DisplayName)
	}
	if upd.Bio != nil {
		if len(*upd.Bio) > maxBioLength {
			return nil, apperrors.NewValidationError("bio too long")
		}
		set["Bio"] = stringValue(*upd.Bio)
	}
	if upd.PhotoKey != nil {
		set["PhotoKey"] = stringValue(*upd.PhotoKey)
	}
	if upd.IsPrivate != nil {
		set["IsPrivate"] = boolValue(*upd.IsPrivate)
	}
	if len(set) == 0 {
		return nil, apperrors.NewValidationError("no profile fields to update")
	}
	set["UpdatedAt"] = timeValue(s.now())

	updated, err := s.store.Update(ctx, ports.UpdateInput{
		Key:       keys.UserProfileKey(userID),
		Set:       set,
		Condition: ports.ItemExists(),
	})
	if apperrors.IsConflict(err) {
		return nil, apperrors.NewNotFoundError("profile")
	}
	if err != nil {
		return nil, err
	}

	var profile model.UserProfile
	if err := attributevalue.UnmarshalMap(updated, &profile); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal profile")
	}
	return &profile, nil
}

// DeactivateProfile flips the profile to deactivated. The record stays.
func (s *ProfileService) DeactivateProfile(ctx context.Context, caller common.Identity, userID string) error {
	if caller.UserID != userID && !caller.IsAdmin() {
		return apperrors.NewForbiddenError("cannot modify another user's profile")
	}

	_, err := s.store.Update(ctx, ports.UpdateInput{
		Key: keys.UserProfileKey(userID),
		Set: map[string]types.AttributeValue{
			"Status":    stringValue(model.ProfileStatusDeactivated),
			"UpdatedAt": timeValue(s.now()),
		},
		Condition: ports.ItemExists(),
	})
	if apperrors.IsConflict(err) {
		return apperrors.NewNotFoundError("profile")
	}
	return err
}

// IncrementCommentCount bumps the denormalized comment counter. A missing
// profile is skipped, not created.
func (s *ProfileService) IncrementCommentCount(ctx context.Context, userID string) error {
	return s.incrementCounter(ctx, userID, "CommentCount")
}

// IncrementMediaUploadCount bumps the denormalized upload counter.
func (s *ProfileService) IncrementMediaUploadCount(ctx context.Context, userID string) error {
	return s.incrementCounter(ctx, userID, "MediaUploadCount")
}

// RecordActivity stamps the profile's last-active time. Missing profiles are
// ignored.
func (s *ProfileService) RecordActivity(ctx context.Context, userID string, at time.Time) error {
	_, err := s.store.Update(ctx, ports.UpdateInput{
		Key:       keys.UserProfileKey(userID),
		Set:       map[string]types.AttributeValue{"LastActiveAt": timeValue(at)},
		Condition: ports.ItemExists(),
	})
	if apperrors.IsConflict(err) {
		return nil
	}
	return err
}

func (s *ProfileService) incrementCounter(ctx context.Context, userID, attribute string) error {
	_, err := s.store.Update(ctx, ports.UpdateInput{
		Key:       keys.UserProfileKey(userID),
		Add:       map[string]int{attribute: 1},
		Condition: ports.ItemExists(),
	})
	if apperrors.IsConflict(err) {
		s.logger.Debug("counter update skipped, profile absent",
			zap.String("user_id", userID), zap.String("attribute", attribute))
		return nil
	}
	return err
}
