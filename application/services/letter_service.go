package services

import (
	"context"
	"strings"
	"time"

	"famhub-backend/application/ports"
	"famhub-backend/domain/keys"
	"famhub-backend/domain/model"
	apperrors "famhub-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"go.uber.org/zap"
)

const (
	maxLetterTitleLength   = 300
	maxLetterContentLength = 100000
)

// LetterService implements ports.LetterRepository. Every overwrite of a
// letter first snapshots the state being replaced, so the version chain only
// ever grows and any past state stays reachable. Reverting snapshots too,
// which makes a revert itself revertible.
type LetterService struct {
	store  ports.ItemStore
	logger *zap.Logger
	now    func() time.Time
}

// NewLetterService creates the letter service.
func NewLetterService(store ports.ItemStore, logger *zap.Logger) *LetterService {
	return &LetterService{
		store:  store,
		logger: logger.Named("letters"),
		now:    time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (s *LetterService) WithClock(now func() time.Time) *LetterService {
	s.now = now
	return s
}

// GetLetter returns the current state of a letter.
func (s *LetterService) GetLetter(ctx context.Context, letterID string) (*model.Letter, error) {
	if letterID == "" {
		return nil, apperrors.NewValidationError("letter id is required")
	}

	item, err := s.store.Get(ctx, keys.LetterKey(letterID))
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperrors.NewNotFoundError("letter")
	}

	var letter model.Letter
	if err := attributevalue.UnmarshalMap(item, &letter); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal letter")
	}
	return &letter, nil
}

// UpdateLetter overwrites the letter, snapshotting the replaced state first.
// The first write of a letter id creates it without a snapshot.
func (s *LetterService) UpdateLetter(ctx context.Context, editorID, letterID, title, content, pdfKey string) (*model.Letter, error) {
	if err := validateLetterInput(letterID, title, content); err != nil {
		return nil, err
	}

	current, err := s.GetLetter(ctx, letterID)
	if err != nil && !apperrors.IsNotFound(err) {
		return nil, err
	}

	now := s.now()
	letterKey := keys.LetterKey(letterID)
	next := model.Letter{
		PK:           letterKey.PK,
		SK:           letterKey.SK,
		EntityType:   model.EntityTypeLetter,
		LetterID:     letterID,
		Title:        title,
		Content:      content,
		PdfKey:       pdfKey,
		LastEditedBy: editorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if current == nil {
		item, err := attributevalue.MarshalMap(next)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to marshal letter")
		}
		if err := s.store.Put(ctx, item, nil); err != nil {
			return nil, err
		}
		return &next, nil
	}

	next.CreatedAt = current.CreatedAt
	next.VersionCount = current.VersionCount + 1
	if err := s.snapshotAndOverwrite(ctx, current, &next, now); err != nil {
		return nil, err
	}
	return &next, nil
}

// RevertToVersion overwrites the letter with a past snapshot's state. The
// pre-revert state is snapshotted first, so the chain records the revert as
// one more edit.
func (s *LetterService) RevertToVersion(ctx context.Context, editorID, letterID, versionSK string) (*model.Letter, error) {
	if letterID == "" {
		return nil, apperrors.NewValidationError("letter id is required")
	}
	if !strings.HasPrefix(versionSK, keys.VersionPrefix) {
		return nil, apperrors.NewValidationError("invalid version id")
	}

	versionItem, err := s.store.Get(ctx, keys.Key{PK: keys.LetterKey(letterID).PK, SK: versionSK})
	if err != nil {
		return nil, err
	}
	if versionItem == nil {
		return nil, apperrors.NewNotFoundError("letter version")
	}
	var version model.LetterVersion
	if err := attributevalue.UnmarshalMap(versionItem, &version); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal letter version")
	}

	current, err := s.GetLetter(ctx, letterID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	letterKey := keys.LetterKey(letterID)
	next := model.Letter{
		PK:           letterKey.PK,
		SK:           letterKey.SK,
		EntityType:   model.EntityTypeLetter,
		LetterID:     letterID,
		Title:        version.Title,
		Content:      version.Content,
		PdfKey:       version.PdfKey,
		VersionCount: current.VersionCount + 1,
		LastEditedBy: editorID,
		CreatedAt:    current.CreatedAt,
		UpdatedAt:    now,
	}

	if err := s.snapshotAndOverwrite(ctx, current, &next, now); err != nil {
		return nil, err
	}
	return &next, nil
}

// ListVersions pages through a letter's snapshots, newest first.
func (s *LetterService) ListVersions(ctx context.Context, letterID string, page ports.PageOptions) (*ports.LetterVersionPage, error) {
	if letterID == "" {
		return nil, apperrors.NewValidationError("letter id is required")
	}

	result, err := s.store.Query(ctx, ports.QueryInput{
		Partition:  keys.LetterKey(letterID).PK,
		SortPrefix: keys.VersionPrefix,
		Limit:      page.Limit,
		Cursor:     page.Cursor,
		Descending: true,
	})
	if err != nil {
		return nil, err
	}

	out := &ports.LetterVersionPage{NextCursor: result.NextCursor}
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &out.Versions); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal letter versions")
	}
	return out, nil
}

// snapshotAndOverwrite writes the snapshot of the replaced state and the new
// letter state, atomically where the store supports transactions and
// snapshot-first otherwise.
func (s *LetterService) snapshotAndOverwrite(ctx context.Context, current *model.Letter, next *model.Letter, at time.Time) error {
	versionKey := keys.LetterVersionKey(current.LetterID, at)
	snapshot := model.LetterVersion{
		PK:         versionKey.PK,
		SK:         versionKey.SK,
		EntityType: model.EntityTypeLetterVersion,
		LetterID:   current.LetterID,
		Title:      current.Title,
		Content:    current.Content,
		PdfKey:     current.PdfKey,
		Version:    current.VersionCount,
		EditedBy:   current.LastEditedBy,
		SnapshotAt: at,
	}

	snapshotItem, err := attributevalue.MarshalMap(snapshot)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal letter version")
	}
	letterItem, err := attributevalue.MarshalMap(next)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal letter")
	}

	if s.store.SupportsTransactWrite() {
		return s.store.TransactWrite(ctx, []ports.TransactItem{
			{Put: &ports.TransactPut{Item: snapshotItem}},
			{Put: &ports.TransactPut{Item: letterItem, Condition: ports.ItemExists()}},
		})
	}

	if err := s.store.Put(ctx, snapshotItem, nil); err != nil {
		return err
	}
	return s.store.Put(ctx, letterItem, ports.ItemExists())
}

func validateLetterInput(letterID, title, content string) error {
	if letterID == "" {
		return apperrors.NewValidationError("letter id is required")
	}
	if len(title) > maxLetterTitleLength {
		return apperrors.NewValidationError("letter title too long")
	}
	if content == "" {
		return apperrors.NewValidationError("letter content is required")
	}
	if len(content) > maxLetterContentLength {
		return apperrors.NewValidationError("letter content too long")
	}
	return nil
}
