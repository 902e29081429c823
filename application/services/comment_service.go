package services

import (
	"context"
	"time"

	"famhub-backend/application/ports"
	"famhub-backend/application/sagas"
	"famhub-backend/domain/keys"
	"famhub-backend/domain/model"
	"famhub-backend/pkg/common"
	apperrors "famhub-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxCommentLength = 5000

// CommentService implements ports.CommentRepository. Reads resolve the item
// partition across the current and legacy key variants; writes always use the
// current format. Reaction toggles keep the denormalized reaction counter
// consistent with the reaction records.
type CommentService struct {
	store  ports.ItemStore
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// NewCommentService creates the comment service.
func NewCommentService(store ports.ItemStore, logger *zap.Logger) *CommentService {
	return &CommentService{
		store:  store,
		logger: logger.Named("comments"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// WithClock replaces the time and id sources, for tests.
func (s *CommentService) WithClock(now func() time.Time, newID func() string) *CommentService {
	s.now = now
	s.newID = newID
	return s
}

// CreateComment writes a new comment under the current-format key.
func (s *CommentService) CreateComment(ctx context.Context, itemID, authorID, text string) (*model.Comment, error) {
	if itemID == "" {
		return nil, apperrors.NewValidationError("item id is required")
	}
	if text == "" {
		return nil, apperrors.NewValidationError("comment text is required")
	}
	if len(text) > maxCommentLength {
		return nil, apperrors.NewValidationError("comment text too long")
	}

	now := s.now()
	commentID := keys.NewCommentID(now, s.newID())
	gsiPK, gsiSK := keys.CommentAuthorGSI(authorID, now)

	comment := model.Comment{
		PK:         keys.CommentPartition(itemID),
		SK:         commentID,
		GSI1PK:     gsiPK,
		GSI1SK:     gsiSK,
		EntityType: model.EntityTypeComment,
		ItemID:     itemID,
		CommentID:  commentID,
		AuthorID:   authorID,
		Text:       text,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	item, err := attributevalue.MarshalMap(comment)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal comment")
	}
	if err := s.store.Put(ctx, item, nil); err != nil {
		return nil, err
	}
	return &comment, nil
}

// GetComment resolves a comment across both key variants.
func (s *CommentService) GetComment(ctx context.Context, itemID, commentID string) (*model.Comment, error) {
	comment, _, err := s.resolveComment(ctx, itemID, commentID)
	return comment, err
}

// ListComments returns one page of an item's comments, oldest first by
// default. The first page picks the first key variant with any comments; a
// cursor pins later pages to the variant it came from.
func (s *CommentService) ListComments(ctx context.Context, itemID string, page ports.PageOptions) (*ports.CommentPage, error) {
	result, err := s.queryVariants(ctx, itemID, page, func(in ports.QueryInput) ports.QueryInput {
		// Comment sort keys start with a timestamp digit, which sorts
		// below the reaction prefix, so this bound excludes reactions.
		in.SortBelow = keys.ReactionPrefix
		return in
	})
	if err != nil {
		return nil, err
	}

	out := &ports.CommentPage{NextCursor: result.NextCursor}
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &out.Comments); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal comments")
	}
	return out, nil
}

// UpdateComment replaces the text of the caller's own comment, keeping the
// prior text in the bounded edit history. Admins may edit any comment.
func (s *CommentService) UpdateComment(ctx context.Context, caller common.Identity, itemID, commentID, text string) (*model.Comment, error) {
	if text == "" {
		return nil, apperrors.NewValidationError("comment text is required")
	}
	if len(text) > maxCommentLength {
		return nil, apperrors.NewValidationError("comment text too long")
	}

	comment, partition, err := s.resolveComment(ctx, itemID, commentID)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != caller.UserID && !caller.IsAdmin() {
		return nil, apperrors.NewForbiddenError("only the author may edit a comment")
	}

	comment.PushEditHistory(comment.Text)
	comment.Text = text
	comment.UpdatedAt = s.now()

	if err := s.updateCommentFields(ctx, partition, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// DeleteComment soft-deletes: the record stays as a tombstone so replies and
// reactions keep a referent, but the text is gone.
func (s *CommentService) DeleteComment(ctx context.Context, caller common.Identity, itemID, commentID string) error {
	comment, partition, err := s.resolveComment(ctx, itemID, commentID)
	if err != nil {
		return err
	}
	if comment.AuthorID != caller.UserID && !caller.IsAdmin() {
		return apperrors.NewForbiddenError("only the author may delete a comment")
	}

	comment.Deleted = true
	comment.Text = ""
	comment.UpdatedAt = s.now()
	return s.updateCommentFields(ctx, partition, comment)
}

// updateCommentFields writes only the mutable comment attributes. The
// denormalized reaction counter belongs to the toggle path; rewriting the
// whole item here would clobber a concurrent toggle's increment.
func (s *CommentService) updateCommentFields(ctx context.Context, partition string, comment *model.Comment) error {
	updatedAt, err := attributevalue.Marshal(comment.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal comment timestamp")
	}
	set := map[string]types.AttributeValue{
		"Text":      &types.AttributeValueMemberS{Value: comment.Text},
		"Deleted":   &types.AttributeValueMemberBOOL{Value: comment.Deleted},
		"UpdatedAt": updatedAt,
	}
	if len(comment.EditHistory) > 0 {
		history, err := attributevalue.Marshal(comment.EditHistory)
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal edit history")
		}
		set["EditHistory"] = history
	}

	_, err = s.store.Update(ctx, ports.UpdateInput{
		Key:       keys.CommentKeyIn(partition, comment.SK),
		Set:       set,
		Condition: ports.ItemExists(),
	})
	if apperrors.IsConflict(err) {
		return apperrors.NewNotFoundError("comment")
	}
	return err
}

// HardDeleteComment removes the comment record and every reaction on it.
// Admin only.
func (s *CommentService) HardDeleteComment(ctx context.Context, caller common.Identity, itemID, commentID string) error {
	if !caller.IsAdmin() {
		return apperrors.NewForbiddenError("only admins may hard-delete comments")
	}

	_, partition, err := s.resolveComment(ctx, itemID, commentID)
	if err != nil {
		return err
	}

	// Reactions are always written under the current-format partition, even
	// when the comment itself resolved to the legacy variant, so both
	// variants must be swept.
	deletes := []keys.Key{keys.CommentKeyIn(partition, commentID)}
	for _, candidate := range keys.CommentPartitionCandidates(itemID) {
		cursor := ""
		for {
			result, err := s.store.Query(ctx, ports.QueryInput{
				Partition:  candidate,
				SortPrefix: keys.ReactionsPrefix(commentID),
				Limit:      ports.MaxQueryLimit,
				Cursor:     cursor,
			})
			if err != nil {
				return err
			}
			for _, item := range result.Items {
				var reaction model.Reaction
				if err := attributevalue.UnmarshalMap(item, &reaction); err != nil {
					return apperrors.Wrap(err, "failed to unmarshal reaction")
				}
				deletes = append(deletes, keys.Key{PK: reaction.PK, SK: reaction.SK})
			}
			if result.NextCursor == "" {
				break
			}
			cursor = result.NextCursor
		}
	}

	return s.store.BatchWrite(ctx, nil, deletes)
}

// ToggleReaction flips the user's reaction on a comment. Creating a reaction
// and bumping the counter commit together, natively transactional where the
// store supports it and as an ordered compensated sequence where it does not.
func (s *CommentService) ToggleReaction(ctx context.Context, userID, itemID, commentID string) (bool, int, error) {
	comment, partition, err := s.resolveComment(ctx, itemID, commentID)
	if err != nil {
		return false, 0, err
	}

	commentKey := keys.CommentKeyIn(partition, commentID)
	existing, existingKey, err := s.findReaction(ctx, itemID, commentID, userID)
	if err != nil {
		return false, 0, err
	}

	if existing != nil {
		return s.removeReaction(ctx, commentKey, existingKey, comment.ReactionCount)
	}
	return s.addReaction(ctx, commentKey, itemID, commentID, userID, comment.ReactionCount)
}

func (s *CommentService) addReaction(ctx context.Context, commentKey keys.Key, itemID, commentID, userID string, priorCount int) (bool, int, error) {
	reactionKey := keys.ReactionKey(itemID, commentID, userID)
	reaction := model.Reaction{
		PK:         reactionKey.PK,
		SK:         reactionKey.SK,
		EntityType: model.EntityTypeReaction,
		ItemID:     itemID,
		CommentID:  commentID,
		UserID:     userID,
		CreatedAt:  s.now(),
	}
	item, err := attributevalue.MarshalMap(reaction)
	if err != nil {
		return false, 0, apperrors.Wrap(err, "failed to marshal reaction")
	}

	counterUpdate := ports.UpdateInput{
		Key:       commentKey,
		Add:       map[string]int{"ReactionCount": 1},
		Condition: ports.ItemExists(),
	}

	if s.store.SupportsTransactWrite() {
		err = s.store.TransactWrite(ctx, []ports.TransactItem{
			{Put: &ports.TransactPut{Item: item, Condition: ports.ItemNotExists()}},
			{Update: &counterUpdate},
		})
		if apperrors.IsConflict(err) {
			return s.resolveAddConflict(ctx, commentKey, reactionKey)
		}
		if err != nil {
			return false, 0, err
		}
		return true, priorCount + 1, nil
	}

	saga := sagas.New("reaction-add", s.logger).
		AddStep(sagas.Step{
			Name: "put-reaction",
			Execute: func(ctx context.Context) error {
				return s.store.Put(ctx, item, ports.ItemNotExists())
			},
			Compensate: func(ctx context.Context) error {
				return s.store.Delete(ctx, keys.Key{PK: reaction.PK, SK: reaction.SK})
			},
		}).
		AddStep(sagas.Step{
			Name: "increment-counter",
			Execute: func(ctx context.Context) error {
				_, err := s.store.Update(ctx, counterUpdate)
				return err
			},
		})

	if err := saga.Execute(ctx); err != nil {
		if apperrors.IsConflict(err) {
			return s.resolveAddConflict(ctx, commentKey, reactionKey)
		}
		return false, 0, err
	}
	return true, priorCount + 1, nil
}

// resolveAddConflict disambiguates a failed reaction add. Either a concurrent
// toggle by the same user already created the reaction, in which case the add
// holds as a no-op with the counter bumped exactly once, or the comment no
// longer exists.
func (s *CommentService) resolveAddConflict(ctx context.Context, commentKey, reactionKey keys.Key) (bool, int, error) {
	item, err := s.store.Get(ctx, reactionKey)
	if err != nil {
		return false, 0, err
	}
	if item == nil {
		return false, 0, apperrors.NewNotFoundError("comment")
	}
	count, err := s.currentReactionCount(ctx, commentKey)
	if err != nil {
		return false, 0, err
	}
	return true, count, nil
}

func (s *CommentService) removeReaction(ctx context.Context, commentKey, reactionKey keys.Key, priorCount int) (bool, int, error) {
	count := priorCount - 1
	if count < 0 {
		count = 0
	}

	counterUpdate := ports.UpdateInput{
		Key:       commentKey,
		Add:       map[string]int{"ReactionCount": -1},
		Condition: ports.ItemExists(),
	}

	if s.store.SupportsTransactWrite() {
		err := s.store.TransactWrite(ctx, []ports.TransactItem{
			{Delete: &ports.TransactDelete{Key: reactionKey, Condition: ports.ItemExists()}},
			{Update: &counterUpdate},
		})
		if apperrors.IsConflict(err) {
			return s.resolveRemoveConflict(ctx, commentKey, reactionKey)
		}
		if err != nil {
			return false, 0, err
		}
		return false, count, nil
	}

	if err := s.store.Delete(ctx, reactionKey); err != nil {
		return false, 0, err
	}
	if _, err := s.store.Update(ctx, counterUpdate); err != nil {
		if apperrors.IsConflict(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	return false, count, nil
}

// resolveRemoveConflict disambiguates a failed reaction removal. When the
// reaction is already gone a concurrent toggle removed it and decremented the
// counter, so the removal holds as a no-op. When the reaction survived, the
// comment vanished under it; clean the reaction up anyway, the counter no
// longer exists to fix.
func (s *CommentService) resolveRemoveConflict(ctx context.Context, commentKey, reactionKey keys.Key) (bool, int, error) {
	item, err := s.store.Get(ctx, reactionKey)
	if err != nil {
		return false, 0, err
	}
	if item != nil {
		if err := s.store.Delete(ctx, reactionKey); err != nil {
			return false, 0, err
		}
		return false, 0, nil
	}
	count, err := s.currentReactionCount(ctx, commentKey)
	if err != nil {
		return false, 0, err
	}
	return false, count, nil
}

func (s *CommentService) currentReactionCount(ctx context.Context, commentKey keys.Key) (int, error) {
	item, err := s.store.Get(ctx, commentKey)
	if err != nil {
		return 0, err
	}
	if item == nil {
		return 0, nil
	}
	var comment model.Comment
	if err := attributevalue.UnmarshalMap(item, &comment); err != nil {
		return 0, apperrors.Wrap(err, "failed to unmarshal comment")
	}
	return comment.ReactionCount, nil
}

// ListReactions returns one page of reactions on a comment, resolved across
// both key variants.
func (s *CommentService) ListReactions(ctx context.Context, itemID, commentID string, page ports.PageOptions) (*ports.ReactionPage, error) {
	result, err := s.queryVariants(ctx, itemID, page, func(in ports.QueryInput) ports.QueryInput {
		in.SortPrefix = keys.ReactionsPrefix(commentID)
		return in
	})
	if err != nil {
		return nil, err
	}

	out := &ports.ReactionPage{NextCursor: result.NextCursor}
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &out.Reactions); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal reactions")
	}
	return out, nil
}

// PreviousCommenters returns the distinct author ids on an item in first-seen
// order, from the first key variant that has any comments.
func (s *CommentService) PreviousCommenters(ctx context.Context, itemID string) ([]string, error) {
	for _, partition := range keys.CommentPartitionCandidates(itemID) {
		authors, err := s.collectAuthors(ctx, partition)
		if err != nil {
			s.logger.Warn("commenter lookup failed for key variant, trying next",
				zap.String("partition", partition), zap.Error(err))
			continue
		}
		if len(authors) > 0 {
			return authors, nil
		}
	}
	return nil, nil
}

func (s *CommentService) collectAuthors(ctx context.Context, partition string) ([]string, error) {
	var authors []string
	seen := map[string]bool{}
	cursor := ""
	for {
		result, err := s.store.Query(ctx, ports.QueryInput{
			Partition: partition,
			SortBelow: keys.ReactionPrefix,
			Limit:     ports.MaxQueryLimit,
			Cursor:    cursor,
		})
		if err != nil {
			return nil, err
		}
		for _, item := range result.Items {
			var comment model.Comment
			if err := attributevalue.UnmarshalMap(item, &comment); err != nil {
				return nil, apperrors.Wrap(err, "failed to unmarshal comment")
			}
			if comment.AuthorID == "" || seen[comment.AuthorID] {
				continue
			}
			seen[comment.AuthorID] = true
			authors = append(authors, comment.AuthorID)
		}
		if result.NextCursor == "" {
			return authors, nil
		}
		cursor = result.NextCursor
	}
}

// resolveComment tries the current-format partition, then the legacy variant,
// returning the first hit and the partition it was found in. Lookup errors on
// one variant fall through to the next.
func (s *CommentService) resolveComment(ctx context.Context, itemID, commentID string) (*model.Comment, string, error) {
	if itemID == "" || commentID == "" {
		return nil, "", apperrors.NewValidationError("item id and comment id are required")
	}

	var lastErr error
	for _, partition := range keys.CommentPartitionCandidates(itemID) {
		item, err := s.store.Get(ctx, keys.CommentKeyIn(partition, commentID))
		if err != nil {
			s.logger.Warn("comment lookup failed for key variant, trying next",
				zap.String("partition", partition), zap.Error(err))
			lastErr = err
			continue
		}
		if item == nil {
			continue
		}

		var comment model.Comment
		if err := attributevalue.UnmarshalMap(item, &comment); err != nil {
			return nil, "", apperrors.Wrap(err, "failed to unmarshal comment")
		}
		return &comment, partition, nil
	}

	if lastErr != nil {
		return nil, "", lastErr
	}
	return nil, "", apperrors.NewNotFoundError("comment")
}

// findReaction looks the user's reaction up across both key variants.
func (s *CommentService) findReaction(ctx context.Context, itemID, commentID, userID string) (*model.Reaction, keys.Key, error) {
	for _, partition := range keys.CommentPartitionCandidates(itemID) {
		key := keys.Key{PK: partition, SK: keys.ReactionSK(commentID, userID)}
		item, err := s.store.Get(ctx, key)
		if err != nil {
			return nil, keys.Key{}, err
		}
		if item == nil {
			continue
		}

		var reaction model.Reaction
		if err := attributevalue.UnmarshalMap(item, &reaction); err != nil {
			return nil, keys.Key{}, apperrors.Wrap(err, "failed to unmarshal reaction")
		}
		return &reaction, key, nil
	}
	return nil, keys.Key{}, nil
}

// queryVariants runs one range query per key variant until one returns items.
// A cursor pins the query to the variant that produced it.
func (s *CommentService) queryVariants(ctx context.Context, itemID string, page ports.PageOptions, shape func(ports.QueryInput) ports.QueryInput) (*ports.QueryResult, error) {
	if itemID == "" {
		return nil, apperrors.NewValidationError("item id is required")
	}
	candidates := keys.CommentPartitionCandidates(itemID)

	if page.Cursor != "" {
		cursorKeys, err := ports.DecodeCursor(page.Cursor)
		if err != nil {
			return nil, err
		}
		partition := cursorKeys["PK"]
		if !containsString(candidates, partition) {
			return nil, apperrors.NewValidationError("cursor does not match item")
		}
		return s.store.Query(ctx, shape(ports.QueryInput{
			Partition:  partition,
			Limit:      page.Limit,
			Cursor:     page.Cursor,
			Descending: page.Descending,
		}))
	}

	var lastErr error
	for _, partition := range candidates {
		result, err := s.store.Query(ctx, shape(ports.QueryInput{
			Partition:  partition,
			Limit:      page.Limit,
			Descending: page.Descending,
		}))
		if err != nil {
			s.logger.Warn("query failed for key variant, trying next",
				zap.String("partition", partition), zap.Error(err))
			lastErr = err
			continue
		}
		if len(result.Items) > 0 {
			return result, nil
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return &ports.QueryResult{}, nil
}
