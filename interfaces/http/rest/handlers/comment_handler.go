package handlers

import (
	"net/http"

	"famhub-backend/application/ports"
	"famhub-backend/pkg/auth"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CommentHandler serves the comment and reaction endpoints.
type CommentHandler struct {
	comments     ports.CommentRepository
	limiter      *auth.RateLimiter
	commentLimit auth.Limit
	logger       *zap.Logger
}

// NewCommentHandler creates the comment handler.
func NewCommentHandler(comments ports.CommentRepository, limiter *auth.RateLimiter, commentLimit auth.Limit, logger *zap.Logger) *CommentHandler {
	return &CommentHandler{
		comments:     comments,
		limiter:      limiter,
		commentLimit: commentLimit,
		logger:       logger.Named("comments"),
	}
}

type createCommentRequest struct {
	Text string `json:"text" validate:"required,max=5000"`
}

type updateCommentRequest struct {
	Text string `json:"text" validate:"required,max=5000"`
}

type toggleReactionResponse struct {
	Reacted       bool `json:"reacted"`
	ReactionCount int  `json:"reactionCount"`
}

// CreateComment handles POST /items/{itemID}/comments.
func (h *CommentHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	identity, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	if err := h.limiter.Check(r.Context(), identity.UserID, "comment_create", h.commentLimit); err != nil {
		respondError(w, h.logger, err)
		return
	}

	var req createCommentRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	comment, err := h.comments.CreateComment(r.Context(), chi.URLParam(r, "itemID"), identity.UserID, req.Text)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, comment)
}

// GetComment handles GET /items/{itemID}/comments/{commentID}.
func (h *CommentHandler) GetComment(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerIdentity(w, r); !ok {
		return
	}

	comment, err := h.comments.GetComment(r.Context(), chi.URLParam(r, "itemID"), chi.URLParam(r, "commentID"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, comment)
}

// ListComments handles GET /items/{itemID}/comments.
func (h *CommentHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerIdentity(w, r); !ok {
		return
	}

	page, err := h.comments.ListComments(r.Context(), chi.URLParam(r, "itemID"), pagination(r))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// UpdateComment handles PUT /items/{itemID}/comments/{commentID}.
func (h *CommentHandler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	identity, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	var req updateCommentRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	comment, err := h.comments.UpdateComment(r.Context(), identity, chi.URLParam(r, "itemID"), chi.URLParam(r, "commentID"), req.Text)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, comment)
}

// DeleteComment handles DELETE /items/{itemID}/comments/{commentID}. With
// ?hard=true admins remove the record and its reactions entirely.
func (h *CommentHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	identity, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	itemID := chi.URLParam(r, "itemID")
	commentID := chi.URLParam(r, "commentID")

	var err error
	if r.URL.Query().Get("hard") == "true" {
		err = h.comments.HardDeleteComment(r.Context(), identity, itemID, commentID)
	} else {
		err = h.comments.DeleteComment(r.Context(), identity, itemID, commentID)
	}
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// ToggleReaction handles POST /items/{itemID}/comments/{commentID}/reactions.
func (h *CommentHandler) ToggleReaction(w http.ResponseWriter, r *http.Request) {
	identity, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	reacted, count, err := h.comments.ToggleReaction(r.Context(), identity.UserID, chi.URLParam(r, "itemID"), chi.URLParam(r, "commentID"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toggleReactionResponse{Reacted: reacted, ReactionCount: count})
}

// ListReactions handles GET /items/{itemID}/comments/{commentID}/reactions.
func (h *CommentHandler) ListReactions(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerIdentity(w, r); !ok {
		return
	}

	page, err := h.comments.ListReactions(r.Context(), chi.URLParam(r, "itemID"), chi.URLParam(r, "commentID"), pagination(r))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// ListCommenters handles GET /items/{itemID}/commenters.
func (h *CommentHandler) ListCommenters(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerIdentity(w, r); !ok {
		return
	}

	authors, err := h.comments.PreviousCommenters(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"userIds": authors})
}
