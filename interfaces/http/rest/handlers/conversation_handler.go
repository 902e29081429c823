package handlers

import (
	"net/http"

	"famhub-backend/application/ports"
	"famhub-backend/pkg/auth"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ConversationHandler serves the conversation and message endpoints.
type ConversationHandler struct {
	conversations ports.ConversationRepository
	limiter       *auth.RateLimiter
	messageLimit  auth.Limit
	logger        *zap.Logger
}

// NewConversationHandler creates the conversation handler.
func NewConversationHandler(conversations ports.ConversationRepository, limiter *auth.RateLimiter, messageLimit auth.Limit, logger *zap.Logger) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		limiter:       limiter,
		messageLimit:  messageLimit,
		logger:        logger.Named("conversations"),
	}
}

type createConversationRequest struct {
	ParticipantIDs []string `json:"participantIds" validate:"required,min=1,dive,required"`
	Title          string   `json:"title" validate:"max=200"`
	InitialMessage string   `json:"initialMessage" validate:"max=10000"`
}

type sendMessageRequest struct {
	Text           string   `json:"text" validate:"max=10000"`
	AttachmentKeys []string `json:"attachmentKeys" validate:"max=10"`
}

// CreateConversation handles POST /conversations.
func (h *ConversationHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	identity, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	var req createConversationRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	conversation, err := h.conversations.CreateConversation(r.Context(), identity.UserID, req.ParticipantIDs, req.Title, req.InitialMessage)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, conversation)
}

// SendMessage handles POST /conversations/{conversationID}/messages.
func (h *ConversationHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	identity, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	if err := h.limiter.Check(r.Context(), identity.UserID, "message_send", h.messageLimit); err != nil {
		respondError(w, h.logger, err)
		return
	}

	var req sendMessageRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	message, err := h.conversations.SendMessage(r.Context(), identity.UserID, chi.URLParam(r, "conversationID"), req.Text, req.AttachmentKeys)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, message)
}

// MarkRead handles POST /conversations/{conversationID}/read.
func (h *ConversationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	if err := h.conversations.MarkRead(r.Context(), identity.UserID, chi.URLParam(r, "conversationID")); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// ListConversations handles GET /conversations.
func (h *ConversationHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	identity, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	page, err := h.conversations.ListConversations(r.Context(), identity.UserID, pagination(r))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// ListMessages handles GET /conversations/{conversationID}/messages.
func (h *ConversationHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	identity, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	page, err := h.conversations.ListMessages(r.Context(), identity.UserID, chi.URLParam(r, "conversationID"), pagination(r))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// DeleteConversation handles DELETE /conversations/{conversationID}.
func (h *ConversationHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	identity, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	if err := h.conversations.DeleteConversation(r.Context(), identity.UserID, chi.URLParam(r, "conversationID")); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// DeleteMessage handles DELETE /conversations/{conversationID}/messages/{messageID}.
// Message ids embed '#' characters, so clients URL-encode them.
func (h *ConversationHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	identity, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	err := h.conversations.DeleteMessage(r.Context(), identity.UserID, chi.URLParam(r, "conversationID"), chi.URLParam(r, "messageID"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
