package handlers

import (
	"net/http"

	"famhub-backend/application/ports"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// LetterHandler serves the letter endpoints.
type LetterHandler struct {
	letters ports.LetterRepository
	logger  *zap.Logger
}

// NewLetterHandler creates the letter handler.
func NewLetterHandler(letters ports.LetterRepository, logger *zap.Logger) *LetterHandler {
	return &LetterHandler{letters: letters, logger: logger.Named("letters")}
}

type updateLetterRequest struct {
	Title   string `json:"title" validate:"required,max=300"`
	Content string `json:"content" validate:"required,max=100000"`
	PDFKey  string `json:"pdfKey" validate:"max=1024"`
}

type revertLetterRequest struct {
	VersionID string `json:"versionId" validate:"required"`
}

// GetLetter handles GET /letters/{letterID}.
func (h *LetterHandler) GetLetter(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerIdentity(w, r); !ok {
		return
	}

	letter, err := h.letters.GetLetter(r.Context(), chi.URLParam(r, "letterID"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, letter)
}

// UpdateLetter handles PUT /letters/{letterID}. The previous content is
// snapshotted into the version chain before being overwritten.
func (h *LetterHandler) UpdateLetter(w http.ResponseWriter, r *http.Request) {
	identity, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	var req updateLetterRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	letter, err := h.letters.UpdateLetter(r.Context(), identity.UserID, chi.URLParam(r, "letterID"), req.Title, req.Content, req.PDFKey)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, letter)
}

// RevertLetter handles POST /letters/{letterID}/revert.
func (h *LetterHandler) RevertLetter(w http.ResponseWriter, r *http.Request) {
	identity, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	var req revertLetterRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	letter, err := h.letters.RevertToVersion(r.Context(), identity.UserID, chi.URLParam(r, "letterID"), req.VersionID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, letter)
}

// ListVersions handles GET /letters/{letterID}/versions.
func (h *LetterHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerIdentity(w, r); !ok {
		return
	}

	page, err := h.letters.ListVersions(r.Context(), chi.URLParam(r, "letterID"), pagination(r))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}
