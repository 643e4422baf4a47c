package devserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/docquery-ai/document-assistant/internal/middleware"
	"github.com/docquery-ai/document-assistant/internal/model"
	"github.com/docquery-ai/document-assistant/pkg/logger"
)

// Handler exposes the store over HTTP.
type Handler struct {
	store *Store
	log   *logger.Logger
}

// NewHandler creates a handler backed by store.
func NewHandler(store *Store, log *logger.Logger) *Handler {
	return &Handler{store: store, log: log}
}

// Register mounts all API routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/conversations", func(r chi.Router) {
		r.Get("/", h.ListConversations)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetConversation)
			r.Delete("/", h.DeleteConversation)
			r.Post("/pin/", h.TogglePin)
			r.Post("/rename/", h.RenameConversation)
		})
	})
	r.Post("/query/", h.Query)
	r.Route("/api/favorites", func(r chi.Router) {
		r.Post("/toggle/", h.ToggleFavorite)
		r.Get("/list/", h.ListFavorites)
	})
	r.Get("/pdf-library/", h.Library)
	r.Get("/system-status/", h.Status)
}

// ListConversations handles GET /conversations/
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.ListConversationsResponse{
		Conversations: h.store.List(),
	})
}

// GetConversation handles GET /conversations/{id}/
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.store.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// DeleteConversation handles DELETE /conversations/{id}/
func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Delete(id); err != nil {
		writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// TogglePin handles POST /conversations/{id}/pin/
func (h *Handler) TogglePin(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	pinned, err := h.store.TogglePin(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	writeJSON(w, http.StatusOK, model.TogglePinResponse{IsPinned: pinned})
}

// RenameConversation handles POST /conversations/{id}/rename/
func (h *Handler) RenameConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateTitle(req.Title); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Rename(id, req.Title); err != nil {
		writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	writeJSON(w, http.StatusOK, model.RenameResponse{ID: id, Title: req.Title})
}

// Query handles POST /query/
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	var req model.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateQuery(req.Query); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ConversationID != "" {
		if err := middleware.ValidateConversationID(req.ConversationID); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	resp, err := h.store.Answer(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "Conversation not found")
			return
		}
		h.log.Error("query failed",
			zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to answer query")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ToggleFavorite handles POST /api/favorites/toggle/
func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filename string `json:"filename"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateFilename(req.Filename); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, model.ToggleFavoriteResponse{
		IsFavorite: h.store.ToggleFavorite(req.Filename),
	})
}

// ListFavorites handles GET /api/favorites/list/
func (h *Handler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.ListFavoritesResponse{
		Favorites: h.store.Favorites(),
	})
}

// Library handles GET /pdf-library/
func (h *Handler) Library(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.LibraryResponse{
		PDFs: h.store.Library(),
	})
}

// Status handles GET /system-status/
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Status())
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Ready handles GET /ready
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
