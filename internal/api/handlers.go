package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"fasoagent.bf/assistant/internal/core"
	"fasoagent.bf/assistant/internal/store"
)

type APIHandler struct {
	orchestrator *core.Orchestrator
	ai           *core.GeminiClient
	store        *store.ConversationStore
	logger       *zap.Logger
}

func NewAPIHandler(orch *core.Orchestrator, ai *core.GeminiClient, st *store.ConversationStore, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		orchestrator: orch,
		ai:           ai,
		store:        st,
		logger:       logger,
	}
}

func (h *APIHandler) StateHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.orchestrator.Snapshot())
}

type SendMessageRequest struct {
	Text string `json:"text"`
}

func (h *APIHandler) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	snapshot, err := h.orchestrator.SendMessage(r.Context(), req.Text)
	switch {
	case errors.Is(err, core.ErrBlankMessage):
		http.Error(w, "Message text is required", http.StatusBadRequest)
		return
	case errors.Is(err, core.ErrTurnInFlight):
		http.Error(w, "A message is already being processed", http.StatusConflict)
		return
	case err != nil:
		h.logger.Error("send message failed", zap.Error(err))
		http.Error(w, "Failed to process message", http.StatusInternalServerError)
		return
	}
	// A backend failure settles as an error message inside the snapshot, it
	// is not an HTTP error.
	respondJSON(w, http.StatusOK, snapshot)
}

func (h *APIHandler) NewChatHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.orchestrator.NewChat())
}

// ConversationSummary is a list entry without the message payload.
type ConversationSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Date         string `json:"date"`
	MessageCount int    `json:"messageCount"`
}

func (h *APIHandler) ListConversationsHandler(w http.ResponseWriter, r *http.Request) {
	conversations := h.store.List()
	summaries := make([]ConversationSummary, 0, len(conversations))
	for _, c := range conversations {
		summaries = append(summaries, ConversationSummary{
			ID:           c.ID,
			Title:        c.Title,
			Date:         c.Date.Format(time.RFC3339),
			MessageCount: len(c.Messages),
		})
	}
	respondJSON(w, http.StatusOK, summaries)
}

func (h *APIHandler) GetConversationHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")
	conv, ok := h.store.Get(id)
	if !ok {
		http.Error(w, "Conversation not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, conv)
}

func (h *APIHandler) OpenConversationHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")
	snapshot, err := h.orchestrator.OpenConversation(id)
	if err != nil {
		http.Error(w, "Conversation not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, snapshot)
}

func (h *APIHandler) DeleteConversationHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")
	if err := h.orchestrator.DeleteConversation(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Conversation not found", http.StatusNotFound)
			return
		}
		h.logger.Error("delete conversation failed", zap.String("conversation_id", id), zap.Error(err))
		http.Error(w, "Failed to delete conversation", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, h.orchestrator.Snapshot())
}

type ClearRequest struct {
	Confirm bool `json:"confirm"`
}

func (h *APIHandler) ClearConversationsHandler(w http.ResponseWriter, r *http.Request) {
	var req ClearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.orchestrator.ClearAll(req.Confirm); err != nil {
		if errors.Is(err, core.ErrConfirmationRequired) {
			http.Error(w, "Clearing all history requires confirm=true", http.StatusBadRequest)
			return
		}
		h.logger.Error("clear history failed", zap.Error(err))
		http.Error(w, "Failed to clear history", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, h.orchestrator.Snapshot())
}

func (h *APIHandler) HeadlinesHandler(w http.ResponseWriter, r *http.Request) {
	forceRefresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	headlines := h.ai.FetchHeadlines(r.Context(), forceRefresh)
	respondJSON(w, http.StatusOK, map[string][]string{"headlines": headlines})
}

func (h *APIHandler) PharmaciesHandler(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")
	if city == "" {
		http.Error(w, "city query parameter is required", http.StatusBadRequest)
		return
	}

	pharmacies, err := h.ai.FindPharmacies(r.Context(), city)
	if err != nil {
		// Best effort, like the rest of the reference data: failures
		// degrade to an empty list rather than surfacing.
		h.logger.Warn("pharmacy lookup failed", zap.String("city", city), zap.Error(err))
		pharmacies = []core.Pharmacy{}
	}
	respondJSON(w, http.StatusOK, pharmacies)
}

func (h *APIHandler) GetBestScoreHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]int{"bestScore": h.store.BestScore()})
}

type BestScoreRequest struct {
	Score int `json:"score"`
}

func (h *APIHandler) PutBestScoreHandler(w http.ResponseWriter, r *http.Request) {
	var req BestScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := h.store.SetBestScore(req.Score)
	if err != nil {
		h.logger.Error("failed to persist best score", zap.Error(err))
		http.Error(w, "Failed to save score", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"bestScore": h.store.BestScore(),
		"updated":   updated,
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
