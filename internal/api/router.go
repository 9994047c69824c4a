package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	// All API routes live under /api. Single-user, single-device surface:
	// no authentication by design.
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})

		// Active session
		r.Get("/state", apiHandler.StateHandler)
		r.Post("/messages", apiHandler.SendMessageHandler)
		r.Post("/chat/new", apiHandler.NewChatHandler)

		// Conversation history
		r.Get("/conversations", apiHandler.ListConversationsHandler)
		r.Get("/conversations/{conversationID}", apiHandler.GetConversationHandler)
		r.Post("/conversations/{conversationID}/open", apiHandler.OpenConversationHandler)
		r.Delete("/conversations/{conversationID}", apiHandler.DeleteConversationHandler)
		r.Delete("/conversations", apiHandler.ClearConversationsHandler)

		// News ticker
		r.Get("/headlines", apiHandler.HeadlinesHandler)

		// Services
		r.Get("/pharmacies", apiHandler.PharmaciesHandler)
		r.Get("/quiz/best-score", apiHandler.GetBestScoreHandler)
		r.Put("/quiz/best-score", apiHandler.PutBestScoreHandler)
	})

	return r
}
