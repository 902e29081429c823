// Package rest wires the HTTP surface: routing, middleware and handlers.
package rest

import (
	"net/http"

	"famhub-backend/infrastructure/config"
	"famhub-backend/interfaces/http/rest/handlers"
	"famhub-backend/interfaces/http/rest/middleware"
	"famhub-backend/pkg/auth"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Router creates and configures the HTTP router.
type Router struct {
	cfg           *config.Config
	validator     *auth.JWTValidator
	comments      *handlers.CommentHandler
	conversations *handlers.ConversationHandler
	letters       *handlers.LetterHandler
	profiles      *handlers.ProfileHandler
	logger        *zap.Logger
}

// NewRouter creates a new router instance.
func NewRouter(
	cfg *config.Config,
	validator *auth.JWTValidator,
	comments *handlers.CommentHandler,
	conversations *handlers.ConversationHandler,
	letters *handlers.LetterHandler,
	profiles *handlers.ProfileHandler,
	logger *zap.Logger,
) *Router {
	return &Router{
		cfg:           cfg,
		validator:     validator,
		comments:      comments,
		conversations: conversations,
		letters:       letters,
		profiles:      profiles,
		logger:        logger,
	}
}

// Setup configures all routes and middleware.
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "https://*.famhub.app"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health check
	router.Get("/health", rt.healthCheck)

	// API routes
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.validator, rt.logger))

		// Comment and reaction endpoints, keyed by the item being discussed
		r.Route("/items/{itemID}", func(r chi.Router) {
			r.Post("/comments", rt.comments.CreateComment)
			r.Get("/comments", rt.comments.ListComments)
			r.Get("/comments/{commentID}", rt.comments.GetComment)
			r.Put("/comments/{commentID}", rt.comments.UpdateComment)
			r.Delete("/comments/{commentID}", rt.comments.DeleteComment)
			r.Post("/comments/{commentID}/reactions", rt.comments.ToggleReaction)
			r.Get("/comments/{commentID}/reactions", rt.comments.ListReactions)
			r.Get("/commenters", rt.comments.ListCommenters)
		})

		// Conversation and message endpoints
		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", rt.conversations.CreateConversation)
			r.Get("/", rt.conversations.ListConversations)
			r.Post("/{conversationID}/messages", rt.conversations.SendMessage)
			r.Get("/{conversationID}/messages", rt.conversations.ListMessages)
			r.Post("/{conversationID}/read", rt.conversations.MarkRead)
			r.Delete("/{conversationID}", rt.conversations.DeleteConversation)
			r.Delete("/{conversationID}/messages/{messageID}", rt.conversations.DeleteMessage)
		})

		// Letter endpoints
		r.Route("/letters", func(r chi.Router) {
			r.Get("/{letterID}", rt.letters.GetLetter)
			r.Put("/{letterID}", rt.letters.UpdateLetter)
			r.Post("/{letterID}/revert", rt.letters.RevertLetter)
			r.Get("/{letterID}/versions", rt.letters.ListVersions)
		})

		// Profile endpoints
		r.Route("/profiles", func(r chi.Router) {
			r.Get("/me", rt.profiles.GetMyProfile)
			r.Get("/{userID}", rt.profiles.GetProfile)
			r.Put("/{userID}", rt.profiles.UpdateProfile)
			r.Post("/{userID}/deactivate", rt.profiles.DeactivateProfile)
		})
	})

	return router
}

// healthCheck handles health check requests.
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
