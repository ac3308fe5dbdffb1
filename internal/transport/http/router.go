package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"arthub/internal/handler"
	"arthub/internal/httputil"
	"arthub/internal/model"
	authmw "arthub/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	CommentHandler      *handler.CommentHandler
	CounterHandler      *handler.CounterHandler
	InvitationHandler   *handler.InvitationHandler
	AccountHandler      *handler.AccountHandler
	NotificationHandler *handler.NotificationHandler
	MediaHandler        *handler.MediaHandler
	Verifier            authmw.TokenVerifier
	Roles               authmw.RoleResolver
	AllowedOrigins      []string
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoint (useful for deployment/monitoring)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, 200, map[string]string{"status": "ok"})
	})

	// Public reads with optional authentication
	r.Group(func(r chi.Router) {
		r.Use(authmw.OptionalAuthMiddleware(cfg.Verifier))
		r.Get("/subjects/{id}/comments", cfg.CommentHandler.List)
		r.Get("/subjects/{id}/counters", cfg.CounterHandler.List)
	})

	// Protected routes - require authentication
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.Verifier))

		// Current user endpoints
		r.Get("/me", cfg.AccountHandler.Me)
		r.Get("/me/role", cfg.AccountHandler.Role)
		r.Get("/me/unread", cfg.AccountHandler.Unread)
		r.Get("/accounts/search", cfg.AccountHandler.Search)

		// Comments
		r.Post("/subjects/{id}/comments", cfg.CommentHandler.Create)
		r.Post("/subjects/{id}/comments/{commentPath}/replies", cfg.CommentHandler.Reply)

		// Counters and memberships (likes, interested, attending)
		r.Post("/counters/{name}/{subject}/increment", cfg.CounterHandler.Increment)
		r.Get("/subjects/{id}/members/{name}", cfg.CounterHandler.Member)
		r.Put("/subjects/{id}/members/{name}", cfg.CounterHandler.Join)
		r.Delete("/subjects/{id}/members/{name}", cfg.CounterHandler.Leave)

		// Invitations
		r.With(authmw.RequireRole(cfg.Roles, model.RoleArtist)).
			Post("/events/{id}/invitations", cfg.InvitationHandler.Apply)
		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireRole(cfg.Roles, model.RoleAdmin))
			r.Get("/events/{id}/invitations", cfg.InvitationHandler.ListForEvent)
			r.Put("/events/{id}/invitations/{artist}", cfg.InvitationHandler.Decide)
			r.Post("/counters/{name}/{subject}/reconcile", cfg.CounterHandler.Reconcile)
		})
		r.Get("/me/invitations", cfg.InvitationHandler.ListMine)
		r.Post("/me/invitations/check", cfg.InvitationHandler.CheckMine)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", cfg.NotificationHandler.List)
			r.Get("/unread-count", cfg.NotificationHandler.GetUnreadCount)
			r.Patch("/read", cfg.NotificationHandler.MarkRead)
			r.Post("/devices", cfg.NotificationHandler.RegisterToken)
			r.Delete("/devices", cfg.NotificationHandler.RemoveToken)
		})

		// Media endpoints
		r.Post("/media/artworks", cfg.MediaHandler.UploadArtwork)
		r.Post("/media/artworks/presign", cfg.MediaHandler.PresignArtworkUpload)
	})

	return r
}
