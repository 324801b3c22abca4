package routes

import (
	"net/http"
	"time"

	"github.com/Dosada05/bounty-system/handlers"
	"github.com/Dosada05/bounty-system/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
)

type Handlers struct {
	Bounty     *handlers.BountyHandler
	Enrollment *handlers.EnrollmentHandler
	Inbox      *handlers.InboxHandler
	WebSocket  *handlers.WebSocketHandler
}

func SetupRoutes(router chi.Router, jwtSecret string, allowedOrigins []string, h Handlers) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	auth := middleware.Authenticate(jwtSecret)

	// Websocket-эндпоинты живут без таймаута запроса
	router.Route("/ws", func(r chi.Router) {
		r.Get("/bounties/{bountyID}", h.WebSocket.ServeBounty)
		r.Get("/colleges/{collegeID}", h.WebSocket.ServeCollege)
		r.With(auth).Get("/users/me", h.WebSocket.ServeUser)
	})

	router.Group(func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(30 * time.Second))

		r.Route("/bounties", func(r chi.Router) {
			r.Get("/{bountyID}/participants", h.Enrollment.ParticipantCount)

			r.Group(func(r chi.Router) {
				r.Use(auth)
				r.Get("/", h.Bounty.List)
				r.Post("/", h.Bounty.Create)
				r.Get("/{bountyID}", h.Bounty.GetByID)
				r.Delete("/{bountyID}", h.Bounty.Delete)
				r.Post("/{bountyID}/completions", h.Bounty.MarkCompleted)
				r.Post("/{bountyID}/enroll", h.Enrollment.Enroll)
				r.Get("/{bountyID}/queue", h.Enrollment.QueueStatus)
				r.Post("/{bountyID}/form-teams", h.Enrollment.FormTeams)
			})
		})

		r.Route("/users/me", func(r chi.Router) {
			r.Use(auth)
			r.Get("/teams", h.Enrollment.MyTeams)
			r.Get("/completions", h.Inbox.Completions)
			r.Get("/notifications", h.Inbox.ListNotifications)
			r.Patch("/notifications/{notificationID}/read", h.Inbox.MarkRead)
		})
	})
}
