package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/adilbekov/raid-tracker/handlers"
	"github.com/adilbekov/raid-tracker/middleware"
)

// SetupRoutes wires every handler onto the router. Session-scoped routes
// sit behind the bearer-token middleware; websocket and session issuance
// stay public.
func SetupRoutes(
	router *chi.Mux,
	sessionSecret []byte,
	corsOrigins []string,
	sessionHandler *handlers.SessionHandler,
	teamHandler *handlers.TeamHandler,
	progressHandler *handlers.ProgressHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Post("/session", sessionHandler.CreateSession)
	router.Get("/ws/teams/{teamID}", webSocketHandler.ServeTeamEvents)

	router.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(sessionSecret))

		r.Route("/teams", func(r chi.Router) {
			r.Get("/", teamHandler.GetTeam)
			r.Post("/", teamHandler.CreateTeam)
			r.Delete("/", teamHandler.DisbandTeam)
			r.Post("/join", teamHandler.JoinTeam)
			r.Post("/members", teamHandler.InviteMember)
			r.Delete("/members", teamHandler.RemoveMember)
			r.Post("/invite-code", teamHandler.RotateInviteCode)
			r.Post("/sync-code", teamHandler.SyncCode)
		})

		r.Route("/progress", func(r chi.Router) {
			r.Get("/tasks", progressHandler.ListTasks)
			r.Put("/tasks", progressHandler.SetTaskStatus)
			r.Put("/objectives", progressHandler.ToggleObjective)
			r.Get("/hideout", progressHandler.ListHideout)
			r.Put("/hideout", progressHandler.SetHideoutLevel)
			r.Get("/items", progressHandler.ListRequiredItems)
			r.Put("/items", progressHandler.UpdateItem)
			r.Get("/summary", progressHandler.Summary)
		})
	})
}
