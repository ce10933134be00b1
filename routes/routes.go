package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/courtsync/courtsync/handlers"
)

func SetupRoutes(
	router *chi.Mux,
	tournamentHandler *handlers.TournamentHandler,
	matchHandler *handlers.MatchHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Handle("/metrics", promhttp.Handler())

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", tournamentHandler.List)
		r.Post("/", tournamentHandler.Create)

		r.Route("/{tournamentID}", func(r chi.Router) {
			r.Get("/", tournamentHandler.Get)
			r.Post("/bracket", tournamentHandler.GenerateBracket)
			r.Post("/start", tournamentHandler.Start)
			r.Post("/playoffs", tournamentHandler.SeedPoolWinners)

			r.Route("/matches", func(r chi.Router) {
				r.Get("/", matchHandler.List)
				r.Get("/{matchID}", matchHandler.Get)
				r.Post("/{matchID}/start", matchHandler.Start)
				r.Patch("/{matchID}/score", matchHandler.UpdateScore)
				r.Post("/{matchID}/end", matchHandler.End)
				r.Patch("/{matchID}/schedule", matchHandler.Reschedule)
			})
		})
	})

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)
}
