package routers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"pong/internal/gateway"
	"pong/internal/handlers"
	"pong/internal/metrics"
	"pong/internal/utils"
)

// GameRoutes mounts the websocket endpoint, the REST surface and the
// operational endpoints on the router.
func GameRoutes(
	r *chi.Mux,
	secret string,
	gw *gateway.Gateway,
	th *handlers.TournamentHandler,
	ih *handlers.InviteHandler,
	sh *handlers.StatsHandler,
	lh *handlers.LeaderboardHandler,
) {
	r.HandleFunc("/ws", gw.WsHandler)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(handlers.Auth(secret))

		r.Route("/tournaments", func(r chi.Router) {
			r.Get("/", th.ListHandler)
			r.Post("/", th.CreateHandler)
			r.Get("/{id}", th.GetHandler)
			r.Post("/{id}/join", th.JoinHandler)
			r.Post("/{id}/leave", th.LeaveHandler)
		})

		r.Route("/invites", func(r chi.Router) {
			r.Post("/", ih.CreateHandler)
			r.Post("/{id}/accept", ih.AcceptHandler)
			r.Post("/{id}/decline", ih.DeclineHandler)
		})

		r.Route("/matches", func(r chi.Router) {
			r.Get("/user/{id}", sh.HistoryHandler)
			r.Get("/user/{id}/stats", sh.StatsHandler)
		})

		r.Get("/leaderboard", lh.TopHandler)
	})
}
