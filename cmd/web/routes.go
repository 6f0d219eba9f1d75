package main

import (
	"context"
	"net/http"

	"github.com/AdamBeresnev/shuttle-bracket/internal/config"
	"github.com/AdamBeresnev/shuttle-bracket/internal/db"
	"github.com/AdamBeresnev/shuttle-bracket/internal/httputil"
	"github.com/AdamBeresnev/shuttle-bracket/internal/middleware"
	"github.com/AdamBeresnev/shuttle-bracket/internal/service"
	"github.com/AdamBeresnev/shuttle-bracket/internal/store"
	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/markbates/goth/gothic"
)

func newRouter(cfg *config.Config, sessionManager *scs.SessionManager) http.Handler {
	dbConn := db.GetDB()
	tournamentStore := store.NewTournamentStore(dbConn)
	achievementStore := store.NewAchievementStore(dbConn)
	userStore := store.NewUserStore(dbConn)

	h := &handlers{
		tournaments: service.NewTournamentService(dbConn, tournamentStore, achievementStore),
		brackets:    service.NewBracketService(dbConn, tournamentStore, achievementStore),
		matches:     service.NewMatchService(dbConn, tournamentStore),
		rankings:    service.NewRankingService(dbConn, tournamentStore, achievementStore),
	}
	userService := service.NewUserService(dbConn, userStore)

	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(sessionManager.LoadAndSave)
	r.Use(middleware.LoadAuthenticatedUser(sessionManager, userStore))

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		r.Get("/me/achievements", h.listMyAchievements)

		r.Route("/tournaments", func(r chi.Router) {
			r.Get("/", h.listTournaments)
			r.Post("/", h.createTournament)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getTournament)
				r.Get("/completeness", h.teamCompleteness)
				r.Post("/register", h.register)
				r.Post("/draw", h.draw)
				r.Post("/cancel", h.cancel)
				r.Post("/bracket", h.generateFirstRound)
				r.Post("/next-round", h.generateNextRound)
				r.Post("/reset-matches", h.resetMatches)
				r.Post("/reset-teams", h.resetTeams)
				r.Post("/end", h.endTournament)
				r.Put("/tiers", h.setTiers)
				r.Post("/awards", h.awardAchievements)
				r.Delete("/awards", h.revokeAchievements)
			})
		})

		r.Route("/matches/{id}", func(r chi.Router) {
			r.Get("/", h.getMatch)
			r.Put("/score", h.updateScore)
			r.Post("/start", h.startMatch)
		})
	})

	loginRedirect := "/"
	if len(cfg.CORSOrigins) > 0 {
		loginRedirect = cfg.CORSOrigins[0]
	}

	r.Get("/auth/{provider}", func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		r = r.WithContext(context.WithValue(r.Context(), "provider", provider))

		gothic.BeginAuthHandler(w, r)
	})

	r.Get("/auth/{provider}/callback", func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		r = r.WithContext(context.WithValue(r.Context(), "provider", provider))

		gothUser, err := gothic.CompleteUserAuth(w, r)
		if err != nil {
			httputil.BadRequest(w, "Authentication failure", err)
			return
		}

		user, err := userService.FindOrCreateUserByProvider(r.Context(), gothUser)
		if err != nil {
			httputil.InternalServerError(w, "Failed to find or create user", err)
			return
		}

		if err := sessionManager.RenewToken(r.Context()); err != nil {
			httputil.InternalServerError(w, "Failed to renew session", err)
			return
		}
		sessionManager.Put(r.Context(), middleware.SessionUserKey, user.ID.String())

		http.Redirect(w, r, loginRedirect, http.StatusFound)
	})

	r.Post("/auth/guest", func(w http.ResponseWriter, r *http.Request) {
		user, err := userService.EnsureGuestUser(r.Context())
		if err != nil {
			httputil.InternalServerError(w, "Failed to login as guest", err)
			return
		}

		sessionManager.Put(r.Context(), middleware.SessionUserKey, user.ID.String())
		httputil.WriteJSON(w, http.StatusOK, user)
	})

	r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
		if err := sessionManager.Destroy(r.Context()); err != nil {
			httputil.InternalServerError(w, "Failed to log out", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}
