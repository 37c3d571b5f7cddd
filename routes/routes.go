package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/nbekov/race-control/handlers"
	"github.com/nbekov/race-control/middleware"
	"github.com/nbekov/race-control/models"
)

type Handlers struct {
	Auth      *handlers.AuthHandler
	Race      *handlers.RaceHandler
	Event     *handlers.EventHandler
	Team      *handlers.TeamHandler
	Racer     *handlers.RacerHandler
	WebSocket *handlers.WebSocketHandler
}

func SetupRoutes(h Handlers, jwtSecret []byte, allowedOrigins []string) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	router.Post("/auth/register", h.Auth.Register)
	router.Post("/auth/login", h.Auth.Login)

	router.Route("/races", func(r chi.Router) {
		// Публичные маршруты наблюдения за гонками
		r.Get("/", h.Race.ListRaces)
		r.Get("/{raceID}", h.Race.GetRace)
		r.Get("/{raceID}/entries", h.Race.GetRaceEntries)
		r.Get("/{raceID}/gaps", h.Race.GetRaceGaps)

		// Команды управления гонкой доступны только администратору
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Use(middleware.Authorize(models.RoleAdmin))

			r.Post("/create", h.Race.CreateRace)
			r.Post("/start", h.Race.StartRace)
			r.Post("/position", h.Race.UpdatePosition)
			r.Post("/lap", h.Race.MarkLap)
			r.Post("/pitstop", h.Race.MarkPitStop)
			r.Post("/dnf", h.Race.MarkDNF)
			r.Post("/finalize", h.Race.FinalizeRace)
		})
	})

	router.Get("/events/{raceID}", h.Event.ListRaceEvents)

	router.Route("/teams", func(r chi.Router) {
		r.Get("/", h.Team.ListTeams)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Use(middleware.Authorize(models.RoleOwner))

			r.Post("/", h.Team.CreateTeam)
			r.Put("/{teamID}", h.Team.UpdateTeam)
			r.Post("/{teamID}/logo", h.Team.UploadLogo)
		})
	})

	router.Route("/racers", func(r chi.Router) {
		r.Get("/", h.Racer.ListRacers)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Use(middleware.Authorize(models.RoleOwner))

			r.Post("/", h.Racer.CreateRacer)
			r.Put("/{racerID}", h.Racer.UpdateRacer)
			r.Post("/{racerID}/photo", h.Racer.UploadPhoto)
		})
	})

	router.Get("/ws/races/{raceID}", h.WebSocket.ServeRaceUpdates)

	return router
}
