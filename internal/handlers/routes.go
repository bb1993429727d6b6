// internal/handlers/routes.go
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jason-s-yu/jackpot/internal/auth"
	"github.com/jason-s-yu/jackpot/internal/game"
	"github.com/jason-s-yu/jackpot/internal/middleware"
	"github.com/jason-s-yu/jackpot/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	defaultRoundsLimit = 20
	maxRoundsLimit     = 100
)

// RoundLister reads persisted round history.
type RoundLister interface {
	RecentRounds(ctx context.Context, lobbyID string, limit int) ([]models.RoundRecord, error)
}

// SetupRoutes builds the HTTP surface of the server. /rounds is only served
// when rounds is non-nil.
func SetupRoutes(logger *logrus.Logger, coord *game.Coordinator, hub *Hub, signer *auth.Signer, rounds RoundLister) http.Handler {
	r := chi.NewRouter()

	r.Get("/ws", WSHandler(logger, coord, hub, signer))

	r.Group(func(r chi.Router) {
		r.Use(middleware.LogMiddleware(logger))
		r.Get("/healthz", Healthz)
		r.Get("/stats", StatsHandler(coord))
		r.Get("/lobbies", LobbiesHandler(coord, hub))
		if rounds != nil {
			r.Get("/rounds", RoundsHandler(logger, coord, rounds))
		}
	})
	return r
}

func Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// StatsHandler serves the cumulative round statistics.
func StatsHandler(coord *game.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, coord.Stats())
	}
}

type lobbySummary struct {
	ID            string `json:"id"`
	Bots          bool   `json:"bots"`
	ReadinessGate bool   `json:"readinessGate"`
	Phase         string `json:"phase"`
	Members       int    `json:"members"`
}

// LobbiesHandler lists the configured lobbies with their current phase.
func LobbiesHandler(coord *game.Coordinator, hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		lobbies := coord.Registry().Lobbies()
		out := struct {
			Connections int            `json:"connections"`
			Lobbies     []lobbySummary `json:"lobbies"`
		}{Connections: hub.Count(), Lobbies: make([]lobbySummary, 0, len(lobbies))}
		for _, l := range lobbies {
			l.Mu.Lock()
			out.Lobbies = append(out.Lobbies, lobbySummary{
				ID:            l.ID,
				Bots:          l.Mode.Bots,
				ReadinessGate: l.Mode.ReadinessGate,
				Phase:         l.PhaseUnsafe().String(),
				Members:       len(l.MembersUnsafe()),
			})
			l.Mu.Unlock()
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// RoundsHandler serves the latest resolved rounds of ?lobby= (the default
// lobby if omitted), newest first. ?limit= caps the result.
func RoundsHandler(logger *logrus.Logger, coord *game.Coordinator, rounds RoundLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lobbyID := r.URL.Query().Get("lobby")
		if lobbyID == "" {
			lobbyID = coord.Registry().DefaultLobby()
		}
		if _, ok := coord.Registry().Lobby(lobbyID); !ok {
			http.Error(w, "unknown lobby", http.StatusNotFound)
			return
		}
		limit := defaultRoundsLimit
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = min(n, maxRoundsLimit)
		}

		recs, err := rounds.RecentRounds(r.Context(), lobbyID, limit)
		if err != nil {
			logger.WithError(err).WithField("lobby", lobbyID).Error("Failed to load round history")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if recs == nil {
			recs = []models.RoundRecord{}
		}
		writeJSON(w, http.StatusOK, recs)
	}
}
