package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mcoot/futebolada/internal/api/middleware"
	"github.com/mcoot/futebolada/internal/api/request"
	"github.com/mcoot/futebolada/internal/api/response"
	"github.com/mcoot/futebolada/internal/model"
	"github.com/mcoot/futebolada/internal/services/enrollment"
	"github.com/mcoot/futebolada/internal/services/games"
)

// GameHandler handles game endpoints
type GameHandler struct {
	games      *games.Service
	enrollment *enrollment.Service
}

// NewGameHandler creates a new game handler
func NewGameHandler(games *games.Service, enrollment *enrollment.Service) *GameHandler {
	return &GameHandler{
		games:      games,
		enrollment: enrollment,
	}
}

// List handles GET /api/v1/games
func (h *GameHandler) List(w http.ResponseWriter, r *http.Request) {
	upcoming, err := h.games.UpcomingGames(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.GameList{Games: h.toResponse(upcoming)})
}

// Past handles GET /api/v1/games/past?page=N
func (h *GameHandler) Past(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			WriteError(w, NewInvalidRequestError("page must be a positive integer"))
			return
		}
		page = n
	}

	result, err := h.games.PastGames(r.Context(), page)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GamePage{
		Games:      h.toResponse(result.Games),
		Page:       result.Page,
		TotalCount: result.TotalCount,
		TotalPages: result.TotalPages,
	})
}

// Create handles POST /api/v1/games
func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := middleware.MustGetUser(r.Context())

	var req request.CreateGameRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	game, err := h.games.CreateGame(r.Context(), actor, games.CreateGameInput{
		Date:       req.Date,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		MaxPlayers: req.MaxPlayers,
		Price:      req.Price,
		Location:   req.Location,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.GameFromModel(game, h.games.IsOver(game)))
}

// Get handles GET /api/v1/games/{id}
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	game, err := h.games.GetGame(r.Context(), gameID(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.GameFromModel(game, h.games.IsOver(game)))
}

// Positions handles GET /api/v1/games/{id}/positions
func (h *GameHandler) Positions(w http.ResponseWriter, r *http.Request) {
	available, err := h.enrollment.AvailablePositions(r.Context(), gameID(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.Positions{Available: available})
}

// Guests handles GET /api/v1/games/{id}/guests
func (h *GameHandler) Guests(w http.ResponseWriter, r *http.Request) {
	guests, err := h.games.AvailableGuests(r.Context(), gameID(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.GuestList{Guests: response.GuestsFromModel(guests)})
}

func (h *GameHandler) toResponse(list []model.Game) []response.Game {
	out := make([]response.Game, len(list))
	for i := range list {
		out[i] = response.GameFromModel(&list[i], h.games.IsOver(&list[i]))
	}
	return out
}

func gameID(r *http.Request) model.GameID {
	return model.GameID(mux.Vars(r)["id"])
}
