package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/futebolada/internal/api/middleware"
	"github.com/mcoot/futebolada/internal/api/request"
	"github.com/mcoot/futebolada/internal/api/response"
	"github.com/mcoot/futebolada/internal/model"
	"github.com/mcoot/futebolada/internal/notify"
	"github.com/mcoot/futebolada/internal/services/enrollment"
	"github.com/mcoot/futebolada/internal/services/games"
)

// EnrollmentHandler handles roster endpoints
type EnrollmentHandler struct {
	games      *games.Service
	enrollment *enrollment.Service
	notifier   notify.Notifier
	logger     *slog.Logger
}

// NewEnrollmentHandler creates a new enrollment handler
func NewEnrollmentHandler(games *games.Service, enrollment *enrollment.Service, notifier notify.Notifier, logger *slog.Logger) *EnrollmentHandler {
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	return &EnrollmentHandler{
		games:      games,
		enrollment: enrollment,
		notifier:   notifier,
		logger:     logger,
	}
}

// EnrollSelf handles POST /api/v1/games/{id}/enrollments
func (h *EnrollmentHandler) EnrollSelf(w http.ResponseWriter, r *http.Request) {
	actor := middleware.MustGetUser(r.Context())

	var req request.EnrollRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	e, err := h.enrollment.EnrollSelf(r.Context(), actor, gameID(r), req.Position)
	if err != nil {
		WriteError(w, err)
		return
	}

	h.announce(r, e.GameID, func(g *model.Game) { h.notifier.Enrolled(g, e.PlayerName, e.Position) })
	response.JSON(w, http.StatusCreated, response.EnrollmentFromModel(e))
}

// EnrollGuest handles POST /api/v1/games/{id}/guests
func (h *EnrollmentHandler) EnrollGuest(w http.ResponseWriter, r *http.Request) {
	actor := middleware.MustGetUser(r.Context())

	var req request.EnrollGuestRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	e, err := h.enrollment.EnrollGuest(r.Context(), actor, gameID(r), req.Name, req.Position)
	if err != nil {
		WriteError(w, err)
		return
	}

	h.announce(r, e.GameID, func(g *model.Game) { h.notifier.Enrolled(g, e.PlayerName, e.Position) })
	response.JSON(w, http.StatusCreated, response.EnrollmentFromModel(e))
}

// Unenroll handles DELETE /api/v1/games/{id}/enrollments/{playerId}
func (h *EnrollmentHandler) Unenroll(w http.ResponseWriter, r *http.Request) {
	actor := middleware.MustGetUser(r.Context())
	playerID := model.PlayerID(mux.Vars(r)["playerId"])

	removed, err := h.enrollment.Unenroll(r.Context(), actor, gameID(r), playerID)
	if err != nil {
		WriteError(w, err)
		return
	}

	if removed != nil {
		h.announce(r, removed.GameID, func(g *model.Game) { h.notifier.Unenrolled(g, removed.PlayerName, removed.Position) })
	}
	response.NoContent(w)
}

// AssignTeam handles PUT /api/v1/games/{id}/enrollments/{enrollmentId}/team
func (h *EnrollmentHandler) AssignTeam(w http.ResponseWriter, r *http.Request) {
	actor := middleware.MustGetUser(r.Context())
	enrollmentID := model.EnrollmentID(mux.Vars(r)["enrollmentId"])

	var req request.TeamRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	team, err := model.ParseTeam(req.Team)
	if err != nil {
		WriteError(w, err)
		return
	}

	e, err := h.enrollment.AssignTeam(r.Context(), actor, gameID(r), enrollmentID, team)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.EnrollmentFromModel(e))
}

// DeclareWinner handles PUT /api/v1/games/{id}/winner
func (h *EnrollmentHandler) DeclareWinner(w http.ResponseWriter, r *http.Request) {
	actor := middleware.MustGetUser(r.Context())

	var req request.TeamRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	outcome, err := model.ParseOutcome(req.Team)
	if err != nil {
		WriteError(w, err)
		return
	}

	game, err := h.enrollment.DeclareWinner(r.Context(), actor, gameID(r), outcome)
	if err != nil {
		WriteError(w, err)
		return
	}

	h.notifier.WinnerDeclared(game)
	response.JSON(w, http.StatusOK, response.GameFromModel(game, h.games.IsOver(game)))
}

// announce reloads the game and hands it to fn. A failed reload only skips the announcement.
func (h *EnrollmentHandler) announce(r *http.Request, id model.GameID, fn func(*model.Game)) {
	game, err := h.games.GetGame(r.Context(), id)
	if err != nil {
		h.logger.Warn("skipping roster notification",
			slog.String("game_id", string(id)),
			slog.String("error", err.Error()),
		)
		return
	}
	fn(game)
}
