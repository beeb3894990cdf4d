package enrollment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mcoot/futebolada/internal/dependencies/clock"
	"github.com/mcoot/futebolada/internal/dependencies/ids"
	"github.com/mcoot/futebolada/internal/model"
	"github.com/mcoot/futebolada/internal/storage"
)

// Service mediates every change to a game's roster
type Service struct {
	storage  storage.Storage
	clock    clock.Clock
	ids      ids.Generator
	location *time.Location
	logger   *slog.Logger
}

// ServiceInterface lists the roster operations
type ServiceInterface interface {
	Enroll(ctx context.Context, actor *model.User, gameID model.GameID, playerID model.PlayerID, position int) (*model.Enrollment, error)
	EnrollSelf(ctx context.Context, actor *model.User, gameID model.GameID, position int) (*model.Enrollment, error)
	EnrollGuest(ctx context.Context, actor *model.User, gameID model.GameID, name string, position int) (*model.Enrollment, error)
	Unenroll(ctx context.Context, actor *model.User, gameID model.GameID, playerID model.PlayerID) (*model.Enrollment, error)
	AssignTeam(ctx context.Context, actor *model.User, gameID model.GameID, enrollmentID model.EnrollmentID, team *model.Team) (*model.Enrollment, error)
	DeclareWinner(ctx context.Context, actor *model.User, gameID model.GameID, outcome model.Outcome) (*model.Game, error)
	AvailablePositions(ctx context.Context, gameID model.GameID) ([]int, error)
}

// Ensure Service implements ServiceInterface
var _ ServiceInterface = (*Service)(nil)

// New creates a new enrollment Service. Game dates and times are read in location.
func New(storage storage.Storage, clock clock.Clock, ids ids.Generator, location *time.Location, logger *slog.Logger) *Service {
	if location == nil {
		location = time.UTC
	}
	return &Service{
		storage:  storage,
		clock:    clock,
		ids:      ids,
		location: location,
		logger:   logger,
	}
}

// Enroll puts playerID into position of the game on behalf of actor.
// Fails with ErrPositionTaken or ErrAlreadyEnrolled when either roster invariant would break.
func (s *Service) Enroll(ctx context.Context, actor *model.User, gameID model.GameID, playerID model.PlayerID, position int) (*model.Enrollment, error) {
	game, err := s.openGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if !game.ValidPosition(position) {
		return nil, fmt.Errorf("%w: must be between 1 and %d", model.ErrInvalidPosition, game.MaxPlayers)
	}
	return s.enroll(ctx, actor, game, playerID, position)
}

// EnrollSelf enrolls the actor's own player
func (s *Service) EnrollSelf(ctx context.Context, actor *model.User, gameID model.GameID, position int) (*model.Enrollment, error) {
	player, err := s.storage.GetPlayerByUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	return s.Enroll(ctx, actor, gameID, player.ID, position)
}

// EnrollGuest enrolls the guest with exactly this name, creating it first if needed
func (s *Service) EnrollGuest(ctx context.Context, actor *model.User, gameID model.GameID, name string, position int) (*model.Enrollment, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: guest name is required", model.ErrInvalidInput)
	}

	game, err := s.openGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if !game.ValidPosition(position) {
		return nil, fmt.Errorf("%w: must be between 1 and %d", model.ErrInvalidPosition, game.MaxPlayers)
	}

	now := s.clock.Now()
	candidate := &model.Guest{
		ID:        model.GuestID(s.ids.NewID()),
		Name:      name,
		CreatedBy: actor.ID,
		CreatedAt: now,
	}
	guest, player, created, err := s.storage.FindOrCreateGuest(ctx, candidate, model.NewGuestPlayer(model.PlayerID(s.ids.NewID()), candidate.ID, now))
	if err != nil {
		return nil, err
	}
	if created {
		s.logger.Info("guest created", slog.String("guest_id", string(guest.ID)), slog.String("by", string(actor.ID)))
	}

	return s.enroll(ctx, actor, game, player.ID, position)
}

// Unenroll removes the player's slot in the game. Only the user who made the
// enrollment may remove it. Removing a player who is not enrolled is a no-op
// and returns a nil enrollment.
func (s *Service) Unenroll(ctx context.Context, actor *model.User, gameID model.GameID, playerID model.PlayerID) (*model.Enrollment, error) {
	if _, err := s.openGame(ctx, gameID); err != nil {
		return nil, err
	}

	existing, err := s.storage.GetEnrollmentByPlayer(ctx, gameID, playerID)
	if errors.Is(err, model.ErrEnrollmentNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if existing.CreatedBy != actor.ID {
		return nil, model.ErrNotEnrollmentOwner
	}

	if err := s.storage.DeleteEnrollment(ctx, gameID, playerID); err != nil {
		return nil, err
	}
	s.logger.Info("player unenrolled",
		slog.String("game_id", string(gameID)),
		slog.String("player_id", string(playerID)),
		slog.Int("position", existing.Position),
	)
	return existing, nil
}

// AssignTeam sets or clears (nil) the team of an enrollment. Admin only.
func (s *Service) AssignTeam(ctx context.Context, actor *model.User, gameID model.GameID, enrollmentID model.EnrollmentID, team *model.Team) (*model.Enrollment, error) {
	if !actor.IsAdmin() {
		return nil, model.ErrNotAdmin
	}
	if team != nil && *team != model.TeamWhite && *team != model.TeamBlack {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidTeam, *team)
	}
	if _, err := s.openGame(ctx, gameID); err != nil {
		return nil, err
	}

	e, err := s.storage.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if e.GameID != gameID {
		return nil, model.ErrEnrollmentNotFound
	}

	if err := s.storage.SetEnrollmentTeam(ctx, enrollmentID, team); err != nil {
		return nil, err
	}
	e.Team = team
	return e, nil
}

// DeclareWinner records the result of the game. Admin only.
// A later declaration replaces an earlier one.
func (s *Service) DeclareWinner(ctx context.Context, actor *model.User, gameID model.GameID, outcome model.Outcome) (*model.Game, error) {
	if !actor.IsAdmin() {
		return nil, model.ErrNotAdmin
	}
	if _, err := model.ParseOutcome(string(outcome)); err != nil {
		return nil, err
	}

	game, err := s.storage.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game.Winner != nil && *game.Winner != outcome {
		s.logger.Info("winner overwritten",
			slog.String("game_id", string(gameID)),
			slog.String("previous", string(*game.Winner)),
			slog.String("winner", string(outcome)),
		)
	}

	if err := s.storage.SetWinner(ctx, gameID, outcome); err != nil {
		return nil, err
	}
	game.Winner = &outcome
	return game, nil
}

// AvailablePositions returns the free slots of a game
func (s *Service) AvailablePositions(ctx context.Context, gameID model.GameID) ([]int, error) {
	game, err := s.storage.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return game.AvailablePositions(), nil
}

// openGame loads a game that still accepts roster changes
func (s *Service) openGame(ctx context.Context, gameID model.GameID) (*model.Game, error) {
	game, err := s.storage.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game.IsOver(s.clock.Now(), s.location) {
		return nil, model.ErrGameOver
	}
	return game, nil
}

// enroll checks the loaded roster first. Storage still rejects conflicts
// from concurrent writers that the snapshot missed.
func (s *Service) enroll(ctx context.Context, actor *model.User, game *model.Game, playerID model.PlayerID, position int) (*model.Enrollment, error) {
	for _, taken := range game.Enrollments {
		if taken.Position == position {
			return nil, model.ErrPositionTaken
		}
	}
	if game.EnrollmentFor(playerID) != nil {
		return nil, model.ErrAlreadyEnrolled
	}

	e := &model.Enrollment{
		ID:        model.EnrollmentID(s.ids.NewID()),
		GameID:    game.ID,
		PlayerID:  playerID,
		Position:  position,
		CreatedBy: actor.ID,
		CreatedAt: s.clock.Now(),
	}
	if err := s.storage.CreateEnrollment(ctx, e); err != nil {
		return nil, err
	}

	s.logger.Info("player enrolled",
		slog.String("game_id", string(game.ID)),
		slog.String("player_id", string(playerID)),
		slog.Int("position", position),
	)

	stored, err := s.storage.GetEnrollment(ctx, e.ID)
	if err != nil {
		return e, nil
	}
	return stored, nil
}
