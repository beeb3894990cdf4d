package storage

import (
	"context"

	"github.com/mcoot/futebolada/internal/model"
)

// MaxGuests caps how many guests ListGuests returns
const MaxGuests = 1000

// Storage defines the interface for data persistence
type Storage interface {
	// User operations

	// CreateUser stores a user together with its player in one atomic step.
	// The first user stored is given model.RoleAdmin, and user.Role is updated to match.
	// Returns model.ErrEmailExists if the email is taken.
	CreateUser(ctx context.Context, user *model.User, player *model.Player) error
	GetUser(ctx context.Context, id model.UserID) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByProvider(ctx context.Context, provider model.AuthProvider, providerID string) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error

	// Player operations
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	GetPlayerByUser(ctx context.Context, userID model.UserID) (*model.Player, error)
	GetPlayerByGuest(ctx context.Context, guestID model.GuestID) (*model.Player, error)

	// Guest operations

	// FindOrCreateGuest returns the guest whose name equals guest.Name exactly, with its player.
	// If none exists, guest and player are stored and returned. created reports which happened.
	FindOrCreateGuest(ctx context.Context, guest *model.Guest, player *model.Player) (g *model.Guest, p *model.Player, created bool, err error)
	GetGuest(ctx context.Context, id model.GuestID) (*model.Guest, error)
	// ListGuests returns guests ordered by name, at most MaxGuests
	ListGuests(ctx context.Context) ([]model.Guest, error)

	// Game operations
	CreateGame(ctx context.Context, game *model.Game) error
	// GetGame returns the game with its enrollments ordered by position
	GetGame(ctx context.Context, id model.GameID) (*model.Game, error)
	// ListUpcomingGames returns games where date > today, or date == today and end time >= now,
	// ordered by date and start time. today uses model.DateLayout, now uses model.TimeLayout.
	ListUpcomingGames(ctx context.Context, today, now string) ([]model.Game, error)
	// ListPastGames returns the complement of ListUpcomingGames, newest first, and the total count
	ListPastGames(ctx context.Context, today, now string, offset, limit int) ([]model.Game, int, error)
	SetWinner(ctx context.Context, id model.GameID, outcome model.Outcome) error

	// Enrollment operations

	// CreateEnrollment atomically checks that the position is free and the player is not
	// already in the game, then stores the enrollment. Returns model.ErrPositionTaken or
	// model.ErrAlreadyEnrolled. Uniqueness holds under concurrent callers.
	CreateEnrollment(ctx context.Context, enrollment *model.Enrollment) error
	GetEnrollment(ctx context.Context, id model.EnrollmentID) (*model.Enrollment, error)
	GetEnrollmentByPlayer(ctx context.Context, gameID model.GameID, playerID model.PlayerID) (*model.Enrollment, error)
	// DeleteEnrollment removes the (game, player) enrollment. Deleting nothing is not an error.
	DeleteEnrollment(ctx context.Context, gameID model.GameID, playerID model.PlayerID) error
	// SetEnrollmentTeam sets or clears (nil) the team of an enrollment
	SetEnrollmentTeam(ctx context.Context, id model.EnrollmentID, team *model.Team) error
}
