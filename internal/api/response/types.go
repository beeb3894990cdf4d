package response

import (
	"time"

	"github.com/mcoot/futebolada/internal/model"
	"github.com/mcoot/futebolada/internal/services/auth"
)

// User represents an account in API responses
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	Role        string `json:"role"`
}

// UserFromModel converts a model.User to a response User
func UserFromModel(u *model.User) User {
	return User{
		ID:          string(u.ID),
		Email:       u.Email,
		Name:        u.Name,
		DisplayName: u.DisplayName,
		Role:        string(u.Role),
	}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	User         User      `json:"user"`
	PlayerID     string    `json:"player_id"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		User:         UserFromModel(&s.User),
		PlayerID:     string(s.Player.ID),
		SessionToken: s.Token,
		ExpiresAt:    s.ExpiresAt,
	}
}

// Me is the current user together with their player
type Me struct {
	User
	PlayerID string `json:"player_id"`
}

// Enrollment represents one roster slot
type Enrollment struct {
	ID         string  `json:"id"`
	GameID     string  `json:"game_id"`
	PlayerID   string  `json:"player_id"`
	PlayerName string  `json:"player_name"`
	PlayerKind string  `json:"player_kind"`
	Position   int     `json:"position"`
	Team       *string `json:"team"`
	CreatedBy  string  `json:"created_by"`
}

// EnrollmentFromModel converts model.Enrollment
func EnrollmentFromModel(e *model.Enrollment) Enrollment {
	var team *string
	if e.Team != nil {
		t := string(*e.Team)
		team = &t
	}
	return Enrollment{
		ID:         string(e.ID),
		GameID:     string(e.GameID),
		PlayerID:   string(e.PlayerID),
		PlayerName: e.PlayerName,
		PlayerKind: string(e.PlayerKind),
		Position:   e.Position,
		Team:       team,
		CreatedBy:  string(e.CreatedBy),
	}
}

// Game represents a game and its roster
type Game struct {
	ID            string       `json:"id"`
	Date          string       `json:"date"`
	StartTime     string       `json:"start_time"`
	EndTime       string       `json:"end_time"`
	Latitude      float64      `json:"latitude"`
	Longitude     float64      `json:"longitude"`
	Location      string       `json:"location"`
	MaxPlayers    int          `json:"max_players"`
	PriceCents    int64        `json:"price_cents"`
	Winner        *string      `json:"winner"`
	IsOver        bool         `json:"is_over"`
	EnrolledCount int          `json:"enrolled_count"`
	Enrollments   []Enrollment `json:"enrollments"`
}

// GameFromModel converts model.Game
func GameFromModel(g *model.Game, isOver bool) Game {
	enrollments := make([]Enrollment, len(g.Enrollments))
	for i := range g.Enrollments {
		enrollments[i] = EnrollmentFromModel(&g.Enrollments[i])
	}

	var winner *string
	if g.Winner != nil {
		w := string(*g.Winner)
		winner = &w
	}

	return Game{
		ID:            string(g.ID),
		Date:          g.Date,
		StartTime:     g.StartTime,
		EndTime:       g.EndTime,
		Latitude:      g.Latitude,
		Longitude:     g.Longitude,
		Location:      g.Location,
		MaxPlayers:    g.MaxPlayers,
		PriceCents:    g.PriceCents,
		Winner:        winner,
		IsOver:        isOver,
		EnrolledCount: len(g.Enrollments),
		Enrollments:   enrollments,
	}
}

// GameList is a list of games
type GameList struct {
	Games []Game `json:"games"`
}

// GamePage is one page of past games
type GamePage struct {
	Games      []Game `json:"games"`
	Page       int    `json:"page"`
	TotalCount int    `json:"total_count"`
	TotalPages int    `json:"total_pages"`
}

// Positions lists the free slots of a game
type Positions struct {
	Available []int `json:"available"`
}

// Guest represents a guest in API responses
type Guest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GuestsFromModel converts a list of model.Guest
func GuestsFromModel(guests []model.Guest) []Guest {
	out := make([]Guest, len(guests))
	for i, g := range guests {
		out[i] = Guest{ID: string(g.ID), Name: g.Name}
	}
	return out
}

// GuestList is a list of guests
type GuestList struct {
	Guests []Guest `json:"guests"`
}
