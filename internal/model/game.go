package model

import (
	"fmt"
	"time"
)

// GameID uniquely identifies a game
type GameID string

// Layouts used for the date and time fields of a game
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Team is the colour an enrolled player is assigned to
type Team string

const (
	TeamWhite Team = "white"
	TeamBlack Team = "black"
)

// ParseTeam parses a team colour. The empty string means unassigned and yields nil.
func ParseTeam(s string) (*Team, error) {
	switch Team(s) {
	case "":
		return nil, nil
	case TeamWhite, TeamBlack:
		t := Team(s)
		return &t, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidTeam, s)
	}
}

// Outcome is the declared result of a game
type Outcome string

const (
	OutcomeWhite Outcome = "white"
	OutcomeBlack Outcome = "black"
	OutcomeDraw  Outcome = "draw"
)

// ParseOutcome parses a winning team value
func ParseOutcome(s string) (Outcome, error) {
	switch o := Outcome(s); o {
	case OutcomeWhite, OutcomeBlack, OutcomeDraw:
		return o, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTeam, s)
	}
}

// Game is a scheduled match with a fixed number of numbered slots
type Game struct {
	ID         GameID
	Date       string // DateLayout
	StartTime  string // TimeLayout
	EndTime    string // TimeLayout
	Latitude   float64
	Longitude  float64
	Location   string
	MaxPlayers int
	PriceCents int64
	Winner     *Outcome // nil until declared
	CreatedBy  UserID
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// Enrollments ordered by position. Populated on read.
	Enrollments []Enrollment
}

// EndsAt returns the end of the game in the given location
func (g *Game) EndsAt(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, g.Date+" "+g.EndTime, loc)
}

// IsOver reports whether now is past the end of the game.
// Times have minute granularity, so the end minute itself is not over.
// A game whose end cannot be parsed is treated as over.
func (g *Game) IsOver(now time.Time, loc *time.Location) bool {
	end, err := g.EndsAt(loc)
	if err != nil {
		return true
	}
	return now.Truncate(time.Minute).After(end)
}

// ValidPosition reports whether p is a slot of this game
func (g *Game) ValidPosition(p int) bool {
	return p >= 1 && p <= g.MaxPlayers
}

// AvailablePositions returns the free slots in ascending order
func (g *Game) AvailablePositions() []int {
	taken := make(map[int]bool, len(g.Enrollments))
	for _, e := range g.Enrollments {
		taken[e.Position] = true
	}
	available := make([]int, 0, max(g.MaxPlayers-len(taken), 0))
	for p := 1; p <= g.MaxPlayers; p++ {
		if !taken[p] {
			available = append(available, p)
		}
	}
	return available
}

// EnrollmentFor returns the enrollment held by the given player, or nil
func (g *Game) EnrollmentFor(playerID PlayerID) *Enrollment {
	for i := range g.Enrollments {
		if g.Enrollments[i].PlayerID == playerID {
			return &g.Enrollments[i]
		}
	}
	return nil
}

// Enrollment returns the enrollment with the given ID, or nil
func (g *Game) Enrollment(id EnrollmentID) *Enrollment {
	for i := range g.Enrollments {
		if g.Enrollments[i].ID == id {
			return &g.Enrollments[i]
		}
	}
	return nil
}

// PageResult is one page of games plus paging totals
type PageResult struct {
	Games      []Game
	Page       int
	TotalCount int
	TotalPages int
}
