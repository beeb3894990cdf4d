package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		_, _ = fmt.Fprintln(o.w, string(data))
	} else {
		_, _ = fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case User:
		o.printUser(v)
	case Me:
		o.printUser(v.User)
		o.printf("Player: %s\n", v.PlayerID)
	case AuthResult:
		o.printUser(v.User)
		o.printf("Player: %s\n", v.PlayerID)
		o.printf("Token: %s\n", v.SessionToken)
	case Game:
		o.printGame(v)
	case GameList:
		o.printGames(v.Games)
	case GamePage:
		o.printGames(v.Games)
		o.printf("Page %d of %d (%d games)\n", v.Page, v.TotalPages, v.TotalCount)
	case Enrollment:
		o.printEnrollment(v)
	case Positions:
		o.printPositions(v)
	case GuestList:
		for _, g := range v.Guests {
			o.printf("%s (%s)\n", g.Name, g.ID)
		}
	case HealthResult:
		o.printf("Status: %s\n", v.Status)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(o.w, format, args...)
}

// User response type (matches API)
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	Role        string `json:"role"`
}

// AuthResult combines user, player and token
type AuthResult struct {
	User         User   `json:"user"`
	PlayerID     string `json:"player_id"`
	SessionToken string `json:"session_token"`
}

// Me response type
type Me struct {
	User
	PlayerID string `json:"player_id"`
}

// Enrollment response type
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

// Game response type
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

// GameList response type
type GameList struct {
	Games []Game `json:"games"`
}

// GamePage response type
type GamePage struct {
	Games      []Game `json:"games"`
	Page       int    `json:"page"`
	TotalCount int    `json:"total_count"`
	TotalPages int    `json:"total_pages"`
}

// Positions response type
type Positions struct {
	Available []int `json:"available"`
}

// Guest response type
type Guest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GuestList response type
type GuestList struct {
	Guests []Guest `json:"guests"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printUser(u User) {
	name := u.Name
	if u.DisplayName != "" {
		name = u.DisplayName
	}
	o.printf("User: %s <%s> (%s)\n", name, u.Email, u.ID)
	o.printf("Role: %s\n", u.Role)
}

func (o *Output) printGames(games []Game) {
	if len(games) == 0 {
		o.printf("No games\n")
		return
	}
	for _, g := range games {
		o.printf("%s  %s %s-%s  %d/%d  %s\n", g.ID, g.Date, g.StartTime, g.EndTime, g.EnrolledCount, g.MaxPlayers, g.Location)
	}
}

func (o *Output) printGame(g Game) {
	o.printf("Game: %s\n", g.ID)
	o.printf("When: %s %s-%s\n", g.Date, g.StartTime, g.EndTime)
	o.printf("Where: %s (%.4f, %.4f)\n", g.Location, g.Latitude, g.Longitude)
	o.printf("Price: %d.%02d\n", g.PriceCents/100, g.PriceCents%100)
	if g.IsOver {
		o.printf("State: over\n")
	}
	if g.Winner != nil {
		o.printf("Winner: %s\n", *g.Winner)
	}

	o.printf("Players (%d/%d):\n", g.EnrolledCount, g.MaxPlayers)
	for _, e := range g.Enrollments {
		team := ""
		if e.Team != nil {
			team = " [" + *e.Team + "]"
		}
		guest := ""
		if e.PlayerKind == "guest" {
			guest = " (guest)"
		}
		o.printf("  %2d. %s%s%s\n", e.Position, e.PlayerName, guest, team)
	}
}

func (o *Output) printEnrollment(e Enrollment) {
	o.printf("Enrolled %s at position %d (%s)\n", e.PlayerName, e.Position, e.ID)
	if e.Team != nil {
		o.printf("Team: %s\n", *e.Team)
	}
}

func (o *Output) printPositions(p Positions) {
	if len(p.Available) == 0 {
		o.printf("Game is full\n")
		return
	}
	nums := make([]string, len(p.Available))
	for i, n := range p.Available {
		nums[i] = fmt.Sprint(n)
	}
	o.printf("Available: %s\n", strings.Join(nums, ", "))
}
