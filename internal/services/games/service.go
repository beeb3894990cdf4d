package games

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/mcoot/futebolada/internal/dependencies/clock"
	"github.com/mcoot/futebolada/internal/dependencies/ids"
	"github.com/mcoot/futebolada/internal/model"
	"github.com/mcoot/futebolada/internal/storage"
)

const (
	// PageSize is the number of past games per page
	PageSize = 10
	// UnknownLocation is used when a location cannot be resolved
	UnknownLocation = "Unknown Location"
	// MaxPlayersLimit caps the roster size of a game
	MaxPlayersLimit = 100
	// MaxPrice caps the price of a game, in euros
	MaxPrice = 10000
)

// Geocoder resolves coordinates to a place name
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (string, error)
}

// CreateGameInput holds the fields an admin provides for a new game
type CreateGameInput struct {
	Date       string
	StartTime  string
	EndTime    string
	Latitude   float64
	Longitude  float64
	MaxPlayers int
	// Price in euros
	Price float64
	// Location overrides the geocoded name when set
	Location string
}

// Service manages game creation and game read models
type Service struct {
	storage  storage.Storage
	clock    clock.Clock
	ids      ids.Generator
	geocoder Geocoder
	location *time.Location
	logger   *slog.Logger
}

// New creates a new games Service. geocoder may be nil.
func New(storage storage.Storage, clock clock.Clock, ids ids.Generator, geocoder Geocoder, location *time.Location, logger *slog.Logger) *Service {
	if location == nil {
		location = time.UTC
	}
	return &Service{
		storage:  storage,
		clock:    clock,
		ids:      ids,
		geocoder: geocoder,
		location: location,
		logger:   logger,
	}
}

// CreateGame validates and stores a new game. Admin only.
func (s *Service) CreateGame(ctx context.Context, actor *model.User, in CreateGameInput) (*model.Game, error) {
	if !actor.IsAdmin() {
		return nil, model.ErrNotAdmin
	}
	if err := validate(in); err != nil {
		return nil, err
	}

	location := strings.TrimSpace(in.Location)
	if location == "" {
		location = s.resolveLocation(ctx, in.Latitude, in.Longitude)
	}

	now := s.clock.Now()
	game := &model.Game{
		ID:         model.GameID(s.ids.NewID()),
		Date:       in.Date,
		StartTime:  in.StartTime,
		EndTime:    in.EndTime,
		Latitude:   in.Latitude,
		Longitude:  in.Longitude,
		Location:   location,
		MaxPlayers: in.MaxPlayers,
		PriceCents: int64(math.Round(in.Price * 100)),
		CreatedBy:  actor.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.storage.CreateGame(ctx, game); err != nil {
		return nil, err
	}

	s.logger.Info("game created",
		slog.String("game_id", string(game.ID)),
		slog.String("date", game.Date),
		slog.Int("max_players", game.MaxPlayers),
	)
	return game, nil
}

// GetGame returns a game with its roster
func (s *Service) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	return s.storage.GetGame(ctx, id)
}

// UpcomingGames returns games that have not ended yet, soonest first
func (s *Service) UpcomingGames(ctx context.Context) ([]model.Game, error) {
	today, now := s.today()
	return s.storage.ListUpcomingGames(ctx, today, now)
}

// PastGames returns one page of ended games, most recent first. Pages start at 1.
func (s *Service) PastGames(ctx context.Context, page int) (*model.PageResult, error) {
	if page < 1 {
		page = 1
	}
	today, now := s.today()
	games, total, err := s.storage.ListPastGames(ctx, today, now, (page-1)*PageSize, PageSize)
	if err != nil {
		return nil, err
	}
	return &model.PageResult{
		Games:      games,
		Page:       page,
		TotalCount: total,
		TotalPages: (total + PageSize - 1) / PageSize,
	}, nil
}

// AvailableGuests returns the guests not yet enrolled in the game, ordered by name
func (s *Service) AvailableGuests(ctx context.Context, gameID model.GameID) ([]model.Guest, error) {
	game, err := s.storage.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	guests, err := s.storage.ListGuests(ctx)
	if err != nil {
		return nil, err
	}

	enrolled := make(map[model.PlayerID]bool, len(game.Enrollments))
	for _, e := range game.Enrollments {
		if e.PlayerKind == model.PlayerKindGuest {
			enrolled[e.PlayerID] = true
		}
	}

	available := make([]model.Guest, 0, len(guests))
	for _, g := range guests {
		if !enrolled[g.PlayerID] {
			available = append(available, g)
		}
	}
	return available, nil
}

// IsOver reports whether the game has ended in the configured zone
func (s *Service) IsOver(game *model.Game) bool {
	return game.IsOver(s.clock.Now(), s.location)
}

func (s *Service) today() (string, string) {
	now := s.clock.Now().In(s.location)
	return now.Format(model.DateLayout), now.Format(model.TimeLayout)
}

func (s *Service) resolveLocation(ctx context.Context, lat, lon float64) string {
	if s.geocoder == nil {
		return UnknownLocation
	}
	name, err := s.geocoder.Reverse(ctx, lat, lon)
	if err != nil {
		s.logger.Warn("reverse geocoding failed",
			slog.Float64("latitude", lat),
			slog.Float64("longitude", lon),
			slog.String("error", err.Error()),
		)
		return UnknownLocation
	}
	if name == "" {
		return UnknownLocation
	}
	return name
}

func validate(in CreateGameInput) error {
	date, err := time.Parse(model.DateLayout, in.Date)
	if err != nil || date.Format(model.DateLayout) != in.Date {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", model.ErrInvalidGame)
	}
	start, err := time.Parse(model.TimeLayout, in.StartTime)
	if err != nil || start.Format(model.TimeLayout) != in.StartTime {
		return fmt.Errorf("%w: start time must be HH:MM", model.ErrInvalidGame)
	}
	end, err := time.Parse(model.TimeLayout, in.EndTime)
	if err != nil || end.Format(model.TimeLayout) != in.EndTime {
		return fmt.Errorf("%w: end time must be HH:MM", model.ErrInvalidGame)
	}
	if !end.After(start) {
		return fmt.Errorf("%w: end time must be after start time", model.ErrInvalidGame)
	}
	if in.MaxPlayers < 1 || in.MaxPlayers > MaxPlayersLimit {
		return fmt.Errorf("%w: max players must be between 1 and %d", model.ErrInvalidGame, MaxPlayersLimit)
	}
	if math.IsNaN(in.Price) || in.Price < 0 || in.Price > MaxPrice {
		return fmt.Errorf("%w: price must be between 0 and %d", model.ErrInvalidGame, MaxPrice)
	}
	if math.IsNaN(in.Latitude) || in.Latitude < -90 || in.Latitude > 90 {
		return fmt.Errorf("%w: latitude must be between -90 and 90", model.ErrInvalidGame)
	}
	if math.IsNaN(in.Longitude) || in.Longitude < -180 || in.Longitude > 180 {
		return fmt.Errorf("%w: longitude must be between -180 and 180", model.ErrInvalidGame)
	}
	return nil
}
