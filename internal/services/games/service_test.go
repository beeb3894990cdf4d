package games

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/futebolada/internal/dependencies/mocks"
	"github.com/mcoot/futebolada/internal/model"
	"github.com/mcoot/futebolada/internal/storage"
	"github.com/mcoot/futebolada/internal/storage/memory"
	"github.com/mcoot/futebolada/internal/testutil"
)

type stubGeocoder struct {
	name  string
	err   error
	calls int
}

func (g *stubGeocoder) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	g.calls++
	return g.name, g.err
}

// countingStorage counts per-guest player lookups
type countingStorage struct {
	storage.Storage
	guestLookups int
}

func (c *countingStorage) GetPlayerByGuest(ctx context.Context, guestID model.GuestID) (*model.Player, error) {
	c.guestLookups++
	return c.Storage.GetPlayerByGuest(ctx, guestID)
}

type ServiceSuite struct {
	suite.Suite
	storage  *memory.Storage
	clock    *mocks.MockClock
	geocoder *stubGeocoder
	service  *Service
	ctx      context.Context

	admin *model.User
	alice *model.User
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.geocoder = &stubGeocoder{name: "Campo Grande, Lisboa"}
	s.service = New(s.storage, s.clock, mocks.NewMockIDs(), s.geocoder, time.UTC, testutil.NopLogger())
	s.ctx = context.Background()
	s.admin = &model.User{ID: "u-admin", Role: model.RoleAdmin}
	s.alice = &model.User{ID: "u-alice", Role: model.RoleUser}
}

func validInput() CreateGameInput {
	return CreateGameInput{
		Date:       "2024-01-10",
		StartTime:  "19:00",
		EndTime:    "20:30",
		Latitude:   38.75,
		Longitude:  -9.15,
		MaxPlayers: 10,
		Price:      4.5,
	}
}

// CreateGame tests

func (s *ServiceSuite) TestCreateGame() {
	game, err := s.service.CreateGame(s.ctx, s.admin, validInput())
	s.Require().NoError(err)

	s.Equal(int64(450), game.PriceCents)
	s.Equal("Campo Grande, Lisboa", game.Location)
	s.Equal(s.admin.ID, game.CreatedBy)
	s.Equal(1, s.geocoder.calls)

	stored, err := s.storage.GetGame(s.ctx, game.ID)
	s.Require().NoError(err)
	s.Equal(10, stored.MaxPlayers)
	s.Equal("20:30", stored.EndTime)
}

func (s *ServiceSuite) TestCreateGamePriceRounding() {
	in := validInput()
	in.Price = 12.99
	game, err := s.service.CreateGame(s.ctx, s.admin, in)
	s.Require().NoError(err)
	s.Equal(int64(1299), game.PriceCents)

	in.Price = 0
	game, err = s.service.CreateGame(s.ctx, s.admin, in)
	s.Require().NoError(err)
	s.Equal(int64(0), game.PriceCents)
}

func (s *ServiceSuite) TestCreateGameRequiresAdmin() {
	_, err := s.service.CreateGame(s.ctx, s.alice, validInput())
	s.ErrorIs(err, model.ErrNotAdmin)
}

func (s *ServiceSuite) TestCreateGameValidation() {
	cases := map[string]func(*CreateGameInput){
		"bad date":         func(in *CreateGameInput) { in.Date = "10/01/2024" },
		"impossible date":  func(in *CreateGameInput) { in.Date = "2024-02-30" },
		"bad start":        func(in *CreateGameInput) { in.StartTime = "7pm" },
		"short start":      func(in *CreateGameInput) { in.StartTime = "9:00" },
		"end before start": func(in *CreateGameInput) { in.EndTime = "18:00" },
		"zero players":     func(in *CreateGameInput) { in.MaxPlayers = 0 },
		"too many players": func(in *CreateGameInput) { in.MaxPlayers = MaxPlayersLimit + 1 },
		"huge roster":      func(in *CreateGameInput) { in.MaxPlayers = 1 << 40 },
		"negative price":   func(in *CreateGameInput) { in.Price = -1 },
		"price over cap":   func(in *CreateGameInput) { in.Price = MaxPrice + 0.01 },
		"huge price":       func(in *CreateGameInput) { in.Price = 1e300 },
		"infinite price":   func(in *CreateGameInput) { in.Price = math.Inf(1) },
		"latitude":         func(in *CreateGameInput) { in.Latitude = 91 },
		"longitude":        func(in *CreateGameInput) { in.Longitude = -181 },
	}
	for name, mutate := range cases {
		in := validInput()
		mutate(&in)
		_, err := s.service.CreateGame(s.ctx, s.admin, in)
		s.ErrorIs(err, model.ErrInvalidGame, name)
	}
	s.Equal(0, s.geocoder.calls)
}

func (s *ServiceSuite) TestCreateGameAtLimits() {
	in := validInput()
	in.MaxPlayers = MaxPlayersLimit
	in.Price = MaxPrice
	game, err := s.service.CreateGame(s.ctx, s.admin, in)
	s.Require().NoError(err)
	s.Equal(int64(MaxPrice*100), game.PriceCents)
	s.Len(game.AvailablePositions(), MaxPlayersLimit)
}

func (s *ServiceSuite) TestCreateGameGeocodingFailureIsNotFatal() {
	s.geocoder.err = errors.New("upstream down")

	game, err := s.service.CreateGame(s.ctx, s.admin, validInput())
	s.Require().NoError(err)
	s.Equal(UnknownLocation, game.Location)
}

func (s *ServiceSuite) TestCreateGameEmptyGeocodeName() {
	s.geocoder.name = ""

	game, err := s.service.CreateGame(s.ctx, s.admin, validInput())
	s.Require().NoError(err)
	s.Equal(UnknownLocation, game.Location)
}

func (s *ServiceSuite) TestCreateGameExplicitLocation() {
	in := validInput()
	in.Location = "Pavilhão"

	game, err := s.service.CreateGame(s.ctx, s.admin, in)
	s.Require().NoError(err)
	s.Equal("Pavilhão", game.Location)
	s.Equal(0, s.geocoder.calls)
}

func (s *ServiceSuite) TestCreateGameWithoutGeocoder() {
	svc := New(s.storage, s.clock, mocks.NewMockIDs(), nil, time.UTC, testutil.NopLogger())

	game, err := svc.CreateGame(s.ctx, s.admin, validInput())
	s.Require().NoError(err)
	s.Equal(UnknownLocation, game.Location)
}

// Listing tests

func (s *ServiceSuite) TestUpcomingAndPast() {
	for _, date := range []string{"2023-12-30", "2024-01-01", "2024-01-05"} {
		in := validInput()
		in.Date = date
		in.Location = date
		_, err := s.service.CreateGame(s.ctx, s.admin, in)
		s.Require().NoError(err)
	}

	upcoming, err := s.service.UpcomingGames(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(upcoming, 2)
	s.Equal("2024-01-01", upcoming[0].Date)

	// Advance past the end of today's game
	s.clock.Set(time.Date(2024, 1, 1, 20, 31, 0, 0, time.UTC))
	upcoming, err = s.service.UpcomingGames(s.ctx)
	s.Require().NoError(err)
	s.Len(upcoming, 1)

	past, err := s.service.PastGames(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(2, past.TotalCount)
	s.Equal(1, past.TotalPages)
	s.Equal("2024-01-01", past.Games[0].Date)
}

func (s *ServiceSuite) TestPastGamesPaging() {
	for day := 1; day <= 23; day++ {
		in := validInput()
		in.Date = fmt.Sprintf("2023-11-%02d", day)
		in.Location = "x"
		_, err := s.service.CreateGame(s.ctx, s.admin, in)
		s.Require().NoError(err)
	}

	p1, err := s.service.PastGames(s.ctx, 0)
	s.Require().NoError(err)
	s.Equal(1, p1.Page)
	s.Equal(23, p1.TotalCount)
	s.Equal(3, p1.TotalPages)
	s.Len(p1.Games, PageSize)

	p3, err := s.service.PastGames(s.ctx, 3)
	s.Require().NoError(err)
	s.Len(p3.Games, 3)
	s.Equal("2023-11-01", p3.Games[2].Date)
}

func (s *ServiceSuite) TestUpcomingUsesConfiguredZone() {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	s.Require().NoError(err)
	svc := New(s.storage, s.clock, mocks.NewMockIDs(), nil, tokyo, testutil.NopLogger())

	in := validInput()
	in.Date = "2024-01-01"
	_, err = svc.CreateGame(s.ctx, s.admin, in)
	s.Require().NoError(err)

	// 12:00 UTC is 21:00 in Tokyo, after the 20:30 end
	upcoming, err := svc.UpcomingGames(s.ctx)
	s.Require().NoError(err)
	s.Empty(upcoming)
}

// Guest tests

func (s *ServiceSuite) TestAvailableGuests() {
	game, err := s.service.CreateGame(s.ctx, s.admin, validInput())
	s.Require().NoError(err)

	var maria *model.Player
	for i, name := range []string{"Maria", "Ana", "Rui"} {
		g := &model.Guest{ID: model.GuestID(fmt.Sprintf("g%d", i)), Name: name}
		_, p, _, err := s.storage.FindOrCreateGuest(s.ctx, g, model.NewGuestPlayer(model.PlayerID(fmt.Sprintf("gp%d", i)), g.ID, s.clock.Now()))
		s.Require().NoError(err)
		if name == "Maria" {
			maria = p
		}
	}
	s.Require().NoError(s.storage.CreateEnrollment(s.ctx, &model.Enrollment{
		ID: "e1", GameID: game.ID, PlayerID: maria.ID, Position: 1, CreatedBy: s.admin.ID,
	}))

	guests, err := s.service.AvailableGuests(s.ctx, game.ID)
	s.Require().NoError(err)
	s.Require().Len(guests, 2)
	s.Equal("Ana", guests[0].Name)
	s.Equal("Rui", guests[1].Name)

	_, err = s.service.AvailableGuests(s.ctx, "missing")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *ServiceSuite) TestAvailableGuestsSkipsPerGuestLookups() {
	counting := &countingStorage{Storage: s.storage}
	service := New(counting, s.clock, mocks.NewMockIDs(), nil, time.UTC, testutil.NopLogger())
	game, err := service.CreateGame(s.ctx, s.admin, validInput())
	s.Require().NoError(err)

	var first *model.Player
	for i := 0; i < 20; i++ {
		g := &model.Guest{ID: model.GuestID(fmt.Sprintf("g%02d", i)), Name: fmt.Sprintf("Guest %02d", i)}
		_, p, _, err := s.storage.FindOrCreateGuest(s.ctx, g, model.NewGuestPlayer(model.PlayerID(fmt.Sprintf("gp%02d", i)), g.ID, s.clock.Now()))
		s.Require().NoError(err)
		if i == 0 {
			first = p
		}
	}
	s.Require().NoError(s.storage.CreateEnrollment(s.ctx, &model.Enrollment{
		ID: "e1", GameID: game.ID, PlayerID: first.ID, Position: 1, CreatedBy: s.admin.ID,
	}))

	guests, err := service.AvailableGuests(s.ctx, game.ID)
	s.Require().NoError(err)
	s.Len(guests, 19)
	s.Equal("Guest 01", guests[0].Name)
	s.Equal(0, counting.guestLookups)
}
