// Package storagetest holds behaviour tests shared by every storage implementation.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/futebolada/internal/model"
	"github.com/mcoot/futebolada/internal/storage"
)

// Suite runs the storage contract against the store returned by NewStorage
type Suite struct {
	suite.Suite

	// NewStorage returns an empty store. Called before every test.
	NewStorage func() storage.Storage

	Store storage.Storage
	Ctx   context.Context
	Now   time.Time

	seq int
}

func (s *Suite) SetupTest() {
	s.Store = s.NewStorage()
	s.Ctx = context.Background()
	s.Now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.seq = 0
}

func (s *Suite) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%04d", prefix, s.seq)
}

// CreateUser stores a local user with its player
func (s *Suite) CreateUser(email, name string) (*model.User, *model.Player) {
	user := &model.User{
		ID:           model.UserID(s.nextID("user")),
		Email:        email,
		Name:         name,
		Role:         model.RoleUser,
		AuthProvider: model.AuthProviderLocal,
		CreatedAt:    s.Now,
		UpdatedAt:    s.Now,
	}
	player := model.NewUserPlayer(model.PlayerID(s.nextID("player")), user.ID, s.Now)
	s.Require().NoError(s.Store.CreateUser(s.Ctx, user, player))
	return user, player
}

// CreateGame stores a game on the given date
func (s *Suite) CreateGame(date string, maxPlayers int) *model.Game {
	game := &model.Game{
		ID:         model.GameID(s.nextID("game")),
		Date:       date,
		StartTime:  "19:00",
		EndTime:    "20:00",
		Latitude:   38.72,
		Longitude:  -9.14,
		Location:   "Campo Grande",
		MaxPlayers: maxPlayers,
		PriceCents: 500,
		CreatedBy:  "admin",
		CreatedAt:  s.Now,
		UpdatedAt:  s.Now,
	}
	s.Require().NoError(s.Store.CreateGame(s.Ctx, game))
	return game
}

// Enrollment builds an unsaved enrollment
func (s *Suite) Enrollment(game *model.Game, player *model.Player, position int, by model.UserID) *model.Enrollment {
	return &model.Enrollment{
		ID:        model.EnrollmentID(s.nextID("enrollment")),
		GameID:    game.ID,
		PlayerID:  player.ID,
		Position:  position,
		CreatedBy: by,
		CreatedAt: s.Now,
	}
}

// User tests

func (s *Suite) TestCreateAndGetUser() {
	user, player := s.CreateUser("alice@example.com", "Alice")

	got, err := s.Store.GetUser(s.Ctx, user.ID)
	s.Require().NoError(err)
	s.Equal("alice@example.com", got.Email)
	s.Equal("Alice", got.Name)
	s.Equal(model.RoleAdmin, got.Role)

	byEmail, err := s.Store.GetUserByEmail(s.Ctx, "alice@example.com")
	s.Require().NoError(err)
	s.Equal(user.ID, byEmail.ID)

	p, err := s.Store.GetPlayerByUser(s.Ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(player.ID, p.ID)
	uid, ok := p.UserID()
	s.True(ok)
	s.Equal(user.ID, uid)
}

func (s *Suite) TestFirstUserStoredIsAdmin() {
	first, _ := s.CreateUser("first@example.com", "First")
	s.Equal(model.RoleAdmin, first.Role)

	second, _ := s.CreateUser("second@example.com", "Second")
	s.Equal(model.RoleUser, second.Role)

	got, err := s.Store.GetUser(s.Ctx, first.ID)
	s.Require().NoError(err)
	s.True(got.IsAdmin())
	got, err = s.Store.GetUser(s.Ctx, second.ID)
	s.Require().NoError(err)
	s.False(got.IsAdmin())
}

func (s *Suite) TestConcurrentFirstUsersYieldOneAdmin() {
	const n = 8
	users := make([]*model.User, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			users[i] = &model.User{
				ID:           model.UserID(fmt.Sprintf("user-c%d", i)),
				Email:        fmt.Sprintf("c%d@example.com", i),
				Name:         fmt.Sprintf("C%d", i),
				Role:         model.RoleUser,
				AuthProvider: model.AuthProviderLocal,
			}
			errs[i] = s.Store.CreateUser(s.Ctx, users[i], model.NewUserPlayer(model.PlayerID(fmt.Sprintf("player-c%d", i)), users[i].ID, s.Now))
		}(i)
	}
	wg.Wait()

	admins := 0
	for i := 0; i < n; i++ {
		s.Require().NoError(errs[i])
		if users[i].IsAdmin() {
			admins++
		}
	}
	s.Equal(1, admins)
}

func (s *Suite) TestCreateUserDuplicateEmail() {
	s.CreateUser("alice@example.com", "Alice")

	user := &model.User{ID: "user-dup", Email: "alice@example.com", Name: "Other", Role: model.RoleUser, AuthProvider: model.AuthProviderLocal}
	player := model.NewUserPlayer("player-dup", user.ID, s.Now)
	err := s.Store.CreateUser(s.Ctx, user, player)
	s.ErrorIs(err, model.ErrEmailExists)

	_, err = s.Store.GetPlayer(s.Ctx, "player-dup")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestGetUserNotFound() {
	_, err := s.Store.GetUser(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrUserNotFound)

	_, err = s.Store.GetUserByEmail(s.Ctx, "missing@example.com")
	s.ErrorIs(err, model.ErrUserNotFound)

	_, err = s.Store.GetUserByProvider(s.Ctx, model.AuthProviderGoogle, "123")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *Suite) TestGetUserByProvider() {
	user := &model.User{
		ID:             "user-google",
		Email:          "g@example.com",
		Name:           "Gee",
		Role:           model.RoleUser,
		AuthProvider:   model.AuthProviderGoogle,
		AuthProviderID: "google-123",
		CreatedAt:      s.Now,
		UpdatedAt:      s.Now,
	}
	s.Require().NoError(s.Store.CreateUser(s.Ctx, user, model.NewUserPlayer("player-google", user.ID, s.Now)))

	got, err := s.Store.GetUserByProvider(s.Ctx, model.AuthProviderGoogle, "google-123")
	s.Require().NoError(err)
	s.Equal(user.ID, got.ID)

	_, err = s.Store.GetUserByProvider(s.Ctx, model.AuthProviderFacebook, "google-123")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *Suite) TestUpdateUser() {
	user, _ := s.CreateUser("alice@example.com", "Alice")

	user.DisplayName = "Ali"
	user.Role = model.RoleAdmin
	s.Require().NoError(s.Store.UpdateUser(s.Ctx, user))

	got, err := s.Store.GetUser(s.Ctx, user.ID)
	s.Require().NoError(err)
	s.Equal("Ali", got.DisplayName)
	s.True(got.IsAdmin())

	err = s.Store.UpdateUser(s.Ctx, &model.User{ID: "missing", Email: "x@example.com"})
	s.ErrorIs(err, model.ErrUserNotFound)
}

// Guest tests

func (s *Suite) TestFindOrCreateGuestReusesExactName() {
	guest := &model.Guest{ID: "guest-1", Name: "Maria", CreatedBy: "u", CreatedAt: s.Now}
	player := model.NewGuestPlayer("player-g1", guest.ID, s.Now)

	g1, p1, created, err := s.Store.FindOrCreateGuest(s.Ctx, guest, player)
	s.Require().NoError(err)
	s.True(created)
	s.Equal(model.GuestID("guest-1"), g1.ID)
	s.Equal(model.PlayerID("player-g1"), p1.ID)

	again := &model.Guest{ID: "guest-2", Name: "Maria", CreatedBy: "u", CreatedAt: s.Now}
	g2, p2, created, err := s.Store.FindOrCreateGuest(s.Ctx, again, model.NewGuestPlayer("player-g2", again.ID, s.Now))
	s.Require().NoError(err)
	s.False(created)
	s.Equal(g1.ID, g2.ID)
	s.Equal(p1.ID, p2.ID)
	s.Equal(p1.ID, g1.PlayerID)
	s.Equal(p1.ID, g2.PlayerID)

	got, err := s.Store.GetGuest(s.Ctx, "guest-1")
	s.Require().NoError(err)
	s.Equal(p1.ID, got.PlayerID)

	_, err = s.Store.GetGuest(s.Ctx, "guest-2")
	s.ErrorIs(err, model.ErrGuestNotFound)
	_, err = s.Store.GetPlayer(s.Ctx, "player-g2")
	s.ErrorIs(err, model.ErrPlayerNotFound)

	guests, err := s.Store.ListGuests(s.Ctx)
	s.Require().NoError(err)
	s.Len(guests, 1)
}

func (s *Suite) TestFindOrCreateGuestIsCaseSensitive() {
	for i, name := range []string{"Bob", "bob"} {
		g := &model.Guest{ID: model.GuestID(fmt.Sprintf("guest-%d", i)), Name: name, CreatedAt: s.Now}
		_, _, created, err := s.Store.FindOrCreateGuest(s.Ctx, g, model.NewGuestPlayer(model.PlayerID(fmt.Sprintf("player-%d", i)), g.ID, s.Now))
		s.Require().NoError(err)
		s.True(created)
	}

	guests, err := s.Store.ListGuests(s.Ctx)
	s.Require().NoError(err)
	s.Len(guests, 2)
}

func (s *Suite) TestListGuestsOrderedByName() {
	for i, name := range []string{"Zé", "Ana", "Miguel"} {
		g := &model.Guest{ID: model.GuestID(fmt.Sprintf("guest-%d", i)), Name: name, CreatedAt: s.Now}
		_, _, _, err := s.Store.FindOrCreateGuest(s.Ctx, g, model.NewGuestPlayer(model.PlayerID(fmt.Sprintf("player-%d", i)), g.ID, s.Now))
		s.Require().NoError(err)
	}

	guests, err := s.Store.ListGuests(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(guests, 3)
	s.Equal("Ana", guests[0].Name)
	s.Equal("Miguel", guests[1].Name)
	s.Equal("Zé", guests[2].Name)
	s.Equal(model.PlayerID("player-1"), guests[0].PlayerID)
	s.Equal(model.PlayerID("player-2"), guests[1].PlayerID)
	s.Equal(model.PlayerID("player-0"), guests[2].PlayerID)

	p, err := s.Store.GetPlayerByGuest(s.Ctx, guests[0].ID)
	s.Require().NoError(err)
	gid, ok := p.GuestID()
	s.True(ok)
	s.Equal(guests[0].ID, gid)
}

// Game tests

func (s *Suite) TestCreateAndGetGame() {
	game := s.CreateGame("2024-01-10", 10)

	got, err := s.Store.GetGame(s.Ctx, game.ID)
	s.Require().NoError(err)
	s.Equal("2024-01-10", got.Date)
	s.Equal("19:00", got.StartTime)
	s.Equal("20:00", got.EndTime)
	s.Equal(10, got.MaxPlayers)
	s.Equal(int64(500), got.PriceCents)
	s.Equal("Campo Grande", got.Location)
	s.InDelta(38.72, got.Latitude, 0.0001)
	s.Nil(got.Winner)
	s.Empty(got.Enrollments)
}

func (s *Suite) TestGetGameNotFound() {
	_, err := s.Store.GetGame(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *Suite) TestSetWinnerLastWriteWins() {
	game := s.CreateGame("2024-01-10", 10)

	for _, o := range []model.Outcome{model.OutcomeWhite, model.OutcomeDraw, model.OutcomeBlack} {
		s.Require().NoError(s.Store.SetWinner(s.Ctx, game.ID, o))
		got, err := s.Store.GetGame(s.Ctx, game.ID)
		s.Require().NoError(err)
		s.Require().NotNil(got.Winner)
		s.Equal(o, *got.Winner)
	}

	s.ErrorIs(s.Store.SetWinner(s.Ctx, "missing", model.OutcomeDraw), model.ErrGameNotFound)
}

func (s *Suite) TestUpcomingAndPastGames() {
	add := func(id model.GameID, date, start, end string) {
		s.Require().NoError(s.Store.CreateGame(s.Ctx, &model.Game{
			ID: id, Date: date, StartTime: start, EndTime: end,
			MaxPlayers: 10, CreatedBy: "admin", CreatedAt: s.Now, UpdatedAt: s.Now,
		}))
	}
	add("yesterday", "2023-12-31", "19:00", "20:00")
	add("today-early", "2024-01-01", "09:00", "10:00")
	add("today-later", "2024-01-01", "18:00", "19:00")
	add("today-ending-now", "2024-01-01", "11:00", "12:00")
	add("tomorrow", "2024-01-02", "08:00", "09:00")

	upcoming, err := s.Store.ListUpcomingGames(s.Ctx, "2024-01-01", "12:00")
	s.Require().NoError(err)
	var ids []model.GameID
	for _, g := range upcoming {
		ids = append(ids, g.ID)
	}
	s.Equal([]model.GameID{"today-ending-now", "today-later", "tomorrow"}, ids)

	past, total, err := s.Store.ListPastGames(s.Ctx, "2024-01-01", "12:00", 0, 10)
	s.Require().NoError(err)
	s.Equal(2, total)
	s.Require().Len(past, 2)
	s.Equal(model.GameID("today-early"), past[0].ID)
	s.Equal(model.GameID("yesterday"), past[1].ID)
}

func (s *Suite) TestListPastGamesPagination() {
	for day := 1; day <= 25; day++ {
		s.CreateGame(fmt.Sprintf("2023-12-%02d", day), 10)
	}

	page1, total, err := s.Store.ListPastGames(s.Ctx, "2024-01-01", "12:00", 0, 10)
	s.Require().NoError(err)
	s.Equal(25, total)
	s.Len(page1, 10)
	s.Equal("2023-12-25", page1[0].Date)

	page3, _, err := s.Store.ListPastGames(s.Ctx, "2024-01-01", "12:00", 20, 10)
	s.Require().NoError(err)
	s.Len(page3, 5)
	s.Equal("2023-12-01", page3[4].Date)

	beyond, total, err := s.Store.ListPastGames(s.Ctx, "2024-01-01", "12:00", 30, 10)
	s.Require().NoError(err)
	s.Equal(25, total)
	s.Empty(beyond)
}

// Enrollment tests

func (s *Suite) TestEnrollmentRosterScenario() {
	game := s.CreateGame("2024-01-10", 10)
	alice, pa := s.CreateUser("alice@example.com", "Alice")
	bob, pb := s.CreateUser("bob@example.com", "Bob")

	s.Require().NoError(s.Store.CreateEnrollment(s.Ctx, s.Enrollment(game, pa, 3, alice.ID)))

	got, err := s.Store.GetGame(s.Ctx, game.ID)
	s.Require().NoError(err)
	s.Require().Len(got.Enrollments, 1)
	s.Equal("Alice", got.Enrollments[0].PlayerName)
	s.Equal(model.PlayerKindUser, got.Enrollments[0].PlayerKind)
	s.Equal(alice.ID, got.Enrollments[0].CreatedBy)

	err = s.Store.CreateEnrollment(s.Ctx, s.Enrollment(game, pb, 3, bob.ID))
	s.ErrorIs(err, model.ErrPositionTaken)

	err = s.Store.CreateEnrollment(s.Ctx, s.Enrollment(game, pa, 5, alice.ID))
	s.ErrorIs(err, model.ErrAlreadyEnrolled)

	s.Require().NoError(s.Store.DeleteEnrollment(s.Ctx, game.ID, pa.ID))
	got, err = s.Store.GetGame(s.Ctx, game.ID)
	s.Require().NoError(err)
	s.Empty(got.Enrollments)

	s.Require().NoError(s.Store.CreateEnrollment(s.Ctx, s.Enrollment(game, pa, 3, alice.ID)))
}

func (s *Suite) TestEnrollmentsOrderedByPosition() {
	game := s.CreateGame("2024-01-10", 10)
	for _, pos := range []int{7, 2, 5} {
		u, p := s.CreateUser(fmt.Sprintf("p%d@example.com", pos), fmt.Sprintf("P%d", pos))
		s.Require().NoError(s.Store.CreateEnrollment(s.Ctx, s.Enrollment(game, p, pos, u.ID)))
	}

	got, err := s.Store.GetGame(s.Ctx, game.ID)
	s.Require().NoError(err)
	s.Require().Len(got.Enrollments, 3)
	s.Equal(2, got.Enrollments[0].Position)
	s.Equal(5, got.Enrollments[1].Position)
	s.Equal(7, got.Enrollments[2].Position)
}

func (s *Suite) TestSamePlayerInDifferentGames() {
	g1 := s.CreateGame("2024-01-10", 10)
	g2 := s.CreateGame("2024-01-11", 10)
	u, p := s.CreateUser("alice@example.com", "Alice")

	s.Require().NoError(s.Store.CreateEnrollment(s.Ctx, s.Enrollment(g1, p, 1, u.ID)))
	s.Require().NoError(s.Store.CreateEnrollment(s.Ctx, s.Enrollment(g2, p, 1, u.ID)))
}

func (s *Suite) TestCreateEnrollmentUnknownReferences() {
	game := s.CreateGame("2024-01-10", 10)
	u, p := s.CreateUser("alice@example.com", "Alice")

	err := s.Store.CreateEnrollment(s.Ctx, &model.Enrollment{ID: "e1", GameID: "missing", PlayerID: p.ID, Position: 1, CreatedBy: u.ID, CreatedAt: s.Now})
	s.ErrorIs(err, model.ErrGameNotFound)

	err = s.Store.CreateEnrollment(s.Ctx, &model.Enrollment{ID: "e2", GameID: game.ID, PlayerID: "missing", Position: 1, CreatedBy: u.ID, CreatedAt: s.Now})
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestDeleteEnrollmentIsIdempotent() {
	game := s.CreateGame("2024-01-10", 10)
	_, p := s.CreateUser("alice@example.com", "Alice")

	s.NoError(s.Store.DeleteEnrollment(s.Ctx, game.ID, p.ID))
	s.NoError(s.Store.DeleteEnrollment(s.Ctx, "missing", "missing"))
}

func (s *Suite) TestGetEnrollment() {
	game := s.CreateGame("2024-01-10", 10)
	u, p := s.CreateUser("alice@example.com", "Alice")
	e := s.Enrollment(game, p, 4, u.ID)
	s.Require().NoError(s.Store.CreateEnrollment(s.Ctx, e))

	got, err := s.Store.GetEnrollment(s.Ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(4, got.Position)
	s.Equal("Alice", got.PlayerName)

	byPlayer, err := s.Store.GetEnrollmentByPlayer(s.Ctx, game.ID, p.ID)
	s.Require().NoError(err)
	s.Equal(e.ID, byPlayer.ID)

	_, err = s.Store.GetEnrollment(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrEnrollmentNotFound)
	_, err = s.Store.GetEnrollmentByPlayer(s.Ctx, game.ID, "missing")
	s.ErrorIs(err, model.ErrEnrollmentNotFound)
}

func (s *Suite) TestSetEnrollmentTeam() {
	game := s.CreateGame("2024-01-10", 10)
	u, p := s.CreateUser("alice@example.com", "Alice")
	e := s.Enrollment(game, p, 1, u.ID)
	s.Require().NoError(s.Store.CreateEnrollment(s.Ctx, e))

	white := model.TeamWhite
	s.Require().NoError(s.Store.SetEnrollmentTeam(s.Ctx, e.ID, &white))
	got, err := s.Store.GetEnrollment(s.Ctx, e.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got.Team)
	s.Equal(model.TeamWhite, *got.Team)

	s.Require().NoError(s.Store.SetEnrollmentTeam(s.Ctx, e.ID, nil))
	got, err = s.Store.GetEnrollment(s.Ctx, e.ID)
	s.Require().NoError(err)
	s.Nil(got.Team)

	s.ErrorIs(s.Store.SetEnrollmentTeam(s.Ctx, "missing", &white), model.ErrEnrollmentNotFound)
}

func (s *Suite) TestGuestEnrollmentShowsGuestName() {
	game := s.CreateGame("2024-01-10", 10)
	u, _ := s.CreateUser("alice@example.com", "Alice")
	g := &model.Guest{ID: "guest-maria", Name: "Maria", CreatedBy: u.ID, CreatedAt: s.Now}
	_, gp, _, err := s.Store.FindOrCreateGuest(s.Ctx, g, model.NewGuestPlayer("player-maria", g.ID, s.Now))
	s.Require().NoError(err)

	s.Require().NoError(s.Store.CreateEnrollment(s.Ctx, s.Enrollment(game, gp, 2, u.ID)))

	got, err := s.Store.GetGame(s.Ctx, game.ID)
	s.Require().NoError(err)
	s.Require().Len(got.Enrollments, 1)
	s.Equal("Maria", got.Enrollments[0].PlayerName)
	s.Equal(model.PlayerKindGuest, got.Enrollments[0].PlayerKind)
}

func (s *Suite) TestConcurrentEnrollSamePosition() {
	game := s.CreateGame("2024-01-10", 10)
	const n = 8
	players := make([]*model.Player, n)
	users := make([]*model.User, n)
	for i := range players {
		users[i], players[i] = s.CreateUser(fmt.Sprintf("c%d@example.com", i), fmt.Sprintf("C%d", i))
	}
	enrollments := make([]*model.Enrollment, n)
	for i := range enrollments {
		enrollments[i] = s.Enrollment(game, players[i], 3, users[i].ID)
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Store.CreateEnrollment(s.Ctx, enrollments[i])
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.ErrorIs(err, model.ErrPositionTaken)
	}
	s.Equal(1, succeeded)

	got, err := s.Store.GetGame(s.Ctx, game.ID)
	s.Require().NoError(err)
	s.Len(got.Enrollments, 1)
}

func (s *Suite) TestConcurrentEnrollSamePlayer() {
	game := s.CreateGame("2024-01-10", 10)
	u, p := s.CreateUser("alice@example.com", "Alice")
	const n = 6
	enrollments := make([]*model.Enrollment, n)
	for i := range enrollments {
		enrollments[i] = s.Enrollment(game, p, i+1, u.ID)
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Store.CreateEnrollment(s.Ctx, enrollments[i])
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.ErrorIs(err, model.ErrAlreadyEnrolled)
	}
	s.Equal(1, succeeded)
}
