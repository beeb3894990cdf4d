package enrollment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/futebolada/internal/dependencies/mocks"
	"github.com/mcoot/futebolada/internal/model"
	"github.com/mcoot/futebolada/internal/storage"
	"github.com/mcoot/futebolada/internal/storage/memory"
	"github.com/mcoot/futebolada/internal/testutil"
)

// countingStorage counts enrollment writes that reach storage
type countingStorage struct {
	storage.Storage
	creates int
}

func (c *countingStorage) CreateEnrollment(ctx context.Context, e *model.Enrollment) error {
	c.creates++
	return c.Storage.CreateEnrollment(ctx, e)
}

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	service *Service
	ctx     context.Context

	admin       *model.User
	alice       *model.User
	bob         *model.User
	alicePlayer *model.Player
	bobPlayer   *model.Player
	game        *model.Game
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.service = New(s.storage, s.clock, mocks.NewMockIDs(), time.UTC, testutil.NopLogger())
	s.ctx = context.Background()

	s.admin, _ = s.createUser("admin", model.RoleAdmin)
	s.alice, s.alicePlayer = s.createUser("alice", model.RoleUser)
	s.bob, s.bobPlayer = s.createUser("bob", model.RoleUser)
	s.game = s.createGame("g1", "2024-01-10", 10)
}

func (s *ServiceSuite) createUser(name string, role model.Role) (*model.User, *model.Player) {
	u := &model.User{ID: model.UserID("u-" + name), Email: name + "@example.com", Name: name, Role: role, AuthProvider: model.AuthProviderLocal}
	p := model.NewUserPlayer(model.PlayerID("p-"+name), u.ID, s.clock.Now())
	s.Require().NoError(s.storage.CreateUser(s.ctx, u, p))
	return u, p
}

func (s *ServiceSuite) createGame(id, date string, maxPlayers int) *model.Game {
	g := &model.Game{ID: model.GameID(id), Date: date, StartTime: "19:00", EndTime: "20:00", MaxPlayers: maxPlayers, CreatedBy: s.admin.ID}
	s.Require().NoError(s.storage.CreateGame(s.ctx, g))
	return g
}

func (s *ServiceSuite) roster() []model.Enrollment {
	g, err := s.storage.GetGame(s.ctx, s.game.ID)
	s.Require().NoError(err)
	return g.Enrollments
}

// Enroll tests

func (s *ServiceSuite) TestRosterScenario() {
	e, err := s.service.EnrollSelf(s.ctx, s.alice, s.game.ID, 3)
	s.Require().NoError(err)
	s.Equal(3, e.Position)
	s.Equal(s.alice.ID, e.CreatedBy)
	s.Equal("alice", e.PlayerName)
	s.Len(s.roster(), 1)

	_, err = s.service.EnrollSelf(s.ctx, s.bob, s.game.ID, 3)
	s.ErrorIs(err, model.ErrPositionTaken)

	_, err = s.service.EnrollSelf(s.ctx, s.alice, s.game.ID, 5)
	s.ErrorIs(err, model.ErrAlreadyEnrolled)

	removed, err := s.service.Unenroll(s.ctx, s.alice, s.game.ID, s.alicePlayer.ID)
	s.Require().NoError(err)
	s.Require().NotNil(removed)
	s.Empty(s.roster())

	_, err = s.service.EnrollSelf(s.ctx, s.alice, s.game.ID, 3)
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestEnrollOutOfRange() {
	for _, pos := range []int{0, -1, 11} {
		_, err := s.service.EnrollSelf(s.ctx, s.alice, s.game.ID, pos)
		s.ErrorIs(err, model.ErrInvalidPosition)
	}
	s.Empty(s.roster())

	_, err := s.service.EnrollSelf(s.ctx, s.alice, s.game.ID, 10)
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestEnrollGameNotFound() {
	_, err := s.service.EnrollSelf(s.ctx, s.alice, "missing", 1)
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *ServiceSuite) TestEnrollUnknownPlayer() {
	_, err := s.service.Enroll(s.ctx, s.alice, s.game.ID, "missing", 1)
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *ServiceSuite) TestEnrollAfterGameOver() {
	s.clock.Set(time.Date(2024, 1, 10, 20, 0, 0, 0, time.UTC))
	_, err := s.service.EnrollSelf(s.ctx, s.alice, s.game.ID, 1)
	s.Require().NoError(err, "the end minute itself is not over")

	s.clock.Set(time.Date(2024, 1, 10, 20, 0, 1, 0, time.UTC))
	_, err = s.service.EnrollSelf(s.ctx, s.bob, s.game.ID, 2)
	s.ErrorIs(err, model.ErrGameOver)
}

func (s *ServiceSuite) TestGameOverUsesConfiguredZone() {
	lisbon, err := time.LoadLocation("Europe/Lisbon")
	s.Require().NoError(err)
	summer := s.createGame("summer", "2024-06-01", 10)
	svc := New(s.storage, s.clock, mocks.NewMockIDs(), lisbon, testutil.NopLogger())

	// 19:30 UTC is 20:30 in Lisbon, past the 20:00 end
	s.clock.Set(time.Date(2024, 6, 1, 19, 30, 0, 0, time.UTC))
	_, err = svc.EnrollSelf(s.ctx, s.alice, summer.ID, 1)
	s.ErrorIs(err, model.ErrGameOver)

	_, err = s.service.EnrollSelf(s.ctx, s.alice, summer.ID, 1)
	s.NoError(err)
}

func (s *ServiceSuite) TestConcurrentEnrollSamePosition() {
	var wg sync.WaitGroup
	errs := make([]error, 2)
	actors := []*model.User{s.alice, s.bob}
	for i := range actors {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.service.EnrollSelf(s.ctx, actors[i], s.game.ID, 7)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			s.ErrorIs(err, model.ErrPositionTaken)
		}
	}
	s.Equal(1, succeeded)
	s.Len(s.roster(), 1)
}

// Guest tests

func (s *ServiceSuite) TestEnrollGuestCreatesOnceAndReuses() {
	e1, err := s.service.EnrollGuest(s.ctx, s.alice, s.game.ID, "Maria", 2)
	s.Require().NoError(err)
	s.Equal("Maria", e1.PlayerName)
	s.Equal(model.PlayerKindGuest, e1.PlayerKind)
	s.Equal(s.alice.ID, e1.CreatedBy)

	other := s.createGame("g2", "2024-01-11", 10)
	e2, err := s.service.EnrollGuest(s.ctx, s.bob, other.ID, "Maria", 4)
	s.Require().NoError(err)
	s.Equal(e1.PlayerID, e2.PlayerID)

	guests, err := s.storage.ListGuests(s.ctx)
	s.Require().NoError(err)
	s.Len(guests, 1)
}

func (s *ServiceSuite) TestEnrollConflictsRejectedFromLoadedRoster() {
	counting := &countingStorage{Storage: s.storage}
	service := New(counting, s.clock, mocks.NewMockIDs(), time.UTC, testutil.NopLogger())

	_, err := service.EnrollSelf(s.ctx, s.alice, s.game.ID, 3)
	s.Require().NoError(err)
	s.Equal(1, counting.creates)

	_, err = service.EnrollSelf(s.ctx, s.alice, s.game.ID, 5)
	s.ErrorIs(err, model.ErrAlreadyEnrolled)

	_, err = service.EnrollSelf(s.ctx, s.bob, s.game.ID, 3)
	s.ErrorIs(err, model.ErrPositionTaken)

	// a held slot reports the position first, as storage does
	_, err = service.EnrollSelf(s.ctx, s.alice, s.game.ID, 3)
	s.ErrorIs(err, model.ErrPositionTaken)

	s.Equal(1, counting.creates)
}

func (s *ServiceSuite) TestEnrollGuestTwiceInSameGame() {
	_, err := s.service.EnrollGuest(s.ctx, s.alice, s.game.ID, "Maria", 2)
	s.Require().NoError(err)

	_, err = s.service.EnrollGuest(s.ctx, s.alice, s.game.ID, "Maria", 3)
	s.ErrorIs(err, model.ErrAlreadyEnrolled)
}

func (s *ServiceSuite) TestEnrollGuestNamesAreCaseSensitive() {
	_, err := s.service.EnrollGuest(s.ctx, s.alice, s.game.ID, "Bob", 2)
	s.Require().NoError(err)
	_, err = s.service.EnrollGuest(s.ctx, s.alice, s.game.ID, "bob", 3)
	s.Require().NoError(err)

	guests, _ := s.storage.ListGuests(s.ctx)
	s.Len(guests, 2)
}

func (s *ServiceSuite) TestEnrollGuestValidatesBeforeCreating() {
	_, err := s.service.EnrollGuest(s.ctx, s.alice, s.game.ID, "Maria", 99)
	s.ErrorIs(err, model.ErrInvalidPosition)

	_, err = s.service.EnrollGuest(s.ctx, s.alice, s.game.ID, "  ", 1)
	s.ErrorIs(err, model.ErrInvalidInput)

	guests, _ := s.storage.ListGuests(s.ctx)
	s.Empty(guests)
}

// Unenroll tests

func (s *ServiceSuite) TestUnenrollNotEnrolledIsNoop() {
	removed, err := s.service.Unenroll(s.ctx, s.alice, s.game.ID, s.alicePlayer.ID)
	s.Require().NoError(err)
	s.Nil(removed)
}

func (s *ServiceSuite) TestUnenrollRequiresOwner() {
	_, err := s.service.EnrollSelf(s.ctx, s.alice, s.game.ID, 1)
	s.Require().NoError(err)

	_, err = s.service.Unenroll(s.ctx, s.bob, s.game.ID, s.alicePlayer.ID)
	s.ErrorIs(err, model.ErrNotEnrollmentOwner)

	_, err = s.service.Unenroll(s.ctx, s.admin, s.game.ID, s.alicePlayer.ID)
	s.ErrorIs(err, model.ErrNotEnrollmentOwner)
	s.Len(s.roster(), 1)
}

func (s *ServiceSuite) TestUnenrollGuestByEnroller() {
	e, err := s.service.EnrollGuest(s.ctx, s.alice, s.game.ID, "Maria", 2)
	s.Require().NoError(err)

	removed, err := s.service.Unenroll(s.ctx, s.alice, s.game.ID, e.PlayerID)
	s.Require().NoError(err)
	s.Require().NotNil(removed)
	s.Equal(2, removed.Position)
	s.Empty(s.roster())
}

func (s *ServiceSuite) TestUnenrollAfterGameOver() {
	_, err := s.service.EnrollSelf(s.ctx, s.alice, s.game.ID, 1)
	s.Require().NoError(err)

	s.clock.Set(time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC))
	_, err = s.service.Unenroll(s.ctx, s.alice, s.game.ID, s.alicePlayer.ID)
	s.ErrorIs(err, model.ErrGameOver)
}

// Team tests

func (s *ServiceSuite) TestAssignTeam() {
	e, err := s.service.EnrollSelf(s.ctx, s.alice, s.game.ID, 1)
	s.Require().NoError(err)

	black := model.TeamBlack
	updated, err := s.service.AssignTeam(s.ctx, s.admin, s.game.ID, e.ID, &black)
	s.Require().NoError(err)
	s.Equal(model.TeamBlack, *updated.Team)
	s.Equal(model.TeamBlack, *s.roster()[0].Team)

	cleared, err := s.service.AssignTeam(s.ctx, s.admin, s.game.ID, e.ID, nil)
	s.Require().NoError(err)
	s.Nil(cleared.Team)
	s.Nil(s.roster()[0].Team)
}

func (s *ServiceSuite) TestAssignTeamRequiresAdmin() {
	e, _ := s.service.EnrollSelf(s.ctx, s.alice, s.game.ID, 1)
	white := model.TeamWhite

	_, err := s.service.AssignTeam(s.ctx, s.alice, s.game.ID, e.ID, &white)
	s.ErrorIs(err, model.ErrNotAdmin)
}

func (s *ServiceSuite) TestAssignTeamInvalid() {
	e, _ := s.service.EnrollSelf(s.ctx, s.alice, s.game.ID, 1)
	red := model.Team("red")

	_, err := s.service.AssignTeam(s.ctx, s.admin, s.game.ID, e.ID, &red)
	s.ErrorIs(err, model.ErrInvalidTeam)
}

func (s *ServiceSuite) TestAssignTeamWrongGame() {
	e, _ := s.service.EnrollSelf(s.ctx, s.alice, s.game.ID, 1)
	other := s.createGame("g2", "2024-01-11", 10)
	white := model.TeamWhite

	_, err := s.service.AssignTeam(s.ctx, s.admin, other.ID, e.ID, &white)
	s.ErrorIs(err, model.ErrEnrollmentNotFound)
}

func (s *ServiceSuite) TestAssignTeamAfterGameOver() {
	e, _ := s.service.EnrollSelf(s.ctx, s.alice, s.game.ID, 1)
	s.clock.Set(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	white := model.TeamWhite

	_, err := s.service.AssignTeam(s.ctx, s.admin, s.game.ID, e.ID, &white)
	s.ErrorIs(err, model.ErrGameOver)
}

// Winner tests

func (s *ServiceSuite) TestDeclareWinnerLastWriteWins() {
	for _, o := range []model.Outcome{model.OutcomeWhite, model.OutcomeBlack, model.OutcomeDraw} {
		g, err := s.service.DeclareWinner(s.ctx, s.admin, s.game.ID, o)
		s.Require().NoError(err)
		s.Equal(o, *g.Winner)

		stored, _ := s.storage.GetGame(s.ctx, s.game.ID)
		s.Equal(o, *stored.Winner)
	}
}

func (s *ServiceSuite) TestDeclareWinnerAfterGameOver() {
	s.clock.Set(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	_, err := s.service.DeclareWinner(s.ctx, s.admin, s.game.ID, model.OutcomeWhite)
	s.NoError(err)
}

func (s *ServiceSuite) TestDeclareWinnerValidation() {
	_, err := s.service.DeclareWinner(s.ctx, s.alice, s.game.ID, model.OutcomeWhite)
	s.ErrorIs(err, model.ErrNotAdmin)

	_, err = s.service.DeclareWinner(s.ctx, s.admin, s.game.ID, "purple")
	s.ErrorIs(err, model.ErrInvalidTeam)

	_, err = s.service.DeclareWinner(s.ctx, s.admin, "missing", model.OutcomeDraw)
	s.ErrorIs(err, model.ErrGameNotFound)
}

// Read model tests

func (s *ServiceSuite) TestAvailablePositions() {
	small := s.createGame("small", "2024-01-10", 4)
	_, err := s.service.EnrollSelf(s.ctx, s.alice, small.ID, 2)
	s.Require().NoError(err)
	_, err = s.service.EnrollGuest(s.ctx, s.alice, small.ID, "Maria", 4)
	s.Require().NoError(err)

	positions, err := s.service.AvailablePositions(s.ctx, small.ID)
	s.Require().NoError(err)
	s.Equal([]int{1, 3}, positions)
}
