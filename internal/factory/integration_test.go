package factory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/futebolada/internal/config"
	"github.com/mcoot/futebolada/internal/model"
	"github.com/mcoot/futebolada/internal/notify"
	"github.com/mcoot/futebolada/internal/services/auth"
)

type IntegrationSuite struct {
	suite.Suite
	app   *TestApp
	ctx   context.Context
	admin *model.User
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()

	session, err := s.app.RegisterAdmin(s.ctx)
	s.Require().NoError(err)
	s.admin = &session.User
}

func (s *IntegrationSuite) register(email, name string) *model.User {
	session, err := s.app.AuthService.Register(s.ctx, email, "password123", name)
	s.Require().NoError(err)
	return &session.User
}

// Test: full roster lifecycle from game creation to declared winner
func (s *IntegrationSuite) TestRosterLifecycle() {
	s.True(s.admin.IsAdmin())
	alice := s.register("alice@example.com", "Alice")
	bob := s.register("bob@example.com", "Bob")
	s.False(alice.IsAdmin())

	// Step 1: Admin schedules a game
	game, err := s.app.CreateGame(s.ctx, s.admin, "2024-01-02", 10)
	s.Require().NoError(err)
	s.Equal("Campo de Jogos, Lisboa", game.Location)

	// Step 2: Alice takes position 3, Bob tries the same slot
	_, err = s.app.EnrollmentService.EnrollSelf(s.ctx, alice, game.ID, 3)
	s.Require().NoError(err)
	_, err = s.app.EnrollmentService.EnrollSelf(s.ctx, bob, game.ID, 3)
	s.ErrorIs(err, model.ErrPositionTaken)

	// Step 3: Alice cannot take a second slot
	_, err = s.app.EnrollmentService.EnrollSelf(s.ctx, alice, game.ID, 5)
	s.ErrorIs(err, model.ErrAlreadyEnrolled)

	// Step 4: Bob brings a guest
	maria, err := s.app.EnrollmentService.EnrollGuest(s.ctx, bob, game.ID, "Maria", 4)
	s.Require().NoError(err)
	s.Equal("Maria", maria.PlayerName)

	positions, err := s.app.EnrollmentService.AvailablePositions(s.ctx, game.ID)
	s.Require().NoError(err)
	s.Equal([]int{1, 2, 5, 6, 7, 8, 9, 10}, positions)

	// Step 5: Only Bob may remove Maria
	_, err = s.app.EnrollmentService.Unenroll(s.ctx, alice, game.ID, maria.PlayerID)
	s.ErrorIs(err, model.ErrNotEnrollmentOwner)
	removed, err := s.app.EnrollmentService.Unenroll(s.ctx, bob, game.ID, maria.PlayerID)
	s.Require().NoError(err)
	s.Equal(4, removed.Position)

	// Step 6: Admin assigns a team and, after the game, declares the winner
	stored, err := s.app.GamesService.GetGame(s.ctx, game.ID)
	s.Require().NoError(err)
	s.Require().Len(stored.Enrollments, 1)
	white := model.TeamWhite
	_, err = s.app.EnrollmentService.AssignTeam(s.ctx, s.admin, game.ID, stored.Enrollments[0].ID, &white)
	s.Require().NoError(err)

	s.app.MockClock.Set(time.Date(2024, 1, 2, 21, 0, 0, 0, time.UTC))
	_, err = s.app.EnrollmentService.EnrollSelf(s.ctx, bob, game.ID, 6)
	s.ErrorIs(err, model.ErrGameOver)

	final, err := s.app.EnrollmentService.DeclareWinner(s.ctx, s.admin, game.ID, model.OutcomeWhite)
	s.Require().NoError(err)
	s.Equal(model.OutcomeWhite, *final.Winner)

	past, err := s.app.GamesService.PastGames(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(1, past.TotalCount)
}

// Test: concurrent enrollments for one slot produce exactly one winner
func (s *IntegrationSuite) TestConcurrentEnrollmentSameSlot() {
	game, err := s.app.CreateGame(s.ctx, s.admin, "2024-01-02", 10)
	s.Require().NoError(err)

	var users []*model.User
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com", "d@example.com"} {
		users = append(users, s.register(email, email))
	}

	var wg sync.WaitGroup
	errs := make([]error, len(users))
	for i, u := range users {
		wg.Add(1)
		go func(i int, u *model.User) {
			defer wg.Done()
			_, errs[i] = s.app.EnrollmentService.EnrollSelf(s.ctx, u, game.ID, 7)
		}(i, u)
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
}

// Test: notifications flow through the queue in order
func (s *IntegrationSuite) TestNotifierQueue() {
	game, err := s.app.CreateGame(s.ctx, s.admin, "2024-01-02", 10)
	s.Require().NoError(err)

	s.app.Notifier.Enrolled(game, "Alice", 1)
	s.app.Notifier.Enrolled(game, "Bob", 2)

	msgs := s.app.Messages()
	s.Require().Len(msgs, 2)
	s.Equal(TestChatID, msgs[0].ChatID)
	s.Contains(msgs[0].Text, "Alice")
	s.Contains(msgs[1].Text, "Bob")
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.Error(t, err)
}

func TestNewMemoryWithoutNotifications(t *testing.T) {
	app, err := New(context.Background(), Config{AuthConfig: auth.DefaultConfig("secret")})
	require.NoError(t, err)
	defer func() { _ = app.Close(context.Background()) }()

	assert.Nil(t, app.Queue)
	assert.IsType(t, notify.NopNotifier{}, app.Notifier)
}

func TestNewWithNotifications(t *testing.T) {
	app, err := New(context.Background(), Config{
		AuthConfig: auth.DefaultConfig("secret"),
		Notifications: config.NotificationsConfig{
			Enabled:           true,
			BaseURL:           "http://localhost:0",
			ChatID:            "chat",
			MessagesPerMinute: 30,
		},
	})
	require.NoError(t, err)
	defer func() { _ = app.Close(context.Background()) }()

	require.NotNil(t, app.Queue)
	assert.IsType(t, &notify.ChatNotifier{}, app.Notifier)
}

func TestNewRejectsUnknownStorage(t *testing.T) {
	_, err := New(context.Background(), Config{AuthConfig: auth.DefaultConfig("secret"), StorageType: "redis"})
	require.Error(t, err)
}
