package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mcoot/futebolada/internal/model"
	"github.com/mcoot/futebolada/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// A single mutex serializes writers, so every check-then-write is atomic.
type Storage struct {
	mu sync.RWMutex

	users         map[model.UserID]model.User
	emailIndex    map[string]model.UserID
	providerIndex map[providerKey]model.UserID

	players     map[model.PlayerID]model.Player
	userPlayer  map[model.UserID]model.PlayerID
	guestPlayer map[model.GuestID]model.PlayerID

	guests    map[model.GuestID]model.Guest
	guestName map[string]model.GuestID

	games       map[model.GameID]model.Game
	enrollments map[model.EnrollmentID]model.Enrollment
}

type providerKey struct {
	provider   model.AuthProvider
	providerID string
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		users:         make(map[model.UserID]model.User),
		emailIndex:    make(map[string]model.UserID),
		providerIndex: make(map[providerKey]model.UserID),
		players:       make(map[model.PlayerID]model.Player),
		userPlayer:    make(map[model.UserID]model.PlayerID),
		guestPlayer:   make(map[model.GuestID]model.PlayerID),
		guests:        make(map[model.GuestID]model.Guest),
		guestName:     make(map[string]model.GuestID),
		games:         make(map[model.GameID]model.Game),
		enrollments:   make(map[model.EnrollmentID]model.Enrollment),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// User operations

func (s *Storage) CreateUser(ctx context.Context, user *model.User, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.emailIndex[user.Email]; ok {
		return model.ErrEmailExists
	}
	if len(s.users) == 0 {
		user.Role = model.RoleAdmin
	}
	s.users[user.ID] = *user
	s.emailIndex[user.Email] = user.ID
	if user.AuthProviderID != "" {
		s.providerIndex[providerKey{user.AuthProvider, user.AuthProviderID}] = user.ID
	}
	s.players[player.ID] = *player
	s.userPlayer[user.ID] = player.ID
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return &user, nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emailIndex[email]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	user := s.users[id]
	return &user, nil
}

func (s *Storage) GetUserByProvider(ctx context.Context, provider model.AuthProvider, providerID string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.providerIndex[providerKey{provider, providerID}]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	user := s.users[id]
	return &user, nil
}

func (s *Storage) UpdateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[user.ID]
	if !ok {
		return model.ErrUserNotFound
	}
	if existing.Email != user.Email {
		if _, taken := s.emailIndex[user.Email]; taken {
			return model.ErrEmailExists
		}
		delete(s.emailIndex, existing.Email)
		s.emailIndex[user.Email] = user.ID
	}
	s.users[user.ID] = *user
	return nil
}

// Player operations

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return &player, nil
}

func (s *Storage) GetPlayerByUser(ctx context.Context, userID model.UserID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.userPlayer[userID]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	player := s.players[id]
	return &player, nil
}

func (s *Storage) GetPlayerByGuest(ctx context.Context, guestID model.GuestID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.guestPlayer[guestID]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	player := s.players[id]
	return &player, nil
}

// Guest operations

func (s *Storage) FindOrCreateGuest(ctx context.Context, guest *model.Guest, player *model.Player) (*model.Guest, *model.Player, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.guestName[guest.Name]; ok {
		g := s.guestWithPlayer(id)
		p, found := s.players[g.PlayerID]
		if !found {
			return nil, nil, false, model.ErrPlayerNotFound
		}
		return &g, &p, false, nil
	}
	s.guests[guest.ID] = *guest
	s.guestName[guest.Name] = guest.ID
	s.players[player.ID] = *player
	s.guestPlayer[guest.ID] = player.ID
	g, p := s.guestWithPlayer(guest.ID), *player
	return &g, &p, true, nil
}

func (s *Storage) GetGuest(ctx context.Context, id model.GuestID) (*model.Guest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.guests[id]; !ok {
		return nil, model.ErrGuestNotFound
	}
	guest := s.guestWithPlayer(id)
	return &guest, nil
}

func (s *Storage) ListGuests(ctx context.Context) ([]model.Guest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	guests := make([]model.Guest, 0, len(s.guests))
	for id := range s.guests {
		guests = append(guests, s.guestWithPlayer(id))
	}
	sort.Slice(guests, func(i, j int) bool { return guests[i].Name < guests[j].Name })
	if len(guests) > storage.MaxGuests {
		guests = guests[:storage.MaxGuests]
	}
	return guests, nil
}

// guestWithPlayer must be called with the lock held
func (s *Storage) guestWithPlayer(id model.GuestID) model.Guest {
	g := s.guests[id]
	g.PlayerID = s.guestPlayer[id]
	return g
}

// Game operations

func (s *Storage) CreateGame(ctx context.Context, game *model.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := *game
	g.Enrollments = nil
	s.games[g.ID] = g
	return nil
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game, ok := s.games[id]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	return s.withEnrollments(game), nil
}

func (s *Storage) ListUpcomingGames(ctx context.Context, today, now string) ([]model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var games []model.Game
	for _, g := range s.games {
		if isUpcoming(g, today, now) {
			games = append(games, *s.withEnrollments(g))
		}
	}
	sort.Slice(games, func(i, j int) bool {
		if games[i].Date != games[j].Date {
			return games[i].Date < games[j].Date
		}
		return games[i].StartTime < games[j].StartTime
	})
	return games, nil
}

func (s *Storage) ListPastGames(ctx context.Context, today, now string, offset, limit int) ([]model.Game, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var past []model.Game
	for _, g := range s.games {
		if !isUpcoming(g, today, now) {
			past = append(past, g)
		}
	}
	sort.Slice(past, func(i, j int) bool {
		if past[i].Date != past[j].Date {
			return past[i].Date > past[j].Date
		}
		return past[i].StartTime > past[j].StartTime
	})
	total := len(past)
	if offset >= total {
		return []model.Game{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	page := make([]model.Game, 0, end-offset)
	for _, g := range past[offset:end] {
		page = append(page, *s.withEnrollments(g))
	}
	return page, total, nil
}

func (s *Storage) SetWinner(ctx context.Context, id model.GameID, outcome model.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.games[id]
	if !ok {
		return model.ErrGameNotFound
	}
	game.Winner = &outcome
	s.games[id] = game
	return nil
}

// Enrollment operations

func (s *Storage) CreateEnrollment(ctx context.Context, enrollment *model.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[enrollment.GameID]; !ok {
		return model.ErrGameNotFound
	}
	if _, ok := s.players[enrollment.PlayerID]; !ok {
		return model.ErrPlayerNotFound
	}
	for _, e := range s.enrollments {
		if e.GameID == enrollment.GameID && e.Position == enrollment.Position {
			return model.ErrPositionTaken
		}
	}
	for _, e := range s.enrollments {
		if e.GameID == enrollment.GameID && e.PlayerID == enrollment.PlayerID {
			return model.ErrAlreadyEnrolled
		}
	}
	s.enrollments[enrollment.ID] = *enrollment
	return nil
}

func (s *Storage) GetEnrollment(ctx context.Context, id model.EnrollmentID) (*model.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.enrollments[id]
	if !ok {
		return nil, model.ErrEnrollmentNotFound
	}
	s.populate(&e)
	return &e, nil
}

func (s *Storage) GetEnrollmentByPlayer(ctx context.Context, gameID model.GameID, playerID model.PlayerID) (*model.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.enrollments {
		if e.GameID == gameID && e.PlayerID == playerID {
			s.populate(&e)
			return &e, nil
		}
	}
	return nil, model.ErrEnrollmentNotFound
}

func (s *Storage) DeleteEnrollment(ctx context.Context, gameID model.GameID, playerID model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.enrollments {
		if e.GameID == gameID && e.PlayerID == playerID {
			delete(s.enrollments, id)
		}
	}
	return nil
}

func (s *Storage) SetEnrollmentTeam(ctx context.Context, id model.EnrollmentID, team *model.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.enrollments[id]
	if !ok {
		return model.ErrEnrollmentNotFound
	}
	if team != nil {
		t := *team
		e.Team = &t
	} else {
		e.Team = nil
	}
	s.enrollments[id] = e
	return nil
}

// Helpers, called with the lock held

func isUpcoming(g model.Game, today, now string) bool {
	return g.Date > today || (g.Date == today && g.EndTime >= now)
}

func (s *Storage) withEnrollments(game model.Game) *model.Game {
	game.Enrollments = nil
	for _, e := range s.enrollments {
		if e.GameID == game.ID {
			s.populate(&e)
			game.Enrollments = append(game.Enrollments, e)
		}
	}
	sort.Slice(game.Enrollments, func(i, j int) bool {
		return game.Enrollments[i].Position < game.Enrollments[j].Position
	})
	return &game
}

func (s *Storage) populate(e *model.Enrollment) {
	p, ok := s.players[e.PlayerID]
	if !ok {
		return
	}
	e.PlayerKind = p.Kind()
	if uid, ok := p.UserID(); ok {
		u := s.users[uid]
		e.PlayerName = u.PreferredName()
	}
	if gid, ok := p.GuestID(); ok {
		e.PlayerName = s.guests[gid].Name
	}
}
