package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/futebolada/internal/dependencies/clock"
	"github.com/mcoot/futebolada/internal/dependencies/ids"
	"github.com/mcoot/futebolada/internal/model"
	"github.com/mcoot/futebolada/internal/storage"
)

// Errors
var (
	ErrInvalidSession = errors.New("invalid or expired session")
)

// Validation limits
const (
	MinPasswordLength     = 8
	MaxDisplayNameLength  = 50
	defaultSessionTimeout = 365 * 24 * time.Hour
)

// Session is an authenticated user with a signed token
type Session struct {
	Token     string
	User      model.User
	Player    model.Player
	ExpiresAt time.Time
}

// Config holds configuration for the auth service
type Config struct {
	// SessionSecret signs session tokens (HS256)
	SessionSecret string
	// SessionDuration is how long a token stays valid
	SessionDuration time.Duration
	// BcryptCost is the password hashing cost
	BcryptCost int
}

// DefaultConfig returns default auth configuration
func DefaultConfig(secret string) Config {
	return Config{
		SessionSecret:   secret,
		SessionDuration: defaultSessionTimeout,
		BcryptCost:      bcrypt.DefaultCost,
	}
}

// Service handles accounts and session tokens
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	ids     ids.Generator
	logger  *slog.Logger

	secret          []byte
	sessionDuration time.Duration
	bcryptCost      int
}

// New creates a new auth Service
func New(storage storage.Storage, clock clock.Clock, ids ids.Generator, cfg Config, logger *slog.Logger) *Service {
	if cfg.SessionDuration == 0 {
		cfg.SessionDuration = defaultSessionTimeout
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		storage:         storage,
		clock:           clock,
		ids:             ids,
		logger:          logger,
		secret:          []byte(cfg.SessionSecret),
		sessionDuration: cfg.SessionDuration,
		bcryptCost:      cfg.BcryptCost,
	}
}

// Register creates a local account and its player, and starts a session.
// The first account ever created is an admin.
func (s *Service) Register(ctx context.Context, email, password, name string) (*Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", model.ErrInvalidInput)
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", model.ErrInvalidInput, MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user, player, err := s.createUser(ctx, &model.User{
		Email:        email,
		Name:         name,
		AuthProvider: model.AuthProviderLocal,
		PasswordHash: string(hash),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", slog.String("user_id", string(user.ID)), slog.String("role", string(user.Role)))
	return s.newSession(user, player)
}

// Login authenticates a local account by email and password
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.storage.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, err
	}
	if user.PasswordHash == "" {
		return nil, model.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	player, err := s.storage.GetPlayerByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return s.newSession(user, player)
}

// OAuthLogin signs in the account linked to (provider, providerID), creating it on first use.
// Accounts are always looked up by provider id, never by email.
func (s *Service) OAuthLogin(ctx context.Context, provider model.AuthProvider, providerID, email, name string) (*Session, error) {
	if provider != model.AuthProviderGoogle && provider != model.AuthProviderFacebook {
		return nil, fmt.Errorf("%w: unsupported provider %q", model.ErrInvalidInput, provider)
	}
	if providerID == "" {
		return nil, fmt.Errorf("%w: provider id is required", model.ErrInvalidInput)
	}

	user, err := s.storage.GetUserByProvider(ctx, provider, providerID)
	if err == nil {
		player, err := s.storage.GetPlayerByUser(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		return s.newSession(user, player)
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return nil, err
	}

	email, err = normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	user, player, err := s.createUser(ctx, &model.User{
		Email:          email,
		Name:           name,
		AuthProvider:   provider,
		AuthProviderID: providerID,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", slog.String("user_id", string(user.ID)), slog.String("provider", string(provider)))
	return s.newSession(user, player)
}

// ValidateToken checks a session token and returns its current user
func (s *Service) ValidateToken(ctx context.Context, token string) (*model.User, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.clock.Now), jwt.WithExpirationRequired())
	if err != nil || claims.Subject == "" {
		return nil, ErrInvalidSession
	}

	user, err := s.storage.GetUser(ctx, model.UserID(claims.Subject))
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}
	return user, nil
}

// UpdateDisplayName sets the name shown for the user on rosters
func (s *Service) UpdateDisplayName(ctx context.Context, userID model.UserID, displayName string) (*model.User, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, fmt.Errorf("%w: display name is required", model.ErrInvalidInput)
	}
	if utf8.RuneCountInString(displayName) > MaxDisplayNameLength {
		return nil, fmt.Errorf("%w: display name must be at most %d characters", model.ErrInvalidInput, MaxDisplayNameLength)
	}

	user, err := s.storage.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.DisplayName = displayName
	user.UpdatedAt = s.clock.Now()
	if err := s.storage.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Promote grants the admin role to the account with the given email
func (s *Service) Promote(ctx context.Context, actor *model.User, email string) (*model.User, error) {
	if !actor.IsAdmin() {
		return nil, model.ErrNotAdmin
	}
	user, err := s.storage.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if user.IsAdmin() {
		return user, nil
	}
	user.Role = model.RoleAdmin
	user.UpdatedAt = s.clock.Now()
	if err := s.storage.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user promoted", slog.String("user_id", string(user.ID)), slog.String("by", string(actor.ID)))
	return user, nil
}

// Player returns the player backing a user
func (s *Service) Player(ctx context.Context, userID model.UserID) (*model.Player, error) {
	return s.storage.GetPlayerByUser(ctx, userID)
}

func (s *Service) createUser(ctx context.Context, user *model.User) (*model.User, *model.Player, error) {
	now := s.clock.Now()
	user.ID = model.UserID(s.ids.NewID())
	// storage promotes the first user to admin
	user.Role = model.RoleUser
	user.CreatedAt = now
	user.UpdatedAt = now
	player := model.NewUserPlayer(model.PlayerID(s.ids.NewID()), user.ID, now)

	if err := s.storage.CreateUser(ctx, user, player); err != nil {
		return nil, nil, err
	}
	return user, player, nil
}

func (s *Service) newSession(user *model.User, player *model.Player) (*Session, error) {
	now := s.clock.Now()
	expires := now.Add(s.sessionDuration)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   string(user.ID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, err
	}
	return &Session{Token: signed, User: *user, Player: *player, ExpiresAt: expires}, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email address", model.ErrInvalidInput)
	}
	return email, nil
}
