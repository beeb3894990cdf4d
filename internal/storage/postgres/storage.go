package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/mcoot/futebolada/internal/config"
	"github.com/mcoot/futebolada/internal/dependencies/retry"
	"github.com/mcoot/futebolada/internal/model"
	"github.com/mcoot/futebolada/internal/storage"
)

// Connection retry settings
const (
	connectAttempts = 5
	connectInterval = 2 * time.Second
)

// Storage is a relational implementation of the storage interface
type Storage struct {
	db *gorm.DB
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// New connects to PostgreSQL, retrying while the server comes up, and migrates the schema
func New(ctx context.Context, cfg config.DatabaseConfig) (*Storage, error) {
	var s *Storage
	err := retry.DoEvery(ctx, connectAttempts, connectInterval, func() error {
		var err error
		s, err = NewWithDialector(postgres.Open(cfg.DSN()))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return s, nil
}

// NewWithDialector opens a store on any gorm dialector and migrates the schema (useful for testing)
func NewWithDialector(dialector gorm.Dialector) (*Storage, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	s := &Storage{db: db}
	if err := s.Migrate(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates or updates the schema
func (s *Storage) Migrate() error {
	return s.db.AutoMigrate(&userRow{}, &guestRow{}, &playerRow{}, &gameRow{}, &enrollmentRow{})
}

// Close closes the underlying connection pool
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// User operations

func (s *Storage) CreateUser(ctx context.Context, user *model.User, player *model.Player) error {
	role := user.Role
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Registrations serialize so only one of them can see an empty table
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("LOCK TABLE users IN SHARE ROW EXCLUSIVE MODE").Error; err != nil {
				return err
			}
		}
		var count int64
		if err := tx.Model(&userRow{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return model.ErrEmailExists
		}
		var total int64
		if err := tx.Model(&userRow{}).Count(&total).Error; err != nil {
			return err
		}
		row := toUserRow(user)
		if total == 0 {
			row.Role = string(model.RoleAdmin)
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		prow := toPlayerRow(player)
		if err := tx.Create(&prow).Error; err != nil {
			return err
		}
		role = model.Role(row.Role)
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return model.ErrEmailExists
	}
	if err != nil {
		return err
	}
	user.Role = role
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	return s.firstUser(ctx, "id = ?", string(id))
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.firstUser(ctx, "email = ?", email)
}

func (s *Storage) GetUserByProvider(ctx context.Context, provider model.AuthProvider, providerID string) (*model.User, error) {
	return s.firstUser(ctx, "auth_provider = ? AND auth_provider_id = ?", string(provider), providerID)
}

func (s *Storage) firstUser(ctx context.Context, query string, args ...any) (*model.User, error) {
	var row userRow
	err := s.db.WithContext(ctx).Where(query, args...).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (s *Storage) UpdateUser(ctx context.Context, user *model.User) error {
	row := toUserRow(user)
	res := s.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", row.ID).
		Select("email", "name", "display_name", "role", "auth_provider", "auth_provider_id", "password_hash", "updated_at").
		Updates(&row)
	if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return model.ErrEmailExists
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

// Player operations

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	return s.firstPlayer(s.db.WithContext(ctx), "id = ?", string(id))
}

func (s *Storage) GetPlayerByUser(ctx context.Context, userID model.UserID) (*model.Player, error) {
	return s.firstPlayer(s.db.WithContext(ctx), "user_id = ?", string(userID))
}

func (s *Storage) GetPlayerByGuest(ctx context.Context, guestID model.GuestID) (*model.Player, error) {
	return s.firstPlayer(s.db.WithContext(ctx), "guest_id = ?", string(guestID))
}

func (s *Storage) firstPlayer(db *gorm.DB, query string, args ...any) (*model.Player, error) {
	var row playerRow
	err := db.Where(query, args...).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrPlayerNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

// Guest operations

func (s *Storage) FindOrCreateGuest(ctx context.Context, guest *model.Guest, player *model.Player) (*model.Guest, *model.Player, bool, error) {
	var (
		found   *model.Guest
		fplayer *model.Player
		created bool
	)
	find := func(tx *gorm.DB) error {
		var row guestRow
		if err := tx.Where("name = ?", guest.Name).First(&row).Error; err != nil {
			return err
		}
		p, err := s.firstPlayer(tx, "guest_id = ?", row.ID)
		if err != nil {
			return err
		}
		found, fplayer = row.toModel(), p
		found.PlayerID = p.ID
		return nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := find(tx)
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		grow := toGuestRow(guest)
		if err := tx.Create(&grow).Error; err != nil {
			return err
		}
		prow := toPlayerRow(player)
		if err := tx.Create(&prow).Error; err != nil {
			return err
		}
		found, fplayer, created = grow.toModel(), prow.toModel(), true
		found.PlayerID = fplayer.ID
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// A concurrent caller created the same guest first
		created = false
		err = find(s.db.WithContext(ctx))
	}
	if err != nil {
		return nil, nil, false, err
	}
	return found, fplayer, created, nil
}

func (s *Storage) GetGuest(ctx context.Context, id model.GuestID) (*model.Guest, error) {
	views, err := s.guestViews(s.db.WithContext(ctx).Where("guests.id = ?", string(id)).Limit(1))
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, model.ErrGuestNotFound
	}
	return views[0].toModel(), nil
}

func (s *Storage) ListGuests(ctx context.Context) ([]model.Guest, error) {
	views, err := s.guestViews(s.db.WithContext(ctx).Limit(storage.MaxGuests))
	if err != nil {
		return nil, err
	}
	guests := make([]model.Guest, 0, len(views))
	for _, v := range views {
		guests = append(guests, *v.toModel())
	}
	return guests, nil
}

// guestViews loads guests joined with their player, ordered by name
func (s *Storage) guestViews(db *gorm.DB) ([]guestView, error) {
	var views []guestView
	err := db.Table("guests").
		Select("guests.*, players.id AS player_id").
		Joins("JOIN players ON players.guest_id = guests.id").
		Order("guests.name").
		Scan(&views).Error
	return views, err
}

// Game operations

func (s *Storage) CreateGame(ctx context.Context, game *model.Game) error {
	row := toGameRow(game)
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	var row gameRow
	err := s.db.WithContext(ctx).Where("id = ?", string(id)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}
	games, err := s.withEnrollments(ctx, []gameRow{row})
	if err != nil {
		return nil, err
	}
	return &games[0], nil
}

func (s *Storage) ListUpcomingGames(ctx context.Context, today, now string) ([]model.Game, error) {
	var rows []gameRow
	err := s.db.WithContext(ctx).
		Where("date > ? OR (date = ? AND end_time >= ?)", today, today, now).
		Order("date, start_time").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return s.withEnrollments(ctx, rows)
}

func (s *Storage) ListPastGames(ctx context.Context, today, now string, offset, limit int) ([]model.Game, int, error) {
	past := s.db.WithContext(ctx).Model(&gameRow{}).
		Where("date < ? OR (date = ? AND end_time < ?)", today, today, now)

	var total int64
	if err := past.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []gameRow
	err := past.Session(&gorm.Session{}).
		Order("date DESC, start_time DESC").
		Offset(offset).Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	games, err := s.withEnrollments(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return games, int(total), nil
}

func (s *Storage) SetWinner(ctx context.Context, id model.GameID, outcome model.Outcome) error {
	res := s.db.WithContext(ctx).Model(&gameRow{}).Where("id = ?", string(id)).Update("winning_team", string(outcome))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.ErrGameNotFound
	}
	return nil
}

func (s *Storage) withEnrollments(ctx context.Context, rows []gameRow) ([]model.Game, error) {
	games := make([]model.Game, 0, len(rows))
	if len(rows) == 0 {
		return games, nil
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}

	views, err := s.enrollmentViews(s.db.WithContext(ctx).Where("players_enrolled.game_id IN ?", ids))
	if err != nil {
		return nil, err
	}
	byGame := make(map[string][]model.Enrollment, len(rows))
	for _, v := range views {
		byGame[v.GameID] = append(byGame[v.GameID], v.toModel())
	}

	for _, r := range rows {
		g := r.toModel()
		g.Enrollments = byGame[r.ID]
		games = append(games, g)
	}
	return games, nil
}

func (s *Storage) enrollmentViews(db *gorm.DB) ([]enrollmentView, error) {
	var views []enrollmentView
	err := db.Table("players_enrolled").
		Select("players_enrolled.*, players.user_id, players.guest_id, " +
			"users.name AS user_name, users.display_name AS user_display_name, guests.name AS guest_name").
		Joins("JOIN players ON players.id = players_enrolled.player_id").
		Joins("LEFT JOIN users ON users.id = players.user_id").
		Joins("LEFT JOIN guests ON guests.id = players.guest_id").
		Order("players_enrolled.position").
		Scan(&views).Error
	return views, err
}

// Enrollment operations

func (s *Storage) CreateEnrollment(ctx context.Context, enrollment *model.Enrollment) error {
	row := toEnrollmentRow(enrollment)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the game row so enrollments into the same game serialize
		lock := tx
		if tx.Dialector.Name() == "postgres" {
			lock = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var game gameRow
		err := lock.Where("id = ?", row.GameID).First(&game).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.ErrGameNotFound
		}
		if err != nil {
			return err
		}

		var players int64
		if err := tx.Model(&playerRow{}).Where("id = ?", row.PlayerID).Count(&players).Error; err != nil {
			return err
		}
		if players == 0 {
			return model.ErrPlayerNotFound
		}

		if err := s.checkConflict(tx, row); err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// The unique indexes caught a race the checks missed; report which one
		if cerr := s.checkConflict(s.db.WithContext(ctx), row); cerr != nil {
			return cerr
		}
		return model.ErrPositionTaken
	}
	return err
}

// checkConflict reports ErrPositionTaken or ErrAlreadyEnrolled if the row would violate either invariant
func (s *Storage) checkConflict(db *gorm.DB, row enrollmentRow) error {
	var count int64
	err := db.Model(&enrollmentRow{}).Where("game_id = ? AND position = ?", row.GameID, row.Position).Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return model.ErrPositionTaken
	}
	err = db.Model(&enrollmentRow{}).Where("game_id = ? AND player_id = ?", row.GameID, row.PlayerID).Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return model.ErrAlreadyEnrolled
	}
	return nil
}

func (s *Storage) GetEnrollment(ctx context.Context, id model.EnrollmentID) (*model.Enrollment, error) {
	return s.firstEnrollment(s.db.WithContext(ctx).Where("players_enrolled.id = ?", string(id)))
}

func (s *Storage) GetEnrollmentByPlayer(ctx context.Context, gameID model.GameID, playerID model.PlayerID) (*model.Enrollment, error) {
	return s.firstEnrollment(s.db.WithContext(ctx).
		Where("players_enrolled.game_id = ? AND players_enrolled.player_id = ?", string(gameID), string(playerID)))
}

func (s *Storage) firstEnrollment(db *gorm.DB) (*model.Enrollment, error) {
	views, err := s.enrollmentViews(db.Limit(1))
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, model.ErrEnrollmentNotFound
	}
	e := views[0].toModel()
	return &e, nil
}

func (s *Storage) DeleteEnrollment(ctx context.Context, gameID model.GameID, playerID model.PlayerID) error {
	return s.db.WithContext(ctx).
		Where("game_id = ? AND player_id = ?", string(gameID), string(playerID)).
		Delete(&enrollmentRow{}).Error
}

func (s *Storage) SetEnrollmentTeam(ctx context.Context, id model.EnrollmentID, team *model.Team) error {
	var value any
	if team != nil {
		value = string(*team)
	}
	res := s.db.WithContext(ctx).Model(&enrollmentRow{}).Where("id = ?", string(id)).Update("team_color", value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.ErrEnrollmentNotFound
	}
	return nil
}
