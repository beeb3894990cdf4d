package postgres

import (
	"time"

	"github.com/mcoot/futebolada/internal/model"
)

type userRow struct {
	ID             string  `gorm:"primaryKey;type:varchar(36)"`
	Email          string  `gorm:"not null;uniqueIndex"`
	Name           string  `gorm:"not null"`
	DisplayName    string  `gorm:"not null;default:''"`
	Role           string  `gorm:"type:varchar(16);not null;default:user"`
	AuthProvider   string  `gorm:"type:varchar(16);not null;uniqueIndex:idx_users_provider"`
	AuthProviderID *string `gorm:"uniqueIndex:idx_users_provider"`
	PasswordHash   string  `gorm:"not null;default:''"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (userRow) TableName() string { return "users" }

type guestRow struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	Name      string `gorm:"not null;uniqueIndex"`
	CreatedBy string `gorm:"type:varchar(36)"`
	CreatedAt time.Time
}

func (guestRow) TableName() string { return "guests" }

// A player references exactly one of a user or a guest
type playerRow struct {
	ID        string  `gorm:"primaryKey;type:varchar(36)"`
	UserID    *string `gorm:"type:varchar(36);uniqueIndex;check:chk_players_identity,(user_id IS NULL) <> (guest_id IS NULL)"`
	GuestID   *string `gorm:"type:varchar(36);uniqueIndex"`
	CreatedAt time.Time
}

func (playerRow) TableName() string { return "players" }

type gameRow struct {
	ID          string  `gorm:"primaryKey;type:varchar(36)"`
	Date        string  `gorm:"type:varchar(10);not null;index"`
	StartTime   string  `gorm:"type:varchar(5);not null"`
	EndTime     string  `gorm:"type:varchar(5);not null"`
	Latitude    float64 `gorm:"not null"`
	Longitude   float64 `gorm:"not null"`
	Location    string  `gorm:"not null"`
	MaxPlayers  int     `gorm:"not null;check:chk_games_max_players,max_players BETWEEN 1 AND 100"`
	Price       int64   `gorm:"not null;default:0"`
	WinningTeam *string `gorm:"type:varchar(8)"`
	CreatedBy   string  `gorm:"type:varchar(36);not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (gameRow) TableName() string { return "games" }

// The two composite unique indexes are the authoritative roster invariants
type enrollmentRow struct {
	ID        string  `gorm:"primaryKey;type:varchar(36)"`
	GameID    string  `gorm:"type:varchar(36);not null;uniqueIndex:idx_enrolled_game_position,priority:1;uniqueIndex:idx_enrolled_game_player,priority:1"`
	PlayerID  string  `gorm:"type:varchar(36);not null;uniqueIndex:idx_enrolled_game_player,priority:2"`
	Position  int     `gorm:"not null;uniqueIndex:idx_enrolled_game_position,priority:2"`
	TeamColor *string `gorm:"type:varchar(8)"`
	CreatedBy string  `gorm:"type:varchar(36);not null"`
	CreatedAt time.Time
}

func (enrollmentRow) TableName() string { return "players_enrolled" }

// enrollmentView is an enrollment joined with the names of its player
type enrollmentView struct {
	enrollmentRow   `gorm:"embedded"`
	UserID          *string
	GuestID         *string
	UserName        *string
	UserDisplayName *string
	GuestName       *string
}

type guestView struct {
	guestRow `gorm:"embedded"`
	PlayerID string
}

// Conversions

func toUserRow(u *model.User) userRow {
	row := userRow{
		ID:           string(u.ID),
		Email:        u.Email,
		Name:         u.Name,
		DisplayName:  u.DisplayName,
		Role:         string(u.Role),
		AuthProvider: string(u.AuthProvider),
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
	if u.AuthProviderID != "" {
		id := u.AuthProviderID
		row.AuthProviderID = &id
	}
	return row
}

func (r userRow) toModel() *model.User {
	u := &model.User{
		ID:           model.UserID(r.ID),
		Email:        r.Email,
		Name:         r.Name,
		DisplayName:  r.DisplayName,
		Role:         model.Role(r.Role),
		AuthProvider: model.AuthProvider(r.AuthProvider),
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.AuthProviderID != nil {
		u.AuthProviderID = *r.AuthProviderID
	}
	return u
}

func toPlayerRow(p *model.Player) playerRow {
	row := playerRow{ID: string(p.ID), CreatedAt: p.CreatedAt}
	if uid, ok := p.UserID(); ok {
		s := string(uid)
		row.UserID = &s
	}
	if gid, ok := p.GuestID(); ok {
		s := string(gid)
		row.GuestID = &s
	}
	return row
}

func (r playerRow) toModel() *model.Player {
	if r.GuestID != nil {
		return model.NewGuestPlayer(model.PlayerID(r.ID), model.GuestID(*r.GuestID), r.CreatedAt)
	}
	var uid model.UserID
	if r.UserID != nil {
		uid = model.UserID(*r.UserID)
	}
	return model.NewUserPlayer(model.PlayerID(r.ID), uid, r.CreatedAt)
}

func toGuestRow(g *model.Guest) guestRow {
	return guestRow{ID: string(g.ID), Name: g.Name, CreatedBy: string(g.CreatedBy), CreatedAt: g.CreatedAt}
}

func (r guestRow) toModel() *model.Guest {
	return &model.Guest{ID: model.GuestID(r.ID), Name: r.Name, CreatedBy: model.UserID(r.CreatedBy), CreatedAt: r.CreatedAt}
}

func (v guestView) toModel() *model.Guest {
	g := v.guestRow.toModel()
	g.PlayerID = model.PlayerID(v.PlayerID)
	return g
}

func toGameRow(g *model.Game) gameRow {
	row := gameRow{
		ID:         string(g.ID),
		Date:       g.Date,
		StartTime:  g.StartTime,
		EndTime:    g.EndTime,
		Latitude:   g.Latitude,
		Longitude:  g.Longitude,
		Location:   g.Location,
		MaxPlayers: g.MaxPlayers,
		Price:      g.PriceCents,
		CreatedBy:  string(g.CreatedBy),
		CreatedAt:  g.CreatedAt,
		UpdatedAt:  g.UpdatedAt,
	}
	if g.Winner != nil {
		w := string(*g.Winner)
		row.WinningTeam = &w
	}
	return row
}

func (r gameRow) toModel() model.Game {
	g := model.Game{
		ID:         model.GameID(r.ID),
		Date:       r.Date,
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		Latitude:   r.Latitude,
		Longitude:  r.Longitude,
		Location:   r.Location,
		MaxPlayers: r.MaxPlayers,
		PriceCents: r.Price,
		CreatedBy:  model.UserID(r.CreatedBy),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.WinningTeam != nil {
		w := model.Outcome(*r.WinningTeam)
		g.Winner = &w
	}
	return g
}

func toEnrollmentRow(e *model.Enrollment) enrollmentRow {
	row := enrollmentRow{
		ID:        string(e.ID),
		GameID:    string(e.GameID),
		PlayerID:  string(e.PlayerID),
		Position:  e.Position,
		CreatedBy: string(e.CreatedBy),
		CreatedAt: e.CreatedAt,
	}
	if e.Team != nil {
		t := string(*e.Team)
		row.TeamColor = &t
	}
	return row
}

func (v enrollmentView) toModel() model.Enrollment {
	e := model.Enrollment{
		ID:        model.EnrollmentID(v.ID),
		GameID:    model.GameID(v.GameID),
		PlayerID:  model.PlayerID(v.PlayerID),
		Position:  v.Position,
		CreatedBy: model.UserID(v.CreatedBy),
		CreatedAt: v.CreatedAt,
	}
	if v.TeamColor != nil {
		t := model.Team(*v.TeamColor)
		e.Team = &t
	}
	switch {
	case v.GuestID != nil:
		e.PlayerKind = model.PlayerKindGuest
		if v.GuestName != nil {
			e.PlayerName = *v.GuestName
		}
	case v.UserID != nil:
		e.PlayerKind = model.PlayerKindUser
		if v.UserDisplayName != nil && *v.UserDisplayName != "" {
			e.PlayerName = *v.UserDisplayName
		} else if v.UserName != nil {
			e.PlayerName = *v.UserName
		}
	}
	return e
}
