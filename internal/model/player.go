package model

import "time"

// PlayerID uniquely identifies an enrollable identity
type PlayerID string

// GuestID uniquely identifies a guest
type GuestID string

// PlayerKind tells which identity a player wraps
type PlayerKind string

const (
	PlayerKindUser  PlayerKind = "user"
	PlayerKindGuest PlayerKind = "guest"
)

// Player wraps exactly one of a registered user or a guest.
// The zero value is not a valid player; use NewUserPlayer or NewGuestPlayer.
type Player struct {
	ID        PlayerID
	CreatedAt time.Time

	kind    PlayerKind
	userID  UserID
	guestID GuestID
}

// NewUserPlayer creates a player backed by a registered user
func NewUserPlayer(id PlayerID, userID UserID, createdAt time.Time) *Player {
	return &Player{ID: id, CreatedAt: createdAt, kind: PlayerKindUser, userID: userID}
}

// NewGuestPlayer creates a player backed by a guest
func NewGuestPlayer(id PlayerID, guestID GuestID, createdAt time.Time) *Player {
	return &Player{ID: id, CreatedAt: createdAt, kind: PlayerKindGuest, guestID: guestID}
}

// Kind returns which identity backs this player
func (p *Player) Kind() PlayerKind {
	return p.kind
}

// UserID returns the backing user, if any
func (p *Player) UserID() (UserID, bool) {
	return p.userID, p.kind == PlayerKindUser
}

// GuestID returns the backing guest, if any
func (p *Player) GuestID() (GuestID, bool) {
	return p.guestID, p.kind == PlayerKindGuest
}

// Guest is a name-only identity for people without an account
type Guest struct {
	ID        GuestID
	Name      string // matched exactly, case-sensitive
	CreatedBy UserID
	CreatedAt time.Time

	// PlayerID of the guest's player. Populated on read.
	PlayerID PlayerID
}
