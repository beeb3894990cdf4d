package model

import "time"

// EnrollmentID uniquely identifies an enrollment
type EnrollmentID string

// Enrollment puts one player into one numbered slot of one game
type Enrollment struct {
	ID        EnrollmentID
	GameID    GameID
	PlayerID  PlayerID
	Position  int   // 1..MaxPlayers
	Team      *Team // nil when unassigned
	CreatedBy UserID
	CreatedAt time.Time

	// PlayerName is the name shown on the roster. Populated on read.
	PlayerName string
	// PlayerKind is the kind of the enrolled player. Populated on read.
	PlayerKind PlayerKind
}
