package model

import "errors"

// Common errors used across the application
var (
	// Validation errors
	ErrInvalidInput = errors.New("invalid input")

	// User errors
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotAdmin           = errors.New("admin role required")

	// Player errors
	ErrPlayerNotFound = errors.New("player not found")
	ErrGuestNotFound  = errors.New("guest not found")

	// Game errors
	ErrGameNotFound = errors.New("game not found")
	ErrInvalidGame  = errors.New("invalid game")
	ErrGameOver     = errors.New("game is already over")

	// Enrollment errors
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrInvalidPosition    = errors.New("invalid position")
	ErrInvalidTeam        = errors.New("invalid team")
	ErrPositionTaken      = errors.New("that position is already taken")
	ErrAlreadyEnrolled    = errors.New("this player is already enrolled in this game")
	ErrNotEnrollmentOwner = errors.New("only the player who made the enrollment can remove it")
)
