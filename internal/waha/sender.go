package waha

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcoot/futebolada/internal/dependencies/clock"
	"github.com/mcoot/futebolada/internal/dependencies/random"
)

// Typing delay bounds
const (
	MinTypingDelay = 1 * time.Second
	MaxTypingDelay = 3 * time.Second
)

// API is the subset of the provider API a SafeSender drives
type API interface {
	SendSeen(ctx context.Context, chatID string) error
	StartTyping(ctx context.Context, chatID string) error
	StopTyping(ctx context.Context, chatID string) error
	SendText(ctx context.Context, chatID, text string) (string, error)
}

// SafeSender sends messages the way a person would: seen, typing, a pause, then the text
type SafeSender struct {
	api    API
	clock  clock.Clock
	random random.Random
	logger *slog.Logger
}

// NewSafeSender creates a SafeSender over the given API
func NewSafeSender(api API, clock clock.Clock, random random.Random, logger *slog.Logger) *SafeSender {
	return &SafeSender{
		api:    api,
		clock:  clock,
		random: random,
		logger: logger,
	}
}

// Send runs the full sequence for one message, stopping at the first failing step
func (s *SafeSender) Send(ctx context.Context, chatID, text string) error {
	if err := s.api.SendSeen(ctx, chatID); err != nil {
		return err
	}
	if err := s.api.StartTyping(ctx, chatID); err != nil {
		return err
	}

	select {
	case <-s.clock.After(random.Duration(s.random, MinTypingDelay, MaxTypingDelay)):
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := s.api.StopTyping(ctx, chatID); err != nil {
		return err
	}
	id, err := s.api.SendText(ctx, chatID, text)
	if err != nil {
		return fmt.Errorf("sending message: %w", err)
	}

	s.logger.Debug("message sent",
		slog.String("chat_id", chatID),
		slog.String("message_id", id),
	)
	return nil
}
