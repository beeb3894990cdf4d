package notify

import (
	"fmt"

	"github.com/mcoot/futebolada/internal/model"
)

// Notifier announces roster changes to the group chat
type Notifier interface {
	Enrolled(game *model.Game, playerName string, position int)
	Unenrolled(game *model.Game, playerName string, position int)
	WinnerDeclared(game *model.Game)
}

// ChatNotifier posts announcements through a Queue to one chat
type ChatNotifier struct {
	queue  *Queue
	chatID string
}

// NewChatNotifier creates a notifier for the given chat
func NewChatNotifier(queue *Queue, chatID string) *ChatNotifier {
	return &ChatNotifier{queue: queue, chatID: chatID}
}

var _ Notifier = (*ChatNotifier)(nil)

// Enrolled announces a new enrollment. game must include the updated roster.
func (n *ChatNotifier) Enrolled(game *model.Game, playerName string, position int) {
	n.queue.Enqueue(n.chatID, EnrolledMessage(game, playerName, position))
}

// Unenrolled announces a removal. game must include the updated roster.
func (n *ChatNotifier) Unenrolled(game *model.Game, playerName string, position int) {
	n.queue.Enqueue(n.chatID, UnenrolledMessage(game, playerName, position))
}

// WinnerDeclared announces the result of a game
func (n *ChatNotifier) WinnerDeclared(game *model.Game) {
	n.queue.Enqueue(n.chatID, WinnerMessage(game))
}

// NopNotifier discards every announcement
type NopNotifier struct{}

var _ Notifier = NopNotifier{}

func (NopNotifier) Enrolled(*model.Game, string, int)   {}
func (NopNotifier) Unenrolled(*model.Game, string, int) {}
func (NopNotifier) WinnerDeclared(*model.Game)          {}

// EnrolledMessage formats the enrollment announcement
func EnrolledMessage(game *model.Game, playerName string, position int) string {
	return fmt.Sprintf("⚽ %s enrolled in the game on %s at %s (position %d, %d/%d)",
		playerName, game.Date, game.StartTime, position, len(game.Enrollments), game.MaxPlayers)
}

// UnenrolledMessage formats the removal announcement
func UnenrolledMessage(game *model.Game, playerName string, position int) string {
	return fmt.Sprintf("❌ %s left the game on %s at %s (position %d is free, %d/%d)",
		playerName, game.Date, game.StartTime, position, len(game.Enrollments), game.MaxPlayers)
}

// WinnerMessage formats the result announcement
func WinnerMessage(game *model.Game) string {
	if game.Winner == nil {
		return fmt.Sprintf("The game on %s has no result yet", game.Date)
	}
	if *game.Winner == model.OutcomeDraw {
		return fmt.Sprintf("🤝 The game on %s ended in a draw", game.Date)
	}
	return fmt.Sprintf("🏆 The game on %s was won by the %s team", game.Date, *game.Winner)
}
