package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/futebolada/internal/dependencies/mocks"
	"github.com/mcoot/futebolada/internal/model"
	"github.com/mcoot/futebolada/internal/testutil"
)

func testGame(enrolled int) *model.Game {
	g := &model.Game{ID: "g1", Date: "2026-10-20", StartTime: "19:00", EndTime: "20:00", MaxPlayers: 10}
	for i := 0; i < enrolled; i++ {
		g.Enrollments = append(g.Enrollments, model.Enrollment{Position: i + 1})
	}
	return g
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "⚽ Maria enrolled in the game on 2026-10-20 at 19:00 (position 3, 4/10)",
		EnrolledMessage(testGame(4), "Maria", 3))
	assert.Equal(t, "❌ Maria left the game on 2026-10-20 at 19:00 (position 3 is free, 3/10)",
		UnenrolledMessage(testGame(3), "Maria", 3))

	g := testGame(0)
	assert.Equal(t, "The game on 2026-10-20 has no result yet", WinnerMessage(g))

	white := model.OutcomeWhite
	g.Winner = &white
	assert.Equal(t, "🏆 The game on 2026-10-20 was won by the white team", WinnerMessage(g))

	draw := model.OutcomeDraw
	g.Winner = &draw
	assert.Equal(t, "🤝 The game on 2026-10-20 ended in a draw", WinnerMessage(g))
}

func TestChatNotifierEnqueues(t *testing.T) {
	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	sender := &recordingSender{clock: clk, fail: map[string]error{}}
	q := NewQueue(sender, nil, clk, mocks.NewMockRandom(), DefaultConfig(), testutil.NopLogger())
	n := NewChatNotifier(q, "group@g.us")

	n.Enrolled(testGame(1), "Ana", 1)
	n.Unenrolled(testGame(0), "Ana", 1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, q.Flush(ctx))

	sent := sender.messages()
	require.Len(t, sent, 2)
	assert.Equal(t, "group@g.us", sent[0].ChatID)
	assert.Contains(t, sent[0].Text, "Ana enrolled")
	assert.Contains(t, sent[1].Text, "Ana left")
}
