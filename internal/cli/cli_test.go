package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/futebolada/internal/api"
	"github.com/mcoot/futebolada/internal/factory"
	"github.com/mcoot/futebolada/internal/testutil"
)

type cliHarness struct {
	t         *testing.T
	server    *httptest.Server
	tokenFile string
}

func newHarness(t *testing.T) *cliHarness {
	t.Helper()

	app := factory.NewTestApp()
	server := httptest.NewServer(api.NewRouter(api.RouterConfig{
		Logger:            testutil.NopLogger(),
		AuthService:       app.AuthService,
		GamesService:      app.GamesService,
		EnrollmentService: app.EnrollmentService,
		Notifier:          app.Notifier,
	}))
	t.Cleanup(server.Close)

	return &cliHarness{
		t:         t,
		server:    server,
		tokenFile: filepath.Join(t.TempDir(), "token"),
	}
}

// run executes one CLI invocation and returns its stdout
func (h *cliHarness) run(args ...string) (string, error) {
	h.t.Helper()

	full := append([]string{"--server", h.server.URL, "--token-file", h.tokenFile, "--output", "json"}, args...)
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(full)
	err := cmd.Execute()
	return stdout.String(), err
}

func runJSON[T any](h *cliHarness, args ...string) T {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, out)
	var v T
	require.NoError(h.t, json.Unmarshal([]byte(out), &v), out)
	return v
}

func TestCLI_Health(t *testing.T) {
	h := newHarness(t)

	result := runJSON[HealthResult](h, "health")
	assert.Equal(t, "ok", result.Status)
}

func TestCLI_AuthCommands(t *testing.T) {
	h := newHarness(t)

	reg := runJSON[AuthResult](h, "auth", "register", "--email", "admin@example.com", "--pass", "password123", "--name", "Admin")
	assert.Equal(t, "admin", reg.User.Role)

	saved, err := os.ReadFile(h.tokenFile)
	require.NoError(t, err)
	assert.Equal(t, reg.SessionToken, string(saved))

	me := runJSON[Me](h, "auth", "whoami")
	assert.Equal(t, reg.PlayerID, me.PlayerID)

	renamed := runJSON[User](h, "auth", "rename", "Boss")
	assert.Equal(t, "Boss", renamed.DisplayName)

	_, err = h.run("auth", "logout")
	require.NoError(t, err)
	_, err = os.Stat(h.tokenFile)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = h.run("auth", "whoami")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	login := runJSON[AuthResult](h, "auth", "login", "--email", "admin@example.com", "--pass", "password123")
	assert.Equal(t, reg.User.ID, login.User.ID)
}

func TestCLI_GameFlow(t *testing.T) {
	h := newHarness(t)
	runJSON[AuthResult](h, "auth", "register", "--email", "admin@example.com", "--pass", "password123", "--name", "Admin")

	game := runJSON[Game](h, "game", "create", "--date", "2024-01-06", "--start", "10:00", "--end", "11:30", "--max-players", "4", "--price", "3", "--location", "Estádio")
	assert.Equal(t, "Estádio", game.Location)
	assert.Equal(t, int64(300), game.PriceCents)

	list := runJSON[GameList](h, "game", "list")
	require.Len(t, list.Games, 1)
	assert.Equal(t, game.ID, list.Games[0].ID)

	self := runJSON[Enrollment](h, "enroll", "self", game.ID, "2")
	assert.Equal(t, 2, self.Position)

	guest := runJSON[Enrollment](h, "enroll", "guest", game.ID, "Maria", "4")
	assert.Equal(t, "guest", guest.PlayerKind)

	positions := runJSON[Positions](h, "game", "positions", game.ID)
	assert.Equal(t, []int{1, 3}, positions.Available)

	team := runJSON[Enrollment](h, "enroll", "team", game.ID, self.ID, "black")
	require.NotNil(t, team.Team)
	assert.Equal(t, "black", *team.Team)

	cleared := runJSON[Enrollment](h, "enroll", "team", game.ID, self.ID, "none")
	assert.Nil(t, cleared.Team)

	_, err := h.run("enroll", "remove", game.ID, guest.PlayerID)
	require.NoError(t, err)

	shown := runJSON[Game](h, "game", "show", game.ID)
	assert.Equal(t, 1, shown.EnrolledCount)

	guests := runJSON[GuestList](h, "game", "guests", game.ID)
	require.Len(t, guests.Guests, 1)
	assert.Equal(t, "Maria", guests.Guests[0].Name)

	result := runJSON[Game](h, "game", "winner", game.ID, "white")
	require.NotNil(t, result.Winner)
	assert.Equal(t, "white", *result.Winner)

	past := runJSON[GamePage](h, "game", "past")
	assert.Equal(t, 0, past.TotalCount)
}

func TestCLI_Errors(t *testing.T) {
	h := newHarness(t)
	runJSON[AuthResult](h, "auth", "register", "--email", "admin@example.com", "--pass", "password123", "--name", "Admin")

	_, err := h.run("game", "show", "missing")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "GAME_NOT_FOUND", apiErr.Code)

	_, err = h.run("enroll", "self", "missing", "one")
	assert.ErrorContains(t, err, "position must be a number")

	_, err = h.run("admin", "promote", "nobody@example.com")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestOutput_Text(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput("text", &buf)

	team := "white"
	out.Print(Game{
		ID:            "g1",
		Date:          "2024-01-06",
		StartTime:     "10:00",
		EndTime:       "11:30",
		Location:      "Estádio",
		MaxPlayers:    10,
		PriceCents:    450,
		EnrolledCount: 1,
		Enrollments:   []Enrollment{{PlayerName: "Maria", PlayerKind: "guest", Position: 3, Team: &team}},
	})

	text := buf.String()
	assert.Contains(t, text, "When: 2024-01-06 10:00-11:30")
	assert.Contains(t, text, "Price: 4.50")
	assert.Contains(t, text, "Players (1/10):")
	assert.Contains(t, text, " 3. Maria (guest) [white]")

	buf.Reset()
	out.Print(Positions{})
	assert.Equal(t, "Game is full\n", buf.String())
}
