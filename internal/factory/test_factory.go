package factory

import (
	"context"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/futebolada/internal/dependencies/mocks"
	"github.com/mcoot/futebolada/internal/model"
	"github.com/mcoot/futebolada/internal/notify"
	"github.com/mcoot/futebolada/internal/services/auth"
	"github.com/mcoot/futebolada/internal/services/games"
	"github.com/mcoot/futebolada/internal/storage/memory"
	"github.com/mcoot/futebolada/internal/testutil"
)

// TestSessionSecret signs tokens issued by a TestApp
const TestSessionSecret = "test-session-secret"

// SentMessage is a notification captured by a TestApp
type SentMessage struct {
	ChatID string
	Text   string
}

// RecordingSender captures notifications instead of sending them
type RecordingSender struct {
	mu   sync.Mutex
	sent []SentMessage
}

// Send records the message
func (r *RecordingSender) Send(ctx context.Context, chatID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, SentMessage{ChatID: chatID, Text: text})
	return nil
}

// Messages returns the captured messages in send order
func (r *RecordingSender) Messages() []SentMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]SentMessage(nil), r.sent...)
}

// StubGeocoder resolves every coordinate to Name
type StubGeocoder struct {
	Name string
	Err  error
}

// Reverse returns the configured name or error
func (g *StubGeocoder) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	return g.Name, g.Err
}

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App
	Memory *memory.Storage

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	MockIDs    *mocks.MockIDs
	Geocoder   *StubGeocoder
	Sender     *RecordingSender
}

// TestChatID is the chat a TestApp announces to
const TestChatID = "test-chat@g.us"

// NewTestApp creates an App configured for testing with mocked dependencies.
// The clock starts at 2024-01-01 12:00 UTC and notifications go to a RecordingSender.
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	mockIDs := mocks.NewMockIDs()
	geocoder := &StubGeocoder{Name: "Campo de Jogos, Lisboa"}

	authCfg := auth.DefaultConfig(TestSessionSecret)
	authCfg.BcryptCost = bcrypt.MinCost

	logger := testutil.NopLogger()
	app := newWithDependencies(store, mockClock, mockRandom, mockIDs, geocoder, authCfg, time.UTC, logger)

	sender := &RecordingSender{}
	app.Queue = notify.NewQueue(sender, nil, mockClock, mockRandom, notify.DefaultConfig(), logger)
	app.Notifier = notify.NewChatNotifier(app.Queue, TestChatID)

	return &TestApp{
		App:        app,
		Memory:     store,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		MockIDs:    mockIDs,
		Geocoder:   geocoder,
		Sender:     sender,
	}
}

// Messages waits for queued notifications and returns everything sent so far
func (t *TestApp) Messages() []SentMessage {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = t.Queue.Flush(ctx)
	return t.Sender.Messages()
}

// RegisterAdmin registers the first user, who becomes admin
func (t *TestApp) RegisterAdmin(ctx context.Context) (*auth.Session, error) {
	return t.AuthService.Register(ctx, "admin@example.com", "password123", "Admin")
}

// CreateGame creates a game on the given date as admin
func (t *TestApp) CreateGame(ctx context.Context, admin *model.User, date string, maxPlayers int) (*model.Game, error) {
	return t.GamesService.CreateGame(ctx, admin, games.CreateGameInput{
		Date:       date,
		StartTime:  "19:00",
		EndTime:    "20:00",
		Latitude:   38.7369,
		Longitude:  -9.1427,
		MaxPlayers: maxPlayers,
		Price:      5,
	})
}
