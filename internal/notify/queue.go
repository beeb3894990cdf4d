package notify

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mcoot/futebolada/internal/dependencies/clock"
	"github.com/mcoot/futebolada/internal/dependencies/random"
)

// Sender delivers one message to a chat
type Sender interface {
	Send(ctx context.Context, chatID, text string) error
}

// Limiter blocks until the next send is allowed
type Limiter interface {
	Wait(ctx context.Context) error
}

// State is the lifecycle stage of a queued message
type State int32

const (
	StateQueued State = iota
	StateSending
	StateDelivered
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateSending:
		return "sending"
	case StateDelivered:
		return "delivered"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Pending is the handle to one enqueued message
type Pending struct {
	ChatID string
	Text   string

	state atomic.Int32
	done  chan struct{}
	err   error
}

func newPending(chatID, text string) *Pending {
	return &Pending{ChatID: chatID, Text: text, done: make(chan struct{})}
}

// State returns the current stage of the message
func (p *Pending) State() State {
	return State(p.state.Load())
}

// Done is closed once the message was delivered or failed
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Err returns the send error. Only meaningful once Done is closed.
func (p *Pending) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Wait blocks until the message finishes and returns its send error.
// Giving up on the wait does not cancel the send.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pending) finish(err error) {
	p.err = err
	if err != nil {
		p.state.Store(int32(StateFailed))
	} else {
		p.state.Store(int32(StateDelivered))
	}
	close(p.done)
}

// Config controls queue pacing
type Config struct {
	MessagesPerMinute int
	JitterMin         time.Duration
	JitterMax         time.Duration
}

// DefaultConfig returns the pacing used in production
func DefaultConfig() Config {
	return Config{
		MessagesPerMinute: 15,
		JitterMin:         500 * time.Millisecond,
		JitterMax:         1500 * time.Millisecond,
	}
}

// Interval is the minimum gap between the starts of two sends
func (c Config) Interval() time.Duration {
	if c.MessagesPerMinute <= 0 {
		return time.Minute
	}
	return time.Minute / time.Duration(c.MessagesPerMinute)
}

// Queue sends messages one at a time in FIFO order.
// A single worker drains the queue; it starts on Enqueue and exits when the queue is empty.
type Queue struct {
	sender  Sender
	limiter Limiter
	clock   clock.Clock
	random  random.Random
	cfg     Config
	logger  *slog.Logger

	mu      sync.Mutex
	items   []*Pending
	running bool
	idle    chan struct{}
}

// NewQueue creates a queue. A nil limiter paces sends in-process at cfg.Interval().
func NewQueue(sender Sender, limiter Limiter, clock clock.Clock, random random.Random, cfg Config, logger *slog.Logger) *Queue {
	if limiter == nil {
		limiter = NewRateLimiter(cfg.Interval(), clock)
	}
	idle := make(chan struct{})
	close(idle)
	return &Queue{
		sender:  sender,
		limiter: limiter,
		clock:   clock,
		random:  random,
		cfg:     cfg,
		logger:  logger,
		idle:    idle,
	}
}

// Enqueue appends a message to the tail of the queue
func (q *Queue) Enqueue(chatID, text string) *Pending {
	p := newPending(chatID, text)

	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, p)
	if !q.running {
		q.running = true
		q.idle = make(chan struct{})
		go q.run(q.idle)
	}
	return p
}

// Len returns the number of messages waiting to be sent
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Flush blocks until the worker has drained the queue
func (q *Queue) Flush(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) run(idle chan struct{}) {
	defer close(idle)

	// Sends are never cancelled once enqueued
	ctx := context.Background()
	for {
		p, ok := q.next()
		if !ok {
			return
		}
		q.deliver(ctx, p)
		<-q.clock.After(random.Duration(q.random, q.cfg.JitterMin, q.cfg.JitterMax))
	}
}

func (q *Queue) next() (*Pending, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		q.running = false
		return nil, false
	}
	p := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return p, true
}

func (q *Queue) deliver(ctx context.Context, p *Pending) {
	if err := q.limiter.Wait(ctx); err != nil {
		q.fail(p, err)
		return
	}

	p.state.Store(int32(StateSending))
	if err := q.sender.Send(ctx, p.ChatID, p.Text); err != nil {
		q.fail(p, err)
		return
	}
	p.finish(nil)
	q.logger.Debug("notification delivered", slog.String("chat_id", p.ChatID))
}

func (q *Queue) fail(p *Pending, err error) {
	p.finish(err)
	q.logger.Error("notification failed",
		slog.String("chat_id", p.ChatID),
		slog.String("error", err.Error()),
	)
}
