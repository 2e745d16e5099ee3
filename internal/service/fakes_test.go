package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/relaybridge/zulip-relay/internal/biz/domain"
	"github.com/relaybridge/zulip-relay/internal/biz/repo"
)

var errQueueExpired = errors.New("queue expired")

type pollResult struct {
	events []domain.Event
	err    error
}

// fakeSource replays scripted poll results, then blocks until ctx is done.
// drained is called once the script is exhausted.
type fakeSource struct {
	mu sync.Mutex

	selfID  int64
	selfErr error

	subs    []repo.Subscription
	subsErr error

	registerCursors []domain.Cursor
	registerErr     error
	registers       int

	polls       []pollResult
	pollCursors []domain.Cursor
	drained     func()
}

func (f *fakeSource) GetOwnUserID(ctx context.Context) (int64, error) {
	return f.selfID, f.selfErr
}

func (f *fakeSource) GetSubscriptions(ctx context.Context) ([]repo.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs, f.subsErr
}

func (f *fakeSource) Register(ctx context.Context) (domain.Cursor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.registerErr != nil {
		return domain.Cursor{}, f.registerErr
	}
	c := f.registerCursors[f.registers]
	f.registers++
	return c, nil
}

func (f *fakeSource) GetEvents(ctx context.Context, cursor domain.Cursor, wait time.Duration) ([]domain.Event, error) {
	f.mu.Lock()
	f.pollCursors = append(f.pollCursors, cursor)
	idx := len(f.pollCursors) - 1
	f.mu.Unlock()

	if idx < len(f.polls) {
		return f.polls[idx].events, f.polls[idx].err
	}
	if f.drained != nil {
		f.drained()
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeSource) IsQueueExpired(err error) bool {
	return errors.Is(err, errQueueExpired)
}

type sentMessage struct {
	text   string
	silent bool
}

// fakeNotifier fails every send whose text contains failOn
type fakeNotifier struct {
	mu     sync.Mutex
	sent   []sentMessage
	failOn string
}

func (n *fakeNotifier) Send(ctx context.Context, text string, silent bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failOn != "" && strings.Contains(text, n.failOn) {
		return errors.New("destination unavailable")
	}
	n.sent = append(n.sent, sentMessage{text: text, silent: silent})
	return nil
}

func (n *fakeNotifier) messages() []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentMessage(nil), n.sent...)
}

type memoryCursorRepo struct {
	mu     sync.Mutex
	cursor domain.Cursor
	saves  int
	clears int
}

func (r *memoryCursorRepo) Load(ctx context.Context) (domain.Cursor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cursor, nil
}

func (r *memoryCursorRepo) Save(ctx context.Context, c domain.Cursor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cursor = c
	r.saves++
	return nil
}

func (r *memoryCursorRepo) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cursor = domain.Cursor{}
	r.clears++
	return nil
}

func (r *memoryCursorRepo) Close() error { return nil }

func streamMessage(id, streamID int64, flags ...string) *domain.Message {
	return &domain.Message{
		ID:             id,
		Kind:           domain.MessageKindStream,
		SenderID:       3,
		SenderEmail:    "alice@example.com",
		SenderFullName: "Alice",
		StreamID:       streamID,
		StreamName:     "ops",
		Topic:          "deploys",
		Content:        "<p>hello</p>",
		Flags:          flags,
	}
}

func messageEvent(msg *domain.Message) domain.Event {
	return domain.Event{ID: msg.ID, Type: domain.EventTypeMessage, Message: msg}
}
