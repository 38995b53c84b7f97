package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/mhoward-dev/portfolio-chat/internal/history"
)

const (
	defaultRequestTimeout   = 30 * time.Second
	defaultRateLimitSeconds = 30 * time.Second
	maxSuggestions          = 3
)

// State is a point-in-time snapshot of the conversation, safe to hand
// to a rendering layer.
type State struct {
	Messages                  []Message
	IsLoading                 bool
	Err                       string
	IsRateLimited             bool
	RateLimitSecondsRemaining int
	Suggestions               []string
	FailedMessage             string
}

// Store owns the conversation state for one widget session. All fields
// including timers are instance-owned: construct with New, tear down
// with Close. Commands taken while a send is in flight or a rate-limit
// countdown is active are rejected, not queued.
type Store struct {
	mu sync.Mutex

	transport  Transport
	storage    history.Store
	storageKey string

	messages      []Message
	loading       bool
	errText       string
	rateLimited   bool
	secsRemaining int
	suggestions   []string
	failedMessage string

	timeout          time.Duration
	rateLimitDefault time.Duration
	tickInterval     time.Duration

	// At most one active countdown at a time; starting a new one
	// cancels the old first.
	countdownCancel context.CancelFunc

	// Incremented by ClearHistory and Close so an in-flight send
	// cannot resurrect state after a reset.
	epoch  uint64
	closed bool
}

type Option func(*Store)

// WithTimeout sets the per-send request timeout (default 30s).
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithRateLimitDefault sets the countdown used when the server gives no
// retry hint (default 30s).
func WithRateLimitDefault(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.rateLimitDefault = d
		}
	}
}

// WithTickInterval compresses the one-second countdown tick; tests use
// this to simulate time advancement.
func WithTickInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.tickInterval = d
		}
	}
}

// WithStorageKey overrides the persistence key, letting independent
// widget instances share one backend.
func WithStorageKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.storageKey = key
		}
	}
}

// New builds a Store and seeds it from persisted history. Storage
// failures never fail construction; they leave the store empty.
func New(transport Transport, storage history.Store, opts ...Option) *Store {
	s := &Store{
		transport:        transport,
		storage:          storage,
		storageKey:       DefaultStorageKey,
		timeout:          defaultRequestTimeout,
		rateLimitDefault: defaultRateLimitSeconds,
		tickInterval:     time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.loadInitial()
	return s
}

func (s *Store) loadInitial() {
	ctx := context.Background()
	data, err := s.storage.Load(ctx, s.storageKey)
	if err != nil {
		if !errors.Is(err, history.ErrNotFound) {
			log.Printf("[ConversationStore] load history: %v", err)
		}
		return
	}
	msgs, err := decodeHistory(data, time.Now())
	if err != nil {
		// Expired or corrupt: remove rather than leave in place.
		if delErr := s.storage.Delete(ctx, s.storageKey); delErr != nil {
			log.Printf("[ConversationStore] delete stale history: %v", delErr)
		}
		return
	}
	if len(msgs) > 0 {
		s.messages = msgs
	}
}

// Snapshot returns a copy of the current conversation state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Messages:                  append([]Message(nil), s.messages...),
		IsLoading:                 s.loading,
		Err:                       s.errText,
		IsRateLimited:             s.rateLimited,
		RateLimitSecondsRemaining: s.secsRemaining,
		Suggestions:               append([]string(nil), s.suggestions...),
		FailedMessage:             s.failedMessage,
	}
}

// SendMessage sends one user message through the proxy. No-op when the
// trimmed content is empty, a send is in flight, or a rate-limit
// countdown is active. The outcome lands in the state snapshot.
func (s *Store) SendMessage(ctx context.Context, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}

	s.mu.Lock()
	if s.closed || s.loading || s.rateLimited {
		s.mu.Unlock()
		return
	}
	epoch := s.epoch
	s.failedMessage = ""
	s.suggestions = nil
	s.errText = ""
	// History snapshot is taken before the optimistic append so the new
	// message is not sent twice.
	hist := historyItems(s.messages)
	s.messages = append(s.messages, newMessage(RoleUser, content))
	s.loading = true
	s.persistLocked(ctx)
	s.mu.Unlock()

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	reply, err := s.transport.Send(reqCtx, Request{Message: content, History: hist})
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		// Conversation was cleared or the store closed mid-flight.
		return
	}
	s.loading = false

	if err != nil {
		s.failedMessage = content
		var rl *RateLimitError
		switch {
		case errors.As(err, &rl):
			s.startCountdownLocked(s.countdownSecondsFor(rl))
		case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
			s.errText = "Request timed out. Please try again."
		default:
			s.errText = "Something went wrong. Please try again."
			log.Printf("[ConversationStore] send failed: %v", err)
		}
		return
	}

	s.messages = append(s.messages, newMessage(RoleAssistant, reply.Reply))
	if len(reply.Suggestions) > maxSuggestions {
		s.suggestions = append([]string(nil), reply.Suggestions[:maxSuggestions]...)
	} else {
		s.suggestions = append([]string(nil), reply.Suggestions...)
	}
	s.persistLocked(ctx)
}

// RetryLastMessage re-sends the most recent failed message. The failed
// user turn is removed first (last occurrence by content, so duplicate
// texts earlier in the conversation are untouched).
func (s *Store) RetryLastMessage(ctx context.Context) {
	s.mu.Lock()
	if s.closed || s.failedMessage == "" || s.loading || s.rateLimited {
		s.mu.Unlock()
		return
	}
	content := s.failedMessage
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Role == RoleUser && s.messages[i].Content == content {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			break
		}
	}
	s.errText = ""
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.SendMessage(ctx, content)
}

// ClearHistory resets the conversation to its initial state, removes
// the persisted blob and cancels any running countdown.
func (s *Store) ClearHistory(ctx context.Context) {
	s.mu.Lock()
	s.epoch++
	s.stopCountdownLocked()
	s.messages = nil
	s.loading = false
	s.errText = ""
	s.rateLimited = false
	s.secsRemaining = 0
	s.suggestions = nil
	s.failedMessage = ""
	s.mu.Unlock()

	if err := s.storage.Delete(ctx, s.storageKey); err != nil && !errors.Is(err, history.ErrNotFound) {
		log.Printf("[ConversationStore] clear history: %v", err)
	}
}

// Close tears the store down, cancelling any countdown timer. Further
// commands are no-ops.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.epoch++
	s.stopCountdownLocked()
}

func (s *Store) countdownSecondsFor(rl *RateLimitError) int {
	// A server-provided hint overrides the fixed default.
	if rl.RetryAfter > 0 {
		return int(math.Ceil(rl.RetryAfter.Seconds()))
	}
	return int(s.rateLimitDefault.Seconds())
}

func rateLimitMessage(secs int) string {
	return fmt.Sprintf("Rate limit reached. Please wait %d seconds before sending another message.", secs)
}

// startCountdownLocked begins the rate-limit countdown. Caller holds
// the lock. Any previous countdown is cancelled first so two timers
// never tick at once.
func (s *Store) startCountdownLocked(secs int) {
	s.stopCountdownLocked()
	s.rateLimited = true
	s.secsRemaining = secs
	s.errText = rateLimitMessage(secs)

	ctx, cancel := context.WithCancel(context.Background())
	s.countdownCancel = cancel
	go s.runCountdown(ctx)
}

func (s *Store) stopCountdownLocked() {
	if s.countdownCancel != nil {
		s.countdownCancel()
		s.countdownCancel = nil
	}
}

func (s *Store) runCountdown(ctx context.Context) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			if !s.rateLimited {
				s.mu.Unlock()
				return
			}
			s.secsRemaining--
			if s.secsRemaining <= 0 {
				// Countdown done: rate-limit flag and error clear together.
				s.secsRemaining = 0
				s.rateLimited = false
				s.errText = ""
				s.stopCountdownLocked()
				s.mu.Unlock()
				return
			}
			s.errText = rateLimitMessage(s.secsRemaining)
			s.mu.Unlock()
		}
	}
}

// persistLocked writes the current history. Caller holds the lock.
// Empty histories are never written so a fresh blob cannot clobber one
// that has not been loaded yet; storage failures are swallowed.
func (s *Store) persistLocked(ctx context.Context) {
	if len(s.messages) == 0 {
		return
	}
	data, err := encodeHistory(s.messages, time.Now())
	if err != nil {
		log.Printf("[ConversationStore] encode history: %v", err)
		return
	}
	if err := s.storage.Save(ctx, s.storageKey, data); err != nil {
		log.Printf("[ConversationStore] save history: %v", err)
	}
}
