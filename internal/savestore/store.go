// Package savestore persists the GameState as one versioned JSON record per
// slot. Loads migrate old records explicitly; writes are serialized, retried
// with exponential backoff and debounced.
package savestore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"hashquest/internal/gameerr"
	"hashquest/internal/ledger"
	"hashquest/internal/logging"
)

// Record is the persisted envelope. Level is written for readers only and
// ignored on load.
type Record struct {
	Version int             `json:"version"`
	Slot    string          `json:"slot"`
	SavedAt time.Time       `json:"saved_at"`
	Level   uint32          `json:"level"`
	State   json.RawMessage `json:"state"`
}

// Options tune a Store
type Options struct {
	Slot              string
	Debounce          time.Duration
	MaxDelay          time.Duration
	MaxRetries        uint
	RetryInitial      time.Duration
	FlushTimeout      time.Duration
	DefaultDifficulty uint32
	Migrations        *Migrations
	Clock             func() time.Time
}

// DefaultOptions returns the store defaults
func DefaultOptions() Options {
	return Options{
		Slot:         "game_state",
		Debounce:     2 * time.Second,
		MaxDelay:     6 * time.Second,
		MaxRetries:   3,
		RetryInitial: 50 * time.Millisecond,
		FlushTimeout: 10 * time.Second,
		Clock:        time.Now,
	}
}

// Store owns all durable writes of the GameState
type Store struct {
	backend Backend
	opts    Options
	log     *logging.Logger

	writeMu sync.Mutex

	mu           sync.Mutex
	pending      *ledger.GameState
	firstPending time.Time
	timer        *time.Timer
	lastErr      error
	lastSaved    time.Time
	closed       bool
}

// New creates a store over backend
func New(backend Backend, opts Options, log *logging.Logger) *Store {
	d := DefaultOptions()
	if opts.Slot == "" {
		opts.Slot = d.Slot
	}
	if opts.Debounce <= 0 {
		opts.Debounce = d.Debounce
	}
	if opts.MaxDelay < opts.Debounce {
		opts.MaxDelay = opts.Debounce
	}
	if opts.RetryInitial <= 0 {
		opts.RetryInitial = d.RetryInitial
	}
	if opts.FlushTimeout <= 0 {
		opts.FlushTimeout = d.FlushTimeout
	}
	if opts.Migrations == nil {
		opts.Migrations = DefaultMigrations()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Store{backend: backend, opts: opts, log: log}
}

// Load returns the stored state, or new-game defaults when the slot is empty.
// Older records are migrated in memory; nothing is written.
func (s *Store) Load(ctx context.Context) (ledger.GameState, error) {
	data, ok, err := s.backend.Get(ctx, s.opts.Slot)
	if err != nil {
		return ledger.GameState{}, fmt.Errorf("read slot %q: %w", s.opts.Slot, err)
	}
	if !ok {
		s.log.Info("No save in slot %q, starting a new game", s.opts.Slot)
		return ledger.NewGameState(s.opts.DefaultDifficulty), nil
	}
	return s.Decode(data)
}

// Decode parses a record, migrating it to the current schema version
func (s *Store) Decode(data []byte) (ledger.GameState, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return ledger.GameState{}, gameerr.Wrap(gameerr.ErrInvalidSave, err, "malformed record")
	}
	if len(rec.State) == 0 {
		return ledger.GameState{}, gameerr.Wrap(gameerr.ErrInvalidSave, nil, "record has no state")
	}

	raw := rec.State
	if rec.Version != ledger.SchemaVersion {
		path, ok := s.opts.Migrations.Path(rec.Version, ledger.SchemaVersion)
		if !ok {
			return ledger.GameState{}, gameerr.Wrap(gameerr.ErrUnsupportedSchemaVersion, nil,
				fmt.Sprintf("no migration from v%d to v%d", rec.Version, ledger.SchemaVersion))
		}
		for _, step := range path {
			next, err := step(raw)
			if err != nil {
				return ledger.GameState{}, gameerr.Wrap(gameerr.ErrInvalidSave, err, "migration failed")
			}
			raw = next
		}
		s.log.Info("Migrated save %q from v%d to v%d", rec.Slot, rec.Version, ledger.SchemaVersion)
	}

	var state ledger.GameState
	if err := json.Unmarshal(raw, &state); err != nil {
		return ledger.GameState{}, gameerr.Wrap(gameerr.ErrInvalidSave, err, "malformed state")
	}
	state.Version = ledger.SchemaVersion
	if err := state.Validate(); err != nil {
		return ledger.GameState{}, gameerr.Wrap(gameerr.ErrInvalidSave, err, err.Error())
	}
	return state.Clone(), nil
}

// Encode builds the record for state
func (s *Store) Encode(state ledger.GameState) ([]byte, error) {
	state = state.Clone()
	state.Version = ledger.SchemaVersion
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return json.Marshal(Record{
		Version: ledger.SchemaVersion,
		Slot:    s.opts.Slot,
		SavedAt: s.opts.Clock().UTC(),
		Level:   state.Level(),
		State:   raw,
	})
}

// Save writes state now. Any pending debounced state is superseded; on
// failure state becomes the pending state.
func (s *Store) Save(ctx context.Context, state ledger.GameState) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.clearPendingLocked()
	s.mu.Unlock()

	return s.commit(ctx, state)
}

// Schedule marks state as pending. Bursts are coalesced: the latest state is
// written after Debounce of quiet, and never later than MaxDelay after the
// first pending change.
func (s *Store) Schedule(state ledger.GameState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	now := s.opts.Clock()
	c := state.Clone()
	s.pending = &c
	if s.firstPending.IsZero() {
		s.firstPending = now
	}

	delay := s.opts.Debounce
	if deadline := s.firstPending.Add(s.opts.MaxDelay); now.Add(delay).After(deadline) {
		delay = deadline.Sub(now)
		if delay < 0 {
			delay = 0
		}
	}
	if s.timer == nil {
		s.timer = time.AfterFunc(delay, s.fire)
	} else {
		s.timer.Reset(delay)
	}
}

func (s *Store) fire() {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.FlushTimeout)
	defer cancel()
	if err := s.Flush(ctx); err != nil {
		s.log.Warn("Debounced save failed: %v", err)
	}
}

// Flush writes the pending state, if any
func (s *Store) Flush(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	p := s.pending
	s.clearPendingLocked()
	s.mu.Unlock()

	if p == nil {
		return nil
	}
	return s.commit(ctx, *p)
}

// commit encodes and writes state with retries. Caller holds writeMu.
func (s *Store) commit(ctx context.Context, state ledger.GameState) error {
	data, err := s.Encode(state)
	if err != nil {
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.opts.RetryInitial
	b.MaxInterval = 2 * time.Second

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, s.backend.Put(ctx, s.opts.Slot, data)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(s.opts.MaxRetries+1),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.log.Warn("Save to slot %q failed, retrying in %s: %v", s.opts.Slot, next, err)
		}),
	)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		// keep the newest state around for the next attempt
		if s.pending == nil {
			c := state.Clone()
			s.pending = &c
			s.firstPending = s.opts.Clock()
		}
		s.lastErr = gameerr.Wrap(gameerr.ErrStorageWriteFailed, err, s.opts.Slot)
		s.log.Error("Save to slot %q failed: %v", s.opts.Slot, err)
		return s.lastErr
	}
	s.lastErr = nil
	s.lastSaved = s.opts.Clock()
	s.log.Debug("Saved slot %q (level %d, balance %d)", s.opts.Slot, state.Level(), state.Balance)
	return nil
}

// clearPendingLocked drops the pending state. Caller holds mu.
func (s *Store) clearPendingLocked() {
	s.pending = nil
	s.firstPending = time.Time{}
	if s.timer != nil {
		s.timer.Stop()
	}
}

// Pending reports whether a state is waiting to be written
func (s *Store) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// LastError returns the error of the last failed write, cleared by the next
// successful one
func (s *Store) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// LastSaved returns the time of the last successful write
func (s *Store) LastSaved() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSaved
}

// Slot returns the slot name
func (s *Store) Slot() string {
	return s.opts.Slot
}

// Close flushes pending state and closes the backend. Further Schedule calls
// are ignored.
func (s *Store) Close(ctx context.Context) error {
	flushErr := s.Flush(ctx)

	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()

	if err := s.backend.Close(); err != nil {
		return fmt.Errorf("close backend: %w", err)
	}
	return flushErr
}
