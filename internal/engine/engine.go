// Package engine drives mining sessions: a scheduler fires ticks, every tick
// hashes a bounded batch of candidates and folds the outcomes into the ledger
// and the statistics window.
package engine

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"hashquest/internal/attempt"
	"hashquest/internal/gameerr"
	"hashquest/internal/ledger"
	"hashquest/internal/logging"
	"hashquest/internal/stats"
	"hashquest/pkg/hashing/core"
)

// State is the lifecycle state of the engine
type State int

const (
	Idle State = iota
	Running
	Paused
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = Idle
	case "running":
		*s = Running
	case "paused":
		*s = Paused
	default:
		return fmt.Errorf("unknown engine state %q", text)
	}
	return nil
}

// candidateSize is session ID (16) + sequence (8) + lifetime nonce (8)
const candidateSize = 32

// Oracle computes digests of candidate inputs
type Oracle interface {
	Name() string
	ComputeHash(data []byte) ([core.DigestSize]byte, error)
}

// Config controls tick scheduling and batch size
type Config struct {
	TickRate           float64 // ticks per second
	MinTickRate        float64
	MaxTickRate        float64
	AttemptsPerTick    uint64 // before upgrade hash power
	MaxAttemptsPerTick uint64
	RetargetInterval   uint64 // attempts between retargets, 0 disables
	Manual             bool   // no scheduler; callers drive Tick
	Clock              func() time.Time
}

// DefaultConfig returns the engine defaults
func DefaultConfig() Config {
	return Config{
		TickRate:           4,
		MinTickRate:        0.5,
		MaxTickRate:        60,
		AttemptsPerTick:    32,
		MaxAttemptsPerTick: 1 << 16,
		RetargetInterval:   512,
		Clock:              time.Now,
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.MinTickRate <= 0 {
		c.MinTickRate = d.MinTickRate
	}
	if c.MaxTickRate < c.MinTickRate {
		c.MaxTickRate = c.MinTickRate
	}
	if c.TickRate <= 0 {
		c.TickRate = d.TickRate
	}
	if c.AttemptsPerTick == 0 {
		c.AttemptsPerTick = 1
	}
	if c.MaxAttemptsPerTick == 0 {
		c.MaxAttemptsPerTick = d.MaxAttemptsPerTick
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return c
}

// TickReport summarizes one tick
type TickReport struct {
	Attempts   uint64    `json:"attempts"`
	Successes  uint64    `json:"successes"`
	Reward     uint64    `json:"reward"`
	Difficulty uint32    `json:"difficulty"`
	Retargeted bool      `json:"retargeted"`
	At         time.Time `json:"at"`
}

// Session is the transient view of the current mining session. It is never
// persisted.
type Session struct {
	ID                   string    `json:"id"`
	AttemptsThisSession  uint64    `json:"attempts_this_session"`
	SuccessesThisSession uint64    `json:"successes_this_session"`
	StartedAt            time.Time `json:"started_at"`
	LastTickAt           time.Time `json:"last_tick_at"`
}

// Status is a point-in-time view of the engine
type Status struct {
	State           State   `json:"state"`
	TickRate        float64 `json:"tick_rate"`
	AttemptsPerTick uint64  `json:"attempts_per_tick"`
	Oracle          string  `json:"oracle"`
	Session         Session `json:"session"`
	LastError       string  `json:"last_error,omitempty"`
}

// Hooks are invoked outside the engine lock. They run on the scheduler
// goroutine for scheduled ticks and must not call Stop or Pause
// synchronously.
type Hooks struct {
	OnTick   func(TickReport)
	OnChange func(State)
	OnFault  func(error)
}

// Engine is the mining state machine
type Engine struct {
	mu       sync.Mutex
	cfg      Config
	ledger   *ledger.Ledger
	stats    *stats.Aggregator
	oracle   Oracle
	log      *logging.Logger
	hooks    Hooks
	state    State
	tickRate float64

	session       Session
	sessionID     uuid.UUID
	seq           uint64
	lifetimeBase  uint64
	sinceRetarget uint64
	foundSince    uint64 // successes since the last retarget
	buf           [candidateSize]byte
	lastErr       error

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an idle engine
func New(cfg Config, l *ledger.Ledger, agg *stats.Aggregator, oracle Oracle, log *logging.Logger, hooks Hooks) *Engine {
	cfg = cfg.normalized()
	if log == nil {
		log = logging.Nop()
	}
	e := &Engine{
		cfg:    cfg,
		ledger: l,
		stats:  agg,
		oracle: oracle,
		log:    log,
		hooks:  hooks,
		state:  Idle,
	}
	e.tickRate = e.clampRate(cfg.TickRate)
	return e
}

// State returns the current state
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// LastError returns the fault that last stopped the engine, if any
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Status returns a snapshot of the engine
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := Status{
		State:           e.state,
		TickRate:        e.tickRate,
		AttemptsPerTick: e.attemptsPerTick(),
		Oracle:          e.oracle.Name(),
		Session:         e.session,
	}
	if e.lastErr != nil {
		st.LastError = e.lastErr.Error()
	}
	return st
}

// Start begins a new session from Idle or resumes from Paused. Start while
// Running is a no-op.
func (e *Engine) Start() {
	e.mu.Lock()
	switch e.state {
	case Running:
		e.mu.Unlock()
		return
	case Paused:
		e.mu.Unlock()
		e.Resume()
		return
	}

	e.sessionID = uuid.New()
	e.seq = 0
	e.sinceRetarget = 0
	e.foundSince = 0
	e.lifetimeBase = e.ledger.State().TotalAttempts
	// rates of an earlier session would span the idle gap
	e.stats.Reset()
	e.lastErr = nil
	e.session = Session{
		ID:        e.sessionID.String(),
		StartedAt: e.cfg.Clock(),
	}
	copy(e.buf[:16], e.sessionID[:])
	e.state = Running
	e.launch()
	e.log.Info("Mining session %s started (%.2f ticks/s)", e.session.ID, e.tickRate)
	e.mu.Unlock()

	e.notify(Running)
}

// Stop ends the session. The scheduler is cancelled and awaited, so once
// Stop returns no tick is in flight.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.state == Idle {
		e.mu.Unlock()
		return
	}
	e.state = Idle
	cancel, done := e.detach()
	e.log.Info("Mining session %s stopped after %d attempts", e.session.ID, e.session.AttemptsThisSession)
	e.mu.Unlock()

	wait(cancel, done)
	e.notify(Idle)
}

// Pause suspends ticking without ending the session
func (e *Engine) Pause() {
	e.mu.Lock()
	if e.state != Running {
		e.mu.Unlock()
		return
	}
	e.state = Paused
	cancel, done := e.detach()
	e.mu.Unlock()

	wait(cancel, done)
	e.notify(Paused)
}

// Resume continues a paused session
func (e *Engine) Resume() {
	e.mu.Lock()
	if e.state != Paused {
		e.mu.Unlock()
		return
	}
	e.state = Running
	e.launch()
	e.mu.Unlock()

	e.notify(Running)
}

// SetTickRate changes the tick frequency, clamped to the configured range.
// It takes effect from the next scheduled tick and returns the applied rate.
func (e *Engine) SetTickRate(rate float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.tickRate = e.clampRate(rate)
	return e.tickRate
}

// Tick runs one tick now. It is a no-op unless the engine is Running.
func (e *Engine) Tick() (TickReport, error) {
	return e.tick(nil)
}

func (e *Engine) tick(ctx context.Context) (TickReport, error) {
	e.mu.Lock()
	// a scheduler detached by Stop or Pause may still be waiting on the lock
	if e.state != Running || (ctx != nil && (ctx != e.ctx || ctx.Err() != nil)) {
		e.mu.Unlock()
		return TickReport{}, nil
	}

	report, err := e.runBatch()
	var cancel context.CancelFunc
	if err != nil {
		e.state = Idle
		e.lastErr = err
		cancel, _ = e.detach()
		e.log.Error("Mining stopped: %v", err)
	}
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if err != nil {
		e.notify(Idle)
		if e.hooks.OnFault != nil {
			e.hooks.OnFault(err)
		}
	}
	if report.Attempts > 0 && e.hooks.OnTick != nil {
		e.hooks.OnTick(report)
	}
	return report, err
}

// runBatch hashes one tick worth of candidates. Caller holds the lock.
// Outcomes applied before an oracle failure are kept.
func (e *Engine) runBatch() (TickReport, error) {
	now := e.cfg.Clock()
	n := e.attemptsPerTick()
	model := e.ledger.Model()
	report := TickReport{At: now}

	for i := uint64(0); i < n; i++ {
		d := e.ledger.Difficulty()
		e.fillCandidate()

		digest, err := e.oracle.ComputeHash(e.buf[:])
		if err != nil {
			report.Difficulty = d
			return report, gameerr.Wrap(gameerr.ErrOracleUnavailable, err, e.oracle.Name())
		}

		o := attempt.Outcome{Digest: digest, Difficulty: d, At: now}
		if model.IsSuccess(digest, d) {
			o.Succeeded = true
			o.RewardGranted = e.ledger.RewardFor(d)
		}
		e.ledger.ApplyOutcome(o)
		e.stats.Record(o)

		e.seq++
		e.session.AttemptsThisSession++
		report.Attempts++
		if o.Succeeded {
			e.foundSince++
			e.session.SuccessesThisSession++
			report.Successes++
			report.Reward += o.RewardGranted
		}
		report.Difficulty = d

		e.sinceRetarget++
		if e.cfg.RetargetInterval > 0 && e.sinceRetarget >= e.cfg.RetargetInterval {
			// only attempts mined at the current difficulty count
			rate := float64(e.foundSince) / float64(e.sinceRetarget)
			e.sinceRetarget, e.foundSince = 0, 0
			if from, to := e.ledger.Retarget(rate); from != to {
				report.Retargeted = true
				e.log.Debug("Difficulty retargeted %d -> %d (success rate %.4f)", from, to, rate)
			}
		}
	}
	e.session.LastTickAt = now
	return report, nil
}

// fillCandidate writes the sequence and lifetime nonce behind the session ID
func (e *Engine) fillCandidate() {
	binary.BigEndian.PutUint64(e.buf[16:24], e.seq)
	binary.BigEndian.PutUint64(e.buf[24:32], e.lifetimeBase+e.seq)
}

// attemptsPerTick is the base batch plus upgrade hash power, bounded
func (e *Engine) attemptsPerTick() uint64 {
	n := e.cfg.AttemptsPerTick + e.ledger.HashPower()
	if n < e.cfg.AttemptsPerTick || n > e.cfg.MaxAttemptsPerTick {
		n = e.cfg.MaxAttemptsPerTick
	}
	return n
}

func (e *Engine) clampRate(rate float64) float64 {
	if rate < e.cfg.MinTickRate {
		return e.cfg.MinTickRate
	}
	if rate > e.cfg.MaxTickRate {
		return e.cfg.MaxTickRate
	}
	return rate
}

func (e *Engine) interval() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return time.Duration(float64(time.Second) / e.tickRate)
}

// launch starts the scheduler goroutine. Caller holds the lock.
func (e *Engine) launch() {
	if e.cfg.Manual {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.ctx, e.cancel, e.done = ctx, cancel, done
	go e.schedule(ctx, done)
}

// detach hands the scheduler's cancel func and done channel to the caller.
// Caller holds the lock.
func (e *Engine) detach() (context.CancelFunc, chan struct{}) {
	cancel, done := e.cancel, e.done
	e.ctx, e.cancel, e.done = nil, nil, nil
	return cancel, done
}

func wait(cancel context.CancelFunc, done chan struct{}) {
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// schedule fires ticks until ctx is cancelled. The interval is re-read after
// every tick so SetTickRate applies from the next one.
func (e *Engine) schedule(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(e.interval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if _, err := e.tick(ctx); err != nil {
				return
			}
			timer.Reset(e.interval())
		}
	}
}

func (e *Engine) notify(s State) {
	if e.hooks.OnChange != nil {
		e.hooks.OnChange(s)
	}
}
