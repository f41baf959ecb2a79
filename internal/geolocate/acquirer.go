// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

package geolocate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/tomtom215/civicguard/internal/config"
	"github.com/tomtom215/civicguard/internal/logging"
	"github.com/tomtom215/civicguard/internal/metrics"
	"github.com/tomtom215/civicguard/internal/models"
)

// permissionHint is appended to platform error messages shown to the user.
const permissionHint = " — check browser site permissions and enable precise location if available."

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("geolocation acquirer closed")

// State is a session's position in the acquisition state machine.
type State string

const (
	StateIdle      State = "idle"
	StateWatching  State = "watching"
	StateResolved  State = "resolved"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Resolution says how a session resolved.
type Resolution string

const (
	ResolvedEarly   Resolution = "early"
	ResolvedTimeout Resolution = "timeout"
)

// Candidate is an accepted fix.
type Candidate struct {
	Session  uint64
	Position models.LatLng
	Accuracy float64
}

// Listener receives session events. Methods are never called with the
// acquirer's lock held.
type Listener interface {
	// Published is called for each accepted fix.
	Published(c Candidate)

	// LocatingChanged reports the "locating" indicator.
	LocatingChanged(locating bool)

	// Failed reports a user-facing acquisition error.
	Failed(err error)

	// Resolved asks for reverse geocoding of pos. It is called at most
	// once per session.
	Resolved(pos models.LatLng, how Resolution)
}

// Session is the state owned by one acquisition attempt.
type Session struct {
	id            uint64
	correlationID string
	state         State

	best    float64
	hasBest bool
	last    models.LatLng
	hasLast bool
	fixes   int

	watch WatchHandle
	timer clockwork.Timer
}

// ID returns the session number.
func (s *Session) ID() uint64 { return s.id }

// Acquirer runs acquisition sessions one at a time.
type Acquirer struct {
	cfg      config.GeolocationConfig
	source   PositionSource
	listener Listener
	clock    clockwork.Clock
	logger   zerolog.Logger

	mu     sync.Mutex
	nextID uint64
	active *Session
	closed bool
}

// Option configures an Acquirer.
type Option func(*Acquirer)

// WithClock replaces the wall clock.
func WithClock(c clockwork.Clock) Option {
	return func(a *Acquirer) {
		a.clock = c
	}
}

// New creates an Acquirer. source may be nil, in which case Start reports
// ErrUnsupported.
func New(cfg config.GeolocationConfig, source PositionSource, listener Listener, opts ...Option) *Acquirer {
	a := &Acquirer{
		cfg:      cfg,
		source:   source,
		listener: listener,
		clock:    clockwork.NewRealClock(),
		logger:   logging.WithComponent("geolocate"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// cleanup holds what must run after the lock is released.
type cleanup struct {
	watch WatchHandle
	timer clockwork.Timer
}

func (c cleanup) run() {
	if c.timer != nil {
		c.timer.Stop()
	}
	if c.watch != nil {
		c.watch.Clear()
	}
}

// endLocked moves s out of Watching and detaches its handles. It reports
// false when s already ended, which makes every termination path
// idempotent. Must hold mu.
func (a *Acquirer) endLocked(s *Session, to State) (cleanup, bool) {
	if s.state != StateWatching {
		return cleanup{}, false
	}
	s.state = to
	c := cleanup{watch: s.watch, timer: s.timer}
	s.watch, s.timer = nil, nil
	if a.active == s {
		a.active = nil
	}
	return c, true
}

// Start begins a new session, cancelling any active one first.
func (a *Acquirer) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrClosed
	}

	var prior cleanup
	if a.active != nil {
		prev := a.active
		prior, _ = a.endLocked(prev, StateCancelled)
		metrics.GeolocationSessions.WithLabelValues(string(StateCancelled)).Inc()
	}

	if a.source == nil {
		a.mu.Unlock()
		prior.run()
		a.listener.LocatingChanged(false)
		a.listener.Failed(ErrUnsupported)
		return ErrUnsupported
	}

	a.nextID++
	s := &Session{
		id:            a.nextID,
		correlationID: logging.CorrelationIDFromContext(ctx),
		state:         StateWatching,
	}
	if s.correlationID == "" {
		s.correlationID = logging.GenerateCorrelationID()
	}
	a.active = s
	a.mu.Unlock()

	prior.run()

	a.logger.Debug().
		Uint64("session", s.id).
		Str("correlation_id", s.correlationID).
		Msg("Geolocation session started")
	a.listener.LocatingChanged(true)

	id := s.id
	handle, err := a.source.Watch(
		func(f Fix) { a.onFix(id, f) },
		func(err error) { a.onError(id, err) },
	)

	a.mu.Lock()
	if err != nil {
		c, ended := a.endLocked(s, StateFailed)
		a.mu.Unlock()
		c.run()
		if ended {
			metrics.GeolocationSessions.WithLabelValues(string(StateFailed)).Inc()
			msg := err.Error()
			if msg == "" {
				msg = "Unable to start geolocation"
			}
			a.listener.LocatingChanged(false)
			a.listener.Failed(errors.New(msg))
		}
		return fmt.Errorf("start watch: %w", err)
	}

	if s.state != StateWatching {
		// Resolved or failed synchronously inside Watch, or replaced.
		a.mu.Unlock()
		if handle != nil {
			handle.Clear()
		}
		return nil
	}
	s.watch = handle
	s.timer = a.clock.AfterFunc(a.cfg.WatchTimeout, func() { a.onTimeout(id) })
	a.mu.Unlock()
	return nil
}

// sessionLocked returns the active session if its id matches.
func (a *Acquirer) sessionLocked(id uint64) *Session {
	if a.active == nil || a.active.id != id || a.active.state != StateWatching {
		return nil
	}
	return a.active
}

func (a *Acquirer) onFix(id uint64, f Fix) {
	pos := f.Position()
	if !pos.Valid() {
		a.logger.Debug().Uint64("session", id).Msg("Ignoring fix with invalid coordinate")
		return
	}
	acc := f.accuracy()

	a.mu.Lock()
	s := a.sessionLocked(id)
	if s == nil {
		a.mu.Unlock()
		return
	}

	s.fixes++
	accepted := !s.hasBest || acc+a.cfg.AcceptMargin < s.best
	if accepted {
		s.best, s.hasBest = acc, true
		s.last, s.hasLast = pos, true
	}

	var (
		c     cleanup
		ended bool
	)
	if acc <= a.cfg.GoodAccuracy {
		c, ended = a.endLocked(s, StateResolved)
	}
	a.mu.Unlock()

	metrics.RecordFix(acc, accepted)
	a.logger.Debug().
		Uint64("session", id).
		Str("correlation_id", s.correlationID).
		Float64("accuracy", acc).
		Bool("accepted", accepted).
		Msg("Position fix")

	if accepted {
		a.listener.Published(Candidate{Session: id, Position: pos, Accuracy: acc})
	}
	if ended {
		c.run()
		metrics.GeolocationSessions.WithLabelValues(string(ResolvedEarly)).Inc()
		a.listener.LocatingChanged(false)
		a.listener.Resolved(pos, ResolvedEarly)
	}
}

func (a *Acquirer) onTimeout(id uint64) {
	a.mu.Lock()
	s := a.sessionLocked(id)
	if s == nil {
		a.mu.Unlock()
		return
	}
	c, ended := a.endLocked(s, StateResolved)
	last, hasLast, fixes := s.last, s.hasLast, s.fixes
	a.mu.Unlock()

	if !ended {
		return
	}
	c.run()
	metrics.GeolocationSessions.WithLabelValues(string(ResolvedTimeout)).Inc()
	a.logger.Debug().
		Uint64("session", id).
		Str("correlation_id", s.correlationID).
		Int("fixes", fixes).
		Bool("has_position", hasLast).
		Msg("Geolocation watch timed out")

	a.listener.LocatingChanged(false)
	if hasLast {
		a.listener.Resolved(last, ResolvedTimeout)
	}
}

func (a *Acquirer) onError(id uint64, err error) {
	a.mu.Lock()
	s := a.sessionLocked(id)
	if s == nil {
		a.mu.Unlock()
		return
	}
	c, ended := a.endLocked(s, StateFailed)
	a.mu.Unlock()

	if !ended {
		return
	}
	c.run()
	metrics.GeolocationSessions.WithLabelValues(string(StateFailed)).Inc()
	a.logger.Info().
		Uint64("session", id).
		Str("correlation_id", s.correlationID).
		Err(err).
		Msg("Geolocation failed")

	a.listener.LocatingChanged(false)
	a.listener.Failed(DescribeError(err))
}

// DescribeError turns a platform error into the message shown to users.
func DescribeError(err error) error {
	return fmt.Errorf("%w%s", err, permissionHint)
}

// Stop cancels the active session, if any, and clears the indicator.
func (a *Acquirer) Stop() {
	if a.cancelActive() {
		a.listener.LocatingChanged(false)
	}
}

// Close cancels the active session without notifying the listener and
// makes later Start calls fail. It is safe to call more than once.
func (a *Acquirer) Close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	a.cancelActive()
}

func (a *Acquirer) cancelActive() bool {
	a.mu.Lock()
	if a.active == nil {
		a.mu.Unlock()
		return false
	}
	c, ended := a.endLocked(a.active, StateCancelled)
	a.mu.Unlock()

	c.run()
	if ended {
		metrics.GeolocationSessions.WithLabelValues(string(StateCancelled)).Inc()
	}
	return ended
}

// Active reports whether a session is watching.
func (a *Acquirer) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active != nil
}

// State returns the active session's state, or StateIdle.
func (a *Acquirer) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.active == nil {
		return StateIdle
	}
	return a.active.state
}
