// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

package geolocate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/civicguard/internal/config"
	"github.com/tomtom215/civicguard/internal/metrics"
	"github.com/tomtom215/civicguard/internal/models"
)

var testCfg = config.GeolocationConfig{
	AcceptMargin: 5,
	GoodAccuracy: 30,
	WatchTimeout: 6 * time.Second,
	MinZoom:      16,
}

// fakeSource records watches and lets tests drive them.
type fakeSource struct {
	mu      sync.Mutex
	watches []*fakeWatch
	err     error
	onWatch func(w *fakeWatch)
}

type fakeWatch struct {
	src     *fakeSource
	onFix   func(Fix)
	onError func(error)
	cleared bool
}

func (s *fakeSource) Watch(onFix func(Fix), onError func(error)) (WatchHandle, error) {
	if s.err != nil {
		return nil, s.err
	}
	w := &fakeWatch{src: s, onFix: onFix, onError: onError}
	s.mu.Lock()
	s.watches = append(s.watches, w)
	hook := s.onWatch
	s.mu.Unlock()
	if hook != nil {
		hook(w)
	}
	return w, nil
}

func (w *fakeWatch) Clear() {
	w.src.mu.Lock()
	w.cleared = true
	w.src.mu.Unlock()
}

func (s *fakeSource) active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, w := range s.watches {
		if !w.cleared {
			n++
		}
	}
	return n
}

func (s *fakeSource) watch(i int) *fakeWatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watches[i]
}

func (w *fakeWatch) fix(acc, lat, lng float64) {
	w.onFix(Fix{Lat: lat, Lng: lng, Accuracy: acc})
}

type resolvedCall struct {
	pos models.LatLng
	how Resolution
}

// recorder is a Listener that keeps every event.
type recorder struct {
	mu        sync.Mutex
	published []Candidate
	locating  []bool
	failed    []error
	resolved  []resolvedCall
}

func (r *recorder) Published(c Candidate) {
	r.mu.Lock()
	r.published = append(r.published, c)
	r.mu.Unlock()
}

func (r *recorder) LocatingChanged(v bool) {
	r.mu.Lock()
	r.locating = append(r.locating, v)
	r.mu.Unlock()
}

func (r *recorder) Failed(err error) {
	r.mu.Lock()
	r.failed = append(r.failed, err)
	r.mu.Unlock()
}

func (r *recorder) Resolved(pos models.LatLng, how Resolution) {
	r.mu.Lock()
	r.resolved = append(r.resolved, resolvedCall{pos: pos, how: how})
	r.mu.Unlock()
}

func (r *recorder) resolvedCalls() []resolvedCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]resolvedCall(nil), r.resolved...)
}

func (r *recorder) lastLocating() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.locating[len(r.locating)-1]
}

func (r *recorder) publishedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.published)
}

// eventually polls cond for up to a second. Fake-clock timers run their
// callbacks on their own goroutine, so timeout effects land shortly after
// Advance returns.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// timersPending reports whether the clock has exactly n live timers.
func timersPending(clk *clockwork.FakeClock, n int) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	return clk.BlockUntilContext(ctx, n) == nil
}

func newTestAcquirer(t *testing.T) (*Acquirer, *fakeSource, *recorder, *clockwork.FakeClock) {
	t.Helper()
	src := &fakeSource{}
	rec := &recorder{}
	clk := clockwork.NewFakeClockAt(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	a := New(testCfg, src, rec, WithClock(clk))
	t.Cleanup(a.Close)
	return a, src, rec, clk
}

func TestAcceptanceRule(t *testing.T) {
	tests := []struct {
		name       string
		accuracies []float64
		accepted   []float64
	}{
		{"example sequence", []float64{50, 48, 40}, []float64{50, 40}},
		{"equal improvement by margin is rejected", []float64{100, 95}, []float64{100}},
		{"steady improvement", []float64{100, 96, 94, 60, 58, 52}, []float64{100, 94, 60, 52}},
		{"worse fixes ignored", []float64{40, 80, 200, 40}, []float64{40}},
		{"single fix", []float64{500}, []float64{500}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, src, rec, _ := newTestAcquirer(t)
			if err := a.Start(context.Background()); err != nil {
				t.Fatalf("Start: %v", err)
			}
			w := src.watch(0)
			for i, acc := range tt.accuracies {
				w.fix(acc, 10+float64(i), 20)
			}

			if len(rec.published) != len(tt.accepted) {
				t.Fatalf("published %d fixes, want %d", len(rec.published), len(tt.accepted))
			}
			for i, c := range rec.published {
				if c.Accuracy != tt.accepted[i] {
					t.Errorf("published[%d].Accuracy = %v, want %v", i, c.Accuracy, tt.accepted[i])
				}
			}
			if len(rec.resolvedCalls()) != 0 {
				t.Error("no fix was good enough; nothing should resolve before the timeout")
			}
		})
	}
}

func TestEarlyExitGeocodesOnce(t *testing.T) {
	a, src, rec, clk := newTestAcquirer(t)
	before := testutil.ToFloat64(metrics.GeolocationSessions.WithLabelValues("early"))

	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	w := src.watch(0)
	w.fix(50, 1, 1)
	w.fix(25, 2, 2)
	w.fix(10, 3, 3) // after resolution: ignored

	clk.Advance(10 * time.Second)

	calls := rec.resolvedCalls()
	if len(calls) != 1 {
		t.Fatalf("resolved %d times, want 1", len(calls))
	}
	if calls[0].pos != (models.LatLng{Lat: 2, Lng: 2}) || calls[0].how != ResolvedEarly {
		t.Errorf("resolved = %+v", calls[0])
	}
	if src.active() != 0 {
		t.Error("watch not cleared after early exit")
	}
	if !timersPending(clk, 0) {
		t.Error("timer not stopped after early exit")
	}
	if rec.lastLocating() {
		t.Error("locating indicator still on")
	}
	if a.Active() {
		t.Error("acquirer still active")
	}
	if got := testutil.ToFloat64(metrics.GeolocationSessions.WithLabelValues("early")) - before; got != 1 {
		t.Errorf("early sessions metric delta = %v", got)
	}
}

func TestFirstGoodFixResolvesImmediately(t *testing.T) {
	a, src, rec, _ := newTestAcquirer(t)
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	src.watch(0).fix(30, 5, 6)

	if len(rec.published) != 1 {
		t.Errorf("published = %d, want 1", len(rec.published))
	}
	calls := rec.resolvedCalls()
	if len(calls) != 1 || calls[0].pos != (models.LatLng{Lat: 5, Lng: 6}) {
		t.Errorf("resolved = %+v", calls)
	}
}

func TestTimeoutGeocodesLastPublished(t *testing.T) {
	a, src, rec, clk := newTestAcquirer(t)
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	w := src.watch(0)
	w.fix(80, 1, 1)
	w.fix(60, 2, 2)
	w.fix(58, 3, 3) // rejected: 63 >= 60

	clk.Advance(5 * time.Second)
	if len(rec.resolvedCalls()) != 0 {
		t.Fatal("resolved before the timeout")
	}
	clk.Advance(time.Second)
	eventually(t, "timeout resolution", func() bool { return len(rec.resolvedCalls()) > 0 })

	calls := rec.resolvedCalls()
	if len(calls) != 1 {
		t.Fatalf("resolved %d times, want 1", len(calls))
	}
	if calls[0].pos != (models.LatLng{Lat: 2, Lng: 2}) || calls[0].how != ResolvedTimeout {
		t.Errorf("resolved = %+v", calls[0])
	}
	if src.active() != 0 {
		t.Error("watch not cleared after timeout")
	}
	if rec.lastLocating() {
		t.Error("locating indicator still on")
	}
}

func TestTimeoutWithoutFixDoesNotGeocode(t *testing.T) {
	a, src, rec, clk := newTestAcquirer(t)
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	clk.Advance(testCfg.WatchTimeout)
	eventually(t, "locating off", func() bool { return !rec.lastLocating() })

	if len(rec.resolvedCalls()) != 0 {
		t.Error("geocoded without any fix")
	}
	if src.active() != 0 {
		t.Error("watch not cleared")
	}
	if rec.lastLocating() {
		t.Error("locating indicator still on")
	}
}

func TestPlatformErrorFails(t *testing.T) {
	a, src, rec, clk := newTestAcquirer(t)
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	w := src.watch(0)
	w.onError(&PositionError{Code: CodePermissionDenied, Message: "User denied Geolocation"})
	w.fix(10, 1, 1)
	clk.Advance(time.Minute)

	if len(rec.failed) != 1 {
		t.Fatalf("failed %d times, want 1", len(rec.failed))
	}
	want := "User denied Geolocation — check browser site permissions and enable precise location if available."
	if rec.failed[0].Error() != want {
		t.Errorf("message = %q", rec.failed[0].Error())
	}
	var pe *PositionError
	if !errors.As(rec.failed[0], &pe) || pe.Code != CodePermissionDenied {
		t.Error("failure does not wrap the PositionError")
	}
	if len(rec.resolvedCalls()) != 0 || len(rec.published) != 0 {
		t.Error("events after failure")
	}
	if src.active() != 0 || !timersPending(clk, 0) {
		t.Error("handles leaked after failure")
	}
}

func TestSecondSessionCancelsFirst(t *testing.T) {
	a, src, rec, clk := newTestAcquirer(t)
	ctx := context.Background()

	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start 1: %v", err)
	}
	src.watch(0).fix(80, 1, 1)
	clk.Advance(3 * time.Second)

	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start 2: %v", err)
	}
	if got := src.active(); got != 1 {
		t.Errorf("active watches = %d, want 1", got)
	}
	if !timersPending(clk, 1) {
		t.Error("want exactly one pending timer")
	}

	// The stale watch still fires; it must be ignored.
	src.watch(0).fix(5, 9, 9)
	if len(rec.resolvedCalls()) != 0 {
		t.Fatal("stale session resolved")
	}

	// The first session's deadline passes without effect.
	clk.Advance(3 * time.Second)
	if len(rec.resolvedCalls()) != 0 {
		t.Fatal("stale timer resolved")
	}

	src.watch(1).fix(70, 2, 2)
	clk.Advance(3 * time.Second)
	eventually(t, "second session timeout", func() bool { return len(rec.resolvedCalls()) > 0 })
	calls := rec.resolvedCalls()
	if len(calls) != 1 || calls[0].pos != (models.LatLng{Lat: 2, Lng: 2}) {
		t.Errorf("resolved = %+v", calls)
	}
}

func TestSessionStateResetsBestAccuracy(t *testing.T) {
	a, src, rec, clk := newTestAcquirer(t)
	ctx := context.Background()

	_ = a.Start(ctx)
	src.watch(0).fix(40, 1, 1)
	clk.Advance(testCfg.WatchTimeout)
	eventually(t, "first session resolution", func() bool { return len(rec.resolvedCalls()) == 1 })

	_ = a.Start(ctx)
	src.watch(1).fix(90, 2, 2)
	if rec.publishedCount() != 2 {
		t.Errorf("first fix of a new session must be accepted; published = %d", len(rec.published))
	}
}

func TestStopAndClose(t *testing.T) {
	a, src, rec, clk := newTestAcquirer(t)
	ctx := context.Background()

	_ = a.Start(ctx)
	a.Stop()
	if src.active() != 0 || !timersPending(clk, 0) {
		t.Error("Stop leaked handles")
	}
	if rec.lastLocating() {
		t.Error("Stop left locating on")
	}
	a.Stop()

	_ = a.Start(ctx)
	a.Close()
	a.Close()
	if src.active() != 0 || !timersPending(clk, 0) {
		t.Error("Close leaked handles")
	}
	if err := a.Start(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Start after Close = %v, want ErrClosed", err)
	}
	if a.State() != StateIdle {
		t.Errorf("State = %q", a.State())
	}
}

func TestUnsupportedSource(t *testing.T) {
	rec := &recorder{}
	a := New(testCfg, nil, rec)
	defer a.Close()

	if err := a.Start(context.Background()); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("Start = %v, want ErrUnsupported", err)
	}
	if len(rec.failed) != 1 || rec.failed[0].Error() != "Geolocation not supported" {
		t.Errorf("failed = %v", rec.failed)
	}
}

func TestWatchStartError(t *testing.T) {
	src := &fakeSource{err: errors.New("sensor offline")}
	rec := &recorder{}
	clk := clockwork.NewFakeClock()
	a := New(testCfg, src, rec, WithClock(clk))
	defer a.Close()

	if err := a.Start(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(rec.failed) != 1 || !strings.Contains(rec.failed[0].Error(), "sensor offline") {
		t.Errorf("failed = %v", rec.failed)
	}
	if !timersPending(clk, 0) {
		t.Error("timer armed after failed watch")
	}
	if a.Active() {
		t.Error("session still active")
	}
}

func TestSynchronousGoodFixInsideWatch(t *testing.T) {
	src := &fakeSource{onWatch: func(w *fakeWatch) { w.fix(12, 4, 4) }}
	rec := &recorder{}
	clk := clockwork.NewFakeClock()
	a := New(testCfg, src, rec, WithClock(clk))
	defer a.Close()

	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if len(rec.resolvedCalls()) != 1 {
		t.Errorf("resolved = %d, want 1", len(rec.resolvedCalls()))
	}
	if src.active() != 0 {
		t.Error("watch handle not cleared")
	}
	if !timersPending(clk, 0) {
		t.Error("timer armed for a session that already ended")
	}
}

func TestEarlyExitRacingTimeout(t *testing.T) {
	for i := 0; i < 200; i++ {
		a, src, rec, clk := newTestAcquirer(t)
		_ = a.Start(context.Background())
		w := src.watch(0)
		w.fix(60, 1, 1)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); w.fix(20, 2, 2) }()
		go func() { defer wg.Done(); clk.Advance(testCfg.WatchTimeout) }()
		wg.Wait()
		eventually(t, "resolution", func() bool { return len(rec.resolvedCalls()) > 0 })

		if got := len(rec.resolvedCalls()); got != 1 {
			t.Fatalf("iteration %d: resolved %d times, want 1", i, got)
		}
	}
}

func TestInvalidFixIgnored(t *testing.T) {
	a, src, rec, _ := newTestAcquirer(t)
	_ = a.Start(context.Background())
	src.watch(0).fix(10, 200, 0)
	if len(rec.published) != 0 || len(rec.resolvedCalls()) != 0 {
		t.Error("out-of-range coordinate was used")
	}
	if !a.Active() {
		t.Error("invalid fix ended the session")
	}
}

func TestMissingAccuracyIsWorst(t *testing.T) {
	if got := (Fix{Accuracy: -1}).accuracy(); got < 1e300 {
		t.Errorf("negative accuracy mapped to %v", got)
	}
}
