// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

package intake

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tomtom215/civicguard/internal/backend"
	"github.com/tomtom215/civicguard/internal/config"
	"github.com/tomtom215/civicguard/internal/geolocate"
	"github.com/tomtom215/civicguard/internal/mapview"
	"github.com/tomtom215/civicguard/internal/models"
)

var testSettings = Settings{
	DefaultCenter: models.LatLng{Lat: 13.0827, Lng: 80.2707},
	DefaultZoom:   12,
	Geolocation: config.GeolocationConfig{
		AcceptMargin: 5,
		GoodAccuracy: 30,
		WatchTimeout: 6 * time.Second,
		MinZoom:      16,
	},
}

type geocodeCall struct {
	pos models.LatLng
	ctx context.Context
}

type fakeBackend struct {
	mu           sync.Mutex
	geocodes     []geocodeCall
	submits      []*models.IntakeSubmission
	geocodeFn    func(n int, p models.LatLng) (string, error)
	submitResult *models.IntakeResult
	submitErr    error
}

func (b *fakeBackend) ReverseGeocode(ctx context.Context, p models.LatLng) (string, error) {
	b.mu.Lock()
	b.geocodes = append(b.geocodes, geocodeCall{pos: p, ctx: ctx})
	n := len(b.geocodes)
	fn := b.geocodeFn
	b.mu.Unlock()
	if fn != nil {
		return fn(n, p)
	}
	return "1 Main St", nil
}

func (b *fakeBackend) SubmitIntake(ctx context.Context, sub *models.IntakeSubmission) (*models.IntakeResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submits = append(b.submits, sub)
	return b.submitResult, b.submitErr
}

func (b *fakeBackend) geocodeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.geocodes)
}

func (b *fakeBackend) submitCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.submits)
}

// manualSource hands its callbacks to the test.
type manualSource struct {
	mu      sync.Mutex
	onFix   func(geolocate.Fix)
	onError func(error)
	cleared int
}

func (s *manualSource) Watch(onFix func(geolocate.Fix), onError func(error)) (geolocate.WatchHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFix, s.onError = onFix, onError
	return geolocate.WatchHandleFunc(func() {
		s.mu.Lock()
		s.cleared++
		s.mu.Unlock()
	}), nil
}

func (s *manualSource) fix(lat, lng, acc float64) {
	s.mu.Lock()
	fn := s.onFix
	s.mu.Unlock()
	fn(geolocate.Fix{Lat: lat, Lng: lng, Accuracy: acc})
}

func (s *manualSource) fail(err error) {
	s.mu.Lock()
	fn := s.onError
	s.mu.Unlock()
	fn(err)
}

type harness struct {
	form  *Form
	be    *fakeBackend
	src   *manualSource
	scene *mapview.Scene
	clk   *clockwork.FakeClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		be:    &fakeBackend{submitResult: &models.IntakeResult{ID: "t-1", Status: models.StatusCreated}},
		src:   &manualSource{},
		scene: mapview.NewScene(mapview.ChooseTiles(""), testSettings.DefaultCenter, 12),
		clk:   clockwork.NewFakeClockAt(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
	}
	h.scene.Init()
	h.form = New(context.Background(), testSettings, h.be, h.scene, h.src, WithClock(h.clk))
	t.Cleanup(h.form.Close)
	return h
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSubmitWithoutImageMakesNoNetworkCall(t *testing.T) {
	h := newHarness(t)
	_ = h.form.SetField(FieldNote, "overflowing bin")

	_, err := h.form.Submit(context.Background())
	if err == nil {
		t.Fatal("expected validation error")
	}
	if h.be.submitCount() != 0 {
		t.Errorf("backend called %d times", h.be.submitCount())
	}
	st := h.form.State()
	if st.Error != "Please choose an image" {
		t.Errorf("Error = %q", st.Error)
	}
	if st.Note != "overflowing bin" || st.Submitting {
		t.Errorf("state = %+v", st)
	}
}

func TestSubmitSuccess(t *testing.T) {
	h := newHarness(t)
	h.form.SetImage(&models.Image{Filename: "bin.jpg", ContentType: "image/jpeg", Data: []byte{1, 2}})
	_ = h.form.SetField(FieldContact, "me@example.com")
	_ = h.form.SetField(FieldLat, "13.08")
	_ = h.form.SetField(FieldLng, "80.27")

	res, err := h.form.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.ID != "t-1" {
		t.Errorf("result = %+v", res)
	}
	sub := h.be.submits[0]
	if sub.Image.Filename != "bin.jpg" || sub.Contact != "me@example.com" || sub.Lat != "13.08" || sub.Lng != "80.27" {
		t.Errorf("submission = %+v", sub)
	}
	st := h.form.State()
	if st.Result == nil || st.Error != "" || st.Submitting {
		t.Errorf("state = %+v", st)
	}
}

func TestSubmitRejectedKeepsFields(t *testing.T) {
	h := newHarness(t)
	h.be.submitErr = &backend.StatusError{Status: 422, Body: `{"detail":"not an image"}`}
	h.form.SetImage(&models.Image{Filename: "a.txt", Data: []byte("x")})
	_ = h.form.SetField(FieldNote, "keep me")

	if _, err := h.form.Submit(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	st := h.form.State()
	if st.Error != `Upload failed (422): {"detail":"not an image"}` {
		t.Errorf("Error = %q", st.Error)
	}
	if st.Note != "keep me" || st.ImageName != "a.txt" || st.Result != nil {
		t.Errorf("state = %+v", st)
	}
}

func TestSubmitErrorMessage(t *testing.T) {
	if got := SubmitErrorMessage(errors.New("backend unavailable")); got != "backend unavailable" {
		t.Errorf("transport message = %q", got)
	}
	if got := SubmitErrorMessage(&backend.StatusError{Status: 500, Body: "oops"}); got != "Upload failed (500): oops" {
		t.Errorf("status message = %q", got)
	}
}

func TestUseMyLocationPublishesAndGeocodes(t *testing.T) {
	h := newHarness(t)
	if err := h.form.UseMyLocation(); err != nil {
		t.Fatalf("UseMyLocation: %v", err)
	}
	if !h.form.State().Locating {
		t.Error("locating not set")
	}

	h.src.fix(13.1, 80.3, 50)
	st := h.form.State()
	if st.Lat != "13.1" || st.Lng != "80.3" || st.Zoom != 16 || st.CenterVersion != 1 {
		t.Errorf("after first fix: %+v", st)
	}
	snap := h.scene.Snapshot()
	if snap.Drag == nil || snap.Drag.Lat != 13.1 || snap.Zoom != 16 || snap.Version != 1 {
		t.Errorf("view = %+v", snap)
	}

	h.src.fix(13.2, 80.4, 20)
	waitFor(t, "address", func() bool { return h.form.State().Address == "1 Main St" })

	if got := h.be.geocodeCount(); got != 1 {
		t.Errorf("geocode calls = %d, want 1", got)
	}
	if h.be.geocodes[0].pos != (models.LatLng{Lat: 13.2, Lng: 80.4}) {
		t.Errorf("geocoded %v", h.be.geocodes[0].pos)
	}
	if h.form.State().Locating {
		t.Error("still locating after resolution")
	}

	// The timeout no longer matters.
	h.clk.Advance(time.Minute)
	time.Sleep(20 * time.Millisecond)
	if got := h.be.geocodeCount(); got != 1 {
		t.Errorf("geocode calls after timeout = %d", got)
	}
}

func TestZoomIsNotLowered(t *testing.T) {
	h := newHarness(t)
	h.form.mu.Lock()
	h.form.zoom = 18
	h.form.mu.Unlock()

	_ = h.form.UseMyLocation()
	h.src.fix(1, 1, 90)
	if got := h.form.State().Zoom; got != 18 {
		t.Errorf("zoom = %d, want 18", got)
	}
}

func TestGeolocationFailureMessage(t *testing.T) {
	h := newHarness(t)
	_ = h.form.UseMyLocation()
	h.src.fail(&geolocate.PositionError{Code: geolocate.CodePermissionDenied, Message: "User denied Geolocation"})

	st := h.form.State()
	want := "User denied Geolocation — check browser site permissions and enable precise location if available."
	if st.Error != want {
		t.Errorf("Error = %q", st.Error)
	}
	if st.Locating {
		t.Error("still locating")
	}
}

func TestMarkerDragGeocodes(t *testing.T) {
	h := newHarness(t)
	_ = h.form.SetField(FieldLat, "13.0")
	_ = h.form.SetField(FieldLng, "80.0")
	if h.scene.Snapshot().Drag == nil {
		t.Fatal("typed coordinate did not place a draggable marker")
	}

	if !h.scene.DragEnd(13.5, 80.5) {
		t.Fatal("DragEnd returned false")
	}
	waitFor(t, "geocode", func() bool { return h.form.State().Address != "" })

	st := h.form.State()
	if st.Lat != "13.5" || st.Lng != "80.5" || st.Marker == nil {
		t.Errorf("state = %+v", st)
	}
	if st.CenterVersion != 0 {
		t.Errorf("drag bumped center version to %d", st.CenterVersion)
	}
}

func TestStaleGeocodeDiscarded(t *testing.T) {
	h := newHarness(t)
	release := make(chan struct{})
	h.be.geocodeFn = func(n int, p models.LatLng) (string, error) {
		if n == 1 {
			<-release
			return "old address", nil
		}
		return "new address", nil
	}

	h.form.MarkerMoved(1, 1)
	waitFor(t, "first lookup", func() bool { return h.be.geocodeCount() == 1 })
	h.form.MarkerMoved(2, 2)
	waitFor(t, "second lookup", func() bool { return h.form.State().Address == "new address" })

	close(release)
	h.form.wg.Wait()
	if got := h.form.State().Address; got != "new address" {
		t.Errorf("Address = %q, stale response won", got)
	}
}

func TestGeocodeFailureKeepsAddress(t *testing.T) {
	h := newHarness(t)
	h.form.MarkerMoved(1, 1)
	waitFor(t, "address", func() bool { return h.form.State().Address == "1 Main St" })

	h.be.mu.Lock()
	h.be.geocodeFn = func(int, models.LatLng) (string, error) { return "", backend.ErrNoAddress }
	h.be.mu.Unlock()

	h.form.MarkerMoved(2, 2)
	h.form.wg.Wait()
	if got := h.form.State().Address; got != "1 Main St" {
		t.Errorf("Address = %q", got)
	}
	if h.form.State().Error != "" {
		t.Error("geocode failure surfaced to the user")
	}
}

func TestCenterMapBumpsVersionOnly(t *testing.T) {
	h := newHarness(t)
	before := h.form.State()
	h.form.CenterMap()
	after := h.form.State()

	if after.CenterVersion != before.CenterVersion+1 {
		t.Errorf("version %d -> %d", before.CenterVersion, after.CenterVersion)
	}
	if after.Zoom != before.Zoom || after.Lat != before.Lat {
		t.Error("CenterMap changed more than the version")
	}
	if h.scene.Snapshot().Version != after.CenterVersion {
		t.Error("view not re-centered")
	}
}

func TestCloseCancelsEverything(t *testing.T) {
	h := newHarness(t)
	started := make(chan struct{})
	h.be.geocodeFn = func(n int, p models.LatLng) (string, error) {
		ctx := h.be.geocodes[n-1].ctx
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	}

	_ = h.form.UseMyLocation()
	h.form.MarkerMoved(1, 1)
	<-started

	h.form.Close()

	if h.scene.Layers().Total() != 0 {
		t.Error("view not disposed")
	}
	h.src.mu.Lock()
	cleared := h.src.cleared
	h.src.mu.Unlock()
	if cleared != 1 {
		t.Errorf("watch cleared %d times, want 1", cleared)
	}
	noTimers, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := h.clk.BlockUntilContext(noTimers, 0); err != nil {
		t.Error("geolocation timer still pending")
	}
	if err := h.form.UseMyLocation(); !errors.Is(err, ErrClosed) {
		t.Errorf("UseMyLocation after Close = %v", err)
	}
	if _, err := h.form.Submit(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Submit after Close = %v", err)
	}
}

func TestOnChangeReceivesSnapshots(t *testing.T) {
	var mu sync.Mutex
	var states []State
	scene := mapview.NewScene(mapview.ChooseTiles(""), testSettings.DefaultCenter, 12)
	f := New(context.Background(), testSettings, &fakeBackend{}, scene, nil,
		WithOnChange(func(s State) {
			mu.Lock()
			states = append(states, s)
			mu.Unlock()
		}))
	defer f.Close()

	_ = f.SetField(FieldNote, "a")
	f.CenterMap()

	mu.Lock()
	defer mu.Unlock()
	if len(states) != 2 || states[0].Note != "a" || states[1].CenterVersion != 1 {
		t.Errorf("states = %+v", states)
	}
}

func TestUnknownField(t *testing.T) {
	h := newHarness(t)
	if err := h.form.SetField("image", "x"); err == nil {
		t.Error("expected error for unknown field")
	}
}
