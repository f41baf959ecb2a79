// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

package intake

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/tomtom215/civicguard/internal/backend"
	"github.com/tomtom215/civicguard/internal/config"
	"github.com/tomtom215/civicguard/internal/geolocate"
	"github.com/tomtom215/civicguard/internal/logging"
	"github.com/tomtom215/civicguard/internal/mapview"
	"github.com/tomtom215/civicguard/internal/metrics"
	"github.com/tomtom215/civicguard/internal/models"
	"github.com/tomtom215/civicguard/internal/validation"
)

var (
	// ErrClosed is returned by operations on a closed form.
	ErrClosed = errors.New("intake form closed")

	// ErrSubmitting is returned when a submission is already in flight.
	ErrSubmitting = errors.New("submission already in progress")
)

// Geocoder resolves a coordinate to a street address.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, p models.LatLng) (string, error)
}

// Submitter uploads a report.
type Submitter interface {
	SubmitIntake(ctx context.Context, sub *models.IntakeSubmission) (*models.IntakeResult, error)
}

// Backend is what a form needs from the backend client.
type Backend interface {
	Geocoder
	Submitter
}

// Settings holds the map defaults and geolocation constants.
type Settings struct {
	DefaultCenter models.LatLng
	DefaultZoom   int
	Geolocation   config.GeolocationConfig
}

// SettingsFromConfig extracts form settings from the application config.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		DefaultCenter: models.LatLng{Lat: cfg.Map.DefaultLat, Lng: cfg.Map.DefaultLng},
		DefaultZoom:   cfg.Map.DefaultZoom,
		Geolocation:   cfg.Geolocation,
	}
}

// State is a snapshot of the form for rendering.
type State struct {
	ImageName     string               `json:"image_name,omitempty"`
	Note          string               `json:"note"`
	Contact       string               `json:"contact"`
	Lat           string               `json:"lat"`
	Lng           string               `json:"lng"`
	Marker        *models.LatLng       `json:"marker,omitempty"`
	Address       string               `json:"address"`
	Zoom          int                  `json:"zoom"`
	CenterVersion uint64               `json:"center_version"`
	Locating      bool                 `json:"locating"`
	Submitting    bool                 `json:"submitting"`
	Error         string               `json:"error,omitempty"`
	Result        *models.IntakeResult `json:"result,omitempty"`
}

// Form is the state of one report form instance.
type Form struct {
	id       string
	settings Settings
	backend  Backend
	view     mapview.MapView
	acq      *geolocate.Acquirer
	onChange func(State)
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// notifyMu orders change notifications.
	notifyMu sync.Mutex

	mu         sync.Mutex
	image      *models.Image
	note       string
	contact    string
	lat        string
	lng        string
	marker     *models.LatLng
	address    string
	zoom       int
	version    uint64
	locating   bool
	submitting bool
	errMsg     string
	result     *models.IntakeResult
	geoToken   uint64
	closed     bool
}

// Option configures a Form.
type Option func(*formOptions)

type formOptions struct {
	clock    clockwork.Clock
	onChange func(State)
}

// WithClock sets the clock used for the geolocation timeout.
func WithClock(c clockwork.Clock) Option {
	return func(o *formOptions) {
		o.clock = c
	}
}

// WithOnChange registers a callback receiving a snapshot after every state
// change. Snapshots are delivered in order and never concurrently.
func WithOnChange(fn func(State)) Option {
	return func(o *formOptions) {
		o.onChange = fn
	}
}

// New creates a form. The view is seeded with the default viewport;
// source may be nil when the client cannot report positions.
func New(parent context.Context, settings Settings, be Backend, view mapview.MapView, source geolocate.PositionSource, opts ...Option) *Form {
	o := formOptions{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(parent)
	id := logging.CorrelationIDFromContext(ctx)
	if id == "" {
		id = logging.GenerateCorrelationID()
		ctx = logging.ContextWithCorrelationID(ctx, id)
	}

	f := &Form{
		id:       id,
		settings: settings,
		backend:  be,
		view:     view,
		onChange: o.onChange,
		logger:   logging.WithComponent("intake").With().Str("correlation_id", id).Logger(),
		ctx:      ctx,
		cancel:   cancel,
		zoom:     mapview.ClampZoom(settings.DefaultZoom),
	}
	f.acq = geolocate.New(settings.Geolocation, source, formListener{f}, geolocate.WithClock(o.clock))

	if d, ok := view.(mapview.Draggable); ok {
		d.OnMarkerMove(f.MarkerMoved)
	}
	view.SetViewport(settings.DefaultCenter, f.zoom, 0)
	return f
}

// ID returns the form's correlation id.
func (f *Form) ID() string {
	return f.id
}

// State returns a snapshot.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stateLocked()
}

func (f *Form) stateLocked() State {
	s := State{
		Note:          f.note,
		Contact:       f.contact,
		Lat:           f.lat,
		Lng:           f.lng,
		Address:       f.address,
		Zoom:          f.zoom,
		CenterVersion: f.version,
		Locating:      f.locating,
		Submitting:    f.submitting,
		Error:         f.errMsg,
		Result:        f.result,
	}
	if f.image != nil {
		s.ImageName = f.image.Filename
	}
	if f.marker != nil {
		m := *f.marker
		s.Marker = &m
	}
	return s
}

func (f *Form) notify() {
	if f.onChange == nil {
		return
	}
	f.notifyMu.Lock()
	defer f.notifyMu.Unlock()

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	s := f.stateLocked()
	f.mu.Unlock()

	f.onChange(s)
}

// centerLocked is the marker, else the typed coordinate, else the default.
func (f *Form) centerLocked() models.LatLng {
	if f.marker != nil {
		return *f.marker
	}
	if p, ok := models.ParseLatLng(f.lat, f.lng); ok {
		return p
	}
	return f.settings.DefaultCenter
}

// draggableLocked is the marker, else the typed coordinate, else none.
func (f *Form) draggableLocked() *models.LatLng {
	if f.marker != nil {
		m := *f.marker
		return &m
	}
	if p, ok := models.ParseLatLng(f.lat, f.lng); ok {
		return &p
	}
	return nil
}

// syncViewLocked pushes viewport and draggable marker to the view. Views
// never call back into the form synchronously from these methods.
func (f *Form) syncViewLocked() {
	f.view.SetViewport(f.centerLocked(), f.zoom, f.version)
	f.view.SetDraggableMarker(f.draggableLocked())
}

// SetImage selects the image to upload. nil clears it.
func (f *Form) SetImage(img *models.Image) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.image = img
	f.mu.Unlock()
	f.notify()
}

// Field names accepted by SetField.
const (
	FieldNote    = "note"
	FieldContact = "contact"
	FieldLat     = "lat"
	FieldLng     = "lng"
)

// SetField updates a text field.
func (f *Form) SetField(name, value string) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	switch name {
	case FieldNote:
		f.note = value
	case FieldContact:
		f.contact = value
	case FieldLat, FieldLng:
		if name == FieldLat {
			f.lat = value
		} else {
			f.lng = value
		}
		if f.marker == nil {
			f.syncViewLocked()
		}
	default:
		f.mu.Unlock()
		return fmt.Errorf("unknown field %q", name)
	}
	f.mu.Unlock()
	f.notify()
	return nil
}

// UseMyLocation starts a geolocation session.
func (f *Form) UseMyLocation() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	f.errMsg = ""
	f.mu.Unlock()

	return f.acq.Start(f.ctx)
}

// StopLocating cancels an active geolocation session.
func (f *Form) StopLocating() {
	f.acq.Stop()
}

// CenterMap re-centers the map without changing the position.
func (f *Form) CenterMap() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.version++
	f.view.SetViewport(f.centerLocked(), f.zoom, f.version)
	f.mu.Unlock()
	f.notify()
}

// MarkerMoved handles the end of a marker drag.
func (f *Form) MarkerMoved(lat, lng float64) {
	pos := models.LatLng{Lat: lat, Lng: lng}
	if !pos.Valid() {
		return
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.lat = models.FormatCoord(lat)
	f.lng = models.FormatCoord(lng)
	f.marker = &pos
	f.syncViewLocked()
	f.mu.Unlock()

	f.notify()
	f.geocode(pos)
}

// geocode looks up pos in the background. Only the newest lookup may set
// the address.
func (f *Form) geocode(pos models.LatLng) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.geoToken++
	token := f.geoToken
	f.wg.Add(1)
	f.mu.Unlock()

	go func() {
		defer f.wg.Done()

		addr, err := f.backend.ReverseGeocode(f.ctx, pos)

		f.mu.Lock()
		switch {
		case f.closed || token != f.geoToken:
			f.mu.Unlock()
			metrics.GeocodeRequests.WithLabelValues("stale").Inc()
			return
		case err != nil:
			f.mu.Unlock()
			outcome := "error"
			if errors.Is(err, backend.ErrNoAddress) {
				outcome = "no_address"
			}
			metrics.GeocodeRequests.WithLabelValues(outcome).Inc()
			f.logger.Debug().Err(err).Msg("Reverse geocode failed")
			return
		}
		f.address = addr
		f.mu.Unlock()

		metrics.GeocodeRequests.WithLabelValues("ok").Inc()
		f.notify()
	}()
}

// Submit uploads the report. Without an image it fails validation and
// makes no network call. On failure the fields are kept for a retry.
func (f *Form) Submit(ctx context.Context) (*models.IntakeResult, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrClosed
	}
	if f.submitting {
		f.mu.Unlock()
		return nil, ErrSubmitting
	}

	sub := models.IntakeSubmission{
		Image:   f.image,
		Note:    f.note,
		Contact: f.contact,
		Lat:     f.lat,
		Lng:     f.lng,
	}
	f.errMsg = ""
	f.result = nil

	if verr := validation.ValidateStruct(&sub); verr != nil {
		f.errMsg = verr.Error()
		f.mu.Unlock()
		metrics.IntakeSubmissions.WithLabelValues("invalid").Inc()
		f.notify()
		return nil, verr
	}
	f.submitting = true
	f.mu.Unlock()
	f.notify()

	// Either the caller or form teardown cancels the upload.
	sctx, cancel := context.WithCancel(f.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	res, err := f.backend.SubmitIntake(sctx, &sub)

	f.mu.Lock()
	f.submitting = false
	if f.closed {
		f.mu.Unlock()
		return nil, ErrClosed
	}
	if err != nil {
		f.errMsg = SubmitErrorMessage(err)
	} else {
		f.result = res
	}
	f.mu.Unlock()

	recordSubmission(err)
	if err != nil {
		f.logger.Info().Err(err).Msg("Report upload failed")
	} else {
		f.logger.Info().Str("ticket_id", res.ID).Msg("Report submitted")
	}
	f.notify()

	if err != nil {
		return nil, err
	}
	return res, nil
}

func recordSubmission(err error) {
	var se *backend.StatusError
	switch {
	case err == nil:
		metrics.IntakeSubmissions.WithLabelValues("created").Inc()
	case errors.As(err, &se):
		metrics.IntakeSubmissions.WithLabelValues("rejected").Inc()
	default:
		metrics.IntakeSubmissions.WithLabelValues("failed").Inc()
	}
}

// SubmitErrorMessage renders an upload error for the user.
func SubmitErrorMessage(err error) string {
	var se *backend.StatusError
	if errors.As(err, &se) {
		return fmt.Sprintf("Upload failed (%d): %s", se.Status, se.Body)
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Something went wrong"
}

// Close cancels geolocation, in-flight lookups and uploads, waits for
// background lookups to return, and disposes the map view. It is safe to
// call more than once.
func (f *Form) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.mu.Unlock()

	f.acq.Close()
	f.cancel()
	f.wg.Wait()
	f.view.Dispose()
}

// formListener adapts geolocation events to form state.
type formListener struct {
	f *Form
}

func (l formListener) Published(c geolocate.Candidate) {
	f := l.f
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	pos := c.Position
	f.lat = models.FormatCoord(pos.Lat)
	f.lng = models.FormatCoord(pos.Lng)
	f.marker = &pos
	if f.zoom < f.settings.Geolocation.MinZoom {
		f.zoom = mapview.ClampZoom(f.settings.Geolocation.MinZoom)
	}
	f.version++
	f.syncViewLocked()
	f.mu.Unlock()
	f.notify()
}

func (l formListener) LocatingChanged(locating bool) {
	f := l.f
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.locating = locating
	f.mu.Unlock()
	f.notify()
}

func (l formListener) Failed(err error) {
	f := l.f
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.errMsg = err.Error()
	f.mu.Unlock()
	f.notify()
}

func (l formListener) Resolved(pos models.LatLng, _ geolocate.Resolution) {
	l.f.geocode(pos)
}
