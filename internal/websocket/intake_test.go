// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/civicguard/internal/config"
	"github.com/tomtom215/civicguard/internal/geolocate"
	"github.com/tomtom215/civicguard/internal/intake"
	"github.com/tomtom215/civicguard/internal/mapview"
	"github.com/tomtom215/civicguard/internal/models"
)

type stubBackend struct{}

func (stubBackend) ReverseGeocode(ctx context.Context, p models.LatLng) (string, error) {
	return "Anna Salai, Chennai", nil
}

func (stubBackend) SubmitIntake(ctx context.Context, sub *models.IntakeSubmission) (*models.IntakeResult, error) {
	return &models.IntakeResult{ID: "t-1"}, nil
}

var testDeps = IntakeDeps{
	Settings: intake.Settings{
		DefaultCenter: models.LatLng{Lat: 13.0827, Lng: 80.2707},
		DefaultZoom:   12,
		Geolocation: config.GeolocationConfig{
			AcceptMargin: 5,
			GoodAccuracy: 30,
			WatchTimeout: 6 * time.Second,
			MinZoom:      16,
		},
	},
	Backend: stubBackend{},
	Tiles:   mapview.ChooseTiles(""),
}

type wireMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// intakeServer serves one intake connection per request and reports the
// connection and its completion.
func intakeServer(t *testing.T) (*httptest.Server, <-chan *IntakeConn, <-chan struct{}) {
	t.Helper()
	conns := make(chan *IntakeConn, 1)
	finished := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		c := NewIntakeConn(r.Context(), conn, testDeps)
		conns <- c
		c.Serve(r.Context())
		finished <- struct{}{}
	}))
	t.Cleanup(srv.Close)
	return srv, conns, finished
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendJSON(t *testing.T, conn *websocket.Conn, typ string, data interface{}) {
	t.Helper()
	if err := conn.WriteJSON(map[string]interface{}{"type": typ, "data": data}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readUntil reads messages until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, what string, match func(wireMessage) bool) wireMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", what, err)
		}
		var msg wireMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func ofType(typ string) func(wireMessage) bool {
	return func(m wireMessage) bool { return m.Type == typ }
}

func stateWhere(pred func(intake.State) bool) func(wireMessage) bool {
	return func(m wireMessage) bool {
		if m.Type != MessageTypeState {
			return false
		}
		var s intake.State
		if err := json.Unmarshal(m.Data, &s); err != nil {
			return false
		}
		return pred(s)
	}
}

func TestIntakeConnGeolocationRoundTrip(t *testing.T) {
	srv, conns, finished := intakeServer(t)
	conn := dial(t, srv)
	ic := <-conns

	initMsg := readUntil(t, conn, "map_init", ofType(mapview.CmdInit))
	var init mapview.InitData
	if err := json.Unmarshal(initMsg.Data, &init); err != nil {
		t.Fatalf("decode init: %v", err)
	}
	if init.Zoom != 12 || init.Tiles.Provider != "osm" {
		t.Errorf("init = %+v", init)
	}

	sendJSON(t, conn, MessageTypeLocate, nil)
	startMsg := readUntil(t, conn, "watch_start", ofType(MessageTypeWatchStart))
	var watch WatchData
	_ = json.Unmarshal(startMsg.Data, &watch)

	sendJSON(t, conn, MessageTypePosition, PositionData{Watch: watch.Watch, Lat: 13.05, Lng: 80.25, Accuracy: 12})

	view := readUntil(t, conn, "map_view", ofType(mapview.CmdView))
	var vd mapview.ViewData
	_ = json.Unmarshal(view.Data, &vd)
	if vd.Zoom != 16 || vd.Version != 1 || vd.Center.Lat != 13.05 {
		t.Errorf("view = %+v", vd)
	}

	readUntil(t, conn, "watch_stop", ofType(MessageTypeWatchStop))
	readUntil(t, conn, "geocoded state", stateWhere(func(s intake.State) bool {
		return s.Address == "Anna Salai, Chennai" && !s.Locating && s.Lat == "13.05"
	}))

	sendJSON(t, conn, MessageTypeDragEnd, DragEndData{Lat: 13.06, Lng: 80.26})
	readUntil(t, conn, "dragged state", stateWhere(func(s intake.State) bool {
		return s.Lat == "13.06" && s.Lng == "80.26"
	}))

	_ = conn.Close()
	select {
	case <-finished:
	case <-time.After(3 * time.Second):
		t.Fatal("server did not notice the close")
	}
	if err := ic.Form().UseMyLocation(); !errors.Is(err, intake.ErrClosed) {
		t.Errorf("form still open after disconnect: %v", err)
	}
}

func TestIntakeConnPositionError(t *testing.T) {
	srv, _, _ := intakeServer(t)
	conn := dial(t, srv)

	sendJSON(t, conn, MessageTypeLocate, nil)
	startMsg := readUntil(t, conn, "watch_start", ofType(MessageTypeWatchStart))
	var watch WatchData
	_ = json.Unmarshal(startMsg.Data, &watch)

	sendJSON(t, conn, MessageTypePositionError, PositionErrorData{Watch: watch.Watch, Code: geolocate.CodePermissionDenied, Message: "User denied Geolocation"})
	readUntil(t, conn, "error state", stateWhere(func(s intake.State) bool {
		return strings.HasPrefix(s.Error, "User denied Geolocation") && !s.Locating
	}))
}

func TestIntakeConnFieldAndRejects(t *testing.T) {
	srv, _, _ := intakeServer(t)
	conn := dial(t, srv)

	sendJSON(t, conn, MessageTypeField, FieldData{Name: "note", Value: "broken light"})
	readUntil(t, conn, "note state", stateWhere(func(s intake.State) bool { return s.Note == "broken light" }))

	sendJSON(t, conn, MessageTypeField, FieldData{Name: "image", Value: "x"})
	readUntil(t, conn, "error", ofType(MessageTypeError))

	sendJSON(t, conn, MessageTypePing, nil)
	readUntil(t, conn, "pong", ofType(MessageTypePong))
}

func TestBrowserSourceIgnoresOtherWatches(t *testing.T) {
	c := &IntakeConn{send: make(chan Message, 8), done: make(chan struct{})}
	src := &browserSource{conn: c}

	var fixes []geolocate.Fix
	handle, err := src.Watch(func(f geolocate.Fix) { fixes = append(fixes, f) }, func(error) {})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if msg := <-c.send; msg.Type != MessageTypeWatchStart || msg.Data.(WatchData).Watch != 1 {
		t.Fatalf("first message = %+v", msg)
	}

	src.deliverFix(7, geolocate.Fix{Accuracy: 10})
	src.deliverFix(1, geolocate.Fix{Accuracy: 20})
	handle.Clear()
	handle.Clear()
	src.deliverFix(1, geolocate.Fix{Accuracy: 5})

	if len(fixes) != 1 || fixes[0].Accuracy != 20 {
		t.Errorf("fixes = %+v", fixes)
	}
	if msg := <-c.send; msg.Type != MessageTypeWatchStop {
		t.Errorf("clear sent %+v", msg)
	}
	if len(c.send) != 0 {
		t.Error("second Clear sent another watch_stop")
	}
}

func TestBrowserSourceWatchOnClosedConn(t *testing.T) {
	c := &IntakeConn{send: make(chan Message, 8), done: make(chan struct{})}
	close(c.done)
	src := &browserSource{conn: c}

	if _, err := src.Watch(func(geolocate.Fix) {}, func(error) {}); !errors.Is(err, ErrConnClosed) {
		t.Errorf("Watch on closed conn = %v", err)
	}
}
