// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

package websocket

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/tomtom215/civicguard/internal/geolocate"
	"github.com/tomtom215/civicguard/internal/intake"
	"github.com/tomtom215/civicguard/internal/logging"
	"github.com/tomtom215/civicguard/internal/mapview"
	"github.com/tomtom215/civicguard/internal/metrics"
)

var (
	// ErrConnClosed is returned when sending on a closed intake connection.
	ErrConnClosed = errors.New("websocket connection closed")

	// ErrSendBufferFull is returned when the browser is not reading.
	ErrSendBufferFull = errors.New("websocket send buffer full")
)

// WatchData identifies a browser position watch.
type WatchData struct {
	Watch uint64 `json:"watch"`
}

// PositionData is a browser position fix.
type PositionData struct {
	Watch    uint64  `json:"watch"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Accuracy float64 `json:"accuracy"`
}

// PositionErrorData is a browser geolocation error.
type PositionErrorData struct {
	Watch   uint64 `json:"watch"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// DragEndData is a marker drag-end event.
type DragEndData struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// FieldData is a text field edit.
type FieldData struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ErrorData reports a rejected browser message.
type ErrorData struct {
	Message string `json:"message"`
}

// IntakeDeps are the collaborators of an intake connection.
type IntakeDeps struct {
	Settings intake.Settings
	Backend  intake.Backend
	Tiles    mapview.Tiles
	Clock    clockwork.Clock
}

// IntakeConn runs one intake form over a browser connection. The browser
// is a position sensor and a Leaflet renderer; the form state lives here.
// Closing the connection unmounts the form.
type IntakeConn struct {
	conn   *websocket.Conn
	send   chan Message
	done   chan struct{}
	once   sync.Once
	view   *mapview.RemoteView
	source *browserSource
	form   *intake.Form
	logger zerolog.Logger
}

// NewIntakeConn wires a form to conn and queues the initial map and state.
func NewIntakeConn(ctx context.Context, conn *websocket.Conn, deps IntakeDeps) *IntakeConn {
	c := &IntakeConn{
		conn: conn,
		send: make(chan Message, sendBuffer),
		done: make(chan struct{}),
	}
	c.source = &browserSource{conn: c}

	scene := mapview.NewScene(deps.Tiles, deps.Settings.DefaultCenter, deps.Settings.DefaultZoom)
	c.view = mapview.NewRemoteView(scene, c)

	opts := []intake.Option{intake.WithOnChange(c.pushState)}
	if deps.Clock != nil {
		opts = append(opts, intake.WithClock(deps.Clock))
	}
	c.form = intake.New(ctx, deps.Settings, deps.Backend, c.view, c.source, opts...)
	c.logger = logging.WithComponent("websocket").With().Str("correlation_id", c.form.ID()).Logger()

	c.view.Init()
	c.pushState(c.form.State())
	return c
}

// Form returns the connection's form.
func (c *IntakeConn) Form() *intake.Form {
	return c.form
}

// Serve pumps the connection until it fails or ctx ends, then closes the
// form. It blocks.
func (c *IntakeConn) Serve(ctx context.Context) {
	metrics.WSConnections.WithLabelValues(channelIntake).Inc()
	defer metrics.WSConnections.WithLabelValues(channelIntake).Dec()

	c.logger.Debug().Msg("Intake connection opened")
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump(ctx)
	}()

	readLoop(c.conn, channelIntake, c.handle)

	c.shutdown()
	<-writerDone
	c.logger.Debug().Msg("Intake connection closed")
}

func (c *IntakeConn) shutdown() {
	c.once.Do(func() {
		close(c.done)
		c.form.Close()
		_ = c.conn.Close()
	})
}

func (c *IntakeConn) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			writeClose(c.conn)
			_ = c.conn.Close()
			return
		case message := <-c.send:
			if err := writeMessage(c.conn, channelIntake, message); err != nil {
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			if err := writePing(c.conn); err != nil {
				_ = c.conn.Close()
				return
			}
		}
	}
}

// SendCommand implements mapview.CommandSink. It never blocks.
func (c *IntakeConn) SendCommand(cmd mapview.Command) error {
	return c.enqueue(Message{Type: cmd.Type, Data: cmd.Data})
}

func (c *IntakeConn) enqueue(msg Message) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.send <- msg:
		return nil
	default:
		metrics.WSErrors.WithLabelValues("send_buffer_full").Inc()
		return ErrSendBufferFull
	}
}

func (c *IntakeConn) pushState(s intake.State) {
	if err := c.enqueue(Message{Type: MessageTypeState, Data: s}); err != nil {
		c.logger.Debug().Err(err).Msg("State not delivered")
	}
}

func (c *IntakeConn) reject(msgType string, err error) {
	c.logger.Debug().Err(err).Str("message_type", msgType).Msg("Rejected intake message")
	_ = c.enqueue(Message{Type: MessageTypeError, Data: ErrorData{Message: err.Error()}})
}

// handle dispatches one browser message. It runs on the read goroutine.
func (c *IntakeConn) handle(msg inbound) {
	switch msg.Type {
	case MessageTypePing:
		_ = c.enqueue(Message{Type: MessageTypePong})

	case MessageTypeLocate:
		if err := c.form.UseMyLocation(); err != nil {
			c.reject(msg.Type, err)
		}

	case MessageTypeStopLocating:
		c.form.StopLocating()

	case MessageTypeCenter:
		c.form.CenterMap()

	case MessageTypePosition:
		var p PositionData
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			c.reject(msg.Type, err)
			return
		}
		c.source.deliverFix(p.Watch, geolocate.Fix{Lat: p.Lat, Lng: p.Lng, Accuracy: p.Accuracy})

	case MessageTypePositionError:
		var p PositionErrorData
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			c.reject(msg.Type, err)
			return
		}
		c.source.deliverError(p.Watch, &geolocate.PositionError{Code: p.Code, Message: p.Message})

	case MessageTypeDragEnd:
		var d DragEndData
		if err := json.Unmarshal(msg.Data, &d); err != nil {
			c.reject(msg.Type, err)
			return
		}
		c.view.HandleDragEnd(d.Lat, d.Lng)

	case MessageTypeField:
		var f FieldData
		if err := json.Unmarshal(msg.Data, &f); err != nil {
			c.reject(msg.Type, err)
			return
		}
		if err := c.form.SetField(f.Name, f.Value); err != nil {
			c.reject(msg.Type, err)
		}

	default:
		metrics.WSErrors.WithLabelValues("unknown_type").Inc()
		c.logger.Debug().Str("message_type", msg.Type).Msg("Ignoring unknown intake message")
	}
}

// browserSource is a geolocate.PositionSource backed by the browser's
// watchPosition. Each watch has an id the browser echoes back; messages
// for any other watch are dropped.
type browserSource struct {
	conn *IntakeConn

	mu      sync.Mutex
	watch   uint64
	onFix   func(geolocate.Fix)
	onError func(error)
}

func (s *browserSource) Watch(onFix func(geolocate.Fix), onError func(error)) (geolocate.WatchHandle, error) {
	s.mu.Lock()
	s.watch++
	id := s.watch
	s.onFix, s.onError = onFix, onError
	s.mu.Unlock()

	if err := s.conn.enqueue(Message{Type: MessageTypeWatchStart, Data: WatchData{Watch: id}}); err != nil {
		s.clear(id, false)
		return nil, err
	}
	return geolocate.WatchHandleFunc(func() { s.clear(id, true) }), nil
}

func (s *browserSource) clear(id uint64, notify bool) {
	s.mu.Lock()
	if s.watch != id || s.onFix == nil {
		s.mu.Unlock()
		return
	}
	s.onFix, s.onError = nil, nil
	s.mu.Unlock()

	if notify {
		_ = s.conn.enqueue(Message{Type: MessageTypeWatchStop, Data: WatchData{Watch: id}})
	}
}

func (s *browserSource) deliverFix(id uint64, fix geolocate.Fix) {
	s.mu.Lock()
	fn := s.onFix
	if s.watch != id {
		fn = nil
	}
	s.mu.Unlock()

	if fn != nil {
		fn(fix)
	}
}

func (s *browserSource) deliverError(id uint64, err error) {
	s.mu.Lock()
	fn := s.onError
	if s.watch != id {
		fn = nil
	}
	s.mu.Unlock()

	if fn != nil {
		fn(err)
	}
}
