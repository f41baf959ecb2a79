// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

package backend

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/civicguard/internal/models"
)

// Upstream paths.
const (
	PathIntake      = "/api/intake"
	PathStats       = "/api/stats"
	PathTickets     = "/api/tickets"
	PathTestGeocode = "/test-geocode"
)

func (c *Client) getJSON(ctx context.Context, route, path, rawQuery string, dst interface{}) error {
	resp, err := c.Forward(ctx, ForwardRequest{
		Route:    route,
		Method:   http.MethodGet,
		Path:     path,
		RawQuery: rawQuery,
	})
	if err != nil {
		return err
	}
	return decodeResponse(route, resp, dst)
}

func decodeResponse(route string, resp *ForwardResponse, dst interface{}) error {
	if resp.Status < 200 || resp.Status > 299 {
		return &StatusError{Status: resp.Status, Body: string(resp.Body)}
	}
	if err := json.Unmarshal(resp.Body, dst); err != nil {
		return fmt.Errorf("decode %s response: %w", route, err)
	}
	return nil
}

// Stats fetches the dashboard counters.
func (c *Client) Stats(ctx context.Context) (models.Stats, error) {
	stats := models.DefaultStats()
	if err := c.getJSON(ctx, "stats", PathStats, "", &stats); err != nil {
		return models.DefaultStats(), err
	}
	if stats.AvgTimeToFile == "" {
		stats.AvgTimeToFile = models.DefaultStats().AvgTimeToFile
	}
	return stats, nil
}

// ticketOrError decodes both a ticket and the backend's 200 not-found body.
type ticketOrError struct {
	models.Ticket
	Error string `json:"error"`
}

// Ticket fetches one ticket. The backend answers unknown ids with 200 and
// {"error":"not_found"}; that becomes ErrNotFound.
func (c *Client) Ticket(ctx context.Context, id string) (*models.Ticket, error) {
	var body ticketOrError
	if err := c.getJSON(ctx, "tickets.get", TicketPath(id), "", &body); err != nil {
		return nil, err
	}
	if body.Error != "" || body.ID == "" {
		return nil, ErrNotFound
	}
	t := body.Ticket
	return &t, nil
}

// TicketQuery encodes a filter the way the list endpoint expects.
func TicketQuery(f models.TicketFilter) string {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Class != "" {
		q.Set("iclass", f.Class)
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		q.Set("offset", strconv.Itoa(f.Offset))
	}
	return q.Encode()
}

// ListTickets fetches tickets matching f. Both a bare JSON array and the
// {"items":[...]} envelope are accepted.
func (c *Client) ListTickets(ctx context.Context, f models.TicketFilter) ([]models.Ticket, error) {
	resp, err := c.Forward(ctx, ForwardRequest{
		Route:    "tickets.list",
		Method:   http.MethodGet,
		Path:     PathTickets,
		RawQuery: TicketQuery(f),
	})
	if err != nil {
		return nil, err
	}
	return decodeTicketList(resp)
}

func decodeTicketList(resp *ForwardResponse) ([]models.Ticket, error) {
	if resp.Status < 200 || resp.Status > 299 {
		return nil, &StatusError{Status: resp.Status, Body: string(resp.Body)}
	}

	trimmed := bytes.TrimSpace(resp.Body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []models.Ticket
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode ticket array: %w", err)
		}
		return items, nil
	}

	var list models.TicketList
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, fmt.Errorf("decode ticket list: %w", err)
	}
	if list.Items == nil {
		return []models.Ticket{}, nil
	}
	return list.Items, nil
}

// ReverseGeocode asks the backend for a street address.
func (c *Client) ReverseGeocode(ctx context.Context, p models.LatLng) (string, error) {
	q := url.Values{}
	q.Set("lat", models.FormatCoord(p.Lat))
	q.Set("lng", models.FormatCoord(p.Lng))

	var res models.GeocodeResult
	if err := c.getJSON(ctx, "geocode", PathTestGeocode, q.Encode(), &res); err != nil {
		return "", err
	}
	if res.Address == "" {
		return "", ErrNoAddress
	}
	return res.Address, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// EncodeIntake writes sub as multipart/form-data and returns the body and
// its content type. Empty optional fields are left out.
func EncodeIntake(sub *models.IntakeSubmission) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	filename := sub.Image.Filename
	if filename == "" {
		filename = "upload"
	}
	ct := sub.Image.ContentType
	if ct == "" {
		ct = defaultRequestContentType
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="image"; filename="%s"`, quoteEscaper.Replace(filename)))
	h.Set("Content-Type", ct)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create image part: %w", err)
	}
	if _, err := part.Write(sub.Image.Data); err != nil {
		return nil, "", fmt.Errorf("write image part: %w", err)
	}

	fields := []struct{ name, value string }{
		{"note", sub.Note},
		{"contact", sub.Contact},
		{"lat", sub.Lat},
		{"lng", sub.Lng},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("write %s field: %w", f.name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// SubmitIntake uploads a report. The caller checks that an image is set.
func (c *Client) SubmitIntake(ctx context.Context, sub *models.IntakeSubmission) (*models.IntakeResult, error) {
	if sub.Image == nil {
		return nil, fmt.Errorf("submit intake: image is required")
	}

	body, contentType, err := EncodeIntake(sub)
	if err != nil {
		return nil, err
	}

	resp, err := c.Forward(ctx, ForwardRequest{
		Route:         "intake",
		Method:        http.MethodPost,
		Path:          PathIntake,
		ContentType:   contentType,
		Body:          bytes.NewReader(body),
		ContentLength: int64(len(body)),
	})
	if err != nil {
		return nil, err
	}

	var result models.IntakeResult
	if err := decodeResponse("intake", resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
