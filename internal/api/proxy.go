// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

package api

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/civicguard/internal/backend"
	"github.com/tomtom215/civicguard/internal/logging"
)

// ProxyIntake forwards a report upload to the backend. The body and its
// content type are passed through unread; the response comes back verbatim.
func (h *Handler) ProxyIntake(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxUpload {
		respondTooLarge(w, r, h.maxUpload)
		return
	}
	body := http.MaxBytesReader(w, r.Body, h.maxUpload)
	defer func() { _ = body.Close() }()

	h.forward(w, r, backend.ForwardRequest{
		Route:         "intake",
		Method:        http.MethodPost,
		Path:          backend.PathIntake,
		ContentType:   r.Header.Get("Content-Type"),
		Body:          body,
		ContentLength: r.ContentLength,
	})
}

// ProxyStats forwards the dashboard counters request. No query is sent.
func (h *Handler) ProxyStats(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, backend.ForwardRequest{
		Route:  "stats",
		Method: http.MethodGet,
		Path:   backend.PathStats,
	})
}

// ProxyTestGeocode forwards a reverse-geocoding lookup with the query
// string exactly as received.
func (h *Handler) ProxyTestGeocode(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, backend.ForwardRequest{
		Route:    "geocode",
		Method:   http.MethodGet,
		Path:     backend.PathTestGeocode,
		RawQuery: r.URL.RawQuery,
	})
}

// ProxyTickets forwards a ticket list query.
func (h *Handler) ProxyTickets(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, backend.ForwardRequest{
		Route:    "tickets.list",
		Method:   http.MethodGet,
		Path:     backend.PathTickets,
		RawQuery: r.URL.RawQuery,
	})
}

// ProxyTicket forwards a single ticket lookup. The id is decoded from the
// request path and re-escaped as one path segment.
func (h *Handler) ProxyTicket(w http.ResponseWriter, r *http.Request) {
	id, err := ticketIDParam(r)
	if err != nil || id == "" {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid ticket id", nil)
		return
	}

	h.forward(w, r, backend.ForwardRequest{
		Route:  "tickets.get",
		Method: http.MethodGet,
		Path:   backend.TicketPath(id),
	})
}

// ticketIDParam returns the decoded {id} segment. chi matches on RawPath
// when the request carried escapes the default encoding would not produce
// (an encoded slash, say), and then the parameter is still escaped.
func ticketIDParam(r *http.Request) (string, error) {
	id := chi.URLParam(r, "id")
	if r.URL.RawPath == "" {
		return id, nil
	}
	return url.PathUnescape(id)
}

func (h *Handler) forward(w http.ResponseWriter, r *http.Request, req backend.ForwardRequest) {
	resp, err := h.upstream.Forward(r.Context(), req)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondTooLarge(w, r, maxErr.Limit)
			return
		}
		logging.Ctx(r.Context()).Warn().Err(err).Str("route", req.Route).Msg("Proxy request failed")
		respondUpstreamError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", resp.ContentType)
	w.WriteHeader(resp.Status)
	if _, err := w.Write(resp.Body); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Client went away during proxy response")
	}
}

func respondTooLarge(w http.ResponseWriter, r *http.Request, limit int64) {
	respondError(w, r, http.StatusRequestEntityTooLarge, ErrCodeBadRequest,
		"Upload exceeds "+strconv.FormatInt(limit, 10)+" bytes", nil)
}
