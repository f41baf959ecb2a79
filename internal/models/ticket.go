// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

package models

import (
	"strings"
	"time"
)

// Ticket statuses as reported by the backend.
const (
	StatusCreated  = "CREATED"
	StatusFiling   = "FILING"
	StatusFiled    = "FILED"
	StatusResolved = "RESOLVED"
	StatusFailed   = "FAILED"
)

// Issue classes produced by the backend's image classifier.
const (
	ClassPothole        = "pothole"
	ClassGarbage        = "garbage"
	ClassStreetlight    = "streetlight"
	ClassWaterLeak      = "water_leak"
	ClassIllegalParking = "illegal_parking"
	ClassStrayAnimals   = "stray_animals"
)

// TicketStatuses lists the statuses offered as list filters, in display order.
var TicketStatuses = []string{StatusCreated, StatusFiling, StatusFiled, StatusResolved, StatusFailed}

// IssueClasses lists the classes offered as list filters, in display order.
var IssueClasses = []string{
	ClassPothole, ClassGarbage, ClassStreetlight,
	ClassWaterLeak, ClassIllegalParking, ClassStrayAnimals,
}

// Ticket is a submitted report. Timestamps are kept as the backend's
// strings since SQL and Firestore deployments format them differently.
type Ticket struct {
	ID                string   `json:"id"`
	Class             string   `json:"iclass"`
	Severity          string   `json:"severity,omitempty"`
	Status            string   `json:"status"`
	Address           string   `json:"address,omitempty"`
	Lat               *float64 `json:"lat,omitempty"`
	Lng               *float64 `json:"lng,omitempty"`
	MediaURL          string   `json:"media_url,omitempty"`
	FileURL           string   `json:"file_url,omitempty"`
	Contact           string   `json:"contact,omitempty"`
	Authority         string   `json:"authority,omitempty"`
	AuthorityTicketID string   `json:"authority_ticket_id,omitempty"`
	CreatedAt         string   `json:"created_at,omitempty"`
	UpdatedAt         string   `json:"updated_at,omitempty"`
}

// Position returns the ticket coordinate. ok is false when either
// component is missing or zero, matching how the map pages skip markers.
func (t *Ticket) Position() (LatLng, bool) {
	if t.Lat == nil || t.Lng == nil || *t.Lat == 0 || *t.Lng == 0 {
		return LatLng{}, false
	}
	p := LatLng{Lat: *t.Lat, Lng: *t.Lng}
	return p, p.Valid()
}

// ImageURL returns the attachment URL, preferring media_url.
func (t *Ticket) ImageURL() string {
	if t.MediaURL != "" {
		return t.MediaURL
	}
	return t.FileURL
}

// Created parses CreatedAt. Naive timestamps are taken as UTC.
func (t *Ticket) Created() (time.Time, bool) {
	return parseBackendTime(t.CreatedAt)
}

var backendTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseBackendTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range backendTimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// TicketFilter narrows a ticket listing. Zero fields are not sent.
type TicketFilter struct {
	Status string `validate:"omitempty,ticket_status"`
	Class  string `validate:"omitempty,issue_class"`
	Limit  int    `validate:"omitempty,min=1,max=500"`
	Offset int    `validate:"omitempty,min=0"`
}

// TicketList is the backend's paginated envelope. Older deployments return
// a bare array instead; the backend client normalizes both.
type TicketList struct {
	Items []Ticket `json:"items"`
	Total int      `json:"total,omitempty"`
}

// NotFound is the body the backend returns with status 200 for unknown ids.
type NotFound struct {
	Error string `json:"error"`
}
