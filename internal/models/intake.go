// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

package models

// Stats is the dashboard summary from /api/stats.
type Stats struct {
	Open          int    `json:"open"`
	FiledToday    int    `json:"filed_today"`
	AvgTimeToFile string `json:"avg_time_to_file"`
}

// DefaultStats is shown until the first successful poll.
func DefaultStats() Stats {
	return Stats{AvgTimeToFile: "0m 00s"}
}

// IntakeResult is the backend's description of a created submission.
type IntakeResult struct {
	ID         string   `json:"id"`
	FileURL    string   `json:"file_url,omitempty"`
	Class      string   `json:"class,omitempty"`
	Severity   string   `json:"severity,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
	Lat        *float64 `json:"lat,omitempty"`
	Lng        *float64 `json:"lng,omitempty"`
	Address    string   `json:"address,omitempty"`
	Note       string   `json:"note,omitempty"`
	Contact    string   `json:"contact,omitempty"`
	Status     string   `json:"status,omitempty"`
}

// Image is an uploaded photo held in memory until submission.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// IntakeSubmission is the multipart upload sent to /api/intake. Lat and Lng
// are form-field strings; empty values are omitted.
type IntakeSubmission struct {
	Image   *Image `validate:"required"`
	Note    string `validate:"max=2000"`
	Contact string `validate:"max=200"`
	Lat     string `validate:"omitempty,latitude"`
	Lng     string `validate:"omitempty,longitude"`
}

// GeocodeResult is the body of /test-geocode.
type GeocodeResult struct {
	OK       bool   `json:"ok"`
	Provider string `json:"provider,omitempty"`
	Address  string `json:"address"`
}
