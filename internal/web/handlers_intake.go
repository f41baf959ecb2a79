// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tomtom215/civicguard/internal/intake"
	"github.com/tomtom215/civicguard/internal/logging"
	"github.com/tomtom215/civicguard/internal/mapview"
	"github.com/tomtom215/civicguard/internal/models"
	"github.com/tomtom215/civicguard/internal/validation"
)

// multipartMemory is how much of an upload is held in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

type intakeData struct {
	Layout
	State intake.State
	Image string
}

// intakeImage is the no-script map preview for a form state.
func (p *Pages) intakeImage(s intake.State) string {
	q := url.Values{}
	q.Set("zoom", strconv.Itoa(s.Zoom))
	if pos, ok := models.ParseLatLng(s.Lat, s.Lng); ok {
		q.Set("lat", models.FormatCoord(pos.Lat))
		q.Set("lng", models.FormatCoord(pos.Lng))
		q.Set("pin", "1")
	}
	return "/static/map.png?" + q.Encode()
}

func (p *Pages) blankIntakeState() intake.State {
	return intake.State{Zoom: mapview.ClampZoom(p.settings.DefaultZoom)}
}

// IntakeForm renders an empty report form. The live map and location
// button attach over /ws/intake once the page loads.
func (p *Pages) IntakeForm(w http.ResponseWriter, r *http.Request) {
	state := p.blankIntakeState()
	p.render(w, r, "intake", http.StatusOK, intakeData{
		Layout: Layout{Title: "Report an issue", Active: "intake"},
		State:  state,
		Image:  p.intakeImage(state),
	})
}

// IntakeSubmit is the plain form post. It runs the same form controller
// as the live page, so validation and error text are identical.
func (p *Pages) IntakeSubmit(w http.ResponseWriter, r *http.Request) {
	data := intakeData{Layout: Layout{Title: "Report an issue", Active: "intake"}}

	r.Body = http.MaxBytesReader(w, r.Body, p.maxBody)
	var img *models.Image
	switch err := r.ParseMultipartForm(multipartMemory); {
	case errors.Is(err, http.ErrNotMultipart):
		// A urlencoded post carries the text fields but no file; the form
		// reports the missing image like any other invalid field.
	case err != nil:
		status := http.StatusBadRequest
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			status = http.StatusRequestEntityTooLarge
		}
		data.State = p.blankIntakeState()
		data.State.Error = fmt.Sprintf("Upload failed (%d): %s", status, err.Error())
		data.Image = p.intakeImage(data.State)
		p.render(w, r, "intake", status, data)
		return
	default:
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		img, err = readImage(r)
		if err != nil {
			data.State = p.blankIntakeState()
			data.State.Error = err.Error()
			data.Image = p.intakeImage(data.State)
			p.render(w, r, "intake", http.StatusBadRequest, data)
			return
		}
	}

	scene := mapview.NewScene(p.tiles, p.settings.DefaultCenter, p.settings.DefaultZoom)
	form := intake.New(r.Context(), p.settings, p.intake, scene, nil)
	defer form.Close()

	form.SetImage(img)
	for _, name := range []string{intake.FieldNote, intake.FieldContact, intake.FieldLat, intake.FieldLng} {
		_ = form.SetField(name, r.FormValue(name))
	}

	status := http.StatusOK
	if _, err := form.Submit(r.Context()); err != nil {
		var verr *validation.RequestValidationError
		if errors.As(err, &verr) {
			status = http.StatusUnprocessableEntity
		} else {
			status = http.StatusBadGateway
		}
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Form submission failed")
	}

	data.State = form.State()
	data.Image = p.intakeImage(data.State)
	p.render(w, r, "intake", status, data)
}

// readImage returns the uploaded image, or nil when none was chosen.
func readImage(r *http.Request) (*models.Image, error) {
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	defer func() { _ = file.Close() }()

	if header.Size == 0 && header.Filename == "" {
		return nil, nil
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return &models.Image{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
