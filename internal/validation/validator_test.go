// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

package validation

import (
	"strings"
	"sync"
	"testing"

	"github.com/tomtom215/civicguard/internal/models"
)

func TestGetValidator_Singleton(t *testing.T) {
	var wg sync.WaitGroup
	results := make(chan interface{}, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- GetValidator()
		}()
	}
	wg.Wait()
	close(results)

	first := GetValidator()
	for v := range results {
		if v != first {
			t.Fatal("GetValidator returned different instances")
		}
	}
}

func TestValidateTicketFilter(t *testing.T) {
	tests := []struct {
		name      string
		filter    models.TicketFilter
		wantField string
	}{
		{"empty", models.TicketFilter{}, ""},
		{"all known", models.TicketFilter{Status: "FILED", Class: "water_leak", Limit: 100}, ""},
		{"unknown status", models.TicketFilter{Status: "OPEN"}, "Status"},
		{"lowercase status", models.TicketFilter{Status: "filed"}, "Status"},
		{"unknown class", models.TicketFilter{Class: "graffiti"}, "Class"},
		{"limit too large", models.TicketFilter{Limit: 1000}, "Limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.filter)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error on %s", tt.wantField)
			}
			if !err.HasField(tt.wantField) {
				t.Errorf("errors %v do not include %s", err, tt.wantField)
			}
		})
	}
}

func TestValidateIntakeSubmission(t *testing.T) {
	t.Run("missing image", func(t *testing.T) {
		err := ValidateStruct(&models.IntakeSubmission{Note: "pothole near bus stop"})
		if err == nil {
			t.Fatal("expected error")
		}
		if err.Error() != "Please choose an image" {
			t.Errorf("message = %q", err.Error())
		}
	})

	t.Run("bad coordinates", func(t *testing.T) {
		err := ValidateStruct(&models.IntakeSubmission{
			Image: &models.Image{Filename: "a.jpg", Data: []byte{1}},
			Lat:   "north",
			Lng:   "200",
		})
		if err == nil {
			t.Fatal("expected error")
		}
		if len(err.Errors()) != 2 {
			t.Errorf("got %d errors, want 2: %v", len(err.Errors()), err)
		}
		if !strings.Contains(err.Error(), "latitude") {
			t.Errorf("message %q should mention latitude", err.Error())
		}
	})

	t.Run("valid", func(t *testing.T) {
		err := ValidateStruct(&models.IntakeSubmission{
			Image: &models.Image{Filename: "a.jpg", Data: []byte{1}},
			Lat:   "13.0827",
			Lng:   "80.2707",
		})
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestValidationErrorAccessors(t *testing.T) {
	err := ValidateStruct(&models.TicketFilter{Limit: 900})
	if err == nil {
		t.Fatal("expected error")
	}
	fe := err.Errors()[0]
	if fe.Field() != "Limit" || fe.Tag() != "max" || fe.Param() != "500" {
		t.Errorf("unexpected field error %+v", fe)
	}
	if fe.Value() != 900 {
		t.Errorf("Value() = %v", fe.Value())
	}
	if fe.Error() != "Limit must be at most 500" {
		t.Errorf("Error() = %q", fe.Error())
	}
}
