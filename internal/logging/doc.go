// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

// Package logging provides the process-wide zerolog logger for CivicGuard.
//
// Every component logs through this package rather than the standard log
// package. Output is JSON by default and console-formatted for local
// development.
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("addr", addr).Msg("Server starting")
//	logging.Ctx(ctx).Warn().Err(err).Msg("Upstream unavailable")
//
// Request-scoped loggers pick up request_id and correlation_id from the
// context (see ContextWithRequestID). Long-lived components create a child
// logger once with WithComponent("geolocate") and reuse it.
//
// Libraries that want a *slog.Logger (sutureslog) get one from
// NewSlogLogger, which forwards records into zerolog.
//
// Always terminate an event with .Msg() or .Send(), otherwise nothing is
// written.
package logging
