// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

/*
Package geolocate runs the "use my location" acquisition flow: watch a
position source for a few seconds, publish fixes that improve on the best
so far, and trigger reverse geocoding once a fix is good enough or the time
budget runs out.

# Sessions

An Acquirer owns at most one Session at a time:

	Idle -> Watching -> Resolved (early | timeout)
	                 -> Failed
	                 -> Cancelled

A fix is accepted when it is the first of the session or its accuracy
radius beats the best so far by more than AcceptMargin metres. Accepted
fixes are published to the Listener. A fix at or below GoodAccuracy ends
the session at once and resolves with that fix's coordinate. When the
WatchTimeout elapses first, the session resolves with the last published
coordinate, or without geocoding if nothing was published.

Starting a session cancels the previous one's watch and timer before
anything else happens. Callbacks carry the id of the session that
registered them and are dropped once that session is no longer active, so
a late fix or a timer racing an early exit cannot resolve twice.

# Concurrency

Fix, error and timeout callbacks may arrive on any goroutine. Session
transitions are serialized by the Acquirer's mutex; Listener methods are
called without the lock held, in the order the transitions happened.
*/
package geolocate
