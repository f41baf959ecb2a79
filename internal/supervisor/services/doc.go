// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

/*
Package services adapts CivicGuard components to suture.Service.

Every wrapper implements Serve(ctx) error and fmt.Stringer, returns
ctx.Err() on a normal shutdown and depends on its component through a
small interface so the supervisor layer never imports the component
packages:

  - HTTPServerService: ListenAndServe/Shutdown to Serve
  - WebSocketHubService: websocket.Hub.RunWithContext
  - StatsPollerService: polls backend stats on a clock ticker and
    broadcasts them to the hub
  - CacheJanitorService: periodic expiry sweep of a TTL cache
*/
package services
