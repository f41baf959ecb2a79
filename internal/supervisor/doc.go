// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

/*
Package supervisor runs the long-lived CivicGuard services under a suture v4
tree with automatic restart and graceful shutdown.

	RootSupervisor ("civicguard")
	├── MaintenanceSupervisor ("maintenance-layer")
	│   └── CacheJanitorService (one per TTL cache)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── WebSocketHubService
	│   └── StatsPollerService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A failing stats poller restarts with backoff while the proxy routes keep
serving. Supervisor events are logged through sutureslog into the zerolog
backed slog.Logger from the logging package.

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(srv, 10*time.Second))
	return tree.Serve(ctx)

The service wrappers live in the services subpackage.
*/
package supervisor
