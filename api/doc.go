// Package api documents the HatFlow HTTP API. Handlers live in api/handlers.
//
// # API Overview
//
// Sessions (a session holds one active hat and at most one suspended flow):
//
//	GET    /api/v1/sessions
//	GET    /api/v1/sessions/{id}
//	DELETE /api/v1/sessions/{id}
//	POST   /api/v1/sessions/{id}/runs      {"team_id": "...", "goal": "..."}
//	POST   /api/v1/sessions/{id}/resume    {"input": "approve" | "retry"}
//	PUT    /api/v1/sessions/{id}/hat       {"hat_id": "..."}
//	DELETE /api/v1/sessions/{id}/hat
//	GET    /api/v1/sessions/{id}/events    (WebSocket)
//
// Hats, teams and memories:
//
//	GET    /api/v1/hats[?template=true]
//	GET    /api/v1/hats/{id}
//	PUT    /api/v1/hats/{id}
//	DELETE /api/v1/hats/{id}
//	POST   /api/v1/hats/{id}/template
//	POST   /api/v1/hats/{id}/clone
//	GET    /api/v1/hats/{id}/clones
//	GET    /api/v1/hats/{id}/memories[?q=&k=]
//	DELETE /api/v1/hats/{id}/memories
//	GET    /api/v1/teams/{team}/hats
//	POST   /api/v1/teams/propose           {"goal": "...", "save": true}
//
// Missions:
//
//	GET    /api/v1/missions[?limit=]
//
// Health: /health, /healthz, /ready, /readyz, /version. Prometheus metrics are
// served on the separate metrics port at /metrics.
//
// # Authentication
//
// When server.api_keys or server.jwt_secret is configured, every route except
// the health routes needs either an X-API-Key header or an HS256 bearer token
// with an exp claim:
//
//	X-API-Key: your-api-key
//	Authorization: Bearer <jwt>
//
// # Errors
//
// Failures use the common envelope with a stable code:
//
//	{"success": false, "error": {"code": "FLOW_PENDING", "message": "..."}}
package api
