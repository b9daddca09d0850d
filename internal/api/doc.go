// Package api implements the HTTP REST API and WebSocket server for Indigo Core.
//
// This package provides:
//   - Read endpoints for the device registry snapshot and the safety gate
//   - Command endpoints that forward named lane and utility commands to the
//     controller
//   - Recipe upload and lookup per lane
//   - An audit trail of commands and recipe uploads (GET /api/audit)
//   - A WebSocket hub that pushes the devices document on a fixed interval
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// The server never touches the bus. Reads come from lock-free registry
// snapshots; commands go through the controller, which queues them on the
// poll scheduler so they share the bus with polling.
//
// # Error Mapping
//
// Controller and scheduler errors map onto HTTP status codes:
//
//	unknown lane / command       404
//	invalid parameter            400
//	system not ready             409
//	not acknowledged             502
//	queue full / not running     503
//	no response / timeout        504
package api
