// Package server exposes discovery results over HTTP for other tools on
// the host (home-automation bridges, dashboards).
//
// The server runs a continuous discovery session and offers two
// endpoints:
//
//   - GET /devices - JSON snapshot of everything discovered so far, in
//     first-seen order
//   - GET /events - WebSocket stream of merge events, one JSON message
//     per device insert or update
//
// Slow WebSocket clients are dropped rather than allowed to stall the
// discovery engine; the event fan-out never blocks the receive path.
package server
