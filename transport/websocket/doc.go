// Package websocket provides the WebSocket transport for the drone coverage planner.
//
// The websocket package implements:
//   - Session-aware WebSocket connections
//   - Broadcasting of mission state after each change
//   - Mission events (steps, replans, returns) pushed to watchers
//   - Connection lifecycle management
//
// Architecture:
//
// A central Hub tracks the clients of every session. Each connection has a
// read goroutine, which only keeps the connection alive, and a write
// goroutine that drains the client's send buffer and sends pings.
//
// Message Protocol:
//
// Outgoing messages are JSON:
//
//	{"session_id": "ab12", "event": "state_update", "mission_state": {...}}
//	{"session_id": "ab12", "event": "replan", "data": {...}}
//
// Clients pick their session with the ?session= query parameter on /ws.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run()
//
//	hub.BroadcastToSession(sessionID, state)
//
// A client that cannot keep up with its buffer is disconnected.
package websocket
