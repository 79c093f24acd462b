// Package session provides session management for the drone coverage planner.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - File persistence of mission state across restarts
//   - Session cleanup and expiration
//
// Core Types:
//
// Manager handles all session operations. Each service.Session owns its own
// mission engine together with creation and last access times.
// FilePersistence stores one JSON file per session holding the scenario
// name, a snapshot of the scenario and the full mission state. Loading
// rebuilds the engine from the scenario and restores the state on it.
//
// Session Identifiers:
//
// Generated IDs are 4 hex characters from crypto/rand. Lookups are
// case-insensitive. Custom IDs are limited to letters, digits, '-' and '_'
// since they double as file names.
//
// Usage:
//
//	manager := session.NewManager()
//
//	// Create a new session
//	sess, err := manager.Create("", config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Retrieve existing session
//	sess, err = manager.Get(sessionID)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Cleanup:
//
// CleanupExpiredSessions drops idle sessions from memory; their files remain
// and are reloaded on demand. PruneMissing drops sessions whose file was
// deleted out from under the server.
package session
