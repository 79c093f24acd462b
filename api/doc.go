// Package api provides the HTTP REST API for the drone coverage planner.
//
// The api package implements:
//   - Session management endpoints
//   - Mission operations (plan, step, run, grid edits, emergency return)
//   - Step history, path metrics and GeoJSON export
//   - Scenario listing, loading and saving
//   - WebSocket upgrade handling
//
// Endpoints:
//
// Session Management:
//   - POST   /api/sessions                  create a session ({"config_id": "classic"})
//   - GET    /api/sessions                  list sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET    /api/sessions/unified          multi-session view (?sessionIds=a,b or ?configName=x)
//   - GET    /api/sessions/{id}             session info
//   - DELETE /api/sessions/{id}             delete a session
//
// Mission Operations:
//   - GET  /api/sessions/{id}/state             current mission state
//   - POST /api/sessions/{id}/plan              {"strategy": "adaptive|greedy|zigzag", "reset": false}
//   - POST /api/sessions/{id}/step              fly one cell of the plan
//   - POST /api/sessions/{id}/run               {"max_steps": 50}
//   - POST /api/sessions/{id}/obstacle          {"row": 3, "col": 4}
//   - POST /api/sessions/{id}/cell              {"row": 3, "col": 4, "kind": "free|obstacle|no_fly"}
//   - POST /api/sessions/{id}/emergency-return  fly home along the shortest path
//   - POST /api/sessions/{id}/reset             restore the initial grid and drone
//   - GET  /api/sessions/{id}/history           ?page=1&limit=20&order=desc
//   - GET  /api/sessions/{id}/metrics           ?seed=N for a reproducible random baseline
//   - GET  /api/sessions/{id}/geojson           application/geo+json
//
// Configuration:
//   - GET  /api/configs          list scenarios
//   - GET  /api/configs/{name}   load a scenario (.json/.yaml/.yml suffix optional)
//   - POST /api/configs          save a scenario
//
// Error Handling:
//
// Errors are returned as JSON with the HTTP status code:
//
//	{"error": "no mission plan; plan a mission first", "code": 409}
//
// Unknown sessions and scenarios map to 404, stepping without a plan or after
// the mission is over to 409, and bad cells or strategies to 400. A step or
// grid edit whose replan fails still answers 200 with success false and the
// error in the body, since the grid change itself went through.
//
// Every state change is broadcast to the session's WebSocket watchers.
package api
