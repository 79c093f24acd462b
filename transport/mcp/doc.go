// Package mcp provides the Model Context Protocol server for the drone coverage planner.
//
// The server is a thin client of the REST API: every tool call is translated
// into an HTTP request and the JSON answer is rendered as text for the agent.
//
// MCP Tools:
//   - create_session, list_sessions, get_session, list_configs
//   - mission_state: current state with a rendered grid
//   - plan_mission: commit an adaptive, greedy or zigzag plan
//   - step, run: fly the plan one cell or many cells at a time
//   - toggle_obstacle, set_cell: change the world mid-flight
//   - emergency_return, reset_mission
//   - step_history, mission_metrics, describe_cell, mission_instructions
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
