// Package service provides the business logic layer for the drone coverage planner.
//
// The service package implements:
//   - Multi-session mission management
//   - Planning, stepping and bulk runs with event reporting
//   - Obstacle and no-fly changes while a plan is in flight
//   - Paginated step history and path analytics
//
// Core Interfaces:
//
// MissionService is the main service interface providing high-level mission operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages scenario configuration loading and validation.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the mission engine, providing session isolation, configuration management, and
// business logic orchestration. Each session owns its own engine instance and
// therefore its own grid, drone and plan.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	missionService := service.NewMissionService(sessionMgr, configMgr)
//
//	sessionInfo, err := missionService.CreateSession(ctx, "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	plan, err := missionService.Plan(ctx, sessionInfo.ID, engine.StrategyAdaptive, false)
//	run, err := missionService.Run(ctx, sessionInfo.ID, 50)
package service
