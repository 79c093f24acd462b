package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/drone-coverage-planner/game/engine"
	"github.com/wricardo/drone-coverage-planner/game/service"
	"github.com/wricardo/drone-coverage-planner/game/world"
)

// Grid characters used in text renderings
const (
	charDrone    = "D"
	charHome     = "H"
	charVisited  = "*"
	charPlanned  = "+"
	charFree     = "."
	charObstacle = "O"
	charNoFly    = "N"
	charOutside  = "#"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Drone Coverage Planner",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Drone Coverage Planner - MCP Interface

This is a thin client that proxies all requests to the REST API server.

OBJECTIVE:
Fly a battery-limited drone over every free cell of a grid. Obstacles (O) and
no-fly cells (N) cannot be entered. Each step costs battery.

TYPICAL FLOW:
1. create_session (optionally with a config_id from list_configs)
2. plan_mission (adaptive, greedy or zigzag)
3. step / run to fly the plan
4. toggle_obstacle to change the world mid-flight; the plan is repaired
5. emergency_return to fly home, mission_metrics to score the flight

AVAILABLE TOOLS:
- create_session, list_sessions, get_session, list_configs
- mission_state, plan_mission, step, run, reset_mission
- toggle_obstacle, set_cell, emergency_return
- step_history, mission_metrics, describe_cell, mission_instructions`),
	)

	c.registerTools()
}

func sessionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func sessionOnlySchema() mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"session_id": sessionProperty(),
		},
		Required: []string{"session_id"},
	}
}

func cellSchema(extra map[string]interface{}, required ...string) mcp.ToolInputSchema {
	props := map[string]interface{}{
		"session_id": sessionProperty(),
		"row": map[string]interface{}{
			"type":        "integer",
			"description": "Row of the cell (0-based, north to south)",
		},
		"col": map[string]interface{}{
			"type":        "integer",
			"description": "Column of the cell (0-based, west to east)",
		},
	}
	for k, v := range extra {
		props[k] = v
	}
	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: props,
		Required:   append([]string{"session_id", "row", "col"}, required...),
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new mission session with optional scenario selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "Scenario to use (optional, see list_configs)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active mission sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: sessionOnlySchema(),
	}, c.handleGetSession)

	// Mission operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "mission_state",
		Description: "Get the current mission state with a rendered grid",
		InputSchema: sessionOnlySchema(),
	}, c.handleMissionState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "plan_mission",
		Description: "Plan a coverage route for the drone",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"strategy": map[string]interface{}{
					"type":        "string",
					"enum":        []string{string(engine.StrategyAdaptive), string(engine.StrategyGreedy), string(engine.StrategyZigzag)},
					"description": "Coverage strategy (defaults to the scenario's strategy)",
				},
				"reset": map[string]interface{}{
					"type":        "boolean",
					"description": "Reset the mission before planning",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handlePlan)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "step",
		Description: "Fly one cell of the plan",
		InputSchema: sessionOnlySchema(),
	}, c.handleStep)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "run",
		Description: "Fly the plan until it ends, the mission stops or max_steps is reached",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"max_steps": map[string]interface{}{
					"type":        "integer",
					"description": fmt.Sprintf("Maximum steps to fly (default and cap %d)", engine.MaxBulkSteps),
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleRun)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "toggle_obstacle",
		Description: "Toggle a cell between free and obstacle. The unflown plan is repaired around new obstacles.",
		InputSchema: cellSchema(nil),
	}, c.handleToggleObstacle)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "set_cell",
		Description: "Overwrite a cell with a kind (free, obstacle or no_fly)",
		InputSchema: cellSchema(map[string]interface{}{
			"kind": map[string]interface{}{
				"type": "string",
				"enum": []string{string(world.Free), string(world.Obstacle), string(world.NoFly)},
			},
		}, "kind"),
	}, c.handleSetCell)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "emergency_return",
		Description: "Abandon the plan and fly home along the shortest path",
		InputSchema: sessionOnlySchema(),
	}, c.handleEmergencyReturn)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_mission",
		Description: "Reset the mission to its initial grid and drone",
		InputSchema: sessionOnlySchema(),
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "step_history",
		Description: "Get step history for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Items per page",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleStepHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "mission_metrics",
		Description: "Score the flown path against a random-walk baseline",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"seed": map[string]interface{}{
					"type":        "integer",
					"description": "Seed for the random baseline (optional, for reproducible reports)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleMetrics)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available mission scenarios",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "mission_instructions",
		Description: "Get mission rules and the grid legend",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleInstructions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Get detailed information about a specific grid cell: its kind, whether it was flown and whether it is on the remaining plan.",
		InputSchema: cellSchema(nil),
	}, c.handleDescribeCell)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// intArg reads a JSON number argument
func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

func cellArg(args map[string]interface{}) (world.Cell, error) {
	row, okRow := intArg(args, "row")
	col, okCol := intArg(args, "col")
	if !okRow || !okCol {
		return world.Cell{}, fmt.Errorf("row and col are required")
	}
	return world.Cell{Row: row, Col: col}, nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	configID, _ := args["config_id"].(string)

	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}

	var info service.SessionInfo
	if err := c.apiCall("POST", "/api/sessions", body, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Created session: %s\nConfig: %s\n\n%s",
		info.ID, info.ConfigName, formatMissionState(info.MissionState))), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall("GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		phase, coverage := "unknown", 0.0
		if s.MissionState != nil {
			phase, coverage = string(s.MissionState.Phase), s.MissionState.CoveragePercent
		}
		fmt.Fprintf(&b, "- %s (Config: %s, Phase: %s, Coverage: %.1f%%, Created: %s)\n",
			s.ID, s.ConfigName, phase, coverage, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var info service.SessionInfo
	if err := c.apiCall("GET", sessionPath(sessionID, ""), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&info)), nil
}

func (c *Client) handleMissionState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var state engine.MissionState
	if err := c.apiCall("GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMissionState(&state)), nil
}

func (c *Client) handlePlan(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	strategy, _ := args["strategy"].(string)
	reset, _ := args["reset"].(bool)

	body := map[string]interface{}{
		"strategy": strategy,
		"reset":    reset,
	}

	var result service.PlanResult
	if err := c.apiCall("POST", sessionPath(sessionID, "/plan"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatPlanResult(&result)), nil
}

func (c *Client) handleStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var result service.StepOutcome
	if err := c.apiCall("POST", sessionPath(sessionID, "/step"), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatStepOutcome(&result)), nil
}

func (c *Client) handleRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	body := map[string]interface{}{}
	if maxSteps, ok := intArg(args, "max_steps"); ok {
		body["max_steps"] = maxSteps
	}

	var result service.RunOutcome
	if err := c.apiCall("POST", sessionPath(sessionID, "/run"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRunOutcome(sessionID, &result)), nil
}

func (c *Client) handleToggleObstacle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	cell, err := cellArg(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.CellOutcome
	if err := c.apiCall("POST", sessionPath(sessionID, "/obstacle"), cell, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatCellOutcome(&result)), nil
}

func (c *Client) handleSetCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	kind, _ := args["kind"].(string)
	cell, err := cellArg(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := map[string]interface{}{"row": cell.Row, "col": cell.Col, "kind": kind}

	var result service.CellOutcome
	if err := c.apiCall("POST", sessionPath(sessionID, "/cell"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatCellOutcome(&result)), nil
}

func (c *Client) handleEmergencyReturn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var result service.ReturnOutcome
	if err := c.apiCall("POST", sessionPath(sessionID, "/emergency-return"), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	if result.Success {
		fmt.Fprintf(&b, "✓ Returning home: %d steps to go\n", result.StepsHome)
	} else {
		b.WriteString("✗ Emergency return failed\n")
	}
	if result.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", result.Error)
	}
	writeEvents(&b, result.Events)
	b.WriteString("\n" + formatMissionState(result.MissionState))
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var response struct {
		Message string               `json:"message"`
		State   *engine.MissionState `json:"state"`
	}

	if err := c.apiCall("POST", sessionPath(sessionID, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatMissionState(response.State))), nil
}

func (c *Client) handleStepHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	params := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		params.Set("page", fmt.Sprint(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		params.Set("limit", fmt.Sprint(limit))
	}
	path := sessionPath(sessionID, "/history")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall("GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := formatHistory(&history)

	// Also show the segment flown since the last reset
	var state engine.MissionState
	if err := c.apiCall("GET", sessionPath(sessionID, "/state"), nil, &state); err == nil {
		result += "\n" + formatCurrentSegment(&state)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleMetrics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	path := sessionPath(sessionID, "/metrics")
	if seed, ok := intArg(args, "seed"); ok {
		path += fmt.Sprintf("?seed=%d", seed)
	}

	var report service.MetricsReport
	if err := c.apiCall("GET", path, nil, &report); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMetrics(&report)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall("GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Scenarios:\n\n")
	for _, cfg := range configs {
		strategy := string(cfg.Strategy)
		if strategy == "" {
			strategy = string(engine.StrategyAdaptive)
		}
		fmt.Fprintf(&b, "• %s (config_id: %s)\n  %s\n  Grid: %dx%d, Battery: %d, Strategy: %s\n\n",
			cfg.Name, cfg.ConfigID, cfg.Description, cfg.GridSize, cfg.GridSize, cfg.BatteryCapacity, strategy)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Drone Coverage Planner - Mission Rules

OBJECTIVE:
Cover every free cell of the grid with a single battery charge.

MECHANICS:
• Movement: the drone flies to one of its 4 neighbours per step
• Battery: each step costs the drone's moving cost
• Plans: a plan is a list of adjacent cells flown one step at a time
• Replanning: when a cell on the unflown plan becomes blocked, a detour is
  spliced in. If none exists the mission is blocked until the grid changes,
  a new plan is made or the drone is sent home.

STRATEGIES:
• adaptive - nearest unvisited cell, keeping a battery reserve for the way home
• greedy   - best-scoring cell within the look-ahead radius
• zigzag   - boustrophedon sweep of the whole grid, joined by shortest paths

GRID LEGEND:
• D - Drone (current position)
• H - Home
• * - Visited cell
• + - Cell on the remaining plan
• . - Free, not yet visited
• O - Obstacle (impassable)
• N - No-fly cell (impassable)
• # - Outside the grid (local view only)

PHASES:
• idle, planned, flying, returning, blocked, completed
• returned, depleted, stranded end the mission; reset_mission starts over

TIPS:
• Use run rather than many single steps
• Check battery risk before flying far from home
• emergency_return flies the shortest path home; it fails only when home is unreachable
• mission_metrics with a fixed seed gives reproducible comparisons`

	return mcp.NewToolResultText(instructions), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	cell, err := cellArg(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state engine.MissionState
	if err := c.apiCall("GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if state.Grid == nil || state.Drone == nil {
		return mcp.NewToolResultError("mission state has no grid"), nil
	}

	size := state.Grid.Size()
	if !state.Grid.InBounds(cell) {
		return mcp.NewToolResultError(fmt.Sprintf("Cell %v is out of bounds. Grid size is %dx%d (0-%d for both row and col)",
			cell, size, size, size-1)), nil
	}

	kind := state.Grid.Classify(cell)
	var description string
	switch kind {
	case world.Free:
		description = "Free airspace - the drone can fly here"
	case world.Obstacle:
		description = "Obstacle - IMPASSABLE, can be toggled back to free"
	case world.NoFly:
		description = "No-fly zone - IMPASSABLE, cannot be toggled"
	}

	onPlan := false
	if state.Plan != nil {
		for _, p := range state.Plan.Remaining() {
			if p == cell {
				onPlan = true
				break
			}
		}
	}

	result := fmt.Sprintf(`Cell %v:
━━━━━━━━━━━━━━━━━━━━━━━━
Character: %s
Kind: %s
Passable: %v
Visited: %v
On remaining plan: %v
Drone here: %v
Home: %v
Description: %s`,
		cell,
		cellChar(&state, cell, planSet(&state)),
		kind,
		kind.Passable(),
		state.Drone.HasVisited(cell),
		onPlan,
		state.Drone.Position() == cell,
		state.Drone.Home() == cell,
		description)

	return mcp.NewToolResultText(result), nil
}

// Formatting helpers

func formatSessionInfo(info *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s\n\n%s",
		info.ID, info.ConfigName,
		info.CreatedAt.Format("2006-01-02 15:04:05"),
		formatMissionState(info.MissionState))
}

func planSet(state *engine.MissionState) map[world.Cell]bool {
	set := map[world.Cell]bool{}
	if state.Plan != nil {
		for _, c := range state.Plan.Remaining() {
			set[c] = true
		}
	}
	return set
}

// cellChar renders a cell for the text grid
func cellChar(state *engine.MissionState, c world.Cell, planned map[world.Cell]bool) string {
	switch {
	case !state.Grid.InBounds(c):
		return charOutside
	case state.Drone.Position() == c:
		return charDrone
	case state.Drone.Home() == c:
		return charHome
	}
	switch state.Grid.Classify(c) {
	case world.Obstacle:
		return charObstacle
	case world.NoFly:
		return charNoFly
	}
	switch {
	case state.Drone.HasVisited(c):
		return charVisited
	case planned[c]:
		return charPlanned
	}
	return charFree
}

func formatMissionState(state *engine.MissionState) string {
	if state == nil || state.Grid == nil || state.Drone == nil {
		return "No mission state available"
	}

	var b strings.Builder
	pos := state.Drone.Position()
	fmt.Fprintf(&b, "Position: %v | Battery: %d/%d | Coverage: %.1f%% | Phase: %s | Steps: %d\n",
		pos, state.Drone.Battery(), state.Drone.Capacity(), state.CoveragePercent, state.Phase, state.TotalSteps)
	if state.Plan != nil {
		fmt.Fprintf(&b, "Plan: %s, %d steps remaining | Replans: %d\n", state.Strategy, len(state.Plan.Remaining()), state.Replans)
	}
	if state.BatteryRisk != "" {
		fmt.Fprintf(&b, "Battery risk: %s\n", state.BatteryRisk)
	}
	b.WriteString("\n")

	planned := planSet(state)
	n := state.Grid.Size()
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			b.WriteString(cellChar(state, world.Cell{Row: row, Col: col}, planned))
		}
		b.WriteString("\n")
	}

	switch state.Phase {
	case engine.PhaseCompleted:
		b.WriteString("\n✅ COVERAGE COMPLETE")
	case engine.PhaseReturned:
		b.WriteString("\n🏠 RETURNED HOME")
	case engine.PhaseDepleted:
		b.WriteString("\n🪫 BATTERY DEPLETED")
	case engine.PhaseStranded:
		b.WriteString("\n⛔ STRANDED")
	case engine.PhaseBlocked:
		b.WriteString("\n⚠️ PLAN BLOCKED")
	}

	if state.Message != "" {
		fmt.Fprintf(&b, "\nMessage: %s", state.Message)
	}
	if state.LastError != "" {
		fmt.Fprintf(&b, "\nLast error: %s", state.LastError)
	}

	return b.String()
}

func writeEvents(b *strings.Builder, events []service.MissionEvent) {
	if len(events) == 0 {
		return
	}
	b.WriteString("Events:\n")
	for _, event := range events {
		fmt.Fprintf(b, "- %s: %s\n", event.Type, event.Message)
	}
}

func formatLocal3x3(lines []string) string {
	if len(lines) != 3 {
		return ""
	}
	return "Local 3x3:\n" + strings.Join(lines, "\n") + "\n"
}

func formatPlanResult(result *service.PlanResult) string {
	var b strings.Builder
	if s := result.Summary; s != nil {
		fmt.Fprintf(&b, "✓ Planned %d steps with %s (%s)\n", s.Length, s.Strategy, s.Stop)
		fmt.Fprintf(&b, "Projected battery: %d | Estimated coverage: %.1f%%\n", s.ProjectedBattery, s.EstimatedCoverage)
	}
	writeEvents(&b, result.Events)
	b.WriteString("\n" + formatMissionState(result.MissionState))
	return b.String()
}

func formatStepOutcome(result *service.StepOutcome) string {
	var b strings.Builder
	if result.Success {
		b.WriteString("✓ Step successful\n")
	} else {
		b.WriteString("✗ Step failed\n")
	}

	if s := result.Step; s != nil {
		status := "✗"
		if s.Success {
			status = "✓"
		}
		replanned := ""
		if s.Replanned {
			replanned = " (replanned)"
		}
		fmt.Fprintf(&b, "Step: %v→%v batt=%d phase=%s%s %s\n", s.From, s.To, s.Battery, s.Phase, replanned, status)
	}
	if result.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", result.Error)
	}

	writeEvents(&b, result.Events)
	b.WriteString(formatLocal3x3(result.LocalView3x3))
	b.WriteString("\n" + formatMissionState(result.MissionState))
	return b.String()
}

func formatRunOutcome(sessionID string, result *service.RunOutcome) string {
	var b strings.Builder

	configName, size := "", 0
	if st := result.MissionState; st != nil {
		configName = st.ConfigName
		if st.Grid != nil {
			size = st.Grid.Size()
		}
	}
	fmt.Fprintf(&b, "Session: %s • Config: %s • Grid: %dx%d\n", sessionID, configName, size, size)

	requested := result.RequestedSteps
	if requested <= 0 {
		requested = result.Limit
	}
	fmt.Fprintf(&b, "Executed %d/%d steps", result.StepsExecuted, requested)
	if result.Truncated {
		fmt.Fprintf(&b, " (capped at %d)", result.Limit)
	}
	b.WriteString("\n")
	if result.StopReasonCode != "" {
		fmt.Fprintf(&b, "Stopped: %s", result.StopReasonCode)
		if result.StoppedReason != "" {
			fmt.Fprintf(&b, " (%s)", result.StoppedReason)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "%v→%v battery %d→%d coverage +%.1f%% replans %d, %d plan steps left\n",
		result.StartPos, result.EndPos, result.StartBattery, result.EndBattery,
		result.CoverageDelta, result.Replans, result.RemainingPlan)

	writeEvents(&b, result.Events)

	if len(result.Steps) > 0 {
		b.WriteString("\nSteps (this call):\n")
		for i, s := range result.Steps {
			status := "✓"
			if !s.Success {
				status = "✗"
			}
			fmt.Fprintf(&b, "%d. %v→%v batt=%d %s\n", i+1, s.From, s.To, s.Battery, status)
		}
	}

	b.WriteString(formatLocal3x3(result.LocalView3x3))
	b.WriteString("\n" + formatMissionState(result.MissionState))
	return b.String()
}

func formatCellOutcome(result *service.CellOutcome) string {
	var b strings.Builder
	if result.Success {
		b.WriteString("✓ Cell updated\n")
	} else {
		b.WriteString("✗ Cell not updated\n")
	}
	if ch := result.Change; ch != nil {
		fmt.Fprintf(&b, "Cell %v is now %s (on plan: %v, replanned: %v)\n", ch.Cell, ch.Kind, ch.OnPlan, ch.Replanned)
		if ch.Message != "" {
			fmt.Fprintf(&b, "%s\n", ch.Message)
		}
	}
	if result.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", result.Error)
	}
	writeEvents(&b, result.Events)
	b.WriteString("\n" + formatMissionState(result.MissionState))
	return b.String()
}

func formatMetrics(report *service.MetricsReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Path Metrics (baseline seed %d)\n", report.Seed)
	b.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(&b, "Path length: %d (planned %d)\n", report.PathLength, report.PlannedLength)
	fmt.Fprintf(&b, "Coverage: %d cells (%.1f%%)\n", report.Coverage, report.CoveragePercent)
	fmt.Fprintf(&b, "Turns: %d\n", report.Turns)
	fmt.Fprintf(&b, "Energy: %d (%d straight, %d turning, efficiency %.2f)\n",
		report.Energy.TotalEnergy, report.Energy.StraightMoves, report.Energy.TurnMoves, report.Energy.Efficiency)
	fmt.Fprintf(&b, "Safety score: %d (%d buffer violations)\n", report.SafetyScore, report.BufferViolations)
	fmt.Fprintf(&b, "\nRandom baseline: %d steps, %d cells, %d turns\n",
		report.Baseline.PathLength, report.Baseline.Coverage, report.Baseline.Turns)
	fmt.Fprintf(&b, "Coverage improvement: %+.1f%% | Turn reduction: %+.1f%% | Path length change: %+.1f%%\n",
		report.CoverageImprovement, report.TurnReduction, report.PathLengthChange)
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Step History (Page %d/%d), total (cumulative): %d\n\n",
		history.Page, history.TotalPages, history.TotalSteps)

	for _, step := range history.Steps {
		status := "✓"
		if !step.Success {
			status = "✗"
		}
		fmt.Fprintf(&b, "%d. %s %v→%v %s [Battery: %d]\n",
			step.StepNumber, step.Action, step.From, step.To, status, step.Battery)
	}

	return b.String()
}

func formatCurrentSegment(state *engine.MissionState) string {
	if state == nil {
		return "Current Segment: unavailable"
	}
	header := fmt.Sprintf("Current Segment (since last reset), steps: %d\n\n", state.CurrentStepsCount)
	if len(state.CurrentSteps) == 0 {
		return header + "(no steps in current segment)"
	}
	var b strings.Builder
	b.WriteString(header)
	for i, step := range state.CurrentSteps {
		status := "✓"
		if !step.Success {
			status = "✗"
		}
		fmt.Fprintf(&b, "%d. %s %v→%v %s [Battery: %d]\n", i+1, step.Action, step.From, step.To, status, step.Battery)
	}
	return b.String()
}
