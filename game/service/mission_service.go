package service

import (
	"context"
	"time"

	"github.com/wricardo/drone-coverage-planner/game/engine"
	"github.com/wricardo/drone-coverage-planner/game/world"
)

// MissionService defines all mission-related operations
type MissionService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Mission Operations
	Plan(ctx context.Context, sessionID string, strategy engine.Strategy, reset bool) (*PlanResult, error)
	Step(ctx context.Context, sessionID string) (*StepOutcome, error)
	Run(ctx context.Context, sessionID string, maxSteps int) (*RunOutcome, error)
	ToggleObstacle(ctx context.Context, sessionID string, cell world.Cell) (*CellOutcome, error)
	SetCell(ctx context.Context, sessionID string, cell world.Cell, kind world.CellKind) (*CellOutcome, error)
	EmergencyReturn(ctx context.Context, sessionID string) (*ReturnOutcome, error)
	Reset(ctx context.Context, sessionID string) (*engine.MissionState, error)

	// Mission State
	GetMissionState(ctx context.Context, sessionID string) (*engine.MissionState, error)
	GetStepHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)
	GetMetrics(ctx context.Context, sessionID string, opts MetricsOptions) (*MetricsReport, error)
	GetGeoJSON(ctx context.Context, sessionID string) ([]byte, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.MissionConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.MissionConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, config *engine.MissionConfig) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id string, config *engine.MissionConfig) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles scenario configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.MissionConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.MissionConfig
	SaveConfig(name string, config *engine.MissionConfig) error
}

// Session represents an active mission session
type Session struct {
	ID             string
	Engine         *engine.MissionEngine
	Config         *engine.MissionConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
