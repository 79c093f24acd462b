package session

import (
	"os"
	"testing"
	"time"

	"github.com/wricardo/drone-coverage-planner/game/world"
)

func TestManagerWithPersistence(t *testing.T) {
	persistence, configManager, tempDir := newTestPersistence(t)

	// Create manager with persistence
	manager := NewManagerWithPersistence(persistence)

	t.Run("Create Session Auto-Saves", func(t *testing.T) {
		session, err := manager.Create("auto1", configManager.GetDefault())
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}

		if !persistence.Exists(session.ID) {
			t.Error("Session should be auto-saved on creation")
		}

		loadedSession, err := persistence.Load(session.ID)
		if err != nil {
			t.Fatalf("Failed to load auto-saved session: %v", err)
		}
		if loadedSession.ID != session.ID {
			t.Errorf("Expected ID %s, got %s", session.ID, loadedSession.ID)
		}
	})

	t.Run("Get Session Loads from Persistence", func(t *testing.T) {
		// New manager with no in-memory sessions
		manager2 := NewManagerWithPersistence(persistence)

		session, err := manager2.Get("auto1")
		if err != nil {
			t.Fatalf("Failed to get session from persistence: %v", err)
		}
		if session.ID != "auto1" {
			t.Errorf("Expected ID auto1, got %s", session.ID)
		}

		// Now cached in memory
		session2, err := manager2.Get("auto1")
		if err != nil {
			t.Fatalf("Failed to get session from memory: %v", err)
		}
		if session2 != session {
			t.Error("Session should be cached in memory after loading from persistence")
		}
	})

	t.Run("Save Method Persists Changes", func(t *testing.T) {
		session, err := manager.Get("auto1")
		if err != nil {
			t.Fatalf("Failed to get session: %v", err)
		}

		if _, err := session.Engine.PlanMission(""); err != nil {
			t.Fatalf("PlanMission failed: %v", err)
		}
		session.Engine.Run(4)
		pos := session.Engine.GetPosition()

		if err := manager.Save("auto1"); err != nil {
			t.Fatalf("Failed to save session: %v", err)
		}

		manager3 := NewManagerWithPersistence(persistence)
		loadedSession, err := manager3.Get("auto1")
		if err != nil {
			t.Fatalf("Failed to load session after manual save: %v", err)
		}

		if loadedSession.Engine.GetPosition() != pos {
			t.Errorf("Expected persisted position %v, got %v", pos, loadedSession.Engine.GetPosition())
		}
		if loadedSession.Engine.GetPosition() == (world.Cell{Row: 0, Col: 0}) {
			t.Error("Drone should have left home")
		}
		if len(loadedSession.Engine.GetStepHistory()) != 4 {
			t.Errorf("Expected 4 persisted steps, got %d", len(loadedSession.Engine.GetStepHistory()))
		}
	})

	t.Run("Delete Removes from Persistence", func(t *testing.T) {
		session, err := manager.Create("delete_test", configManager.GetDefault())
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}

		if !persistence.Exists(session.ID) {
			t.Error("Session should exist in persistence")
		}

		if err := manager.Delete(session.ID); err != nil {
			t.Fatalf("Failed to delete session: %v", err)
		}

		if persistence.Exists(session.ID) {
			t.Error("Session should be removed from persistence on delete")
		}

		if _, err := manager.Get(session.ID); err == nil {
			t.Error("Should not be able to get deleted session")
		}
	})

	t.Run("Load Persisted Sessions on Startup", func(t *testing.T) {
		sessions := []string{"startup1", "startup2", "startup3"}
		for _, id := range sessions {
			if _, err := manager.Create(id, configManager.GetDefault()); err != nil {
				t.Fatalf("Failed to create session %s: %v", id, err)
			}
		}

		// Simulates a server restart
		manager4 := NewManagerWithPersistence(persistence)
		if err := manager4.LoadPersistedSessions(); err != nil {
			t.Fatalf("Failed to load persisted sessions: %v", err)
		}

		for _, id := range sessions {
			session, err := manager4.Get(id)
			if err != nil {
				t.Fatalf("Failed to get session %s after loading persisted sessions: %v", id, err)
			}
			if session.ID != id {
				t.Errorf("Expected ID %s, got %s", id, session.ID)
			}
		}

		// auto1 and the three startup sessions
		if manager4.Count() != 4 {
			t.Errorf("Expected 4 sessions, got %d", manager4.Count())
		}
	})

	t.Run("Save All Persists Last Access", func(t *testing.T) {
		session, err := manager.Get("startup1")
		if err != nil {
			t.Fatalf("Failed to get session: %v", err)
		}

		originalTime := session.LastAccessedAt
		time.Sleep(10 * time.Millisecond)

		if err := manager.UpdateLastAccessed("startup1"); err != nil {
			t.Fatalf("Failed to update last accessed: %v", err)
		}
		if err := manager.SaveAllSessions(); err != nil {
			t.Fatalf("SaveAllSessions failed: %v", err)
		}

		manager5 := NewManagerWithPersistence(persistence)
		loadedSession, err := manager5.Get("startup1")
		if err != nil {
			t.Fatalf("Failed to load session: %v", err)
		}

		if !loadedSession.LastAccessedAt.After(originalTime) {
			t.Error("Last accessed time should be updated and persisted")
		}
	})

	t.Run("Prune Sessions Whose File Disappeared", func(t *testing.T) {
		if err := os.Remove(persistence.getFilePath("startup2")); err != nil {
			t.Fatalf("Failed to remove session file: %v", err)
		}

		pruned := manager.PruneMissing()
		if len(pruned) != 1 || pruned[0] != "startup2" {
			t.Errorf("Expected startup2 pruned, got %v", pruned)
		}
		if _, err := manager.Get("startup2"); err != ErrSessionNotFound {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("Expired Sessions Reload From Storage", func(t *testing.T) {
		session, err := manager.Get("startup3")
		if err != nil {
			t.Fatalf("Failed to get session: %v", err)
		}
		session.LastAccessedAt = time.Now().Add(-48 * time.Hour)

		if removed := manager.CleanupExpiredSessions(24 * time.Hour); removed < 1 {
			t.Errorf("Expected at least 1 session removed, got %d", removed)
		}
		if _, err := manager.Get("startup3"); err != nil {
			t.Errorf("Expected expired session to reload from %s, got %v", tempDir, err)
		}
	})
}
