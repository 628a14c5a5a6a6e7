package workspace

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/adorable-labs/adorable-backend/config"
)

// Manager provisions per-project working directories under a single root and
// publishes one of them to the shared live-preview directory. Workspaces are
// created lazily from the scaffold and never deleted here.
type Manager struct {
	root     string
	scaffold string
	live     string
	// preserved subtrees survive Sync in the live directory and are never
	// copied into it; keeps dependency caches from being reinstalled on
	// every publish.
	preserved []string
}

// NewManager creates a workspace manager rooted at cfg.Root.
func NewManager(cfg *config.WorkspaceConfig) *Manager {
	return &Manager{
		root:      cfg.Root,
		scaffold:  filepath.Join(cfg.Root, cfg.ScaffoldDir),
		live:      filepath.Join(cfg.Root, cfg.LiveDir),
		preserved: []string{"node_modules"},
	}
}

// Path returns the working directory for a project.
func (m *Manager) Path(projectID string) string {
	return filepath.Join(m.root, projectID)
}

// LivePath returns the shared live-preview directory.
func (m *Manager) LivePath() string {
	return m.live
}

// Ensure lazily provisions the project's workspace. The first call creates
// the directory and copies the scaffold into it verbatim; any later call is
// a no-op. A failed seed removes the directory again so a retry starts
// clean instead of finding a half-copied tree that looks ready.
func (m *Manager) Ensure(projectID string) error {
	projectDir := m.Path(projectID)

	if _, err := os.Stat(projectDir); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat workspace %s: %w", projectDir, err)
	}

	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		return fmt.Errorf("create workspace %s: %w", projectDir, err)
	}

	if err := copyTree(m.scaffold, projectDir); err != nil {
		_ = os.RemoveAll(projectDir)
		return fmt.Errorf("seed workspace %s from scaffold: %w", projectDir, err)
	}

	log.Printf("workspace %s provisioned from scaffold", projectID)
	return nil
}

// Sync makes the live-preview directory an exact mirror of the project's
// workspace, except for the preserved dependency-cache subtrees. The mirror
// is destructive and non-transactional, but it is a deterministic function
// of the workspace contents, so re-running after a partial failure
// converges. Concurrent calls for different projects are last-writer-wins:
// there is one preview per process.
func (m *Manager) Sync(projectID string) error {
	projectDir := m.Path(projectID)

	if _, err := os.Stat(projectDir); err != nil {
		return fmt.Errorf("workspace for project %s not provisioned: %w", projectID, err)
	}

	log.Printf("sync of project %s to live preview started", projectID)
	if err := mirror(projectDir, m.live, m.preserved); err != nil {
		return fmt.Errorf("sync project %s to live preview: %w", projectID, err)
	}
	log.Printf("sync of project %s to live preview finished", projectID)
	return nil
}
