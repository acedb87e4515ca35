package util

import (
	"path/filepath"
	"strings"
)

// Project-relative locations used by the docs bridge. The hidden
// .agentcontrol directory is the canonical home; the bare agentcontrol
// directory is accepted for projects created before the rename.
const (
	ConfigDir       = ".agentcontrol/config"
	LegacyConfigDir = "agentcontrol/config"
	StateDir        = ".agentcontrol/state/docs"
)

// ConfigPath returns the canonical bridge config path for a project.
func ConfigPath(projectRoot string) string {
	return filepath.Join(projectRoot, filepath.FromSlash(ConfigDir), "docs.bridge.yaml")
}

// LegacyConfigPath returns the pre-rename bridge config path.
func LegacyConfigPath(projectRoot string) string {
	return filepath.Join(projectRoot, filepath.FromSlash(LegacyConfigDir), "docs.bridge.yaml")
}

// TOMLConfigPath returns the TOML variant of the bridge config path.
func TOMLConfigPath(projectRoot string) string {
	return filepath.Join(projectRoot, filepath.FromSlash(ConfigDir), "docs.bridge.toml")
}

// StatePath returns the baseline snapshot file for a project.
func StatePath(projectRoot string) string {
	return filepath.Join(projectRoot, filepath.FromSlash(StateDir), "state.json")
}

// HistoryDir returns the backup snapshot root for a project.
func HistoryDir(projectRoot string) string {
	return filepath.Join(projectRoot, filepath.FromSlash(StateDir), "history")
}

// RelToProject rewrites path relative to projectRoot using forward
// slashes. Paths outside the project are returned unchanged (absolute).
func RelToProject(projectRoot, path string) string {
	rel, err := filepath.Rel(projectRoot, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
