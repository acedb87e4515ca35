package adapters

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/imagray/agentcontrol/internal/bridge"
	"github.com/imagray/agentcontrol/internal/util"
)

// ConfluenceAdapter renders JSON payloads for Confluence page updates.
// The payload is handed to an external publisher; no network I/O
// happens here.
type ConfluenceAdapter struct{}

func (a *ConfluenceAdapter) Diff(projectRoot string, spec bridge.SectionConfig, _ map[string]SectionContent) ([]DiffResult, error) {
	path := a.payloadPath(projectRoot, spec)
	status := "missing"
	if _, err := os.Stat(path); err == nil {
		status = "pending"
	}
	return []DiffResult{{Name: displayName(spec, "title"), Status: status, Path: path}}, nil
}

func (a *ConfluenceAdapter) Apply(projectRoot string, spec bridge.SectionConfig, expected map[string]SectionContent, _ string) ([]Action, error) {
	path := a.payloadPath(projectRoot, spec)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create payload directory: %w", err)
	}
	payload := a.buildPayload(spec, expected)
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to render confluence payload: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil { // #nosec G306 - payload is user-readable
		return nil, fmt.Errorf("failed to write %q: %w", path, err)
	}
	return []Action{{Name: displayName(spec, "title"), Path: path, Action: "generated"}}, nil
}

func (a *ConfluenceAdapter) Capture(projectRoot string, spec bridge.SectionConfig) (map[string]any, error) {
	path := a.payloadPath(projectRoot, spec)
	payload := make(map[string]any)
	data, err := os.ReadFile(path) // #nosec G304 - path derived from validated config
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("invalid JSON in %q: %w", path, err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	return map[string]any{"path": path, "payload": payload}, nil
}

func (a *ConfluenceAdapter) Rollback(projectRoot string, spec bridge.SectionConfig, backupRoot string) ([]Action, error) {
	path := a.payloadPath(projectRoot, spec)
	restored, err := restoreFrom(backupRoot, projectRoot, path)
	if err != nil || !restored {
		return nil, err
	}
	return []Action{{Name: displayName(spec, "title"), Path: path, Action: "restored"}}, nil
}

func (a *ConfluenceAdapter) payloadPath(projectRoot string, spec bridge.SectionConfig) string {
	if spec.Target != "" {
		return filepath.Join(projectRoot, filepath.FromSlash(spec.Target))
	}
	slug := optString(spec.Options, "slug", "")
	if slug == "" {
		title := optString(spec.Options, "title", "architecture-overview")
		slug = strings.ReplaceAll(strings.ToLower(title), " ", "-")
	}
	return filepath.Join(projectRoot, filepath.FromSlash(util.StateDir), "confluence", slug+".json")
}

func (a *ConfluenceAdapter) buildPayload(spec bridge.SectionConfig, expected map[string]SectionContent) map[string]any {
	content := ""
	if section, ok := expected["architecture_overview"]; ok {
		content = section.Content
	}
	return map[string]any{
		"space":      spec.Options["space"],
		"ancestorId": spec.Options["ancestor_id"],
		"title":      optString(spec.Options, "title", "Architecture Overview"),
		"slug":       spec.Options["slug"],
		"payload":    map[string]any{"content": content},
	}
}
