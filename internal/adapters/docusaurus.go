package adapters

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"

	"github.com/imagray/agentcontrol/internal/bridge"
)

// DocusaurusSidebarAdapter maintains a category entry inside a
// Docusaurus sidebar JSON document.
type DocusaurusSidebarAdapter struct{}

func (a *DocusaurusSidebarAdapter) Diff(projectRoot string, spec bridge.SectionConfig, _ map[string]SectionContent) ([]DiffResult, error) {
	sidebar, path, err := a.loadSidebar(projectRoot, spec)
	if err != nil {
		return nil, err
	}
	status := "missing"
	if sidebar != nil && a.entryExists(sidebar, spec) {
		status = "match"
	}
	return []DiffResult{{Name: displayName(spec, "category"), Status: status, Path: path}}, nil
}

func (a *DocusaurusSidebarAdapter) Apply(projectRoot string, spec bridge.SectionConfig, _ map[string]SectionContent, backupRoot string) ([]Action, error) {
	sidebar, path, err := a.loadSidebar(projectRoot, spec)
	if err != nil {
		return nil, err
	}
	if sidebar == nil {
		return nil, fmt.Errorf("docusaurus sidebar file %q not found", path)
	}
	name := displayName(spec, "category")
	if a.entryExists(sidebar, spec) {
		return []Action{{Name: name, Path: path, Action: "noop"}}, nil
	}
	a.ensureEntry(sidebar, spec)
	if err := backupInto(backupRoot, projectRoot, path); err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(sidebar, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to render sidebar: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil { // #nosec G306 - docs config is user-readable
		return nil, fmt.Errorf("failed to write %q: %w", path, err)
	}
	return []Action{{Name: name, Path: path, Action: "updated"}}, nil
}

func (a *DocusaurusSidebarAdapter) Capture(projectRoot string, spec bridge.SectionConfig) (map[string]any, error) {
	sidebar, path, err := a.loadSidebar(projectRoot, spec)
	if err != nil {
		return nil, err
	}
	return map[string]any{"path": path, "sidebar": sidebar}, nil
}

func (a *DocusaurusSidebarAdapter) Rollback(projectRoot string, spec bridge.SectionConfig, backupRoot string) ([]Action, error) {
	path, err := a.targetPath(projectRoot, spec)
	if err != nil {
		return nil, err
	}
	restored, err := restoreFrom(backupRoot, projectRoot, path)
	if err != nil || !restored {
		return nil, err
	}
	return []Action{{Name: displayName(spec, "category"), Path: path, Action: "restored"}}, nil
}

func (a *DocusaurusSidebarAdapter) targetPath(projectRoot string, spec bridge.SectionConfig) (string, error) {
	if spec.Target == "" {
		return "", bridge.NewConfigError(bridge.CodeInvalidConfig, "docusaurus adapter requires 'target' to be defined")
	}
	return spec.ResolvePath(projectRoot, "")
}

func (a *DocusaurusSidebarAdapter) loadSidebar(projectRoot string, spec bridge.SectionConfig) (map[string]any, string, error) {
	path, err := a.targetPath(projectRoot, spec)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path) // #nosec G304 - path derived from validated config
	if err != nil {
		if os.IsNotExist(err) {
			return nil, path, nil
		}
		return nil, path, fmt.Errorf("failed to read %q: %w", path, err)
	}
	sidebar := make(map[string]any)
	if err := json.Unmarshal(data, &sidebar); err != nil {
		return nil, path, fmt.Errorf("invalid JSON in %q: %w", path, err)
	}
	return sidebar, path, nil
}

func (a *DocusaurusSidebarAdapter) targetEntry(spec bridge.SectionConfig) map[string]any {
	return map[string]any{
		"type": "doc",
		"id":   optString(spec.Options, "doc_id", "architecture-overview"),
	}
}

// ensureEntry creates the configured category when absent and appends
// the doc entry to its items.
func (a *DocusaurusSidebarAdapter) ensureEntry(sidebar map[string]any, spec bridge.SectionConfig) {
	sidebarKey := optString(spec.Options, "sidebar", "docs")
	category := optString(spec.Options, "category", "Architecture")
	target := a.targetEntry(spec)

	entries, _ := sidebar[sidebarKey].([]any)
	var categoryEntry map[string]any
	for _, item := range entries {
		if m, ok := item.(map[string]any); ok && m["label"] == category {
			categoryEntry = m
			break
		}
	}
	if categoryEntry == nil {
		categoryEntry = map[string]any{"type": "category", "label": category, "items": []any{}}
		entries = append(entries, categoryEntry)
	}
	items, _ := categoryEntry["items"].([]any)
	for _, item := range items {
		if reflect.DeepEqual(item, target) {
			sidebar[sidebarKey] = entries
			return
		}
	}
	categoryEntry["items"] = append(items, target)
	sidebar[sidebarKey] = entries
}

func (a *DocusaurusSidebarAdapter) entryExists(sidebar map[string]any, spec bridge.SectionConfig) bool {
	sidebarKey := optString(spec.Options, "sidebar", "docs")
	category := optString(spec.Options, "category", "Architecture")
	target := a.targetEntry(spec)

	entries, _ := sidebar[sidebarKey].([]any)
	for _, item := range entries {
		m, ok := item.(map[string]any)
		if !ok || m["label"] != category {
			continue
		}
		items, _ := m["items"].([]any)
		for _, existing := range items {
			if reflect.DeepEqual(existing, target) {
				return true
			}
		}
	}
	return false
}
