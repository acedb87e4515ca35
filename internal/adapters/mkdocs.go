package adapters

import (
	"fmt"
	"os"
	"reflect"

	"gopkg.in/yaml.v3"

	"github.com/imagray/agentcontrol/internal/bridge"
)

// MkDocsNavAdapter keeps an MkDocs configuration's nav list pointing at
// the generated architecture docs.
type MkDocsNavAdapter struct{}

func (a *MkDocsNavAdapter) Diff(projectRoot string, spec bridge.SectionConfig, _ map[string]SectionContent) ([]DiffResult, error) {
	nav, path, err := a.loadConfig(projectRoot, spec)
	if err != nil {
		return nil, err
	}
	status := "missing"
	if nav != nil && entryInList(navList(nav), a.navEntry(spec)) {
		status = "match"
	}
	return []DiffResult{{Name: displayName(spec, "name"), Status: status, Path: path}}, nil
}

func (a *MkDocsNavAdapter) Apply(projectRoot string, spec bridge.SectionConfig, _ map[string]SectionContent, backupRoot string) ([]Action, error) {
	nav, path, err := a.loadConfig(projectRoot, spec)
	if err != nil {
		return nil, err
	}
	if nav == nil {
		return nil, fmt.Errorf("mkdocs configuration file %q not found", path)
	}
	name := displayName(spec, "name")
	changed, err := a.ensureNav(nav, spec)
	if err != nil {
		return nil, err
	}
	if !changed {
		return []Action{{Name: name, Path: path, Action: "noop"}}, nil
	}
	if err := backupInto(backupRoot, projectRoot, path); err != nil {
		return nil, err
	}
	data, err := yaml.Marshal(nav)
	if err != nil {
		return nil, fmt.Errorf("failed to render mkdocs config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { // #nosec G306 - docs config is user-readable
		return nil, fmt.Errorf("failed to write %q: %w", path, err)
	}
	return []Action{{Name: name, Path: path, Action: "updated"}}, nil
}

func (a *MkDocsNavAdapter) Capture(projectRoot string, spec bridge.SectionConfig) (map[string]any, error) {
	nav, path, err := a.loadConfig(projectRoot, spec)
	if err != nil {
		return nil, err
	}
	return map[string]any{"path": path, "nav": nav}, nil
}

func (a *MkDocsNavAdapter) Rollback(projectRoot string, spec bridge.SectionConfig, backupRoot string) ([]Action, error) {
	path, err := a.targetPath(projectRoot, spec)
	if err != nil {
		return nil, err
	}
	restored, err := restoreFrom(backupRoot, projectRoot, path)
	if err != nil || !restored {
		return nil, err
	}
	return []Action{{Name: displayName(spec, "name"), Path: path, Action: "restored"}}, nil
}

func (a *MkDocsNavAdapter) targetPath(projectRoot string, spec bridge.SectionConfig) (string, error) {
	if spec.Target == "" {
		return "", bridge.NewConfigError(bridge.CodeInvalidConfig, "mkdocs adapter requires 'target' to be defined")
	}
	return spec.ResolvePath(projectRoot, "")
}

// loadConfig returns a nil map when the file does not exist.
func (a *MkDocsNavAdapter) loadConfig(projectRoot string, spec bridge.SectionConfig) (map[string]any, string, error) {
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
	config := make(map[string]any)
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, path, fmt.Errorf("invalid YAML in %q: %w", path, err)
	}
	return config, path, nil
}

func (a *MkDocsNavAdapter) ensureNav(config map[string]any, spec bridge.SectionConfig) (bool, error) {
	entry := a.navEntry(spec)
	list := navList(config)
	if entryInList(list, entry) {
		return false, nil
	}
	index := len(list)
	if after := optString(spec.Options, "insert_after", ""); after != "" {
		index = findInsertIndex(list, after)
	}
	updated := make([]any, 0, len(list)+1)
	updated = append(updated, list[:index]...)
	updated = append(updated, entry)
	updated = append(updated, list[index:]...)
	config["nav"] = updated
	return true, nil
}

// navEntry builds the nav item to maintain: an explicit 'entry' option
// wins, otherwise {title: doc} from the title/doc options.
func (a *MkDocsNavAdapter) navEntry(spec bridge.SectionConfig) any {
	if entry, ok := spec.Options["entry"]; ok && entry != nil {
		return entry
	}
	title := optString(spec.Options, "title", "Architecture")
	doc := optString(spec.Options, "doc", spec.Target)
	return map[string]any{title: doc}
}

func navList(config map[string]any) []any {
	if list, ok := config["nav"].([]any); ok {
		return list
	}
	return nil
}

func entryInList(list []any, entry any) bool {
	for _, item := range list {
		if reflect.DeepEqual(item, entry) {
			return true
		}
	}
	return false
}

func findInsertIndex(list []any, insertAfter string) int {
	for idx, item := range list {
		switch v := item.(type) {
		case map[string]any:
			if _, ok := v[insertAfter]; ok {
				return idx + 1
			}
		case string:
			if v == insertAfter {
				return idx + 1
			}
		}
	}
	return len(list)
}
