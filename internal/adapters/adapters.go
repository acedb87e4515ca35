// Package adapters translates section content into third-party
// publishing systems (MkDocs navigation, Docusaurus sidebars,
// Confluence payloads). Adapters are resolved by name from a closed
// registry; unknown names fail at construction time, not invocation.
package adapters

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/imagray/agentcontrol/internal/bridge"
	"github.com/imagray/agentcontrol/internal/util"
)

// SectionContent carries the expected content for one section as
// produced by the generator collaborator. Managed and single-file
// sections use Content; templated sections use Entries keyed by
// identifier.
type SectionContent struct {
	Content string
	Entries map[string]string
}

// Action records one mutation performed by an adapter.
type Action struct {
	Name   string `json:"name"`
	Path   string `json:"path,omitempty"`
	Action string `json:"action"`
}

// DiffResult is one entry of an adapter's diff report.
type DiffResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
}

// Adapter is the four-operation contract every external publisher
// implements. Apply performs its own backup into backupRoot before
// mutating anything.
type Adapter interface {
	Diff(projectRoot string, spec bridge.SectionConfig, expected map[string]SectionContent) ([]DiffResult, error)
	Apply(projectRoot string, spec bridge.SectionConfig, expected map[string]SectionContent, backupRoot string) ([]Action, error)
	Capture(projectRoot string, spec bridge.SectionConfig) (map[string]any, error)
	Rollback(projectRoot string, spec bridge.SectionConfig, backupRoot string) ([]Action, error)
}

// registry is the closed set of known adapters. Aliases point at the
// same implementation.
var registry = map[string]Adapter{
	"mkdocs":             &MkDocsNavAdapter{},
	"mkdocs_nav":         &MkDocsNavAdapter{},
	"docusaurus":         &DocusaurusSidebarAdapter{},
	"docusaurus_sidebar": &DocusaurusSidebarAdapter{},
	"confluence":         &ConfluenceAdapter{},
}

// Lookup resolves an adapter by its configured name.
func Lookup(name string) (Adapter, error) {
	adapter, ok := registry[name]
	if !ok {
		return nil, bridge.NewConfigError(bridge.CodeInvalidConfig, "unsupported external adapter %q", name)
	}
	return adapter, nil
}

// Names returns the sorted registry names.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// optString reads a string option, falling back when absent or not a
// string.
func optString(opts map[string]any, key, fallback string) string {
	if v, ok := opts[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// displayName picks the adapter entry name the way every adapter does:
// explicit option, then marker, then mode.
func displayName(spec bridge.SectionConfig, optionKey string) string {
	fallback := spec.Marker
	if fallback == "" {
		fallback = string(spec.Mode)
	}
	return optString(spec.Options, optionKey, fallback)
}

// backupInto mirrors path's current bytes under backupRoot at its
// project-relative location.
func backupInto(backupRoot, projectRoot, path string) error {
	content, err := os.ReadFile(path) // #nosec G304 - path derived from validated config
	if err != nil {
		return fmt.Errorf("failed to read %q for backup: %w", path, err)
	}
	rel := util.RelToProject(projectRoot, path)
	dest := filepath.Join(backupRoot, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return fmt.Errorf("failed to create backup directory for %q: %w", path, err)
	}
	if err := os.WriteFile(dest, content, 0o640); err != nil {
		return fmt.Errorf("failed to back up %q: %w", path, err)
	}
	return nil
}

// restoreFrom copies path's backup (if captured) back over the target.
// The first return value is false when the backup holds no copy.
func restoreFrom(backupRoot, projectRoot, path string) (bool, error) {
	rel := util.RelToProject(projectRoot, path)
	backupPath := filepath.Join(backupRoot, filepath.FromSlash(rel))
	content, err := os.ReadFile(backupPath) // #nosec G304 - path inside backup snapshot
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read backup %q: %w", backupPath, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return false, fmt.Errorf("failed to create directory for %q: %w", path, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil { // #nosec G306 - docs are user-readable
		return false, fmt.Errorf("failed to restore %q: %w", path, err)
	}
	return true, nil
}
