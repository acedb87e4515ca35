package adapters

import (
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/imagray/agentcontrol/internal/bridge"
	"github.com/imagray/agentcontrol/internal/util"
)

func mkdocsSpec(options map[string]any) bridge.SectionConfig {
	return bridge.SectionConfig{
		Mode:    bridge.ModeExternal,
		Adapter: "mkdocs",
		Target:  "mkdocs.yml",
		Options: options,
	}
}

func TestMkDocsDiffMissingFile(t *testing.T) {
	project := util.CreateTempDir(t)
	adapter := &MkDocsNavAdapter{}

	results, err := adapter.Diff(project, mkdocsSpec(nil), nil)
	util.AssertNoError(t, err)
	util.AssertEqual(t, len(results), 1)
	util.AssertEqual(t, results[0].Status, "missing")
}

func TestMkDocsApplyInsertsNavEntry(t *testing.T) {
	project := util.CreateTempDir(t)
	backup := util.CreateTempDir(t)
	configPath := filepath.Join(project, "mkdocs.yml")
	util.WriteFile(t, configPath, "site_name: Demo\nnav:\n  - Home: index.md\n")

	adapter := &MkDocsNavAdapter{}
	spec := mkdocsSpec(map[string]any{
		"title":        "Architecture",
		"doc":          "architecture/overview.md",
		"insert_after": "Home",
	})

	actions, err := adapter.Apply(project, spec, nil, backup)
	util.AssertNoError(t, err)
	util.AssertEqual(t, len(actions), 1)
	util.AssertEqual(t, actions[0].Action, "updated")

	// The pre-mutation config was mirrored into the backup root.
	util.AssertEqual(t,
		util.ReadFile(t, filepath.Join(backup, "mkdocs.yml")),
		"site_name: Demo\nnav:\n  - Home: index.md\n")

	var config map[string]any
	util.AssertNoError(t, yaml.Unmarshal([]byte(util.ReadFile(t, configPath)), &config))
	nav, _ := config["nav"].([]any)
	util.AssertEqual(t, len(nav), 2)
	entry, _ := nav[1].(map[string]any)
	util.AssertEqual(t, entry["Architecture"], any("architecture/overview.md"))

	// Re-applying with the entry already present is a noop.
	actions, err = adapter.Apply(project, spec, nil, backup)
	util.AssertNoError(t, err)
	util.AssertEqual(t, actions[0].Action, "noop")
}

func TestMkDocsApplyMissingFileFails(t *testing.T) {
	project := util.CreateTempDir(t)
	adapter := &MkDocsNavAdapter{}

	_, err := adapter.Apply(project, mkdocsSpec(nil), nil, util.CreateTempDir(t))
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected missing file error, got %v", err)
	}
}

func TestMkDocsRollback(t *testing.T) {
	project := util.CreateTempDir(t)
	backup := util.CreateTempDir(t)
	configPath := filepath.Join(project, "mkdocs.yml")
	util.WriteFile(t, configPath, "site_name: Demo\nnav:\n  - Home: index.md\n")

	adapter := &MkDocsNavAdapter{}
	spec := mkdocsSpec(map[string]any{"title": "Architecture", "doc": "arch.md"})

	_, err := adapter.Apply(project, spec, nil, backup)
	util.AssertNoError(t, err)

	actions, err := adapter.Rollback(project, spec, backup)
	util.AssertNoError(t, err)
	util.AssertEqual(t, len(actions), 1)
	util.AssertEqual(t, actions[0].Action, "restored")
	util.AssertEqual(t, util.ReadFile(t, configPath),
		"site_name: Demo\nnav:\n  - Home: index.md\n")
}

func TestMkDocsRollbackWithoutBackupIsNoop(t *testing.T) {
	project := util.CreateTempDir(t)
	adapter := &MkDocsNavAdapter{}

	actions, err := adapter.Rollback(project, mkdocsSpec(nil), util.CreateTempDir(t))
	util.AssertNoError(t, err)
	util.AssertEqual(t, len(actions), 0)
}

func TestMkDocsRequiresTarget(t *testing.T) {
	adapter := &MkDocsNavAdapter{}
	spec := bridge.SectionConfig{Mode: bridge.ModeExternal, Adapter: "mkdocs"}
	_, err := adapter.Diff(util.CreateTempDir(t), spec, nil)
	if err == nil {
		t.Fatal("expected error for missing target")
	}
}
