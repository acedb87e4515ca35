package bridge

import (
	"path/filepath"
	"testing"

	"github.com/imagray/agentcontrol/internal/util"
)

const yamlConfig = `version: 1
root: docs
sections:
  architecture_overview:
    mode: managed
    target: architecture/overview.md
    marker: agentcontrol-architecture-overview
    insert_after_heading: "# Architecture Overview"
  adr_index:
    mode: managed
    target: adr/index.md
  rfc_index:
    mode: managed
    target: rfc/index.md
  adr_entry:
    mode: file
    target_template: adr/{id}.md
  rfc_entry:
    mode: file
    target_template: rfc/{id}.md
  site_nav:
    mode: external
    adapter: mkdocs
    target: mkdocs.yml
`

const tomlConfig = `version = 1
root = "documentation"

[sections.architecture_overview]
mode = "managed"
target = "architecture/overview.md"

[sections.adr_index]
mode = "managed"
target = "adr/index.md"

[sections.rfc_index]
mode = "managed"
target = "rfc/index.md"

[sections.adr_entry]
mode = "file"
target_template = "adr/{id}.md"

[sections.rfc_entry]
mode = "file"
target_template = "rfc/{id}.md"
`

func TestLoadYAMLPreservesOrder(t *testing.T) {
	dir := util.CreateTempDir(t)
	util.WriteFile(t, util.ConfigPath(dir), yamlConfig)

	cfg, path, err := NewLoader().Load(dir)
	util.AssertNoError(t, err)
	util.AssertEqual(t, path, util.ConfigPath(dir))

	names := cfg.Names()
	util.AssertEqual(t, len(names), 6)
	util.AssertEqual(t, names[0], "architecture_overview")
	util.AssertEqual(t, names[5], "site_nav")

	spec, err := cfg.Section("architecture_overview")
	util.AssertNoError(t, err)
	if spec.Insertion == nil || spec.Insertion.Value != "# Architecture Overview" {
		t.Errorf("insertion policy lost in load: %+v", spec.Insertion)
	}
}

func TestLoadTOMLVariant(t *testing.T) {
	dir := util.CreateTempDir(t)
	util.WriteFile(t, util.TOMLConfigPath(dir), tomlConfig)

	cfg, path, err := NewLoader().Load(dir)
	util.AssertNoError(t, err)
	util.AssertEqual(t, path, util.TOMLConfigPath(dir))
	util.AssertEqual(t, cfg.Root, "documentation")
	util.AssertEqual(t, len(cfg.Names()), 5)
}

func TestLoadFallsBackToDefault(t *testing.T) {
	dir := util.CreateTempDir(t)

	cfg, path, err := NewLoader().Load(dir)
	util.AssertNoError(t, err)
	util.AssertEqual(t, path, util.ConfigPath(dir))
	util.AssertEqual(t, cfg.Root, DefaultRoot)
	util.AssertEqual(t, len(cfg.Names()), 5)
}

func TestLoadLegacyLocation(t *testing.T) {
	dir := util.CreateTempDir(t)
	util.WriteFile(t, util.LegacyConfigPath(dir), yamlConfig)

	cfg, path, err := NewLoader().Load(dir)
	util.AssertNoError(t, err)
	util.AssertEqual(t, path, util.LegacyConfigPath(dir))
	util.AssertEqual(t, len(cfg.Names()), 6)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := util.CreateTempDir(t)
	util.WriteFile(t, util.ConfigPath(dir), "sections: [not, a, mapping]\n")

	_, _, err := NewLoader().Load(dir)
	assertConfigError(t, err, CodeInvalidConfig)
}

func TestLoadPathCachesParsedConfig(t *testing.T) {
	dir := util.CreateTempDir(t)
	path := util.ConfigPath(dir)
	util.WriteFile(t, path, yamlConfig)

	loader := NewLoader()
	first, err := loader.LoadPath(path)
	util.AssertNoError(t, err)
	second, err := loader.LoadPath(path)
	util.AssertNoError(t, err)
	if first != second {
		t.Error("unchanged config file was re-parsed")
	}
	util.AssertEqual(t, filepath.Base(path), "docs.bridge.yaml")
}
