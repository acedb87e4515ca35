package docs

import (
	"path/filepath"
	"testing"

	"github.com/imagray/agentcontrol/internal/bridge"
	"github.com/imagray/agentcontrol/internal/region"
	"github.com/imagray/agentcontrol/internal/util"
)

func newTestAggregate(t *testing.T) (*Aggregate, string) {
	t.Helper()
	project := util.CreateTempDir(t)
	ctx := Context{
		ProjectRoot: project,
		Config:      bridge.Default(),
		ConfigPath:  util.ConfigPath(project),
	}
	return NewAggregate(ctx, region.NewEngine()), project
}

// writeManaged writes a file holding one healthy managed block.
func writeManaged(t *testing.T, path, marker, content string) {
	t.Helper()
	util.WriteFile(t, path,
		region.StartMarker(marker)+"\n"+content+"\n"+region.EndMarker(marker)+"\n")
}

func TestDiagnoseEmptyProject(t *testing.T) {
	aggregate, _ := newTestAggregate(t)

	diagnosis, err := aggregate.Diagnose()
	util.AssertNoError(t, err)
	util.AssertEqual(t, diagnosis.Summary.RootExists, false)
	util.AssertEqual(t, diagnosis.Status, "warning")

	// The missing root is always reported first.
	if len(diagnosis.Issues) == 0 {
		t.Fatal("expected issues for an empty project")
	}
	util.AssertEqual(t, diagnosis.Issues[0].Code, bridge.CodeRootMissing)
	util.AssertEqual(t, diagnosis.Issues[0].Severity, SeverityWarning)

	// Every section is still probed.
	util.AssertEqual(t, len(diagnosis.Summary.Sections), 5)
	for _, section := range diagnosis.Summary.Sections {
		switch section.Mode {
		case "managed":
			util.AssertEqual(t, section.Status, StatusMissingFile)
		case "file":
			util.AssertEqual(t, section.Status, StatusMissingDirectory)
		}
	}
}

func TestDiagnoseHealthyProject(t *testing.T) {
	aggregate, project := newTestAggregate(t)
	docsRoot := filepath.Join(project, "docs")

	writeManaged(t, filepath.Join(docsRoot, "architecture", "overview.md"),
		"agentcontrol-architecture-overview", "overview")
	writeManaged(t, filepath.Join(docsRoot, "adr", "index.md"),
		"agentcontrol-adr-index", "adr index")
	writeManaged(t, filepath.Join(docsRoot, "rfc", "index.md"),
		"agentcontrol-rfc-index", "rfc index")

	diagnosis, err := aggregate.Diagnose()
	util.AssertNoError(t, err)
	util.AssertEqual(t, diagnosis.Status, StatusOK)
	util.AssertEqual(t, len(diagnosis.Issues), 0)
	for _, section := range diagnosis.Summary.Sections {
		util.AssertEqual(t, section.Status, StatusOK)
	}
}

func TestDiagnoseDowngradesCorruption(t *testing.T) {
	aggregate, project := newTestAggregate(t)
	docsRoot := filepath.Join(project, "docs")

	marker := "agentcontrol-architecture-overview"
	util.WriteFile(t, filepath.Join(docsRoot, "architecture", "overview.md"),
		region.StartMarker(marker)+"\na\n"+region.EndMarker(marker)+"\n"+
			region.StartMarker(marker)+"\nb\n"+region.EndMarker(marker)+"\n")
	writeManaged(t, filepath.Join(docsRoot, "adr", "index.md"),
		"agentcontrol-adr-index", "adr index")
	writeManaged(t, filepath.Join(docsRoot, "rfc", "index.md"),
		"agentcontrol-rfc-index", "rfc index")

	diagnosis, err := aggregate.Diagnose()
	util.AssertNoError(t, err)
	util.AssertEqual(t, diagnosis.Status, "error")
	util.AssertEqual(t, diagnosis.Summary.Sections[0].Status, StatusCorrupted)

	var corrupted *Issue
	for i := range diagnosis.Issues {
		if diagnosis.Issues[i].Code == bridge.CodeMarkerCorrupted {
			corrupted = &diagnosis.Issues[i]
		}
	}
	if corrupted == nil {
		t.Fatal("expected a corruption issue")
	}
	util.AssertEqual(t, corrupted.Severity, SeverityError)
	util.AssertEqual(t, corrupted.Section, "architecture_overview")

	// Corruption in one section never stops the scan.
	util.AssertEqual(t, len(diagnosis.Summary.Sections), 5)
	util.AssertEqual(t, diagnosis.Summary.Sections[1].Status, StatusOK)
}

func TestDiagnoseMissingMarker(t *testing.T) {
	aggregate, project := newTestAggregate(t)
	docsRoot := filepath.Join(project, "docs")

	util.WriteFile(t, filepath.Join(docsRoot, "architecture", "overview.md"), "plain file\n")
	writeManaged(t, filepath.Join(docsRoot, "adr", "index.md"),
		"agentcontrol-adr-index", "adr index")
	writeManaged(t, filepath.Join(docsRoot, "rfc", "index.md"),
		"agentcontrol-rfc-index", "rfc index")

	diagnosis, err := aggregate.Diagnose()
	util.AssertNoError(t, err)
	util.AssertEqual(t, diagnosis.Summary.Sections[0].Status, StatusMissingMarker)
	util.AssertEqual(t, diagnosis.Status, "warning")
}

func TestInspectWithoutStatus(t *testing.T) {
	aggregate, _ := newTestAggregate(t)

	summary, err := aggregate.Inspect(false)
	util.AssertNoError(t, err)
	util.AssertEqual(t, summary.Capabilities.ManagedRegions, true)
	util.AssertEqual(t, summary.Capabilities.AtomicWrites, true)
	util.AssertEqual(t, len(summary.Sections), 5)
	util.AssertEqual(t, summary.Sections[0].Name, "architecture_overview")
	util.AssertEqual(t, summary.Sections[0].Marker, "agentcontrol-architecture-overview")
	util.AssertEqual(t, summary.Sections[3].TargetTemplate, "adr/{id}.md")
	for _, section := range summary.Sections {
		util.AssertEqual(t, section.Status, "")
	}
}

func TestUpdateRegionInvalidatesCache(t *testing.T) {
	aggregate, project := newTestAggregate(t)
	path := filepath.Join(project, "docs", "adr", "index.md")
	marker := "agentcontrol-adr-index"
	writeManaged(t, path, marker, "first")

	content, found, err := aggregate.ReadRegion(path, marker)
	util.AssertNoError(t, err)
	util.AssertEqual(t, found, true)
	util.AssertEqual(t, content, "first")

	next := "second"
	change, err := aggregate.UpdateRegion(path, marker, "adr_index", &next, nil)
	util.AssertNoError(t, err)
	util.AssertEqual(t, change.Changed, true)

	content, found, err = aggregate.ReadRegion(path, marker)
	util.AssertNoError(t, err)
	util.AssertEqual(t, found, true)
	util.AssertEqual(t, content, "second")
}
