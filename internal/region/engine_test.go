package region

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/imagray/agentcontrol/internal/util"
)

func strptr(s string) *string {
	return &s
}

func TestApplyCreatesFileWithBlock(t *testing.T) {
	dir := util.CreateTempDir(t)
	path := filepath.Join(dir, "docs", "overview.md")

	engine := NewEngine()
	result, err := engine.Apply(path, map[string]Operation{
		"agentcontrol-architecture-overview": {
			Section: "architecture_overview",
			Content: strptr("# Overview\n\nGenerated."),
		},
	})
	util.AssertNoError(t, err)
	util.AssertEqual(t, result.Changed, true)
	util.AssertEqual(t, len(result.Changes), 1)
	util.AssertEqual(t, result.Changes[0].Marker, "agentcontrol-architecture-overview")

	want := "<!-- agentcontrol:start:agentcontrol-architecture-overview -->\n" +
		"# Overview\n\nGenerated.\n" +
		"<!-- agentcontrol:end:agentcontrol-architecture-overview -->\n"
	util.AssertEqual(t, util.ReadFile(t, path), want)
}

func TestApplyIsIdempotent(t *testing.T) {
	dir := util.CreateTempDir(t)
	path := filepath.Join(dir, "index.md")
	engine := NewEngine()

	ops := map[string]Operation{
		"agentcontrol-adr-index": {Section: "adr_index", Content: strptr("- ADR-0001")},
	}
	_, err := engine.Apply(path, ops)
	util.AssertNoError(t, err)
	first := util.ReadFile(t, path)
	info, err := os.Stat(path)
	util.AssertNoError(t, err)
	firstMod := info.ModTime()

	result, err := engine.Apply(path, ops)
	util.AssertNoError(t, err)
	util.AssertEqual(t, result.Changed, false)
	util.AssertEqual(t, util.ReadFile(t, path), first)

	info, err = os.Stat(path)
	util.AssertNoError(t, err)
	if !info.ModTime().Equal(firstMod) {
		t.Error("unchanged apply rewrote the file")
	}
}

func TestApplyReplacesExistingBlock(t *testing.T) {
	dir := util.CreateTempDir(t)
	path := filepath.Join(dir, "index.md")
	util.WriteFile(t, path, "# Index\n\n"+
		StartMarker("m")+"\nold\n"+EndMarker("m")+"\n\ntail\n")

	engine := NewEngine()
	result, err := engine.Apply(path, map[string]Operation{
		"m": {Section: "adr_index", Content: strptr("new")},
	})
	util.AssertNoError(t, err)
	util.AssertEqual(t, result.Changed, true)

	content := util.ReadFile(t, path)
	util.AssertEqual(t, content, "# Index\n\n"+StartMarker("m")+"\nnew\n"+EndMarker("m")+"\n\ntail\n")
}

func TestApplyRemovesBlock(t *testing.T) {
	dir := util.CreateTempDir(t)
	path := filepath.Join(dir, "index.md")
	util.WriteFile(t, path, "head\n"+StartMarker("m")+"\nbody\n"+EndMarker("m")+"\ntail\n")

	engine := NewEngine()
	result, err := engine.Apply(path, map[string]Operation{
		"m": {Section: "adr_index", Content: nil},
	})
	util.AssertNoError(t, err)
	util.AssertEqual(t, result.Changed, true)

	content := util.ReadFile(t, path)
	if strings.Contains(content, StartMarker("m")) || strings.Contains(content, "body") {
		t.Errorf("block not removed: %q", content)
	}
}

func TestApplyMultipleMarkersSingleWrite(t *testing.T) {
	dir := util.CreateTempDir(t)
	path := filepath.Join(dir, "index.md")

	engine := NewEngine()
	result, err := engine.Apply(path, map[string]Operation{
		"b-marker": {Section: "rfc_index", Content: strptr("rfc")},
		"a-marker": {Section: "adr_index", Content: strptr("adr")},
	})
	util.AssertNoError(t, err)
	util.AssertEqual(t, len(result.Changes), 2)
	// Markers are processed in sorted order.
	util.AssertEqual(t, result.Changes[0].Marker, "a-marker")
	util.AssertEqual(t, result.Changes[1].Marker, "b-marker")

	content := util.ReadFile(t, path)
	if strings.Index(content, StartMarker("a-marker")) > strings.Index(content, StartMarker("b-marker")) {
		t.Errorf("blocks out of order: %q", content)
	}
	util.AssertEqual(t, strings.HasSuffix(content, "\n"), true)
}

func TestReadRoundTrip(t *testing.T) {
	dir := util.CreateTempDir(t)
	path := filepath.Join(dir, "index.md")
	engine := NewEngine()

	_, err := engine.Apply(path, map[string]Operation{
		"m": {Section: "adr_index", Content: strptr("\n\nbody text\n\n")},
	})
	util.AssertNoError(t, err)

	content, found, err := engine.Read(path, "m")
	util.AssertNoError(t, err)
	util.AssertEqual(t, found, true)
	util.AssertEqual(t, content, "body text")
}

func TestReadMissingFileAndMarker(t *testing.T) {
	dir := util.CreateTempDir(t)
	engine := NewEngine()

	_, found, err := engine.Read(filepath.Join(dir, "absent.md"), "m")
	util.AssertNoError(t, err)
	util.AssertEqual(t, found, false)

	path := filepath.Join(dir, "plain.md")
	util.WriteFile(t, path, "no markers here\n")
	_, found, err = engine.Read(path, "m")
	util.AssertNoError(t, err)
	util.AssertEqual(t, found, false)
}

func TestCorruptionDetection(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		reason string
	}{
		{
			name:   "unbalanced",
			text:   StartMarker("m") + "\na\n" + EndMarker("m") + "\n" + StartMarker("m") + "\nb\n",
			reason: ReasonUnbalanced,
		},
		{
			name: "duplicate",
			text: StartMarker("m") + "\na\n" + EndMarker("m") + "\n" +
				StartMarker("m") + "\nb\n" + EndMarker("m") + "\n",
			reason: ReasonDuplicate,
		},
		{
			name:   "end before start",
			text:   EndMarker("m") + "\nbody\n" + StartMarker("m") + "\n",
			reason: ReasonMalformed,
		},
	}

	engine := NewEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := util.CreateTempDir(t)
			path := filepath.Join(dir, "corrupt.md")
			util.WriteFile(t, path, tt.text)

			_, _, err := engine.Read(path, "m")
			var corruption *CorruptionError
			if !errors.As(err, &corruption) {
				t.Fatalf("expected CorruptionError, got %v", err)
			}
			util.AssertEqual(t, corruption.Reason, tt.reason)
			util.AssertEqual(t, corruption.Marker, "m")

			// The file must be left untouched on a failed apply.
			_, applyErr := engine.Apply(path, map[string]Operation{
				"m": {Section: "s", Content: strptr("replacement")},
			})
			if !errors.As(applyErr, &corruption) {
				t.Fatalf("expected CorruptionError from apply, got %v", applyErr)
			}
			util.AssertEqual(t, util.ReadFile(t, path), tt.text)
		})
	}
}

func TestInsertAfterHeading(t *testing.T) {
	dir := util.CreateTempDir(t)
	path := filepath.Join(dir, "overview.md")
	util.WriteFile(t, path, "# Architecture Overview\n\nLegacy\n")

	engine := NewEngine()
	_, err := engine.Apply(path, map[string]Operation{
		"agentcontrol-architecture-overview": {
			Section:   "architecture_overview",
			Content:   strptr("generated body"),
			Insertion: &InsertionPolicy{Kind: InsertAfterHeading, Value: "# Architecture Overview"},
		},
	})
	util.AssertNoError(t, err)

	content := util.ReadFile(t, path)
	lines := strings.Split(content, "\n")
	headingLine := -1
	startLine := -1
	for i, line := range lines {
		if line == "# Architecture Overview" {
			headingLine = i
		}
		if line == StartMarker("agentcontrol-architecture-overview") {
			startLine = i
		}
	}
	if headingLine < 0 || startLine <= headingLine {
		t.Fatalf("block not inserted after heading: %q", content)
	}
	if !strings.Contains(content, "Legacy") {
		t.Errorf("pre-existing content lost: %q", content)
	}
}

func TestInsertAfterHeadingWithoutBlankLine(t *testing.T) {
	dir := util.CreateTempDir(t)
	path := filepath.Join(dir, "overview.md")
	util.WriteFile(t, path, "# Title\nimmediate text\n")

	engine := NewEngine()
	_, err := engine.Apply(path, map[string]Operation{
		"m": {
			Section:   "s",
			Content:   strptr("body"),
			Insertion: &InsertionPolicy{Kind: InsertAfterHeading, Value: "# Title"},
		},
	})
	util.AssertNoError(t, err)

	content := util.ReadFile(t, path)
	want := "# Title\n" + StartMarker("m") + "\nbody\n" + EndMarker("m") + "\n\nimmediate text\n"
	util.AssertEqual(t, content, want)
}

func TestInsertBeforeMarker(t *testing.T) {
	dir := util.CreateTempDir(t)
	path := filepath.Join(dir, "index.md")
	util.WriteFile(t, path, "intro\n"+StartMarker("anchor")+"\nanchored\n"+EndMarker("anchor")+"\n")

	engine := NewEngine()
	_, err := engine.Apply(path, map[string]Operation{
		"m": {
			Section:   "s",
			Content:   strptr("inserted"),
			Insertion: &InsertionPolicy{Kind: InsertBeforeMarker, Value: "anchor"},
		},
	})
	util.AssertNoError(t, err)

	content := util.ReadFile(t, path)
	if strings.Index(content, StartMarker("m")) > strings.Index(content, StartMarker("anchor")) {
		t.Errorf("block not inserted before anchor: %q", content)
	}
}

func TestInsertionFallsBackToAppend(t *testing.T) {
	dir := util.CreateTempDir(t)
	path := filepath.Join(dir, "index.md")
	util.WriteFile(t, path, "existing\n")

	engine := NewEngine()
	_, err := engine.Apply(path, map[string]Operation{
		"m": {
			Section:   "s",
			Content:   strptr("body"),
			Insertion: &InsertionPolicy{Kind: InsertAfterHeading, Value: "# Nowhere"},
		},
	})
	util.AssertNoError(t, err)

	content := util.ReadFile(t, path)
	util.AssertEqual(t, content, "existing\n"+StartMarker("m")+"\nbody\n"+EndMarker("m")+"\n")
}

func TestWriteFileAtomicReplace(t *testing.T) {
	dir := util.CreateTempDir(t)
	path := filepath.Join(dir, "nested", "file.md")

	util.AssertNoError(t, WriteFile(path, "first\n"))
	util.AssertEqual(t, util.ReadFile(t, path), "first\n")

	util.AssertNoError(t, WriteFile(path, "second\n"))
	util.AssertEqual(t, util.ReadFile(t, path), "second\n")

	// No temp files may survive a completed write.
	entries, err := os.ReadDir(filepath.Dir(path))
	util.AssertNoError(t, err)
	util.AssertEqual(t, len(entries), 1)
}
