package bridge

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/imagray/agentcontrol/internal/region"
	"github.com/imagray/agentcontrol/internal/util"
)

func baseDocument() Document {
	return Document{
		Version: DefaultVersion,
		Root:    "docs",
		SectionNames: []string{
			"architecture_overview", "adr_index", "rfc_index", "adr_entry", "rfc_entry",
		},
		Sections: map[string]RawSection{
			"architecture_overview": {Mode: "managed", Target: "architecture/overview.md"},
			"adr_index":             {Mode: "managed", Target: "adr/index.md"},
			"rfc_index":             {Mode: "managed", Target: "rfc/index.md"},
			"adr_entry":             {Mode: "file", TargetTemplate: "adr/{id}.md"},
			"rfc_entry":             {Mode: "file", TargetTemplate: "rfc/{id}.md"},
		},
	}
}

func TestFromDocumentValid(t *testing.T) {
	cfg, err := FromDocument(baseDocument(), "test.yaml")
	util.AssertNoError(t, err)
	util.AssertEqual(t, cfg.Version, 1)
	util.AssertEqual(t, cfg.Root, "docs")
	util.AssertEqual(t, len(cfg.Names()), 5)
	// Declaration order survives.
	util.AssertEqual(t, cfg.Names()[0], "architecture_overview")
	util.AssertEqual(t, cfg.Names()[4], "rfc_entry")
}

func TestFromDocumentRejectsUnknownVersion(t *testing.T) {
	doc := baseDocument()
	doc.Version = 2
	_, err := FromDocument(doc, "test.yaml")
	assertConfigError(t, err, CodeInvalidConfig)
}

func TestFromDocumentReportsAllMissingSections(t *testing.T) {
	doc := baseDocument()
	delete(doc.Sections, "rfc_entry")
	delete(doc.Sections, "adr_entry")
	doc.SectionNames = doc.SectionNames[:3]

	_, err := FromDocument(doc, "test.yaml")
	assertConfigError(t, err, CodeInvalidConfig)
	if !strings.Contains(err.Error(), "adr_entry") || !strings.Contains(err.Error(), "rfc_entry") {
		t.Errorf("error should list every missing section: %v", err)
	}
}

func TestBuildSectionValidation(t *testing.T) {
	tests := []struct {
		name    string
		raw     RawSection
		wantErr bool
	}{
		{"unknown mode", RawSection{Mode: "weird", Target: "x.md"}, true},
		{"managed without destination", RawSection{Mode: "managed"}, true},
		{"external without adapter", RawSection{Mode: "external", Target: "x.md"}, true},
		{"both insertion anchors", RawSection{
			Mode: "managed", Target: "x.md",
			InsertAfterHeading: "# H", InsertBeforeMarker: "m",
		}, true},
		{"blank insertion anchor", RawSection{
			Mode: "managed", Target: "x.md", InsertAfterHeading: "   ",
		}, true},
		{"skip without destination", RawSection{Mode: "skip"}, false},
		{"valid external", RawSection{Mode: "external", Adapter: "mkdocs"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := baseDocument()
			doc.SectionNames = append(doc.SectionNames, "extra")
			doc.Sections["extra"] = tt.raw
			_, err := FromDocument(doc, "test.yaml")
			util.AssertEqual(t, err != nil, tt.wantErr)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	util.AssertEqual(t, cfg.Root, DefaultRoot)
	for _, name := range RequiredSections {
		util.AssertEqual(t, cfg.Has(name), true)
	}
	spec, err := cfg.Section("architecture_overview")
	util.AssertNoError(t, err)
	util.AssertEqual(t, spec.Mode, ModeManaged)
	util.AssertEqual(t, spec.Marker, "agentcontrol-architecture-overview")
}

func TestSectionUnknownName(t *testing.T) {
	cfg := Default()
	_, err := cfg.Section("nope")
	assertConfigError(t, err, CodeInvalidConfig)
}

func TestMarkerOrDefault(t *testing.T) {
	util.AssertEqual(t, SectionConfig{Marker: "custom"}.MarkerOrDefault("adr_index"), "custom")
	util.AssertEqual(t, SectionConfig{}.MarkerOrDefault("adr_index"), "agentcontrol-adr_index")
}

func TestResolvePath(t *testing.T) {
	spec := SectionConfig{Target: "architecture/overview.md"}
	path, err := spec.ResolvePath(filepath.Join("proj", "docs"), "")
	util.AssertNoError(t, err)
	util.AssertEqual(t, path, filepath.Join("proj", "docs", "architecture", "overview.md"))

	templated := SectionConfig{TargetTemplate: "adr/{id}.md"}
	path, err = templated.ResolvePath("docs", "0001")
	util.AssertNoError(t, err)
	util.AssertEqual(t, path, filepath.Join("docs", "adr", "0001.md"))

	_, err = SectionConfig{}.ResolvePath("docs", "")
	assertConfigError(t, err, CodeInvalidConfig)
}

func TestInferEntryID(t *testing.T) {
	spec := SectionConfig{TargetTemplate: "adr/{id}.md"}

	id, ok := spec.InferEntryID("adr/0001.md")
	util.AssertEqual(t, ok, true)
	util.AssertEqual(t, id, "0001")

	_, ok = spec.InferEntryID("rfc/0001.md")
	util.AssertEqual(t, ok, false)
	_, ok = spec.InferEntryID("adr/.md")
	util.AssertEqual(t, ok, false)
}

func TestParseInsertionPolicies(t *testing.T) {
	doc := baseDocument()
	overview := doc.Sections["architecture_overview"]
	overview.InsertAfterHeading = "# Architecture Overview"
	doc.Sections["architecture_overview"] = overview

	cfg, err := FromDocument(doc, "test.yaml")
	util.AssertNoError(t, err)
	spec, err := cfg.Section("architecture_overview")
	util.AssertNoError(t, err)
	if spec.Insertion == nil {
		t.Fatal("insertion policy not parsed")
	}
	util.AssertEqual(t, spec.Insertion.Kind, region.InsertAfterHeading)
	util.AssertEqual(t, spec.Insertion.Value, "# Architecture Overview")
}

func assertConfigError(t *testing.T, err error, code string) {
	t.Helper()
	var configErr *ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	util.AssertEqual(t, configErr.Code, code)
	if configErr.Remediation == "" {
		t.Error("config error is missing remediation text")
	}
}
