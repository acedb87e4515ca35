package docs

import (
	"path/filepath"
	"strings"

	"github.com/imagray/agentcontrol/internal/bridge"
	"github.com/imagray/agentcontrol/internal/util"
)

// DiffEntry is one line of a diff report. Section always names the
// configured section; Name distinguishes templated entries and
// adapter-produced entries within it.
type DiffEntry struct {
	Section      string `json:"section"`
	Name         string `json:"name"`
	Status       string `json:"status"`
	Path         string `json:"path,omitempty"`
	Marker       string `json:"marker,omitempty"`
	Entry        string `json:"entry,omitempty"`
	ExpectedHash string `json:"expectedHash,omitempty"`
	ActualHash   string `json:"actualHash,omitempty"`
	Error        string `json:"error,omitempty"`
	Code         string `json:"code,omitempty"`
	Remediation  string `json:"remediation,omitempty"`
}

// DiffReport is the full comparison of expected content against disk.
type DiffReport struct {
	GeneratedAt string      `json:"generatedAt"`
	ConfigPath  string      `json:"configPath"`
	Entries     []DiffEntry `json:"diff"`
}

// Clean reports whether every entry matched.
func (r DiffReport) Clean() bool {
	for _, entry := range r.Entries {
		if entry.Status != StatusMatch {
			return false
		}
	}
	return true
}

// Diff compares the provider's expected content against the working
// tree, section by section. Marker corruption is reported per section
// and never aborts the scan. Skip sections produce no entries.
func (s *Service) Diff(sectionFilter []string) (DiffReport, error) {
	selected, err := s.selectSections(sectionFilter)
	if err != nil {
		return DiffReport{}, err
	}
	expected, err := s.expectedSections()
	if err != nil {
		return DiffReport{}, err
	}

	ctx := s.aggregate.Context()
	rootBase := ctx.AbsoluteRoot()
	report := DiffReport{
		GeneratedAt: nowStamp(),
		ConfigPath:  filepath.ToSlash(ctx.ConfigPath),
	}

	for _, name := range selected {
		spec, err := ctx.Config.Section(name)
		if err != nil {
			return DiffReport{}, err
		}
		switch spec.Mode {
		case bridge.ModeManaged:
			entry, err := s.diffManaged(rootBase, name, spec, expected)
			if err != nil {
				return DiffReport{}, err
			}
			report.Entries = append(report.Entries, entry)
		case bridge.ModeFile:
			entries, err := s.diffFile(rootBase, name, spec, expected)
			if err != nil {
				return DiffReport{}, err
			}
			report.Entries = append(report.Entries, entries...)
		case bridge.ModeExternal:
			entries, err := s.diffExternal(name, spec, expected)
			if err != nil {
				return DiffReport{}, err
			}
			report.Entries = append(report.Entries, entries...)
		}
	}
	return report, nil
}

// diffManaged compares one marker block. Unlike Diagnose, the
// corrupted entry keeps its machine code so callers can route
// remediation without re-probing.
func (s *Service) diffManaged(rootBase, name string, spec bridge.SectionConfig, expected map[string]SectionContent) (DiffEntry, error) {
	ctx := s.aggregate.Context()
	path, err := spec.ResolvePath(rootBase, "")
	if err != nil {
		return DiffEntry{}, err
	}
	marker := spec.MarkerOrDefault(name)
	entry := DiffEntry{
		Section: name,
		Name:    name,
		Path:    util.RelToProject(ctx.ProjectRoot, path),
		Marker:  marker,
	}

	if !fileExists(path) {
		entry.Status = StatusMissingFile
		entry.Code = bridge.CodeMissingFile
		entry.Remediation = bridge.RemediationFor(bridge.CodeMissingFile)
		return entry, nil
	}

	current, found, err := s.aggregate.ReadRegion(path, marker)
	if err != nil {
		entry.Status = StatusCorrupted
		entry.Error = err.Error()
		entry.Code = bridge.CodeMarkerCorrupted
		entry.Remediation = bridge.RemediationFor(bridge.CodeMarkerCorrupted)
		return entry, nil
	}

	want := strings.Trim(expected[name].Content, "\n")
	if !found {
		entry.Status = StatusMissingMarker
		entry.Code = bridge.CodeMissingMarker
		entry.Remediation = bridge.RemediationFor(bridge.CodeMissingMarker)
		entry.ExpectedHash = hashText(want)
		return entry, nil
	}
	entry.ExpectedHash = hashText(want)
	entry.ActualHash = hashText(current)
	if current == want {
		entry.Status = StatusMatch
		return entry, nil
	}
	entry.Status = StatusDiffers
	entry.Remediation = "Run agentcall docs repair to rewrite the managed region."
	return entry, nil
}

func (s *Service) diffFile(rootBase, name string, spec bridge.SectionConfig, expected map[string]SectionContent) ([]DiffEntry, error) {
	if spec.Target != "" {
		path, err := spec.ResolvePath(rootBase, "")
		if err != nil {
			return nil, err
		}
		entry, err := s.compareFile(name, name, "", path, expectedFileContent(expected, name))
		if err != nil {
			return nil, err
		}
		return []DiffEntry{entry}, nil
	}

	var entries []DiffEntry
	for _, id := range sortedEntryIDs(expected[name].Entries, nil) {
		path, err := spec.ResolvePath(rootBase, id)
		if err != nil {
			return nil, err
		}
		entry, err := s.compareFile(name, entryName(name, id), id, path, expected[name].Entries[id])
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *Service) compareFile(section, name, id, path, want string) (DiffEntry, error) {
	ctx := s.aggregate.Context()
	entry := DiffEntry{
		Section: section,
		Name:    name,
		Entry:   id,
		Path:    util.RelToProject(ctx.ProjectRoot, path),
	}
	current, ok, err := s.readText(path)
	if err != nil {
		return DiffEntry{}, err
	}
	entry.ExpectedHash = hashText(want)
	if !ok {
		entry.Status = StatusMissingFile
		entry.Code = bridge.CodeMissingFile
		entry.Remediation = bridge.RemediationFor(bridge.CodeMissingFile)
		return entry, nil
	}
	entry.ActualHash = hashText(current)
	if strings.Trim(current, "\n") == strings.Trim(want, "\n") {
		entry.Status = StatusMatch
		return entry, nil
	}
	entry.Status = StatusDiffers
	entry.Remediation = "Run agentcall docs repair to restore the expected file content."
	return entry, nil
}

// diffExternal delegates to the section's adapter; adapter failures
// are wrapped and propagated unchanged.
func (s *Service) diffExternal(name string, spec bridge.SectionConfig, expected map[string]SectionContent) ([]DiffEntry, error) {
	adapter, err := s.adapterFor(name)
	if err != nil {
		return nil, err
	}
	ctx := s.aggregate.Context()
	results, err := adapter.Diff(ctx.ProjectRoot, spec, expected)
	if err != nil {
		return nil, &AdapterError{Adapter: spec.Adapter, Err: err}
	}
	entries := make([]DiffEntry, 0, len(results))
	for _, result := range results {
		entries = append(entries, DiffEntry{
			Section: name,
			Name:    result.Name,
			Status:  result.Status,
			Path:    util.RelToProject(ctx.ProjectRoot, result.Path),
		})
	}
	return entries, nil
}
