package docs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/imagray/agentcontrol/internal/bridge"
	"github.com/imagray/agentcontrol/internal/region"
	"github.com/imagray/agentcontrol/internal/util"
)

// Aggregate is the read side of the bridge: it inspects configured
// sections and diagnoses inconsistencies without mutating anything.
// Region reads are cached per (path, marker) keyed by the file's
// nanosecond mtime; writes through UpdateRegion invalidate the entry.
type Aggregate struct {
	ctx    Context
	engine *region.Engine
	cache  map[regionKey]regionEntry
}

type regionKey struct {
	path   string
	marker string
}

type regionEntry struct {
	mtimeNS int64
	content string
	found   bool
}

// NewAggregate builds an aggregate over a validated context.
func NewAggregate(ctx Context, engine *region.Engine) *Aggregate {
	return &Aggregate{
		ctx:    ctx,
		engine: engine,
		cache:  make(map[regionKey]regionEntry),
	}
}

// Context returns the aggregate's project context.
func (a *Aggregate) Context() Context {
	return a.ctx
}

// ReadRegion returns the trimmed content of a managed block, caching
// the result until the file's mtime changes. The second return value is
// false when the file or the block is absent.
func (a *Aggregate) ReadRegion(path, marker string) (string, bool, error) {
	key := regionKey{path: path, marker: marker}
	info, err := os.Stat(path)
	if err != nil {
		delete(a.cache, key)
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to stat %q: %w", path, err)
	}
	stamp := info.ModTime().UnixNano()
	if entry, ok := a.cache[key]; ok && entry.mtimeNS == stamp {
		return entry.content, entry.found, nil
	}
	content, found, err := a.engine.Read(path, marker)
	if err != nil {
		delete(a.cache, key)
		return "", false, err
	}
	a.cache[key] = regionEntry{mtimeNS: stamp, content: content, found: found}
	return content, found, nil
}

// UpdateRegion rewrites one managed block and drops its cache entry.
func (a *Aggregate) UpdateRegion(path, marker, section string, content *string, insertion *region.InsertionPolicy) (region.Change, error) {
	delete(a.cache, regionKey{path: path, marker: marker})
	result, err := a.engine.Apply(path, map[string]region.Operation{
		marker: {Section: section, Content: content, Insertion: insertion},
	})
	if err != nil {
		return region.Change{}, err
	}
	return result.Changes[0], nil
}

// InvalidateRegion drops a cached read, forcing the next ReadRegion to
// hit the disk. Callers use it after restoring files out of band.
func (a *Aggregate) InvalidateRegion(path, marker string) {
	delete(a.cache, regionKey{path: path, marker: marker})
}

// InsertionSummary mirrors a section's insertion policy for reports.
type InsertionSummary struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// SectionSummary describes one configured section, optionally with its
// current on-disk status.
type SectionSummary struct {
	Name           string            `json:"name"`
	Mode           string            `json:"mode"`
	Target         string            `json:"target,omitempty"`
	Marker         string            `json:"marker,omitempty"`
	TargetTemplate string            `json:"targetTemplate,omitempty"`
	Directory      string            `json:"directory,omitempty"`
	Adapter        string            `json:"adapter,omitempty"`
	Insertion      *InsertionSummary `json:"insertion,omitempty"`
	Status         string            `json:"status,omitempty"`
}

// Capabilities advertises what this bridge build can do, so external
// tooling can probe features without trying them.
type Capabilities struct {
	ManagedRegions      bool `json:"managedRegions"`
	AtomicWrites        bool `json:"atomicWrites"`
	MultiSectionPerFile bool `json:"multiSectionPerFile"`
	AnchorInsertion     bool `json:"anchorInsertion"`
}

func capabilitiesSnapshot() Capabilities {
	return Capabilities{
		ManagedRegions:      true,
		AtomicWrites:        true,
		MultiSectionPerFile: true,
		AnchorInsertion:     true,
	}
}

// Summary is the section inventory returned by Inspect.
type Summary struct {
	ConfigPath   string           `json:"configPath"`
	Root         string           `json:"root"`
	RootExists   bool             `json:"rootExists"`
	Capabilities Capabilities     `json:"capabilities"`
	Sections     []SectionSummary `json:"sections"`
}

// Diagnosis bundles the inventory with its issues and an overall
// status derived from the worst severity present.
type Diagnosis struct {
	Summary Summary `json:"summary"`
	Issues  []Issue `json:"issues"`
	Status  string  `json:"status"`
}

// Inspect returns the section inventory in declaration order. With
// includeStatus the current on-disk state of every section is probed;
// corruption is reported as a status, never raised.
func (a *Aggregate) Inspect(includeStatus bool) (Summary, error) {
	rootBase := a.ctx.AbsoluteRoot()
	summary := Summary{
		ConfigPath:   filepath.ToSlash(a.ctx.ConfigPath),
		Root:         filepath.ToSlash(a.ctx.Config.Root),
		RootExists:   dirExists(rootBase),
		Capabilities: capabilitiesSnapshot(),
	}
	if includeStatus {
		sections, _, err := a.collectSectionStatus(rootBase)
		if err != nil {
			return Summary{}, err
		}
		summary.Sections = sections
		return summary, nil
	}
	for _, name := range a.ctx.Config.Names() {
		spec, err := a.ctx.Config.Section(name)
		if err != nil {
			return Summary{}, err
		}
		summary.Sections = append(summary.Sections, a.sectionSummary(rootBase, name, spec))
	}
	return summary, nil
}

// Diagnose probes every section and reports issues instead of failing.
// A missing documentation root is always the first issue.
func (a *Aggregate) Diagnose() (Diagnosis, error) {
	rootBase := a.ctx.AbsoluteRoot()
	summary := Summary{
		ConfigPath:   filepath.ToSlash(a.ctx.ConfigPath),
		Root:         filepath.ToSlash(a.ctx.Config.Root),
		RootExists:   dirExists(rootBase),
		Capabilities: capabilitiesSnapshot(),
	}

	var issues []Issue
	if !summary.RootExists {
		issues = append(issues, Issue{
			Severity:    SeverityWarning,
			Code:        bridge.CodeRootMissing,
			Message:     fmt.Sprintf("Documentation root %s does not exist", summary.Root),
			Remediation: bridge.RemediationFor(bridge.CodeRootMissing),
		})
	}

	sections, sectionIssues, err := a.collectSectionStatus(rootBase)
	if err != nil {
		return Diagnosis{}, err
	}
	summary.Sections = sections
	issues = append(issues, sectionIssues...)

	return Diagnosis{
		Summary: summary,
		Issues:  issues,
		Status:  deriveOverallStatus(issues),
	}, nil
}

// collectSectionStatus walks sections in declaration order, resolving
// the on-disk status of each and the issues it raises. Marker
// corruption is downgraded to an error-severity issue here so the scan
// always covers every section.
func (a *Aggregate) collectSectionStatus(rootBase string) ([]SectionSummary, []Issue, error) {
	var sections []SectionSummary
	var issues []Issue

	for _, name := range a.ctx.Config.Names() {
		spec, err := a.ctx.Config.Section(name)
		if err != nil {
			return nil, nil, err
		}
		entry := a.sectionSummary(rootBase, name, spec)
		entry.Status = StatusOK

		switch {
		case spec.Mode == bridge.ModeSkip:
			entry.Status = StatusSkipped
		case spec.Mode == bridge.ModeExternal:
			entry.Status = StatusExternal
		case spec.Mode == bridge.ModeManaged && spec.Target != "":
			path, resolveErr := spec.ResolvePath(rootBase, "")
			if resolveErr != nil {
				return nil, nil, resolveErr
			}
			status, issue := a.managedStatus(name, spec, path)
			entry.Status = status
			if issue != nil {
				issues = append(issues, *issue)
			}
		case spec.Mode == bridge.ModeFile && spec.Target != "":
			path, resolveErr := spec.ResolvePath(rootBase, "")
			if resolveErr != nil {
				return nil, nil, resolveErr
			}
			if !fileExists(path) {
				entry.Status = StatusMissingFile
				issues = append(issues, Issue{
					Severity:    SeverityWarning,
					Code:        bridge.CodeMissingFile,
					Message:     fmt.Sprintf("Section %s target %s is missing", name, util.RelToProject(a.ctx.ProjectRoot, path)),
					Section:     name,
					Remediation: bridge.RemediationFor(bridge.CodeMissingFile),
				})
			}
		case spec.Mode == bridge.ModeFile && spec.TargetTemplate != "":
			dir := spec.EntryDirectory(rootBase)
			if !dirExists(dir) {
				entry.Status = StatusMissingDirectory
				issues = append(issues, Issue{
					Severity:    SeverityInfo,
					Code:        bridge.CodeMissingDirectory,
					Message:     fmt.Sprintf("Section %s directory %s does not exist yet", name, util.RelToProject(a.ctx.ProjectRoot, dir)),
					Section:     name,
					Remediation: bridge.RemediationFor(bridge.CodeMissingDirectory),
				})
			}
		}

		sections = append(sections, entry)
	}
	return sections, issues, nil
}

// managedStatus probes one managed section's marker block.
func (a *Aggregate) managedStatus(name string, spec bridge.SectionConfig, path string) (string, *Issue) {
	rel := util.RelToProject(a.ctx.ProjectRoot, path)
	if !fileExists(path) {
		return StatusMissingFile, &Issue{
			Severity:    SeverityWarning,
			Code:        bridge.CodeMissingFile,
			Message:     fmt.Sprintf("Section %s target %s is missing", name, rel),
			Section:     name,
			Remediation: bridge.RemediationFor(bridge.CodeMissingFile),
		}
	}
	marker := spec.MarkerOrDefault(name)
	_, found, err := a.ReadRegion(path, marker)
	if err != nil {
		return StatusCorrupted, &Issue{
			Severity:    SeverityError,
			Code:        bridge.CodeMarkerCorrupted,
			Message:     err.Error(),
			Section:     name,
			Remediation: bridge.RemediationFor(bridge.CodeMarkerCorrupted),
		}
	}
	if !found {
		return StatusMissingMarker, &Issue{
			Severity:    SeverityWarning,
			Code:        bridge.CodeMissingMarker,
			Message:     fmt.Sprintf("Marker %s not found in %s", marker, rel),
			Section:     name,
			Remediation: bridge.RemediationFor(bridge.CodeMissingMarker),
		}
	}
	return StatusOK, nil
}

func (a *Aggregate) sectionSummary(rootBase, name string, spec bridge.SectionConfig) SectionSummary {
	entry := SectionSummary{Name: name, Mode: string(spec.Mode)}
	if spec.Target != "" {
		if path, err := spec.ResolvePath(rootBase, ""); err == nil {
			entry.Target = util.RelToProject(a.ctx.ProjectRoot, path)
		}
	}
	if spec.Mode == bridge.ModeManaged {
		entry.Marker = spec.MarkerOrDefault(name)
	}
	if spec.TargetTemplate != "" {
		entry.TargetTemplate = spec.TargetTemplate
		entry.Directory = util.RelToProject(a.ctx.ProjectRoot, spec.EntryDirectory(rootBase))
	}
	if spec.Adapter != "" {
		entry.Adapter = spec.Adapter
	}
	if spec.Insertion != nil {
		entry.Insertion = &InsertionSummary{
			Type:  string(spec.Insertion.Kind),
			Value: spec.Insertion.Value,
		}
	}
	return entry
}

// deriveOverallStatus maps the worst issue severity to the diagnosis
// status: error wins over warning, no issues means ok.
func deriveOverallStatus(issues []Issue) string {
	status := StatusOK
	for _, issue := range issues {
		switch issue.Severity {
		case SeverityError:
			return "error"
		case SeverityWarning:
			status = "warning"
		}
	}
	return status
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
