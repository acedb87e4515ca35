package docs

import (
	"path/filepath"

	"github.com/imagray/agentcontrol/internal/adapters"
	"github.com/imagray/agentcontrol/internal/bridge"
	"github.com/imagray/agentcontrol/internal/history"
	"github.com/imagray/agentcontrol/internal/logging"
	"github.com/imagray/agentcontrol/internal/region"
	"github.com/imagray/agentcontrol/internal/util"
)

// BackupRef points at the snapshot a mutating operation created.
type BackupRef struct {
	Timestamp string `json:"timestamp"`
	Path      string `json:"path"`
}

// RepairReport lists what Repair did. Backup is nil when every action
// was a noop and nothing on disk changed.
type RepairReport struct {
	GeneratedAt string            `json:"generatedAt"`
	ConfigPath  string            `json:"configPath"`
	Backup      *BackupRef        `json:"backup,omitempty"`
	Actions     []adapters.Action `json:"actions"`
}

// Repair rewrites every selected section to the provider's expected
// content. Files are backed up into a fresh snapshot before their
// first mutation; marker corruption aborts the pass so a damaged file
// is never overwritten blindly.
func (s *Service) Repair(sectionFilter, entryFilter []string) (RepairReport, error) {
	selected, err := s.selectSections(sectionFilter)
	if err != nil {
		return RepairReport{}, err
	}
	expected, err := s.expectedSections()
	if err != nil {
		return RepairReport{}, err
	}

	snapshot, err := s.store.NewSnapshot()
	if err != nil {
		return RepairReport{}, err
	}

	ctx := s.aggregate.Context()
	rootBase := ctx.AbsoluteRoot()
	report := RepairReport{
		GeneratedAt: nowStamp(),
		ConfigPath:  filepath.ToSlash(ctx.ConfigPath),
		Actions:     []adapters.Action{},
	}

	for _, name := range selected {
		spec, err := ctx.Config.Section(name)
		if err != nil {
			return RepairReport{}, err
		}
		switch spec.Mode {
		case bridge.ModeManaged:
			action, ok, err := s.repairManaged(rootBase, name, spec, expected, snapshot)
			if err != nil {
				return RepairReport{}, err
			}
			if ok {
				report.Actions = append(report.Actions, action)
			}
		case bridge.ModeFile:
			actions, err := s.repairFile(rootBase, name, spec, expected, entryFilter, snapshot)
			if err != nil {
				return RepairReport{}, err
			}
			report.Actions = append(report.Actions, actions...)
		case bridge.ModeExternal:
			actions, err := s.repairExternal(name, spec, expected, snapshot)
			if err != nil {
				return RepairReport{}, err
			}
			report.Actions = append(report.Actions, actions...)
		}
	}

	if mutated(report.Actions) {
		report.Backup = &BackupRef{
			Timestamp: snapshot.Timestamp,
			Path:      filepath.ToSlash(snapshot.Dir()),
		}
		s.logger.Info("repair completed",
			logging.Operation("repair"),
			logging.Backup(snapshot.Timestamp),
			logging.Count(len(report.Actions)))
	}

	if err := s.refreshState(); err != nil {
		return RepairReport{}, err
	}
	return report, nil
}

// repairManaged rewrites one marker block. Sections without expected
// content are left untouched; the second return value reports whether
// an action was taken.
func (s *Service) repairManaged(rootBase, name string, spec bridge.SectionConfig, expected map[string]SectionContent, snapshot *history.Snapshot) (adapters.Action, bool, error) {
	want, ok := expected[name]
	if !ok {
		return adapters.Action{}, false, nil
	}
	path, err := spec.ResolvePath(rootBase, "")
	if err != nil {
		return adapters.Action{}, false, err
	}
	if err := snapshot.BackupFile(path); err != nil {
		return adapters.Action{}, false, err
	}

	existed := fileExists(path)
	marker := spec.MarkerOrDefault(name)
	content := want.Content
	change, err := s.aggregate.UpdateRegion(path, marker, name, &content, spec.Insertion)
	if err != nil {
		return adapters.Action{}, false, err
	}
	s.invalidateContent(path)

	action := adapters.Action{
		Name:   name,
		Path:   util.RelToProject(s.aggregate.Context().ProjectRoot, path),
		Action: "noop",
	}
	switch {
	case change.Changed && !existed:
		action.Action = "generated"
	case change.Changed:
		action.Action = "updated"
	}
	if change.Changed {
		s.logger.Debug("managed region rewritten",
			logging.Section(name), logging.Marker(marker), logging.Path(action.Path))
	}
	return action, true, nil
}

func (s *Service) repairFile(rootBase, name string, spec bridge.SectionConfig, expected map[string]SectionContent, entryFilter []string, snapshot *history.Snapshot) ([]adapters.Action, error) {
	if spec.Target != "" {
		if _, ok := expected[name]; !ok {
			return nil, nil
		}
		path, err := spec.ResolvePath(rootBase, "")
		if err != nil {
			return nil, err
		}
		action, err := s.writeWholeFile(name, path, expectedFileContent(expected, name), snapshot)
		if err != nil {
			return nil, err
		}
		return []adapters.Action{action}, nil
	}

	var actions []adapters.Action
	for _, id := range sortedEntryIDs(expected[name].Entries, entryFilter) {
		path, err := spec.ResolvePath(rootBase, id)
		if err != nil {
			return nil, err
		}
		action, err := s.writeWholeFile(entryName(name, id), path, expected[name].Entries[id], snapshot)
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}
	return actions, nil
}

// writeWholeFile converges one owned file on its expected payload,
// backing up the previous bytes first. Identical content is a noop and
// the file is not rewritten.
func (s *Service) writeWholeFile(name, path, payload string, snapshot *history.Snapshot) (adapters.Action, error) {
	desired := withTrailingNewline(payload)
	current, existed, err := s.readText(path)
	if err != nil {
		return adapters.Action{}, err
	}
	action := adapters.Action{
		Name:   name,
		Path:   util.RelToProject(s.aggregate.Context().ProjectRoot, path),
		Action: "noop",
	}
	if existed && current == desired {
		return action, nil
	}
	if err := snapshot.BackupFile(path); err != nil {
		return adapters.Action{}, err
	}
	if err := region.WriteFile(path, desired); err != nil {
		return adapters.Action{}, err
	}
	s.invalidateContent(path)
	if existed {
		action.Action = "updated"
	} else {
		action.Action = "generated"
	}
	s.logger.Debug("file section rewritten", logging.Section(name), logging.Path(action.Path))
	return action, nil
}

func (s *Service) repairExternal(name string, spec bridge.SectionConfig, expected map[string]SectionContent, snapshot *history.Snapshot) ([]adapters.Action, error) {
	adapter, err := s.adapterFor(name)
	if err != nil {
		return nil, err
	}
	actions, err := adapter.Apply(s.aggregate.Context().ProjectRoot, spec, expected, snapshot.Dir())
	if err != nil {
		return nil, &AdapterError{Adapter: spec.Adapter, Err: err}
	}
	return actions, nil
}

func mutated(actions []adapters.Action) bool {
	for _, action := range actions {
		if action.Action != "noop" {
			return true
		}
	}
	return false
}
