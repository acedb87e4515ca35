package docs

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/imagray/agentcontrol/internal/adapters"
	"github.com/imagray/agentcontrol/internal/bridge"
	"github.com/imagray/agentcontrol/internal/history"
	"github.com/imagray/agentcontrol/internal/logging"
	"github.com/imagray/agentcontrol/internal/region"
	"github.com/imagray/agentcontrol/internal/util"
)

// RollbackReport records which files a rollback restored.
type RollbackReport struct {
	GeneratedAt string            `json:"generatedAt"`
	Timestamp   string            `json:"timestamp"`
	Backup      string            `json:"backup"`
	Actions     []adapters.Action `json:"actions"`
}

// Rollback restores selected sections from a backup snapshot,
// overwriting targets with the backed-up bytes verbatim. Files a
// snapshot never captured are left alone.
func (s *Service) Rollback(timestamp string, sectionFilter, entryFilter []string) (RollbackReport, error) {
	snapshot, err := s.store.Open(timestamp)
	if err != nil {
		if errors.Is(err, history.ErrSnapshotNotFound) {
			return RollbackReport{}, &NotFoundError{Resource: "backup timestamp", Name: timestamp}
		}
		return RollbackReport{}, err
	}

	selected, err := s.selectSections(sectionFilter)
	if err != nil {
		return RollbackReport{}, err
	}

	ctx := s.aggregate.Context()
	rootBase := ctx.AbsoluteRoot()
	report := RollbackReport{
		GeneratedAt: nowStamp(),
		Timestamp:   snapshot.Timestamp,
		Backup:      filepath.ToSlash(snapshot.Dir()),
		Actions:     []adapters.Action{},
	}

	for _, name := range selected {
		spec, err := ctx.Config.Section(name)
		if err != nil {
			return RollbackReport{}, err
		}
		switch {
		case spec.Mode == bridge.ModeSkip:
			continue
		case spec.Mode == bridge.ModeExternal:
			adapter, err := s.adapterFor(name)
			if err != nil {
				return RollbackReport{}, err
			}
			actions, err := adapter.Rollback(ctx.ProjectRoot, spec, snapshot.Dir())
			if err != nil {
				return RollbackReport{}, &AdapterError{Adapter: spec.Adapter, Err: err}
			}
			report.Actions = append(report.Actions, actions...)
		case spec.Target != "":
			action, restored, err := s.restoreTarget(name, spec, rootBase, snapshot)
			if err != nil {
				return RollbackReport{}, err
			}
			if restored {
				report.Actions = append(report.Actions, action)
			}
		case spec.TargetTemplate != "":
			actions, err := s.restoreEntries(name, spec, rootBase, entryFilter, snapshot)
			if err != nil {
				return RollbackReport{}, err
			}
			report.Actions = append(report.Actions, actions...)
		}
	}

	if err := s.refreshState(); err != nil {
		return RollbackReport{}, err
	}
	s.logger.Info("rollback completed",
		logging.Operation("rollback"),
		logging.Backup(snapshot.Timestamp),
		logging.Count(len(report.Actions)))
	return report, nil
}

// restoreTarget restores a single-target section when the snapshot
// holds a copy of it.
func (s *Service) restoreTarget(name string, spec bridge.SectionConfig, rootBase string, snapshot *history.Snapshot) (adapters.Action, bool, error) {
	ctx := s.aggregate.Context()
	target, err := spec.ResolvePath(rootBase, "")
	if err != nil {
		return adapters.Action{}, false, err
	}
	content, err := os.ReadFile(snapshot.PathFor(target)) // #nosec G304 - path inside backup snapshot
	if err != nil {
		if os.IsNotExist(err) {
			return adapters.Action{}, false, nil
		}
		return adapters.Action{}, false, err
	}
	if err := region.WriteFile(target, string(content)); err != nil {
		return adapters.Action{}, false, err
	}
	s.invalidateContent(target)
	if spec.Mode == bridge.ModeManaged {
		s.aggregate.InvalidateRegion(target, spec.MarkerOrDefault(name))
	}
	return adapters.Action{
		Name:   name,
		Path:   util.RelToProject(ctx.ProjectRoot, target),
		Action: "restored",
	}, true, nil
}

// restoreEntries restores every snapshot file whose root-relative path
// fits the section's target_template.
func (s *Service) restoreEntries(name string, spec bridge.SectionConfig, rootBase string, entryFilter []string, snapshot *history.Snapshot) ([]adapters.Action, error) {
	ctx := s.aggregate.Context()
	files, err := snapshot.Files()
	if err != nil {
		return nil, err
	}

	var actions []adapters.Action
	for _, rel := range files {
		target := filepath.Join(ctx.ProjectRoot, filepath.FromSlash(rel))
		id, ok := spec.InferEntryID(util.RelToProject(rootBase, target))
		if !ok {
			continue
		}
		if len(entryFilter) > 0 && !containsString(entryFilter, id) {
			continue
		}
		content, err := os.ReadFile(filepath.Join(snapshot.Dir(), filepath.FromSlash(rel))) // #nosec G304 - path inside backup snapshot
		if err != nil {
			return nil, err
		}
		if err := region.WriteFile(target, string(content)); err != nil {
			return nil, err
		}
		s.invalidateContent(target)
		actions = append(actions, adapters.Action{
			Name:   entryName(name, id),
			Path:   rel,
			Action: "restored",
		})
	}
	return actions, nil
}
