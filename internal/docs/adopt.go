package docs

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/imagray/agentcontrol/internal/bridge"
	"github.com/imagray/agentcontrol/internal/logging"
	"github.com/imagray/agentcontrol/internal/util"
)

// AdoptReport records a baseline capture.
type AdoptReport struct {
	GeneratedAt string   `json:"generatedAt"`
	StatePath   string   `json:"statePath"`
	Sections    []string `json:"sections"`
}

// Adopt captures the current on-disk content of every selected section
// into the persisted baseline snapshot. Sections outside the filter
// keep their previously adopted baseline.
func (s *Service) Adopt(sectionFilter, entryFilter []string) (AdoptReport, error) {
	selected, err := s.selectSections(sectionFilter)
	if err != nil {
		return AdoptReport{}, err
	}

	ctx := s.aggregate.Context()
	state, _, err := LoadState(ctx.ProjectRoot)
	if err != nil {
		return AdoptReport{}, err
	}
	if state.Sections == nil {
		state.Sections = make(map[string]StateSection)
	}

	for _, name := range selected {
		spec, err := ctx.Config.Section(name)
		if err != nil {
			return AdoptReport{}, err
		}
		captured, err := s.captureSectionState(name, spec, entryFilter)
		if err != nil {
			return AdoptReport{}, err
		}
		state.Sections[name] = captured
	}

	state.GeneratedAt = nowStamp()
	if err := WriteState(ctx.ProjectRoot, state); err != nil {
		return AdoptReport{}, err
	}
	s.logger.Info("baseline adopted",
		logging.Operation("adopt"), logging.Count(len(selected)))
	return AdoptReport{
		GeneratedAt: state.GeneratedAt,
		StatePath:   filepath.ToSlash(util.StatePath(ctx.ProjectRoot)),
		Sections:    selected,
	}, nil
}

// refreshState recaptures every section after a mutating operation so
// the baseline keeps tracking what is actually on disk.
func (s *Service) refreshState() error {
	ctx := s.aggregate.Context()
	state := State{
		GeneratedAt: nowStamp(),
		Sections:    make(map[string]StateSection),
	}
	for _, name := range ctx.Config.Names() {
		spec, err := ctx.Config.Section(name)
		if err != nil {
			return err
		}
		captured, err := s.captureSectionState(name, spec, nil)
		if err != nil {
			return err
		}
		state.Sections[name] = captured
	}
	return WriteState(ctx.ProjectRoot, state)
}

// captureSectionState reads one section's current disk state. A
// corrupted managed marker captures as nil content rather than
// failing, so adoption can proceed past damaged files.
func (s *Service) captureSectionState(name string, spec bridge.SectionConfig, entryFilter []string) (StateSection, error) {
	ctx := s.aggregate.Context()
	rootBase := ctx.AbsoluteRoot()

	switch spec.Mode {
	case bridge.ModeManaged:
		path, err := spec.ResolvePath(rootBase, "")
		if err != nil {
			return StateSection{}, err
		}
		marker := spec.MarkerOrDefault(name)
		section := StateSection{
			Mode:   string(bridge.ModeManaged),
			Path:   util.RelToProject(ctx.ProjectRoot, path),
			Marker: marker,
		}
		content, found, err := s.aggregate.ReadRegion(path, marker)
		if err == nil && found {
			section.Content = &content
		}
		return section, nil

	case bridge.ModeFile:
		section := StateSection{
			Mode:    string(bridge.ModeFile),
			Entries: make(map[string]*string),
		}
		if spec.Target != "" {
			path, err := spec.ResolvePath(rootBase, "")
			if err != nil {
				return StateSection{}, err
			}
			section.Path = util.RelToProject(ctx.ProjectRoot, path)
			if content, ok, err := s.readText(path); err != nil {
				return StateSection{}, err
			} else if ok {
				section.Entries["default"] = &content
			}
			return section, nil
		}
		entries, err := s.existingEntries(rootBase, spec)
		if err != nil {
			return StateSection{}, err
		}
		for id, content := range entries {
			if len(entryFilter) > 0 && !containsString(entryFilter, id) {
				continue
			}
			value := content
			section.Entries[id] = &value
		}
		return section, nil

	case bridge.ModeExternal:
		adapter, err := s.adapterFor(name)
		if err != nil {
			return StateSection{}, err
		}
		capture, err := adapter.Capture(ctx.ProjectRoot, spec)
		if err != nil {
			return StateSection{}, &AdapterError{Adapter: spec.Adapter, Err: err}
		}
		return StateSection{Mode: string(bridge.ModeExternal), External: capture}, nil
	}

	return StateSection{Mode: string(spec.Mode)}, nil
}

// existingEntries enumerates the on-disk files matching a section's
// target_template and maps each back to its identifier.
func (s *Service) existingEntries(rootBase string, spec bridge.SectionConfig) (map[string]string, error) {
	pattern := filepath.Join(rootBase,
		filepath.FromSlash(strings.ReplaceAll(spec.TargetTemplate, "{id}", "*")))
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid entry pattern %q: %w", pattern, err)
	}

	entries := make(map[string]string, len(matches))
	for _, match := range matches {
		rel := util.RelToProject(rootBase, match)
		id, ok := spec.InferEntryID(rel)
		if !ok {
			continue
		}
		content, ok, err := s.readText(match)
		if err != nil {
			return nil, err
		}
		if ok {
			entries[id] = content
		}
	}
	return entries, nil
}
