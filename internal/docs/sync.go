package docs

import "fmt"

// Sync step names and modes.
const (
	SyncModeRepair = "repair"
	SyncModeAdopt  = "adopt"

	StepDiffBefore = "diff-before"
	StepDiffAfter  = "diff-after"
)

// SyncStep is one stage of a sync run's audit trail.
type SyncStep struct {
	Step    string      `json:"step"`
	Diff    []DiffEntry `json:"diff,omitempty"`
	Payload any         `json:"payload,omitempty"`
	Skipped bool        `json:"skipped,omitempty"`
}

// SyncReport is the three-step audit trail of a sync run: the diff
// that selected work, the action taken, and the diff that verified it.
type SyncReport struct {
	GeneratedAt string     `json:"generatedAt"`
	Mode        string     `json:"mode"`
	Sections    []string   `json:"sections"`
	Steps       []SyncStep `json:"steps"`
	Status      string     `json:"status"`
}

// Sync runs a diff, converges only the sections the diff flagged, then
// diffs again. In repair mode disk is rewritten to the expected
// content; in adopt mode the baseline is rewritten to match disk. A
// clean first diff skips the middle step entirely.
func (s *Service) Sync(mode string, sectionFilter, entryFilter []string) (SyncReport, error) {
	if mode == "" {
		mode = SyncModeRepair
	}
	if mode != SyncModeRepair && mode != SyncModeAdopt {
		return SyncReport{}, fmt.Errorf("unsupported sync mode %q", mode)
	}

	before, err := s.Diff(sectionFilter)
	if err != nil {
		return SyncReport{}, err
	}

	targets := mismatchedSections(before, entryFilter, s.aggregate.Context().Config.Names())
	report := SyncReport{
		GeneratedAt: nowStamp(),
		Mode:        mode,
		Sections:    targets,
		Steps:       []SyncStep{{Step: StepDiffBefore, Diff: before.Entries}},
	}

	if len(targets) == 0 {
		report.Steps = append(report.Steps, SyncStep{Step: mode, Skipped: true})
	} else {
		var payload any
		switch mode {
		case SyncModeRepair:
			payload, err = s.Repair(targets, entryFilter)
		case SyncModeAdopt:
			payload, err = s.Adopt(targets, entryFilter)
		}
		if err != nil {
			return SyncReport{}, err
		}
		report.Steps = append(report.Steps, SyncStep{Step: mode, Payload: payload})
	}

	after, err := s.Diff(sectionFilter)
	if err != nil {
		return SyncReport{}, err
	}
	report.Steps = append(report.Steps, SyncStep{Step: StepDiffAfter, Diff: after.Entries})

	report.Status = StatusOK
	if !after.Clean() {
		report.Status = "warning"
	}
	return report, nil
}

// mismatchedSections extracts the sections needing work from a diff,
// preserving configuration order and deduplicating multi-entry
// sections.
func mismatchedSections(report DiffReport, entryFilter []string, order []string) []string {
	flagged := make(map[string]bool)
	for _, entry := range report.Entries {
		if entry.Status == StatusMatch {
			continue
		}
		if len(entryFilter) > 0 && entry.Entry != "" && !containsString(entryFilter, entry.Entry) {
			continue
		}
		flagged[entry.Section] = true
	}
	var targets []string
	for _, name := range order {
		if flagged[name] {
			targets = append(targets, name)
		}
	}
	return targets
}
