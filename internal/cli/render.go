package cli

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/imagray/agentcontrol/internal/docs"
	"github.com/imagray/agentcontrol/internal/ui"
)

var titleCaser = cases.Title(language.English)

// statusLabel renders a section or diff status with the color its
// severity implies.
func statusLabel(status string) string {
	switch status {
	case docs.StatusOK, docs.StatusMatch:
		return ui.Success(status)
	case docs.StatusCorrupted, "error":
		return ui.Error(status)
	case docs.StatusSkipped, docs.StatusExternal:
		return ui.Dim(status)
	default:
		return ui.Warning(status)
	}
}

func renderDiagnosis(diagnosis docs.Diagnosis) {
	renderSummary(diagnosis.Summary, true)
	fmt.Println()
	if len(diagnosis.Issues) == 0 {
		fmt.Println(ui.StatusSuccess("No issues found"))
		return
	}
	fmt.Println(ui.Bold("Issues:"))
	for _, issue := range diagnosis.Issues {
		label := ui.StatusWarning(issue.Message)
		if issue.Severity == docs.SeverityError {
			label = ui.StatusError(issue.Message)
		}
		fmt.Printf("  %s\n", label)
		if issue.Section != "" {
			fmt.Printf("    section: %s\n", issue.Section)
		}
		fmt.Printf("    code: %s\n", ui.Dim(issue.Code))
		if issue.Remediation != "" {
			fmt.Printf("    fix: %s\n", issue.Remediation)
		}
	}
	fmt.Printf("\nOverall: %s\n", statusLabel(diagnosis.Status))
}

func renderSummary(summary docs.Summary, withStatus bool) {
	fmt.Println(ui.Bold("Documentation sections"))
	fmt.Printf("  Config: %s\n", summary.ConfigPath)
	rootNote := ""
	if !summary.RootExists {
		rootNote = " " + ui.Warning("(missing)")
	}
	fmt.Printf("  Root: %s%s\n", summary.Root, rootNote)
	if withStatus {
		fmt.Printf("  Capabilities: %s\n", ui.Dim(capabilityList(summary.Capabilities)))
	}
	fmt.Println()
	for _, section := range summary.Sections {
		fmt.Printf("  %s (%s)\n", ui.Info(section.Name), titleCaser.String(section.Mode))
		if section.Target != "" {
			fmt.Printf("    target: %s\n", section.Target)
		}
		if section.TargetTemplate != "" {
			fmt.Printf("    template: %s in %s\n", section.TargetTemplate, section.Directory)
		}
		if section.Marker != "" {
			fmt.Printf("    marker: %s\n", ui.Dim(section.Marker))
		}
		if section.Adapter != "" {
			fmt.Printf("    adapter: %s\n", section.Adapter)
		}
		if section.Insertion != nil {
			fmt.Printf("    insertion: %s %q\n", section.Insertion.Type, section.Insertion.Value)
		}
		if withStatus && section.Status != "" {
			fmt.Printf("    status: %s\n", statusLabel(section.Status))
		}
	}
}

func capabilityList(caps docs.Capabilities) string {
	var enabled []string
	for _, c := range []struct {
		name string
		on   bool
	}{
		{"managed-regions", caps.ManagedRegions},
		{"atomic-writes", caps.AtomicWrites},
		{"multi-section-per-file", caps.MultiSectionPerFile},
		{"anchor-insertion", caps.AnchorInsertion},
	} {
		if c.on {
			enabled = append(enabled, c.name)
		}
	}
	return strings.Join(enabled, ", ")
}

func renderDiff(report docs.DiffReport) {
	fmt.Println(ui.Bold("Documentation diff"))
	if len(report.Entries) == 0 {
		fmt.Println(ui.Dim("  no sections selected"))
		return
	}
	for _, entry := range report.Entries {
		fmt.Printf("  %-32s %s\n", entry.Name, statusLabel(entry.Status))
		if entry.Path != "" {
			fmt.Printf("    path: %s\n", ui.Dim(entry.Path))
		}
		if entry.Error != "" {
			fmt.Printf("    %s\n", ui.Error(entry.Error))
		}
		if entry.Status != docs.StatusMatch && entry.Remediation != "" {
			fmt.Printf("    fix: %s\n", entry.Remediation)
		}
	}
	if report.Clean() {
		fmt.Printf("\n%s\n", ui.StatusSuccess("All sections match"))
	} else {
		fmt.Printf("\n%s\n", ui.StatusWarning("Drift detected"))
	}
}

func renderRepair(report docs.RepairReport) {
	fmt.Println(ui.Bold("Repair"))
	if len(report.Actions) == 0 {
		fmt.Println(ui.Dim("  nothing to do"))
		return
	}
	for _, action := range report.Actions {
		label := action.Action
		switch action.Action {
		case "noop":
			label = ui.Dim(label)
		case "updated", "generated":
			label = ui.Success(label)
		}
		fmt.Printf("  %-32s %s\n", action.Name, label)
		if action.Path != "" {
			fmt.Printf("    path: %s\n", ui.Dim(action.Path))
		}
	}
	if report.Backup != nil {
		fmt.Printf("\nBackup: %s\n", report.Backup.Timestamp)
	} else {
		fmt.Printf("\n%s\n", ui.StatusSuccess("Everything already matched"))
	}
}

func renderAdopt(report docs.AdoptReport) {
	fmt.Println(ui.Bold("Adopt"))
	for _, name := range report.Sections {
		fmt.Printf("  %s\n", ui.Info(name))
	}
	fmt.Printf("\nBaseline written to %s\n", ui.Dim(report.StatePath))
}

func renderRollback(report docs.RollbackReport) {
	fmt.Println(ui.Bold("Rollback"))
	fmt.Printf("  Snapshot: %s\n", report.Timestamp)
	if len(report.Actions) == 0 {
		fmt.Println(ui.Dim("  nothing restored"))
		return
	}
	for _, action := range report.Actions {
		fmt.Printf("  %-32s %s\n", action.Name, ui.Success(action.Action))
		if action.Path != "" {
			fmt.Printf("    path: %s\n", ui.Dim(action.Path))
		}
	}
}

func renderSync(report docs.SyncReport) {
	fmt.Println(ui.Bold("Sync " + titleCaser.String(report.Mode)))
	for _, step := range report.Steps {
		switch {
		case step.Skipped:
			fmt.Printf("  %-12s %s\n", step.Step, ui.Dim("skipped (nothing to do)"))
		case step.Diff != nil:
			mismatches := 0
			for _, entry := range step.Diff {
				if entry.Status != docs.StatusMatch {
					mismatches++
				}
			}
			if mismatches == 0 {
				fmt.Printf("  %-12s %s\n", step.Step, ui.Success("clean"))
			} else {
				fmt.Printf("  %-12s %s\n", step.Step, ui.Warning(fmt.Sprintf("%d mismatched", mismatches)))
			}
		default:
			fmt.Printf("  %-12s %s\n", step.Step, ui.Success("applied"))
		}
	}
	if report.Status == docs.StatusOK {
		fmt.Printf("\n%s\n", ui.StatusSuccess("Documentation converged"))
	} else {
		fmt.Printf("\n%s\n", ui.StatusWarning("Sections still diverge; see agentcall docs diff"))
	}
}

func renderHistory(timestamps []string) {
	fmt.Println(ui.Bold("Backup snapshots"))
	if len(timestamps) == 0 {
		fmt.Println(ui.Dim("  none"))
		return
	}
	for _, timestamp := range timestamps {
		fmt.Printf("  %s\n", timestamp)
	}
}
