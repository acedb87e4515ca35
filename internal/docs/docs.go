// Package docs implements the documentation bridge: read-side
// diagnostics over configured sections and the write-side
// diff/repair/adopt/rollback/sync orchestration.
package docs

import (
	"fmt"

	"github.com/imagray/agentcontrol/internal/adapters"
	"github.com/imagray/agentcontrol/internal/bridge"
)

// SectionContent is the expected content for one section, as produced
// by the generator collaborator.
type SectionContent = adapters.SectionContent

// Context ties a validated configuration to a project root.
type Context struct {
	ProjectRoot string
	Config      *bridge.Config
	ConfigPath  string
}

// AbsoluteRoot resolves the documentation root for this project.
func (c Context) AbsoluteRoot() string {
	return c.Config.AbsoluteRoot(c.ProjectRoot)
}

// Section statuses reported by Diagnose and Diff.
const (
	StatusOK               = "ok"
	StatusSkipped          = "skipped"
	StatusMissingFile      = "missing_file"
	StatusMissingMarker    = "missing_marker"
	StatusCorrupted        = "corrupted"
	StatusMissingDirectory = "missing_directory"
	StatusExternal         = "external"
	StatusMatch            = "match"
	StatusDiffers          = "differs"
)

// Issue severities, ordered error > warning > info.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Issue is one diagnosed inconsistency. Issues are produced by the
// aggregate's diagnose pass and never mutated after creation.
type Issue struct {
	Severity    string `json:"severity"`
	Code        string `json:"code"`
	Message     string `json:"message"`
	Section     string `json:"section,omitempty"`
	Remediation string `json:"remediation,omitempty"`
}

// NotFoundError reports an explicitly requested resource that does not
// exist: an unknown section name or a missing backup timestamp.
type NotFoundError struct {
	Resource string
	Name     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.Name)
}

// AdapterError wraps a failure surfaced by an external adapter. The
// underlying error is passed through unchanged.
type AdapterError struct {
	Adapter string
	Err     error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("adapter %q: %v", e.Adapter, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}
