// Package region edits marker-delimited managed blocks inside text
// files. Every mutation goes through a single atomic temp-file-then-
// rename write, so readers never observe a partially written file.
package region

import "fmt"

// Delimiter templates embedded in generated files. These tokens are a
// byte-exact compatibility contract with previously generated content
// and must never change.
const (
	startTemplate = "<!-- agentcontrol:start:%s -->"
	endTemplate   = "<!-- agentcontrol:end:%s -->"
)

// StartMarker renders the start delimiter line for a marker.
func StartMarker(marker string) string {
	return fmt.Sprintf(startTemplate, marker)
}

// EndMarker renders the end delimiter line for a marker.
func EndMarker(marker string) string {
	return fmt.Sprintf(endTemplate, marker)
}

// Corruption reasons reported by the engine.
const (
	ReasonUnbalanced = "unbalanced start/end markers"
	ReasonDuplicate  = "duplicate marker blocks found"
	ReasonMalformed  = "marker delimiters missing or malformed"
)

// CorruptionError reports unbalanced, duplicated, or malformed
// delimiters for one marker in one file. The engine never repairs
// corruption on its own.
type CorruptionError struct {
	Marker string
	Reason string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("managed region %q is corrupted: %s", e.Marker, e.Reason)
}

// InsertionKind selects how a missing block is placed into a file.
type InsertionKind string

const (
	// InsertAfterHeading places the block after the first line whose
	// text equals the policy value.
	InsertAfterHeading InsertionKind = "after_heading"
	// InsertBeforeMarker places the block before another marker's
	// start delimiter.
	InsertBeforeMarker InsertionKind = "before_marker"
)

// InsertionPolicy describes how to place managed regions when markers
// are absent. When the anchor cannot be found the block is appended to
// the end of the file.
type InsertionPolicy struct {
	Kind  InsertionKind
	Value string
}

// Operation describes the requested state of one marker. A nil Content
// removes the block; otherwise the block is created or replaced with
// the trimmed content.
type Operation struct {
	Section   string
	Content   *string
	Insertion *InsertionPolicy
}

// Change captures the outcome of one marker operation.
type Change struct {
	Section string `json:"section"`
	Marker  string `json:"marker"`
	Changed bool   `json:"changed"`
	Path    string `json:"path"`
}

// Result aggregates the changes from one Apply call.
type Result struct {
	Changed bool
	Changes []Change
}
