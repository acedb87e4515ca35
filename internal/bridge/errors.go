package bridge

import "fmt"

// Machine codes attached to bridge errors and diagnosed issues.
const (
	CodeInvalidConfig    = "DOC_BRIDGE_INVALID_CONFIG"
	CodeRootMissing      = "DOC_ROOT_MISSING"
	CodeMissingFile      = "DOC_SECTION_MISSING_FILE"
	CodeMissingMarker    = "DOC_SECTION_MISSING_MARKER"
	CodeMissingDirectory = "DOC_SECTION_MISSING_DIRECTORY"
	CodeMarkerCorrupted  = "DOC_SECTION_MARKER_CORRUPTED"
)

var remediations = map[string]string{
	CodeInvalidConfig:    "Update .agentcontrol/config/docs.bridge.yaml to match the schema and required sections.",
	CodeRootMissing:      "Create the documentation root or adjust 'root' in docs.bridge.yaml.",
	CodeMissingFile:      "Generate or restore the referenced documentation file before running sync.",
	CodeMissingMarker:    "Ensure managed markers wrap the section or rerun agentcall docs repair.",
	CodeMissingDirectory: "Create the expected directory or adjust target_template for this section.",
	CodeMarkerCorrupted:  "Restore the managed marker pair or regenerate the section via agentcall docs repair.",
}

// RemediationFor returns default remediation text for a machine code,
// or empty when none is known.
func RemediationFor(code string) string {
	return remediations[code]
}

// ConfigError reports an invalid bridge configuration. Construction of
// a Config fails fast on the first structural violation; no partial
// config is ever produced.
type ConfigError struct {
	Code        string
	Message     string
	Remediation string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// NewConfigError builds a ConfigError with the default remediation for
// the code.
func NewConfigError(code, format string, args ...any) *ConfigError {
	return &ConfigError{
		Code:        code,
		Message:     fmt.Sprintf(format, args...),
		Remediation: RemediationFor(code),
	}
}
