package docs

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/imagray/agentcontrol/internal/region"
	"github.com/imagray/agentcontrol/internal/util"
)

// StateSection is one section's captured baseline. Managed sections
// carry Content (nil when the marker was absent or corrupted), file
// sections carry Entries, external sections carry the adapter capture.
type StateSection struct {
	Mode     string             `json:"mode"`
	Path     string             `json:"path,omitempty"`
	Marker   string             `json:"marker,omitempty"`
	Content  *string            `json:"content,omitempty"`
	Entries  map[string]*string `json:"entries,omitempty"`
	External map[string]any     `json:"external,omitempty"`
}

// State is the persisted baseline snapshot written by Adopt and
// refreshed after every Repair and Rollback.
type State struct {
	GeneratedAt string                  `json:"generatedAt"`
	Sections    map[string]StateSection `json:"sections"`
}

// LoadState reads a project's baseline snapshot. The second return
// value is false when no snapshot has been adopted yet.
func LoadState(projectRoot string) (State, bool, error) {
	path := util.StatePath(projectRoot)
	data, err := os.ReadFile(path) // #nosec G304 - path derived from project root
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, false, nil
		}
		return State{}, false, fmt.Errorf("failed to read %q: %w", path, err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, false, fmt.Errorf("invalid JSON in %q: %w", path, err)
	}
	if state.Sections == nil {
		state.Sections = make(map[string]StateSection)
	}
	return state, true, nil
}

// WriteState persists the baseline snapshot atomically.
func WriteState(projectRoot string, state State) error {
	if state.GeneratedAt == "" {
		state.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render state snapshot: %w", err)
	}
	return region.WriteFile(util.StatePath(projectRoot), string(data)+"\n")
}
