package docs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/imagray/agentcontrol/internal/adapters"
	"github.com/imagray/agentcontrol/internal/bridge"
	"github.com/imagray/agentcontrol/internal/history"
	"github.com/imagray/agentcontrol/internal/logging"
)

// Service is the write side of the bridge. It owns the mutation
// operations (diff, repair, adopt, rollback, sync) and the caches that
// keep repeated runs cheap. External adapters are resolved once at
// construction, so an unknown adapter name fails before any operation
// runs.
type Service struct {
	aggregate *Aggregate
	provider  ContentProvider
	store     *history.Store
	adapters  map[string]adapters.Adapter
	logger    *slog.Logger

	contentCache map[string]contentEntry
}

type contentEntry struct {
	mtimeNS int64
	content string
}

// NewService wires a service over an aggregate and a content provider.
func NewService(aggregate *Aggregate, provider ContentProvider) (*Service, error) {
	ctx := aggregate.Context()
	resolved := make(map[string]adapters.Adapter)
	for _, name := range ctx.Config.Names() {
		spec, err := ctx.Config.Section(name)
		if err != nil {
			return nil, err
		}
		if spec.Mode != bridge.ModeExternal {
			continue
		}
		adapter, err := adapters.Lookup(spec.Adapter)
		if err != nil {
			return nil, err
		}
		resolved[name] = adapter
	}
	return &Service{
		aggregate:    aggregate,
		provider:     provider,
		store:        history.NewStore(ctx.ProjectRoot),
		adapters:     resolved,
		logger:       logging.Default(),
		contentCache: make(map[string]contentEntry),
	}, nil
}

// Aggregate exposes the read side backing this service.
func (s *Service) Aggregate() *Aggregate {
	return s.aggregate
}

// Store exposes the backup snapshot store.
func (s *Service) Store() *history.Store {
	return s.store
}

// selectSections resolves a filter against the config, preserving
// declaration order. Unknown names in the filter are an error.
func (s *Service) selectSections(filter []string) ([]string, error) {
	config := s.aggregate.Context().Config
	for _, name := range filter {
		if !config.Has(name) {
			return nil, &NotFoundError{Resource: "section", Name: name}
		}
	}
	var selected []string
	for _, name := range config.Names() {
		if len(filter) == 0 || containsString(filter, name) {
			selected = append(selected, name)
		}
	}
	return selected, nil
}

// readText reads a file with an mtime-keyed cache; missing files
// return ok=false.
func (s *Service) readText(path string) (string, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		delete(s.contentCache, path)
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to stat %q: %w", path, err)
	}
	stamp := info.ModTime().UnixNano()
	if entry, ok := s.contentCache[path]; ok && entry.mtimeNS == stamp {
		return entry.content, true, nil
	}
	data, err := os.ReadFile(path) // #nosec G304 - path derived from validated config
	if err != nil {
		delete(s.contentCache, path)
		return "", false, fmt.Errorf("failed to read %q: %w", path, err)
	}
	s.contentCache[path] = contentEntry{mtimeNS: stamp, content: string(data)}
	return string(data), true, nil
}

func (s *Service) invalidateContent(path string) {
	delete(s.contentCache, path)
}

// expectedSections pulls the provider's view of every section once per
// operation.
func (s *Service) expectedSections() (map[string]SectionContent, error) {
	return s.provider.ExpectedSections(s.aggregate.Context().ProjectRoot)
}

// adapterFor returns the resolved adapter for an external section.
func (s *Service) adapterFor(name string) (adapters.Adapter, error) {
	adapter, ok := s.adapters[name]
	if !ok {
		return nil, bridge.NewConfigError(bridge.CodeInvalidConfig, "section %q is not an external section", name)
	}
	return adapter, nil
}

// expectedFileContent picks the expected payload for a single-file
// section: the default entry, or the plain content when entries are
// not used.
func expectedFileContent(expected map[string]SectionContent, name string) string {
	section := expected[name]
	if section.Entries != nil {
		return section.Entries["default"]
	}
	return section.Content
}

// withTrailingNewline normalizes a payload for whole-file writes.
func withTrailingNewline(content string) string {
	if content == "" || strings.HasSuffix(content, "\n") {
		return content
	}
	return content + "\n"
}

// hashText fingerprints content for diff reports, ignoring the
// leading/trailing newline normalization writes perform.
func hashText(content string) string {
	sum := sha256.Sum256([]byte(strings.Trim(content, "\n")))
	return hex.EncodeToString(sum[:])
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// entryName renders the report name of a templated entry.
func entryName(section, id string) string {
	return section + ":" + id
}

// sortedEntryIDs returns a section's expected entry identifiers in
// stable order, optionally narrowed by a filter.
func sortedEntryIDs(entries map[string]string, filter []string) []string {
	ids := make([]string, 0, len(entries))
	for id := range entries {
		if len(filter) > 0 && !containsString(filter, id) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
