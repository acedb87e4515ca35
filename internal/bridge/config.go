// Package bridge holds the validated documentation bridge
// configuration: which sections exist, where they live on disk, and how
// each one is edited.
package bridge

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/imagray/agentcontrol/internal/region"
)

// Mode describes how a section is kept in sync.
type Mode string

const (
	// ModeManaged rewrites a marker-delimited region inside a file.
	ModeManaged Mode = "managed"
	// ModeFile owns one or more whole files.
	ModeFile Mode = "file"
	// ModeSkip excludes the section from synchronization.
	ModeSkip Mode = "skip"
	// ModeExternal delegates to a named publishing adapter.
	ModeExternal Mode = "external"
)

// IsValid reports whether the mode is part of the closed set.
func (m Mode) IsValid() bool {
	switch m {
	case ModeManaged, ModeFile, ModeSkip, ModeExternal:
		return true
	}
	return false
}

// DefaultVersion is the only supported config document version.
const DefaultVersion = 1

// DefaultRoot is the documentation root used when no config overrides it.
const DefaultRoot = "docs"

// templatePlaceholder is the identifier slot inside target_template.
const templatePlaceholder = "{id}"

// RequiredSections are the baseline section names every config must
// declare. Additional names are permitted.
var RequiredSections = []string{
	"architecture_overview",
	"adr_index",
	"rfc_index",
	"adr_entry",
	"rfc_entry",
}

// SectionConfig is the immutable description of one bridge section.
type SectionConfig struct {
	Mode           Mode
	Target         string
	TargetTemplate string
	Marker         string
	Insertion      *region.InsertionPolicy
	Adapter        string
	Options        map[string]any
}

// MarkerOrDefault returns the configured marker, or the conventional
// agentcontrol-<name> marker when none is set.
func (s SectionConfig) MarkerOrDefault(name string) string {
	if s.Marker != "" {
		return s.Marker
	}
	return "agentcontrol-" + name
}

// ResolvePath resolves the destination of the section under root. For
// templated sections the identifier is substituted into the template.
func (s SectionConfig) ResolvePath(root, identifier string) (string, error) {
	if s.Target != "" {
		return filepath.Join(root, filepath.FromSlash(s.Target)), nil
	}
	if s.TargetTemplate != "" && identifier != "" {
		rel := strings.ReplaceAll(s.TargetTemplate, templatePlaceholder, identifier)
		return filepath.Join(root, filepath.FromSlash(rel)), nil
	}
	return "", NewConfigError(CodeInvalidConfig, "section requires 'target' or 'target_template'")
}

// EntryDirectory returns the directory templated entries live in.
func (s SectionConfig) EntryDirectory(root string) string {
	rel := strings.ReplaceAll(s.TargetTemplate, templatePlaceholder, "example")
	return filepath.Dir(filepath.Join(root, filepath.FromSlash(rel)))
}

// InferEntryID extracts the identifier from a path relative to root,
// matching it against the section's target_template. The second return
// value is false when the path does not fit the template.
func (s SectionConfig) InferEntryID(relativePath string) (string, bool) {
	tpl := s.TargetTemplate
	idx := strings.Index(tpl, templatePlaceholder)
	if idx < 0 {
		return "", false
	}
	prefix := tpl[:idx]
	suffix := tpl[idx+len(templatePlaceholder):]
	if !strings.HasPrefix(relativePath, prefix) || !strings.HasSuffix(relativePath, suffix) {
		return "", false
	}
	id := relativePath[len(prefix) : len(relativePath)-len(suffix)]
	if id == "" {
		return "", false
	}
	return id, true
}

// Config is the validated, insertion-ordered set of bridge sections.
// It is immutable after construction.
type Config struct {
	Version  int
	Root     string
	names    []string
	sections map[string]SectionConfig
}

// Names returns the section names in declaration order.
func (c *Config) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Section returns the named section config.
func (c *Config) Section(name string) (SectionConfig, error) {
	spec, ok := c.sections[name]
	if !ok {
		return SectionConfig{}, NewConfigError(CodeInvalidConfig, "unknown section %q requested", name)
	}
	return spec, nil
}

// Has reports whether a section name is declared.
func (c *Config) Has(name string) bool {
	_, ok := c.sections[name]
	return ok
}

// AbsoluteRoot resolves the documentation root relative to a project.
func (c *Config) AbsoluteRoot(projectRoot string) string {
	root := filepath.FromSlash(c.Root)
	if filepath.IsAbs(root) {
		return root
	}
	return filepath.Join(projectRoot, root)
}

// RawSection is one section definition as it appears in the config
// document, before validation.
type RawSection struct {
	Mode               string         `yaml:"mode" toml:"mode"`
	Target             string         `yaml:"target" toml:"target"`
	TargetTemplate     string         `yaml:"target_template" toml:"target_template"`
	Marker             string         `yaml:"marker" toml:"marker"`
	InsertAfterHeading string         `yaml:"insert_after_heading" toml:"insert_after_heading"`
	InsertBeforeMarker string         `yaml:"insert_before_marker" toml:"insert_before_marker"`
	Adapter            string         `yaml:"adapter" toml:"adapter"`
	Options            map[string]any `yaml:"options" toml:"options"`
}

// Document is a parsed but unvalidated config file.
type Document struct {
	Version      int
	Root         string
	SectionNames []string
	Sections     map[string]RawSection
}

// FromDocument validates a raw document and builds the immutable
// Config. The whole document fails on the first structural violation.
func FromDocument(doc Document, sourcePath string) (*Config, error) {
	version := doc.Version
	if version == 0 {
		version = DefaultVersion
	}
	if version != DefaultVersion {
		return nil, NewConfigError(CodeInvalidConfig, "unsupported docs bridge config version %d in %s", version, sourcePath)
	}

	root := doc.Root
	if root == "" {
		root = DefaultRoot
	}

	var missing []string
	for _, name := range RequiredSections {
		if _, ok := doc.Sections[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, NewConfigError(CodeInvalidConfig, "sections %v missing in %s", missing, sourcePath)
	}

	sections := make(map[string]SectionConfig, len(doc.Sections))
	names := make([]string, 0, len(doc.SectionNames))
	for _, name := range doc.SectionNames {
		raw := doc.Sections[name]
		spec, err := buildSection(name, raw)
		if err != nil {
			return nil, err
		}
		sections[name] = spec
		names = append(names, name)
	}

	return &Config{Version: version, Root: root, names: names, sections: sections}, nil
}

// Default produces the baseline configuration used when a project has
// no docs.bridge config file.
func Default() *Config {
	doc := Document{
		Version: DefaultVersion,
		Root:    DefaultRoot,
		SectionNames: []string{
			"architecture_overview",
			"adr_index",
			"rfc_index",
			"adr_entry",
			"rfc_entry",
		},
		Sections: map[string]RawSection{
			"architecture_overview": {
				Mode:   string(ModeManaged),
				Target: "architecture/overview.md",
				Marker: "agentcontrol-architecture-overview",
			},
			"adr_index": {
				Mode:   string(ModeManaged),
				Target: "adr/index.md",
				Marker: "agentcontrol-adr-index",
			},
			"rfc_index": {
				Mode:   string(ModeManaged),
				Target: "rfc/index.md",
				Marker: "agentcontrol-rfc-index",
			},
			"adr_entry": {
				Mode:           string(ModeFile),
				TargetTemplate: "adr/{id}.md",
			},
			"rfc_entry": {
				Mode:           string(ModeFile),
				TargetTemplate: "rfc/{id}.md",
			},
		},
	}
	cfg, err := FromDocument(doc, "<default>")
	if err != nil {
		// The default document is a compile-time constant; a failure
		// here is a programming error.
		panic(err)
	}
	return cfg
}

func buildSection(name string, raw RawSection) (SectionConfig, error) {
	mode := Mode(raw.Mode)
	if raw.Mode == "" {
		mode = defaultMode(name)
	}
	if !mode.IsValid() {
		return SectionConfig{}, NewConfigError(CodeInvalidConfig, "unsupported mode %q for section %q", raw.Mode, name)
	}
	if (mode == ModeManaged || mode == ModeFile) && raw.Target == "" && raw.TargetTemplate == "" {
		return SectionConfig{}, NewConfigError(CodeInvalidConfig, "section %q must define 'target' or 'target_template'", name)
	}
	if mode == ModeExternal && raw.Adapter == "" {
		return SectionConfig{}, NewConfigError(CodeInvalidConfig, "section %q requires 'adapter' when mode is external", name)
	}

	insertion, err := parseInsertion(name, raw)
	if err != nil {
		return SectionConfig{}, err
	}

	return SectionConfig{
		Mode:           mode,
		Target:         raw.Target,
		TargetTemplate: raw.TargetTemplate,
		Marker:         raw.Marker,
		Insertion:      insertion,
		Adapter:        raw.Adapter,
		Options:        raw.Options,
	}, nil
}

func defaultMode(name string) Mode {
	switch name {
	case "architecture_overview", "adr_index", "rfc_index":
		return ModeManaged
	}
	return ModeFile
}

func parseInsertion(name string, raw RawSection) (*region.InsertionPolicy, error) {
	after := strings.TrimSpace(raw.InsertAfterHeading)
	before := strings.TrimSpace(raw.InsertBeforeMarker)
	if raw.InsertAfterHeading != "" && raw.InsertBeforeMarker != "" {
		return nil, NewConfigError(CodeInvalidConfig,
			"section %q cannot set both insert_after_heading and insert_before_marker", name)
	}
	if raw.InsertAfterHeading != "" {
		if after == "" {
			return nil, NewConfigError(CodeInvalidConfig,
				"section %q insert_after_heading must be a non-empty string", name)
		}
		return &region.InsertionPolicy{Kind: region.InsertAfterHeading, Value: after}, nil
	}
	if raw.InsertBeforeMarker != "" {
		if before == "" {
			return nil, NewConfigError(CodeInvalidConfig,
				"section %q insert_before_marker must be a non-empty string", name)
		}
		return &region.InsertionPolicy{Kind: region.InsertBeforeMarker, Value: before}, nil
	}
	return nil, nil
}
