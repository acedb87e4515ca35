package bridge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/imagray/agentcontrol/internal/util"
)

// Loader reads bridge config documents from disk. Parsed configs are
// memoized per path, keyed by modification stamp and size, so repeated
// loads inside one invocation do not re-parse unchanged files. The
// cache is owned by the Loader instance; separate Loaders never share
// state.
type Loader struct {
	cache map[string]loaderEntry
}

type loaderEntry struct {
	mtimeNS int64
	size    int64
	config  *Config
}

// NewLoader returns an empty config loader.
func NewLoader() *Loader {
	return &Loader{cache: make(map[string]loaderEntry)}
}

// Load resolves and parses the bridge config for a project. Lookup
// order: docs.bridge.yaml, docs.bridge.toml, then the legacy location.
// When no file exists the built-in default config is returned along
// with the canonical path it would live at.
func (l *Loader) Load(projectRoot string) (*Config, string, error) {
	canonical := util.ConfigPath(projectRoot)
	candidates := []string{
		canonical,
		util.TOMLConfigPath(projectRoot),
		util.LegacyConfigPath(projectRoot),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		cfg, err := l.LoadPath(path)
		if err != nil {
			return nil, path, err
		}
		return cfg, path, nil
	}
	return Default(), canonical, nil
}

// LoadPath parses and validates an explicit config file.
func (l *Loader) LoadPath(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config %q: %w", path, err)
	}
	if entry, ok := l.cache[path]; ok && entry.mtimeNS == info.ModTime().UnixNano() && entry.size == info.Size() {
		return entry.config, nil
	}

	data, err := os.ReadFile(path) // #nosec G304 - config path resolved from project root
	if err != nil {
		return nil, fmt.Errorf("failed to read config %q: %w", path, err)
	}

	doc, err := parseDocument(data, path)
	if err != nil {
		return nil, err
	}
	cfg, err := FromDocument(doc, path)
	if err != nil {
		return nil, err
	}

	l.cache[path] = loaderEntry{mtimeNS: info.ModTime().UnixNano(), size: info.Size(), config: cfg}
	return cfg, nil
}

func parseDocument(data []byte, path string) (Document, error) {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return parseTOML(data, path)
	}
	return parseYAML(data, path)
}

type yamlDocument struct {
	Version  int       `yaml:"version"`
	Root     string    `yaml:"root"`
	Sections yaml.Node `yaml:"sections"`
}

// parseYAML keeps the declaration order of sections by walking the
// mapping node pairs instead of decoding into a Go map.
func parseYAML(data []byte, path string) (Document, error) {
	var raw yamlDocument
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Document{}, NewConfigError(CodeInvalidConfig, "invalid YAML in %s: %v", path, err)
	}

	doc := Document{
		Version:  raw.Version,
		Root:     raw.Root,
		Sections: make(map[string]RawSection),
	}
	if raw.Sections.Kind == 0 {
		return doc, nil
	}
	if raw.Sections.Kind != yaml.MappingNode {
		return Document{}, NewConfigError(CodeInvalidConfig, "'sections' must be a mapping of section definitions in %s", path)
	}
	for i := 0; i+1 < len(raw.Sections.Content); i += 2 {
		name := raw.Sections.Content[i].Value
		var section RawSection
		if err := raw.Sections.Content[i+1].Decode(&section); err != nil {
			return Document{}, NewConfigError(CodeInvalidConfig, "section %q in %s must be a mapping: %v", name, path, err)
		}
		doc.SectionNames = append(doc.SectionNames, name)
		doc.Sections[name] = section
	}
	return doc, nil
}

type tomlDocument struct {
	Version  int                   `toml:"version"`
	Root     string                `toml:"root"`
	Sections map[string]RawSection `toml:"sections"`
}

// parseTOML recovers declaration order from the decoder metadata.
func parseTOML(data []byte, path string) (Document, error) {
	var raw tomlDocument
	meta, err := toml.Decode(string(data), &raw)
	if err != nil {
		return Document{}, NewConfigError(CodeInvalidConfig, "invalid TOML in %s: %v", path, err)
	}

	doc := Document{
		Version:  raw.Version,
		Root:     raw.Root,
		Sections: raw.Sections,
	}
	if doc.Sections == nil {
		doc.Sections = make(map[string]RawSection)
	}
	seen := make(map[string]bool)
	for _, key := range meta.Keys() {
		parts := []string(key)
		if len(parts) >= 2 && parts[0] == "sections" && !seen[parts[1]] {
			seen[parts[1]] = true
			doc.SectionNames = append(doc.SectionNames, parts[1])
		}
	}
	return doc, nil
}
