package docs

// ContentProvider supplies the expected content of every section. The
// bridge never invents documentation text itself; it only reconciles
// disk state against what a provider hands it.
type ContentProvider interface {
	ExpectedSections(projectRoot string) (map[string]SectionContent, error)
}

// StaticProvider serves a fixed map of section content.
type StaticProvider map[string]SectionContent

func (p StaticProvider) ExpectedSections(string) (map[string]SectionContent, error) {
	return p, nil
}

// BaselineProvider replays the adopted baseline snapshot as the
// expected content, so diff and repair converge the working tree back
// to the last adopted state.
type BaselineProvider struct{}

func (BaselineProvider) ExpectedSections(projectRoot string) (map[string]SectionContent, error) {
	state, ok, err := LoadState(projectRoot)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &NotFoundError{Resource: "baseline snapshot for project", Name: projectRoot}
	}

	expected := make(map[string]SectionContent, len(state.Sections))
	for name, section := range state.Sections {
		switch section.Mode {
		case "managed":
			if section.Content != nil {
				expected[name] = SectionContent{Content: *section.Content}
			}
		case "file":
			entries := make(map[string]string, len(section.Entries))
			for id, content := range section.Entries {
				if content != nil {
					entries[id] = *content
				}
			}
			if len(entries) > 0 {
				expected[name] = SectionContent{Entries: entries}
			}
		}
	}
	return expected, nil
}
