package region

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	dirPerm  = 0o750
	filePerm = 0o644
)

// Engine applies updates to managed regions atomically. It is
// stateless; one instance can serve any number of files.
type Engine struct{}

// NewEngine returns a managed region engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Apply merges all requested marker operations into one in-memory
// buffer and writes the file back at most once, only when at least one
// marker changed. Markers are processed in sorted order so results are
// deterministic.
func (e *Engine) Apply(path string, ops map[string]Operation) (Result, error) {
	if err := ensureDirectory(path); err != nil {
		return Result{}, err
	}

	text := ""
	data, err := os.ReadFile(path) // #nosec G304 - path comes from validated config
	switch {
	case err == nil:
		text = string(data)
	case !os.IsNotExist(err):
		return Result{}, fmt.Errorf("failed to read %q: %w", path, err)
	}

	markers := make([]string, 0, len(ops))
	for marker := range ops {
		markers = append(markers, marker)
	}
	sort.Strings(markers)

	result := Result{Changes: make([]Change, 0, len(markers))}
	for _, marker := range markers {
		op := ops[marker]
		next, change, err := applySingle(path, text, marker, op)
		if err != nil {
			return Result{}, err
		}
		text = next
		if change.Changed {
			result.Changed = true
		}
		result.Changes = append(result.Changes, change)
	}

	if result.Changed {
		if err := atomicWrite(path, ensureTrailingNewline(text)); err != nil {
			return Result{}, err
		}
	}
	return result, nil
}

// Read returns the trimmed inner content of a marker's block. The
// second return value is false when the file or the block is absent.
// Malformed delimiters raise the same CorruptionError as Apply.
func (e *Engine) Read(path, marker string) (string, bool, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path comes from validated config
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read %q: %w", path, err)
	}
	block, found, err := locate(string(data), marker)
	if err != nil || !found {
		return "", false, err
	}
	return block.inner, true, nil
}

// WriteFile replaces a whole file using the same atomic
// temp-file-then-rename step Apply uses, creating parent directories as
// needed.
func WriteFile(path, content string) error {
	if err := ensureDirectory(path); err != nil {
		return err
	}
	return atomicWrite(path, content)
}

// block describes a located marker pair inside a buffer.
type block struct {
	start int    // offset of the start delimiter
	end   int    // offset just past the end delimiter
	inner string // content between delimiters, trimmed of blank edges
}

// locate finds the unique delimiter pair for marker. Exactly one pair
// must exist for the block to be present; anything else is corruption.
func locate(text, marker string) (block, bool, error) {
	start := StartMarker(marker)
	end := EndMarker(marker)

	startCount := strings.Count(text, start)
	endCount := strings.Count(text, end)
	if startCount != endCount {
		return block{}, false, &CorruptionError{Marker: marker, Reason: ReasonUnbalanced}
	}
	if startCount > 1 {
		return block{}, false, &CorruptionError{Marker: marker, Reason: ReasonDuplicate}
	}
	if startCount == 0 {
		return block{}, false, nil
	}

	si := strings.Index(text, start)
	ei := strings.Index(text, end)
	if ei < si {
		return block{}, false, &CorruptionError{Marker: marker, Reason: ReasonMalformed}
	}
	inner := strings.Trim(text[si+len(start):ei], "\n")
	return block{start: si, end: ei + len(end), inner: inner}, true, nil
}

func applySingle(path, text, marker string, op Operation) (string, Change, error) {
	change := Change{Section: op.Section, Marker: marker, Path: filepath.ToSlash(path)}

	located, found, err := locate(text, marker)
	if err != nil {
		return text, change, err
	}

	// Removal request.
	if op.Content == nil {
		if !found {
			return text, change, nil
		}
		change.Changed = true
		return text[:located.start] + text[located.end:], change, nil
	}

	normalized := strings.Trim(*op.Content, "\n")
	replacement := StartMarker(marker) + "\n" + normalized + "\n" + EndMarker(marker)

	if !found {
		change.Changed = true
		return insertWithPolicy(text, replacement, op.Insertion), change, nil
	}
	if located.inner == normalized {
		return text, change, nil
	}
	change.Changed = true
	return text[:located.start] + replacement + text[located.end:], change, nil
}

// insertWithPolicy places a rendered block into text. Without a policy,
// or when the configured anchor cannot be found, the block is appended
// to the end of the file.
func insertWithPolicy(text, replacement string, insertion *InsertionPolicy) string {
	if insertion != nil {
		switch insertion.Kind {
		case InsertAfterHeading:
			if next, ok := insertAfterHeading(text, replacement, insertion.Value); ok {
				return next
			}
		case InsertBeforeMarker:
			if next, ok := insertBeforeMarker(text, replacement, insertion.Value); ok {
				return next
			}
		}
	}
	if text != "" && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return text + replacement + "\n"
}

// insertAfterHeading places the block immediately after the first line
// whose text equals the anchor, adding a blank-line separator between
// the block and any content that follows without one.
func insertAfterHeading(text, replacement, heading string) (string, bool) {
	anchor := strings.TrimSpace(heading)
	pos := 0
	for pos <= len(text) {
		lineEnd := strings.IndexByte(text[pos:], '\n')
		var line string
		next := len(text)
		if lineEnd >= 0 {
			line = text[pos : pos+lineEnd]
			next = pos + lineEnd + 1
		} else {
			line = text[pos:]
		}
		if strings.TrimSpace(line) == anchor && line != "" {
			if lineEnd < 0 {
				// Heading is the last line without a newline.
				text += "\n"
				next = len(text)
			}
			rest := text[next:]
			blockText := replacement + "\n"
			if rest != "" && rest[0] != '\n' {
				blockText += "\n"
			}
			return text[:next] + blockText + rest, true
		}
		if lineEnd < 0 {
			break
		}
		pos = next
	}
	return "", false
}

// insertBeforeMarker places the block immediately before another
// marker's start delimiter, when that block exists.
func insertBeforeMarker(text, replacement, otherMarker string) (string, bool) {
	idx := strings.Index(text, StartMarker(otherMarker))
	if idx < 0 {
		return "", false
	}
	prefix := ""
	if idx > 0 && text[idx-1] != '\n' {
		prefix = "\n"
	}
	return text[:idx] + prefix + replacement + "\n" + text[idx:], true
}

func ensureDirectory(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create directory %q: %w", dir, err)
	}
	return nil
}

// atomicWrite writes data to a sibling temp file and renames it over
// the target, so an interrupted process never leaves a partial file.
func atomicWrite(path, data string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %q: %w", dir, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.WriteString(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file %q: %w", tmpPath, err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to chmod temp file %q: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file %q: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace %q: %w", path, err)
	}
	return nil
}

func ensureTrailingNewline(text string) string {
	if text == "" || strings.HasSuffix(text, "\n") {
		return text
	}
	return text + "\n"
}
