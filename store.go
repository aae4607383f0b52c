package appconf

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Store wraps the hierarchical backing document loaded from a file. It
// exposes dot-path get/set over the in-memory document and an explicit,
// atomic save. The document is loaded once at Open and owned by the Store
// for its lifetime.
type Store struct {
	path   string
	format string
	doc    map[string]any
}

// Open loads the backing document at path. A missing file yields an empty
// document so that write-only ("create new config") workflows work; a file
// that exists but cannot be read or parsed is a *LoadError.
//
// If a sibling private companion file exists (config.yaml ->
// config_private.yaml), it is deep-merged over the document. ${dot.path}
// interpolations in string values are then resolved against the merged
// document, and the top-level "private" section is stripped.
func Open(path string) (*Store, error) {
	s := &Store{
		path:   path,
		format: detectFileFormat(path),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if s.format == "" {
				s.format = "yaml"
			}
			s.doc = make(map[string]any)
			return s, nil
		}
		return nil, &LoadError{Path: path, Err: err}
	}

	doc, format, err := parseDocument(path, data, s.format)
	if err != nil {
		return nil, err
	}
	s.doc = doc
	s.format = format

	privateFound, err := s.mergePrivate()
	if err != nil {
		return nil, err
	}
	if err := resolveInterpolations(s.doc, s.path, privateCompanionPath(s.path), privateFound); err != nil {
		return nil, err
	}
	delete(s.doc, "private")

	return s, nil
}

// Path returns the path the document was loaded from.
func (s *Store) Path() string { return s.path }

// Get navigates the document by dot-path. It reports absence (not an
// error) if any segment is missing or the leaf is unset.
func (s *Store) Get(path string) (any, bool) {
	return nestedValue(s.doc, path)
}

// Set writes value at the dot-path, creating intermediate mapping levels
// as needed. The change is in-memory only until Save.
func (s *Store) Set(path string, value any) {
	setNestedValue(s.doc, path, value)
}

// Save serializes the full current document to path, or to the load path
// when path is empty. The write is atomic: data goes to a temp file in the
// target directory which is then renamed over the destination. On failure
// the in-memory document is unchanged and a *PersistenceError is returned.
func (s *Store) Save(path string) error {
	target := path
	if target == "" {
		target = s.path
	}

	data, err := s.marshal()
	if err != nil {
		return &PersistenceError{Path: target, Err: err}
	}

	if err := atomicWriteFile(target, data); err != nil {
		return &PersistenceError{Path: target, Err: err}
	}
	return nil
}

// marshal serializes the document in the format it was loaded with.
func (s *Store) marshal() ([]byte, error) {
	switch s.format {
	case "toml":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(s.doc); err != nil {
			return nil, fmt.Errorf("failed to marshal document to TOML: %w", err)
		}
		return buf.Bytes(), nil
	case "json":
		data, err := json.MarshalIndent(s.doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal document to JSON: %w", err)
		}
		return append(data, '\n'), nil
	default:
		data, err := yaml.Marshal(s.doc)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal document to YAML: %w", err)
		}
		return data, nil
	}
}

// parseDocument parses raw file data, detecting the format from content
// when the extension was inconclusive.
func parseDocument(path string, data []byte, format string) (map[string]any, string, error) {
	if format == "" {
		format = detectFormatFromContent(data)
		if format == "" {
			return nil, "", &LoadError{Path: path, Err: errors.New("unable to determine document format")}
		}
	}

	doc := make(map[string]any)
	switch format {
	case "toml":
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, "", &LoadError{Path: path, Err: err}
		}
	case "json":
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.UseNumber() // Preserve number precision
		if err := decoder.Decode(&doc); err != nil {
			return nil, "", &LoadError{Path: path, Err: err}
		}
	case "yaml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, "", &LoadError{Path: path, Err: err}
		}
	default:
		return nil, "", &LoadError{Path: path, Err: fmt.Errorf("unsupported document format %q", format)}
	}

	if doc == nil {
		doc = make(map[string]any)
	}
	return doc, format, nil
}

// atomicWriteFile performs atomic file write
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)

	tempFile, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	tempPath := tempFile.Name()
	defer os.Remove(tempPath) // Clean up on any error

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

// detectFileFormat determines format from file extension
func detectFileFormat(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return "yaml"
	case ".toml", ".tml":
		return "toml"
	case ".json":
		return "json"
	case ".conf", ".config":
		// Try to detect from content
		return ""
	default:
		return ""
	}
}

// detectFormatFromContent attempts to detect format by parsing
func detectFormatFromContent(data []byte) string {
	// Try JSON first (strict format)
	var jsonTest any
	if err := json.Unmarshal(data, &jsonTest); err == nil {
		return "json"
	}

	// Try YAML (superset of JSON, so check after JSON)
	var yamlTest any
	if err := yaml.Unmarshal(data, &yamlTest); err == nil {
		return "yaml"
	}

	// Try TOML last
	var tomlTest any
	if err := toml.Unmarshal(data, &tomlTest); err == nil {
		return "toml"
	}

	return ""
}
