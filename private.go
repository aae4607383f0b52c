package appconf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// interpPattern matches ${dot.path} references inside string values.
var interpPattern = regexp.MustCompile(`\$\{([^{}]+)\}`)

// privateCompanionPath derives the private companion path for a document:
// config.yaml -> config_private.yaml.
func privateCompanionPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_private" + ext
}

// mergePrivate deep-merges the private companion document, if one exists,
// over the store's document. It reports whether a companion file was found.
func (s *Store) mergePrivate() (bool, error) {
	companion := privateCompanionPath(s.path)
	data, err := os.ReadFile(companion)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, &LoadError{Path: companion, Err: err}
	}

	doc, _, err := parseDocument(companion, data, s.format)
	if err != nil {
		return true, err
	}
	deepMerge(s.doc, doc)
	return true, nil
}

// deepMerge merges src into dst. Nested maps merge recursively; any other
// value in src overwrites the value in dst.
func deepMerge(dst, src map[string]any) {
	for key, value := range src {
		if srcMap, isMap := value.(map[string]any); isMap {
			if dstMap, isMap := dst[key].(map[string]any); isMap {
				deepMerge(dstMap, srcMap)
				continue
			}
		}
		dst[key] = value
	}
}

// resolveInterpolations rewrites every string leaf containing ${dot.path}
// references with the referenced values from the same document. A value
// that is exactly one reference takes the referenced value's type; a
// reference embedded in a larger string is formatted into it.
//
// An unresolvable ${private.*} reference is a *PrivateConfigError; any
// other unresolvable reference, and reference cycles, are a *LoadError.
func resolveInterpolations(doc map[string]any, configPath, privatePath string, privateFound bool) error {
	var resolveNode func(node any, seen map[string]bool) (any, error)

	lookup := func(key string, seen map[string]bool) (any, error) {
		if seen[key] {
			return nil, &LoadError{Path: configPath, Err: fmt.Errorf("interpolation cycle through key %q", key)}
		}
		raw, ok := nestedValue(doc, key)
		if !ok {
			if strings.HasPrefix(key, "private.") {
				return nil, &PrivateConfigError{
					Key:              key,
					ConfigPath:       configPath,
					PrivatePath:      privatePath,
					PrivateFileFound: privateFound,
				}
			}
			return nil, &LoadError{Path: configPath, Err: fmt.Errorf("unresolved interpolation key %q", key)}
		}
		seen[key] = true
		defer delete(seen, key)
		return resolveNode(raw, seen)
	}

	resolveString := func(s string, seen map[string]bool) (any, error) {
		matches := interpPattern.FindAllStringSubmatchIndex(s, -1)
		if len(matches) == 0 {
			return s, nil
		}

		// A value that is exactly one reference keeps the referenced type.
		if len(matches) == 1 && matches[0][0] == 0 && matches[0][1] == len(s) {
			return lookup(s[matches[0][2]:matches[0][3]], seen)
		}

		var out strings.Builder
		last := 0
		for _, m := range matches {
			out.WriteString(s[last:m[0]])
			resolved, err := lookup(s[m[2]:m[3]], seen)
			if err != nil {
				return nil, err
			}
			fmt.Fprintf(&out, "%v", resolved)
			last = m[1]
		}
		out.WriteString(s[last:])
		return out.String(), nil
	}

	resolveNode = func(node any, seen map[string]bool) (any, error) {
		switch v := node.(type) {
		case string:
			return resolveString(v, seen)
		case map[string]any:
			for key, value := range v {
				resolved, err := resolveNode(value, seen)
				if err != nil {
					return nil, err
				}
				v[key] = resolved
			}
			return v, nil
		case []any:
			for i, value := range v {
				resolved, err := resolveNode(value, seen)
				if err != nil {
					return nil, err
				}
				v[i] = resolved
			}
			return v, nil
		default:
			return node, nil
		}
	}

	_, err := resolveNode(doc, make(map[string]bool))
	return err
}
