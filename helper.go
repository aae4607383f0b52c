package appconf

import "strings"

// nestedValue navigates a nested map using a dot-notation path.
// A missing segment, or a segment that lands on a non-map, reports absence
// rather than an error.
func nestedValue(nested map[string]any, path string) (any, bool) {
	segments := strings.Split(path, ".")
	current := any(nested)

	for _, segment := range segments {
		currentMap, isMap := current.(map[string]any)
		if !isMap {
			return nil, false
		}
		next, exists := currentMap[segment]
		if !exists {
			return nil, false
		}
		current = next
	}

	return current, true
}

// setNestedValue sets a value in a nested map using a dot-notation path.
// It creates intermediate maps if they don't exist.
// If a segment exists but is not a map, it will be overwritten by a new map.
func setNestedValue(nested map[string]any, path string, value any) {
	segments := strings.Split(path, ".")
	current := nested

	// Iterate through segments up to the second-to-last one
	for i := 0; i < len(segments)-1; i++ {
		segment := segments[i]

		next, exists := current[segment]
		if !exists {
			newMap := make(map[string]any)
			current[segment] = newMap
			current = newMap
			continue
		}

		if nextMap, isMap := next.(map[string]any); isMap {
			current = nextMap
		} else {
			newMap := make(map[string]any)
			current[segment] = newMap
			current = newMap
		}
	}

	lastSegment := segments[len(segments)-1]
	current[lastSegment] = value
}

// isValidPath checks that a dot-notation path is non-empty and every
// segment is a valid bare key.
func isValidPath(path string) bool {
	if path == "" {
		return false
	}
	for _, segment := range strings.Split(path, ".") {
		if !isValidKeySegment(segment) {
			return false
		}
	}
	return true
}

// isValidKeySegment checks if a single path segment is a valid bare key part.
func isValidKeySegment(s string) bool {
	if len(s) == 0 {
		return false
	}
	// Bare keys are sequences of ASCII letters, ASCII digits, underscores, and dashes (A-Za-z0-9_-).
	for _, r := range s {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		isUnderscore := r == '_'
		isDash := r == '-'

		if !(isLetter || isDigit || isUnderscore || isDash) {
			return false
		}
	}
	return true
}

// lastSegment returns the final segment of a dot-notation path.
func lastSegment(path string) string {
	if idx := strings.LastIndexByte(path, '.'); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
