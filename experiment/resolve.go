package experiment

import "fmt"
import "os"
import "os/user"
import "path/filepath"
import "strings"

// ResolveStrings replaces Placeholder with name in every string inside data
// and normalizes strings stored under mapping keys that contain "path".
// Lists and mappings are rewritten in place; keys and non-string leaves are
// left alone.
func ResolveStrings(data any, name string) error {
	switch node := data.(type) {
	case map[string]any:
		for key, val := range node {
			resolved, err := resolveValue(val, name, strings.Contains(key, "path"))
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			node[key] = resolved
		}
	case []any:
		for i, val := range node {
			resolved, err := resolveValue(val, name, false)
			if err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
			node[i] = resolved
		}
	}
	return nil
}

func resolveValue(val any, name string, isPath bool) (any, error) {
	switch v := val.(type) {
	case map[string]any, []any:
		return val, ResolveStrings(v, name)
	case string:
		s := strings.ReplaceAll(v, Placeholder, name)
		if isPath {
			return NormalizePath(s)
		}
		return s, nil
	}
	return val, nil
}

// NormalizePath returns absolute paths unchanged, expands a leading ~ or
// ~user, and resolves anything else against the working directory. The
// empty string stays empty.
func NormalizePath(p string) (string, error) {
	switch {
	case p == "":
		return p, nil
	case filepath.IsAbs(p):
		return p, nil
	case strings.HasPrefix(p, "~"):
		return expandHome(p)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", p, err)
	}
	return abs, nil
}

func expandHome(p string) (string, error) {
	head, rest, _ := strings.Cut(p[1:], string(filepath.Separator))
	var home string
	if head == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand %q: %w", p, err)
		}
		home = dir
	} else {
		u, err := user.Lookup(head)
		if err != nil {
			return "", fmt.Errorf("expand %q: %w", p, err)
		}
		home = u.HomeDir
	}
	return filepath.Join(home, rest), nil
}
