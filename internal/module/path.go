package module

import "strings"

// SplitPath splits a dot-separated state path into segments.
// Empty segments are dropped, so "a..b" and "a.b" are the same path.
func SplitPath(path string) []string {
	parts := strings.Split(path, ".")
	segments := parts[:0]
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

// Lookup descends root one segment at a time. It reports false if any
// segment is missing or an intermediate value is not a Tree.
func Lookup(root Tree, path []string) (any, bool) {
	var cur any = root
	for _, seg := range path {
		node, ok := cur.(Tree)
		if !ok || node == nil {
			return nil, false
		}
		cur, ok = node[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Assoc returns a copy of root with v stored at path. Only the maps along
// the path are copied; root itself is never modified. Non-Tree values in the
// way are replaced by fresh subtrees.
func Assoc(root Tree, path []string, v any) Tree {
	if len(path) == 0 {
		if t, ok := v.(Tree); ok {
			return t
		}
		return root
	}

	out := make(Tree, len(root)+1)
	for k, val := range root {
		out[k] = val
	}

	if len(path) == 1 {
		out[path[0]] = v
		return out
	}

	child, _ := root[path[0]].(Tree)
	out[path[0]] = Assoc(child, path[1:], v)
	return out
}
