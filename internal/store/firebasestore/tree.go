package firebasestore

import "strings"

// applyPut replaces the subtree at path. A nil value deletes the node;
// putting at "/" replaces the whole tree.
func applyPut(tree any, path string, value any) any {
	return setAt(tree, splitPath(path), value)
}

// applyPatch merges fields into the node at path. Existing siblings keep
// their values; each patched field behaves like a put at path/field.
func applyPatch(tree any, path string, fields map[string]any) any {
	base := splitPath(path)
	for key, value := range fields {
		segments := make([]string, 0, len(base)+1)
		segments = append(segments, base...)
		segments = append(segments, key)
		tree = setAt(tree, segments, value)
	}
	return tree
}

// setAt writes value at the segment path, materializing intermediate maps.
// Non-map nodes along the way are overwritten; emptied maps collapse to
// nil so deletions propagate upward.
func setAt(node any, segments []string, value any) any {
	if len(segments) == 0 {
		return value
	}

	branch, ok := node.(map[string]any)
	if !ok {
		branch = map[string]any{}
	}

	child := setAt(branch[segments[0]], segments[1:], value)
	if child == nil {
		delete(branch, segments[0])
	} else {
		branch[segments[0]] = child
	}

	if len(branch) == 0 {
		return nil
	}
	return branch
}

// cloneTree deep-copies a decoded-JSON tree. Snapshots handed to listeners
// must not alias the live tree, which later events mutate in place.
func cloneTree(node any) any {
	switch v := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, child := range v {
			out[key] = cloneTree(child)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = cloneTree(child)
		}
		return out
	default:
		return v
	}
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
