package redisstore

import (
	"reflect"
	"testing"
)

func TestSplitNodePath(t *testing.T) {
	tests := []struct {
		path     string
		wantNode string
		wantRest []string
	}{
		{"users", "users", []string{}},
		{"users/uid/jobs", "users", []string{"uid", "jobs"}},
		{"/queues/stage_1/", "queues", []string{"stage_1"}},
		{"queue_config", "queue_config", []string{}},
		{"", "", nil},
	}

	for _, tt := range tests {
		node, rest := splitNodePath(tt.path)
		if node != tt.wantNode {
			t.Errorf("splitNodePath(%q) node = %q, want %q", tt.path, node, tt.wantNode)
		}
		if len(rest) != len(tt.wantRest) {
			t.Errorf("splitNodePath(%q) rest = %v, want %v", tt.path, rest, tt.wantRest)
			continue
		}
		for i := range rest {
			if rest[i] != tt.wantRest[i] {
				t.Errorf("splitNodePath(%q) rest = %v, want %v", tt.path, rest, tt.wantRest)
				break
			}
		}
	}
}

func TestChildAtDescends(t *testing.T) {
	doc := map[string]any{
		"uid": map[string]any{
			"jobs": []any{map[string]any{"email": "a@b.com"}},
		},
	}

	jobs := childAt(doc, []string{"uid", "jobs"})
	if _, ok := jobs.([]any); !ok {
		t.Fatalf("childAt returned %T, want []any", jobs)
	}

	if childAt(doc, []string{"uid", "missing"}) != nil {
		t.Error("missing key should read as nil")
	}
	if childAt(doc, []string{"uid", "jobs", "0"}) != nil {
		t.Error("descending into an array should read as nil")
	}
}

func TestWriteAtCreatesBranches(t *testing.T) {
	doc := writeAt(nil, []string{"stage_2", "item", "approved"}, true)

	want := map[string]any{
		"stage_2": map[string]any{
			"item": map[string]any{"approved": true},
		},
	}
	if !reflect.DeepEqual(doc, any(want)) {
		t.Fatalf("doc = %v, want %v", doc, want)
	}
}

func TestWriteAtPreservesSiblings(t *testing.T) {
	doc := writeAt(nil, []string{"stage_1", "a"}, "x")
	doc = writeAt(doc, []string{"stage_1", "b"}, "y")

	bucket := doc.(map[string]any)["stage_1"].(map[string]any)
	if bucket["a"] != "x" || bucket["b"] != "y" {
		t.Fatalf("bucket = %v", bucket)
	}
}

func TestWriteAtNilDeletesAndCollapses(t *testing.T) {
	doc := writeAt(nil, []string{"stage_1", "a"}, "x")
	doc = writeAt(doc, []string{"stage_1", "a"}, nil)

	if doc != nil {
		t.Fatalf("doc = %v, want nil after deleting only leaf", doc)
	}
}

func TestWriteAtRootReplaces(t *testing.T) {
	doc := writeAt(map[string]any{"old": true}, nil, map[string]any{"new": true})

	root := doc.(map[string]any)
	if _, exists := root["old"]; exists {
		t.Fatalf("root write should replace, doc = %v", doc)
	}
}
