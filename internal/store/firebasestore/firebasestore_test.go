package firebasestore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestApplyPutRoot(t *testing.T) {
	tree := applyPut(nil, "/", map[string]any{"a": "x"})

	want := map[string]any{"a": "x"}
	if !reflect.DeepEqual(tree, any(want)) {
		t.Fatalf("tree = %v, want %v", tree, want)
	}
}

func TestApplyPutNestedCreatesBranches(t *testing.T) {
	tree := applyPut(nil, "/users/uid/jobs/0", map[string]any{"email": "a@b.com"})

	users := tree.(map[string]any)["users"].(map[string]any)
	jobs := users["uid"].(map[string]any)["jobs"].(map[string]any)
	if jobs["0"].(map[string]any)["email"] != "a@b.com" {
		t.Fatalf("nested put lost data: %v", tree)
	}
}

func TestApplyPutNilDeletes(t *testing.T) {
	tree := applyPut(nil, "/", map[string]any{
		"a": map[string]any{"x": float64(1)},
		"b": float64(2),
	})

	tree = applyPut(tree, "/a/x", nil)

	root := tree.(map[string]any)
	if _, exists := root["a"]; exists {
		t.Errorf("emptied branch should collapse, tree = %v", tree)
	}
	if root["b"] != float64(2) {
		t.Errorf("sibling lost, tree = %v", tree)
	}
}

func TestApplyPutDeletingLastNodeEmptiesTree(t *testing.T) {
	tree := applyPut(nil, "/only", "v")
	tree = applyPut(tree, "/only", nil)

	if tree != nil {
		t.Fatalf("tree = %v, want nil", tree)
	}
}

func TestApplyPatchMergesSiblings(t *testing.T) {
	tree := applyPut(nil, "/", map[string]any{
		"job": map[string]any{"email": "a@b.com", "age": float64(30)},
	})

	tree = applyPatch(tree, "/job", map[string]any{"age": float64(31), "sex": "F"})

	job := tree.(map[string]any)["job"].(map[string]any)
	if job["email"] != "a@b.com" || job["age"] != float64(31) || job["sex"] != "F" {
		t.Fatalf("patch result = %v", job)
	}
}

func TestReadEventsParsesGroups(t *testing.T) {
	stream := strings.Join([]string{
		"event: put",
		`data: {"path":"/","data":{"a":1}}`,
		"",
		"event: keep-alive",
		"data: null",
		"",
		"event: patch",
		`data: {"path":"/a","data":{"b":2}}`,
		"",
	}, "\n")

	var events []streamEvent
	err := readEvents(strings.NewReader(stream), func(ev streamEvent) error {
		events = append(events, ev)
		return nil
	})
	if err != nil {
		t.Fatalf("readEvents: %v", err)
	}

	if len(events) != 3 {
		t.Fatalf("parsed %d events, want 3", len(events))
	}
	if events[0].name != "put" || events[1].name != "keep-alive" || events[2].name != "patch" {
		t.Errorf("event names = %v", []string{events[0].name, events[1].name, events[2].name})
	}
	if events[2].data != `{"path":"/a","data":{"b":2}}` {
		t.Errorf("data = %q", events[2].data)
	}
}

func TestApplyEventSequence(t *testing.T) {
	var tree any

	apply := func(name, data string) bool {
		t.Helper()
		next, changed, err := applyEvent(tree, streamEvent{name: name, data: data})
		if err != nil {
			t.Fatalf("applyEvent(%s): %v", name, err)
		}
		tree = next
		return changed
	}

	if !apply("put", `{"path":"/","data":{"queues":{"stage_1":{}}}}`) {
		t.Error("initial put should report a change")
	}
	if apply("keep-alive", "null") {
		t.Error("keep-alive must not report a change")
	}
	apply("patch", `{"path":"/queues/stage_1","data":{"item":{"job_id":"u_0"}}}`)

	raw, _ := json.Marshal(tree)
	if !strings.Contains(string(raw), `"job_id":"u_0"`) {
		t.Fatalf("tree after sequence = %s", raw)
	}
}

func TestApplyEventCancelIsPermanent(t *testing.T) {
	_, _, err := applyEvent(nil, streamEvent{name: "cancel"})
	if err == nil {
		t.Fatal("cancel should end the stream")
	}
}

func TestSetWritesJSON(t *testing.T) {
	var gotPath, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := New(server.URL, nil, zap.NewNop())
	if err := store.Set(context.Background(), "queue_config/stage_1/requires_approval", true); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if gotPath != "/queue_config/stage_1/requires_approval.json" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody != "true" {
		t.Errorf("body = %q", gotBody)
	}
}

func TestSetSurfacesRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":"Permission denied"}`)
	}))
	defer server.Close()

	store := New(server.URL, nil, zap.NewNop())
	err := store.Set(context.Background(), "queues/stage_1/k/approved", true)
	if err == nil {
		t.Fatal("expected error on 403")
	}
	if !strings.Contains(err.Error(), "403") {
		t.Errorf("error = %v, want status code surfaced", err)
	}
}

func TestListenEmitsSnapshots(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")

		fmt.Fprint(w, "event: put\ndata: {\"path\":\"/\",\"data\":{\"jobs\":[{\"email\":\"a@b.com\"}]}}\n\n")
		flusher.Flush()
		fmt.Fprint(w, "event: patch\ndata: {\"path\":\"/jobs\",\"data\":{\"1\":{\"email\":\"c@d.com\"}}}\n\n")
		flusher.Flush()

		// Hold the connection open until the client goes away.
		<-r.Context().Done()
	}))
	defer server.Close()

	store := New(server.URL, nil, zap.NewNop())

	snapshots := make(chan any, 8)
	unsub := store.Listen("users/uid",
		func(value any) { snapshots <- value },
		func(err error) { t.Errorf("unexpected stream error: %v", err) })
	defer unsub()

	first := waitSnapshot(t, snapshots)
	raw, _ := json.Marshal(first)
	if !strings.Contains(string(raw), "a@b.com") {
		t.Fatalf("first snapshot = %s", raw)
	}

	second := waitSnapshot(t, snapshots)
	raw, _ = json.Marshal(second)
	if !strings.Contains(string(raw), "c@d.com") {
		t.Fatalf("second snapshot = %s", raw)
	}
}

func TestListenReconnectsAfterStreamDrop(t *testing.T) {
	var mu sync.Mutex
	connections := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		connections++
		attempt := connections
		mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)

		if attempt == 1 {
			// First connection delivers a snapshot, then drops.
			fmt.Fprint(w, "event: put\ndata: {\"path\":\"/\",\"data\":{\"phase\":\"before-drop\"}}\n\n")
			flusher.Flush()
			return
		}

		fmt.Fprint(w, "event: put\ndata: {\"path\":\"/\",\"data\":{\"phase\":\"after-reconnect\"}}\n\n")
		flusher.Flush()
		<-r.Context().Done()
	}))
	defer server.Close()

	store := New(server.URL, nil, zap.NewNop())

	snapshots := make(chan any, 8)
	unsub := store.Listen("users/uid",
		func(value any) { snapshots <- value },
		func(err error) { t.Errorf("stream gave up instead of reconnecting: %v", err) })
	defer unsub()

	first, _ := json.Marshal(waitSnapshot(t, snapshots))
	if !strings.Contains(string(first), "before-drop") {
		t.Fatalf("first snapshot = %s", first)
	}

	// The reconnect waits out the initial backoff interval.
	select {
	case v := <-snapshots:
		raw, _ := json.Marshal(v)
		if !strings.Contains(string(raw), "after-reconnect") {
			t.Fatalf("post-reconnect snapshot = %s", raw)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("stream never reconnected after the drop")
	}

	mu.Lock()
	defer mu.Unlock()
	if connections < 2 {
		t.Fatalf("server saw %d connections, want a reconnect", connections)
	}
}

func TestListenStopsAfterUnsubscribe(t *testing.T) {
	disconnected := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: put\ndata: {\"path\":\"/\",\"data\":null}\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
		close(disconnected)
	}))
	defer server.Close()

	store := New(server.URL, nil, zap.NewNop())

	snapshots := make(chan any, 1)
	unsub := store.Listen("queues",
		func(value any) { snapshots <- value },
		func(err error) {})

	waitSnapshot(t, snapshots)
	unsub()

	select {
	case <-disconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("unsubscribe did not close the connection")
	}
}

func waitSnapshot(t *testing.T, ch chan any) any {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}
