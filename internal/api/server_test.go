package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"igait-client/internal/realtime"
)

type fakeStore struct {
	listeners map[string]func(any)
	writes    []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{listeners: map[string]func(any){}}
}

func (f *fakeStore) Listen(path string, onValue func(any), onError func(error)) realtime.Unsubscribe {
	f.listeners[path] = onValue
	return func() {}
}

func (f *fakeStore) Set(_ context.Context, path string, value any) error {
	f.writes = append(f.writes, path)
	return nil
}

func newTestServer() (*Server, *fakeStore) {
	store := newFakeStore()
	sub := realtime.NewSubscriber(store, zap.NewNop())
	server := NewServer(":0", sub, zap.NewNop())
	server.attachSubscriptions()
	return server, store
}

func do(t *testing.T, server *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestJobsUnavailableBeforeFirstSnapshot(t *testing.T) {
	server, _ := newTestServer()

	rec := do(t, server, "GET", "/api/v1/jobs", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 during warmup", rec.Code)
	}
}

func TestJobsServedFromSnapshot(t *testing.T) {
	server, store := newTestServer()

	store.listeners["users"](map[string]any{
		"uid": map[string]any{
			"jobs": []any{map[string]any{"email": "a@b.com", "timestamp": float64(4)}},
		},
	})

	rec := do(t, server, "GET", "/api/v1/jobs", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var payload struct {
		Count int `json:"count"`
		Jobs  []struct {
			ID string `json:"id"`
		} `json:"jobs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Count != 1 || payload.Jobs[0].ID != "uid_0" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestQueuesAlwaysCarryEveryBucket(t *testing.T) {
	server, store := newTestServer()

	store.listeners["queues"](nil)

	rec := do(t, server, "GET", "/api/v1/queues", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var buckets map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &buckets); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"stage_1", "stage_6", "finalize"} {
		if buckets[key] == nil {
			t.Errorf("bucket %s missing from response", key)
		}
	}
}

func TestApproveUnknownItem(t *testing.T) {
	server, store := newTestServer()
	store.listeners["queues"](nil)

	rec := do(t, server, "POST", "/api/v1/queues/stage_1/nope/approve", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestApproveWritesThroughStore(t *testing.T) {
	server, store := newTestServer()
	store.listeners["queues"](map[string]any{
		"stage_2": map[string]any{
			"item1": map[string]any{"job_id": "uid_3", "user_id": "uid"},
		},
	})

	rec := do(t, server, "POST", "/api/v1/queues/stage_2/item1/approve", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	if len(store.writes) != 2 {
		t.Fatalf("writes = %v, want queue then job record", store.writes)
	}
	if store.writes[0] != "queues/stage_2/item1/approved" ||
		store.writes[1] != "users/uid/jobs/3/approved" {
		t.Errorf("writes = %v", store.writes)
	}
}

func TestUpdateQueueConfig(t *testing.T) {
	server, store := newTestServer()

	rec := do(t, server, "PUT", "/api/v1/queue_config/stage_4", `{"requires_approval":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if len(store.writes) != 1 || store.writes[0] != "queue_config/stage_4/requires_approval" {
		t.Errorf("writes = %v", store.writes)
	}

	rec = do(t, server, "PUT", "/api/v1/queue_config/stage_4", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing flag accepted, status = %d", rec.Code)
	}
}

func TestHealthIsAlwaysServed(t *testing.T) {
	server, _ := newTestServer()

	rec := do(t, server, "GET", "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "igait-status") {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestUnknownEndpoint(t *testing.T) {
	server, _ := newTestServer()

	rec := do(t, server, "GET", "/api/v2/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}
