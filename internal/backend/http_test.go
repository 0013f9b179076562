package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	cfg := DefaultClientConfig(ts.URL)
	cfg.InitialInterval = time.Millisecond
	c, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	if _, err := NewClient(ClientConfig{}); err == nil {
		t.Fatal("expected error for empty base URL")
	}
}

func TestSaveStitch(t *testing.T) {
	var gotPath string
	var gotRec StitchRecord
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotRec); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))

	rec := StitchRecord{ThreadID: "add", StitchID: "s1", Position: 3, SkipDistance: 5, Level: 2}
	if err := c.SaveStitch(context.Background(), rec); err != nil {
		t.Fatalf("SaveStitch: %v", err)
	}
	if gotPath != "/api/stitches/add/s1" {
		t.Errorf("path = %q", gotPath)
	}
	if gotRec != rec {
		t.Errorf("body = %+v, want %+v", gotRec, rec)
	}
}

func TestLoadSession_NotFound(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"no session state"}`, http.StatusNotFound)
	}))

	_, ok, err := c.LoadSession(context.Background())
	if err != nil {
		t.Fatalf("LoadSession on 404: %v, want absent without error", err)
	}
	if ok {
		t.Error("ok = true for absent session")
	}
}

func TestLoadSession(t *testing.T) {
	want := SessionRecord{ActiveTube: 2, ThreadID: "sub", CycleCount: 4}
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(want)
	}))

	got, ok, err := c.LoadSession(context.Background())
	if err != nil || !ok {
		t.Fatalf("LoadSession = ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Errorf("session = %+v, want %+v", got, want)
	}
}

func TestLoadStitches(t *testing.T) {
	want := []StitchRecord{
		{ThreadID: "add", StitchID: "s1", Position: 0, SkipDistance: 3, Level: 1},
		{ThreadID: "add", StitchID: "s2", Position: 1, SkipDistance: 5, Level: 2},
	}
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(want)
	}))

	got, err := c.LoadStitches(context.Background())
	if err != nil {
		t.Fatalf("LoadStitches: %v", err)
	}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("stitches = %+v", got)
	}
}

func TestSend_RetriesServerErrors(t *testing.T) {
	var calls int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	err := c.SaveSession(context.Background(), SessionRecord{ActiveTube: 1})
	if err != nil {
		t.Fatalf("SaveSession after recovery: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestSend_ClientErrorsArePermanent(t *testing.T) {
	var calls int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad record", http.StatusBadRequest)
	}))

	err := c.SaveSession(context.Background(), SessionRecord{ActiveTube: 1})
	if err == nil {
		t.Fatal("4xx did not surface as error")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls = %d, want no retry on 4xx", got)
	}
}

func TestSend_ExhaustedRetriesSurfaceError(t *testing.T) {
	var calls int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))

	err := c.SaveSession(context.Background(), SessionRecord{ActiveTube: 1})
	if err == nil {
		t.Fatal("persistent 5xx did not surface as error")
	}
	// Initial attempt plus MaxRetries.
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}
