package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/abhisek/triplehelix/internal/backend"
)

// memStorage is an in-memory Storage for handler tests.
type memStorage struct {
	stitches map[string]backend.StitchRecord
	session  *backend.SessionRecord
	failing  bool
}

func newMemStorage() *memStorage {
	return &memStorage{stitches: make(map[string]backend.StitchRecord)}
}

func (m *memStorage) SaveStitch(_ context.Context, rec backend.StitchRecord) error {
	if m.failing {
		return errors.New("storage down")
	}
	m.stitches[rec.ThreadID+"/"+rec.StitchID] = rec
	return nil
}

func (m *memStorage) SaveSession(_ context.Context, rec backend.SessionRecord) error {
	if m.failing {
		return errors.New("storage down")
	}
	m.session = &rec
	return nil
}

func (m *memStorage) LoadSession(_ context.Context) (backend.SessionRecord, bool, error) {
	if m.failing {
		return backend.SessionRecord{}, false, errors.New("storage down")
	}
	if m.session == nil {
		return backend.SessionRecord{}, false, nil
	}
	return *m.session, true, nil
}

func (m *memStorage) LoadStitches(_ context.Context) ([]backend.StitchRecord, error) {
	if m.failing {
		return nil, errors.New("storage down")
	}
	var out []backend.StitchRecord
	for _, rec := range m.stitches {
		out = append(out, rec)
	}
	return out, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *memStorage) {
	t.Helper()
	storage := newMemStorage()
	ts := httptest.NewServer(New(":0", storage, nil).Handler())
	t.Cleanup(ts.Close)
	return ts, storage
}

func putJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestUpsertStitch(t *testing.T) {
	ts, storage := newTestServer(t)

	rec := backend.StitchRecord{Position: 3, SkipDistance: 5, Level: 2}
	resp := putJSON(t, ts.URL+"/api/stitches/add/s1", rec)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	// The URL key wins over anything in the body.
	got, ok := storage.stitches["add/s1"]
	if !ok {
		t.Fatal("stitch not persisted under URL key")
	}
	if got.ThreadID != "add" || got.StitchID != "s1" || got.Position != 3 {
		t.Errorf("persisted %+v", got)
	}
}

func TestUpsertStitch_Validation(t *testing.T) {
	ts, _ := newTestServer(t)

	cases := []struct {
		rec     backend.StitchRecord
		wantMsg string
	}{
		{backend.StitchRecord{Position: -1, SkipDistance: 5, Level: 1}, "position must be non-negative"},
		{backend.StitchRecord{Position: 0, SkipDistance: 0, Level: 1}, "skip distance must be positive"},
		{backend.StitchRecord{Position: 1, SkipDistance: -3, Level: 1}, "skip distance must be positive"},
	}
	for i, tc := range cases {
		resp := putJSON(t, ts.URL+"/api/stitches/add/s1", tc.rec)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("case %d: status = %d, want 400", i, resp.StatusCode)
			continue
		}
		var body map[string]string
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Errorf("case %d: decode error body: %v", i, err)
			continue
		}
		if body["error"] != tc.wantMsg {
			t.Errorf("case %d: error = %q, want %q", i, body["error"], tc.wantMsg)
		}
	}
}

func TestListStitches(t *testing.T) {
	ts, storage := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/stitches")
	if err != nil {
		t.Fatal(err)
	}
	var recs []backend.StitchRecord
	if err := json.NewDecoder(resp.Body).Decode(&recs); err != nil {
		t.Fatalf("decode empty list: %v", err)
	}
	resp.Body.Close()
	if len(recs) != 0 {
		t.Errorf("empty storage returned %d records", len(recs))
	}

	storage.stitches["add/s1"] = backend.StitchRecord{ThreadID: "add", StitchID: "s1", Position: 1, SkipDistance: 3, Level: 1}
	resp, err = http.Get(ts.URL + "/api/stitches")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&recs); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(recs) != 1 || recs[0].StitchID != "s1" {
		t.Errorf("list = %+v", recs)
	}
}

func TestState(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/state")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("absent state status = %d, want 404", resp.StatusCode)
	}

	resp = putJSON(t, ts.URL+"/api/state", backend.SessionRecord{ActiveTube: 2, ThreadID: "sub", CycleCount: 1})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put state status = %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/state")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var rec backend.SessionRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		t.Fatal(err)
	}
	if rec.ActiveTube != 2 || rec.ThreadID != "sub" || rec.CycleCount != 1 {
		t.Errorf("state = %+v", rec)
	}
}

func TestPutState_RejectsBadTube(t *testing.T) {
	ts, _ := newTestServer(t)
	for _, tube := range []int{0, 4, -1} {
		resp := putJSON(t, ts.URL+"/api/state", backend.SessionRecord{ActiveTube: tube})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("tube %d: status = %d, want 400", tube, resp.StatusCode)
		}
	}
}

func TestStorageErrorsSurfaceAs500(t *testing.T) {
	ts, storage := newTestServer(t)
	storage.failing = true

	resp, err := http.Get(ts.URL + "/api/stitches")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("list status = %d, want 500", resp.StatusCode)
	}

	resp = putJSON(t, ts.URL+"/api/stitches/add/s1", backend.StitchRecord{Position: 1, SkipDistance: 3, Level: 1})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("upsert status = %d, want 500", resp.StatusCode)
	}
}
