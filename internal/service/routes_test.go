package service

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Droshow/copidock/internal/blob"
	"github.com/Droshow/copidock/internal/proto"
	"github.com/Droshow/copidock/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	dir := t.TempDir()
	db, err := store.Open(filepath.Join(dir, "copidock.db"))
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	blobs, err := blob.NewStore(filepath.Join(dir, "objects"))
	if err != nil {
		t.Fatalf("opening blob store: %v", err)
	}

	signer := blob.NewSigner([]byte("test-secret"))
	h := NewHandler(db, blobs, signer, "", nil)
	srv := httptest.NewServer(NewRouter(h))
	t.Cleanup(srv.Close)

	h.baseURL = srv.URL
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func startThread(t *testing.T, srv *httptest.Server) proto.ThreadStartResponse {
	t.Helper()
	resp := postJSON(t, srv.URL+"/thread/start", proto.ThreadStartRequest{
		Goal:   "fix login flow",
		Repo:   "shop",
		Branch: "main",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("thread start status = %d", resp.StatusCode)
	}
	return decode[proto.ThreadStartResponse](t, resp)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	health := decode[proto.HealthResponse](t, resp)
	if health.Status != "ok" || health.Version != Version {
		t.Errorf("health = %+v", health)
	}
}

func TestThreadStart(t *testing.T) {
	srv := newTestServer(t)

	thread := startThread(t, srv)
	if thread.ThreadID == "" {
		t.Error("missing thread_id")
	}
	if thread.ThreadName != "fix login flow" {
		t.Errorf("thread_name = %q", thread.ThreadName)
	}
}

func TestThreadStartRequiresGoal(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/thread/start", proto.ThreadStartRequest{Goal: "   "})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestNotes(t *testing.T) {
	srv := newTestServer(t)
	thread := startThread(t, srv)

	resp := postJSON(t, srv.URL+"/notes", proto.NoteCreateRequest{
		Content:  "decided to use refresh tokens",
		Tags:     []string{"decision"},
		ThreadID: thread.ThreadID,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	note := decode[proto.NoteCreateResponse](t, resp)
	if note.NoteID == "" {
		t.Error("missing note_id")
	}

	listResp, err := http.Get(srv.URL + "/notes?thread_id=" + thread.ThreadID)
	if err != nil {
		t.Fatal(err)
	}
	list := decode[proto.NotesListResponse](t, listResp)
	if list.Count != 1 || len(list.Notes) != 1 {
		t.Fatalf("list = %+v", list)
	}
	if list.Notes[0].Content != "decided to use refresh tokens" {
		t.Errorf("content = %q", list.Notes[0].Content)
	}
}

func TestNoteValidation(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/notes", proto.NoteCreateRequest{Content: ""})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty content status = %d, want 400", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/notes", proto.NoteCreateRequest{
		Content: strings.Repeat("x", maxNoteSize+1),
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized content status = %d, want 413", resp.StatusCode)
	}
}

func TestSnapshotFlow(t *testing.T) {
	srv := newTestServer(t)
	thread := startThread(t, srv)

	resp := postJSON(t, srv.URL+"/snapshot", proto.SnapshotRequest{
		ThreadID: thread.ThreadID,
		Paths:    []string{"api/login.go", "api/session.go"},
		Message:  "before refactor",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("snapshot status = %d", resp.StatusCode)
	}
	snap := decode[proto.SnapshotResponse](t, resp)
	if snap.Version != 1 {
		t.Errorf("version = %d", snap.Version)
	}
	if !strings.Contains(snap.ObjectKey, "snapshot-v001.md") {
		t.Errorf("object key = %q", snap.ObjectKey)
	}
	if snap.SourcesCount != 2 {
		t.Errorf("sources count = %d", snap.SourcesCount)
	}

	// The presigned URL serves the rendered document.
	dlResp, err := http.Get(snap.PresignedURL)
	if err != nil {
		t.Fatal(err)
	}
	defer dlResp.Body.Close()
	if dlResp.StatusCode != http.StatusOK {
		t.Fatalf("download status = %d", dlResp.StatusCode)
	}
	body, err := io.ReadAll(dlResp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "api/login.go") {
		t.Errorf("document missing source reference:\n%s", body)
	}
}

func TestSnapshotUnknownThread(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/snapshot", proto.SnapshotRequest{ThreadID: "nope"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestComprehensiveSnapshotAndRehydrate(t *testing.T) {
	srv := newTestServer(t)
	thread := startThread(t, srv)

	resp := postJSON(t, srv.URL+"/snapshot/comprehensive", proto.ComprehensiveSnapshotRequest{
		ThreadID: thread.ThreadID,
		InlineSources: []proto.InlineSource{
			{Path: "api/login.go", Language: "go", Content: "package api"},
		},
		Synth: proto.SynthSections{
			OperatorInstructions: "## Operator Instructions\n\nwork carefully",
			CurrentState:         "## Current State\n\none file changed",
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("comprehensive status = %d", resp.StatusCode)
	}
	snap := decode[proto.SnapshotResponse](t, resp)
	if snap.Type != "comprehensive" {
		t.Errorf("type = %q", snap.Type)
	}
	if len(snap.SynthesisSections) != 2 {
		t.Errorf("synthesis sections = %v", snap.SynthesisSections)
	}

	rehResp, err := http.Get(srv.URL + "/rehydrate/" + thread.ThreadID + "/latest")
	if err != nil {
		t.Fatal(err)
	}
	if rehResp.StatusCode != http.StatusOK {
		t.Fatalf("rehydrate status = %d", rehResp.StatusCode)
	}
	reh := decode[proto.RehydrateResponse](t, rehResp)
	if reh.LatestSnapshotKey != snap.ObjectKey {
		t.Errorf("latest key = %q, want %q", reh.LatestSnapshotKey, snap.ObjectKey)
	}
	if reh.SnapshotMetadata.Version != "1" {
		t.Errorf("metadata version = %q", reh.SnapshotMetadata.Version)
	}

	dlResp, err := http.Get(reh.PresignedURL)
	if err != nil {
		t.Fatal(err)
	}
	defer dlResp.Body.Close()
	body, err := io.ReadAll(dlResp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "````go\n// filepath: api/login.go") {
		t.Errorf("document missing fenced source:\n%s", body)
	}
}

func TestRehydrateBeforeAnySnapshot(t *testing.T) {
	srv := newTestServer(t)
	thread := startThread(t, srv)

	resp, err := http.Get(srv.URL + "/rehydrate/" + thread.ThreadID + "/latest")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestHydrate(t *testing.T) {
	srv := newTestServer(t)
	thread := startThread(t, srv)

	resp := postJSON(t, srv.URL+"/snapshots/"+thread.ThreadID+"/hydrate", proto.HydrateRequest{
		MarkdownContent: "# PRD: Shop\n\ncontent",
		Metadata:        map[string]string{"prd_id": "prd-20250314-090000"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("hydrate status = %d", resp.StatusCode)
	}
	hyd := decode[proto.HydrateResponse](t, resp)
	if hyd.RehydrationID == "" {
		t.Error("missing rehydration_id")
	}
	if !strings.HasPrefix(hyd.ObjectKey, "rehydrations/"+thread.ThreadID+"/") {
		t.Errorf("object key = %q", hyd.ObjectKey)
	}
}

func TestHydrateRequiresContent(t *testing.T) {
	srv := newTestServer(t)
	thread := startThread(t, srv)

	resp := postJSON(t, srv.URL+"/snapshots/"+thread.ThreadID+"/hydrate", proto.HydrateRequest{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestDownloadRejectsBadToken(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/download?token=garbage")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/download")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
