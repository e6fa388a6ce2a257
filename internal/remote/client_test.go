package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Droshow/copidock/internal/proto"
)

func TestStartThread(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/thread/start" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("X-Api-Key")

		var req proto.ThreadStartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Goal != "fix login" {
			t.Errorf("goal = %q", req.Goal)
		}

		json.NewEncoder(w).Encode(proto.ThreadStartResponse{
			ThreadID:   "t-1",
			ThreadName: "fix login",
			Goal:       req.Goal,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "key-123", time.Second)
	resp, err := c.StartThread(context.Background(), "fix login", "shop", "main")
	if err != nil {
		t.Fatal(err)
	}
	if resp.ThreadID != "t-1" {
		t.Errorf("thread id = %q", resp.ThreadID)
	}
	if gotAuth != "key-123" {
		t.Errorf("api key header = %q", gotAuth)
	}
}

func TestListNotesQueryParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("thread_id") != "t-1" || q.Get("limit") != "5" {
			t.Errorf("query = %v", q)
		}
		json.NewEncoder(w).Encode(proto.NotesListResponse{Notes: []proto.Note{}, Count: 0})
	}))
	defer srv.Close()

	c := New(srv.URL, "", time.Second)
	if _, err := c.ListNotes(context.Background(), "t-1", 5); err != nil {
		t.Fatal(err)
	}
}

func TestAPIErrorDecoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(proto.ErrorResponse{Error: "thread not found"})
	}))
	defer srv.Close()

	c := New(srv.URL, "", time.Second)
	_, err := c.CreateSnapshot(context.Background(), "nope", nil, "")
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %T %v", err, err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Message != "thread not found" {
		t.Errorf("api error = %+v", apiErr)
	}
}

func TestAPIErrorNonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "plain text failure", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, "", time.Second)
	_, err := c.StartThread(context.Background(), "goal", "", "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %T %v", err, err)
	}
	if apiErr.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d", apiErr.StatusCode)
	}
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("snapshot body"))
	}))
	defer srv.Close()

	c := New(srv.URL, "", time.Second)
	data, err := c.Download(context.Background(), srv.URL+"/download?token=x")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "snapshot body" {
		t.Errorf("data = %q", data)
	}
}
