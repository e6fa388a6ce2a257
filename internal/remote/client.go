// Package remote is the HTTP client for the copidock backend API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Droshow/copidock/internal/proto"
)

// Client talks to a copidock daemon or serverless deployment.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New creates a client. timeout bounds every request.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Message    string
	Details    string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("api error %d: %s (%s)", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// StartThread creates a new development thread.
func (c *Client) StartThread(ctx context.Context, goal, repo, branch string) (*proto.ThreadStartResponse, error) {
	var resp proto.ThreadStartResponse
	err := c.do(ctx, http.MethodPost, "/thread/start", proto.ThreadStartRequest{
		Goal: goal, Repo: repo, Branch: branch,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("starting thread: %w", err)
	}
	return &resp, nil
}

// CreateNote stores a free-text note.
func (c *Client) CreateNote(ctx context.Context, content string, tags []string, threadID string) (*proto.NoteCreateResponse, error) {
	var resp proto.NoteCreateResponse
	err := c.do(ctx, http.MethodPost, "/notes", proto.NoteCreateRequest{
		Content: content, Tags: tags, ThreadID: threadID,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("creating note: %w", err)
	}
	return &resp, nil
}

// ListNotes retrieves notes, optionally scoped to a thread.
func (c *Client) ListNotes(ctx context.Context, threadID string, limit int) (*proto.NotesListResponse, error) {
	path := "/notes"
	q := url.Values{}
	if threadID != "" {
		q.Set("thread_id", threadID)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp proto.NotesListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	return &resp, nil
}

// CreateSnapshot stores a regular snapshot of path references.
func (c *Client) CreateSnapshot(ctx context.Context, threadID string, paths []string, message string) (*proto.SnapshotResponse, error) {
	var resp proto.SnapshotResponse
	err := c.do(ctx, http.MethodPost, "/snapshot", proto.SnapshotRequest{
		ThreadID: threadID, Paths: paths, Message: message,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("creating snapshot: %w", err)
	}
	return &resp, nil
}

// CreateComprehensiveSnapshot stores a comprehensive snapshot.
func (c *Client) CreateComprehensiveSnapshot(ctx context.Context, req proto.ComprehensiveSnapshotRequest) (*proto.SnapshotResponse, error) {
	var resp proto.SnapshotResponse
	if err := c.do(ctx, http.MethodPost, "/snapshot/comprehensive", req, &resp); err != nil {
		return nil, fmt.Errorf("creating comprehensive snapshot: %w", err)
	}
	return &resp, nil
}

// Hydrate uploads an assembled markdown document for a thread.
func (c *Client) Hydrate(ctx context.Context, threadID, markdown string, metadata map[string]string) (*proto.HydrateResponse, error) {
	var resp proto.HydrateResponse
	path := "/snapshots/" + url.PathEscape(threadID) + "/hydrate"
	err := c.do(ctx, http.MethodPost, path, proto.HydrateRequest{
		MarkdownContent: markdown, Metadata: metadata,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("hydrating snapshot: %w", err)
	}
	return &resp, nil
}

// RehydrateLatest fetches the download pointer for a thread's latest
// snapshot.
func (c *Client) RehydrateLatest(ctx context.Context, threadID string) (*proto.RehydrateResponse, error) {
	var resp proto.RehydrateResponse
	path := "/rehydrate/" + url.PathEscape(threadID) + "/latest"
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("rehydrating thread: %w", err)
	}
	return &resp, nil
}

// Download fetches raw content from a presigned URL.
func (c *Client) Download(ctx context.Context, presignedURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, presignedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building download request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: "download failed"}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading download: %w", err)
	}
	return data, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr proto.ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr != nil || apiErr.Error == "" {
			return &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error, Details: apiErr.Details}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
