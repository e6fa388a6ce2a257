// Package service provides the HTTP API for the copidock daemon.
package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Droshow/copidock/internal/assemble"
	"github.com/Droshow/copidock/internal/blob"
	"github.com/Droshow/copidock/internal/proto"
	"github.com/Droshow/copidock/internal/store"
	"github.com/Droshow/copidock/internal/synth"
)

// Version is reported by the health endpoint.
const Version = "0.3.0"

// maxNoteSize caps note content at 200KB.
const maxNoteSize = 200 * 1024

// Handler wires storage into HTTP handlers.
type Handler struct {
	db      *store.DB
	blobs   *blob.Store
	signer  *blob.Signer
	baseURL string
	log     *slog.Logger
	now     func() time.Time
}

// NewHandler creates an API handler. baseURL is the externally visible
// address used in presigned download links.
func NewHandler(db *store.DB, blobs *blob.Store, signer *blob.Signer, baseURL string, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		db:      db,
		blobs:   blobs,
		signer:  signer,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
		now:     time.Now,
	}
}

// NewRouter registers all routes.
func NewRouter(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /healthz", h.Health)

	mux.HandleFunc("POST /thread/start", h.ThreadStart)

	mux.HandleFunc("POST /notes", h.CreateNote)
	mux.HandleFunc("GET /notes", h.ListNotes)

	mux.HandleFunc("POST /snapshot", h.CreateSnapshot)
	mux.HandleFunc("POST /snapshot/comprehensive", h.CreateComprehensiveSnapshot)

	mux.HandleFunc("POST /snapshots/{thread_id}/hydrate", h.Hydrate)
	mux.HandleFunc("GET /rehydrate/{thread}/latest", h.RehydrateLatest)

	mux.HandleFunc("GET /download", h.Download)

	return mux
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, proto.HealthResponse{Status: "ok", Version: Version})
}

// ----- Threads -----

func (h *Handler) ThreadStart(w http.ResponseWriter, r *http.Request) {
	var req proto.ThreadStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	goal := strings.TrimSpace(req.Goal)
	if goal == "" {
		writeError(w, http.StatusBadRequest, "goal is required", nil)
		return
	}
	branch := strings.TrimSpace(req.Branch)
	if branch == "" {
		branch = "main"
	}

	now := h.now()
	threadID := uuid.NewString()
	threadName := assemble.ThreadName(goal, now)
	createdAt := store.NowISO(now)

	err := h.db.CreateThread(store.Thread{
		ThreadID:   threadID,
		ThreadName: threadName,
		Goal:       goal,
		Repo:       strings.TrimSpace(req.Repo),
		Branch:     branch,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	})
	if err != nil {
		h.log.Error("creating thread", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error", nil)
		return
	}

	writeJSON(w, http.StatusOK, proto.ThreadStartResponse{
		ThreadID:   threadID,
		ThreadName: threadName,
		Goal:       goal,
		Repo:       strings.TrimSpace(req.Repo),
		Branch:     branch,
		CreatedAt:  createdAt,
	})
}

// ----- Notes -----

func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req proto.NoteCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		writeError(w, http.StatusBadRequest, "content is required", nil)
		return
	}
	if len(content) > maxNoteSize {
		writeError(w, http.StatusRequestEntityTooLarge, "note too large (max 200KB)", nil)
		return
	}

	noteID := uuid.NewString()
	createdAt := store.NowISO(h.now())

	err := h.db.CreateNote(store.Note{
		NoteID:    noteID,
		ThreadID:  req.ThreadID,
		Content:   content,
		Tags:      req.Tags,
		CreatedAt: createdAt,
	})
	if err != nil {
		h.log.Error("creating note", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error", nil)
		return
	}

	writeJSON(w, http.StatusCreated, proto.NoteCreateResponse{
		NoteID:    noteID,
		Content:   content,
		Tags:      emptyIfNil(req.Tags),
		ThreadID:  req.ThreadID,
		CreatedAt: createdAt,
	})
}

func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	threadID := r.URL.Query().Get("thread_id")
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if limit > 100 {
		limit = 100
	}

	notes, err := h.db.ListNotes(threadID, limit)
	if err != nil {
		h.log.Error("listing notes", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error", nil)
		return
	}

	out := make([]proto.Note, 0, len(notes))
	for _, n := range notes {
		out = append(out, proto.Note{
			NoteID:    n.NoteID,
			Content:   n.Content,
			Tags:      emptyIfNil(n.Tags),
			ThreadID:  n.ThreadID,
			CreatedAt: n.CreatedAt,
			Type:      "note",
		})
	}

	writeJSON(w, http.StatusOK, proto.NotesListResponse{
		Notes:   out,
		Count:   len(out),
		HasMore: len(out) == limit,
	})
}

// ----- Snapshots -----

func (h *Handler) CreateSnapshot(w http.ResponseWriter, r *http.Request) {
	var req proto.SnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	threadID := strings.TrimSpace(req.ThreadID)
	if threadID == "" {
		writeError(w, http.StatusBadRequest, "thread_id is required", nil)
		return
	}

	thread, err := h.db.GetThread(threadID)
	if errors.Is(err, store.ErrThreadNotFound) {
		writeError(w, http.StatusNotFound, "thread not found", nil)
		return
	}
	if err != nil {
		h.log.Error("loading thread", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error", nil)
		return
	}

	now := h.now()
	snapshotID := uuid.NewString()

	version, err := h.db.IncrementSnapshotCount(threadID, store.NowISO(now))
	if err != nil {
		h.log.Error("incrementing snapshot count", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create snapshot version", nil)
		return
	}

	paths := req.Paths
	if len(paths) > 20 {
		paths = paths[:20]
	}

	key := assemble.SnapshotKey(threadID, now, version)
	meta := assemble.Meta{SnapshotID: snapshotID, Version: version, CreatedAt: now, Message: req.Message}
	content := assemble.Regular(threadFromStore(thread), paths, meta)

	url, err := h.storeSnapshot(key, content, threadID, snapshotID, version, "regular", req.Message, now)
	if err != nil {
		h.log.Error("storing snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error", nil)
		return
	}

	writeJSON(w, http.StatusOK, proto.SnapshotResponse{
		SnapshotID:   snapshotID,
		ThreadID:     threadID,
		Version:      version,
		ObjectKey:    key,
		PresignedURL: url,
		CreatedAt:    store.NowISO(now),
		Type:         "regular",
		SourcesCount: len(paths),
	})
}

func (h *Handler) CreateComprehensiveSnapshot(w http.ResponseWriter, r *http.Request) {
	var req proto.ComprehensiveSnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	threadID := strings.TrimSpace(req.ThreadID)
	if threadID == "" {
		writeError(w, http.StatusBadRequest, "thread_id is required", nil)
		return
	}

	thread, err := h.db.GetThread(threadID)
	if errors.Is(err, store.ErrThreadNotFound) {
		writeError(w, http.StatusNotFound, "thread not found", nil)
		return
	}
	if err != nil {
		h.log.Error("loading thread", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error", nil)
		return
	}

	now := h.now()
	snapshotID := uuid.NewString()

	version, err := h.db.IncrementSnapshotCount(threadID, store.NowISO(now))
	if err != nil {
		h.log.Error("incrementing snapshot count", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create snapshot version", nil)
		return
	}

	sources := make([]assemble.Source, len(req.InlineSources))
	for i, s := range req.InlineSources {
		sources[i] = assemble.Source{Path: s.Path, Language: s.Language, Content: s.Content}
	}
	sections := synth.Sections{
		OperatorInstructions: req.Synth.OperatorInstructions,
		CurrentState:         req.Synth.CurrentState,
		DecisionsConstraints: req.Synth.DecisionsConstraints,
		OpenQuestions:        req.Synth.OpenQuestions,
	}

	key := assemble.ComprehensiveKey(threadID, now, version)
	meta := assemble.Meta{SnapshotID: snapshotID, Version: version, CreatedAt: now, Message: req.Message}
	content := assemble.Comprehensive(threadFromStore(thread), sources, sections, meta)

	url, err := h.storeSnapshot(key, content, threadID, snapshotID, version, "comprehensive", req.Message, now)
	if err != nil {
		h.log.Error("storing comprehensive snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error", nil)
		return
	}

	writeJSON(w, http.StatusOK, proto.SnapshotResponse{
		SnapshotID:        snapshotID,
		ThreadID:          threadID,
		Version:           version,
		ObjectKey:         key,
		PresignedURL:      url,
		CreatedAt:         store.NowISO(now),
		Type:              "comprehensive",
		SourcesCount:      len(req.InlineSources),
		SynthesisSections: sectionNames(req.Synth),
	})
}

// storeSnapshot writes the document, records metadata, updates the
// thread pointer, and returns a presigned download URL.
func (h *Handler) storeSnapshot(key, content, threadID, snapshotID string, version int, kind, message string, now time.Time) (string, error) {
	_, err := h.blobs.Put(key, []byte(content), "text/markdown", map[string]string{
		"thread-id":   threadID,
		"snapshot-id": snapshotID,
		"version":     strconv.Itoa(version),
		"created-at":  store.NowISO(now),
		"type":        kind,
	})
	if err != nil {
		return "", fmt.Errorf("storing object: %w", err)
	}

	if err := h.db.RecordSnapshot(store.Snapshot{
		SnapshotID: snapshotID,
		ThreadID:   threadID,
		Version:    version,
		ObjectKey:  key,
		Kind:       kind,
		Message:    message,
		CreatedAt:  store.NowISO(now),
	}); err != nil {
		return "", fmt.Errorf("recording snapshot: %w", err)
	}

	if err := h.db.SetLatestSnapshotKey(threadID, key); err != nil {
		return "", fmt.Errorf("updating thread: %w", err)
	}

	return h.signer.PresignedURL(h.baseURL, key, now)
}

// ----- Hydrate / Rehydrate -----

func (h *Handler) Hydrate(w http.ResponseWriter, r *http.Request) {
	threadID := strings.TrimSpace(r.PathValue("thread_id"))
	if threadID == "" {
		writeError(w, http.StatusBadRequest, "thread_id parameter is required", nil)
		return
	}

	var req proto.HydrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.MarkdownContent == "" {
		writeError(w, http.StatusBadRequest, "markdown_content is required", nil)
		return
	}

	now := h.now()
	rehydrationID := uuid.NewString()
	key := assemble.RehydrationKey(threadID, rehydrationID, now)

	metadata := map[string]string{
		"thread-id":      threadID,
		"rehydration-id": rehydrationID,
		"created-at":     store.NowISO(now),
	}
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	if _, err := h.blobs.Put(key, []byte(req.MarkdownContent), "text/markdown", metadata); err != nil {
		h.log.Error("storing rehydration", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error", nil)
		return
	}

	// Thread bookkeeping is best-effort; the document is already
	// durable at this point.
	if err := h.db.SetLatestRehydration(threadID, rehydrationID, key, store.NowISO(now)); err != nil {
		h.log.Warn("updating thread rehydration pointer", "error", err)
	}

	writeJSON(w, http.StatusOK, proto.HydrateResponse{
		RehydrationID: rehydrationID,
		ThreadID:      threadID,
		ObjectKey:     key,
		Message:       "Snapshot hydrated successfully",
		Metadata:      req.Metadata,
	})
}

func (h *Handler) RehydrateLatest(w http.ResponseWriter, r *http.Request) {
	threadID := strings.TrimSpace(r.PathValue("thread"))
	if threadID == "" {
		writeError(w, http.StatusBadRequest, "thread parameter is required", nil)
		return
	}

	thread, err := h.db.GetThread(threadID)
	if errors.Is(err, store.ErrThreadNotFound) {
		writeError(w, http.StatusNotFound, "thread not found", nil)
		return
	}
	if err != nil {
		h.log.Error("loading thread", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error", nil)
		return
	}

	if thread.LatestSnapshotKey == "" {
		writeError(w, http.StatusNotFound, "no snapshots found for this thread", nil)
		return
	}

	info, err := h.blobs.Stat(thread.LatestSnapshotKey)
	if errors.Is(err, blob.ErrNotFound) {
		writeError(w, http.StatusNotFound, "latest snapshot object not found", nil)
		return
	}
	if err != nil {
		h.log.Error("inspecting snapshot object", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error", nil)
		return
	}

	url, err := h.signer.PresignedURL(h.baseURL, thread.LatestSnapshotKey, h.now())
	if err != nil {
		h.log.Error("signing download url", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error", nil)
		return
	}

	writeJSON(w, http.StatusOK, proto.RehydrateResponse{
		ThreadID:          threadID,
		ThreadName:        thread.ThreadName,
		LatestSnapshotKey: thread.LatestSnapshotKey,
		PresignedURL:      url,
		SnapshotMetadata: proto.SnapshotMetadata{
			Version:    orUnknown(info.Metadata["version"]),
			CreatedAt:  orUnknown(info.Metadata["created-at"]),
			SnapshotID: orUnknown(info.Metadata["snapshot-id"]),
		},
		ExpiresIn: int(blob.PresignTTL.Seconds()),
	})
}

// Download serves object content for a valid presigned token.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "token is required", nil)
		return
	}

	key, err := h.signer.Verify(token)
	if err != nil {
		writeError(w, http.StatusForbidden, "invalid or expired token", nil)
		return
	}

	data, info, err := h.blobs.Get(key)
	if errors.Is(err, blob.ErrNotFound) {
		writeError(w, http.StatusNotFound, "object not found", nil)
		return
	}
	if err != nil {
		h.log.Error("reading object", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error", nil)
		return
	}

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ----- Helpers -----

func threadFromStore(t *store.Thread) assemble.Thread {
	return assemble.Thread{
		ID:     t.ThreadID,
		Name:   t.ThreadName,
		Goal:   t.Goal,
		Repo:   t.Repo,
		Branch: t.Branch,
	}
}

func sectionNames(s proto.SynthSections) []string {
	var names []string
	if s.OperatorInstructions != "" {
		names = append(names, "operator_instructions")
	}
	if s.CurrentState != "" {
		names = append(names, "current_state")
	}
	if s.DecisionsConstraints != "" {
		names = append(names, "decisions_constraints")
	}
	if s.OpenQuestions != "" {
		names = append(names, "open_questions")
	}
	return names
}

func emptyIfNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := proto.ErrorResponse{Error: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
