// Package proto defines wire format DTOs for the copidock HTTP API.
package proto

// ErrorResponse is the uniform error body for all endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// HealthResponse reports daemon liveness.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ThreadStartRequest creates a new development thread.
type ThreadStartRequest struct {
	Goal   string `json:"goal"`
	Repo   string `json:"repo,omitempty"`
	Branch string `json:"branch,omitempty"`
}

// ThreadStartResponse returns the created thread's identity.
type ThreadStartResponse struct {
	ThreadID   string `json:"thread_id"`
	ThreadName string `json:"thread_name"`
	Goal       string `json:"goal"`
	Repo       string `json:"repo"`
	Branch     string `json:"branch"`
	CreatedAt  string `json:"created_at"`
}

// NoteCreateRequest stores a free-text note.
type NoteCreateRequest struct {
	Content  string   `json:"content"`
	Tags     []string `json:"tags,omitempty"`
	ThreadID string   `json:"thread_id,omitempty"`
}

// NoteCreateResponse echoes the stored note.
type NoteCreateResponse struct {
	NoteID    string   `json:"note_id"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags"`
	ThreadID  string   `json:"thread_id"`
	CreatedAt string   `json:"created_at"`
}

// Note is one note in list responses.
type Note struct {
	NoteID    string   `json:"note_id"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags"`
	ThreadID  string   `json:"thread_id"`
	CreatedAt string   `json:"created_at"`
	Type      string   `json:"type"`
}

// NotesListResponse contains notes newest first.
type NotesListResponse struct {
	Notes   []Note `json:"notes"`
	Count   int    `json:"count"`
	HasMore bool   `json:"has_more,omitempty"`
}

// SnapshotRequest creates a regular snapshot from path references.
type SnapshotRequest struct {
	ThreadID string   `json:"thread_id"`
	Paths    []string `json:"paths,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// InlineSource is a file inlined into a comprehensive snapshot.
type InlineSource struct {
	Path     string `json:"path"`
	Language string `json:"language,omitempty"`
	Content  string `json:"content"`
}

// SynthSections carries pre-rendered synthesis sections.
type SynthSections struct {
	OperatorInstructions string `json:"operator_instructions,omitempty"`
	CurrentState         string `json:"current_state,omitempty"`
	DecisionsConstraints string `json:"decisions_constraints,omitempty"`
	OpenQuestions        string `json:"open_questions,omitempty"`
}

// ComprehensiveSnapshotRequest creates a comprehensive snapshot with
// inlined sources and synthesis sections.
type ComprehensiveSnapshotRequest struct {
	ThreadID      string         `json:"thread_id"`
	InlineSources []InlineSource `json:"inline_sources,omitempty"`
	Synth         SynthSections  `json:"synth"`
	Message       string         `json:"message,omitempty"`
}

// SnapshotResponse describes a stored snapshot version.
type SnapshotResponse struct {
	SnapshotID        string   `json:"snapshot_id"`
	ThreadID          string   `json:"thread_id"`
	Version           int      `json:"version"`
	ObjectKey         string   `json:"object_key"`
	PresignedURL      string   `json:"presigned_url"`
	CreatedAt         string   `json:"created_at"`
	Type              string   `json:"type"`
	SourcesCount      int      `json:"sources_count"`
	SynthesisSections []string `json:"synthesis_sections,omitempty"`
}

// HydrateRequest stores an already-assembled markdown document.
type HydrateRequest struct {
	MarkdownContent string            `json:"markdown_content"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// HydrateResponse identifies the stored document.
type HydrateResponse struct {
	RehydrationID string            `json:"rehydration_id"`
	ThreadID      string            `json:"thread_id"`
	ObjectKey     string            `json:"object_key"`
	Message       string            `json:"message"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// RehydrateResponse points at the latest snapshot for a thread.
type RehydrateResponse struct {
	ThreadID          string           `json:"thread_id"`
	ThreadName        string           `json:"thread_name"`
	LatestSnapshotKey string           `json:"latest_snapshot_key"`
	PresignedURL      string           `json:"presigned_url"`
	SnapshotMetadata  SnapshotMetadata `json:"snapshot_metadata"`
	ExpiresIn         int              `json:"expires_in"`
}

// SnapshotMetadata is the metadata block in rehydrate responses.
type SnapshotMetadata struct {
	Version    string `json:"version"`
	CreatedAt  string `json:"created_at"`
	SnapshotID string `json:"snapshot_id"`
}
