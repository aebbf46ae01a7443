package note

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/johnquangdev/notetaker/internal/domain/entities"
	"github.com/johnquangdev/notetaker/internal/editor"
	"github.com/johnquangdev/notetaker/internal/infrastructure/storage"
)

// Service defines the interface for the note use case
type Service interface {
	// Create stores a new note. Empty content starts an empty document.
	Create(ctx context.Context, input CreateNoteInput) (*Document, error)

	// Get loads a note. Content that cannot be parsed is replaced by an
	// empty document and reported through Document.Notice.
	Get(ctx context.Context, id uuid.UUID) (*Document, error)

	// Update patches title and/or content
	Update(ctx context.Context, id uuid.UUID, input UpdateNoteInput) (*Document, error)

	Delete(ctx context.Context, id uuid.UUID) error

	List(ctx context.Context, filter entities.NoteFilter) ([]*entities.Note, int64, error)

	// ExportMarkdown renders a note as Markdown
	ExportMarkdown(ctx context.Context, id uuid.UUID) (string, error)

	// RenderHTML renders a note as sanitized HTML
	RenderHTML(ctx context.Context, id uuid.UUID) (string, error)

	// ImportMarkdown creates a note from Markdown
	ImportMarkdown(ctx context.Context, input ImportMarkdownInput) (*Document, error)

	// PresignImageUpload reserves an object key for a client-side image upload
	PresignImageUpload(ctx context.Context, ownerID, mimeType string) (*storage.PresignedUpload, error)

	// AttachImage appends an image to a note, uploads it and saves the
	// settled document
	AttachImage(ctx context.Context, id uuid.UUID, input AttachImageInput) (*Document, *UploadResult, error)
}

// Document is a note with its parsed editor state
type Document struct {
	Note   *entities.Note
	State  *editor.EditorState
	Notice string
}

// Content returns the serialized editor state
func (d *Document) Content() json.RawMessage {
	return json.RawMessage(d.Note.Content)
}

type CreateNoteInput struct {
	OwnerID string
	Title   string
	Content json.RawMessage
}

type UpdateNoteInput struct {
	Title   *string
	Content json.RawMessage
}

type ImportMarkdownInput struct {
	OwnerID  string
	Title    string
	Markdown string
}

type AttachImageInput struct {
	OwnerID string
	Image   ImageFile
}

// Ensure NoteService implements Service interface
var _ Service = (*NoteService)(nil)
