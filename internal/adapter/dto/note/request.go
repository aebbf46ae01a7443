package note

import "encoding/json"

// CreateNoteRequest represents the request to create a note
type CreateNoteRequest struct {
	Title   string          `json:"title" validate:"max=255"`
	Content json.RawMessage `json:"content,omitempty" swaggertype:"object"`
}

// UpdateNoteRequest represents the request to update a note. Omitted
// fields are left unchanged.
type UpdateNoteRequest struct {
	Title   *string         `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Content json.RawMessage `json:"content,omitempty" swaggertype:"object"`
}

// ListNotesRequest represents query parameters for listing notes
type ListNotesRequest struct {
	Search   string `query:"search"`
	Page     int    `query:"page" validate:"min=1"`
	PageSize int    `query:"page_size" validate:"min=1,max=100"`
}

// ImportMarkdownRequest represents the request to create a note from Markdown
type ImportMarkdownRequest struct {
	Title    string `json:"title" validate:"max=255"`
	Markdown string `json:"markdown" validate:"required"`
}

// PresignImageRequest represents the request for a direct image upload URL
type PresignImageRequest struct {
	MimeType string `json:"mime_type" validate:"required,mimetype"`
}
