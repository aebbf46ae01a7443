package note

import (
	"encoding/json"
	"time"

	"github.com/johnquangdev/notetaker/internal/adapter/dto/common"
)

// NoteResponse represents a note in responses
type NoteResponse struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"owner_id"`
	Title     string          `json:"title"`
	Content   json.RawMessage `json:"content,omitempty" swaggertype:"object"`
	Notice    string          `json:"notice,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NoteListResponse represents a page of notes. Content is omitted.
type NoteListResponse struct {
	Notes      []*NoteResponse            `json:"notes"`
	Pagination *common.PaginationResponse `json:"pagination"`
}

type MarkdownResponse struct {
	Markdown string `json:"markdown"`
}

type HTMLResponse struct {
	HTML string `json:"html"`
}

// ImageResponse describes how an attached image settled
type ImageResponse struct {
	NodeKey   uint64 `json:"node_key"`
	ObjectKey string `json:"object_key,omitempty"`
	Src       string `json:"src,omitempty"`
}

// AttachImageResponse represents the note after an image upload
type AttachImageResponse struct {
	Note  *NoteResponse  `json:"note"`
	Image *ImageResponse `json:"image"`
}
