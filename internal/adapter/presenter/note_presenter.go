package presenter

import (
	"github.com/johnquangdev/notetaker/internal/adapter/dto/common"
	"github.com/johnquangdev/notetaker/internal/adapter/dto/note"
	"github.com/johnquangdev/notetaker/internal/domain/entities"
	noteUsecase "github.com/johnquangdev/notetaker/internal/usecase/note"
)

// ToNoteResponse converts a loaded document to NoteResponse DTO
func ToNoteResponse(doc *noteUsecase.Document) *note.NoteResponse {
	if doc == nil || doc.Note == nil {
		return nil
	}
	response := toNote(doc.Note)
	response.Content = doc.Content()
	response.Notice = doc.Notice
	return response
}

func toNote(n *entities.Note) *note.NoteResponse {
	return &note.NoteResponse{
		ID:        n.ID.String(),
		OwnerID:   n.OwnerID,
		Title:     n.Title,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

// ToNoteListResponse converts a page of notes without their content
func ToNoteListResponse(notes []*entities.Note, total int64, page, pageSize int) *note.NoteListResponse {
	items := make([]*note.NoteResponse, len(notes))
	for i, n := range notes {
		items[i] = toNote(n)
	}
	return &note.NoteListResponse{
		Notes:      items,
		Pagination: common.NewPagination(page, pageSize, total),
	}
}

// ToAttachImageResponse converts the result of an image upload
func ToAttachImageResponse(doc *noteUsecase.Document, res *noteUsecase.UploadResult) *note.AttachImageResponse {
	response := &note.AttachImageResponse{Note: ToNoteResponse(doc)}
	if res != nil {
		response.Image = &note.ImageResponse{
			NodeKey:   uint64(res.NodeKey),
			ObjectKey: res.ObjectKey,
			Src:       res.Src,
		}
	}
	return response
}
