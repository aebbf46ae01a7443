package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/notetaker/errors"
	"github.com/johnquangdev/notetaker/internal/adapter/dto/note"
	"github.com/johnquangdev/notetaker/internal/adapter/presenter"
	"github.com/johnquangdev/notetaker/internal/domain/entities"
	noteUsecase "github.com/johnquangdev/notetaker/internal/usecase/note"
)

// MaxImageBytes bounds a multipart image upload
const MaxImageBytes = 20 << 20

// Note handles note-related HTTP requests
type Note struct {
	noteService noteUsecase.Service
	logger      *zap.Logger
}

// NewNoteHandler creates a new note handler
func NewNoteHandler(noteService noteUsecase.Service, logger *zap.Logger) *Note {
	return &Note{noteService: noteService, logger: logger}
}

// CreateNote handles POST /notes
// @Summary      Create a note
// @Description  Creates a note. Empty content starts an empty document.
// @Tags         Notes
// @Accept       json
// @Produce      json
// @Param        X-Owner-ID  header    string                  true  "Owner id"
// @Param        request     body      note.CreateNoteRequest  true  "Note"
// @Success      201         {object}  note.NoteResponse
// @Failure      400         {object}  map[string]interface{}
// @Failure      422         {object}  map[string]interface{}  "Content is malformed"
// @Router       /notes [post]
func (h *Note) CreateNote(c echo.Context) error {
	owner, err := ownerID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req note.CreateNoteRequest
	if err := bind(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	doc, err := h.noteService.Create(c.Request().Context(), noteUsecase.CreateNoteInput{
		OwnerID: owner,
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleCreated(h.logger, c, presenter.ToNoteResponse(doc))
}

// GetNote handles GET /notes/:id
// @Summary      Get a note
// @Description  Loads a note. Unreadable content is replaced by an empty document and a notice.
// @Tags         Notes
// @Produce      json
// @Param        id   path      string  true  "Note ID (UUID)"
// @Success      200  {object}  note.NoteResponse
// @Failure      404  {object}  map[string]interface{}
// @Router       /notes/{id} [get]
func (h *Note) GetNote(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	doc, err := h.noteService.Get(c.Request().Context(), id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, presenter.ToNoteResponse(doc))
}

// UpdateNote handles PUT /notes/:id
// @Summary      Update a note
// @Tags         Notes
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "Note ID (UUID)"
// @Param        request  body      note.UpdateNoteRequest  true  "Changes"
// @Success      200      {object}  note.NoteResponse
// @Failure      404      {object}  map[string]interface{}
// @Failure      422      {object}  map[string]interface{}
// @Router       /notes/{id} [put]
func (h *Note) UpdateNote(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req note.UpdateNoteRequest
	if err := bind(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	doc, err := h.noteService.Update(c.Request().Context(), id, noteUsecase.UpdateNoteInput{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, presenter.ToNoteResponse(doc))
}

// DeleteNote handles DELETE /notes/:id
// @Summary      Delete a note
// @Tags         Notes
// @Param        id   path  string  true  "Note ID (UUID)"
// @Success      204
// @Failure      404  {object}  map[string]interface{}
// @Router       /notes/{id} [delete]
func (h *Note) DeleteNote(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	if err := h.noteService.Delete(c.Request().Context(), id); err != nil {
		return HandleError(h.logger, c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListNotes handles GET /notes
// @Summary      List notes
// @Tags         Notes
// @Produce      json
// @Param        X-Owner-ID  header    string  true   "Owner id"
// @Param        search      query     string  false  "Title search"
// @Param        page        query     int     false  "Page number"  default(1)
// @Param        page_size   query     int     false  "Page size"    default(20)
// @Success      200         {object}  note.NoteListResponse
// @Router       /notes [get]
func (h *Note) ListNotes(c echo.Context) error {
	owner, err := ownerID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	req := note.ListNotesRequest{Page: 1, PageSize: 20}
	if err := bind(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	notes, total, err := h.noteService.List(c.Request().Context(), entities.NoteFilter{
		OwnerID: owner,
		Search:  req.Search,
		Limit:   req.PageSize,
		Offset:  (req.Page - 1) * req.PageSize,
	})
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, presenter.ToNoteListResponse(notes, total, req.Page, req.PageSize))
}

// ExportMarkdown handles GET /notes/:id/markdown
// @Summary      Export a note as Markdown
// @Tags         Notes
// @Produce      json
// @Param        id   path      string  true  "Note ID (UUID)"
// @Success      200  {object}  note.MarkdownResponse
// @Router       /notes/{id}/markdown [get]
func (h *Note) ExportMarkdown(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	md, err := h.noteService.ExportMarkdown(c.Request().Context(), id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	if strings.Contains(c.Request().Header.Get(echo.HeaderAccept), "text/markdown") {
		return c.Blob(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
	}
	return HandleSuccess(h.logger, c, note.MarkdownResponse{Markdown: md})
}

// RenderHTML handles GET /notes/:id/html
// @Summary      Render a note as sanitized HTML
// @Tags         Notes
// @Produce      json
// @Param        id   path      string  true  "Note ID (UUID)"
// @Success      200  {object}  note.HTMLResponse
// @Router       /notes/{id}/html [get]
func (h *Note) RenderHTML(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	out, err := h.noteService.RenderHTML(c.Request().Context(), id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, note.HTMLResponse{HTML: out})
}

// ImportMarkdown handles POST /notes/import
// @Summary      Create a note from Markdown
// @Tags         Notes
// @Accept       json
// @Produce      json
// @Param        X-Owner-ID  header    string                      true  "Owner id"
// @Param        request     body      note.ImportMarkdownRequest  true  "Markdown"
// @Success      201         {object}  note.NoteResponse
// @Router       /notes/import [post]
func (h *Note) ImportMarkdown(c echo.Context) error {
	owner, err := ownerID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req note.ImportMarkdownRequest
	if err := bind(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	doc, err := h.noteService.ImportMarkdown(c.Request().Context(), noteUsecase.ImportMarkdownInput{
		OwnerID:  owner,
		Title:    req.Title,
		Markdown: req.Markdown,
	})
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleCreated(h.logger, c, presenter.ToNoteResponse(doc))
}

// PresignImage handles POST /uploads/images
// @Summary      Get a direct image upload URL
// @Tags         Uploads
// @Accept       json
// @Produce      json
// @Param        X-Owner-ID  header    string                    true  "Owner id"
// @Param        request     body      note.PresignImageRequest  true  "Image type"
// @Success      200         {object}  storage.PresignedUpload
// @Failure      415         {object}  map[string]interface{}
// @Router       /uploads/images [post]
func (h *Note) PresignImage(c echo.Context) error {
	owner, err := ownerID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req note.PresignImageRequest
	if err := bind(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	up, err := h.noteService.PresignImageUpload(c.Request().Context(), owner, req.MimeType)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, up)
}

// AttachImage handles POST /notes/:id/images
// @Summary      Upload an image into a note
// @Description  Appends the image, uploads it and returns the saved note.
// @Tags         Notes
// @Accept       multipart/form-data
// @Produce      json
// @Param        X-Owner-ID  header    string  true   "Owner id"
// @Param        id          path      string  true   "Note ID (UUID)"
// @Param        file        formData  file    true   "Image"
// @Param        alt         formData  string  false  "Alt text"
// @Param        caption     formData  string  false  "Caption"
// @Success      200         {object}  note.AttachImageResponse
// @Failure      415         {object}  map[string]interface{}
// @Failure      502         {object}  map[string]interface{}  "Upload failed"
// @Router       /notes/{id}/images [post]
func (h *Note) AttachImage(c echo.Context) error {
	owner, err := ownerID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("file is required"))
	}
	if fh.Size > MaxImageBytes {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("image is too large").
			WithDetail("max_bytes", "20971520"))
	}
	f, err := fh.Open()
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, MaxImageBytes))
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}

	mimeType := fh.Header.Get(echo.HeaderContentType)
	if mimeType == "" || mimeType == echo.MIMEOctetStream {
		mimeType = http.DetectContentType(data)
	}

	doc, res, err := h.noteService.AttachImage(c.Request().Context(), id, noteUsecase.AttachImageInput{
		OwnerID: owner,
		Image: noteUsecase.ImageFile{
			Alt:      c.FormValue("alt"),
			Caption:  c.FormValue("caption"),
			MimeType: mimeType,
			Data:     data,
		},
	})
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, presenter.ToAttachImageResponse(doc, res))
}
