package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/notetaker/errors"
	"github.com/johnquangdev/notetaker/internal/adapter/dto/recording"
	"github.com/johnquangdev/notetaker/internal/adapter/presenter"
	"github.com/johnquangdev/notetaker/internal/transcript"
	recordingUsecase "github.com/johnquangdev/notetaker/internal/usecase/recording"
)

// Recording handles recording, transcript and people requests
type Recording struct {
	recordingService recordingUsecase.Service
	logger           *zap.Logger
}

// NewRecordingHandler creates a new recording handler
func NewRecordingHandler(recordingService recordingUsecase.Service, logger *zap.Logger) *Recording {
	return &Recording{recordingService: recordingService, logger: logger}
}

// PresignUpload handles POST /recordings/presign
// @Summary      Get a recording upload URL
// @Tags         Recordings
// @Accept       json
// @Produce      json
// @Param        X-Owner-ID  header    string                             true  "Owner id"
// @Param        request     body      recording.PresignRecordingRequest  true  "Media type"
// @Success      200         {object}  storage.PresignedUpload
// @Failure      415         {object}  map[string]interface{}
// @Router       /recordings/presign [post]
func (h *Recording) PresignUpload(c echo.Context) error {
	owner, err := ownerID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req recording.PresignRecordingRequest
	if err := bind(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	up, err := h.recordingService.PresignUpload(c.Request().Context(), owner, req.MimeType)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, up)
}

// CreateRecording handles POST /recordings
// @Summary      Register an uploaded recording
// @Tags         Recordings
// @Accept       json
// @Produce      json
// @Param        X-Owner-ID  header    string                            true  "Owner id"
// @Param        request     body      recording.CreateRecordingRequest  true  "Recording"
// @Success      201         {object}  recording.RecordingResponse
// @Router       /recordings [post]
func (h *Recording) CreateRecording(c echo.Context) error {
	owner, err := ownerID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req recording.CreateRecordingRequest
	if err := bind(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	rec, err := h.recordingService.CreateRecording(c.Request().Context(), recordingUsecase.CreateRecordingInput{
		OwnerID:          owner,
		Title:            req.Title,
		ObjectKey:        req.ObjectKey,
		OriginalFilename: req.OriginalFilename,
		FileType:         req.FileType,
		FileSize:         req.FileSize,
		Duration:         req.Duration,
	})
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleCreated(h.logger, c, presenter.ToRecordingResponse(rec))
}

// ListRecordings handles GET /recordings
// @Summary      List recordings
// @Tags         Recordings
// @Produce      json
// @Param        X-Owner-ID  header    string  true  "Owner id"
// @Success      200         {array}   recording.RecordingResponse
// @Router       /recordings [get]
func (h *Recording) ListRecordings(c echo.Context) error {
	owner, err := ownerID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	recs, err := h.recordingService.ListRecordings(c.Request().Context(), owner)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, presenter.ToRecordingListResponse(recs))
}

// GetRecording handles GET /recordings/:id
// @Summary      Get a recording
// @Tags         Recordings
// @Produce      json
// @Param        id   path      string  true  "Recording ID (UUID)"
// @Success      200  {object}  recording.RecordingResponse
// @Failure      404  {object}  map[string]interface{}
// @Router       /recordings/{id} [get]
func (h *Recording) GetRecording(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	rec, err := h.recordingService.GetRecording(c.Request().Context(), id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, presenter.ToRecordingResponse(rec))
}

// DeleteRecording handles DELETE /recordings/:id
// @Summary      Delete a recording and its transcript
// @Tags         Recordings
// @Param        id   path  string  true  "Recording ID (UUID)"
// @Success      204
// @Router       /recordings/{id} [delete]
func (h *Recording) DeleteRecording(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	if err := h.recordingService.DeleteRecording(c.Request().Context(), id); err != nil {
		return HandleError(h.logger, c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Transcribe handles POST /recordings/:id/transcribe
// @Summary      Start transcription
// @Tags         Recordings
// @Produce      json
// @Param        id   path      string  true  "Recording ID (UUID)"
// @Success      202  {object}  recording.RecordingResponse
// @Failure      409  {object}  map[string]interface{}  "Already processing"
// @Router       /recordings/{id}/transcribe [post]
func (h *Recording) Transcribe(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	rec, err := h.recordingService.Transcribe(c.Request().Context(), id)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return respond(h.logger, c, http.StatusAccepted, presenter.ToRecordingResponse(rec))
}

// transcriptFilter reads q and speaker query parameters
func transcriptFilter(c echo.Context) (transcript.Filter, error) {
	f := transcript.Filter{Query: c.QueryParam("q")}
	if raw := c.QueryParam("speaker"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return f, errors.ErrInvalidArgument("invalid speaker").WithDetail("speaker", raw)
		}
		f.Speaker = &n
	}
	return f, nil
}

// GetTranscript handles GET /recordings/:id/transcript
// @Summary      Get the grouped transcript
// @Tags         Transcripts
// @Produce      json
// @Param        id       path      string  true   "Recording ID (UUID)"
// @Param        q        query     string  false  "Text search"
// @Param        speaker  query     int     false  "Original speaker number"
// @Success      200      {object}  recording.TranscriptResponse
// @Failure      409      {object}  map[string]interface{}  "Transcript not available"
// @Router       /recordings/{id}/transcript [get]
func (h *Recording) GetTranscript(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	filter, err := transcriptFilter(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	view, err := h.recordingService.GetTranscript(c.Request().Context(), id, filter)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, presenter.ToTranscriptResponse(view))
}

// GetTranscriptText handles GET /recordings/:id/transcript/text
// @Summary      Get the transcript as plain text
// @Tags         Transcripts
// @Produce      json
// @Param        id       path      string  true   "Recording ID (UUID)"
// @Param        q        query     string  false  "Text search"
// @Param        speaker  query     int     false  "Original speaker number"
// @Success      200      {object}  recording.TranscriptTextResponse
// @Router       /recordings/{id}/transcript/text [get]
func (h *Recording) GetTranscriptText(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	filter, err := transcriptFilter(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	text, err := h.recordingService.CopyText(c.Request().Context(), id, filter)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, recording.TranscriptTextResponse{Text: text})
}

func speakerInput(req recording.SpeakerRequest) (recordingUsecase.SpeakerInput, error) {
	in := recordingUsecase.SpeakerInput{Label: req.Label}
	if req.PersonID != nil && *req.PersonID != "" {
		id, err := uuid.Parse(*req.PersonID)
		if err != nil {
			return in, errors.ErrInvalidArgument("invalid person_id")
		}
		in.PersonID = &id
	}
	return in, nil
}

// RenameSpeaker handles PUT /recordings/:id/speakers/:number
// @Summary      Assign a person or label to a speaker
// @Description  Updates every segment of the speaker cluster.
// @Tags         Transcripts
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true  "Recording ID (UUID)"
// @Param        number   path      int                       true  "Original speaker number"
// @Param        request  body      recording.SpeakerRequest  true  "Person and label"
// @Success      200      {object}  recording.TranscriptResponse
// @Failure      404      {object}  map[string]interface{}  "Speaker or person not found"
// @Router       /recordings/{id}/speakers/{number} [put]
func (h *Recording) RenameSpeaker(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	number, err := intParam(c, "number")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req recording.SpeakerRequest
	if err := bind(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}
	in, err := speakerInput(req)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	view, err := h.recordingService.RenameSpeaker(c.Request().Context(), id, number, in)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, presenter.ToTranscriptResponse(view))
}

// AssignSegment handles PUT /recordings/:id/segments/:segmentId/speaker
// @Summary      Correct the speaker of one segment
// @Tags         Transcripts
// @Accept       json
// @Produce      json
// @Param        id         path      string                    true  "Recording ID (UUID)"
// @Param        segmentId  path      string                    true  "Segment ID (UUID)"
// @Param        request    body      recording.SpeakerRequest  true  "Person and label"
// @Success      200        {object}  recording.TranscriptResponse
// @Router       /recordings/{id}/segments/{segmentId}/speaker [put]
func (h *Recording) AssignSegment(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	segmentID, err := uuidParam(c, "segmentId")
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req recording.SpeakerRequest
	if err := bind(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}
	in, err := speakerInput(req)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	view, err := h.recordingService.AssignSegment(c.Request().Context(), id, segmentID, in)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, presenter.ToTranscriptResponse(view))
}

// CreatePerson handles POST /people
// @Summary      Create a person
// @Tags         People
// @Accept       json
// @Produce      json
// @Param        X-Owner-ID  header    string                         true  "Owner id"
// @Param        request     body      recording.CreatePersonRequest  true  "Person"
// @Success      201         {object}  recording.PersonResponse
// @Router       /people [post]
func (h *Recording) CreatePerson(c echo.Context) error {
	owner, err := ownerID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	var req recording.CreatePersonRequest
	if err := bind(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	person, err := h.recordingService.CreatePerson(c.Request().Context(), recordingUsecase.CreatePersonInput{
		OwnerID: owner,
		Name:    req.Name,
		Email:   req.Email,
	})
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleCreated(h.logger, c, presenter.ToPersonResponse(person))
}

// ListPeople handles GET /people
// @Summary      List people
// @Tags         People
// @Produce      json
// @Param        X-Owner-ID  header    string  true  "Owner id"
// @Success      200         {array}   recording.PersonResponse
// @Router       /people [get]
func (h *Recording) ListPeople(c echo.Context) error {
	owner, err := ownerID(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	people, err := h.recordingService.ListPeople(c.Request().Context(), owner)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, presenter.ToPersonListResponse(people))
}
