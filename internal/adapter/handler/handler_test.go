package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/johnquangdev/notetaker/errors"
	"github.com/johnquangdev/notetaker/internal/adapter/repository"
	"github.com/johnquangdev/notetaker/internal/domain/entities"
	"github.com/johnquangdev/notetaker/internal/editor/markdown"
	"github.com/johnquangdev/notetaker/internal/infrastructure/storage"
	"github.com/johnquangdev/notetaker/internal/transcript"
	noteUsecase "github.com/johnquangdev/notetaker/internal/usecase/note"
	recordingUsecase "github.com/johnquangdev/notetaker/internal/usecase/recording"
	"github.com/johnquangdev/notetaker/pkg/ai"
	"github.com/johnquangdev/notetaker/pkg/config"
	pkgvalidator "github.com/johnquangdev/notetaker/pkg/validator"
)

const webhookSecret = "s3cret"

// objectServer accepts presigned PUTs and serves as the public base URL
type objectServer struct {
	*httptest.Server
	mu      sync.Mutex
	objects map[string][]byte
}

func newObjectServer(t *testing.T) *objectServer {
	s := &objectServer{objects: map[string][]byte{}}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.objects[r.URL.Path] = body
		s.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *objectServer) PresignUpload(_ context.Context, ownerID, mimeType, category string) (*storage.PresignedUpload, error) {
	key, err := storage.ObjectKey(ownerID, category, mimeType)
	if err != nil {
		return nil, err
	}
	return &storage.PresignedUpload{URL: s.URL + "/notes/" + key, Key: key}, nil
}

func (s *objectServer) PresignDownload(_ context.Context, key string) (string, error) {
	return s.URL + "/notes/" + key + "?signed=1", nil
}

func (s *objectServer) PublicURL(key string) string {
	return s.URL + "/notes/" + key
}

func (s *objectServer) Delete(context.Context, string) error { return nil }

// stubTranscriber completes every job with result
type stubTranscriber struct {
	result *transcript.Result
}

func (s *stubTranscriber) Submit(context.Context, string) (string, error) {
	return "job-" + uuid.NewString(), nil
}

func (s *stubTranscriber) Fetch(_ context.Context, jobID string) (*ai.Job, error) {
	return &ai.Job{ID: jobID, Status: ai.JobCompleted, Result: s.result}, nil
}

func (s *stubTranscriber) UsesWebhook() bool { return true }

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&entities.Note{}, &entities.Person{}, &entities.Recording{}, &entities.TranscriptSegment{}))

	objects := newObjectServer(t)
	uploader := noteUsecase.NewImageUploader(objects, nil, 2, nil)
	noteService := noteUsecase.NewNoteService(repository.NewNoteRepository(db), objects, uploader,
		noteUsecase.Config{HistoryLimit: 10, CaptionSyntax: markdown.CaptionInline}, nil)

	recordingService := recordingUsecase.NewRecordingService(
		repository.NewRecordingRepository(db),
		repository.NewSegmentRepository(db),
		repository.NewPersonRepository(db),
		objects,
		&stubTranscriber{result: &transcript.Result{Paragraphs: []transcript.Paragraph{
			{Speaker: 1, Sentences: []transcript.Sentence{{Text: "Let's start.", Start: 0, End: 1}}},
			{Speaker: 2, Sentences: []transcript.Sentence{{Text: "Sounds good.", Start: 1.5, End: 2.5}}},
		}}},
		recordingUsecase.Config{},
		nil,
	)
	t.Cleanup(recordingService.Close)

	e := echo.New()
	e.Validator = pkgvalidator.New()
	NewRouter(
		&config.Config{Server: config.ServerConfig{Environment: "test"}},
		NewNoteHandler(noteService, nil),
		NewRecordingHandler(recordingService, nil),
		NewWebhookHandler(recordingService, webhookSecret, nil),
	).Setup(e)
	return e
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Info    string          `json:"info"`
}

func call(t *testing.T, e *echo.Echo, method, path string, body interface{}, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.Header.Set(OwnerHeader, "u1")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestHealth(t *testing.T) {
	e := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"environment":"test"`)
}

func TestNoteRoutes(t *testing.T) {
	e := newTestServer(t)

	type noteBody struct {
		ID      string          `json:"id"`
		Title   string          `json:"title"`
		Content json.RawMessage `json:"content"`
		Notice  string          `json:"notice"`
	}

	rec, env := call(t, e, http.MethodPost, "/v1/notes", map[string]interface{}{"title": "Plan"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[noteBody](t, env.Data)
	require.NotEmpty(t, created.ID)

	t.Run("owner is required", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/notes", strings.NewReader(`{}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("get", func(t *testing.T) {
		rec, env := call(t, e, http.MethodGet, "/v1/notes/"+created.ID, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[noteBody](t, env.Data)
		assert.Equal(t, "Plan", got.Title)
		assert.NotEmpty(t, got.Content)
		assert.Empty(t, got.Notice)
	})

	t.Run("bad id", func(t *testing.T) {
		rec, env := call(t, e, http.MethodGet, "/v1/notes/nope", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, int(errors.ErrorCode_INVALID_ARGUMENT), env.Code)
	})

	t.Run("malformed content is rejected", func(t *testing.T) {
		rec, env := call(t, e, http.MethodPut, "/v1/notes/"+created.ID, map[string]interface{}{"content": []int{1}})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, int(errors.ErrorCode_DOCUMENT_MALFORMED), env.Code)
	})

	t.Run("import and export markdown", func(t *testing.T) {
		rec, env := call(t, e, http.MethodPost, "/v1/notes/import", map[string]interface{}{
			"title":    "Weekly",
			"markdown": "# Weekly\n\n- one\n- two",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		imported := decode[noteBody](t, env.Data)

		rec, env = call(t, e, http.MethodGet, "/v1/notes/"+imported.ID+"/markdown", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		md := decode[map[string]string](t, env.Data)
		assert.Contains(t, md["markdown"], "# Weekly")
		assert.Contains(t, md["markdown"], "- one")

		req := httptest.NewRequest(http.MethodGet, "/v1/notes/"+imported.ID+"/markdown", nil)
		req.Header.Set(echo.HeaderAccept, "text/markdown")
		raw := httptest.NewRecorder()
		e.ServeHTTP(raw, req)
		assert.True(t, strings.HasPrefix(raw.Body.String(), "# Weekly"))

		rec, env = call(t, e, http.MethodGet, "/v1/notes/"+imported.ID+"/html", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, decode[map[string]string](t, env.Data)["html"], "<li>")
	})

	t.Run("list", func(t *testing.T) {
		rec, env := call(t, e, http.MethodGet, "/v1/notes?page=1&page_size=1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		page := decode[struct {
			Notes      []noteBody `json:"notes"`
			Pagination struct {
				TotalItems int64 `json:"total_items"`
				TotalPages int   `json:"total_pages"`
			} `json:"pagination"`
		}](t, env.Data)
		assert.Len(t, page.Notes, 1)
		assert.Equal(t, int64(2), page.Pagination.TotalItems)
		assert.Equal(t, 2, page.Pagination.TotalPages)
	})

	t.Run("presign image", func(t *testing.T) {
		rec, env := call(t, e, http.MethodPost, "/v1/uploads/images", map[string]string{"mime_type": "image/png"})
		require.Equal(t, http.StatusOK, rec.Code)
		up := decode[storage.PresignedUpload](t, env.Data)
		assert.True(t, strings.HasPrefix(up.Key, "u1/images/"))
		assert.True(t, strings.HasSuffix(up.Key, ".png"))

		rec, _ = call(t, e, http.MethodPost, "/v1/uploads/images", map[string]string{"mime_type": "text/plain"})
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})

	t.Run("attach image", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", "chart.png")
		require.NoError(t, err)
		png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
		_, err = fw.Write(png)
		require.NoError(t, err)
		require.NoError(t, mw.WriteField("alt", "chart"))
		require.NoError(t, mw.WriteField("caption", "Q3"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/v1/notes/"+created.ID+"/images", &buf)
		req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
		req.Header.Set(OwnerHeader, "u1")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var env envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		res := decode[struct {
			Image struct {
				ObjectKey string `json:"object_key"`
				Src       string `json:"src"`
			} `json:"image"`
		}](t, env.Data)
		assert.True(t, strings.HasSuffix(res.Image.ObjectKey, ".png"))
		assert.True(t, strings.HasSuffix(res.Image.Src, res.Image.ObjectKey))

		_, env = call(t, e, http.MethodGet, "/v1/notes/"+created.ID+"/markdown", nil)
		assert.Contains(t, decode[map[string]string](t, env.Data)["markdown"], "![chart]("+res.Image.Src+")[image_description: Q3]")
	})

	t.Run("delete", func(t *testing.T) {
		rec, _ := call(t, e, http.MethodDelete, "/v1/notes/"+created.ID, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec, env := call(t, e, http.MethodGet, "/v1/notes/"+created.ID, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, int(errors.ErrorCode_NOTE_NOT_FOUND), env.Code)
	})
}

func TestRecordingRoutes(t *testing.T) {
	e := newTestServer(t)

	type recordingBody struct {
		ID                  string `json:"id"`
		TranscriptionStatus string `json:"transcription_status"`
		ExternalJobID       string `json:"external_job_id"`
	}
	type transcriptBody struct {
		Speakers []struct {
			Number int    `json:"original_speaker_number"`
			Label  string `json:"speaker_label"`
		} `json:"speakers"`
		Groups []struct {
			SpeakerLabel string `json:"speaker_label"`
			StartLabel   string `json:"start_label"`
			Text         string `json:"text"`
		} `json:"groups"`
	}

	rec, env := call(t, e, http.MethodPost, "/v1/recordings", map[string]interface{}{
		"object_key":        "u1/recordings/a.mpeg",
		"original_filename": "standup.mp3",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	recording := decode[recordingBody](t, env.Data)
	assert.Equal(t, "pending", recording.TranscriptionStatus)
	base := "/v1/recordings/" + recording.ID

	t.Run("transcript unavailable before transcription", func(t *testing.T) {
		rec, env := call(t, e, http.MethodGet, base+"/transcript", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, int(errors.ErrorCode_TRANSCRIPTION_UNAVAILABLE), env.Code)
	})

	rec, env = call(t, e, http.MethodPost, base+"/transcribe", nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	submitted := decode[recordingBody](t, env.Data)
	assert.Equal(t, "processing", submitted.TranscriptionStatus)
	require.NotEmpty(t, submitted.ExternalJobID)

	t.Run("second transcribe conflicts", func(t *testing.T) {
		rec, _ := call(t, e, http.MethodPost, base+"/transcribe", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("webhook without token is rejected", func(t *testing.T) {
		rec, _ := call(t, e, http.MethodPost, "/v1/webhooks/assemblyai", map[string]string{"transcript_id": "x"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("webhook for unknown job", func(t *testing.T) {
		rec, _ := call(t, e, http.MethodPost, "/v1/webhooks/assemblyai",
			map[string]string{"transcript_id": "unknown", "status": "completed"},
			ai.WebhookHeader, webhookSecret)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	rec, _ = call(t, e, http.MethodPost, "/v1/webhooks/assemblyai",
		map[string]string{"transcript_id": submitted.ExternalJobID, "status": "completed"},
		ai.WebhookHeader, webhookSecret)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	t.Run("grouped transcript", func(t *testing.T) {
		rec, env := call(t, e, http.MethodGet, base+"/transcript", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		view := decode[transcriptBody](t, env.Data)
		require.Len(t, view.Groups, 2)
		assert.Equal(t, "Speaker 1", view.Groups[0].SpeakerLabel)
		assert.Equal(t, "00:01", view.Groups[1].StartLabel)
		assert.Len(t, view.Speakers, 2)
	})

	t.Run("filter by speaker", func(t *testing.T) {
		rec, env := call(t, e, http.MethodGet, base+"/transcript?speaker=2", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		view := decode[transcriptBody](t, env.Data)
		require.Len(t, view.Groups, 1)
		assert.Equal(t, "Sounds good.", view.Groups[0].Text)
		assert.Len(t, view.Speakers, 2)

		rec, _ = call(t, e, http.MethodGet, base+"/transcript?speaker=abc", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rename speaker", func(t *testing.T) {
		rec, env := call(t, e, http.MethodPost, "/v1/people", map[string]string{"name": "Alice"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		person := decode[map[string]interface{}](t, env.Data)

		rec, env = call(t, e, http.MethodPut, base+"/speakers/1", map[string]interface{}{"person_id": person["id"]})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		view := decode[transcriptBody](t, env.Data)
		assert.Equal(t, "Alice", view.Speakers[0].Label)

		rec, env = call(t, e, http.MethodGet, base+"/transcript/text", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Alice: Let's start.\n\nSpeaker 2: Sounds good.", decode[map[string]string](t, env.Data)["text"])

		rec, env = call(t, e, http.MethodPut, base+"/speakers/9", map[string]string{"label": "Bob"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, int(errors.ErrorCode_SPEAKER_NOT_FOUND), env.Code)

		rec, _ = call(t, e, http.MethodPut, base+"/speakers/1", map[string]string{"person_id": "not-a-uuid"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("list and delete", func(t *testing.T) {
		rec, env := call(t, e, http.MethodGet, "/v1/recordings", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]recordingBody](t, env.Data), 1)

		rec, _ = call(t, e, http.MethodDelete, base, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec, _ = call(t, e, http.MethodGet, base, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
