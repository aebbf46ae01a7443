package note

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/notetaker/errors"
	"github.com/johnquangdev/notetaker/internal/domain/entities"
	"github.com/johnquangdev/notetaker/internal/editor"
	"github.com/johnquangdev/notetaker/internal/editor/markdown"
	"github.com/johnquangdev/notetaker/internal/infrastructure/storage"
)

// memoryNotes is an in-memory NoteRepository
type memoryNotes struct {
	mu    sync.Mutex
	notes map[uuid.UUID]*entities.Note
}

func newMemoryNotes() *memoryNotes {
	return &memoryNotes{notes: map[uuid.UUID]*entities.Note{}}
}

func (m *memoryNotes) Create(_ context.Context, n *entities.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	cp := *n
	m.notes[n.ID] = &cp
	return nil
}

func (m *memoryNotes) FindByID(_ context.Context, id uuid.UUID) (*entities.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notes[id]
	if !ok {
		return nil, nil
	}
	cp := *n
	return &cp, nil
}

func (m *memoryNotes) Update(_ context.Context, id uuid.UUID, p entities.NotePatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notes[id]
	if !ok {
		return entities.ErrNoteNotFound
	}
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	return nil
}

func (m *memoryNotes) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notes[id]; !ok {
		return entities.ErrNoteNotFound
	}
	delete(m.notes, id)
	return nil
}

func (m *memoryNotes) List(_ context.Context, f entities.NoteFilter) ([]*entities.Note, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entities.Note
	for _, n := range m.notes {
		if f.OwnerID == "" || n.OwnerID == f.OwnerID {
			out = append(out, n)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memoryNotes) put(t *testing.T, content string) uuid.UUID {
	t.Helper()
	n := &entities.Note{OwnerID: "u1", Title: "t", Content: content}
	require.NoError(t, m.Create(context.Background(), n))
	return n.ID
}

// fakeStorage presigns PUTs against a test server
type fakeStorage struct {
	base string
	err  error
}

func (f *fakeStorage) PresignUpload(_ context.Context, ownerID, mimeType, category string) (*storage.PresignedUpload, error) {
	if f.err != nil {
		return nil, f.err
	}
	key, err := storage.ObjectKey(ownerID, category, mimeType)
	if err != nil {
		return nil, err
	}
	return &storage.PresignedUpload{URL: f.base + "/bucket/" + key, Key: key, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeStorage) PublicURL(key string) string {
	return "https://cdn.test/" + key
}

func fastUploader(store ImageStorage) *ImageUploader {
	u := NewImageUploader(store, nil, 2, nil)
	u.newBackOff = func() backoff.BackOff {
		return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 2)
	}
	return u
}

func newTestService(t *testing.T, handler http.HandlerFunc) (*NoteService, *memoryNotes) {
	t.Helper()
	if handler == nil {
		handler = func(w http.ResponseWriter, r *http.Request) {
			io.Copy(io.Discard, r.Body)
			w.WriteHeader(http.StatusOK)
		}
	}
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	store := &fakeStorage{base: ts.URL}
	repo := newMemoryNotes()
	svc := NewNoteService(repo, store, fastUploader(store), Config{HistoryLimit: 10, CaptionSyntax: markdown.CaptionInline}, nil)
	return svc, repo
}

func appCode(t *testing.T, err error) errors.ErrorCode {
	t.Helper()
	var appErr errors.AppError
	require.True(t, stdErrors.As(err, &appErr), "expected AppError, got %v", err)
	return appErr.Code
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	t.Run("empty content starts an empty document", func(t *testing.T) {
		doc, err := svc.Create(ctx, CreateNoteInput{OwnerID: "u1"})
		require.NoError(t, err)
		assert.Equal(t, "Untitled", doc.Note.Title)

		got, err := svc.Get(ctx, doc.Note.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Notice)
		assert.Equal(t, "", editor.TextContent(got.State))
	})

	t.Run("owner is required", func(t *testing.T) {
		_, err := svc.Create(ctx, CreateNoteInput{})
		assert.Equal(t, errors.ErrorCode_INVALID_ARGUMENT, appCode(t, err))
	})

	t.Run("malformed content is rejected on write", func(t *testing.T) {
		_, err := svc.Create(ctx, CreateNoteInput{OwnerID: "u1", Content: json.RawMessage(`{"root":`)})
		assert.Equal(t, errors.ErrorCode_DOCUMENT_MALFORMED, appCode(t, err))
	})

	t.Run("unknown note", func(t *testing.T) {
		_, err := svc.Get(ctx, uuid.New())
		assert.Equal(t, errors.ErrorCode_NOTE_NOT_FOUND, appCode(t, err))
	})
}

func TestGetFallsBackOnMalformedContent(t *testing.T) {
	svc, repo := newTestService(t, nil)
	id := repo.put(t, `{"root": [1, 2]}`)

	doc, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, MalformedNotice, doc.Notice)
	require.NotNil(t, doc.State)
	assert.Equal(t, "", editor.TextContent(doc.State))
}

func TestGetPrunesStaleUploads(t *testing.T) {
	ed := editor.New(editor.Config{}, nil)
	_, err := ed.InsertImagePlaceholder("pending")
	require.NoError(t, err)
	data, err := editor.Serialize(ed.State())
	require.NoError(t, err)

	svc, repo := newTestService(t, nil)
	id := repo.put(t, string(data))

	doc, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, doc.State.View().Images())
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	doc, err := svc.ImportMarkdown(ctx, ImportMarkdownInput{OwnerID: "u1", Title: "Plan", Markdown: "# Title"})
	require.NoError(t, err)
	id := doc.Note.ID

	other, err := svc.pipeline.ImportState(svc.registry, "hello **world**")
	require.NoError(t, err)
	content, err := editor.Serialize(other)
	require.NoError(t, err)

	title := "Renamed"
	updated, err := svc.Update(ctx, id, UpdateNoteInput{Title: &title, Content: content})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Note.Title)

	md, err := svc.ExportMarkdown(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "hello **world**", md)

	t.Run("malformed content leaves the note untouched", func(t *testing.T) {
		_, err := svc.Update(ctx, id, UpdateNoteInput{Content: json.RawMessage(`[]`)})
		assert.Equal(t, errors.ErrorCode_DOCUMENT_MALFORMED, appCode(t, err))

		md, err := svc.ExportMarkdown(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "hello **world**", md)
	})

	t.Run("empty title", func(t *testing.T) {
		blank := " "
		_, err := svc.Update(ctx, id, UpdateNoteInput{Title: &blank})
		assert.Equal(t, errors.ErrorCode_INVALID_ARGUMENT, appCode(t, err))
	})

	t.Run("missing note", func(t *testing.T) {
		_, err := svc.Update(ctx, uuid.New(), UpdateNoteInput{Title: &title})
		assert.Equal(t, errors.ErrorCode_NOTE_NOT_FOUND, appCode(t, err))
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t, nil)
	id := repo.put(t, "")

	require.NoError(t, svc.Delete(ctx, id))
	assert.Equal(t, errors.ErrorCode_NOTE_NOT_FOUND, appCode(t, svc.Delete(ctx, id)))
}

func TestMarkdownRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	md := "# Weekly\n\n- one\n- two\n\nsee :smile: ![chart](https://cdn.example/c.png)[image_description: Q3]"
	doc, err := svc.ImportMarkdown(ctx, ImportMarkdownInput{OwnerID: "u1", Markdown: md})
	require.NoError(t, err)

	out, err := svc.ExportMarkdown(ctx, doc.Note.ID)
	require.NoError(t, err)
	assert.Equal(t, md, out)
}

func TestRenderHTMLSanitizes(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	doc, err := svc.ImportMarkdown(ctx, ImportMarkdownInput{
		OwnerID:  "u1",
		Markdown: "[click](javascript:alert(1)) and **bold**",
	})
	require.NoError(t, err)

	out, err := svc.RenderHTML(ctx, doc.Note.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.NotContains(t, out, "javascript:")
}

func TestPresignImageUpload(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	up, err := svc.PresignImageUpload(ctx, "u1", "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(up.Key, "u1/images/"))
	assert.True(t, strings.HasSuffix(up.Key, ".png"))

	_, err = svc.PresignImageUpload(ctx, "u1", "application/pdf")
	assert.Equal(t, errors.ErrorCode_UNSUPPORTED_MEDIA, appCode(t, err))
}

func TestAttachImage(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves with the public url", func(t *testing.T) {
		var got atomic.Int64
		svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "image/png", r.Header.Get("Content-Type"))
			n, _ := io.Copy(io.Discard, r.Body)
			got.Add(n)
			w.WriteHeader(http.StatusOK)
		})
		doc, err := svc.ImportMarkdown(ctx, ImportMarkdownInput{OwnerID: "u1", Markdown: "notes"})
		require.NoError(t, err)

		_, res, err := svc.AttachImage(ctx, doc.Note.ID, AttachImageInput{
			OwnerID: "u1",
			Image:   ImageFile{Alt: "photo", Caption: "team", MimeType: "image/png", Data: []byte("pngbytes")},
		})
		require.NoError(t, err)
		assert.EqualValues(t, 8, got.Load())
		assert.True(t, strings.HasPrefix(res.Src, "https://cdn.test/u1/images/"))

		saved, err := svc.Get(ctx, doc.Note.ID)
		require.NoError(t, err)
		imgs := saved.State.View().Images()
		require.Len(t, imgs, 1)
		assert.Equal(t, res.Src, imgs[0].Src())
		assert.Equal(t, "team", imgs[0].Caption())
		assert.False(t, imgs[0].Uploading())
	})

	t.Run("retries transient failures", func(t *testing.T) {
		var calls atomic.Int32
		svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			io.Copy(io.Discard, r.Body)
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		})
		doc, err := svc.ImportMarkdown(ctx, ImportMarkdownInput{OwnerID: "u1", Markdown: "notes"})
		require.NoError(t, err)

		_, res, err := svc.AttachImage(ctx, doc.Note.ID, AttachImageInput{
			OwnerID: "u1",
			Image:   ImageFile{Alt: "photo", MimeType: "image/png", Data: []byte("x")},
		})
		require.NoError(t, err)
		assert.NotEmpty(t, res.Src)
		assert.EqualValues(t, 2, calls.Load())
	})

	t.Run("permanent failure removes the placeholder", func(t *testing.T) {
		var calls atomic.Int32
		svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			io.Copy(io.Discard, r.Body)
			calls.Add(1)
			w.WriteHeader(http.StatusForbidden)
		})
		doc, err := svc.ImportMarkdown(ctx, ImportMarkdownInput{OwnerID: "u1", Markdown: "notes"})
		require.NoError(t, err)

		saved, res, err := svc.AttachImage(ctx, doc.Note.ID, AttachImageInput{
			OwnerID: "u1",
			Image:   ImageFile{Alt: "photo", MimeType: "image/png", Data: []byte("x")},
		})
		assert.Equal(t, errors.ErrorCode_UPLOAD_FAILED, appCode(t, err))
		require.NotNil(t, res)
		assert.Error(t, res.Err)
		assert.EqualValues(t, 1, calls.Load())
		assert.Empty(t, saved.State.View().Images())
		assert.Equal(t, "notes", editor.TextContent(saved.State))
	})

	t.Run("rejects non images", func(t *testing.T) {
		svc, repo := newTestService(t, nil)
		id := repo.put(t, "")
		_, _, err := svc.AttachImage(ctx, id, AttachImageInput{OwnerID: "u1", Image: ImageFile{MimeType: "text/plain", Data: []byte("x")}})
		assert.Equal(t, errors.ErrorCode_UNSUPPORTED_MEDIA, appCode(t, err))
	})
}

func TestUploaderReportsProgress(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	u := fastUploader(&fakeStorage{base: ts.URL})
	ed := editor.New(editor.Config{}, nil)

	var mu sync.Mutex
	var progress []float64
	ed.RegisterUpdateListener(func(ev editor.UpdateEvent) {
		for _, img := range ev.State.View().Images() {
			if img.Uploading() {
				mu.Lock()
				progress = append(progress, img.Upload().Progress)
				mu.Unlock()
			}
		}
	})

	up, err := u.Start(context.Background(), ed, "u1", ImageFile{Alt: "a", MimeType: "image/png", Data: make([]byte, 64*1024)})
	require.NoError(t, err)
	res := up.Result()
	require.NoError(t, res.Err)
	u.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, progress)
	assert.Equal(t, 100.0, progress[len(progress)-1])
	for _, p := range progress {
		assert.True(t, p >= 0 && p <= 100, "progress %v out of range", p)
	}

	// one undo step removes the whole image
	assert.True(t, ed.CanUndo())
	ed.Undo()
	assert.Empty(t, ed.State().View().Images())
}

func TestUploaderPresignFailure(t *testing.T) {
	u := fastUploader(&fakeStorage{err: stdErrors.New("boom")})
	ed := editor.New(editor.Config{}, nil)

	up, err := u.Start(context.Background(), ed, "u1", ImageFile{Alt: "a", MimeType: "image/png", Data: []byte("x")})
	require.NoError(t, err)
	assert.Error(t, up.Result().Err)
	assert.Empty(t, ed.State().View().Images())
}
