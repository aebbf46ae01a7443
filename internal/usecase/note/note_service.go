package note

import (
	"context"
	stdErrors "errors"
	"strings"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/johnquangdev/notetaker/errors"
	"github.com/johnquangdev/notetaker/internal/domain/entities"
	"github.com/johnquangdev/notetaker/internal/domain/repositories"
	"github.com/johnquangdev/notetaker/internal/editor"
	"github.com/johnquangdev/notetaker/internal/editor/markdown"
	"github.com/johnquangdev/notetaker/internal/infrastructure/storage"
)

// MalformedNotice is shown when stored content had to be discarded
const MalformedNotice = "The saved content of this note could not be read. An empty document was loaded instead."

// Config holds the document engine settings used by the service
type Config struct {
	HistoryLimit  int
	CaptionSyntax markdown.CaptionSyntax
}

// NoteService implements Service
type NoteService struct {
	notes    repositories.NoteRepository
	storage  ImageStorage
	uploader *ImageUploader
	registry *editor.Registry
	pipeline *markdown.Pipeline
	policy   *bluemonday.Policy
	cfg      Config
	logger   *zap.Logger
}

// NewNoteService creates a new note service
func NewNoteService(
	notes repositories.NoteRepository,
	store ImageStorage,
	uploader *ImageUploader,
	cfg Config,
	logger *zap.Logger,
) *NoteService {
	policy := bluemonday.UGCPolicy()
	policy.AllowStyling()
	policy.AllowStyles("text-align").MatchingEnum("left", "center", "right").Globally()

	return &NoteService{
		notes:    notes,
		storage:  store,
		uploader: uploader,
		registry: editor.NewRegistry(),
		pipeline: markdown.New(markdown.Config{CaptionSyntax: cfg.CaptionSyntax, Logger: logger}),
		policy:   policy,
		cfg:      cfg,
		logger:   logger,
	}
}

func (s *NoteService) newEditor(state *editor.EditorState) *editor.Editor {
	ed := editor.New(editor.Config{
		Registry:     s.registry,
		HistoryLimit: s.cfg.HistoryLimit,
		Logger:       s.logger,
	}, state)
	ed.RegisterTextTransform(s.pipeline.Shortcuts())
	return ed
}

func (s *NoteService) parse(content []byte) (*editor.EditorState, error) {
	if len(strings.TrimSpace(string(content))) == 0 {
		return editor.CreateEmpty(s.registry), nil
	}
	state, err := editor.Deserialize(s.registry, content)
	if err != nil {
		var malformed *editor.MalformedDocumentError
		if stdErrors.As(err, &malformed) {
			return nil, errors.ErrDocumentMalformed(err)
		}
		return nil, errors.ErrInternal(err)
	}
	return state, nil
}

func (s *NoteService) serialize(state *editor.EditorState) (string, error) {
	data, err := editor.Serialize(state)
	if err != nil {
		return "", errors.ErrInternal(err)
	}
	return string(data), nil
}

func (s *NoteService) Create(ctx context.Context, input CreateNoteInput) (*Document, error) {
	if strings.TrimSpace(input.OwnerID) == "" {
		return nil, errors.ErrInvalidArgument("owner_id is required")
	}
	state, err := s.parse(input.Content)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, input.OwnerID, input.Title, state)
}

func (s *NoteService) create(ctx context.Context, ownerID, title string, state *editor.EditorState) (*Document, error) {
	content, err := s.serialize(state)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(title) == "" {
		title = "Untitled"
	}

	note := &entities.Note{OwnerID: ownerID, Title: title, Content: content}
	if err := s.notes.Create(ctx, note); err != nil {
		if s.logger != nil {
			s.logger.Error("❌ Failed to create note", zap.String("owner_id", ownerID), zap.Error(err))
		}
		return nil, errors.ErrDBQueryFailed("create note", err)
	}

	if s.logger != nil {
		s.logger.Info("✅ Note created", zap.String("note_id", note.ID.String()))
	}
	return &Document{Note: note, State: state}, nil
}

func (s *NoteService) find(ctx context.Context, id uuid.UUID) (*entities.Note, error) {
	note, err := s.notes.FindByID(ctx, id)
	if err != nil {
		return nil, errors.ErrDBQueryFailed("find note", err)
	}
	if note == nil {
		return nil, errors.ErrNoteNotFound(id.String())
	}
	return note, nil
}

func (s *NoteService) Get(ctx context.Context, id uuid.UUID) (*Document, error) {
	note, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.load(note), nil
}

// load never fails: unreadable content falls back to an empty document and
// placeholders of uploads that did not finish are dropped.
func (s *NoteService) load(note *entities.Note) *Document {
	doc := &Document{Note: note}

	state, err := s.parse([]byte(note.Content))
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("⚠️ Stored note content is malformed, loading empty document",
				zap.String("note_id", note.ID.String()),
				zap.Error(err),
			)
		}
		state = editor.CreateEmpty(s.registry)
		doc.Notice = MalformedNotice
	}

	pruned, n, err := editor.PruneUploading(state)
	if err != nil && s.logger != nil {
		s.logger.Warn("⚠️ Could not prune stale uploads", zap.String("note_id", note.ID.String()), zap.Error(err))
	}
	if n > 0 && s.logger != nil {
		s.logger.Info("Pruned stale image placeholders", zap.String("note_id", note.ID.String()), zap.Int("count", n))
	}
	doc.State = pruned
	return doc
}

func (s *NoteService) Update(ctx context.Context, id uuid.UUID, input UpdateNoteInput) (*Document, error) {
	patch := entities.NotePatch{Title: input.Title}
	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return nil, errors.ErrInvalidArgument("title cannot be empty")
	}
	if input.Content != nil {
		state, err := s.parse(input.Content)
		if err != nil {
			return nil, err
		}
		content, err := s.serialize(state)
		if err != nil {
			return nil, err
		}
		patch.Content = &content
	}

	if err := s.notes.Update(ctx, id, patch); err != nil {
		if stdErrors.Is(err, entities.ErrNoteNotFound) {
			return nil, errors.ErrNoteNotFound(id.String())
		}
		return nil, errors.ErrDBQueryFailed("update note", err)
	}
	return s.Get(ctx, id)
}

func (s *NoteService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.notes.Delete(ctx, id); err != nil {
		if stdErrors.Is(err, entities.ErrNoteNotFound) {
			return errors.ErrNoteNotFound(id.String())
		}
		return errors.ErrDBQueryFailed("delete note", err)
	}
	if s.logger != nil {
		s.logger.Info("🗑️ Note deleted", zap.String("note_id", id.String()))
	}
	return nil
}

func (s *NoteService) List(ctx context.Context, filter entities.NoteFilter) ([]*entities.Note, int64, error) {
	notes, total, err := s.notes.List(ctx, filter)
	if err != nil {
		return nil, 0, errors.ErrDBQueryFailed("list notes", err)
	}
	return notes, total, nil
}

func (s *NoteService) ExportMarkdown(ctx context.Context, id uuid.UUID) (string, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return s.pipeline.Export(doc.State), nil
}

func (s *NoteService) RenderHTML(ctx context.Context, id uuid.UUID) (string, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	out, err := editor.RenderHTML(doc.State)
	if err != nil {
		return "", errors.ErrInternal(err)
	}
	return s.policy.Sanitize(out), nil
}

func (s *NoteService) ImportMarkdown(ctx context.Context, input ImportMarkdownInput) (*Document, error) {
	if strings.TrimSpace(input.OwnerID) == "" {
		return nil, errors.ErrInvalidArgument("owner_id is required")
	}
	state, err := s.pipeline.ImportState(s.registry, input.Markdown)
	if err != nil {
		return nil, errors.ErrDocumentMalformed(err)
	}
	return s.create(ctx, input.OwnerID, input.Title, state)
}

func (s *NoteService) PresignImageUpload(ctx context.Context, ownerID, mimeType string) (*storage.PresignedUpload, error) {
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, errors.ErrUnsupportedMedia(mimeType)
	}
	up, err := s.storage.PresignUpload(ctx, ownerID, mimeType, storage.CategoryImages)
	if err != nil {
		if stdErrors.Is(err, storage.ErrInvalidMediaType) {
			return nil, errors.ErrUnsupportedMedia(mimeType)
		}
		return nil, errors.ErrStorageFailed("presign upload", err)
	}
	return up, nil
}

func (s *NoteService) AttachImage(ctx context.Context, id uuid.UUID, input AttachImageInput) (*Document, *UploadResult, error) {
	if !strings.HasPrefix(input.Image.MimeType, "image/") {
		return nil, nil, errors.ErrUnsupportedMedia(input.Image.MimeType)
	}
	note, err := s.find(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	doc := s.load(note)
	ed := s.newEditor(doc.State)

	up, err := s.uploader.Start(ctx, ed, input.OwnerID, input.Image)
	if err != nil {
		return nil, nil, errors.ErrInternal(err)
	}
	result := up.Result()

	// Saved either way. A failed upload has already dropped its placeholder.
	content, err := s.serialize(ed.State())
	if err != nil {
		return nil, nil, err
	}
	if err := s.notes.Update(ctx, id, entities.NotePatch{Content: &content}); err != nil {
		if stdErrors.Is(err, entities.ErrNoteNotFound) {
			return nil, nil, errors.ErrNoteNotFound(id.String())
		}
		return nil, nil, errors.ErrDBQueryFailed("update note", err)
	}
	note.Content = content
	doc.State = ed.State()

	if result.Err != nil {
		return doc, &result, errors.ErrUploadFailed(result.ObjectKey, result.Err)
	}
	return doc, &result, nil
}
