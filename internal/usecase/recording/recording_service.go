package recording

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/notetaker/errors"
	"github.com/johnquangdev/notetaker/internal/domain/entities"
	"github.com/johnquangdev/notetaker/internal/domain/repositories"
	"github.com/johnquangdev/notetaker/internal/infrastructure/storage"
	"github.com/johnquangdev/notetaker/internal/transcript"
	"github.com/johnquangdev/notetaker/pkg/ai"
)

// Config holds the transcript settings used by the service
type Config struct {
	GapThreshold time.Duration
	PollInterval time.Duration
}

// RecordingService implements Service
type RecordingService struct {
	recordings  repositories.RecordingRepository
	segments    repositories.SegmentRepository
	people      repositories.PersonRepository
	storage     ObjectStore
	transcriber Transcriber
	model       transcript.Model
	cfg         Config
	logger      *zap.Logger

	newBackOff func() backoff.BackOff

	// pollers outlive the request that started them
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRecordingService creates a new recording service
func NewRecordingService(
	recordings repositories.RecordingRepository,
	segments repositories.SegmentRepository,
	people repositories.PersonRepository,
	store ObjectStore,
	transcriber Transcriber,
	cfg Config,
	logger *zap.Logger,
) *RecordingService {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &RecordingService{
		recordings:  recordings,
		segments:    segments,
		people:      people,
		storage:     store,
		transcriber: transcriber,
		model:       transcript.Model{Gap: cfg.GapThreshold},
		cfg:         cfg,
		logger:      logger,
		newBackOff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = 2 * time.Second
			bo.MaxElapsedTime = 30 * time.Second
			bo.MaxInterval = 10 * time.Second
			return bo
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Close stops background polling and waits for pollers to exit
func (s *RecordingService) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *RecordingService) PresignUpload(ctx context.Context, ownerID, mimeType string) (*storage.PresignedUpload, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, errors.ErrInvalidArgument("owner_id is required")
	}
	if !strings.HasPrefix(mimeType, "audio/") && !strings.HasPrefix(mimeType, "video/") {
		return nil, errors.ErrUnsupportedMedia(mimeType)
	}
	up, err := s.storage.PresignUpload(ctx, ownerID, mimeType, storage.CategoryRecordings)
	if err != nil {
		if stdErrors.Is(err, storage.ErrInvalidMediaType) {
			return nil, errors.ErrUnsupportedMedia(mimeType)
		}
		return nil, errors.ErrStorageFailed("presign upload", err)
	}
	return up, nil
}

func (s *RecordingService) CreateRecording(ctx context.Context, input CreateRecordingInput) (*entities.Recording, error) {
	if strings.TrimSpace(input.OwnerID) == "" {
		return nil, errors.ErrInvalidArgument("owner_id is required")
	}
	if strings.TrimSpace(input.ObjectKey) == "" {
		return nil, errors.ErrMissingRecordingURL()
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = input.OriginalFilename
	}
	if title == "" {
		title = "Untitled recording"
	}

	rec := &entities.Recording{
		OwnerID:             input.OwnerID,
		Title:               title,
		ObjectKey:           input.ObjectKey,
		OriginalFilename:    input.OriginalFilename,
		FileType:            input.FileType,
		FileSize:            input.FileSize,
		Duration:            input.Duration,
		TranscriptionStatus: entities.TranscriptionStatusPending,
	}
	if err := s.recordings.Create(ctx, rec); err != nil {
		if s.logger != nil {
			s.logger.Error("❌ Failed to create recording", zap.String("owner_id", input.OwnerID), zap.Error(err))
		}
		return nil, errors.ErrDBQueryFailed("create recording", err)
	}

	if s.logger != nil {
		s.logger.Info("✅ Recording created",
			zap.String("recording_id", rec.ID.String()),
			zap.String("object_key", rec.ObjectKey),
		)
	}
	return rec, nil
}

func (s *RecordingService) find(ctx context.Context, id uuid.UUID) (*entities.Recording, error) {
	rec, err := s.recordings.FindByID(ctx, id)
	if err != nil {
		return nil, errors.ErrDBQueryFailed("find recording", err)
	}
	if rec == nil {
		return nil, errors.ErrRecordingNotFound(id.String())
	}
	return rec, nil
}

func (s *RecordingService) GetRecording(ctx context.Context, id uuid.UUID) (*entities.Recording, error) {
	return s.find(ctx, id)
}

func (s *RecordingService) ListRecordings(ctx context.Context, ownerID string) ([]*entities.Recording, error) {
	recs, err := s.recordings.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, errors.ErrDBQueryFailed("list recordings", err)
	}
	return recs, nil
}

func (s *RecordingService) DeleteRecording(ctx context.Context, id uuid.UUID) error {
	rec, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.recordings.Delete(ctx, id); err != nil {
		if stdErrors.Is(err, entities.ErrRecordingNotFound) {
			return errors.ErrRecordingNotFound(id.String())
		}
		return errors.ErrDBTransactionFailed(err)
	}

	// The row is gone either way; an orphaned object is only logged.
	if err := s.storage.Delete(ctx, rec.ObjectKey); err != nil && s.logger != nil {
		s.logger.Warn("⚠️ Failed to delete recording object",
			zap.String("recording_id", id.String()),
			zap.String("object_key", rec.ObjectKey),
			zap.Error(err),
		)
	}
	if s.logger != nil {
		s.logger.Info("🗑️ Recording deleted", zap.String("recording_id", id.String()))
	}
	return nil
}

func (s *RecordingService) Transcribe(ctx context.Context, id uuid.UUID) (*entities.Recording, error) {
	rec, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.IsProcessing() {
		return nil, errors.ErrTranscriptionInProgress(id.String())
	}
	if rec.ObjectKey == "" {
		return nil, errors.ErrMissingRecordingURL()
	}

	audioURL, err := s.storage.PresignDownload(ctx, rec.ObjectKey)
	if err != nil {
		return nil, errors.ErrStorageFailed("presign download", err)
	}

	var jobID string
	submit := func() error {
		jid, err := s.transcriber.Submit(ctx, audioURL)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("🔄 Transcription submit failed, retrying", zap.Error(err))
			}
			return err
		}
		jobID = jid
		return nil
	}
	if err := backoff.Retry(submit, backoff.WithContext(s.newBackOff(), ctx)); err != nil {
		if s.logger != nil {
			s.logger.Error("❌ Failed to submit transcription",
				zap.String("recording_id", id.String()),
				zap.Error(err),
			)
		}
		return nil, errors.ErrExternalAPIFailed("transcription", err)
	}

	rec.MarkAsProcessing(jobID)
	if err := s.recordings.Update(ctx, rec); err != nil {
		return nil, errors.ErrDBQueryFailed("update recording", err)
	}

	if s.logger != nil {
		s.logger.Info("🎙️ Transcription submitted",
			zap.String("recording_id", id.String()),
			zap.String("job_id", jobID),
			zap.Bool("webhook", s.transcriber.UsesWebhook()),
		)
	}

	if !s.transcriber.UsesWebhook() {
		s.wg.Add(1)
		go s.poll(rec.ID, jobID)
	}
	return rec, nil
}

// poll fetches the job until it settles or the service closes
func (s *RecordingService) poll(recordingID uuid.UUID, jobID string) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
		}

		settled, err := s.update(s.ctx, jobID)
		if err != nil && s.logger != nil {
			s.logger.Warn("⚠️ Transcription poll failed",
				zap.String("recording_id", recordingID.String()),
				zap.String("job_id", jobID),
				zap.Bool("settled", settled),
				zap.Error(err),
			)
		}
		// A deleted recording settles with an error.
		if settled {
			return
		}
	}
}

func (s *RecordingService) HandleJobUpdate(ctx context.Context, jobID string) error {
	if strings.TrimSpace(jobID) == "" {
		return errors.ErrInvalidArgument("transcript_id is required")
	}
	_, err := s.update(ctx, jobID)
	return err
}

// update reports whether the recording behind jobID no longer waits on it
func (s *RecordingService) update(ctx context.Context, jobID string) (bool, error) {
	rec, err := s.recordings.FindByExternalJobID(ctx, jobID)
	if err != nil {
		return false, errors.ErrDBQueryFailed("find recording", err)
	}
	if rec == nil {
		return true, errors.ErrNotFound("Recording for job").WithDetail("job_id", jobID)
	}
	if !rec.IsProcessing() {
		// late or duplicate notification
		return true, nil
	}

	job, err := s.transcriber.Fetch(ctx, jobID)
	if err != nil {
		return false, errors.ErrExternalAPIFailed("transcription", err)
	}

	switch job.Status {
	case ai.JobCompleted:
		return true, s.complete(ctx, rec, job.Result)
	case ai.JobFailed:
		msg := job.Error
		if msg == "" {
			msg = "transcription failed"
		}
		return true, s.fail(ctx, rec, msg)
	default:
		return false, nil
	}
}

func (s *RecordingService) complete(ctx context.Context, rec *entities.Recording, result *transcript.Result) error {
	segs, err := transcript.Flatten(rec.ID.String(), result)
	if err != nil {
		return s.fail(ctx, rec, err.Error())
	}

	rows := make([]*entities.TranscriptSegment, len(segs))
	for i, seg := range segs {
		rows[i] = entities.NewTranscriptSegment(rec.ID, seg)
	}
	if err := s.segments.ReplaceForRecording(ctx, rec.ID, rows); err != nil {
		if s.logger != nil {
			s.logger.Error("❌ Failed to store transcript segments",
				zap.String("recording_id", rec.ID.String()),
				zap.Error(err),
			)
		}
		return s.fail(ctx, rec, fmt.Sprintf("store segments: %v", err))
	}

	rec.MarkAsCompleted(result)
	if err := s.recordings.Update(ctx, rec); err != nil {
		return errors.ErrDBQueryFailed("update recording", err)
	}

	if s.logger != nil {
		s.logger.Info("✅ Transcription completed",
			zap.String("recording_id", rec.ID.String()),
			zap.Int("segments", len(rows)),
		)
	}
	return nil
}

func (s *RecordingService) fail(ctx context.Context, rec *entities.Recording, msg string) error {
	if s.logger != nil {
		s.logger.Error("❌ Transcription failed",
			zap.String("recording_id", rec.ID.String()),
			zap.String("reason", msg),
		)
	}
	rec.MarkAsFailed(msg)
	if err := s.recordings.Update(ctx, rec); err != nil {
		return errors.ErrDBQueryFailed("update recording", err)
	}
	return nil
}

// loadSegments returns the segments of a completed recording
func (s *RecordingService) loadSegments(ctx context.Context, id uuid.UUID) (*entities.Recording, []transcript.Segment, error) {
	rec, err := s.find(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !rec.IsCompleted() {
		return nil, nil, errors.ErrTranscriptionUnavailable(id.String(), string(rec.TranscriptionStatus))
	}

	rows, err := s.segments.ListByRecording(ctx, id)
	if err != nil {
		return nil, nil, errors.ErrDBQueryFailed("list segments", err)
	}
	segs := make([]transcript.Segment, len(rows))
	for i, row := range rows {
		segs[i] = row.ToSegment()
	}
	return rec, segs, nil
}

func (s *RecordingService) GetTranscript(ctx context.Context, id uuid.UUID, filter transcript.Filter) (*TranscriptView, error) {
	rec, segs, err := s.loadSegments(ctx, id)
	if err != nil {
		return nil, err
	}
	return &TranscriptView{Recording: rec, View: s.model.DeriveView(segs, filter)}, nil
}

func (s *RecordingService) CopyText(ctx context.Context, id uuid.UUID, filter transcript.Filter) (string, error) {
	view, err := s.GetTranscript(ctx, id, filter)
	if err != nil {
		return "", err
	}
	return transcript.CopyText(view.Groups), nil
}

// resolveLabel fills an empty label from the person's name
func (s *RecordingService) resolveLabel(ctx context.Context, input SpeakerInput) (string, *string, error) {
	label := strings.TrimSpace(input.Label)
	if input.PersonID == nil {
		return label, nil, nil
	}

	person, err := s.people.FindByID(ctx, *input.PersonID)
	if err != nil {
		return "", nil, errors.ErrDBQueryFailed("find person", err)
	}
	if person == nil {
		return "", nil, errors.ErrPersonNotFound(input.PersonID.String())
	}
	if label == "" {
		label = person.Name
	}
	id := person.ID.String()
	return label, &id, nil
}

func (s *RecordingService) RenameSpeaker(ctx context.Context, id uuid.UUID, number int, input SpeakerInput) (*TranscriptView, error) {
	rec, segs, err := s.loadSegments(ctx, id)
	if err != nil {
		return nil, err
	}
	label, personID, err := s.resolveLabel(ctx, input)
	if err != nil {
		return nil, err
	}
	if label == "" {
		label = transcript.DefaultLabel(number)
	}

	if _, err := transcript.RenameSpeaker(segs, number, personID, label); err != nil {
		if stdErrors.Is(err, transcript.ErrUnknownSpeaker) {
			return nil, errors.ErrSpeakerNotFound(id.String(), number)
		}
		return nil, errors.ErrInternal(err)
	}

	n, err := s.segments.UpdateByOriginalSpeaker(ctx, id, number, input.PersonID, label)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("❌ Failed to rename speaker",
				zap.String("recording_id", id.String()),
				zap.Int("speaker", number),
				zap.Error(err),
			)
		}
		return nil, errors.ErrSpeakerUpdateFailed(id.String(), err)
	}
	if n == 0 {
		// segments were replaced underneath us
		return nil, errors.ErrSpeakerNotFound(id.String(), number)
	}

	if s.logger != nil {
		s.logger.Info("✏️ Speaker renamed",
			zap.String("recording_id", id.String()),
			zap.Int("speaker", number),
			zap.String("label", label),
			zap.Int64("segments", n),
		)
	}
	return &TranscriptView{Recording: rec, View: s.model.DeriveView(segs, transcript.Filter{})}, nil
}

func (s *RecordingService) AssignSegment(ctx context.Context, id, segmentID uuid.UUID, input SpeakerInput) (*TranscriptView, error) {
	rec, segs, err := s.loadSegments(ctx, id)
	if err != nil {
		return nil, err
	}
	label, personID, err := s.resolveLabel(ctx, input)
	if err != nil {
		return nil, err
	}

	if err := transcript.AssignSegment(segs, segmentID.String(), personID, label); err != nil {
		if stdErrors.Is(err, transcript.ErrSegmentNotFound) {
			return nil, errors.ErrNotFound("Segment").WithDetail("segment_id", segmentID.String())
		}
		return nil, errors.ErrInternal(err)
	}

	if err := s.segments.UpdateSegmentSpeaker(ctx, segmentID, input.PersonID, label); err != nil {
		if stdErrors.Is(err, entities.ErrSegmentNotFound) {
			return nil, errors.ErrNotFound("Segment").WithDetail("segment_id", segmentID.String())
		}
		return nil, errors.ErrSpeakerUpdateFailed(id.String(), err)
	}
	return &TranscriptView{Recording: rec, View: s.model.DeriveView(segs, transcript.Filter{})}, nil
}

func (s *RecordingService) CreatePerson(ctx context.Context, input CreatePersonInput) (*entities.Person, error) {
	name := strings.TrimSpace(input.Name)
	if strings.TrimSpace(input.OwnerID) == "" {
		return nil, errors.ErrInvalidArgument("owner_id is required")
	}
	if name == "" {
		return nil, errors.ErrInvalidArgument("name is required")
	}

	person := &entities.Person{OwnerID: input.OwnerID, Name: name, Email: input.Email}
	if err := s.people.Create(ctx, person); err != nil {
		return nil, errors.ErrDBQueryFailed("create person", err)
	}
	return person, nil
}

func (s *RecordingService) ListPeople(ctx context.Context, ownerID string) ([]*entities.Person, error) {
	people, err := s.people.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, errors.ErrDBQueryFailed("list people", err)
	}
	return people, nil
}
