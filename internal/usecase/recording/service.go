package recording

import (
	"context"

	"github.com/google/uuid"

	"github.com/johnquangdev/notetaker/internal/domain/entities"
	"github.com/johnquangdev/notetaker/internal/infrastructure/storage"
	"github.com/johnquangdev/notetaker/internal/transcript"
	"github.com/johnquangdev/notetaker/pkg/ai"
)

// Service defines the interface for the recording and transcript use case
type Service interface {
	// PresignUpload reserves an object key for a recording upload
	PresignUpload(ctx context.Context, ownerID, mimeType string) (*storage.PresignedUpload, error)

	// CreateRecording registers an uploaded recording
	CreateRecording(ctx context.Context, input CreateRecordingInput) (*entities.Recording, error)

	GetRecording(ctx context.Context, id uuid.UUID) (*entities.Recording, error)

	ListRecordings(ctx context.Context, ownerID string) ([]*entities.Recording, error)

	// DeleteRecording removes the recording, its segments and its object
	DeleteRecording(ctx context.Context, id uuid.UUID) error

	// Transcribe submits the recording to the transcription service
	Transcribe(ctx context.Context, id uuid.UUID) (*entities.Recording, error)

	// HandleJobUpdate pulls the state of a transcription job and settles
	// the recording when the job finished
	HandleJobUpdate(ctx context.Context, jobID string) error

	// GetTranscript returns the grouped transcript view
	GetTranscript(ctx context.Context, id uuid.UUID, filter transcript.Filter) (*TranscriptView, error)

	// CopyText renders the (filtered) transcript as plain text
	CopyText(ctx context.Context, id uuid.UUID, filter transcript.Filter) (string, error)

	// RenameSpeaker assigns a person and label to every segment of one
	// speaker cluster
	RenameSpeaker(ctx context.Context, id uuid.UUID, number int, input SpeakerInput) (*TranscriptView, error)

	// AssignSegment corrects the speaker of one segment
	AssignSegment(ctx context.Context, id, segmentID uuid.UUID, input SpeakerInput) (*TranscriptView, error)

	CreatePerson(ctx context.Context, input CreatePersonInput) (*entities.Person, error)

	ListPeople(ctx context.Context, ownerID string) ([]*entities.Person, error)
}

// Transcriber is the speech-to-text collaborator
type Transcriber interface {
	Submit(ctx context.Context, audioURL string) (string, error)
	Fetch(ctx context.Context, jobID string) (*ai.Job, error)
	UsesWebhook() bool
}

// ObjectStore is the storage used for recordings
type ObjectStore interface {
	PresignUpload(ctx context.Context, ownerID, mimeType, category string) (*storage.PresignedUpload, error)
	PresignDownload(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

type CreateRecordingInput struct {
	OwnerID          string
	Title            string
	ObjectKey        string
	OriginalFilename string
	FileType         string
	FileSize         int64
	Duration         *float64
}

// SpeakerInput names who a speaker (or segment) is. With a person and no
// label the person's name is used; with neither the default label is
// restored.
type SpeakerInput struct {
	PersonID *uuid.UUID
	Label    string
}

type CreatePersonInput struct {
	OwnerID string
	Name    string
	Email   *string
}

// TranscriptView is a derived view plus its recording
type TranscriptView struct {
	Recording *entities.Recording
	transcript.View
}

// Ensure RecordingService implements Service interface
var _ Service = (*RecordingService)(nil)
