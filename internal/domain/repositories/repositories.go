package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/johnquangdev/notetaker/internal/domain/entities"
)

// NoteRepository defines the interface for note data access.
// FindByID returns (nil, nil) when the note does not exist.
type NoteRepository interface {
	Create(ctx context.Context, note *entities.Note) error
	FindByID(ctx context.Context, id uuid.UUID) (*entities.Note, error)
	// Update applies the non-nil patch fields and returns
	// entities.ErrNoteNotFound when nothing matched.
	Update(ctx context.Context, id uuid.UUID, patch entities.NotePatch) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter entities.NoteFilter) ([]*entities.Note, int64, error)
}

// RecordingRepository defines the interface for recording data access
type RecordingRepository interface {
	Create(ctx context.Context, recording *entities.Recording) error
	FindByID(ctx context.Context, id uuid.UUID) (*entities.Recording, error)
	FindByExternalJobID(ctx context.Context, jobID string) (*entities.Recording, error)
	Update(ctx context.Context, recording *entities.Recording) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByOwner(ctx context.Context, ownerID string) ([]*entities.Recording, error)
}

// SegmentRepository stores transcript segments
type SegmentRepository interface {
	// ReplaceForRecording deletes existing segments of the recording and
	// inserts the new ones in one transaction.
	ReplaceForRecording(ctx context.Context, recordingID uuid.UUID, segments []*entities.TranscriptSegment) error
	// ListByRecording returns segments ordered by start time.
	ListByRecording(ctx context.Context, recordingID uuid.UUID) ([]*entities.TranscriptSegment, error)
	// UpdateByOriginalSpeaker sets person and label on every segment of one
	// speaker cluster and returns the number of rows changed.
	UpdateByOriginalSpeaker(ctx context.Context, recordingID uuid.UUID, number int, personID *uuid.UUID, label string) (int64, error)
	// UpdateSegmentSpeaker corrects a single segment.
	UpdateSegmentSpeaker(ctx context.Context, segmentID uuid.UUID, personID *uuid.UUID, label string) error
}

// PersonRepository defines the interface for people data access
type PersonRepository interface {
	Create(ctx context.Context, person *entities.Person) error
	FindByID(ctx context.Context, id uuid.UUID) (*entities.Person, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*entities.Person, error)
}
