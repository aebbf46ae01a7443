package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/johnquangdev/notetaker/internal/domain/entities"
	"github.com/johnquangdev/notetaker/internal/transcript"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&entities.Note{},
		&entities.Person{},
		&entities.Recording{},
		&entities.TranscriptSegment{},
	))
	return db
}

func strPtr(s string) *string { return &s }

func TestNoteRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewNoteRepository(newTestDB(t))

	note := &entities.Note{OwnerID: "u1", Title: "Weekly sync", Content: `{"root":{}}`}
	require.NoError(t, repo.Create(ctx, note))
	require.NotEqual(t, uuid.Nil, note.ID)

	t.Run("find", func(t *testing.T) {
		got, err := repo.FindByID(ctx, note.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Weekly sync", got.Title)

		missing, err := repo.FindByID(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("patch only sets given fields", func(t *testing.T) {
		require.NoError(t, repo.Update(ctx, note.ID, entities.NotePatch{Title: strPtr("Retro")}))

		got, err := repo.FindByID(ctx, note.ID)
		require.NoError(t, err)
		assert.Equal(t, "Retro", got.Title)
		assert.Equal(t, `{"root":{}}`, got.Content)

		err = repo.Update(ctx, uuid.New(), entities.NotePatch{Title: strPtr("x")})
		assert.ErrorIs(t, err, entities.ErrNoteNotFound)
		err = repo.Update(ctx, uuid.New(), entities.NotePatch{})
		assert.ErrorIs(t, err, entities.ErrNoteNotFound)
	})

	t.Run("list filters by owner and title", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, &entities.Note{OwnerID: "u1", Title: "Design review", Content: "{}"}))
		require.NoError(t, repo.Create(ctx, &entities.Note{OwnerID: "u2", Title: "Other owner", Content: "{}"}))

		notes, total, err := repo.List(ctx, entities.NoteFilter{OwnerID: "u1"})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Len(t, notes, 2)

		notes, total, err = repo.List(ctx, entities.NoteFilter{OwnerID: "u1", Search: "DESIGN"})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, notes, 1)
		assert.Equal(t, "Design review", notes[0].Title)

		notes, total, err = repo.List(ctx, entities.NoteFilter{OwnerID: "u1", Limit: 1})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Len(t, notes, 1)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, note.ID))
		assert.ErrorIs(t, repo.Delete(ctx, note.ID), entities.ErrNoteNotFound)
	})
}

func TestRecordingRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewRecordingRepository(db)

	rec := &entities.Recording{OwnerID: "u1", Title: "Standup", ObjectKey: "u1/recordings/a.mp3"}
	require.NoError(t, repo.Create(ctx, rec))
	assert.Equal(t, entities.TranscriptionStatusPending, rec.TranscriptionStatus)

	rec.MarkAsProcessing("job-7")
	require.NoError(t, repo.Update(ctx, rec))

	byJob, err := repo.FindByExternalJobID(ctx, "job-7")
	require.NoError(t, err)
	require.NotNil(t, byJob)
	assert.Equal(t, rec.ID, byJob.ID)
	assert.True(t, byJob.IsProcessing())

	result := &transcript.Result{Paragraphs: []transcript.Paragraph{{Speaker: 1, Sentences: []transcript.Sentence{{Text: "hi", End: 1}}}}}
	rec.MarkAsCompleted(result)
	require.NoError(t, repo.Update(ctx, rec))

	got, err := repo.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	require.True(t, got.IsCompleted())
	stored := got.Transcription.Data()
	require.NotNil(t, stored)
	assert.Equal(t, "hi", stored.Paragraphs[0].Sentences[0].Text)

	list, err := repo.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	segs := NewSegmentRepository(db)
	require.NoError(t, segs.ReplaceForRecording(ctx, rec.ID, []*entities.TranscriptSegment{{OriginalSpeakerNumber: 1, SpeakerLabel: "Speaker 1", Text: "hi"}}))
	require.NoError(t, repo.Delete(ctx, rec.ID))
	left, err := segs.ListByRecording(ctx, rec.ID)
	require.NoError(t, err)
	assert.Empty(t, left)

	assert.ErrorIs(t, repo.Delete(ctx, rec.ID), entities.ErrRecordingNotFound)
}

func TestSegmentRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewSegmentRepository(newTestDB(t))
	recID := uuid.New()

	input := []transcript.Segment{
		{OriginalSpeakerNumber: 1, SpeakerLabel: "Speaker 1", StartTime: 9, EndTime: 10, Text: "back"},
		{OriginalSpeakerNumber: 1, SpeakerLabel: "Speaker 1", StartTime: 0, EndTime: 2, Text: "hi"},
		{OriginalSpeakerNumber: 2, SpeakerLabel: "Speaker 2", StartTime: 4, EndTime: 6, Text: "hey"},
	}
	rows := make([]*entities.TranscriptSegment, len(input))
	for i, s := range input {
		rows[i] = entities.NewTranscriptSegment(recID, s)
	}
	require.NoError(t, repo.ReplaceForRecording(ctx, recID, rows))

	t.Run("ordered by start time", func(t *testing.T) {
		got, err := repo.ListByRecording(ctx, recID)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "hi", got[0].Text)
		assert.Equal(t, "back", got[2].Text)
	})

	t.Run("bulk rename touches only one cluster", func(t *testing.T) {
		person := uuid.New()
		n, err := repo.UpdateByOriginalSpeaker(ctx, recID, 1, &person, "Alice")
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		got, err := repo.ListByRecording(ctx, recID)
		require.NoError(t, err)
		for _, s := range got {
			seg := s.ToSegment()
			if s.OriginalSpeakerNumber == 1 {
				require.NotNil(t, seg.PersonID)
				assert.Equal(t, person.String(), *seg.PersonID)
				assert.Equal(t, "Alice", seg.SpeakerLabel)
			} else {
				assert.Nil(t, seg.PersonID)
				assert.Equal(t, "Speaker 2", seg.SpeakerLabel)
			}
		}

		n, err = repo.UpdateByOriginalSpeaker(ctx, recID, 9, nil, "Nobody")
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("single segment", func(t *testing.T) {
		got, err := repo.ListByRecording(ctx, recID)
		require.NoError(t, err)

		require.NoError(t, repo.UpdateSegmentSpeaker(ctx, got[1].ID, nil, "Bob"))
		after, err := repo.ListByRecording(ctx, recID)
		require.NoError(t, err)
		assert.Equal(t, "Bob", after[1].SpeakerLabel)
		assert.Nil(t, after[1].PersonID)

		assert.ErrorIs(t, repo.UpdateSegmentSpeaker(ctx, uuid.New(), nil, "x"), entities.ErrSegmentNotFound)
	})

	t.Run("replace drops old rows", func(t *testing.T) {
		require.NoError(t, repo.ReplaceForRecording(ctx, recID, nil))
		got, err := repo.ListByRecording(ctx, recID)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestPersonRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPersonRepository(newTestDB(t))

	require.NoError(t, repo.Create(ctx, &entities.Person{OwnerID: "u1", Name: "Zoe"}))
	alice := &entities.Person{OwnerID: "u1", Name: "Alice"}
	require.NoError(t, repo.Create(ctx, alice))

	people, err := repo.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, people, 2)
	assert.Equal(t, "Alice", people[0].Name)

	got, err := repo.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)
}
