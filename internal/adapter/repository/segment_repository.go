package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/johnquangdev/notetaker/internal/domain/entities"
	"github.com/johnquangdev/notetaker/internal/domain/repositories"
)

type segmentRepository struct {
	db *gorm.DB
}

// NewSegmentRepository creates a new transcript segment repository
func NewSegmentRepository(db *gorm.DB) repositories.SegmentRepository {
	return &segmentRepository{db: db}
}

// ReplaceForRecording swaps the stored segments of a recording
func (r *segmentRepository) ReplaceForRecording(ctx context.Context, recordingID uuid.UUID, segments []*entities.TranscriptSegment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recording_id = ?", recordingID).Delete(&entities.TranscriptSegment{}).Error; err != nil {
			return err
		}
		if len(segments) == 0 {
			return nil
		}
		for _, s := range segments {
			s.RecordingID = recordingID
		}
		return tx.CreateInBatches(segments, 200).Error
	})
}

// ListByRecording returns a recording's segments ordered by start time
func (r *segmentRepository) ListByRecording(ctx context.Context, recordingID uuid.UUID) ([]*entities.TranscriptSegment, error) {
	var segments []*entities.TranscriptSegment
	if err := r.db.WithContext(ctx).
		Where("recording_id = ?", recordingID).
		Order("start_time ASC").
		Find(&segments).Error; err != nil {
		return nil, err
	}
	return segments, nil
}

// UpdateByOriginalSpeaker relabels a whole speaker cluster in one statement
func (r *segmentRepository) UpdateByOriginalSpeaker(ctx context.Context, recordingID uuid.UUID, number int, personID *uuid.UUID, label string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&entities.TranscriptSegment{}).
		Where("recording_id = ? AND original_speaker_number = ?", recordingID, number).
		Updates(map[string]interface{}{
			"person_id":     personID,
			"speaker_label": label,
		})
	return res.RowsAffected, res.Error
}

// UpdateSegmentSpeaker corrects the speaker of one segment
func (r *segmentRepository) UpdateSegmentSpeaker(ctx context.Context, segmentID uuid.UUID, personID *uuid.UUID, label string) error {
	updates := map[string]interface{}{"person_id": personID}
	if label != "" {
		updates["speaker_label"] = label
	}
	res := r.db.WithContext(ctx).
		Model(&entities.TranscriptSegment{}).
		Where("id = ?", segmentID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return entities.ErrSegmentNotFound
	}
	return nil
}
