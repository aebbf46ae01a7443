package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/johnquangdev/notetaker/internal/transcript"
)

// TranscriptSegment is one stored sentence of a diarized transcript
type TranscriptSegment struct {
	ID                    uuid.UUID  `json:"id" gorm:"type:uuid;primary_key"`
	RecordingID           uuid.UUID  `json:"recording_id" gorm:"type:uuid;not null;index:idx_segment_speaker,priority:1"`
	OriginalSpeakerNumber int        `json:"original_speaker_number" gorm:"not null;index:idx_segment_speaker,priority:2"`
	PersonID              *uuid.UUID `json:"person_id,omitempty" gorm:"type:uuid"`
	SpeakerLabel          string     `json:"speaker_label" gorm:"type:varchar(255);not null"`
	StartTime             float64    `json:"start_time" gorm:"not null"`
	EndTime               float64    `json:"end_time" gorm:"not null"`
	Text                  string     `json:"text" gorm:"type:text;not null"`
	CreatedAt             time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt             time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (TranscriptSegment) TableName() string {
	return "transcription_segments"
}

func (s *TranscriptSegment) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// ToSegment converts the stored row to the transcript model.
func (s *TranscriptSegment) ToSegment() transcript.Segment {
	var person *string
	if s.PersonID != nil {
		p := s.PersonID.String()
		person = &p
	}
	return transcript.Segment{
		ID:                    s.ID.String(),
		RecordingID:           s.RecordingID.String(),
		OriginalSpeakerNumber: s.OriginalSpeakerNumber,
		PersonID:              person,
		SpeakerLabel:          s.SpeakerLabel,
		StartTime:             s.StartTime,
		EndTime:               s.EndTime,
		Text:                  s.Text,
	}
}

// NewTranscriptSegment builds a row for a recording from a flattened
// segment.
func NewTranscriptSegment(recordingID uuid.UUID, seg transcript.Segment) *TranscriptSegment {
	return &TranscriptSegment{
		RecordingID:           recordingID,
		OriginalSpeakerNumber: seg.OriginalSpeakerNumber,
		SpeakerLabel:          seg.SpeakerLabel,
		StartTime:             seg.StartTime,
		EndTime:               seg.EndTime,
		Text:                  seg.Text,
	}
}
