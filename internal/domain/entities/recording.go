package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/johnquangdev/notetaker/internal/transcript"
)

// TranscriptionStatus represents where a recording is in transcription
type TranscriptionStatus string

const (
	TranscriptionStatusPending    TranscriptionStatus = "pending"
	TranscriptionStatusProcessing TranscriptionStatus = "processing"
	TranscriptionStatusCompleted  TranscriptionStatus = "completed"
	TranscriptionStatusFailed     TranscriptionStatus = "failed"
)

// Recording is an uploaded audio or video file and its transcription.
type Recording struct {
	ID                  uuid.UUID                              `json:"id" gorm:"type:uuid;primary_key"`
	OwnerID             string                                 `json:"owner_id" gorm:"type:varchar(255);not null;index"`
	Title               string                                 `json:"title" gorm:"type:varchar(255);not null"`
	Description         string                                 `json:"description,omitempty" gorm:"type:text"`
	ObjectKey           string                                 `json:"object_key" gorm:"type:text;not null"`
	OriginalFilename    string                                 `json:"original_filename" gorm:"type:varchar(255)"`
	FileType            string                                 `json:"file_type" gorm:"type:varchar(100)"`
	FileSize            int64                                  `json:"file_size"`
	Duration            *float64                               `json:"duration,omitempty"`
	TranscriptionStatus TranscriptionStatus                    `json:"transcription_status" gorm:"type:varchar(20);not null;default:'pending';index"`
	TranscriptionError  *string                                `json:"transcription_error,omitempty" gorm:"type:text"`
	ExternalJobID       *string                                `json:"external_job_id,omitempty" gorm:"type:varchar(255)"`
	Transcription       datatypes.JSONType[*transcript.Result] `json:"-"`
	CreatedAt           time.Time                              `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt           time.Time                              `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Recording) TableName() string {
	return "recordings"
}

func (r *Recording) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.TranscriptionStatus == "" {
		r.TranscriptionStatus = TranscriptionStatusPending
	}
	return nil
}

// IsCompleted checks if transcription is completed
func (r *Recording) IsCompleted() bool {
	return r.TranscriptionStatus == TranscriptionStatusCompleted
}

// IsProcessing checks if a transcription job is running
func (r *Recording) IsProcessing() bool {
	return r.TranscriptionStatus == TranscriptionStatusProcessing
}

// MarkAsProcessing marks recording as processing
func (r *Recording) MarkAsProcessing(jobID string) {
	r.TranscriptionStatus = TranscriptionStatusProcessing
	r.TranscriptionError = nil
	if jobID != "" {
		r.ExternalJobID = &jobID
	}
}

// MarkAsCompleted stores the result and marks recording as completed
func (r *Recording) MarkAsCompleted(result *transcript.Result) {
	r.TranscriptionStatus = TranscriptionStatusCompleted
	r.TranscriptionError = nil
	r.Transcription = datatypes.NewJSONType(result)
}

// MarkAsFailed marks recording as failed
func (r *Recording) MarkAsFailed(errorMsg string) {
	r.TranscriptionStatus = TranscriptionStatusFailed
	r.TranscriptionError = &errorMsg
}
