package recording

// PresignRecordingRequest represents the request for a recording upload URL
type PresignRecordingRequest struct {
	MimeType string `json:"mime_type" validate:"required,mimetype"`
}

// CreateRecordingRequest registers a recording uploaded to object_key
type CreateRecordingRequest struct {
	Title            string   `json:"title" validate:"max=255"`
	ObjectKey        string   `json:"object_key" validate:"required"`
	OriginalFilename string   `json:"original_filename" validate:"max=255"`
	FileType         string   `json:"file_type" validate:"max=100"`
	FileSize         int64    `json:"file_size" validate:"min=0"`
	Duration         *float64 `json:"duration,omitempty" validate:"omitempty,min=0"`
}

// SpeakerRequest assigns a person and/or label to a speaker or segment
type SpeakerRequest struct {
	PersonID *string `json:"person_id,omitempty" validate:"omitempty,uuid"`
	Label    string  `json:"label" validate:"max=255"`
}

// CreatePersonRequest represents the request to create a person
type CreatePersonRequest struct {
	Name  string  `json:"name" validate:"required,min=1,max=255"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
}

// TranscriptionWebhook is the body the transcription service posts when a
// job changes state
type TranscriptionWebhook struct {
	TranscriptID string `json:"transcript_id" validate:"required"`
	Status       string `json:"status"`
}
