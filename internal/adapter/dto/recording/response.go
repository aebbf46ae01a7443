package recording

import "time"

// RecordingResponse represents a recording in responses
type RecordingResponse struct {
	ID                  string    `json:"id"`
	OwnerID             string    `json:"owner_id"`
	Title               string    `json:"title"`
	ObjectKey           string    `json:"object_key"`
	OriginalFilename    string    `json:"original_filename,omitempty"`
	FileType            string    `json:"file_type,omitempty"`
	FileSize            int64     `json:"file_size"`
	Duration            *float64  `json:"duration,omitempty"`
	TranscriptionStatus string    `json:"transcription_status"`
	TranscriptionError  *string   `json:"transcription_error,omitempty"`
	ExternalJobID       *string   `json:"external_job_id,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

type SpeakerResponse struct {
	Number   int     `json:"original_speaker_number"`
	PersonID *string `json:"person_id,omitempty"`
	Label    string  `json:"speaker_label"`
}

type SegmentResponse struct {
	ID                    string  `json:"id"`
	OriginalSpeakerNumber int     `json:"original_speaker_number"`
	PersonID              *string `json:"person_id,omitempty"`
	SpeakerLabel          string  `json:"speaker_label"`
	StartTime             float64 `json:"start_time"`
	EndTime               float64 `json:"end_time"`
	Text                  string  `json:"text"`
}

// GroupResponse is a run of one speaker's segments with display times
type GroupResponse struct {
	Speaker      int               `json:"original_speaker_number"`
	SpeakerLabel string            `json:"speaker_label"`
	Start        float64           `json:"start"`
	End          float64           `json:"end"`
	StartLabel   string            `json:"start_label"`
	EndLabel     string            `json:"end_label"`
	Text         string            `json:"text"`
	Segments     []SegmentResponse `json:"segments"`
}

// TranscriptResponse represents the grouped transcript of a recording
type TranscriptResponse struct {
	Recording *RecordingResponse `json:"recording"`
	Speakers  []SpeakerResponse  `json:"speakers"`
	Groups    []GroupResponse    `json:"groups"`
}

type TranscriptTextResponse struct {
	Text string `json:"text"`
}

type PersonResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     *string   `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
