// Package transcript turns diarized speech segments into the grouped view
// shown next to a recording and applies speaker corrections.
package transcript

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrEmptyResult is returned when a transcription result carries no
	// paragraphs to flatten.
	ErrEmptyResult = errors.New("transcript: empty transcription result")
	// ErrUnknownSpeaker is returned when no segment carries the requested
	// original speaker number.
	ErrUnknownSpeaker = errors.New("transcript: unknown speaker")
	// ErrSegmentNotFound is returned by AssignSegment for an unknown id.
	ErrSegmentNotFound = errors.New("transcript: segment not found")
)

// Segment is one timed, speaker-tagged span of speech. Only PersonID and
// SpeakerLabel change after the segment is created.
type Segment struct {
	ID                    string  `json:"id"`
	RecordingID           string  `json:"recording_id"`
	OriginalSpeakerNumber int     `json:"original_speaker_number"`
	PersonID              *string `json:"person_id"`
	SpeakerLabel          string  `json:"speaker_label"`
	StartTime             float64 `json:"start_time"`
	EndTime               float64 `json:"end_time"`
	Text                  string  `json:"text"`
}

// Speaker is derived from the first segment seen for an original speaker
// number. It is never stored.
type Speaker struct {
	OriginalSpeakerNumber int     `json:"original_speaker_number"`
	PersonID              *string `json:"person_id"`
	SpeakerLabel          string  `json:"speaker_label"`
}

// DefaultLabel is the label given to a speaker cluster before anyone
// assigns a person to it.
func DefaultLabel(number int) string {
	return fmt.Sprintf("Speaker %d", number)
}

// FormatTime renders seconds as mm:ss. Minutes are not wrapped at an hour.
func FormatTime(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int(math.Floor(seconds))
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// Filter narrows the sorted segments before they are grouped.
type Filter struct {
	// Query matches segment text case-insensitively.
	Query string
	// Speaker keeps only one original speaker number when set.
	Speaker *int
}

func (f Filter) IsZero() bool {
	return f.Query == "" && f.Speaker == nil
}

func (f Filter) Match(s Segment) bool {
	if f.Speaker != nil && s.OriginalSpeakerNumber != *f.Speaker {
		return false
	}
	if f.Query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s.Text), strings.ToLower(f.Query))
}

// RenameSpeaker sets the person and label on every segment of one speaker
// cluster. It changes nothing and returns ErrUnknownSpeaker when the
// number is absent.
//
// The correction assumes an original speaker number is one voice for the
// whole recording. Nothing checks that.
func RenameSpeaker(segments []Segment, number int, personID *string, label string) (int, error) {
	n := 0
	for i := range segments {
		if segments[i].OriginalSpeakerNumber != number {
			continue
		}
		segments[i].PersonID = clonePerson(personID)
		segments[i].SpeakerLabel = label
		n++
	}
	if n == 0 {
		return 0, ErrUnknownSpeaker
	}
	return n, nil
}

// AssignSegment corrects the speaker of a single segment.
func AssignSegment(segments []Segment, id string, personID *string, label string) error {
	for i := range segments {
		if segments[i].ID != id {
			continue
		}
		segments[i].PersonID = clonePerson(personID)
		if label != "" {
			segments[i].SpeakerLabel = label
		}
		return nil
	}
	return ErrSegmentNotFound
}

func clonePerson(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
